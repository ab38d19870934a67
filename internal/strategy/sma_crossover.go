package strategy

import (
	"strings"

	"github.com/c-rw/spicetrader-go/internal/config"
	"github.com/c-rw/spicetrader-go/internal/domain"
	"github.com/c-rw/spicetrader-go/internal/indicators"
)

// SMACrossover trades strong trends: a bullish fast/slow SMA cross buys, a
// bearish cross sells. An optional trend filter suppresses buys during a
// market-classified downtrend and suppresses sells during an uptrend while
// flat; sells additionally require a minimum profit and minimum hold time
// once a long position is open.
type SMACrossover struct {
	cfg config.SMACrossoverConfig

	prevFast, prevSlow float64
	havePrev           bool

	position      bool
	entryPrice    float64
	entryTimeUnix int64
}

func NewSMACrossover(cfg config.SMACrossoverConfig) *SMACrossover {
	return &SMACrossover{cfg: cfg}
}

func (s *SMACrossover) Kind() Kind { return KindSMACrossover }

func (s *SMACrossover) Analyze(series domain.OHLCSeries, ctx Context) Signal {
	s.position = ctx.Position.Long

	closes := series.Closes()
	required := s.cfg.SlowPeriod
	if len(closes) < required {
		return Hold
	}

	fastSeries := indicators.SMA(closes, s.cfg.FastPeriod)
	slowSeries := indicators.SMA(closes, s.cfg.SlowPeriod)
	fast, fastOK := indicators.Last(fastSeries, s.cfg.FastPeriod)
	slow, slowOK := indicators.Last(slowSeries, s.cfg.SlowPeriod)
	if !fastOK || !slowOK {
		return Hold
	}

	currentPrice := closes[len(closes)-1]

	if !s.havePrev {
		s.prevFast, s.prevSlow = fast, slow
		s.havePrev = true
		return Hold
	}

	bullishCross := s.prevFast <= s.prevSlow && fast > slow
	bearishCross := s.prevFast >= s.prevSlow && fast < slow

	s.prevFast, s.prevSlow = fast, slow

	isDowntrend := strings.Contains(string(ctx.MarketState), "downtrend")
	isUptrend := strings.Contains(string(ctx.MarketState), "uptrend")

	if bullishCross {
		if s.cfg.EnableTrendFilter && isDowntrend {
			return Hold
		}
		s.entryPrice = currentPrice
		s.entryTimeUnix = ctx.NowUnix
		return Buy
	}

	if bearishCross {
		if s.cfg.EnableTrendFilter && isUptrend && !s.position {
			return Hold
		}
		if !s.position {
			return Hold
		}
		if s.entryPrice > 0 {
			profitPct := (currentPrice - s.entryPrice) / s.entryPrice
			if profitPct < s.cfg.MinProfitTarget {
				return Hold
			}
		}
		heldFor := ctx.NowUnix - s.entryTimeUnix
		if heldFor < int64(s.cfg.MinHoldTime.Seconds()) {
			return Hold
		}
		s.entryPrice = 0
		return Sell
	}

	return Hold
}

func (s *SMACrossover) Reset() {
	s.havePrev = false
	s.position = false
	s.entryPrice = 0
	s.entryTimeUnix = 0
}
