package strategy

import (
	"github.com/c-rw/spicetrader-go/internal/config"
	"github.com/c-rw/spicetrader-go/internal/domain"
	"github.com/c-rw/spicetrader-go/internal/indicators"
)

// MACD trades moderate trends via MACD/signal-line crossovers, with an
// optional requirement that the histogram's sign agree with the crossover
// direction before the signal fires.
type MACD struct {
	cfg config.MACDConfig

	prevMACD, prevSignal float64
	havePrev              bool
}

func NewMACD(cfg config.MACDConfig) *MACD {
	return &MACD{cfg: cfg}
}

func (m *MACD) Kind() Kind { return KindMACD }

func (m *MACD) Analyze(series domain.OHLCSeries, ctx Context) Signal {
	closes := series.Closes()
	required := m.cfg.SlowPeriod + m.cfg.SignalPeriod
	if len(closes) < required {
		return Hold
	}

	macdSeries, signalSeries, histSeries := indicators.MACD(closes, m.cfg.FastPeriod, m.cfg.SlowPeriod, m.cfg.SignalPeriod)
	macdLine, macdOK := indicators.Last(macdSeries, required)
	signalLine, signalOK := indicators.Last(signalSeries, required)
	hist, histOK := indicators.Last(histSeries, required)
	if !macdOK || !signalOK || !histOK {
		return Hold
	}

	if !m.havePrev {
		m.prevMACD, m.prevSignal = macdLine, signalLine
		m.havePrev = true
		return Hold
	}

	signal := Hold

	switch {
	case m.prevMACD <= m.prevSignal && macdLine > signalLine:
		if !m.cfg.RequireHistogramConfirm || hist > 0 {
			signal = Buy
		}
	case m.prevMACD >= m.prevSignal && macdLine < signalLine:
		if !m.cfg.RequireHistogramConfirm || hist < 0 {
			signal = Sell
		}
	}

	m.prevMACD, m.prevSignal = macdLine, signalLine
	return signal
}

func (m *MACD) Reset() {
	m.havePrev = false
	m.prevMACD, m.prevSignal = 0, 0
}
