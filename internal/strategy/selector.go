package strategy

import (
	"github.com/c-rw/spicetrader-go/internal/config"
	"github.com/rs/zerolog"
)

// Selector builds and caches one Strategy instance per Kind for a given
// symbol, so switching strategies mid-run reuses the same instance (and
// its accumulated internal state) rather than constructing a fresh one
// every tick.
type Selector struct {
	symbol string
	cfg    *config.Config
	log    zerolog.Logger

	instances map[Kind]Strategy
}

// NewSelector builds a Selector for symbol against cfg's strategy
// parameters.
func NewSelector(symbol string, cfg *config.Config, log zerolog.Logger) *Selector {
	return &Selector{
		symbol:    symbol,
		cfg:       cfg,
		log:       log,
		instances: make(map[Kind]Strategy),
	}
}

// Get returns the cached Strategy instance for kind, constructing it on
// first use.
func (s *Selector) Get(kind Kind) Strategy {
	if inst, ok := s.instances[kind]; ok {
		return inst
	}

	var inst Strategy
	switch kind {
	case KindMeanReversion:
		inst = NewMeanReversion(s.symbol, s.cfg.MeanReversion, s.log)
	case KindSMACrossover:
		inst = NewSMACrossover(s.cfg.SMACrossover)
	case KindMACD:
		inst = NewMACD(s.cfg.MACD)
	case KindBreakout:
		inst = NewBreakout(s.cfg.Breakout)
	case KindGrid:
		inst = NewGrid(s.cfg.Grid)
	default:
		inst = NewMeanReversion(s.symbol, s.cfg.MeanReversion, s.log)
	}

	s.instances[kind] = inst
	return inst
}
