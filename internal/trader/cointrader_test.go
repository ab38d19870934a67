package trader

import (
	"testing"
	"time"

	"github.com/c-rw/spicetrader-go/internal/config"
	"github.com/c-rw/spicetrader-go/internal/domain"
	"github.com/c-rw/spicetrader-go/internal/regime"
	"github.com/c-rw/spicetrader-go/internal/strategy"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTrader(t *testing.T) *CoinTrader {
	t.Helper()
	cfg := &config.Config{
		ReanalysisInterval:    time.Minute,
		SwitchCooldown:        time.Hour,
		ConfirmationsRequired: 3,
		MaxSwitchesPerDay:     4,
		MeanReversion:         config.MeanReversionConfig{RSIPeriod: 14, BBPeriod: 20},
		SMACrossover:          config.SMACrossoverConfig{FastPeriod: 10, SlowPeriod: 30},
		MACD:                  config.MACDConfig{FastPeriod: 12, SlowPeriod: 26, SignalPeriod: 9},
		Breakout:              config.BreakoutConfig{ATRPeriod: 14, LookbackPeriod: 20},
		Grid:                  config.GridConfig{GridLevels: 4, GridSpacingPct: 1.0},
	}
	analyzer := regime.New(regime.DefaultThresholds(), regime.DefaultPeriods(), time.Second, zerolog.Nop())
	selector := strategy.NewSelector("XBTUSD", cfg, zerolog.Nop())
	return New("XBTUSD", cfg, analyzer, selector, zerolog.Nop())
}

func condition(state domain.MarketState, recommended string) domain.MarketCondition {
	return domain.MarketCondition{State: state, RecommendedStrategy: recommended, Confidence: 0.7}
}

func TestApplyCondition_FirstConditionSetsInitialStrategy(t *testing.T) {
	tr := newTestTrader(t)
	switched, initialOnly := tr.applyCondition(condition(domain.StateStrongUptrend, "sma_crossover"), time.Now())

	assert.Nil(t, switched)
	assert.True(t, initialOnly)
	assert.Equal(t, "sma_crossover", tr.state.CurrentStrategy)
}

// TestApplyCondition_RequiresConsecutiveConfirmations is spec.md §8 scenario
// 8: three consecutive classifications of the same new state cause a
// single StrategySwitch; an intervening classification equal to the
// current strategy's state resets the counter and suppresses the switch.
func TestApplyCondition_RequiresConsecutiveConfirmations(t *testing.T) {
	tr := newTestTrader(t)
	now := time.Now()

	tr.applyCondition(condition(domain.StateStrongUptrend, "sma_crossover"), now)

	// Two confirmations of a new recommended strategy - not enough yet.
	s1, _ := tr.applyCondition(condition(domain.StateRangeBound, "mean_reversion"), now)
	assert.Nil(t, s1)
	assert.Equal(t, 1, tr.state.PendingConfirmations)

	s2, _ := tr.applyCondition(condition(domain.StateRangeBound, "mean_reversion"), now)
	assert.Nil(t, s2)
	assert.Equal(t, 2, tr.state.PendingConfirmations)

	// Intervening classification matching the CURRENT strategy resets the counter.
	s3, _ := tr.applyCondition(condition(domain.StateStrongUptrend, "sma_crossover"), now)
	assert.Nil(t, s3)
	assert.Equal(t, 0, tr.state.PendingConfirmations)
	assert.Equal(t, "sma_crossover", tr.state.CurrentStrategy)

	// Now three fresh consecutive confirmations are required again.
	tr.applyCondition(condition(domain.StateRangeBound, "mean_reversion"), now)
	tr.applyCondition(condition(domain.StateRangeBound, "mean_reversion"), now)
	s4, _ := tr.applyCondition(condition(domain.StateRangeBound, "mean_reversion"), now)

	require.NotNil(t, s4)
	assert.Equal(t, "sma_crossover", s4.FromStrategy)
	assert.Equal(t, "mean_reversion", s4.ToStrategy)
	assert.Equal(t, "mean_reversion", tr.state.CurrentStrategy)
}

func TestCanSwitch_DeniesAboveDailyLimit(t *testing.T) {
	tr := newTestTrader(t)
	tr.maxSwitchesPerDay = 1
	now := time.Now()
	tr.state.CurrentDay = localMidnight(now)
	tr.state.SwitchesToday = 1

	assert.False(t, tr.canSwitch(now))
}

func TestCanSwitch_DeniesWithinCooldown(t *testing.T) {
	tr := newTestTrader(t)
	now := time.Now()
	tr.state.LastSwitchAt = now
	assert.False(t, tr.canSwitch(now.Add(time.Minute)))
	assert.True(t, tr.canSwitch(now.Add(2*time.Hour)))
}

func TestCanSwitch_ResetsDailyCounterOnRollover(t *testing.T) {
	tr := newTestTrader(t)
	yesterday := time.Now().Add(-48 * time.Hour)
	tr.state.CurrentDay = localMidnight(yesterday)
	tr.state.SwitchesToday = 99
	tr.maxSwitchesPerDay = 1

	assert.True(t, tr.canSwitch(time.Now()))
	assert.Equal(t, 0, tr.state.SwitchesToday)
}

func TestTick_HoldsUntilEnoughData(t *testing.T) {
	tr := newTestTrader(t)
	now := time.Now()
	signal, switched := tr.Tick(now, domain.Candle{Close: 100, High: 101, Low: 99}, strategy.PositionState{})

	assert.Equal(t, strategy.Hold, signal)
	assert.Nil(t, switched)
}
