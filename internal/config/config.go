// Package config loads the engine's runtime configuration from the
// environment, following the same .env-then-os.Getenv precedence and
// getEnv* helper shapes the rest of the codebase uses.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/c-rw/spicetrader-go/internal/domain"
	"github.com/c-rw/spicetrader-go/internal/utils"
	"github.com/joho/godotenv"
)

func lookupEnv(key string) (string, bool) {
	return os.LookupEnv(key)
}

// Config is the full set of knobs the engine reads at startup. Nothing here
// is reloaded at runtime — a config change requires a restart.
type Config struct {
	// Exchange & instruments
	TradingPairs []string
	DryRun       bool

	TraderAPIKey    string
	TraderAPISecret string

	// OHLC / data cadence
	OHLCInterval       time.Duration
	APICallDelay       time.Duration
	ReanalysisInterval time.Duration

	// Strategy switching
	SwitchCooldown       time.Duration
	ConfirmationsRequired int
	MaxSwitchesPerDay     int

	// Position sizing
	PositionSizingMode string
	MaxTotalExposure   float64
	MaxPerCoin         float64
	FeeBufferPct       float64

	// MarketAnalyzer thresholds
	Analyzer AnalyzerConfig

	// Strategy parameters
	MeanReversion MeanReversionConfig
	SMACrossover  SMACrossoverConfig
	MACD          MACDConfig
	Breakout      BreakoutConfig
	Grid          GridConfig

	// Exit gate shared by every strategy's profit-taking and by the
	// ExecutionCoordinator's MACD-only exit gate (§4.8). Both MIN_HOLD_TIME
	// and MIN_PROFIT_TARGET are read as one pair of global knobs rather than
	// per-strategy ones, matching the bot's actual wiring.
	MinHoldTime     time.Duration
	MinProfitTarget float64

	// Fees
	MakerFee   float64
	TakerFee   float64
	TrackFees  bool

	// Ambient
	LogLevel   string
	LogPretty  bool
	DataDir    string
	DBPath     string
	DashboardPort int

	// Reliability
	BackupEnabled    bool
	BackupBucket     string
	BackupInterval   time.Duration
	BackupEndpoint   string
	BackupRegion     string
	BackupAccessKey  string
	BackupSecretKey  string
	BackupRetentionDays int
}

// AnalyzerConfig mirrors MarketAnalyzer's configurable thresholds (§4.3).
type AnalyzerConfig struct {
	ADXStrongTrend   float64
	ADXWeakTrend     float64
	ChoppinessRanging float64
	ChoppinessChoppy  float64
	ATRPercentWide    float64
	CacheTTL          time.Duration
}

// MeanReversionConfig mirrors mean_reversion.py's configurable knobs.
type MeanReversionConfig struct {
	RSIPeriod        int
	RSIOversold      float64
	RSIOverbought    float64
	BBPeriod         int
	BBStdDev         float64
	SupportZonePct   float64 // fraction of support_level, e.g. 0.03
	ResistanceZonePct float64
	UseFibonacci     bool
	FibLookbackPeriod int
	FibTolerancePct  float64
	AutoDetectLevels bool
	MinProfitTarget  float64
	ProfitCutPercent float64
}

// SMACrossoverConfig mirrors sma_crossover.py's periods. Defaults follow
// multi_coin_bot.py's wiring (10/30), not the strategy class's own
// fallback (50/200), which that entrypoint never uses. MinProfitTarget and
// MinHoldTime are loaded from the same shared MIN_PROFIT_TARGET/MIN_HOLD_TIME
// keys as Config.MinProfitTarget/Config.MinHoldTime: sma_crossover.py reads
// those bare global keys directly, not a symbol- or strategy-prefixed one.
type SMACrossoverConfig struct {
	FastPeriod        int
	SlowPeriod        int
	EnableTrendFilter bool
	MinProfitTarget   float64
	MinHoldTime       time.Duration
}

// MACDConfig mirrors macd.py's periods. It carries no exit-gate fields:
// macd.py never reads MIN_HOLD_TIME/MIN_PROFIT_TARGET itself, that gate
// lives at Config.MinHoldTime/Config.MinProfitTarget instead.
type MACDConfig struct {
	FastPeriod              int
	SlowPeriod              int
	SignalPeriod            int
	RequireHistogramConfirm bool
}

// BreakoutConfig mirrors breakout.py's lookback, ATR, and volume knobs.
type BreakoutConfig struct {
	ATRPeriod         int
	ATRMultiplier     float64
	VolumeThreshold   float64
	LookbackPeriod    int
	RequireRetest     bool
	UseFibonacci      bool
	FibLookbackPeriod int
}

// GridConfig mirrors grid_trading.py's grid spacing.
type GridConfig struct {
	GridLevels     int
	GridSpacingPct float64
}

// Load reads configuration from `.env` (if present) then the process
// environment, validates required keys, and returns a ConfigError-wrapped
// error if a check in Validate fails. A numeric, boolean or duration value
// that fails to parse is not reported: that key takes its default.
func Load() (*Config, error) {
	_ = godotenv.Load()

	pairs := getEnv("TRADING_PAIRS", "")
	cfg := &Config{
		TradingPairs:    utils.ParseCSV(pairs),
		DryRun:          getEnvAsBool("DRY_RUN", true),
		TraderAPIKey:    getEnv("KRAKEN_API_KEY", ""),
		TraderAPISecret: getEnv("KRAKEN_API_SECRET", ""),

		OHLCInterval:       getEnvAsDuration("OHLC_INTERVAL", 5*time.Minute),
		APICallDelay:       getEnvAsDuration("API_CALL_DELAY", 2*time.Second),
		ReanalysisInterval: getEnvAsDuration("REANALYSIS_INTERVAL", 60*time.Second),

		SwitchCooldown:        getEnvAsDuration("SWITCH_COOLDOWN", 30*time.Minute),
		ConfirmationsRequired: getEnvAsInt("CONFIRMATIONS_REQUIRED", 3),
		MaxSwitchesPerDay:     getEnvAsInt("MAX_SWITCHES_PER_DAY", 6),

		PositionSizingMode: getEnv("POSITION_SIZING_MODE", "equal_split_quote_allocation"),
		MaxTotalExposure:   getEnvAsFloat("MAX_TOTAL_EXPOSURE", 80.0),
		MaxPerCoin:         getEnvAsFloat("MAX_PER_COIN", 30.0),
		FeeBufferPct:       getEnvAsFloat("FEE_BUFFER_PCT", 1.0),

		MinHoldTime:     getEnvAsDuration("MIN_HOLD_TIME", 900*time.Second),
		MinProfitTarget: getEnvAsFloat("MIN_PROFIT_TARGET", 0.010),

		Analyzer: AnalyzerConfig{
			ADXStrongTrend:    getEnvAsFloat("ANALYZER_ADX_STRONG_TREND", 25.0),
			ADXWeakTrend:      getEnvAsFloat("ANALYZER_ADX_WEAK_TREND", 20.0),
			ChoppinessRanging: getEnvAsFloat("ANALYZER_CHOPPINESS_RANGING", 61.8),
			ChoppinessChoppy:  getEnvAsFloat("ANALYZER_CHOPPINESS_CHOPPY", 38.2),
			ATRPercentWide:    getEnvAsFloat("ANALYZER_ATR_PERCENT_WIDE", 3.0),
			CacheTTL:          getEnvAsDuration("ANALYZER_CACHE_TTL", 30*time.Second),
		},

		MeanReversion: MeanReversionConfig{
			RSIPeriod:         getEnvAsInt("RSI_PERIOD", 14),
			RSIOversold:       getEnvAsFloat("RSI_OVERSOLD", 40.0),
			RSIOverbought:     getEnvAsFloat("RSI_OVERBOUGHT", 60.0),
			BBPeriod:          getEnvAsInt("BB_PERIOD", 20),
			BBStdDev:          getEnvAsFloat("BB_STD_DEV", 2.0),
			SupportZonePct:    getEnvAsFloat("SUPPORT_ZONE_PCT", 0.03),
			ResistanceZonePct: getEnvAsFloat("RESISTANCE_ZONE_PCT", 0.03),
			UseFibonacci:      getEnvAsBool("MEAN_REVERSION_USE_FIBONACCI", true),
			FibLookbackPeriod: getEnvAsInt("FIB_LOOKBACK_PERIOD", 50),
			FibTolerancePct:   getEnvAsFloat("FIB_TOLERANCE", 1.0),
			AutoDetectLevels:  getEnvAsBool("AUTO_DETECT_LEVELS", true),
			// Shared global key, not a mean-reversion-specific one: mean_reversion.py
			// falls back to config.get('MIN_PROFIT_TARGET', 0.006) only when no
			// per-symbol override is set, and the bot always sets that shared key.
			MinProfitTarget:  getEnvAsFloat("MIN_PROFIT_TARGET", 0.010),
			ProfitCutPercent: getEnvAsFloat("MEAN_REVERSION_PROFIT_CUT_PERCENT", 0.02),
		},
		SMACrossover: SMACrossoverConfig{
			FastPeriod:        getEnvAsInt("FAST_SMA_PERIOD", 10),
			SlowPeriod:        getEnvAsInt("SLOW_SMA_PERIOD", 30),
			EnableTrendFilter: getEnvAsBool("ENABLE_TREND_FILTER", true),
			// sma_crossover.py reads the same bare MIN_PROFIT_TARGET/MIN_HOLD_TIME
			// keys as every other strategy, not a prefixed SMA-only pair.
			MinProfitTarget: getEnvAsFloat("MIN_PROFIT_TARGET", 0.010),
			MinHoldTime:     getEnvAsDuration("MIN_HOLD_TIME", 900*time.Second),
		},
		MACD: MACDConfig{
			FastPeriod:              getEnvAsInt("MACD_FAST", 12),
			SlowPeriod:              getEnvAsInt("MACD_SLOW", 26),
			SignalPeriod:            getEnvAsInt("MACD_SIGNAL", 9),
			RequireHistogramConfirm: getEnvAsBool("MACD_HISTOGRAM_CONFIRM", false),
		},
		Breakout: BreakoutConfig{
			ATRPeriod:         getEnvAsInt("ATR_PERIOD", 14),
			ATRMultiplier:     getEnvAsFloat("ATR_MULTIPLIER", 1.5),
			VolumeThreshold:   getEnvAsFloat("VOLUME_THRESHOLD", 1.5),
			LookbackPeriod:    getEnvAsInt("BREAKOUT_LOOKBACK", 20),
			RequireRetest:     getEnvAsBool("REQUIRE_RETEST", false),
			UseFibonacci:      getEnvAsBool("BREAKOUT_USE_FIBONACCI", true),
			FibLookbackPeriod: getEnvAsInt("BREAKOUT_FIB_LOOKBACK_PERIOD", 50),
		},
		Grid: GridConfig{
			GridLevels:     getEnvAsInt("GRID_SIZE", 5),
			GridSpacingPct: getEnvAsFloat("GRID_SPACING_PCT", 1.0),
		},

		MakerFee:  getEnvAsFloat("MAKER_FEE", 0.0016),
		TakerFee:  getEnvAsFloat("TAKER_FEE", 0.0026),
		TrackFees: getEnvAsBool("TRACK_FEES", true),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogPretty:     getEnvAsBool("LOG_PRETTY", false),
		DataDir:       getEnv("DATA_DIR", "./data"),
		DBPath:        getEnv("DB_PATH", "./data/trading.db"),
		DashboardPort: getEnvAsInt("DASHBOARD_PORT", 8080),

		BackupEnabled:       getEnvAsBool("BACKUP_ENABLED", false),
		BackupBucket:        getEnv("BACKUP_BUCKET", ""),
		BackupInterval:      getEnvAsDuration("BACKUP_INTERVAL", 6*time.Hour),
		BackupEndpoint:      getEnv("BACKUP_S3_ENDPOINT", ""),
		BackupRegion:        getEnv("BACKUP_S3_REGION", "auto"),
		BackupAccessKey:     getEnv("BACKUP_S3_ACCESS_KEY", ""),
		BackupSecretKey:     getEnv("BACKUP_S3_SECRET_KEY", ""),
		BackupRetentionDays: getEnvAsInt("BACKUP_RETENTION_DAYS", 14),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every key required to run the engine (as opposed to
// keys with safe defaults) is present and well-formed.
func (c *Config) Validate() error {
	if len(c.TradingPairs) == 0 {
		return fmt.Errorf("TRADING_PAIRS must list at least one pair: %w", domain.ErrConfig)
	}
	if !c.DryRun && (c.TraderAPIKey == "" || c.TraderAPISecret == "") {
		return fmt.Errorf("KRAKEN_API_KEY and KRAKEN_API_SECRET are required when DRY_RUN=false: %w", domain.ErrConfig)
	}
	if c.MaxTotalExposure < 0 || c.MaxTotalExposure > 100 {
		return fmt.Errorf("MAX_TOTAL_EXPOSURE must be within [0,100]: %w", domain.ErrConfig)
	}
	if c.ConfirmationsRequired < 1 {
		return fmt.Errorf("CONFIRMATIONS_REQUIRED must be >= 1: %w", domain.ErrConfig)
	}
	if c.BackupEnabled && (c.BackupBucket == "" || c.BackupAccessKey == "" || c.BackupSecretKey == "") {
		return fmt.Errorf("BACKUP_BUCKET, BACKUP_S3_ACCESS_KEY and BACKUP_S3_SECRET_KEY are required when BACKUP_ENABLED=true: %w", domain.ErrConfig)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if v, ok := lookupEnv(key); ok && v != "" {
		return v
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if v, ok := lookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if v, ok := lookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if v, ok := lookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if v, ok := lookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}
