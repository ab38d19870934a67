// Package main is the entry point for the spot-crypto trading engine.
// It wires configuration, the exchange client, the trading store, one
// CoinTrader per configured pair, the ExecutionCoordinator control loop,
// the read-only dashboard, and the scheduled S3 backup job, then blocks
// until it receives a shutdown signal.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/c-rw/spicetrader-go/internal/config"
	"github.com/c-rw/spicetrader-go/internal/coordinator"
	"github.com/c-rw/spicetrader-go/internal/dashboard"
	"github.com/c-rw/spicetrader-go/internal/exchange"
	"github.com/c-rw/spicetrader-go/internal/exchange/kraken"
	"github.com/c-rw/spicetrader-go/internal/ohlc"
	"github.com/c-rw/spicetrader-go/internal/regime"
	"github.com/c-rw/spicetrader-go/internal/reliability"
	"github.com/c-rw/spicetrader-go/internal/store"
	"github.com/c-rw/spicetrader-go/internal/strategy"
	"github.com/c-rw/spicetrader-go/internal/trader"
	"github.com/c-rw/spicetrader-go/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})
	log.Info().Strs("pairs", cfg.TradingPairs).Bool("dry_run", cfg.DryRun).Msg("starting spicetrader")

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatal().Err(err).Msg("failed to create data directory")
	}

	st, err := store.Open(cfg.DBPath, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open trading store")
	}
	defer st.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var ex exchange.Client
	krakenClient := kraken.New(cfg.TraderAPIKey, cfg.TraderAPISecret, log)
	defer krakenClient.Close()
	krakenClient.StartPriceStream(ctx, cfg.TradingPairs)
	ex = krakenClient

	thresholds := regime.DefaultThresholds()
	thresholds.ADXStrong = cfg.Analyzer.ADXStrongTrend
	thresholds.ADXWeak = cfg.Analyzer.ADXWeakTrend
	thresholds.ChoppinessChoppy = cfg.Analyzer.ChoppinessRanging
	thresholds.ChoppinessTrending = cfg.Analyzer.ChoppinessChoppy

	analyzer := regime.New(thresholds, regime.DefaultPeriods(), cfg.Analyzer.CacheTTL, log)

	cache := ohlc.New(500)

	traders := make(map[string]*trader.CoinTrader, len(cfg.TradingPairs))
	for _, pair := range cfg.TradingPairs {
		selector := strategy.NewSelector(pair, cfg, log)
		traders[pair] = trader.New(pair, cfg, analyzer, selector, log)
	}

	coord := coordinator.New(cfg, ex, cache, st, traders, log)

	go func() {
		if err := coord.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("coordinator loop exited with error")
		}
	}()
	log.Info().Msg("execution coordinator started")

	dash := dashboard.New(dashboard.Config{
		Log:     log,
		Store:   st,
		Traders: traders,
		Port:    cfg.DashboardPort,
		DevMode: cfg.DryRun,
	})
	go func() {
		if err := dash.Start(); err != nil {
			log.Error().Err(err).Msg("dashboard server exited with error")
		}
	}()
	log.Info().Int("port", cfg.DashboardPort).Msg("dashboard started")

	var backupJob *reliability.BackupJob
	if cfg.BackupEnabled {
		s3Client, err := reliability.NewS3Client(ctx, reliability.S3Config{
			Endpoint:  cfg.BackupEndpoint,
			Region:    cfg.BackupRegion,
			Bucket:    cfg.BackupBucket,
			AccessKey: cfg.BackupAccessKey,
			SecretKey: cfg.BackupSecretKey,
		}, log)
		if err != nil {
			log.Error().Err(err).Msg("failed to initialize backup S3 client, backups disabled")
		} else {
			backupJob = reliability.NewBackupJob(s3Client, st, cfg.DataDir+"/backup-staging", log)
			if err := backupJob.Run(ctx, cfg.BackupRetentionDays); err != nil {
				log.Error().Err(err).Msg("failed to start backup job")
				backupJob = nil
			} else {
				log.Info().Msg("backup job scheduled")
			}
		}
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutdown signal received")
	cancel()

	if backupJob != nil {
		backupJob.Stop()
		log.Info().Msg("backup job stopped")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := dash.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("dashboard forced to shutdown")
	}

	log.Info().Msg("spicetrader stopped")
}
