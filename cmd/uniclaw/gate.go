package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"uniclaw/internal/config"
	"uniclaw/internal/metrics"
	"uniclaw/internal/review"
	"uniclaw/internal/safety"
	"uniclaw/internal/storage"
	"uniclaw/internal/storage/postgres"
)

func runGate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadGate(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Input == "" {
		return fmt.Errorf("input path is required")
	}

	gate, err := safety.NewGate(safety.Config{
		MaxOpPct:        cfg.MaxOpPct,
		MinProfitUSD:    cfg.MinProfitUSD,
		MaxSlippagePct:  cfg.MaxSlippagePct,
		MaxGasPriceGwei: cfg.MaxGasPriceGwei,
	})
	if err != nil {
		return fmt.Errorf("safety config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sinks := []storage.DecisionSink{storage.NewJsonlStorage(cfg.Out)}

	var stateStore review.StateStore
	if cfg.StateFile != "" {
		stateStore = &review.FileStateStore{Path: cfg.StateFile}
	}
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		sinks = append(sinks, store)
		if stateStore == nil {
			stateStore = &review.DBStateStore{Store: store, Name: "gate:" + cfg.Input}
		}
	}

	m := metrics.New()
	runner := review.NewRunner(review.Config{
		PortfolioValueUSD: cfg.PortfolioValue,
		BatchSize:         cfg.BatchSize,
		ReplayFrom:        cfg.ReplayFrom,
		StrictInput:       cfg.Strict,
		StateStore:        stateStore,
	}, gate, sinks, m, logger)

	logger.Info("gate start",
		zap.String("input", cfg.Input),
		zap.String("out", cfg.Out),
		zap.Float64("portfolio_value", cfg.PortfolioValue),
		zap.Float64("max_op_pct", cfg.MaxOpPct),
		zap.Float64("min_profit_usd", cfg.MinProfitUSD),
		zap.Float64("max_slippage_pct", cfg.MaxSlippagePct),
		zap.Float64("max_gas_price_gwei", cfg.MaxGasPriceGwei),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Uint64("replay_from", cfg.ReplayFrom),
	)

	summary, err := runner.Run(ctx, cfg.Input)
	if err != nil {
		return err
	}
	if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
		return err
	}
	return printJSON(cmd, summary)
}
