package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"uniclaw/internal/chain"
	"uniclaw/internal/config"
	"uniclaw/internal/model"
	"uniclaw/internal/position"
	"uniclaw/internal/snapshot"
)

func runPosition(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadPosition(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if !common.IsHexAddress(cfg.Owner) {
		return fmt.Errorf("invalid owner address: %q", cfg.Owner)
	}
	if cfg.Decimals0 < 0 || cfg.Decimals0 > 255 || cfg.Decimals1 < 0 || cfg.Decimals1 > 255 {
		return fmt.Errorf("decimals must be in [0, 255]")
	}

	snap, err := loadSnapshot(cfg.Input, cfg.Pool)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL, 0, 0)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	fetcher := snapshot.NewFetcher(chainClient, snapshot.Options{Logger: logger})
	pool := common.HexToAddress(snap.Address)
	owner := common.HexToAddress(cfg.Owner)

	pos, err := fetcher.FetchPosition(ctx, pool, owner, int32(cfg.TickLower), int32(cfg.TickUpper), snap.BlockNumber)
	if err != nil {
		return fmt.Errorf("fetch position: %w", err)
	}

	token0 := tokenMeta(ctx, fetcher, snap.Token0, uint8(cfg.Decimals0), logger)
	token1 := tokenMeta(ctx, fetcher, snap.Token1, uint8(cfg.Decimals1), logger)

	report, err := position.BuildReport(position.ReportInput{
		Pool:       snap,
		Position:   pos,
		Token0:     token0,
		Token1:     token1,
		EntryPrice: cfg.EntryPrice,
	})
	if err != nil {
		return err
	}

	logger.Info("position report",
		zap.String("pool", snap.Address),
		zap.String("owner", owner.Hex()),
		zap.Uint64("block", snap.BlockNumber),
		zap.String("composition", string(report.Composition)),
	)
	return printJSON(cmd, report)
}

func tokenMeta(ctx context.Context, fetcher *snapshot.Fetcher, address string, fallbackDecimals uint8, logger *zap.Logger) model.TokenMeta {
	meta, err := fetcher.FetchTokenMeta(ctx, common.HexToAddress(address))
	if err != nil {
		logger.Warn("token metadata fetch failed", zap.String("token", address), zap.Error(err))
		return model.TokenMeta{Address: address, Decimals: fallbackDecimals}
	}
	return meta
}
