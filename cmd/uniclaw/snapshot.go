package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"uniclaw/internal/chain"
	"uniclaw/internal/config"
	"uniclaw/internal/model"
	"uniclaw/internal/snapshot"
	"uniclaw/internal/storage"
	"uniclaw/internal/storage/postgres"
)

func runSnapshot(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSnapshot(cfgFile, cmd.Flags())
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
	pools, err := parseAddresses(cfg.Pools)
	if err != nil {
		return err
	}
	if len(pools) == 0 {
		return fmt.Errorf("pool list is required")
	}
	if cfg.TickWindow <= 0 {
		return fmt.Errorf("tick window must be positive")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL, cfg.RateLimit, cfg.RateBurst)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	chainID, err := chainClient.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	if !chainID.IsUint64() {
		return fmt.Errorf("chain id does not fit in uint64: %s", chainID)
	}

	block := cfg.Block
	if block == 0 {
		if block, err = chainClient.LatestBlockNumber(ctx); err != nil {
			return fmt.Errorf("get latest block: %w", err)
		}
	}

	sinks := []storage.SnapshotSink{storage.NewJsonlStorage(cfg.Out)}
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
	}

	fetcher := snapshot.NewFetcher(chainClient, snapshot.Options{
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		Concurrency:  cfg.Concurrency,
		Logger:       logger,
	})

	logger.Info("snapshot start",
		zap.String("rpc", cfg.RPCURL),
		zap.Uint64("chain_id", chainID.Uint64()),
		zap.Uint64("block", block),
		zap.Int("pools", len(pools)),
		zap.Int("tick_window", cfg.TickWindow),
		zap.String("out", cfg.Out),
	)

	snaps := make([]model.PoolSnapshot, 0, len(pools))
	for _, pool := range pools {
		snap, err := fetcher.Snapshot(ctx, pool, block, int32(cfg.TickWindow))
		if err != nil {
			return fmt.Errorf("snapshot %s: %w", pool.Hex(), err)
		}
		snap.ChainID = chainID.Uint64()
		if snap.Timestamp, err = chainClient.BlockTimestamp(ctx, block); err != nil {
			return fmt.Errorf("block %d timestamp: %w", block, err)
		}
		snaps = append(snaps, snap)
	}

	for _, sink := range sinks {
		if err := sink.PutSnapshots(ctx, snaps); err != nil {
			return fmt.Errorf("store snapshots: %w", err)
		}
	}

	logger.Info("snapshot complete", zap.Int("pools", len(snaps)), zap.Uint64("block", block))
	return nil
}

func parseAddresses(values []string) ([]common.Address, error) {
	out := make([]common.Address, 0, len(values))
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if !common.IsHexAddress(value) {
			return nil, fmt.Errorf("invalid address: %s", value)
		}
		out = append(out, common.HexToAddress(value))
	}
	return out, nil
}

// loadSnapshot returns the last snapshot in path for pool, or the last
// snapshot overall when pool is empty.
func loadSnapshot(path, pool string) (model.PoolSnapshot, error) {
	var (
		found model.PoolSnapshot
		ok    bool
	)
	err := storage.ScanJSONL(path, func(_ int, snap model.PoolSnapshot) error {
		if pool == "" || strings.EqualFold(snap.Address, pool) {
			found, ok = snap, true
		}
		return nil
	}, nil)
	if err != nil {
		return model.PoolSnapshot{}, err
	}
	if !ok {
		return model.PoolSnapshot{}, fmt.Errorf("no snapshot for pool %q in %s", pool, path)
	}
	return found, nil
}
