package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "uniclaw",
		Short:        "Concentrated-liquidity accounting and capital safety gate",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	gateCmd := &cobra.Command{
		Use:   "gate",
		Short: "Run candidate operations through the safety gate",
		RunE:  runGate,
	}

	gateCmd.Flags().String("in", "", "input candidate operations JSONL")
	gateCmd.Flags().String("out", "./data/decisions.jsonl", "output decisions JSONL")
	gateCmd.Flags().Float64("portfolio-value", 0, "portfolio value in USD")
	gateCmd.Flags().Float64("max-op-pct", 0.05, "max operation size as a fraction of portfolio")
	gateCmd.Flags().Float64("min-profit-usd", 15, "minimum net profit in USD")
	gateCmd.Flags().Float64("max-slippage-pct", 1.0, "max slippage in percent")
	gateCmd.Flags().Float64("max-gas-price-gwei", 0, "gas price ceiling in gwei, 0 disables")
	gateCmd.Flags().Int("batch-size", 500, "decisions per flush")
	gateCmd.Flags().String("state-file", "", "optional local state file for progress tracking")
	gateCmd.Flags().String("pg-dsn", "", "optional Postgres DSN for decision audit")
	gateCmd.Flags().String("replay-from", "", "re-decide from timestamp (unix seconds or RFC3339)")
	gateCmd.Flags().String("metrics-file", "", "optional prometheus textfile output")
	gateCmd.Flags().Bool("strict", false, "abort on the first malformed candidate")
	gateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(gateCmd)

	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Read coherent single-block pool snapshots over RPC",
		RunE:  runSnapshot,
	}

	snapshotCmd.Flags().String("rpc", "", "RPC URL")
	snapshotCmd.Flags().StringSlice("pool", nil, "pool addresses (comma-separated)")
	snapshotCmd.Flags().Uint64("block", 0, "block to read at, 0 means latest")
	snapshotCmd.Flags().Int("tick-window", 6000, "ticks either side of the current tick to scan")
	snapshotCmd.Flags().String("out", "./data/snapshots.jsonl", "output snapshots JSONL")
	snapshotCmd.Flags().String("pg-dsn", "", "optional Postgres DSN")
	snapshotCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	snapshotCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	snapshotCmd.Flags().Int("concurrency", 8, "concurrent eth_call requests")
	snapshotCmd.Flags().Float64("rate-limit", 20, "RPC requests per second, 0 disables")
	snapshotCmd.Flags().Int("rate-burst", 5, "RPC request burst")
	snapshotCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(snapshotCmd)

	gapsCmd := &cobra.Command{
		Use:   "gaps",
		Short: "Find thin-liquidity tick gaps in a snapshot",
		RunE:  runGaps,
	}

	gapsCmd.Flags().String("in", "./data/snapshots.jsonl", "input snapshots JSONL")
	gapsCmd.Flags().String("pool", "", "pool address, defaults to the last snapshot in the file")
	gapsCmd.Flags().Int("min-width-ticks", 200, "minimum gap width in ticks (exclusive)")
	gapsCmd.Flags().Float64("max-liquidity", 1e18, "maximum active liquidity inside a gap (exclusive)")
	gapsCmd.Flags().Float64("low-resistance-liquidity", 1e16, "liquidity below which a gap is LOW resistance")
	gapsCmd.Flags().Float64("external-price", 0, "external price in raw token1/token0 units, 0 skips scoring")
	gapsCmd.Flags().Float64("gas-cost-usd", 0, "gas cost of crossing a gap")
	gapsCmd.Flags().Float64("profit-factor", 0.01, "share of gap liquidity assumed capturable")
	gapsCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(gapsCmd)

	positionCmd := &cobra.Command{
		Use:   "position",
		Short: "Report holdings, fees and impermanent loss for a position",
		RunE:  runPosition,
	}

	positionCmd.Flags().String("in", "./data/snapshots.jsonl", "input snapshots JSONL")
	positionCmd.Flags().String("pool", "", "pool address")
	positionCmd.Flags().String("rpc", "", "RPC URL used to read the position")
	positionCmd.Flags().String("owner", "", "position owner address")
	positionCmd.Flags().Int("tick-lower", 0, "position lower tick")
	positionCmd.Flags().Int("tick-upper", 0, "position upper tick")
	positionCmd.Flags().Float64("entry-price", 0, "entry price (token1 per token0), 0 skips IL")
	positionCmd.Flags().Int("decimals0", 18, "token0 decimals if metadata cannot be read")
	positionCmd.Flags().Int("decimals1", 18, "token1 decimals if metadata cannot be read")
	positionCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(positionCmd)

	gasCmd := &cobra.Command{
		Use:   "gas",
		Short: "Price gas in USD and project it to another hour",
		RunE:  runGas,
	}

	gasCmd.Flags().String("op", "", "operation type, looked up in gas benchmarks")
	gasCmd.Flags().Uint64("gas-units", 0, "gas units, used when --op is empty")
	gasCmd.Flags().Float64("base-fee-gwei", 0, "base fee in gwei")
	gasCmd.Flags().Float64("priority-fee-gwei", 1, "priority fee in gwei")
	gasCmd.Flags().Float64("native-price-usd", 0, "native token price in USD")
	gasCmd.Flags().Int("from-hour", -1, "UTC hour of the observation")
	gasCmd.Flags().Int("to-hour", -1, "UTC hour to project to")
	gasCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(gasCmd)

	bridgeCmd := &cobra.Command{
		Use:   "bridge-cost",
		Short: "Model the all-in cost of a cross-chain transfer",
		RunE:  runBridgeCost,
	}

	bridgeCmd.Flags().String("bridge", "", "bridge name")
	bridgeCmd.Flags().Float64("amount-usd", 0, "amount moved in USD")
	bridgeCmd.Flags().Float64("source-gas-usd", 0, "source chain gas in USD")
	bridgeCmd.Flags().Float64("dest-gas-usd", 0, "destination chain gas in USD")
	bridgeCmd.Flags().Float64("slippage-pct", 0.1, "slippage per leg in percent")
	bridgeCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(bridgeCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func printJSON(cmd *cobra.Command, value interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
