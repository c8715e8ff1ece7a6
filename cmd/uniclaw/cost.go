package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"uniclaw/internal/config"
	"uniclaw/internal/evaluate"
	"uniclaw/internal/model"
)

type gasOutput struct {
	Operation    string           `json:"operation,omitempty"`
	GasUnits     uint64           `json:"gas_units"`
	Cost         evaluate.GasCost `json:"cost"`
	FromHour     *int             `json:"from_hour,omitempty"`
	ToHour       *int             `json:"to_hour,omitempty"`
	ProjectedUSD *float64         `json:"projected_usd,omitempty"`
	CheapestHour int              `json:"cheapest_hour"`
}

func runGas(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadGas(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	hourly, err := evaluate.NewHourlyGasModel(cfg.HourMultipliers)
	if err != nil {
		return fmt.Errorf("hour multipliers: %w", err)
	}

	units := cfg.GasUnits
	if cfg.Operation != "" {
		op, err := model.ParseOperationType(cfg.Operation)
		if err != nil {
			return err
		}
		benchmarks := make(evaluate.GasBenchmarks, len(cfg.Benchmarks))
		for name, u := range cfg.Benchmarks {
			benchmarks[model.OperationType(name)] = u
		}
		if units, err = benchmarks.Units(op); err != nil {
			return err
		}
	}
	if units == 0 {
		return fmt.Errorf("gas units are required (--gas-units or --op)")
	}

	cost, err := evaluate.GasCostUSD(evaluate.GasQuote{
		GasUnits:        units,
		BaseFeeGwei:     cfg.BaseFeeGwei,
		PriorityFeeGwei: cfg.PriorityFeeGwei,
		NativePriceUSD:  cfg.NativePriceUSD,
	})
	if err != nil {
		return err
	}

	out := gasOutput{Operation: cfg.Operation, GasUnits: units, Cost: cost, CheapestHour: hourly.CheapestHour()}
	if cfg.FromHour >= 0 && cfg.ToHour >= 0 {
		projected, err := hourly.Project(cost.BufferedUSD, cfg.FromHour, cfg.ToHour)
		if err != nil {
			return err
		}
		from, to := cfg.FromHour, cfg.ToHour
		out.FromHour, out.ToHour, out.ProjectedUSD = &from, &to, &projected
	}

	logger.Debug("gas priced", zap.Uint64("units", units), zap.Float64("usd", cost.BufferedUSD))
	return printJSON(cmd, out)
}

func runBridgeCost(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadBridge(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	res, err := evaluate.CrossChainCost(evaluate.CrossChainInput{
		Bridge:       cfg.Bridge,
		AmountUSD:    cfg.AmountUSD,
		SourceGasUSD: cfg.SourceGasUSD,
		DestGasUSD:   cfg.DestGasUSD,
		SlippagePct:  cfg.SlippagePct,
	}, evaluate.BridgeTable(cfg.BridgeFees))
	if err != nil {
		return err
	}

	logger.Debug("bridge cost",
		zap.String("bridge", res.Bridge),
		zap.Float64("total_cost_pct", res.TotalCostPct),
		zap.Bool("arb_viable", res.ArbViable),
	)
	return printJSON(cmd, res)
}
