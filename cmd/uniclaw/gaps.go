package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"uniclaw/internal/config"
	"uniclaw/internal/evaluate"
	"uniclaw/internal/model"
	"uniclaw/internal/tickmath"
)

type gapsOutput struct {
	Pool      string             `json:"pool"`
	Block     uint64             `json:"block"`
	PoolPrice float64            `json:"pool_price"`
	Gaps      []evaluate.TickGap `json:"gaps"`
	Arbs      []evaluate.GapArb  `json:"arbs,omitempty"`
}

func runGaps(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadGaps(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	snap, err := loadSnapshot(cfg.Input, cfg.Pool)
	if err != nil {
		return err
	}

	gaps, err := evaluate.AnalyseTickGaps(snap.Ticks, evaluate.GapConfig{
		MinWidthTicks:          cfg.MinWidthTicks,
		MaxLiquidity:           cfg.MaxLiquidity,
		LowResistanceLiquidity: cfg.LowResistanceLiquidity,
	})
	if err != nil {
		return fmt.Errorf("analyse gaps: %w", err)
	}

	sqrtX96, err := model.ParseBigInt(snap.SqrtPriceX96)
	if err != nil {
		return fmt.Errorf("sqrt price: %w", err)
	}
	poolPrice, err := tickmath.SqrtPriceX96ToPrice(sqrtX96)
	if err != nil {
		return err
	}

	out := gapsOutput{Pool: snap.Address, Block: snap.BlockNumber, PoolPrice: poolPrice, Gaps: gaps}
	if cfg.ExternalPrice > 0 {
		arbCfg := evaluate.GapArbConfig{
			PoolFee:      float64(snap.Fee) / 1e6,
			GasCostUSD:   cfg.GasCostUSD,
			ProfitFactor: cfg.ProfitFactor,
		}
		for _, gap := range gaps {
			arb, err := evaluate.ScoreGapArb(gap, poolPrice, cfg.ExternalPrice, arbCfg)
			if err != nil {
				return fmt.Errorf("score gap %d-%d: %w", gap.LowerTick, gap.UpperTick, err)
			}
			if arb.Reason != evaluate.ReasonOutsideGap {
				out.Arbs = append(out.Arbs, arb)
			}
		}
	}

	logger.Info("gap scan",
		zap.String("pool", snap.Address),
		zap.Uint64("block", snap.BlockNumber),
		zap.Int("ticks", len(snap.Ticks)),
		zap.Int("gaps", len(gaps)),
		zap.Int("arbs", len(out.Arbs)),
	)
	return printJSON(cmd, out)
}
