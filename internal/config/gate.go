package config

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// GateConfig holds configuration for the gate (review) command.
type GateConfig struct {
	Input           string
	Out             string
	PortfolioValue  float64
	MaxOpPct        float64
	MinProfitUSD    float64
	MaxSlippagePct  float64
	MaxGasPriceGwei float64
	BatchSize       int
	StateFile       string
	PGDSN           string
	ReplayFrom      uint64
	MetricsFile     string
	Strict          bool
	LogLevel        string
}

// LoadGate merges config file, environment variables, and flags into GateConfig.
func LoadGate(cfgFile string, flags *pflag.FlagSet) (GateConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("out", "./data/decisions.jsonl")
		v.SetDefault("max-op-pct", 0.05)
		v.SetDefault("min-profit-usd", 15.0)
		v.SetDefault("max-slippage-pct", 1.0)
		v.SetDefault("max-gas-price-gwei", 0.0)
		v.SetDefault("batch-size", 500)
	})
	if err != nil {
		return GateConfig{}, err
	}

	replayFrom, err := ParseTimestamp(v.GetString("replay-from"))
	if err != nil {
		return GateConfig{}, fmt.Errorf("replay-from: %w", err)
	}

	cfg := GateConfig{
		Input:           v.GetString("in"),
		Out:             v.GetString("out"),
		PortfolioValue:  v.GetFloat64("portfolio-value"),
		MaxOpPct:        v.GetFloat64("max-op-pct"),
		MinProfitUSD:    v.GetFloat64("min-profit-usd"),
		MaxSlippagePct:  v.GetFloat64("max-slippage-pct"),
		MaxGasPriceGwei: v.GetFloat64("max-gas-price-gwei"),
		BatchSize:       v.GetInt("batch-size"),
		StateFile:       v.GetString("state-file"),
		PGDSN:           v.GetString("pg-dsn"),
		ReplayFrom:      replayFrom,
		MetricsFile:     v.GetString("metrics-file"),
		Strict:          v.GetBool("strict"),
		LogLevel:        v.GetString("log-level"),
	}

	return cfg, nil
}
