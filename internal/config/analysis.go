package config

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// GapsConfig holds configuration for tick-gap analysis.
type GapsConfig struct {
	Input                  string
	Pool                   string
	MinWidthTicks          int
	MaxLiquidity           float64
	LowResistanceLiquidity float64
	ExternalPrice          float64
	GasCostUSD             float64
	ProfitFactor           float64
	LogLevel               string
}

// LoadGaps merges config file, environment variables, and flags into GapsConfig.
func LoadGaps(cfgFile string, flags *pflag.FlagSet) (GapsConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("in", "./data/snapshots.jsonl")
		v.SetDefault("min-width-ticks", 200)
		v.SetDefault("max-liquidity", 1e18)
		v.SetDefault("low-resistance-liquidity", 1e16)
		v.SetDefault("profit-factor", 0.01)
	})
	if err != nil {
		return GapsConfig{}, err
	}

	cfg := GapsConfig{
		Input:                  v.GetString("in"),
		Pool:                   v.GetString("pool"),
		MinWidthTicks:          v.GetInt("min-width-ticks"),
		MaxLiquidity:           v.GetFloat64("max-liquidity"),
		LowResistanceLiquidity: v.GetFloat64("low-resistance-liquidity"),
		ExternalPrice:          v.GetFloat64("external-price"),
		GasCostUSD:             v.GetFloat64("gas-cost-usd"),
		ProfitFactor:           v.GetFloat64("profit-factor"),
		LogLevel:               v.GetString("log-level"),
	}

	return cfg, nil
}

// PositionConfig holds configuration for the position report.
type PositionConfig struct {
	Input      string
	Pool       string
	RPCURL     string
	Owner      string
	TickLower  int
	TickUpper  int
	EntryPrice float64
	Decimals0  int
	Decimals1  int
	LogLevel   string
}

// LoadPosition merges config file, environment variables, and flags into PositionConfig.
func LoadPosition(cfgFile string, flags *pflag.FlagSet) (PositionConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("in", "./data/snapshots.jsonl")
		v.SetDefault("decimals0", 18)
		v.SetDefault("decimals1", 18)
	})
	if err != nil {
		return PositionConfig{}, err
	}

	cfg := PositionConfig{
		Input:      v.GetString("in"),
		Pool:       v.GetString("pool"),
		RPCURL:     v.GetString("rpc"),
		Owner:      v.GetString("owner"),
		TickLower:  v.GetInt("tick-lower"),
		TickUpper:  v.GetInt("tick-upper"),
		EntryPrice: v.GetFloat64("entry-price"),
		Decimals0:  v.GetInt("decimals0"),
		Decimals1:  v.GetInt("decimals1"),
		LogLevel:   v.GetString("log-level"),
	}

	return cfg, nil
}
