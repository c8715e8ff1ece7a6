package config

import (
	"fmt"
	"strconv"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultHourMultipliers scale gas cost by UTC hour; quietest overnight,
// busiest during the US/EU overlap.
var DefaultHourMultipliers = []float64{
	0.75, 0.70, 0.65, 0.60, 0.60, 0.65, 0.70, 0.80,
	0.90, 0.95, 1.00, 1.05, 1.10, 1.20, 1.30, 1.30,
	1.25, 1.20, 1.10, 1.05, 1.00, 0.95, 0.90, 0.80,
}

// DefaultGasBenchmarks are typical gas units per operation type.
var DefaultGasBenchmarks = map[string]uint64{
	"arb":                  250000,
	"flash_swap":           350000,
	"single_side_deposit":  180000,
	"gap_edge_lp":          200000,
	"rebalance":            300000,
	"cross_chain_transfer": 150000,
}

// DefaultBridgeFees are bridge fees as a percentage of the amount moved.
var DefaultBridgeFees = map[string]float64{
	"across":   0.05,
	"stargate": 0.06,
	"hop":      0.04,
	"synapse":  0.05,
	"cctp":     0.0,
}

// GasConfig holds configuration for gas cost prediction.
type GasConfig struct {
	Operation       string
	GasUnits        uint64
	BaseFeeGwei     float64
	PriorityFeeGwei float64
	NativePriceUSD  float64
	FromHour        int
	ToHour          int
	HourMultipliers []float64
	Benchmarks      map[string]uint64
	LogLevel        string
}

// LoadGas merges config file, environment variables, and flags into GasConfig.
func LoadGas(cfgFile string, flags *pflag.FlagSet) (GasConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("priority-fee-gwei", 1.0)
		v.SetDefault("from-hour", -1)
		v.SetDefault("to-hour", -1)
		v.SetDefault("hour-multipliers", DefaultHourMultipliers)
		benchmarks := make(map[string]interface{}, len(DefaultGasBenchmarks))
		for op, units := range DefaultGasBenchmarks {
			benchmarks[op] = units
		}
		v.SetDefault("gas-benchmarks", benchmarks)
	})
	if err != nil {
		return GasConfig{}, err
	}

	multipliers, err := getFloatSlice(v, "hour-multipliers")
	if err != nil {
		return GasConfig{}, err
	}
	rawBench, err := getFloatMap(v, "gas-benchmarks")
	if err != nil {
		return GasConfig{}, err
	}
	benchmarks := make(map[string]uint64, len(rawBench))
	for op, units := range rawBench {
		if units < 0 {
			return GasConfig{}, fmt.Errorf("gas-benchmarks.%s: negative units", op)
		}
		benchmarks[op] = uint64(units)
	}

	cfg := GasConfig{
		Operation:       v.GetString("op"),
		GasUnits:        v.GetUint64("gas-units"),
		BaseFeeGwei:     v.GetFloat64("base-fee-gwei"),
		PriorityFeeGwei: v.GetFloat64("priority-fee-gwei"),
		NativePriceUSD:  v.GetFloat64("native-price-usd"),
		FromHour:        v.GetInt("from-hour"),
		ToHour:          v.GetInt("to-hour"),
		HourMultipliers: multipliers,
		Benchmarks:      benchmarks,
		LogLevel:        v.GetString("log-level"),
	}

	return cfg, nil
}

// BridgeConfig holds configuration for cross-chain cost modeling.
type BridgeConfig struct {
	Bridge       string
	AmountUSD    float64
	SourceGasUSD float64
	DestGasUSD   float64
	SlippagePct  float64
	BridgeFees   map[string]float64
	LogLevel     string
}

// LoadBridge merges config file, environment variables, and flags into BridgeConfig.
func LoadBridge(cfgFile string, flags *pflag.FlagSet) (BridgeConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("slippage-pct", 0.1)
		fees := make(map[string]interface{}, len(DefaultBridgeFees))
		for name, fee := range DefaultBridgeFees {
			fees[name] = strconv.FormatFloat(fee, 'f', -1, 64)
		}
		v.SetDefault("bridge-fees", fees)
	})
	if err != nil {
		return BridgeConfig{}, err
	}

	fees, err := getFloatMap(v, "bridge-fees")
	if err != nil {
		return BridgeConfig{}, err
	}

	cfg := BridgeConfig{
		Bridge:       v.GetString("bridge"),
		AmountUSD:    v.GetFloat64("amount-usd"),
		SourceGasUSD: v.GetFloat64("source-gas-usd"),
		DestGasUSD:   v.GetFloat64("dest-gas-usd"),
		SlippagePct:  v.GetFloat64("slippage-pct"),
		BridgeFees:   fees,
		LogLevel:     v.GetString("log-level"),
	}

	return cfg, nil
}
