package config

import (
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// SnapshotConfig holds configuration for pool snapshot collection.
type SnapshotConfig struct {
	RPCURL       string
	Pools        []string
	Block        uint64
	TickWindow   int
	Out          string
	PGDSN        string
	MaxRetries   int
	RetryBackoff time.Duration
	Concurrency  int
	RateLimit    float64
	RateBurst    int
	LogLevel     string
}

// LoadSnapshot merges config file, environment variables, and flags into SnapshotConfig.
func LoadSnapshot(cfgFile string, flags *pflag.FlagSet) (SnapshotConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("tick-window", 6000)
		v.SetDefault("out", "./data/snapshots.jsonl")
		v.SetDefault("max-retries", 5)
		v.SetDefault("retry-backoff", 500*time.Millisecond)
		v.SetDefault("concurrency", 8)
		v.SetDefault("rate-limit", 20.0)
		v.SetDefault("rate-burst", 5)
	})
	if err != nil {
		return SnapshotConfig{}, err
	}

	cfg := SnapshotConfig{
		RPCURL:       v.GetString("rpc"),
		Pools:        getStringSlice(v, "pool"),
		Block:        v.GetUint64("block"),
		TickWindow:   v.GetInt("tick-window"),
		Out:          v.GetString("out"),
		PGDSN:        v.GetString("pg-dsn"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		Concurrency:  v.GetInt("concurrency"),
		RateLimit:    v.GetFloat64("rate-limit"),
		RateBurst:    v.GetInt("rate-burst"),
		LogLevel:     v.GetString("log-level"),
	}

	return cfg, nil
}
