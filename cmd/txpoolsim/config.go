// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/luxfi/txpool/txpool"
)

const (
	txCountKey     = "tx-count"
	chainDepthKey  = "chain-depth"
	blockGasKey    = "block-gas"
	maxPoolTxsKey  = "max-pool-txs"
	logLevelKey    = "log-level"
	ttlKey         = "ttl"
	seedKey        = "seed"
	versionKey     = "version"
)

// Version is the simulator's reported version.
const Version = "txpoolsim/v0"

// BuildFlagSet declares the simulator's command-line flags, in the
// teacher's BuildFlagSet/BuildViper style (cmd/simulator/main).
func BuildFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("txpoolsim", pflag.ContinueOnError)
	fs.Int(txCountKey, 2_000, "number of simulated transactions to generate and insert")
	fs.Int(chainDepthKey, 4, "maximum parent-child chain depth per simulated transaction")
	fs.Uint64(blockGasKey, 30_000_000, "consensus max gas per block")
	fs.Int(maxPoolTxsKey, 10_000, "pool soft limit on transaction count")
	fs.String(logLevelKey, "info", "log level (trace|debug|info|warn|error)")
	fs.Duration(ttlKey, 5*time.Minute, "transaction time-to-live before expiry")
	fs.Int64(seedKey, 1, "PRNG seed for the simulated transaction graph")
	fs.Bool(versionKey, false, "print version and exit")
	return fs
}

// BuildViper binds fs to a fresh viper.Viper and parses args.
func BuildViper(fs *pflag.FlagSet, args []string) (*viper.Viper, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	v := viper.New()
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}
	return v, nil
}

// simConfig bundles the pool configuration with simulator-only knobs.
type simConfig struct {
	pool       txpool.Config
	txCount    int
	chainDepth int
	seed       int64
	logLevel   string
}

// BuildConfig reads a simConfig out of v.
func BuildConfig(v *viper.Viper) simConfig {
	pool := txpool.DefaultConfig()
	pool.MaxBlockGas = v.GetUint64(blockGasKey)
	pool.PoolLimits.MaxTxs = v.GetInt(maxPoolTxsKey)
	pool.MaxTxsTTL = v.GetDuration(ttlKey)

	return simConfig{
		pool:       pool,
		txCount:    v.GetInt(txCountKey),
		chainDepth: v.GetInt(chainDepthKey),
		seed:       v.GetInt64(seedKey),
		logLevel:   v.GetString(logLevelKey),
	}
}
