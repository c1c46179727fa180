// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txpool

import "time"

// PoolLimits are the soft admission bounds on pool size. They may be
// temporarily or inexactly exceeded because find_free_space reasons about
// subtree aggregates, which over-count shared descendants.
type PoolLimits struct {
	MaxTxs       int
	MaxGas       uint64
	MaxBytesSize uint64
}

// HeavyWorkConfig bounds the out-of-line verification and p2p-sync worker
// pools; the pool core itself never runs heavy verification, and the queue
// bounds are enforced by the service loop, not by the pool.
type HeavyWorkConfig struct {
	VerifyThreads     int
	VerifyQueueSize   int
	P2PSyncThreads    int
	P2PSyncQueueSize  int
}

// Config is the full set of enumerated pool options.
type Config struct {
	PoolLimits             PoolLimits
	MaxBlockGas            uint64
	MaxTxsChainCount       uint32
	MaxTxsTTL              time.Duration
	TTLCheckInterval       time.Duration
	UTXOValidation         bool
	BlackList              BlackList
	HeavyWork              HeavyWorkConfig
	MaxTxUpdateSubscriptions int
}

// DefaultConfig returns reasonable defaults for a local/simulation pool,
// following the New()-with-sane-defaults constructor convention.
func DefaultConfig() Config {
	return Config{
		PoolLimits: PoolLimits{
			MaxTxs:       10_000,
			MaxGas:       30_000_000_000,
			MaxBytesSize: 1 << 30, // 1 GiB
		},
		MaxBlockGas:              30_000_000,
		MaxTxsChainCount:         10,
		MaxTxsTTL:                5 * time.Minute,
		TTLCheckInterval:         30 * time.Second,
		UTXOValidation:           true,
		BlackList:                NewBlackList(),
		HeavyWork: HeavyWorkConfig{
			VerifyThreads:    4,
			VerifyQueueSize:  2048,
			P2PSyncThreads:   2,
			P2PSyncQueueSize: 512,
		},
		MaxTxUpdateSubscriptions: 256,
	}
}
