// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Command txpoolsim drives the transaction pool core with a synthetic
// transaction graph, for manual experimentation and load observation
// without a live chain or p2p network behind it.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/luxfi/geth/metrics"
	"github.com/spf13/pflag"

	"github.com/luxfi/txpool/log"
	"github.com/luxfi/txpool/txpool"
)

func main() {
	fs := BuildFlagSet()
	v, err := BuildViper(fs, os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Printf("couldn't build viper: %s\n", err)
		os.Exit(1)
	}

	if v.GetBool(versionKey) {
		fmt.Printf("%s\n", Version)
		os.Exit(0)
	}

	log.SetDefault(log.NewLogger(log.NewTerminalHandler(os.Stderr, true)))

	cfg := BuildConfig(v)
	if err := run(cfg); err != nil {
		fmt.Printf("%s\n", err)
		os.Exit(1)
	}
}

func run(cfg simConfig) error {
	clock := txpool.NewClock()
	pool := txpool.NewPool(cfg.pool, clock, nil, nil, nil, nil, metrics.NewRegistry())

	gen := newTxGraphGenerator(cfg.seed, cfg.chainDepth)

	var inserted, rejected int
	for i := 0; i < cfg.txCount; i++ {
		tx := gen.Next()
		if poolErr := pool.Insert(context.Background(), tx); poolErr != nil {
			rejected++
			continue
		}
		inserted++
	}

	fmt.Printf("inserted=%d rejected=%d pool_len=%d\n", inserted, rejected, pool.Len())

	var blocks, extracted int
	for pool.Len() > 0 {
		txs := pool.ExtractTransactionsForBlock(context.Background(), int(cfg.pool.MaxBlockGas/21_000))
		if len(txs) == 0 {
			break
		}
		blocks++
		extracted += len(txs)
	}
	fmt.Printf("blocks=%d extracted=%d remaining=%d\n", blocks, extracted, pool.Len())
	return nil
}
