// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package main

import (
	"encoding/binary"
	"math/rand"

	"github.com/luxfi/txpool/ids"
	"github.com/luxfi/txpool/txpool"
)

// simTx is a minimal txpool.Tx implementation used only by the simulator:
// it carries exactly the fields the pool core inspects and nothing else.
type simTx struct {
	id      ids.TxID
	maxGas  uint64
	tip     uint64
	size    uint64
	inputs  []txpool.Input
	outputs []txpool.Output
	kind    txpool.Kind
}

func (t *simTx) ID() ids.TxID                  { return t.id }
func (t *simTx) MaxGas() uint64                { return t.maxGas }
func (t *simTx) Tip() uint64                   { return t.tip }
func (t *simTx) MeteredBytesSize() uint64      { return t.size }
func (t *simTx) Inputs() []txpool.Input        { return t.inputs }
func (t *simTx) Outputs() []txpool.Output      { return t.outputs }
func (t *simTx) Kind() txpool.Kind             { return t.kind }
func (t *simTx) BlobID() (ids.BlobID, bool)     { return ids.BlobID{}, false }
func (t *simTx) ContractID() (ids.ContractID, bool) { return ids.ContractID{}, false }

// txGraphGenerator produces a pseudo-random DAG of simTx values that spend
// each other's unconfirmed outputs up to a bounded chain depth, exercising
// the dependency graph and selection algorithm the way real gossip traffic
// would.
type txGraphGenerator struct {
	rng        *rand.Rand
	chainDepth int
	nextSerial uint64

	// frontier holds outputs available to be spent next, paired with the
	// chain depth of the transaction that produced them.
	frontier []frontierUTXO
}

type frontierUTXO struct {
	utxo  ids.UtxoID
	depth int
}

func newTxGraphGenerator(seed int64, chainDepth int) *txGraphGenerator {
	g := &txGraphGenerator{
		rng:        rand.New(rand.NewSource(seed)),
		chainDepth: chainDepth,
	}
	// Seed a pool of confirmed roots (depth 0, no pool-internal parent).
	for i := 0; i < 64; i++ {
		g.frontier = append(g.frontier, frontierUTXO{utxo: g.confirmedUTXO(i), depth: 0})
	}
	return g
}

func (g *txGraphGenerator) confirmedUTXO(i int) ids.UtxoID {
	var id ids.TxID
	binary.BigEndian.PutUint64(id[:8], uint64(i)+1<<32)
	return ids.UtxoID{TxID: id, Output: 0}
}

func (g *txGraphGenerator) nextID() ids.TxID {
	g.nextSerial++
	var id ids.TxID
	binary.BigEndian.PutUint64(id[24:], g.nextSerial)
	return id
}

// Next produces one simTx spending a random frontier UTXO (when available
// and within the chain depth bound) and appends its own output back onto
// the frontier for later transactions to spend.
func (g *txGraphGenerator) Next() *simTx {
	tip := uint64(1 + g.rng.Intn(1000))
	gas := uint64(21_000 + g.rng.Intn(500_000))
	id := g.nextID()

	tx := &simTx{
		id:      id,
		maxGas:  gas,
		tip:     tip,
		size:    uint64(200 + g.rng.Intn(2000)),
		outputs: []txpool.Output{{Index: 0}},
		kind:    txpool.KindScript,
	}

	depth := 1
	if len(g.frontier) > 0 && g.rng.Intn(4) != 0 {
		i := g.rng.Intn(len(g.frontier))
		picked := g.frontier[i]
		if picked.depth < g.chainDepth {
			utxo := picked.utxo
			tx.inputs = append(tx.inputs, txpool.Input{UnconfirmedUTXO: &utxo})
			depth = picked.depth + 1
			g.frontier = append(g.frontier[:i], g.frontier[i+1:]...)
		}
	}
	if len(tx.inputs) == 0 {
		utxo := g.confirmedUTXO(g.rng.Intn(64))
		tx.inputs = append(tx.inputs, txpool.Input{ConfirmedUTXO: &utxo})
	}

	g.frontier = append(g.frontier, frontierUTXO{utxo: ids.UtxoID{TxID: id, Output: 0}, depth: depth})
	return tx
}
