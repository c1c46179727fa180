// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package e2e

import (
	"context"
	"math/rand"

	ginkgo "github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/luxfi/geth/metrics"

	"github.com/luxfi/txpool/ids"
	"github.com/luxfi/txpool/txpool"
)

type e2eTx struct {
	id      ids.TxID
	maxGas  uint64
	tip     uint64
	size    uint64
	inputs  []txpool.Input
	outputs []txpool.Output
	kind    txpool.Kind
	blobID  ids.BlobID
	hasBlob bool
}

func (t *e2eTx) ID() ids.TxID                      { return t.id }
func (t *e2eTx) MaxGas() uint64                    { return t.maxGas }
func (t *e2eTx) Tip() uint64                        { return t.tip }
func (t *e2eTx) MeteredBytesSize() uint64           { return t.size }
func (t *e2eTx) Inputs() []txpool.Input             { return t.inputs }
func (t *e2eTx) Outputs() []txpool.Output           { return t.outputs }
func (t *e2eTx) Kind() txpool.Kind                  { return t.kind }
func (t *e2eTx) BlobID() (ids.BlobID, bool)         { return t.blobID, t.hasBlob }
func (t *e2eTx) ContractID() (ids.ContractID, bool) { return ids.ContractID{}, false }

func idFor(n uint16) ids.TxID {
	var id ids.TxID
	id[30] = byte(n >> 8)
	id[31] = byte(n)
	return id
}

func confirmedInput(n uint16) ids.UtxoID {
	return ids.UtxoID{TxID: idFor(n), Output: 0}
}

func rootTx(serial uint16, tip, gas uint64) *e2eTx {
	in := confirmedInput(serial + 200)
	return &e2eTx{
		id:      idFor(serial),
		maxGas:  gas,
		tip:     tip,
		size:    150,
		inputs:  []txpool.Input{{ConfirmedUTXO: &in}},
		outputs: []txpool.Output{{Index: 0}},
		kind:    txpool.KindScript,
	}
}

func childOf(serial uint16, parent *e2eTx, tip, gas uint64) *e2eTx {
	in := ids.UtxoID{TxID: parent.id, Output: 0}
	return &e2eTx{
		id:      idFor(serial),
		maxGas:  gas,
		tip:     tip,
		size:    150,
		inputs:  []txpool.Input{{UnconfirmedUTXO: &in}},
		outputs: []txpool.Output{{Index: 0}},
		kind:    txpool.KindScript,
	}
}

func newPool(cfg txpool.Config) *txpool.Pool {
	return txpool.NewPool(cfg, nil, nil, nil, nil, nil, metrics.NewRegistry())
}

var _ = ginkgo.Describe("transaction pool admission and extraction", func() {
	var ctx context.Context

	ginkgo.BeforeEach(func() {
		ctx = context.Background()
	})

	ginkgo.It("admits a single independent transaction and extracts it into a block", func() {
		pool := newPool(txpool.DefaultConfig())
		tx := rootTx(1, 10, 21_000)

		gomega.Expect(pool.Insert(ctx, tx)).To(gomega.BeNil())
		gomega.Expect(pool.Len()).To(gomega.Equal(1))

		extracted := pool.ExtractTransactionsForBlock(ctx, 10)
		gomega.Expect(extracted).To(gomega.HaveLen(1))
		gomega.Expect(extracted[0].ID()).To(gomega.Equal(tx.id))
		gomega.Expect(pool.Len()).To(gomega.Equal(0))
	})

	ginkgo.It("holds a child transaction back until its parent is extracted", func() {
		pool := newPool(txpool.DefaultConfig())
		parent := rootTx(1, 10, 21_000)
		child := childOf(2, parent, 50, 21_000)

		gomega.Expect(pool.Insert(ctx, parent)).To(gomega.BeNil())
		gomega.Expect(pool.Insert(ctx, child)).To(gomega.BeNil())

		// child has the better ratio but cannot be extracted before its
		// parent since it is not yet executable.
		first := pool.ExtractTransactionsForBlock(ctx, 1)
		gomega.Expect(first).To(gomega.HaveLen(1))
		gomega.Expect(first[0].ID()).To(gomega.Equal(parent.id))

		second := pool.ExtractTransactionsForBlock(ctx, 1)
		gomega.Expect(second).To(gomega.HaveLen(1))
		gomega.Expect(second[0].ID()).To(gomega.Equal(child.id))
	})

	ginkgo.It("lets a higher-ratio candidate displace a colliding lower-ratio occupant", func() {
		pool := newPool(txpool.DefaultConfig())
		utxo := confirmedInput(1)

		weak := &e2eTx{id: idFor(1), maxGas: 21_000, tip: 1, size: 150,
			inputs: []txpool.Input{{ConfirmedUTXO: &utxo}}, outputs: []txpool.Output{{Index: 0}}}
		gomega.Expect(pool.Insert(ctx, weak)).To(gomega.BeNil())

		strong := &e2eTx{id: idFor(2), maxGas: 21_000, tip: 500, size: 150,
			inputs: []txpool.Input{{ConfirmedUTXO: &utxo}}, outputs: []txpool.Output{{Index: 0}}}
		gomega.Expect(pool.Insert(ctx, strong)).To(gomega.BeNil())

		gomega.Expect(pool.Contains(weak.id)).To(gomega.BeFalse())
		gomega.Expect(pool.Contains(strong.id)).To(gomega.BeTrue())
	})

	ginkgo.It("rejects a colliding candidate that does not strictly exceed the occupant's ratio", func() {
		pool := newPool(txpool.DefaultConfig())
		utxo := confirmedInput(1)

		first := &e2eTx{id: idFor(1), maxGas: 21_000, tip: 10, size: 150,
			inputs: []txpool.Input{{ConfirmedUTXO: &utxo}}, outputs: []txpool.Output{{Index: 0}}}
		gomega.Expect(pool.Insert(ctx, first)).To(gomega.BeNil())

		tied := &e2eTx{id: idFor(2), maxGas: 21_000, tip: 10, size: 150,
			inputs: []txpool.Input{{ConfirmedUTXO: &utxo}}, outputs: []txpool.Output{{Index: 0}}}
		err := pool.Insert(ctx, tied)
		gomega.Expect(err).NotTo(gomega.BeNil())
		gomega.Expect(err.Kind).To(gomega.Equal(txpool.ErrKindCollided))
		gomega.Expect(pool.Contains(first.id)).To(gomega.BeTrue())
	})

	ginkgo.It("evicts the lowest-ratio transaction to make room under a tight pool limit", func() {
		cfg := txpool.DefaultConfig()
		cfg.PoolLimits.MaxTxs = 2
		pool := newPool(cfg)

		low := rootTx(1, 1, 21_000)
		mid := rootTx(2, 10, 21_000)
		high := rootTx(3, 100, 21_000)

		gomega.Expect(pool.Insert(ctx, low)).To(gomega.BeNil())
		gomega.Expect(pool.Insert(ctx, mid)).To(gomega.BeNil())
		gomega.Expect(pool.Insert(ctx, high)).To(gomega.BeNil())

		gomega.Expect(pool.Len()).To(gomega.Equal(2))
		gomega.Expect(pool.Contains(low.id)).To(gomega.BeFalse())
		gomega.Expect(pool.Contains(mid.id)).To(gomega.BeTrue())
		gomega.Expect(pool.Contains(high.id)).To(gomega.BeTrue())
	})

	ginkgo.It("rejects a transaction whose chain depth exceeds the configured bound", func() {
		cfg := txpool.DefaultConfig()
		cfg.MaxTxsChainCount = 2
		pool := newPool(cfg)

		gen0 := rootTx(1, 10, 21_000)
		gomega.Expect(pool.Insert(ctx, gen0)).To(gomega.BeNil())
		gen1 := childOf(2, gen0, 10, 21_000)
		gomega.Expect(pool.Insert(ctx, gen1)).To(gomega.BeNil())

		gen2 := childOf(3, gen1, 10, 21_000)
		err := pool.Insert(ctx, gen2)
		gomega.Expect(err).NotTo(gomega.BeNil())
		gomega.Expect(err.Kind).To(gomega.Equal(txpool.ErrKindChainTooLong))
	})

	ginkgo.It("drains a large randomized transaction graph to empty without leaving orphans", func() {
		pool := newPool(txpool.DefaultConfig())
		rng := rand.New(rand.NewSource(7))

		var roots []*e2eTx
		var serial uint16
		inserted := 0
		for inserted < 500 {
			serial++
			var tx *e2eTx
			if len(roots) > 0 && rng.Intn(3) != 0 {
				parent := roots[rng.Intn(len(roots))]
				tx = childOf(serial, parent, uint64(1+rng.Intn(1000)), 21_000)
			} else {
				tx = rootTx(serial, uint64(1+rng.Intn(1000)), 21_000)
			}
			if pool.Insert(ctx, tx) == nil {
				roots = append(roots, tx)
				inserted++
			}
		}

		drained := 0
		for pool.Len() > 0 {
			out := pool.ExtractTransactionsForBlock(ctx, 50)
			if len(out) == 0 {
				break
			}
			drained += len(out)
		}
		gomega.Expect(drained).To(gomega.Equal(inserted))
		gomega.Expect(pool.Len()).To(gomega.Equal(0))
	})
})
