// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txpool

import (
	"context"
	"testing"
	"time"

	"github.com/luxfi/geth/metrics"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/txpool/ids"
)

func newTestPool(t *testing.T, cfg Config, clock Clock) *Pool {
	t.Helper()
	return NewPool(cfg, clock, nil, nil, nil, nil, metrics.NewRegistry())
}

func TestPoolInsertAndExtractSingleTx(t *testing.T) {
	pool := newTestPool(t, DefaultConfig(), nil)
	tx := newFakeTx(1, 10, 21_000)

	require.Nil(t, pool.Insert(context.Background(), tx))
	require.Equal(t, 1, pool.Len())
	require.True(t, pool.Contains(tx.id))

	out := pool.ExtractTransactionsForBlock(context.Background(), 10)
	require.Len(t, out, 1)
	require.Equal(t, tx.id, out[0].ID())
	require.Equal(t, 0, pool.Len())
}

func TestPoolRejectsZeroMaxGas(t *testing.T) {
	pool := newTestPool(t, DefaultConfig(), nil)
	tx := newFakeTx(1, 10, 0)
	err := pool.Insert(context.Background(), tx)
	require.NotNil(t, err)
	require.Equal(t, ErrKindZeroMaxGas, err.Kind)
}

func TestPoolRejectsDuplicate(t *testing.T) {
	pool := newTestPool(t, DefaultConfig(), nil)
	tx := newFakeTx(1, 10, 21_000)
	require.Nil(t, pool.Insert(context.Background(), tx))
	err := pool.Insert(context.Background(), tx)
	require.NotNil(t, err)
	require.Equal(t, ErrKindDuplicateTxId, err.Kind)
}

func TestPoolParentChildDependencyNotExecutableUntilParentExtracted(t *testing.T) {
	pool := newTestPool(t, DefaultConfig(), nil)
	parent := newFakeTx(1, 10, 21_000)
	child := newChildTx(2, parent, 5, 21_000)

	require.Nil(t, pool.Insert(context.Background(), parent))
	require.Nil(t, pool.Insert(context.Background(), child))
	require.Equal(t, 2, pool.Len())

	out := pool.ExtractTransactionsForBlock(context.Background(), 1)
	require.Len(t, out, 1)
	require.Equal(t, parent.id, out[0].ID())

	out = pool.ExtractTransactionsForBlock(context.Background(), 1)
	require.Len(t, out, 1)
	require.Equal(t, child.id, out[0].ID())
}

func TestPoolCollisionCandidateWinsEvictsLoser(t *testing.T) {
	pool := newTestPool(t, DefaultConfig(), nil)
	utxo := confirmedUTXO(1, 0)

	weak := &fakeTx{id: txID(1), maxGas: 21_000, tip: 1, size: 10, inputs: []Input{{ConfirmedUTXO: &utxo}}}
	require.Nil(t, pool.Insert(context.Background(), weak))

	strong := &fakeTx{id: txID(2), maxGas: 21_000, tip: 100, size: 10, inputs: []Input{{ConfirmedUTXO: &utxo}}}
	require.Nil(t, pool.Insert(context.Background(), strong))

	require.False(t, pool.Contains(weak.id))
	require.True(t, pool.Contains(strong.id))
	require.Equal(t, 1, pool.Len())
}

func TestPoolCollisionTieRejectsCandidate(t *testing.T) {
	pool := newTestPool(t, DefaultConfig(), nil)
	utxo := confirmedUTXO(1, 0)

	first := &fakeTx{id: txID(1), maxGas: 21_000, tip: 10, size: 10, inputs: []Input{{ConfirmedUTXO: &utxo}}}
	require.Nil(t, pool.Insert(context.Background(), first))

	tied := &fakeTx{id: txID(2), maxGas: 21_000, tip: 10, size: 10, inputs: []Input{{ConfirmedUTXO: &utxo}}}
	err := pool.Insert(context.Background(), tied)
	require.NotNil(t, err)
	require.Equal(t, ErrKindCollided, err.Kind)
	require.True(t, pool.Contains(first.id))
}

func TestPoolBlobCollisionNeverDisplaceable(t *testing.T) {
	pool := newTestPool(t, DefaultConfig(), nil)

	var blobID ids.BlobID
	blobID[0] = 7

	firstIn := confirmedUTXO(9, 0)
	first := &fakeTx{id: txID(1), maxGas: 21_000, tip: 1, size: 10,
		inputs: []Input{{ConfirmedUTXO: &firstIn}},
		kind:   KindBlob, blobID: blobID, hasBlob: true}
	require.Nil(t, pool.Insert(context.Background(), first))

	secondIn := confirmedUTXO(10, 0)
	second := &fakeTx{id: txID(2), maxGas: 21_000, tip: 1000, size: 10,
		inputs: []Input{{ConfirmedUTXO: &secondIn}},
		kind:   KindBlob, blobID: blobID, hasBlob: true}
	err := pool.Insert(context.Background(), second)
	require.NotNil(t, err)
	require.Equal(t, ErrKindBlobIdAlreadyTaken, err.Kind)
}

func TestPoolChainTooLongRejected(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxTxsChainCount = 1
	pool := newTestPool(t, cfg, nil)

	parent := newFakeTx(1, 10, 21_000)
	require.Nil(t, pool.Insert(context.Background(), parent))

	child := newChildTx(2, parent, 5, 21_000)
	err := pool.Insert(context.Background(), child)
	require.NotNil(t, err)
	require.Equal(t, ErrKindChainTooLong, err.Kind)
}

func TestPoolEvictsLowRatioWhenLimitHit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PoolLimits.MaxTxs = 2
	pool := newTestPool(t, cfg, nil)

	low := newFakeTx(1, 1, 21_000)
	mid := newFakeTx(2, 10, 21_000)
	high := newFakeTx(3, 100, 21_000)

	require.Nil(t, pool.Insert(context.Background(), low))
	require.Nil(t, pool.Insert(context.Background(), mid))
	require.Nil(t, pool.Insert(context.Background(), high))

	require.Equal(t, 2, pool.Len())
	require.False(t, pool.Contains(low.id))
	require.True(t, pool.Contains(mid.id))
	require.True(t, pool.Contains(high.id))
}

func TestPoolLimitHitWhenNothingWorseToEvict(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PoolLimits.MaxTxs = 1
	pool := newTestPool(t, cfg, nil)

	high := newFakeTx(1, 100, 21_000)
	require.Nil(t, pool.Insert(context.Background(), high))

	weaker := newFakeTx(2, 1, 21_000)
	err := pool.Insert(context.Background(), weaker)
	require.NotNil(t, err)
	require.Equal(t, ErrKindLimitHit, err.Kind)
}

func TestPoolTTLExpiry(t *testing.T) {
	clock := NewMockClock(time.Unix(0, 0))
	cfg := DefaultConfig()
	cfg.MaxTxsTTL = time.Minute
	pool := newTestPool(t, cfg, clock)

	tx := newFakeTx(1, 10, 21_000)
	require.Nil(t, pool.Insert(context.Background(), tx))

	clock.Advance(30 * time.Second)
	pool.ExpireTTL()
	require.True(t, pool.Contains(tx.id))

	clock.Advance(31 * time.Second)
	pool.ExpireTTL()
	require.False(t, pool.Contains(tx.id))
}

func TestPoolRemoveTransactionsForBlockEvictsConfirmed(t *testing.T) {
	pool := newTestPool(t, DefaultConfig(), nil)
	tx := newFakeTx(1, 10, 21_000)
	require.Nil(t, pool.Insert(context.Background(), tx))

	pool.RemoveTransactionsForBlock(Block{Height: 1, ConfirmedTxIDs: []ids.TxID{tx.id}})
	require.False(t, pool.Contains(tx.id))
}

// A block can confirm a UTXO spend without the spending transaction ever
// having passed through this pool; any pool transaction that claimed the
// same UTXO is now a double-spend and must be purged even though it was
// never itself confirmed.
func TestPoolRemoveTransactionsForBlockEvictsUnconfirmedCollisionOnUTXOSpend(t *testing.T) {
	pool := newTestPool(t, DefaultConfig(), nil)
	utxo := confirmedUTXO(1, 0)
	tx := &fakeTx{id: txID(2), maxGas: 21_000, tip: 10, size: 100,
		inputs: []Input{{ConfirmedUTXO: &utxo}}, outputs: []Output{{Index: 0}}}
	require.Nil(t, pool.Insert(context.Background(), tx))

	pool.RemoveTransactionsForBlock(Block{Height: 1, ConfirmedUTXOInputs: []ids.UtxoID{utxo}})
	require.False(t, pool.Contains(tx.id))
}

type fakeGasPriceProvider struct {
	price uint64
}

func (p *fakeGasPriceProvider) GasPrice(_ context.Context) (uint64, error) { return p.price, nil }

// ExtractTransactionsForBlock must query the gas price once per call and
// skip (not remove) a fee-limited transaction whose computed max fee
// exceeds its own limit, leaving it to be reconsidered on a later call at a
// possibly lower price.
func TestPoolExtractSkipsTransactionOverFeeLimit(t *testing.T) {
	gp := &fakeGasPriceProvider{price: 10}
	pool := NewPool(DefaultConfig(), nil, nil, nil, gp, nil, nil)

	cheap := newFeeLimitedTx(1, 1, 10_000, 1_000_000)
	expensive := newFeeLimitedTx(2, 1000, 10_000, 1)
	require.Nil(t, pool.Insert(context.Background(), cheap))
	require.Nil(t, pool.Insert(context.Background(), expensive))

	out := pool.ExtractTransactionsForBlock(context.Background(), 10)
	require.Len(t, out, 1)
	require.Equal(t, cheap.id, out[0].ID())
	require.True(t, pool.Contains(expensive.id))

	gp.price = 0
	out = pool.ExtractTransactionsForBlock(context.Background(), 10)
	require.Len(t, out, 1)
	require.Equal(t, expensive.id, out[0].ID())
}
