// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txpool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSelectionGatherBestTxsOrdersByRatio(t *testing.T) {
	s := newStorage(10)
	sel := newSelection()

	low := newFakeTx(1, 1, 21_000)
	high := newFakeTx(2, 100, 21_000)
	mid := newFakeTx(3, 10, 21_000)

	for _, tx := range []*fakeTx{low, high, mid} {
		checked, err := s.canStoreTransaction(tx)
		require.Nil(t, err)
		idx := s.storeTransaction(checked, time.Now())
		sel.insert(idx, tx)
	}

	require.Equal(t, 3, sel.len())
	records := sel.gatherBestTxs(s, 1_000_000, 10, 0)
	require.Len(t, records, 3)
	require.Equal(t, high.id, records[0].tx.ID())
	require.Equal(t, mid.id, records[1].tx.ID())
	require.Equal(t, low.id, records[2].tx.ID())
	require.Equal(t, 0, sel.len())
}

func TestSelectionGatherBestTxsSkipsOverBudget(t *testing.T) {
	s := newStorage(10)
	sel := newSelection()

	cheap := newFakeTx(1, 10, 10_000)
	expensive := newFakeTx(2, 1000, 1_000_000)

	for _, tx := range []*fakeTx{cheap, expensive} {
		checked, err := s.canStoreTransaction(tx)
		require.Nil(t, err)
		idx := s.storeTransaction(checked, time.Now())
		sel.insert(idx, tx)
	}

	// Budget only fits cheap even though expensive has the higher raw tip
	// (both ratios are 1/1000); expensive must be skipped (not drop the
	// sweep) and restored.
	records := sel.gatherBestTxs(s, 10_000, 10, 0)
	require.Len(t, records, 1)
	require.Equal(t, cheap.id, records[0].tx.ID())
	require.Equal(t, 1, sel.len(), "skipped candidate must be restored to the index")
}

func TestSelectionGatherBestTxsPromotesChild(t *testing.T) {
	s := newStorage(10)
	sel := newSelection()

	parent := newFakeTx(1, 50, 21_000)
	pChecked, err := s.canStoreTransaction(parent)
	require.Nil(t, err)
	pIdx := s.storeTransaction(pChecked, time.Now())
	sel.insert(pIdx, parent)

	child := newChildTx(2, parent, 10, 21_000)
	cChecked, err := s.canStoreTransaction(child)
	require.Nil(t, err)
	s.storeTransaction(cChecked, time.Now())
	// child has a parent, so it is not inserted into selection yet.

	require.Equal(t, 1, sel.len())
	records := sel.gatherBestTxs(s, 1_000_000, 1, 0)
	require.Len(t, records, 1)
	require.Equal(t, parent.id, records[0].tx.ID())

	// Removing parent promotes child into the executable index.
	require.Equal(t, 1, sel.len())
	records = sel.gatherBestTxs(s, 1_000_000, 1, 0)
	require.Len(t, records, 1)
	require.Equal(t, child.id, records[0].tx.ID())
}

func TestGetLessWorthTxsDoesNotMutate(t *testing.T) {
	s := newStorage(10)
	sel := newSelection()

	low := newFakeTx(1, 1, 21_000)
	high := newFakeTx(2, 100, 21_000)
	for _, tx := range []*fakeTx{low, high} {
		checked, err := s.canStoreTransaction(tx)
		require.Nil(t, err)
		idx := s.storeTransaction(checked, time.Now())
		sel.insert(idx, tx)
	}

	least := sel.getLessWorthTxs(1)
	require.Len(t, least, 1)
	data, ok := s.get(least[0])
	require.True(t, ok)
	require.Equal(t, low.id, data.tx.ID())
	require.Equal(t, 2, sel.len(), "peek must not remove anything")
}
