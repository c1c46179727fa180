// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txpool

import (
	"github.com/google/btree"
	"github.com/holiman/uint256"

	"github.com/luxfi/txpool/ids"
)

// selectionKey orders executable transactions by worth, worst to best: tip
// to gas ratio first, then order of entry into the index (earlier is
// better), then tx id (lower is better), so the ordering is total and
// reproducible across runs; google/btree's
// generic BTreeG gives the same ascend/descend-by-key behavior without the
// Reverse wrapper since we simply read from the tail for "best").
type selectionKey struct {
	tip uint64
	gas uint64
	seq uint64
	id  ids.TxID
	idx StorageIndex
}

func (k selectionKey) ratio() ratio { return ratio{tip: k.tip, gas: k.gas} }

func selectionLess(a, b selectionKey) bool {
	if c := a.ratio().compare(b.ratio()); c != 0 {
		return c < 0
	}
	if a.seq != b.seq {
		return a.seq > b.seq
	}
	return a.id.Compare(b.id) > 0
}

// selection is the ordered index over currently-executable transactions
// (those with no unresolved dependency), used both to assemble a block in
// best-worth-first order and to find low-worth eviction candidates.
type selection struct {
	tree    *btree.BTreeG[selectionKey]
	byIndex map[StorageIndex]selectionKey
	seq     uint64
}

func newSelection() *selection {
	return &selection{
		tree:    btree.NewG(32, selectionLess),
		byIndex: make(map[StorageIndex]selectionKey),
	}
}

func (s *selection) len() int { return len(s.byIndex) }

// insert registers idx as newly executable.
func (s *selection) insert(idx StorageIndex, tx Tx) {
	key := selectionKey{tip: tx.Tip(), gas: tx.MaxGas(), seq: s.seq, id: tx.ID(), idx: idx}
	s.seq++
	s.tree.ReplaceOrInsert(key)
	s.byIndex[idx] = key
}

// remove drops idx from the executable index, e.g. because it was evicted
// directly while still executable.
func (s *selection) remove(idx StorageIndex) {
	key, ok := s.byIndex[idx]
	if !ok {
		return
	}
	s.tree.Delete(key)
	delete(s.byIndex, idx)
}

// gatherBestTxs sweeps from the highest-worth executable transaction down,
// taking each one that still fits within maxGas and promoting any child
// that becomes newly executable as a result. A tx whose MaxGas()*gasPrice
// would exceed its own FeeLimited.MaxFeeLimit() is skipped rather than
// removed, since the gas price may be lower on a later call; transactions
// that would overflow the remaining budget are skipped the same way. Every
// skipped key is restored to the index before returning so a later call can
// reconsider it against a fresh budget or gas price.
func (s *selection) gatherBestTxs(st *storage, maxGas uint64, maxCount int, gasPrice uint64) []storageRecord {
	var result []storageRecord
	var skipped []selectionKey
	var usedGas uint64

	for len(result) < maxCount {
		key, ok := s.tree.DeleteMax()
		if !ok {
			break
		}
		delete(s.byIndex, key.idx)

		d, ok := st.get(key.idx)
		if !ok {
			// Stale key: the storage entry is gone (e.g. evicted directly
			// while still executable). Drop it rather than restoring it.
			continue
		}

		if limited, ok := d.tx.(FeeLimited); ok {
			maxFee := new(uint256.Int).Mul(uint256.NewInt(key.gas), uint256.NewInt(gasPrice))
			if maxFee.Cmp(uint256.NewInt(limited.MaxFeeLimit())) > 0 {
				skipped = append(skipped, key)
				continue
			}
		}

		if key.gas > maxGas-usedGas {
			skipped = append(skipped, key)
			continue
		}

		rec, promoted := st.removeExecuted(key.idx)
		result = append(result, rec)
		usedGas += key.gas

		for _, p := range promoted {
			if d, ok := st.get(p); ok {
				s.insert(p, d.tx)
			}
		}
	}

	for _, key := range skipped {
		s.tree.ReplaceOrInsert(key)
		s.byIndex[key.idx] = key
	}
	return result
}

// getLessWorthTxs returns up to n currently-executable transactions with the
// lowest worth, without removing them; the pool's findFreeSpace walks these
// as its only eviction candidates, and evicting one also removes its
// dependent subtree.
func (s *selection) getLessWorthTxs(n int) []StorageIndex {
	if n <= 0 {
		return nil
	}
	out := make([]StorageIndex, 0, n)
	s.tree.Ascend(func(k selectionKey) bool {
		out = append(out, k.idx)
		return len(out) < n
	})
	return out
}

// onRemovedTransaction drops idx from the index if present; used when a
// cascade or collision eviction removes a transaction that happened to be
// executable.
func (s *selection) onRemovedTransaction(idx StorageIndex) {
	s.remove(idx)
}
