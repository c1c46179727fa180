// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txpool

import (
	"fmt"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/luxfi/txpool/ids"
	"github.com/luxfi/txpool/utils/set"
)

// storageData is the pool-internal record for one admitted transaction
// record. dep* fields are subtree aggregates: sums over the
// transaction itself plus every transitive descendant.
type storageData struct {
	tx              Tx
	creationInstant time.Time

	depTip   uint64
	depGas   uint64
	depBytes uint64
	depCount uint32 // number_dependents_in_chain, includes self

	chainDepth uint32 // longest root-to-self path length, inclusive; fixed at insertion

	parents  mapset.Set[StorageIndex]
	children mapset.Set[StorageIndex]
}

// storageRecord is what callers receive back for a removed transaction.
type storageRecord struct {
	idx             StorageIndex
	tx              Tx
	creationInstant time.Time
}

type storageSlot struct {
	gen  uint32
	used bool
	data storageData
}

// storage is the arena-backed dependency graph. StorageIndex
// handles are dense, generation-tagged, and never raw pointers: a stale
// handle referring to a freed-then-reused slot fails its generation check.
type storage struct {
	slots    []storageSlot
	free     []uint32
	txIndex  map[ids.TxID]StorageIndex
	maxChain uint32
}

func newStorage(maxChain uint32) *storage {
	return &storage{
		txIndex:  make(map[ids.TxID]StorageIndex),
		maxChain: maxChain,
	}
}

func (s *storage) lookup(id ids.TxID) (StorageIndex, bool) {
	idx, ok := s.txIndex[id]
	return idx, ok
}

func (s *storage) get(idx StorageIndex) (*storageData, bool) {
	if int(idx.slot) >= len(s.slots) {
		return nil, false
	}
	sl := &s.slots[idx.slot]
	if !sl.used || sl.gen != idx.gen {
		return nil, false
	}
	return &sl.data, true
}

func (s *storage) count() int { return len(s.txIndex) }

func (s *storage) hasDependencies(idx StorageIndex) bool {
	d, ok := s.get(idx)
	return ok && d.parents.Cardinality() > 0
}

// dependents returns the direct children of idx.
func (s *storage) dependents(idx StorageIndex) []StorageIndex {
	d, ok := s.get(idx)
	if !ok {
		return nil
	}
	return d.children.ToSlice()
}

// checkedTransaction is the result of resolving a candidate's dependencies
// against the pool, prior to any mutation.
type checkedTransaction struct {
	tx      Tx
	parents mapset.Set[StorageIndex]
}

func (c checkedTransaction) allDependencies() mapset.Set[StorageIndex] { return c.parents }

// canStoreTransaction resolves tx's parents from its unconfirmed-UTXO inputs
// and enforces the configured maximum chain-depth bound.
func (s *storage) canStoreTransaction(tx Tx) (checkedTransaction, *Error) {
	parents := mapset.NewSet[StorageIndex]()
	var maxParentDepth uint32
	for _, in := range tx.Inputs() {
		if in.UnconfirmedUTXO == nil {
			continue
		}
		idx, ok := s.txIndex[in.UnconfirmedUTXO.TxID]
		if !ok {
			// The producer is not a pool transaction: either already
			// confirmed (handled as a ConfirmedUTXO input) or external.
			continue
		}
		parents.Add(idx)
		if d, ok := s.get(idx); ok && d.chainDepth > maxParentDepth {
			maxParentDepth = d.chainDepth
		}
	}
	newDepth := maxParentDepth + 1
	if newDepth > s.maxChain {
		return checkedTransaction{}, newError(ErrKindChainTooLong,
			fmt.Sprintf("chain depth %d exceeds max_txs_chain_count %d", newDepth, s.maxChain))
	}
	return checkedTransaction{tx: tx, parents: parents}, nil
}

// storeTransaction inserts checked into the arena, links it to its parents'
// children sets, and propagates its own (tip, gas, bytes) contribution
// upward through every ancestor exactly once.
func (s *storage) storeTransaction(checked checkedTransaction, instant time.Time) StorageIndex {
	tx := checked.tx

	var maxParentDepth uint32
	for _, p := range checked.parents.ToSlice() {
		if pd, ok := s.get(p); ok && pd.chainDepth > maxParentDepth {
			maxParentDepth = pd.chainDepth
		}
	}

	data := storageData{
		tx:              tx,
		creationInstant: instant,
		depTip:          tx.Tip(),
		depGas:          tx.MaxGas(),
		depBytes:        tx.MeteredBytesSize(),
		depCount:        1,
		chainDepth:      maxParentDepth + 1,
		parents:         checked.parents.Clone(),
		children:        mapset.NewSet[StorageIndex](),
	}

	idx := s.alloc(data)
	for _, p := range checked.parents.ToSlice() {
		if pd, ok := s.get(p); ok {
			pd.children.Add(idx)
		}
	}
	s.txIndex[tx.ID()] = idx

	if checked.parents.Cardinality() > 0 {
		s.propagateDelta(checked.parents.ToSlice(),
			int64(tx.Tip()), int64(tx.MaxGas()), int64(tx.MeteredBytesSize()), 1)
	}
	return idx
}

// removeSubtreeCascade removes idx and every transitive descendant
// (children-first order), taking each removed node's own contribution back
// out of every ancestor's aggregates, including surviving ancestors reached
// only through other removed nodes. This is used for collision displacement,
// space eviction, TTL expiry, and parent-destruction cascades.
func (s *storage) removeSubtreeCascade(root StorageIndex) []storageRecord {
	removedSet := set.New[StorageIndex]()
	var order []StorageIndex

	var visit func(idx StorageIndex)
	visit = func(idx StorageIndex) {
		if removedSet.Contains(idx) {
			return
		}
		removedSet.Add(idx)
		d, ok := s.get(idx)
		if !ok {
			return
		}
		for _, c := range d.children.ToSlice() {
			visit(c)
		}
		order = append(order, idx) // post-order: children appended before idx
	}
	visit(root)

	for _, r := range order {
		d, ok := s.get(r)
		if !ok {
			continue
		}
		if d.parents.Cardinality() > 0 {
			s.propagateDelta(d.parents.ToSlice(),
				-int64(d.tx.Tip()), -int64(d.tx.MaxGas()), -int64(d.tx.MeteredBytesSize()), -1)
		}
	}

	records := make([]storageRecord, 0, len(order))
	for _, idx := range order {
		d, ok := s.get(idx)
		if !ok {
			continue
		}
		for _, p := range d.parents.ToSlice() {
			if removedSet.Contains(p) {
				continue
			}
			if pd, ok := s.get(p); ok {
				pd.children.Remove(idx)
			}
		}
		records = append(records, storageRecord{idx: idx, tx: d.tx, creationInstant: d.creationInstant})
		delete(s.txIndex, d.tx.ID())
		s.release(idx)
	}
	return records
}

// removeExecuted removes a single executable (parent-free) transaction
// without touching its descendants, unlinking idx from each child's parent
// set and reporting which children became newly executable as a result.
func (s *storage) removeExecuted(idx StorageIndex) (storageRecord, []StorageIndex) {
	d, ok := s.get(idx)
	if !ok {
		return storageRecord{}, nil
	}
	rec := storageRecord{idx: idx, tx: d.tx, creationInstant: d.creationInstant}

	var promoted []StorageIndex
	for _, c := range d.children.ToSlice() {
		cd, ok := s.get(c)
		if !ok {
			continue
		}
		cd.parents.Remove(idx)
		if cd.parents.Cardinality() == 0 {
			promoted = append(promoted, c)
		}
	}
	delete(s.txIndex, d.tx.ID())
	s.release(idx)
	return rec, promoted
}

// propagateDelta walks upward from starts through parent links, applying
// the given per-field delta to every reachable ancestor exactly once (a
// single shared visited set dedupes diamonds where two starts share an
// ancestor).
func (s *storage) propagateDelta(starts []StorageIndex, dTip, dGas, dBytes int64, dCount int32) {
	visited := set.New[StorageIndex]()
	queue := append([]StorageIndex(nil), starts...)
	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]
		if visited.Contains(idx) {
			continue
		}
		visited.Add(idx)
		d, ok := s.get(idx)
		if !ok {
			continue
		}
		d.depTip = addDelta(d.depTip, dTip)
		d.depGas = addDelta(d.depGas, dGas)
		d.depBytes = addDelta(d.depBytes, dBytes)
		d.depCount = uint32(int64(d.depCount) + int64(dCount))
		for _, p := range d.parents.ToSlice() {
			queue = append(queue, p)
		}
	}
}

func (s *storage) alloc(data storageData) StorageIndex {
	if n := len(s.free); n > 0 {
		slotIdx := s.free[n-1]
		s.free = s.free[:n-1]
		sl := &s.slots[slotIdx]
		sl.gen++
		sl.used = true
		sl.data = data
		return StorageIndex{slot: slotIdx, gen: sl.gen}
	}
	s.slots = append(s.slots, storageSlot{gen: 1, used: true, data: data})
	return StorageIndex{slot: uint32(len(s.slots) - 1), gen: 1}
}

func (s *storage) release(idx StorageIndex) {
	if int(idx.slot) >= len(s.slots) {
		return
	}
	sl := &s.slots[idx.slot]
	if sl.gen != idx.gen || !sl.used {
		return
	}
	sl.used = false
	sl.data = storageData{}
	s.free = append(s.free, idx.slot)
}

// addDelta applies a signed delta to an unsigned field with saturation at
// zero rather than wraparound or overflow.
func addDelta(v uint64, d int64) uint64 {
	if d >= 0 {
		return v + uint64(d)
	}
	dec := uint64(-d)
	if dec > v {
		return 0
	}
	return v - dec
}
