// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txpool

import (
	"context"
	"sync"
	"time"

	"github.com/luxfi/geth/metrics"

	"github.com/luxfi/txpool/ids"
	"github.com/luxfi/txpool/log"
)

var poolLog = log.New("module", "txpool")

// ttlEntry is one row of the FIFO expiry queue: transactions age out in
// creation order, so the queue never needs resorting (grounded on the
// original's oldest-first queue walk).
type ttlEntry struct {
	instant time.Time
	txID    ids.TxID
}

// Pool is the in-memory transaction pool core. It owns the dependency graph
// (storage), the collision indices, and the executable-ordering index, and
// enforces the soft resource limits from Config. A single mutex protects all
// of it: unlike the original's separate pool/current_height/time-queue locks,
// the pool is meant to be owned by one single-threaded service loop (see
// package service), so fine-grained lock ordering buys nothing here.
type Pool struct {
	mu sync.Mutex

	cfg   Config
	clock Clock

	storage    *storage
	collisions *collisionManager
	selection  *selection

	ttlQueue []ttlEntry

	currentHeight uint64
	usageTxs      int
	usageGas      uint64
	usageBytes    uint64

	persistent PersistentStorageView
	consensus  ConsensusParametersProvider
	gasPrice   GasPriceProvider
	wasm       WasmChecker

	metrics *poolMetrics
}

// NewPool constructs a Pool. persistent, consensus, gasPrice, and wasm may be
// nil only if the corresponding checks are meaningless for the embedder
// (e.g. a pure-simulation harness); passing nil disables that check rather
// than panicking, since the pool core has no opinion on which ports a given
// deployment needs.
func NewPool(cfg Config, clock Clock, persistent PersistentStorageView, consensus ConsensusParametersProvider, gasPrice GasPriceProvider, wasm WasmChecker, registry metrics.Registry) *Pool {
	if clock == nil {
		clock = NewClock()
	}
	return &Pool{
		cfg:        cfg,
		clock:      clock,
		storage:    newStorage(cfg.MaxTxsChainCount),
		collisions: newCollisionManager(),
		selection:  newSelection(),
		persistent: persistent,
		consensus:  consensus,
		gasPrice:   gasPrice,
		wasm:       wasm,
		metrics:    newPoolMetrics(registry),
	}
}

// insertPlan is the output of the check phase: either a rejection or
// everything commit needs, computed without having mutated any state
// (grounded on the original's CanStoreTransaction staged value).
type insertPlan struct {
	checked           checkedTransaction
	collisionEvicts   []StorageIndex
	capacityEvicts    []StorageIndex
}

// Insert runs the full admission pipeline and, on success,
// commits the transaction into the pool. Nothing is mutated if any check
// fails.
func (p *Pool) Insert(ctx context.Context, tx Tx) *Error {
	p.mu.Lock()
	defer p.mu.Unlock()

	plan, err := p.checkInsert(ctx, tx)
	if err != nil {
		p.metrics.onRejected()
		poolLog.Debug("rejected transaction", "txID", tx.ID(), "kind", err.Kind, "detail", err.Detail)
		return err
	}
	p.commitInsert(plan, tx)
	p.metrics.onInserted()
	p.metrics.setUsage(p.usageTxs, p.usageGas, p.usageBytes)
	poolLog.Debug("admitted transaction", "txID", tx.ID(), "tip", tx.Tip(), "gas", tx.MaxGas())
	return nil
}

func (p *Pool) checkInsert(ctx context.Context, tx Tx) (insertPlan, *Error) {
	if tx.MaxGas() == 0 {
		return insertPlan{}, ErrZeroMaxGas
	}
	if _, ok := p.storage.lookup(tx.ID()); ok {
		return insertPlan{}, ErrDuplicateTxId
	}
	if p.consensus != nil && tx.MaxGas() > p.consensus.MaxGasPerTx() {
		return insertPlan{}, newError(ErrKindInputsInvalid, "max_gas exceeds consensus max_gas_per_tx")
	}
	if err := p.cfg.BlackList.check(tx); err != nil {
		return insertPlan{}, err
	}
	if len(tx.Inputs()) == 0 {
		return insertPlan{}, newError(ErrKindInputsInvalid, "transaction has no inputs")
	}
	if p.cfg.UTXOValidation && p.persistent != nil {
		if err := p.validateInputs(ctx, tx); err != nil {
			return insertPlan{}, err
		}
	}
	if p.gasPrice != nil {
		if _, err := p.gasPrice.GasPrice(ctx); err != nil {
			return insertPlan{}, wrapError(ErrKindGasPriceNotFound, err)
		}
	}
	if p.wasm != nil {
		if kind := tx.Kind(); kind == KindCreate || kind == KindUpload || kind == KindUpgrade {
			// Implementations exposing WasmCode() are checked; others are
			// exempt (e.g. a Script tx never carries bytecode).
			if coder, ok := tx.(interface{ WasmCode() []byte }); ok {
				if err := p.wasm.CheckWasm(coder.WasmCode()); err != nil {
					return insertPlan{}, wrapError(ErrKindInputsInvalid, err)
				}
			}
		}
	}

	checked, err := p.storage.canStoreTransaction(tx)
	if err != nil {
		return insertPlan{}, err
	}

	collisions := p.collisions.findCollisions(tx)
	if kind, ok := blobCollisionKind(collisions); ok {
		_ = kind
		return insertPlan{}, &Error{Kind: ErrKindBlobIdAlreadyTaken, TxID: tx.ID()}
	}
	collisionEvicts, err := resolveCollisions(checked, collisions, p.storage)
	if err != nil {
		return insertPlan{}, err
	}

	// A candidate with unresolved dependencies is not executable, so it can
	// never drive eviction: if the pool doesn't already fit it once
	// collisionEvicts are accounted for, reject outright rather than ever
	// calling findFreeSpace (mirrors the original's can_fit_into_pool).
	if checked.parents.Cardinality() > 0 {
		freedGas, freedBytes, freedTxs := p.sumEvicted(collisionEvicts)
		if !p.fits(tx, freedGas, freedBytes, freedTxs) {
			return insertPlan{}, ErrLimitHit
		}
		return insertPlan{checked: checked, collisionEvicts: collisionEvicts}, nil
	}

	capacityEvicts, err := p.findFreeSpace(tx, collisionEvicts)
	if err != nil {
		return insertPlan{}, err
	}

	return insertPlan{checked: checked, collisionEvicts: collisionEvicts, capacityEvicts: capacityEvicts}, nil
}

// fits reports whether tx would fit within the pool's soft limits given that
// freedGas/freedBytes/freedTxs worth of already-stored transactions are
// about to be evicted.
func (p *Pool) fits(tx Tx, freedGas, freedBytes uint64, freedTxs int) bool {
	return p.usageTxs-freedTxs+1 <= p.cfg.PoolLimits.MaxTxs &&
		p.usageGas-freedGas+tx.MaxGas() <= p.cfg.PoolLimits.MaxGas &&
		p.usageBytes-freedBytes+tx.MeteredBytesSize() <= p.cfg.PoolLimits.MaxBytesSize
}

// blobCollisionKind reports whether any collision is a blob-id collision;
// blob ids are never ratio-competitive, a second claimant is always
// rejected outright.
func blobCollisionKind(collisions map[StorageIndex]colliderKind) (colliderKind, bool) {
	for _, k := range collisions {
		if k == colliderBlob {
			return k, true
		}
	}
	return 0, false
}

// validateInputs checks a transaction's ConfirmedUTXO, Message, and
// ContractRead inputs against the persistent chain view.
// UnconfirmedUTXO inputs are validated structurally by canStoreTransaction
// instead, since their producer is another pool transaction, not the chain.
func (p *Pool) validateInputs(ctx context.Context, tx Tx) *Error {
	for _, in := range tx.Inputs() {
		switch {
		case in.ConfirmedUTXO != nil:
			ok, err := p.persistent.UtxoExists(ctx, *in.ConfirmedUTXO)
			if err != nil {
				return wrapError(ErrKindDatabase, err)
			}
			if !ok {
				return newError(ErrKindInputsInvalid, "confirmed utxo does not exist")
			}
		case in.Message != nil:
			ok, err := p.persistent.MessageExists(ctx, *in.Message)
			if err != nil {
				return wrapError(ErrKindDatabase, err)
			}
			if !ok {
				return newError(ErrKindInputsInvalid, "message does not exist")
			}
		case in.ContractRead != nil:
			ok, err := p.persistent.ContractExists(ctx, *in.ContractRead)
			if err != nil {
				return wrapError(ErrKindDatabase, err)
			}
			if !ok {
				return newError(ErrKindInputsInvalid, "contract does not exist")
			}
		}
	}
	return nil
}

// findFreeSpace decides which already-stored transactions must be evicted
// to make room for tx, beyond whatever collisionEvicts already frees. It
// only ever walks the executable selection index, worst-worth first
// (mirrors the original's find_free_space, which deliberately never
// considers dependent transactions directly: evicting an executable
// transaction already cascades to its own dependent subtree, and
// considering dependents directly would let the same subtree be double
// counted against the budget). Each candidate is compared and deducted by
// its subtree aggregate (dependents_cumulative_tip/gas/bytes_size in the
// original), not its own per-tx values, since evicting it takes its whole
// subtree with it. It fails with ErrLimitHit if room cannot be made without
// evicting something whose subtree ratio is at least as good as tx's own.
func (p *Pool) findFreeSpace(tx Tx, collisionEvicts []StorageIndex) ([]StorageIndex, *Error) {
	freedGas, freedBytes, freedTxs := p.sumEvicted(collisionEvicts)
	if p.fits(tx, freedGas, freedBytes, freedTxs) {
		return nil, nil
	}

	already := make(map[StorageIndex]bool, len(collisionEvicts))
	for _, idx := range collisionEvicts {
		already[idx] = true
	}

	candidateRatio := ratio{tip: tx.Tip(), gas: tx.MaxGas()}
	var evicts []StorageIndex

	for _, idx := range p.selection.getLessWorthTxs(p.usageTxs) {
		if p.fits(tx, freedGas, freedBytes, freedTxs) {
			break
		}
		if already[idx] {
			continue
		}
		d, ok := p.storage.get(idx)
		if !ok {
			continue
		}
		if !candidateRatio.gt(ratio{tip: d.depTip, gas: d.depGas}) {
			break
		}
		already[idx] = true
		evicts = append(evicts, idx)
		freedTxs += int(d.depCount)
		freedGas += d.depGas
		freedBytes += d.depBytes
	}

	if !p.fits(tx, freedGas, freedBytes, freedTxs) {
		return nil, newError(ErrKindLimitHit, "cannot free enough space for candidate")
	}
	return evicts, nil
}

// sumEvicted totals the subtree-aggregate gas/bytes/tx-count that evicting
// each of idxs would actually free, since evict() takes each one's whole
// dependent subtree with it, not just the transaction itself.
func (p *Pool) sumEvicted(idxs []StorageIndex) (gas, bytes uint64, txs int) {
	for _, idx := range idxs {
		d, ok := p.storage.get(idx)
		if !ok {
			continue
		}
		gas += d.depGas
		bytes += d.depBytes
		txs += int(d.depCount)
	}
	return
}

// commitInsert applies a previously-computed insertPlan: evicts, stores,
// registers, and accounts for resource usage. It never fails.
func (p *Pool) commitInsert(plan insertPlan, tx Tx) {
	seen := make(map[StorageIndex]bool)
	for _, idx := range plan.collisionEvicts {
		seen[idx] = true
	}
	for _, idx := range plan.capacityEvicts {
		seen[idx] = true
	}
	for idx := range seen {
		p.evict(idx)
	}

	now := p.clock.Now()
	idx := p.storage.storeTransaction(plan.checked, now)
	p.collisions.onStoredTransaction(idx, tx)
	if plan.checked.parents.Cardinality() == 0 {
		p.selection.insert(idx, tx)
	}
	p.ttlQueue = append(p.ttlQueue, ttlEntry{instant: now, txID: tx.ID()})

	p.usageTxs++
	p.usageGas += tx.MaxGas()
	p.usageBytes += tx.MeteredBytesSize()
}

// evict fully removes idx and its dependent subtree, updating every index
// and the running usage totals. Used by both collision resolution and
// capacity eviction.
func (p *Pool) evict(idx StorageIndex) {
	records := p.storage.removeSubtreeCascade(idx)
	for _, rec := range records {
		p.selection.onRemovedTransaction(rec.idx)
		p.collisions.onRemovedTransaction(rec.idx, rec.tx)
		p.usageTxs--
		p.usageGas -= rec.tx.MaxGas()
		p.usageBytes -= rec.tx.MeteredBytesSize()
	}
	p.metrics.onEvicted(len(records))
}

// ExtractTransactionsForBlock selects up to maxCount transactions in
// best-worth-first order within the consensus block gas limit. It queries
// the current gas price once per call (the second documented suspension
// point, alongside admission's persistent-view check) so fee-limited
// transactions can be skipped at the price that actually applies to this
// extraction; a nil GasPriceProvider or a failed lookup is treated as a gas
// price of zero, i.e. no transaction is skipped on fee-limit grounds.
func (p *Pool) ExtractTransactionsForBlock(ctx context.Context, maxCount int) []Tx {
	p.mu.Lock()
	defer p.mu.Unlock()

	maxGas := p.cfg.MaxBlockGas
	if p.consensus != nil {
		maxGas = p.consensus.MaxBlockGas()
	}
	var gasPrice uint64
	if p.gasPrice != nil {
		if price, err := p.gasPrice.GasPrice(ctx); err == nil {
			gasPrice = price
		}
	}
	records := p.selection.gatherBestTxs(p.storage, maxGas, maxCount, gasPrice)

	out := make([]Tx, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.tx)
		p.collisions.onRemovedTransaction(rec.idx, rec.tx)
		p.usageTxs--
		p.usageGas -= rec.tx.MaxGas()
		p.usageBytes -= rec.tx.MeteredBytesSize()
	}
	p.metrics.onExtracted(len(out))
	p.metrics.setUsage(p.usageTxs, p.usageGas, p.usageBytes)
	return out
}

// RemoveTransactionsForBlock reconciles the pool against a confirmed block:
// every confirmed transaction is dropped from the pool if still present (it
// may already have been extracted by this node), and any pool transaction
// whose UTXO input the block itself consumed is removed as a now-invalid
// double-spend, even if that pool transaction was never itself confirmed.
func (p *Pool) RemoveTransactionsForBlock(block Block) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.currentHeight = block.Height
	for _, id := range block.ConfirmedTxIDs {
		if idx, ok := p.storage.lookup(id); ok {
			p.evict(idx)
		}
	}
	for _, spent := range block.ConfirmedUTXOInputs {
		if idx, ok := p.collisions.utxoSpender[spent]; ok {
			p.evict(idx)
		}
	}
}

// ExpireTTL evicts every pool transaction older than MaxTxsTTL, oldest
// first, stopping at the first entry still within the TTL window (grounded
// on the original's FIFO expiry queue).
func (p *Pool) ExpireTTL() {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.clock.Now()
	expired := 0
	for len(p.ttlQueue) > 0 {
		head := p.ttlQueue[0]
		if now.Sub(head.instant) < p.cfg.MaxTxsTTL {
			break
		}
		p.ttlQueue = p.ttlQueue[1:]
		if idx, ok := p.storage.lookup(head.txID); ok {
			p.evict(idx)
			expired++
		}
	}
	if expired > 0 {
		p.metrics.onExpired(expired)
		p.metrics.setUsage(p.usageTxs, p.usageGas, p.usageBytes)
		poolLog.Debug("expired transactions", "count", expired)
	}
}

// FindOne returns the transaction with the given id, if still pooled.
func (p *Pool) FindOne(id ids.TxID) (Tx, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx, ok := p.storage.lookup(id)
	if !ok {
		return nil, false
	}
	d, ok := p.storage.get(idx)
	if !ok {
		return nil, false
	}
	return d.tx, true
}

// Contains reports whether id is currently pooled.
func (p *Pool) Contains(id ids.TxID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.storage.lookup(id)
	return ok
}

// Len returns the current number of pooled transactions.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.usageTxs
}
