// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txpool

import "github.com/luxfi/txpool/ids"

// colliderKind identifies why an in-pool transaction collides with a
// candidate.
type colliderKind uint8

const (
	colliderUTXO colliderKind = iota
	colliderMessage
	colliderContract
	colliderBlob
)

func (k colliderKind) String() string {
	switch k {
	case colliderUTXO:
		return "utxo"
	case colliderMessage:
		return "message"
	case colliderContract:
		return "contract"
	case colliderBlob:
		return "blob"
	default:
		return "unknown"
	}
}

// collisionManager tracks, for each exclusively-claimable resource a pool
// transaction may touch, which StorageIndex currently holds it. A resource
// is held by at most one pool transaction at a time; a second claimant is a
// collision that must be resolved before admission. A UTXO double-spend
// collides regardless of whether the spent output is confirmed on-chain or
// still unconfirmed in the pool, so both input kinds share one index keyed
// by ids.UtxoID; only parent/producer resolution in storage.go cares about
// the confirmed/unconfirmed distinction.
type collisionManager struct {
	utxoSpender     map[ids.UtxoID]StorageIndex
	messageSpender  map[ids.MessageNonce]StorageIndex
	contractCreator map[ids.ContractID]StorageIndex
	blobCreator     map[ids.BlobID]StorageIndex
}

func newCollisionManager() *collisionManager {
	return &collisionManager{
		utxoSpender:     make(map[ids.UtxoID]StorageIndex),
		messageSpender:  make(map[ids.MessageNonce]StorageIndex),
		contractCreator: make(map[ids.ContractID]StorageIndex),
		blobCreator:     make(map[ids.BlobID]StorageIndex),
	}
}

// findCollisions reports every in-pool transaction that claims a resource
// tx also claims, keyed by the kind of collision.
func (c *collisionManager) findCollisions(tx Tx) map[StorageIndex]colliderKind {
	var result map[StorageIndex]colliderKind
	add := func(idx StorageIndex, kind colliderKind) {
		if result == nil {
			result = make(map[StorageIndex]colliderKind)
		}
		result[idx] = kind
	}

	for _, in := range tx.Inputs() {
		if in.UnconfirmedUTXO != nil {
			if idx, ok := c.utxoSpender[*in.UnconfirmedUTXO]; ok {
				add(idx, colliderUTXO)
			}
		}
		if in.ConfirmedUTXO != nil {
			if idx, ok := c.utxoSpender[*in.ConfirmedUTXO]; ok {
				add(idx, colliderUTXO)
			}
		}
		if in.Message != nil {
			if idx, ok := c.messageSpender[*in.Message]; ok {
				add(idx, colliderMessage)
			}
		}
	}
	if cid, ok := tx.ContractID(); ok {
		if idx, ok2 := c.contractCreator[cid]; ok2 {
			add(idx, colliderContract)
		}
	}
	if bid, ok := tx.BlobID(); ok {
		if idx, ok2 := c.blobCreator[bid]; ok2 {
			add(idx, colliderBlob)
		}
	}
	return result
}

// onStoredTransaction registers idx as the current holder of every resource
// tx claims.
func (c *collisionManager) onStoredTransaction(idx StorageIndex, tx Tx) {
	for _, in := range tx.Inputs() {
		if in.UnconfirmedUTXO != nil {
			c.utxoSpender[*in.UnconfirmedUTXO] = idx
		}
		if in.ConfirmedUTXO != nil {
			c.utxoSpender[*in.ConfirmedUTXO] = idx
		}
		if in.Message != nil {
			c.messageSpender[*in.Message] = idx
		}
	}
	if cid, ok := tx.ContractID(); ok {
		c.contractCreator[cid] = idx
	}
	if bid, ok := tx.BlobID(); ok {
		c.blobCreator[bid] = idx
	}
}

// onRemovedTransaction releases every resource claim idx held for tx,
// provided idx is still the registered holder (it may already have been
// overwritten by a later collision winner).
func (c *collisionManager) onRemovedTransaction(idx StorageIndex, tx Tx) {
	for _, in := range tx.Inputs() {
		if in.UnconfirmedUTXO != nil {
			if cur, ok := c.utxoSpender[*in.UnconfirmedUTXO]; ok && cur == idx {
				delete(c.utxoSpender, *in.UnconfirmedUTXO)
			}
		}
		if in.ConfirmedUTXO != nil {
			if cur, ok := c.utxoSpender[*in.ConfirmedUTXO]; ok && cur == idx {
				delete(c.utxoSpender, *in.ConfirmedUTXO)
			}
		}
		if in.Message != nil {
			if cur, ok := c.messageSpender[*in.Message]; ok && cur == idx {
				delete(c.messageSpender, *in.Message)
			}
		}
	}
	if cid, ok := tx.ContractID(); ok {
		if cur, ok2 := c.contractCreator[cid]; ok2 && cur == idx {
			delete(c.contractCreator, cid)
		}
	}
	if bid, ok := tx.BlobID(); ok {
		if cur, ok2 := c.blobCreator[bid]; ok2 && cur == idx {
			delete(c.blobCreator, bid)
		}
	}
}

// resolveCollisions decides whether checked may displace every transaction
// it collides with. A candidate that has any dependency of its own may
// never displace anything: it rejects with Collided on the first collision,
// full stop, regardless of ratio. A collision with one of checked's own
// dependencies is always rejected outright too. Otherwise checked's own
// tip/gas ratio must strictly exceed the subtree ratio of every collider it
// would evict. A tie or a loss rejects the whole candidate; nothing is
// mutated until the caller commits the returned eviction set.
func resolveCollisions(checked checkedTransaction, collisions map[StorageIndex]colliderKind, st *storage) ([]StorageIndex, *Error) {
	if len(collisions) == 0 {
		return nil, nil
	}
	candidate := ratio{tip: checked.tx.Tip(), gas: checked.tx.MaxGas()}
	hasDependencies := checked.parents.Cardinality() > 0

	evict := make([]StorageIndex, 0, len(collisions))
	for idx, kind := range collisions {
		if checked.parents.Contains(idx) {
			return nil, newError(ErrKindCollisionIsDependency,
				"candidate collides with one of its own dependencies")
		}
		if hasDependencies {
			d, _ := st.get(idx)
			var colliderID ids.TxID
			if d != nil {
				colliderID = d.tx.ID()
			}
			return nil, &Error{
				Kind:     ErrKindCollided,
				TxID:     checked.tx.ID(),
				Collider: colliderID,
				Detail:   kind.String() + " collision, dependent candidate may not evict",
			}
		}
		d, ok := st.get(idx)
		if !ok {
			continue
		}
		colliderRatio := ratio{tip: d.depTip, gas: d.depGas}
		if !candidate.gt(colliderRatio) {
			return nil, &Error{
				Kind:     ErrKindCollided,
				TxID:     checked.tx.ID(),
				Collider: d.tx.ID(),
				Detail:   kind.String() + " collision, candidate ratio does not exceed collider",
			}
		}
		evict = append(evict, idx)
	}
	return evict, nil
}
