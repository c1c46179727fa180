// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txpool

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/luxfi/txpool/ids"
	"github.com/luxfi/txpool/utils/set"
)

// Owned is an optional extension a Tx implementation may satisfy to expose
// an owning address for blacklist checks; the core data model
// does not otherwise carry one.
type Owned interface {
	Owner() [20]byte
}

// AssetSpender is an optional extension exposing the asset ids a tx moves.
type AssetSpender interface {
	AssetIDs() [][32]byte
}

// BlackList holds the banned resource sets: owners, asset ids,
// contract ids, message nonces, and coin-UTXO ids.
type BlackList struct {
	owners    set.Set[[20]byte]
	assetIDs  set.Set[[32]byte]
	contracts mapset.Set[ids.ContractID]
	messages  mapset.Set[ids.MessageNonce]
	coins     mapset.Set[ids.UtxoID]
}

// NewBlackList returns an empty blacklist. owners/assetIDs only ever need
// Add/Contains, so they use the small scratch set.Set rather than
// mapset.Set's fuller algebra.
func NewBlackList() BlackList {
	return BlackList{
		owners:    set.New[[20]byte](),
		assetIDs:  set.New[[32]byte](),
		contracts: mapset.NewSet[ids.ContractID](),
		messages:  mapset.NewSet[ids.MessageNonce](),
		coins:     mapset.NewSet[ids.UtxoID](),
	}
}

func (b *BlackList) AddOwner(o [20]byte)          { b.owners.Add(o) }
func (b *BlackList) AddAssetID(a [32]byte)        { b.assetIDs.Add(a) }
func (b *BlackList) AddContract(c ids.ContractID) { b.contracts.Add(c) }
func (b *BlackList) AddMessage(m ids.MessageNonce) { b.messages.Add(m) }
func (b *BlackList) AddCoin(u ids.UtxoID)         { b.coins.Add(u) }

// check returns ErrBlacklisted if tx touches any banned resource.
func (b *BlackList) check(tx Tx) *Error {
	if owned, ok := tx.(Owned); ok && b.owners.Contains(owned.Owner()) {
		return newError(ErrKindBlacklisted, "owner is blacklisted")
	}
	if spender, ok := tx.(AssetSpender); ok {
		for _, a := range spender.AssetIDs() {
			if b.assetIDs.Contains(a) {
				return newError(ErrKindBlacklisted, "asset id is blacklisted")
			}
		}
	}
	if cid, ok := tx.ContractID(); ok && b.contracts.Contains(cid) {
		return newError(ErrKindBlacklisted, "contract id is blacklisted")
	}
	for _, in := range tx.Inputs() {
		if in.Message != nil && b.messages.Contains(*in.Message) {
			return newError(ErrKindBlacklisted, "message nonce is blacklisted")
		}
		if in.ConfirmedUTXO != nil && b.coins.Contains(*in.ConfirmedUTXO) {
			return newError(ErrKindBlacklisted, "coin utxo id is blacklisted")
		}
		if in.UnconfirmedUTXO != nil && b.coins.Contains(*in.UnconfirmedUTXO) {
			return newError(ErrKindBlacklisted, "coin utxo id is blacklisted")
		}
	}
	return nil
}
