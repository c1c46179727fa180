// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package txpool implements the in-memory transaction pool core of a
// blockchain node: admission, the unconfirmed-UTXO dependency graph,
// collision resolution, and tip/gas selection for block assembly.
package txpool

import "github.com/luxfi/txpool/ids"

// Kind identifies the shape of a pool transaction.
type Kind uint8

const (
	KindScript Kind = iota
	KindCreate
	KindUpgrade
	KindUpload
	KindBlob
)

func (k Kind) String() string {
	switch k {
	case KindScript:
		return "script"
	case KindCreate:
		return "create"
	case KindUpgrade:
		return "upgrade"
	case KindUpload:
		return "upload"
	case KindBlob:
		return "blob"
	default:
		return "unknown"
	}
}

// Input is a single resource claim made by a transaction: it either spends an
// unconfirmed output produced by another pool transaction, a confirmed UTXO,
// a relayer message, or reads a contract. At most one of the fields is set.
type Input struct {
	UnconfirmedUTXO *ids.UtxoID
	ConfirmedUTXO   *ids.UtxoID
	Message         *ids.MessageNonce
	ContractRead    *ids.ContractID
}

// Output is a single produced UTXO slot, indexed by position within the tx.
type Output struct {
	Index uint16
}

// Tx is the opaque transaction the pool observes. Implementations are
// supplied by the caller; the core never constructs one itself.
type Tx interface {
	ID() ids.TxID
	MaxGas() uint64
	Tip() uint64
	MeteredBytesSize() uint64
	Inputs() []Input
	Outputs() []Output
	Kind() Kind
	// BlobID is only meaningful when Kind() == KindBlob.
	BlobID() (ids.BlobID, bool)
	// ContractID is only meaningful when Kind() == KindCreate.
	ContractID() (ids.ContractID, bool)
}

// FeeLimited is an optional extension a Tx implementation may satisfy to cap
// the fee it is willing to pay at the chain's current gas price; a Tx
// without it has no such cap and is never skipped on this basis.
type FeeLimited interface {
	// MaxFeeLimit is the largest MaxGas()*gasPrice the submitter will accept.
	MaxFeeLimit() uint64
}

// StorageIndex is an arena handle into Storage. It is never a raw pointer;
// the generation field lets Storage detect use of a stale handle after the
// slot has been recycled.
type StorageIndex struct {
	slot uint32
	gen  uint32
}

// Valid reports whether the index refers to a slot at all (the zero value is
// never a live handle because generations start at 1).
func (s StorageIndex) Valid() bool { return s.gen != 0 }
