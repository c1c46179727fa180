// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txpool

import "github.com/luxfi/txpool/ids"

// fakeTx is a minimal Tx implementation for exercising the pool core in
// isolation from any real transaction format.
type fakeTx struct {
	id      ids.TxID
	maxGas  uint64
	tip     uint64
	size    uint64
	inputs  []Input
	outputs []Output
	kind    Kind

	blobID     ids.BlobID
	hasBlob    bool
	contractID ids.ContractID
	hasContract bool
}

func (t *fakeTx) ID() ids.TxID             { return t.id }
func (t *fakeTx) MaxGas() uint64           { return t.maxGas }
func (t *fakeTx) Tip() uint64              { return t.tip }
func (t *fakeTx) MeteredBytesSize() uint64 { return t.size }
func (t *fakeTx) Inputs() []Input          { return t.inputs }
func (t *fakeTx) Outputs() []Output        { return t.outputs }
func (t *fakeTx) Kind() Kind               { return t.kind }
func (t *fakeTx) BlobID() (ids.BlobID, bool)         { return t.blobID, t.hasBlob }
func (t *fakeTx) ContractID() (ids.ContractID, bool) { return t.contractID, t.hasContract }

func txID(b byte) ids.TxID {
	var id ids.TxID
	id[31] = b
	return id
}

func confirmedUTXO(b byte, out uint16) ids.UtxoID {
	return ids.UtxoID{TxID: txID(b), Output: out}
}

// newFakeTx builds a simple single-input, single-output transaction spending
// a confirmed UTXO, with no dependency on any other pool transaction.
func newFakeTx(id byte, tip, gas uint64) *fakeTx {
	in := confirmedUTXO(id+100, 0)
	return &fakeTx{
		id:      txID(id),
		maxGas:  gas,
		tip:     tip,
		size:    100,
		inputs:  []Input{{ConfirmedUTXO: &in}},
		outputs: []Output{{Index: 0}},
		kind:    KindScript,
	}
}

// newChildTx builds a transaction spending output 0 of parent.
func newChildTx(id byte, parent *fakeTx, tip, gas uint64) *fakeTx {
	in := ids.UtxoID{TxID: parent.id, Output: 0}
	return &fakeTx{
		id:      txID(id),
		maxGas:  gas,
		tip:     tip,
		size:    100,
		inputs:  []Input{{UnconfirmedUTXO: &in}},
		outputs: []Output{{Index: 0}},
		kind:    KindScript,
	}
}

// feeLimitedTx wraps a fakeTx with a self-declared MaxFeeLimit, satisfying
// the optional FeeLimited extension interface.
type feeLimitedTx struct {
	*fakeTx
	maxFeeLimit uint64
}

func (t *feeLimitedTx) MaxFeeLimit() uint64 { return t.maxFeeLimit }

func newFeeLimitedTx(id byte, tip, gas, maxFeeLimit uint64) *feeLimitedTx {
	return &feeLimitedTx{fakeTx: newFakeTx(id, tip, gas), maxFeeLimit: maxFeeLimit}
}
