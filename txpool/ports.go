// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txpool

import (
	"context"

	"github.com/luxfi/txpool/ids"
)

// PersistentStorageView is the confirmed-chain view the pool consults to
// validate a candidate's ConfirmedUTXO/Message/ContractRead inputs.
// Implementations typically wrap the node's committed database; the pool
// never writes through this port.
type PersistentStorageView interface {
	UtxoExists(ctx context.Context, id ids.UtxoID) (bool, error)
	MessageExists(ctx context.Context, nonce ids.MessageNonce) (bool, error)
	ContractExists(ctx context.Context, id ids.ContractID) (bool, error)
}

// ConsensusParametersProvider exposes the chain parameters the pool enforces
// at admission time.
type ConsensusParametersProvider interface {
	MaxGasPerTx() uint64
	MaxBlockGas() uint64
}

// GasPriceProvider supplies the current gas price, which extraction uses to
// skip FeeLimited transactions whose max fee would exceed their limit;
// admission fails with ErrGasPriceNotFound when this is unavailable.
type GasPriceProvider interface {
	GasPrice(ctx context.Context) (uint64, error)
}

// WasmChecker validates the bytecode carried by contract-creation,
// contract-upload and upgrade transactions.
type WasmChecker interface {
	CheckWasm(code []byte) error
}

// PeerID identifies a connected p2p peer. The pool treats it as opaque.
type PeerID string

// P2P is the gossip transport the service loop drains: inbound
// transactions to admit, newly connected peers to sync against, and
// outbound broadcast of admitted transactions and validity reports.
type P2P interface {
	BroadcastTx(ctx context.Context, tx Tx) error
	ReportValidity(ctx context.Context, from PeerID, txID ids.TxID, valid bool) error
	TxStream() <-chan GossipTx
	NewPeerStream() <-chan PeerID
}

// GossipTx pairs an inbound transaction with the peer that relayed it, so
// the service loop can report validity back to the right peer.
type GossipTx struct {
	From PeerID
	Tx   Tx
}

// Block is the minimal confirmed-block view the pool needs to reconcile
// itself against the chain during block import.
type Block struct {
	Height              uint64
	ConfirmedTxIDs      []ids.TxID
	ConfirmedUTXOInputs []ids.UtxoID
}

// BlockImporter streams newly confirmed blocks.
type BlockImporter interface {
	ImportedBlocks() <-chan Block
}

// MemoryPool is the public surface of Pool, expressed as an interface so a
// caller can be driven against a fake. service.Service itself holds a
// concrete *Pool.
type MemoryPool interface {
	Insert(ctx context.Context, tx Tx) *Error
	ExtractTransactionsForBlock(ctx context.Context, maxCount int) []Tx
	RemoveTransactionsForBlock(block Block)
	FindOne(id ids.TxID) (Tx, bool)
	Contains(id ids.TxID) bool
	Len() int
}
