// (c) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package ids provides the identifier types shared by the pool core.
// It has no dependency on the pool package itself to avoid import cycles
// between storage, collision and selection.
package ids

import (
	"bytes"
	"fmt"
)

// TxID uniquely identifies a pool transaction.
type TxID [32]byte

// String returns the hex representation of the id.
func (id TxID) String() string {
	return fmt.Sprintf("%x", id[:])
}

// Compare gives TxID a total order, used as the final selection tie-break.
func (id TxID) Compare(other TxID) int {
	return bytes.Compare(id[:], other[:])
}

// ContractID identifies a deployed contract.
type ContractID [32]byte

func (id ContractID) String() string { return fmt.Sprintf("%x", id[:]) }

// BlobID identifies a blob produced by a Blob transaction.
type BlobID [32]byte

func (id BlobID) String() string { return fmt.Sprintf("%x", id[:]) }

// MessageNonce identifies a bridged relayer message.
type MessageNonce [32]byte

func (id MessageNonce) String() string { return fmt.Sprintf("%x", id[:]) }

// UtxoID references a single output slot produced by a transaction.
type UtxoID struct {
	TxID   TxID
	Output uint16
}

func (u UtxoID) String() string {
	return fmt.Sprintf("%x:%d", u.TxID[:], u.Output)
}
