// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txpool

import (
	"errors"
	"fmt"

	"github.com/luxfi/txpool/ids"
)

// ErrorKind enumerates the caller-observable admission/extraction failures.
type ErrorKind uint8

const (
	ErrKindUnknown ErrorKind = iota
	ErrKindZeroMaxGas
	ErrKindDuplicateTxId
	ErrKindBlacklisted
	ErrKindBlobIdAlreadyTaken
	ErrKindInputsInvalid
	ErrKindCollisionIsDependency
	ErrKindCollided
	ErrKindLimitHit
	ErrKindChainTooLong
	ErrKindGasPriceNotFound
	ErrKindDatabase
	ErrKindQueueFull
)

var kindNames = map[ErrorKind]string{
	ErrKindUnknown:               "unknown",
	ErrKindZeroMaxGas:            "zero_max_gas",
	ErrKindDuplicateTxId:         "duplicate_tx_id",
	ErrKindBlacklisted:           "blacklisted",
	ErrKindBlobIdAlreadyTaken:    "blob_id_already_taken",
	ErrKindInputsInvalid:         "inputs_invalid",
	ErrKindCollisionIsDependency: "collision_is_dependency",
	ErrKindCollided:              "collided",
	ErrKindLimitHit:              "limit_hit",
	ErrKindChainTooLong:          "chain_too_long",
	ErrKindGasPriceNotFound:      "gas_price_not_found",
	ErrKindDatabase:              "database",
	ErrKindQueueFull:             "queue_full",
}

func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Error is the single error type returned by the pool's public API. It is
// comparable via errors.Is against the sentinel Err* values below (matched
// on Kind, not on the enclosed detail).
type Error struct {
	Kind     ErrorKind
	TxID     ids.TxID
	Collider ids.TxID
	Detail   string
	cause    error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("txpool: %s: %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("txpool: %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.cause }

// Is makes Error comparable by Kind against the sentinel values, so callers
// can write errors.Is(err, txpool.ErrChainTooLong).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newError(kind ErrorKind, detail string) *Error {
	return &Error{Kind: kind, Detail: detail}
}

func wrapError(kind ErrorKind, cause error) *Error {
	return &Error{Kind: kind, Detail: cause.Error(), cause: cause}
}

// Sentinel values for errors.Is matching. Only Kind is compared.
var (
	ErrZeroMaxGas            = &Error{Kind: ErrKindZeroMaxGas}
	ErrDuplicateTxId         = &Error{Kind: ErrKindDuplicateTxId}
	ErrBlacklisted           = &Error{Kind: ErrKindBlacklisted}
	ErrBlobIdAlreadyTaken    = &Error{Kind: ErrKindBlobIdAlreadyTaken}
	ErrInputsInvalid         = &Error{Kind: ErrKindInputsInvalid}
	ErrCollisionIsDependency = &Error{Kind: ErrKindCollisionIsDependency}
	ErrCollided              = &Error{Kind: ErrKindCollided}
	ErrLimitHit              = &Error{Kind: ErrKindLimitHit}
	ErrChainTooLong          = &Error{Kind: ErrKindChainTooLong}
	ErrGasPriceNotFound      = &Error{Kind: ErrKindGasPriceNotFound}
	ErrQueueFull             = &Error{Kind: ErrKindQueueFull}
)

// errNotFound is an internal sentinel for missing storage/tx lookups; it
// never crosses the public API (callers see a nil instead).
var errNotFound = errors.New("txpool: not found")
