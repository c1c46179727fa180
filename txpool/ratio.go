// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package txpool

import "github.com/holiman/uint256"

// ratio is a tip/gas fraction kept unreduced (numerator, denominator) so
// comparisons never lose precision to floating point. Gas is always
// strictly positive by the time a ratio is constructed (ZeroMaxGas is
// rejected on admission), so denominator == 0 never reaches compare.
type ratio struct {
	tip uint64
	gas uint64
}

// compare returns -1, 0, or 1 as r is less than, equal to, or greater than
// other, computed as tip*other.gas vs other.tip*gas via 256-bit
// multiplication to avoid uint64 overflow at max_gas/tip extremes.
func (r ratio) compare(other ratio) int {
	lhs := new(uint256.Int).Mul(uint256.NewInt(r.tip), uint256.NewInt(other.gas))
	rhs := new(uint256.Int).Mul(uint256.NewInt(other.tip), uint256.NewInt(r.gas))
	return lhs.Cmp(rhs)
}

func (r ratio) gt(other ratio) bool { return r.compare(other) > 0 }
func (r ratio) lt(other ratio) bool { return r.compare(other) < 0 }
