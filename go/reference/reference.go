// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package reference provides host implementations of the functions
// exercised by the example programs. They serve as oracles in equivalence
// checks.
package reference

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/kkrt-labs/cairo-runner/go/cairo"
)

const ErrValueOutOfRange = cairo.ConstError("value out of range")

// maxUint128 is 2^128 - 1, the largest value accepted by the range-check
// builtin.
var maxUint128 = new(uint256.Int).Sub(new(uint256.Int).Lsh(uint256.NewInt(1), 128), uint256.NewInt(1))

// MaxDivisor is the largest divisor DivMod accepts, PRIME // (2^128 - 1) - 1.
var MaxDivisor = func() *uint256.Int {
	res := new(big.Int).Div(cairo.Prime(), maxUint128.ToBig())
	res.Sub(res, big.NewInt(1))
	return uint256.MustFromBig(res)
}()

// MaxUint128 returns 2^128 - 1.
func MaxUint128() *uint256.Int {
	return maxUint128.Clone()
}

// Min returns the smaller of two values. Both values must be below 2^128.
func Min(a, b *uint256.Int) (*uint256.Int, error) {
	if a.Gt(maxUint128) || b.Gt(maxUint128) {
		return nil, ErrValueOutOfRange
	}
	if a.Lt(b) {
		return a.Clone(), nil
	}
	return b.Clone(), nil
}

// DivMod returns the quotient and remainder of an unsigned division. The
// value must be below 2^128 and the divisor in [1, MaxDivisor].
func DivMod(value, div *uint256.Int) (q, r *uint256.Int, err error) {
	if div.IsZero() {
		return nil, nil, cairo.ErrDivisionByZero
	}
	if value.Gt(maxUint128) || div.Gt(MaxDivisor) {
		return nil, nil, ErrValueOutOfRange
	}
	q, r = new(uint256.Int), new(uint256.Int)
	q.DivMod(value, div, r)
	return q, r, nil
}

// BytesToNibbleList splits every byte into its high and low nibble,
// preserving the order of the bytes.
func BytesToNibbleList(data []byte) []byte {
	res := make([]byte, 0, 2*len(data))
	for _, b := range data {
		res = append(res, b>>4, b&0x0f)
	}
	return res
}
