// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package cairo

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/stark-curve/fp"
)

// Felt is an element of the STARK field, the universal value type of the
// Cairo machine. The zero value is the field element 0. Felts are always
// reduced into [0, PRIME) and are comparable with ==.
type Felt struct {
	v fp.Element
}

// prime is the STARK field modulus 2^251 + 17*2^192 + 1.
var prime = fp.Modulus()

// Prime returns a copy of the field modulus.
func Prime() *big.Int {
	return new(big.Int).Set(prime)
}

// RangeCheckBound is the exclusive upper bound of values accepted by the
// range-check builtin (2^128).
func RangeCheckBound() *big.Int {
	return new(big.Int).Lsh(big.NewInt(1), 128)
}

// FeltFromUint64 creates a Felt from an unsigned integer.
func FeltFromUint64(v uint64) Felt {
	var res Felt
	res.v.SetUint64(v)
	return res
}

// FeltFromInt64 creates a Felt from a signed integer. Negative values wrap
// around the modulus, thus FeltFromInt64(-1) == PRIME - 1.
func FeltFromInt64(v int64) Felt {
	if v >= 0 {
		return FeltFromUint64(uint64(v))
	}
	return FeltFromBig(big.NewInt(v))
}

// FeltFromBig creates a Felt from an arbitrary integer, reducing it modulo
// PRIME. A nil input results in zero.
func FeltFromBig(v *big.Int) Felt {
	var res Felt
	if v == nil {
		return res
	}
	reduced := new(big.Int).Mod(v, prime)
	res.v.SetBigInt(reduced)
	return res
}

// FeltFromHex parses a 0x-prefixed hexadecimal string. Unlike FeltFromBig,
// values outside of [0, PRIME) are rejected.
func FeltFromHex(s string) (Felt, error) {
	digits, found := strings.CutPrefix(strings.ToLower(s), "0x")
	if !found || len(digits) == 0 {
		return Felt{}, fmt.Errorf("invalid hex field element %q", s)
	}
	value, ok := new(big.Int).SetString(digits, 16)
	if !ok {
		return Felt{}, fmt.Errorf("invalid hex field element %q", s)
	}
	if value.Cmp(prime) >= 0 {
		return Felt{}, fmt.Errorf("field element %q exceeds the field modulus", s)
	}
	return FeltFromBig(value), nil
}

func (f Felt) Add(o Felt) Felt {
	var res Felt
	res.v.Add(&f.v, &o.v)
	return res
}

func (f Felt) Sub(o Felt) Felt {
	var res Felt
	res.v.Sub(&f.v, &o.v)
	return res
}

func (f Felt) Mul(o Felt) Felt {
	var res Felt
	res.v.Mul(&f.v, &o.v)
	return res
}

func (f Felt) Neg() Felt {
	var res Felt
	res.v.Neg(&f.v)
	return res
}

// Div computes f * o^-1. Division is undefined for o == 0.
func (f Felt) Div(o Felt) (Felt, error) {
	if o.IsZero() {
		return Felt{}, ErrDivisionByZero
	}
	var res Felt
	res.v.Div(&f.v, &o.v)
	return res, nil
}

func (f Felt) IsZero() bool {
	return f.v.IsZero()
}

// Cmp compares the canonical integer representations of f and o.
func (f Felt) Cmp(o Felt) int {
	return f.v.Cmp(&o.v)
}

func (f Felt) IsUint64() bool {
	return f.v.IsUint64()
}

// Uint64 returns the lowest 64 bits of the canonical representation.
func (f Felt) Uint64() uint64 {
	return f.v.Uint64()
}

// Big returns the canonical integer representation in [0, PRIME).
func (f Felt) Big() *big.Int {
	return f.v.BigInt(new(big.Int))
}

// BitLen returns the number of bits of the canonical representation.
func (f Felt) BitLen() int {
	return f.Big().BitLen()
}

func (f Felt) String() string {
	return f.Big().String()
}

// Hex returns the 0x-prefixed hexadecimal form used in program artifacts.
func (f Felt) Hex() string {
	return "0x" + f.Big().Text(16)
}
