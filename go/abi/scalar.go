// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package abi

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/kkrt-labs/cairo-runner/go/cairo"
)

// Felt encodes integers as a single field element. Values are reduced
// modulo the field prime, thus negative values wrap around. Decoded values
// are *big.Int in [0, PRIME).
var Felt Type = feltType{}

type feltType struct{}

func (feltType) Name() string { return "felt" }

func (t feltType) Encode(value any) ([]cairo.Felt, error) {
	if f, ok := value.(cairo.Felt); ok {
		return []cairo.Felt{f}, nil
	}
	v, ok := toBig(value)
	if !ok {
		return nil, encodingError(t, "unsupported host value of type %T", value)
	}
	return []cairo.Felt{cairo.FeltFromBig(v)}, nil
}

func (t feltType) decode(r *reader) (any, error) {
	f, err := r.next(t)
	if err != nil {
		return nil, err
	}
	return f.Big(), nil
}

// Uint returns the type of unsigned integers of the given bit width.
// Integers of up to 251 bits are encoded as a single field element; wider
// integers are split into 128-bit limbs, least significant limb first.
// Decoded values are *big.Int.
func Uint(bits int) Type {
	if bits <= 0 {
		panic(fmt.Sprintf("invalid integer width %d", bits))
	}
	return uintType{bits: bits}
}

type uintType struct {
	bits int
}

const limbBits = 128

var limbMask = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), limbBits), big.NewInt(1))

func (t uintType) Name() string { return fmt.Sprintf("uint%d", t.bits) }

func (t uintType) limbs() int {
	if t.bits <= 251 {
		return 1
	}
	return (t.bits + limbBits - 1) / limbBits
}

func (t uintType) Encode(value any) ([]cairo.Felt, error) {
	v, ok := toBig(value)
	if !ok {
		return nil, encodingError(t, "unsupported host value of type %T", value)
	}
	if v.Sign() < 0 || v.BitLen() > t.bits {
		return nil, encodingError(t, "value %v out of range", v)
	}
	if t.limbs() == 1 {
		return []cairo.Felt{cairo.FeltFromBig(v)}, nil
	}
	res := make([]cairo.Felt, t.limbs())
	for i := range res {
		limb := new(big.Int).And(v, limbMask)
		res[i] = cairo.FeltFromBig(limb)
		v.Rsh(v, limbBits)
	}
	return res, nil
}

func (t uintType) decode(r *reader) (any, error) {
	if t.limbs() == 1 {
		f, err := r.next(t)
		if err != nil {
			return nil, err
		}
		if f.BitLen() > t.bits {
			return nil, decodingError(t, "value %v out of range", f)
		}
		return f.Big(), nil
	}
	res := new(big.Int)
	for i := 0; i < t.limbs(); i++ {
		f, err := r.next(t)
		if err != nil {
			return nil, err
		}
		if f.BitLen() > limbBits {
			return nil, decodingError(t, "limb %d holds %v, exceeding 128 bits", i, f)
		}
		res.Or(res, new(big.Int).Lsh(f.Big(), uint(i*limbBits)))
	}
	if res.BitLen() > t.bits {
		return nil, decodingError(t, "value %v out of range", res)
	}
	return res, nil
}

// U256 encodes 256-bit unsigned integers as two 128-bit limbs (low, high),
// matching the Uint256 struct of the Cairo common library. Host values are
// *uint256.Int or *big.Int; decoded values are *uint256.Int.
var U256 Type = u256Type{}

type u256Type struct{}

func (u256Type) Name() string { return "Uint256" }

func (t u256Type) Encode(value any) ([]cairo.Felt, error) {
	v, ok := toBig(value)
	if !ok {
		return nil, encodingError(t, "unsupported host value of type %T", value)
	}
	if v.Sign() < 0 {
		return nil, encodingError(t, "value %v out of range", v)
	}
	word, overflow := uint256.FromBig(v)
	if overflow {
		return nil, encodingError(t, "value %v out of range", v)
	}
	low := new(uint256.Int).And(word, u256LowMask)
	high := new(uint256.Int).Rsh(word, limbBits)
	return []cairo.Felt{
		cairo.FeltFromBig(low.ToBig()),
		cairo.FeltFromBig(high.ToBig()),
	}, nil
}

var u256LowMask = new(uint256.Int).Rsh(new(uint256.Int).SetAllOne(), limbBits)

func (t u256Type) decode(r *reader) (any, error) {
	var limbs [2]*uint256.Int
	for i := range limbs {
		f, err := r.next(t)
		if err != nil {
			return nil, err
		}
		if f.BitLen() > limbBits {
			return nil, decodingError(t, "limb %d holds %v, exceeding 128 bits", i, f)
		}
		limbs[i], _ = uint256.FromBig(f.Big())
	}
	res := new(uint256.Int).Lsh(limbs[1], limbBits)
	return res.Or(res, limbs[0]), nil
}

// Bool encodes booleans as 0 and 1.
var Bool Type = boolType{}

type boolType struct{}

func (boolType) Name() string { return "bool" }

func (t boolType) Encode(value any) ([]cairo.Felt, error) {
	v, ok := value.(bool)
	if !ok {
		return nil, encodingError(t, "unsupported host value of type %T", value)
	}
	if v {
		return []cairo.Felt{cairo.FeltFromUint64(1)}, nil
	}
	return []cairo.Felt{{}}, nil
}

func (t boolType) decode(r *reader) (any, error) {
	f, err := r.next(t)
	if err != nil {
		return nil, err
	}
	switch {
	case f.IsZero():
		return false, nil
	case f == cairo.FeltFromUint64(1):
		return true, nil
	}
	return nil, decodingError(t, "value %v is neither 0 nor 1", f)
}

// Felts returns the type of fixed-size sequences of field elements. It
// serves members without a more specific type hint; decoded values are
// []any holding *big.Int.
func Felts(n int) Type {
	return feltsType{n: n}
}

type feltsType struct {
	n int
}

func (t feltsType) Name() string { return fmt.Sprintf("felt[%d]", t.n) }

func (t feltsType) Encode(value any) ([]cairo.Felt, error) {
	elements, ok := asSlice(value)
	if !ok {
		return nil, encodingError(t, "unsupported host value of type %T", value)
	}
	if len(elements) != t.n {
		return nil, encodingError(t, "expected %d elements, got %d", t.n, len(elements))
	}
	res := make([]cairo.Felt, 0, t.n)
	for _, e := range elements {
		cells, err := Felt.Encode(e)
		if err != nil {
			return nil, encodingError(t, "%v", err)
		}
		res = append(res, cells...)
	}
	return res, nil
}

func (t feltsType) decode(r *reader) (any, error) {
	res := make([]any, 0, t.n)
	for i := 0; i < t.n; i++ {
		f, err := r.next(t)
		if err != nil {
			return nil, err
		}
		res = append(res, f.Big())
	}
	return res, nil
}
