// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package abi converts host values to sequences of field elements and back.
// The conversion of each value is governed by a Type, acting as a type
// hint for the Cairo value the sequence represents.
package abi

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/kkrt-labs/cairo-runner/go/cairo"
)

// Type is the type hint of an encoded value.
type Type interface {
	// Name is a short description of the type used in error messages.
	Name() string

	// Encode converts a host value into its encoded form. Values not
	// accepted by the type are reported as *cairo.EncodingError.
	Encode(value any) ([]cairo.Felt, error)

	decode(r *reader) (any, error)
}

// Encode converts a host value into a sequence of field elements.
func Encode(t Type, value any) ([]cairo.Felt, error) {
	return t.Encode(value)
}

// Decode converts a sequence of field elements into a host value. The
// sequence must be consumed completely.
func Decode(t Type, cells []cairo.Felt) (any, error) {
	res, used, err := DecodePrefix(t, cells)
	if err != nil {
		return nil, err
	}
	if used != len(cells) {
		return nil, decodingError(t, "%d trailing cells", len(cells)-used)
	}
	return res, nil
}

// DecodePrefix converts the leading field elements of a sequence into a
// host value and reports the number of consumed cells.
func DecodePrefix(t Type, cells []cairo.Felt) (any, int, error) {
	r := &reader{cells: cells}
	res, err := t.decode(r)
	if err != nil {
		return nil, 0, err
	}
	return res, r.pos, nil
}

type reader struct {
	cells []cairo.Felt
	pos   int
}

func (r *reader) next(t Type) (cairo.Felt, error) {
	if r.pos >= len(r.cells) {
		return cairo.Felt{}, decodingError(t, "unexpected end of data after %d cells", r.pos)
	}
	res := r.cells[r.pos]
	r.pos++
	return res, nil
}

func (r *reader) remaining() int {
	return len(r.cells) - r.pos
}

func encodingError(t Type, format string, args ...any) error {
	return &cairo.EncodingError{Type: t.Name(), Reason: fmt.Sprintf(format, args...)}
}

func decodingError(t Type, format string, args ...any) error {
	return &cairo.DecodingError{Type: t.Name(), Reason: fmt.Sprintf(format, args...)}
}

// toBig converts the integer-like host values accepted by the codec. The
// result may be negative or exceed the field.
func toBig(value any) (*big.Int, bool) {
	switch v := value.(type) {
	case int:
		return big.NewInt(int64(v)), true
	case int8:
		return big.NewInt(int64(v)), true
	case int16:
		return big.NewInt(int64(v)), true
	case int32:
		return big.NewInt(int64(v)), true
	case int64:
		return big.NewInt(v), true
	case uint:
		return new(big.Int).SetUint64(uint64(v)), true
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), true
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), true
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), true
	case uint64:
		return new(big.Int).SetUint64(v), true
	case *big.Int:
		if v == nil {
			return nil, false
		}
		return new(big.Int).Set(v), true
	case *uint256.Int:
		if v == nil {
			return nil, false
		}
		return v.ToBig(), true
	case cairo.Felt:
		return v.Big(), true
	case bool:
		if v {
			return big.NewInt(1), true
		}
		return new(big.Int), true
	}
	return nil, false
}
