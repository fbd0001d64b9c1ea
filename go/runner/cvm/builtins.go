// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package cvm

import (
	"fmt"
	"math/big"

	"github.com/kkrt-labs/cairo-runner/go/cairo"
)

// builtin attaches validation and deduction rules to a memory segment.
type builtin interface {
	name() string
	// validate is called before a value is written to the builtin's segment.
	validate(m *memory, p cairo.Pointer, value cairo.Cell) error
	// deduce computes the value of an unset cell of the builtin's segment.
	// It reports false if the cell cannot be deduced yet.
	deduce(m *memory, p cairo.Pointer) (cairo.Cell, bool, error)
}

// newBuiltin creates the runner of a builtin. Builtins without dedicated
// rules, like output, get a plain segment.
func newBuiltin(name string) builtin {
	switch name {
	case "range_check":
		return rangeCheck{}
	case "bitwise":
		return bitwise{}
	}
	return plainBuiltin(name)
}

type plainBuiltin string

func (b plainBuiltin) name() string { return string(b) }

func (plainBuiltin) validate(*memory, cairo.Pointer, cairo.Cell) error {
	return nil
}

func (plainBuiltin) deduce(*memory, cairo.Pointer) (cairo.Cell, bool, error) {
	return cairo.Cell{}, false, nil
}

// rangeCheck only admits field elements in [0, 2^128).
type rangeCheck struct{}

var rangeCheckBound = cairo.RangeCheckBound()

func (rangeCheck) name() string { return "range_check" }

func (rangeCheck) validate(_ *memory, p cairo.Pointer, value cairo.Cell) error {
	f, ok := value.Felt()
	if !ok {
		return fmt.Errorf("%w: range check at %v received pointer %v", errBuiltinConstraint, p, value)
	}
	if f.Big().Cmp(rangeCheckBound) >= 0 {
		return fmt.Errorf("%w: value %v at %v is out of range [0, 2^128)", errBuiltinConstraint, f, p)
	}
	return nil
}

func (rangeCheck) deduce(*memory, cairo.Pointer) (cairo.Cell, bool, error) {
	return cairo.Cell{}, false, nil
}

// bitwise operates on instances of 5 cells: x, y, x&y, x^y, x|y. The inputs
// are limited to 251 bits.
type bitwise struct{}

const (
	bitwiseCells     = 5
	bitwiseInputBits = 251
)

func (bitwise) name() string { return "bitwise" }

// validate checks the inputs of an instance and the consistency of its
// outputs with the inputs, whichever cells are written first.
func (bitwise) validate(m *memory, p cairo.Pointer, value cairo.Cell) error {
	index := p.Offset % bitwiseCells
	base := cairo.Pointer{Segment: p.Segment, Offset: p.Offset - index}
	at := func(i int) cairo.Pointer {
		return cairo.Pointer{Segment: base.Segment, Offset: base.Offset + i}
	}
	if index < 2 {
		if err := checkBitwiseInput(p, value); err != nil {
			return err
		}
		other, ok := m.peek(at(1 - index))
		if !ok {
			return nil
		}
		x, y := value, other
		if index == 1 {
			x, y = other, value
		}
		for i := 2; i < bitwiseCells; i++ {
			if output, ok := m.peek(at(i)); ok {
				if err := checkBitwiseOutput(at(i), i, x, y, output); err != nil {
					return err
				}
			}
		}
		return nil
	}
	x, xSet := m.peek(base)
	y, ySet := m.peek(at(1))
	if !xSet || !ySet {
		return nil
	}
	return checkBitwiseOutput(p, index, x, y, value)
}

func checkBitwiseOutput(p cairo.Pointer, index int, x, y, output cairo.Cell) error {
	xf, _ := x.Felt()
	yf, _ := y.Felt()
	want := cairo.FeltCell(cairo.FeltFromBig(bitwiseOutput(index, xf.Big(), yf.Big())))
	if output != want {
		return fmt.Errorf("%w: bitwise output at %v must be %v, got %v", errBuiltinConstraint, p, want, output)
	}
	return nil
}

// bitwiseOutput computes the output at the given index of an instance.
func bitwiseOutput(index int, x, y *big.Int) *big.Int {
	res := new(big.Int)
	switch index {
	case 2:
		res.And(x, y)
	case 3:
		res.Xor(x, y)
	case 4:
		res.Or(x, y)
	}
	return res
}

func checkBitwiseInput(p cairo.Pointer, value cairo.Cell) error {
	f, ok := value.Felt()
	if !ok {
		return fmt.Errorf("%w: bitwise input at %v is pointer %v", errBuiltinConstraint, p, value)
	}
	if f.BitLen() > bitwiseInputBits {
		return fmt.Errorf("%w: bitwise input %v at %v exceeds %d bits", errBuiltinConstraint, f, p, bitwiseInputBits)
	}
	return nil
}

func (bitwise) deduce(m *memory, p cairo.Pointer) (cairo.Cell, bool, error) {
	index := p.Offset % bitwiseCells
	if index < 2 {
		return cairo.Cell{}, false, nil
	}
	base := cairo.Pointer{Segment: p.Segment, Offset: p.Offset - index}
	x, xSet, err := m.get(base)
	if err != nil || !xSet {
		return cairo.Cell{}, false, err
	}
	y, ySet, err := m.get(cairo.Pointer{Segment: base.Segment, Offset: base.Offset + 1})
	if err != nil || !ySet {
		return cairo.Cell{}, false, err
	}
	xf, _ := x.Felt()
	yf, _ := y.Felt()
	return cairo.FeltCell(cairo.FeltFromBig(bitwiseOutput(index, xf.Big(), yf.Big()))), true, nil
}
