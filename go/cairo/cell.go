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
	"math"
)

// Pointer is a relocatable memory address: an offset within a memory
// segment. Segments are only laid out in a flat address space when a trace
// is relocated, which is not needed for running functions.
type Pointer struct {
	Segment int
	Offset  int
}

func (p Pointer) String() string {
	return fmt.Sprintf("%d:%d", p.Segment, p.Offset)
}

// Add moves the pointer by the given number of cells.
func (p Pointer) Add(n int) (Pointer, error) {
	if (n > 0 && p.Offset > math.MaxInt-n) || p.Offset+n < 0 {
		return Pointer{}, fmt.Errorf("%w: %v + %d", ErrOffsetOutOfRange, p, n)
	}
	return Pointer{Segment: p.Segment, Offset: p.Offset + n}, nil
}

// AddFelt moves the pointer by a field element. Elements larger than half of
// the modulus are interpreted as negative offsets.
func (p Pointer) AddFelt(f Felt) (Pointer, error) {
	if f.IsUint64() && f.Uint64() <= math.MaxInt32 {
		return p.Add(int(f.Uint64()))
	}
	if neg := f.Neg(); neg.IsUint64() && neg.Uint64() <= math.MaxInt32 {
		return p.Add(-int(neg.Uint64()))
	}
	return Pointer{}, fmt.Errorf("%w: %v + %v", ErrOffsetOutOfRange, p, f)
}

// Cell is the content of a single memory cell: either a field element or a
// pointer. The zero value is the field element 0. Cells are comparable
// with ==.
type Cell struct {
	felt    Felt
	pointer Pointer
	isPtr   bool
}

func FeltCell(f Felt) Cell {
	return Cell{felt: f}
}

func PointerCell(p Pointer) Cell {
	return Cell{pointer: p, isPtr: true}
}

func (c Cell) IsPointer() bool {
	return c.isPtr
}

// Felt returns the field element held by the cell; ok is false for pointers.
func (c Cell) Felt() (f Felt, ok bool) {
	return c.felt, !c.isPtr
}

// Pointer returns the address held by the cell; ok is false for felts.
func (c Cell) Pointer() (p Pointer, ok bool) {
	return c.pointer, c.isPtr
}

func (c Cell) String() string {
	if c.isPtr {
		return c.pointer.String()
	}
	return c.felt.String()
}

// Add supports felt+felt, pointer+felt and felt+pointer.
func (c Cell) Add(o Cell) (Cell, error) {
	switch {
	case !c.isPtr && !o.isPtr:
		return FeltCell(c.felt.Add(o.felt)), nil
	case c.isPtr && !o.isPtr:
		p, err := c.pointer.AddFelt(o.felt)
		return PointerCell(p), err
	case !c.isPtr && o.isPtr:
		p, err := o.pointer.AddFelt(c.felt)
		return PointerCell(p), err
	}
	return Cell{}, fmt.Errorf("%w: %v + %v", ErrPointerArithmetic, c, o)
}

// Sub supports felt-felt, pointer-felt and pointer-pointer within the same
// segment.
func (c Cell) Sub(o Cell) (Cell, error) {
	switch {
	case !c.isPtr && !o.isPtr:
		return FeltCell(c.felt.Sub(o.felt)), nil
	case c.isPtr && !o.isPtr:
		p, err := c.pointer.AddFelt(o.felt.Neg())
		return PointerCell(p), err
	case c.isPtr && o.isPtr && c.pointer.Segment == o.pointer.Segment:
		return FeltCell(FeltFromInt64(int64(c.pointer.Offset - o.pointer.Offset))), nil
	}
	return Cell{}, fmt.Errorf("%w: %v - %v", ErrPointerArithmetic, c, o)
}

// Mul is only defined on field elements.
func (c Cell) Mul(o Cell) (Cell, error) {
	if c.isPtr || o.isPtr {
		return Cell{}, fmt.Errorf("%w: %v * %v", ErrPointerArithmetic, c, o)
	}
	return FeltCell(c.felt.Mul(o.felt)), nil
}

// Div is only defined on field elements and for non-zero divisors.
func (c Cell) Div(o Cell) (Cell, error) {
	if c.isPtr || o.isPtr {
		return Cell{}, fmt.Errorf("%w: %v / %v", ErrPointerArithmetic, c, o)
	}
	res, err := c.felt.Div(o.felt)
	if err != nil {
		return Cell{}, err
	}
	return FeltCell(res), nil
}
