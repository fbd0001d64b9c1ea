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

	"github.com/kkrt-labs/cairo-runner/go/cairo"
)

// extractResult reads the return values of a halted run. The function left
// its implicit arguments followed by its return values in the cells just
// below ap.
func extractResult(m *machine) (cairo.Result, error) {
	fn := m.function
	pos, err := m.ap.Add(-fn.ReturnSize())
	if err != nil || pos.Segment != executionSegment {
		return cairo.Result{}, &cairo.IncompleteReturnError{Function: fn.Name, Member: "return values", Address: m.ap}
	}

	res := cairo.Result{
		Implicit: make([][]cairo.Felt, len(fn.ImplicitArgs)),
		Values:   make([][]cairo.Felt, len(fn.Returns)),
		Steps:    m.steps,
	}
	for i, member := range fn.ImplicitArgs {
		if name, ok := member.Builtin(); ok {
			if err := m.checkStopPointer(name, member, pos); err != nil {
				return cairo.Result{}, err
			}
		} else {
			res.Implicit[i], err = m.readMember(member, pos)
			if err != nil {
				return cairo.Result{}, err
			}
		}
		pos.Offset += member.Size
	}
	for i, member := range fn.Returns {
		res.Values[i], err = m.readMember(member, pos)
		if err != nil {
			return cairo.Result{}, err
		}
		pos.Offset += member.Size
	}
	return res, nil
}

// checkStopPointer verifies that a returned builtin pointer points into the
// used part of the builtin's segment.
func (m *machine) checkStopPointer(builtin string, member cairo.Member, at cairo.Pointer) error {
	cell, err := m.returnCell(member, at)
	if err != nil {
		return err
	}
	base, found := m.builtinBases[builtin]
	stop, ok := cell.Pointer()
	if !found || !ok || stop.Segment != base.Segment || stop.Offset < base.Offset || stop.Offset > m.memory.segmentSize(base.Segment) {
		return &cairo.FaultError{
			Reason: cairo.AssertionFailed,
			Pc:     m.pc,
			Step:   m.steps,
			Err:    fmt.Errorf("invalid stop pointer %v for builtin %s", cell, builtin),
		}
	}
	return nil
}

// readMember reads the cells of a returned member. Pointer members are
// followed and contribute the cells of the addressed segment up to the
// first unset cell.
func (m *machine) readMember(member cairo.Member, at cairo.Pointer) ([]cairo.Felt, error) {
	if member.IsPointer() {
		cell, err := m.returnCell(member, at)
		if err != nil {
			return nil, err
		}
		p, ok := cell.Pointer()
		if !ok {
			return nil, &cairo.DecodingError{Type: member.Type, Reason: fmt.Sprintf("expected pointer, got %v", cell)}
		}
		return toFelts(member, m.memory.readRun(p))
	}

	cells := make([]cairo.Cell, member.Size)
	for i := range cells {
		cell, err := m.returnCell(member, cairo.Pointer{Segment: at.Segment, Offset: at.Offset + i})
		if err != nil {
			return nil, err
		}
		cells[i] = cell
	}
	return toFelts(member, cells)
}

func (m *machine) returnCell(member cairo.Member, at cairo.Pointer) (cairo.Cell, error) {
	cell, ok, err := m.memory.get(at)
	if err != nil || !ok {
		return cairo.Cell{}, &cairo.IncompleteReturnError{Function: m.function.Name, Member: member.Name, Address: at}
	}
	return cell, nil
}

func toFelts(member cairo.Member, cells []cairo.Cell) ([]cairo.Felt, error) {
	res := make([]cairo.Felt, len(cells))
	for i, cell := range cells {
		f, ok := cell.Felt()
		if !ok {
			return nil, &cairo.DecodingError{Type: member.Type, Reason: fmt.Sprintf("cell %d holds pointer %v", i, cell)}
		}
		res[i] = f
	}
	return res, nil
}
