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
	"sync"

	"github.com/kkrt-labs/cairo-runner/go/cairo"
)

// maxSegmentSize bounds the number of cells of a single segment.
const maxSegmentSize = 1 << 26

type memoryCell struct {
	value cairo.Cell
	set   bool
}

// memory is a list of segments of write-once cells. Builtins attached to a
// segment validate writes and deduce unset cells.
type memory struct {
	segments [][]memoryCell
	builtins map[int]builtin
}

var memoryPool = sync.Pool{
	New: func() interface{} {
		return &memory{builtins: map[int]builtin{}}
	},
}

func newMemory() *memory {
	return memoryPool.Get().(*memory)
}

func returnMemory(m *memory) {
	for i := range m.segments {
		m.segments[i] = nil
	}
	m.segments = m.segments[:0]
	clear(m.builtins)
	memoryPool.Put(m)
}

func (m *memory) addSegment() cairo.Pointer {
	m.segments = append(m.segments, nil)
	return cairo.Pointer{Segment: len(m.segments) - 1}
}

func (m *memory) numSegments() int {
	return len(m.segments)
}

// segmentSize returns the offset following the last set cell of a segment.
func (m *memory) segmentSize(segment int) int {
	if segment < 0 || segment >= len(m.segments) {
		return 0
	}
	return len(m.segments[segment])
}

// get returns the content of a cell. Unset cells of builtin segments are
// deduced where the builtin allows it.
func (m *memory) get(p cairo.Pointer) (cairo.Cell, bool, error) {
	if p.Segment < 0 || p.Segment >= len(m.segments) {
		return cairo.Cell{}, false, fmt.Errorf("%w: %v", errInvalidSegment, p)
	}
	segment := m.segments[p.Segment]
	if p.Offset < len(segment) && segment[p.Offset].set {
		return segment[p.Offset].value, true, nil
	}
	if b, found := m.builtins[p.Segment]; found {
		value, ok, err := b.deduce(m, p)
		if err != nil || !ok {
			return cairo.Cell{}, false, err
		}
		if err := m.set(p, value); err != nil {
			return cairo.Cell{}, false, err
		}
		return value, true, nil
	}
	return cairo.Cell{}, false, nil
}

// peek returns the content of a set cell without deducing unset ones.
func (m *memory) peek(p cairo.Pointer) (cairo.Cell, bool) {
	if p.Segment < 0 || p.Segment >= len(m.segments) {
		return cairo.Cell{}, false
	}
	segment := m.segments[p.Segment]
	if p.Offset < 0 || p.Offset >= len(segment) || !segment[p.Offset].set {
		return cairo.Cell{}, false
	}
	return segment[p.Offset].value, true
}

// read is like get but fails for cells that are neither set nor deducible.
func (m *memory) read(p cairo.Pointer) (cairo.Cell, error) {
	value, ok, err := m.get(p)
	if err != nil {
		return cairo.Cell{}, err
	}
	if !ok {
		return cairo.Cell{}, fmt.Errorf("%w at %v", errUnknownCell, p)
	}
	return value, nil
}

// set writes a cell. Writing the value a cell already holds is a no-op.
func (m *memory) set(p cairo.Pointer, value cairo.Cell) error {
	if p.Segment < 0 || p.Segment >= len(m.segments) {
		return fmt.Errorf("%w: %v", errInvalidSegment, p)
	}
	if p.Offset >= maxSegmentSize {
		return fmt.Errorf("%w: %v", errSegmentTooLarge, p)
	}
	segment := m.segments[p.Segment]
	if p.Offset < len(segment) && segment[p.Offset].set {
		if segment[p.Offset].value != value {
			return fmt.Errorf("%w at %v: holds %v, got %v", errWriteConflict, p, segment[p.Offset].value, value)
		}
		return nil
	}
	if b, found := m.builtins[p.Segment]; found {
		if err := b.validate(m, p, value); err != nil {
			return err
		}
	}
	if p.Offset >= len(segment) {
		grown := make([]memoryCell, p.Offset+1, max(p.Offset+1, 2*len(segment)))
		copy(grown, segment)
		segment = grown
		m.segments[p.Segment] = segment
	}
	segment[p.Offset] = memoryCell{value: value, set: true}
	return nil
}

// load writes consecutive cells starting at the given address.
func (m *memory) load(start cairo.Pointer, values []cairo.Cell) error {
	for i, value := range values {
		if err := m.set(cairo.Pointer{Segment: start.Segment, Offset: start.Offset + i}, value); err != nil {
			return err
		}
	}
	return nil
}

// readRun returns the cells of a segment from the given address up to the
// first unset cell.
func (m *memory) readRun(start cairo.Pointer) []cairo.Cell {
	if start.Segment < 0 || start.Segment >= len(m.segments) || start.Offset < 0 {
		return nil
	}
	var res []cairo.Cell
	segment := m.segments[start.Segment]
	for i := start.Offset; i < len(segment) && segment[i].set; i++ {
		res = append(res, segment[i].value)
	}
	return res
}
