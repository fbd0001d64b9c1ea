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
	"errors"
	"testing"

	"github.com/kkrt-labs/cairo-runner/go/cairo"
)

func feltCell(v int64) cairo.Cell {
	return cairo.FeltCell(cairo.FeltFromInt64(v))
}

func TestMemory_CellsAreWriteOnce(t *testing.T) {
	m := newMemory()
	defer returnMemory(m)
	seg := m.addSegment()

	if err := m.set(seg, feltCell(1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.set(seg, feltCell(1)); err != nil {
		t.Errorf("rewriting the same value should succeed, got %v", err)
	}
	if err := m.set(seg, feltCell(2)); !errors.Is(err, errWriteConflict) {
		t.Errorf("expected write conflict, got %v", err)
	}
	if got, err := m.read(seg); err != nil || got != feltCell(1) {
		t.Errorf("unexpected cell content %v, %v", got, err)
	}
}

func TestMemory_UnsetCellsAreReported(t *testing.T) {
	m := newMemory()
	defer returnMemory(m)
	seg := m.addSegment()

	if _, ok, err := m.get(cairo.Pointer{Segment: seg.Segment, Offset: 10}); ok || err != nil {
		t.Errorf("unset cell should be unknown, got %v, %v", ok, err)
	}
	if _, err := m.read(seg); !errors.Is(err, errUnknownCell) {
		t.Errorf("expected unknown cell error, got %v", err)
	}
	if _, _, err := m.get(cairo.Pointer{Segment: 5}); !errors.Is(err, errInvalidSegment) {
		t.Errorf("expected invalid segment error, got %v", err)
	}
	if err := m.set(cairo.Pointer{Segment: seg.Segment, Offset: maxSegmentSize}, feltCell(1)); !errors.Is(err, errSegmentTooLarge) {
		t.Errorf("expected size limit error, got %v", err)
	}
}

func TestMemory_ReadRunStopsAtFirstGap(t *testing.T) {
	m := newMemory()
	defer returnMemory(m)
	seg := m.addSegment()
	if err := m.load(seg, []cairo.Cell{feltCell(1), feltCell(2)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.set(cairo.Pointer{Segment: seg.Segment, Offset: 3}, feltCell(4)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := m.readRun(seg); len(got) != 2 {
		t.Errorf("expected 2 cells, got %v", got)
	}
	if got := m.segmentSize(seg.Segment); got != 4 {
		t.Errorf("unexpected segment size %d", got)
	}
}

func TestMemory_ReturnedMemoryIsCleared(t *testing.T) {
	m := newMemory()
	m.addSegment()
	m.builtins[0] = rangeCheck{}
	returnMemory(m)

	m = newMemory()
	defer returnMemory(m)
	if m.numSegments() != 0 || len(m.builtins) != 0 {
		t.Errorf("memory taken from the pool is not empty")
	}
}

func TestRangeCheck_ValidatesWrites(t *testing.T) {
	m := newMemory()
	defer returnMemory(m)
	seg := m.addSegment()
	m.builtins[seg.Segment] = newBuiltin("range_check")

	if err := m.set(seg, feltCell(1<<62)); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	next := cairo.Pointer{Segment: seg.Segment, Offset: 1}
	if err := m.set(next, feltCell(-1)); !errors.Is(err, errBuiltinConstraint) {
		t.Errorf("expected constraint violation, got %v", err)
	}
	if err := m.set(next, cairo.PointerCell(seg)); !errors.Is(err, errBuiltinConstraint) {
		t.Errorf("expected constraint violation, got %v", err)
	}
}

func TestBitwise_DeducesOutputsOnceInputsAreKnown(t *testing.T) {
	m := newMemory()
	defer returnMemory(m)
	seg := m.addSegment()
	m.builtins[seg.Segment] = newBuiltin("bitwise")
	at := func(offset int) cairo.Pointer {
		return cairo.Pointer{Segment: seg.Segment, Offset: offset}
	}

	if _, ok, err := m.get(at(2)); ok || err != nil {
		t.Errorf("output should not be deducible without inputs, got %v, %v", ok, err)
	}
	if err := m.load(at(0), []cairo.Cell{feltCell(0b1100), feltCell(0b1010)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for offset, want := range map[int]int64{2: 0b1000, 3: 0b0110, 4: 0b1110} {
		got, ok, err := m.get(at(offset))
		if err != nil || !ok || got != feltCell(want) {
			t.Errorf("unexpected value at offset %d: %v, %v, %v", offset, got, ok, err)
		}
	}
	if _, ok, _ := m.get(at(5)); ok {
		t.Errorf("inputs of the next instance should not be deducible")
	}
}

func TestBitwise_WrongOutputsAreRejected(t *testing.T) {
	m := newMemory()
	defer returnMemory(m)
	seg := m.addSegment()
	m.builtins[seg.Segment] = newBuiltin("bitwise")
	at := func(offset int) cairo.Pointer {
		return cairo.Pointer{Segment: seg.Segment, Offset: offset}
	}

	if err := m.load(at(0), []cairo.Cell{feltCell(0xab), feltCell(0x0f)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.set(at(2), feltCell(0x99)); !errors.Is(err, errBuiltinConstraint) {
		t.Errorf("expected constraint violation, got %v", err)
	}
	if err := m.set(at(3), cairo.PointerCell(seg)); !errors.Is(err, errBuiltinConstraint) {
		t.Errorf("expected constraint violation, got %v", err)
	}
	for offset, want := range map[int]int64{2: 0x0b, 3: 0xa4, 4: 0xaf} {
		if err := m.set(at(offset), feltCell(want)); err != nil {
			t.Errorf("correct output at offset %d should be accepted, got %v", offset, err)
		}
	}
	if got, err := m.read(at(2)); err != nil || got != feltCell(0x0b) {
		t.Errorf("unexpected cell content %v, %v", got, err)
	}
}

func TestBitwise_OutputsWrittenBeforeInputsAreChecked(t *testing.T) {
	m := newMemory()
	defer returnMemory(m)
	seg := m.addSegment()
	m.builtins[seg.Segment] = newBuiltin("bitwise")
	at := func(offset int) cairo.Pointer {
		return cairo.Pointer{Segment: seg.Segment, Offset: offset}
	}

	if err := m.set(at(4), feltCell(0x99)); err != nil {
		t.Fatalf("output without inputs should be accepted, got %v", err)
	}
	if err := m.set(at(0), feltCell(0xab)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.set(at(1), feltCell(0x0f)); !errors.Is(err, errBuiltinConstraint) {
		t.Errorf("expected constraint violation, got %v", err)
	}
	if _, ok := m.peek(at(1)); ok {
		t.Errorf("rejected input should not be stored")
	}
}

func TestReasonOf_ClassifiesErrors(t *testing.T) {
	tests := map[error]cairo.FaultReason{
		errUnknownCell:             cairo.InvalidMemoryAccess,
		errWriteConflict:           cairo.AssertionFailed,
		errBuiltinConstraint:       cairo.AssertionFailed,
		errInvalidPc:               cairo.InvalidInstruction,
		cairo.ErrDivisionByZero:    cairo.DivisionUndefined,
		cairo.ErrPointerArithmetic: cairo.InvalidMemoryAccess,
		cairo.StepLimitExceeded:    cairo.StepLimitExceeded,
		cairo.UnsupportedHint:      cairo.UnsupportedHint,
		errors.New("other"):        cairo.AssertionFailed,
	}
	for err, want := range tests {
		if got := reasonOf(err); got != want {
			t.Errorf("unexpected reason for %v: wanted %v, got %v", err, want, got)
		}
	}
}
