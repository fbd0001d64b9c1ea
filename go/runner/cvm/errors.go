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

	"github.com/kkrt-labs/cairo-runner/go/cairo"
)

const (
	errUnknownCell       = cairo.ConstError("unknown memory cell")
	errWriteConflict     = cairo.ConstError("conflicting write to memory cell")
	errInvalidSegment    = cairo.ConstError("invalid memory segment")
	errSegmentTooLarge   = cairo.ConstError("memory segment exceeds size limit")
	errBuiltinConstraint = cairo.ConstError("builtin constraint violated")
	errInvalidPc         = cairo.ConstError("invalid program counter")
	errUnknownOperand    = cairo.ConstError("operand could not be deduced")
	errExpectedFelt      = cairo.ConstError("expected field element")
	errExpectedPointer   = cairo.ConstError("expected pointer")
)

// reasonOf classifies an error raised while executing a step.
func reasonOf(err error) cairo.FaultReason {
	for _, reason := range []cairo.FaultReason{
		cairo.AssertionFailed,
		cairo.InvalidMemoryAccess,
		cairo.DivisionUndefined,
		cairo.StepLimitExceeded,
		cairo.InvalidInstruction,
		cairo.UnsupportedHint,
	} {
		if errors.Is(err, reason) {
			return reason
		}
	}
	switch {
	case errors.Is(err, cairo.ErrDivisionByZero):
		return cairo.DivisionUndefined
	case errors.Is(err, errUnknownCell),
		errors.Is(err, errInvalidSegment),
		errors.Is(err, errSegmentTooLarge),
		errors.Is(err, errUnknownOperand),
		errors.Is(err, errExpectedFelt),
		errors.Is(err, errExpectedPointer),
		errors.Is(err, cairo.ErrPointerArithmetic),
		errors.Is(err, cairo.ErrOffsetOutOfRange):
		return cairo.InvalidMemoryAccess
	case errors.Is(err, errInvalidPc):
		return cairo.InvalidInstruction
	}
	return cairo.AssertionFailed
}
