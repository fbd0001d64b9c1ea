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

import "fmt"

// ConstError is an error type that can be used to define immutable
// error constants.
type ConstError string

func (e ConstError) Error() string {
	return string(e)
}

const (
	ErrDivisionByZero    = ConstError("division by zero")
	ErrPointerArithmetic = ConstError("invalid pointer arithmetic")
	ErrOffsetOutOfRange  = ConstError("offset out of range")
)

// FaultReason classifies why a run of the machine was aborted. Faults are
// terminal for a run and reported to the caller as *FaultError. A
// FaultReason is itself an error, so errors.Is(err, DivisionUndefined)
// holds for any fault caused by a division by zero.
type FaultReason int

const (
	AssertionFailed FaultReason = iota
	InvalidMemoryAccess
	DivisionUndefined
	StepLimitExceeded
	InvalidInstruction
	UnsupportedHint
)

func (r FaultReason) Error() string {
	return r.String()
}

func (r FaultReason) String() string {
	switch r {
	case AssertionFailed:
		return "AssertionFailed"
	case InvalidMemoryAccess:
		return "InvalidMemoryAccess"
	case DivisionUndefined:
		return "DivisionUndefined"
	case StepLimitExceeded:
		return "StepLimitExceeded"
	case InvalidInstruction:
		return "InvalidInstruction"
	case UnsupportedHint:
		return "UnsupportedHint"
	}
	return fmt.Sprintf("FaultReason(%d)", int(r))
}

// FaultError reports an aborted execution.
type FaultError struct {
	Reason FaultReason
	Pc     Pointer // < program counter of the faulting instruction
	Step   int     // < number of steps completed before the fault
	Err    error   // < details, may be nil
}

func (e *FaultError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v at pc %v after %d steps", e.Reason, e.Pc, e.Step)
	}
	return fmt.Sprintf("%v at pc %v after %d steps: %v", e.Reason, e.Pc, e.Step, e.Err)
}

func (e *FaultError) Unwrap() error {
	return e.Err
}

func (e *FaultError) Is(target error) bool {
	reason, ok := target.(FaultReason)
	return ok && reason == e.Reason
}

// MalformedArtifactError is produced when a program artifact violates its
// structural invariants.
type MalformedArtifactError struct {
	Reason string
	Err    error
}

func (e *MalformedArtifactError) Error() string {
	if e.Err == nil {
		return "malformed artifact: " + e.Reason
	}
	return fmt.Sprintf("malformed artifact: %s: %v", e.Reason, e.Err)
}

func (e *MalformedArtifactError) Unwrap() error {
	return e.Err
}

// UnknownFunctionError is produced when resolving a name that is not part
// of a program's function table.
type UnknownFunctionError struct {
	Name string
}

func (e *UnknownFunctionError) Error() string {
	return fmt.Sprintf("unknown function %q", e.Name)
}

// EncodingError is produced when a host value does not fit the type hint
// used to encode it.
type EncodingError struct {
	Type   string
	Reason string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("cannot encode %s: %s", e.Type, e.Reason)
}

// DecodingError is produced when a sequence of cells does not have the
// structure required by a type hint.
type DecodingError struct {
	Type   string
	Reason string
}

func (e *DecodingError) Error() string {
	return fmt.Sprintf("cannot decode %s: %s", e.Type, e.Reason)
}

// IncompleteReturnError is produced when a halted run did not populate all
// memory cells required by a function's return layout.
type IncompleteReturnError struct {
	Function string
	Member   string
	Address  Pointer
}

func (e *IncompleteReturnError) Error() string {
	return fmt.Sprintf("incomplete return of %s: %s not set at %v", e.Function, e.Member, e.Address)
}
