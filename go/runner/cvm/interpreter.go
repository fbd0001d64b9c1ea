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
	"context"
	"fmt"

	"github.com/kkrt-labs/cairo-runner/go/cairo"
)

// status is enumeration of the execution state of a machine.
type status byte

const (
	statusRunning status = iota // < instructions are processed
	statusHalted                // < pc reached the end of the entry function
	statusFaulted               // < execution stopped with a fault
)

func (s status) String() string {
	switch s {
	case statusRunning:
		return "Running"
	case statusHalted:
		return "Halted"
	case statusFaulted:
		return "Faulted"
	}
	return fmt.Sprintf("status(%d)", byte(s))
}

// contextCheckInterval is the number of steps between checks of the
// cancellation state of a run's context.
const contextCheckInterval = 1 << 12

// machine is the execution environment of a single function run.
type machine struct {
	// Inputs
	ctx       context.Context
	program   *decodedProgram
	function  *cairo.Function
	stepLimit int

	// Execution state
	pc, ap, fp cairo.Pointer
	end        cairo.Pointer // < the pc value at which the run halts
	steps      int
	memory     *memory
	scopes     []map[string]any

	// Segment bases of the builtins in use, by builtin name.
	builtinBases map[string]cairo.Pointer

	// fault is set when the machine enters statusFaulted.
	fault *cairo.FaultError
}

// --- Runners ---

type runner interface {
	// run executes the machine until it halts or faults. Faults are
	// reported by statusFaulted, the error result is reserved for
	// conditions that prevent the execution from being conducted, like a
	// cancelled context.
	run(*machine) (status, error)
}

// vanillaRunner is the default runner executing the code without any
// additional features.
type vanillaRunner struct{}

func (vanillaRunner) run(m *machine) (status, error) {
	return steps(m, false)
}

// --- Execution ---

// steps executes instructions until the machine leaves statusRunning. If
// oneStepOnly is set, at most one instruction is executed.
func steps(m *machine, oneStepOnly bool) (status, error) {
	for {
		if m.pc == m.end {
			return statusHalted, nil
		}
		if m.steps >= m.stepLimit {
			return m.failWith(fmt.Errorf("%w: limit of %d steps reached", cairo.StepLimitExceeded, m.stepLimit)), nil
		}
		if m.steps%contextCheckInterval == 0 && m.ctx != nil {
			if err := m.ctx.Err(); err != nil {
				return statusRunning, err
			}
		}
		if err := step(m); err != nil {
			return m.failWith(err), nil
		}
		if oneStepOnly {
			if m.pc == m.end {
				return statusHalted, nil
			}
			return statusRunning, nil
		}
	}
}

// failWith records a fault at the current pc.
func (m *machine) failWith(err error) status {
	m.fault = &cairo.FaultError{
		Reason: reasonOf(err),
		Pc:     m.pc,
		Step:   m.steps,
		Err:    err,
	}
	return statusFaulted
}

// fetch returns the instruction at the current pc.
func (m *machine) fetch() (*decodedInstruction, error) {
	if m.pc.Segment != programSegment || m.pc.Offset < 0 || m.pc.Offset >= len(m.program.instructions) {
		return nil, fmt.Errorf("%w: pc %v is outside of the program", errInvalidPc, m.pc)
	}
	instruction := &m.program.instructions[m.pc.Offset]
	if instruction.err != nil {
		return nil, fmt.Errorf("%w: %v", cairo.InvalidInstruction, instruction.err)
	}
	if instruction.instruction.Op1Src == cairo.Op1SrcImm && m.pc.Offset+1 >= len(m.program.instructions) {
		return nil, fmt.Errorf("%w: missing immediate at end of program", cairo.InvalidInstruction)
	}
	return instruction, nil
}

// runHints executes the hints attached to the current pc.
func runHints(m *machine) error {
	if m.pc.Segment != programSegment {
		return nil
	}
	for _, hint := range m.program.hints[m.pc.Offset] {
		fn, found := lookupHint(hint.code)
		if !found {
			return fmt.Errorf("%w: %q", cairo.UnsupportedHint, hint.code)
		}
		if err := fn(&hintContext{machine: m, hint: hint.hint}); err != nil {
			return fmt.Errorf("hint %q failed: %w", firstLine(hint.code), err)
		}
	}
	return nil
}

func firstLine(code string) string {
	for i, c := range code {
		if c == '\n' {
			return code[:i] + " ..."
		}
	}
	return code
}

// step runs the hints of the current pc and executes the instruction.
func step(m *machine) error {
	if err := runHints(m); err != nil {
		return err
	}
	decoded, err := m.fetch()
	if err != nil {
		return err
	}
	instr := &decoded.instruction

	ops, err := m.computeOperands(instr)
	if err != nil {
		return err
	}
	if err := checkOpcode(m, instr, &ops); err != nil {
		return err
	}
	return m.updateRegisters(instr, &ops)
}

// operands are the values an instruction operates on. res is only known if
// hasRes is set.
type operands struct {
	dst, op0, op1, res cairo.Cell
	hasRes             bool
}

func (m *machine) register(r cairo.Register) cairo.Pointer {
	if r == cairo.FP {
		return m.fp
	}
	return m.ap
}

// computeOperands resolves the operands of an instruction. Unset operand
// cells are deduced from the others and written to memory.
func (m *machine) computeOperands(instr *cairo.Instruction) (operands, error) {
	var ops operands

	dstAddr, err := m.register(instr.DstReg).Add(int(instr.OffDst))
	if err != nil {
		return ops, err
	}
	op0Addr, err := m.register(instr.Op0Reg).Add(int(instr.OffOp0))
	if err != nil {
		return ops, err
	}
	dst, dstKnown, err := m.memory.get(dstAddr)
	if err != nil {
		return ops, err
	}
	op0, op0Known, err := m.memory.get(op0Addr)
	if err != nil {
		return ops, err
	}

	var op1Base cairo.Pointer
	switch instr.Op1Src {
	case cairo.Op1SrcImm:
		op1Base = m.pc
	case cairo.Op1SrcFp:
		op1Base = m.fp
	case cairo.Op1SrcAp:
		op1Base = m.ap
	case cairo.Op1SrcOp0:
		if !op0Known {
			return ops, fmt.Errorf("%w: op0 at %v is required for double dereference", errUnknownOperand, op0Addr)
		}
		p, ok := op0.Pointer()
		if !ok {
			return ops, fmt.Errorf("%w: op0 %v used as address", errExpectedPointer, op0)
		}
		op1Base = p
	}
	op1Addr, err := op1Base.Add(int(instr.OffOp1))
	if err != nil {
		return ops, err
	}
	op1, op1Known, err := m.memory.get(op1Addr)
	if err != nil {
		return ops, err
	}

	if !op0Known {
		var deduced bool
		op0, deduced, ops.res, ops.hasRes, err = m.deduceOp0(instr, dst, dstKnown, op1, op1Known)
		if err != nil {
			return ops, err
		}
		if deduced {
			if err := m.memory.set(op0Addr, op0); err != nil {
				return ops, err
			}
			op0Known = true
		}
	}

	if !op1Known {
		var deduced bool
		var res cairo.Cell
		var hasRes bool
		op1, deduced, res, hasRes, err = deduceOp1(instr, dst, dstKnown, op0, op0Known)
		if err != nil {
			return ops, err
		}
		if hasRes && !ops.hasRes {
			ops.res, ops.hasRes = res, true
		}
		if deduced {
			if err := m.memory.set(op1Addr, op1); err != nil {
				return ops, err
			}
			op1Known = true
		}
	}

	if !op0Known {
		return ops, fmt.Errorf("%w: op0 at %v", errUnknownOperand, op0Addr)
	}
	if !op1Known {
		return ops, fmt.Errorf("%w: op1 at %v", errUnknownOperand, op1Addr)
	}

	if !ops.hasRes {
		ops.res, ops.hasRes, err = computeRes(instr, op0, op1)
		if err != nil {
			return ops, err
		}
	}

	if !dstKnown {
		switch {
		case instr.Opcode == cairo.OpAssertEq && ops.hasRes:
			dst = ops.res
		case instr.Opcode == cairo.OpCall:
			dst = cairo.PointerCell(m.fp)
		default:
			return ops, fmt.Errorf("%w: dst at %v", errUnknownOperand, dstAddr)
		}
		if err := m.memory.set(dstAddr, dst); err != nil {
			return ops, err
		}
	}

	ops.dst, ops.op0, ops.op1 = dst, op0, op1
	return ops, nil
}

// deduceOp0 computes op0 from the other operands if the instruction
// constrains it.
func (m *machine) deduceOp0(
	instr *cairo.Instruction,
	dst cairo.Cell, dstKnown bool,
	op1 cairo.Cell, op1Known bool,
) (op0 cairo.Cell, deduced bool, res cairo.Cell, hasRes bool, err error) {
	switch instr.Opcode {
	case cairo.OpCall:
		returnPc, err := m.pc.Add(instr.Size())
		return cairo.PointerCell(returnPc), err == nil, cairo.Cell{}, false, err
	case cairo.OpAssertEq:
		if !dstKnown || !op1Known {
			return
		}
		switch instr.ResLogic {
		case cairo.ResAdd:
			op0, err = dst.Sub(op1)
			return op0, err == nil, dst, err == nil, err
		case cairo.ResMul:
			if dst.IsPointer() || op1.IsPointer() {
				return
			}
			if f, _ := op1.Felt(); f.IsZero() {
				return op0, false, res, false, fmt.Errorf("%w: cannot deduce op0 of %v from a zero factor", cairo.DivisionUndefined, instr)
			}
			op0, err = dst.Div(op1)
			return op0, err == nil, dst, err == nil, err
		}
	}
	return
}

// deduceOp1 computes op1 from the other operands if the instruction
// constrains it.
func deduceOp1(
	instr *cairo.Instruction,
	dst cairo.Cell, dstKnown bool,
	op0 cairo.Cell, op0Known bool,
) (op1 cairo.Cell, deduced bool, res cairo.Cell, hasRes bool, err error) {
	if instr.Opcode != cairo.OpAssertEq || !dstKnown {
		return
	}
	switch instr.ResLogic {
	case cairo.ResOp1:
		return dst, true, dst, true, nil
	case cairo.ResAdd:
		if !op0Known {
			return
		}
		op1, err = dst.Sub(op0)
		return op1, err == nil, dst, err == nil, err
	case cairo.ResMul:
		if !op0Known || dst.IsPointer() || op0.IsPointer() {
			return
		}
		if f, _ := op0.Felt(); f.IsZero() {
			return op1, false, res, false, fmt.Errorf("%w: cannot deduce op1 of %v from a zero factor", cairo.DivisionUndefined, instr)
		}
		op1, err = dst.Div(op0)
		return op1, err == nil, dst, err == nil, err
	}
	return
}

func computeRes(instr *cairo.Instruction, op0, op1 cairo.Cell) (cairo.Cell, bool, error) {
	switch instr.ResLogic {
	case cairo.ResOp1:
		return op1, true, nil
	case cairo.ResAdd:
		res, err := op0.Add(op1)
		return res, err == nil, err
	case cairo.ResMul:
		res, err := op0.Mul(op1)
		return res, err == nil, err
	}
	return cairo.Cell{}, false, nil
}

// checkOpcode verifies the assertions implied by the opcode.
func checkOpcode(m *machine, instr *cairo.Instruction, ops *operands) error {
	switch instr.Opcode {
	case cairo.OpAssertEq:
		if ops.dst != ops.res {
			return fmt.Errorf("%w: %v != %v in %v", cairo.AssertionFailed, ops.dst, ops.res, instr)
		}
	case cairo.OpCall:
		returnPc, err := m.pc.Add(instr.Size())
		if err != nil {
			return err
		}
		if ops.op0 != cairo.PointerCell(returnPc) {
			return fmt.Errorf("%w: call stores %v instead of return pc %v", cairo.AssertionFailed, ops.op0, returnPc)
		}
		if ops.dst != cairo.PointerCell(m.fp) {
			return fmt.Errorf("%w: call stores %v instead of fp %v", cairo.AssertionFailed, ops.dst, m.fp)
		}
	}
	return nil
}

// updateRegisters moves pc, ap and fp past the executed instruction. All
// updates are based on the register values before the instruction.
func (m *machine) updateRegisters(instr *cairo.Instruction, ops *operands) error {
	var fp cairo.Pointer
	switch instr.Opcode {
	case cairo.OpCall:
		next, err := m.ap.Add(2)
		if err != nil {
			return err
		}
		fp = next
	case cairo.OpRet:
		p, ok := ops.dst.Pointer()
		if !ok {
			return fmt.Errorf("%w: ret restores fp from %v", errExpectedPointer, ops.dst)
		}
		fp = p
	default:
		fp = m.fp
	}

	var ap cairo.Pointer
	var err error
	switch instr.ApUpdate {
	case cairo.ApRegular:
		ap = m.ap
	case cairo.ApAdd:
		f, ok := ops.res.Felt()
		if !ops.hasRes || !ok {
			return fmt.Errorf("%w: ap += %v", errExpectedFelt, ops.res)
		}
		ap, err = m.ap.AddFelt(f)
	case cairo.ApAdd1:
		ap, err = m.ap.Add(1)
	case cairo.ApAdd2:
		ap, err = m.ap.Add(2)
	}
	if err != nil {
		return err
	}

	var pc cairo.Pointer
	switch instr.PcUpdate {
	case cairo.PcRegular:
		pc, err = m.pc.Add(instr.Size())
	case cairo.PcJumpAbs:
		p, ok := ops.res.Pointer()
		if !ok {
			return fmt.Errorf("%w: absolute jump to %v", errExpectedPointer, ops.res)
		}
		pc = p
	case cairo.PcJumpRel:
		f, ok := ops.res.Felt()
		if !ok {
			return fmt.Errorf("%w: relative jump by %v", errExpectedFelt, ops.res)
		}
		pc, err = m.pc.AddFelt(f)
	case cairo.PcJnz:
		if f, ok := ops.dst.Felt(); ok && f.IsZero() {
			pc, err = m.pc.Add(instr.Size())
		} else {
			f, ok := ops.op1.Felt()
			if !ok {
				return fmt.Errorf("%w: conditional jump by %v", errExpectedFelt, ops.op1)
			}
			pc, err = m.pc.AddFelt(f)
		}
	}
	if err != nil {
		return err
	}

	m.pc, m.ap, m.fp = pc, ap, fp
	m.steps++
	return nil
}
