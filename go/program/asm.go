// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package program

import "github.com/kkrt-labs/cairo-runner/go/cairo"

// This file provides constructors for the instruction forms used by
// hand-assembled programs. Instructions reading an immediate value must be
// emitted together with that value, see Builder.Emit.

// Operand addresses a memory cell relative to ap or fp.
type Operand struct {
	Reg cairo.Register
	Off int16
}

func Ap(off int16) Operand { return Operand{Reg: cairo.AP, Off: off} }
func Fp(off int16) Operand { return Operand{Reg: cairo.FP, Off: off} }

// unused is the operand the Cairo compiler emits for operands that do not
// take part in an instruction. [fp-1] is always set within a function.
var unused = Fp(-1)

func base(dst, op0 Operand) cairo.Instruction {
	return cairo.Instruction{
		OffDst: dst.Off, DstReg: dst.Reg,
		OffOp0: op0.Off, Op0Reg: op0.Reg,
	}
}

func withOp1(i cairo.Instruction, op1 Operand) cairo.Instruction {
	i.OffOp1 = op1.Off
	if op1.Reg == cairo.FP {
		i.Op1Src = cairo.Op1SrcFp
	} else {
		i.Op1Src = cairo.Op1SrcAp
	}
	return i
}

func withImm(i cairo.Instruction) cairo.Instruction {
	i.OffOp1 = 1
	i.Op1Src = cairo.Op1SrcImm
	return i
}

// Inc adds an ap++ to the given instruction.
func Inc(i cairo.Instruction) cairo.Instruction {
	i.ApUpdate = cairo.ApAdd1
	return i
}

// AssertEq is [dst] = [src].
func AssertEq(dst, src Operand) cairo.Instruction {
	i := withOp1(base(dst, unused), src)
	i.Opcode = cairo.OpAssertEq
	return i
}

// AssertImm is [dst] = imm.
func AssertImm(dst Operand) cairo.Instruction {
	i := withImm(base(dst, unused))
	i.Opcode = cairo.OpAssertEq
	return i
}

// AssertAdd is [dst] = [op0] + [op1].
func AssertAdd(dst, op0, op1 Operand) cairo.Instruction {
	i := withOp1(base(dst, op0), op1)
	i.ResLogic = cairo.ResAdd
	i.Opcode = cairo.OpAssertEq
	return i
}

// AssertAddImm is [dst] = [op0] + imm.
func AssertAddImm(dst, op0 Operand) cairo.Instruction {
	i := withImm(base(dst, op0))
	i.ResLogic = cairo.ResAdd
	i.Opcode = cairo.OpAssertEq
	return i
}

// AssertMul is [dst] = [op0] * [op1].
func AssertMul(dst, op0, op1 Operand) cairo.Instruction {
	i := withOp1(base(dst, op0), op1)
	i.ResLogic = cairo.ResMul
	i.Opcode = cairo.OpAssertEq
	return i
}

// AssertMulImm is [dst] = [op0] * imm.
func AssertMulImm(dst, op0 Operand) cairo.Instruction {
	i := withImm(base(dst, op0))
	i.ResLogic = cairo.ResMul
	i.Opcode = cairo.OpAssertEq
	return i
}

// AssertDeref is [dst] = [[ptr] + off].
func AssertDeref(dst, ptr Operand, off int16) cairo.Instruction {
	i := base(dst, ptr)
	i.OffOp1 = off
	i.Op1Src = cairo.Op1SrcOp0
	i.Opcode = cairo.OpAssertEq
	return i
}

// JmpRel is jmp rel imm.
func JmpRel() cairo.Instruction {
	i := withImm(base(unused, unused))
	i.PcUpdate = cairo.PcJumpRel
	return i
}

// JmpAbs is jmp abs [target].
func JmpAbs(target Operand) cairo.Instruction {
	i := withOp1(base(unused, unused), target)
	i.PcUpdate = cairo.PcJumpAbs
	return i
}

// Jnz is jmp rel imm if [cond] != 0.
func Jnz(cond Operand) cairo.Instruction {
	i := withImm(base(cond, unused))
	i.PcUpdate = cairo.PcJnz
	return i
}

// ApAddImm is ap += imm.
func ApAddImm() cairo.Instruction {
	i := withImm(base(unused, unused))
	i.ApUpdate = cairo.ApAdd
	return i
}

// CallRel is call rel imm.
func CallRel() cairo.Instruction {
	i := withImm(base(Ap(0), Ap(1)))
	i.PcUpdate = cairo.PcJumpRel
	i.Opcode = cairo.OpCall
	return i
}

// Ret returns from the current function.
func Ret() cairo.Instruction {
	i := withOp1(base(Fp(-2), Fp(-1)), Fp(-1))
	i.PcUpdate = cairo.PcJumpAbs
	i.Opcode = cairo.OpRet
	return i
}
