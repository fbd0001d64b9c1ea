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
	"strings"
)

// Register selects the base register of a memory operand.
type Register byte

const (
	AP Register = iota
	FP
)

func (r Register) String() string {
	if r == FP {
		return "fp"
	}
	return "ap"
}

// Op1Source selects where the second operand is read from.
type Op1Source byte

const (
	Op1SrcOp0 Op1Source = iota // < [[op0] + off_op1]
	Op1SrcImm                  // < the word following the instruction
	Op1SrcFp                   // < [fp + off_op1]
	Op1SrcAp                   // < [ap + off_op1]
)

// ResLogic selects how the result is computed from the operands.
type ResLogic byte

const (
	ResOp1 ResLogic = iota
	ResAdd
	ResMul
	ResUnconstrained // < only produced by decoding conditional jumps
)

type PcUpdate byte

const (
	PcRegular PcUpdate = iota
	PcJumpAbs
	PcJumpRel
	PcJnz
)

type ApUpdate byte

const (
	ApRegular ApUpdate = iota
	ApAdd
	ApAdd1
	ApAdd2 // < only produced by decoding calls
)

type Opcode byte

const (
	OpNop Opcode = iota
	OpCall
	OpRet
	OpAssertEq
)

func (o Opcode) String() string {
	switch o {
	case OpNop:
		return "nop"
	case OpCall:
		return "call"
	case OpRet:
		return "ret"
	case OpAssertEq:
		return "assert_eq"
	}
	return fmt.Sprintf("opcode(%d)", byte(o))
}

// Instruction is the decoded form of a Cairo instruction word.
//
// An instruction word is a 63-bit integer: three 16-bit offsets biased by
// 2^15 (dst, op0, op1 from the least significant end) followed by 15 flag
// bits. The flag groups are one-hot encoded; a group with no bit set
// selects the group's default.
type Instruction struct {
	OffDst   int16
	OffOp0   int16
	OffOp1   int16
	DstReg   Register
	Op0Reg   Register
	Op1Src   Op1Source
	ResLogic ResLogic
	PcUpdate PcUpdate
	ApUpdate ApUpdate
	Opcode   Opcode
}

// Size is the number of memory words occupied by the instruction.
func (i Instruction) Size() int {
	if i.Op1Src == Op1SrcImm {
		return 2
	}
	return 1
}

const (
	offsetBias = 1 << 15

	flagDstReg     = 1 << 0
	flagOp0Reg     = 1 << 1
	flagOp1Imm     = 1 << 2
	flagOp1Fp      = 1 << 3
	flagOp1Ap      = 1 << 4
	flagResAdd     = 1 << 5
	flagResMul     = 1 << 6
	flagPcJumpAbs  = 1 << 7
	flagPcJumpRel  = 1 << 8
	flagPcJnz      = 1 << 9
	flagApAdd      = 1 << 10
	flagApAdd1     = 1 << 11
	flagOpCall     = 1 << 12
	flagOpRet      = 1 << 13
	flagOpAssertEq = 1 << 14
	flagReserved   = 1 << 15
)

// DecodeInstruction decodes an instruction word. It fails for words that
// are not valid instructions, e.g. immediate values stored in the code.
func DecodeInstruction(word Felt) (Instruction, error) {
	if !word.IsUint64() || word.Uint64()>>63 != 0 {
		return Instruction{}, fmt.Errorf("instruction word %v exceeds 63 bits", word)
	}
	raw := word.Uint64()
	flags := uint16(raw >> 48)
	if flags&flagReserved != 0 {
		return Instruction{}, fmt.Errorf("instruction word %v sets the reserved bit", word)
	}
	res := Instruction{
		OffDst: int16(int32(raw&0xffff) - offsetBias),
		OffOp0: int16(int32((raw>>16)&0xffff) - offsetBias),
		OffOp1: int16(int32((raw>>32)&0xffff) - offsetBias),
	}
	if flags&flagDstReg != 0 {
		res.DstReg = FP
	}
	if flags&flagOp0Reg != 0 {
		res.Op0Reg = FP
	}

	switch flags & (flagOp1Imm | flagOp1Fp | flagOp1Ap) {
	case 0:
		res.Op1Src = Op1SrcOp0
	case flagOp1Imm:
		res.Op1Src = Op1SrcImm
	case flagOp1Fp:
		res.Op1Src = Op1SrcFp
	case flagOp1Ap:
		res.Op1Src = Op1SrcAp
	default:
		return Instruction{}, fmt.Errorf("invalid op1 source in %v", word)
	}
	if res.Op1Src == Op1SrcImm && res.OffOp1 != 1 {
		return Instruction{}, fmt.Errorf("immediate operand requires op1 offset 1, got %d", res.OffOp1)
	}

	switch flags & (flagPcJumpAbs | flagPcJumpRel | flagPcJnz) {
	case 0:
		res.PcUpdate = PcRegular
	case flagPcJumpAbs:
		res.PcUpdate = PcJumpAbs
	case flagPcJumpRel:
		res.PcUpdate = PcJumpRel
	case flagPcJnz:
		res.PcUpdate = PcJnz
	default:
		return Instruction{}, fmt.Errorf("invalid pc update in %v", word)
	}

	switch flags & (flagResAdd | flagResMul) {
	case 0:
		res.ResLogic = ResOp1
	case flagResAdd:
		res.ResLogic = ResAdd
	case flagResMul:
		res.ResLogic = ResMul
	default:
		return Instruction{}, fmt.Errorf("invalid result logic in %v", word)
	}
	if res.PcUpdate == PcJnz {
		if res.ResLogic != ResOp1 {
			return Instruction{}, fmt.Errorf("conditional jump with result logic in %v", word)
		}
		res.ResLogic = ResUnconstrained
	}

	switch flags & (flagOpCall | flagOpRet | flagOpAssertEq) {
	case 0:
		res.Opcode = OpNop
	case flagOpCall:
		res.Opcode = OpCall
	case flagOpRet:
		res.Opcode = OpRet
	case flagOpAssertEq:
		res.Opcode = OpAssertEq
	default:
		return Instruction{}, fmt.Errorf("invalid opcode in %v", word)
	}
	if res.PcUpdate == PcJnz && res.Opcode != OpNop {
		return Instruction{}, fmt.Errorf("conditional jump with opcode %v", res.Opcode)
	}

	switch flags & (flagApAdd | flagApAdd1) {
	case 0:
		res.ApUpdate = ApRegular
	case flagApAdd:
		res.ApUpdate = ApAdd
	case flagApAdd1:
		res.ApUpdate = ApAdd1
	default:
		return Instruction{}, fmt.Errorf("invalid ap update in %v", word)
	}
	if res.ApUpdate == ApAdd && res.ResLogic == ResUnconstrained {
		return Instruction{}, fmt.Errorf("ap update by an unconstrained result in %v", word)
	}
	if res.Opcode == OpCall {
		if res.ApUpdate != ApRegular {
			return Instruction{}, fmt.Errorf("call with explicit ap update in %v", word)
		}
		res.ApUpdate = ApAdd2
	}
	return res, nil
}

// EncodeInstruction is the inverse of DecodeInstruction. Decoding-only
// variants (ResUnconstrained, ApAdd2) are accepted where decoding would
// produce them.
func EncodeInstruction(i Instruction) (Felt, error) {
	flags := uint64(0)
	if i.DstReg == FP {
		flags |= flagDstReg
	}
	if i.Op0Reg == FP {
		flags |= flagOp0Reg
	}
	switch i.Op1Src {
	case Op1SrcOp0:
	case Op1SrcImm:
		if i.OffOp1 != 1 {
			return Felt{}, fmt.Errorf("immediate operand requires op1 offset 1, got %d", i.OffOp1)
		}
		flags |= flagOp1Imm
	case Op1SrcFp:
		flags |= flagOp1Fp
	case Op1SrcAp:
		flags |= flagOp1Ap
	default:
		return Felt{}, fmt.Errorf("invalid op1 source %d", i.Op1Src)
	}
	switch i.ResLogic {
	case ResOp1:
	case ResAdd:
		flags |= flagResAdd
	case ResMul:
		flags |= flagResMul
	case ResUnconstrained:
		if i.PcUpdate != PcJnz {
			return Felt{}, fmt.Errorf("unconstrained result requires a conditional jump")
		}
	default:
		return Felt{}, fmt.Errorf("invalid result logic %d", i.ResLogic)
	}
	switch i.PcUpdate {
	case PcRegular:
	case PcJumpAbs:
		flags |= flagPcJumpAbs
	case PcJumpRel:
		flags |= flagPcJumpRel
	case PcJnz:
		if i.ResLogic != ResOp1 && i.ResLogic != ResUnconstrained {
			return Felt{}, fmt.Errorf("conditional jump with result logic")
		}
		if i.Opcode != OpNop {
			return Felt{}, fmt.Errorf("conditional jump with opcode %v", i.Opcode)
		}
		flags |= flagPcJnz
	default:
		return Felt{}, fmt.Errorf("invalid pc update %d", i.PcUpdate)
	}
	switch i.ApUpdate {
	case ApRegular:
	case ApAdd:
		flags |= flagApAdd
	case ApAdd1:
		flags |= flagApAdd1
	case ApAdd2:
		if i.Opcode != OpCall {
			return Felt{}, fmt.Errorf("ap += 2 is reserved for calls")
		}
	default:
		return Felt{}, fmt.Errorf("invalid ap update %d", i.ApUpdate)
	}
	switch i.Opcode {
	case OpNop:
	case OpCall:
		if i.ApUpdate != ApRegular && i.ApUpdate != ApAdd2 {
			return Felt{}, fmt.Errorf("call with explicit ap update")
		}
		flags |= flagOpCall
	case OpRet:
		flags |= flagOpRet
	case OpAssertEq:
		flags |= flagOpAssertEq
	default:
		return Felt{}, fmt.Errorf("invalid opcode %d", i.Opcode)
	}

	word := uint64(int32(i.OffDst)+offsetBias) |
		uint64(int32(i.OffOp0)+offsetBias)<<16 |
		uint64(int32(i.OffOp1)+offsetBias)<<32 |
		flags<<48
	return FeltFromUint64(word), nil
}

func (i Instruction) String() string {
	operand := func(reg Register, off int16) string {
		if off == 0 {
			return fmt.Sprintf("[%v]", reg)
		}
		return fmt.Sprintf("[%v%+d]", reg, off)
	}
	var op1 string
	switch i.Op1Src {
	case Op1SrcOp0:
		op1 = fmt.Sprintf("[%s%+d]", operand(i.Op0Reg, i.OffOp0), i.OffOp1)
	case Op1SrcImm:
		op1 = "imm"
	case Op1SrcFp:
		op1 = operand(FP, i.OffOp1)
	case Op1SrcAp:
		op1 = operand(AP, i.OffOp1)
	}
	var res string
	switch i.ResLogic {
	case ResAdd:
		res = operand(i.Op0Reg, i.OffOp0) + " + " + op1
	case ResMul:
		res = operand(i.Op0Reg, i.OffOp0) + " * " + op1
	default:
		res = op1
	}

	b := strings.Builder{}
	switch i.Opcode {
	case OpAssertEq:
		b.WriteString(operand(i.DstReg, i.OffDst) + " = " + res)
	case OpCall:
		b.WriteString("call " + res)
	case OpRet:
		b.WriteString("ret")
	default:
		switch i.PcUpdate {
		case PcJumpAbs:
			b.WriteString("jmp abs " + res)
		case PcJumpRel:
			b.WriteString("jmp rel " + res)
		case PcJnz:
			b.WriteString("jmp rel " + op1 + " if " + operand(i.DstReg, i.OffDst) + " != 0")
		default:
			if i.ApUpdate == ApAdd {
				b.WriteString("ap += " + res)
			} else {
				b.WriteString("nop")
			}
		}
	}
	if i.ApUpdate == ApAdd1 {
		b.WriteString("; ap++")
	}
	return b.String()
}
