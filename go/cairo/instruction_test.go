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

import "testing"

func TestDecodeInstruction_KnownWords(t *testing.T) {
	tests := map[string]struct {
		word uint64
		want Instruction
	}{
		"ret": {
			word: 0x208b7fff7fff7ffe,
			want: Instruction{
				OffDst: -2, OffOp0: -1, OffOp1: -1,
				DstReg: FP, Op0Reg: FP, Op1Src: Op1SrcFp,
				ResLogic: ResOp1, PcUpdate: PcJumpAbs, ApUpdate: ApRegular, Opcode: OpRet,
			},
		},
		"call rel imm": {
			word: 0x1104800180018000,
			want: Instruction{
				OffDst: 0, OffOp0: 1, OffOp1: 1,
				DstReg: AP, Op0Reg: AP, Op1Src: Op1SrcImm,
				ResLogic: ResOp1, PcUpdate: PcJumpRel, ApUpdate: ApAdd2, Opcode: OpCall,
			},
		},
		"ap += imm": {
			word: 0x040780017fff7fff,
			want: Instruction{
				OffDst: -1, OffOp0: -1, OffOp1: 1,
				DstReg: FP, Op0Reg: FP, Op1Src: Op1SrcImm,
				ResLogic: ResOp1, PcUpdate: PcRegular, ApUpdate: ApAdd, Opcode: OpNop,
			},
		},
		"[ap] = imm; ap++": {
			word: 0x480680017fff8000,
			want: Instruction{
				OffDst: 0, OffOp0: -1, OffOp1: 1,
				DstReg: AP, Op0Reg: FP, Op1Src: Op1SrcImm,
				ResLogic: ResOp1, PcUpdate: PcRegular, ApUpdate: ApAdd1, Opcode: OpAssertEq,
			},
		},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := DecodeInstruction(FeltFromUint64(test.word))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != test.want {
				t.Errorf("unexpected instruction, wanted %+v, got %+v", test.want, got)
			}
			encoded, err := EncodeInstruction(got)
			if err != nil {
				t.Fatalf("failed to encode: %v", err)
			}
			if encoded != FeltFromUint64(test.word) {
				t.Errorf("unexpected encoding, wanted %x, got %v", test.word, encoded.Hex())
			}
		})
	}
}

func TestDecodeInstruction_InvalidWords(t *testing.T) {
	tests := map[string]Felt{
		"63 bits exceeded": FeltFromUint64(1 << 63),
		"large felt":       FeltFromInt64(-1),
		"all flags set":    FeltFromUint64(1<<63 - 1),
		"two op1 sources":  FeltFromUint64(uint64(flagOp1Fp|flagOp1Ap)<<48 | 0x800080008000),
		"two res logics":   FeltFromUint64(uint64(flagResAdd|flagResMul)<<48 | 0x800080008000),
		"two pc updates":   FeltFromUint64(uint64(flagPcJumpAbs|flagPcJnz)<<48 | 0x800080008000),
		"two ap updates":   FeltFromUint64(uint64(flagApAdd|flagApAdd1)<<48 | 0x800080008000),
		"two opcodes":      FeltFromUint64(uint64(flagOpCall|flagOpRet)<<48 | 0x800080008000),
		"imm offset":       FeltFromUint64(uint64(flagOp1Imm)<<48 | 0x800280008000),
		"jnz with add":     FeltFromUint64(uint64(flagPcJnz|flagResAdd|flagOp1Fp)<<48 | 0x800080008000),
		"jnz with opcode":  FeltFromUint64(uint64(flagPcJnz|flagOpAssertEq|flagOp1Fp)<<48 | 0x800080008000),
		"call with ap++":   FeltFromUint64(uint64(flagOpCall|flagApAdd1|flagOp1Fp)<<48 | 0x800080008000),
		"ap += jnz result": FeltFromUint64(uint64(flagPcJnz|flagApAdd|flagOp1Fp)<<48 | 0x800080008000),
	}
	for name, word := range tests {
		t.Run(name, func(t *testing.T) {
			if got, err := DecodeInstruction(word); err == nil {
				t.Errorf("expected error, got %v", got)
			}
		})
	}
}

func TestEncodeInstruction_RoundTripsAllValidCombinations(t *testing.T) {
	count := 0
	for _, op1 := range []Op1Source{Op1SrcOp0, Op1SrcImm, Op1SrcFp, Op1SrcAp} {
		for _, res := range []ResLogic{ResOp1, ResAdd, ResMul} {
			for _, pc := range []PcUpdate{PcRegular, PcJumpAbs, PcJumpRel, PcJnz} {
				for _, ap := range []ApUpdate{ApRegular, ApAdd, ApAdd1} {
					for _, op := range []Opcode{OpNop, OpCall, OpRet, OpAssertEq} {
						instr := Instruction{
							OffDst: -3, OffOp0: 7, OffOp1: -1,
							DstReg: FP, Op0Reg: AP,
							Op1Src: op1, ResLogic: res, PcUpdate: pc, ApUpdate: ap, Opcode: op,
						}
						if op1 == Op1SrcImm {
							instr.OffOp1 = 1
						}
						word, err := EncodeInstruction(instr)
						if err != nil {
							continue
						}
						decoded, err := DecodeInstruction(word)
						if err != nil {
							continue
						}
						count++
						again, err := EncodeInstruction(decoded)
						if err != nil {
							t.Fatalf("failed to re-encode %v: %v", decoded, err)
						}
						if again != word {
							t.Errorf("encoding of %v is not stable", decoded)
						}
					}
				}
			}
		}
	}
	if count == 0 {
		t.Errorf("no valid instruction was produced")
	}
}

func TestInstruction_Size(t *testing.T) {
	if got := (Instruction{Op1Src: Op1SrcImm}).Size(); got != 2 {
		t.Errorf("immediate instructions should have size 2, got %d", got)
	}
	if got := (Instruction{Op1Src: Op1SrcAp}).Size(); got != 1 {
		t.Errorf("register instructions should have size 1, got %d", got)
	}
}

func TestInstruction_String(t *testing.T) {
	ret, _ := DecodeInstruction(FeltFromUint64(0x208b7fff7fff7ffe))
	if got, want := ret.String(), "ret"; got != want {
		t.Errorf("unexpected print, wanted %q, got %q", want, got)
	}
	push, _ := DecodeInstruction(FeltFromUint64(0x480680017fff8000))
	if got, want := push.String(), "[ap] = imm; ap++"; got != want {
		t.Errorf("unexpected print, wanted %q, got %q", want, got)
	}
}
