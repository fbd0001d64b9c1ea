// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package examples

import (
	"fmt"

	"github.com/kkrt-labs/cairo-runner/go/abi"
	"github.com/kkrt-labs/cairo-runner/go/harness"
	. "github.com/kkrt-labs/cairo-runner/go/program"
	"github.com/kkrt-labs/cairo-runner/go/reference"
)

const allocHint = "memory[ap] = segments.add()"

// TrieProgram assembles the program
//
//	func bytes_to_nibble_list{bitwise_ptr: BitwiseBuiltin*}(bytes: felt*) -> (nibbles: felt*)
//
// where bytes points to the length of the byte string followed by one
// byte per cell, and nibbles to twice that length followed by the high and
// low nibble of every byte. The low nibble of each byte is computed by the
// bitwise builtin.
func TrieProgram() *Builder {
	b := NewBuilder("__main__")
	b.Builtins("bitwise")

	// [fp-4] = bitwise_ptr, [fp-3] = bytes
	b.Function("bytes_to_nibble_list",
		[]Param{{Name: "bitwise_ptr", Type: "starkware.cairo.common.cairo_builtins.BitwiseBuiltin*"}},
		[]Param{{Name: "bytes", Type: "felt*"}},
		[]Param{{Name: "nibbles", Type: "felt*"}},
	)
	b.Hint(allocHint, nil)
	b.EmitImm(ApAddImm(), 1)                      // [fp] = nibbles
	b.Emit(Inc(AssertDeref(Ap(0), Fp(-3), 0)))    // [fp+1] = len
	b.EmitImm(Inc(AssertMulImm(Ap(0), Fp(1))), 2) // [fp+2] = 2 * len
	b.Emit(AssertDeref(Fp(2), Fp(0), 0))
	b.EmitImm(Inc(AssertImm(Ap(0))), 0)
	b.Emit(Inc(AssertEq(Ap(0), Fp(-4))))

	// loop state: [ap-2] = i, [ap-1] = bitwise_ptr
	loop := b.Pc()
	b.Emit(Inc(AssertAdd(Fp(1), Ap(0), Ap(-2)))) // [ap] = len - i
	b.EmitImm(Jnz(Ap(-1)), 4)
	exit := b.Pc()
	b.EmitImm(JmpRel(), 0)

	b.Emit(Inc(AssertAdd(Ap(0), Fp(-3), Ap(-3)))) // bytes + i
	b.Emit(Inc(AssertDeref(Ap(0), Ap(-1), 1)))    // byte
	b.Emit(AssertDeref(Ap(-1), Ap(-4), 0))        // bitwise_ptr.x = byte
	b.EmitImm(Inc(AssertImm(Ap(0))), 15)
	b.Emit(AssertDeref(Ap(-1), Ap(-5), 1))        // bitwise_ptr.y = 15
	b.Emit(Inc(AssertDeref(Ap(0), Ap(-5), 2)))    // low = bitwise_ptr.x_and_y
	b.Emit(Inc(AssertAdd(Ap(-3), Ap(0), Ap(-1)))) // 16 * high = byte - low
	b.EmitImm(Inc(AssertMulImm(Ap(-1), Ap(0))), 16)
	b.EmitImm(Inc(AssertMulImm(Ap(0), Ap(-9))), 2)
	b.Emit(Inc(AssertAdd(Ap(0), Fp(0), Ap(-1)))) // nibbles + 2 * i
	b.Emit(AssertDeref(Ap(-3), Ap(-1), 1))
	b.Emit(AssertDeref(Ap(-5), Ap(-1), 2))
	b.EmitImm(Inc(AssertAddImm(Ap(0), Ap(-11))), 1)
	b.EmitImm(Inc(AssertAddImm(Ap(0), Ap(-11))), 5)
	back := b.Pc()
	b.EmitImm(JmpRel(), int64(loop-back))

	b.SetImmediate(exit, int64(b.Pc()-exit))
	b.Emit(Inc(AssertEq(Ap(0), Ap(-2))))
	b.Emit(Inc(AssertEq(Ap(0), Fp(0))))
	b.Emit(Ret())
	return b
}

func GetBytesToNibbleListExample() Example {
	return exampleSpec{
		Name:     "bytes_to_nibble_list",
		Params:   []string{"bytes"},
		assemble: TrieProgram,
		options: []harness.Option{
			harness.WithArgType("bytes_to_nibble_list", "bytes", abi.Bytes),
			harness.WithReturnType("bytes_to_nibble_list", "nibbles", abi.Bytes),
		},
		reference: bytesToNibbleListReference,
	}.build()
}

func bytesToNibbleListReference(args []any) (any, error) {
	switch data := args[0].(type) {
	case []byte:
		return reference.BytesToNibbleList(data), nil
	case string:
		return reference.BytesToNibbleList([]byte(data)), nil
	}
	return nil, fmt.Errorf("unsupported host value of type %T", args[0])
}
