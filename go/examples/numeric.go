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
	"errors"

	"github.com/kkrt-labs/cairo-runner/go/cairo"
	. "github.com/kkrt-labs/cairo-runner/go/program"
	"github.com/kkrt-labs/cairo-runner/go/reference"
)

// The hints attached by the Cairo compiler to the library functions used
// by the numeric examples.
const (
	isNNHint = "memory[ap] = 0 if 0 <= (ids.a % PRIME) < range_check_builtin.bound else 1"

	unsignedDivRemHint = `from starkware.cairo.common.math_utils import assert_integer
assert_integer(ids.div)
assert 0 < ids.div <= PRIME // range_check_builtin.bound, \
    f'div={hex(ids.div)} is out of the valid range.'
ids.q, ids.r = divmod(ids.value, ids.div)`
)

// NumericProgram assembles the program
//
//	func test_min{range_check_ptr}(a: felt, b: felt) -> felt {
//	    return min(a, b);
//	}
//
//	func test_divmod{range_check_ptr}(value: felt, div: felt) -> (q: felt, r: felt) {
//	    return unsigned_div_rem(value, div);
//	}
//
// with the library calls inlined.
func NumericProgram() *Builder {
	b := NewBuilder("__main__")
	b.Builtins("range_check")
	rangeCheckPtr := Felts("range_check_ptr")

	// [fp-5] = range_check_ptr, [fp-4] = a, [fp-3] = b
	b.Function("test_min", rangeCheckPtr, Felts("a", "b"), Felts("res"))
	b.Emit(Inc(AssertAdd(Fp(-3), Ap(0), Fp(-4)))) // [fp] = b - a
	b.Hint(isNNHint, map[string]string{"a": "[cast(fp, felt*)]"})
	jump := b.Pc()
	b.EmitImm(Inc(Jnz(Ap(0))), 0)
	// b - a is non-negative: a is the minimum
	b.Emit(AssertDeref(Fp(0), Fp(-5), 0))
	b.EmitImm(Inc(AssertAddImm(Ap(0), Fp(-5))), 1)
	b.Emit(Inc(AssertEq(Ap(0), Fp(-4))))
	b.Emit(Ret())
	b.SetImmediate(jump, int64(b.Pc()-jump))
	// a - b - 1 is non-negative: b is the minimum
	b.EmitImm(Inc(AssertAddImm(Ap(0), Fp(-3))), 1)
	b.Emit(Inc(AssertAdd(Fp(-4), Ap(0), Fp(2))))
	b.Emit(AssertDeref(Fp(3), Fp(-5), 0))
	b.EmitImm(Inc(AssertAddImm(Ap(0), Fp(-5))), 1)
	b.Emit(Inc(AssertEq(Ap(0), Fp(-3))))
	b.Emit(Ret())

	// [fp-5] = range_check_ptr, [fp-4] = value, [fp-3] = div
	b.Function("test_divmod", rangeCheckPtr, Felts("value", "div"), Felts("q", "r"))
	b.Hint(unsignedDivRemHint, map[string]string{
		"value": "[cast(fp + (-4), felt*)]",
		"div":   "[cast(fp + (-3), felt*)]",
		"q":     "[cast([fp + (-5)] + 1, felt*)]",
		"r":     "[cast([fp + (-5)], felt*)]",
	})
	b.EmitImm(Inc(AssertAddImm(Ap(0), Fp(-3))), -1) // [fp] = div - 1
	b.Emit(Inc(AssertDeref(Ap(0), Fp(-5), 0)))      // [fp+1] = r
	b.Emit(Inc(AssertAdd(Fp(0), Ap(0), Fp(1))))     // [fp+2] = div - 1 - r
	b.Emit(AssertDeref(Fp(2), Fp(-5), 2))
	b.Emit(Inc(AssertDeref(Ap(0), Fp(-5), 1)))   // [fp+3] = q
	b.Emit(Inc(AssertMul(Ap(0), Fp(3), Fp(-3)))) // [fp+4] = q * div
	b.Emit(AssertAdd(Fp(-4), Fp(4), Fp(1)))      // value = q * div + r
	b.EmitImm(Inc(AssertAddImm(Ap(0), Fp(-5))), 3)
	b.Emit(Inc(AssertEq(Ap(0), Fp(3))))
	b.Emit(Inc(AssertEq(Ap(0), Fp(1))))
	b.Emit(Ret())
	return b
}

func GetMinExample() Example {
	return exampleSpec{
		Name:      "test_min",
		Params:    []string{"a", "b"},
		assemble:  NumericProgram,
		reference: minReference,
	}.build()
}

func GetDivModExample() Example {
	return exampleSpec{
		Name:      "test_divmod",
		Params:    []string{"value", "div"},
		assemble:  NumericProgram,
		reference: divModReference,
	}.build()
}

func minReference(args []any) (any, error) {
	a, err := toUint256(args[0])
	if err != nil {
		return nil, err
	}
	b, err := toUint256(args[1])
	if err != nil {
		return nil, err
	}
	res, err := reference.Min(a, b)
	if err != nil {
		return nil, err
	}
	return res.ToBig(), nil
}

func divModReference(args []any) (any, error) {
	value, err := toUint256(args[0])
	if err != nil {
		return nil, err
	}
	div, err := toUint256(args[1])
	if err != nil {
		return nil, err
	}
	q, r, err := reference.DivMod(value, div)
	if errors.Is(err, cairo.ErrDivisionByZero) {
		return nil, cairo.DivisionUndefined
	}
	if err != nil {
		return nil, err
	}
	return []any{q.ToBig(), r.ToBig()}, nil
}
