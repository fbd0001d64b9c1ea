// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package harness

import (
	"context"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/kkrt-labs/cairo-runner/go/abi"
	"github.com/kkrt-labs/cairo-runner/go/cairo"
	"github.com/kkrt-labs/cairo-runner/go/compiler"
	. "github.com/kkrt-labs/cairo-runner/go/program"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// arithmetic provides sub(a, b) -> (diff), pair(x) -> (x, x + 1), and
// first(xs: felt*) -> (x).
func arithmetic(t *testing.T) *Builder {
	t.Helper()
	b := NewBuilder("__main__")
	b.Function("sub", nil, Felts("a", "b"), Felts("diff"))
	b.Emit(Inc(AssertAdd(Fp(-3), Ap(0), Fp(-4))))
	b.Emit(Ret())

	b.Function("pair", nil, Felts("x"), Felts("x", "y"))
	b.Emit(Inc(AssertEq(Ap(0), Fp(-3))))
	b.EmitImm(Inc(AssertAddImm(Ap(0), Fp(-3))), 1)
	b.Emit(Ret())

	b.Function("first", nil, []Param{{Name: "xs", Type: "felt*"}}, Felts("x"))
	b.Emit(Inc(AssertDeref(Ap(0), Fp(-3), 1)))
	b.Emit(Ret())

	b.Function("div", nil, Felts("a", "b"), Felts("q"))
	b.Emit(Inc(AssertMul(Fp(-4), Ap(0), Fp(-3))))
	b.Emit(Ret())

	b.Function("nothing", nil, nil, nil)
	b.Emit(Ret())
	return b
}

func newHarness(t *testing.T, opts ...Option) *Harness {
	t.Helper()
	prog, err := arithmetic(t).Build()
	require.NoError(t, err)
	h, err := New(prog, opts...)
	require.NoError(t, err)
	return h
}

func TestHarness_PositionalArguments(t *testing.T) {
	h := newHarness(t)
	res, err := h.Run(context.Background(), "sub", 4, 10)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(6), res)
}

func TestHarness_KeywordArguments(t *testing.T) {
	h := newHarness(t)
	res, err := h.Run(context.Background(), "sub", Kwargs{"b": 10, "a": 4})
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(6), res)
}

func TestHarness_MultipleReturnValues(t *testing.T) {
	h := newHarness(t)
	res, err := h.Run(context.Background(), "pair", 41)
	require.NoError(t, err)
	assert.Equal(t, []any{big.NewInt(41), big.NewInt(42)}, res)

	res, err = h.Run(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestHarness_PointerArgumentsUseTypeHints(t *testing.T) {
	h := newHarness(t)
	res, err := h.Run(context.Background(), "first", []any{5, 6, 7})
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(5), res, "default list encoding puts the length first")

	h = newHarness(t, WithArgType("first", "xs", abi.Bytes))
	res, err = h.Run(context.Background(), "first", []byte{0xab, 0xcd})
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(0xab), res)
}

func TestHarness_ArgumentMismatchesAreEncodingErrors(t *testing.T) {
	h := newHarness(t)
	tests := map[string][]any{
		"too few":      {1},
		"too many":     {1, 2, 3},
		"unknown name": {Kwargs{"a": 1, "b": 2, "c": 3}},
		"missing name": {Kwargs{"a": 1}},
		"bad value":    {"text", 2},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := h.Run(context.Background(), "sub", args...)
			var encodingError *cairo.EncodingError
			assert.ErrorAs(t, err, &encodingError)
		})
	}
}

func TestHarness_FaultsArePropagated(t *testing.T) {
	h := newHarness(t)
	_, err := h.Run(context.Background(), "div", 1, 0)
	assert.ErrorIs(t, err, cairo.DivisionUndefined)

	res, err := h.Run(context.Background(), "div", 42, 6)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(7), res)
}

func TestHarness_UnknownFunctionIsReportedBeforeExecution(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := cairo.NewMockRunner(ctrl)
	require.NoError(t, cairo.RegisterRunnerFactory("harness-test-mock", func(any) (cairo.Runner, error) {
		return runner, nil
	}))
	// no call to runner.Run is expected

	h := newHarness(t, WithRunner("harness-test-mock"))
	_, err := h.Run(context.Background(), "no_such_function")
	var unknown *cairo.UnknownFunctionError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "no_such_function", unknown.Name)
}

func TestHarness_PassesStepLimitToRunner(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := cairo.NewMockRunner(ctrl)
	require.NoError(t, cairo.RegisterRunnerFactory("harness-test-step-limit", func(any) (cairo.Runner, error) {
		return runner, nil
	}))
	runner.EXPECT().Run(gomock.Any()).DoAndReturn(func(params cairo.Parameters) (cairo.Result, error) {
		assert.Equal(t, 17, params.StepLimit)
		assert.Equal(t, "__main__.nothing", params.Function.Name)
		return cairo.Result{Values: [][]cairo.Felt{}}, nil
	})

	h := newHarness(t, WithRunner("harness-test-step-limit"), WithStepLimit(17))
	_, err := h.Run(context.Background(), "nothing")
	require.NoError(t, err)
}

func TestHarness_UnknownRunnerIsRejected(t *testing.T) {
	prog, err := arithmetic(t).Build()
	require.NoError(t, err)
	_, err = New(prog, WithRunner("no-such-runner"))
	assert.Error(t, err)
	_, err = New(nil)
	assert.Error(t, err)
}

func TestFromSource_CompilesAndLoads(t *testing.T) {
	artifact, err := arithmetic(t).Artifact()
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "arithmetic.json")
	require.NoError(t, os.WriteFile(path, artifact, 0o644))

	ctrl := gomock.NewController(t)
	c := compiler.NewMockCompiler(ctrl)
	c.EXPECT().Compile(gomock.Any(), "arithmetic.cairo").Return(path, nil)

	loader, err := NewLoader(0)
	require.NoError(t, err)
	h, err := FromSource(context.Background(), c, loader, "arithmetic.cairo")
	require.NoError(t, err)

	res, err := h.Run(context.Background(), "pair", 1)
	require.NoError(t, err)
	assert.Equal(t, []any{big.NewInt(1), big.NewInt(2)}, res)
}

func TestFromSource_ReportsCompilationErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := compiler.NewMockCompiler(ctrl)
	failure := &compiler.CompilationError{Source: "broken.cairo", ExitCode: 1}
	c.EXPECT().Compile(gomock.Any(), "broken.cairo").Return("", failure)

	loader, err := NewLoader(-1)
	require.NoError(t, err)
	_, err = FromSource(context.Background(), c, loader, "broken.cairo")
	var compilationError *compiler.CompilationError
	require.ErrorAs(t, err, &compilationError)
	var fault *cairo.FaultError
	assert.False(t, errors.As(err, &fault))
}
