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
	"context"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/kkrt-labs/cairo-runner/go/cairo"
	"github.com/kkrt-labs/cairo-runner/go/harness"
	"github.com/kkrt-labs/cairo-runner/go/program"
)

// Example is an executable description of a Cairo function paired with a
// host implementation computing the same function.
type Example struct {
	exampleSpec
	program *cairo.Program
}

// exampleSpec specifies a function of an assembled program.
type exampleSpec struct {
	Name      string                        // the name of the function in the program
	Params    []string                      // names of the explicit arguments
	assemble  func() *program.Builder       // assembles the program containing the function
	options   []harness.Option              // type hints required by the function's layout
	reference func(args []any) (any, error) // a reference function computing the same function
}

func (s exampleSpec) build() Example {
	prog, err := s.assemble().Build()
	if err != nil {
		panic(fmt.Sprintf("failed to assemble example %s: %v", s.Name, err))
	}
	return Example{
		exampleSpec: s,
		program:     prog,
	}
}

// Program returns the program containing the example function.
func (e *Example) Program() *cairo.Program {
	return e.program
}

// Artifact returns the JSON artifact of the program containing the example
// function, as produced by the Cairo compiler.
func (e *Example) Artifact() ([]byte, error) {
	return e.assemble().Artifact()
}

// Options returns the harness options required to call the example
// function, followed by the given ones.
func (e *Example) Options(opts ...harness.Option) []harness.Option {
	res := make([]harness.Option, 0, len(e.options)+len(opts))
	res = append(res, e.options...)
	return append(res, opts...)
}

// Harness creates a harness for the example's program using the given
// runner.
func (e *Example) Harness(runner string, opts ...harness.Option) (*harness.Harness, error) {
	return harness.New(e.program, e.Options(append([]harness.Option{harness.WithRunner(runner)}, opts...)...)...)
}

// RunOn runs this example on the given harness, using the given arguments.
func (e *Example) RunOn(ctx context.Context, h *harness.Harness, args ...any) (any, error) {
	return h.Run(ctx, e.Name, args...)
}

// RunReference runs the reference function of this example to produce the
// expected result. Inputs the Cairo function rejects produce the error the
// run is expected to fail with.
func (e *Example) RunReference(args ...any) (any, error) {
	if len(args) == 1 {
		if kwargs, ok := args[0].(harness.Kwargs); ok {
			positional, err := e.positional(kwargs)
			if err != nil {
				return nil, err
			}
			args = positional
		}
	}
	if len(args) != len(e.Params) {
		return nil, fmt.Errorf("%s expects %d arguments, got %d", e.Name, len(e.Params), len(args))
	}
	return e.reference(args)
}

func (e *Example) positional(kwargs harness.Kwargs) ([]any, error) {
	if len(kwargs) != len(e.Params) {
		return nil, fmt.Errorf("%s expects %d arguments, got %d", e.Name, len(e.Params), len(kwargs))
	}
	res := make([]any, 0, len(e.Params))
	for _, name := range e.Params {
		value, found := kwargs[name]
		if !found {
			return nil, fmt.Errorf("missing argument %q of %s", name, e.Name)
		}
		res = append(res, value)
	}
	return res, nil
}

// All returns every example shipped with this package.
func All() []Example {
	return []Example{
		GetMinExample(),
		GetDivModExample(),
		GetBytesToNibbleListExample(),
	}
}

// toUint256 converts the integer host values used by the examples.
func toUint256(value any) (*uint256.Int, error) {
	switch v := value.(type) {
	case int:
		if v >= 0 {
			return uint256.NewInt(uint64(v)), nil
		}
	case uint64:
		return uint256.NewInt(v), nil
	case *uint256.Int:
		return v, nil
	case *big.Int:
		if res, overflow := uint256.FromBig(v); v.Sign() >= 0 && !overflow {
			return res, nil
		}
	}
	return nil, &cairo.EncodingError{Type: "uint256", Reason: fmt.Sprintf("unsupported host value %v", value)}
}
