// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package runner

import (
	"context"
	"fmt"
	"testing"

	"github.com/kkrt-labs/cairo-runner/go/abi"
	"github.com/kkrt-labs/cairo-runner/go/cairo"
	"github.com/kkrt-labs/cairo-runner/go/examples"
	"github.com/kkrt-labs/cairo-runner/go/program"
	"golang.org/x/sync/errgroup"
)

func TestStress_ParallelRunsOnSharedHarness(t *testing.T) {
	example := examples.GetDivModExample()
	for _, variant := range getAllRunnerVariantsForTests() {
		t.Run(variant, func(t *testing.T) {
			h, err := example.Harness(variant)
			if err != nil {
				t.Fatalf("failed to create harness: %v", err)
			}
			errs, ctx := errgroup.WithContext(context.Background())
			errs.SetLimit(16)
			for i := 0; i < 200; i++ {
				i := i
				errs.Go(func() error {
					value, div := 1000+i, 1+i%17
					got, err := example.RunOn(ctx, h, value, div)
					if err != nil {
						return err
					}
					want := []any{value / div, value % div}
					if !abi.Equal(want, got) {
						return fmt.Errorf("divmod(%d, %d): wanted %v, got %v", value, div, want, got)
					}
					return nil
				})
			}
			if err := errs.Wait(); err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestStress_ProfilingRunnersCanBeResetDuringUse(t *testing.T) {
	prog, err := examples.NumericProgram().Build()
	if err != nil {
		t.Fatalf("failed to build program: %v", err)
	}
	fn, err := program.Resolve(prog, "test_min")
	if err != nil {
		t.Fatalf("failed to resolve function: %v", err)
	}
	for _, variant := range getAllRunnerVariantsForTests() {
		t.Run(variant, func(t *testing.T) {
			runner, err := cairo.NewRunner(variant)
			if err != nil {
				t.Fatalf("failed to create runner: %v", err)
			}
			profiling, ok := runner.(cairo.ProfilingRunner)
			if !ok {
				t.Skipf("%s does not collect profiles", variant)
			}
			for i := 0; i < 10; i++ {
				res, err := profiling.Run(cairo.Parameters{
					Program:  prog,
					Function: fn,
					Args: []cairo.Arg{
						{Builtin: "range_check"},
						{Cells: []cairo.Felt{cairo.FeltFromUint64(uint64(i))}},
						{Cells: []cairo.Felt{cairo.FeltFromUint64(5)}},
					},
				})
				if err != nil {
					t.Fatalf("run failed: %v", err)
				}
				if want, got := cairo.FeltFromUint64(uint64(min(i, 5))), res.Values[0][0]; want != got {
					t.Errorf("unexpected result, wanted %v, got %v", want, got)
				}
			}
			profiling.DumpProfile()
			profiling.ResetProfile()
		})
	}
}
