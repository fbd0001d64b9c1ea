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
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/kkrt-labs/cairo-runner/go/abi"
	"github.com/kkrt-labs/cairo-runner/go/cairo"
	"github.com/kkrt-labs/cairo-runner/go/ct"
	"github.com/kkrt-labs/cairo-runner/go/examples"
	"github.com/kkrt-labs/cairo-runner/go/harness"
	"pgregory.net/rand"
)

const casesPerRule = 25

func TestExamples_AllRunnersAgreeWithReference(t *testing.T) {
	rules := ct.Rules()
	for _, variant := range getAllRunnerVariantsForTests() {
		target, err := ct.NewTarget(variant, rules)
		if err != nil {
			t.Fatalf("failed to create target for %s: %v", variant, err)
		}
		for i := range rules {
			i := i
			rule := &rules[i]
			t.Run(fmt.Sprintf("%s/%s", variant, rule.Name), func(t *testing.T) {
				t.Parallel()
				rnd := rand.New(uint64(i))
				for j := 0; j < casesPerRule; j++ {
					c := ct.Case{Rule: rule, Index: j, Args: rule.Generate(rnd)}
					if err := target.Check(context.Background(), c); err != nil {
						t.Errorf("case %v failed: %v", &c, err)
					}
				}
			})
		}
	}
}

func TestExamples_FixedInputs(t *testing.T) {
	type call struct {
		example examples.Example
		args    []any
		want    any
	}
	calls := []call{
		{examples.GetMinExample(), []any{3, 5}, 3},
		{examples.GetMinExample(), []any{5, 3}, 3},
		{examples.GetMinExample(), []any{7, 7}, 7},
		{examples.GetDivModExample(), []any{100, 7}, []any{14, 2}},
		{examples.GetDivModExample(), []any{6, 7}, []any{0, 6}},
		{examples.GetBytesToNibbleListExample(), []any{[]byte{0x12, 0xab}}, []byte{1, 2, 0xa, 0xb}},
		{examples.GetBytesToNibbleListExample(), []any{[]byte{}}, []byte{}},
	}
	for _, variant := range getAllRunnerVariantsForTests() {
		for i, c := range calls {
			t.Run(fmt.Sprintf("%s/%s-%d", variant, c.example.Name, i), func(t *testing.T) {
				h, err := c.example.Harness(variant)
				if err != nil {
					t.Fatalf("failed to create harness: %v", err)
				}
				got, err := c.example.RunOn(context.Background(), h, c.args...)
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if !abi.Equal(c.want, got) {
					t.Errorf("unexpected result, wanted %v, got %v", c.want, got)
				}
			})
		}
	}
}

func TestExamples_DivisionByZeroFaults(t *testing.T) {
	example := examples.GetDivModExample()
	for _, variant := range getAllRunnerVariantsForTests() {
		t.Run(variant, func(t *testing.T) {
			h, err := example.Harness(variant)
			if err != nil {
				t.Fatalf("failed to create harness: %v", err)
			}
			_, err = example.RunOn(context.Background(), h, 1, 0)
			var fault *cairo.FaultError
			if !errors.As(err, &fault) || fault.Reason != cairo.DivisionUndefined {
				t.Errorf("expected DivisionUndefined fault, got %v", err)
			}
		})
	}
}

func TestExamples_UnknownFunctionFailsBeforeExecution(t *testing.T) {
	example := examples.GetMinExample()
	for _, variant := range getAllRunnerVariantsForTests() {
		t.Run(variant, func(t *testing.T) {
			h, err := example.Harness(variant)
			if err != nil {
				t.Fatalf("failed to create harness: %v", err)
			}
			_, err = h.Run(context.Background(), "test_max", 1, 2)
			var unknown *cairo.UnknownFunctionError
			if !errors.As(err, &unknown) {
				t.Errorf("expected unknown function error, got %v", err)
			}
		})
	}
}

func TestExamples_StepLimitIsEnforced(t *testing.T) {
	example := examples.GetBytesToNibbleListExample()
	for _, variant := range getAllRunnerVariantsForTests() {
		t.Run(variant, func(t *testing.T) {
			h, err := example.Harness(variant, harness.WithStepLimit(10))
			if err != nil {
				t.Fatalf("failed to create harness: %v", err)
			}
			_, err = example.RunOn(context.Background(), h, make([]byte, 32))
			var fault *cairo.FaultError
			if !errors.As(err, &fault) || fault.Reason != cairo.StepLimitExceeded {
				t.Errorf("expected StepLimitExceeded fault, got %v", err)
			}
		})
	}
}

func BenchmarkExamples(b *testing.B) {
	inputs := map[string][]any{
		"min":     {examples.GetMinExample(), 12, 7},
		"divmod":  {examples.GetDivModExample(), new(big.Int).Lsh(big.NewInt(1), 100), 12345},
		"nibbles": {examples.GetBytesToNibbleListExample(), make([]byte, 64)},
	}
	for _, variant := range getAllRunnerVariantsForTests() {
		for name, input := range inputs {
			example := input[0].(examples.Example)
			args := input[1:]
			b.Run(fmt.Sprintf("%s/%s", variant, name), func(b *testing.B) {
				h, err := example.Harness(variant)
				if err != nil {
					b.Fatalf("failed to create harness: %v", err)
				}
				b.ResetTimer()
				for i := 0; i < b.N; i++ {
					if _, err := example.RunOn(context.Background(), h, args...); err != nil {
						b.Fatalf("run failed: %v", err)
					}
				}
			})
		}
	}
}
