// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package ct

import (
	"context"
	"errors"
	"math/big"
	"regexp"
	"testing"

	"github.com/kkrt-labs/cairo-runner/go/cairo"
	"github.com/kkrt-labs/cairo-runner/go/harness"
	"github.com/kkrt-labs/cairo-runner/go/reference"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"pgregory.net/rand"
)

func TestRules_HaveUniqueNames(t *testing.T) {
	seen := map[string]bool{}
	for _, rule := range Rules() {
		assert.False(t, seen[rule.Name], "duplicate rule %s", rule.Name)
		seen[rule.Name] = true
	}
	for _, name := range []string{"min", "divmod", "divmod_by_zero", "bytes_to_nibble_list"} {
		assert.True(t, seen[name], "missing rule %s", name)
	}
}

func TestRules_GenerateInputsAcceptedByTheReference(t *testing.T) {
	rnd := rand.New(0)
	for _, rule := range Rules() {
		for i := 0; i < 100; i++ {
			args := rule.Generate(rnd)
			_, err := rule.Example.RunReference(args...)
			if rule.ExpectFault == nil {
				require.NoError(t, err, "rule %s, args %v", rule.Name, args)
			} else {
				require.ErrorIs(t, err, rule.ExpectFault, "rule %s, args %v", rule.Name, args)
			}
		}
	}
}

func TestRandomDivisor_IsInRange(t *testing.T) {
	rnd := rand.New(1)
	maxDivisor := reference.MaxDivisor.ToBig()
	for i := 0; i < 1000; i++ {
		div := randomDivisor(rnd)
		require.True(t, div.Sign() > 0, "divisor %v is not positive", div)
		require.True(t, div.Cmp(maxDivisor) <= 0, "divisor %v exceeds the bound", div)
	}
}

func TestRandomUint128_IsInRange(t *testing.T) {
	rnd := rand.New(2)
	limit := new(big.Int).Lsh(big.NewInt(1), 128)
	for i := 0; i < 1000; i++ {
		v := randomUint128(rnd)
		require.True(t, v.Sign() >= 0 && v.Cmp(limit) < 0, "value %v out of range", v)
	}
}

func TestFilterRules(t *testing.T) {
	rules := Rules()
	assert.Len(t, FilterRules(rules, nil), len(rules))
	filtered := FilterRules(rules, regexp.MustCompile("^divmod"))
	require.Len(t, filtered, 2)
	assert.Equal(t, "divmod", filtered[0].Name)
	assert.Equal(t, "divmod_by_zero", filtered[1].Name)
}

func TestTarget_AllRulesPassOnDefaultRunner(t *testing.T) {
	rules := Rules()
	target, err := NewTarget(cairo.DefaultRunner, rules)
	require.NoError(t, err)
	rnd := rand.New(3)
	for i := range rules {
		for index := 0; index < 20; index++ {
			c := Case{Rule: &rules[i], Index: index, Args: rules[i].Generate(rnd)}
			assert.NoError(t, target.Check(context.Background(), c))
		}
	}
}

func TestTarget_ReportsMismatches(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := cairo.NewMockRunner(ctrl)
	require.NoError(t, cairo.RegisterRunnerFactory("ct-test-mock", func(any) (cairo.Runner, error) {
		return runner, nil
	}))

	rules := FilterRules(Rules(), regexp.MustCompile("^min$"))
	target, err := NewTarget("ct-test-mock", rules)
	require.NoError(t, err)
	c := Case{Rule: &rules[0], Args: []any{harness.Kwargs{"a": 1, "b": 2}}}

	runner.EXPECT().Run(gomock.Any()).Return(cairo.Result{
		Values: [][]cairo.Felt{{cairo.FeltFromUint64(2)}},
	}, nil)
	err = target.Check(context.Background(), c)
	var mismatch *Mismatch
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, big.NewInt(1), mismatch.Want)
	assert.Equal(t, big.NewInt(2), mismatch.Got)

	injected := &cairo.FaultError{Reason: cairo.AssertionFailed}
	runner.EXPECT().Run(gomock.Any()).Return(cairo.Result{}, injected)
	err = target.Check(context.Background(), c)
	require.ErrorAs(t, err, &mismatch)
	assert.True(t, errors.Is(mismatch.Err, cairo.AssertionFailed))
	assert.Contains(t, err.Error(), "min#0")
}

func TestCase_ExpectedFaultMustBeRaised(t *testing.T) {
	ctrl := gomock.NewController(t)
	runner := cairo.NewMockRunner(ctrl)
	require.NoError(t, cairo.RegisterRunnerFactory("ct-test-fault-mock", func(any) (cairo.Runner, error) {
		return runner, nil
	}))

	rules := FilterRules(Rules(), regexp.MustCompile("^divmod_by_zero$"))
	target, err := NewTarget("ct-test-fault-mock", rules)
	require.NoError(t, err)
	c := Case{Rule: &rules[0], Args: []any{harness.Kwargs{"value": 5, "div": 0}}}

	runner.EXPECT().Run(gomock.Any()).Return(cairo.Result{}, &cairo.FaultError{Reason: cairo.DivisionUndefined})
	assert.NoError(t, target.Check(context.Background(), c))

	runner.EXPECT().Run(gomock.Any()).Return(cairo.Result{
		Values: [][]cairo.Felt{{cairo.FeltFromUint64(0)}, {cairo.FeltFromUint64(5)}},
	}, nil)
	var mismatch *Mismatch
	assert.ErrorAs(t, target.Check(context.Background(), c), &mismatch)
}

func TestCase_RuleWithWrongExpectationIsReported(t *testing.T) {
	rule := Rules()[0]
	rule.ExpectFault = cairo.StepLimitExceeded
	c := Case{Rule: &rule, Args: []any{harness.Kwargs{"a": 1, "b": 2}}}
	h, err := rule.Example.Harness(cairo.DefaultRunner)
	require.NoError(t, err)
	err = c.Check(context.Background(), h)
	require.Error(t, err)
	var mismatch *Mismatch
	assert.False(t, errors.As(err, &mismatch))
}
