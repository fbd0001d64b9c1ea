// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package ct checks Cairo functions against host reference implementations
// on randomly generated inputs.
package ct

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/kkrt-labs/cairo-runner/go/abi"
	"github.com/kkrt-labs/cairo-runner/go/cairo"
	"github.com/kkrt-labs/cairo-runner/go/examples"
	"github.com/kkrt-labs/cairo-runner/go/harness"
	"pgregory.net/rand"
)

// ConsumerResult is the return type of callback functions consuming
// generated test cases.
type ConsumerResult bool

const (
	ConsumeContinue ConsumerResult = true
	ConsumeAbort    ConsumerResult = false
)

// Rule describes a family of test cases for an example function. Every
// case generated by the rule is expected to produce the same outcome on
// the Cairo function and on its reference implementation.
type Rule struct {
	Name     string
	Example  examples.Example
	Generate func(rnd *rand.Rand) []any // < arguments of a single case, positional or a single harness.Kwargs

	// ExpectFault is the fault every case of the rule must raise; nil if
	// the cases must succeed.
	ExpectFault error
}

// Case is a single input generated by a rule.
type Case struct {
	Rule  *Rule
	Index int
	Args  []any
}

func (c *Case) String() string {
	return fmt.Sprintf("%s#%d%v", c.Rule.Name, c.Index, c.Args)
}

// Mismatch reports a case for which the Cairo function and the reference
// disagree.
type Mismatch struct {
	Case    string
	Want    any
	WantErr error
	Got     any
	Err     error
}

func (m *Mismatch) Error() string {
	want := fmt.Sprint(m.Want)
	if m.WantErr != nil {
		want = "fault " + m.WantErr.Error()
	}
	got := fmt.Sprint(m.Got)
	if m.Err != nil {
		got = "error " + m.Err.Error()
	}
	return fmt.Sprintf("case %s: wanted %s, got %s", m.Case, want, got)
}

// Check runs the case on the given harness and compares the outcome with
// the outcome of the reference implementation. Disagreements are reported
// as *Mismatch; other errors indicate a broken rule.
func (c *Case) Check(ctx context.Context, h *harness.Harness) error {
	want, wantErr := c.Rule.Example.RunReference(c.Args...)
	if c.Rule.ExpectFault != nil && !errors.Is(wantErr, c.Rule.ExpectFault) {
		return fmt.Errorf("case %v: reference does not raise %v, got %v", c, c.Rule.ExpectFault, wantErr)
	}
	var reason cairo.FaultReason
	if wantErr != nil && !errors.As(wantErr, &reason) {
		return fmt.Errorf("case %v is not accepted by the reference: %w", c, wantErr)
	}

	got, err := c.Rule.Example.RunOn(ctx, h, c.Args...)
	if wantErr != nil {
		if errors.Is(err, reason) {
			return nil
		}
		return &Mismatch{Case: c.String(), WantErr: wantErr, Got: got, Err: err}
	}
	if err != nil || !abi.Equal(want, got) {
		return &Mismatch{Case: c.String(), Want: want, Got: got, Err: err}
	}
	return nil
}

// Target runs the cases of a set of rules on a runner.
type Target struct {
	harnesses map[string]*harness.Harness // < keyed by rule name
}

// NewTarget creates harnesses for the examples of the given rules using
// the named runner.
func NewTarget(runner string, rules []Rule, opts ...harness.Option) (*Target, error) {
	res := &Target{harnesses: map[string]*harness.Harness{}}
	for _, rule := range rules {
		h, err := rule.Example.Harness(runner, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create harness for rule %s: %w", rule.Name, err)
		}
		res.harnesses[rule.Name] = h
	}
	return res, nil
}

func (t *Target) Check(ctx context.Context, c Case) error {
	h, found := t.harnesses[c.Rule.Name]
	if !found {
		return fmt.Errorf("no harness for rule %s", c.Rule.Name)
	}
	return c.Check(ctx, h)
}

func FilterRules(rules []Rule, filter *regexp.Regexp) []Rule {
	if filter == nil {
		return rules
	}
	res := make([]Rule, 0, len(rules))
	for _, rule := range rules {
		if filter.MatchString(rule.Name) {
			res = append(res, rule)
		}
	}
	return res
}
