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

func TestParseReference_CompilerOutput(t *testing.T) {
	tests := map[string]struct {
		input  string
		want   string
		usesAp bool
	}{
		"fp relative":        {input: "[cast(fp + (-4), felt*)]", want: "[(fp + (0 - 4))]"},
		"fp":                 {input: "[cast(fp, felt*)]", want: "[fp]"},
		"nested dereference": {input: "[cast([fp + (-5)] + 1, felt*)]", want: "[([(fp + (0 - 5))] + 1)]"},
		"ap relative":        {input: "[cast(ap + (-1), felt*)]", want: "[(ap + (0 - 1))]", usesAp: true},
		"struct pointer":     {input: "cast([fp + (-3)], starkware.cairo.common.uint256.Uint256*)", want: "[(fp + (0 - 3))]"},
		"tuple type":         {input: "[cast(fp + 2, (a: felt, b: felt)*)]", want: "[(fp + 2)]"},
		"product":            {input: "[cast(ap + 2 * 3, felt*)]", want: "[(ap + (2 * 3))]", usesAp: true},
		"hex constant":       {input: "0x10", want: "16"},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			expr, err := ParseReference(test.input)
			if err != nil {
				t.Fatalf("failed to parse %q: %v", test.input, err)
			}
			if got := expr.String(); got != test.want {
				t.Errorf("unexpected expression, wanted %q, got %q", test.want, got)
			}
			if got := UsesAp(expr); got != test.usesAp {
				t.Errorf("unexpected ap usage, wanted %t, got %t", test.usesAp, got)
			}
		})
	}
}

func TestParseReference_InvalidInput(t *testing.T) {
	tests := []string{
		"",
		"[fp",
		"cast(fp, felt*",
		"fp + ",
		"ids.x",
		"[fp] ]",
		"%{ memory %}",
	}
	for _, input := range tests {
		if expr, err := ParseReference(input); err == nil {
			t.Errorf("expected error for %q, got %v", input, expr)
		}
	}
}
