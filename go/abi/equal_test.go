// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package abi

import (
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/kkrt-labs/cairo-runner/go/cairo"
)

func TestEqual(t *testing.T) {
	tests := map[string]struct {
		a, b any
		want bool
	}{
		"same ints":             {1, 1, true},
		"different ints":        {1, 2, false},
		"zero representations":  {new(big.Int), uint256.NewInt(0), true},
		"big and int":           {big.NewInt(42), 42, true},
		"felt and big":          {cairo.FeltFromUint64(7), big.NewInt(7), true},
		"empty byte strings":    {[]byte{}, []byte(nil), true},
		"bytes and string":      {[]byte("ab"), "ab", true},
		"different bytes":       {[]byte{1}, []byte{2}, false},
		"bytes and int":         {[]byte{1}, 1, false},
		"lists":                 {[]any{big.NewInt(0), 1}, []any{0, uint64(1)}, true},
		"lists of other length": {[]any{1}, []any{1, 2}, false},
		"list and int":          {[]any{1}, 1, false},
		"nil values":            {nil, nil, true},
		"nil and zero":          {nil, 0, false},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			if got := Equal(test.a, test.b); got != test.want {
				t.Errorf("Equal(%v, %v) = %t, wanted %t", test.a, test.b, got, test.want)
			}
			if got := Equal(test.b, test.a); got != test.want {
				t.Errorf("Equal(%v, %v) = %t, wanted %t", test.b, test.a, got, test.want)
			}
		})
	}
}
