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
	"bytes"
	"reflect"
)

// Equal reports whether two host values are equal. Integers are compared
// by value independent of their host representation, byte strings by
// content, and lists element-wise. Other values are compared deeply.
func Equal(a, b any) bool {
	if x, ok := asBytes(a); ok {
		y, ok := asBytes(b)
		return ok && bytes.Equal(x, y)
	}
	if x, ok := toBig(a); ok {
		y, ok := toBig(b)
		return ok && x.Cmp(y) == 0
	}
	if x, ok := a.([]any); ok {
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}
