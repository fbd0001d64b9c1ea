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
	"strings"

	"github.com/kkrt-labs/cairo-runner/go/cairo"
)

// ForCairoType returns the default type hint for a Cairo type. The result
// is false if there is no default for the type.
func ForCairoType(cairoType string) (Type, bool) {
	cairoType = strings.TrimSpace(cairoType)
	name := cairoType[strings.LastIndex(cairoType, ".")+1:]
	switch {
	case cairoType == "felt":
		return Felt, true
	case cairoType == "felt*":
		return List(Felt), true
	case name == "Uint256":
		return U256, true
	case name == "Uint256*":
		return List(U256), true
	case name == "bool":
		return Bool, true
	}
	return nil, false
}

// ForMember returns the type hint of a member of a function layout: the
// default for its Cairo type, or a sequence of felts matching the member's
// size for inline members without a default.
func ForMember(m cairo.Member) Type {
	if t, found := ForCairoType(m.Type); found {
		return t
	}
	if m.IsPointer() {
		return List(Felt)
	}
	return Felts(m.Size)
}
