// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package program

import "github.com/kkrt-labs/cairo-runner/go/cairo"

// Resolve looks up a function of the program by its fully qualified name
// or by its name relative to the program's main scope. Unknown names are
// reported as *cairo.UnknownFunctionError.
func Resolve(program *cairo.Program, name string) (*cairo.Function, error) {
	if fn, found := program.Functions[name]; found {
		return fn, nil
	}
	if program.MainScope != "" {
		if fn, found := program.Functions[program.MainScope+"."+name]; found {
			return fn, nil
		}
	}
	return nil, &cairo.UnknownFunctionError{Name: name}
}
