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
	"slices"
	"strings"

	"github.com/kkrt-labs/cairo-runner/go/cairo"
	"github.com/kkrt-labs/cairo-runner/go/runner/cvm"
	"golang.org/x/exp/maps"
)

func init() {
	// Experimental configurations should be covered by integration tests
	// as they might be used by down-stream tools and for debugging.
	cvm.RegisterExperimentalRunnerConfigurations()
}

// getAllRunnerVariantsForTests returns all registered runner variants
// that should be covered in integration tests.
func getAllRunnerVariantsForTests() []string {
	// Logging variants write every instruction and would flood the test output.
	variants := slices.DeleteFunc(
		maps.Keys(cairo.GetAllRegisteredRunners()),
		func(s string) bool { return strings.Contains(s, "logging") },
	)
	slices.Sort(variants)
	return variants
}
