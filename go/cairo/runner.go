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

import "context"

//go:generate mockgen -source runner.go -destination runner_mock.go -package cairo

// Runner is a component capable of executing functions of Cairo programs.
// To obtain a Runner instance, client code should use NewRunner() provided
// by the registry file in this package.
type Runner interface {
	// Run executes the function described by the parameters and returns the
	// values left by the function in its return layout. Faults raised by the
	// executed code are reported as *FaultError; other errors indicate that
	// the run could not be set up or its result could not be extracted.
	// Runners are required to be thread-safe. Thus, multiple runs may be
	// conducted in parallel.
	Run(Parameters) (Result, error)
}

// Parameters summarizes the inputs of a single function run.
type Parameters struct {
	Context   context.Context // < optional, checked periodically during the run
	Program   *Program
	Function  *Function
	Args      []Arg // < one per implicit argument followed by one per argument
	StepLimit int   // < 0 selects the runner's default
}

// Arg is the encoded value of one argument member. Indirect values are
// placed in a fresh memory segment and the member receives a pointer to
// it. Arguments naming a builtin are served with a pointer to the
// builtin's segment and carry no cells.
type Arg struct {
	Cells    []Felt
	Indirect bool
	Builtin  string
}

// Result is the outcome of a halted run.
type Result struct {
	// Values holds one entry per return member. Inline members contribute
	// their cells, pointer members the cells of the addressed segment from
	// the pointer up to the first unset cell.
	Values [][]Felt

	// Implicit holds one entry per implicit argument; entries of builtin
	// pointers are nil.
	Implicit [][]Felt

	Steps int
}

// ProfilingRunner is an optional extension to the Runner interface which
// may be implemented by runners collecting statistical data on their
// executions.
type ProfilingRunner interface {
	Runner

	// ResetProfile resets the collected statistics. It should not be called
	// while runs are in progress.
	ResetProfile()

	// DumpProfile prints a snapshot of the statistics collected since the
	// last reset to stdout.
	DumpProfile()
}
