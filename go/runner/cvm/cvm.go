// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package cvm

import (
	"fmt"

	"github.com/kkrt-labs/cairo-runner/go/cairo"
)

// Registers the Cairo VM as a possible runner implementation.
func init() {
	configs := map[string]Config{
		// The officially supported configuration, to be used by default.
		"cvm": {},
	}
	for name, config := range configs {
		config := config
		register(name, config)
	}
}

// RegisterExperimentalRunnerConfigurations registers all experimental
// runner configurations to the runner registry. This function should not be
// called in production code, as the resulting runners are not officially
// supported.
func RegisterExperimentalRunnerConfigurations() {
	for _, mode := range []string{"-stats", "-logging"} {
		config := Config{}
		if mode == "-stats" {
			config.runner = &statisticRunner{
				stats: newStatistics(),
			}
		} else {
			config.runner = loggingRunner{}
		}
		register("cvm"+mode, config)
	}
	register("cvm-no-decoder-cache", Config{
		DecoderConfig: DecoderConfig{
			CacheSize: -1,
		},
	})
}

func register(name string, config Config) {
	// Configurations may be registered more than once by tests.
	if cairo.GetRunnerFactory(name) != nil {
		return
	}
	err := cairo.RegisterRunnerFactory(name, func(custom any) (cairo.Runner, error) {
		if custom, ok := custom.(Config); ok {
			custom.runner = config.runner
			return NewVm(custom)
		}
		return NewVm(config)
	})
	if err != nil {
		panic(fmt.Sprintf("failed to register runner %q: %v", name, err))
	}
}

// DefaultMaxSteps is the step budget of runs not specifying their own.
const DefaultMaxSteps = 1 << 20

const (
	programSegment   = 0
	executionSegment = 1
)

type Config struct {
	DecoderConfig
	// MaxSteps is the default step budget of a run. If set to 0,
	// DefaultMaxSteps is used.
	MaxSteps int
	runner   runner
}

type cvm struct {
	config  Config
	decoder *decoder
}

func NewVm(config Config) (*cvm, error) {
	if config.MaxSteps < 0 {
		return nil, fmt.Errorf("invalid step budget %d", config.MaxSteps)
	}
	if config.MaxSteps == 0 {
		config.MaxSteps = DefaultMaxSteps
	}
	decoder, err := newDecoder(config.DecoderConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %v", err)
	}
	return &cvm{config: config, decoder: decoder}, nil
}

func (v *cvm) Run(params cairo.Parameters) (cairo.Result, error) {
	if params.Program == nil || params.Function == nil {
		return cairo.Result{}, fmt.Errorf("missing program or function")
	}
	fn := params.Function
	if got, want := len(params.Args), len(fn.ImplicitArgs)+len(fn.Args); got != want {
		return cairo.Result{}, fmt.Errorf("function %s expects %d arguments, got %d", fn.Name, want, got)
	}

	stepLimit := params.StepLimit
	if stepLimit <= 0 {
		stepLimit = v.config.MaxSteps
	}
	m := &machine{
		ctx:          params.Context,
		program:      v.decoder.decode(params.Program),
		function:     fn,
		stepLimit:    stepLimit,
		memory:       newMemory(),
		scopes:       []map[string]any{{}},
		builtinBases: map[string]cairo.Pointer{},
	}
	defer returnMemory(m.memory)

	if err := m.initialize(params.Args); err != nil {
		return cairo.Result{}, err
	}

	runner := v.config.runner
	if runner == nil {
		runner = vanillaRunner{}
	}
	status, err := runner.run(m)
	if err != nil {
		return cairo.Result{}, err
	}
	return generateResult(status, m)
}

func (v *cvm) DumpProfile() {
	if statsRunner, ok := v.config.runner.(*statisticRunner); ok {
		fmt.Print(statsRunner.getSummary())
	}
}

func (v *cvm) ResetProfile() {
	if statsRunner, ok := v.config.runner.(*statisticRunner); ok {
		statsRunner.reset()
	}
}

// initialize lays out the memory of a run and sets up the registers for
// entering the function. The stack holds the arguments followed by the
// return fp and the return pc; the return pc points to a dedicated segment
// reaching which halts the machine.
func (m *machine) initialize(args []cairo.Arg) error {
	mem := m.memory
	mem.addSegment() // program
	mem.addSegment() // execution

	data := make([]cairo.Cell, len(m.program.program.Data))
	for i, word := range m.program.program.Data {
		data[i] = cairo.FeltCell(word)
	}
	if err := mem.load(cairo.Pointer{Segment: programSegment}, data); err != nil {
		return err
	}
	for _, name := range m.program.program.Builtins {
		m.builtinBase(name)
	}
	m.end = mem.addSegment()
	returnFp := mem.addSegment()

	fn := m.function
	stack := make([]cairo.Cell, 0, fn.ArgsSize()+2)
	for i, arg := range args {
		var member cairo.Member
		if i < len(fn.ImplicitArgs) {
			member = fn.ImplicitArgs[i]
		} else {
			member = fn.Args[i-len(fn.ImplicitArgs)]
		}

		switch {
		case arg.Builtin != "":
			stack = append(stack, cairo.PointerCell(m.builtinBase(arg.Builtin)))
		case arg.Indirect:
			segment := mem.addSegment()
			if err := mem.load(segment, feltCells(arg.Cells)); err != nil {
				return err
			}
			stack = append(stack, cairo.PointerCell(segment))
		default:
			if len(arg.Cells) != member.Size {
				return fmt.Errorf("argument %s of %s requires %d cells, got %d", member.Name, fn.Name, member.Size, len(arg.Cells))
			}
			stack = append(stack, feltCells(arg.Cells)...)
			continue
		}
		if member.Size != 1 {
			return fmt.Errorf("argument %s of %s occupies %d cells and cannot hold a pointer", member.Name, fn.Name, member.Size)
		}
	}
	stack = append(stack, cairo.PointerCell(returnFp), cairo.PointerCell(m.end))

	execution := cairo.Pointer{Segment: executionSegment}
	if err := mem.load(execution, stack); err != nil {
		return err
	}
	m.fp = cairo.Pointer{Segment: executionSegment, Offset: len(stack)}
	m.ap = m.fp
	m.pc = cairo.Pointer{Segment: programSegment, Offset: fn.Pc}
	return nil
}

// builtinBase returns the segment base of a builtin, creating the segment
// on first use.
func (m *machine) builtinBase(name string) cairo.Pointer {
	if base, found := m.builtinBases[name]; found {
		return base
	}
	base := m.memory.addSegment()
	m.memory.builtins[base.Segment] = newBuiltin(name)
	m.builtinBases[name] = base
	return base
}

func feltCells(felts []cairo.Felt) []cairo.Cell {
	res := make([]cairo.Cell, len(felts))
	for i, f := range felts {
		res[i] = cairo.FeltCell(f)
	}
	return res
}

func generateResult(status status, m *machine) (cairo.Result, error) {
	switch status {
	case statusHalted:
		return extractResult(m)
	case statusFaulted:
		return cairo.Result{}, m.fault
	}
	return cairo.Result{}, fmt.Errorf("unexpected error in machine, unknown status: %v", status)
}
