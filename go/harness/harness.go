// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package harness

import (
	"context"
	"fmt"

	"github.com/kkrt-labs/cairo-runner/go/abi"
	"github.com/kkrt-labs/cairo-runner/go/cairo"
	"github.com/kkrt-labs/cairo-runner/go/compiler"
	"github.com/kkrt-labs/cairo-runner/go/program"
	"github.com/sirupsen/logrus"

	// Registers the default runner.
	_ "github.com/kkrt-labs/cairo-runner/go/runner/cvm"
)

// Kwargs passes the arguments of a function by name.
type Kwargs map[string]any

// Harness runs the functions of a program on host values. A Harness may be
// used by multiple goroutines concurrently.
type Harness struct {
	program *cairo.Program
	runner  cairo.Runner
	options options
}

// New creates a harness for the given program using the runner selected by
// the options, cvm by default.
func New(prog *cairo.Program, opts ...Option) (*Harness, error) {
	if prog == nil {
		return nil, fmt.Errorf("missing program")
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	var config []any
	if o.runnerConfig != nil {
		config = append(config, o.runnerConfig)
	}
	runner, err := cairo.NewRunner(o.runner, config...)
	if err != nil {
		return nil, err
	}
	return &Harness{program: prog, runner: runner, options: o}, nil
}

// FromSource compiles the given source file, loads the produced artifact,
// and creates a harness for it.
func FromSource(ctx context.Context, c compiler.Compiler, loader *program.Loader, source string, opts ...Option) (*Harness, error) {
	artifact, err := c.Compile(ctx, source)
	if err != nil {
		return nil, err
	}
	prog, err := loader.LoadFile(artifact)
	if err != nil {
		return nil, err
	}
	return New(prog, opts...)
}

func (h *Harness) Program() *cairo.Program {
	return h.program
}

// Run calls the named function with the given arguments. Arguments are
// either passed positionally or as a single Kwargs value. Builtin pointers
// among the implicit arguments are provided automatically; other implicit
// arguments may be passed by name in Kwargs.
//
// The result is nil for functions without return values, the decoded value
// for functions with a single return value, and a []any otherwise. Faults
// are reported as *cairo.FaultError.
func (h *Harness) Run(ctx context.Context, name string, args ...any) (any, error) {
	fn, err := program.Resolve(h.program, name)
	if err != nil {
		return nil, err
	}
	encoded, err := h.encodeArgs(fn, args)
	if err != nil {
		return nil, err
	}

	res, err := h.runner.Run(cairo.Parameters{
		Context:   ctx,
		Program:   h.program,
		Function:  fn,
		Args:      encoded,
		StepLimit: h.options.stepLimit,
	})
	log := h.options.log.WithField("function", fn.Name)
	if err != nil {
		log.WithError(err).Debug("run failed")
		return nil, err
	}
	log.WithField("steps", res.Steps).Debug("run completed")

	values, err := h.decodeReturns(fn, res)
	if err != nil {
		return nil, err
	}
	switch len(values) {
	case 0:
		return nil, nil
	case 1:
		return values[0], nil
	}
	return values, nil
}

// bind orders the host values of the explicit arguments by position and
// collects named values of non-builtin implicit arguments.
func bind(fn *cairo.Function, args []any) ([]any, map[string]any, error) {
	kwargs, isKwargs := Kwargs(nil), false
	if len(args) == 1 {
		kwargs, isKwargs = args[0].(Kwargs)
	}
	if !isKwargs {
		if len(args) != len(fn.Args) {
			return nil, nil, &cairo.EncodingError{
				Type:   fn.Name,
				Reason: fmt.Sprintf("expected %d arguments, got %d", len(fn.Args), len(args)),
			}
		}
		return args, nil, nil
	}

	positional := make([]any, len(fn.Args))
	set := make([]bool, len(fn.Args))
	implicit := map[string]any{}
	for name, value := range kwargs {
		if pos, found := fn.ArgPositions[name]; found && pos < len(fn.Args) && fn.Args[pos].Name == name {
			positional[pos], set[pos] = value, true
			continue
		}
		if isImplicit(fn, name) {
			implicit[name] = value
			continue
		}
		return nil, nil, &cairo.EncodingError{Type: fn.Name, Reason: fmt.Sprintf("unknown argument %q", name)}
	}
	for i, ok := range set {
		if !ok {
			return nil, nil, &cairo.EncodingError{Type: fn.Name, Reason: fmt.Sprintf("missing argument %q", fn.Args[i].Name)}
		}
	}
	return positional, implicit, nil
}

func isImplicit(fn *cairo.Function, name string) bool {
	for _, m := range fn.ImplicitArgs {
		if m.Name == name {
			_, isBuiltin := m.Builtin()
			return !isBuiltin
		}
	}
	return false
}

func (h *Harness) encodeArgs(fn *cairo.Function, args []any) ([]cairo.Arg, error) {
	positional, implicit, err := bind(fn, args)
	if err != nil {
		return nil, err
	}
	res := make([]cairo.Arg, 0, len(fn.ImplicitArgs)+len(fn.Args))
	for _, member := range fn.ImplicitArgs {
		if builtin, ok := member.Builtin(); ok {
			res = append(res, cairo.Arg{Builtin: builtin})
			continue
		}
		value, found := implicit[member.Name]
		if !found {
			return nil, &cairo.EncodingError{Type: fn.Name, Reason: fmt.Sprintf("missing implicit argument %q", member.Name)}
		}
		arg, err := h.encodeMember(fn, member, value)
		if err != nil {
			return nil, err
		}
		res = append(res, arg)
	}
	for i, member := range fn.Args {
		arg, err := h.encodeMember(fn, member, positional[i])
		if err != nil {
			return nil, err
		}
		res = append(res, arg)
	}
	return res, nil
}

func (h *Harness) encodeMember(fn *cairo.Function, member cairo.Member, value any) (cairo.Arg, error) {
	t := h.options.typeOf(h.options.argTypes, fn, member)
	cells, err := abi.Encode(t, value)
	if err != nil {
		return cairo.Arg{}, err
	}
	if member.IsPointer() {
		return cairo.Arg{Cells: cells, Indirect: true}, nil
	}
	if len(cells) != member.Size {
		return cairo.Arg{}, &cairo.EncodingError{
			Type:   t.Name(),
			Reason: fmt.Sprintf("member %s of %s occupies %d cells, encoding has %d", member.Name, fn.Name, member.Size, len(cells)),
		}
	}
	return cairo.Arg{Cells: cells}, nil
}

func (h *Harness) decodeReturns(fn *cairo.Function, res cairo.Result) ([]any, error) {
	if len(res.Values) != len(fn.Returns) {
		return nil, fmt.Errorf("runner returned %d values for %d return members of %s", len(res.Values), len(fn.Returns), fn.Name)
	}
	values := make([]any, len(fn.Returns))
	for i, member := range fn.Returns {
		t := h.options.typeOf(h.options.returnTypes, fn, member)
		var err error
		if member.IsPointer() {
			values[i], _, err = abi.DecodePrefix(t, res.Values[i])
		} else {
			values[i], err = abi.Decode(t, res.Values[i])
		}
		if err != nil {
			return nil, err
		}
	}
	return values, nil
}

// --- Options ---

type Option func(*options)

type options struct {
	runner       string
	runnerConfig any
	stepLimit    int
	argTypes     map[string]abi.Type // < keyed by function short name and member
	returnTypes  map[string]abi.Type
	log          *logrus.Logger
}

func defaultOptions() options {
	return options{
		runner:      cairo.DefaultRunner,
		argTypes:    map[string]abi.Type{},
		returnTypes: map[string]abi.Type{},
		log:         logrus.StandardLogger(),
	}
}

func typeKey(function, member string) string {
	return function + "/" + member
}

func (o *options) typeOf(overrides map[string]abi.Type, fn *cairo.Function, member cairo.Member) abi.Type {
	if t, found := overrides[typeKey(fn.Name, member.Name)]; found {
		return t
	}
	if t, found := overrides[typeKey(fn.ShortName(), member.Name)]; found {
		return t
	}
	return abi.ForMember(member)
}

// WithRunner selects the runner by its registered name. The optional
// configuration is passed to the runner's factory.
func WithRunner(name string, config ...any) Option {
	return func(o *options) {
		o.runner = name
		if len(config) > 0 {
			o.runnerConfig = config[0]
		}
	}
}

// WithStepLimit sets the step budget of each run. Zero selects the runner's
// default.
func WithStepLimit(steps int) Option {
	return func(o *options) {
		o.stepLimit = steps
	}
}

// WithArgType overrides the type hint of an argument member. The function
// may be given by its short or fully qualified name.
func WithArgType(function, member string, t abi.Type) Option {
	return func(o *options) {
		o.argTypes[typeKey(function, member)] = t
	}
}

// WithReturnType overrides the type hint of a return member.
func WithReturnType(function, member string, t abi.Type) Option {
	return func(o *options) {
		o.returnTypes[typeKey(function, member)] = t
	}
}

func WithLogger(log *logrus.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}
