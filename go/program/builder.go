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

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/kkrt-labs/cairo-runner/go/cairo"
	"golang.org/x/exp/maps"
)

// Param declares a member of an argument or return layout.
type Param struct {
	Name string
	Type string
}

// Felts declares felt members with the given names.
func Felts(names ...string) []Param {
	res := make([]Param, 0, len(names))
	for _, name := range names {
		res = append(res, Param{Name: name, Type: "felt"})
	}
	return res
}

// Builder assembles program artifacts without a Cairo compiler. It is
// used for tests and for programs shipped with this module. Errors are
// collected and reported by Artifact and Build.
type Builder struct {
	scope       string
	builtins    []string
	data        []cairo.Felt
	identifiers map[string]identifier
	hints       map[string][]hint
	references  []reference
	function    string
	err         error
}

func NewBuilder(mainScope string) *Builder {
	return &Builder{
		scope:       mainScope,
		identifiers: map[string]identifier{},
		hints:       map[string][]hint{},
	}
}

// Pc returns the offset of the next emitted word.
func (b *Builder) Pc() int {
	return len(b.data)
}

func (b *Builder) fail(format string, args ...any) *Builder {
	if b.err == nil {
		b.err = fmt.Errorf(format, args...)
	}
	return b
}

// Builtins declares the builtins used by the program.
func (b *Builder) Builtins(names ...string) *Builder {
	b.builtins = append(b.builtins, names...)
	return b
}

func (b *Builder) qualify(name string) string {
	if b.scope == "" {
		return name
	}
	return b.scope + "." + name
}

// Struct declares a struct type with the given members.
func (b *Builder) Struct(name string, members []Param) *Builder {
	fullName := b.qualify(name)
	id, err := b.structIdentifier(fullName, members)
	if err != nil {
		return b.fail("struct %s: %v", name, err)
	}
	b.identifiers[fullName] = id
	return b
}

func (b *Builder) structIdentifier(fullName string, members []Param) (identifier, error) {
	types := typeResolver{identifiers: b.identifiers, mainScope: b.scope}
	res := identifier{
		Type:     "struct",
		FullName: fullName,
		Members:  map[string]member{},
	}
	offset := 0
	for _, m := range members {
		size, err := types.size(m.Type)
		if err != nil {
			return identifier{}, err
		}
		if _, found := res.Members[m.Name]; found {
			return identifier{}, fmt.Errorf("duplicate member %s", m.Name)
		}
		res.Members[m.Name] = member{CairoType: m.Type, Offset: offset}
		offset += size
	}
	res.Size = &offset
	return res, nil
}

// Function declares a function starting at the current pc. Subsequent
// hints are attached to this function.
func (b *Builder) Function(name string, implicit, args, returns []Param) *Builder {
	fullName := b.qualify(name)
	if _, found := b.identifiers[fullName]; found {
		return b.fail("duplicate function %s", name)
	}
	pc := b.Pc()
	b.identifiers[fullName] = identifier{Type: "function", Pc: &pc, Decorators: []string{}}

	for suffix, members := range map[string][]Param{".ImplicitArgs": implicit, ".Args": args} {
		id, err := b.structIdentifier(fullName+suffix, members)
		if err != nil {
			return b.fail("function %s: %v", name, err)
		}
		b.identifiers[fullName+suffix] = id
	}

	elements := make([]string, 0, len(returns))
	for _, r := range returns {
		elements = append(elements, r.Name+": "+r.Type)
	}
	b.identifiers[fullName+".Return"] = identifier{
		Type:      "type_definition",
		CairoType: "(" + strings.Join(elements, ", ") + ")",
	}
	b.function = fullName
	return b
}

// Hint attaches a hint to the current pc. The ids map binds the names
// usable as ids.<name> in the hint code to reference expressions.
func (b *Builder) Hint(code string, ids map[string]string) *Builder {
	if b.function == "" {
		return b.fail("hint outside of a function")
	}
	referenceIds := map[string]int{}
	names := maps.Keys(ids)
	slices.Sort(names)
	for _, name := range names {
		value := ids[name]
		if _, err := cairo.ParseReference(value); err != nil {
			return b.fail("hint reference %s: %v", name, err)
		}
		referenceIds[b.function+"."+name] = len(b.references)
		b.references = append(b.references, reference{Pc: b.Pc(), Value: value})
	}
	key := fmt.Sprint(b.Pc())
	b.hints[key] = append(b.hints[key], hint{
		AccessibleScopes: []string{b.scope, b.function},
		Code:             code,
		FlowTrackingData: flowTrackingData{ReferenceIds: referenceIds},
	})
	return b
}

// Emit appends an instruction. Instructions with an immediate operand
// take exactly one immediate value.
func (b *Builder) Emit(instruction cairo.Instruction, imm ...cairo.Felt) *Builder {
	if want := instruction.Size() - 1; len(imm) != want {
		return b.fail("instruction %v at pc %d needs %d immediate values, got %d", instruction, b.Pc(), want, len(imm))
	}
	word, err := cairo.EncodeInstruction(instruction)
	if err != nil {
		return b.fail("pc %d: %v", b.Pc(), err)
	}
	b.data = append(b.data, word)
	b.data = append(b.data, imm...)
	return b
}

// EmitImm appends an instruction taking a small signed immediate value.
func (b *Builder) EmitImm(instruction cairo.Instruction, imm int64) *Builder {
	return b.Emit(instruction, cairo.FeltFromInt64(imm))
}

// Data appends raw words to the program.
func (b *Builder) Data(words ...cairo.Felt) *Builder {
	b.data = append(b.data, words...)
	return b
}

// SetImmediate replaces the immediate value of the instruction at pc. It
// is used to resolve forward jumps.
func (b *Builder) SetImmediate(pc int, value int64) *Builder {
	if pc < 0 || pc+1 >= len(b.data) {
		return b.fail("no immediate value at pc %d", pc)
	}
	b.data[pc+1] = cairo.FeltFromInt64(value)
	return b
}

// Artifact produces the JSON artifact of the assembled program in the
// format of the Cairo compiler.
func (b *Builder) Artifact() ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	data := make([]string, 0, len(b.data))
	for _, word := range b.data {
		data = append(data, word.Hex())
	}
	builtins := b.builtins
	if builtins == nil {
		builtins = []string{}
	}
	a := artifact{
		Attributes:       json.RawMessage("[]"),
		Builtins:         builtins,
		CompilerVersion:  "0.13.1",
		Data:             data,
		DebugInfo:        json.RawMessage("null"),
		Hints:            b.hints,
		Identifiers:      b.identifiers,
		MainScope:        b.scope,
		Prime:            "0x" + cairo.Prime().Text(16),
		ReferenceManager: referenceManager{References: b.references},
	}
	if a.ReferenceManager.References == nil {
		a.ReferenceManager.References = []reference{}
	}
	return json.MarshalIndent(a, "", "    ")
}

// Build assembles and loads the program.
func (b *Builder) Build() (*cairo.Program, error) {
	data, err := b.Artifact()
	if err != nil {
		return nil, err
	}
	return Load(data)
}
