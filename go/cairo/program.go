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

import "strings"

// Hash identifies the artifact a program was loaded from.
type Hash [32]byte

// Program is a loaded, validated program artifact. Programs are immutable
// after loading and may be shared by concurrent runs.
type Program struct {
	Hash       Hash
	Data       []Felt
	Builtins   []string
	MainScope  string
	Functions  map[string]*Function // < indexed by fully qualified name
	Hints      map[int][]Hint       // < indexed by pc
	References []Reference
}

// Function is an entry point of a program together with its calling
// convention: implicit arguments precede explicit arguments on the stack,
// and implicit return values precede explicit return values.
type Function struct {
	Name         string
	Pc           int
	ImplicitArgs []Member
	Args         []Member
	Returns      []Member

	// ArgPositions maps explicit and implicit argument names to their
	// position in Args and ImplicitArgs respectively.
	ArgPositions map[string]int
}

// ShortName returns the last component of the function's qualified name.
func (f *Function) ShortName() string {
	return f.Name[strings.LastIndex(f.Name, ".")+1:]
}

func (f *Function) ArgsSize() int {
	return membersSize(f.ImplicitArgs) + membersSize(f.Args)
}

func (f *Function) ReturnSize() int {
	return membersSize(f.ImplicitArgs) + membersSize(f.Returns)
}

func membersSize(members []Member) int {
	size := 0
	for _, m := range members {
		size += m.Size
	}
	return size
}

// Member is a named slot of an argument or return layout.
type Member struct {
	Name string
	Type string // < the Cairo type, e.g. felt, felt*, or a struct name
	Size int    // < number of memory cells
}

func (m Member) IsPointer() bool {
	return strings.HasSuffix(m.Type, "*")
}

// Builtin returns the name of the builtin whose segment pointer is passed
// in this member. By convention, implicit arguments named <builtin>_ptr
// carry builtin pointers.
func (m Member) Builtin() (string, bool) {
	name, found := strings.CutSuffix(m.Name, "_ptr")
	if !found || !IsBuiltin(name) {
		return "", false
	}
	return name, true
}

var builtinNames = map[string]bool{
	"output":        true,
	"pedersen":      true,
	"range_check":   true,
	"ecdsa":         true,
	"bitwise":       true,
	"ec_op":         true,
	"keccak":        true,
	"poseidon":      true,
	"range_check96": true,
	"add_mod":       true,
	"mul_mod":       true,
}

// IsBuiltin reports whether the name denotes a Cairo builtin.
func IsBuiltin(name string) bool {
	return builtinNames[name]
}

// Hint is a piece of host code attached to a pc. It is executed before
// the instruction at that pc.
type Hint struct {
	Code             string
	AccessibleScopes []string
	ApTracking       ApTracking
	ReferenceIds     map[string]int // < qualified identifier -> index in Program.References
}

// ApTracking locates a code position relative to the last point where the
// compiler lost track of ap.
type ApTracking struct {
	Group  int
	Offset int
}

// Reference binds an identifier to an expression over the registers.
type Reference struct {
	Pc         int
	Value      string
	ApTracking ApTracking
	Expr       Expr // < nil if Value could not be parsed
}
