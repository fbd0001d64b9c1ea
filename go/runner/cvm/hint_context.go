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
	"math/big"
	"strings"

	"github.com/kkrt-labs/cairo-runner/go/cairo"
)

// hintContext is the HintContext of a single hint execution.
type hintContext struct {
	machine *machine
	hint    *cairo.Hint
}

func (h *hintContext) Ap() cairo.Pointer { return h.machine.ap }
func (h *hintContext) Fp() cairo.Pointer { return h.machine.fp }

func (h *hintContext) Get(p cairo.Pointer) (cairo.Cell, error) {
	return h.machine.memory.read(p)
}

func (h *hintContext) Set(p cairo.Pointer, value cairo.Cell) error {
	return h.machine.memory.set(p, value)
}

func (h *hintContext) AddSegment() cairo.Pointer {
	return h.machine.memory.addSegment()
}

func (h *hintContext) EnterScope(vars map[string]any) {
	if vars == nil {
		vars = map[string]any{}
	}
	h.machine.scopes = append(h.machine.scopes, vars)
}

func (h *hintContext) ExitScope() error {
	if len(h.machine.scopes) <= 1 {
		return fmt.Errorf("%w: cannot exit main scope", cairo.AssertionFailed)
	}
	h.machine.scopes = h.machine.scopes[:len(h.machine.scopes)-1]
	return nil
}

func (h *hintContext) Scope() map[string]any {
	return h.machine.scopes[len(h.machine.scopes)-1]
}

func (h *hintContext) Ids(name string) (cairo.Cell, error) {
	ref, err := h.reference(name)
	if err != nil {
		return cairo.Cell{}, err
	}
	return h.eval(ref, ref.Expr)
}

func (h *hintContext) IdsFelt(name string) (*big.Int, error) {
	value, err := h.Ids(name)
	if err != nil {
		return nil, err
	}
	f, ok := value.Felt()
	if !ok {
		return nil, fmt.Errorf("%w: ids.%s is pointer %v", cairo.AssertionFailed, name, value)
	}
	return f.Big(), nil
}

func (h *hintContext) SetIds(name string, value cairo.Cell) error {
	ref, err := h.reference(name)
	if err != nil {
		return err
	}
	deref, ok := ref.Expr.(cairo.DerefExpr)
	if !ok {
		return fmt.Errorf("%w: ids.%s = %v is not a memory reference", cairo.UnsupportedHint, name, ref.Value)
	}
	address, err := h.eval(ref, deref.Address)
	if err != nil {
		return err
	}
	p, ok := address.Pointer()
	if !ok {
		return fmt.Errorf("%w: ids.%s refers to non-pointer address %v", errExpectedPointer, name, address)
	}
	return h.machine.memory.set(p, value)
}

// reference finds the binding of a short identifier name, preferring the
// innermost accessible scope. Outside the accessible scopes the shortest
// qualified name ending in the identifier wins, ties broken by name.
func (h *hintContext) reference(name string) (*cairo.Reference, error) {
	index, found := -1, false
	for i := len(h.hint.AccessibleScopes) - 1; i >= 0 && !found; i-- {
		index, found = h.hint.ReferenceIds[h.hint.AccessibleScopes[i]+"."+name]
	}
	if !found {
		best := ""
		for qualified, i := range h.hint.ReferenceIds {
			if qualified != name && !strings.HasSuffix(qualified, "."+name) {
				continue
			}
			if !found || len(qualified) < len(best) || (len(qualified) == len(best) && qualified < best) {
				best, index, found = qualified, i, true
			}
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: no reference for ids.%s", cairo.UnsupportedHint, name)
	}
	ref := &h.machine.program.program.References[index]
	if ref.Expr == nil {
		return nil, fmt.Errorf("%w: unsupported reference expression %q for ids.%s", cairo.UnsupportedHint, ref.Value, name)
	}
	return ref, nil
}

func (h *hintContext) eval(ref *cairo.Reference, expr cairo.Expr) (cairo.Cell, error) {
	switch e := expr.(type) {
	case cairo.RegisterExpr:
		if e.Register == cairo.FP {
			return cairo.PointerCell(h.machine.fp), nil
		}
		ap, err := h.apOf(ref)
		return cairo.PointerCell(ap), err
	case cairo.ConstExpr:
		return cairo.FeltCell(cairo.FeltFromBig(e.Value)), nil
	case cairo.DerefExpr:
		address, err := h.eval(ref, e.Address)
		if err != nil {
			return cairo.Cell{}, err
		}
		p, ok := address.Pointer()
		if !ok {
			return cairo.Cell{}, fmt.Errorf("%w: dereference of %v", errExpectedPointer, address)
		}
		return h.machine.memory.read(p)
	case cairo.BinaryExpr:
		left, err := h.eval(ref, e.Left)
		if err != nil {
			return cairo.Cell{}, err
		}
		right, err := h.eval(ref, e.Right)
		if err != nil {
			return cairo.Cell{}, err
		}
		switch e.Op {
		case '+':
			return left.Add(right)
		case '-':
			return left.Sub(right)
		case '*':
			return left.Mul(right)
		}
		return cairo.Cell{}, fmt.Errorf("%w: operator %q", cairo.UnsupportedHint, e.Op)
	}
	return cairo.Cell{}, fmt.Errorf("%w: expression %v", cairo.UnsupportedHint, expr)
}

// apOf reconstructs the value ap had when the reference was defined.
func (h *hintContext) apOf(ref *cairo.Reference) (cairo.Pointer, error) {
	if ref.ApTracking.Group != h.hint.ApTracking.Group {
		return cairo.Pointer{}, fmt.Errorf("%w: reference %q was defined in a different ap tracking group", cairo.UnsupportedHint, ref.Value)
	}
	return h.machine.ap.Add(ref.ApTracking.Offset - h.hint.ApTracking.Offset)
}
