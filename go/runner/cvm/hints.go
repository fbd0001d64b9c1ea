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
	"sync"

	"github.com/kkrt-labs/cairo-runner/go/cairo"
)

// HintFunc implements a hint. Hints are identified by their source code as
// found in program artifacts.
type HintFunc func(HintContext) error

// HintContext is the view of a running machine offered to hints.
type HintContext interface {
	// Ids evaluates the reference bound to ids.<name> at the hint's location.
	Ids(name string) (cairo.Cell, error)
	// IdsFelt is like Ids but requires the value to be a field element.
	IdsFelt(name string) (*big.Int, error)
	// SetIds assigns ids.<name>, which must be bound to a memory cell.
	SetIds(name string, value cairo.Cell) error

	Ap() cairo.Pointer
	Fp() cairo.Pointer
	Get(cairo.Pointer) (cairo.Cell, error)
	Set(cairo.Pointer, cairo.Cell) error
	AddSegment() cairo.Pointer

	// EnterScope and ExitScope maintain the stack of hint scopes. The
	// outermost scope can not be exited.
	EnterScope(vars map[string]any)
	ExitScope() error
	Scope() map[string]any
}

var hintRegistry = map[string]HintFunc{}
var hintRegistryLock sync.RWMutex

// RegisterHint adds an implementation for the hint with the given code. The
// code is compared after trimming each line and dropping empty lines. Hints
// may only be registered once.
func RegisterHint(code string, fn HintFunc) error {
	if fn == nil {
		return fmt.Errorf("cannot register nil implementation for hint %q", code)
	}
	key := normalizeHintCode(code)
	hintRegistryLock.Lock()
	defer hintRegistryLock.Unlock()
	if _, found := hintRegistry[key]; found {
		return fmt.Errorf("hint already registered: %q", key)
	}
	hintRegistry[key] = fn
	return nil
}

func lookupHint(normalizedCode string) (HintFunc, bool) {
	hintRegistryLock.RLock()
	defer hintRegistryLock.RUnlock()
	fn, found := hintRegistry[normalizedCode]
	return fn, found
}

func normalizeHintCode(code string) string {
	lines := strings.Split(code, "\n")
	res := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			res = append(res, line)
		}
	}
	return strings.Join(res, "\n")
}

// --- Common library hints ---

const (
	hintAlloc = "memory[ap] = segments.add()"

	hintAssertNN = `from starkware.cairo.common.math_utils import assert_integer
assert_integer(ids.a)
assert 0 <= ids.a % PRIME < range_check_builtin.bound, f'a = {ids.a} is out of range.'`

	hintIsNN = "memory[ap] = 0 if 0 <= (ids.a % PRIME) < range_check_builtin.bound else 1"

	hintIsNNOutOfRange = "memory[ap] = 0 if 0 <= ((-ids.a - 1) % PRIME) < range_check_builtin.bound else 1"

	hintUnsignedDivRem = `from starkware.cairo.common.math_utils import assert_integer
assert_integer(ids.div)
assert 0 < ids.div <= PRIME // range_check_builtin.bound, \
    f'div={hex(ids.div)} is out of the valid range.'
ids.q, ids.r = divmod(ids.value, ids.div)`

	hintEnterScope = "vm_enter_scope()"
	hintExitScope  = "vm_exit_scope()"
)

func init() {
	hints := map[string]HintFunc{
		hintAlloc:          allocHint,
		hintAssertNN:       assertNNHint,
		hintIsNN:           isNNHint,
		hintIsNNOutOfRange: isNNOutOfRangeHint,
		hintUnsignedDivRem: unsignedDivRemHint,
		hintEnterScope: func(h HintContext) error {
			h.EnterScope(nil)
			return nil
		},
		hintExitScope: func(h HintContext) error {
			return h.ExitScope()
		},
	}
	for code, fn := range hints {
		if err := RegisterHint(code, fn); err != nil {
			panic(fmt.Sprintf("failed to register hint: %v", err))
		}
	}
}

func allocHint(h HintContext) error {
	return h.Set(h.Ap(), cairo.PointerCell(h.AddSegment()))
}

func assertNNHint(h HintContext) error {
	a, err := h.IdsFelt("a")
	if err != nil {
		return err
	}
	if a.Cmp(rangeCheckBound) >= 0 {
		return fmt.Errorf("%w: a = %v is out of range", cairo.AssertionFailed, a)
	}
	return nil
}

func isNNHint(h HintContext) error {
	a, err := h.IdsFelt("a")
	if err != nil {
		return err
	}
	return h.Set(h.Ap(), boolCell(a.Cmp(rangeCheckBound) >= 0))
}

func isNNOutOfRangeHint(h HintContext) error {
	a, err := h.IdsFelt("a")
	if err != nil {
		return err
	}
	v := new(big.Int).Neg(a)
	v.Sub(v, big.NewInt(1))
	v.Mod(v, cairo.Prime())
	return h.Set(h.Ap(), boolCell(v.Cmp(rangeCheckBound) >= 0))
}

// maxDivisor is PRIME // 2^128, the largest divisor accepted by
// unsigned_div_rem.
var maxDivisor = new(big.Int).Div(cairo.Prime(), rangeCheckBound)

func unsignedDivRemHint(h HintContext) error {
	div, err := h.IdsFelt("div")
	if err != nil {
		return err
	}
	if div.Sign() == 0 {
		return fmt.Errorf("%w: unsigned_div_rem by zero", cairo.DivisionUndefined)
	}
	if div.Cmp(maxDivisor) > 0 {
		return fmt.Errorf("%w: div=0x%x is out of the valid range", cairo.AssertionFailed, div)
	}
	value, err := h.IdsFelt("value")
	if err != nil {
		return err
	}
	q, r := new(big.Int).DivMod(value, div, new(big.Int))
	if err := h.SetIds("q", cairo.FeltCell(cairo.FeltFromBig(q))); err != nil {
		return err
	}
	return h.SetIds("r", cairo.FeltCell(cairo.FeltFromBig(r)))
}

func boolCell(b bool) cairo.Cell {
	if b {
		return cairo.FeltCell(cairo.FeltFromUint64(1))
	}
	return cairo.FeltCell(cairo.FeltFromUint64(0))
}
