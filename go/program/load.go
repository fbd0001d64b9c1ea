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
	"math/big"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/kkrt-labs/cairo-runner/go/cairo"
	"golang.org/x/crypto/sha3"
)

// LoadFile reads and loads the program artifact stored at the given path.
func LoadFile(path string) (*cairo.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Load(data)
}

// Load parses and validates a compiled program artifact. All structural
// problems of the artifact are reported as *cairo.MalformedArtifactError.
func Load(data []byte) (*cairo.Program, error) {
	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, &cairo.MalformedArtifactError{Reason: "invalid JSON", Err: err}
	}
	res, err := a.toProgram()
	if err != nil {
		return nil, err
	}
	res.Hash = hashOf(data)
	return res, nil
}

func hashOf(data []byte) cairo.Hash {
	hasher := sha3.NewLegacyKeccak256()
	hasher.Write(data)
	var hash cairo.Hash
	hasher.Sum(hash[0:0])
	return hash
}

func malformed(format string, args ...any) error {
	return &cairo.MalformedArtifactError{Reason: fmt.Sprintf(format, args...)}
}

func (a *artifact) toProgram() (*cairo.Program, error) {
	digits, found := strings.CutPrefix(strings.ToLower(a.Prime), "0x")
	prime, ok := new(big.Int).SetString(digits, 16)
	if !found || !ok || prime.Cmp(cairo.Prime()) != 0 {
		return nil, malformed("unsupported prime %q", a.Prime)
	}

	res := &cairo.Program{
		Data:      make([]cairo.Felt, len(a.Data)),
		Builtins:  a.Builtins,
		MainScope: a.MainScope,
		Functions: map[string]*cairo.Function{},
		Hints:     map[int][]cairo.Hint{},
	}
	var err error
	for i, word := range a.Data {
		res.Data[i], err = cairo.FeltFromHex(word)
		if err != nil {
			return nil, &cairo.MalformedArtifactError{Reason: fmt.Sprintf("data word %d", i), Err: err}
		}
	}
	for _, builtin := range a.Builtins {
		if !cairo.IsBuiltin(builtin) {
			return nil, malformed("unknown builtin %q", builtin)
		}
	}

	for i, ref := range a.ReferenceManager.References {
		// Expressions not understood by the reference parser only fail
		// once a hint tries to use them.
		expr, _ := cairo.ParseReference(ref.Value)
		if ref.Pc < 0 || ref.Pc >= len(res.Data) {
			return nil, malformed("reference %d has pc %d outside of the program", i, ref.Pc)
		}
		res.References = append(res.References, cairo.Reference{
			Pc:         ref.Pc,
			Value:      ref.Value,
			ApTracking: cairo.ApTracking(ref.ApTrackingData),
			Expr:       expr,
		})
	}

	for key, hints := range a.Hints {
		pc, err := strconv.Atoi(key)
		if err != nil || pc < 0 || pc >= len(res.Data) {
			return nil, malformed("hint at invalid pc %q", key)
		}
		for _, h := range hints {
			for name, id := range h.FlowTrackingData.ReferenceIds {
				if id < 0 || id >= len(res.References) {
					return nil, malformed("hint at pc %d refers to unknown reference %d for %s", pc, id, name)
				}
			}
			res.Hints[pc] = append(res.Hints[pc], cairo.Hint{
				Code:             h.Code,
				AccessibleScopes: h.AccessibleScopes,
				ApTracking:       cairo.ApTracking(h.FlowTrackingData.ApTracking),
				ReferenceIds:     h.FlowTrackingData.ReferenceIds,
			})
		}
	}

	types := typeResolver{identifiers: a.Identifiers, mainScope: a.MainScope}
	names := make([]string, 0, len(a.Identifiers))
	for name, id := range a.Identifiers {
		if id.Type == "function" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		fn, err := types.function(name, len(res.Data))
		if err != nil {
			return nil, err
		}
		res.Functions[name] = fn
	}
	return res, nil
}

func (t *typeResolver) function(name string, codeSize int) (*cairo.Function, error) {
	id := t.identifiers[name]
	if id.Pc == nil || *id.Pc < 0 || *id.Pc >= codeSize {
		return nil, malformed("function %s has no valid pc", name)
	}
	implicit, err := t.structMembers(name + ".ImplicitArgs")
	if err != nil {
		return nil, err
	}
	args, err := t.structMembers(name + ".Args")
	if err != nil {
		return nil, err
	}
	returns, err := t.returnMembers(name + ".Return")
	if err != nil {
		return nil, err
	}

	positions := map[string]int{}
	for i, m := range implicit {
		positions[m.Name] = i
	}
	for i, m := range args {
		positions[m.Name] = i
	}
	return &cairo.Function{
		Name:         name,
		Pc:           *id.Pc,
		ImplicitArgs: implicit,
		Args:         args,
		Returns:      returns,
		ArgPositions: positions,
	}, nil
}
