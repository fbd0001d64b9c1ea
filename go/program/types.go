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
	"sort"
	"strconv"
	"strings"

	"github.com/kkrt-labs/cairo-runner/go/cairo"
)

// typeResolver computes memory layouts of Cairo types using the
// identifiers of an artifact.
type typeResolver struct {
	identifiers map[string]identifier
	mainScope   string
}

// maxTypeDepth bounds the resolution of aliases and nested types, which
// protects against cyclic definitions in malformed artifacts.
const maxTypeDepth = 64

// lookup finds an identifier by its full name, following aliases.
func (t *typeResolver) lookup(name string) (identifier, string, bool) {
	for i := 0; i < maxTypeDepth; i++ {
		id, found := t.identifiers[name]
		if !found && t.mainScope != "" {
			id, found = t.identifiers[t.mainScope+"."+name]
			if found {
				name = t.mainScope + "." + name
			}
		}
		if !found {
			return identifier{}, name, false
		}
		if id.Type != "alias" {
			return id, name, true
		}
		name = id.Destination
	}
	return identifier{}, name, false
}

// size returns the number of memory cells occupied by a value of the type.
func (t *typeResolver) size(cairoType string) (int, error) {
	return t.sizeAt(cairoType, 0)
}

func (t *typeResolver) sizeAt(cairoType string, depth int) (int, error) {
	if depth > maxTypeDepth {
		return 0, malformed("type %q is nested too deeply", cairoType)
	}
	cairoType = strings.TrimSpace(cairoType)
	switch {
	case cairoType == "":
		return 0, malformed("empty type")
	case strings.HasSuffix(cairoType, "*"):
		return 1, nil
	case cairoType == "felt" || cairoType == "codeoffset":
		return 1, nil
	case strings.HasPrefix(cairoType, "("):
		elements, err := splitTuple(cairoType)
		if err != nil {
			return 0, err
		}
		total := 0
		for _, e := range elements {
			size, err := t.sizeAt(e.Type, depth+1)
			if err != nil {
				return 0, err
			}
			total += size
		}
		return total, nil
	}

	id, name, found := t.lookup(cairoType)
	if !found {
		return 0, malformed("unknown type %q", cairoType)
	}
	switch id.Type {
	case "struct":
		if id.Size == nil || *id.Size < 0 {
			return 0, malformed("struct %s has no valid size", name)
		}
		return *id.Size, nil
	case "type_definition":
		return t.sizeAt(id.CairoType, depth+1)
	}
	return 0, malformed("identifier %s of kind %s is not a type", name, id.Type)
}

// structMembers returns the members of the named struct ordered by offset.
func (t *typeResolver) structMembers(name string) ([]cairo.Member, error) {
	id, found := t.identifiers[name]
	if !found {
		return nil, malformed("missing struct %s", name)
	}
	if id.Type != "struct" {
		return nil, malformed("%s is a %s, not a struct", name, id.Type)
	}
	if id.Size == nil {
		return nil, malformed("struct %s has no size", name)
	}

	type entry struct {
		name string
		member
	}
	entries := make([]entry, 0, len(id.Members))
	for memberName, m := range id.Members {
		entries = append(entries, entry{memberName, m})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Offset < entries[j].Offset
	})

	res := make([]cairo.Member, 0, len(entries))
	next := 0
	for _, e := range entries {
		size, err := t.size(e.CairoType)
		if err != nil {
			return nil, err
		}
		if e.Offset != next {
			return nil, malformed("member %s of %s has offset %d, expected %d", e.name, name, e.Offset, next)
		}
		next += size
		if next > *id.Size {
			return nil, malformed("member %s exceeds the size of struct %s", e.name, name)
		}
		res = append(res, cairo.Member{Name: e.name, Type: e.CairoType, Size: size})
	}
	if next != *id.Size {
		return nil, malformed("members of %s cover %d cells, struct size is %d", name, next, *id.Size)
	}
	return res, nil
}

// returnMembers derives the return layout of a function from its Return
// identifier. Unnamed tuple elements are named by their position.
func (t *typeResolver) returnMembers(name string) ([]cairo.Member, error) {
	id, found := t.identifiers[name]
	if !found {
		return nil, nil
	}
	switch id.Type {
	case "struct":
		return t.structMembers(name)
	case "type_definition":
	default:
		return nil, malformed("%s is a %s, not a type", name, id.Type)
	}

	cairoType := strings.TrimSpace(id.CairoType)
	var elements []tupleElement
	if strings.HasPrefix(cairoType, "(") {
		var err error
		if elements, err = splitTuple(cairoType); err != nil {
			return nil, err
		}
	} else {
		elements = []tupleElement{{Type: cairoType}}
	}

	res := make([]cairo.Member, 0, len(elements))
	for i, e := range elements {
		size, err := t.size(e.Type)
		if err != nil {
			return nil, err
		}
		memberName := e.Name
		if memberName == "" {
			memberName = strconv.Itoa(i)
		}
		res = append(res, cairo.Member{Name: memberName, Type: e.Type, Size: size})
	}
	return res, nil
}

type tupleElement struct {
	Name string // < empty for unnamed elements
	Type string
}

// splitTuple splits a tuple type like "(a: felt, b: (felt, felt*))" into
// its elements.
func splitTuple(cairoType string) ([]tupleElement, error) {
	if !strings.HasPrefix(cairoType, "(") || !strings.HasSuffix(cairoType, ")") {
		return nil, malformed("invalid tuple type %q", cairoType)
	}
	body := cairoType[1 : len(cairoType)-1]

	var parts []string
	depth, start := 0, 0
	for i, c := range body {
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, malformed("unbalanced tuple type %q", cairoType)
			}
		case ',':
			if depth == 0 {
				parts = append(parts, body[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, malformed("unbalanced tuple type %q", cairoType)
	}
	parts = append(parts, body[start:])

	res := make([]tupleElement, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			// "()" and trailing commas as in "(felt,)"
			continue
		}
		element := tupleElement{Type: part}
		if idx := strings.Index(part, ":"); idx >= 0 && !strings.ContainsAny(part[:idx], "(*") {
			element.Name = strings.TrimSpace(part[:idx])
			element.Type = strings.TrimSpace(part[idx+1:])
		}
		if element.Type == "" {
			return nil, malformed("tuple element %q has no type", part)
		}
		res = append(res, element)
	}
	return res, nil
}
