// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/kkrt-labs/cairo-runner/go/abi"
	"github.com/kkrt-labs/cairo-runner/go/cairo"
	"github.com/kkrt-labs/cairo-runner/go/harness"
)

// parseType resolves the command line name of a type hint.
func parseType(name string) (abi.Type, error) {
	switch name {
	case "felt":
		return abi.Felt, nil
	case "bool":
		return abi.Bool, nil
	case "uint256", "Uint256":
		return abi.U256, nil
	case "bytes":
		return abi.Bytes, nil
	case "packed_bytes":
		return abi.PackedBytes, nil
	case "list", "list[felt]", "felt*":
		return abi.List(abi.Felt), nil
	}
	if bits, found := strings.CutPrefix(name, "uint"); found {
		n, err := strconv.Atoi(bits)
		if err != nil || n <= 0 || n > 256 {
			return nil, fmt.Errorf("invalid integer type %q", name)
		}
		return abi.Uint(n), nil
	}
	if size, found := strings.CutPrefix(name, "felt["); found && strings.HasSuffix(size, "]") {
		n, err := strconv.Atoi(strings.TrimSuffix(size, "]"))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid felt sequence %q", name)
		}
		return abi.Felts(n), nil
	}
	return nil, fmt.Errorf("unknown type %q", name)
}

// parseTypeOverrides parses <member>=<type> pairs.
func parseTypeOverrides(specs []string) (map[string]abi.Type, error) {
	res := map[string]abi.Type{}
	for _, spec := range specs {
		member, typeName, found := strings.Cut(spec, "=")
		if !found || member == "" {
			return nil, fmt.Errorf("invalid type hint %q, expected <member>=<type>", spec)
		}
		t, err := parseType(typeName)
		if err != nil {
			return nil, err
		}
		res[member] = t
	}
	return res, nil
}

// parseArgs converts command line tokens into host values for the given
// function. Tokens are either all positional or all of the form
// <name>=<value>; the latter are passed as keyword arguments.
func parseArgs(fn *cairo.Function, tokens []string, overrides map[string]abi.Type) ([]any, error) {
	if len(tokens) == 0 {
		return nil, nil
	}
	typeOf := func(name string) abi.Type {
		if t, found := overrides[name]; found {
			return t
		}
		for _, members := range [][]cairo.Member{fn.Args, fn.ImplicitArgs} {
			for _, m := range members {
				if m.Name == name {
					return abi.ForMember(m)
				}
			}
		}
		return abi.Felt
	}

	named := strings.Contains(tokens[0], "=")
	if !named {
		if len(tokens) != len(fn.Args) {
			return nil, fmt.Errorf("%s expects %d arguments, got %d", fn.Name, len(fn.Args), len(tokens))
		}
		res := make([]any, 0, len(tokens))
		for i, token := range tokens {
			value, err := parseValue(typeOf(fn.Args[i].Name), token)
			if err != nil {
				return nil, fmt.Errorf("argument %s: %w", fn.Args[i].Name, err)
			}
			res = append(res, value)
		}
		return res, nil
	}

	kwargs := harness.Kwargs{}
	for _, token := range tokens {
		name, text, found := strings.Cut(token, "=")
		if !found {
			return nil, fmt.Errorf("cannot mix positional and named arguments: %q", token)
		}
		if _, dup := kwargs[name]; dup {
			return nil, fmt.Errorf("duplicate argument %q", name)
		}
		value, err := parseValue(typeOf(name), text)
		if err != nil {
			return nil, fmt.Errorf("argument %s: %w", name, err)
		}
		kwargs[name] = value
	}
	return []any{kwargs}, nil
}

func parseValue(t abi.Type, text string) (any, error) {
	switch {
	case t == abi.Bytes || t == abi.PackedBytes:
		return hexutil.Decode(text)
	case t == abi.Bool:
		return strconv.ParseBool(text)
	case strings.HasPrefix(t.Name(), "list") || strings.HasPrefix(t.Name(), "felt["):
		text = strings.Trim(text, "[]")
		res := []any{}
		if strings.TrimSpace(text) == "" {
			return res, nil
		}
		for _, element := range strings.Split(text, ",") {
			value, err := parseInt(strings.TrimSpace(element))
			if err != nil {
				return nil, err
			}
			res = append(res, value)
		}
		return res, nil
	}
	return parseInt(text)
}

func parseInt(text string) (*big.Int, error) {
	value, ok := new(big.Int).SetString(text, 0)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", text)
	}
	return value, nil
}

// formatValue renders a decoded result for the terminal.
func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "()"
	case []byte:
		return hexutil.Encode(v)
	case *big.Int:
		return v.String()
	case []any:
		parts := make([]string, 0, len(v))
		for _, element := range v {
			parts = append(parts, formatValue(element))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return fmt.Sprint(value)
}
