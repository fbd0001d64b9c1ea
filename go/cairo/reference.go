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

import (
	"fmt"
	"math/big"
	"strings"
	"unicode"
)

// Expr is a parsed reference expression such as "[cast(fp + (-3), felt*)]".
// Casts are dropped while parsing since they do not change values.
type Expr interface {
	String() string
}

type RegisterExpr struct {
	Register Register
}

type ConstExpr struct {
	Value *big.Int
}

type DerefExpr struct {
	Address Expr
}

type BinaryExpr struct {
	Op    byte // < one of '+', '-', '*'
	Left  Expr
	Right Expr
}

func (e RegisterExpr) String() string { return e.Register.String() }
func (e ConstExpr) String() string    { return e.Value.String() }
func (e DerefExpr) String() string    { return "[" + e.Address.String() + "]" }
func (e BinaryExpr) String() string {
	return "(" + e.Left.String() + " " + string(e.Op) + " " + e.Right.String() + ")"
}

// UsesAp reports whether the value of the expression depends on ap.
func UsesAp(e Expr) bool {
	switch e := e.(type) {
	case RegisterExpr:
		return e.Register == AP
	case DerefExpr:
		return UsesAp(e.Address)
	case BinaryExpr:
		return UsesAp(e.Left) || UsesAp(e.Right)
	}
	return false
}

// ParseReference parses the value of a reference as emitted by the Cairo
// compiler. Supported are registers, integer constants, dereferences,
// casts, parentheses, and the binary operators +, - and *.
func ParseReference(text string) (Expr, error) {
	p := &refParser{input: text}
	expr, err := p.parseSum()
	if err != nil {
		return nil, err
	}
	p.skipSpaces()
	if p.pos != len(p.input) {
		return nil, fmt.Errorf("unexpected %q at position %d of reference %q", p.input[p.pos:], p.pos, text)
	}
	return expr, nil
}

type refParser struct {
	input string
	pos   int
}

func (p *refParser) skipSpaces() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
}

func (p *refParser) peek() byte {
	p.skipSpaces()
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *refParser) expect(c byte) error {
	if p.peek() != c {
		return fmt.Errorf("expected %q at position %d of reference %q", c, p.pos, p.input)
	}
	p.pos++
	return nil
}

func (p *refParser) parseSum() (Expr, error) {
	left, err := p.parseProduct()
	if err != nil {
		return nil, err
	}
	for {
		op := p.peek()
		if op != '+' && op != '-' {
			return left, nil
		}
		p.pos++
		right, err := p.parseProduct()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: op, Left: left, Right: right}
	}
}

func (p *refParser) parseProduct() (Expr, error) {
	left, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for p.peek() == '*' {
		p.pos++
		right, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		left = BinaryExpr{Op: '*', Left: left, Right: right}
	}
	return left, nil
}

func (p *refParser) parseAtom() (Expr, error) {
	switch c := p.peek(); {
	case c == '[':
		p.pos++
		inner, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		if err := p.expect(']'); err != nil {
			return nil, err
		}
		return DerefExpr{Address: inner}, nil
	case c == '(':
		p.pos++
		inner, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		return inner, nil
	case c == '-':
		p.pos++
		inner, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		return BinaryExpr{Op: '-', Left: ConstExpr{Value: new(big.Int)}, Right: inner}, nil
	case c >= '0' && c <= '9':
		start := p.pos
		for p.pos < len(p.input) && (unicode.IsDigit(rune(p.input[p.pos])) || p.input[p.pos] == 'x' || isHexLetter(p.input[p.pos])) {
			p.pos++
		}
		value, ok := new(big.Int).SetString(p.input[start:p.pos], 0)
		if !ok {
			return nil, fmt.Errorf("invalid constant %q in reference %q", p.input[start:p.pos], p.input)
		}
		return ConstExpr{Value: value}, nil
	}

	word := p.identifier()
	switch word {
	case "ap":
		return RegisterExpr{Register: AP}, nil
	case "fp":
		return RegisterExpr{Register: FP}, nil
	case "cast":
		if err := p.expect('('); err != nil {
			return nil, err
		}
		inner, err := p.parseSum()
		if err != nil {
			return nil, err
		}
		if err := p.expect(','); err != nil {
			return nil, err
		}
		if err := p.skipType(); err != nil {
			return nil, err
		}
		return inner, nil
	case "":
		return nil, fmt.Errorf("unexpected end of reference %q", p.input)
	}
	return nil, fmt.Errorf("unsupported identifier %q in reference %q", word, p.input)
}

func (p *refParser) identifier() string {
	p.skipSpaces()
	start := p.pos
	for p.pos < len(p.input) {
		c := rune(p.input[p.pos])
		if !unicode.IsLetter(c) && !unicode.IsDigit(c) && c != '_' && c != '.' {
			break
		}
		p.pos++
	}
	return p.input[start:p.pos]
}

// skipType consumes a cast's type up to and including the closing
// parenthesis of the cast.
func (p *refParser) skipType() error {
	depth := 0
	for ; p.pos < len(p.input); p.pos++ {
		switch p.input[p.pos] {
		case '(':
			depth++
		case ')':
			if depth == 0 {
				p.pos++
				return nil
			}
			depth--
		}
	}
	return fmt.Errorf("unterminated cast in reference %q", strings.TrimSpace(p.input))
}

func isHexLetter(c byte) bool {
	return (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
