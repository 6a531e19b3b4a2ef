package tool

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// evalArithmetic evaluates an infix arithmetic expression: numbers, + - * /,
// unary minus, parentheses and the comparison operators < <= > >= == !=.
// Arithmetic produces a float64 internally; integral results collapse to
// int64 so "1+1" yields 2, not 2.0. Comparisons produce a bool.
//
// The core language deliberately has no arithmetic of its own; this engine
// lives behind the calc tool.
func evalArithmetic(input string) (any, error) {
	p := &calcParser{input: input}
	p.skipSpace()
	if p.eof() {
		return nil, fmt.Errorf("empty expression")
	}
	v, isBool, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if !p.eof() {
		return nil, fmt.Errorf("unexpected %q at offset %d", p.rest(), p.pos)
	}
	if isBool {
		return v != 0, nil
	}
	if v == math.Trunc(v) && !math.IsInf(v, 0) && math.Abs(v) < 1e15 {
		return int64(v), nil
	}
	return v, nil
}

// calcParser is a recursive-descent parser over a byte cursor. Comparison
// binds loosest, then additive, then multiplicative, then unary.
type calcParser struct {
	input string
	pos   int
}

func (p *calcParser) eof() bool    { return p.pos >= len(p.input) }
func (p *calcParser) rest() string { return p.input[p.pos:] }
func (p *calcParser) peek() byte   { return p.input[p.pos] }

func (p *calcParser) skipSpace() {
	for !p.eof() && unicode.IsSpace(rune(p.peek())) {
		p.pos++
	}
}

func (p *calcParser) parseComparison() (float64, bool, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return 0, false, err
	}
	p.skipSpace()
	for _, op := range []string{"<=", ">=", "==", "!=", "<", ">"} {
		if strings.HasPrefix(p.rest(), op) {
			p.pos += len(op)
			right, err := p.parseAdditive()
			if err != nil {
				return 0, false, err
			}
			var ok bool
			switch op {
			case "<":
				ok = left < right
			case "<=":
				ok = left <= right
			case ">":
				ok = left > right
			case ">=":
				ok = left >= right
			case "==":
				ok = left == right
			case "!=":
				ok = left != right
			}
			if ok {
				return 1, true, nil
			}
			return 0, true, nil
		}
	}
	return left, false, nil
}

func (p *calcParser) parseAdditive() (float64, error) {
	v, err := p.parseMultiplicative()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		if p.eof() {
			return v, nil
		}
		switch p.peek() {
		case '+':
			p.pos++
			r, err := p.parseMultiplicative()
			if err != nil {
				return 0, err
			}
			v += r
		case '-':
			p.pos++
			r, err := p.parseMultiplicative()
			if err != nil {
				return 0, err
			}
			v -= r
		default:
			return v, nil
		}
	}
}

func (p *calcParser) parseMultiplicative() (float64, error) {
	v, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	for {
		p.skipSpace()
		if p.eof() {
			return v, nil
		}
		switch p.peek() {
		case '*':
			p.pos++
			r, err := p.parseUnary()
			if err != nil {
				return 0, err
			}
			v *= r
		case '/':
			p.pos++
			r, err := p.parseUnary()
			if err != nil {
				return 0, err
			}
			if r == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			v /= r
		default:
			return v, nil
		}
	}
}

func (p *calcParser) parseUnary() (float64, error) {
	p.skipSpace()
	if !p.eof() && p.peek() == '-' {
		p.pos++
		v, err := p.parseUnary()
		return -v, err
	}
	return p.parsePrimary()
}

func (p *calcParser) parsePrimary() (float64, error) {
	p.skipSpace()
	if p.eof() {
		return 0, fmt.Errorf("unexpected end of expression")
	}
	if p.peek() == '(' {
		p.pos++
		v, _, err := p.parseComparison()
		if err != nil {
			return 0, err
		}
		p.skipSpace()
		if p.eof() || p.peek() != ')' {
			return 0, fmt.Errorf("missing ) at offset %d", p.pos)
		}
		p.pos++
		return v, nil
	}

	start := p.pos
	for !p.eof() && (unicode.IsDigit(rune(p.peek())) || p.peek() == '.') {
		p.pos++
	}
	if p.pos == start {
		return 0, fmt.Errorf("unexpected %q at offset %d", p.rest(), p.pos)
	}
	v, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return 0, fmt.Errorf("bad number %q: %w", p.input[start:p.pos], err)
	}
	return v, nil
}
