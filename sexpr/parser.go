package sexpr

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// SyntaxError describes a tokenization or structural failure with the byte
// offset where it was detected. It is the only error type Parse returns.
type SyntaxError struct {
	Pos int    // byte offset into the source text
	Msg string // human-readable description
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at offset %d: %s", e.Pos, e.Msg)
}

// token is a single lexical unit produced by the scanner.
type token struct {
	text string
	pos  int
	str  bool // true when the token came from a quoted string literal
}

// Parse turns program text into an expression tree. It fails with a
// *SyntaxError on empty input, unbalanced parentheses, an unterminated
// string literal, or trailing tokens after the first complete expression.
// Nesting depth is bounded only by memory.
func Parse(text string) (*Node, error) {
	tokens, err := scan(text)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, &SyntaxError{Pos: 0, Msg: "empty input"}
	}

	p := &parser{tokens: tokens}
	node, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.tokens) {
		t := p.tokens[p.pos]
		return nil, &SyntaxError{Pos: t.pos, Msg: fmt.Sprintf("unexpected trailing token %q", t.text)}
	}
	return node, nil
}

// scan splits the source into parentheses, quoted strings and bare tokens.
// Inside string literals `\"` and `\\` are recognized as escapes.
func scan(text string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(text) {
		c := text[i]
		switch {
		case unicode.IsSpace(rune(c)):
			i++
		case c == '(' || c == ')':
			tokens = append(tokens, token{text: string(c), pos: i})
			i++
		case c == '"':
			start := i
			var b strings.Builder
			i++
			closed := false
			for i < len(text) {
				if text[i] == '\\' && i+1 < len(text) && (text[i+1] == '"' || text[i+1] == '\\') {
					b.WriteByte(text[i+1])
					i += 2
					continue
				}
				if text[i] == '"' {
					closed = true
					i++
					break
				}
				b.WriteByte(text[i])
				i++
			}
			if !closed {
				return nil, &SyntaxError{Pos: start, Msg: "unterminated string literal"}
			}
			tokens = append(tokens, token{text: b.String(), pos: start, str: true})
		default:
			start := i
			for i < len(text) && !unicode.IsSpace(rune(text[i])) && text[i] != '(' && text[i] != ')' && text[i] != '"' {
				i++
			}
			tokens = append(tokens, token{text: text[start:i], pos: start})
		}
	}
	return tokens, nil
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) parseExpr() (*Node, error) {
	if p.pos >= len(p.tokens) {
		last := 0
		if len(p.tokens) > 0 {
			last = p.tokens[len(p.tokens)-1].pos
		}
		return nil, &SyntaxError{Pos: last, Msg: "unexpected end of input, expected )"}
	}

	t := p.tokens[p.pos]
	p.pos++

	if t.str {
		return &Node{Kind: KindString, Str: t.text, Pos: t.pos}, nil
	}

	switch t.text {
	case "(":
		list := &Node{Kind: KindList, Pos: t.pos}
		for {
			if p.pos >= len(p.tokens) {
				return nil, &SyntaxError{Pos: t.pos, Msg: "unbalanced parenthesis, expected )"}
			}
			if p.tokens[p.pos].text == ")" && !p.tokens[p.pos].str {
				p.pos++
				return list, nil
			}
			child, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			list.List = append(list.List, child)
		}
	case ")":
		return nil, &SyntaxError{Pos: t.pos, Msg: "unexpected )"}
	default:
		return parseAtom(t), nil
	}
}

// parseAtom classifies a bare token: integer, then decimal, then symbol.
// Only digit-shaped tokens are offered to the number parsers, so spellings
// like NaN or Inf that ParseFloat would accept stay symbols.
func parseAtom(t token) *Node {
	if numericShape(t.text) {
		if v, err := strconv.ParseInt(t.text, 10, 64); err == nil {
			return &Node{Kind: KindInt, Int: v, Pos: t.pos}
		}
		if v, err := strconv.ParseFloat(t.text, 64); err == nil {
			return &Node{Kind: KindFloat, Float: v, Pos: t.pos}
		}
	}
	return &Node{Kind: KindSymbol, Sym: t.text, Pos: t.pos}
}

// numericShape reports whether the token starts like a numeric literal: an
// optional sign, then a digit or a dot followed by a digit.
func numericShape(s string) bool {
	i := 0
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	if i < len(s) && s[i] == '.' {
		i++
	}
	return i < len(s) && s[i] >= '0' && s[i] <= '9'
}
