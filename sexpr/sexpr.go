// Package sexpr implements the textual program notation consumed by the
// planlang evaluator: parenthesized lists of atoms (symbols, strings and
// numbers). The package is purely structural — it has no knowledge of control
// forms or tool names; semantic validation happens in the eval package.
package sexpr

import (
	"strconv"
	"strings"
)

// Kind discriminates the node variants of a parsed expression tree.
type Kind int

const (
	// KindList is an ordered sequence of child nodes.
	KindList Kind = iota
	// KindSymbol is a bare identifier token.
	KindSymbol
	// KindString is a double-quoted string literal.
	KindString
	// KindInt is an integer literal.
	KindInt
	// KindFloat is a decimal literal.
	KindFloat
)

// String returns the kind name for diagnostics.
func (k Kind) String() string {
	switch k {
	case KindList:
		return "list"
	case KindSymbol:
		return "symbol"
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	default:
		return "unknown"
	}
}

// Node is one vertex of a parsed expression tree: either an atom or a list.
// Nodes are immutable after parsing; evaluation borrows sub-trees read-only
// and never mutates them, so a Node may be shared across concurrent branches.
type Node struct {
	Kind Kind

	// Atom payloads; only the field matching Kind is meaningful.
	Sym   string
	Str   string
	Int   int64
	Float float64

	// List children, in source order. First element names the operator or
	// tool when it is a symbol.
	List []*Node

	// Pos is the byte offset of the node's first token in the source text.
	Pos int
}

// NewSymbol constructs a symbol atom.
func NewSymbol(name string) *Node { return &Node{Kind: KindSymbol, Sym: name} }

// NewString constructs a string atom.
func NewString(s string) *Node { return &Node{Kind: KindString, Str: s} }

// NewInt constructs an integer atom.
func NewInt(v int64) *Node { return &Node{Kind: KindInt, Int: v} }

// NewFloat constructs a float atom.
func NewFloat(v float64) *Node { return &Node{Kind: KindFloat, Float: v} }

// NewList constructs a list node from the given children.
func NewList(children ...*Node) *Node { return &Node{Kind: KindList, List: children} }

// IsAtom reports whether the node is a leaf (non-list) value.
func (n *Node) IsAtom() bool { return n.Kind != KindList }

// Head returns the leading symbol of a list form, or "" if the node is not a
// list or its first element is not a symbol.
func (n *Node) Head() string {
	if n.Kind != KindList || len(n.List) == 0 || n.List[0].Kind != KindSymbol {
		return ""
	}
	return n.List[0].Sym
}

// Args returns the elements of a list form after the head. Returns nil for
// atoms and empty lists.
func (n *Node) Args() []*Node {
	if n.Kind != KindList || len(n.List) == 0 {
		return nil
	}
	return n.List[1:]
}

// String serializes the node with canonical spacing: single spaces between
// list elements, strings re-quoted. Parsing the result yields a tree
// structurally equal to the receiver: only the two escapes the scanner
// decodes are emitted, and integral floats keep a decimal marker so they do
// not re-parse as int atoms.
func (n *Node) String() string {
	var b strings.Builder
	n.write(&b)
	return b.String()
}

func (n *Node) write(b *strings.Builder) {
	switch n.Kind {
	case KindSymbol:
		b.WriteString(n.Sym)
	case KindString:
		b.WriteByte('"')
		for i := 0; i < len(n.Str); i++ {
			c := n.Str[i]
			if c == '"' || c == '\\' {
				b.WriteByte('\\')
			}
			b.WriteByte(c)
		}
		b.WriteByte('"')
	case KindInt:
		b.WriteString(strconv.FormatInt(n.Int, 10))
	case KindFloat:
		s := strconv.FormatFloat(n.Float, 'g', -1, 64)
		b.WriteString(s)
		if !strings.ContainsAny(s, ".eE") {
			b.WriteString(".0")
		}
	case KindList:
		b.WriteByte('(')
		for i, c := range n.List {
			if i > 0 {
				b.WriteByte(' ')
			}
			c.write(b)
		}
		b.WriteByte(')')
	}
}

// Equal reports structural equality, ignoring source positions.
func (n *Node) Equal(o *Node) bool {
	if n == nil || o == nil {
		return n == o
	}
	if n.Kind != o.Kind {
		return false
	}
	switch n.Kind {
	case KindSymbol:
		return n.Sym == o.Sym
	case KindString:
		return n.Str == o.Str
	case KindInt:
		return n.Int == o.Int
	case KindFloat:
		return n.Float == o.Float
	case KindList:
		if len(n.List) != len(o.List) {
			return false
		}
		for i := range n.List {
			if !n.List[i].Equal(o.List[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// Value returns the Go value of an atom: string for symbols and strings,
// int64 / float64 for numbers. Lists return nil; callers evaluate those.
func (n *Node) Value() any {
	switch n.Kind {
	case KindSymbol:
		return n.Sym
	case KindString:
		return n.Str
	case KindInt:
		return n.Int
	case KindFloat:
		return n.Float
	default:
		return nil
	}
}
