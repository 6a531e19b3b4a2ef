// Package planner defines the contract for the external plan-generation
// collaborator: given a natural-language intent — and, on repair, the failing
// program plus its error — produce replacement program text. Generators are
// treated as untrusted, slow and unreliable; the recovery loop bounds every
// invocation with its attempt budget, never this package.
package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/planlang/tool"
)

// Request carries everything a generator needs to produce (or repair) a plan
// program.
type Request struct {
	// Intent is the original natural-language instruction.
	Intent string

	// FailingProgram is the program text that failed to parse or evaluate.
	// Empty on initial generation.
	FailingProgram string

	// ErrorDetail is the error produced by the failing program. Empty on
	// initial generation.
	ErrorDetail string

	// Tools advertises the registered capabilities so the generator only
	// emits known names.
	Tools []tool.Descriptor
}

// IsRepair reports whether the request carries a failing program to fix.
func (r Request) IsRepair() bool { return r.FailingProgram != "" }

// Generator produces program text from a request. Implementations wrap LLM
// providers or test doubles; they must be safe for sequential reuse across
// recovery attempts.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// BuildPrompt renders the request into the instruction sent to an LLM
// provider. Both adapters share it so provider choice never changes plan
// shape.
func BuildPrompt(req Request) string {
	var b strings.Builder

	b.WriteString("Convert the instruction into a plan program written as a single s-expression.\n")
	b.WriteString("Available forms: (seq ...), (par ...), (if cond then else), (let ((name expr) ...) body).\n")

	if len(req.Tools) > 0 {
		b.WriteString("Available tools:\n")
		for _, d := range req.Tools {
			params := make([]string, len(d.Params))
			for i, p := range d.Params {
				params[i] = fmt.Sprintf("%s:%s", p.Name, p.Type)
			}
			fmt.Fprintf(&b, "- (%s %s): %s\n", d.Name, strings.Join(params, " "), d.Description)
		}
	}

	fmt.Fprintf(&b, "\nInstruction: %s\n", req.Intent)

	if req.IsRepair() {
		b.WriteString("\nThe previous program failed. Fix it.\n")
		fmt.Fprintf(&b, "Failing program: %s\n", req.FailingProgram)
		fmt.Fprintf(&b, "Error: %s\n", req.ErrorDetail)
	}

	b.WriteString("\nOutput only the s-expression, with balanced parentheses and no explanation.\n")
	return b.String()
}

// ExtractProgram strips markdown code fences and surrounding prose from a
// model reply so only the s-expression survives. It returns the first
// substring that starts at an opening parenthesis and ends at its balanced
// close, skipping parentheses inside string literals.
func ExtractProgram(reply string) string {
	reply = strings.TrimSpace(reply)

	// Prefer fenced blocks when present.
	if idx := strings.Index(reply, "```"); idx >= 0 {
		rest := reply[idx+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:] // drop the language tag line
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			rest = rest[:end]
		}
		reply = strings.TrimSpace(rest)
	}

	start := strings.IndexByte(reply, '(')
	if start < 0 {
		return reply
	}

	depth := 0
	inString := false
	for i := start; i < len(reply); i++ {
		c := reply[i]
		if inString {
			if c == '\\' {
				i++
			} else if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return reply[start : i+1]
			}
		}
	}
	return reply[start:]
}

// MockGenerator returns scripted replies in order; once exhausted it repeats
// the last one. Useful for tests and examples.
type MockGenerator struct {
	replies []string
	calls   int

	// Requests records every request for assertion by tests.
	Requests []Request

	// Err, when set, is returned instead of a reply.
	Err error
}

// NewMockGenerator constructs a MockGenerator with canned replies.
func NewMockGenerator(replies ...string) *MockGenerator {
	return &MockGenerator{replies: replies}
}

// Generate implements Generator.
func (m *MockGenerator) Generate(ctx context.Context, req Request) (string, error) {
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.replies) == 0 {
		return "", fmt.Errorf("mock generator has no replies")
	}
	i := m.calls
	if i >= len(m.replies) {
		i = len(m.replies) - 1
	}
	m.calls++
	return m.replies[i], nil
}

// Calls reports how many times Generate was invoked.
func (m *MockGenerator) Calls() int { return m.calls }
