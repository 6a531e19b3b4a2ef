// Package tool implements the capability-dispatch subsystem that lets plan
// programs invoke named tools (local computations or remote services) with
// declared parameters, consistent error handling and registry-based lookup.
// The registry is symmetric over local and remote adapters: dispatch only
// sees "given evaluated argument values, produce a result value or fail".
package tool

import (
	"context"
	"fmt"
)

// Param declares one positional tool parameter. Type is a semantic tag
// ("string", "number", "bool" or "any") used for pre-invocation validation
// and surfaced to plan generators for guidance.
type Param struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`

	// Variadic marks the final parameter as accepting all remaining
	// arguments. Only meaningful on the last declared parameter.
	Variadic bool `json:"variadic,omitempty"`
}

// Tool defines the interface for capabilities invokable from plan programs.
//
// Implementations must be safe to call from multiple concurrent branches of a
// parallel construct; any internal state needs its own synchronization.
// Blocking adapters should honor ctx cancellation so a suspended invocation
// never outlives its caller.
type Tool interface {
	// Name returns the unique identifier used in programs (snake_case or
	// hyphenated names recommended).
	Name() string

	// Description returns a human-readable summary provided to plan
	// generators so they know when to use the tool.
	Description() string

	// Params returns the declared positional parameters in call order.
	Params() []Param

	// Call executes the tool with already-evaluated argument values in
	// declared parameter order.
	Call(ctx context.Context, args []any) (any, error)
}

// Descriptor is an introspection snapshot of a registered tool.
type Descriptor struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Params      []Param `json:"params"`
}

// Describe builds a Descriptor from any Tool.
func Describe(t Tool) Descriptor {
	return Descriptor{Name: t.Name(), Description: t.Description(), Params: t.Params()}
}

// UnknownToolError reports an invocation of a name absent from the registry.
type UnknownToolError struct {
	Name string `json:"name"`
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool: %s", e.Name)
}

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{Tool: tool, Message: message, Code: code}
}
