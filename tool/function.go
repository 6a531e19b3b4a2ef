package tool

import (
	"context"
	"fmt"

	"github.com/hupe1980/planlang/internal/util"
)

// FunctionTool is a generic adapter that exposes a plain Go function as a
// planlang tool.
//
// Responsibilities:
//   - Holds the declared positional parameter list
//   - Validates argument count and type tags before execution
//   - Normalizes error handling so callers receive *ToolError with
//     consistent codes:
//     VALIDATION_ERROR  -> arity / type-tag mismatch
//     EXECUTION_ERROR   -> underlying function returned an error (non-ToolError)
//     (custom codes preserved if the function returns *ToolError directly)
//
// A FunctionTool has no internal mutable state after construction and is safe
// for concurrent use by multiple goroutines.
type FunctionTool struct {
	name        string
	description string
	params      []Param
	fn          func(ctx context.Context, args []any) (any, error)
}

// NewFunctionTool constructs a FunctionTool from explicit parameters and a
// function.
//
// Example:
//
//	sum := tool.NewFunctionTool(
//	  "sum",
//	  "Add two numbers",
//	  []tool.Param{
//	    {Name: "a", Type: "number", Required: true},
//	    {Name: "b", Type: "number", Required: true},
//	  },
//	  func(ctx context.Context, args []any) (any, error) {
//	    return args[0].(int64) + args[1].(int64), nil
//	  },
//	)
func NewFunctionTool(
	name, description string,
	params []Param,
	fn func(ctx context.Context, args []any) (any, error),
) *FunctionTool {
	return &FunctionTool{
		name:        name,
		description: description,
		params:      params,
		fn:          fn,
	}
}

// Name returns the unique tool name used in programs and registry routing.
func (t *FunctionTool) Name() string { return t.name }

// Description returns the short natural language description exposed to plan generators.
func (t *FunctionTool) Description() string { return t.description }

// Params returns the declared positional parameters.
func (t *FunctionTool) Params() []Param { return t.params }

// Call validates the provided args against the declared parameters then
// invokes the underlying function. Validation or execution failures are
// wrapped (or passed through) as *ToolError for uniform downstream handling.
func (t *FunctionTool) Call(ctx context.Context, args []any) (any, error) {
	if err := validateArgs(args, t.params); err != nil {
		return nil, &ToolError{
			Tool:    t.name,
			Message: fmt.Sprintf("parameter validation failed: %v", err),
			Code:    "VALIDATION_ERROR",
			Details: err,
		}
	}

	result, err := t.fn(ctx, args)
	if err != nil {
		if toolErr, ok := err.(*ToolError); ok { // Already a ToolError -> forward unchanged
			return nil, toolErr
		}
		return nil, &ToolError{
			Tool:    t.name,
			Message: err.Error(),
			Code:    "EXECUTION_ERROR",
		}
	}

	return result, nil
}

// validateArgs checks positional arguments against the declared parameters:
// required arity, maximum arity (unless the last parameter is variadic) and
// per-argument type tags.
func validateArgs(args []any, params []Param) error {
	required := 0
	variadic := false
	for i, p := range params {
		if p.Required && !p.Variadic {
			required++
		}
		if p.Variadic && i == len(params)-1 {
			variadic = true
			if p.Required {
				required++
			}
		}
	}

	if len(args) < required {
		return util.NewValidationError("arity", "expected at least %d argument(s), got %d", required, len(args))
	}
	if !variadic && len(args) > len(params) {
		return util.NewValidationError("arity", "expected at most %d argument(s), got %d", len(params), len(args))
	}

	for i, arg := range args {
		p := params[min(i, len(params)-1)]
		if err := util.CheckType(p.Name, p.Type, arg); err != nil {
			return err
		}
	}
	return nil
}
