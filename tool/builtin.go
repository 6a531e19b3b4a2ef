package tool

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// formatValue renders an evaluated argument for message building: strings
// pass through, numbers use their shortest decimal form.
func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// NewNotifyTool builds the notify tool: it writes the message to w and
// returns the message as its value. A nil writer discards output.
func NewNotifyTool(w io.Writer) *FunctionTool {
	if w == nil {
		w = io.Discard
	}
	return NewFunctionTool(
		"notify",
		"Deliver a message to the user",
		[]Param{{Name: "message", Type: "any", Required: true}},
		func(ctx context.Context, args []any) (any, error) {
			msg := formatValue(args[0])
			fmt.Fprintf(w, "[notify] %s\n", msg)
			return msg, nil
		},
	)
}

// NewConcatTool builds the concat tool joining all arguments into one string.
func NewConcatTool() *FunctionTool {
	return NewFunctionTool(
		"concat",
		"Concatenate all arguments into a single string",
		[]Param{{Name: "parts", Type: "any", Required: true, Variadic: true}},
		func(ctx context.Context, args []any) (any, error) {
			var b strings.Builder
			for _, a := range args {
				b.WriteString(formatValue(a))
			}
			return b.String(), nil
		},
	)
}

// NewCalcTool builds the calc tool evaluating an infix arithmetic expression.
// Arithmetic lives here rather than in the core language; programs call
// (calc "2+3") instead of having numeric operators.
func NewCalcTool() *FunctionTool {
	return NewFunctionTool(
		"calc",
		"Evaluate an arithmetic expression (+ - * /, parentheses, comparisons)",
		[]Param{{Name: "expression", Type: "string", Required: true}},
		func(ctx context.Context, args []any) (any, error) {
			result, err := evalArithmetic(args[0].(string))
			if err != nil {
				return nil, NewToolError("calc", err.Error(), "CALC_ERROR")
			}
			return result, nil
		},
	)
}

// NewSearchTool builds a stub search tool exercising the remote-shaped
// adapter contract: it simulates network latency, honors cancellation, and
// returns a canned result. Production hosts replace it with a real backend.
func NewSearchTool(latency time.Duration) *FunctionTool {
	return NewFunctionTool(
		"search",
		"Search for information",
		[]Param{{Name: "query", Type: "string", Required: true}},
		func(ctx context.Context, args []any) (any, error) {
			if err := sleepCtx(ctx, latency); err != nil {
				return nil, err
			}
			return fmt.Sprintf("results for: %s", args[0].(string)), nil
		},
	)
}

// NewDBQueryTool builds a stub database query tool with the same
// remote-shaped behavior as search.
func NewDBQueryTool(latency time.Duration) *FunctionTool {
	return NewFunctionTool(
		"db-query",
		"Execute a database query",
		[]Param{{Name: "query", Type: "string", Required: true}},
		func(ctx context.Context, args []any) (any, error) {
			if err := sleepCtx(ctx, latency); err != nil {
				return nil, err
			}
			return fmt.Sprintf("rows for: %s", args[0].(string)), nil
		},
	)
}

// sleepCtx blocks for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RegisterBuiltins registers the built-in tool set (notify, concat, calc,
// search, db-query) on the given registry. Notify output goes to w.
func RegisterBuiltins(r *Registry, w io.Writer) {
	r.Register(NewNotifyTool(w))
	r.Register(NewConcatTool())
	r.Register(NewCalcTool())
	r.Register(NewSearchTool(10 * time.Millisecond))
	r.Register(NewDBQueryTool(5 * time.Millisecond))
}
