package eval

import (
	"fmt"
	"strings"
)

// UnknownOperatorError reports a list form whose head symbol matches neither
// a control form nor a registered tool.
type UnknownOperatorError struct {
	Name string `json:"name"`
}

func (e *UnknownOperatorError) Error() string {
	return fmt.Sprintf("unknown operator: %s", e.Name)
}

// BindingError reports a malformed let binding list.
type BindingError struct {
	Detail string `json:"detail"`
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("malformed let binding: %s", e.Detail)
}

// StepError tags a seq failure with the index of the failing step.
type StepError struct {
	Index int // zero-based position within the seq form
	Err   error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("seq step %d: %v", e.Index, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// ToolExecutionError wraps an adapter-specific failure raised while invoking
// a named tool. Tool failures are never silently swallowed; they propagate
// like any other evaluation failure.
type ToolExecutionError struct {
	Name string
	Err  error // adapter-specific cause
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.Name, e.Err)
}

func (e *ToolExecutionError) Unwrap() error { return e.Err }

// DepthExceededError reports that evaluation recursed past the configured
// maximum nesting depth. It replaces a host stack fault with a diagnosable
// failure.
type DepthExceededError struct {
	MaxDepth int
}

func (e *DepthExceededError) Error() string {
	return fmt.Sprintf("maximum nesting depth %d exceeded", e.MaxDepth)
}

// BranchError is one failed branch inside a ParallelFailure.
type BranchError struct {
	Index int // argument position of the branch within the par form
	Err   error
}

func (e *BranchError) Error() string {
	return fmt.Sprintf("branch %d: %v", e.Index, e.Err)
}

func (e *BranchError) Unwrap() error { return e.Err }

// ParallelFailure aggregates every failing branch of a par join. All
// branches always run to completion before the failure is produced; the
// Completed indices preserve the fact that sibling branches succeeded even
// though their values are discarded.
type ParallelFailure struct {
	Branches  []*BranchError // every failing branch, in argument order
	Completed []int          // indices of branches that completed successfully
}

func (e *ParallelFailure) Error() string {
	msgs := make([]string, len(e.Branches))
	for i, b := range e.Branches {
		msgs[i] = b.Error()
	}
	return fmt.Sprintf("parallel failure (%d of %d branches failed, completed: %v): %s",
		len(e.Branches), len(e.Branches)+len(e.Completed), e.Completed, strings.Join(msgs, "; "))
}

// Unwrap exposes the individual branch errors to errors.Is / errors.As.
func (e *ParallelFailure) Unwrap() []error {
	errs := make([]error, len(e.Branches))
	for i, b := range e.Branches {
		errs[i] = b
	}
	return errs
}
