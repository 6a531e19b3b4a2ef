// Package recovery implements the bounded parse/evaluate/regenerate loop
// that repairs malformed plan programs by round-tripping through an external
// plan generator. The loop is a small state machine with a mandatory attempt
// budget: it never retries without consulting the remaining budget first, and
// it surfaces the full attempt history so failures stay inspectable.
package recovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/planlang/eval"
	"github.com/hupe1980/planlang/logging"
	"github.com/hupe1980/planlang/planner"
	"github.com/hupe1980/planlang/sexpr"
	"github.com/hupe1980/planlang/tool"
)

// State identifies a position in the recovery state machine.
type State string

const (
	// StateReady holds program text awaiting a parse.
	StateReady State = "ready"
	// StateParsing means the current program text is being parsed.
	StateParsing State = "parsing"
	// StateEvaluating means the parsed tree is being evaluated.
	StateEvaluating State = "evaluating"
	// StateRecovering means a replacement program is being generated.
	StateRecovering State = "recovering"
	// StateSucceeded is terminal: an evaluation produced a value.
	StateSucceeded State = "succeeded"
	// StateFailed is terminal: the budget is exhausted or the error is not
	// recoverable.
	StateFailed State = "failed"
)

// Attempt records one parse/evaluate cycle for the attempt history.
type Attempt struct {
	Program string // the program text this attempt ran
	Phase   State  // StateParsing or StateEvaluating, where the attempt ended
	Err     error  // nil when the attempt succeeded
	Value   any    // the produced value when Err is nil
}

// Result is the outcome of a Run: terminal state, final value on success,
// and the complete attempt history in order.
type Result struct {
	State    State
	Value    any
	Attempts []Attempt
}

// LastError returns the error of the most recent failed attempt, or nil.
func (r *Result) LastError() error {
	for i := len(r.Attempts) - 1; i >= 0; i-- {
		if r.Attempts[i].Err != nil {
			return r.Attempts[i].Err
		}
	}
	return nil
}

// DefaultMaxAttempts bounds parse/evaluate cycles, counting the initial
// program and each regeneration.
const DefaultMaxAttempts = 3

// Options configures a Loop.
type Options struct {
	// MaxAttempts bounds the number of parse/evaluate cycles. Defaults to
	// DefaultMaxAttempts.
	MaxAttempts int

	// Logger for structured diagnostics. Defaults to no-op.
	Logger logging.Logger
}

// Loop drives programs through parse -> evaluate, regenerating on
// recoverable failures. A nil generator disables recovery: the first error
// is terminal.
type Loop struct {
	evaluator   *eval.Evaluator
	registry    *tool.Registry
	generator   planner.Generator
	maxAttempts int
	logger      logging.Logger
}

// New creates a recovery loop around an evaluator, a registry (for
// capability advertisement to the generator) and an optional generator.
func New(evaluator *eval.Evaluator, registry *tool.Registry, generator planner.Generator, optFns ...func(o *Options)) *Loop {
	opts := Options{
		MaxAttempts: DefaultMaxAttempts,
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Loop{
		evaluator:   evaluator,
		registry:    registry,
		generator:   generator,
		maxAttempts: opts.MaxAttempts,
		logger:      opts.Logger,
	}
}

// Recoverable reports whether err describes a program-shape defect the plan
// generator can plausibly repair: syntax errors, unknown operators and
// malformed binding or control forms — anywhere in the error chain, so a
// defective branch inside a seq or par still triggers regeneration. Runtime
// conditions (unbound variables, tool failures) are terminal for the attempt.
func Recoverable(err error) bool {
	var (
		synErr     *sexpr.SyntaxError
		unknownOp  *eval.UnknownOperatorError
		bindingErr *eval.BindingError
		formErr    *eval.FormError
	)
	return errors.As(err, &synErr) ||
		errors.As(err, &unknownOp) ||
		errors.As(err, &bindingErr) ||
		errors.As(err, &formErr)
}

// Run drives program through the state machine until it reaches a terminal
// state. The returned Result always carries the full attempt history; the
// error is non-nil exactly when the terminal state is StateFailed.
func (l *Loop) Run(ctx context.Context, intent, program string, env *eval.Env) (*Result, error) {
	result := &Result{State: StateReady}

	for attempt := 1; attempt <= l.maxAttempts; attempt++ {
		result.State = StateParsing
		node, err := sexpr.Parse(program)
		if err != nil {
			result.Attempts = append(result.Attempts, Attempt{Program: program, Phase: StateParsing, Err: err})
			l.logger.Warn("parse failed", "attempt", attempt, "error", err.Error())

			replacement, recErr := l.recover(ctx, result, intent, program, attempt, err)
			if recErr != nil {
				return result, recErr
			}
			program = replacement
			continue
		}

		result.State = StateEvaluating
		value, err := l.evaluator.Evaluate(ctx, node, env)
		if err == nil {
			result.Attempts = append(result.Attempts, Attempt{Program: program, Phase: StateEvaluating, Value: value})
			result.State = StateSucceeded
			result.Value = value
			l.logger.Info("evaluation succeeded", "attempt", attempt)
			return result, nil
		}

		result.Attempts = append(result.Attempts, Attempt{Program: program, Phase: StateEvaluating, Err: err})
		l.logger.Warn("evaluation failed", "attempt", attempt, "error", err.Error())

		if !Recoverable(err) {
			result.State = StateFailed
			return result, err
		}

		replacement, recErr := l.recover(ctx, result, intent, program, attempt, err)
		if recErr != nil {
			return result, recErr
		}
		program = replacement
	}

	// Unreachable: recover fails before the budget is exceeded.
	result.State = StateFailed
	return result, fmt.Errorf("recovery attempts exhausted (%d)", l.maxAttempts)
}

// recover performs the Recovering transition: it checks the remaining
// budget, then asks the generator for a replacement program. On any failure
// the loop transitions to StateFailed and the last error plus the attempt
// history is surfaced to the caller.
func (l *Loop) recover(ctx context.Context, result *Result, intent, program string, attempt int, cause error) (string, error) {
	if attempt >= l.maxAttempts {
		result.State = StateFailed
		return "", fmt.Errorf("recovery attempts exhausted (%d): %w", l.maxAttempts, cause)
	}
	if l.generator == nil {
		result.State = StateFailed
		return "", cause
	}

	result.State = StateRecovering
	start := time.Now()
	replacement, err := l.generator.Generate(ctx, planner.Request{
		Intent:         intent,
		FailingProgram: program,
		ErrorDetail:    cause.Error(),
		Tools:          l.registry.Descriptors(),
	})
	logging.LogGeneration(l.logger, "planner", attempt, time.Since(start), err)
	if err != nil {
		result.State = StateFailed
		return "", fmt.Errorf("plan generation failed: %w (after: %v)", err, cause)
	}

	result.State = StateReady
	return replacement, nil
}
