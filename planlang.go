// Package planlang provides a high-level façade over the s-expression plan
// runtime: parser, lexically scoped evaluator with concurrent par branches,
// tool registry and the bounded error-recovery loop. Most applications
// interact with this package by:
//  1. Creating a PlanLang via New() (optionally supplying a plan generator,
//     trace sink and logger)
//  2. Registering tools beyond the built-in set
//  3. Running programs with Run (recovery enabled) or Evaluate (single shot)
//
// The façade delegates interpretation to eval.Evaluator and recovery to
// recovery.Loop while keeping setup ergonomics concise. All defaults are safe
// for local development and testing; production deployments typically supply
// a real planner.Generator and a structured logger.
package planlang

import (
	"context"
	"io"
	"os"

	"github.com/hupe1980/planlang/eval"
	"github.com/hupe1980/planlang/logging"
	"github.com/hupe1980/planlang/planner"
	"github.com/hupe1980/planlang/recovery"
	"github.com/hupe1980/planlang/sexpr"
	"github.com/hupe1980/planlang/tool"
	"github.com/hupe1980/planlang/trace"
)

// Options configures the PlanLang instance.
type Options struct {
	// Generator produces replacement programs for the recovery loop. Nil
	// disables recovery: the first error is terminal.
	Generator planner.Generator

	// MaxAttempts bounds parse/evaluate/regenerate cycles.
	MaxAttempts int

	// MaxDepth bounds expression nesting.
	MaxDepth int

	// Sink receives trace events in addition to the built-in recorder.
	Sink trace.Sink

	// NotifyWriter receives output of the built-in notify tool. Defaults to
	// stdout.
	NotifyWriter io.Writer

	// SkipBuiltins leaves the registry empty so hosts control the full tool
	// set.
	SkipBuiltins bool

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// PlanLang is the high-level façade aggregating registry, evaluator and
// recovery loop.
type PlanLang struct {
	registry  *tool.Registry
	evaluator *eval.Evaluator
	loop      *recovery.Loop
	recorder  *trace.Recorder
}

// New creates a PlanLang instance with optional overrides. Built-in tools
// (notify, concat, calc, search, db-query) are registered unless
// SkipBuiltins is set.
func New(optFns ...func(o *Options)) *PlanLang {
	opts := Options{
		MaxAttempts:  recovery.DefaultMaxAttempts,
		MaxDepth:     eval.DefaultMaxDepth,
		NotifyWriter: os.Stdout,
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	registry := tool.NewRegistry(opts.Logger)
	if !opts.SkipBuiltins {
		tool.RegisterBuiltins(registry, opts.NotifyWriter)
	}

	recorder := trace.NewRecorder()
	var sink trace.Sink = recorder
	if opts.Sink != nil {
		sink = trace.MultiSink{recorder, opts.Sink}
	}

	evaluator := eval.New(registry, func(o *eval.Options) {
		o.MaxDepth = opts.MaxDepth
		o.Sink = sink
		o.Logger = opts.Logger
	})

	loop := recovery.New(evaluator, registry, opts.Generator, func(o *recovery.Options) {
		o.MaxAttempts = opts.MaxAttempts
		o.Logger = opts.Logger
	})

	return &PlanLang{
		registry:  registry,
		evaluator: evaluator,
		loop:      loop,
		recorder:  recorder,
	}
}

// RegisterTool adds a tool to the registry. Call before running programs;
// registration is not synchronized with in-flight evaluations.
func (p *PlanLang) RegisterTool(t tool.Tool) {
	p.registry.Register(t)
}

// Tools returns descriptors for every registered tool.
func (p *PlanLang) Tools() []tool.Descriptor {
	return p.registry.Descriptors()
}

// Run drives a program through the recovery loop against a fresh root
// environment. The intent is forwarded to the plan generator when a
// recoverable failure requires regeneration.
func (p *PlanLang) Run(ctx context.Context, intent, program string) (*recovery.Result, error) {
	return p.loop.Run(ctx, intent, program, eval.NewEnv())
}

// Evaluate parses and evaluates a program once against a fresh root
// environment, without recovery.
func (p *PlanLang) Evaluate(ctx context.Context, program string) (any, error) {
	node, err := sexpr.Parse(program)
	if err != nil {
		return nil, err
	}
	return p.evaluator.Evaluate(ctx, node, eval.NewEnv())
}

// Trace returns the built-in recorder holding events of all runs so far.
func (p *PlanLang) Trace() *trace.Recorder {
	return p.recorder
}
