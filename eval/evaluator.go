package eval

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/planlang/logging"
	"github.com/hupe1980/planlang/sexpr"
	"github.com/hupe1980/planlang/tool"
	"github.com/hupe1980/planlang/trace"
)

// DefaultMaxDepth bounds expression nesting before evaluation fails with
// *DepthExceededError instead of risking a host stack fault.
const DefaultMaxDepth = 256

// Control form names. Dispatch over this closed set happens before the
// open-ended tool lookup, so a tool can never shadow a control form.
const (
	FormPlan = "plan"
	FormSeq  = "seq"
	FormPar  = "par"
	FormIf   = "if"
	FormLet  = "let"
)

// FormError reports a structurally malformed control form (wrong arity,
// misplaced sub-form). Like a syntax error it describes program shape, so
// the recovery loop treats it as regenerable.
type FormError struct {
	Form   string `json:"form"`
	Detail string `json:"detail"`
}

func (e *FormError) Error() string {
	return fmt.Sprintf("malformed %s form: %s", e.Form, e.Detail)
}

// Options configures an Evaluator.
type Options struct {
	// MaxDepth bounds expression nesting. Defaults to DefaultMaxDepth.
	MaxDepth int

	// Sink receives trace events in causal order. Defaults to trace.Discard.
	Sink trace.Sink

	// Logger for structured diagnostics. Defaults to no-op.
	Logger logging.Logger
}

// Evaluator walks an expression tree and produces a value plus trace events.
// It is stateless between calls: one Evaluate call interprets one expression
// against one environment. The only shared objects are the tool registry
// (read-mostly) and the trace sink, both safe for concurrent branches.
type Evaluator struct {
	registry *tool.Registry
	sink     trace.Sink
	logger   logging.Logger
	maxDepth int
}

// New creates an Evaluator dispatching tool calls through registry.
func New(registry *tool.Registry, optFns ...func(o *Options)) *Evaluator {
	opts := Options{
		MaxDepth: DefaultMaxDepth,
		Sink:     trace.Discard,
		Logger:   logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.Sink == nil {
		opts.Sink = trace.Discard
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Evaluator{
		registry: registry,
		sink:     opts.Sink,
		logger:   opts.Logger,
		maxDepth: opts.MaxDepth,
	}
}

// Evaluate interprets node against env and returns its value. Every
// evaluated node emits exactly one trace event lifecycle
// pending -> running -> (completed | error); the untaken branch of an if
// emits nothing.
func (ev *Evaluator) Evaluate(ctx context.Context, node *sexpr.Node, env *Env) (any, error) {
	return ev.eval(ctx, node, env, "", 0)
}

// opName labels the trace event for a node: the head symbol for list forms,
// the atom kind otherwise.
func opName(node *sexpr.Node) string {
	if node.Kind == sexpr.KindList {
		if head := node.Head(); head != "" {
			return head
		}
		return "list"
	}
	return node.Kind.String()
}

func (ev *Evaluator) eval(ctx context.Context, node *sexpr.Node, env *Env, parentID string, depth int) (any, error) {
	event := trace.NewEvent(parentID, opName(node), node.String())
	ev.sink.Emit(event)
	ev.sink.Emit(event.Running())

	value, err := ev.evalInner(ctx, node, env, event.ID, depth)
	if err != nil {
		ev.sink.Emit(event.Failed(err))
		return nil, err
	}
	ev.sink.Emit(event.Completed(value))
	return value, nil
}

func (ev *Evaluator) evalInner(ctx context.Context, node *sexpr.Node, env *Env, eventID string, depth int) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if depth > ev.maxDepth {
		return nil, &DepthExceededError{MaxDepth: ev.maxDepth}
	}

	if node.IsAtom() {
		if node.Kind == sexpr.KindSymbol {
			return env.Lookup(node.Sym)
		}
		return node.Value(), nil
	}

	if len(node.List) == 0 {
		return nil, nil
	}
	if node.List[0].Kind != sexpr.KindSymbol {
		return nil, &FormError{Form: "list", Detail: "first element must be a symbol"}
	}

	head := node.Head()
	args := node.Args()

	switch head {
	case FormPlan:
		// Transparent wrapper commonly emitted around generated programs;
		// behaves like seq over its children.
		return ev.evalSeq(ctx, args, env, eventID, depth)
	case FormSeq:
		return ev.evalSeq(ctx, args, env, eventID, depth)
	case FormPar:
		return ev.evalPar(ctx, args, env, eventID, depth)
	case FormIf:
		return ev.evalIf(ctx, args, env, eventID, depth)
	case FormLet:
		return ev.evalLet(ctx, args, env, eventID, depth)
	default:
		return ev.evalToolCall(ctx, head, args, env, eventID, depth)
	}
}

// evalSeq evaluates steps one at a time, in order, against the same
// environment. The value of the form is the value of the last step. The
// first failure aborts the remaining steps, tagged with the step index.
func (ev *Evaluator) evalSeq(ctx context.Context, steps []*sexpr.Node, env *Env, eventID string, depth int) (any, error) {
	var value any
	for i, step := range steps {
		v, err := ev.eval(ctx, step, env, eventID, depth+1)
		if err != nil {
			return nil, &StepError{Index: i, Err: err}
		}
		value = v
	}
	return value, nil
}

// evalPar launches every branch concurrently, each against a private child
// frame of env, and performs a full join: branches already in flight are
// never cancelled when a sibling fails, only their outcome is absorbed into
// the aggregate. The success value is the branch values in argument order.
func (ev *Evaluator) evalPar(ctx context.Context, branches []*sexpr.Node, env *Env, eventID string, depth int) (any, error) {
	results := make([]any, len(branches))
	errs := make([]error, len(branches))

	var wg sync.WaitGroup
	for i, branch := range branches {
		wg.Add(1)
		go func(i int, branch *sexpr.Node) {
			defer wg.Done()
			// Private child frame so sibling writes cannot race.
			results[i], errs[i] = ev.eval(ctx, branch, env.Child(), eventID, depth+1)
		}(i, branch)
	}
	wg.Wait()

	var failure ParallelFailure
	for i, err := range errs {
		if err != nil {
			failure.Branches = append(failure.Branches, &BranchError{Index: i, Err: err})
		} else {
			failure.Completed = append(failure.Completed, i)
		}
	}
	if len(failure.Branches) > 0 {
		ev.logger.Warn("parallel branches failed",
			"failed", len(failure.Branches), "completed", len(failure.Completed))
		return nil, &failure
	}
	return results, nil
}

// evalIf evaluates the condition, then exactly one of the two branches based
// on the fixed truthiness rule. The untaken branch is never evaluated and
// emits no trace event. The else branch is optional; a falsy condition
// without one yields nil.
func (ev *Evaluator) evalIf(ctx context.Context, args []*sexpr.Node, env *Env, eventID string, depth int) (any, error) {
	if len(args) < 2 || len(args) > 3 {
		return nil, &FormError{Form: FormIf, Detail: fmt.Sprintf("expected 2 or 3 arguments, got %d", len(args))}
	}

	cond, err := ev.eval(ctx, args[0], env, eventID, depth+1)
	if err != nil {
		return nil, err
	}

	if Truthy(cond) {
		return ev.eval(ctx, args[1], env, eventID, depth+1)
	}
	if len(args) == 3 {
		return ev.eval(ctx, args[2], env, eventID, depth+1)
	}
	return nil, nil
}

// evalLet evaluates every binding expression against the enclosing
// environment (bindings are not visible to each other), then creates one
// child frame binding all names simultaneously, then evaluates the body in
// that frame. The frame is discarded when the body finishes.
func (ev *Evaluator) evalLet(ctx context.Context, args []*sexpr.Node, env *Env, eventID string, depth int) (any, error) {
	if len(args) != 2 {
		return nil, &BindingError{Detail: fmt.Sprintf("let expects a binding list and a body, got %d argument(s)", len(args))}
	}
	bindingList := args[0]
	if bindingList.Kind != sexpr.KindList {
		return nil, &BindingError{Detail: "binding list must be a list of (name expr) pairs"}
	}

	names := make([]string, 0, len(bindingList.List))
	values := make([]any, 0, len(bindingList.List))
	for _, binding := range bindingList.List {
		if binding.Kind != sexpr.KindList || len(binding.List) != 2 {
			return nil, &BindingError{Detail: fmt.Sprintf("binding must be a (name expr) pair, got %s", binding)}
		}
		if binding.List[0].Kind != sexpr.KindSymbol {
			return nil, &BindingError{Detail: fmt.Sprintf("binding name must be a symbol, got %s", binding.List[0])}
		}
		v, err := ev.eval(ctx, binding.List[1], env, eventID, depth+1)
		if err != nil {
			return nil, err
		}
		names = append(names, binding.List[0].Sym)
		values = append(values, v)
	}

	frame := env.Child()
	for i, name := range names {
		frame.Bind(name, values[i])
	}
	return ev.eval(ctx, args[1], frame, eventID, depth+1)
}

// evalToolCall resolves head through the registry, evaluates arguments
// left-to-right against the current environment, then invokes the adapter.
// Adapter failures wrap as *ToolExecutionError and propagate; they are never
// swallowed.
func (ev *Evaluator) evalToolCall(ctx context.Context, name string, argNodes []*sexpr.Node, env *Env, eventID string, depth int) (any, error) {
	if _, ok := ev.registry.Lookup(name); !ok {
		return nil, &UnknownOperatorError{Name: name}
	}

	args := make([]any, len(argNodes))
	for i, argNode := range argNodes {
		v, err := ev.eval(ctx, argNode, env, eventID, depth+1)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	result, err := ev.registry.Invoke(ctx, name, args)
	if err != nil {
		return nil, &ToolExecutionError{Name: name, Err: err}
	}
	return result, nil
}
