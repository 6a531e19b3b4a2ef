package eval

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/planlang/sexpr"
	"github.com/hupe1980/planlang/tool"
	"github.com/hupe1980/planlang/trace"
)

func newTestEvaluator(t *testing.T) (*Evaluator, *trace.Recorder) {
	t.Helper()
	registry := tool.NewRegistry(nil)
	tool.RegisterBuiltins(registry, io.Discard)
	recorder := trace.NewRecorder()
	ev := New(registry, func(o *Options) { o.Sink = recorder })
	return ev, recorder
}

func mustParse(t *testing.T, program string) *sexpr.Node {
	t.Helper()
	node, err := sexpr.Parse(program)
	require.NoError(t, err)
	return node
}

func TestEvaluateAtoms(t *testing.T) {
	ev, _ := newTestEvaluator(t)
	env := NewEnv()
	env.Bind("x", int64(5))

	tests := []struct {
		program string
		want    any
	}{
		{`42`, int64(42)},
		{`3.5`, 3.5},
		{`"hello"`, "hello"},
		{`x`, int64(5)},
	}
	for _, tt := range tests {
		t.Run(tt.program, func(t *testing.T) {
			v, err := ev.Evaluate(context.Background(), mustParse(t, tt.program), env)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestEvaluateUnboundSymbol(t *testing.T) {
	ev, _ := newTestEvaluator(t)
	_, err := ev.Evaluate(context.Background(), mustParse(t, "ghost"), NewEnv())

	var unbound *UnboundVariableError
	require.ErrorAs(t, err, &unbound)
	assert.Equal(t, "ghost", unbound.Name)
}

func TestSeqOrderAndValue(t *testing.T) {
	ev, recorder := newTestEvaluator(t)

	v, err := ev.Evaluate(context.Background(), mustParse(t, `(seq (notify "a") (notify "b") (calc "1+1"))`), NewEnv())
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)

	// Step N completes before step N+1 starts.
	var order []string
	for _, e := range recorder.Events() {
		if e.Op == "notify" && (e.Status == trace.StatusRunning || e.Status == trace.StatusCompleted) {
			order = append(order, string(e.Status)+":"+e.Expr)
		}
	}
	require.Len(t, order, 4)
	assert.True(t, strings.Contains(order[0], `"a"`))
	assert.Equal(t, trace.StatusRunning, trace.Status(strings.SplitN(order[0], ":", 2)[0]))
	assert.True(t, strings.Contains(order[1], `"a"`))
	assert.True(t, strings.Contains(order[2], `"b"`))
	assert.True(t, strings.Contains(order[3], `"b"`))
}

func TestPlanWrapperBehavesLikeSeq(t *testing.T) {
	ev, _ := newTestEvaluator(t)

	v, err := ev.Evaluate(context.Background(), mustParse(t, `(plan (notify "go") (calc "1+1"))`), NewEnv())
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
}

func TestSeqFailFastTagsIndex(t *testing.T) {
	registry := tool.NewRegistry(nil)
	var calls int32
	registry.Register(tool.NewFunctionTool("boom", "Always fails", nil,
		func(ctx context.Context, args []any) (any, error) { return nil, errors.New("kaboom") }))
	registry.Register(tool.NewFunctionTool("count", "Counts invocations", nil,
		func(ctx context.Context, args []any) (any, error) {
			return atomic.AddInt32(&calls, 1), nil
		}))
	ev := New(registry)

	_, err := ev.Evaluate(context.Background(), mustParse(t, `(seq (count) (boom) (count))`), NewEnv())

	var step *StepError
	require.ErrorAs(t, err, &step)
	assert.Equal(t, 1, step.Index)

	var toolErr *ToolExecutionError
	require.ErrorAs(t, step.Err, &toolErr)
	assert.Equal(t, "boom", toolErr.Name)

	// The step after the failure never ran.
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestParReturnsValuesInArgumentOrder(t *testing.T) {
	registry := tool.NewRegistry(nil)
	registry.Register(tool.NewFunctionTool("slowEcho", "Echo after a delay",
		[]tool.Param{
			{Name: "value", Type: "any", Required: true},
			{Name: "delay_ms", Type: "number", Required: true},
		},
		func(ctx context.Context, args []any) (any, error) {
			time.Sleep(time.Duration(args[1].(int64)) * time.Millisecond)
			return args[0], nil
		}))
	ev := New(registry)

	// First branch finishes last; result order still follows argument order.
	v, err := ev.Evaluate(context.Background(), mustParse(t, `(par (slowEcho "first" 50) (slowEcho "second" 1))`), NewEnv())
	require.NoError(t, err)
	assert.Equal(t, []any{"first", "second"}, v)
}

func TestParAggregatesFailuresAfterFullJoin(t *testing.T) {
	registry := tool.NewRegistry(nil)
	var completed int32
	registry.Register(tool.NewFunctionTool("ok", "Succeeds", nil,
		func(ctx context.Context, args []any) (any, error) {
			atomic.AddInt32(&completed, 1)
			return "ok", nil
		}))
	registry.Register(tool.NewFunctionTool("boom", "Always fails", nil,
		func(ctx context.Context, args []any) (any, error) { return nil, errors.New("kaboom") }))
	ev := New(registry)

	_, err := ev.Evaluate(context.Background(), mustParse(t, `(par (ok) (boom) (ok))`), NewEnv())

	var failure *ParallelFailure
	require.ErrorAs(t, err, &failure)
	require.Len(t, failure.Branches, 1)
	assert.Equal(t, 1, failure.Branches[0].Index)
	assert.Equal(t, []int{0, 2}, failure.Completed)

	// Successful siblings ran to completion despite the failure.
	assert.Equal(t, int32(2), atomic.LoadInt32(&completed))
	assert.Contains(t, failure.Error(), "branch 1")
}

func TestParBranchEnvIsolation(t *testing.T) {
	ev, _ := newTestEvaluator(t)

	// Each branch binds the same name locally; no race, no cross-talk, and
	// the binding stays invisible outside the par.
	env := NewEnv()
	v, err := ev.Evaluate(context.Background(), mustParse(t,
		`(par (let ((x "a")) x) (let ((x "b")) x) (let ((x "c")) x))`), env)
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b", "c"}, v)

	_, err = env.Lookup("x")
	assert.Error(t, err)
}

func TestIfTruthinessAndBranchTrace(t *testing.T) {
	ev, recorder := newTestEvaluator(t)

	v, err := ev.Evaluate(context.Background(), mustParse(t, `(if (calc "0") "yes" "no")`), NewEnv())
	require.NoError(t, err)
	assert.Equal(t, "no", v)

	// Only the taken branch produced trace events.
	var sawYes, sawNo bool
	for _, e := range recorder.Events() {
		if e.Expr == `"yes"` {
			sawYes = true
		}
		if e.Expr == `"no"` {
			sawNo = true
		}
	}
	assert.False(t, sawYes)
	assert.True(t, sawNo)
}

func TestIfWithoutElse(t *testing.T) {
	ev, _ := newTestEvaluator(t)
	v, err := ev.Evaluate(context.Background(), mustParse(t, `(if (calc "0") "yes")`), NewEnv())
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestIfArity(t *testing.T) {
	ev, _ := newTestEvaluator(t)
	_, err := ev.Evaluate(context.Background(), mustParse(t, `(if (calc "1"))`), NewEnv())
	var formErr *FormError
	require.ErrorAs(t, err, &formErr)
	assert.Equal(t, FormIf, formErr.Form)
}

func TestLetScoping(t *testing.T) {
	ev, _ := newTestEvaluator(t)
	env := NewEnv()

	v, err := ev.Evaluate(context.Background(), mustParse(t,
		`(let ((x (calc "2+3"))) (concat "x=" x))`), env)
	require.NoError(t, err)
	assert.Equal(t, "x=5", v)

	// x is not visible outside the let body.
	_, err = ev.Evaluate(context.Background(), mustParse(t, `x`), env)
	var unbound *UnboundVariableError
	require.ErrorAs(t, err, &unbound)
	assert.Equal(t, "x", unbound.Name)
}

func TestLetBindingsAreNotRecursive(t *testing.T) {
	ev, _ := newTestEvaluator(t)
	env := NewEnv()
	env.Bind("x", "outer")

	// The second binding expression sees the enclosing x, not the first binding.
	v, err := ev.Evaluate(context.Background(), mustParse(t,
		`(let ((x "inner") (y x)) (concat x "/" y))`), env)
	require.NoError(t, err)
	assert.Equal(t, "inner/outer", v)
}

func TestLetMalformed(t *testing.T) {
	ev, _ := newTestEvaluator(t)

	tests := []string{
		`(let ((1 "v")) "body")`,       // name is not a symbol
		`(let ((x)) "body")`,           // pair too short
		`(let "nope" "body")`,          // binding list is not a list
		`(let ((x "v")))`,              // missing body
		`(let ((x "v" extra)) "body")`, // pair too long
	}
	for _, program := range tests {
		t.Run(program, func(t *testing.T) {
			_, err := ev.Evaluate(context.Background(), mustParse(t, program), NewEnv())
			var bindErr *BindingError
			require.ErrorAs(t, err, &bindErr)
		})
	}
}

func TestUnknownOperator(t *testing.T) {
	ev, _ := newTestEvaluator(t)
	_, err := ev.Evaluate(context.Background(), mustParse(t, `(frobnicate "x")`), NewEnv())

	var unknown *UnknownOperatorError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "frobnicate", unknown.Name)
}

func TestToolArgumentsEvaluatedLeftToRight(t *testing.T) {
	registry := tool.NewRegistry(nil)
	var seen []string
	registry.Register(tool.NewFunctionTool("mark", "Record the argument",
		[]tool.Param{{Name: "v", Type: "string", Required: true}},
		func(ctx context.Context, args []any) (any, error) {
			seen = append(seen, args[0].(string))
			return args[0], nil
		}))
	registry.Register(tool.NewConcatTool())
	ev := New(registry)

	v, err := ev.Evaluate(context.Background(), mustParse(t, `(concat (mark "a") (mark "b") (mark "c"))`), NewEnv())
	require.NoError(t, err)
	assert.Equal(t, "abc", v)
	assert.Equal(t, []string{"a", "b", "c"}, seen)
}

func TestToolFailureWrapped(t *testing.T) {
	ev, _ := newTestEvaluator(t)
	_, err := ev.Evaluate(context.Background(), mustParse(t, `(calc "1/0")`), NewEnv())

	var toolErr *ToolExecutionError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, "calc", toolErr.Name)

	var cause *tool.ToolError
	require.ErrorAs(t, toolErr.Err, &cause)
	assert.Equal(t, "CALC_ERROR", cause.Code)
}

func TestDepthBound(t *testing.T) {
	registry := tool.NewRegistry(nil)
	tool.RegisterBuiltins(registry, io.Discard)
	ev := New(registry, func(o *Options) { o.MaxDepth = 8 })

	deep := strings.Repeat(`(seq `, 20) + `"x"` + strings.Repeat(`)`, 20)
	_, err := ev.Evaluate(context.Background(), mustParse(t, deep), NewEnv())

	var depthErr *DepthExceededError
	require.ErrorAs(t, err, &depthErr)
	assert.Equal(t, 8, depthErr.MaxDepth)
}

func TestEmptyListEvaluatesToNil(t *testing.T) {
	ev, _ := newTestEvaluator(t)
	v, err := ev.Evaluate(context.Background(), mustParse(t, `()`), NewEnv())
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestTraceLifecyclePerNode(t *testing.T) {
	ev, recorder := newTestEvaluator(t)

	_, err := ev.Evaluate(context.Background(), mustParse(t, `(seq (calc "1+1"))`), NewEnv())
	require.NoError(t, err)

	events := recorder.Events()
	// Two nodes evaluated: seq and the calc call -> three events each.
	assert.Equal(t, 6, len(events))

	// The root completes only after its child completed.
	var childCompletedIdx, rootCompletedIdx int
	for i, e := range events {
		if e.Status == trace.StatusCompleted {
			if e.Op == "calc" {
				childCompletedIdx = i
			}
			if e.Op == "seq" {
				rootCompletedIdx = i
			}
		}
	}
	assert.Less(t, childCompletedIdx, rootCompletedIdx)

	// Child events point at the root via ParentID.
	var rootID string
	for _, e := range events {
		if e.Op == "seq" && e.Status == trace.StatusPending {
			rootID = e.ID
		}
	}
	require.NotEmpty(t, rootID)
	for _, e := range events {
		if e.Op == "calc" {
			assert.Equal(t, rootID, e.ParentID)
		}
	}
}

func TestTraceErrorStatus(t *testing.T) {
	ev, recorder := newTestEvaluator(t)

	_, err := ev.Evaluate(context.Background(), mustParse(t, `(calc "1/0")`), NewEnv())
	require.Error(t, err)

	errored := recorder.ByStatus(trace.StatusError)
	require.NotEmpty(t, errored)
	assert.Contains(t, errored[0].Err, "division by zero")
	assert.False(t, errored[0].EndedAt.IsZero())
}

func TestContextCancellationPropagates(t *testing.T) {
	ev, _ := newTestEvaluator(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ev.Evaluate(ctx, mustParse(t, `(notify "never")`), NewEnv())
	require.ErrorIs(t, err, context.Canceled)
}
