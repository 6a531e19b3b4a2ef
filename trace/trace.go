// Package trace defines the structured step events emitted by the evaluator
// and the sink contract used to deliver them. The core guarantees causal
// ordering of emission (a parent completes only after its children, sequential
// steps never overlap); storage and rendering stay pluggable behind Sink.
package trace

import (
	"time"

	"github.com/google/uuid"

	"github.com/hupe1980/planlang/logging"
)

// Status is the lifecycle state of one evaluated node.
type Status string

const (
	// StatusPending marks an event for a node that has been reached but not started.
	StatusPending Status = "pending"
	// StatusRunning marks a node whose evaluation is in progress.
	StatusRunning Status = "running"
	// StatusCompleted marks a node that produced a value.
	StatusCompleted Status = "completed"
	// StatusError marks a node whose evaluation failed.
	StatusError Status = "error"
)

// Event is one record in the evaluation trace. Events with the same ID
// describe successive lifecycle states of the same expression node; events
// form a tree isomorphic to the expression tree via ParentID.
//
// After emission an Event should be treated as immutable.
type Event struct {
	ID        string    `json:"id"`
	ParentID  string    `json:"parent_id,omitempty"`
	Op        string    `json:"op"`              // operator, tool name, or atom kind
	Expr      string    `json:"expr"`            // canonical rendering of the sub-expression
	Status    Status    `json:"status"`
	StartedAt time.Time `json:"started_at"`      // entry timestamp (UTC)
	EndedAt   time.Time `json:"ended_at"`        // zero until completed or error
	Value     any       `json:"value,omitempty"` // produced value on completion
	Err       string    `json:"error,omitempty"` // error detail on failure
}

// Duration returns the elapsed time between entry and exit, or zero while the
// node is still running.
func (e Event) Duration() time.Duration {
	if e.EndedAt.IsZero() {
		return 0
	}
	return e.EndedAt.Sub(e.StartedAt)
}

// NewID generates a unique identifier for trace correlation.
func NewID() string { return uuid.NewString() }

// NewEvent creates a pending event for the given operation and rendered
// expression, stamped with the current UTC time.
func NewEvent(parentID, op, expr string) Event {
	return Event{
		ID:        NewID(),
		ParentID:  parentID,
		Op:        op,
		Expr:      expr,
		Status:    StatusPending,
		StartedAt: time.Now().UTC(),
	}
}

// Running returns a copy of the event in the running state.
func (e Event) Running() Event {
	e.Status = StatusRunning
	return e
}

// Completed returns a copy of the event carrying the produced value and an
// exit timestamp.
func (e Event) Completed(value any) Event {
	e.Status = StatusCompleted
	e.Value = value
	e.EndedAt = time.Now().UTC()
	return e
}

// Failed returns a copy of the event carrying the error detail and an exit
// timestamp.
func (e Event) Failed(err error) Event {
	e.Status = StatusError
	if err != nil {
		e.Err = err.Error()
	}
	e.EndedAt = time.Now().UTC()
	return e
}

// Sink receives trace events in causal emission order. Implementations must
// be safe for concurrent use: parallel branches emit from their own
// goroutines.
type Sink interface {
	Emit(Event)
}

// Discard is a Sink that drops every event.
var Discard Sink = discard{}

type discard struct{}

func (discard) Emit(Event) {}

// MultiSink fans every event out to the wrapped sinks in order.
type MultiSink []Sink

// Emit delivers the event to each wrapped sink in registration order.
func (m MultiSink) Emit(ev Event) {
	for _, s := range m {
		s.Emit(ev)
	}
}

// LoggerSink maps trace events to structured log lines. Completed nodes log
// at debug, failures at warn; intermediate states are suppressed to keep
// output proportional to work done.
type LoggerSink struct {
	Logger logging.Logger
}

// Emit implements Sink.
func (s LoggerSink) Emit(ev Event) {
	if s.Logger == nil {
		return
	}
	switch ev.Status {
	case StatusCompleted:
		s.Logger.Debug("step completed", "op", ev.Op, "expr", ev.Expr, "duration_ms", ev.Duration().Milliseconds())
	case StatusError:
		s.Logger.Warn("step failed", "op", ev.Op, "expr", ev.Expr, "error", ev.Err)
	}
}
