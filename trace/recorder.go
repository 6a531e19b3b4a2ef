package trace

import "sync"

// Recorder is a volatile Sink retaining events in emission order. It is safe
// for concurrent access and best suited for tests, examples and ephemeral
// inspection; durable trace storage belongs to the host application.
type Recorder struct {
	mu     sync.RWMutex
	events []Event
}

// NewRecorder constructs an empty in-memory recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Emit implements Sink.
func (r *Recorder) Emit(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of all recorded events in emission order.
func (r *Recorder) Events() []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// ByStatus returns recorded events matching the given status, preserving order.
func (r *Recorder) ByStatus(status Status) []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Event
	for _, ev := range r.events {
		if ev.Status == status {
			out = append(out, ev)
		}
	}
	return out
}

// ByOp returns recorded events for the given operation, preserving order.
func (r *Recorder) ByOp(op string) []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Event
	for _, ev := range r.events {
		if ev.Op == op {
			out = append(out, ev)
		}
	}
	return out
}

// Len returns the number of recorded events.
func (r *Recorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.events)
}

// Clear discards all recorded events.
func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
