package tool

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/planlang/logging"
)

// Registry maps capability names to tools. Registration is expected to
// happen at startup, before evaluation begins; lookups during evaluation are
// read-mostly and guarded by an RWMutex so concurrent branches dispatch
// without contention.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	logger logging.Logger
}

// NewRegistry constructs an empty registry. A nil logger defaults to no-op.
func NewRegistry(logger logging.Logger) *Registry {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Registry{tools: make(map[string]Tool), logger: logger}
}

// Register adds a tool under its name. Registering a duplicate name replaces
// the prior tool (last-write-wins); the collision is logged at warn level,
// never treated as fatal.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name()]; exists {
		r.logger.Warn("tool registration replaced existing entry", "tool", t.Name())
	}
	r.tools[t.Name()] = t
}

// Lookup returns the tool registered under name, if any.
func (r *Registry) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Invoke dispatches an already-evaluated argument list to the named tool.
// Fails with *UnknownToolError when the name is not registered; adapter
// failures propagate unchanged.
func (r *Registry) Invoke(ctx context.Context, name string, args []any) (any, error) {
	t, ok := r.Lookup(name)
	if !ok {
		return nil, &UnknownToolError{Name: name}
	}

	start := time.Now()
	result, err := t.Call(ctx, args)
	logging.LogToolCall(r.logger, name, time.Since(start), err)
	return result, err
}

// Names returns all registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Descriptors returns introspection snapshots for all registered tools,
// sorted by name. Plan generators use these to advertise capabilities.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	descs := make([]Descriptor, 0, len(r.tools))
	for _, t := range r.tools {
		descs = append(descs, Describe(t))
	}
	sort.Slice(descs, func(i, j int) bool { return descs[i].Name < descs[j].Name })
	return descs
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
