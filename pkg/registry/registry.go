package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/compass/pkg/domain"
)

// ErrToolNotFound is returned when executing a name that was never registered.
var ErrToolNotFound = errors.New("tool not found")

// ToolFunction defines the signature for a tool implementation.
// It receives a context and the decoded call arguments, and returns a result or error.
type ToolFunction func(ctx context.Context, args map[string]any) (any, error)

type entry struct {
	spec domain.Tool
	fn   ToolFunction
}

// Registry manages the tools offered to the model during one agent run.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]entry
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]entry),
	}
}

// Register adds a tool to the registry.
// If a tool with the same name exists, it is overwritten.
func (r *Registry) Register(spec domain.Tool, fn ToolFunction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[spec.Name] = entry{spec: spec, fn: fn}
}

// Tools returns the registered tool definitions sorted by name.
func (r *Registry) Tools() []domain.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Tool, 0, len(r.tools))
	for _, e := range r.tools {
		out = append(out, e.spec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Execute looks up a tool by name and executes it.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (any, error) {
	r.mu.RLock()
	e, ok := r.tools[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	return e.fn(ctx, args)
}
