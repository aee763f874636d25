package workflow

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/aretw0/compass/pkg/domain"
)

// End is the pseudo-node that terminates a turn.
const End = "__end__"

// DefaultStepLimit bounds the number of node executions in one turn.
const DefaultStepLimit = 15

var (
	// ErrStepLimit is returned when a turn exceeds the step ceiling.
	ErrStepLimit = errors.New("workflow: step limit exceeded")
	// ErrUnknownNode is returned when an edge or route targets a missing node.
	ErrUnknownNode = errors.New("workflow: unknown node")
	// ErrNoEntryPoint is returned by Compile when SetEntryPoint was never called.
	ErrNoEntryPoint = errors.New("workflow: entry point not set")
)

// NodeFunc processes the current state and returns the fields it changed.
// The state must be treated as read-only.
type NodeFunc func(ctx context.Context, s *domain.SessionState) (domain.Update, error)

// RouterFunc picks the next route key from the state. It must be pure.
type RouterFunc func(s *domain.SessionState) string

type branch struct {
	route   RouterFunc
	targets map[string]string
}

// Builder assembles a Graph. Errors are collected and reported by Compile.
type Builder struct {
	nodes    map[string]NodeFunc
	order    []string
	edges    map[string]string
	branches map[string]branch
	entry    string
	errs     []error
}

// NewBuilder creates an empty Builder.
func NewBuilder() *Builder {
	return &Builder{
		nodes:    make(map[string]NodeFunc),
		edges:    make(map[string]string),
		branches: make(map[string]branch),
	}
}

// AddNode registers a node under name.
func (b *Builder) AddNode(name string, fn NodeFunc) *Builder {
	switch {
	case name == "" || name == End:
		b.errs = append(b.errs, fmt.Errorf("workflow: invalid node name %q", name))
	case fn == nil:
		b.errs = append(b.errs, fmt.Errorf("workflow: node %q has no function", name))
	default:
		if _, dup := b.nodes[name]; dup {
			b.errs = append(b.errs, fmt.Errorf("workflow: duplicate node %q", name))
			return b
		}
		b.nodes[name] = fn
		b.order = append(b.order, name)
	}
	return b
}

// AddEdge adds an unconditional transition.
func (b *Builder) AddEdge(from, to string) *Builder {
	if _, ok := b.branches[from]; ok {
		b.errs = append(b.errs, fmt.Errorf("workflow: node %q already has conditional edges", from))
		return b
	}
	b.edges[from] = to
	return b
}

// AddConditionalEdges routes from a node through route. targets maps route
// keys to node names; when targets is nil the key is used as the node name.
func (b *Builder) AddConditionalEdges(from string, route RouterFunc, targets map[string]string) *Builder {
	if _, ok := b.edges[from]; ok {
		b.errs = append(b.errs, fmt.Errorf("workflow: node %q already has an edge", from))
		return b
	}
	if route == nil {
		b.errs = append(b.errs, fmt.Errorf("workflow: node %q has a nil router", from))
		return b
	}
	b.branches[from] = branch{route: route, targets: targets}
	return b
}

// SetEntryPoint sets the node every turn starts at.
func (b *Builder) SetEntryPoint(name string) *Builder {
	b.entry = name
	return b
}

// Compile validates the graph and returns an immutable Graph.
func (b *Builder) Compile(opts ...Option) (*Graph, error) {
	errs := append([]error(nil), b.errs...)

	if b.entry == "" {
		errs = append(errs, ErrNoEntryPoint)
	} else if _, ok := b.nodes[b.entry]; !ok {
		errs = append(errs, fmt.Errorf("%w: entry %q", ErrUnknownNode, b.entry))
	}

	known := func(name string) bool {
		_, ok := b.nodes[name]
		return ok || name == End
	}
	for from, to := range b.edges {
		if _, ok := b.nodes[from]; !ok {
			errs = append(errs, fmt.Errorf("%w: edge from %q", ErrUnknownNode, from))
		}
		if !known(to) {
			errs = append(errs, fmt.Errorf("%w: edge %q -> %q", ErrUnknownNode, from, to))
		}
	}
	for from, br := range b.branches {
		if _, ok := b.nodes[from]; !ok {
			errs = append(errs, fmt.Errorf("%w: conditional edges from %q", ErrUnknownNode, from))
		}
		for key, to := range br.targets {
			if !known(to) {
				errs = append(errs, fmt.Errorf("%w: route %q from %q -> %q", ErrUnknownNode, key, from, to))
			}
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	g := &Graph{
		nodes:     make(map[string]NodeFunc, len(b.nodes)),
		order:     append([]string(nil), b.order...),
		edges:     make(map[string]string, len(b.edges)),
		branches:  make(map[string]branch, len(b.branches)),
		entry:     b.entry,
		stepLimit: DefaultStepLimit,
	}
	for k, v := range b.nodes {
		g.nodes[k] = v
	}
	for k, v := range b.edges {
		g.edges[k] = v
	}
	for k, v := range b.branches {
		targets := make(map[string]string, len(v.targets))
		for key, to := range v.targets {
			targets[key] = to
		}
		if v.targets == nil {
			targets = nil
		}
		g.branches[k] = branch{route: v.route, targets: targets}
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.tracer == nil {
		g.tracer = defaultTracer()
	}
	return g, nil
}

// Nodes returns node names in registration order.
func (g *Graph) Nodes() []string {
	return append([]string(nil), g.order...)
}

// Entry returns the entry node.
func (g *Graph) Entry() string {
	return g.entry
}

// Edge is a transition as reported by Edges.
type Edge struct {
	From, To string
	// Label is the route key for conditional edges.
	Label       string
	Conditional bool
}

// Edges returns every declared transition, sorted for stable output.
func (g *Graph) Edges() []Edge {
	var out []Edge
	for from, to := range g.edges {
		out = append(out, Edge{From: from, To: to})
	}
	for from, br := range g.branches {
		for key, to := range br.targets {
			out = append(out, Edge{From: from, To: to, Label: key, Conditional: true})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].From != out[j].From {
			return out[i].From < out[j].From
		}
		if out[i].To != out[j].To {
			return out[i].To < out[j].To
		}
		return out[i].Label < out[j].Label
	})
	return out
}

// next resolves the node following from.
func (g *Graph) next(from string, s *domain.SessionState) (string, error) {
	if br, ok := g.branches[from]; ok {
		key := br.route(s)
		if br.targets == nil {
			if _, ok := g.nodes[key]; ok || key == End {
				return key, nil
			}
			return "", fmt.Errorf("%w: route %q from %q", ErrUnknownNode, key, from)
		}
		to, ok := br.targets[key]
		if !ok {
			return "", fmt.Errorf("%w: route %q from %q", ErrUnknownNode, key, from)
		}
		return to, nil
	}
	if to, ok := g.edges[from]; ok {
		return to, nil
	}
	return End, nil
}
