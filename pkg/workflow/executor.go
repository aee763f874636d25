package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/compass/internal/logging"
	"github.com/aretw0/compass/pkg/domain"
	"github.com/aretw0/compass/pkg/ports"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/aretw0/compass/pkg/workflow"

func defaultTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// Graph is a compiled workflow. It holds no per-session state.
type Graph struct {
	nodes    map[string]NodeFunc
	order    []string
	edges    map[string]string
	branches map[string]branch
	entry    string

	stepLimit int
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	tracer    trace.Tracer
}

// Option configures a Graph at compile time.
type Option func(*Graph)

// WithStepLimit sets the maximum number of node executions per turn.
func WithStepLimit(n int) Option {
	return func(g *Graph) {
		if n > 0 {
			g.stepLimit = n
		}
	}
}

// WithHooks registers node lifecycle callbacks.
func WithHooks(h domain.LifecycleHooks) Option {
	return func(g *Graph) {
		g.hooks = h
	}
}

// WithLogger configures a logger for the Graph.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Graph) {
		g.logger = logger
	}
}

// WithTracer overrides the OpenTelemetry tracer used for node spans.
func WithTracer(t trace.Tracer) Option {
	return func(g *Graph) {
		g.tracer = t
	}
}

// EventKind distinguishes streamed token chunks from node updates.
type EventKind int

const (
	// EventToken carries a chunk of model output produced inside a node.
	EventToken EventKind = iota
	// EventUpdate is emitted after a node's update has been merged.
	EventUpdate
)

// Event is one item of the ordered stream produced by a turn.
type Event struct {
	Kind  EventKind
	Node  string
	Token string

	// Update is the partial update returned by the node.
	Update domain.Update
	// Itinerary is the current itinerary after the merge, when the node
	// changed planning.
	Itinerary *domain.Itinerary
}

// EmitFunc receives events in order. It is called from the turn's goroutine.
type EmitFunc func(Event)

// StepFunc is called after every merged node update, typically to checkpoint.
type StepFunc func(ctx context.Context, s *domain.SessionState) error

// RunOptions tune a single Invoke call.
type RunOptions struct {
	Emit      EmitFunc
	AfterStep StepFunc
}

type tokenKey struct{}

// Tokens returns the sink nodes use to stream output. Outside a turn it
// discards everything.
func Tokens(ctx context.Context) ports.TokenFunc {
	if fn, ok := ctx.Value(tokenKey{}).(ports.TokenFunc); ok {
		return fn
	}
	return func(string) error { return nil }
}

// Invoke runs one turn on s, mutating it in place. s.Visited is reset and
// then lists the executed nodes.
func (g *Graph) Invoke(ctx context.Context, s *domain.SessionState, opts RunOptions) error {
	logger := g.logger
	if logger == nil {
		logger = logging.NewNop()
	}
	emit := opts.Emit
	if emit == nil {
		emit = func(Event) {}
	}

	ctx = domain.WithSessionID(ctx, s.SessionID)
	s.Visited = s.Visited[:0]
	current := g.entry

	for steps := 0; current != End; steps++ {
		if steps >= g.stepLimit {
			return fmt.Errorf("%w (%d steps, at %q)", ErrStepLimit, g.stepLimit, current)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		fn, ok := g.nodes[current]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownNode, current)
		}

		update, err := g.runNode(ctx, current, fn, s, emit)
		if err != nil {
			logger.Error("node failed", "session_id", s.SessionID, "node", current, "err", err)
			return fmt.Errorf("node %s: %w", current, err)
		}

		s.Apply(update)
		s.Visited = append(s.Visited, current)

		ev := Event{Kind: EventUpdate, Node: current, Update: update}
		if update.Planning != nil {
			ev.Itinerary = s.CurrentItinerary().Clone()
		}
		emit(ev)

		if opts.AfterStep != nil {
			if err := opts.AfterStep(ctx, s); err != nil {
				return fmt.Errorf("checkpoint after %s: %w", current, err)
			}
		}

		next, err := g.next(current, s)
		if err != nil {
			return err
		}
		logger.Debug("transition", "session_id", s.SessionID, "from", current, "to", next)
		current = next
	}
	return nil
}

func (g *Graph) runNode(ctx context.Context, name string, fn NodeFunc, s *domain.SessionState, emit EmitFunc) (domain.Update, error) {
	ctx, span := g.tracer.Start(ctx, "workflow.node."+name, trace.WithAttributes(
		attribute.String("compass.node", name),
		attribute.String("compass.session_id", s.SessionID),
	))
	defer span.End()

	ctx = context.WithValue(ctx, tokenKey{}, ports.TokenFunc(func(tok string) error {
		emit(Event{Kind: EventToken, Node: name, Token: tok})
		return nil
	}))

	g.emitNode(ctx, g.hooks.OnNodeEnter, domain.EventNodeEnter, s.SessionID, name, 0, nil)
	start := time.Now()

	update, err := fn(ctx, s)

	g.emitNode(ctx, g.hooks.OnNodeLeave, domain.EventNodeLeave, s.SessionID, name, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.Update{}, err
	}
	span.SetAttributes(attribute.Int("compass.messages_appended", len(update.Messages)))
	return update, nil
}

func (g *Graph) emitNode(ctx context.Context, hook func(context.Context, *domain.NodeEvent), typ domain.EventType, sessionID, node string, d time.Duration, err error) {
	if hook == nil {
		return
	}
	hook(ctx, &domain.NodeEvent{
		EventBase: domain.EventBase{
			Timestamp: time.Now(),
			Type:      typ,
			SessionID: sessionID,
		},
		Node:     node,
		Duration: d,
		Err:      err,
	})
}
