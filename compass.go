package compass

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/compass/internal/logging"
	"github.com/aretw0/compass/pkg/adapters/memory"
	"github.com/aretw0/compass/pkg/agent"
	"github.com/aretw0/compass/pkg/domain"
	"github.com/aretw0/compass/pkg/nodes"
	"github.com/aretw0/compass/pkg/ports"
	"github.com/aretw0/compass/pkg/session"
	"github.com/aretw0/compass/pkg/workflow"
	"go.opentelemetry.io/otel/trace"
)

//go:embed VERSION
var version string

// Version returns the release version of the module.
func Version() string {
	return strings.TrimSpace(version)
}

// Assistant is the high-level entry point: a compiled travel-planning
// workflow bound to a checkpoint store. It is built once and shared.
type Assistant struct {
	workflow *workflow.Workflow
	logger   *slog.Logger
}

type config struct {
	store            ports.CheckpointStore
	locker           ports.DistributedLocker
	lockTTL          time.Duration
	hotels           ports.HotelSearcher
	hooks            domain.LifecycleHooks
	logger           *slog.Logger
	tracer           trace.Tracer
	stepLimit        int
	draftConcurrency int
	agentRounds      int
	clock            func() time.Time
}

// Option defines a functional option for configuring the Assistant.
type Option func(*config)

// WithStore sets the checkpoint store (default: in-memory).
func WithStore(s ports.CheckpointStore) Option {
	return func(c *config) {
		c.store = s
	}
}

// WithLocker enables distributed session locking.
func WithLocker(l ports.DistributedLocker, ttl time.Duration) Option {
	return func(c *config) {
		c.locker = l
		c.lockTTL = ttl
	}
}

// WithHotelSearcher binds the accommodation search tool of the modifier.
func WithHotelSearcher(h ports.HotelSearcher) Option {
	return func(c *config) {
		c.hotels = h
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(c *config) {
		c.hooks = hooks
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithTracer sets the OpenTelemetry tracer used for node spans.
func WithTracer(t trace.Tracer) Option {
	return func(c *config) {
		c.tracer = t
	}
}

// WithStepLimit bounds node executions per turn.
func WithStepLimit(n int) Option {
	return func(c *config) {
		c.stepLimit = n
	}
}

// WithDraftConcurrency bounds parallel draft calls.
func WithDraftConcurrency(n int) Option {
	return func(c *config) {
		c.draftConcurrency = n
	}
}

// WithAgentMaxRounds bounds tool rounds of the modifier agent.
func WithAgentMaxRounds(n int) Option {
	return func(c *config) {
		c.agentRounds = n
	}
}

// WithClock sets the clock used to resolve relative dates.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		c.clock = now
	}
}

// New builds the workflow around gen.
func New(gen ports.TextGenerator, opts ...Option) (*Assistant, error) {
	if gen == nil {
		return nil, fmt.Errorf("compass: text generator is required")
	}

	cfg := &config{
		stepLimit:        workflow.DefaultStepLimit,
		draftConcurrency: nodes.DefaultDraftConcurrency,
		agentRounds:      agent.DefaultMaxRounds,
		clock:            time.Now,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logging.NewNop()
	}
	if cfg.store == nil {
		cfg.store = memory.NewStore()
	}

	sessOpts := []session.Option{session.WithLogger(cfg.logger)}
	if cfg.locker != nil {
		sessOpts = append(sessOpts, session.WithLocker(cfg.locker))
		if cfg.lockTTL > 0 {
			sessOpts = append(sessOpts, session.WithLockTTL(cfg.lockTTL))
		}
	}
	manager := session.NewManager(cfg.store, sessOpts...)

	nodeOpts := []nodes.Option{
		nodes.WithDraftConcurrency(cfg.draftConcurrency),
		nodes.WithClock(cfg.clock),
		nodes.WithLogger(cfg.logger),
	}
	if tc, ok := gen.(ports.ToolCallingGenerator); ok {
		agentOpts := []agent.Option{
			agent.WithNode(nodes.ModifyPlan),
			agent.WithMaxRounds(cfg.agentRounds),
			agent.WithHooks(cfg.hooks),
			agent.WithLogger(cfg.logger),
		}
		if cfg.hotels != nil {
			agentOpts = append(agentOpts, agent.WithHotelSearcher(cfg.hotels))
		}
		nodeOpts = append(nodeOpts, nodes.WithReviser(agent.New(tc, agentOpts...)))
	}

	graphOpts := []workflow.Option{
		workflow.WithStepLimit(cfg.stepLimit),
		workflow.WithHooks(cfg.hooks),
		workflow.WithLogger(cfg.logger),
	}
	if cfg.tracer != nil {
		graphOpts = append(graphOpts, workflow.WithTracer(cfg.tracer))
	}
	graph, err := nodes.Build(nodes.New(gen, nodeOpts...), graphOpts...)
	if err != nil {
		return nil, fmt.Errorf("compass: build workflow: %w", err)
	}

	return &Assistant{
		workflow: workflow.NewWorkflow(graph, manager, cfg.logger),
		logger:   cfg.logger,
	}, nil
}

// Chat runs one turn for the conversation of userID about planID.
func (a *Assistant) Chat(ctx context.Context, userID, planID, message string, emit workflow.EmitFunc) (*domain.SessionState, error) {
	return a.Turn(ctx, session.ID(userID, planID), message, emit)
}

// Turn runs one turn for an explicit session id.
func (a *Assistant) Turn(ctx context.Context, sessionID, message string, emit workflow.EmitFunc) (*domain.SessionState, error) {
	return a.workflow.Turn(ctx, sessionID, message, emit)
}

// State returns the checkpointed state of a session.
func (a *Assistant) State(ctx context.Context, sessionID string) (*domain.SessionState, error) {
	return a.workflow.State(ctx, sessionID)
}

// Reset deletes a session.
func (a *Assistant) Reset(ctx context.Context, sessionID string) error {
	return a.workflow.Reset(ctx, sessionID)
}

// Sessions lists stored session ids.
func (a *Assistant) Sessions(ctx context.Context) ([]string, error) {
	return a.workflow.Sessions().List(ctx)
}

// Graph returns the compiled workflow graph.
func (a *Assistant) Graph() *workflow.Graph {
	return a.workflow.Graph()
}
