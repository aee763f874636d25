// Package agent runs a bounded function-calling loop over a tool-capable
// text generator and turns its final answer into a revised itinerary.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/compass/internal/jsonx"
	"github.com/aretw0/compass/internal/logging"
	"github.com/aretw0/compass/pkg/domain"
	"github.com/aretw0/compass/pkg/ports"
	"github.com/aretw0/compass/pkg/registry"
)

// DefaultMaxRounds bounds the number of tool rounds in one run.
const DefaultMaxRounds = 5

// ErrMaxRounds is returned when the model keeps calling tools past the limit.
var ErrMaxRounds = errors.New("agent: tool round limit reached")

// Agent drives ports.ToolCallingGenerator until it answers without tool calls.
type Agent struct {
	gen       ports.ToolCallingGenerator
	hotels    ports.HotelSearcher
	maxRounds int
	node      string
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
}

// Option configures the Agent.
type Option func(*Agent)

// WithHotelSearcher binds the search_accommodations tool.
func WithHotelSearcher(s ports.HotelSearcher) Option {
	return func(a *Agent) {
		a.hotels = s
	}
}

// WithMaxRounds sets the tool round limit.
func WithMaxRounds(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxRounds = n
		}
	}
}

// WithNode sets the node name reported in tool events.
func WithNode(name string) Option {
	return func(a *Agent) {
		a.node = name
	}
}

// WithHooks registers tool lifecycle callbacks.
func WithHooks(h domain.LifecycleHooks) Option {
	return func(a *Agent) {
		a.hooks = h
	}
}

// WithLogger configures a logger for the Agent.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		a.logger = logger
	}
}

// New creates an Agent.
func New(gen ports.ToolCallingGenerator, opts ...Option) *Agent {
	a := &Agent{
		gen:       gen,
		maxRounds: DefaultMaxRounds,
		node:      "agent",
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run executes the loop and returns the final text answer.
func (a *Agent) Run(ctx context.Context, p ports.Prompt, reg *registry.Registry) (string, error) {
	var tools []domain.Tool
	if reg != nil {
		tools = reg.Tools()
	}

	var exchanges []ports.ToolExchange
	for round := 0; round <= a.maxRounds; round++ {
		step, err := a.gen.GenerateWithTools(ctx, p, tools, exchanges)
		if err != nil {
			return "", err
		}
		if len(step.Calls) == 0 {
			return step.Content, nil
		}
		if round == a.maxRounds {
			break
		}

		ex := ports.ToolExchange{Calls: step.Calls}
		for _, call := range step.Calls {
			ex.Results = append(ex.Results, a.execute(ctx, reg, call))
		}
		exchanges = append(exchanges, ex)
	}
	return "", fmt.Errorf("%w (%d)", ErrMaxRounds, a.maxRounds)
}

// Revise runs the loop with the itinerary tools bound to it and decodes the
// answer. Every failure is reported through the returned Outcome.
func (a *Agent) Revise(ctx context.Context, p ports.Prompt, current *domain.Itinerary) domain.Outcome {
	reg := registry.NewRegistry()
	if a.hotels != nil {
		reg.Register(HotelToolSpec, hotelTool(a.hotels, current))
	}

	answer, err := a.Run(ctx, p, reg)
	switch {
	case errors.Is(err, ErrMaxRounds):
		return domain.Failed(domain.KindTool, err)
	case err != nil:
		return domain.Failed(domain.KindGeneration, err)
	}

	var revised domain.Itinerary
	if err := jsonx.Decode(answer, &revised); err != nil {
		return domain.Failed(domain.KindParse, err)
	}
	if err := revised.Validate(); err != nil {
		return domain.Failed(domain.KindParse, err)
	}
	revised.Normalize()
	return domain.Revised(&revised)
}

func (a *Agent) execute(ctx context.Context, reg *registry.Registry, call domain.ToolCall) domain.ToolResult {
	res := domain.ToolResult{ID: call.ID, Name: call.Name}

	args := map[string]any{}
	if call.Arguments != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			res.Content = fmt.Sprintf("invalid arguments: %v", err)
			res.IsError = true
			return res
		}
	}

	a.fire(ctx, a.hooks.OnToolCall, domain.EventToolCall, call.Name, args, nil, false)

	var (
		out any
		err error
	)
	if reg == nil {
		err = fmt.Errorf("%w: %s", registry.ErrToolNotFound, call.Name)
	} else {
		out, err = reg.Execute(ctx, call.Name, args)
	}

	if err != nil {
		a.logger.Warn("tool failed", "tool", call.Name, "err", err)
		res.Content = err.Error()
		res.IsError = true
	} else {
		b, merr := json.Marshal(out)
		if merr != nil {
			res.Content = merr.Error()
			res.IsError = true
		} else {
			res.Content = string(b)
		}
	}

	a.fire(ctx, a.hooks.OnToolReturn, domain.EventToolReturn, call.Name, args, res.Content, res.IsError)
	return res
}

func (a *Agent) fire(ctx context.Context, hook func(context.Context, *domain.ToolEvent), typ domain.EventType, tool string, in, out any, isErr bool) {
	if hook == nil {
		return
	}
	hook(ctx, &domain.ToolEvent{
		EventBase: domain.EventBase{
			Timestamp: time.Now(),
			Type:      typ,
			SessionID: domain.SessionIDFrom(ctx),
		},
		Node:     a.node,
		ToolName: tool,
		Input:    in,
		Output:   out,
		IsError:  isErr,
	})
}
