// Package nodes implements the processing steps of the travel-planning
// workflow and the routing functions that connect them.
//
// Every node has the workflow.NodeFunc signature: it reads the session state
// and returns only the fields it changed. Failures inside a node degrade to
// an assistant message; nodes return an error only when the context is done.
package nodes

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/compass/internal/logging"
	"github.com/aretw0/compass/pkg/agent"
	"github.com/aretw0/compass/pkg/domain"
	"github.com/aretw0/compass/pkg/ports"
)

// Node names.
const (
	IntentRouter       = "intent_router"
	Chat               = "chat"
	CollectPreferences = "collect_preferences"
	GenerateItinerary  = "generate_itinerary"
	ModifyPlan         = "modify_plan"
	ReportItinerary    = "report_itinerary"
)

// Assistant messages appended by the nodes.
const (
	MsgPreferencesComplete = "Great, I have everything I need. Preparing your itinerary..."
	MsgDraftFailed         = "Sorry, I could not draft an itinerary right now. Please try again in a moment."
	MsgAdjusting           = "Adjusting accommodations for your itinerary..."
	MsgNoPlan              = "Sorry, I can't do that yet. Let's plan a trip first, then I can change it."
	MsgFinalizing          = "Almost done, finalizing your itinerary..."
	MsgModifyFailed        = "Sorry, I couldn't update the itinerary. Please try again."
	MsgReportFailed        = "Your itinerary is ready, but I couldn't write the summary. Please ask me to show it again."
	MsgChatFailed          = "Sorry, something went wrong on my side. Could you say that again?"
)

// DefaultThemes are drafted when the user gave no interests.
var DefaultThemes = []string{"food", "culture", "nature"}

// DefaultDraftConcurrency bounds parallel draft calls.
const DefaultDraftConcurrency = 4

// Reviser applies a change request to an itinerary.
type Reviser interface {
	Revise(ctx context.Context, p ports.Prompt, current *domain.Itinerary) domain.Outcome
}

// Set holds the dependencies shared by all nodes.
type Set struct {
	gen              ports.TextGenerator
	reviser          Reviser
	draftConcurrency int
	now              func() time.Time
	logger           *slog.Logger
}

// Option configures the Set.
type Option func(*Set)

// WithReviser overrides the itinerary reviser used by ModifyPlan.
func WithReviser(r Reviser) Option {
	return func(s *Set) {
		s.reviser = r
	}
}

// WithDraftConcurrency bounds parallel draft calls.
func WithDraftConcurrency(n int) Option {
	return func(s *Set) {
		if n > 0 {
			s.draftConcurrency = n
		}
	}
}

// WithClock sets the clock used to resolve relative dates.
func WithClock(now func() time.Time) Option {
	return func(s *Set) {
		s.now = now
	}
}

// WithLogger configures a logger for the nodes.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Set) {
		s.logger = logger
	}
}

// New creates the node set. Without WithReviser, a tool agent is used when
// gen supports tool calling and a plain structured call otherwise.
func New(gen ports.TextGenerator, opts ...Option) *Set {
	s := &Set{
		gen:              gen,
		draftConcurrency: DefaultDraftConcurrency,
		now:              time.Now,
		logger:           logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.reviser == nil {
		if tc, ok := gen.(ports.ToolCallingGenerator); ok {
			s.reviser = agent.New(tc, agent.WithNode(ModifyPlan), agent.WithLogger(s.logger))
		} else {
			s.reviser = structuredReviser{gen: gen}
		}
	}
	return s
}

// structuredReviser revises with a single structured call and no tools.
type structuredReviser struct {
	gen ports.TextGenerator
}

func (r structuredReviser) Revise(ctx context.Context, p ports.Prompt, current *domain.Itinerary) domain.Outcome {
	var revised domain.Itinerary
	if err := r.gen.GenerateStructured(ctx, p, &revised); err != nil {
		return domain.Failed(domain.KindGeneration, err)
	}
	if err := revised.Validate(); err != nil {
		return domain.Failed(domain.KindParse, err)
	}
	return domain.Revised(&revised)
}

func temperature(t float64) *float64 {
	return &t
}
