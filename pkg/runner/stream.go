package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aretw0/compass/internal/logging"
	"github.com/aretw0/compass/pkg/domain"
	"github.com/aretw0/compass/pkg/workflow"
	"github.com/google/uuid"
)

// MsgTurnFailed is streamed when a turn fails with an error.
const MsgTurnFailed = "Sorry, something went wrong while handling your message. Please try again."

// DefaultTokenNodes are the nodes whose output is forwarded token by token.
var DefaultTokenNodes = []string{"chat", "report_itinerary"}

// Turner runs one conversation turn.
type Turner interface {
	Chat(ctx context.Context, userID, planID, message string, emit workflow.EmitFunc) (*domain.SessionState, error)
}

// StreamObserver is notified when streams start and finish.
type StreamObserver interface {
	StreamStarted()
	StreamFinished(err error)
}

// ChatRequest is the inbound body of a streaming chat turn.
type ChatRequest struct {
	UserID  string `json:"user_id"`
	PlanID  string `json:"plan_id"`
	Message string `json:"message"`
}

// ErrInvalidRequest wraps validation failures of a ChatRequest.
var ErrInvalidRequest = errors.New("invalid chat request")

// Runner streams turns of a Turner.
type Runner struct {
	turner     Turner
	tokenNodes map[string]bool
	maxInput   int
	observer   StreamObserver
	logger     *slog.Logger
}

// Option configures the Runner.
type Option func(*Runner)

// WithLogger configures a logger for the Runner.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithMaxInputSize sets the message size limit in bytes.
func WithMaxInputSize(n int) Option {
	return func(r *Runner) {
		r.maxInput = n
	}
}

// WithTokenNodes overrides which nodes stream tokens.
func WithTokenNodes(nodes ...string) Option {
	return func(r *Runner) {
		r.tokenNodes = make(map[string]bool, len(nodes))
		for _, n := range nodes {
			r.tokenNodes[n] = true
		}
	}
}

// WithObserver registers a stream observer.
func WithObserver(o StreamObserver) Option {
	return func(r *Runner) {
		r.observer = o
	}
}

// New creates a Runner.
func New(t Turner, opts ...Option) *Runner {
	r := &Runner{
		turner: t,
		logger: logging.NewNop(),
	}
	WithTokenNodes(DefaultTokenNodes...)(r)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Prepare validates and sanitizes a request. Errors wrap ErrInvalidRequest.
func (r *Runner) Prepare(req ChatRequest) (ChatRequest, error) {
	return PrepareRequest(req, r.maxInput)
}

// PrepareRequest trims the ids, requires both, and sanitizes the message
// with the given size limit (<= 0 uses the default).
func PrepareRequest(req ChatRequest, maxInput int) (ChatRequest, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	req.PlanID = strings.TrimSpace(req.PlanID)
	if req.UserID == "" || req.PlanID == "" {
		return req, fmt.Errorf("%w: user_id and plan_id are required", ErrInvalidRequest)
	}
	if strings.Contains(req.UserID, "@") {
		return req, fmt.Errorf("%w: user_id must not contain '@'", ErrInvalidRequest)
	}
	msg, err := Sanitize(req.Message, maxInput)
	if err != nil {
		return req, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	req.Message = msg
	return req, nil
}

type streamState struct {
	tokens map[string]bool
}

// Stream runs one turn and writes its events to w. The request must have
// been through Prepare. The turn runs on a context detached from ctx: when
// ctx is done, forwarding stops and the turn completes in the background.
func (r *Runner) Stream(ctx context.Context, req ChatRequest, w EventWriter) error {
	streamID := uuid.NewString()
	logger := r.logger.With("stream_id", streamID, "user_id", req.UserID, "plan_id", req.PlanID)

	if r.observer != nil {
		r.observer.StreamStarted()
	}
	var streamErr error
	defer func() {
		if r.observer != nil {
			r.observer.StreamFinished(streamErr)
		}
	}()

	if err := w.WriteEvent(StatusEvent{Status: "thinking"}); err != nil {
		streamErr = err
		return err
	}

	events := make(chan any, 64)
	stopped := make(chan struct{})
	turnDone := make(chan error, 1)

	send := func(payload any) {
		select {
		case events <- payload:
		case <-stopped:
		}
	}

	go func() {
		st := &streamState{tokens: make(map[string]bool)}
		_, err := r.turner.Chat(context.WithoutCancel(ctx), req.UserID, req.PlanID, req.Message, func(e workflow.Event) {
			if payload, ok := r.translate(st, e); ok {
				send(payload)
			}
		})
		if err != nil {
			logger.Error("turn failed", "err", err)
			send(TokenEvent{Message: aiMessage(MsgTurnFailed)})
		}
		close(events)
		turnDone <- err
	}()

	for {
		select {
		case <-ctx.Done():
			close(stopped)
			logger.Info("client disconnected, turn continues in background")
			return nil
		case payload, ok := <-events:
			if !ok {
				<-turnDone
				if err := w.WriteDone(); err != nil {
					streamErr = err
					return err
				}
				return nil
			}
			if err := w.WriteEvent(payload); err != nil {
				close(stopped)
				streamErr = err
				logger.Warn("write failed, stopping stream", "err", err)
				return err
			}
		}
	}
}

// translate maps a workflow event to a stream payload.
func (r *Runner) translate(st *streamState, e workflow.Event) (any, bool) {
	if r.tokenNodes[e.Node] {
		switch e.Kind {
		case workflow.EventToken:
			if e.Token == "" {
				return nil, false
			}
			st.tokens[e.Node] = true
			return TokenEvent{Message: aiMessage(e.Token)}, true
		case workflow.EventUpdate:
			// A streaming node that produced no tokens (fallback message)
			// still has to reach the client.
			if st.tokens[e.Node] {
				delete(st.tokens, e.Node)
				return nil, false
			}
			if m, ok := e.Update.LastAssistantMessage(); ok {
				return TokenEvent{Message: aiMessage(m.Content)}, true
			}
			return nil, false
		}
	}

	if e.Kind != workflow.EventUpdate {
		return nil, false
	}
	ev := NodeEvent{Node: e.Node, Message: ""}
	if m, ok := e.Update.LastAssistantMessage(); ok {
		ev.Message = aiMessage(m.Content)
	}
	if e.Update.Planning != nil {
		ev.Itinerary = e.Itinerary
	}
	return ev, true
}
