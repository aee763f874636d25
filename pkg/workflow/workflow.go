package workflow

import (
	"context"
	"log/slog"

	"github.com/aretw0/compass/internal/logging"
	"github.com/aretw0/compass/pkg/domain"
	"github.com/aretw0/compass/pkg/session"
)

// Workflow runs turns of a Graph against checkpointed per-session state.
type Workflow struct {
	graph    *Graph
	sessions *session.Manager
	logger   *slog.Logger
}

// NewWorkflow binds a compiled graph to a session manager.
func NewWorkflow(g *Graph, sessions *session.Manager, logger *slog.Logger) *Workflow {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Workflow{graph: g, sessions: sessions, logger: logger}
}

// Graph returns the compiled graph.
func (w *Workflow) Graph() *Graph {
	return w.graph
}

// Sessions returns the session manager.
func (w *Workflow) Sessions() *session.Manager {
	return w.sessions
}

// Turn appends message as a user turn and runs the graph under the session
// lock. State is checkpointed after every node, so a failed turn keeps the
// progress made before the failure. The returned state is a copy.
func (w *Workflow) Turn(ctx context.Context, sessionID, message string, emit EmitFunc) (*domain.SessionState, error) {
	var out *domain.SessionState

	err := w.sessions.WithLock(ctx, sessionID, func(ctx context.Context) error {
		s, err := w.sessions.LoadOrStart(ctx, sessionID)
		if err != nil {
			return err
		}
		s.Apply(domain.Update{Messages: []domain.Message{domain.UserMessage(message)}})

		runErr := w.graph.Invoke(ctx, s, RunOptions{
			Emit:      emit,
			AfterStep: w.sessions.Checkpoint,
		})
		if runErr != nil {
			if err := w.sessions.Checkpoint(context.WithoutCancel(ctx), s); err != nil {
				w.logger.Error("checkpoint after failed turn", "session_id", sessionID, "err", err)
			}
			out = s.Clone()
			return runErr
		}

		out = s.Clone()
		return nil
	})
	return out, err
}

// State returns the checkpointed state of a session.
func (w *Workflow) State(ctx context.Context, sessionID string) (*domain.SessionState, error) {
	return w.sessions.Load(ctx, sessionID)
}

// Reset deletes the checkpoint of a session.
func (w *Workflow) Reset(ctx context.Context, sessionID string) error {
	return w.sessions.Delete(ctx, sessionID)
}
