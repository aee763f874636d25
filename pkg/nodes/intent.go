package nodes

import (
	"context"

	"github.com/aretw0/compass/pkg/domain"
	"github.com/aretw0/compass/pkg/ports"
)

// Intent classifies the latest user message. A failed call yields chat and
// never aborts the turn.
func (n *Set) Intent(ctx context.Context, s *domain.SessionState) (domain.Update, error) {
	intent := domain.IntentChat

	system, err := render("intent", struct{ Intents []domain.Intent }{domain.Intents})
	if err != nil {
		return domain.Update{}, err
	}

	raw, err := n.gen.Generate(ctx, ports.Prompt{
		Name:        "intent",
		System:      system,
		Messages:    s.Messages,
		Temperature: temperature(0),
	})
	switch {
	case ctx.Err() != nil:
		return domain.Update{}, ctx.Err()
	case err != nil:
		n.logger.Warn("intent classification failed", "session_id", s.SessionID, "err", err)
	default:
		intent = domain.ParseIntent(raw)
	}

	n.logger.Info("intent classified", "session_id", s.SessionID, "intent", intent)
	return domain.Update{Intent: &intent}, nil
}
