package nodes

import (
	"context"

	"github.com/aretw0/compass/pkg/domain"
	"github.com/aretw0/compass/pkg/ports"
	"github.com/aretw0/compass/pkg/workflow"
)

// Report streams a natural-language summary of the current itinerary.
// Without a plan it changes nothing.
func (n *Set) Report(ctx context.Context, s *domain.SessionState) (domain.Update, error) {
	current := s.CurrentItinerary()
	if current == nil {
		return domain.Update{}, nil
	}

	system, err := render("report", struct {
		Intent    domain.Intent
		Itinerary *domain.Itinerary
	}{s.Intent, current})
	if err != nil {
		return domain.Update{}, err
	}

	text, err := n.gen.Stream(ctx, ports.Prompt{
		Name:     "report",
		System:   system,
		Messages: []domain.Message{domain.UserMessage("Summarize my itinerary.")},
	}, workflow.Tokens(ctx))
	if err != nil {
		if ctx.Err() != nil {
			return domain.Update{}, ctx.Err()
		}
		n.logger.Error("report failed", "session_id", s.SessionID, "err", err)
		return domain.Say(MsgReportFailed), nil
	}
	n.logger.Info("itinerary reported", "session_id", s.SessionID, "days", len(current.Days))
	return domain.Say(text), nil
}
