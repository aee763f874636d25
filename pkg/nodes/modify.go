package nodes

import (
	"context"

	"github.com/aretw0/compass/pkg/domain"
	"github.com/aretw0/compass/pkg/ports"
)

// ModifyPlan applies the latest user message to the current itinerary
// through the reviser. Without a plan it only explains that one is needed.
func (n *Set) ModifyPlan(ctx context.Context, s *domain.SessionState) (domain.Update, error) {
	current := s.CurrentItinerary()
	if current == nil {
		return domain.Say(MsgNoPlan), nil
	}

	var change string
	if m, ok := s.LastUserMessage(); ok {
		change = m.Content
	}

	system, err := render("modify", struct{ Itinerary *domain.Itinerary }{current})
	if err != nil {
		return domain.Update{}, err
	}

	outcome := n.reviser.Revise(ctx, ports.Prompt{
		Name:     "agent",
		System:   system,
		Messages: []domain.Message{domain.UserMessage(change)},
	}, current.Clone())

	if ctx.Err() != nil {
		return domain.Update{}, ctx.Err()
	}

	switch outcome.Kind {
	case domain.KindGeneration, domain.KindTool, domain.KindParse:
		n.logger.Error("modification failed", "session_id", s.SessionID, "kind", outcome.Kind, "err", outcome.Err)
		return domain.Say(MsgFinalizing, MsgModifyFailed), nil
	}
	if !outcome.OK() {
		n.logger.Error("modification returned no itinerary", "session_id", s.SessionID)
		return domain.Say(MsgFinalizing, MsgModifyFailed), nil
	}

	revised := outcome.Itinerary
	if revised.Travelers < 1 {
		revised.Travelers = current.Travelers
	}
	planning := s.Planning.Clone()
	planning.Current = revised

	n.logger.Info("itinerary modified", "session_id", s.SessionID, "days", len(revised.Days))
	return domain.Update{
		Planning: planning,
		Messages: []domain.Message{domain.AssistantMessage(MsgFinalizing)},
	}, nil
}
