package nodes

import (
	"context"

	"github.com/aretw0/compass/pkg/domain"
	"github.com/aretw0/compass/pkg/ports"
	"github.com/aretw0/compass/pkg/workflow"
)

// Chat streams a free-form reply to the conversation.
func (n *Set) Chat(ctx context.Context, s *domain.SessionState) (domain.Update, error) {
	system, err := render("chat", nil)
	if err != nil {
		return domain.Update{}, err
	}

	reply, err := n.gen.Stream(ctx, ports.Prompt{
		Name:     "chat",
		System:   system,
		Messages: s.Messages,
	}, workflow.Tokens(ctx))
	if err != nil {
		if ctx.Err() != nil {
			return domain.Update{}, ctx.Err()
		}
		n.logger.Error("chat reply failed", "session_id", s.SessionID, "err", err)
		return domain.Say(MsgChatFailed), nil
	}
	return domain.Say(reply), nil
}
