package llm

import (
	"strings"

	"github.com/aretw0/compass/pkg/domain"
	"github.com/aretw0/compass/pkg/ports"
)

// Offline returns a Scripted generator usable without a provider. It routes
// by keyword and answers chat turns with a fixed notice; every other prompt
// fails so nodes take their degraded paths.
func Offline() *Scripted {
	s := NewScripted()
	s.On("intent", func(p ports.Prompt) (string, error) {
		return string(keywordIntent(lastUser(p))), nil
	})
	offline := func(p ports.Prompt) (string, error) {
		return "I'm running without a language model right now, so I can only route your request. Configure an LLM provider to plan trips.", nil
	}
	s.On("chat", offline)
	s.On("agent", offline)
	return s
}

func keywordIntent(text string) domain.Intent {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "hotel"), strings.Contains(t, "accommodation"):
		return domain.IntentFindHotel
	case strings.Contains(t, "change"), strings.Contains(t, "modify"), strings.Contains(t, "instead"):
		return domain.IntentModifyPlan
	case strings.Contains(t, "trip"), strings.Contains(t, "travel"), strings.Contains(t, "plan"):
		return domain.IntentPlanTrip
	default:
		return domain.IntentChat
	}
}

func lastUser(p ports.Prompt) string {
	for i := len(p.Messages) - 1; i >= 0; i-- {
		if p.Messages[i].Role == domain.RoleUser {
			return p.Messages[i].Content
		}
	}
	return ""
}
