package llm

import (
	"github.com/aretw0/compass/pkg/domain"
	"github.com/aretw0/compass/pkg/ports"
	"github.com/tmc/langchaingo/llms"
)

// toMessages converts a prompt to langchaingo messages, system first.
func toMessages(p ports.Prompt) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(p.Messages)+1)
	if p.System != "" {
		out = append(out, llms.TextParts(llms.ChatMessageTypeSystem, p.System))
	}
	for _, m := range p.Messages {
		role := llms.ChatMessageTypeHuman
		if m.Role == domain.RoleAssistant {
			role = llms.ChatMessageTypeAI
		}
		out = append(out, llms.TextParts(role, m.Content))
	}
	return out
}

// toExchangeMessages renders one tool round: the AI message carrying the
// calls, then one tool message per result.
func toExchangeMessages(ex ports.ToolExchange) []llms.MessageContent {
	calls := make([]llms.ContentPart, 0, len(ex.Calls))
	for _, c := range ex.Calls {
		calls = append(calls, llms.ToolCall{
			ID:   c.ID,
			Type: "function",
			FunctionCall: &llms.FunctionCall{
				Name:      c.Name,
				Arguments: c.Arguments,
			},
		})
	}
	out := []llms.MessageContent{{Role: llms.ChatMessageTypeAI, Parts: calls}}
	for _, r := range ex.Results {
		out = append(out, llms.MessageContent{
			Role: llms.ChatMessageTypeTool,
			Parts: []llms.ContentPart{llms.ToolCallResponse{
				ToolCallID: r.ID,
				Name:       r.Name,
				Content:    r.Content,
			}},
		})
	}
	return out
}

func toTools(tools []domain.Tool) []llms.Tool {
	out := make([]llms.Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	return out
}
