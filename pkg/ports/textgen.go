package ports

import (
	"context"

	"github.com/aretw0/compass/pkg/domain"
)

// Prompt is a structured request to a text-generation capability.
type Prompt struct {
	// Name identifies the calling step (e.g. "intent", "draft"). Adapters use it
	// for metrics and scripted fakes use it to pick a response.
	Name string

	// System holds the instructions.
	System string

	// Messages is the conversation passed to the model, oldest first.
	Messages []domain.Message

	// Temperature overrides the adapter default when non-nil.
	Temperature *float64
}

// TokenFunc receives streamed output chunks. Returning an error aborts the stream.
type TokenFunc func(token string) error

// TextGenerator is the text-generation port used by every node.
type TextGenerator interface {
	// Generate returns the complete text of one completion.
	Generate(ctx context.Context, p Prompt) (string, error)

	// Stream behaves like Generate and also reports chunks as they arrive.
	Stream(ctx context.Context, p Prompt, onToken TokenFunc) (string, error)

	// GenerateStructured decodes a JSON completion into target (a pointer).
	GenerateStructured(ctx context.Context, p Prompt, target any) error
}

// ToolExchange is one round of tool calls and their results.
type ToolExchange struct {
	Calls   []domain.ToolCall
	Results []domain.ToolResult
}

// AgentStep is a completion that either answers or asks for tool calls.
type AgentStep struct {
	Content string
	Calls   []domain.ToolCall
}

// ToolCallingGenerator extends TextGenerator with function calling.
type ToolCallingGenerator interface {
	TextGenerator

	// GenerateWithTools runs one completion offering tools. Previous rounds are
	// replayed from exchanges, in order.
	GenerateWithTools(ctx context.Context, p Prompt, tools []domain.Tool, exchanges []ToolExchange) (AgentStep, error)
}
