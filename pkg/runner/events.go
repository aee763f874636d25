package runner

import "github.com/aretw0/compass/pkg/domain"

// Done is the terminal sentinel payload.
const Done = "[DONE]"

// AIMessage is the message shape used in events.
type AIMessage struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

func aiMessage(content string) AIMessage {
	return AIMessage{Type: "ai", Content: content}
}

// StatusEvent is the first event of every stream.
type StatusEvent struct {
	Status string `json:"status"`
}

// TokenEvent carries a chunk of a streamed reply.
type TokenEvent struct {
	Message AIMessage `json:"message"`
}

// NodeEvent is the structural update of a non-streaming node. Message is
// an AIMessage or the empty string.
type NodeEvent struct {
	Node      string            `json:"node"`
	Message   any               `json:"message"`
	Itinerary *domain.Itinerary `json:"itinerary"`
}

// EventWriter delivers events to a client.
type EventWriter interface {
	// WriteEvent sends one JSON payload.
	WriteEvent(payload any) error
	// WriteDone sends the terminal sentinel.
	WriteDone() error
}
