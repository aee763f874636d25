package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventNodeEnter  EventType = "node_enter"
	EventNodeLeave  EventType = "node_leave"
	EventToolCall   EventType = "tool_call"
	EventToolReturn EventType = "tool_return"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// NodeEvent represents entry or exit from a workflow node.
type NodeEvent struct {
	EventBase
	Node     string        `json:"node"`
	Duration time.Duration `json:"duration,omitempty"` // set on leave
	Err      error         `json:"-"`
}

// ToolEvent represents a tool execution requested by the agent.
type ToolEvent struct {
	EventBase
	Node     string `json:"node"`
	ToolName string `json:"tool_name"`
	Input    any    `json:"input,omitempty"`
	Output   any    `json:"output,omitempty"`
	IsError  bool   `json:"is_error,omitempty"`
}

// LifecycleHooks defines callbacks for workflow observability.
type LifecycleHooks struct {
	OnNodeEnter  func(context.Context, *NodeEvent)
	OnNodeLeave  func(context.Context, *NodeEvent)
	OnToolCall   func(context.Context, *ToolEvent)
	OnToolReturn func(context.Context, *ToolEvent)
}

// ComposeHooks fans every callback out to each of the given hook sets, in order.
func ComposeHooks(all ...LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *NodeEvent) {
			for _, h := range all {
				if h.OnNodeEnter != nil {
					h.OnNodeEnter(ctx, e)
				}
			}
		},
		OnNodeLeave: func(ctx context.Context, e *NodeEvent) {
			for _, h := range all {
				if h.OnNodeLeave != nil {
					h.OnNodeLeave(ctx, e)
				}
			}
		},
		OnToolCall: func(ctx context.Context, e *ToolEvent) {
			for _, h := range all {
				if h.OnToolCall != nil {
					h.OnToolCall(ctx, e)
				}
			}
		},
		OnToolReturn: func(ctx context.Context, e *ToolEvent) {
			for _, h := range all {
				if h.OnToolReturn != nil {
					h.OnToolReturn(ctx, e)
				}
			}
		},
	}
}
