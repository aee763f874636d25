package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/compass/pkg/domain"
)

// LogHooks returns lifecycle hooks writing one structured line per event.
// Node entries and tool inputs go to debug; failures to warn.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_enter", "session_id", e.SessionID, "node", e.Node)
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			if e.Err != nil {
				logger.WarnContext(ctx, "node_leave",
					"session_id", e.SessionID, "node", e.Node, "duration", e.Duration, "err", e.Err)
				return
			}
			logger.InfoContext(ctx, "node_leave", "session_id", e.SessionID, "node", e.Node, "duration", e.Duration)
		},
		OnToolCall: func(ctx context.Context, e *domain.ToolEvent) {
			logger.DebugContext(ctx, "tool_call",
				"session_id", e.SessionID, "node", e.Node, "tool", e.ToolName, "input", e.Input)
		},
		OnToolReturn: func(ctx context.Context, e *domain.ToolEvent) {
			level := slog.LevelInfo
			if e.IsError {
				level = slog.LevelWarn
			}
			logger.Log(ctx, level, "tool_return",
				"session_id", e.SessionID, "node", e.Node, "tool", e.ToolName, "is_error", e.IsError)
		},
	}
}
