// Package mcp exposes the assistant as a Model Context Protocol server.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/compass/internal/logging"
	"github.com/aretw0/compass/pkg/domain"
	"github.com/aretw0/compass/pkg/runner"
	"github.com/aretw0/compass/pkg/session"
	"github.com/aretw0/compass/pkg/workflow"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// GraphURI is the resource holding the Mermaid source of the workflow.
const GraphURI = "compass://graph"

// Assistant is the subset of the assistant the MCP server drives.
type Assistant interface {
	Chat(ctx context.Context, userID, planID, message string, emit workflow.EmitFunc) (*domain.SessionState, error)
	State(ctx context.Context, sessionID string) (*domain.SessionState, error)
}

// PlanChatArgs are the arguments of the plan_chat tool.
type PlanChatArgs struct {
	UserID  string `json:"user_id"`
	PlanID  string `json:"plan_id"`
	Message string `json:"message"`
}

// ItineraryArgs are the arguments of the get_itinerary tool.
type ItineraryArgs struct {
	UserID string `json:"user_id"`
	PlanID string `json:"plan_id"`
}

// TurnResult is the structured output of plan_chat and get_itinerary.
type TurnResult struct {
	SessionID string            `json:"session_id" jsonschema_description:"Conversation key, user_id@plan_id"`
	Messages  []string          `json:"messages" jsonschema_description:"Assistant messages produced by this turn"`
	Intent    string            `json:"intent,omitempty" jsonschema_description:"Classified intent of the last user message"`
	Visited   []string          `json:"visited,omitempty" jsonschema_description:"Workflow nodes executed during the turn"`
	Itinerary *domain.Itinerary `json:"itinerary,omitempty" jsonschema_description:"Current itinerary, if one has been generated"`
}

// Server wraps the assistant and exposes it as an MCP server.
type Server struct {
	assistant Assistant
	graph     func() string
	maxInput  int
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMaxInputSize sets the message size limit in bytes.
func WithMaxInputSize(n int) Option {
	return func(s *Server) {
		s.maxInput = n
	}
}

// NewServer creates a new MCP server. graph renders the workflow for the
// compass://graph resource.
func NewServer(a Assistant, graph func() string, version string, opts ...Option) *Server {
	s := &Server{
		assistant: a,
		graph:     graph,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("compass-mcp", version,
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on port until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(fmt.Sprintf("http://localhost:%d", port)))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())
	httpServer := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	chatTool := mcp.NewTool("plan_chat",
		mcp.WithDescription("Send one message to the travel-planning assistant and get its replies and the current itinerary."),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("User identifier (must not contain '@')")),
		mcp.WithString("plan_id", mcp.Required(), mcp.Description("Plan identifier; one conversation per user and plan")),
		mcp.WithString("message", mcp.Required(), mcp.Description("The user's message")),
		mcp.WithOutputSchema[TurnResult](),
	)
	s.mcpServer.AddTool(chatTool, mcp.NewStructuredToolHandler(s.handlePlanChat))

	itineraryTool := mcp.NewTool("get_itinerary",
		mcp.WithDescription("Read the current itinerary of a conversation without running a turn."),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("User identifier")),
		mcp.WithString("plan_id", mcp.Required(), mcp.Description("Plan identifier")),
		mcp.WithOutputSchema[TurnResult](),
	)
	s.mcpServer.AddTool(itineraryTool, mcp.NewStructuredToolHandler(s.handleGetItinerary))
}

func (s *Server) handlePlanChat(ctx context.Context, _ mcp.CallToolRequest, args PlanChatArgs) (TurnResult, error) {
	req, err := runner.PrepareRequest(runner.ChatRequest{
		UserID:  args.UserID,
		PlanID:  args.PlanID,
		Message: args.Message,
	}, s.maxInput)
	if err != nil {
		s.logger.Warn("plan_chat: input rejected", "err", err, "size", len(args.Message))
		return TurnResult{}, err
	}

	callID := uuid.NewString()
	var messages []string
	state, err := s.assistant.Chat(ctx, req.UserID, req.PlanID, req.Message, func(e workflow.Event) {
		if e.Kind != workflow.EventUpdate {
			return
		}
		for _, m := range e.Update.Messages {
			if m.Role == domain.RoleAssistant {
				messages = append(messages, m.Content)
			}
		}
	})
	if err != nil {
		s.logger.Error("plan_chat failed", "call_id", callID, "err", err)
		return TurnResult{}, fmt.Errorf("turn failed: %w", err)
	}
	s.logger.Info("plan_chat", "call_id", callID, "session_id", state.SessionID, "visited", state.Visited)

	res := resultOf(state)
	res.Messages = messages
	if res.Messages == nil {
		res.Messages = []string{}
	}
	return res, nil
}

func (s *Server) handleGetItinerary(ctx context.Context, _ mcp.CallToolRequest, args ItineraryArgs) (TurnResult, error) {
	if args.UserID == "" || args.PlanID == "" {
		return TurnResult{}, errors.New("user_id and plan_id are required")
	}
	state, err := s.assistant.State(ctx, session.ID(args.UserID, args.PlanID))
	if err != nil {
		return TurnResult{}, err
	}
	res := resultOf(state)
	res.Messages = []string{}
	return res, nil
}

func resultOf(state *domain.SessionState) TurnResult {
	return TurnResult{
		SessionID: state.SessionID,
		Intent:    string(state.Intent),
		Visited:   state.Visited,
		Itinerary: state.CurrentItinerary(),
	}
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(GraphURI, "Workflow graph",
		mcp.WithResourceDescription("Mermaid flowchart of the travel-planning workflow"),
		mcp.WithMIMEType("text/plain"),
	), s.readGraph)
}

func (s *Server) readGraph(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      GraphURI,
			MIMEType: "text/plain",
			Text:     s.graph(),
		},
	}, nil
}
