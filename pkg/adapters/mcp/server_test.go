package mcp

import (
	"context"
	"strings"
	"testing"

	"github.com/aretw0/compass/pkg/domain"
	"github.com/aretw0/compass/pkg/runner"
	"github.com/aretw0/compass/pkg/workflow"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAssistant struct {
	states   map[string]*domain.SessionState
	messages []string
}

func (f *fakeAssistant) Chat(ctx context.Context, userID, planID, message string, emit workflow.EmitFunc) (*domain.SessionState, error) {
	f.messages = append(f.messages, message)
	id := userID + "@" + planID
	it := &domain.Itinerary{Destination: "Kyoto", Days: []domain.Day{{Location: "Gion"}}}

	emit(workflow.Event{Kind: workflow.EventToken, Node: "chat", Token: "ignored"})
	emit(workflow.Event{Kind: workflow.EventUpdate, Node: "generate_itinerary", Update: domain.Update{
		Messages: []domain.Message{domain.AssistantMessage("Adjusting the plan...")},
		Planning: &domain.Planning{Current: it},
	}})
	emit(workflow.Event{Kind: workflow.EventUpdate, Node: "report_itinerary", Update: domain.Say("Here is your trip.")})

	st := domain.NewSessionState(id)
	st.Intent = domain.IntentPlanTrip
	st.Planning = &domain.Planning{Current: it}
	st.Visited = []string{"intent_router", "generate_itinerary", "report_itinerary"}
	f.states[id] = st
	return st.Clone(), nil
}

func (f *fakeAssistant) State(ctx context.Context, sessionID string) (*domain.SessionState, error) {
	st, ok := f.states[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return st.Clone(), nil
}

func newServer() (*Server, *fakeAssistant) {
	a := &fakeAssistant{states: map[string]*domain.SessionState{}}
	return NewServer(a, func() string { return "graph TD\n  intent_router --> chat" }, "test"), a
}

func TestPlanChat(t *testing.T) {
	s, a := newServer()

	res, err := s.handlePlanChat(context.Background(), mcp.CallToolRequest{}, PlanChatArgs{
		UserID: "alice", PlanID: "kyoto", Message: "plan a trip\x07",
	})
	require.NoError(t, err)
	assert.Equal(t, "alice@kyoto", res.SessionID)
	assert.Equal(t, []string{"Adjusting the plan...", "Here is your trip."}, res.Messages)
	assert.Equal(t, "plan_trip", res.Intent)
	require.NotNil(t, res.Itinerary)
	assert.Equal(t, "Kyoto", res.Itinerary.Destination)
	assert.Equal(t, []string{"plan a trip"}, a.messages, "input is sanitized before the turn")
}

func TestPlanChat_RejectsInvalidInput(t *testing.T) {
	s, a := newServer()

	_, err := s.handlePlanChat(context.Background(), mcp.CallToolRequest{}, PlanChatArgs{UserID: "a@b", PlanID: "p", Message: "hi"})
	assert.ErrorIs(t, err, runner.ErrInvalidRequest)

	_, err = s.handlePlanChat(context.Background(), mcp.CallToolRequest{}, PlanChatArgs{UserID: "a", PlanID: "p", Message: ""})
	assert.ErrorIs(t, err, runner.ErrInvalidRequest)
	assert.Empty(t, a.messages)
}

func TestGetItinerary(t *testing.T) {
	s, _ := newServer()
	ctx := context.Background()

	_, err := s.handleGetItinerary(ctx, mcp.CallToolRequest{}, ItineraryArgs{UserID: "alice", PlanID: "kyoto"})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = s.handlePlanChat(ctx, mcp.CallToolRequest{}, PlanChatArgs{UserID: "alice", PlanID: "kyoto", Message: "go"})
	require.NoError(t, err)

	res, err := s.handleGetItinerary(ctx, mcp.CallToolRequest{}, ItineraryArgs{UserID: "alice", PlanID: "kyoto"})
	require.NoError(t, err)
	require.NotNil(t, res.Itinerary)
	assert.Equal(t, "Gion", res.Itinerary.Days[0].Location)
	assert.Empty(t, res.Messages)

	_, err = s.handleGetItinerary(ctx, mcp.CallToolRequest{}, ItineraryArgs{UserID: "alice"})
	assert.Error(t, err)
}

func TestGraphResource(t *testing.T) {
	s, _ := newServer()

	contents, err := s.readGraph(context.Background(), mcp.ReadResourceRequest{})
	require.NoError(t, err)
	require.Len(t, contents, 1)
	text, ok := contents[0].(mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, GraphURI, text.URI)
	assert.True(t, strings.HasPrefix(text.Text, "graph TD"))
}
