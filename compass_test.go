package compass_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/compass"
	"github.com/aretw0/compass/pkg/adapters/llm"
	"github.com/aretw0/compass/pkg/adapters/memory"
	"github.com/aretw0/compass/pkg/domain"
	"github.com/aretw0/compass/pkg/nodes"
	"github.com/aretw0/compass/pkg/ports"
	"github.com/aretw0/compass/pkg/session"
	"github.com/aretw0/compass/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func kyotoDay(date domain.Date, theme string) domain.Day {
	return domain.Day{
		Date:     date,
		Location: "Kyoto",
		Theme:    theme,
		Segments: []domain.Segment{{
			TimeSlot:   "Morning (09:00-12:00)",
			Activities: []domain.Activity{{Name: "Kiyomizu-dera", Location: "Higashiyama"}},
		}},
	}
}

func itineraryJSON(theme string) string {
	it := domain.Itinerary{
		Theme:       theme,
		Destination: "Kyoto",
		Days: []domain.Day{
			kyotoDay(domain.NewDate(2026, 4, 2), theme),
			kyotoDay(domain.NewDate(2026, 4, 1), theme),
		},
	}
	b, _ := json.Marshal(it)
	return string(b)
}

func extraction(prefs map[string]any, field string) string {
	b, _ := json.Marshal(map[string]any{"preferences": prefs, "updated_field": field})
	return string(b)
}

func newAssistant(t *testing.T, gen *llm.Scripted, store ports.CheckpointStore) *compass.Assistant {
	t.Helper()
	a, err := compass.New(gen,
		compass.WithStore(store),
		compass.WithClock(func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }),
	)
	require.NoError(t, err)
	return a
}

func TestScenario_PlanTripAsksForDeparture(t *testing.T) {
	gen := llm.NewScripted().
		Reply("intent", "plan_trip").
		Reply("preferences", extraction(map[string]any{"destination": "Kyoto"}, "destination"))
	a := newAssistant(t, gen, memory.NewStore())

	state, err := a.Chat(context.Background(), "alice", "p1", "I want to plan a trip to Kyoto", nil)
	require.NoError(t, err)

	assert.Equal(t, domain.IntentPlanTrip, state.Intent)
	assert.Equal(t, []string{nodes.IntentRouter, nodes.CollectPreferences}, state.Visited)
	require.NotNil(t, state.UserPreferences)
	assert.Equal(t, "Kyoto", state.UserPreferences.Prefs.Destination)
	assert.False(t, state.UserPreferences.Complete)

	last, _ := state.LastMessage()
	assert.Equal(t, domain.RequiredFields[1].Question, last.Content)
}

func TestScenario_LastAnswerRunsFullChain(t *testing.T) {
	store := memory.NewStore()
	id := session.ID("alice", "p1")

	seed := domain.NewSessionState(id)
	seed.Apply(domain.Update{
		Messages: []domain.Message{
			domain.UserMessage("I want to plan a trip to Kyoto"),
			domain.AssistantMessage(domain.RequiredFields[4].Question),
		},
		UserPreferences: &domain.UserPreferences{
			Prefs: domain.Preferences{
				Destination:       "Kyoto",
				DepartureLocation: "Taipei",
				DepartureDate:     domain.NewDate(2026, 4, 1),
				Duration:          "2 days 1 night",
			},
			History: "\nI want to plan a trip to Kyoto\nfrom Taipei\n2026-04-01\n2 days",
		},
	})
	require.NoError(t, store.Save(context.Background(), id, seed))

	gen := llm.NewScripted().
		Reply("intent", "chat").
		Reply("preferences", extraction(map[string]any{"interests": []string{"food", "temples"}}, "interests")).
		On("draft", func(p ports.Prompt) (string, error) { return itineraryJSON(p.Messages[0].Content), nil }).
		Reply("merge", itineraryJSON("food and temples")).
		Reply("agent", itineraryJSON("food and temples, finalized")).
		Reply("report", "Here is your Kyoto trip.")
	a := newAssistant(t, gen, store)

	var structural []string
	var tokens strings.Builder
	state, err := a.Chat(context.Background(), "alice", "p1", "food and temples", func(e workflow.Event) {
		switch e.Kind {
		case workflow.EventToken:
			tokens.WriteString(e.Token)
		case workflow.EventUpdate:
			structural = append(structural, e.Node)
		}
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		nodes.IntentRouter, nodes.CollectPreferences, nodes.GenerateItinerary, nodes.ModifyPlan, nodes.ReportItinerary,
	}, state.Visited)
	assert.Equal(t, state.Visited, structural)
	assert.Equal(t, "Here is your Kyoto trip.", tokens.String())

	require.True(t, state.UserPreferences.Complete)
	assert.Equal(t, []string{"food", "temples"}, state.UserPreferences.Prefs.Interests)

	cur := state.CurrentItinerary()
	require.NotNil(t, cur)
	require.NotEmpty(t, cur.Days)
	assert.Equal(t, "food and temples, finalized", cur.Theme)
	assert.True(t, cur.Days[0].Date.Before(cur.Days[1].Date.Time), "days are chronological")
	assert.Len(t, state.Planning.Options, 2)
	assert.Equal(t, 2, gen.CallCount("draft"))

	var contents []string
	for _, m := range state.Messages {
		contents = append(contents, m.Content)
	}
	assert.Contains(t, contents, nodes.MsgPreferencesComplete)
	assert.Contains(t, contents, nodes.MsgAdjusting)
	assert.Contains(t, contents, nodes.MsgFinalizing)

	persisted, err := a.State(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, len(state.Messages), len(persisted.Messages))
}

func TestScenario_ModifyWithoutPlan(t *testing.T) {
	gen := llm.NewScripted().Reply("intent", "modify_plan")
	a := newAssistant(t, gen, memory.NewStore())

	state, err := a.Chat(context.Background(), "bob", "p9", "change day 2 to include a museum", nil)
	require.NoError(t, err)

	assert.Equal(t, []string{nodes.IntentRouter, nodes.ModifyPlan}, state.Visited)
	last, _ := state.LastMessage()
	assert.Equal(t, nodes.MsgNoPlan, last.Content)
	assert.Nil(t, state.Planning)
}

func TestScenario_ChatStreamsTokens(t *testing.T) {
	gen := llm.NewScripted().Reply("intent", "chat").Reply("chat", "Hi! Where would you like to travel?")
	a := newAssistant(t, gen, memory.NewStore())

	var tokens int
	state, err := a.Chat(context.Background(), "carol", "p1", "hello", func(e workflow.Event) {
		if e.Kind == workflow.EventToken {
			tokens++
			assert.Equal(t, nodes.Chat, e.Node)
		}
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, tokens, 1)
	assert.Equal(t, []string{nodes.IntentRouter, nodes.Chat}, state.Visited)
}

func TestSessionsAreIsolated(t *testing.T) {
	gen := llm.NewScripted().
		On("intent", func(ports.Prompt) (string, error) { return "chat", nil }).
		On("chat", func(ports.Prompt) (string, error) { return "ok", nil })
	a := newAssistant(t, gen, memory.NewStore())
	ctx := context.Background()

	_, err := a.Chat(ctx, "u", "a", "one", nil)
	require.NoError(t, err)
	s, err := a.Chat(ctx, "u", "a", "two", nil)
	require.NoError(t, err)
	assert.Len(t, s.Messages, 4)

	other, err := a.Chat(ctx, "u", "b", "one", nil)
	require.NoError(t, err)
	assert.Len(t, other.Messages, 2)

	ids, err := a.Sessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"u@a", "u@b"}, ids)

	require.NoError(t, a.Reset(ctx, "u@a"))
	_, err = a.State(ctx, "u@a")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestNew_RequiresGenerator(t *testing.T) {
	_, err := compass.New(nil)
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	assert.NotEmpty(t, compass.Version())
}
