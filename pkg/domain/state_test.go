package domain_test

import (
	"testing"

	"github.com/aretw0/compass/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApply_AppendsMessagesAndReplacesRecords(t *testing.T) {
	state := domain.NewSessionState("u@p")
	state.Apply(domain.Update{Messages: []domain.Message{domain.UserMessage("hi")}})

	intent := domain.IntentPlanTrip
	prefs := &domain.UserPreferences{Prefs: domain.Preferences{Destination: "Kyoto"}, History: "\nhi"}
	state.Apply(domain.Update{
		Messages:        []domain.Message{domain.AssistantMessage("where from?")},
		Intent:          &intent,
		UserPreferences: prefs,
	})

	require.Len(t, state.Messages, 2)
	assert.Equal(t, domain.RoleUser, state.Messages[0].Role)
	assert.Equal(t, domain.RoleAssistant, state.Messages[1].Role)
	assert.Equal(t, domain.IntentPlanTrip, state.Intent)
	assert.Equal(t, "Kyoto", state.UserPreferences.Prefs.Destination)

	// Mutating the update after Apply must not leak into the state.
	prefs.Prefs.Destination = "Osaka"
	assert.Equal(t, "Kyoto", state.UserPreferences.Prefs.Destination)
}

func TestApply_EmptyUpdateLeavesStateUntouched(t *testing.T) {
	state := domain.NewSessionState("u@p")
	state.Intent = domain.IntentChat
	state.Planning = &domain.Planning{Current: &domain.Itinerary{Theme: "food"}}

	before := state.Clone()
	state.Apply(domain.Update{})

	assert.Equal(t, before, state)
	assert.True(t, domain.Update{}.IsEmpty())
}

func TestApply_NormalizesCurrentItinerary(t *testing.T) {
	state := domain.NewSessionState("u@p")
	state.Apply(domain.Update{Planning: &domain.Planning{Current: &domain.Itinerary{
		Days: []domain.Day{
			{Date: domain.NewDate(2025, 5, 3), Theme: "c"},
			{Date: domain.NewDate(2025, 5, 1), Theme: "a"},
			{Date: domain.NewDate(2025, 5, 2), Theme: "b"},
		},
	}}})

	days := state.CurrentItinerary().Days
	assert.Equal(t, []string{"a", "b", "c"}, []string{days[0].Theme, days[1].Theme, days[2].Theme})
}

func TestLastUserMessage(t *testing.T) {
	state := domain.NewSessionState("u@p")
	_, ok := state.LastUserMessage()
	assert.False(t, ok)

	state.Messages = []domain.Message{
		domain.UserMessage("first"),
		domain.AssistantMessage("reply"),
		domain.UserMessage("second"),
		domain.AssistantMessage("progress"),
	}
	msg, ok := state.LastUserMessage()
	require.True(t, ok)
	assert.Equal(t, "second", msg.Content)

	last, _ := state.LastMessage()
	assert.Equal(t, "progress", last.Content)
}

func TestClone_IsDeep(t *testing.T) {
	state := domain.NewSessionState("u@p")
	state.Messages = append(state.Messages, domain.UserMessage("hi"))
	state.UserPreferences = &domain.UserPreferences{Prefs: domain.Preferences{Interests: []string{"food"}}}
	state.Planning = &domain.Planning{Current: &domain.Itinerary{Days: []domain.Day{{
		Segments: []domain.Segment{{TimeSlot: "morning", Activities: []domain.Activity{{Name: "Temple"}}}},
	}}}}

	c := state.Clone()
	c.Messages[0].Content = "changed"
	c.UserPreferences.Prefs.Interests[0] = "shopping"
	c.Planning.Current.Days[0].Segments[0].Activities[0].Name = "Museum"

	assert.Equal(t, "hi", state.Messages[0].Content)
	assert.Equal(t, "food", state.UserPreferences.Prefs.Interests[0])
	assert.Equal(t, "Temple", state.Planning.Current.Days[0].Segments[0].Activities[0].Name)
}
