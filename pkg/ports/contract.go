package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/compass/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunCheckpointStoreContract runs a suite of tests to verify that a CheckpointStore
// implementation adheres to the defined interface contract.
func RunCheckpointStoreContract(t *testing.T, store CheckpointStore) {
	ctx := context.Background()
	sessionID := "user-1@contract-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		state := domain.NewSessionState(sessionID)
		state.Messages = append(state.Messages,
			domain.UserMessage("I want to plan a trip to Kyoto"),
			domain.AssistantMessage("Where will you be departing from?"),
		)
		state.Intent = domain.IntentPlanTrip
		state.UserPreferences = &domain.UserPreferences{
			Prefs:   domain.Preferences{Destination: "Kyoto", DepartureDate: domain.NewDate(2025, 4, 1)},
			History: "\nI want to plan a trip to Kyoto",
		}
		state.Planning = &domain.Planning{Current: &domain.Itinerary{
			Theme: "food",
			Days: []domain.Day{{
				Date:     domain.NewDate(2025, 4, 1),
				Segments: []domain.Segment{{TimeSlot: "morning", Activities: []domain.Activity{{Name: "Nishiki Market"}}}},
			}},
		}}

		err := store.Save(ctx, sessionID, state)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, sessionID, loaded.SessionID)
		assert.Equal(t, state.Messages, loaded.Messages)
		assert.Equal(t, domain.IntentPlanTrip, loaded.Intent)
		require.NotNil(t, loaded.UserPreferences)
		assert.Equal(t, "Kyoto", loaded.UserPreferences.Prefs.Destination)
		assert.Equal(t, "2025-04-01", loaded.UserPreferences.Prefs.DepartureDate.String())
		require.NotNil(t, loaded.CurrentItinerary())
		assert.Equal(t, "Nishiki Market", loaded.CurrentItinerary().Days[0].Segments[0].Activities[0].Name)
	})

	t.Run("Load Is Isolated From Caller", func(t *testing.T) {
		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		loaded.Messages = append(loaded.Messages, domain.UserMessage("not saved"))

		again, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Len(t, again.Messages, 2)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, domain.NewSessionState(sessionID))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, domain.NewSessionState(id1))
		_ = store.Save(ctx, id2, domain.NewSessionState(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
