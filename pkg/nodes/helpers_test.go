package nodes

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/compass/pkg/adapters/llm"
	"github.com/aretw0/compass/pkg/domain"
	"github.com/stretchr/testify/require"
)

var fixedNow = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }

func newSet(gen *llm.Scripted, opts ...Option) *Set {
	return New(gen, append([]Option{WithClock(fixedNow)}, opts...)...)
}

func stateWith(msgs ...domain.Message) *domain.SessionState {
	s := domain.NewSessionState("alice@p1")
	s.Apply(domain.Update{Messages: msgs})
	return s
}

func sampleItinerary(theme string, days int) domain.Itinerary {
	it := domain.Itinerary{
		Theme:       theme,
		Destination: "Kyoto",
		Travelers:   2,
		StartDate:   domain.NewDate(2026, 4, 1),
		EndDate:     domain.NewDate(2026, 4, days),
	}
	for i := 0; i < days; i++ {
		it.Days = append(it.Days, domain.Day{
			Date:     domain.NewDate(2026, 4, 1+i),
			Location: "Kyoto",
			Theme:    theme,
			Segments: []domain.Segment{{
				TimeSlot:   "Morning (09:00-12:00)",
				Activities: []domain.Activity{{Name: theme + " walk", Location: "Gion"}},
			}},
		})
	}
	return it
}

func withPlan(s *domain.SessionState, it domain.Itinerary) *domain.SessionState {
	s.Apply(domain.Update{Planning: &domain.Planning{Options: []domain.Itinerary{it}, Current: &it}})
	return s
}

func ctx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return c
}

func requireAssistant(t *testing.T, u domain.Update, want ...string) {
	t.Helper()
	require.Len(t, u.Messages, len(want))
	for i, m := range u.Messages {
		require.Equal(t, domain.RoleAssistant, m.Role)
		require.Equal(t, want[i], m.Content)
	}
}
