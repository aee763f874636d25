package agent

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/aretw0/compass/pkg/adapters/llm"
	"github.com/aretw0/compass/pkg/domain"
	"github.com/aretw0/compass/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHotels struct {
	got  ports.HotelQuery
	resp []domain.Accommodation
	err  error
}

func (f *fakeHotels) SearchHotels(_ context.Context, q ports.HotelQuery) ([]domain.Accommodation, error) {
	f.got = q
	return f.resp, f.err
}

func itinerary(t *testing.T) *domain.Itinerary {
	t.Helper()
	return &domain.Itinerary{
		Destination: "Kyoto",
		Travelers:   2,
		Days: []domain.Day{{
			Date:     domain.NewDate(2026, 4, 2),
			Location: "Kyoto",
			Segments: []domain.Segment{{TimeSlot: "morning", Activities: []domain.Activity{{Name: "Fushimi Inari", Location: "Fushimi"}}}},
		}},
	}
}

func answer(t *testing.T, it *domain.Itinerary) string {
	t.Helper()
	b, err := json.Marshal(it)
	require.NoError(t, err)
	return "```json\n" + string(b) + "\n```"
}

func TestRevise_CallsToolThenAnswers(t *testing.T) {
	current := itinerary(t)
	revised := current.Clone()
	revised.Days[0].Accommodation = &domain.Accommodation{Name: "Hotel Kanra"}

	hotels := &fakeHotels{resp: []domain.Accommodation{{HotelID: 7, Name: "Hotel Kanra"}}}
	var sawResult string

	gen := llm.NewScripted().OnTools("agent", func(p ports.Prompt, ex []ports.ToolExchange) (ports.AgentStep, error) {
		if len(ex) == 0 {
			return ports.AgentStep{Calls: []domain.ToolCall{{
				ID: "c1", Name: HotelToolName, Arguments: `{"travelers":"3"}`,
			}}}, nil
		}
		sawResult = ex[0].Results[0].Content
		return ports.AgentStep{Content: answer(t, revised)}, nil
	})

	var calls, returns int
	a := New(gen,
		WithHotelSearcher(hotels),
		WithNode("modify_plan"),
		WithHooks(domain.LifecycleHooks{
			OnToolCall: func(_ context.Context, e *domain.ToolEvent) {
				calls++
				assert.Equal(t, "modify_plan", e.Node)
				assert.Equal(t, "s1", e.SessionID)
			},
			OnToolReturn: func(_ context.Context, e *domain.ToolEvent) {
				returns++
				assert.False(t, e.IsError)
			},
		}),
	)

	ctx := domain.WithSessionID(context.Background(), "s1")
	out := a.Revise(ctx, ports.Prompt{Name: "agent"}, current)

	require.True(t, out.OK(), "outcome: %+v", out)
	assert.Equal(t, "Hotel Kanra", out.Itinerary.Days[0].Accommodation.Name)
	assert.Equal(t, 3, hotels.got.Travelers, "weakly typed argument decoded")
	assert.Same(t, current, hotels.got.Itinerary)
	assert.Contains(t, sawResult, "Hotel Kanra")
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, returns)
}

func TestRevise_ToolErrorIsFedBack(t *testing.T) {
	current := itinerary(t)
	hotels := &fakeHotels{err: domain.ErrNoDestination}

	var result domain.ToolResult
	gen := llm.NewScripted().OnTools("agent", func(p ports.Prompt, ex []ports.ToolExchange) (ports.AgentStep, error) {
		if len(ex) == 0 {
			return ports.AgentStep{Calls: []domain.ToolCall{{ID: "c1", Name: HotelToolName, Arguments: `{}`}}}, nil
		}
		result = ex[0].Results[0]
		return ports.AgentStep{Content: answer(t, current)}, nil
	})

	out := New(gen, WithHotelSearcher(hotels)).Revise(context.Background(), ports.Prompt{Name: "agent"}, current)
	require.True(t, out.OK())
	assert.True(t, result.IsError)
	assert.Equal(t, 2, hotels.got.Travelers, "falls back to itinerary travelers")
}

func TestRevise_UnknownTool(t *testing.T) {
	current := itinerary(t)
	var result domain.ToolResult
	gen := llm.NewScripted().OnTools("agent", func(p ports.Prompt, ex []ports.ToolExchange) (ports.AgentStep, error) {
		if len(ex) == 0 {
			return ports.AgentStep{Calls: []domain.ToolCall{{ID: "c1", Name: "book_flight", Arguments: `not json`}}}, nil
		}
		result = ex[0].Results[0]
		return ports.AgentStep{Content: answer(t, current)}, nil
	})

	out := New(gen).Revise(context.Background(), ports.Prompt{Name: "agent"}, current)
	require.True(t, out.OK())
	assert.True(t, result.IsError)
}

func TestRevise_Failures(t *testing.T) {
	current := itinerary(t)

	t.Run("generation", func(t *testing.T) {
		gen := llm.NewScripted().Fail("agent", errors.New("rate limited"))
		out := New(gen).Revise(context.Background(), ports.Prompt{Name: "agent"}, current)
		assert.False(t, out.OK())
		assert.Equal(t, domain.KindGeneration, out.Kind)
	})

	t.Run("parse", func(t *testing.T) {
		gen := llm.NewScripted().Reply("agent", "I changed day 2 for you!")
		out := New(gen).Revise(context.Background(), ports.Prompt{Name: "agent"}, current)
		assert.Equal(t, domain.KindParse, out.Kind)
	})

	t.Run("empty itinerary is a parse failure", func(t *testing.T) {
		gen := llm.NewScripted().Reply("agent", `{"theme":"x","days":[]}`)
		out := New(gen).Revise(context.Background(), ports.Prompt{Name: "agent"}, current)
		assert.Equal(t, domain.KindParse, out.Kind)
		assert.ErrorIs(t, out.Err, domain.ErrInvalidPlan)
	})

	t.Run("round limit", func(t *testing.T) {
		gen := llm.NewScripted().OnTools("agent", func(ports.Prompt, []ports.ToolExchange) (ports.AgentStep, error) {
			return ports.AgentStep{Calls: []domain.ToolCall{{ID: "c", Name: HotelToolName}}}, nil
		})
		out := New(gen, WithMaxRounds(2), WithHotelSearcher(&fakeHotels{})).Revise(context.Background(), ports.Prompt{Name: "agent"}, current)
		assert.Equal(t, domain.KindTool, out.Kind)
		assert.ErrorIs(t, out.Err, ErrMaxRounds)
	})
}
