package tests

import (
	"context"
	"testing"

	"github.com/aretw0/compass/pkg/domain"
	"github.com/aretw0/compass/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// SampleItinerary returns a two-day itinerary with accommodation on the first night.
func SampleItinerary() domain.Itinerary {
	return domain.Itinerary{
		Theme:             "food",
		Description:       "Street food and markets",
		DepartureLocation: "Taipei",
		Destination:       "Osaka",
		Travelers:         2,
		Duration:          "2 days",
		StartDate:         domain.NewDate(2025, 6, 1),
		EndDate:           domain.NewDate(2025, 6, 2),
		Highlight:         "Dotonbori at night",
		Days: []domain.Day{
			{
				Date:           domain.NewDate(2025, 6, 1),
				Location:       "Namba",
				Theme:          "Markets",
				Transportation: "Metro",
				Accommodation: &domain.Accommodation{
					HotelID:       42,
					Name:          "Hotel Namba",
					Price:         120.5,
					Currency:      "TWD",
					ReviewScore:   8.7,
					ReviewCount:   1200,
					ArrivalDate:   domain.NewDate(2025, 6, 1),
					DepartureDate: domain.NewDate(2025, 6, 2),
				},
				Segments: []domain.Segment{
					{TimeSlot: "morning", Activities: []domain.Activity{
						{Name: "Kuromon Market", Category: "food", Location: "Kuromon"},
						{Name: "Takoyaki class", Category: "food", Location: "Namba"},
					}},
					{TimeSlot: "evening", Activities: []domain.Activity{
						{Name: "Dotonbori walk", Category: "sightseeing", Location: "Dotonbori"},
					}},
				},
			},
			{
				Date:     domain.NewDate(2025, 6, 2),
				Location: "Umeda",
				Segments: []domain.Segment{
					{TimeSlot: "afternoon", Activities: []domain.Activity{{Name: "Sky Building", Location: "Umeda"}}},
				},
			},
		},
	}
}

// PlanRepositoryContractTest is a reusable test suite that verifies if an adapter complies with ports.PlanRepository.
func PlanRepositoryContractTest(t *testing.T, repo ports.PlanRepository) {
	t.Helper()
	ctx := context.Background()

	t.Run("Create_DefaultsToDraft", func(t *testing.T) {
		plan, err := repo.Create(ctx, SampleItinerary())
		require.NoError(t, err)
		assert.NotEmpty(t, plan.ID)
		assert.Equal(t, domain.PlanStatusDraft, plan.Status)
		assert.False(t, plan.CreatedAt.IsZero())
	})

	t.Run("Get_ReturnsTree", func(t *testing.T) {
		created, err := repo.Create(ctx, SampleItinerary())
		require.NoError(t, err)

		got, err := repo.Get(ctx, created.ID)
		require.NoError(t, err)
		require.Len(t, got.Days, 2)
		assert.Equal(t, "Osaka", got.Destination)
		assert.Equal(t, "2025-06-01", got.Days[0].Date.String())
		require.Len(t, got.Days[0].Segments, 2)
		assert.Equal(t, []string{"Kuromon Market", "Takoyaki class"}, []string{
			got.Days[0].Segments[0].Activities[0].Name,
			got.Days[0].Segments[0].Activities[1].Name,
		})
		require.NotNil(t, got.Days[0].Accommodation)
		assert.Equal(t, "Hotel Namba", got.Days[0].Accommodation.Name)
		assert.Nil(t, got.Days[1].Accommodation)
	})

	t.Run("Get_NotFound", func(t *testing.T) {
		_, err := repo.Get(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrPlanNotFound)
	})

	t.Run("List", func(t *testing.T) {
		created, err := repo.Create(ctx, SampleItinerary())
		require.NoError(t, err)

		plans, err := repo.List(ctx)
		require.NoError(t, err)
		ids := make([]string, 0, len(plans))
		for _, p := range plans {
			ids = append(ids, p.ID)
		}
		assert.Contains(t, ids, created.ID)
	})

	t.Run("Update_StatusOnly", func(t *testing.T) {
		created, err := repo.Create(ctx, SampleItinerary())
		require.NoError(t, err)

		status := "confirmed"
		updated, err := repo.Update(ctx, created.ID, domain.PlanPatch{Status: &status})
		require.NoError(t, err)
		assert.Equal(t, "confirmed", updated.Status)
		assert.Equal(t, "food", updated.Theme)
		assert.Len(t, updated.Days, 2, "days are kept when not patched")
		assert.NotNil(t, updated.UpdatedAt)
	})

	t.Run("Update_ReplacesDays", func(t *testing.T) {
		created, err := repo.Create(ctx, SampleItinerary())
		require.NoError(t, err)

		days := []domain.Day{{Date: domain.NewDate(2025, 7, 1), Location: "Kobe"}}
		updated, err := repo.Update(ctx, created.ID, domain.PlanPatch{Days: &days})
		require.NoError(t, err)
		require.Len(t, updated.Days, 1)
		assert.Equal(t, "Kobe", updated.Days[0].Location)
	})

	t.Run("Update_NotFound", func(t *testing.T) {
		status := "confirmed"
		_, err := repo.Update(ctx, "missing", domain.PlanPatch{Status: &status})
		assert.ErrorIs(t, err, domain.ErrPlanNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		created, err := repo.Create(ctx, SampleItinerary())
		require.NoError(t, err)

		require.NoError(t, repo.Delete(ctx, created.ID))
		_, err = repo.Get(ctx, created.ID)
		assert.ErrorIs(t, err, domain.ErrPlanNotFound)

		assert.ErrorIs(t, repo.Delete(ctx, created.ID), domain.ErrPlanNotFound)
	})
}
