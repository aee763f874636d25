package ports

import (
	"context"

	"github.com/aretw0/compass/pkg/domain"
)

// PlanRepository persists finalized plans as a tree
// (plan -> day -> segment -> activity, day -> accommodation).
// Missing plans are reported with domain.ErrPlanNotFound.
type PlanRepository interface {
	Create(ctx context.Context, it domain.Itinerary) (*domain.Plan, error)
	Get(ctx context.Context, id string) (*domain.Plan, error)
	List(ctx context.Context) ([]domain.Plan, error)
	Update(ctx context.Context, id string, patch domain.PlanPatch) (*domain.Plan, error)
	Delete(ctx context.Context, id string) error
}
