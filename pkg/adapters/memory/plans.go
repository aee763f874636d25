package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/compass/pkg/domain"
	"github.com/oklog/ulid/v2"
)

// Plans implements ports.PlanRepository in memory.
// Safe for concurrent use.
type Plans struct {
	mu    sync.RWMutex
	plans map[string]domain.Plan
}

// NewPlans creates an empty plan repository.
func NewPlans() *Plans {
	return &Plans{plans: make(map[string]domain.Plan)}
}

func clonePlan(p domain.Plan) *domain.Plan {
	c := p
	c.Itinerary = *p.Itinerary.Clone()
	if p.UpdatedAt != nil {
		t := *p.UpdatedAt
		c.UpdatedAt = &t
	}
	return &c
}

// Create stores a copy of it as a draft plan.
func (r *Plans) Create(ctx context.Context, it domain.Itinerary) (*domain.Plan, error) {
	p := domain.Plan{
		ID:        ulid.Make().String(),
		Status:    domain.PlanStatusDraft,
		Itinerary: *it.Clone(),
		CreatedAt: time.Now().UTC(),
	}
	p.Itinerary.Normalize()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.plans[p.ID] = p
	return clonePlan(p), nil
}

// Get returns a copy of the plan.
func (r *Plans) Get(ctx context.Context, id string) (*domain.Plan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plans[id]
	if !ok {
		return nil, domain.ErrPlanNotFound
	}
	return clonePlan(p), nil
}

// List returns all plans ordered by id, which is creation order.
func (r *Plans) List(ctx context.Context) ([]domain.Plan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Plan, 0, len(r.plans))
	for _, p := range r.plans {
		out = append(out, *clonePlan(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Update applies patch to the stored plan.
func (r *Plans) Update(ctx context.Context, id string, patch domain.PlanPatch) (*domain.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plans[id]
	if !ok {
		return nil, domain.ErrPlanNotFound
	}
	updated := *clonePlan(p)
	patch.ApplyTo(&updated)
	now := time.Now().UTC()
	updated.UpdatedAt = &now
	r.plans[id] = updated
	return clonePlan(updated), nil
}

// Delete removes the plan.
func (r *Plans) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.plans[id]; !ok {
		return domain.ErrPlanNotFound
	}
	delete(r.plans, id)
	return nil
}
