package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aretw0/compass/pkg/domain"
	"github.com/go-chi/chi/v5"
)

// ListPlans handles GET /plans.
func (s *Server) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.Plans.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if plans == nil {
		plans = []domain.Plan{}
	}
	s.writeJSON(w, http.StatusOK, plans)
}

// CreatePlan handles POST /plans.
func (s *Server) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var it domain.Itinerary
	if err := json.NewDecoder(r.Body).Decode(&it); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidPlan, err))
		return
	}
	if err := it.Validate(); err != nil {
		s.writeError(w, r, err)
		return
	}
	it.Normalize()

	plan, err := s.Plans.Create(r.Context(), it)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.logger.Info("plan created", "plan_id", plan.ID, "destination", plan.Destination)
	s.writeJSON(w, http.StatusCreated, plan)
}

// GetPlan handles GET /plans/{id}.
func (s *Server) GetPlan(w http.ResponseWriter, r *http.Request) {
	plan, err := s.Plans.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, plan)
}

// PatchPlan handles PATCH /plans/{id}/status.
func (s *Server) PatchPlan(w http.ResponseWriter, r *http.Request) {
	var patch domain.PlanPatch
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&patch); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidPlan, err))
		return
	}

	plan, err := s.Plans.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, plan)
}

// DeletePlan handles DELETE /plans/{id}.
func (s *Server) DeletePlan(w http.ResponseWriter, r *http.Request) {
	if err := s.Plans.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
