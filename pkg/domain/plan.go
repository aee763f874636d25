package domain

import "time"

// PlanStatusDraft is the status of a newly saved plan.
const PlanStatusDraft = "draft"

// Plan is an itinerary persisted outside the conversation.
type Plan struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Itinerary
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

// PlanPatch is a partial update of a plan. Nil fields are left unchanged;
// a non-nil Days replaces the whole day tree.
type PlanPatch struct {
	Status            *string `json:"status"`
	Theme             *string `json:"theme"`
	Description       *string `json:"description"`
	DepartureLocation *string `json:"departure_location"`
	Destination       *string `json:"destination"`
	Travelers         *int    `json:"num_travelers"`
	Duration          *string `json:"duration"`
	StartDate         *Date   `json:"start_date"`
	EndDate           *Date   `json:"end_date"`
	Highlight         *string `json:"highlight"`
	Days              *[]Day  `json:"days"`
}

// ApplyTo copies the set fields onto p.
func (pp PlanPatch) ApplyTo(p *Plan) {
	if pp.Status != nil {
		p.Status = *pp.Status
	}
	if pp.Theme != nil {
		p.Theme = *pp.Theme
	}
	if pp.Description != nil {
		p.Description = *pp.Description
	}
	if pp.DepartureLocation != nil {
		p.DepartureLocation = *pp.DepartureLocation
	}
	if pp.Destination != nil {
		p.Destination = *pp.Destination
	}
	if pp.Travelers != nil {
		p.Travelers = *pp.Travelers
	}
	if pp.Duration != nil {
		p.Duration = *pp.Duration
	}
	if pp.StartDate != nil {
		p.StartDate = *pp.StartDate
	}
	if pp.EndDate != nil {
		p.EndDate = *pp.EndDate
	}
	if pp.Highlight != nil {
		p.Highlight = *pp.Highlight
	}
	if pp.Days != nil {
		p.Days = *pp.Days
		p.Itinerary.Normalize()
	}
}
