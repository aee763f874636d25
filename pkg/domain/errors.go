package domain

import "errors"

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrPlanNotFound is returned when a persisted plan does not exist.
var ErrPlanNotFound = errors.New("plan not found")

// ErrInvalidPlan is returned when a plan payload fails validation.
var ErrInvalidPlan = errors.New("invalid plan")

// ErrNoDestination is returned by hotel search when no day of the itinerary
// has an activity location to search around.
var ErrNoDestination = errors.New("no destination could be derived from itinerary")
