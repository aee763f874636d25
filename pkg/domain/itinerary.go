package domain

import (
	"fmt"
	"sort"
	"strings"
)

// Itinerary is a structured multi-day travel plan.
type Itinerary struct {
	Theme             string `json:"theme"`
	Description       string `json:"description"`
	DepartureLocation string `json:"departure_location"`
	Destination       string `json:"destination"`
	Travelers         int    `json:"num_travelers"`
	Duration          string `json:"duration"`
	StartDate         Date   `json:"start_date"`
	EndDate           Date   `json:"end_date"`
	Highlight         string `json:"highlight"`
	Days              []Day  `json:"days"`
}

// Day is one calendar day of an itinerary.
type Day struct {
	Date           Date           `json:"date"`
	Location       string         `json:"location"`
	Theme          string         `json:"theme"`
	Transportation string         `json:"transportation"`
	Accommodation  *Accommodation `json:"accommodation,omitempty"`
	Segments       []Segment      `json:"segments"`
}

// Segment is a time-of-day bucket (morning, afternoon, evening).
type Segment struct {
	TimeSlot   string     `json:"time_slot"`
	Activities []Activity `json:"activities"`
}

// Activity is a single stop in a segment.
type Activity struct {
	Name              string `json:"name"`
	Category          string `json:"category"`
	Location          string `json:"location"`
	Description       string `json:"description"`
	EstimatedDuration string `json:"estimated_duration"`
	Notes             string `json:"notes"`
}

// Accommodation is a hotel booked for a night of the trip.
type Accommodation struct {
	HotelID       int64   `json:"hotel_id"`
	Name          string  `json:"name"`
	URL           string  `json:"url"`
	Address       string  `json:"address"`
	Price         float64 `json:"price"`
	Currency      string  `json:"currency"`
	ReviewScore   float64 `json:"review_score"`
	ReviewCount   int     `json:"review_count"`
	ArrivalDate   Date    `json:"arrival_date"`
	DepartureDate Date    `json:"departure_date"`
}

// Normalize puts days in chronological order. Days without a date keep
// their relative position after the dated ones.
func (it *Itinerary) Normalize() {
	sort.SliceStable(it.Days, func(i, j int) bool {
		a, b := it.Days[i].Date, it.Days[j].Date
		switch {
		case a.IsZero():
			return false
		case b.IsZero():
			return true
		}
		return a.Before(b.Time)
	})
}

// Validate checks the minimum shape of a generated itinerary.
func (it *Itinerary) Validate() error {
	if it == nil {
		return fmt.Errorf("%w: itinerary is nil", ErrInvalidPlan)
	}
	if len(it.Days) == 0 {
		return fmt.Errorf("%w: itinerary has no days", ErrInvalidPlan)
	}
	return nil
}

// DayDestinations returns, for every day, the location of its last activity.
// Days without activities yield an empty string so the slice aligns with Days.
func (it *Itinerary) DayDestinations() []string {
	out := make([]string, len(it.Days))
	for i, day := range it.Days {
		for s := len(day.Segments) - 1; s >= 0; s-- {
			acts := day.Segments[s].Activities
			if len(acts) == 0 {
				continue
			}
			out[i] = strings.TrimSpace(acts[len(acts)-1].Location)
			break
		}
	}
	return out
}

// Clone returns a deep copy.
func (it *Itinerary) Clone() *Itinerary {
	if it == nil {
		return nil
	}
	c := *it
	if it.Days != nil {
		c.Days = make([]Day, len(it.Days))
		for i, d := range it.Days {
			c.Days[i] = d.clone()
		}
	}
	return &c
}

func (d Day) clone() Day {
	c := d
	if d.Accommodation != nil {
		acc := *d.Accommodation
		c.Accommodation = &acc
	}
	if d.Segments != nil {
		c.Segments = make([]Segment, len(d.Segments))
		for i, s := range d.Segments {
			c.Segments[i] = Segment{
				TimeSlot:   s.TimeSlot,
				Activities: append([]Activity(nil), s.Activities...),
			}
		}
	}
	return c
}
