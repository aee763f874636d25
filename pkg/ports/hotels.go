package ports

import (
	"context"

	"github.com/aretw0/compass/pkg/domain"
)

// HotelQuery asks for accommodations along an itinerary.
type HotelQuery struct {
	Travelers int
	Itinerary *domain.Itinerary
}

// HotelSearcher returns candidate accommodations, each carrying the
// arrival/departure dates of the night it covers. It returns
// domain.ErrNoDestination when no day has a location to search around.
type HotelSearcher interface {
	SearchHotels(ctx context.Context, q HotelQuery) ([]domain.Accommodation, error)
}
