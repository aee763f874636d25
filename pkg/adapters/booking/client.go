// Package booking searches accommodations through the booking-com15 RapidAPI.
package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/aretw0/compass/internal/logging"
	"github.com/aretw0/compass/pkg/domain"
	"github.com/aretw0/compass/pkg/ports"
	"golang.org/x/time/rate"
)

const (
	DefaultHost             = "booking-com15.p.rapidapi.com"
	DefaultCurrency         = "TWD"
	DefaultCandidatesPerDay = 3
	DefaultRequestsPerSec   = 4
)

// ErrUpstream wraps non-2xx responses from the API.
var ErrUpstream = errors.New("booking api error")

var _ ports.HotelSearcher = (*Client)(nil)

// Client implements ports.HotelSearcher.
type Client struct {
	httpClient *http.Client
	baseURL    string
	host       string
	apiKey     string
	currency   string
	perDay     int
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithBaseURL overrides the API origin, e.g. for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithHost sets the x-rapidapi-host header.
func WithHost(host string) Option {
	return func(c *Client) {
		c.host = host
	}
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithCurrency sets the currency prices are requested in.
func WithCurrency(code string) Option {
	return func(c *Client) {
		c.currency = code
	}
}

// WithCandidatesPerDay caps the hotels returned for each night.
func WithCandidatesPerDay(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.perDay = n
		}
	}
}

// WithRateLimit throttles outbound requests. rps <= 0 disables the limit.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithLogger configures a logger for the Client.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a Client authenticated with the RapidAPI key.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		host:       DefaultHost,
		apiKey:     apiKey,
		currency:   DefaultCurrency,
		perDay:     DefaultCandidatesPerDay,
		limiter:    rate.NewLimiter(rate.Limit(DefaultRequestsPerSec), 1),
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.baseURL == "" {
		c.baseURL = "https://" + c.host
	}
	return c
}

type destination struct {
	ID   string
	Type string
}

// SearchHotels looks up one destination per itinerary day (the location of
// the day's last activity) and returns up to the configured number of hotels
// for that night. Destination lookups are cached for the duration of the call.
func (c *Client) SearchHotels(ctx context.Context, q ports.HotelQuery) ([]domain.Accommodation, error) {
	it := q.Itinerary
	if it == nil {
		return nil, domain.ErrNoDestination
	}
	adults := q.Travelers
	if adults < 1 {
		adults = 1
	}

	places := it.DayDestinations()
	searched := false
	cache := make(map[string]*destination)
	var out []domain.Accommodation
	var errs []error

	for i, place := range places {
		if place == "" {
			continue
		}
		arrival := nightOf(it, i)
		if arrival.IsZero() {
			c.logger.Warn("day has no date, skipping hotel search", "day", i+1, "location", place)
			continue
		}
		searched = true

		dest, ok := cache[place]
		if !ok {
			d, err := c.searchDestination(ctx, place)
			if err != nil {
				errs = append(errs, fmt.Errorf("destination %q: %w", place, err))
				continue
			}
			cache[place] = d
			dest = d
		}
		if dest == nil {
			c.logger.Info("no destination match", "location", place)
			continue
		}

		hotels, err := c.searchHotels(ctx, *dest, arrival, arrival.AddDays(1), adults)
		if err != nil {
			errs = append(errs, fmt.Errorf("hotels near %q: %w", place, err))
			continue
		}
		out = append(out, hotels...)
	}

	if !searched {
		return nil, domain.ErrNoDestination
	}
	if len(out) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	for _, err := range errs {
		c.logger.Warn("partial hotel search failure", "err", err)
	}
	return out, nil
}

// nightOf returns the arrival date of day i, falling back to the itinerary
// start date when the day itself is undated.
func nightOf(it *domain.Itinerary, i int) domain.Date {
	if d := it.Days[i].Date; !d.IsZero() {
		return d
	}
	if !it.StartDate.IsZero() {
		return it.StartDate.AddDays(i)
	}
	return domain.Date{}
}

type destinationResponse struct {
	Data []struct {
		DestID     string `json:"dest_id"`
		SearchType string `json:"search_type"`
		DestType   string `json:"dest_type"`
		Name       string `json:"name"`
	} `json:"data"`
}

func (c *Client) searchDestination(ctx context.Context, query string) (*destination, error) {
	var resp destinationResponse
	if err := c.get(ctx, "/api/v1/hotels/searchDestination", url.Values{"query": {query}}, &resp); err != nil {
		return nil, err
	}
	for _, item := range resp.Data {
		if item.DestID == "" {
			continue
		}
		typ := item.SearchType
		if typ == "" {
			typ = item.DestType
		}
		return &destination{ID: item.DestID, Type: typ}, nil
	}
	return nil, nil
}

type hotelsResponse struct {
	Data struct {
		Hotels []struct {
			HotelID  int64 `json:"hotel_id"`
			Property struct {
				Name           string  `json:"name"`
				ReviewScore    float64 `json:"reviewScore"`
				ReviewCount    int     `json:"reviewCount"`
				WishlistName   string  `json:"wishlistName"`
				PriceBreakdown struct {
					GrossPrice struct {
						Value    float64 `json:"value"`
						Currency string  `json:"currency"`
					} `json:"grossPrice"`
				} `json:"priceBreakdown"`
			} `json:"property"`
		} `json:"hotels"`
	} `json:"data"`
}

func (c *Client) searchHotels(ctx context.Context, dest destination, arrival, departure domain.Date, adults int) ([]domain.Accommodation, error) {
	params := url.Values{
		"dest_id":        {dest.ID},
		"search_type":    {dest.Type},
		"arrival_date":   {arrival.String()},
		"departure_date": {departure.String()},
		"adults":         {strconv.Itoa(adults)},
		"units":          {"metric"},
		"currency_code":  {c.currency},
	}
	var resp hotelsResponse
	if err := c.get(ctx, "/api/v1/hotels/searchHotels", params, &resp); err != nil {
		return nil, err
	}

	hotels := resp.Data.Hotels
	if len(hotels) > c.perDay {
		hotels = hotels[:c.perDay]
	}
	out := make([]domain.Accommodation, 0, len(hotels))
	for _, h := range hotels {
		p := h.Property
		currency := p.PriceBreakdown.GrossPrice.Currency
		if currency == "" {
			currency = c.currency
		}
		out = append(out, domain.Accommodation{
			HotelID:       h.HotelID,
			Name:          p.Name,
			URL:           fmt.Sprintf("https://www.booking.com/hotel.html?hotel_id=%d", h.HotelID),
			Address:       p.WishlistName,
			Price:         p.PriceBreakdown.GrossPrice.Value,
			Currency:      currency,
			ReviewScore:   p.ReviewScore,
			ReviewCount:   p.ReviewCount,
			ArrivalDate:   arrival,
			DepartureDate: departure,
		})
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, dst any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("x-rapidapi-key", c.apiKey)
	req.Header.Set("x-rapidapi-host", c.host)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s %s: %s", ErrUpstream, path, resp.Status, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
