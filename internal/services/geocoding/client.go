package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

const defaultBaseURL = "https://nominatim.openstreetmap.org"

// Client resolves city names to coordinates through Nominatim. Requests
// are throttled to one per second per the Nominatim usage policy.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string

	mu       sync.Mutex
	lastCall time.Time
	minGap   time.Duration
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithMinInterval overrides the request spacing (tests set it to zero).
func WithMinInterval(d time.Duration) Option {
	return func(c *Client) { c.minGap = d }
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    defaultBaseURL,
		userAgent:  "EducLove/1.0",
		minGap:     time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Geocode returns the coordinates for a city, or (nil, nil) when the city
// is unknown. "Not found" is a normal outcome, not an error.
func (c *Client) Geocode(ctx context.Context, city, country string) (*Coordinates, error) {
	city = strings.TrimSpace(city)
	if city == "" {
		return nil, nil
	}
	if country == "" {
		country = "FR"
	}

	if err := c.throttle(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("city", city)
	params.Set("countrycodes", strings.ToLower(country))
	params.Set("format", "json")
	params.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nominatim: unexpected status %s", resp.Status)
	}

	var results []nominatimResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}

	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("nominatim: bad longitude %q", results[0].Lon)
	}
	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("nominatim: bad latitude %q", results[0].Lat)
	}

	coords := Coordinates{Lon: lon, Lat: lat}
	if !coords.Valid() {
		return nil, nil
	}
	return &coords, nil
}

// throttle spaces requests at least minGap apart, giving up early when the
// caller's context expires first.
func (c *Client) throttle(ctx context.Context) error {
	c.mu.Lock()
	now := time.Now()
	wait := c.lastCall.Add(c.minGap).Sub(now)
	if wait < 0 {
		wait = 0
	}
	c.lastCall = now.Add(wait)
	c.mu.Unlock()

	if wait <= 0 {
		return nil
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
