// Package mapbox labels replay regions through the Mapbox Geocoding API.
package mapbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/flood-replay-service/internal/domain"
	"github.com/couchcryptid/flood-replay-service/internal/observability"
)

const defaultBaseURL = "https://api.mapbox.com/geocoding/v5/mapbox.places"

// Place types, coarsest first for forward lookups of region names and
// finest first for reverse lookups of a rainfall centroid.
var (
	forwardTypes = []string{"region", "district", "place"}
	reverseTypes = []string{"district", "place", "region"}
)

// APIError is a non-200 response from Mapbox.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("mapbox API error: status %d: %s", e.StatusCode, e.Body)
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another geocoding endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimSuffix(u, "/") }
}

// WithCountry restricts results to ISO 3166 alpha-2 country codes.
func WithCountry(codes ...string) Option {
	return func(c *Client) { c.country = strings.Join(codes, ",") }
}

// Client implements domain.Geocoder using the Mapbox Geocoding API.
type Client struct {
	token      string
	country    string
	baseURL    string
	httpClient *http.Client
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a Mapbox geocoding client. timeout bounds each request.
func NewClient(token string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		token:      token,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: timeout},
		metrics:    metrics,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ForwardGeocode resolves a region name such as "Guwahati, Assam" to its
// centre point.
func (c *Client) ForwardGeocode(ctx context.Context, name string) (domain.GeocodingResult, error) {
	return c.lookup(ctx, "forward", url.PathEscape(name), forwardTypes)
}

// ReverseGeocode names the district containing a coordinate.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (domain.GeocodingResult, error) {
	// Mapbox uses lon,lat order.
	return c.lookup(ctx, "reverse", fmt.Sprintf("%.6f,%.6f", lon, lat), reverseTypes)
}

func (c *Client) endpoint(search string, types []string) string {
	params := url.Values{}
	params.Set("access_token", c.token)
	params.Set("limit", "1")
	params.Set("types", strings.Join(types, ","))
	if c.country != "" {
		params.Set("country", c.country)
	}
	return c.baseURL + "/" + search + ".json?" + params.Encode()
}

func (c *Client) lookup(ctx context.Context, method, search string, types []string) (domain.GeocodingResult, error) {
	result, outcome, err := c.fetch(ctx, method, c.endpoint(search, types))
	c.metrics.GeocodeRequests.WithLabelValues(method, outcome).Inc()
	if outcome == "empty" {
		c.logger.Debug("geocode returned no features", "method", method)
	}
	return result, err
}

// fetch performs one request and reports its outcome label.
func (c *Client) fetch(ctx context.Context, method, endpoint string) (domain.GeocodingResult, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.GeocodingResult{}, "error", fmt.Errorf("create %s geocode request: %w", method, err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.GeocodeAPIDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		return domain.GeocodingResult{}, "error", fmt.Errorf("%s geocode request: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.GeocodingResult{}, "error", &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var payload response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.GeocodingResult{}, "error", fmt.Errorf("decode %s geocode response: %w", method, err)
	}
	if len(payload.Features) == 0 {
		return domain.GeocodingResult{}, "empty", nil
	}
	return payload.Features[0].result(), "success", nil
}

type response struct {
	Features []feature `json:"features"`
}

type feature struct {
	Center    []float64 `json:"center"` // [lon, lat]
	PlaceName string    `json:"place_name"`
	Text      string    `json:"text"`
	Relevance float64   `json:"relevance"`
}

func (f feature) result() domain.GeocodingResult {
	r := domain.GeocodingResult{
		FormattedAddress: f.PlaceName,
		PlaceName:        f.Text,
		Confidence:       f.Relevance,
	}
	if len(f.Center) == 2 {
		r.Lon, r.Lat = f.Center[0], f.Center[1]
	}
	return r
}
