// Package geocode resolves postal codes to coordinates via the Nominatim
// search API.
package geocode

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Client geocodes postal codes.
type Client interface {
	// Geocode resolves a single postal code.
	Geocode(ctx context.Context, q Query) (*Result, error)

	// BatchGeocode resolves multiple postal codes with a bounded worker pool.
	BatchGeocode(ctx context.Context, queries []Query) ([]Result, error)
}

// Query identifies one postal code to resolve. City biases the lookup;
// CountryCode (ISO alpha-2, lowercase) restricts it.
type Query struct {
	PostalCode  string
	City        string
	CountryCode string
}

// Result holds the geocoding output for one postal code. An unmatched code is
// not an error: Matched is false and the coordinates are meaningless.
type Result struct {
	PostalCode string
	Latitude   float64
	Longitude  float64
	Matched    bool
}

// Option configures the geocoder.
type Option func(*geocoder)

// WithBaseURL points the client at a different Nominatim instance.
func WithBaseURL(u string) Option {
	return func(g *geocoder) {
		g.baseURL = u
	}
}

// WithUserAgent sets the User-Agent header. The public Nominatim instance
// rejects requests without an identifying agent.
func WithUserAgent(ua string) Option {
	return func(g *geocoder) {
		g.userAgent = ua
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) {
		g.httpClient = hc
	}
}

// WithRateLimit sets the requests-per-second limit. The public instance
// allows at most one request per second.
func WithRateLimit(rps float64) Option {
	return func(g *geocoder) {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		g.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithMaxRetries sets the retry budget for transient failures (503, timeouts).
func WithMaxRetries(n int) Option {
	return func(g *geocoder) {
		if n > 0 {
			g.maxRetries = n
		}
	}
}

// WithBatchConcurrency sets the worker-pool size for BatchGeocode.
func WithBatchConcurrency(n int) Option {
	return func(g *geocoder) {
		if n > 0 {
			g.batchConcurrency = n
		}
	}
}

type geocoder struct {
	baseURL          string
	userAgent        string
	httpClient       *http.Client
	limiter          *rate.Limiter
	maxRetries       int
	batchConcurrency int
	retryDelay       time.Duration
}

// NewClient creates a geocoding Client with the given options.
func NewClient(opts ...Option) Client {
	g := &geocoder{
		baseURL:          "https://nominatim.openstreetmap.org",
		userAgent:        "postal-cli/1.0",
		httpClient:       &http.Client{Timeout: 10 * time.Second},
		limiter:          rate.NewLimiter(1, 1),
		maxRetries:       3,
		batchConcurrency: 4,
		retryDelay:       5 * time.Second,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}
