// Package geocode reverse geocodes coordinates using the Nominatim public
// API (primary) and Photon (fallback). Both endpoints sit behind shared
// per-endpoint rate gates so the aggregate request rate stays inside each
// service's fair-use limit no matter how many workers call Reverse.
package geocode

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/geosheet/internal/resilience"
)

// Client resolves a coordinate to address fields.
type Client interface {
	// Reverse resolves a single coordinate. The returned error is non-nil
	// only for context cancellation; endpoint failures degrade to
	// NOT_FOUND results instead.
	Reverse(ctx context.Context, lat, lon float64) (*Result, error)

	// Check probes the primary endpoint once, through the shared rate gate.
	Check(ctx context.Context) error
}

// Stats counts client activity across all workers.
type Stats struct {
	PrimaryCalls  int64
	FallbackCalls int64
	Timeouts      int64
	RateLimited   int64
	CacheHits     int64
}

// Option configures the client.
type Option func(*client)

// WithHTTPClient sets a custom HTTP client for both endpoints.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithEndpoints overrides the primary and fallback reverse endpoints.
func WithEndpoints(primary, fallback string) Option {
	return func(c *client) {
		c.primaryURL = primary
		c.fallbackURL = fallback
	}
}

// WithIntervals sets the minimum spacing between requests per endpoint.
// The gate is shared across every goroutine using this client.
func WithIntervals(primary, fallback time.Duration) Option {
	return func(c *client) {
		c.primaryLimiter = rate.NewLimiter(rate.Every(primary), 1)
		c.fallbackLimiter = rate.NewLimiter(rate.Every(fallback), 1)
	}
}

// WithUserAgent sets the User-Agent header. Nominatim requires an
// identifying one.
func WithUserAgent(ua string) Option {
	return func(c *client) {
		c.userAgent = ua
	}
}

// WithLanguage sets the accept-language sent to the primary endpoint.
func WithLanguage(lang string) Option {
	return func(c *client) {
		c.language = lang
	}
}

// WithRetry sets the per-endpoint retry policy for 429s and timeouts.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *client) {
		c.retry = cfg
	}
}

// WithCache attaches a local result cache.
func WithCache(cache *Cache) Option {
	return func(c *client) {
		c.cache = cache
	}
}

type client struct {
	httpClient      *http.Client
	primaryURL      string
	fallbackURL     string
	primaryLimiter  *rate.Limiter
	fallbackLimiter *rate.Limiter
	userAgent       string
	language        string
	retry           resilience.RetryConfig
	cache           *Cache

	primaryCalls  atomic.Int64
	fallbackCalls atomic.Int64
	timeouts      atomic.Int64
	rateLimited   atomic.Int64
	cacheHits     atomic.Int64
}

// NewClient creates a reverse-geocoding client with Nominatim-friendly
// defaults: 1s primary spacing, 0.5s fallback spacing, 15s request timeout.
func NewClient(opts ...Option) Client {
	c := &client{
		httpClient:      &http.Client{Timeout: 15 * time.Second},
		primaryURL:      "https://nominatim.openstreetmap.org/reverse",
		fallbackURL:     "https://photon.komoot.io/reverse",
		primaryLimiter:  rate.NewLimiter(rate.Every(time.Second), 1),
		fallbackLimiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
		userAgent:       "geosheet/1.0 (batch reverse geocoder)",
		language:        "id",
		retry:           resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ValidCoordinate reports whether lat/lon are inside WGS84 bounds.
func ValidCoordinate(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// Reverse resolves one coordinate: range check, cache, primary with bounded
// retry, then fallback, then NOT_FOUND.
func (c *client) Reverse(ctx context.Context, lat, lon float64) (*Result, error) {
	if !ValidCoordinate(lat, lon) {
		return &Result{Status: StatusError}, nil
	}

	key := cacheKey(lat, lon, c.language)
	if c.cache != nil {
		if cached, err := c.cache.lookup(ctx, key); err == nil && cached != nil {
			c.cacheHits.Add(1)
			return cached, nil
		}
	}

	result, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*Result, error) {
		return c.reverseNominatim(ctx, lat, lon)
	})
	if err == nil && result.Status == StatusOK {
		c.storeCache(ctx, key, result)
		return result, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		zap.L().Debug("primary endpoint failed",
			zap.Float64("lat", lat),
			zap.Float64("lon", lon),
			zap.Error(err),
		)
	}

	result, err = resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*Result, error) {
		return c.reversePhoton(ctx, lat, lon)
	})
	if err == nil && result.Status == StatusOK {
		c.storeCache(ctx, key, result)
		return result, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		zap.L().Debug("fallback endpoint failed",
			zap.Float64("lat", lat),
			zap.Float64("lon", lon),
			zap.Error(err),
		)
	}

	notFound := &Result{Status: StatusNotFound}
	c.storeCache(ctx, key, notFound)
	return notFound, nil
}

// Check performs the single throttled probe the run command uses before
// dispatching a whole file at the endpoint.
func (c *client) Check(ctx context.Context) error {
	// Monas, Jakarta. Any stable landmark works; a NOT_FOUND answer still
	// proves the endpoint is reachable.
	_, err := c.reverseNominatim(ctx, -6.1754, 106.8272)
	return err
}

// Stats returns a snapshot of the client counters.
func (c *client) Stats() Stats {
	return Stats{
		PrimaryCalls:  c.primaryCalls.Load(),
		FallbackCalls: c.fallbackCalls.Load(),
		Timeouts:      c.timeouts.Load(),
		RateLimited:   c.rateLimited.Load(),
		CacheHits:     c.cacheHits.Load(),
	}
}

func (c *client) storeCache(ctx context.Context, key string, result *Result) {
	if c.cache == nil {
		return
	}
	if err := c.cache.store(ctx, key, result); err != nil {
		zap.L().Warn("geocode cache store failed", zap.Error(err))
	}
}
