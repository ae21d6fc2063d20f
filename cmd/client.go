package main

import (
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/geosheet/internal/config"
	"github.com/sells-group/geosheet/internal/job"
	"github.com/sells-group/geosheet/internal/resilience"
	"github.com/sells-group/geosheet/internal/score"
	"github.com/sells-group/geosheet/pkg/geocode"
)

// newGeocodeClient builds the shared client from config. The returned
// cleanup closes the result cache when one was opened.
func newGeocodeClient() (geocode.Client, func(), error) {
	retry := resilience.DefaultRetryConfig()
	if cfg.Geocode.MaxAttempts > 0 {
		retry.MaxAttempts = cfg.Geocode.MaxAttempts
	}

	opts := []geocode.Option{
		geocode.WithEndpoints(cfg.Geocode.PrimaryURL, cfg.Geocode.FallbackURL),
		geocode.WithIntervals(
			time.Duration(cfg.Geocode.PrimaryIntervalMs)*time.Millisecond,
			time.Duration(cfg.Geocode.FallbackIntervalMs)*time.Millisecond,
		),
		geocode.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Geocode.TimeoutSecs) * time.Second}),
		geocode.WithUserAgent(cfg.Geocode.UserAgent),
		geocode.WithLanguage(cfg.Geocode.Language),
		geocode.WithRetry(retry),
	}

	cleanup := func() {}
	if cfg.Cache.Enabled {
		cache, err := geocode.OpenCache(cfg.Cache.Path, cfg.Cache.TTLDays)
		if err != nil {
			return nil, nil, eris.Wrap(err, "open result cache")
		}
		opts = append(opts, geocode.WithCache(cache))
		cleanup = func() { _ = cache.Close() }
	}

	return geocode.NewClient(opts...), cleanup, nil
}

func newRunner(client geocode.Client) *job.Runner {
	return &job.Runner{
		Client: client,
		Scorer: score.New(score.Thresholds{
			Baseline:  cfg.Score.Baseline,
			BothMatch: cfg.Score.BothMatch,
			OneMatch:  cfg.Score.OneMatch,
			NoMatch:   cfg.Score.NoMatch,
		}),
	}
}

func clampWorkers(n int) int {
	if n < config.MinWorkers {
		return config.MinWorkers
	}
	if n > config.MaxWorkers {
		return config.MaxWorkers
	}
	return n
}
