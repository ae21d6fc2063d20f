package geocode

import (
	"time"

	"github.com/sells-group/geosheet/internal/resilience"
)

const (
	nominatimOKBody = `{
		"display_name": "Jalan Medan Merdeka, Gambir, Jakarta Pusat, DKI Jakarta, Indonesia",
		"address": {
			"road": "Jalan Medan Merdeka",
			"suburb": "Gambir",
			"city_district": "Gambir",
			"city": "Jakarta Pusat",
			"state": "DKI Jakarta"
		}
	}`

	nominatimErrBody = `{"error": "Unable to geocode"}`

	photonOKBody = `{
		"features": [{
			"properties": {
				"name": "Monas",
				"street": "Jalan Silang Merdeka",
				"district": "Gambir",
				"county": "Gambir",
				"city": "Jakarta Pusat",
				"state": "DKI Jakarta",
				"country": "Indonesia"
			}
		}]
	}`

	photonEmptyBody = `{"features": []}`
)

// fastRetry keeps tests quick: immediate retries, no jitter.
func fastRetry(attempts int) resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     time.Millisecond,
		Multiplier:     1.0,
	}
}

// testOptions wires a client to the two test servers with no meaningful
// throttling and a single attempt per endpoint unless overridden.
func testOptions(primaryURL, fallbackURL string, extra ...Option) []Option {
	opts := []Option{
		WithEndpoints(primaryURL, fallbackURL),
		WithIntervals(time.Microsecond, time.Microsecond),
		WithRetry(fastRetry(1)),
	}
	return append(opts, extra...)
}
