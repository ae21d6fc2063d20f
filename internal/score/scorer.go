// Package score derives a confidence score for a geocoding result by
// comparing returned administrative areas against user-supplied expectations.
package score

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Thresholds holds the score breakpoints. They are configuration, not
// constants: the exact values are a product decision that may move.
type Thresholds struct {
	// Baseline is returned when no expected areas were supplied.
	Baseline float64
	// BothMatch .. NoMatch apply when expectations exist; see Score.
	BothMatch float64
	OneMatch  float64
	NoMatch   float64
}

// DefaultThresholds returns the stock breakpoints.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Baseline:  0.8,
		BothMatch: 1.0,
		OneMatch:  0.6,
		NoMatch:   0.3,
	}
}

// Scorer compares area names. It is pure and safe for concurrent use.
type Scorer struct {
	t Thresholds
}

// New creates a Scorer with the given thresholds.
func New(t Thresholds) *Scorer {
	return &Scorer{t: t}
}

// Score compares the geocoder's kelurahan/kecamatan against the expected
// values. Without expectations it returns the baseline. With expectations:
// every supplied field matches -> BothMatch, some match -> OneMatch, none
// match -> NoMatch, and a result carrying no area strings at all scores 0.
// The result is always clamped to [0,1].
func (s *Scorer) Score(gotKelurahan, gotKecamatan, wantKelurahan, wantKecamatan string) float64 {
	wantKelurahan = strings.TrimSpace(wantKelurahan)
	wantKecamatan = strings.TrimSpace(wantKecamatan)

	if wantKelurahan == "" && wantKecamatan == "" {
		return clamp(s.t.Baseline)
	}

	if strings.TrimSpace(gotKelurahan) == "" && strings.TrimSpace(gotKecamatan) == "" {
		return 0.0
	}

	supplied, matched := 0, 0
	if wantKelurahan != "" {
		supplied++
		if Normalize(gotKelurahan) == Normalize(wantKelurahan) {
			matched++
		}
	}
	if wantKecamatan != "" {
		supplied++
		if Normalize(gotKecamatan) == Normalize(wantKecamatan) {
			matched++
		}
	}

	switch {
	case matched == supplied:
		return clamp(s.t.BothMatch)
	case matched > 0:
		return clamp(s.t.OneMatch)
	default:
		return clamp(s.t.NoMatch)
	}
}

// Normalize lowercases, trims, strips diacritics, and collapses inner
// whitespace so "  Ménteng " compares equal to "menteng".
func Normalize(s string) string {
	s, _, _ = transform.String(
		transform.Chain(
			norm.NFD,
			runes.Remove(runes.In(unicode.Mn)),
			norm.NFC,
		),
		strings.TrimSpace(strings.ToLower(s)),
	)
	return strings.Join(strings.Fields(s), " ")
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
