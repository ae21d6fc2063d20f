package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore_NoExpectations(t *testing.T) {
	s := New(DefaultThresholds())
	assert.InDelta(t, 0.8, s.Score("Menteng", "Menteng", "", ""), 1e-9)
	assert.InDelta(t, 0.8, s.Score("", "", "", ""), 1e-9)
}

func TestScore_BothMatch(t *testing.T) {
	s := New(DefaultThresholds())
	got := s.Score("Menteng", "Menteng", "Menteng", "Menteng")
	assert.InDelta(t, 1.0, got, 1e-9)
}

func TestScore_OneMatch(t *testing.T) {
	s := New(DefaultThresholds())
	got := s.Score("Menteng", "Gambir", "Menteng", "Tanah Abang")
	assert.InDelta(t, 0.6, got, 1e-9)
}

func TestScore_NoMatch(t *testing.T) {
	s := New(DefaultThresholds())
	got := s.Score("Petojo", "Gambir", "Menteng", "Tanah Abang")
	assert.InDelta(t, 0.3, got, 1e-9)
}

func TestScore_NoAreaStrings(t *testing.T) {
	s := New(DefaultThresholds())
	got := s.Score("", "", "Menteng", "Menteng")
	assert.InDelta(t, 0.0, got, 1e-9)
}

func TestScore_SingleExpectationMatchCountsAsFull(t *testing.T) {
	s := New(DefaultThresholds())
	got := s.Score("Menteng", "Gambir", "Menteng", "")
	assert.InDelta(t, 1.0, got, 1e-9)
}

func TestScore_NormalizationRules(t *testing.T) {
	s := New(DefaultThresholds())
	got := s.Score("  MÉNTENG ", "tanah  abang", "menteng", "Tanah Abang")
	assert.InDelta(t, 1.0, got, 1e-9)
}

func TestScore_ClampsConfiguredValues(t *testing.T) {
	s := New(Thresholds{Baseline: 1.7, BothMatch: -0.5})
	assert.InDelta(t, 1.0, s.Score("x", "y", "", ""), 1e-9)
	assert.InDelta(t, 0.0, s.Score("a", "b", "a", "b"), 1e-9)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "menteng", Normalize("  MÉNTENG "))
	assert.Equal(t, "tanah abang", Normalize("Tanah\tAbang"))
	assert.Equal(t, "", Normalize("   "))
}
