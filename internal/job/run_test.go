package job

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/geosheet/internal/score"
	"github.com/sells-group/geosheet/internal/sheet"
	"github.com/sells-group/geosheet/pkg/geocode"
)

// stubClient resolves coordinates from a fixed function, no network.
type stubClient struct {
	fn func(lat, lon float64) (*geocode.Result, error)
}

func (s *stubClient) Reverse(_ context.Context, lat, lon float64) (*geocode.Result, error) {
	return s.fn(lat, lon)
}

func (s *stubClient) Check(context.Context) error { return nil }

func okResult(kelurahan, kecamatan string) *geocode.Result {
	return &geocode.Result{
		Street:      "Jalan Kebon Sirih",
		Kelurahan:   kelurahan,
		Kecamatan:   kecamatan,
		City:        "Jakarta Pusat",
		Province:    "DKI Jakarta",
		FullAddress: "Jalan Kebon Sirih, Jakarta Pusat",
		Source:      geocode.SourceNominatim,
		Status:      geocode.StatusOK,
	}
}

func newRunner(fn func(lat, lon float64) (*geocode.Result, error)) *Runner {
	return &Runner{
		Client: &stubClient{fn: fn},
		Scorer: score.New(score.DefaultThresholds()),
	}
}

func records(n int) []sheet.Record {
	recs := make([]sheet.Record, n)
	for i := range recs {
		recs[i] = sheet.Record{Index: i, Lat: -6.2, Lon: 106.8}
	}
	return recs
}

func TestRun_EndToEnd(t *testing.T) {
	// Real client against a fake Nominatim: exercises range validation,
	// the shared gate, and assembly in one pass.
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"display_name": "Jalan Medan Merdeka, Gambir, Jakarta Pusat",
			"address": {"road": "Jalan Medan Merdeka", "suburb": "Gambir", "city_district": "Gambir", "city": "Jakarta Pusat", "state": "DKI Jakarta"}
		}`)
	}))
	defer primary.Close()

	runner := &Runner{
		Client: geocode.NewClient(
			geocode.WithEndpoints(primary.URL, primary.URL),
			geocode.WithIntervals(time.Microsecond, time.Microsecond),
		),
		Scorer: score.New(score.DefaultThresholds()),
	}

	recs := []sheet.Record{
		{Index: 0, Lat: -6.2088, Lon: 106.8456, ExpectedKelurahan: "Gambir"},
		{Index: 1, Lat: 200, Lon: 106.8456}, // out of range
		{Index: 2, Lat: -6.1751, Lon: 106.8650},
	}

	var mu sync.Mutex
	var progress []int
	rows, err := runner.Run(context.Background(), recs, Params{Workers: 3, ValidateAreas: true},
		func(completed, total int, _ time.Duration) {
			mu.Lock()
			progress = append(progress, completed)
			mu.Unlock()
			assert.Equal(t, 3, total)
		})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	byIndex := map[int]sheet.ResultRow{}
	for _, row := range rows {
		byIndex[row.Record.Index] = row
	}

	assert.Equal(t, "OK", byIndex[0].Status)
	assert.InDelta(t, 1.0, byIndex[0].Confidence, 1e-9)

	assert.Equal(t, "ERROR", byIndex[1].Status)
	assert.Empty(t, byIndex[1].FullAddress)
	assert.InDelta(t, 0.8, byIndex[1].Confidence, 1e-9, "no expectations: baseline")

	assert.Equal(t, "OK", byIndex[2].Status)
	assert.InDelta(t, 0.8, byIndex[2].Confidence, 1e-9, "no expectations: baseline")

	assert.Equal(t, []int{1, 2, 3}, progress)
}

func TestRun_ConfidencePolicy(t *testing.T) {
	tests := []struct {
		name     string
		result   *geocode.Result
		record   sheet.Record
		validate bool
		want     float64
	}{
		{
			name:     "both match",
			result:   okResult("Menteng", "Menteng"),
			record:   sheet.Record{ExpectedKelurahan: "Menteng", ExpectedKecamatan: "Menteng"},
			validate: true,
			want:     1.0,
		},
		{
			name:     "full mismatch",
			result:   okResult("Petojo", "Gambir"),
			record:   sheet.Record{ExpectedKelurahan: "Menteng", ExpectedKecamatan: "Menteng"},
			validate: true,
			want:     0.3,
		},
		{
			name:     "no area strings returned",
			result:   okResult("", ""),
			record:   sheet.Record{ExpectedKelurahan: "Menteng", ExpectedKecamatan: "Menteng"},
			validate: true,
			want:     0.0,
		},
		{
			name:     "validation off ignores expectations",
			result:   okResult("Petojo", "Gambir"),
			record:   sheet.Record{ExpectedKelurahan: "Menteng", ExpectedKecamatan: "Menteng"},
			validate: false,
			want:     0.8,
		},
		{
			name:     "not found with expectations scores zero",
			result:   &geocode.Result{Status: geocode.StatusNotFound},
			record:   sheet.Record{ExpectedKelurahan: "Menteng"},
			validate: true,
			want:     0.0,
		},
		{
			name:     "not found without validation takes baseline",
			result:   &geocode.Result{Status: geocode.StatusNotFound},
			record:   sheet.Record{ExpectedKelurahan: "Menteng"},
			validate: false,
			want:     0.8,
		},
		{
			name:     "not found without expectations takes baseline",
			result:   &geocode.Result{Status: geocode.StatusNotFound},
			record:   sheet.Record{},
			validate: true,
			want:     0.8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := newRunner(func(_, _ float64) (*geocode.Result, error) { return tt.result, nil })
			rows, err := runner.Run(context.Background(), []sheet.Record{tt.record},
				Params{Workers: 1, ValidateAreas: tt.validate}, nil)
			require.NoError(t, err)
			require.Len(t, rows, 1)
			assert.InDelta(t, tt.want, rows[0].Confidence, 1e-9)
		})
	}
}

func TestRun_RowErrorBecomesErrorStatus(t *testing.T) {
	runner := newRunner(func(lat, _ float64) (*geocode.Result, error) {
		if lat == -6.2 {
			return nil, errors.New("endpoint exploded")
		}
		return okResult("Gambir", "Gambir"), nil
	})

	recs := records(3)
	recs[1].Lat = -7.0 // only row 1 succeeds

	rows, err := runner.Run(context.Background(), recs, Params{Workers: 2}, nil)
	require.NoError(t, err, "row failures never abort the run")
	require.Len(t, rows, 3)

	statuses := map[int]string{}
	for _, row := range rows {
		statuses[row.Record.Index] = row.Status
	}
	assert.Equal(t, "ERROR", statuses[0])
	assert.Equal(t, "OK", statuses[1])
	assert.Equal(t, "ERROR", statuses[2])
}

func TestRun_RowIndexBijection(t *testing.T) {
	runner := newRunner(func(_, _ float64) (*geocode.Result, error) {
		return okResult("Gambir", "Gambir"), nil
	})

	rows, err := runner.Run(context.Background(), records(50), Params{Workers: 5}, nil)
	require.NoError(t, err)
	require.Len(t, rows, 50)

	seen := map[int]bool{}
	for _, row := range rows {
		assert.False(t, seen[row.Record.Index], "duplicate row %d", row.Record.Index)
		seen[row.Record.Index] = true
	}
	assert.Len(t, seen, 50)
}

func TestRun_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var calls int
	var mu sync.Mutex
	runner := newRunner(func(_, _ float64) (*geocode.Result, error) {
		mu.Lock()
		calls++
		if calls == 2 {
			cancel()
		}
		mu.Unlock()
		return okResult("Gambir", "Gambir"), nil
	})

	rows, err := runner.Run(ctx, records(40), Params{Workers: 1}, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, len(rows), 40)
	for _, row := range rows {
		assert.Equal(t, "OK", row.Status, "returned rows are always complete")
	}
}
