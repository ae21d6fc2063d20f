// Package job ties extraction, geocoding, scoring, and assembly into one
// cancellable run, and tracks runs for the server mode.
package job

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/geosheet/internal/pool"
	"github.com/sells-group/geosheet/internal/score"
	"github.com/sells-group/geosheet/internal/sheet"
	"github.com/sells-group/geosheet/pkg/geocode"
)

// Params configures one run.
type Params struct {
	// Workers is the pool size, clamped upstream to [1,5].
	Workers int
	// ValidateAreas enables scoring against the expected kelurahan/kecamatan
	// columns. When false every resolved row takes the baseline score.
	ValidateAreas bool
}

// Runner executes processing runs with a shared client and scorer.
type Runner struct {
	Client geocode.Client
	Scorer *score.Scorer
}

// Run geocodes every record and returns the assembled result rows.
// Record-level failures become status=ERROR rows; only cancellation aborts
// the run, and then only rows never dispatched are missing from the result.
func (r *Runner) Run(ctx context.Context, records []sheet.Record, p Params, onProgress pool.ProgressFunc) ([]sheet.ResultRow, error) {
	outcomes, poolErr := pool.Map(ctx, len(records), pool.Options{
		Workers:    p.Workers,
		OnProgress: onProgress,
	}, func(ctx context.Context, i int) (*geocode.Result, error) {
		return r.Client.Reverse(ctx, records[i].Lat, records[i].Lon)
	})

	rows := make([]sheet.ResultRow, 0, len(outcomes))
	for _, o := range outcomes {
		if !o.Done {
			continue // never dispatched; not a result
		}
		rows = append(rows, r.assemble(records[o.Index], o.Value, o.Err, p))
	}
	return rows, poolErr
}

func (r *Runner) assemble(rec sheet.Record, res *geocode.Result, err error, p Params) sheet.ResultRow {
	if err != nil || res == nil {
		if err != nil {
			zap.L().Warn("row failed",
				zap.Int("row", rec.Index),
				zap.Error(err),
			)
		}
		res = &geocode.Result{Status: geocode.StatusError}
	}

	row := sheet.ResultRow{
		Record:      rec,
		Street:      res.Street,
		Kelurahan:   res.Kelurahan,
		Kecamatan:   res.Kecamatan,
		City:        res.City,
		Province:    res.Province,
		FullAddress: res.FullAddress,
		Status:      string(res.Status),
		Source:      res.Source,
	}

	// Every row is scored. With validation off (or no expected columns)
	// the scorer returns the baseline; with expectations an unresolved row
	// has empty areas and scores 0.
	want1, want2 := rec.ExpectedKelurahan, rec.ExpectedKecamatan
	if !p.ValidateAreas {
		want1, want2 = "", ""
	}
	row.Confidence = r.Scorer.Score(res.Kelurahan, res.Kecamatan, want1, want2)
	return row
}
