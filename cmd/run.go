package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/geosheet/internal/job"
	"github.com/sells-group/geosheet/internal/sheet"
	"github.com/sells-group/geosheet/pkg/geocode"
)

var (
	runOutput    string
	runWorkers   int
	runValidate  bool
	runSkipCheck bool
)

var runCmd = &cobra.Command{
	Use:   "run <input-file>",
	Short: "Reverse-geocode every row of a spreadsheet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		input := args[0]

		table, err := sheet.ReadFile(input)
		if err != nil {
			return err
		}

		client, cleanup, err := newGeocodeClient()
		if err != nil {
			return err
		}
		defer cleanup()

		if !runSkipCheck {
			if err := client.Check(ctx); err != nil {
				return eris.Wrap(err, "geocoding endpoint unreachable")
			}
		}

		workers := cfg.Job.Workers
		if cmd.Flags().Changed("workers") {
			workers = runWorkers
		}
		workers = clampWorkers(workers)

		validate := cfg.Job.ValidateAreas
		if cmd.Flags().Changed("validate") {
			validate = runValidate
		}

		zap.L().Info("starting run",
			zap.String("input", input),
			zap.Int("rows", len(table.Records)),
			zap.Int("workers", workers),
			zap.Bool("validate", validate),
		)

		bar := progressbar.NewOptions(len(table.Records),
			progressbar.OptionSetDescription("geocoding"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)

		runner := newRunner(client)
		rows, err := runner.Run(ctx, table.Records, job.Params{
			Workers:       workers,
			ValidateAreas: validate,
		}, func(completed, total int, _ time.Duration) {
			_ = bar.Set(completed)
		})
		if err != nil {
			return eris.Wrap(err, "run aborted")
		}
		_ = bar.Finish()

		output := runOutput
		if output == "" {
			ext := filepath.Ext(input)
			output = strings.TrimSuffix(input, ext) + "_hasil" + ext
		}

		out, err := os.Create(output)
		if err != nil {
			return eris.Wrap(err, "create output file")
		}
		defer out.Close() //nolint:errcheck

		if err := sheet.WriteResults(out, table.Format, table.Header, rows); err != nil {
			return err
		}

		summary := sheet.Summarize(rows)
		zap.L().Info("run complete",
			zap.String("output", output),
			zap.Int("rows", summary.Total),
			zap.Float64("mean_confidence", summary.MeanConfidence),
		)
		if sc, ok := client.(interface{ Stats() geocode.Stats }); ok {
			st := sc.Stats()
			zap.L().Debug("endpoint stats",
				zap.Int64("primary_calls", st.PrimaryCalls),
				zap.Int64("fallback_calls", st.FallbackCalls),
				zap.Int64("timeouts", st.Timeouts),
				zap.Int64("rate_limited", st.RateLimited),
				zap.Int64("cache_hits", st.CacheHits),
			)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func init() {
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "output file path (default <input>_hasil.<ext>)")
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "worker count (default from config)")
	runCmd.Flags().BoolVar(&runValidate, "validate", false, "score results against kelurahan/kecamatan columns")
	runCmd.Flags().BoolVar(&runSkipCheck, "skip-check", false, "skip the endpoint connectivity probe")
	rootCmd.AddCommand(runCmd)
}
