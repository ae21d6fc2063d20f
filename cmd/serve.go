package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/geosheet/internal/job"
	"github.com/sells-group/geosheet/internal/sheet"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the upload/download server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		client, cleanup, err := newGeocodeClient()
		if err != nil {
			return err
		}
		defer cleanup()

		env := &serverEnv{
			registry: job.NewRegistry(),
			runner:   newRunner(client),
			baseCtx:  ctx,
			maxBytes: int64(cfg.Server.MaxUploadMB) << 20,
			defaults: job.Params{
				Workers:       cfg.Job.Workers,
				ValidateAreas: cfg.Job.ValidateAreas,
			},
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: env.router(),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(context.Background()) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// serverEnv holds the shared state behind the HTTP handlers.
type serverEnv struct {
	registry *job.Registry
	runner   *job.Runner
	baseCtx  context.Context
	maxBytes int64
	defaults job.Params
}

func (e *serverEnv) router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/template", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="template.xlsx"`)
		if err := sheet.WriteTemplate(w); err != nil {
			zap.L().Error("template write failed", zap.Error(err))
		}
	})

	r.Post("/jobs", e.createJob)
	r.Get("/jobs/{id}", e.getJob)
	r.Get("/jobs/{id}/result", e.getResult)
	r.Delete("/jobs/{id}", e.cancelJob)

	return r
}

func (e *serverEnv) createJob(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, e.maxBytes)
	if err := r.ParseMultipartForm(e.maxBytes); err != nil {
		writeError(w, http.StatusBadRequest, "upload too large or malformed")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close() //nolint:errcheck

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read upload")
		return
	}

	format := sheet.FormatXLSX
	if strings.EqualFold(filepath.Ext(header.Filename), ".csv") {
		format = sheet.FormatCSV
	}

	table, err := sheet.ReadBytes(data, format)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	params := e.defaults
	if v := r.FormValue("workers"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "workers must be an integer")
			return
		}
		params.Workers = n
	}
	params.Workers = clampWorkers(params.Workers)
	if v := r.FormValue("validate"); v != "" {
		params.ValidateAreas = v == "true" || v == "1"
	}

	ctx, cancel := context.WithCancel(e.baseCtx)
	id := e.registry.Create(header.Filename, len(table.Records), table.Format, cancel)

	go e.execute(ctx, id, table, params)

	writeJSON(w, http.StatusAccepted, map[string]string{"id": id})
}

// execute runs one job to completion and records the outcome.
func (e *serverEnv) execute(ctx context.Context, id string, table *sheet.Table, params job.Params) {
	defer func() {
		if r := recover(); r != nil {
			e.registry.Fail(id, fmt.Errorf("panic: %v", r))
		}
	}()

	rows, err := e.runner.Run(ctx, table.Records, params,
		func(completed, total int, _ time.Duration) {
			e.registry.Progress(id, completed)
		})
	if err != nil {
		zap.L().Warn("job stopped", zap.String("id", id), zap.Error(err))
		e.registry.Fail(id, err)
		return
	}

	var buf bytes.Buffer
	if err := sheet.WriteResults(&buf, table.Format, table.Header, rows); err != nil {
		e.registry.Fail(id, err)
		return
	}

	e.registry.Finish(id, buf.Bytes(), sheet.Summarize(rows))
	zap.L().Info("job complete", zap.String("id", id), zap.Int("rows", len(rows)))
}

func (e *serverEnv) getJob(w http.ResponseWriter, r *http.Request) {
	snap, ok := e.registry.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (e *serverEnv) getResult(w http.ResponseWriter, r *http.Request) {
	data, format, err := e.registry.Result(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	if format == sheet.FormatCSV {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="hasil_geocoding.csv"`)
	} else {
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="hasil_geocoding.xlsx"`)
	}
	_, _ = w.Write(data)
}

func (e *serverEnv) cancelJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := e.registry.Cancel(id); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "state": "cancelled"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
