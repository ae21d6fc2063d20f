package job

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/geosheet/internal/sheet"
)

// State is the lifecycle of a server-mode job.
type State string

const (
	StateRunning   State = "running"
	StateDone      State = "done"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Snapshot is the externally visible view of a job.
type Snapshot struct {
	ID        string         `json:"id"`
	Filename  string         `json:"filename"`
	State     State          `json:"state"`
	Total     int            `json:"total"`
	Completed int            `json:"completed"`
	ElapsedMs int64          `json:"elapsed_ms"`
	Error     string         `json:"error,omitempty"`
	Summary   *sheet.Summary `json:"summary,omitempty"`
}

// entry is the mutable server-side job record. Result bytes live in memory;
// jobs are scoped to the process, matching the single-run model of the CLI.
type entry struct {
	mu       sync.Mutex
	snap     Snapshot
	format   sheet.Format
	result   []byte
	cancel   context.CancelFunc
	started  time.Time
	finished time.Time
}

// resultRetention bounds how long a finished job and its result bytes stay
// resident. The server is long-lived; without eviction every completed
// upload would accumulate in memory.
const resultRetention = time.Hour

// Registry tracks jobs for the server mode. All methods are safe for
// concurrent use.
type Registry struct {
	mu   sync.RWMutex
	jobs map[string]*entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{jobs: make(map[string]*entry)}
}

// Create registers a running job and returns its id. Finished jobs past
// the retention window are evicted here, so the map only grows while
// uploads keep arriving.
func (r *Registry) Create(filename string, total int, format sheet.Format, cancel context.CancelFunc) string {
	r.evictExpired()

	id := uuid.NewString()
	e := &entry{
		snap: Snapshot{
			ID:       id,
			Filename: filename,
			State:    StateRunning,
			Total:    total,
		},
		format:  format,
		cancel:  cancel,
		started: time.Now(),
	}

	r.mu.Lock()
	r.jobs[id] = e
	r.mu.Unlock()
	return id
}

func (r *Registry) evictExpired() {
	cutoff := time.Now().Add(-resultRetention)

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.jobs {
		e.mu.Lock()
		expired := e.snap.State != StateRunning && !e.finished.IsZero() && e.finished.Before(cutoff)
		e.mu.Unlock()
		if expired {
			delete(r.jobs, id)
		}
	}
}

func (r *Registry) get(id string) (*entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.jobs[id]
	return e, ok
}

// Progress records a progress tick for a running job.
func (r *Registry) Progress(id string, completed int) {
	e, ok := r.get(id)
	if !ok {
		return
	}
	e.mu.Lock()
	if e.snap.State == StateRunning {
		e.snap.Completed = completed
		e.snap.ElapsedMs = time.Since(e.started).Milliseconds()
	}
	e.mu.Unlock()
}

// Finish marks a job done and stores its downloadable result.
func (r *Registry) Finish(id string, result []byte, summary sheet.Summary) {
	e, ok := r.get(id)
	if !ok {
		return
	}
	e.mu.Lock()
	e.snap.State = StateDone
	e.snap.Summary = &summary
	e.snap.ElapsedMs = time.Since(e.started).Milliseconds()
	e.result = result
	e.finished = time.Now()
	e.mu.Unlock()
}

// Fail marks a job failed. Cancelled jobs keep the cancelled state.
func (r *Registry) Fail(id string, err error) {
	e, ok := r.get(id)
	if !ok {
		return
	}
	e.mu.Lock()
	if e.snap.State != StateCancelled {
		e.snap.State = StateFailed
		e.snap.Error = err.Error()
	}
	e.snap.ElapsedMs = time.Since(e.started).Milliseconds()
	e.finished = time.Now()
	e.mu.Unlock()
}

// Cancel stops a running job. It is a no-op for finished jobs.
func (r *Registry) Cancel(id string) error {
	e, ok := r.get(id)
	if !ok {
		return eris.Errorf("job: id %q not found", id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.snap.State != StateRunning {
		return eris.Errorf("job: %q already %s", id, e.snap.State)
	}
	e.snap.State = StateCancelled
	e.finished = time.Now()
	e.cancel()
	return nil
}

// Get returns the snapshot for id.
func (r *Registry) Get(id string) (Snapshot, bool) {
	e, ok := r.get(id)
	if !ok {
		return Snapshot{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snap, true
}

// Result returns the downloadable bytes and format for a finished job.
func (r *Registry) Result(id string) ([]byte, sheet.Format, error) {
	e, ok := r.get(id)
	if !ok {
		return nil, 0, eris.Errorf("job: id %q not found", id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.snap.State != StateDone {
		return nil, 0, eris.Errorf("job: %q is %s, result not available", id, e.snap.State)
	}
	return e.result, e.format, nil
}
