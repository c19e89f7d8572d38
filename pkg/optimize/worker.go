package optimize

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/taigrr/overfly/pkg/mission"
	"github.com/taigrr/overfly/pkg/models"
)

// State is the lifecycle of a Job.
type State int

// Job states. A job moves Idle -> Running -> one of the terminal states.
const (
	StateIdle State = iota
	StateRunning
	StateDone
	StateFailed
	StateCanceled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	case StateCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	return s >= StateDone
}

// Job is one asynchronous optimization run. The input path is copied when
// the job starts; the caller's path is never touched.
type Job struct {
	ID uuid.UUID

	mu     sync.Mutex
	state  State
	report Report
	err    error
	cancel context.CancelFunc
	done   chan struct{}
}

// State returns the current state.
func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Done is closed when the job reaches a terminal state.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Cancel asks the job to stop. It is safe to call more than once.
func (j *Job) Cancel() {
	j.cancel()
}

// Wait blocks until the job finishes or ctx ends. Abandoning the wait does
// not cancel the job.
func (j *Job) Wait(ctx context.Context) (Report, error) {
	select {
	case <-j.done:
		j.mu.Lock()
		defer j.mu.Unlock()
		return j.report, j.err
	case <-ctx.Done():
		return Report{}, ctx.Err()
	}
}

func (j *Job) finish(report Report, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.report, j.err = report, err
	switch {
	case err == nil:
		j.state = StateDone
	case errors.Is(err, ErrCanceled):
		j.state = StateCanceled
	default:
		j.state = StateFailed
	}
	close(j.done)
}

// Worker runs optimization jobs on a background goroutine, one at a time.
// Starting a job cancels the one in flight.
type Worker struct {
	opts   Options
	logger *slog.Logger

	mu      sync.Mutex
	current *Job
}

// NewWorker creates a worker. A nil logger uses slog.Default().
func NewWorker(opts Options, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{opts: opts, logger: logger}
}

// Start launches a job for a snapshot of path. The job stops when ctx ends
// or Cancel is called.
func (w *Worker) Start(ctx context.Context, path mission.Path, mesh *models.Mesh) *Job {
	ctx, cancel := context.WithCancel(ctx)
	job := &Job{
		ID:     uuid.New(),
		state:  StateRunning,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	snapshot := path.Clone()

	w.mu.Lock()
	if prev := w.current; prev != nil {
		prev.Cancel()
	}
	w.current = job
	w.mu.Unlock()

	logger := w.logger.With("job", job.ID.String(), "points", len(snapshot))
	logger.Debug("optimization started")

	go func() {
		defer cancel()
		report, err := Optimize(ctx, snapshot, mesh, w.opts)
		switch {
		case err == nil:
			logger.Info("optimization finished",
				"baseline", report.BaselineCost,
				"cost", report.Cost,
				"passes", report.Passes,
				"duration", report.Duration)
		case errors.Is(err, ErrCanceled):
			logger.Info("optimization canceled")
		default:
			logger.Error("optimization failed", "err", err)
		}
		job.finish(report, err)

		w.mu.Lock()
		if w.current == job {
			w.current = nil
		}
		w.mu.Unlock()
	}()

	return job
}

// Current returns the running job, or nil.
func (w *Worker) Current() *Job {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Cancel stops the running job, if any.
func (w *Worker) Cancel() {
	if job := w.Current(); job != nil {
		job.Cancel()
	}
}
