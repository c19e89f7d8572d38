// Package planner ties the path history, KPI scheduling and the background
// optimizer together for one mesh.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/taigrr/overfly/pkg/coverage"
	"github.com/taigrr/overfly/pkg/history"
	"github.com/taigrr/overfly/pkg/kpi"
	"github.com/taigrr/overfly/pkg/mission"
	"github.com/taigrr/overfly/pkg/models"
	"github.com/taigrr/overfly/pkg/optimize"
)

// ErrPathChanged is returned when the path was edited while an
// optimization ran. The result is discarded.
var ErrPathChanged = errors.New("path changed during optimization")

// Config gathers the tunables of every component.
type Config struct {
	KPI         kpi.Options
	Optimize    optimize.Options
	Debounce    time.Duration
	HistorySize int
}

// DefaultConfig returns the stock settings.
func DefaultConfig() Config {
	return Config{
		KPI:         kpi.DefaultOptions(),
		Optimize:    optimize.DefaultOptions(),
		Debounce:    kpi.DefaultDebounce,
		HistorySize: history.DefaultMaxSize,
	}
}

// OptimizationRecorder observes finished optimizer runs.
type OptimizationRecorder interface {
	ObserveOptimization(state optimize.State, elapsed time.Duration)
}

// Planner owns the editable path for one mesh. Every committed edit
// schedules a debounced KPI recomputation.
type Planner struct {
	mesh   *models.Mesh
	cfg    Config
	logger *slog.Logger

	store  *history.Store
	calc   *kpi.Calculator
	sched  *kpi.Scheduler
	worker *optimize.Worker

	kpiRecorder kpi.Recorder
	optRecorder OptimizationRecorder
	onMetrics   func(kpi.Result)

	// playback is reused while the path version is unchanged
	playMu      sync.Mutex
	playback    *coverage.Playback
	playVersion uint64

	unsubscribe func()
}

// Option configures a Planner.
type Option func(*Planner)

// WithLogger sets the logger. A nil logger keeps slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Planner) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithMetricsHandler receives every current KPI result.
func WithMetricsHandler(fn func(kpi.Result)) Option {
	return func(p *Planner) {
		p.onMetrics = fn
	}
}

// WithKPIRecorder reports KPI computations to r.
func WithKPIRecorder(r kpi.Recorder) Option {
	return func(p *Planner) {
		p.kpiRecorder = r
	}
}

// WithOptimizationRecorder reports optimizer runs to r.
func WithOptimizationRecorder(r OptimizationRecorder) Option {
	return func(p *Planner) {
		p.optRecorder = r
	}
}

// New creates a planner for mesh, which may be nil, starting from path.
func New(mesh *models.Mesh, path mission.Path, cfg Config, opts ...Option) *Planner {
	p := &Planner{
		mesh:   mesh,
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.store = history.NewStore(path,
		history.WithMaxSize(cfg.HistorySize),
		history.WithLogger(p.logger))

	copts := []kpi.CalculatorOption{kpi.WithLogger(p.logger)}
	if p.kpiRecorder != nil {
		copts = append(copts, kpi.WithRecorder(p.kpiRecorder))
	}
	p.calc = kpi.NewCalculator(mesh, cfg.KPI, copts...)
	p.sched = kpi.NewScheduler(p.calc, cfg.Debounce, p.onMetrics)
	p.worker = optimize.NewWorker(cfg.Optimize, p.logger)

	p.unsubscribe = p.store.Subscribe(func(c history.Change) {
		p.sched.Trigger(c.Path)
	})
	return p
}

// Store returns the path history.
func (p *Planner) Store() *history.Store {
	return p.store
}

// Calculator returns the KPI calculator.
func (p *Planner) Calculator() *kpi.Calculator {
	return p.calc
}

// Metrics returns the latest KPI result.
func (p *Planner) Metrics() kpi.Metrics {
	return p.sched.Latest()
}

// Refresh schedules a recomputation of the current path.
func (p *Planner) Refresh() uint64 {
	return p.sched.Trigger(p.store.Path())
}

// ComputeNow computes KPIs for the current path without debouncing.
func (p *Planner) ComputeNow(ctx context.Context) (kpi.Metrics, error) {
	return p.calc.Compute(ctx, p.store.Path())
}

// CumulativeCoverage returns the covered fraction after the first k
// waypoints of the current path, or nil without a mesh. Prefixes already
// seen for the current path version are not recomputed.
func (p *Planner) CumulativeCoverage(k int) *float64 {
	path, version := p.store.Snapshot()

	p.playMu.Lock()
	defer p.playMu.Unlock()
	if p.playback == nil || p.playVersion != version {
		p.playback = p.calc.Engine().NewPlayback(path)
		p.playVersion = version
	}
	pct, ok := p.playback.CoverageAt(k)
	if !ok {
		return nil
	}
	frac := pct / 100
	return &frac
}

// Optimize reorders the current path on the background worker and blocks
// until it finishes. On success the new order replaces the path as one
// undoable action. The path is untouched on failure or cancellation, and
// ErrPathChanged is returned if it was edited while the job ran.
func (p *Planner) Optimize(ctx context.Context) (optimize.Report, error) {
	path, version := p.store.Snapshot()
	job := p.worker.Start(ctx, path, p.mesh)

	report, err := job.Wait(ctx)
	if err != nil && ctx.Err() != nil {
		// the job ends with ctx; wait for its terminal state
		<-job.Done()
	}
	if p.optRecorder != nil {
		p.optRecorder.ObserveOptimization(job.State(), report.Duration)
	}
	if err != nil {
		return optimize.Report{}, err
	}
	return report, p.commit(version, path, report)
}

// commit swaps in an optimized path computed from the snapshot at version.
func (p *Planner) commit(version uint64, before mission.Path, report optimize.Report) error {
	if slices.Equal(before.IDs(), report.Path.IDs()) {
		if p.store.Version() != version {
			return ErrPathChanged
		}
		p.logger.Debug("optimization kept the existing order")
		return nil
	}
	err := p.store.CompareAndReplace(version, report.Path)
	if errors.Is(err, history.ErrVersionMismatch) {
		return fmt.Errorf("%w: %w", ErrPathChanged, err)
	}
	return err
}

// CancelOptimization stops a running optimization, if any.
func (p *Planner) CancelOptimization() {
	p.worker.Cancel()
}

// Close stops background work. The planner must not be used afterwards.
func (p *Planner) Close() {
	p.unsubscribe()
	p.worker.Cancel()
	p.sched.Stop()
}
