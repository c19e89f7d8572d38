package kpi

import (
	"context"
	"log/slog"
	"time"

	"github.com/taigrr/overfly/pkg/camera"
	"github.com/taigrr/overfly/pkg/collision"
	"github.com/taigrr/overfly/pkg/coverage"
	"github.com/taigrr/overfly/pkg/flight"
	"github.com/taigrr/overfly/pkg/mission"
	"github.com/taigrr/overfly/pkg/models"
)

// Options configures KPI computation.
type Options struct {
	Camera           camera.Config
	Flight           flight.Config
	RequireFacing    bool
	CollisionMode    collision.Mode
	VoxelResolution  int
	CheckObstruction bool
}

// DefaultOptions returns voxel collision checks with the stock camera and
// drone models.
func DefaultOptions() Options {
	return Options{
		Camera:          camera.DefaultConfig(),
		Flight:          flight.DefaultConfig(),
		CollisionMode:   collision.ModeVoxel,
		VoxelResolution: collision.DefaultResolution,
	}
}

// Recorder observes finished computations.
type Recorder interface {
	ObserveKPI(m Metrics, elapsed time.Duration)
}

// Calculator computes KPIs for one mesh. Visible sets are cached across
// calls, so repeated computations after small edits are cheap.
// It is safe for concurrent use.
type Calculator struct {
	mesh     *models.Mesh
	opts     Options
	engine   *coverage.Engine
	detector *collision.Detector
	logger   *slog.Logger
	recorder Recorder
}

// CalculatorOption configures a Calculator.
type CalculatorOption func(*Calculator)

// WithLogger sets the logger. A nil logger keeps slog.Default().
func WithLogger(l *slog.Logger) CalculatorOption {
	return func(c *Calculator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRecorder reports every finished computation to r.
func WithRecorder(r Recorder) CalculatorOption {
	return func(c *Calculator) {
		c.recorder = r
	}
}

// NewCalculator prepares the coverage engine and collision detector for
// mesh. A nil mesh is allowed; coverage and overlap are then unavailable.
func NewCalculator(mesh *models.Mesh, opts Options, copts ...CalculatorOption) *Calculator {
	c := &Calculator{
		mesh:   mesh,
		opts:   opts,
		logger: slog.Default(),
	}
	for _, opt := range copts {
		opt(c)
	}
	c.engine = coverage.NewEngine(mesh, opts.Camera,
		coverage.WithRequireFacing(opts.RequireFacing),
		coverage.WithLogger(c.logger))
	c.detector = collision.NewDetector(mesh, opts.CollisionMode, opts.VoxelResolution)
	return c
}

// Engine returns the coverage engine.
func (c *Calculator) Engine() *coverage.Engine {
	return c.engine
}

// Detector returns the collision detector.
func (c *Calculator) Detector() *collision.Detector {
	return c.detector
}

// Mesh returns the mesh, which may be nil.
func (c *Calculator) Mesh() *models.Mesh {
	return c.mesh
}

// Compute returns the KPIs for path. Paths with fewer than two waypoints
// or invalid values are rejected. ctx cancels visibility work.
func (c *Calculator) Compute(ctx context.Context, path mission.Path) (Metrics, error) {
	if err := path.RequireKPI(); err != nil {
		return Failed(err), err
	}
	start := time.Now()

	fm := c.opts.Flight.Compute(path)
	m := Metrics{
		PathLength: fm.Length,
		FlightTime: fm.Time,
		Energy:     fm.Energy,
		Climb:      fm.Climb,
		Waypoints:  len(path),
	}

	if c.engine.Available() {
		if err := c.engine.Prime(ctx, path); err != nil {
			return Failed(err), err
		}
		cov := c.engine.Coverage(path) / 100
		m.Coverage = &cov
		if ov, ok := c.engine.MeanOverlap(path); ok {
			m.Overlap = &ov
		}
	}

	m.CollisionDetails = c.detector.Path(path)
	if m.CollisionDetails == nil {
		m.CollisionDetails = []collision.Collision{}
	}
	m.CollisionCount = len(m.CollisionDetails)
	m.HasCollision = m.CollisionCount > 0

	if c.opts.CheckObstruction {
		m.Obstructions = collision.Obstructions(path, c.mesh, c.opts.Camera)
	}

	if err := ctx.Err(); err != nil {
		return Failed(err), err
	}
	m.Status = StatusComplete
	m.Progress = 1

	elapsed := time.Since(start)
	c.logger.Debug("kpis computed",
		"waypoints", len(path),
		"collisions", m.CollisionCount,
		"elapsed", elapsed)
	if c.recorder != nil {
		c.recorder.ObserveKPI(m, elapsed)
	}
	return m, nil
}

// CumulativeCoverage returns the covered fraction using the first k
// waypoints of path, or nil when coverage is unavailable. Each call walks
// the prefix again; scrubbing callers should hold a coverage.Playback.
func (c *Calculator) CumulativeCoverage(path mission.Path, k int) *float64 {
	pct, ok := c.engine.NewPlayback(path).CoverageAt(k)
	if !ok {
		return nil
	}
	frac := pct / 100
	return &frac
}

// Compute is a one-shot KPI computation.
func Compute(ctx context.Context, path mission.Path, mesh *models.Mesh, opts Options) (Metrics, error) {
	return NewCalculator(mesh, opts).Compute(ctx, path)
}

// CumulativeCoverage is a one-shot prefix coverage computation for
// playback scrubbing.
func CumulativeCoverage(path mission.Path, mesh *models.Mesh, k int, opts Options) *float64 {
	return NewCalculator(mesh, opts).CumulativeCoverage(path, k)
}
