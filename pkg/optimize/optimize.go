package optimize

import (
	"context"
	"fmt"
	"time"

	"github.com/taigrr/overfly/pkg/collision"
	"github.com/taigrr/overfly/pkg/mission"
	"github.com/taigrr/overfly/pkg/models"
)

// Options configures one optimization run.
type Options struct {
	Penalty    float64 // Added to colliding edges
	MaxPasses  int     // 2-opt pass cap
	Resolution int     // Voxel grid resolution per axis
}

// DefaultOptions returns the stock optimizer settings.
func DefaultOptions() Options {
	return Options{
		Penalty:    DefaultCollisionPenalty,
		MaxPasses:  DefaultMaxPasses,
		Resolution: collision.DefaultResolution,
	}
}

// Report describes a finished run.
type Report struct {
	Path         mission.Path  `json:"path"`
	BaselineCost float64       `json:"baselineCost"` // nearest-neighbour cost
	Cost         float64       `json:"cost"`
	Passes       int           `json:"passes"`
	Duration     time.Duration `json:"duration"`
}

// Optimize reorders a snapshot of path. Paths shorter than MinPoints are
// returned unchanged. When mesh is non-nil, a voxel grid is built for this
// run and colliding edges are penalized. Panics inside the run surface as
// ErrOptimizationFailed; cancellation surfaces as ErrCanceled.
func Optimize(ctx context.Context, path mission.Path, mesh *models.Mesh, opts Options) (report Report, err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			report = Report{}
			err = fmt.Errorf("%w: %v", ErrOptimizationFailed, r)
		}
	}()

	snapshot := path.Clone()
	if len(snapshot) < MinPoints {
		return Report{Path: snapshot, Duration: time.Since(start)}, nil
	}

	cost := Cost{Penalty: opts.Penalty}
	if cost.Penalty <= 0 {
		cost.Penalty = DefaultCollisionPenalty
	}
	if mesh != nil && mesh.TriangleCount() > 0 {
		cost.Checker = collision.NewVoxelGrid(mesh, opts.Resolution)
	}

	tour, err := NearestNeighbor(ctx, snapshot, cost)
	if err != nil {
		return Report{}, err
	}
	baseline := cost.Total(tour)

	passes, err := TwoOpt(ctx, tour, cost, opts.MaxPasses)
	if err != nil {
		return Report{}, err
	}

	return Report{
		Path:         tour,
		BaselineCost: baseline,
		Cost:         cost.Total(tour),
		Passes:       passes,
		Duration:     time.Since(start),
	}, nil
}
