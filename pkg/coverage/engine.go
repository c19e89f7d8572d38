package coverage

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/taigrr/overfly/pkg/camera"
	"github.com/taigrr/overfly/pkg/math3d"
	"github.com/taigrr/overfly/pkg/mission"
	"github.com/taigrr/overfly/pkg/models"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// DefaultCacheLimit bounds the number of cached visible sets.
const DefaultCacheLimit = 4096

type poseKey struct {
	position  math3d.Vec3
	direction math3d.Vec3
}

// Stats reports cache behaviour.
type Stats struct {
	Hits   uint64
	Misses uint64
	Size   int
}

// Engine computes coverage and overlap for waypoint sequences over one mesh.
// Visible sets are cached per exact camera pose, so editing a waypoint only
// recomputes that waypoint.
type Engine struct {
	mesh     *models.Mesh
	cfg      camera.Config
	resolver *Resolver
	logger   *slog.Logger

	cacheLimit  int
	concurrency int

	mu     sync.Mutex
	cache  map[poseKey]mapset.Set[int]
	hits   uint64
	misses uint64
}

// Option configures an Engine.
type Option func(*Engine)

// WithRequireFacing enables back-face rejection.
func WithRequireFacing(require bool) Option {
	return func(e *Engine) {
		if e.mesh != nil {
			e.resolver = NewResolver(e.mesh, require)
		}
	}
}

// WithLogger sets the logger. A nil logger keeps slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithCacheLimit bounds the visible-set cache. Values below 1 keep the default.
func WithCacheLimit(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.cacheLimit = n
		}
	}
}

// WithConcurrency sets the number of goroutines used by Prime.
func WithConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// NewEngine creates an engine for mesh. A nil or empty mesh yields an engine
// whose coverage figures are unavailable.
func NewEngine(mesh *models.Mesh, cfg camera.Config, opts ...Option) *Engine {
	e := &Engine{
		cfg:         cfg,
		logger:      slog.Default(),
		cacheLimit:  DefaultCacheLimit,
		concurrency: runtime.GOMAXPROCS(0),
		cache:       make(map[poseKey]mapset.Set[int]),
	}
	if mesh != nil && mesh.TriangleCount() > 0 {
		e.mesh = mesh
		e.resolver = NewResolver(mesh, false)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Available reports whether coverage can be computed at all.
func (e *Engine) Available() bool {
	return e.resolver != nil && e.resolver.TotalArea() > 0
}

// Config returns the camera configuration.
func (e *Engine) Config() camera.Config {
	return e.cfg
}

// Pose derives the camera pose for a waypoint against this engine's mesh.
func (e *Engine) Pose(w mission.Waypoint) camera.Pose {
	return camera.PoseFor(w, e.mesh)
}

// Pyramid builds the visibility pyramid for w with a dynamic height.
func (e *Engine) Pyramid(w mission.Waypoint) camera.Pyramid {
	var surface camera.Raycaster
	if e.mesh != nil {
		surface = e.mesh
	}
	return e.cfg.Build(e.Pose(w), surface)
}

// Visible returns the triangles visible from w. The returned set is shared
// with the cache and must not be modified.
func (e *Engine) Visible(w mission.Waypoint) mapset.Set[int] {
	if e.resolver == nil {
		return mapset.NewThreadUnsafeSet[int]()
	}

	pose := e.Pose(w)
	key := poseKey{position: pose.Position, direction: pose.Direction}

	e.mu.Lock()
	if set, ok := e.cache[key]; ok {
		e.hits++
		e.mu.Unlock()
		return set
	}
	e.misses++
	e.mu.Unlock()

	set := e.resolver.Visible(e.cfg.Build(pose, e.mesh))

	e.mu.Lock()
	if len(e.cache) >= e.cacheLimit {
		e.logger.Debug("visible-set cache full, resetting", "entries", len(e.cache))
		clear(e.cache)
	}
	e.cache[key] = set
	e.mu.Unlock()

	return set
}

// Union returns the triangles visible from any waypoint of path.
func (e *Engine) Union(path mission.Path) mapset.Set[int] {
	union := mapset.NewThreadUnsafeSet[int]()
	for _, w := range path {
		e.Visible(w).Each(func(i int) bool {
			union.Add(i)
			return false
		})
	}
	return union
}

// Coverage returns the covered share of mesh area in percent, in [0,100].
// An empty path or an unavailable mesh yields 0.
func (e *Engine) Coverage(path mission.Path) float64 {
	if !e.Available() || len(path) == 0 {
		return 0
	}
	return e.percent(e.resolver.Area(e.Union(path)))
}

// Overlap returns the share of waypoint i's visible area already seen by
// waypoints 0..i-1. It is unavailable for i == 0 or without a mesh.
func (e *Engine) Overlap(path mission.Path, i int) (float64, bool) {
	if !e.Available() || i <= 0 || i >= len(path) {
		return 0, false
	}
	seen, total := e.overlapArea(e.Union(path[:i]), e.Visible(path[i]))
	if total == 0 {
		return 0, true
	}
	return seen / total, true
}

// MeanOverlap returns the area-weighted mean overlap of waypoints 1..n-1.
func (e *Engine) MeanOverlap(path mission.Path) (float64, bool) {
	if !e.Available() || len(path) < 2 {
		return 0, false
	}

	ratios := make([]float64, 0, len(path)-1)
	weights := make([]float64, 0, len(path)-1)
	union := mapset.NewThreadUnsafeSet[int]()
	for i, w := range path {
		vis := e.Visible(w)
		if i > 0 {
			seen, total := e.overlapArea(union, vis)
			if total > 0 {
				ratios = append(ratios, seen/total)
				weights = append(weights, total)
			}
		}
		vis.Each(func(idx int) bool {
			union.Add(idx)
			return false
		})
	}

	if len(ratios) == 0 {
		return 0, true
	}
	return stat.Mean(ratios, weights), true
}

// Prime computes visible sets for every waypoint concurrently so later
// calls hit the cache.
func (e *Engine) Prime(ctx context.Context, path mission.Path) error {
	if e.resolver == nil {
		return nil
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for _, w := range path {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			e.Visible(w)
			return nil
		})
	}
	return g.Wait()
}

// Reset drops every cached visible set.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	clear(e.cache)
}

// Stats returns cache counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Stats{Hits: e.hits, Misses: e.misses, Size: len(e.cache)}
}

// Resolver returns the underlying resolver, or nil without a mesh.
func (e *Engine) Resolver() *Resolver {
	return e.resolver
}

func (e *Engine) overlapArea(seen, vis mapset.Set[int]) (overlap, total float64) {
	return e.resolver.Area(vis.Intersect(seen)), e.resolver.Area(vis)
}

func (e *Engine) percent(area float64) float64 {
	pct := area / e.resolver.TotalArea() * 100
	return max(0, min(100, pct))
}
