package coverage

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taigrr/overfly/pkg/camera"
	"github.com/taigrr/overfly/pkg/math3d"
	"github.com/taigrr/overfly/pkg/mission"
	"github.com/taigrr/overfly/pkg/models"
)

// groundSquare is a 20x6 upward-facing quad at y=-10.
func groundSquare(t testing.TB) *models.Mesh {
	t.Helper()
	m, err := models.NewMesh("ground", []float64{
		-5, -10, -3,
		-5, -10, 3,
		15, -10, 3,
		15, -10, -3,
	}, []uint32{0, 1, 2, 0, 2, 3})
	require.NoError(t, err)
	return m
}

// randomTerrain scatters n small upward-facing triangles over a 100x100
// field at heights in [floor, floor+span].
func randomTerrain(t testing.TB, rng *rand.Rand, n int, floor, span float64) *models.Mesh {
	t.Helper()
	verts := make([]float64, 0, 9*n)
	for range n {
		x := rng.Float64()*100 - 50
		z := rng.Float64()*100 - 50
		y := floor + rng.Float64()*span
		verts = append(verts,
			x, y, z,
			x, y, z+1,
			x+1, y, z,
		)
	}
	m, err := models.NewMesh("terrain", verts, nil)
	require.NoError(t, err)
	return m
}

func downPath(points ...math3d.Vec3) mission.Path {
	p := make(mission.Path, len(points))
	for i, pt := range points {
		p[i] = mission.Waypoint{ID: i + 1, Normal: math3d.Down()}.WithPosition(pt)
	}
	return p
}

func TestTwoWaypointsOverSquare(t *testing.T) {
	e := NewEngine(groundSquare(t), camera.DefaultConfig())
	path := downPath(math3d.V3(0, 0, 0), math3d.V3(10, 0, 0))

	require.True(t, e.Available())
	assert.InDelta(t, 100, e.Coverage(path), 1e-9)
	assert.InDelta(t, 100, e.Coverage(path[:1]), 1e-9)

	_, ok := e.Overlap(path, 0)
	assert.False(t, ok, "first waypoint has no overlap")

	overlap, ok := e.Overlap(path, 1)
	require.True(t, ok)
	assert.InDelta(t, 1.0, overlap, 1e-9)

	mean, ok := e.MeanOverlap(path)
	require.True(t, ok)
	assert.InDelta(t, 1.0, mean, 1e-9)
}

func TestVisibleSets(t *testing.T) {
	e := NewEngine(groundSquare(t), camera.DefaultConfig())

	vis := e.Visible(mission.Waypoint{ID: 1, Normal: math3d.Down()})
	assert.ElementsMatch(t, []int{0, 1}, vis.ToSlice())

	// Looking up sees nothing.
	vis = e.Visible(mission.Waypoint{ID: 2, Normal: math3d.Up()})
	assert.Equal(t, 0, vis.Cardinality())

	// Far to the side, looking down past the square.
	vis = e.Visible(mission.Waypoint{ID: 3, X: 100, Normal: math3d.Down()})
	assert.Equal(t, 0, vis.Cardinality())
}

func TestRequireFacing(t *testing.T) {
	mesh := groundSquare(t)
	below := mission.Waypoint{ID: 1, Y: -20, Normal: math3d.Up()}

	open := NewEngine(mesh, camera.DefaultConfig())
	assert.Equal(t, 2, open.Visible(below).Cardinality(), "back faces count without facing check")

	facing := NewEngine(mesh, camera.DefaultConfig(), WithRequireFacing(true))
	assert.Equal(t, 0, facing.Visible(below).Cardinality(), "back faces rejected")

	above := mission.Waypoint{ID: 2, Normal: math3d.Down()}
	assert.Equal(t, 2, facing.Visible(above).Cardinality())
}

func TestVisibleWholeMeshInView(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	mesh := randomTerrain(t, rng, 200, -5, 5)
	cfg := camera.DefaultConfig()

	above := camera.NewPyramid(camera.NewPose(math3d.V3(0, 200, 0), math3d.Down()), cfg, 300)
	require.True(t, above.ContainsBox(mesh.Bounds()))

	all := make([]int, mesh.TriangleCount())
	for i := range all {
		all[i] = i
	}
	assert.ElementsMatch(t, all, NewResolver(mesh, false).Visible(above).ToSlice())
	assert.ElementsMatch(t, all, NewResolver(mesh, true).Visible(above).ToSlice())

	below := camera.NewPyramid(camera.NewPose(math3d.V3(0, -200, 0), math3d.Up()), cfg, 300)
	require.True(t, below.ContainsBox(mesh.Bounds()))
	assert.Equal(t, 200, NewResolver(mesh, false).Visible(below).Cardinality())
	assert.Equal(t, 0, NewResolver(mesh, true).Visible(below).Cardinality(), "back faces rejected")
}

func TestUnavailable(t *testing.T) {
	e := NewEngine(nil, camera.DefaultConfig())
	path := downPath(math3d.V3(0, 0, 0), math3d.V3(10, 0, 0))

	assert.False(t, e.Available())
	assert.Zero(t, e.Coverage(path))
	_, ok := e.Overlap(path, 1)
	assert.False(t, ok)
	_, ok = e.MeanOverlap(path)
	assert.False(t, ok)
	assert.NoError(t, e.Prime(context.Background(), path))

	empty, err := models.NewMesh("empty", nil, nil)
	require.NoError(t, err)
	assert.False(t, NewEngine(empty, camera.DefaultConfig()).Available())
}

func TestEmptyPath(t *testing.T) {
	e := NewEngine(groundSquare(t), camera.DefaultConfig())
	assert.Zero(t, e.Coverage(nil))
}

func TestCoverageMonotonicAndBounded(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	mesh := randomTerrain(t, rng, 400, -20, 4)
	e := NewEngine(mesh, camera.DefaultConfig())

	for trial := range 5 {
		n := 3 + rng.IntN(8)
		path := make(mission.Path, n)
		for i := range path {
			path[i] = mission.Waypoint{
				ID:     i + 1,
				X:      rng.Float64()*100 - 50,
				Y:      rng.Float64() * 20,
				Z:      rng.Float64()*100 - 50,
				Normal: math3d.V3(rng.Float64()-0.5, -1, rng.Float64()-0.5),
			}
		}

		prev := 0.0
		for k := 1; k <= n; k++ {
			got := e.Coverage(path[:k])
			assert.GreaterOrEqual(t, got, prev, "trial %d prefix %d", trial, k)
			assert.GreaterOrEqual(t, got, 0.0)
			assert.LessOrEqual(t, got, 100.0)
			prev = got
		}
	}
}

func TestFullCoverageGrid(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	mesh := randomTerrain(t, rng, 200, -18, 0)
	cfg := camera.DefaultConfig()
	cfg.FallbackHeight = 30
	e := NewEngine(mesh, cfg)

	// A lawnmower grid at y=0 looking straight down covers the field.
	var path mission.Path
	id := 1
	for x := -50.0; x <= 51; x += 10 {
		for z := -50.0; z <= 51; z += 8 {
			path = append(path, mission.Waypoint{ID: id, X: x, Z: z, Normal: math3d.Down()})
			id++
		}
	}

	assert.InDelta(t, 100, e.Coverage(path), 1e-9)
}

func TestPlaybackMatchesCoverage(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 6))
	mesh := randomTerrain(t, rng, 300, -20, 4)
	cfg := camera.DefaultConfig()
	cfg.FallbackHeight = 30
	e := NewEngine(mesh, cfg)

	var path mission.Path
	for i := range 12 {
		path = append(path, mission.Waypoint{
			ID:     i + 1,
			X:      float64(i*8) - 45,
			Y:      5,
			Z:      rng.Float64()*40 - 20,
			Normal: math3d.Down(),
		})
	}

	pb := e.NewPlayback(path)
	require.Equal(t, len(path), pb.Len())

	// Scrub backwards first so the lazy extension runs in one jump.
	for k := len(path); k >= 0; k-- {
		got, ok := pb.CoverageAt(k)
		require.True(t, ok)
		assert.InDelta(t, e.Coverage(path[:k]), got, 1e-9, "prefix %d", k)
	}

	got, ok := pb.CoverageAt(len(path) + 5)
	require.True(t, ok)
	assert.InDelta(t, e.Coverage(path), got, 1e-9)

	_, ok = NewEngine(nil, camera.DefaultConfig()).NewPlayback(path).CoverageAt(1)
	assert.False(t, ok)
}

func TestCacheAndPrime(t *testing.T) {
	e := NewEngine(groundSquare(t), camera.DefaultConfig(), WithConcurrency(2))
	path := downPath(math3d.V3(0, 0, 0), math3d.V3(10, 0, 0), math3d.V3(5, 0, 0))

	require.NoError(t, e.Prime(context.Background(), path))
	stats := e.Stats()
	assert.Equal(t, 3, stats.Size)
	assert.EqualValues(t, 3, stats.Misses)

	e.Coverage(path)
	assert.EqualValues(t, 3, e.Stats().Hits)

	// Moving a waypoint misses the cache for that waypoint only.
	path[1].X = 11
	e.Coverage(path)
	stats = e.Stats()
	assert.EqualValues(t, 4, stats.Misses)
	assert.Equal(t, 4, stats.Size)

	e.Reset()
	assert.Zero(t, e.Stats().Size)
}

func TestCacheLimit(t *testing.T) {
	e := NewEngine(groundSquare(t), camera.DefaultConfig(), WithCacheLimit(2))
	for i := range 5 {
		e.Visible(mission.Waypoint{ID: i, X: float64(i), Normal: math3d.Down()})
	}
	assert.LessOrEqual(t, e.Stats().Size, 2)
}

func TestPrimeCanceled(t *testing.T) {
	e := NewEngine(groundSquare(t), camera.DefaultConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := e.Prime(ctx, downPath(math3d.V3(0, 0, 0), math3d.V3(1, 0, 0)))
	assert.ErrorIs(t, err, context.Canceled)
}

func BenchmarkVisible(b *testing.B) {
	rng := rand.New(rand.NewPCG(9, 9))
	mesh := randomTerrain(b, rng, 20000, -20, 4)
	res := NewResolver(mesh, true)
	cfg := camera.DefaultConfig()
	py := cfg.Build(camera.NewPose(math3d.V3(0, 10, 0), math3d.Down()), mesh)

	for b.Loop() {
		_ = res.Visible(py)
	}
}
