package camera

import (
	"math/rand"
	"testing"

	"github.com/taigrr/overfly/pkg/math3d"
)

// BenchmarkPyramidBuild benchmarks dynamic height plus pyramid construction.
func BenchmarkPyramidBuild(b *testing.B) {
	cfg := DefaultConfig()
	mesh := groundSquare(b)
	pose := NewPose(math3d.Zero3(), math3d.Down())

	for b.Loop() {
		_ = cfg.Build(pose, mesh)
	}
}

// BenchmarkPyramidContains benchmarks centroid classification.
func BenchmarkPyramidContains(b *testing.B) {
	cfg := DefaultConfig()
	py := NewPyramid(NewPose(math3d.Zero3(), math3d.Down()), cfg, 10)

	rng := rand.New(rand.NewSource(42))
	points := make([]math3d.Vec3, 1024)
	for i := range points {
		points[i] = math3d.V3(rng.Float64()*20-10, -rng.Float64()*12, rng.Float64()*20-10)
	}

	i := 0
	for b.Loop() {
		_ = py.Contains(points[i%len(points)])
		i++
	}
}

// BenchmarkCullingScenario simulates culling N boxes, some visible, some not.
func BenchmarkCullingScenario(b *testing.B) {
	cfg := DefaultConfig()
	f := NewFrustum(NewPose(math3d.V3(0, 10, 20), math3d.V3(0, -10, -20)), cfg)

	rng := rand.New(rand.NewSource(7))
	boxes := make([]math3d.AABB, 1000)
	for i := range boxes {
		c := math3d.V3(rng.Float64()*200-100, rng.Float64()*20, rng.Float64()*200-100)
		boxes[i] = math3d.NewAABB(c.Sub(math3d.V3(1, 1, 1)), c.Add(math3d.V3(1, 1, 1)))
	}

	for b.Loop() {
		visible := 0
		for _, box := range boxes {
			if f.IntersectAABB(box) {
				visible++
			}
		}
		_ = visible
	}
}
