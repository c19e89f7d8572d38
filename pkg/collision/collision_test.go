package collision

import (
	"math"
	"testing"

	"github.com/taigrr/overfly/pkg/camera"
	"github.com/taigrr/overfly/pkg/math3d"
	"github.com/taigrr/overfly/pkg/mission"
	"github.com/taigrr/overfly/pkg/models"
)

// wall is a single triangle in the plane x=5 spanning y,z in [0,10].
func wall(t testing.TB) *models.Mesh {
	t.Helper()
	m, err := models.NewMesh("wall", []float64{
		5, 0, 0,
		5, 10, 0,
		5, 0, 10,
	}, nil)
	if err != nil {
		t.Fatalf("NewMesh: %v", err)
	}
	return m
}

// block is a closed 2x2x2 cube centered at (0,1,0).
func block(t testing.TB) *models.Mesh {
	t.Helper()
	m, err := models.NewMesh("block", []float64{
		-1, 0, -1, 1, 0, -1, 1, 0, 1, -1, 0, 1,
		-1, 2, -1, 1, 2, -1, 1, 2, 1, -1, 2, 1,
	}, []uint32{
		0, 2, 1, 0, 3, 2, // bottom
		4, 5, 6, 4, 6, 7, // top
		0, 1, 5, 0, 5, 4, // -z
		2, 3, 7, 2, 7, 6, // +z
		1, 2, 6, 1, 6, 5, // +x
		3, 0, 4, 3, 4, 7, // -x
	})
	if err != nil {
		t.Fatalf("NewMesh: %v", err)
	}
	return m
}

func TestVoxelWallScenario(t *testing.T) {
	g := NewVoxelGrid(wall(t), DefaultResolution)

	if g.Count() == 0 {
		t.Fatal("wall produced no occupied voxels")
	}

	tests := []struct {
		name     string
		a, b     math3d.Vec3
		expected bool
	}{
		{"through wall", math3d.V3(0, 5, 5), math3d.V3(10, 5, 5), true},
		{"stops short", math3d.V3(0, 5, 5), math3d.V3(4, 5, 5), false},
		{"reverse through", math3d.V3(10, 5, 5), math3d.V3(0, 5, 5), true},
		{"above wall", math3d.V3(0, 15, 5), math3d.V3(10, 15, 5), false},
		{"diagonal through", math3d.V3(0, 1, 1), math3d.V3(10, 3, 2), true},
		{"parallel beside", math3d.V3(3, 0, 0), math3d.V3(3, 10, 10), false},
		{"degenerate inside", math3d.V3(5, 1, 1), math3d.V3(5, 1, 1), true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := g.SegmentCollides(tc.a, tc.b); got != tc.expected {
				t.Errorf("SegmentCollides(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.expected)
			}
		})
	}
}

func TestVoxelGridEmpty(t *testing.T) {
	g := NewVoxelGrid(nil, 0)
	if g.Resolution != DefaultResolution {
		t.Errorf("Resolution = %d, want %d", g.Resolution, DefaultResolution)
	}
	if g.SegmentCollides(math3d.V3(0, 0, 0), math3d.V3(1, 1, 1)) {
		t.Error("empty grid should never collide")
	}
	if g.Occupied(0, 0, 0) || g.OccupiedAt(math3d.Zero3()) {
		t.Error("empty grid has no occupied voxels")
	}
}

func TestVoxelOccupancy(t *testing.T) {
	g := NewVoxelGrid(block(t), 8)

	if !g.OccupiedAt(math3d.V3(1, 1, 0)) {
		t.Error("face of the block should be occupied")
	}
	if g.OccupiedAt(math3d.V3(5, 5, 5)) {
		t.Error("point outside the grid should be empty")
	}
	if g.Occupied(-1, 0, 0) || g.Occupied(0, 8, 0) {
		t.Error("out-of-range cells should be empty")
	}
	if got := g.CellSize().X; got <= 0 {
		t.Errorf("CellSize().X = %v, want > 0", got)
	}
}

func TestBoxSegmentHeuristic(t *testing.T) {
	box := NewBox(math3d.NewAABB(math3d.V3(0, 0, 0), math3d.V3(10, 10, 10)))

	tests := []struct {
		name     string
		a, b     math3d.Vec3
		expected bool
	}{
		{"through center", math3d.V3(-5, 5, 5), math3d.V3(15, 5, 5), true},
		{"endpoint inside", math3d.V3(1, 1, 1), math3d.V3(-20, -20, -20), true},
		{"fully outside", math3d.V3(-5, 20, 5), math3d.V3(15, 20, 5), false},
		{"short of box", math3d.V3(-10, 5, 5), math3d.V3(-1, 5, 5), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := box.SegmentHits(tc.a, tc.b); got != tc.expected {
				t.Errorf("SegmentHits(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.expected)
			}
		})
	}
}

func TestSeverity(t *testing.T) {
	box := NewBox(math3d.NewAABB(math3d.V3(0, 0, 0), math3d.V3(3, 4, 0)))

	tests := []struct {
		name  string
		point math3d.Vec3
		want  float64
	}{
		{"center", math3d.V3(1.5, 2, 0), 1},
		{"half diagonal", math3d.V3(0, 0, 0), 0.5},
		{"far away", math3d.V3(100, 0, 0), 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := box.Severity(tc.point); math.Abs(got-tc.want) > 1e-9 {
				t.Errorf("Severity(%v) = %v, want %v", tc.point, got, tc.want)
			}
		})
	}

	point := NewBox(math3d.NewAABB(math3d.V3(1, 1, 1), math3d.V3(1, 1, 1)))
	if got := point.Severity(math3d.V3(1, 1, 1)); got != 1 {
		t.Errorf("degenerate box Severity = %v, want 1", got)
	}
}

func TestDetectorPath(t *testing.T) {
	mesh := block(t)
	path := mission.Path{
		{ID: 1, X: -5, Y: 1, Z: 0},
		{ID: 2, X: 5, Y: 1, Z: 0},  // segment 0 crosses the block
		{ID: 3, X: 5, Y: 10, Z: 0}, // segment 1 stays clear
		{ID: 4, X: 1, Y: 1, Z: 0},  // waypoint on the +x face
	}

	t.Run("voxel", func(t *testing.T) {
		d := NewDetector(mesh, ModeVoxel, 16)
		got := d.Path(path)

		var waypoints, segments []Collision
		for _, c := range got {
			switch c.Kind {
			case KindWaypoint:
				waypoints = append(waypoints, c)
			case KindSegment:
				segments = append(segments, c)
			}
		}

		if len(waypoints) != 1 || waypoints[0].TimeIndex != 3 {
			t.Errorf("waypoint collisions = %+v, want one at index 3", waypoints)
		}
		if len(segments) < 1 || segments[0].TimeIndex != 0 {
			t.Fatalf("segment collisions = %+v, want first at index 0", segments)
		}
		if p := segments[0].Position; math.Abs(p.X) > 1e-9 || math.Abs(p.Y-1) > 1e-9 {
			t.Errorf("segment collision at %v, want (0,1,0)", p)
		}
		if s := segments[0].Severity; math.Abs(s-1) > 1e-9 {
			t.Errorf("severity at center = %v, want 1", s)
		}
		for _, c := range segments {
			if c.TimeIndex == 1 {
				t.Error("segment 1 passes above the block and should not collide")
			}
		}
	})

	t.Run("box", func(t *testing.T) {
		d := NewDetector(mesh, ModeBox, 0)
		if d.Grid() != nil {
			t.Error("box mode should not build a grid")
		}
		got := d.Path(path)
		if len(got) == 0 {
			t.Error("expected collisions in box mode")
		}
	})

	t.Run("nil mesh", func(t *testing.T) {
		d := NewDetector(nil, ModeVoxel, 0)
		if got := d.Path(path); len(got) != 0 {
			t.Errorf("nil mesh collisions = %+v, want none", got)
		}
	})
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeVoxel, false},
		{"voxel", ModeVoxel, false},
		{"box", ModeBox, false},
		{"sphere", "", true},
	}

	for _, tc := range tests {
		got, err := ParseMode(tc.in)
		if (err != nil) != tc.wantErr || got != tc.want {
			t.Errorf("ParseMode(%q) = %q, %v", tc.in, got, err)
		}
	}
}

func TestFrustumOverlap(t *testing.T) {
	cfg := camera.DefaultConfig()
	cfg.Far = 10

	a := camera.NewFrustum(camera.NewPose(math3d.V3(0, 0, 0), math3d.Down()), cfg)
	b := camera.NewFrustum(camera.NewPose(math3d.V3(2, 0, 0), math3d.Down()), cfg)
	far := camera.NewFrustum(camera.NewPose(math3d.V3(500, 0, 0), math3d.Down()), cfg)

	vol, pct, ok := FrustumOverlap(a, b)
	if !ok {
		t.Fatal("adjacent frustums should overlap")
	}
	if vol <= 0 {
		t.Errorf("overlap volume = %v, want > 0", vol)
	}
	if pct <= 0 || pct > 100 {
		t.Errorf("percent = %v, want in (0, 100]", pct)
	}

	if _, _, ok := FrustumOverlap(a, far); ok {
		t.Error("distant frustums should not overlap")
	}

	self, _, _ := FrustumOverlap(a, a)
	if math.Abs(self-a.Bounds().Volume()) > 1e-9 {
		t.Errorf("self overlap = %v, want box volume %v", self, a.Bounds().Volume())
	}
}

func TestObstructions(t *testing.T) {
	cfg := camera.DefaultConfig()
	path := mission.Path{
		{ID: 1, Normal: math3d.Down()},
		{ID: 2, X: 1, Normal: math3d.Down()},
		{ID: 3, X: 1000, Normal: math3d.Down()},
	}

	got := Obstructions(path, nil, cfg)
	if len(got) != 1 {
		t.Fatalf("len = %d, want 1", len(got))
	}
	if got[0].From != 0 || got[0].To != 1 {
		t.Errorf("pair = %d->%d, want 0->1", got[0].From, got[0].To)
	}
}

func BenchmarkSegmentCollides(b *testing.B) {
	g := NewVoxelGrid(block(b), DefaultResolution)
	p0 := math3d.V3(-5, 1, -3)
	p1 := math3d.V3(5, 1.5, 3)

	for b.Loop() {
		_ = g.SegmentCollides(p0, p1)
	}
}

func BenchmarkNewVoxelGrid(b *testing.B) {
	mesh := block(b)
	for b.Loop() {
		_ = NewVoxelGrid(mesh, DefaultResolution)
	}
}
