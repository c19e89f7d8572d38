package math3d

import (
	"math"
	"testing"
)

func TestRayIntersectTriangle(t *testing.T) {
	a, b, c := V3(0, 0, 0), V3(10, 0, 0), V3(0, 0, 10)

	tests := []struct {
		name string
		ray  Ray
		hit  bool
		dist float64
	}{
		{"from above", NewRay(V3(1, 5, 1), Down()), true, 5},
		{"from below (two-sided)", NewRay(V3(1, -3, 1), Up()), true, 3},
		{"outside triangle", NewRay(V3(8, 5, 8), Down()), false, 0},
		{"pointing away", NewRay(V3(1, 5, 1), Up()), false, 0},
		{"parallel to plane", NewRay(V3(1, 0, 1), V3(1, 0, 0)), false, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d, hit := tc.ray.IntersectTriangle(a, b, c)
			if hit != tc.hit {
				t.Fatalf("hit = %v, want %v", hit, tc.hit)
			}
			if hit && math.Abs(d-tc.dist) > 1e-9 {
				t.Errorf("distance = %v, want %v", d, tc.dist)
			}
		})
	}
}

func TestPlaneDistanceToPoint(t *testing.T) {
	// Plane at Z=0, normal pointing +Z
	plane := PlaneFromNormal(V3(0, 0, 1), Zero3())

	tests := []struct {
		name     string
		point    Vec3
		expected float64
	}{
		{"origin", V3(0, 0, 0), 0},
		{"in front", V3(0, 0, 5), 5},
		{"behind", V3(0, 0, -3), -3},
		{"offset XY", V3(10, -5, 2), 2},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dist := plane.DistanceToPoint(tc.point)
			if math.Abs(dist-tc.expected) > 1e-9 {
				t.Errorf("got %v, want %v", dist, tc.expected)
			}
		})
	}

	if d := plane.Flip().DistanceToPoint(V3(0, 0, 5)); math.Abs(d+5) > 1e-9 {
		t.Errorf("flipped distance = %v, want -5", d)
	}
}

func TestPlaneFromPoints(t *testing.T) {
	p := PlaneFromPoints(V3(0, 0, 0), V3(1, 0, 0), V3(0, 1, 0))
	if p.Normal != V3(0, 0, 1) {
		t.Errorf("normal = %v, want (0, 0, 1)", p.Normal)
	}
}

func TestClosestPointOnSegment(t *testing.T) {
	a, b := V3(0, 0, 0), V3(10, 0, 0)

	tests := []struct {
		name string
		p    Vec3
		want Vec3
	}{
		{"middle", V3(5, 3, 0), V3(5, 0, 0)},
		{"before start", V3(-4, 1, 0), V3(0, 0, 0)},
		{"past end", V3(14, 1, 0), V3(10, 0, 0)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClosestPointOnSegment(a, b, tc.p); got.Distance(tc.want) > 1e-9 {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}

	if got := ClosestPointOnSegment(a, a, V3(1, 1, 1)); got != a {
		t.Errorf("degenerate segment = %v, want %v", got, a)
	}
}
