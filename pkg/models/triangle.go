package models

import (
	"github.com/taigrr/overfly/pkg/math3d"
)

// Triangle is a triangle derived from a mesh; it is never stored.
type Triangle struct {
	A, B, C math3d.Vec3
}

// Area returns half the length of the edge cross product.
func (t Triangle) Area() float64 {
	return 0.5 * t.B.Sub(t.A).Cross(t.C.Sub(t.A)).Len()
}

// Centroid returns the mean of the three vertices.
func (t Triangle) Centroid() math3d.Vec3 {
	return t.A.Add(t.B).Add(t.C).Scale(1.0 / 3)
}

// Normal returns the unit face normal following the A→B→C winding.
// Degenerate triangles return the zero vector.
func (t Triangle) Normal() math3d.Vec3 {
	n := t.B.Sub(t.A).Cross(t.C.Sub(t.A))
	if n.IsZero() {
		return math3d.Zero3()
	}
	return n.Normalize()
}

// Bounds returns the triangle's axis-aligned bounding box.
func (t Triangle) Bounds() math3d.AABB {
	return math3d.BoundsOf(t.A, t.B, t.C)
}

// Degenerate reports whether the triangle has no usable area.
func (t Triangle) Degenerate() bool {
	return t.Area() < math3d.Epsilon
}

// Facet caches the per-triangle quantities used by visibility tests.
type Facet struct {
	Index    int
	Centroid math3d.Vec3
	Normal   math3d.Vec3
	Area     float64
}

// Facets enumerates every triangle with its centroid, normal and area.
// Degenerate triangles are kept with zero area so indices stay aligned.
func (m *Mesh) Facets() []Facet {
	facets := make([]Facet, m.TriangleCount())
	for i := range facets {
		tri := m.Triangle(i)
		area := tri.Area()
		if area < math3d.Epsilon {
			area = 0
		}
		facets[i] = Facet{
			Index:    i,
			Centroid: tri.Centroid(),
			Normal:   tri.Normal(),
			Area:     area,
		}
	}
	return facets
}

// TotalArea returns the summed area of all non-degenerate triangles.
func (m *Mesh) TotalArea() float64 {
	var total float64
	for i := range m.TriangleCount() {
		if a := m.Triangle(i).Area(); a >= math3d.Epsilon {
			total += a
		}
	}
	return total
}

// Raycast returns the distance to the closest triangle hit along r.
// A nil mesh never hits.
func (m *Mesh) Raycast(r math3d.Ray) (float64, bool) {
	if m == nil {
		return 0, false
	}
	best := 0.0
	found := false
	for i := range m.TriangleCount() {
		tri := m.Triangle(i)
		if d, ok := r.IntersectTriangle(tri.A, tri.B, tri.C); ok && (!found || d < best) {
			best = d
			found = true
		}
	}
	return best, found
}
