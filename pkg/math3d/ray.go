package math3d

import "math"

// Ray is a half-line starting at Origin heading along Dir.
type Ray struct {
	Origin Vec3
	Dir    Vec3
}

// NewRay creates a ray with a normalized direction.
func NewRay(origin, dir Vec3) Ray {
	return Ray{Origin: origin, Dir: dir.Normalize()}
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float64) Vec3 {
	return r.Origin.Add(r.Dir.Scale(t))
}

// IntersectTriangle runs the Möller–Trumbore test against triangle (a, b, c).
// Both faces count as hits. It returns the distance along the ray to the hit.
func (r Ray) IntersectTriangle(a, b, c Vec3) (float64, bool) {
	edge1 := b.Sub(a)
	edge2 := c.Sub(a)
	p := r.Dir.Cross(edge2)
	det := edge1.Dot(p)
	if math.Abs(det) < Epsilon {
		return 0, false
	}
	inv := 1 / det

	s := r.Origin.Sub(a)
	u := s.Dot(p) * inv
	if u < 0 || u > 1 {
		return 0, false
	}

	q := s.Cross(edge1)
	v := r.Dir.Dot(q) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}

	t := edge2.Dot(q) * inv
	if t <= Epsilon {
		return 0, false
	}
	return t, true
}

// Plane represents a plane in 3D space using the equation: Normal·p + D = 0.
type Plane struct {
	Normal Vec3
	D      float64
}

// PlaneFromPoints builds the plane through a, b and c with normal
// (b-a)×(c-a), normalized.
func PlaneFromPoints(a, b, c Vec3) Plane {
	n := b.Sub(a).Cross(c.Sub(a)).Normalize()
	return Plane{Normal: n, D: -n.Dot(a)}
}

// PlaneFromNormal builds the plane with normal n through point p.
func PlaneFromNormal(n, p Vec3) Plane {
	n = n.Normalize()
	return Plane{Normal: n, D: -n.Dot(p)}
}

// DistanceToPoint returns the signed distance from the plane to a point.
// Positive = in front (same side as normal), negative = behind.
func (p Plane) DistanceToPoint(point Vec3) float64 {
	return p.Normal.Dot(point) + p.D
}

// Flip returns the plane with its orientation reversed.
func (p Plane) Flip() Plane {
	return Plane{Normal: p.Normal.Negate(), D: -p.D}
}

// ClosestPointOnSegment returns the point of segment [a, b] nearest to p.
func ClosestPointOnSegment(a, b, p Vec3) Vec3 {
	ab := b.Sub(a)
	lenSq := ab.LenSq()
	if lenSq < Epsilon {
		return a
	}
	t := p.Sub(a).Dot(ab) / lenSq
	t = math.Max(0, math.Min(1, t))
	return a.Add(ab.Scale(t))
}
