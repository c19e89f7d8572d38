package camera

import (
	"github.com/taigrr/overfly/pkg/math3d"
)

// Hull is a convex volume bounded by planes whose normals point inward.
type Hull []math3d.Plane

// ContainsPoint tests if a point is inside every plane, allowing tol of slack.
func (h Hull) ContainsPoint(p math3d.Vec3, tol float64) bool {
	for i := range h {
		if h[i].DistanceToPoint(p) < -tol {
			return false
		}
	}
	return true
}

// IntersectAABB tests if the AABB intersects or is inside the hull.
// Returns true if any part of the AABB may be inside.
// Uses the "positive vertex" optimization for faster rejection.
func (h Hull) IntersectAABB(box math3d.AABB) bool {
	for i := range h {
		plane := h[i]

		// The corner furthest along the plane normal; if even that one is
		// outside, the entire box is outside the hull.
		pVertex := math3d.V3(
			selectComponent(plane.Normal.X >= 0, box.Max.X, box.Min.X),
			selectComponent(plane.Normal.Y >= 0, box.Max.Y, box.Min.Y),
			selectComponent(plane.Normal.Z >= 0, box.Max.Z, box.Min.Z),
		)

		if plane.DistanceToPoint(pVertex) < 0 {
			return false
		}
	}

	return true
}

// ContainsAABB tests if the AABB is completely inside the hull.
func (h Hull) ContainsAABB(box math3d.AABB) bool {
	for i := range h {
		plane := h[i]

		// The corner closest to the plane in the normal direction.
		nVertex := math3d.V3(
			selectComponent(plane.Normal.X >= 0, box.Min.X, box.Max.X),
			selectComponent(plane.Normal.Y >= 0, box.Min.Y, box.Max.Y),
			selectComponent(plane.Normal.Z >= 0, box.Min.Z, box.Max.Z),
		)

		if plane.DistanceToPoint(nVertex) < 0 {
			return false
		}
	}

	return true
}

// selectComponent is a branchless conditional selection helper.
func selectComponent(cond bool, a, b float64) float64 {
	if cond {
		return a
	}
	return b
}

// sidePlanes builds the four planes through apex and each edge of the
// corner loop, oriented so inside lies on the positive side.
func sidePlanes(apex math3d.Vec3, corners [4]math3d.Vec3, inside math3d.Vec3) [4]math3d.Plane {
	var planes [4]math3d.Plane
	for i := range corners {
		pl := math3d.PlaneFromPoints(apex, corners[i], corners[(i+1)%4])
		if pl.DistanceToPoint(inside) < 0 {
			pl = pl.Flip()
		}
		planes[i] = pl
	}
	return planes
}

// crossSection returns the four corners of the view rectangle at distance d,
// ordered top-left, top-right, bottom-right, bottom-left.
func crossSection(p Pose, halfWidth, halfHeight, d float64) [4]math3d.Vec3 {
	center := p.Position.Add(p.Direction.Scale(d))
	right := p.Right().Scale(halfWidth)
	up := p.Up.Scale(halfHeight)
	return [4]math3d.Vec3{
		center.Sub(right).Add(up),
		center.Add(right).Add(up),
		center.Add(right).Sub(up),
		center.Sub(right).Sub(up),
	}
}
