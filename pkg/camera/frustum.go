package camera

import (
	"github.com/taigrr/overfly/pkg/math3d"
)

// FrustumPlane indices for clarity.
const (
	FrustumLeft = iota
	FrustumRight
	FrustumBottom
	FrustumTop
	FrustumNear
	FrustumFar
)

// Frustum is the classic eight-corner camera volume between the near and
// far planes. It is used for camera-versus-camera occlusion estimates.
// Planes are ordered: Left, Right, Bottom, Top, Near, Far.
// Each plane's normal points inward (toward the center of the frustum).
type Frustum struct {
	Near   [4]math3d.Vec3
	Far    [4]math3d.Vec3
	Planes [6]math3d.Plane
}

// NewFrustum builds the near/far frustum for pose p.
func NewFrustum(p Pose, cfg Config) Frustum {
	nw, nh := cfg.HalfExtents(cfg.Near)
	fw, fh := cfg.HalfExtents(cfg.Far)
	f := Frustum{
		Near: crossSection(p, nw, nh, cfg.Near),
		Far:  crossSection(p, fw, fh, cfg.Far),
	}

	inside := p.Position.Add(p.Direction.Scale((cfg.Near + cfg.Far) / 2))
	sides := sidePlanes(p.Position, f.Far, inside)

	// crossSection edges run top, right, bottom, left.
	f.Planes[FrustumTop] = sides[0]
	f.Planes[FrustumRight] = sides[1]
	f.Planes[FrustumBottom] = sides[2]
	f.Planes[FrustumLeft] = sides[3]
	f.Planes[FrustumNear] = math3d.PlaneFromNormal(p.Direction, p.Position.Add(p.Direction.Scale(cfg.Near)))
	f.Planes[FrustumFar] = math3d.PlaneFromNormal(p.Direction.Negate(), p.Position.Add(p.Direction.Scale(cfg.Far)))

	return f
}

// Corners returns all eight corners, near loop first.
func (f Frustum) Corners() [8]math3d.Vec3 {
	var out [8]math3d.Vec3
	copy(out[:4], f.Near[:])
	copy(out[4:], f.Far[:])
	return out
}

// Bounds returns the axis-aligned box around the eight corners.
func (f Frustum) Bounds() math3d.AABB {
	c := f.Corners()
	return math3d.BoundsOf(c[:]...)
}

// Hull returns the six bounding planes.
func (f Frustum) Hull() Hull {
	return Hull(f.Planes[:])
}

// ContainsPoint tests if a point is inside the frustum.
func (f Frustum) ContainsPoint(p math3d.Vec3) bool {
	return f.Hull().ContainsPoint(p, 0)
}

// IntersectAABB tests if the AABB intersects or is inside the frustum.
func (f Frustum) IntersectAABB(box math3d.AABB) bool {
	return f.Hull().IntersectAABB(box)
}
