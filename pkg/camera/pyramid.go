package camera

import (
	"github.com/taigrr/overfly/pkg/math3d"
)

// sideTolerance is the slack allowed on the pyramid side planes.
const sideTolerance = 1e-9

// Pyramid is the visibility volume of one camera: an apex at the camera and
// a rectangular base at the dynamic height along the view direction.
type Pyramid struct {
	Apex    math3d.Vec3
	Corners [4]math3d.Vec3
	Height  float64

	sides     [4]math3d.Plane
	apexPlane math3d.Plane
	basePlane math3d.Plane
	baseTol   float64
}

// NewPyramid builds the pyramid for pose p with base at height h.
// Heights below Epsilon are raised to Epsilon.
func NewPyramid(p Pose, cfg Config, h float64) Pyramid {
	h = max(h, math3d.Epsilon)
	hw, hh := cfg.HalfExtents(h)
	corners := crossSection(p, hw, hh, h)
	baseCenter := p.Position.Add(p.Direction.Scale(h))

	return Pyramid{
		Apex:      p.Position,
		Corners:   corners,
		Height:    h,
		sides:     sidePlanes(p.Position, corners, p.Position.Add(p.Direction.Scale(h/2))),
		apexPlane: math3d.PlaneFromNormal(p.Direction, p.Position),
		basePlane: math3d.PlaneFromNormal(p.Direction.Negate(), baseCenter),
		baseTol:   1e-6 * (1 + h),
	}
}

// Build computes the dynamic height for pose p against surface and returns
// the resulting pyramid.
func (c Config) Build(p Pose, surface Raycaster) Pyramid {
	return NewPyramid(p, c, c.Height(p, surface))
}

// Contains reports whether pt lies inside the pyramid: within all four side
// planes, strictly in front of the apex, and not beyond the base.
func (py Pyramid) Contains(pt math3d.Vec3) bool {
	if py.apexPlane.DistanceToPoint(pt) <= 0 {
		return false
	}
	for i := range py.sides {
		if py.sides[i].DistanceToPoint(pt) < -sideTolerance {
			return false
		}
	}
	return py.basePlane.DistanceToPoint(pt) >= -py.baseTol
}

// ContainsBox reports whether every point of box lies inside the pyramid.
func (py Pyramid) ContainsBox(box math3d.AABB) bool {
	if !py.Hull().ContainsAABB(box) {
		return false
	}
	for _, c := range box.Corners() {
		if py.apexPlane.DistanceToPoint(c) <= 0 {
			return false
		}
	}
	return true
}

// Hull returns the bounding planes: four sides, the apex plane, then the base.
func (py Pyramid) Hull() Hull {
	base := py.basePlane
	base.D += py.baseTol
	return Hull{py.sides[0], py.sides[1], py.sides[2], py.sides[3], py.apexPlane, base}
}

// Bounds returns the axis-aligned box around the apex and base corners.
func (py Pyramid) Bounds() math3d.AABB {
	return math3d.BoundsOf(py.Apex, py.Corners[0], py.Corners[1], py.Corners[2], py.Corners[3])
}

// BaseCenter returns the center of the base rectangle.
func (py Pyramid) BaseCenter() math3d.Vec3 {
	var sum math3d.Vec3
	for _, c := range py.Corners {
		sum = sum.Add(c)
	}
	return sum.Scale(0.25)
}
