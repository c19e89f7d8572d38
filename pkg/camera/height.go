package camera

import (
	"math"

	"github.com/taigrr/overfly/pkg/math3d"
)

// Raycaster finds the closest surface hit along a ray.
type Raycaster interface {
	Raycast(r math3d.Ray) (float64, bool)
}

// Height returns the dynamic pyramid height for a pose: the distance to the
// first surface along the view direction, clamped to [MinHeight, Far].
// FallbackHeight is used when nothing is hit or surface is nil.
func (c Config) Height(p Pose, surface Raycaster) float64 {
	if surface == nil {
		return c.clampHeight(c.FallbackHeight)
	}
	d, ok := surface.Raycast(math3d.Ray{Origin: p.Position, Dir: p.Direction})
	if !ok {
		return c.clampHeight(c.FallbackHeight)
	}
	return c.clampHeight(d)
}

func (c Config) clampHeight(h float64) float64 {
	upper := c.Far
	if upper <= 0 {
		upper = math.Inf(1)
	}
	return math.Max(c.MinHeight, math.Min(h, upper))
}
