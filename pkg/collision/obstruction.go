package collision

import (
	"math"

	"github.com/taigrr/overfly/pkg/camera"
	"github.com/taigrr/overfly/pkg/math3d"
)

// Obstruction estimates how much two camera frustums overlap.
type Obstruction struct {
	From    int     `json:"from"`
	To      int     `json:"to"`
	Volume  float64 `json:"volume"`
	Percent float64 `json:"percent"`
}

// FrustumOverlap intersects the bounding boxes of two frustums. Percent is
// the overlap volume over the larger box's extent sum, capped at 100. This
// is a rough proxy, not a true volume ratio. ok is false when the boxes do
// not intersect.
func FrustumOverlap(a, b camera.Frustum) (volume, percent float64, ok bool) {
	ba, bb := a.Bounds(), b.Bounds()
	if !ba.Overlaps(bb) {
		return 0, 0, false
	}
	volume = ba.Intersection(bb).Volume()
	proxy := math.Max(extentSum(ba), extentSum(bb))
	if proxy < math3d.Epsilon {
		return volume, 0, true
	}
	percent = math.Min(100, volume/proxy*100)
	return volume, percent, true
}

func extentSum(b math3d.AABB) float64 {
	s := b.Size()
	return s.X + s.Y + s.Z
}
