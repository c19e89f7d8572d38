package camera

import (
	"math"

	"github.com/taigrr/overfly/pkg/math3d"
	"github.com/taigrr/overfly/pkg/mission"
	"github.com/taigrr/overfly/pkg/models"
)

// nearVertical is the |dir·up| threshold above which world up is replaced.
const nearVertical = 0.99

// Pose is a camera position with an orthonormal orientation.
type Pose struct {
	Position  math3d.Vec3
	Direction math3d.Vec3 // unit forward
	Up        math3d.Vec3 // unit, perpendicular to Direction
}

// NewPose creates a pose looking along dir. A zero dir looks straight down.
func NewPose(position, dir math3d.Vec3) Pose {
	dir = dir.NormalizeOr(math3d.Down())
	return Pose{
		Position:  position,
		Direction: dir,
		Up:        DeriveUp(dir),
	}
}

// LookAt creates a pose at position facing target.
func LookAt(position, target math3d.Vec3) Pose {
	return NewPose(position, target.Sub(position))
}

// PoseFor derives the camera pose for a waypoint. The waypoint normal is
// the forward direction; when it is zero the camera faces the mesh
// centroid, and when that is unavailable too it looks straight down.
func PoseFor(w mission.Waypoint, mesh *models.Mesh) Pose {
	pos := w.Position()
	if w.Normal.Len() < math3d.Epsilon && mesh != nil && mesh.VertexCount() > 0 {
		return LookAt(pos, mesh.Centroid())
	}
	return NewPose(pos, w.Normal)
}

// DeriveUp returns a unit up vector perpendicular to dir. World up (+Y) is
// used unless dir is nearly vertical, in which case -Z stands in so the
// cross product never degenerates.
func DeriveUp(dir math3d.Vec3) math3d.Vec3 {
	worldUp := math3d.Up()
	if math.Abs(dir.Dot(worldUp)) > nearVertical {
		worldUp = math3d.V3(0, 0, -1)
	}
	right := dir.Cross(worldUp).Normalize()
	return right.Cross(dir).Normalize()
}

// Right returns the right direction vector.
func (p Pose) Right() math3d.Vec3 {
	return p.Direction.Cross(p.Up).Normalize()
}

// Equal reports whether two poses are identical.
func (p Pose) Equal(o Pose) bool {
	return p.Position == o.Position && p.Direction == o.Direction
}
