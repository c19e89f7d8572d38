package collision

import (
	"fmt"

	"github.com/taigrr/overfly/pkg/camera"
	"github.com/taigrr/overfly/pkg/math3d"
	"github.com/taigrr/overfly/pkg/mission"
	"github.com/taigrr/overfly/pkg/models"
)

// Mode selects how segment collisions are decided.
type Mode string

// Detection modes.
const (
	// ModeVoxel confirms box hits against the voxel grid.
	ModeVoxel Mode = "voxel"
	// ModeBox uses only the bounding-box approximation.
	ModeBox Mode = "box"
)

// ParseMode converts a string to a Mode. An empty string is ModeVoxel.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeVoxel:
		return ModeVoxel, nil
	case ModeBox:
		return ModeBox, nil
	default:
		return "", fmt.Errorf("unknown collision mode %q", s)
	}
}

// Detector finds collisions between a flight path and one mesh.
type Detector struct {
	box  Box
	grid *VoxelGrid
}

// NewDetector builds a detector for mesh. In ModeVoxel a voxel grid of
// the given resolution is rasterized up front. A nil mesh never collides.
func NewDetector(mesh *models.Mesh, mode Mode, resolution int) *Detector {
	bounds := math3d.EmptyAABB()
	if mesh != nil && mesh.VertexCount() > 0 {
		bounds = mesh.Bounds()
	}
	d := &Detector{box: NewBox(bounds)}
	if mode != ModeBox {
		d.grid = NewVoxelGrid(mesh, resolution)
	}
	return d
}

// Box returns the bounding-box detector.
func (d *Detector) Box() Box {
	return d.box
}

// Grid returns the voxel grid, or nil in ModeBox.
func (d *Detector) Grid() *VoxelGrid {
	return d.grid
}

// Path reports waypoint and segment collisions in path order.
//
// A waypoint collides when it is inside the mesh box (and inside an
// occupied voxel when a grid is present). A segment collides when the grid
// traversal finds an occupied voxel, or in ModeBox when the box heuristic
// fires; it is reported at the segment point nearest the mesh center with
// the segment start as its time index.
func (d *Detector) Path(path mission.Path) []Collision {
	var out []Collision
	for i, w := range path {
		p := w.Position()
		if !d.box.ContainsPoint(p) {
			continue
		}
		if d.grid != nil && !d.grid.OccupiedAt(p) {
			continue
		}
		out = append(out, Collision{
			Kind:      KindWaypoint,
			Position:  p,
			Severity:  d.box.Severity(p),
			TimeIndex: i,
		})
	}

	path.Segments(func(i int, a, b math3d.Vec3) bool {
		if !d.SegmentCollides(a, b) {
			return true
		}
		p := d.box.NearestOnSegment(a, b)
		out = append(out, Collision{
			Kind:      KindSegment,
			Position:  p,
			Severity:  d.box.Severity(p),
			TimeIndex: i,
		})
		return true
	})

	return out
}

// SegmentCollides decides one segment according to the detector mode.
func (d *Detector) SegmentCollides(a, b math3d.Vec3) bool {
	if d.grid == nil {
		return d.box.SegmentHits(a, b)
	}
	return d.grid.SegmentCollides(a, b)
}

// Obstructions estimates frustum overlap for each consecutive waypoint pair
// and returns the intersecting pairs.
func Obstructions(path mission.Path, mesh *models.Mesh, cfg camera.Config) []Obstruction {
	var out []Obstruction
	for i := 0; i+1 < len(path); i++ {
		fa := camera.NewFrustum(camera.PoseFor(path[i], mesh), cfg)
		fb := camera.NewFrustum(camera.PoseFor(path[i+1], mesh), cfg)
		vol, pct, ok := FrustumOverlap(fa, fb)
		if !ok {
			continue
		}
		out = append(out, Obstruction{From: i, To: i + 1, Volume: vol, Percent: pct})
	}
	return out
}
