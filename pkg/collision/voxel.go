package collision

import (
	"math"

	"github.com/taigrr/overfly/pkg/math3d"
	"github.com/taigrr/overfly/pkg/models"
)

// DefaultResolution is the voxel count per axis.
const DefaultResolution = 64

// boundsPad is the relative margin added around the mesh so flat meshes
// still get a non-zero cell size on every axis.
const boundsPad = 1e-3

// VoxelGrid is a conservative occupancy grid over a mesh: every voxel that
// overlaps the bounding box of some triangle is marked.
type VoxelGrid struct {
	Bounds     math3d.AABB
	Resolution int

	cell     math3d.Vec3
	occupied []bool
	count    int
}

// NewVoxelGrid rasterizes mesh into a res³ grid. Values of res below 1 use
// DefaultResolution. A nil or empty mesh yields an empty grid.
func NewVoxelGrid(mesh *models.Mesh, res int) *VoxelGrid {
	if res < 1 {
		res = DefaultResolution
	}
	g := &VoxelGrid{Resolution: res, Bounds: math3d.EmptyAABB()}
	if mesh == nil || mesh.TriangleCount() == 0 {
		return g
	}

	b := mesh.Bounds()
	pad := boundsPad * math.Max(1, b.Diagonal())
	margin := math3d.V3(pad, pad, pad)
	g.Bounds = math3d.NewAABB(b.Min.Sub(margin), b.Max.Add(margin))
	g.cell = g.Bounds.Size().Scale(1 / float64(res))
	g.occupied = make([]bool, res*res*res)

	for i := range mesh.TriangleCount() {
		tb := mesh.Triangle(i).Bounds()
		lo := g.cellOf(tb.Min)
		hi := g.cellOf(tb.Max)
		for z := lo[2]; z <= hi[2]; z++ {
			for y := lo[1]; y <= hi[1]; y++ {
				for x := lo[0]; x <= hi[0]; x++ {
					idx := g.index(x, y, z)
					if !g.occupied[idx] {
						g.occupied[idx] = true
						g.count++
					}
				}
			}
		}
	}
	return g
}

// Count returns the number of occupied voxels.
func (g *VoxelGrid) Count() int {
	return g.count
}

// CellSize returns the dimensions of one voxel.
func (g *VoxelGrid) CellSize() math3d.Vec3 {
	return g.cell
}

// Occupied reports whether voxel (x, y, z) is marked. Out-of-range cells
// are empty.
func (g *VoxelGrid) Occupied(x, y, z int) bool {
	if g.occupied == nil || !g.inRange(x, y, z) {
		return false
	}
	return g.occupied[g.index(x, y, z)]
}

// OccupiedAt reports whether the voxel containing p is marked.
func (g *VoxelGrid) OccupiedAt(p math3d.Vec3) bool {
	if g.occupied == nil || !g.Bounds.ContainsPoint(p) {
		return false
	}
	c := g.cellOf(p)
	return g.occupied[g.index(c[0], c[1], c[2])]
}

// SegmentCollides walks the voxels crossed by segment [a, b] with the
// Amanatides–Woo traversal and reports the first occupied one.
func (g *VoxelGrid) SegmentCollides(a, b math3d.Vec3) bool {
	if g.count == 0 {
		return false
	}

	d := b.Sub(a)
	ray := math3d.Ray{Origin: a, Dir: d}
	t0, t1, hit := g.Bounds.IntersectRay(ray)
	if !hit {
		return false
	}
	t0 = math.Max(t0, 0)
	t1 = math.Min(t1, 1)
	if t0 > t1 {
		return false
	}

	cell := g.cellOf(ray.At(t0))
	var step [3]int
	var tMax, tDelta [3]float64
	for axis := range 3 {
		dir := d.Component(axis)
		size := g.cell.Component(axis)
		lo := g.Bounds.Min.Component(axis)
		origin := a.Component(axis)
		switch {
		case dir > math3d.Epsilon:
			step[axis] = 1
			tMax[axis] = (lo + float64(cell[axis]+1)*size - origin) / dir
			tDelta[axis] = size / dir
		case dir < -math3d.Epsilon:
			step[axis] = -1
			tMax[axis] = (lo + float64(cell[axis])*size - origin) / dir
			tDelta[axis] = -size / dir
		default:
			tMax[axis] = math.Inf(1)
			tDelta[axis] = math.Inf(1)
		}
	}

	for {
		if g.occupied[g.index(cell[0], cell[1], cell[2])] {
			return true
		}

		axis := 0
		if tMax[1] < tMax[axis] {
			axis = 1
		}
		if tMax[2] < tMax[axis] {
			axis = 2
		}
		if tMax[axis] > t1 {
			return false
		}

		cell[axis] += step[axis]
		if cell[axis] < 0 || cell[axis] >= g.Resolution {
			return false
		}
		tMax[axis] += tDelta[axis]
	}
}

func (g *VoxelGrid) index(x, y, z int) int {
	return (z*g.Resolution+y)*g.Resolution + x
}

func (g *VoxelGrid) inRange(x, y, z int) bool {
	r := g.Resolution
	return x >= 0 && x < r && y >= 0 && y < r && z >= 0 && z < r
}

// cellOf maps a point to its voxel, clamping to the grid.
func (g *VoxelGrid) cellOf(p math3d.Vec3) [3]int {
	var c [3]int
	for axis := range 3 {
		size := g.cell.Component(axis)
		v := int(math.Floor((p.Component(axis) - g.Bounds.Min.Component(axis)) / size))
		c[axis] = max(0, min(g.Resolution-1, v))
	}
	return c
}
