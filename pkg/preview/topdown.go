package preview

import (
	"math"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/taigrr/overfly/pkg/collision"
	"github.com/taigrr/overfly/pkg/math3d"
	"github.com/taigrr/overfly/pkg/mission"
	"github.com/taigrr/overfly/pkg/models"
)

// Projection maps world X/Z onto framebuffer pixels, looking down -Y.
type Projection struct {
	center  math3d.Vec3
	scale   float64
	offsetX float64
	offsetY float64
}

// NewProjection fits bounds into a width x height framebuffer, keeping
// margin pixels free on every side and preserving aspect.
func NewProjection(bounds math3d.AABB, width, height, margin int) Projection {
	if bounds.IsEmpty() {
		bounds = math3d.NewAABB(math3d.V3(-1, 0, -1), math3d.V3(1, 0, 1))
	}
	size := bounds.Size()
	spanX := math.Max(size.X, math3d.Epsilon)
	spanZ := math.Max(size.Z, math3d.Epsilon)
	availX := math.Max(1, float64(width-2*margin))
	availY := math.Max(1, float64(height-2*margin))

	return Projection{
		center:  bounds.Center(),
		scale:   math.Min(availX/spanX, availY/spanZ),
		offsetX: float64(width) / 2,
		offsetY: float64(height) / 2,
	}
}

// Project returns the framebuffer position of p.
func (pr Projection) Project(p math3d.Vec3) (x, y float64) {
	return pr.offsetX + (p.X-pr.center.X)*pr.scale,
		pr.offsetY + (p.Z-pr.center.Z)*pr.scale
}

// Pixel returns the framebuffer pixel containing p.
func (pr Projection) Pixel(p math3d.Vec3) (x, y int) {
	fx, fy := pr.Project(p)
	return int(math.Floor(fx)), int(math.Floor(fy))
}

// Scene is everything drawn in one frame. Any field may be empty.
type Scene struct {
	Mesh       *models.Mesh
	Path       mission.Path
	Covered    mapset.Set[int]
	Collisions []collision.Collision
}

// Bounds returns the box around the mesh and path.
func (s Scene) Bounds() math3d.AABB {
	b := math3d.EmptyAABB()
	if s.Mesh != nil && s.Mesh.VertexCount() > 0 {
		b = b.Union(s.Mesh.Bounds())
	}
	for _, w := range s.Path {
		b = b.Extend(w.Position())
	}
	return b
}

// Render draws the scene into a new width x height framebuffer.
func Render(s Scene, width, height int) *Framebuffer {
	fb := NewFramebuffer(width, height)
	s.Draw(fb, NewProjection(s.Bounds(), width, height, 1))
	return fb
}

// Draw paints the scene into fb: triangles from lowest to highest, then
// the path, waypoints and collisions on top.
func (s Scene) Draw(fb *Framebuffer, pr Projection) {
	fb.Clear(ColorBackground)
	s.drawMesh(fb, pr)

	for i := 0; i+1 < len(s.Path); i++ {
		x0, y0 := pr.Pixel(s.Path[i].Position())
		x1, y1 := pr.Pixel(s.Path[i+1].Position())
		fb.DrawLine(x0, y0, x1, y1, ColorPath)
	}
	for _, w := range s.Path {
		x, y := pr.Pixel(w.Position())
		fb.SetPixel(x, y, ColorWaypoint)
	}
	for _, c := range s.Collisions {
		x, y := pr.Pixel(c.Position)
		fb.DrawMarker(x, y, 1, ColorCollision)
	}
}

func (s Scene) drawMesh(fb *Framebuffer, pr Projection) {
	if s.Mesh == nil {
		return
	}
	facets := s.Mesh.Facets()
	order := make([]int, len(facets))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		ta, tb := s.Mesh.Triangle(a).Bounds(), s.Mesh.Triangle(b).Bounds()
		switch {
		case ta.Max.Y < tb.Max.Y:
			return -1
		case ta.Max.Y > tb.Max.Y:
			return 1
		}
		return 0
	})

	for _, i := range order {
		f := facets[i]
		if f.Area == 0 {
			continue
		}
		base := ColorUncovered
		if s.Covered != nil && s.Covered.Contains(i) {
			base = ColorCovered
		}
		c := shade(base, 0.5+0.5*math.Abs(f.Normal.Y))

		tri := s.Mesh.Triangle(i)
		x0, y0 := pr.Project(tri.A)
		x1, y1 := pr.Project(tri.B)
		x2, y2 := pr.Project(tri.C)
		if !fb.FillTriangle(x0, y0, x1, y1, x2, y2, c) {
			// vertical faces collapse to a line seen from above
			ax, ay := pr.Pixel(tri.A)
			bx, by := pr.Pixel(tri.B)
			cx, cy := pr.Pixel(tri.C)
			fb.DrawLine(ax, ay, bx, by, c)
			fb.DrawLine(bx, by, cx, cy, c)
			fb.DrawLine(cx, cy, ax, ay, c)
		}
	}
}
