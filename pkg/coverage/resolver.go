// Package coverage classifies mesh triangles as visible from camera
// waypoints and aggregates the result into coverage and overlap figures.
//
// Triangles are classified by centroid only: a triangle straddling a
// pyramid boundary counts as fully in or fully out, so the error per
// viewpoint is bounded by the size of the boundary triangles.
package coverage

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/dhconnelly/rtreego"
	"github.com/taigrr/overfly/pkg/camera"
	"github.com/taigrr/overfly/pkg/math3d"
	"github.com/taigrr/overfly/pkg/models"
	"gonum.org/v1/gonum/floats"
)

// queryPad widens R-tree queries so points on a box face are not lost.
const queryPad = 1e-6

// facetEntry wraps a facet centroid for R-tree storage.
type facetEntry struct {
	index int
	rect  rtreego.Rect
}

// Bounds implements rtreego.Spatial.
func (f *facetEntry) Bounds() rtreego.Rect {
	return f.rect
}

// Resolver answers "which triangles can this pyramid see" for one mesh.
// It is safe for concurrent use once built.
type Resolver struct {
	facets        []models.Facet
	bounds        math3d.AABB
	totalArea     float64
	tree          *rtreego.Rtree
	requireFacing bool
}

// NewResolver indexes the triangle centroids of mesh. When requireFacing is
// set, triangles whose normal points away from the camera are rejected.
func NewResolver(mesh *models.Mesh, requireFacing bool) *Resolver {
	facets := mesh.Facets()
	r := &Resolver{
		facets:        facets,
		bounds:        mesh.Bounds(),
		tree:          rtreego.NewTree(3, 25, 50),
		requireFacing: requireFacing,
	}

	areas := make([]float64, 0, len(facets))
	for _, f := range facets {
		if f.Area == 0 {
			continue
		}
		areas = append(areas, f.Area)
		rect, err := pointRect(f.Centroid, queryPad)
		if err != nil {
			continue
		}
		r.tree.Insert(&facetEntry{index: f.Index, rect: rect})
	}
	r.totalArea = floats.Sum(areas)

	return r
}

// Visible returns the indices of triangles whose centroid lies inside py
// and, when facing is required, that face the apex.
func (r *Resolver) Visible(py camera.Pyramid) mapset.Set[int] {
	visible := mapset.NewThreadUnsafeSet[int]()
	if r.tree.Size() == 0 || !py.Hull().IntersectAABB(r.bounds) {
		return visible
	}

	// Whole mesh in view: every centroid is inside, skip the tree.
	if py.ContainsBox(r.bounds) {
		for _, f := range r.facets {
			if f.Area == 0 || !r.faces(py, f) {
				continue
			}
			visible.Add(f.Index)
		}
		return visible
	}

	query, err := boxRect(py.Bounds(), queryPad)
	if err != nil {
		return visible
	}

	for _, item := range r.tree.SearchIntersect(query) {
		f := r.facets[item.(*facetEntry).index]
		if !py.Contains(f.Centroid) {
			continue
		}
		if !r.faces(py, f) {
			continue
		}
		visible.Add(f.Index)
	}
	return visible
}

// faces applies the optional back-face rejection.
func (r *Resolver) faces(py camera.Pyramid, f models.Facet) bool {
	return !r.requireFacing || f.Normal.Dot(py.Apex.Sub(f.Centroid)) > 0
}

// Area returns the summed area of the given triangles.
func (r *Resolver) Area(set mapset.Set[int]) float64 {
	if set == nil {
		return 0
	}
	areas := make([]float64, 0, set.Cardinality())
	set.Each(func(i int) bool {
		areas = append(areas, r.facets[i].Area)
		return false
	})
	return floats.Sum(areas)
}

// TotalArea returns the area of every non-degenerate triangle.
func (r *Resolver) TotalArea() float64 {
	return r.totalArea
}

// TriangleCount returns the number of indexed triangles, degenerate ones included.
func (r *Resolver) TriangleCount() int {
	return len(r.facets)
}

func pointRect(p math3d.Vec3, tol float64) (rtreego.Rect, error) {
	return rtreego.NewRect(
		rtreego.Point{p.X - tol, p.Y - tol, p.Z - tol},
		[]float64{2 * tol, 2 * tol, 2 * tol},
	)
}

func boxRect(b math3d.AABB, pad float64) (rtreego.Rect, error) {
	size := b.Size()
	return rtreego.NewRect(
		rtreego.Point{b.Min.X - pad, b.Min.Y - pad, b.Min.Z - pad},
		[]float64{size.X + 2*pad, size.Y + 2*pad, size.Z + 2*pad},
	)
}
