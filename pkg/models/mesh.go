// Package models provides the triangulated building mesh and the loaders
// that normalize mesh sources into it.
package models

import (
	"errors"
	"fmt"
	"math"

	"github.com/taigrr/overfly/pkg/math3d"
)

// ErrInvalidMesh is returned when vertex or index buffers are malformed.
var ErrInvalidMesh = errors.New("invalid mesh")

// Mesh is a triangulated mesh held in flat buffers.
// Vertices are tightly packed x,y,z triples. When Indices is empty,
// triangles are consecutive vertex triples.
type Mesh struct {
	Name     string    `json:"name,omitempty"`
	Vertices []float64 `json:"vertices"`
	Indices  []uint32  `json:"indices,omitempty"`

	// Bounding box (calculated on load)
	BoundsMin math3d.Vec3 `json:"-"`
	BoundsMax math3d.Vec3 `json:"-"`
}

// NewMesh validates the buffers and returns a mesh with bounds calculated.
func NewMesh(name string, vertices []float64, indices []uint32) (*Mesh, error) {
	m := &Mesh{
		Name:     name,
		Vertices: vertices,
		Indices:  indices,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	m.CalculateBounds()
	return m, nil
}

// Validate checks the buffer invariants.
func (m *Mesh) Validate() error {
	if len(m.Vertices)%3 != 0 {
		return fmt.Errorf("%w: vertex buffer length %d is not a multiple of 3", ErrInvalidMesh, len(m.Vertices))
	}
	for i, v := range m.Vertices {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: vertex %d has non-finite coordinate %v", ErrInvalidMesh, i/3, v)
		}
	}
	n := uint32(len(m.Vertices) / 3)
	if len(m.Indices) == 0 {
		if n%3 != 0 {
			return fmt.Errorf("%w: %d vertices do not form whole triangles", ErrInvalidMesh, n)
		}
		return nil
	}
	if len(m.Indices)%3 != 0 {
		return fmt.Errorf("%w: index buffer length %d is not a multiple of 3", ErrInvalidMesh, len(m.Indices))
	}
	for i, idx := range m.Indices {
		if idx >= n {
			return fmt.Errorf("%w: index %d at position %d out of range (vertex count %d)", ErrInvalidMesh, idx, i, n)
		}
	}
	return nil
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	if len(m.Indices) > 0 {
		return len(m.Indices) / 3
	}
	return len(m.Vertices) / 9
}

// Vertex returns the position of vertex i.
func (m *Mesh) Vertex(i int) math3d.Vec3 {
	return math3d.V3(m.Vertices[3*i], m.Vertices[3*i+1], m.Vertices[3*i+2])
}

// Face returns the vertex indices of triangle i.
func (m *Mesh) Face(i int) [3]int {
	if len(m.Indices) > 0 {
		return [3]int{int(m.Indices[3*i]), int(m.Indices[3*i+1]), int(m.Indices[3*i+2])}
	}
	return [3]int{3 * i, 3*i + 1, 3*i + 2}
}

// Triangle returns the positions of triangle i.
func (m *Mesh) Triangle(i int) Triangle {
	f := m.Face(i)
	return Triangle{A: m.Vertex(f[0]), B: m.Vertex(f[1]), C: m.Vertex(f[2])}
}

// CalculateBounds computes the axis-aligned bounding box.
func (m *Mesh) CalculateBounds() {
	if len(m.Vertices) < 3 {
		m.BoundsMin, m.BoundsMax = math3d.Zero3(), math3d.Zero3()
		return
	}

	m.BoundsMin = m.Vertex(0)
	m.BoundsMax = m.Vertex(0)

	for i := 1; i < m.VertexCount(); i++ {
		v := m.Vertex(i)
		m.BoundsMin = m.BoundsMin.Min(v)
		m.BoundsMax = m.BoundsMax.Max(v)
	}
}

// Bounds returns the axis-aligned bounding box.
func (m *Mesh) Bounds() math3d.AABB {
	return math3d.NewAABB(m.BoundsMin, m.BoundsMax)
}

// Center returns the center of the bounding box.
func (m *Mesh) Center() math3d.Vec3 {
	return m.BoundsMin.Add(m.BoundsMax).Scale(0.5)
}

// Size returns the dimensions of the bounding box.
func (m *Mesh) Size() math3d.Vec3 {
	return m.BoundsMax.Sub(m.BoundsMin)
}

// Diagonal returns the length of the bounding box diagonal.
func (m *Mesh) Diagonal() float64 {
	return m.Size().Len()
}

// Centroid returns the mean of all vertex positions.
func (m *Mesh) Centroid() math3d.Vec3 {
	n := m.VertexCount()
	if n == 0 {
		return math3d.Zero3()
	}
	var sum math3d.Vec3
	for i := range n {
		sum = sum.Add(m.Vertex(i))
	}
	return sum.Scale(1 / float64(n))
}

// Transform applies a transformation matrix to all vertices.
func (m *Mesh) Transform(mat math3d.Mat4) {
	for i := range m.VertexCount() {
		v := mat.MulVec3(m.Vertex(i))
		m.Vertices[3*i], m.Vertices[3*i+1], m.Vertices[3*i+2] = v.X, v.Y, v.Z
	}
	m.CalculateBounds()
}

// Clone creates a deep copy of the mesh.
func (m *Mesh) Clone() *Mesh {
	clone := &Mesh{
		Name:      m.Name,
		Vertices:  make([]float64, len(m.Vertices)),
		BoundsMin: m.BoundsMin,
		BoundsMax: m.BoundsMax,
	}
	copy(clone.Vertices, m.Vertices)
	if len(m.Indices) > 0 {
		clone.Indices = make([]uint32, len(m.Indices))
		copy(clone.Indices, m.Indices)
	}
	return clone
}

// Placed returns a transformed copy of the mesh, leaving m untouched.
func (m *Mesh) Placed(mat math3d.Mat4) *Mesh {
	clone := m.Clone()
	if !mat.IsIdentity() {
		clone.Transform(mat)
	}
	return clone
}
