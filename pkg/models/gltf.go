package models

import (
	"fmt"
	"path/filepath"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/taigrr/overfly/pkg/math3d"
)

// GLTFLoader loads GLTF/GLB files into the flat Mesh form.
type GLTFLoader struct {
	// SkipDegenerate drops zero-area triangles while loading.
	SkipDegenerate bool
}

// NewGLTFLoader creates a new GLTF loader with default options.
func NewGLTFLoader() *GLTFLoader {
	return &GLTFLoader{
		SkipDegenerate: true,
	}
}

// LoadGLTF loads a binary (.glb) or embedded-buffer (.gltf) file.
func LoadGLTF(path string) (*Mesh, error) {
	loader := NewGLTFLoader()
	return loader.Load(path)
}

// Load loads a GLTF or GLB file and returns a Mesh.
func (l *GLTFLoader) Load(path string) (*Mesh, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open gltf: %w", err)
	}

	mesh := &Mesh{Name: filepath.Base(path)}

	// Process all meshes in the document
	for _, m := range doc.Meshes {
		if err := l.processMesh(doc, m, mesh); err != nil {
			return nil, fmt.Errorf("process mesh %q: %w", m.Name, err)
		}
	}

	if err := mesh.Validate(); err != nil {
		return nil, err
	}
	mesh.CalculateBounds()

	return mesh, nil
}

// processMesh appends the triangles of a GLTF mesh to the flat buffers.
func (l *GLTFLoader) processMesh(doc *gltf.Document, m *gltf.Mesh, mesh *Mesh) error {
	for _, prim := range m.Primitives {
		if prim.Mode != gltf.PrimitiveTriangles && prim.Mode != 0 {
			// Skip non-triangle primitives (lines, points, etc)
			continue
		}

		posIdx, ok := prim.Attributes[gltf.POSITION]
		if !ok {
			continue
		}

		positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
		if err != nil {
			return fmt.Errorf("read positions: %w", err)
		}

		var indices []uint32
		if prim.Indices != nil {
			indices, err = modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
			if err != nil {
				return fmt.Errorf("read indices: %w", err)
			}
		} else {
			// No indices, assume sequential triangles
			indices = make([]uint32, len(positions)-len(positions)%3)
			for i := range indices {
				indices[i] = uint32(i)
			}
		}

		// Only vertices referenced by a kept triangle are appended, so
		// skipped faces do not stretch the bounds.
		remap := make(map[uint32]uint32, len(positions))
		vertex := func(i uint32) uint32 {
			if idx, ok := remap[i]; ok {
				return idx
			}
			idx := uint32(mesh.VertexCount())
			p := positions[i]
			mesh.Vertices = append(mesh.Vertices, float64(p[0]), float64(p[1]), float64(p[2]))
			remap[i] = idx
			return idx
		}

		// GLTF winding is CCW for front faces, which matches Triangle.Normal.
		n := uint32(len(positions))
		for i := 0; i+2 < len(indices); i += 3 {
			a, b, c := indices[i], indices[i+1], indices[i+2]
			if a >= n || b >= n || c >= n {
				return fmt.Errorf("%w: primitive index out of range", ErrInvalidMesh)
			}
			if l.SkipDegenerate && triangleFrom(positions, a, b, c).Degenerate() {
				continue
			}
			mesh.Indices = append(mesh.Indices, vertex(a), vertex(b), vertex(c))
		}
	}

	return nil
}

func triangleFrom(positions [][3]float32, a, b, c uint32) Triangle {
	at := func(i uint32) math3d.Vec3 {
		p := positions[i]
		return math3d.V3(float64(p[0]), float64(p[1]), float64(p[2]))
	}
	return Triangle{A: at(a), B: at(b), C: at(c)}
}
