package models

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DecodeJSON reads the normalized flat form {vertices, indices?}.
func DecodeJSON(r io.Reader) (*Mesh, error) {
	var m Mesh
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode mesh: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	m.CalculateBounds()
	return &m, nil
}

// LoadJSON reads a flat mesh from a JSON file.
func LoadJSON(path string) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open mesh: %w", err)
	}
	defer f.Close()

	m, err := DecodeJSON(f)
	if err != nil {
		return nil, err
	}
	if m.Name == "" {
		m.Name = filepath.Base(path)
	}
	return m, nil
}

// Load picks a loader from the file extension.
func Load(path string) (*Mesh, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return LoadJSON(path)
	case ".glb", ".gltf":
		return LoadGLTF(path)
	default:
		return nil, fmt.Errorf("unsupported mesh format: %s (use .json, .glb or .gltf)", ext)
	}
}
