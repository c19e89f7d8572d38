package mission

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Decode reads a path from JSON. Both a bare array of waypoints and an
// object of the form {"waypoints": [...]} are accepted.
func Decode(r io.Reader) (Path, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read path: %w", err)
	}

	var p Path
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var doc struct {
			Waypoints Path `json:"waypoints"`
		}
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPath, err)
		}
		p = doc.Waypoints
	} else if err := json.Unmarshal(trimmed, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Load reads a path from a JSON file.
func Load(path string) (Path, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open path: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Encode writes p as an indented JSON array.
func Encode(w io.Writer, p Path) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}
