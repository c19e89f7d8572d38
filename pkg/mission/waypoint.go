// Package mission holds the flight path data model: waypoints with a
// camera-forward normal, in flight order.
package mission

import (
	"errors"
	"fmt"
	"math"

	"github.com/taigrr/overfly/pkg/math3d"
)

var (
	// ErrTooFewWaypoints is returned when a computation needs more points.
	ErrTooFewWaypoints = errors.New("too few waypoints")
	// ErrInvalidPath is returned for malformed path input.
	ErrInvalidPath = errors.New("invalid path")
)

// MinKPIWaypoints is the minimum path length for KPI computation.
const MinKPIWaypoints = 2

// Waypoint is a drone position plus the direction its camera faces.
// Normal need not be unit length; it is normalized before use.
type Waypoint struct {
	ID     int         `json:"id"`
	X      float64     `json:"x"`
	Y      float64     `json:"y"`
	Z      float64     `json:"z"`
	Normal math3d.Vec3 `json:"normal"`
}

// Position returns the waypoint location.
func (w Waypoint) Position() math3d.Vec3 {
	return math3d.V3(w.X, w.Y, w.Z)
}

// WithPosition returns a copy of w moved to p.
func (w Waypoint) WithPosition(p math3d.Vec3) Waypoint {
	w.X, w.Y, w.Z = p.X, p.Y, p.Z
	return w
}

// Path is an ordered flight path.
type Path []Waypoint

// Clone returns a copy that shares no memory with p.
func (p Path) Clone() Path {
	if p == nil {
		return nil
	}
	out := make(Path, len(p))
	copy(out, p)
	return out
}

// Positions returns the waypoint locations in order.
func (p Path) Positions() []math3d.Vec3 {
	out := make([]math3d.Vec3, len(p))
	for i, w := range p {
		out[i] = w.Position()
	}
	return out
}

// IDs returns the waypoint ids in order.
func (p Path) IDs() []int {
	out := make([]int, len(p))
	for i, w := range p {
		out[i] = w.ID
	}
	return out
}

// IndexOf returns the index of the waypoint with the given id, or -1.
func (p Path) IndexOf(id int) int {
	for i, w := range p {
		if w.ID == id {
			return i
		}
	}
	return -1
}

// MaxID returns the largest id in the path, or 0 for an empty path.
func (p Path) MaxID() int {
	highest := 0
	for _, w := range p {
		highest = max(highest, w.ID)
	}
	return highest
}

// Segments calls fn for each consecutive pair. Iteration stops when fn
// returns false.
func (p Path) Segments(fn func(i int, a, b math3d.Vec3) bool) {
	for i := 0; i+1 < len(p); i++ {
		if !fn(i, p[i].Position(), p[i+1].Position()) {
			return
		}
	}
}

// Validate checks that ids are unique and coordinates are finite.
func (p Path) Validate() error {
	seen := make(map[int]struct{}, len(p))
	for i, w := range p {
		if _, dup := seen[w.ID]; dup {
			return fmt.Errorf("%w: duplicate id %d at index %d", ErrInvalidPath, w.ID, i)
		}
		seen[w.ID] = struct{}{}
		if !finite(w.X, w.Y, w.Z, w.Normal.X, w.Normal.Y, w.Normal.Z) {
			return fmt.Errorf("%w: non-finite value at index %d", ErrInvalidPath, i)
		}
	}
	return nil
}

// RequireKPI validates p and checks it has enough points for KPIs.
func (p Path) RequireKPI() error {
	if len(p) < MinKPIWaypoints {
		return fmt.Errorf("%w: have %d, need %d", ErrTooFewWaypoints, len(p), MinKPIWaypoints)
	}
	return p.Validate()
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
