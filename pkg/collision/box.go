// Package collision detects path-versus-building collisions and estimates
// camera-versus-camera obstruction.
package collision

import (
	"math"

	"github.com/taigrr/overfly/pkg/math3d"
)

// Kind tells what part of the path collided.
type Kind string

// Collision kinds.
const (
	KindWaypoint Kind = "waypoint"
	KindSegment  Kind = "segment"
)

// Collision is one detected contact between the path and the building.
type Collision struct {
	Kind      Kind        `json:"kind"`
	Position  math3d.Vec3 `json:"position"`
	Severity  float64     `json:"severity"`
	TimeIndex int         `json:"timeIndex"`
}

// Box tests points and segments against the mesh bounding box.
// The segment test is a fast approximation: it can miss segments that only
// graze a corner of the box.
type Box struct {
	Bounds   math3d.AABB
	center   math3d.Vec3
	diagonal float64
}

// NewBox creates a box detector over bounds.
func NewBox(bounds math3d.AABB) Box {
	return Box{
		Bounds:   bounds,
		center:   bounds.Center(),
		diagonal: bounds.Diagonal(),
	}
}

// Center returns the box center.
func (b Box) Center() math3d.Vec3 {
	return b.center
}

// ContainsPoint reports whether p is inside the box.
func (b Box) ContainsPoint(p math3d.Vec3) bool {
	return b.Bounds.ContainsPoint(p)
}

// SegmentHits reports whether segment [a, b] appears to cross the box:
// the segment point nearest the box center is inside, or an endpoint is.
func (b Box) SegmentHits(p0, p1 math3d.Vec3) bool {
	if b.Bounds.IsEmpty() {
		return false
	}
	if b.Bounds.ContainsPoint(p0) || b.Bounds.ContainsPoint(p1) {
		return true
	}
	return b.Bounds.ContainsPoint(b.NearestOnSegment(p0, p1))
}

// NearestOnSegment returns the point of [p0, p1] closest to the box center.
func (b Box) NearestOnSegment(p0, p1 math3d.Vec3) math3d.Vec3 {
	return math3d.ClosestPointOnSegment(p0, p1, b.center)
}

// Severity is 1 at the box center falling to 0 one diagonal away.
func (b Box) Severity(p math3d.Vec3) float64 {
	if b.diagonal < math3d.Epsilon {
		return 1
	}
	s := 1 - math.Min(1, p.Distance(b.center)/b.diagonal)
	return math.Max(0, math.Min(1, s))
}
