// Package kpi computes mission KPIs for a flight path over a building mesh
// and schedules debounced recomputation while the path is being edited.
package kpi

import (
	"github.com/taigrr/overfly/pkg/collision"
)

// Status is the lifecycle of a KPI result.
type Status string

// Statuses.
const (
	StatusIdle        Status = "idle"
	StatusCalculating Status = "calculating"
	StatusComplete    Status = "complete"
	StatusError       Status = "error"
)

// Metrics is one KPI result. It is replaced wholesale on every computation.
// Coverage and Overlap are fractions in [0,1] and nil when no mesh is
// available to compute them.
type Metrics struct {
	PathLength float64  `json:"pathLength"`
	FlightTime float64  `json:"flightTime"`
	Energy     float64  `json:"energy"`
	Climb      float64  `json:"climb"`
	Coverage   *float64 `json:"coverage"`
	Overlap    *float64 `json:"overlap"`

	CollisionCount   int                     `json:"collisionCount"`
	HasCollision     bool                    `json:"hasCollision"`
	CollisionDetails []collision.Collision   `json:"collisionDetails"`
	Obstructions     []collision.Obstruction `json:"obstructions,omitempty"`

	Waypoints int     `json:"waypoints"`
	Status    Status  `json:"status"`
	Progress  float64 `json:"progress"`
	Error     string  `json:"error,omitempty"`
}

// Pending returns a copy of m marked as being recalculated.
func (m Metrics) Pending() Metrics {
	m.Status = StatusCalculating
	m.Progress = 0
	return m
}

// Failed returns a metrics value carrying only err.
func Failed(err error) Metrics {
	return Metrics{Status: StatusError, Error: err.Error(), CollisionDetails: []collision.Collision{}}
}
