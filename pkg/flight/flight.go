// Package flight computes path length, flight time and energy for a
// flight path.
package flight

import (
	"math"

	"github.com/charmbracelet/harmonica"
	"github.com/taigrr/overfly/pkg/math3d"
	"github.com/taigrr/overfly/pkg/mission"
	"gonum.org/v1/gonum/floats"
)

// JoulesPerWattHour converts energy from J to Wh.
const JoulesPerWattHour = 3600

// maxRampSteps caps the speed-ramp simulation per segment.
const maxRampSteps = 1 << 20

// Config holds the drone performance model.
type Config struct {
	Speed          float64 // Cruise speed in m/s
	BasePower      float64 // Hover/avionics draw in W
	DistanceEnergy float64 // J per metre flown
	ClimbEnergy    float64 // J per metre climbed

	// RampFrequency is the angular frequency of the speed spring. Zero
	// disables ramping so every segment is flown at cruise speed.
	RampFrequency float64
	RampFPS       int // Simulation steps per second
}

// MinRampFrequency is the slowest speed spring simulated. Lower positive
// frequencies are raised to it so a segment stays bounded in steps.
const MinRampFrequency = 0.1

// DefaultConfig returns the stock quadcopter model.
func DefaultConfig() Config {
	return Config{
		Speed:          5,
		BasePower:      180,
		DistanceEnergy: 12,
		ClimbEnergy:    45,
		RampFrequency:  2,
		RampFPS:        60,
	}
}

// Metrics is the flight summary for one path.
type Metrics struct {
	Length float64 `json:"pathLength"`
	Time   float64 `json:"flightTime"`
	Energy float64 `json:"energy"`
	Climb  float64 `json:"climb"`
}

// SegmentLengths returns the length of each consecutive pair.
func SegmentLengths(path mission.Path) []float64 {
	if len(path) < 2 {
		return nil
	}
	out := make([]float64, 0, len(path)-1)
	path.Segments(func(_ int, a, b math3d.Vec3) bool {
		out = append(out, a.Distance(b))
		return true
	})
	return out
}

// PathLength returns the sum of segment lengths.
func PathLength(path mission.Path) float64 {
	return floats.Sum(SegmentLengths(path))
}

// Climb returns the total ascent, counting only upward segments.
func Climb(path mission.Path) float64 {
	var total float64
	path.Segments(func(_ int, a, b math3d.Vec3) bool {
		total += math.Max(0, b.Y-a.Y)
		return true
	})
	return total
}

// FlightTime returns the time in seconds to fly path.
func (c Config) FlightTime(path mission.Path) float64 {
	if c.Speed <= 0 {
		return 0
	}
	if c.RampFrequency <= 0 {
		return PathLength(path) / c.Speed
	}
	var total float64
	for _, l := range SegmentLengths(path) {
		total += c.RampedSegmentTime(l)
	}
	return total
}

// RampedSegmentTime returns the time to fly a segment of length l starting
// and ending at rest. Speed follows a critically damped spring toward
// cruise speed for the first half and mirrors it for the second.
func (c Config) RampedSegmentTime(l float64) float64 {
	if l <= 0 || c.Speed <= 0 {
		return 0
	}
	fps := c.RampFPS
	if fps <= 0 {
		fps = 60
	}
	dt := harmonica.FPS(fps)
	spring := harmonica.NewSpring(dt, max(c.RampFrequency, MinRampFrequency), 1.0)

	half := l / 2
	var speed, accel, traveled, elapsed float64
	for range maxRampSteps {
		speed, accel = spring.Update(speed, accel, c.Speed)
		step := speed * dt
		if traveled+step >= half {
			if speed > 0 {
				elapsed += (half - traveled) / speed
			}
			return 2 * elapsed
		}
		traveled += step
		elapsed += dt
	}
	// Ramp never converged; finish the half at cruise speed.
	return 2 * (elapsed + (half-traveled)/c.Speed)
}

// Energy returns the energy in Wh: base power over the flight time plus
// per-metre distance and climb terms.
func (c Config) Energy(path mission.Path) float64 {
	return c.energy(PathLength(path), c.FlightTime(path), Climb(path))
}

// Compute returns all flight metrics for path.
func (c Config) Compute(path mission.Path) Metrics {
	m := Metrics{
		Length: PathLength(path),
		Time:   c.FlightTime(path),
		Climb:  Climb(path),
	}
	m.Energy = c.energy(m.Length, m.Time, m.Climb)
	return m
}

func (c Config) energy(length, seconds, climb float64) float64 {
	joules := c.BasePower*seconds + c.DistanceEnergy*length + c.ClimbEnergy*climb
	return joules / JoulesPerWattHour
}
