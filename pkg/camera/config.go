// Package camera derives camera poses from waypoints and builds the
// volumes used for visibility and occlusion tests.
package camera

import "math"

// Config holds the fixed camera intrinsics shared by every waypoint.
type Config struct {
	FOV    float64 // Vertical field of view in degrees
	Aspect float64 // Width / Height
	Near   float64 // Near plane, used by Frustum only
	Far    float64 // Far plane; also the upper clamp for dynamic height

	// Dynamic height bounds
	MinHeight      float64
	FallbackHeight float64
}

// DefaultConfig returns the stock survey camera.
func DefaultConfig() Config {
	return Config{
		FOV:            60,
		Aspect:         1.5,
		Near:           0.1,
		Far:            100,
		MinHeight:      0.1,
		FallbackHeight: 10,
	}
}

// FOVRadians returns the vertical field of view in radians.
func (c Config) FOVRadians() float64 {
	return c.FOV * math.Pi / 180
}

// HalfExtents returns the half-width and half-height of the view cross
// section at distance d.
func (c Config) HalfExtents(d float64) (halfWidth, halfHeight float64) {
	halfHeight = d * math.Tan(c.FOVRadians()/2)
	return halfHeight * c.Aspect, halfHeight
}
