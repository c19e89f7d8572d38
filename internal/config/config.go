// Package config loads overfly settings from OVERFLY_* environment
// variables.
package config

import (
	"fmt"
	"math"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/taigrr/overfly/pkg/camera"
	"github.com/taigrr/overfly/pkg/collision"
	"github.com/taigrr/overfly/pkg/flight"
	"github.com/taigrr/overfly/pkg/kpi"
	"github.com/taigrr/overfly/pkg/math3d"
	"github.com/taigrr/overfly/pkg/optimize"
	"github.com/taigrr/overfly/pkg/planner"
)

// Prefix is the environment variable prefix.
const Prefix = "OVERFLY"

// Config holds every tunable, one field per OVERFLY_* variable.
type Config struct {
	// Camera
	FOV            float64 `envconfig:"CAMERA_FOV" default:"60"`
	Aspect         float64 `envconfig:"CAMERA_ASPECT" default:"1.5"`
	Near           float64 `envconfig:"CAMERA_NEAR" default:"0.1"`
	Far            float64 `envconfig:"CAMERA_FAR" default:"100"`
	MinHeight      float64 `envconfig:"CAMERA_MIN_HEIGHT" default:"0.1"`
	FallbackHeight float64 `envconfig:"CAMERA_FALLBACK_HEIGHT" default:"10"`
	RequireFacing  bool    `envconfig:"REQUIRE_FACING" default:"false"`

	// Drone
	Speed          float64 `envconfig:"SPEED" default:"5"`
	BasePower      float64 `envconfig:"BASE_POWER" default:"180"`
	DistanceEnergy float64 `envconfig:"DISTANCE_ENERGY" default:"12"`
	ClimbEnergy    float64 `envconfig:"CLIMB_ENERGY" default:"45"`
	RampFrequency  float64 `envconfig:"RAMP_FREQUENCY" default:"2"`
	RampFPS        int     `envconfig:"RAMP_FPS" default:"60"`

	// Collision and optimizer
	CollisionMode    string  `envconfig:"COLLISION_MODE" default:"voxel"`
	VoxelResolution  int     `envconfig:"VOXEL_RESOLUTION" default:"64"`
	CheckObstruction bool    `envconfig:"CHECK_OBSTRUCTION" default:"false"`
	CollisionPenalty float64 `envconfig:"COLLISION_PENALTY" default:"1e6"`
	MaxPasses        int     `envconfig:"MAX_PASSES" default:"50"`

	// Mesh placement: offset is "x,y,z", heading is degrees about +Y
	MeshOffset  []float64 `envconfig:"MESH_OFFSET"`
	MeshHeading float64   `envconfig:"MESH_HEADING" default:"0"`
	MeshScale   float64   `envconfig:"MESH_SCALE" default:"1"`

	// Editing
	HistorySize int           `envconfig:"HISTORY_SIZE" default:"100"`
	Debounce    time.Duration `envconfig:"DEBOUNCE" default:"500ms"`

	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"text"`
	MetricsAddr string `envconfig:"METRICS_ADDR"`
}

// Load reads the environment and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings no component can work with.
func (c *Config) Validate() error {
	if _, err := collision.ParseMode(c.CollisionMode); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	switch {
	case c.FOV <= 0 || c.FOV >= 180:
		return fmt.Errorf("config: camera fov %v out of range (0, 180)", c.FOV)
	case c.Aspect <= 0:
		return fmt.Errorf("config: camera aspect %v must be positive", c.Aspect)
	case c.Near <= 0 || c.Near >= c.Far:
		return fmt.Errorf("config: camera near %v must be positive and below far %v", c.Near, c.Far)
	case c.MinHeight <= 0 || c.MinHeight > c.FallbackHeight:
		return fmt.Errorf("config: camera min height %v must be positive and at most fallback height %v", c.MinHeight, c.FallbackHeight)
	case c.Speed <= 0:
		return fmt.Errorf("config: speed %v must be positive", c.Speed)
	case c.RampFrequency != 0 && c.RampFrequency < flight.MinRampFrequency:
		return fmt.Errorf("config: ramp frequency %v must be 0 or at least %v", c.RampFrequency, flight.MinRampFrequency)
	case c.RampFPS < 1:
		return fmt.Errorf("config: ramp fps %d must be positive", c.RampFPS)
	case len(c.MeshOffset) != 0 && len(c.MeshOffset) != 3:
		return fmt.Errorf("config: mesh offset needs 3 components, got %d", len(c.MeshOffset))
	case c.MeshScale <= 0:
		return fmt.Errorf("config: mesh scale %v must be positive", c.MeshScale)
	case c.VoxelResolution < 1:
		return fmt.Errorf("config: voxel resolution %d must be positive", c.VoxelResolution)
	case c.HistorySize < 1:
		return fmt.Errorf("config: history size %d must be positive", c.HistorySize)
	}
	return nil
}

// Placement returns the model matrix applied to the loaded mesh.
func (c *Config) Placement() math3d.Mat4 {
	var offset math3d.Vec3
	if len(c.MeshOffset) == 3 {
		offset = math3d.V3(c.MeshOffset[0], c.MeshOffset[1], c.MeshOffset[2])
	}
	return math3d.Placement(offset, c.MeshHeading*math.Pi/180, c.MeshScale)
}

// Camera returns the pyramid settings.
func (c *Config) Camera() camera.Config {
	return camera.Config{
		FOV:            c.FOV,
		Aspect:         c.Aspect,
		Near:           c.Near,
		Far:            c.Far,
		MinHeight:      c.MinHeight,
		FallbackHeight: c.FallbackHeight,
	}
}

// Flight returns the drone model.
func (c *Config) Flight() flight.Config {
	return flight.Config{
		Speed:          c.Speed,
		BasePower:      c.BasePower,
		DistanceEnergy: c.DistanceEnergy,
		ClimbEnergy:    c.ClimbEnergy,
		RampFrequency:  c.RampFrequency,
		RampFPS:        c.RampFPS,
	}
}

// KPI returns the KPI options. CollisionMode must have passed Validate.
func (c *Config) KPI() kpi.Options {
	mode, _ := collision.ParseMode(c.CollisionMode)
	return kpi.Options{
		Camera:           c.Camera(),
		Flight:           c.Flight(),
		RequireFacing:    c.RequireFacing,
		CollisionMode:    mode,
		VoxelResolution:  c.VoxelResolution,
		CheckObstruction: c.CheckObstruction,
	}
}

// Optimize returns the path optimizer options.
func (c *Config) Optimize() optimize.Options {
	return optimize.Options{
		Penalty:    c.CollisionPenalty,
		MaxPasses:  c.MaxPasses,
		Resolution: c.VoxelResolution,
	}
}

// Planner bundles everything the planner needs.
func (c *Config) Planner() planner.Config {
	return planner.Config{
		KPI:         c.KPI(),
		Optimize:    c.Optimize(),
		Debounce:    c.Debounce,
		HistorySize: c.HistorySize,
	}
}
