package main

import (
	"context"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/taigrr/overfly/internal/logging"
	"github.com/taigrr/overfly/pkg/math3d"
	"github.com/taigrr/overfly/pkg/mission"
	"github.com/taigrr/overfly/pkg/models"
	"github.com/taigrr/overfly/pkg/planner"
	"github.com/taigrr/overfly/pkg/preview"
)

func TestScrubberSettles(t *testing.T) {
	s := NewScrubber(60, 10)
	if s.Index() != 10 {
		t.Fatalf("initial index = %d, want 10", s.Index())
	}

	s.Seek(3)
	for range 120 {
		s.Update()
	}
	if s.Index() != 3 {
		t.Errorf("index after settling = %d, want 3", s.Index())
	}
	if s.Position < 3-0.01 || s.Position > 3+0.01 {
		t.Errorf("position = %v, want about 3", s.Position)
	}
}

func TestScrubberClamps(t *testing.T) {
	s := NewScrubber(60, 4)
	s.Step(5)
	if s.Target() != 4 {
		t.Errorf("target = %d, want 4", s.Target())
	}
	s.Seek(-2)
	if s.Target() != 0 {
		t.Errorf("target = %d, want 0", s.Target())
	}
	s.Step(1)
	if s.Target() != 1 {
		t.Errorf("target = %d, want 1", s.Target())
	}
}

func TestRenderFrameAndStatus(t *testing.T) {
	mesh, err := models.NewMesh("ground", []float64{
		-5, -10, -3,
		-5, -10, 3,
		15, -10, 3,
		15, -10, -3,
	}, []uint32{0, 1, 2, 0, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	path := mission.Path{
		{ID: 1, X: 0, Normal: math3d.Down()},
		{ID: 2, X: 10, Normal: math3d.Down()},
	}
	cfg := planner.DefaultConfig()
	cfg.KPI.Flight.RampFrequency = 0
	p := planner.New(mesh, path, cfg, planner.WithLogger(logging.Discard()))
	defer p.Close()

	m, err := p.ComputeNow(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	empty := renderFrame(p, m, 0, 40, 20)
	full := renderFrame(p, m, 2, 40, 20)
	if count(empty, preview.ColorCovered) != 0 {
		t.Error("no waypoints shown but covered pixels drawn")
	}
	if count(full, preview.ColorCovered) == 0 {
		t.Error("full path shows no covered pixels")
	}

	line := statusLine(p, m, 2)
	for _, want := range []string{"waypoint 2/2", "coverage 100.0%", "length 10.0m"} {
		if !strings.Contains(line, want) {
			t.Errorf("status %q missing %q", line, want)
		}
	}
}

func TestLoadMeshAppliesPlacement(t *testing.T) {
	name := filepath.Join(t.TempDir(), "tri.json")
	data := `{"vertices": [0, 0, 0, 0, 0, 1, 1, 0, 0]}`
	if err := os.WriteFile(name, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	mesh, err := loadMesh(name, math3d.Placement(math3d.V3(0, 5, 0), 0, 2))
	if err != nil {
		t.Fatal(err)
	}
	if mesh.BoundsMin != math3d.V3(0, 5, 0) || mesh.BoundsMax != math3d.V3(2, 5, 2) {
		t.Errorf("bounds = %v..%v, want (0,5,0)..(2,5,2)", mesh.BoundsMin, mesh.BoundsMax)
	}

	if _, err := loadMesh(filepath.Join(t.TempDir(), "missing.json"), math3d.Identity()); err == nil {
		t.Error("expected error for missing mesh")
	}
}

func count(fb *preview.Framebuffer, c color.RGBA) int {
	n := 0
	for _, px := range fb.Pixels {
		if px == c {
			n++
		}
	}
	return n
}
