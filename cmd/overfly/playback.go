package main

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/charmbracelet/harmonica"
	uv "github.com/charmbracelet/ultraviolet"
	"github.com/taigrr/overfly/pkg/collision"
	"github.com/taigrr/overfly/pkg/kpi"
	"github.com/taigrr/overfly/pkg/planner"
	"github.com/taigrr/overfly/pkg/preview"
)

// hudRows is the number of terminal rows reserved below the preview.
const hudRows = 2

// Scrubber eases the playback cursor toward the selected waypoint count
// with a critically damped spring.
type Scrubber struct {
	Position float64
	velocity float64
	target   int
	last     int
	spring   harmonica.Spring
}

// NewScrubber starts at the end of a path of count waypoints.
func NewScrubber(fps, count int) *Scrubber {
	return &Scrubber{
		Position: float64(count),
		target:   count,
		last:     count,
		// Frequency 6.0 settles within half a second, damping 1.0 = no overshoot
		spring: harmonica.NewSpring(harmonica.FPS(fps), 6.0, 1.0),
	}
}

// Seek selects a waypoint count, clamped to the path length.
func (s *Scrubber) Seek(k int) {
	s.target = min(max(k, 0), s.last)
}

// Step moves the selection by delta waypoints.
func (s *Scrubber) Step(delta int) {
	s.Seek(s.target + delta)
}

// Target is the selected waypoint count.
func (s *Scrubber) Target() int {
	return s.target
}

// Update advances the spring by one frame.
func (s *Scrubber) Update() {
	s.Position, s.velocity = s.spring.Update(s.Position, s.velocity, float64(s.target))
}

// Index is the waypoint count currently shown.
func (s *Scrubber) Index() int {
	return min(max(int(math.Round(s.Position)), 0), s.last)
}

// renderFrame draws the first k waypoints of the current path with the
// area they cover and the collisions found up to that point.
func renderFrame(p *planner.Planner, m kpi.Metrics, k, width, height int) *preview.Framebuffer {
	path := p.Store().Path()
	k = min(max(k, 0), len(path))
	calc := p.Calculator()

	var hits []collision.Collision
	for _, c := range m.CollisionDetails {
		if c.TimeIndex < k {
			hits = append(hits, c)
		}
	}
	scene := preview.Scene{
		Mesh:       calc.Mesh(),
		Path:       path[:k],
		Covered:    calc.Engine().Union(path[:k]),
		Collisions: hits,
	}
	fb := preview.NewFramebuffer(width, height)
	// fix the projection to the whole mission so the view does not jump
	full := preview.Scene{Mesh: scene.Mesh, Path: path}
	scene.Draw(fb, preview.NewProjection(full.Bounds(), width, height, 1))
	return fb
}

func statusLine(p *planner.Planner, m kpi.Metrics, k int) string {
	cov := "n/a"
	if c := p.CumulativeCoverage(k); c != nil {
		cov = fmt.Sprintf("%.1f%%", *c*100)
	}
	return fmt.Sprintf(" waypoint %d/%d  coverage %s  length %.1fm  time %.1fs  energy %.2fWh  collisions %d ",
		k, p.Store().Len(), cov, m.PathLength, m.FlightTime, m.Energy, m.CollisionCount)
}

func runTUI(ctx context.Context, p *planner.Planner, m kpi.Metrics, fps int) error {
	if fps <= 0 {
		fps = 30
	}
	term := uv.DefaultTerminal()

	width, height, err := term.GetSize()
	if err != nil {
		return fmt.Errorf("get terminal size: %w", err)
	}
	if err := term.Start(); err != nil {
		return fmt.Errorf("start terminal: %w", err)
	}
	term.EnterAltScreen()
	term.HideCursor()
	term.Resize(width, height)

	defer func() {
		term.ExitAltScreen()
		term.ShowCursor()
		term.Shutdown(context.Background())
	}()

	scrub := NewScrubber(fps, p.Store().Len())
	events := term.Events()
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	shown, resized := -1, true
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch ev := ev.(type) {
			case uv.WindowSizeEvent:
				width, height = ev.Width, ev.Height
				term.Erase()
				term.Resize(width, height)
				resized = true
			case uv.KeyPressEvent:
				switch {
				case ev.MatchString("q", "escape", "ctrl+c"):
					return nil
				case ev.MatchString("left", "h"):
					scrub.Step(-1)
				case ev.MatchString("right", "l"):
					scrub.Step(1)
				case ev.MatchString("home"):
					scrub.Seek(0)
				case ev.MatchString("end"):
					scrub.Seek(p.Store().Len())
				}
			}

		case <-ticker.C:
			scrub.Update()
			k := scrub.Index()
			if k == shown && !resized {
				continue
			}
			shown, resized = k, false

			rows := max(height-hudRows, 1)
			frame := renderFrame(p, m, k, width, rows*2)
			line := statusLine(p, m, k)
			term.Draw(uv.DrawableFunc(func(scr uv.Screen, area uv.Rectangle) {
				view := area
				view.Max.Y = view.Min.Y + rows
				frame.Draw(scr, view)
				preview.DrawText(scr, area.Min.X, area.Min.Y+rows, line, preview.ColorWaypoint)
				preview.DrawText(scr, area.Min.X, area.Min.Y+rows+1, " ←/→ scrub  home/end jump  q quit", preview.ColorUncovered)
			}))
			if err := term.Display(); err != nil {
				return fmt.Errorf("display: %w", err)
			}
		}
	}
}
