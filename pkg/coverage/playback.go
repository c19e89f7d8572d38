package coverage

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/taigrr/overfly/pkg/mission"
)

// Playback tracks cumulative coverage along a fixed path for scrubbing.
// Extending the prefix by one waypoint costs one visible-set lookup.
type Playback struct {
	engine  *Engine
	path    mission.Path
	union   mapset.Set[int]
	covered float64
	steps   []float64 // steps[k] is coverage after k+1 waypoints
}

// NewPlayback starts a playback over a snapshot of path.
func (e *Engine) NewPlayback(path mission.Path) *Playback {
	return &Playback{
		engine: e,
		path:   path.Clone(),
		union:  mapset.NewThreadUnsafeSet[int](),
	}
}

// Len returns the number of waypoints in the playback path.
func (p *Playback) Len() int {
	return len(p.path)
}

// CoverageAt returns coverage in percent using the first k waypoints.
// k is clamped to [0, Len()]. Unavailable coverage reports false.
func (p *Playback) CoverageAt(k int) (float64, bool) {
	if !p.engine.Available() {
		return 0, false
	}
	k = max(0, min(k, len(p.path)))
	if k == 0 {
		return 0, true
	}
	for len(p.steps) < k {
		p.advance()
	}
	return p.steps[k-1], true
}

func (p *Playback) advance() {
	w := p.path[len(p.steps)]
	res := p.engine.resolver
	p.engine.Visible(w).Each(func(i int) bool {
		if !p.union.Contains(i) {
			p.union.Add(i)
			p.covered += res.facets[i].Area
		}
		return false
	})
	p.steps = append(p.steps, p.engine.percent(p.covered))
}
