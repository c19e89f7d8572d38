// Package optimize reorders flight paths to shorten them while steering
// clear of the building, using nearest-neighbour construction followed by
// 2-opt local search.
package optimize

import (
	"context"
	"errors"
	"fmt"

	"github.com/taigrr/overfly/pkg/math3d"
	"github.com/taigrr/overfly/pkg/mission"
)

var (
	// ErrOptimizationFailed wraps any unexpected failure inside a run.
	ErrOptimizationFailed = errors.New("optimization failed")
	// ErrCanceled is returned when a run is abandoned before completion.
	ErrCanceled = errors.New("optimization canceled")
)

// Tunables. Both were chosen empirically.
const (
	DefaultCollisionPenalty = 1e6
	DefaultMaxPasses        = 50
)

// MinPoints is the smallest path the optimizer will reorder.
const MinPoints = 4

// improvement is the minimum cost reduction a 2-opt move must achieve.
const improvement = 1e-10

// SegmentChecker reports whether the segment [a, b] hits an obstacle.
type SegmentChecker interface {
	SegmentCollides(a, b math3d.Vec3) bool
}

// Cost prices a hop between two points: Euclidean distance plus a penalty
// when the segment collides.
type Cost struct {
	Checker SegmentChecker // nil disables the penalty
	Penalty float64
}

// Edge returns the cost of flying from a to b.
func (c Cost) Edge(a, b math3d.Vec3) float64 {
	d := a.Distance(b)
	if c.Checker != nil && c.Checker.SegmentCollides(a, b) {
		d += c.Penalty
	}
	return d
}

// Total returns the summed edge cost along path.
func (c Cost) Total(path mission.Path) float64 {
	var total float64
	path.Segments(func(_ int, a, b math3d.Vec3) bool {
		total += c.Edge(a, b)
		return true
	})
	return total
}

// NearestNeighbor builds a path starting at path[0], each step moving to the
// cheapest unvisited point. The input is not modified.
func NearestNeighbor(ctx context.Context, path mission.Path, cost Cost) (mission.Path, error) {
	n := len(path)
	if n == 0 {
		return mission.Path{}, nil
	}

	out := make(mission.Path, 0, n)
	visited := make([]bool, n)
	current := 0
	visited[0] = true
	out = append(out, path[0])

	for len(out) < n {
		if err := ctx.Err(); err != nil {
			return nil, canceled(err)
		}
		from := path[current].Position()
		best, bestCost := -1, 0.0
		for j := range path {
			if visited[j] {
				continue
			}
			c := cost.Edge(from, path[j].Position())
			if best < 0 || c < bestCost {
				best, bestCost = j, c
			}
		}
		visited[best] = true
		current = best
		out = append(out, path[best])
	}
	return out, nil
}

// TwoOpt improves path in place by reversing sub-sequences path[i..k],
// i >= 1, whenever that lowers the cost of the two edges involved. It stops
// after a pass with no improvement or after maxPasses passes and returns the
// number of passes run. Index 0 never moves.
func TwoOpt(ctx context.Context, path mission.Path, cost Cost, maxPasses int) (int, error) {
	n := len(path)
	if n < 3 {
		return 0, nil
	}
	if maxPasses <= 0 {
		maxPasses = DefaultMaxPasses
	}

	pos := path.Positions()
	passes := 0
	for passes < maxPasses {
		passes++
		improved := false
		for i := 1; i < n-1; i++ {
			if err := ctx.Err(); err != nil {
				return passes, canceled(err)
			}
			for k := i + 1; k < n; k++ {
				before := cost.Edge(pos[i-1], pos[i])
				after := cost.Edge(pos[i-1], pos[k])
				if k+1 < n {
					before += cost.Edge(pos[k], pos[k+1])
					after += cost.Edge(pos[i], pos[k+1])
				}
				if after < before-improvement {
					reverse(path, i, k)
					reverse(pos, i, k)
					improved = true
				}
			}
		}
		if !improved {
			break
		}
	}
	return passes, nil
}

func reverse[T any](s []T, i, k int) {
	for i < k {
		s[i], s[k] = s[k], s[i]
		i++
		k--
	}
}

func canceled(err error) error {
	return fmt.Errorf("%w: %w", ErrCanceled, err)
}
