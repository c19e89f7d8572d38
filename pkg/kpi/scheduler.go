package kpi

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/taigrr/overfly/pkg/mission"
)

// DefaultDebounce is the quiet period after the last edit before KPIs are
// recomputed.
const DefaultDebounce = 500 * time.Millisecond

// Result is one delivered computation.
type Result struct {
	Generation uint64
	Metrics    Metrics
	Err        error
}

// Scheduler debounces KPI recomputation. Every Trigger supersedes the
// previous one: its timer is re-armed, an in-flight computation is
// canceled, and only the newest generation is ever delivered.
type Scheduler struct {
	calc    *Calculator
	delay   time.Duration
	deliver func(Result)
	logger  *slog.Logger

	mu      sync.Mutex
	gen     uint64
	timer   *time.Timer
	cancel  context.CancelFunc
	latest  Metrics
	stopped bool
	wg      sync.WaitGroup

	// deliverMu spans the freshness check and the callback, so results
	// are delivered one at a time in generation order.
	deliverMu sync.Mutex
}

// NewScheduler creates a scheduler that calls deliver with each current
// result. deliver runs on a timer goroutine, never concurrently with
// itself, and may be nil. A delay of
// zero or less uses DefaultDebounce.
func NewScheduler(calc *Calculator, delay time.Duration, deliver func(Result)) *Scheduler {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Scheduler{
		calc:    calc,
		delay:   delay,
		deliver: deliver,
		logger:  calc.logger,
		latest:  Metrics{Status: StatusIdle},
	}
}

// Trigger schedules a recomputation for a snapshot of path and returns its
// generation.
func (s *Scheduler) Trigger(path mission.Path) uint64 {
	snapshot := path.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return s.gen
	}
	s.gen++
	gen := s.gen
	s.supersedeLocked()
	s.latest = s.latest.Pending()

	s.wg.Add(1)
	s.timer = time.AfterFunc(s.delay, func() {
		defer s.wg.Done()
		s.run(gen, snapshot)
	})
	return gen
}

// supersedeLocked stops the pending timer and cancels the running
// computation (caller must hold lock).
func (s *Scheduler) supersedeLocked() {
	if s.timer != nil && s.timer.Stop() {
		s.wg.Done()
	}
	s.timer = nil
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

func (s *Scheduler) run(gen uint64, path mission.Path) {
	s.mu.Lock()
	if gen != s.gen || s.stopped {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	m, err := s.calc.Compute(ctx, path)

	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	s.mu.Lock()
	current := gen == s.gen && !s.stopped
	if current {
		s.latest = m
		s.cancel = nil
	}
	s.mu.Unlock()

	if !current {
		s.logger.Debug("discarding stale kpi result", "generation", gen)
		return
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("kpi computation failed", "generation", gen, "err", err)
	}
	if s.deliver != nil {
		s.deliver(Result{Generation: gen, Metrics: m, Err: err})
	}
}

// Latest returns the most recent metrics. While a recomputation is pending
// it is the previous result marked as calculating.
func (s *Scheduler) Latest() Metrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest
}

// Generation returns the number of triggers so far.
func (s *Scheduler) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// Stop cancels pending and running work and waits for timer callbacks to
// return. Later triggers are ignored.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.supersedeLocked()
	s.mu.Unlock()
	s.wg.Wait()
}
