package history

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/taigrr/overfly/pkg/math3d"
	"github.com/taigrr/overfly/pkg/mission"
)

// DefaultMaxSize is the number of actions kept for undo.
const DefaultMaxSize = 100

var (
	// ErrIndexOutOfRange is returned when an index does not name a waypoint.
	ErrIndexOutOfRange = errors.New("index out of range")
	// ErrPointNotFound is returned when an action's point cannot be located.
	ErrPointNotFound = errors.New("point not found")
	// ErrDuplicateID is returned when an insert would reuse a live id.
	ErrDuplicateID = errors.New("duplicate point id")
	// ErrUnknownAction is returned for an unrecognised action type.
	ErrUnknownAction = errors.New("unknown action type")
	// ErrVersionMismatch is returned by CompareAndReplace when the path
	// changed since the expected version.
	ErrVersionMismatch = errors.New("path version mismatch")
)

// ChangeKind says how a Change came about.
type ChangeKind string

// Change kinds.
const (
	ChangePush  ChangeKind = "push"
	ChangeUndo  ChangeKind = "undo"
	ChangeRedo  ChangeKind = "redo"
	ChangeReset ChangeKind = "reset"
)

// Change is delivered to listeners after every committed mutation.
type Change struct {
	Kind    ChangeKind
	Action  ActionType
	Version uint64
	Path    mission.Path
}

// Listener receives changes. It runs on the mutating goroutine after the
// store lock is released.
type Listener func(Change)

// Store owns the flight path and its linear undo history.
// cursor is -1 at the base state and len(history)-1 when fully applied.
type Store struct {
	mu       sync.RWMutex
	path     mission.Path
	history  []Action
	cursor   int
	maxSize  int
	nextID   int
	selected int
	version  uint64

	listeners  map[int]Listener
	listenerID int

	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithMaxSize bounds the undo history. Values below 1 keep the default.
func WithMaxSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxSize = n
		}
	}
}

// WithLogger sets the logger. A nil logger keeps slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the action timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore creates a store holding a copy of path.
func NewStore(path mission.Path, opts ...Option) *Store {
	s := &Store{
		path:      path.Clone(),
		cursor:    -1,
		maxSize:   DefaultMaxSize,
		nextID:    path.MaxID() + 1,
		selected:  -1,
		listeners: make(map[int]Listener),
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns a snapshot of the current path.
func (s *Store) Path() mission.Path {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path.Clone()
}

// Len returns the number of waypoints.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.path)
}

// Version increases with every committed mutation.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Snapshot returns the path together with the version it belongs to.
func (s *Store) Snapshot() (mission.Path, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.path.Clone(), s.version
}

// Cursor returns the index of the last applied action, or -1.
func (s *Store) Cursor() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursor
}

// HistoryLen returns the number of recorded actions.
func (s *Store) HistoryLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history)
}

// Actions returns copies of the recorded actions, oldest first.
func (s *Store) Actions() []Action {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Action, len(s.history))
	for i, a := range s.history {
		out[i] = a.Clone()
	}
	return out
}

// CanUndo reports whether an action is available to undo.
func (s *Store) CanUndo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursor >= 0
}

// CanRedo reports whether an undone action is available to redo.
func (s *Store) CanRedo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cursor < len(s.history)-1
}

// NewID allocates a waypoint id. Ids are never reused within a store.
func (s *Store) NewID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allocLocked()
}

func (s *Store) allocLocked() int {
	id := s.nextID
	s.nextID++
	return id
}

// Subscribe registers l and returns a function that removes it.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.listenerID
	s.listenerID++
	s.listeners[id] = l
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// PushAction applies a and records it, discarding any redo branch.
func (s *Store) PushAction(a Action) error {
	s.mu.Lock()
	change, err := s.pushLocked(a)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notify(change)
	return nil
}

func (s *Store) pushLocked(a Action) (Change, error) {
	a = a.Clone()
	if a.Timestamp.IsZero() {
		a.Timestamp = s.now()
	}
	if err := s.applyLocked(a); err != nil {
		return Change{}, fmt.Errorf("apply %s: %w", a.Type, err)
	}

	if s.cursor < len(s.history)-1 {
		s.history = s.history[:s.cursor+1]
	}
	s.history = append(s.history, a)
	s.cursor++
	if len(s.history) > s.maxSize {
		drop := len(s.history) - s.maxSize
		s.history = append([]Action(nil), s.history[drop:]...)
		s.cursor -= drop
	}

	s.nextID = max(s.nextID, s.path.MaxID()+1)
	switch a.Type {
	case ActionAddPoint:
		s.selected = s.path.IndexOf(a.New.Point.ID)
	case ActionReplacePath:
		s.selected = -1
	}
	return s.commitLocked(ChangePush, a.Type), nil
}

// Undo reverts the action at the cursor. It returns false, logging a
// warning, when there is nothing to undo.
func (s *Store) Undo() bool {
	s.mu.Lock()
	if s.cursor < 0 {
		s.mu.Unlock()
		s.logger.Warn("undo with empty history")
		return false
	}
	a := s.history[s.cursor]
	if err := s.revertLocked(a); err != nil {
		s.mu.Unlock()
		s.logger.Error("undo failed", "action", a.Type, "err", err)
		return false
	}
	s.cursor--
	change := s.commitLocked(ChangeUndo, a.Type)
	s.mu.Unlock()

	s.notify(change)
	return true
}

// Redo reapplies the next undone action. It returns false, logging a
// warning, when there is nothing to redo.
func (s *Store) Redo() bool {
	s.mu.Lock()
	if s.cursor >= len(s.history)-1 {
		s.mu.Unlock()
		s.logger.Warn("redo past end of history")
		return false
	}
	a := s.history[s.cursor+1]
	if err := s.applyLocked(a); err != nil {
		s.mu.Unlock()
		s.logger.Error("redo failed", "action", a.Type, "err", err)
		return false
	}
	s.cursor++
	change := s.commitLocked(ChangeRedo, a.Type)
	s.mu.Unlock()

	s.notify(change)
	return true
}

// Reset replaces the path and clears all history. It is not undoable.
func (s *Store) Reset(path mission.Path) {
	s.mu.Lock()
	s.path = path.Clone()
	s.history = nil
	s.cursor = -1
	s.selected = -1
	s.nextID = max(s.nextID, path.MaxID()+1)
	change := s.commitLocked(ChangeReset, "")
	s.mu.Unlock()

	s.notify(change)
}

// commitLocked bumps the version, keeps the selection in range and builds
// the change for listeners.
func (s *Store) commitLocked(kind ChangeKind, t ActionType) Change {
	s.version++
	if s.selected >= len(s.path) {
		s.selected = len(s.path) - 1
	}
	return Change{Kind: kind, Action: t, Version: s.version, Path: s.path.Clone()}
}

func (s *Store) notify(c Change) {
	s.mu.RLock()
	ls := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		ls = append(ls, l)
	}
	s.mu.RUnlock()

	for _, l := range ls {
		l(c)
	}
}

// MovePoint moves the waypoint at index to pos.
func (s *Store) MovePoint(index int, pos math3d.Vec3) error {
	return s.editAt(index, func(w mission.Waypoint) Action {
		return MoveAction(index, w, pos)
	})
}

// SetNormal points the camera of the waypoint at index along normal.
func (s *Store) SetNormal(index int, normal math3d.Vec3) error {
	return s.editAt(index, func(w mission.Waypoint) Action {
		return NormalAction(index, w, normal)
	})
}

// DeletePoint removes the waypoint at index.
func (s *Store) DeletePoint(index int) error {
	return s.editAt(index, func(w mission.Waypoint) Action {
		return DeleteAction(index, w)
	})
}

func (s *Store) editAt(index int, build func(mission.Waypoint) Action) error {
	s.mu.Lock()
	if index < 0 || index >= len(s.path) {
		n := len(s.path)
		s.mu.Unlock()
		return fmt.Errorf("%w: %d (have %d points)", ErrIndexOutOfRange, index, n)
	}
	change, err := s.pushLocked(build(s.path[index]))
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notify(change)
	return nil
}

// AddPoint inserts w at index, assigning a fresh id when w.ID is zero.
// It returns the inserted waypoint.
func (s *Store) AddPoint(index int, w mission.Waypoint) (mission.Waypoint, error) {
	s.mu.Lock()
	if index < 0 || index > len(s.path) {
		n := len(s.path)
		s.mu.Unlock()
		return mission.Waypoint{}, fmt.Errorf("%w: %d (have %d points)", ErrIndexOutOfRange, index, n)
	}
	if w.ID == 0 {
		w.ID = s.allocLocked()
	}
	change, err := s.pushLocked(AddAction(index, w))
	s.mu.Unlock()
	if err != nil {
		return mission.Waypoint{}, err
	}
	s.notify(change)
	return w, nil
}

// InsertBefore adds a waypoint between index-1 and index. At the start of
// the path the first segment is extrapolated backwards by half its length.
func (s *Store) InsertBefore(index int) (mission.Waypoint, error) {
	s.mu.RLock()
	w, err := s.interpolatedLocked(index, index-1)
	s.mu.RUnlock()
	if err != nil {
		return mission.Waypoint{}, err
	}
	return s.AddPoint(index, w)
}

// InsertAfter adds a waypoint between index and index+1. At the end of the
// path the last segment is extrapolated forwards by half its length.
func (s *Store) InsertAfter(index int) (mission.Waypoint, error) {
	s.mu.RLock()
	w, err := s.interpolatedLocked(index, index+1)
	s.mu.RUnlock()
	if err != nil {
		return mission.Waypoint{}, err
	}
	return s.AddPoint(index+1, w)
}

// interpolatedLocked builds a new waypoint next to the point at index,
// toward neighbour. The id is left zero for AddPoint to allocate.
func (s *Store) interpolatedLocked(index, neighbour int) (mission.Waypoint, error) {
	if index < 0 || index >= len(s.path) {
		return mission.Waypoint{}, fmt.Errorf("%w: %d (have %d points)", ErrIndexOutOfRange, index, len(s.path))
	}
	anchor := s.path[index]
	a := anchor.Position()

	var pos math3d.Vec3
	switch {
	case neighbour >= 0 && neighbour < len(s.path):
		pos = a.Add(s.path[neighbour].Position()).Scale(0.5)
	case len(s.path) == 1:
		dx := 1.0
		if neighbour < index {
			dx = -1
		}
		pos = a.Add(math3d.V3(dx, 0, 0))
	default:
		// mirror the segment on the other side of the anchor
		other := s.path[index+(index-neighbour)].Position()
		pos = a.Add(a.Sub(other).Scale(0.5))
	}

	w := mission.Waypoint{Normal: anchor.Normal}
	return w.WithPosition(pos), nil
}

// ReplacePath swaps the whole path as one undoable action.
func (s *Store) ReplacePath(p mission.Path) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	change, err := s.pushLocked(ReplaceAction(s.path, p))
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notify(change)
	return nil
}

// CompareAndReplace is ReplacePath guarded by the version the caller
// computed p from.
func (s *Store) CompareAndReplace(expected uint64, p mission.Path) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	if s.version != expected {
		v := s.version
		s.mu.Unlock()
		return fmt.Errorf("%w: expected %d, have %d", ErrVersionMismatch, expected, v)
	}
	change, err := s.pushLocked(ReplaceAction(s.path, p))
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notify(change)
	return nil
}

// Select marks the waypoint at index as selected.
func (s *Store) Select(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.path) {
		return fmt.Errorf("%w: %d (have %d points)", ErrIndexOutOfRange, index, len(s.path))
	}
	s.selected = index
	return nil
}

// Selected returns the selected index, or -1.
func (s *Store) Selected() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selected
}

// ClearSelection deselects any waypoint.
func (s *Store) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = -1
}
