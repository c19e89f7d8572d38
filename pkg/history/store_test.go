package history

import (
	"io"
	"log/slog"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taigrr/overfly/pkg/math3d"
	"github.com/taigrr/overfly/pkg/mission"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func line(n int) mission.Path {
	p := make(mission.Path, n)
	for i := range p {
		p[i] = mission.Waypoint{ID: i + 1, X: float64(10 * i), Y: 20, Normal: math3d.Down()}
	}
	return p
}

func randomVec(rng *rand.Rand) math3d.Vec3 {
	return math3d.V3(rng.Float64()*100, rng.Float64()*30, rng.Float64()*100)
}

func randomEdit(t *testing.T, rng *rand.Rand, s *Store) {
	t.Helper()
	n := s.Len()
	switch op := rng.IntN(4); {
	case op == 0:
		require.NoError(t, s.MovePoint(rng.IntN(n), randomVec(rng)))
	case op == 1:
		require.NoError(t, s.SetNormal(rng.IntN(n), randomVec(rng)))
	case op == 2 || n <= 1:
		w := mission.Waypoint{Normal: math3d.Down()}.WithPosition(randomVec(rng))
		_, err := s.AddPoint(rng.IntN(n+1), w)
		require.NoError(t, err)
	default:
		require.NoError(t, s.DeletePoint(rng.IntN(n)))
	}
}

func TestUndoRedoRoundTrip(t *testing.T) {
	for seed := range uint64(20) {
		rng := rand.New(rand.NewPCG(seed, 7))
		original := line(1 + rng.IntN(8))
		steps := 1 + rng.IntN(40)

		s := NewStore(original, WithMaxSize(steps), WithLogger(quietLogger()))
		for range steps {
			randomEdit(t, rng, s)
		}
		edited := s.Path()

		for range steps {
			require.True(t, s.Undo())
		}
		assert.False(t, s.CanUndo())
		if diff := cmp.Diff(original, s.Path()); diff != "" {
			t.Fatalf("seed %d: undo did not restore original (-want +got):\n%s", seed, diff)
		}

		for range steps {
			require.True(t, s.Redo())
		}
		assert.False(t, s.CanRedo())
		if diff := cmp.Diff(edited, s.Path()); diff != "" {
			t.Fatalf("seed %d: redo did not restore edits (-want +got):\n%s", seed, diff)
		}
	}
}

func TestUndoThenRedoIsIdentity(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 3))
	s := NewStore(line(5), WithLogger(quietLogger()))
	for range 30 {
		randomEdit(t, rng, s)
		before := s.Path()
		require.True(t, s.Undo())
		require.True(t, s.Redo())
		if diff := cmp.Diff(before, s.Path()); diff != "" {
			t.Fatalf("undo+redo changed state (-want +got):\n%s", diff)
		}
	}
}

func TestCursorSemantics(t *testing.T) {
	s := NewStore(line(3), WithLogger(quietLogger()))
	assert.Equal(t, -1, s.Cursor())
	assert.False(t, s.CanUndo())
	assert.False(t, s.CanRedo())

	for i := range 3 {
		require.NoError(t, s.MovePoint(0, math3d.V3(float64(i), 0, 0)))
	}
	assert.Equal(t, 2, s.Cursor())
	assert.Equal(t, 3, s.HistoryLen())

	require.True(t, s.Undo())
	require.True(t, s.Undo())
	assert.Equal(t, 0, s.Cursor())
	assert.True(t, s.CanRedo())

	// a new edit discards the redo branch
	require.NoError(t, s.MovePoint(1, math3d.V3(7, 7, 7)))
	assert.Equal(t, 2, s.HistoryLen())
	assert.Equal(t, 1, s.Cursor())
	assert.False(t, s.CanRedo())

	p := s.Path()
	assert.Equal(t, math3d.V3(0, 0, 0), p[0].Position())
	assert.Equal(t, math3d.V3(7, 7, 7), p[1].Position())
}

func TestUnderflowOverflow(t *testing.T) {
	s := NewStore(line(2), WithLogger(quietLogger()))
	before := s.Path()
	v := s.Version()

	assert.False(t, s.Undo())
	assert.False(t, s.Redo())
	assert.Equal(t, v, s.Version())
	if diff := cmp.Diff(before, s.Path()); diff != "" {
		t.Errorf("state changed (-want +got):\n%s", diff)
	}

	require.NoError(t, s.DeletePoint(0))
	assert.False(t, s.Redo())
	require.True(t, s.Undo())
	assert.False(t, s.Undo())
}

func TestMaxSizeEviction(t *testing.T) {
	s := NewStore(line(1), WithMaxSize(3), WithLogger(quietLogger()))
	for i := range 5 {
		require.NoError(t, s.MovePoint(0, math3d.V3(float64(i+1), 0, 0)))
	}
	assert.Equal(t, 3, s.HistoryLen())
	assert.Equal(t, 2, s.Cursor())

	for range 3 {
		require.True(t, s.Undo())
	}
	assert.False(t, s.Undo())
	// the two oldest moves were evicted, so undo stops at the second move
	assert.Equal(t, math3d.V3(2, 0, 0), s.Path()[0].Position())
}

func TestIDsNeverReused(t *testing.T) {
	s := NewStore(line(3), WithLogger(quietLogger()))

	a, err := s.AddPoint(3, mission.Waypoint{X: 30})
	require.NoError(t, err)
	assert.Equal(t, 4, a.ID)

	require.NoError(t, s.DeletePoint(3))
	require.True(t, s.Undo())
	require.True(t, s.Undo())

	b, err := s.AddPoint(0, mission.Waypoint{})
	require.NoError(t, err)
	assert.Greater(t, b.ID, a.ID)
	assert.Greater(t, s.NewID(), b.ID)
}

func TestAddDuplicateID(t *testing.T) {
	s := NewStore(line(2), WithLogger(quietLogger()))
	_, err := s.AddPoint(0, mission.Waypoint{ID: 2})
	require.ErrorIs(t, err, ErrDuplicateID)
	assert.Equal(t, 0, s.HistoryLen())
	assert.Equal(t, 2, s.Len())
}

func TestInsertBeforeAfter(t *testing.T) {
	s := NewStore(mission.Path{
		{ID: 1, X: 0, Normal: math3d.V3(1, 0, 0)},
		{ID: 2, X: 10, Normal: math3d.V3(0, 0, 1)},
	}, WithLogger(quietLogger()))

	mid, err := s.InsertAfter(0)
	require.NoError(t, err)
	assert.Equal(t, math3d.V3(5, 0, 0), mid.Position())
	assert.Equal(t, math3d.V3(1, 0, 0), mid.Normal)
	assert.Equal(t, 1, s.Selected())

	end, err := s.InsertAfter(2)
	require.NoError(t, err)
	assert.Equal(t, math3d.V3(12.5, 0, 0), end.Position())
	assert.Equal(t, math3d.V3(0, 0, 1), end.Normal)
	assert.Equal(t, 3, s.Selected())

	start, err := s.InsertBefore(0)
	require.NoError(t, err)
	assert.Equal(t, math3d.V3(-2.5, 0, 0), start.Position())
	assert.Equal(t, 0, s.Selected())

	between, err := s.InsertBefore(2)
	require.NoError(t, err)
	assert.Equal(t, math3d.V3(2.5, 0, 0), between.Position())

	xs := make([]float64, 0, s.Len())
	for _, w := range s.Path() {
		xs = append(xs, w.X)
	}
	assert.Equal(t, []float64{-2.5, 0, 2.5, 5, 10, 12.5}, xs)
}

func TestInsertSinglePoint(t *testing.T) {
	s := NewStore(mission.Path{{ID: 1, X: 3, Y: 4, Z: 5}}, WithLogger(quietLogger()))

	after, err := s.InsertAfter(0)
	require.NoError(t, err)
	assert.Equal(t, math3d.V3(4, 4, 5), after.Position())

	s.Reset(mission.Path{{ID: 1, X: 3, Y: 4, Z: 5}})
	before, err := s.InsertBefore(0)
	require.NoError(t, err)
	assert.Equal(t, math3d.V3(2, 4, 5), before.Position())
}

func TestInsertOutOfRange(t *testing.T) {
	s := NewStore(nil, WithLogger(quietLogger()))
	_, err := s.InsertAfter(0)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = s.InsertBefore(-1)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
	require.ErrorIs(t, s.DeletePoint(0), ErrIndexOutOfRange)
	require.ErrorIs(t, s.MovePoint(2, math3d.Zero3()), ErrIndexOutOfRange)
}

func TestSelectionClampsOnDelete(t *testing.T) {
	s := NewStore(line(3), WithLogger(quietLogger()))
	require.NoError(t, s.Select(2))
	require.NoError(t, s.DeletePoint(2))
	assert.Equal(t, 1, s.Selected())

	require.NoError(t, s.DeletePoint(1))
	require.NoError(t, s.DeletePoint(0))
	assert.Equal(t, -1, s.Selected())

	require.ErrorIs(t, s.Select(0), ErrIndexOutOfRange)
	s.ClearSelection()
	assert.Equal(t, -1, s.Selected())
}

func TestActionFallsBackToIndex(t *testing.T) {
	s := NewStore(line(3), WithLogger(quietLogger()))
	a := MoveAction(1, mission.Waypoint{ID: 99}, math3d.V3(1, 2, 3))
	require.NoError(t, s.PushAction(a))
	assert.Equal(t, math3d.V3(1, 2, 3), s.Path()[1].Position())

	missing := MoveAction(9, mission.Waypoint{ID: 99}, math3d.Zero3())
	require.ErrorIs(t, s.PushAction(missing), ErrPointNotFound)
	assert.Equal(t, 1, s.HistoryLen())

	require.ErrorIs(t, s.PushAction(Action{Type: "rotate"}), ErrUnknownAction)
}

func TestReplacePath(t *testing.T) {
	s := NewStore(line(3), WithLogger(quietLogger()))
	original := s.Path()
	next := mission.Path{original[2], original[0], original[1]}

	require.NoError(t, s.ReplacePath(next))
	if diff := cmp.Diff(next, s.Path()); diff != "" {
		t.Errorf("replace (-want +got):\n%s", diff)
	}
	require.True(t, s.Undo())
	if diff := cmp.Diff(original, s.Path()); diff != "" {
		t.Errorf("undo replace (-want +got):\n%s", diff)
	}

	dup := mission.Path{original[0], original[0]}
	require.ErrorIs(t, s.ReplacePath(dup), mission.ErrInvalidPath)
}

func TestCompareAndReplace(t *testing.T) {
	s := NewStore(line(3), WithLogger(quietLogger()))
	p, v := s.Snapshot()

	require.NoError(t, s.MovePoint(0, math3d.V3(1, 1, 1)))
	err := s.CompareAndReplace(v, p)
	require.ErrorIs(t, err, ErrVersionMismatch)

	p, v = s.Snapshot()
	p[0], p[2] = p[2], p[0]
	require.NoError(t, s.CompareAndReplace(v, p))
	assert.Equal(t, []int{3, 2, 1}, s.Path().IDs())
	assert.Equal(t, ActionReplacePath, s.Actions()[1].Type)
}

func TestListeners(t *testing.T) {
	s := NewStore(line(2), WithLogger(quietLogger()))
	var got []Change
	unsubscribe := s.Subscribe(func(c Change) { got = append(got, c) })

	require.NoError(t, s.MovePoint(0, math3d.V3(1, 0, 0)))
	require.True(t, s.Undo())
	require.True(t, s.Redo())
	s.Reset(line(1))

	require.Len(t, got, 4)
	kinds := []ChangeKind{got[0].Kind, got[1].Kind, got[2].Kind, got[3].Kind}
	assert.Equal(t, []ChangeKind{ChangePush, ChangeUndo, ChangeRedo, ChangeReset}, kinds)
	assert.Equal(t, ActionUpdatePosition, got[0].Action)
	assert.Equal(t, uint64(4), got[3].Version)
	assert.Len(t, got[3].Path, 1)

	// listeners get a copy
	got[3].Path[0].X = 42
	assert.Equal(t, 0.0, s.Path()[0].X)

	unsubscribe()
	require.NoError(t, s.DeletePoint(0))
	assert.Len(t, got, 4)
}

func TestListenerCanReadStore(t *testing.T) {
	s := NewStore(line(2), WithLogger(quietLogger()))
	var seen int
	s.Subscribe(func(Change) { seen = s.Len() })
	_, err := s.InsertAfter(1)
	require.NoError(t, err)
	assert.Equal(t, 3, seen)
}

func TestTimestamps(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(line(2), WithClock(func() time.Time { return fixed }), WithLogger(quietLogger()))
	require.NoError(t, s.SetNormal(1, math3d.V3(0, 0, 1)))

	actions := s.Actions()
	require.Len(t, actions, 1)
	assert.Equal(t, fixed, actions[0].Timestamp)
	assert.Equal(t, math3d.Down(), actions[0].Old.Normal)
	assert.Equal(t, 2, actions[0].PointID)
}

func BenchmarkMoveUndo(b *testing.B) {
	s := NewStore(line(200), WithLogger(quietLogger()))
	for b.Loop() {
		_ = s.MovePoint(100, math3d.V3(1, 2, 3))
		s.Undo()
	}
}
