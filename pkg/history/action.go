// Package history owns the flight path and records every edit as a
// reversible action, giving linear undo/redo with a cursor.
package history

import (
	"time"

	"github.com/taigrr/overfly/pkg/math3d"
	"github.com/taigrr/overfly/pkg/mission"
)

// ActionType tags the variant carried by an Action.
type ActionType string

// Action types.
const (
	ActionUpdatePosition ActionType = "updatePosition"
	ActionUpdateNormal   ActionType = "updateNormal"
	ActionAddPoint       ActionType = "addPoint"
	ActionDeletePoint    ActionType = "deletePoint"
	ActionReplacePath    ActionType = "replacePath"
)

// Snapshot holds the data one side of an action needs. Only the fields
// relevant to the action type are set.
type Snapshot struct {
	Position math3d.Vec3      `json:"position"`
	Normal   math3d.Vec3      `json:"normal"`
	Point    mission.Waypoint `json:"point"`
	Path     mission.Path     `json:"path,omitempty"`
}

func (s Snapshot) clone() Snapshot {
	s.Path = s.Path.Clone()
	return s
}

// Action is one reversible edit. Points are located by PointID, falling
// back to PointIndex when the id is not found.
type Action struct {
	Type       ActionType `json:"type"`
	PointID    int        `json:"pointId"`
	PointIndex int        `json:"pointIndex"`
	Old        Snapshot   `json:"oldData"`
	New        Snapshot   `json:"newData"`
	Timestamp  time.Time  `json:"timestamp"`
}

// Clone returns a deep copy of a.
func (a Action) Clone() Action {
	a.Old = a.Old.clone()
	a.New = a.New.clone()
	return a
}

// MoveAction records waypoint w moving from its current position to pos.
func MoveAction(index int, w mission.Waypoint, pos math3d.Vec3) Action {
	return Action{
		Type:       ActionUpdatePosition,
		PointID:    w.ID,
		PointIndex: index,
		Old:        Snapshot{Position: w.Position()},
		New:        Snapshot{Position: pos},
	}
}

// NormalAction records waypoint w turning its camera to normal.
func NormalAction(index int, w mission.Waypoint, normal math3d.Vec3) Action {
	return Action{
		Type:       ActionUpdateNormal,
		PointID:    w.ID,
		PointIndex: index,
		Old:        Snapshot{Normal: w.Normal},
		New:        Snapshot{Normal: normal},
	}
}

// AddAction records w being inserted at index.
func AddAction(index int, w mission.Waypoint) Action {
	return Action{
		Type:       ActionAddPoint,
		PointID:    w.ID,
		PointIndex: index,
		New:        Snapshot{Point: w},
	}
}

// DeleteAction records w being removed from index.
func DeleteAction(index int, w mission.Waypoint) Action {
	return Action{
		Type:       ActionDeletePoint,
		PointID:    w.ID,
		PointIndex: index,
		Old:        Snapshot{Point: w},
	}
}

// ReplaceAction records the whole path being swapped.
func ReplaceAction(old, next mission.Path) Action {
	return Action{
		Type:       ActionReplacePath,
		PointIndex: -1,
		Old:        Snapshot{Path: old.Clone()},
		New:        Snapshot{Path: next.Clone()},
	}
}
