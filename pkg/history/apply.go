package history

import (
	"fmt"
	"slices"
)

// applyLocked performs the forward change of a (caller must hold lock).
func (s *Store) applyLocked(a Action) error {
	switch a.Type {
	case ActionUpdatePosition:
		idx, err := s.locateLocked(a)
		if err != nil {
			return err
		}
		s.path[idx] = s.path[idx].WithPosition(a.New.Position)
	case ActionUpdateNormal:
		idx, err := s.locateLocked(a)
		if err != nil {
			return err
		}
		s.path[idx].Normal = a.New.Normal
	case ActionAddPoint:
		return s.insertLocked(a.PointIndex, a)
	case ActionDeletePoint:
		idx, err := s.locateLocked(a)
		if err != nil {
			return err
		}
		s.path = slices.Delete(s.path, idx, idx+1)
	case ActionReplacePath:
		s.path = a.New.Path.Clone()
	default:
		return fmt.Errorf("%w: %s", ErrUnknownAction, a.Type)
	}
	return nil
}

// revertLocked performs the inverse change of a (caller must hold lock).
func (s *Store) revertLocked(a Action) error {
	switch a.Type {
	case ActionUpdatePosition:
		idx, err := s.locateLocked(a)
		if err != nil {
			return err
		}
		s.path[idx] = s.path[idx].WithPosition(a.Old.Position)
	case ActionUpdateNormal:
		idx, err := s.locateLocked(a)
		if err != nil {
			return err
		}
		s.path[idx].Normal = a.Old.Normal
	case ActionAddPoint:
		idx := s.path.IndexOf(a.New.Point.ID)
		if idx < 0 {
			return fmt.Errorf("%w: id %d", ErrPointNotFound, a.New.Point.ID)
		}
		s.path = slices.Delete(s.path, idx, idx+1)
	case ActionDeletePoint:
		restore := a
		restore.New.Point = a.Old.Point
		return s.insertLocked(a.PointIndex, restore)
	case ActionReplacePath:
		s.path = a.Old.Path.Clone()
	default:
		return fmt.Errorf("%w: %s", ErrUnknownAction, a.Type)
	}
	return nil
}

// insertLocked places a.New.Point at index, clamped to the path.
func (s *Store) insertLocked(index int, a Action) error {
	if s.path.IndexOf(a.New.Point.ID) >= 0 {
		return fmt.Errorf("%w: id %d already present", ErrDuplicateID, a.New.Point.ID)
	}
	index = max(0, min(index, len(s.path)))
	s.path = slices.Insert(s.path, index, a.New.Point)
	return nil
}

// locateLocked finds the point an action refers to: by id first, then by
// index when the id is absent.
func (s *Store) locateLocked(a Action) (int, error) {
	if idx := s.path.IndexOf(a.PointID); idx >= 0 {
		return idx, nil
	}
	if a.PointIndex >= 0 && a.PointIndex < len(s.path) {
		return a.PointIndex, nil
	}
	return -1, fmt.Errorf("%w: id %d index %d", ErrPointNotFound, a.PointID, a.PointIndex)
}
