package repopulate

import (
	"errors"
	"fmt"
)

// ErrStaleKey is returned when a selection key does not address a
// selectable item or row of the current snapshot.
var ErrStaleKey = errors.New("selection key is not selectable")

// SelectionState is the tri-state status of an addressable node.
type SelectionState string

const (
	Unchecked     SelectionState = "unchecked"
	Checked       SelectionState = "checked"
	Indeterminate SelectionState = "indeterminate"
)

// Selection tracks which items and rows should take the server value. It
// belongs to a single reconciliation session and is not safe for concurrent
// use. Only keys from the valid set are ever stored.
type Selection struct {
	valid    KeySet
	selected KeySet
}

// NewSelection starts with every valid key selected.
func NewSelection(valid KeySet) *Selection {
	return &Selection{valid: valid.Clone(), selected: valid.Clone()}
}

// RestoreSelection rebuilds a selection from persisted keys. Keys that are
// not in valid are dropped.
func RestoreSelection(valid KeySet, keys []string) *Selection {
	s := &Selection{valid: valid.Clone(), selected: make(KeySet, len(keys))}
	for _, k := range keys {
		if valid.Has(k) {
			s.selected.Add(k)
		}
	}
	return s
}

// ParseSelection is the strict form of RestoreSelection: any key outside
// valid fails with ErrStaleKey.
func ParseSelection(valid KeySet, keys []string) (*Selection, error) {
	for _, k := range keys {
		if !valid.Has(k) {
			return nil, fmt.Errorf("%w: %q", ErrStaleKey, k)
		}
	}
	return RestoreSelection(valid, keys), nil
}

// State reports the state of an item. For a repeating item it is derived
// from its valid rows, otherwise it is the item's own membership.
func (s *Selection) State(headingIndex, parentIndex int) SelectionState {
	children := s.valid.withPrefix(childKeyPrefix(headingIndex, parentIndex))
	if len(children) == 0 {
		return stateOf(s.selected.Has(CreateSelectionKey(headingIndex, parentIndex)))
	}
	n := 0
	for _, k := range children {
		if s.selected.Has(k) {
			n++
		}
	}
	switch n {
	case 0:
		return Unchecked
	case len(children):
		return Checked
	default:
		return Indeterminate
	}
}

// RowState reports whether one row is selected.
func (s *Selection) RowState(headingIndex, parentIndex, childIndex int) SelectionState {
	return stateOf(s.selected.Has(CreateRowSelectionKey(headingIndex, parentIndex, childIndex)))
}

func stateOf(selected bool) SelectionState {
	if selected {
		return Checked
	}
	return Unchecked
}

// Toggle flips an item. For a repeating item all rows move together: fully
// selected becomes fully unselected, anything else becomes fully selected.
// It returns false when the address is not selectable.
func (s *Selection) Toggle(headingIndex, parentIndex int) bool {
	children := s.valid.withPrefix(childKeyPrefix(headingIndex, parentIndex))
	if len(children) == 0 {
		return s.flip(CreateSelectionKey(headingIndex, parentIndex))
	}

	allSelected := true
	for _, k := range children {
		if !s.selected.Has(k) {
			allSelected = false
			break
		}
	}
	for _, k := range children {
		if allSelected {
			s.selected.Remove(k)
		} else {
			s.selected.Add(k)
		}
	}
	return true
}

// ToggleRow flips a single row.
func (s *Selection) ToggleRow(headingIndex, parentIndex, childIndex int) bool {
	return s.flip(CreateRowSelectionKey(headingIndex, parentIndex, childIndex))
}

func (s *Selection) flip(key string) bool {
	if !s.valid.Has(key) {
		return false
	}
	if s.selected.Has(key) {
		s.selected.Remove(key)
	} else {
		s.selected.Add(key)
	}
	return true
}

func (s *Selection) SelectAll() {
	s.selected = s.valid.Clone()
}

func (s *Selection) UnselectAll() {
	s.selected = make(KeySet)
}

// Selected returns a copy of the selected keys.
func (s *Selection) Selected() KeySet {
	return s.selected.Clone()
}

// Valid returns a copy of the selectable keys.
func (s *Selection) Valid() KeySet {
	return s.valid.Clone()
}

func (s *Selection) Empty() bool {
	return len(s.selected) == 0
}
