package reorder

import (
	"fmt"
	"slices"
)

// EndOfList is the drop target meaning "after the last item", used for a container's
// empty placeholder.
const EndOfList = ""

// Move returns a copy of s with the element at from removed and reinserted at to.
// The element ends up exactly at index to of the result (remove-then-insert, not swap).
func Move[S ~[]E, E any](s S, from, to int) S {
	out := slices.Clone(s)
	if from == to || from < 0 || from >= len(out) || to < 0 || to >= len(out) {
		return out
	}
	v := out[from]
	out = slices.Delete(out, from, from+1)
	return slices.Insert(out, to, v)
}

// PlanReorder computes the order of a container after activeID is dropped on overID within it.
// overID may be EndOfList. changed is false when the item would land where it already is, in
// which case nothing must be committed.
func PlanReorder(order []string, activeID, overID string) (next []string, changed bool, err error) {
	from := slices.Index(order, activeID)
	if from < 0 {
		return nil, false, fmt.Errorf("%w: %s", ErrNotFound, activeID)
	}
	to := len(order) - 1
	if overID != EndOfList {
		to = slices.Index(order, overID)
		if to < 0 {
			return nil, false, fmt.Errorf("%w: %s", ErrNotFound, overID)
		}
	}
	if from == to {
		return slices.Clone(order), false, nil
	}
	return Move(order, from, to), true, nil
}

// MovePlan is the outcome of moving one item across containers.
type MovePlan struct {
	ItemID string
	// Index is the destination insertion index submitted for persistence.
	Index  int
	Source []string // source order after removal
	Dest   []string // destination order after insertion
}

// PlanMove computes a cross-container move of itemID from source into dest.
// The item is inserted at overID's position in dest, or appended when overID is EndOfList or
// not part of dest.
func PlanMove(source, dest []string, itemID, overID string) (MovePlan, error) {
	from := slices.Index(source, itemID)
	if from < 0 {
		return MovePlan{}, fmt.Errorf("%w: %s", ErrNotFound, itemID)
	}
	if slices.Contains(dest, itemID) {
		return MovePlan{}, &InvariantError{Reason: "item " + itemID + " present in both containers"}
	}
	index := len(dest)
	if overID != EndOfList {
		if i := slices.Index(dest, overID); i >= 0 {
			index = i
		}
	}
	return MovePlan{
		ItemID: itemID,
		Index:  index,
		Source: slices.Delete(slices.Clone(source), from, from+1),
		Dest:   slices.Insert(slices.Clone(dest), index, itemID),
	}, nil
}
