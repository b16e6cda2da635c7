// Package reorder keeps ordered lists of positioned items and plans drag-and-drop moves over them.
package reorder

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
)

var (
	ErrNotFound  = errors.New("reorder: item not found")
	ErrInvariant = errors.New("reorder: invariant violated")
)

// InvariantError describes a broken ordering invariant. It matches ErrInvariant with errors.Is.
type InvariantError struct {
	Reason string
}

func (e *InvariantError) Error() string {
	return "reorder: invariant violated: " + e.Reason
}

func (e *InvariantError) Is(target error) bool {
	return target == ErrInvariant
}

// Indexed is an item with a stable identity and a zero-based position in its list.
// WithPosition returns a copy of the item placed at i.
type Indexed[T any] interface {
	ItemID() string
	Position() int
	WithPosition(i int) T
}

// Collection is an ordered list of items. After every mutation the positions are 0..n-1 in
// slice order.
type Collection[T Indexed[T]] struct {
	items []T
}

// New sorts a copy of items by position. Ties keep their input order.
// The result is not re-sequenced; call Check and Heal to normalize inbound data.
func New[T Indexed[T]](items []T) *Collection[T] {
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b T) int {
		return cmp.Compare(a.Position(), b.Position())
	})
	return &Collection[T]{items: sorted}
}

func (c *Collection[T]) Len() int {
	return len(c.items)
}

// Items returns a copy of the items in order.
func (c *Collection[T]) Items() []T {
	return slices.Clone(c.items)
}

// IDs returns the item ids in order.
func (c *Collection[T]) IDs() []string {
	ids := make([]string, len(c.items))
	for i, item := range c.items {
		ids[i] = item.ItemID()
	}
	return ids
}

// IndexOf returns the slice position of id, or -1.
func (c *Collection[T]) IndexOf(id string) int {
	return slices.IndexFunc(c.items, func(item T) bool { return item.ItemID() == id })
}

func (c *Collection[T]) Get(id string) (T, bool) {
	i := c.IndexOf(id)
	if i < 0 {
		var zero T
		return zero, false
	}
	return c.items[i], true
}

// Arrange reorders the collection to match order, which must be a permutation of IDs().
func (c *Collection[T]) Arrange(order []string) error {
	if len(order) != len(c.items) {
		return &InvariantError{Reason: fmt.Sprintf("arrangement has %d ids, list has %d", len(order), len(c.items))}
	}
	next := make([]T, 0, len(order))
	seen := make(map[string]bool, len(order))
	for _, id := range order {
		if seen[id] {
			return &InvariantError{Reason: "duplicate id " + id + " in arrangement"}
		}
		seen[id] = true
		item, ok := c.Get(id)
		if !ok {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		next = append(next, item)
	}
	c.items = next
	c.resequence()
	return nil
}

// Remove takes id out of the list and closes the gap.
func (c *Collection[T]) Remove(id string) (T, error) {
	i := c.IndexOf(id)
	if i < 0 {
		var zero T
		return zero, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	item := c.items[i]
	c.items = slices.Delete(c.items, i, i+1)
	c.resequence()
	return item, nil
}

// Insert places item at index at, shifting later items by one. An index past the end appends.
func (c *Collection[T]) Insert(item T, at int) error {
	if at < 0 {
		return &InvariantError{Reason: fmt.Sprintf("negative insert index %d", at)}
	}
	if c.IndexOf(item.ItemID()) >= 0 {
		return &InvariantError{Reason: "item " + item.ItemID() + " already in list"}
	}
	at = min(at, len(c.items))
	c.items = slices.Insert(c.items, at, item)
	c.resequence()
	return nil
}

// Check verifies that positions are exactly 0..n-1 in slice order and ids are unique.
func (c *Collection[T]) Check() error {
	seen := make(map[string]bool, len(c.items))
	for i, item := range c.items {
		if seen[item.ItemID()] {
			return &InvariantError{Reason: "duplicate id " + item.ItemID()}
		}
		seen[item.ItemID()] = true
		if item.Position() != i {
			return &InvariantError{Reason: fmt.Sprintf("item %s at slot %d has order index %d", item.ItemID(), i, item.Position())}
		}
	}
	return nil
}

// Heal drops repeated ids (first occurrence wins) and recomputes positions from slice order.
// It reports whether anything changed.
func (c *Collection[T]) Heal() bool {
	if c.Check() == nil {
		return false
	}
	seen := make(map[string]bool, len(c.items))
	c.items = slices.DeleteFunc(c.items, func(item T) bool {
		dup := seen[item.ItemID()]
		seen[item.ItemID()] = true
		return dup
	})
	c.resequence()
	return true
}

func (c *Collection[T]) resequence() {
	for i := range c.items {
		c.items[i] = c.items[i].WithPosition(i)
	}
}
