// Package board holds the training days of a mesocycle and the exercises placed in them.
// Days are containers; day exercises are the ordered items that drag-and-drop rearranges.
package board

import (
	"errors"
	"fmt"
	"log"
	"slices"
	"sort"

	"alcyxob/coach-app/internal/domain"
	"alcyxob/coach-app/internal/reorder"
)

var ErrUnknownDay = errors.New("board: unknown training day")

// Location is where an exercise currently sits.
type Location struct {
	DayID    string
	Index    int
	Exercise domain.DayExercise
}

type entry struct {
	parentID string
	day      domain.TrainingDay // Exercises is always nil here; list is authoritative
	list     *reorder.Collection[domain.DayExercise]
}

// Board is the in-memory arrangement of days and exercises. It is not safe for concurrent use.
type Board struct {
	strict  bool
	parents []string
	days    map[string][]string // parent (microcycle) id -> day ids ordered by day number
	entries map[string]*entry
}

type Option func(*Board)

// Strict makes invariant violations found after a mutation panic instead of healing.
func Strict(strict bool) Option {
	return func(b *Board) { b.strict = strict }
}

// New builds a board from the inbound mapping of microcycle id to training days.
// Exercise lists are sorted by order index and normalized; inbound duplicates are dropped.
func New(groups map[string][]domain.TrainingDay, opts ...Option) *Board {
	b := &Board{
		days:    make(map[string][]string, len(groups)),
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(b)
	}

	b.parents = make([]string, 0, len(groups))
	for parentID := range groups {
		b.parents = append(b.parents, parentID)
	}
	sort.Strings(b.parents)

	owner := make(map[string]string) // exercise id -> day id
	for _, parentID := range b.parents {
		days := slices.Clone(groups[parentID])
		sort.SliceStable(days, func(i, j int) bool { return days[i].DayNumber < days[j].DayNumber })

		for _, day := range days {
			dayID := day.ID.Hex()
			if _, dup := b.entries[dayID]; dup {
				log.Printf("WARN: board: training day %s listed twice, keeping first", dayID)
				continue
			}
			exercises := make([]domain.DayExercise, 0, len(day.Exercises))
			for _, ex := range day.Exercises {
				if prev, taken := owner[ex.ItemID()]; taken {
					log.Printf("WARN: board: exercise %s in days %s and %s, keeping %s", ex.ItemID(), prev, dayID, prev)
					continue
				}
				owner[ex.ItemID()] = dayID
				exercises = append(exercises, ex)
			}
			list := reorder.New(exercises)
			if list.Heal() {
				log.Printf("WARN: board: normalized order indexes of training day %s", dayID)
			}
			day.Exercises = nil
			b.entries[dayID] = &entry{parentID: parentID, day: day, list: list}
			b.days[parentID] = append(b.days[parentID], dayID)
		}
	}
	return b
}

// Locate finds the day currently holding itemID. It scans every day.
func (b *Board) Locate(itemID string) (Location, bool) {
	for _, parentID := range b.parents {
		for _, dayID := range b.days[parentID] {
			list := b.entries[dayID].list
			if i := list.IndexOf(itemID); i >= 0 {
				ex, _ := list.Get(itemID)
				return Location{DayID: dayID, Index: i, Exercise: ex}, true
			}
		}
	}
	return Location{}, false
}

// ExercisesOf returns the exercises of dayID ascending by order index, or nil for an unknown day.
func (b *Board) ExercisesOf(dayID string) []domain.DayExercise {
	e, ok := b.entries[dayID]
	if !ok {
		return nil
	}
	return e.list.Items()
}

// Order returns the exercise ids of dayID in order.
func (b *Board) Order(dayID string) []string {
	e, ok := b.entries[dayID]
	if !ok {
		return nil
	}
	return e.list.IDs()
}

func (b *Board) HasDay(dayID string) bool {
	_, ok := b.entries[dayID]
	return ok
}

// Day returns the training day with its exercises sorted.
func (b *Board) Day(dayID string) (domain.TrainingDay, bool) {
	e, ok := b.entries[dayID]
	if !ok {
		return domain.TrainingDay{}, false
	}
	day := e.day
	day.Exercises = e.list.Items()
	return day, true
}

// Parents returns the microcycle ids in a stable order.
func (b *Board) Parents() []string {
	return slices.Clone(b.parents)
}

// Days returns the training days of a microcycle, each with sorted exercises.
func (b *Board) Days(parentID string) []domain.TrainingDay {
	ids := b.days[parentID]
	out := make([]domain.TrainingDay, 0, len(ids))
	for _, dayID := range ids {
		day, _ := b.Day(dayID)
		out = append(out, day)
	}
	return out
}

// Count is the number of exercises across all days.
func (b *Board) Count() int {
	n := 0
	for _, e := range b.entries {
		n += e.list.Len()
	}
	return n
}

// Reorder rearranges dayID to order, a permutation of its current exercise ids.
func (b *Board) Reorder(dayID string, order []string) error {
	e, ok := b.entries[dayID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDay, dayID)
	}
	if err := e.list.Arrange(order); err != nil {
		return err
	}
	b.verify(dayID)
	return nil
}

// Move relocates itemID from one day to another at index. Either both days change or neither.
func (b *Board) Move(itemID, fromDayID, toDayID string, index int) error {
	src, ok := b.entries[fromDayID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDay, fromDayID)
	}
	dst, ok := b.entries[toDayID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDay, toDayID)
	}
	if fromDayID == toDayID {
		return &reorder.InvariantError{Reason: "cross-day move within a single day " + fromDayID}
	}
	was := src.list.IndexOf(itemID)
	item, err := src.list.Remove(itemID)
	if err != nil {
		return err
	}
	if err := dst.list.Insert(item, index); err != nil {
		if rerr := src.list.Insert(item, was); rerr != nil {
			panic(fmt.Sprintf("board: cannot restore %s into %s: %v", itemID, fromDayID, rerr))
		}
		return err
	}
	b.verify(fromDayID, toDayID)
	return nil
}

// Check verifies every day's ordering and that no exercise sits in two days.
func (b *Board) Check() error {
	owner := make(map[string]string)
	for dayID, e := range b.entries {
		if err := e.list.Check(); err != nil {
			return fmt.Errorf("day %s: %w", dayID, err)
		}
		for _, id := range e.list.IDs() {
			if prev, taken := owner[id]; taken {
				return &reorder.InvariantError{Reason: fmt.Sprintf("exercise %s in days %s and %s", id, prev, dayID)}
			}
			owner[id] = dayID
		}
	}
	return nil
}

// Clone returns an independent copy.
func (b *Board) Clone() *Board {
	c := &Board{
		strict:  b.strict,
		parents: slices.Clone(b.parents),
		days:    make(map[string][]string, len(b.days)),
		entries: make(map[string]*entry, len(b.entries)),
	}
	for parentID, ids := range b.days {
		c.days[parentID] = slices.Clone(ids)
	}
	for dayID, e := range b.entries {
		c.entries[dayID] = &entry{parentID: e.parentID, day: e.day, list: reorder.New(e.list.Items())}
	}
	return c
}

func (b *Board) verify(dayIDs ...string) {
	for _, dayID := range dayIDs {
		list := b.entries[dayID].list
		err := list.Check()
		if err == nil {
			continue
		}
		if b.strict {
			panic(fmt.Sprintf("board: day %s: %v", dayID, err))
		}
		log.Printf("ERROR: board: day %s: %v; re-sequencing", dayID, err)
		list.Heal()
	}
}
