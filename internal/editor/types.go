package editor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"alcyxob/coach-app/internal/board"
	"alcyxob/coach-app/internal/dnd"
)

var (
	ErrPersistence = errors.New("editor: commit failed")
	ErrPending     = errors.New("editor: commits still pending")
	ErrClosed      = errors.New("editor: closed")
)

// PersistenceAdapter commits arrangements to the backend. Both calls carry the full desired
// state, so repeating one is safe.
type PersistenceAdapter interface {
	CommitReorder(ctx context.Context, dayID string, orderedIDs []string) error
	CommitMove(ctx context.Context, itemID, fromDayID, toDayID string, index int) error
}

type OpKind int

const (
	OpReorder OpKind = iota
	OpMove
)

func (k OpKind) String() string {
	if k == OpMove {
		return "move"
	}
	return "reorder"
}

// Op is one change to the arrangement, applied locally and then committed.
type Op struct {
	Kind OpKind `json:"kind"`

	// reorder
	DayID string   `json:"dayId,omitempty"`
	Order []string `json:"order,omitempty"`

	// move
	ItemID    string `json:"itemId,omitempty"`
	FromDayID string `json:"fromDayId,omitempty"`
	ToDayID   string `json:"toDayId,omitempty"`
	Index     int    `json:"index"`
}

// Days lists the training days the op touches.
func (op Op) Days() []string {
	if op.Kind == OpMove {
		return []string{op.FromDayID, op.ToDayID}
	}
	return []string{op.DayID}
}

func (op Op) String() string {
	if op.Kind == OpMove {
		return fmt.Sprintf("move %s %s->%s@%d", op.ItemID, op.FromDayID, op.ToDayID, op.Index)
	}
	return fmt.Sprintf("reorder %s %v", op.DayID, op.Order)
}

func (op Op) apply(b *board.Board) error {
	if op.Kind == OpMove {
		return b.Move(op.ItemID, op.FromDayID, op.ToDayID, op.Index)
	}
	return b.Reorder(op.DayID, op.Order)
}

func (op Op) commit(ctx context.Context, adapter PersistenceAdapter) error {
	if op.Kind == OpMove {
		return adapter.CommitMove(ctx, op.ItemID, op.FromDayID, op.ToDayID, op.Index)
	}
	return adapter.CommitReorder(ctx, op.DayID, op.Order)
}

// CommitError is a rejected or timed out commit. It matches ErrPersistence.
type CommitError struct {
	Op  Op
	Err error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("editor: commit %s: %v", e.Op, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

func (e *CommitError) Is(target error) bool { return target == ErrPersistence }

type NoticeKind string

const (
	NoticeCommitFailed NoticeKind = "commit_failed"
	NoticeReloaded     NoticeKind = "reloaded" // stored data changed outside the editor
)

// Notification is surfaced to the user by the view layer.
type Notification struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
	DayIDs  []string   `json:"dayIds"` // days that snapped back
	Err     error      `json:"-"`
	At      time.Time  `json:"at"`
}

type Notifier interface {
	Notify(Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// ResultKind describes what a drop did.
type ResultKind int

const (
	ResultNone          ResultKind = iota // cancelled or invalid target
	ResultAborted                         // a referenced item or day no longer exists
	ResultNoop                            // dropped where it already was
	ResultApplied                         // applied locally, commit queued
	ResultEditRequested                   // a tap on an exercise, passed through to the view
	ResultClosed                          // the editor was closed, nothing changed
)

func (k ResultKind) String() string {
	switch k {
	case ResultAborted:
		return "aborted"
	case ResultNoop:
		return "noop"
	case ResultApplied:
		return "applied"
	case ResultEditRequested:
		return "edit_requested"
	case ResultClosed:
		return "closed"
	}
	return "none"
}

type Result struct {
	Kind   ResultKind
	ItemID string
	Op     *Op
}

type Config struct {
	// CommitTimeout bounds one adapter call. Zero means DefaultCommitTimeout.
	CommitTimeout time.Duration
	Activation    dnd.Activation
	// Strict panics on invariant violations instead of healing them.
	Strict bool
}

const DefaultCommitTimeout = 15 * time.Second
