// Package dnd tracks drag gestures: press, activation, hover and release.
package dnd

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrSessionActive = errors.New("dnd: a drag session is already active")

// Slot owns the single drag session allowed at a time.
type Slot struct {
	act Activation

	mu     sync.Mutex
	active *Session
}

func NewSlot(act Activation) *Slot {
	return &Slot{act: act}
}

// Active returns the running session, or nil.
func (s *Slot) Active() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Press starts a session for itemID. Keyboard input starts dragging at once; pointer and touch
// presses stay Armed until an activation threshold is crossed.
// Pressing while a session is running is a programming error and panics.
func (s *Slot) Press(itemID string, input Input, at Point, now time.Time) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil {
		panic(fmt.Sprintf("%v: %s holds %s", ErrSessionActive, s.active.id, s.active.activeID))
	}
	sess := &Session{
		slot:      s,
		id:        uuid.NewString(),
		state:     Armed,
		input:     input,
		activeID:  itemID,
		origin:    at,
		pressedAt: now,
	}
	if input == InputKeyboard {
		sess.state = Dragging
	}
	s.active = sess
	return sess
}

// Session is one gesture from press to release or cancel.
type Session struct {
	slot *Slot
	id   string

	// guarded by slot.mu
	state     State
	input     Input
	activeID  string
	origin    Point
	pressedAt time.Time
	over      Target
}

func (s *Session) ID() string { return s.id }

func (s *Session) ActiveID() string { return s.activeID }

func (s *Session) State() State {
	s.slot.mu.Lock()
	defer s.slot.mu.Unlock()
	return s.state
}

// Over returns the hovered candidate.
func (s *Session) Over() Target {
	s.slot.mu.Lock()
	defer s.slot.mu.Unlock()
	return s.over
}

// Motion reports pointer or touch movement. A pointer arms into Dragging once it travels past
// the distance threshold; a touch that strays past the tolerance before the hold delay is not a
// drag and ends the session.
func (s *Session) Motion(at Point, now time.Time) State {
	s.slot.mu.Lock()
	defer s.slot.mu.Unlock()

	if s.state != Armed {
		return s.state
	}
	act := s.slot.act
	switch s.input {
	case InputPointer:
		if s.origin.dist(at) > act.Distance {
			s.state = Dragging
		}
	case InputTouch:
		if s.origin.dist(at) > act.Tolerance {
			s.endLocked()
			return Idle
		}
		s.holdLocked(now)
	}
	return s.state
}

// Tick lets a motionless touch press activate once the hold delay has elapsed.
func (s *Session) Tick(now time.Time) State {
	s.slot.mu.Lock()
	defer s.slot.mu.Unlock()

	if s.state == Armed && s.input == InputTouch {
		s.holdLocked(now)
	}
	return s.state
}

// Hover records the candidate under the pointer. It only matters while Dragging.
func (s *Session) Hover(t Target) {
	s.slot.mu.Lock()
	defer s.slot.mu.Unlock()

	if s.state == Dragging {
		s.over = t
	}
}

// Release ends the gesture. A press that never activated is a click; a drag over a candidate
// is a drop; anything else is a cancel. The slot is free when Release returns.
func (s *Session) Release(over Target, now time.Time) Outcome {
	s.slot.mu.Lock()
	defer s.slot.mu.Unlock()

	if s.state == Armed && s.input == InputTouch {
		s.holdLocked(now)
	}
	out := Outcome{ActiveID: s.activeID}
	switch s.state {
	case Idle:
		return Outcome{}
	case Armed:
		out.Kind = OutcomeClick
	case Dragging:
		if over.Kind == TargetNone {
			out.Kind = OutcomeCancelled
		} else {
			out.Kind = OutcomeDropped
			out.Over = over
		}
	}
	s.endLocked()
	return out
}

// Cancel aborts the gesture without touching any data.
func (s *Session) Cancel() Outcome {
	s.slot.mu.Lock()
	defer s.slot.mu.Unlock()

	if s.state == Idle {
		return Outcome{}
	}
	s.endLocked()
	return Outcome{Kind: OutcomeCancelled, ActiveID: s.activeID}
}

func (s *Session) holdLocked(now time.Time) {
	if now.Sub(s.pressedAt) >= s.slot.act.Delay {
		s.state = Dragging
	}
}

func (s *Session) endLocked() {
	s.state = Idle
	s.over = Target{}
	if s.slot.active == s {
		s.slot.active = nil
	}
}
