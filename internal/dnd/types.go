package dnd

import (
	"math"
	"strings"
	"time"
)

// State of a drag gesture.
type State int

const (
	Idle State = iota
	Armed
	Dragging
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Dragging:
		return "dragging"
	}
	return "unknown"
}

// Input is the device that started a gesture.
type Input int

const (
	InputPointer Input = iota
	InputTouch
	InputKeyboard
)

// ParseInput maps the wire names "pointer", "touch" and "keyboard". Unknown names are pointer.
func ParseInput(s string) Input {
	switch strings.ToLower(s) {
	case "touch":
		return InputTouch
	case "keyboard":
		return InputKeyboard
	}
	return InputPointer
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Activation holds the thresholds separating a tap from a drag.
type Activation struct {
	Distance  float64       // pointer travel that starts a drag
	Delay     time.Duration // touch hold that starts a drag
	Tolerance float64       // touch jitter allowed during Delay
}

func DefaultActivation() Activation {
	return Activation{Distance: 8, Delay: 200 * time.Millisecond, Tolerance: 5}
}

// TargetKind tells what a drop candidate is.
type TargetKind int

const (
	TargetNone TargetKind = iota
	TargetDay             // a day's placeholder / drop zone
	TargetItem            // another exercise
)

// DayPrefix marks a day drop zone id on the wire ("day-<id>").
const DayPrefix = "day-"

// Target is a drop candidate.
type Target struct {
	Kind TargetKind
	ID   string
}

// ParseTarget reads a wire id. An empty string is no target.
func ParseTarget(raw string) Target {
	switch {
	case raw == "":
		return Target{}
	case strings.HasPrefix(raw, DayPrefix):
		return Target{Kind: TargetDay, ID: strings.TrimPrefix(raw, DayPrefix)}
	}
	return Target{Kind: TargetItem, ID: raw}
}

func (t Target) String() string {
	switch t.Kind {
	case TargetDay:
		return DayPrefix + t.ID
	case TargetItem:
		return t.ID
	}
	return ""
}

// OutcomeKind is how a gesture ended.
type OutcomeKind int

const (
	OutcomeNone      OutcomeKind = iota // gesture still running, or aborted touch press
	OutcomeClick                        // released before activation: tap to edit
	OutcomeDropped                      // released over a candidate
	OutcomeCancelled                    // released over nothing, or cancelled explicitly
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeClick:
		return "click"
	case OutcomeDropped:
		return "dropped"
	case OutcomeCancelled:
		return "cancelled"
	}
	return "none"
}

type Outcome struct {
	Kind     OutcomeKind
	ActiveID string
	Over     Target
}
