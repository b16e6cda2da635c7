package editor

import (
	"time"

	"alcyxob/coach-app/internal/dnd"
)

// DragStart presses on an exercise. It returns false when the exercise no longer exists or the
// editor is closed. Starting while another gesture is active panics; callers check Active first.
func (e *Editor) DragStart(itemID string, input dnd.Input, at dnd.Point, now time.Time) bool {
	e.mu.Lock()
	_, ok := e.working.Locate(itemID)
	ok = ok && !e.closed
	e.mu.Unlock()
	if !ok {
		return false
	}
	e.slot.Press(itemID, input, at, now)
	return true
}

// Active returns the running gesture, or nil.
func (e *Editor) Active() *dnd.Session {
	return e.slot.Active()
}

// DragMove reports pointer or touch movement of the running gesture.
func (e *Editor) DragMove(at dnd.Point, now time.Time) dnd.State {
	sess := e.slot.Active()
	if sess == nil {
		return dnd.Idle
	}
	return sess.Motion(at, now)
}

// DragTick lets a held touch activate without movement.
func (e *Editor) DragTick(now time.Time) dnd.State {
	sess := e.slot.Active()
	if sess == nil {
		return dnd.Idle
	}
	return sess.Tick(now)
}

// DragOver records the hovered candidate for highlighting. Unknown candidates clear the hover.
func (e *Editor) DragOver(raw string) dnd.Target {
	sess := e.slot.Active()
	if sess == nil {
		return dnd.Target{}
	}
	t := e.resolve(dnd.ParseTarget(raw))
	sess.Hover(t)
	return sess.Over()
}

// DragEnd releases the running gesture over raw. The drag state is cleared before the drop is
// applied; a release that never activated comes back as ResultEditRequested.
func (e *Editor) DragEnd(raw string, now time.Time) (dnd.Outcome, Result) {
	sess := e.slot.Active()
	if sess == nil {
		return dnd.Outcome{}, Result{}
	}
	out := sess.Release(e.resolve(dnd.ParseTarget(raw)), now)
	switch out.Kind {
	case dnd.OutcomeClick:
		return out, Result{Kind: ResultEditRequested, ItemID: out.ActiveID}
	case dnd.OutcomeDropped:
		return out, e.Drop(out.ActiveID, out.Over)
	}
	return out, Result{Kind: ResultNone, ItemID: out.ActiveID}
}

// DragCancel aborts the running gesture without touching any data.
func (e *Editor) DragCancel() dnd.Outcome {
	sess := e.slot.Active()
	if sess == nil {
		return dnd.Outcome{}
	}
	return sess.Cancel()
}

func (e *Editor) resolve(t dnd.Target) dnd.Target {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch t.Kind {
	case dnd.TargetDay:
		if e.working.HasDay(t.ID) {
			return t
		}
	case dnd.TargetItem:
		if _, ok := e.working.Locate(t.ID); ok {
			return t
		}
	}
	return dnd.Target{}
}
