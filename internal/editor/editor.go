// Package editor runs the mesocycle editor: drag gestures are applied to a working arrangement
// at once and committed through a PersistenceAdapter in the background, one lane per training
// day. A failed commit snaps the affected days back to their last confirmed state.
package editor

import (
	"context"
	"log"
	"slices"
	"sync"
	"time"

	"alcyxob/coach-app/internal/board"
	"alcyxob/coach-app/internal/domain"
	"alcyxob/coach-app/internal/dnd"
	"alcyxob/coach-app/internal/reorder"
)

type job struct {
	seq       uint64
	op        Op
	cancelled bool
	done      chan struct{}
}

func (j *job) touches(days map[string]bool) bool {
	for _, d := range j.op.Days() {
		if days[d] {
			return true
		}
	}
	return false
}

// Editor is one coach's editing session over a mesocycle. It is safe for concurrent use.
type Editor struct {
	adapter  PersistenceAdapter
	notifier Notifier
	cfg      Config
	slot     *dnd.Slot

	// gate is held shared by drops and exclusively by Exclusive.
	gate sync.RWMutex

	mu        sync.Mutex
	working   *board.Board
	confirmed *board.Board
	pending   []*job // issue order
	tails     map[string]chan struct{}
	seq       uint64
	closed    bool

	running int           // commit goroutines not yet finished
	drained chan struct{} // closed when running drops to zero
}

// New starts an editor over the inbound mapping of microcycle id to training days.
// notifier may be nil.
func New(groups map[string][]domain.TrainingDay, adapter PersistenceAdapter, notifier Notifier, cfg Config) *Editor {
	if cfg.CommitTimeout <= 0 {
		cfg.CommitTimeout = DefaultCommitTimeout
	}
	if cfg.Activation == (dnd.Activation{}) {
		cfg.Activation = dnd.DefaultActivation()
	}
	if notifier == nil {
		notifier = NotifierFunc(func(Notification) {})
	}
	confirmed := board.New(groups, board.Strict(cfg.Strict))
	return &Editor{
		adapter:   adapter,
		notifier:  notifier,
		cfg:       cfg,
		slot:      dnd.NewSlot(cfg.Activation),
		working:   confirmed.Clone(),
		confirmed: confirmed,
		tails:     make(map[string]chan struct{}),
	}
}

// Snapshot returns a copy of the working arrangement for rendering.
func (e *Editor) Snapshot() *board.Board {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.working.Clone()
}

// Confirmed returns a copy of the last persisted arrangement.
func (e *Editor) Confirmed() *board.Board {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.confirmed.Clone()
}

// Order returns the working exercise ids of a day.
func (e *Editor) Order(dayID string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.working.Order(dayID)
}

// Pending reports how many commits are queued or in flight.
func (e *Editor) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// Wait blocks until every commit issued so far has finished or ctx is done.
func (e *Editor) Wait(ctx context.Context) error {
	e.mu.Lock()
	if e.running == 0 {
		e.mu.Unlock()
		return nil
	}
	drained := e.drained
	e.mu.Unlock()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the editor from accepting drops. Commits already issued still finish.
func (e *Editor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closeLocked()
}

// CloseIfIdle closes the editor unless commits are pending. It reports whether it closed.
func (e *Editor) CloseIfIdle() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.pending) > 0 {
		return false
	}
	e.closeLocked()
	return true
}

// Closed reports whether the editor stopped accepting drops.
func (e *Editor) Closed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

func (e *Editor) closeLocked() {
	e.closed = true
	if sess := e.slot.Active(); sess != nil {
		sess.Cancel()
	}
}

// Exclusive runs change with drops held off and then replaces both arrangements with what load
// returns. change is not run while commits are pending (ErrPending) or after Close (ErrClosed).
// A failing load closes the editor, since its arrangements no longer match storage; the error of
// change is what Exclusive returns.
func (e *Editor) Exclusive(change func() error, load func() (map[string][]domain.TrainingDay, error)) error {
	e.gate.Lock()
	defer e.gate.Unlock()

	e.mu.Lock()
	switch {
	case e.closed:
		e.mu.Unlock()
		return ErrClosed
	case len(e.pending) > 0:
		e.mu.Unlock()
		return ErrPending
	}
	e.mu.Unlock()

	if err := change(); err != nil {
		return err
	}

	groups, err := load()
	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		log.Printf("WARN: editor: reload after change failed, closing: %v", err)
		e.closeLocked()
		return nil
	}
	if sess := e.slot.Active(); sess != nil {
		sess.Cancel()
	}
	e.confirmed = board.New(groups, board.Strict(e.cfg.Strict))
	e.working = e.confirmed.Clone()
	return nil
}

// Reload replaces both arrangements with freshly loaded data. It refuses while commits are
// pending so a late completion cannot land on the new state.
func (e *Editor) Reload(groups map[string][]domain.TrainingDay) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.pending) > 0 {
		return ErrPending
	}
	if sess := e.slot.Active(); sess != nil {
		sess.Cancel()
	}
	e.confirmed = board.New(groups, board.Strict(e.cfg.Strict))
	e.working = e.confirmed.Clone()
	return nil
}

// Drop applies a drop of activeID over target to the working arrangement and queues its commit.
// References that went stale since the gesture began abort the drop without an error. A closed
// editor answers ResultClosed and changes nothing.
func (e *Editor) Drop(activeID string, over dnd.Target) Result {
	e.gate.RLock()
	defer e.gate.RUnlock()
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return Result{Kind: ResultClosed, ItemID: activeID}
	}

	src, ok := e.working.Locate(activeID)
	if !ok {
		return Result{Kind: ResultAborted, ItemID: activeID}
	}

	var dayID, overID string
	switch over.Kind {
	case dnd.TargetDay:
		if !e.working.HasDay(over.ID) {
			return Result{Kind: ResultAborted, ItemID: activeID}
		}
		dayID, overID = over.ID, reorder.EndOfList
	case dnd.TargetItem:
		loc, ok := e.working.Locate(over.ID)
		if !ok {
			return Result{Kind: ResultAborted, ItemID: activeID}
		}
		dayID, overID = loc.DayID, over.ID
	default:
		return Result{Kind: ResultNone, ItemID: activeID}
	}

	var op Op
	if dayID == src.DayID {
		next, changed, err := reorder.PlanReorder(e.working.Order(dayID), activeID, overID)
		if err != nil {
			log.Printf("WARN: editor: plan reorder of %s in %s: %v", activeID, dayID, err)
			return Result{Kind: ResultAborted, ItemID: activeID}
		}
		if !changed {
			return Result{Kind: ResultNoop, ItemID: activeID}
		}
		op = Op{Kind: OpReorder, DayID: dayID, Order: next}
	} else {
		plan, err := reorder.PlanMove(e.working.Order(src.DayID), e.working.Order(dayID), activeID, overID)
		if err != nil {
			log.Printf("WARN: editor: plan move of %s to %s: %v", activeID, dayID, err)
			return Result{Kind: ResultAborted, ItemID: activeID}
		}
		op = Op{Kind: OpMove, ItemID: activeID, FromDayID: src.DayID, ToDayID: dayID, Index: plan.Index}
	}

	if err := op.apply(e.working); err != nil {
		log.Printf("ERROR: editor: apply %s: %v", op, err)
		return Result{Kind: ResultAborted, ItemID: activeID}
	}
	e.enqueueLocked(op)
	return Result{Kind: ResultApplied, ItemID: activeID, Op: &op}
}

func (e *Editor) enqueueLocked(op Op) {
	e.seq++
	j := &job{seq: e.seq, op: op, done: make(chan struct{})}

	var prev []chan struct{}
	for _, d := range op.Days() {
		if t, ok := e.tails[d]; ok {
			prev = append(prev, t)
		}
		e.tails[d] = j.done
	}
	e.pending = append(e.pending, j)

	if e.running == 0 {
		e.drained = make(chan struct{})
	}
	e.running++
	go e.run(j, prev)
}

func (e *Editor) run(j *job, prev []chan struct{}) {
	defer e.finish(j)

	for _, ch := range prev {
		<-ch
	}

	e.mu.Lock()
	cancelled := j.cancelled
	e.mu.Unlock()
	if cancelled {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.CommitTimeout)
	err := j.op.commit(ctx, e.adapter)
	cancel()

	if err == nil {
		e.mu.Lock()
		e.removeLocked(j)
		if aerr := j.op.apply(e.confirmed); aerr != nil {
			// Lanes keep confirmed in issue order, so this is a bug.
			if e.cfg.Strict {
				e.mu.Unlock()
				panic(aerr)
			}
			log.Printf("ERROR: editor: fold %s into confirmed state: %v", j.op, aerr)
		}
		e.mu.Unlock()
		return
	}

	cerr := &CommitError{Op: j.op, Err: err}
	log.Printf("ERROR: editor: %v", cerr)

	e.mu.Lock()
	days := e.revertLocked(j)
	e.mu.Unlock()

	e.notifier.Notify(Notification{
		Kind:    NoticeCommitFailed,
		Message: "Could not save the exercise order. Your last changes were undone.",
		DayIDs:  days,
		Err:     cerr,
		At:      time.Now(),
	})
}

// revertLocked drops the failed job and every later pending job that depends on a day it (or a
// job dropped with it) touched, then rebuilds the working arrangement from the confirmed one
// plus the surviving pending jobs. It returns the affected days, sorted.
func (e *Editor) revertLocked(failed *job) []string {
	tainted := make(map[string]bool)
	for _, d := range failed.op.Days() {
		tainted[d] = true
	}

	live := e.pending[:0]
	dropped := 0
	for _, j := range e.pending {
		switch {
		case j == failed:
			continue
		case j.seq > failed.seq && j.touches(tainted):
			j.cancelled = true
			dropped++
			for _, d := range j.op.Days() {
				tainted[d] = true
			}
			continue
		}
		live = append(live, j)
	}
	clear(e.pending[len(live):])
	e.pending = live
	if dropped > 0 {
		log.Printf("WARN: editor: dropped %d queued commit(s) after %s failed", dropped, failed.op)
	}

	e.working = e.confirmed.Clone()
	for _, j := range e.pending {
		if err := j.op.apply(e.working); err != nil {
			log.Printf("ERROR: editor: replay %s: %v", j.op, err)
		}
	}

	days := make([]string, 0, len(tainted))
	for d := range tainted {
		days = append(days, d)
	}
	slices.Sort(days)
	return days
}

func (e *Editor) removeLocked(j *job) {
	if i := slices.Index(e.pending, j); i >= 0 {
		e.pending = slices.Delete(e.pending, i, i+1)
	}
}

func (e *Editor) finish(j *job) {
	e.mu.Lock()
	e.removeLocked(j)
	for _, d := range j.op.Days() {
		if e.tails[d] == j.done {
			delete(e.tails, d)
		}
	}
	e.running--
	if e.running == 0 {
		close(e.drained)
	}
	e.mu.Unlock()
	close(j.done)
}

