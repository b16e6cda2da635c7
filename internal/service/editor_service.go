package service

import (
	"alcyxob/coach-app/internal/board"
	"alcyxob/coach-app/internal/dnd"
	"alcyxob/coach-app/internal/domain"
	"alcyxob/coach-app/internal/editor"
	"alcyxob/coach-app/internal/persistence"
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrEditorBusy   = errors.New("changes are still being saved, try again shortly")
	ErrEditorClosed = errors.New("editor is shutting down")
)

// WeekView is one microcycle of the board with its days in day-number order.
type WeekView struct {
	Microcycle domain.Microcycle    `json:"microcycle"`
	Days       []domain.TrainingDay `json:"days"`
}

// BoardView is the rendered working arrangement of an editing session.
type BoardView struct {
	MesocycleID string     `json:"mesocycleId"`
	Name        string     `json:"name"`
	Weeks       []WeekView `json:"weeks"`
	Pending     int        `json:"pending"` // commits queued or in flight
}

// EditorSession is one coach's open editor over a mesocycle.
type EditorSession struct {
	Editor *editor.Editor

	coachID primitive.ObjectID
	mesoID  primitive.ObjectID
	auth    *bearerAdapter // nil when committing to the local repository

	gesture sync.Mutex // serializes drag starts across connections

	mu       sync.Mutex
	meso     domain.Mesocycle
	lastUsed time.Time
	subs     map[int]chan editor.Notification
	nextSub  int
}

// View renders the working arrangement.
func (s *EditorSession) View() *BoardView {
	s.mu.Lock()
	meso := s.meso
	s.mu.Unlock()
	return renderBoard(&meso, s.Editor.Snapshot(), s.Editor.Pending())
}

// StartDrag presses on itemID unless another gesture is running. It returns the new gesture's
// id, or "" when itemID is not on the board.
func (s *EditorSession) StartDrag(itemID string, input dnd.Input, at dnd.Point, now time.Time) (string, error) {
	s.gesture.Lock()
	defer s.gesture.Unlock()
	if s.Editor.Closed() {
		return "", ErrEditorClosed
	}
	if s.Editor.Active() != nil {
		return "", dnd.ErrSessionActive
	}
	if !s.Editor.DragStart(itemID, input, at, now) {
		return "", nil
	}
	return s.Editor.Active().ID(), nil
}

// Subscribe registers for commit failure notifications. The returned func unsubscribes.
func (s *EditorSession) Subscribe() (<-chan editor.Notification, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan editor.Notification, 16)
	s.subs[id] = ch
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if _, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(ch)
		}
	}
}

func (s *EditorSession) notify(n editor.Notification) {
	log.Printf("WARN: Editor %s/%s: %s (days %v): %v", s.coachID.Hex(), s.mesoID.Hex(), n.Message, n.DayIDs, n.Err)
	s.broadcast(n)
}

func (s *EditorSession) broadcast(n editor.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.subs {
		select {
		case ch <- n:
		default:
			log.Printf("WARN: Editor subscriber %d is not reading, dropping notification", id)
		}
	}
}

func (s *EditorSession) touch(token string, now time.Time) {
	if s.auth != nil && token != "" {
		s.auth.setToken(token)
	}
	s.mu.Lock()
	s.lastUsed = now
	s.mu.Unlock()
}

func (s *EditorSession) idle(now time.Time, after time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs) == 0 && now.Sub(s.lastUsed) >= after
}

// bearerAdapter commits through the remote backend with the latest token seen for the session.
type bearerAdapter struct {
	remote *persistence.HTTPAdapter
	mu     sync.Mutex
	token  string
}

func (a *bearerAdapter) setToken(token string) {
	a.mu.Lock()
	a.token = token
	a.mu.Unlock()
}

func (a *bearerAdapter) current() *persistence.HTTPAdapter {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.remote.WithToken(a.token)
}

func (a *bearerAdapter) CommitReorder(ctx context.Context, dayID string, orderedIDs []string) error {
	return a.current().CommitReorder(ctx, dayID, orderedIDs)
}

func (a *bearerAdapter) CommitMove(ctx context.Context, itemID, fromDayID, toDayID string, index int) error {
	return a.current().CommitMove(ctx, itemID, fromDayID, toDayID, index)
}

// --- Service Interface ---
type EditorService interface {
	// Session returns the coach's open editor for the mesocycle, loading it on first use.
	// token authenticates remote commits and may be empty for local ones.
	Session(ctx context.Context, coachID, mesoID primitive.ObjectID, token string) (*EditorSession, error)
	// Drop applies one drop and returns its result with the updated board.
	Drop(ctx context.Context, coachID, mesoID primitive.ObjectID, token, activeID, over string) (editor.Result, *BoardView, error)
	// Reload refreshes an open session from storage after out-of-band edits.
	Reload(ctx context.Context, coachID, mesoID primitive.ObjectID) (*BoardView, error)
	// Guard runs change, a write to the mesocycle's stored training days made outside the editor.
	// While the coach has the mesocycle open, change is refused with ErrEditorBusy as long as
	// commits are pending, drops wait for it, and the session is reloaded once it succeeds.
	Guard(ctx context.Context, coachID, mesoID primitive.ObjectID, change func() error) error
	// CloseIdle drops sessions unused for the idle timeout with nothing pending and nobody subscribed.
	CloseIdle(now time.Time) int
	// Close stops every session from taking drops and closes Done. It does not wait.
	Close()
	// Done is closed once Close has been called; board streams end on it.
	Done() <-chan struct{}
	// Shutdown closes the service and waits for in-flight commits of every session.
	Shutdown(ctx context.Context) error
}

// --- Service Implementation ---

type editorService struct {
	programs    ProgramService
	local       editor.PersistenceAdapter
	remote      *persistence.HTTPAdapter
	cfg         editor.Config
	idleTimeout time.Duration

	mu       sync.Mutex
	sessions map[string]*EditorSession
	closing  bool
	done     chan struct{}
}

// NewEditorService creates the session registry. Commits go to remote when it is non-nil and to
// local otherwise.
func NewEditorService(programs ProgramService, local editor.PersistenceAdapter, remote *persistence.HTTPAdapter, cfg editor.Config, idleTimeout time.Duration) EditorService {
	if idleTimeout <= 0 {
		idleTimeout = 30 * time.Minute
	}
	return &editorService{
		programs:    programs,
		local:       local,
		remote:      remote,
		cfg:         cfg,
		idleTimeout: idleTimeout,
		sessions:    make(map[string]*EditorSession),
		done:        make(chan struct{}),
	}
}

func sessionKey(coachID, mesoID primitive.ObjectID) string {
	return coachID.Hex() + "/" + mesoID.Hex()
}

// Session returns or opens an editing session.
func (s *editorService) Session(ctx context.Context, coachID, mesoID primitive.ObjectID, token string) (*EditorSession, error) {
	key := sessionKey(coachID, mesoID)

	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return nil, ErrEditorClosed
	}
	sess, ok := s.sessions[key]
	if ok && sess.Editor.Closed() {
		// Evicted as idle or gone stale; a fresh one is loaded below.
		delete(s.sessions, key)
		ok = false
	}
	s.mu.Unlock()
	if ok {
		sess.touch(token, time.Now())
		return sess, nil
	}

	// Load outside the lock; a concurrent open of the same key keeps the first session.
	meso, groups, err := s.programs.LoadBoard(ctx, coachID, mesoID)
	if err != nil {
		return nil, err
	}

	sess = &EditorSession{
		coachID:  coachID,
		mesoID:   mesoID,
		meso:     *meso,
		lastUsed: time.Now(),
		subs:     make(map[int]chan editor.Notification),
	}
	adapter := s.local
	if s.remote != nil {
		sess.auth = &bearerAdapter{remote: s.remote, token: token}
		adapter = sess.auth
	}
	sess.Editor = editor.New(groups, adapter, editor.NotifierFunc(sess.notify), s.cfg)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return nil, ErrEditorClosed
	}
	if existing, ok := s.sessions[key]; ok && !existing.Editor.Closed() {
		existing.touch(token, time.Now())
		return existing, nil
	}
	s.sessions[key] = sess
	log.Printf("INFO: Opened editor for mesocycle %s (coach %s)", mesoID.Hex(), coachID.Hex())
	return sess, nil
}

// Drop resolves over as a wire target id ("day-<id>" or an exercise id) and applies the drop.
// A session closed between lookup and drop is replaced once.
func (s *editorService) Drop(ctx context.Context, coachID, mesoID primitive.ObjectID, token, activeID, over string) (editor.Result, *BoardView, error) {
	for attempt := 0; ; attempt++ {
		sess, err := s.Session(ctx, coachID, mesoID, token)
		if err != nil {
			return editor.Result{}, nil, err
		}
		res := sess.Editor.Drop(activeID, dnd.ParseTarget(over))
		if res.Kind != editor.ResultClosed {
			return res, sess.View(), nil
		}
		if attempt > 0 {
			return res, sess.View(), ErrEditorClosed
		}
	}
}

// Reload replaces the session's arrangement with stored data.
func (s *editorService) Reload(ctx context.Context, coachID, mesoID primitive.ObjectID) (*BoardView, error) {
	s.mu.Lock()
	sess, ok := s.sessions[sessionKey(coachID, mesoID)]
	s.mu.Unlock()
	if !ok || sess.Editor.Closed() {
		// Nothing usable open; opening loads fresh data.
		sess, err := s.Session(ctx, coachID, mesoID, "")
		if err != nil {
			return nil, err
		}
		return sess.View(), nil
	}

	meso, groups, err := s.programs.LoadBoard(ctx, coachID, mesoID)
	if err != nil {
		return nil, err
	}
	if err := sess.Editor.Reload(groups); err != nil {
		if errors.Is(err, editor.ErrPending) {
			return nil, ErrEditorBusy
		}
		return nil, err
	}
	sess.mu.Lock()
	sess.meso = *meso
	sess.mu.Unlock()
	sess.touch("", time.Now())
	return sess.View(), nil
}

// Guard runs change under the open session's editor, if there is one.
func (s *editorService) Guard(ctx context.Context, coachID, mesoID primitive.ObjectID, change func() error) error {
	key := sessionKey(coachID, mesoID)
	s.mu.Lock()
	sess, ok := s.sessions[key]
	s.mu.Unlock()

	if ok {
		err := sess.Editor.Exclusive(change, s.loader(ctx, sess))
		switch {
		case err == nil:
			sess.broadcast(editor.Notification{
				Kind:    editor.NoticeReloaded,
				Message: "The program was changed and has been reloaded.",
				At:      time.Now(),
			})
			return nil
		case errors.Is(err, editor.ErrPending):
			return ErrEditorBusy
		case !errors.Is(err, editor.ErrClosed):
			return err
		}
		// Closed meanwhile: the next Session call loads fresh data anyway.
	}

	if err := change(); err != nil {
		return err
	}
	// A session opened while change ran may have loaded the old data.
	s.mu.Lock()
	opened, ok := s.sessions[key]
	s.mu.Unlock()
	if ok {
		if err := opened.Editor.Exclusive(func() error { return nil }, s.loader(ctx, opened)); err != nil && !errors.Is(err, editor.ErrClosed) {
			log.Printf("WARN: Editor %s opened during a change could not be refreshed (%v), closing it", mesoID.Hex(), err)
			opened.Editor.Close()
		}
	}
	return nil
}

func (s *editorService) loader(ctx context.Context, sess *EditorSession) func() (map[string][]domain.TrainingDay, error) {
	return func() (map[string][]domain.TrainingDay, error) {
		meso, groups, err := s.programs.LoadBoard(ctx, sess.coachID, sess.mesoID)
		if err != nil {
			return nil, err
		}
		sess.mu.Lock()
		sess.meso = *meso
		sess.mu.Unlock()
		return groups, nil
	}
}

// CloseIdle removes idle sessions and returns how many were closed. A session is closed before
// it leaves the registry, so a drop that already holds it is refused rather than lost.
func (s *editorService) CloseIdle(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	closed := 0
	for key, sess := range s.sessions {
		if !sess.idle(now, s.idleTimeout) || !sess.Editor.CloseIfIdle() {
			continue
		}
		delete(s.sessions, key)
		closed++
	}
	if closed > 0 {
		log.Printf("INFO: Closed %d idle editor sessions", closed)
	}
	return closed
}

// Close refuses new sessions and drops, and signals board streams to end.
func (s *editorService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return
	}
	s.closing = true
	for _, sess := range s.sessions {
		sess.Editor.Close()
	}
	close(s.done)
	log.Printf("INFO: Editor service closing, %d sessions open", len(s.sessions))
}

func (s *editorService) Done() <-chan struct{} {
	return s.done
}

// Shutdown closes the service, then waits for every session's commits or until ctx is done.
func (s *editorService) Shutdown(ctx context.Context) error {
	s.Close()

	s.mu.Lock()
	sessions := make([]*EditorSession, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	for _, sess := range sessions {
		if err := sess.Editor.Wait(ctx); err != nil {
			log.Printf("ERROR: Editor %s still has %d unsaved commits at shutdown", sess.mesoID.Hex(), sess.Editor.Pending())
			return err
		}
	}
	return nil
}

// renderBoard lays out weeks in mesocycle order. Days under weeks the mesocycle no longer lists
// are kept in trailing weeks so nothing on the board is hidden.
func renderBoard(meso *domain.Mesocycle, b *board.Board, pending int) *BoardView {
	view := &BoardView{
		MesocycleID: meso.ID.Hex(),
		Name:        meso.Name,
		Weeks:       make([]WeekView, 0, len(meso.Microcycles)),
		Pending:     pending,
	}
	seen := make(map[string]bool, len(meso.Microcycles))
	for _, mc := range meso.Microcycles {
		seen[mc.ID.Hex()] = true
		view.Weeks = append(view.Weeks, WeekView{Microcycle: mc, Days: b.Days(mc.ID.Hex())})
	}
	for _, parentID := range b.Parents() {
		if seen[parentID] {
			continue
		}
		mcID, _ := primitive.ObjectIDFromHex(parentID)
		view.Weeks = append(view.Weeks, WeekView{Microcycle: domain.Microcycle{ID: mcID}, Days: b.Days(parentID)})
	}
	return view
}
