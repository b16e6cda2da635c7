package api

import (
	"alcyxob/coach-app/internal/dnd"
	"alcyxob/coach-app/internal/editor"
	"alcyxob/coach-app/internal/service"
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	wsReadLimit    = 64 << 10
	wsTickInterval = 50 * time.Millisecond // touch hold activation polling
	wsEventRate    = 120                   // gesture events per second
)

// EditorHandler serves the drag-and-drop board of a mesocycle.
type EditorHandler struct {
	editorService service.EditorService
	// OriginPatterns lists extra hosts allowed to open the board stream, e.g. "app.example.com".
	OriginPatterns []string
}

// NewEditorHandler creates a new EditorHandler.
func NewEditorHandler(editorService service.EditorService, originPatterns ...string) *EditorHandler {
	return &EditorHandler{editorService: editorService, OriginPatterns: originPatterns}
}

// DropRequest drops ActiveID over OverID: another exercise id, "day-<dayId>" for a day's drop
// zone, or empty for no target.
type DropRequest struct {
	ActiveID string `json:"activeId" binding:"required"`
	OverID   string `json:"overId"`
}

// ResultResponse is what a drop or a tap did.
type ResultResponse struct {
	Kind   string     `json:"kind"` // none, aborted, noop, applied, edit_requested
	ItemID string     `json:"itemId,omitempty"`
	Op     *editor.Op `json:"op,omitempty"`
}

type DropResponse struct {
	Result ResultResponse     `json:"result"`
	Board  *service.BoardView `json:"board"`
}

func mapResult(r editor.Result) ResultResponse {
	return ResultResponse{Kind: r.Kind.String(), ItemID: r.ItemID, Op: r.Op}
}

// GetBoard godoc
// @Summary Open the editor board of a mesocycle
// @Tags Editor
// @Produce json
// @Security BearerAuth
// @Param id path string true "Mesocycle ID"
// @Success 200 {object} service.BoardView
// @Router /mesocycles/{id}/board [get]
func (h *EditorHandler) GetBoard(c *gin.Context) {
	coachID, ok := currentUserID(c)
	if !ok {
		return
	}
	mesoID, ok := pathObjectID(c, "id")
	if !ok {
		return
	}
	sess, err := h.editorService.Session(c.Request.Context(), coachID, mesoID, currentToken(c))
	if err != nil {
		programError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess.View())
}

// Drop godoc
// @Summary Drop an exercise onto another exercise or a day
// @Description Applied to the board at once; the commit runs in the background.
// @Tags Editor
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Mesocycle ID"
// @Param body body DropRequest true "Dragged exercise and target"
// @Success 200 {object} DropResponse
// @Router /mesocycles/{id}/board/drop [post]
func (h *EditorHandler) Drop(c *gin.Context) {
	var req DropRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	coachID, ok := currentUserID(c)
	if !ok {
		return
	}
	mesoID, ok := pathObjectID(c, "id")
	if !ok {
		return
	}
	res, view, err := h.editorService.Drop(c.Request.Context(), coachID, mesoID, currentToken(c), req.ActiveID, req.OverID)
	if err != nil {
		programError(c, err)
		return
	}
	c.JSON(http.StatusOK, DropResponse{Result: mapResult(res), Board: view})
}

// Reload godoc
// @Summary Reload the board from storage
// @Tags Editor
// @Produce json
// @Security BearerAuth
// @Param id path string true "Mesocycle ID"
// @Success 200 {object} service.BoardView
// @Failure 409 {object} gin.H "Changes are still being saved"
// @Router /mesocycles/{id}/board/reload [post]
func (h *EditorHandler) Reload(c *gin.Context) {
	coachID, ok := currentUserID(c)
	if !ok {
		return
	}
	mesoID, ok := pathObjectID(c, "id")
	if !ok {
		return
	}
	view, err := h.editorService.Reload(c.Request.Context(), coachID, mesoID)
	if err != nil {
		programError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// --- Gesture stream ---

// GestureEvent is sent by the browser over the board websocket.
type GestureEvent struct {
	Type   string  `json:"type"` // start, move, over, end, cancel, reload
	ItemID string  `json:"itemId,omitempty"`
	Input  string  `json:"input,omitempty"` // pointer, touch, keyboard
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Target string  `json:"target,omitempty"`
}

// BoardEvent is pushed to the browser over the board websocket.
type BoardEvent struct {
	Type    string               `json:"type"` // board, state, over, result, notice, error
	State   string               `json:"state,omitempty"`
	Target  string               `json:"target,omitempty"`
	Outcome string               `json:"outcome,omitempty"`
	Result  *ResultResponse      `json:"result,omitempty"`
	Notice  *editor.Notification `json:"notice,omitempty"`
	Board   *service.BoardView   `json:"board,omitempty"`
	Message string               `json:"message,omitempty"`
}

// Stream godoc
// @Summary Gesture stream of the editor board (websocket)
// @Description Browsers may pass the token as access_token. Commit failures are pushed as notice events.
// @Tags Editor
// @Security BearerAuth
// @Param id path string true "Mesocycle ID"
// @Router /mesocycles/{id}/board/ws [get]
func (h *EditorHandler) Stream(c *gin.Context) {
	coachID, ok := currentUserID(c)
	if !ok {
		return
	}
	mesoID, ok := pathObjectID(c, "id")
	if !ok {
		return
	}
	sess, err := h.editorService.Session(c.Request.Context(), coachID, mesoID, currentToken(c))
	if err != nil {
		programError(c, err)
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{OriginPatterns: h.OriginPatterns})
	if err != nil {
		return // Accept already wrote the error response
	}
	conn.SetReadLimit(wsReadLimit)

	// Not the request context: it is cancelled once the handler hijacks the connection.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := &gestureStream{
		conn:    conn,
		sess:    sess,
		reload:  func() (*service.BoardView, error) { return h.editorService.Reload(ctx, coachID, mesoID) },
		limiter: rate.NewLimiter(wsEventRate, wsEventRate),
		done:    h.editorService.Done(),
	}
	err = s.run(ctx)

	var closeErr websocket.CloseError
	switch {
	case errors.As(err, &closeErr):
		conn.Close(closeErr.Code, closeErr.Reason)
	case err == nil, errors.Is(err, io.EOF), errors.Is(err, context.Canceled):
		conn.Close(websocket.StatusNormalClosure, "")
	default:
		log.Printf("WARN: Board stream of mesocycle %s ended: %v", mesoID.Hex(), err)
		conn.Close(websocket.StatusInternalError, "")
	}
}

// gestureStream is one browser connection to an editor session.
type gestureStream struct {
	conn    *websocket.Conn
	sess    *service.EditorSession
	reload  func() (*service.BoardView, error)
	limiter *rate.Limiter
	done    <-chan struct{} // closed when the editor service shuts down

	gestureID string // drag started by this connection, "" when none
}

func (s *gestureStream) run(ctx context.Context) error {
	notes, unsubscribe := s.sess.Subscribe()
	defer unsubscribe()
	defer s.cancelOwn()

	if err := s.send(ctx, BoardEvent{Type: "board", Board: s.sess.View()}); err != nil {
		return err
	}

	events := make(chan GestureEvent)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(events)
		for {
			var ev GestureEvent
			if err := wsjson.Read(gctx, s.conn, &ev); err != nil {
				if websocket.CloseStatus(err) == websocket.StatusNormalClosure || websocket.CloseStatus(err) == websocket.StatusGoingAway {
					return io.EOF
				}
				return err
			}
			if !s.limiter.Allow() {
				return websocket.CloseError{Code: websocket.StatusPolicyViolation, Reason: "rate limit exceeded"}
			}
			select {
			case events <- ev:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
	})
	g.Go(func() error {
		ticker := time.NewTicker(wsTickInterval)
		defer ticker.Stop()
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return nil
				}
				if err := s.handle(gctx, ev); err != nil {
					return err
				}
			case <-ticker.C:
				if err := s.tick(gctx); err != nil {
					return err
				}
			case n, ok := <-notes:
				if !ok {
					return nil
				}
				if err := s.send(gctx, BoardEvent{Type: "notice", Notice: &n, Board: s.sess.View()}); err != nil {
					return err
				}
			case <-s.done:
				return s.closed()
			case <-gctx.Done():
				return gctx.Err()
			}
			if s.sess.Editor.Closed() {
				return s.closed()
			}
		}
	})
	return g.Wait()
}

// closed ends a stream whose editor no longer takes drops. Outside shutdown the session was
// evicted or went stale, and the browser reconnects to a fresh one.
func (s *gestureStream) closed() error {
	select {
	case <-s.done:
		return websocket.CloseError{Code: websocket.StatusGoingAway, Reason: "server shutting down"}
	default:
		return websocket.CloseError{Code: websocket.StatusTryAgainLater, Reason: "editor closed, reconnect"}
	}
}

func (s *gestureStream) send(ctx context.Context, ev BoardEvent) error {
	return wsjson.Write(ctx, s.conn, ev)
}

func (s *gestureStream) fail(ctx context.Context, msg string) error {
	return s.send(ctx, BoardEvent{Type: "error", Message: msg})
}

// own reports whether the running gesture was started by this connection.
func (s *gestureStream) own() bool {
	active := s.sess.Editor.Active()
	return active != nil && s.gestureID != "" && active.ID() == s.gestureID
}

func (s *gestureStream) cancelOwn() {
	if s.own() {
		s.sess.Editor.DragCancel()
	}
	s.gestureID = ""
}

func (s *gestureStream) handle(ctx context.Context, ev GestureEvent) error {
	now := time.Now()
	at := dnd.Point{X: ev.X, Y: ev.Y}

	switch ev.Type {
	case "start":
		id, err := s.sess.StartDrag(ev.ItemID, dnd.ParseInput(ev.Input), at, now)
		if errors.Is(err, service.ErrEditorClosed) {
			return s.closed()
		}
		if err != nil {
			return s.fail(ctx, "Another drag is in progress.")
		}
		if id == "" {
			// The exercise is gone; the browser is showing a stale board.
			return s.send(ctx, BoardEvent{Type: "result", Result: &ResultResponse{Kind: editor.ResultAborted.String(), ItemID: ev.ItemID}, Board: s.sess.View()})
		}
		s.gestureID = id
		return s.send(ctx, BoardEvent{Type: "state", State: s.sess.Editor.Active().State().String()})

	case "move":
		if !s.own() {
			return nil
		}
		state := s.sess.Editor.DragMove(at, now)
		if state == dnd.Idle {
			// A touch that strayed before the hold delay is a scroll, not a drag.
			s.gestureID = ""
		}
		return s.send(ctx, BoardEvent{Type: "state", State: state.String()})

	case "over":
		if !s.own() {
			return nil
		}
		t := s.sess.Editor.DragOver(ev.Target)
		return s.send(ctx, BoardEvent{Type: "over", Target: t.String()})

	case "end":
		if !s.own() {
			return nil
		}
		out, res := s.sess.Editor.DragEnd(ev.Target, now)
		s.gestureID = ""
		rr := mapResult(res)
		return s.send(ctx, BoardEvent{Type: "result", Outcome: out.Kind.String(), Result: &rr, Board: s.sess.View()})

	case "cancel":
		s.cancelOwn()
		return s.send(ctx, BoardEvent{Type: "state", State: dnd.Idle.String()})

	case "reload":
		view, err := s.reload()
		if err != nil {
			if errors.Is(err, service.ErrEditorBusy) {
				return s.fail(ctx, err.Error())
			}
			return err
		}
		s.gestureID = ""
		return s.send(ctx, BoardEvent{Type: "board", Board: view})
	}
	return s.fail(ctx, "Unknown event type "+ev.Type)
}

// tick lets a held touch activate without movement.
func (s *gestureStream) tick(ctx context.Context) error {
	if !s.own() {
		return nil
	}
	active := s.sess.Editor.Active()
	if active == nil || active.State() != dnd.Armed {
		return nil
	}
	if state := s.sess.Editor.DragTick(time.Now()); state == dnd.Dragging {
		return s.send(ctx, BoardEvent{Type: "state", State: state.String()})
	}
	return nil
}
