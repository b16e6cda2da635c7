package api

import (
	"alcyxob/coach-app/internal/domain"
	"alcyxob/coach-app/internal/editor"
	"alcyxob/coach-app/internal/persistence"
	"alcyxob/coach-app/internal/service"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// recordingAdapter logs every commit as "reorder <day> <ids>" or "move <item> <from>-><to>@<index>".
// With hold set, commits return only once hold is closed.
type recordingAdapter struct {
	commits chan string
	hold    chan struct{}

	mu  sync.Mutex
	err error
}

func newRecordingAdapter() *recordingAdapter {
	return &recordingAdapter{commits: make(chan string, 16)}
}

func (a *recordingAdapter) CommitReorder(ctx context.Context, dayID string, orderedIDs []string) error {
	a.commits <- fmt.Sprintf("reorder %s %s", dayID, strings.Join(orderedIDs, ","))
	a.wait(ctx)
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

func (a *recordingAdapter) CommitMove(ctx context.Context, itemID, fromDayID, toDayID string, index int) error {
	a.commits <- fmt.Sprintf("move %s %s->%s@%d", itemID, fromDayID, toDayID, index)
	a.wait(ctx)
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

func (a *recordingAdapter) wait(ctx context.Context) {
	if a.hold == nil {
		return
	}
	select {
	case <-a.hold:
	case <-ctx.Done():
	}
}

func (a *recordingAdapter) fail(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.err = err
}

func (a *recordingAdapter) next(t *testing.T) string {
	t.Helper()
	select {
	case c := <-a.commits:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a commit")
		return ""
	}
}

type editorFixture struct {
	*boardFixture
	adapter *recordingAdapter
	router  *gin.Engine
	token   string
}

func newEditorFixture(t *testing.T) *editorFixture {
	f := newBoardFixture()
	adapter := newRecordingAdapter()
	programs := f.programs()
	editors := service.NewEditorService(programs, adapter, nil, editor.Config{CommitTimeout: time.Second}, 0)
	return &editorFixture{
		boardFixture: f,
		adapter:      adapter,
		router:       newTestRouter(programs, editors, nil),
		token:        signToken(t, f.coachID, domain.RoleCoach, time.Hour),
	}
}

func (f *editorFixture) boardPath(suffix string) string {
	return "/api/v1/mesocycles/" + f.meso.ID.Hex() + "/board" + suffix
}

func dayOrder(view *service.BoardView, week, day int) []string {
	var out []string
	for _, ex := range view.Weeks[week].Days[day].Exercises {
		out = append(out, ex.ID.Hex())
	}
	return out
}

func TestGetBoard(t *testing.T) {
	f := newEditorFixture(t)

	w := doJSON(t, f.router, http.MethodGet, f.boardPath(""), f.token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, was: %d (%s)", w.Code, w.Body.String())
	}
	view := decode[service.BoardView](t, w)
	if view.MesocycleID != f.meso.ID.Hex() || len(view.Weeks) != 1 || len(view.Weeks[0].Days) != 2 {
		t.Fatalf("unexpected board: %+v", view)
	}
	if got := dayOrder(&view, 0, 0); !reflect.DeepEqual(got, f.hex("a", "b", "c")) {
		t.Errorf("expected a,b,c, was: %v", got)
	}

	other := signToken(t, primitive.NewObjectID(), domain.RoleCoach, time.Hour)
	w = doJSON(t, f.router, http.MethodGet, f.boardPath(""), other, nil)
	if w.Code != http.StatusForbidden {
		t.Errorf("foreign coach: expected 403, was: %d", w.Code)
	}
}

func TestDropReordersAndCommits(t *testing.T) {
	f := newEditorFixture(t)

	w := doJSON(t, f.router, http.MethodPost, f.boardPath("/drop"), f.token, DropRequest{ActiveID: f.items["c"].Hex(), OverID: f.items["a"].Hex()})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, was: %d (%s)", w.Code, w.Body.String())
	}
	resp := decode[DropResponse](t, w)
	if resp.Result.Kind != "applied" || resp.Result.Op == nil {
		t.Fatalf("expected an applied drop, was: %+v", resp.Result)
	}
	if got := dayOrder(resp.Board, 0, 0); !reflect.DeepEqual(got, f.hex("c", "a", "b")) {
		t.Errorf("expected c,a,b on the board, was: %v", got)
	}
	want := "reorder " + f.d1.ID.Hex() + " " + strings.Join(f.hex("c", "a", "b"), ",")
	if got := f.adapter.next(t); got != want {
		t.Errorf("expected commit %q, was: %q", want, got)
	}

	// A drop on a day's zone appends to that day.
	w = doJSON(t, f.router, http.MethodPost, f.boardPath("/drop"), f.token, DropRequest{ActiveID: f.items["a"].Hex(), OverID: "day-" + f.d2.ID.Hex()})
	resp = decode[DropResponse](t, w)
	if resp.Result.Kind != "applied" {
		t.Fatalf("expected an applied move, was: %+v", resp.Result)
	}
	want = fmt.Sprintf("move %s %s->%s@1", f.items["a"].Hex(), f.d1.ID.Hex(), f.d2.ID.Hex())
	if got := f.adapter.next(t); got != want {
		t.Errorf("expected commit %q, was: %q", want, got)
	}

	w = doJSON(t, f.router, http.MethodPost, f.boardPath("/drop"), f.token, DropRequest{ActiveID: f.items["b"].Hex()})
	if resp = decode[DropResponse](t, w); resp.Result.Kind != "none" {
		t.Errorf("drop without target: expected none, was: %q", resp.Result.Kind)
	}
	w = doJSON(t, f.router, http.MethodPost, f.boardPath("/drop"), f.token, map[string]string{"overId": "x"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing activeId: expected 400, was: %d", w.Code)
	}
}

func TestFailedCommitSnapsBack(t *testing.T) {
	f := newEditorFixture(t)
	f.adapter.fail(errors.New("backend down"))

	w := doJSON(t, f.router, http.MethodPost, f.boardPath("/drop"), f.token, DropRequest{ActiveID: f.items["b"].Hex(), OverID: f.items["a"].Hex()})
	if resp := decode[DropResponse](t, w); resp.Result.Kind != "applied" {
		t.Fatalf("expected an applied drop, was: %+v", resp.Result)
	}
	f.adapter.next(t)

	deadline := time.Now().Add(2 * time.Second)
	for {
		view := decode[service.BoardView](t, doJSON(t, f.router, http.MethodGet, f.boardPath(""), f.token, nil))
		if view.Pending == 0 && reflect.DeepEqual(dayOrder(&view, 0, 0), f.hex("a", "b", "c")) {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("board did not revert: %v pending=%d", dayOrder(&view, 0, 0), view.Pending)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestBoardStream(t *testing.T) {
	f := newEditorFixture(t)
	srv := httptest.NewServer(f.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + f.boardPath("/ws") + "?access_token=" + f.token

	dial := func() *websocket.Conn {
		conn, _, err := websocket.Dial(ctx, url, nil)
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		var ev BoardEvent
		if err := wsjson.Read(ctx, conn, &ev); err != nil || ev.Type != "board" || ev.Board == nil {
			t.Fatalf("expected an initial board event, was: %+v (%v)", ev, err)
		}
		return conn
	}
	exchange := func(conn *websocket.Conn, in GestureEvent) BoardEvent {
		t.Helper()
		if err := wsjson.Write(ctx, conn, in); err != nil {
			t.Fatalf("write %s: %v", in.Type, err)
		}
		var out BoardEvent
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			t.Fatalf("read after %s: %v", in.Type, err)
		}
		return out
	}

	conn := dial()
	defer conn.Close(websocket.StatusNormalClosure, "")

	c, a := f.items["c"].Hex(), f.items["a"].Hex()
	if ev := exchange(conn, GestureEvent{Type: "start", ItemID: c, Input: "pointer"}); ev.State != "armed" {
		t.Fatalf("expected armed after press, was: %+v", ev)
	}
	if ev := exchange(conn, GestureEvent{Type: "move", X: 20}); ev.State != "dragging" {
		t.Fatalf("expected dragging after move, was: %+v", ev)
	}
	if ev := exchange(conn, GestureEvent{Type: "over", Target: a}); ev.Type != "over" || ev.Target != a {
		t.Fatalf("expected hover over a, was: %+v", ev)
	}
	ev := exchange(conn, GestureEvent{Type: "end", Target: a})
	if ev.Type != "result" || ev.Outcome != "dropped" || ev.Result == nil || ev.Result.Kind != "applied" {
		t.Fatalf("expected an applied drop, was: %+v", ev)
	}
	if got := dayOrder(ev.Board, 0, 0); !reflect.DeepEqual(got, f.hex("c", "a", "b")) {
		t.Errorf("expected c,a,b, was: %v", got)
	}
	f.adapter.next(t)

	// A second connection cannot start a drag while the first one holds it.
	if ev := exchange(conn, GestureEvent{Type: "start", ItemID: a, Input: "pointer"}); ev.State != "armed" {
		t.Fatalf("expected armed, was: %+v", ev)
	}
	other := dial()
	defer other.Close(websocket.StatusNormalClosure, "")
	if ev := exchange(other, GestureEvent{Type: "start", ItemID: c, Input: "pointer"}); ev.Type != "error" {
		t.Errorf("expected an error event, was: %+v", ev)
	}
	if ev := exchange(conn, GestureEvent{Type: "cancel"}); ev.State != "idle" {
		t.Errorf("expected idle after cancel, was: %+v", ev)
	}
	if ev := exchange(other, GestureEvent{Type: "start", ItemID: c, Input: "pointer"}); ev.State != "armed" {
		t.Errorf("expected the second connection to start after cancel, was: %+v", ev)
	}

	if ev := exchange(conn, GestureEvent{Type: "bogus"}); ev.Type != "error" {
		t.Errorf("expected an error for unknown events, was: %+v", ev)
	}
}

func TestCommitRoutesWaitForOpenEditor(t *testing.T) {
	f := newBoardFixture()
	adapter := newRecordingAdapter()
	adapter.hold = make(chan struct{})
	programs := f.programs()
	editors := service.NewEditorService(programs, adapter, nil, editor.Config{CommitTimeout: 5 * time.Second}, 0)
	router := newTestRouter(service.NewEditingProgramService(programs, editors), editors, nil)
	token := signToken(t, f.coachID, domain.RoleCoach, time.Hour)
	boardPath := "/api/v1/mesocycles/" + f.meso.ID.Hex() + "/board"
	orderPath := "/api/v1/training-days/" + f.d1.ID.Hex() + "/exercises/order"

	w := doJSON(t, router, http.MethodPost, boardPath+"/drop", token, DropRequest{ActiveID: f.items["c"].Hex(), OverID: f.items["a"].Hex()})
	if resp := decode[DropResponse](t, w); resp.Result.Kind != "applied" {
		t.Fatalf("expected an applied drop, was: %+v", resp.Result)
	}
	adapter.next(t)

	w = doJSON(t, router, http.MethodPut, orderPath, token, ReorderExercisesRequest{ExerciseIDs: f.hex("b", "a", "c")})
	if w.Code != http.StatusConflict {
		t.Fatalf("reorder during a pending commit: expected 409, was: %d (%s)", w.Code, w.Body.String())
	}
	if reorders, _ := programs.calls(); len(reorders) != 0 {
		t.Fatalf("expected nothing written, was: %+v", reorders)
	}

	// The same route called as an editor's own commit goes straight through.
	req := httptest.NewRequest(http.MethodPut, orderPath, strings.NewReader(`{"exercise_ids":["`+strings.Join(f.hex("b", "a", "c"), `","`)+`"]}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(persistence.EditorCommitHeader, "1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("editor commit: expected 204, was: %d (%s)", rec.Code, rec.Body.String())
	}

	close(adapter.hold)
	deadline := time.Now().Add(2 * time.Second)
	for {
		w = doJSON(t, router, http.MethodPut, orderPath, token, ReorderExercisesRequest{ExerciseIDs: f.hex("b", "a", "c")})
		if w.Code == http.StatusNoContent {
			break
		}
		if w.Code != http.StatusConflict || time.Now().After(deadline) {
			t.Fatalf("reorder after the commit landed: expected 204, was: %d (%s)", w.Code, w.Body.String())
		}
		time.Sleep(10 * time.Millisecond)
	}
	if reorders, _ := programs.calls(); len(reorders) != 2 {
		t.Errorf("expected two reorders written, was: %d", len(reorders))
	}
}

func TestBoardStreamEndsOnShutdown(t *testing.T) {
	f := newBoardFixture()
	programs := f.programs()
	editors := service.NewEditorService(programs, newRecordingAdapter(), nil, editor.Config{CommitTimeout: time.Second}, 0)
	router := newTestRouter(programs, editors, nil)
	token := signToken(t, f.coachID, domain.RoleCoach, time.Hour)
	boardPath := "/api/v1/mesocycles/" + f.meso.ID.Hex() + "/board"

	srv := httptest.NewServer(router)
	defer srv.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+boardPath+"/ws?access_token="+token, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")
	var ev BoardEvent
	if err := wsjson.Read(ctx, conn, &ev); err != nil || ev.Type != "board" {
		t.Fatalf("expected an initial board event, was: %+v (%v)", ev, err)
	}

	editors.Close()
	if err := wsjson.Read(ctx, conn, &ev); websocket.CloseStatus(err) != websocket.StatusGoingAway {
		t.Fatalf("expected the stream to close as going away, was: %v", err)
	}

	w := doJSON(t, router, http.MethodPost, boardPath+"/drop", token, DropRequest{ActiveID: f.items["c"].Hex(), OverID: f.items["a"].Hex()})
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("drop after shutdown: expected 503, was: %d (%s)", w.Code, w.Body.String())
	}
}
