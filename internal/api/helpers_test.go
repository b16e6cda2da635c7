package api

import (
	"alcyxob/coach-app/internal/domain"
	"alcyxob/coach-app/internal/service"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, userID primitive.ObjectID, role domain.Role, ttl time.Duration) string {
	t.Helper()
	claims := jwtClaims{
		UserID: userID.Hex(),
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

type reorderCall struct {
	CoachID primitive.ObjectID
	DayID   primitive.ObjectID
	IDs     []primitive.ObjectID
}

type moveCall struct {
	CoachID, ItemID, From, To primitive.ObjectID
	Index                     int
}

// fakePrograms implements the parts of service.ProgramService the handlers under test reach.
type fakePrograms struct {
	service.ProgramService

	mu       sync.Mutex
	meso     domain.Mesocycle
	days     []domain.TrainingDay
	reorders []reorderCall
	moves    []moveCall
	err      error
}

func (f *fakePrograms) LoadBoard(ctx context.Context, coachID, mesoID primitive.ObjectID) (*domain.Mesocycle, map[string][]domain.TrainingDay, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if mesoID != f.meso.ID {
		return nil, nil, service.ErrMesocycleNotFound
	}
	if coachID != f.meso.CoachID {
		return nil, nil, service.ErrMesocycleAccessDenied
	}
	meso := f.meso
	groups := make(map[string][]domain.TrainingDay)
	for _, mc := range meso.Microcycles {
		groups[mc.ID.Hex()] = nil
	}
	for _, d := range f.days {
		d.Exercises = append([]domain.DayExercise(nil), d.Exercises...)
		groups[d.MicrocycleID.Hex()] = append(groups[d.MicrocycleID.Hex()], d)
	}
	return &meso, groups, nil
}

func (f *fakePrograms) GetTrainingDay(ctx context.Context, coachID, dayID primitive.ObjectID) (*domain.TrainingDay, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.days {
		if d.ID != dayID {
			continue
		}
		if d.CoachID != coachID {
			return nil, service.ErrTrainingDayAccessDenied
		}
		return &d, nil
	}
	return nil, service.ErrTrainingDayNotFound
}

func (f *fakePrograms) ReorderDayExercises(ctx context.Context, coachID, dayID primitive.ObjectID, ids []primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reorders = append(f.reorders, reorderCall{CoachID: coachID, DayID: dayID, IDs: ids})
	return f.err
}

func (f *fakePrograms) MoveDayExercise(ctx context.Context, coachID, itemID, fromDayID, toDayID primitive.ObjectID, index int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moves = append(f.moves, moveCall{CoachID: coachID, ItemID: itemID, From: fromDayID, To: toDayID, Index: index})
	return f.err
}

func (f *fakePrograms) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakePrograms) calls() ([]reorderCall, []moveCall) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]reorderCall(nil), f.reorders...), append([]moveCall(nil), f.moves...)
}

// boardFixture is one week with d1 [a b c] and d2 [d].
type boardFixture struct {
	coachID primitive.ObjectID
	meso    domain.Mesocycle
	d1, d2  domain.TrainingDay
	items   map[string]primitive.ObjectID
}

func newBoardFixture() *boardFixture {
	f := &boardFixture{coachID: primitive.NewObjectID(), items: make(map[string]primitive.ObjectID)}
	week := domain.Microcycle{ID: primitive.NewObjectID(), WeekNumber: 1, Name: "Week 1"}
	f.meso = domain.Mesocycle{ID: primitive.NewObjectID(), CoachID: f.coachID, Name: "Block 1", Microcycles: []domain.Microcycle{week}}
	day := func(n int, names ...string) domain.TrainingDay {
		d := domain.TrainingDay{ID: primitive.NewObjectID(), MesocycleID: f.meso.ID, MicrocycleID: week.ID, CoachID: f.coachID, DayNumber: n}
		for i, name := range names {
			id := primitive.NewObjectID()
			f.items[name] = id
			d.Exercises = append(d.Exercises, domain.DayExercise{ID: id, ExerciseID: primitive.NewObjectID(), OrderIndex: i})
		}
		return d
	}
	f.d1 = day(1, "a", "b", "c")
	f.d2 = day(2, "d")
	return f
}

func (f *boardFixture) programs() *fakePrograms {
	return &fakePrograms{meso: f.meso, days: []domain.TrainingDay{f.d1, f.d2}}
}

func (f *boardFixture) hex(names ...string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = f.items[n].Hex()
	}
	return out
}

func newTestRouter(programs service.ProgramService, editors service.EditorService, questionnaires service.QuestionnaireService) *gin.Engine {
	router := gin.New()
	SetupRoutes(router, testSecret, nil, nil, programs, editors, questionnaires, nil)
	return router
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}
