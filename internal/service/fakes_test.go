package service

import (
	"alcyxob/coach-app/internal/domain"
	"alcyxob/coach-app/internal/repository"
	"alcyxob/coach-app/internal/reorder"
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory repositories with the same observable behavior as the mongo ones.

type memUsers struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*domain.User
}

func newMemUsers() *memUsers { return &memUsers{users: map[primitive.ObjectID]*domain.User{}} }

func (r *memUsers) Create(_ context.Context, u *domain.User) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == u.Email {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}
	c := *u
	c.ID = primitive.NewObjectID()
	r.users[c.ID] = &c
	return c.ID, nil
}

func (r *memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memUsers) GetByID(_ context.Context, id primitive.ObjectID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (r *memUsers) GetClientsByCoachID(_ context.Context, coachID primitive.ObjectID) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.User
	for _, u := range r.users {
		if u.CoachID != nil && *u.CoachID == coachID {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *memUsers) SetCoachForClient(_ context.Context, clientID, coachID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[clientID]
	if !ok {
		return repository.ErrNotFound
	}
	u.CoachID = &coachID
	return nil
}

type memExercises struct {
	mu        sync.Mutex
	exercises map[primitive.ObjectID]*domain.Exercise
}

func newMemExercises() *memExercises {
	return &memExercises{exercises: map[primitive.ObjectID]*domain.Exercise{}}
}

func (r *memExercises) Create(_ context.Context, e *domain.Exercise) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *e
	c.ID = primitive.NewObjectID()
	r.exercises[c.ID] = &c
	return c.ID, nil
}

func (r *memExercises) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Exercise, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.exercises[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *e
	return &c, nil
}

func (r *memExercises) GetByCoachID(_ context.Context, coachID primitive.ObjectID) ([]domain.Exercise, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Exercise
	for _, e := range r.exercises {
		if e.CoachID == coachID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (r *memExercises) Update(_ context.Context, e *domain.Exercise) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.exercises[e.ID]; !ok {
		return repository.ErrNotFound
	}
	c := *e
	r.exercises[e.ID] = &c
	return nil
}

func (r *memExercises) SetVideoObjectKey(_ context.Context, id, coachID primitive.ObjectID, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.exercises[id]
	if !ok || e.CoachID != coachID {
		return repository.ErrNotFound
	}
	e.VideoObjectKey = key
	return nil
}

func (r *memExercises) Delete(_ context.Context, id, coachID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.exercises[id]
	if !ok || e.CoachID != coachID {
		return repository.ErrNotFound
	}
	delete(r.exercises, id)
	return nil
}

type memMesocycles struct {
	mu    sync.Mutex
	mesos map[primitive.ObjectID]*domain.Mesocycle
}

func newMemMesocycles() *memMesocycles {
	return &memMesocycles{mesos: map[primitive.ObjectID]*domain.Mesocycle{}}
}

func (r *memMesocycles) Create(_ context.Context, m *domain.Mesocycle) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m.ID = primitive.NewObjectID()
	for i := range m.Microcycles {
		if m.Microcycles[i].ID.IsZero() {
			m.Microcycles[i].ID = primitive.NewObjectID()
		}
	}
	c := *m
	r.mesos[c.ID] = &c
	return c.ID, nil
}

func (r *memMesocycles) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Mesocycle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.mesos[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *m
	return &c, nil
}

func (r *memMesocycles) GetByCoachID(_ context.Context, coachID primitive.ObjectID) ([]domain.Mesocycle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Mesocycle
	for _, m := range r.mesos {
		if m.CoachID == coachID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (r *memMesocycles) Delete(_ context.Context, id, coachID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.mesos[id]
	if !ok || m.CoachID != coachID {
		return repository.ErrNotFound
	}
	delete(r.mesos, id)
	return nil
}

type memDays struct {
	mu   sync.Mutex
	days map[primitive.ObjectID]*domain.TrainingDay
	// fail makes the next reorder or move return this error once.
	fail error
}

func newMemDays() *memDays { return &memDays{days: map[primitive.ObjectID]*domain.TrainingDay{}} }

func (r *memDays) Create(_ context.Context, d *domain.TrainingDay) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d.ID = primitive.NewObjectID()
	for i := range d.Exercises {
		if d.Exercises[i].ID.IsZero() {
			d.Exercises[i].ID = primitive.NewObjectID()
		}
	}
	list := reorder.New(d.Exercises)
	list.Heal()
	d.Exercises = list.Items()
	d.UpdatedAt = time.Now()
	c := *d
	r.days[c.ID] = &c
	return c.ID, nil
}

func (r *memDays) GetByID(_ context.Context, id primitive.ObjectID) (*domain.TrainingDay, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.days[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c := *d
	c.Exercises = append([]domain.DayExercise(nil), d.Exercises...)
	return &c, nil
}

func (r *memDays) GetByMesocycleID(_ context.Context, mesoID primitive.ObjectID) ([]domain.TrainingDay, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.TrainingDay
	for _, d := range r.days {
		if d.MesocycleID == mesoID {
			c := *d
			c.Exercises = append([]domain.DayExercise(nil), d.Exercises...)
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *memDays) DeleteByMesocycleID(_ context.Context, mesoID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, d := range r.days {
		if d.MesocycleID == mesoID {
			delete(r.days, id)
		}
	}
	return nil
}

func (r *memDays) AddExercise(_ context.Context, dayID primitive.ObjectID, e domain.DayExercise) (*domain.DayExercise, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.days[dayID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	list := reorder.New(d.Exercises)
	e.ID = primitive.NewObjectID()
	if err := list.Insert(e, list.Len()); err != nil {
		return nil, err
	}
	d.Exercises = list.Items()
	added, _ := list.Get(e.ID.Hex())
	return &added, nil
}

func (r *memDays) UpdateExerciseParams(_ context.Context, dayID, itemID primitive.ObjectID, p domain.ExerciseParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.days[dayID]
	if !ok {
		return repository.ErrNotFound
	}
	for i := range d.Exercises {
		if d.Exercises[i].ID == itemID {
			d.Exercises[i].Params = p
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *memDays) RemoveExercise(_ context.Context, dayID, itemID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.days[dayID]
	if !ok {
		return repository.ErrNotFound
	}
	list := reorder.New(d.Exercises)
	if _, err := list.Remove(itemID.Hex()); err != nil {
		return repository.ErrNotFound
	}
	d.Exercises = list.Items()
	return nil
}

func (r *memDays) ReorderExercises(_ context.Context, dayID primitive.ObjectID, ids []primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.takeFail(); err != nil {
		return err
	}
	d, ok := r.days[dayID]
	if !ok {
		return repository.ErrNotFound
	}
	order := make([]string, len(ids))
	for i, id := range ids {
		order[i] = id.Hex()
	}
	list := reorder.New(d.Exercises)
	if err := list.Arrange(order); err != nil {
		return fmt.Errorf("%w: %v", repository.ErrConflict, err)
	}
	d.Exercises = list.Items()
	return nil
}

func (r *memDays) MoveExercise(_ context.Context, itemID, fromID, toID primitive.ObjectID, index int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.takeFail(); err != nil {
		return err
	}
	from, ok1 := r.days[fromID]
	to, ok2 := r.days[toID]
	if !ok1 || !ok2 {
		return repository.ErrNotFound
	}
	source, dest := reorder.New(from.Exercises), reorder.New(to.Exercises)
	item, err := source.Remove(itemID.Hex())
	if err != nil {
		return fmt.Errorf("%w: %v", repository.ErrConflict, err)
	}
	if err := dest.Insert(item, index); err != nil {
		return fmt.Errorf("%w: %v", repository.ErrConflict, err)
	}
	from.Exercises, to.Exercises = source.Items(), dest.Items()
	return nil
}

func (r *memDays) takeFail() error {
	err := r.fail
	r.fail = nil
	return err
}

func (r *memDays) order(dayID primitive.ObjectID) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := reorder.New(r.days[dayID].Exercises)
	return list.IDs()
}

type memStorage struct {
	mu      sync.Mutex
	deleted []string
}

func (s *memStorage) GeneratePresignedUploadURL(_ context.Context, key, _ string, _ time.Duration) (string, error) {
	return "https://bucket.test/" + key + "?upload", nil
}

func (s *memStorage) GeneratePresignedDownloadURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://bucket.test/" + key, nil
}

func (s *memStorage) DeleteObject(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, key)
	return nil
}

// fixture is a coach with a client, a two exercise catalog and one mesocycle of one week with
// two days: d1 [A, B, C] and d2 [D].
type fixture struct {
	users     *memUsers
	exercises *memExercises
	mesos     *memMesocycles
	days      *memDays
	programs  ProgramService

	coach, client primitive.ObjectID
	squat, bench  primitive.ObjectID
	meso          *domain.Mesocycle
	d1, d2        *domain.TrainingDay
	items         map[string]primitive.ObjectID // A..D -> day exercise id
}

func newFixture(t interface{ Fatalf(string, ...any) }) *fixture {
	ctx := context.Background()
	f := &fixture{
		users:     newMemUsers(),
		exercises: newMemExercises(),
		mesos:     newMemMesocycles(),
		days:      newMemDays(),
		items:     map[string]primitive.ObjectID{},
	}
	f.programs = NewProgramService(f.users, f.exercises, f.mesos, f.days)

	f.coach, _ = f.users.Create(ctx, &domain.User{Name: "Coach", Email: "coach@test", Role: domain.RoleCoach})
	f.client, _ = f.users.Create(ctx, &domain.User{Name: "Client", Email: "client@test", Role: domain.RoleClient})
	f.squat, _ = f.exercises.Create(ctx, &domain.Exercise{CoachID: f.coach, Name: "Squat"})
	f.bench, _ = f.exercises.Create(ctx, &domain.Exercise{CoachID: f.coach, Name: "Bench"})

	var err error
	f.meso, err = f.programs.CreateMesocycle(ctx, f.coach, MesocycleInput{
		Name:        "Block 1",
		Microcycles: []domain.Microcycle{{WeekNumber: 1, Name: "Week 1"}},
	})
	if err != nil {
		t.Fatalf("CreateMesocycle: %v", err)
	}
	week := f.meso.Microcycles[0].ID
	f.d1, err = f.programs.CreateTrainingDay(ctx, f.coach, f.meso.ID, TrainingDayInput{MicrocycleID: week, DayNumber: 1})
	if err != nil {
		t.Fatalf("CreateTrainingDay: %v", err)
	}
	f.d2, _ = f.programs.CreateTrainingDay(ctx, f.coach, f.meso.ID, TrainingDayInput{MicrocycleID: week, DayNumber: 2})

	for _, name := range []string{"A", "B", "C"} {
		added, err := f.programs.AddDayExercise(ctx, f.coach, f.d1.ID, f.squat, domain.ExerciseParams{Sets: 3})
		if err != nil {
			t.Fatalf("AddDayExercise: %v", err)
		}
		f.items[name] = added.ID
	}
	added, _ := f.programs.AddDayExercise(ctx, f.coach, f.d2.ID, f.bench, domain.ExerciseParams{Sets: 5})
	f.items["D"] = added.ID
	return f
}

func (f *fixture) hex(names ...string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = f.items[n].Hex()
	}
	return out
}
