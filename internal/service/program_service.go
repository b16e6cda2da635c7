package service

import (
	"alcyxob/coach-app/internal/aigen"
	"alcyxob/coach-app/internal/board"
	"alcyxob/coach-app/internal/domain"
	"alcyxob/coach-app/internal/export"
	"alcyxob/coach-app/internal/repository"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

// --- Error Definitions ---
var (
	ErrClientNotFound          = errors.New("client user not found")
	ErrClientNotRole           = errors.New("user found but is not a client")
	ErrClientAlreadyAssigned   = errors.New("client is already assigned to a coach")
	ErrClientNotManaged        = errors.New("client is not managed by this coach")
	ErrMesocycleNotFound       = errors.New("mesocycle not found")
	ErrMesocycleAccessDenied   = errors.New("access denied to this mesocycle")
	ErrMicrocycleNotFound      = errors.New("microcycle not found in mesocycle")
	ErrTrainingDayNotFound     = errors.New("training day not found")
	ErrTrainingDayAccessDenied = errors.New("access denied to this training day")
	ErrDayExerciseNotFound     = errors.New("exercise not found in training day")
	ErrOrderConflict           = errors.New("stored order changed, reload and retry")
	ErrEmptyProgram            = errors.New("generated program has no mesocycles")
)

// MesocycleInput carries the fields of a new mesocycle. Weeks are created empty.
type MesocycleInput struct {
	Name        string
	Focus       string
	Description string
	BlockNumber int
	ClientID    *primitive.ObjectID
	StartDate   *time.Time
	Microcycles []domain.Microcycle
}

// TrainingDayInput carries the fields of a new training day.
type TrainingDayInput struct {
	MicrocycleID primitive.ObjectID
	DayNumber    int
	Name         string
	Focus        string
	RestDay      bool
	Notes        string
}

// --- Service Interface ---
type ProgramService interface {
	// Client Management
	AddClientByEmail(ctx context.Context, coachID primitive.ObjectID, clientEmail string) (*domain.User, error)
	GetManagedClients(ctx context.Context, coachID primitive.ObjectID) ([]domain.User, error)

	// Mesocycles and training days
	CreateMesocycle(ctx context.Context, coachID primitive.ObjectID, in MesocycleInput) (*domain.Mesocycle, error)
	GetMesocycles(ctx context.Context, coachID primitive.ObjectID) ([]domain.Mesocycle, error)
	GetMesocycle(ctx context.Context, coachID, mesoID primitive.ObjectID) (*domain.Mesocycle, error)
	DeleteMesocycle(ctx context.Context, coachID, mesoID primitive.ObjectID) error
	CreateTrainingDay(ctx context.Context, coachID, mesoID primitive.ObjectID, in TrainingDayInput) (*domain.TrainingDay, error)
	GetTrainingDay(ctx context.Context, coachID, dayID primitive.ObjectID) (*domain.TrainingDay, error)

	// Day exercises
	AddDayExercise(ctx context.Context, coachID, dayID, exerciseID primitive.ObjectID, params domain.ExerciseParams) (*domain.DayExercise, error)
	UpdateDayExercise(ctx context.Context, coachID, dayID, itemID primitive.ObjectID, params domain.ExerciseParams) error
	RemoveDayExercise(ctx context.Context, coachID, dayID, itemID primitive.ObjectID) error
	ReorderDayExercises(ctx context.Context, coachID, dayID primitive.ObjectID, orderedIDs []primitive.ObjectID) error
	MoveDayExercise(ctx context.Context, coachID, itemID, fromDayID, toDayID primitive.ObjectID, index int) error

	// LoadBoard returns the mesocycle and its training days grouped by microcycle id.
	LoadBoard(ctx context.Context, coachID, mesoID primitive.ObjectID) (*domain.Mesocycle, map[string][]domain.TrainingDay, error)
	// ExportMesocycle renders the stored mesocycle as a workbook. The caller closes it.
	ExportMesocycle(ctx context.Context, coachID, mesoID primitive.ObjectID) (*excelize.File, *domain.Mesocycle, error)

	// ImportMacrocycle stores a generated program and returns the created mesocycles.
	ImportMacrocycle(ctx context.Context, coachID primitive.ObjectID, clientID *primitive.ObjectID, macro *aigen.Macrocycle, startDate *time.Time) ([]domain.Mesocycle, error)
}

// --- Service Implementation ---

// programService implements the ProgramService interface.
type programService struct {
	userRepo     repository.UserRepository
	exerciseRepo repository.ExerciseRepository
	mesoRepo     repository.MesocycleRepository
	dayRepo      repository.TrainingDayRepository
}

// NewProgramService creates a new instance of programService.
func NewProgramService(
	userRepo repository.UserRepository,
	exerciseRepo repository.ExerciseRepository,
	mesoRepo repository.MesocycleRepository,
	dayRepo repository.TrainingDayRepository,
) ProgramService {
	return &programService{
		userRepo:     userRepo,
		exerciseRepo: exerciseRepo,
		mesoRepo:     mesoRepo,
		dayRepo:      dayRepo,
	}
}

// === Client Management ===

// AddClientByEmail finds a client by email and assigns them to the coach.
func (s *programService) AddClientByEmail(ctx context.Context, coachID primitive.ObjectID, clientEmail string) (*domain.User, error) {
	// 1. Validate Input
	if coachID == primitive.NilObjectID || clientEmail == "" {
		return nil, errors.New("coach ID and client email are required")
	}

	// 2. Find the potential client user
	client, err := s.userRepo.GetByEmail(ctx, clientEmail)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}

	// 3. Verify the user is actually a client
	if client.Role != domain.RoleClient {
		return nil, ErrClientNotRole
	}

	// 4. Already managed by this coach is fine, by another one is not
	if client.CoachID != nil && *client.CoachID != primitive.NilObjectID {
		if *client.CoachID == coachID {
			client.PasswordHash = ""
			return client, nil
		}
		return nil, ErrClientAlreadyAssigned
	}

	// 5. Link client to coach
	if err := s.userRepo.SetCoachForClient(ctx, client.ID, coachID); err != nil {
		return nil, err
	}
	client.CoachID = &coachID
	client.PasswordHash = ""
	return client, nil
}

// GetManagedClients retrieves the list of clients managed by the coach.
func (s *programService) GetManagedClients(ctx context.Context, coachID primitive.ObjectID) ([]domain.User, error) {
	if coachID == primitive.NilObjectID {
		return nil, errors.New("coach ID is required")
	}
	clients, err := s.userRepo.GetClientsByCoachID(ctx, coachID)
	if err != nil {
		return nil, err
	}
	for i := range clients {
		clients[i].PasswordHash = ""
	}
	return clients, nil
}

// === Mesocycles and Training Days ===

// CreateMesocycle stores a new mesocycle, optionally bound to one of the coach's clients.
func (s *programService) CreateMesocycle(ctx context.Context, coachID primitive.ObjectID, in MesocycleInput) (*domain.Mesocycle, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, errors.New("mesocycle name is required")
	}
	if in.ClientID != nil {
		if err := s.checkClient(ctx, coachID, *in.ClientID); err != nil {
			return nil, err
		}
	}

	meso := &domain.Mesocycle{
		CoachID:     coachID,
		ClientID:    in.ClientID,
		Name:        strings.TrimSpace(in.Name),
		Focus:       in.Focus,
		Description: in.Description,
		BlockNumber: in.BlockNumber,
		StartDate:   in.StartDate,
		Microcycles: in.Microcycles,
	}
	mesoID, err := s.mesoRepo.Create(ctx, meso)
	if err != nil {
		return nil, err
	}
	meso.ID = mesoID
	return meso, nil
}

// GetMesocycles lists the coach's mesocycles.
func (s *programService) GetMesocycles(ctx context.Context, coachID primitive.ObjectID) ([]domain.Mesocycle, error) {
	return s.mesoRepo.GetByCoachID(ctx, coachID)
}

// GetMesocycle retrieves a mesocycle owned by the coach.
func (s *programService) GetMesocycle(ctx context.Context, coachID, mesoID primitive.ObjectID) (*domain.Mesocycle, error) {
	meso, err := s.mesoRepo.GetByID(ctx, mesoID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMesocycleNotFound
		}
		return nil, err
	}
	if meso.CoachID != coachID {
		return nil, ErrMesocycleAccessDenied
	}
	return meso, nil
}

// DeleteMesocycle removes a mesocycle together with its training days.
func (s *programService) DeleteMesocycle(ctx context.Context, coachID, mesoID primitive.ObjectID) error {
	if _, err := s.GetMesocycle(ctx, coachID, mesoID); err != nil {
		return err
	}
	// Days first: an orphaned mesocycle can be deleted again, orphaned days cannot be reached.
	if err := s.dayRepo.DeleteByMesocycleID(ctx, mesoID); err != nil {
		return err
	}
	if err := s.mesoRepo.Delete(ctx, mesoID, coachID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrMesocycleNotFound
		}
		return err
	}
	return nil
}

// CreateTrainingDay adds an empty training day to one week of a mesocycle.
func (s *programService) CreateTrainingDay(ctx context.Context, coachID, mesoID primitive.ObjectID, in TrainingDayInput) (*domain.TrainingDay, error) {
	meso, err := s.GetMesocycle(ctx, coachID, mesoID)
	if err != nil {
		return nil, err
	}
	if !meso.HasMicrocycle(in.MicrocycleID) {
		return nil, ErrMicrocycleNotFound
	}

	day := &domain.TrainingDay{
		MesocycleID:  mesoID,
		MicrocycleID: in.MicrocycleID,
		CoachID:      coachID,
		DayNumber:    in.DayNumber,
		Name:         in.Name,
		Focus:        in.Focus,
		RestDay:      in.RestDay,
		Notes:        in.Notes,
		Exercises:    []domain.DayExercise{},
	}
	dayID, err := s.dayRepo.Create(ctx, day)
	if err != nil {
		return nil, err
	}
	day.ID = dayID
	return day, nil
}

// GetTrainingDay retrieves a training day owned by the coach.
func (s *programService) GetTrainingDay(ctx context.Context, coachID, dayID primitive.ObjectID) (*domain.TrainingDay, error) {
	return s.ownedDay(ctx, coachID, dayID)
}

// === Day Exercises ===

// AddDayExercise places a catalog exercise at the end of a training day.
func (s *programService) AddDayExercise(ctx context.Context, coachID, dayID, exerciseID primitive.ObjectID, params domain.ExerciseParams) (*domain.DayExercise, error) {
	if _, err := s.ownedDay(ctx, coachID, dayID); err != nil {
		return nil, err
	}
	exercise, err := s.exerciseRepo.GetByID(ctx, exerciseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExerciseNotFound
		}
		return nil, err
	}
	if exercise.CoachID != coachID {
		return nil, ErrExerciseAccessDenied
	}

	added, err := s.dayRepo.AddExercise(ctx, dayID, domain.DayExercise{ExerciseID: exerciseID, Params: params})
	if err != nil {
		return nil, mapDayError(err)
	}
	return added, nil
}

// UpdateDayExercise replaces the prescription of a day exercise.
func (s *programService) UpdateDayExercise(ctx context.Context, coachID, dayID, itemID primitive.ObjectID, params domain.ExerciseParams) error {
	if _, err := s.ownedDay(ctx, coachID, dayID); err != nil {
		return err
	}
	return mapDayError(s.dayRepo.UpdateExerciseParams(ctx, dayID, itemID, params))
}

// RemoveDayExercise deletes a day exercise; the rest of the day is renumbered.
func (s *programService) RemoveDayExercise(ctx context.Context, coachID, dayID, itemID primitive.ObjectID) error {
	if _, err := s.ownedDay(ctx, coachID, dayID); err != nil {
		return err
	}
	return mapDayError(s.dayRepo.RemoveExercise(ctx, dayID, itemID))
}

// ReorderDayExercises stores a full permutation of a day's exercises.
func (s *programService) ReorderDayExercises(ctx context.Context, coachID, dayID primitive.ObjectID, orderedIDs []primitive.ObjectID) error {
	if _, err := s.ownedDay(ctx, coachID, dayID); err != nil {
		return err
	}
	return mapDayError(s.dayRepo.ReorderExercises(ctx, dayID, orderedIDs))
}

// MoveDayExercise moves one exercise into another day of the same mesocycle.
func (s *programService) MoveDayExercise(ctx context.Context, coachID, itemID, fromDayID, toDayID primitive.ObjectID, index int) error {
	if index < 0 {
		return fmt.Errorf("%w: negative index %d", ErrOrderConflict, index)
	}
	if _, err := s.ownedDay(ctx, coachID, fromDayID); err != nil {
		return err
	}
	if _, err := s.ownedDay(ctx, coachID, toDayID); err != nil {
		return err
	}
	return mapDayError(s.dayRepo.MoveExercise(ctx, itemID, fromDayID, toDayID, index))
}

// === Board ===

// LoadBoard reads the mesocycle and its days concurrently. Every week of the mesocycle is present
// in the mapping, with an empty slice when it has no days yet.
func (s *programService) LoadBoard(ctx context.Context, coachID, mesoID primitive.ObjectID) (*domain.Mesocycle, map[string][]domain.TrainingDay, error) {
	var (
		meso *domain.Mesocycle
		days []domain.TrainingDay
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		meso, err = s.GetMesocycle(gctx, coachID, mesoID)
		return err
	})
	g.Go(func() error {
		var err error
		days, err = s.dayRepo.GetByMesocycleID(gctx, mesoID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	groups := make(map[string][]domain.TrainingDay, len(meso.Microcycles))
	for _, mc := range meso.Microcycles {
		groups[mc.ID.Hex()] = []domain.TrainingDay{}
	}
	for _, day := range days {
		key := day.MicrocycleID.Hex()
		if _, ok := groups[key]; !ok {
			log.Printf("WARN: Training day %s references unknown microcycle %s of mesocycle %s", day.ID.Hex(), key, mesoID.Hex())
		}
		groups[key] = append(groups[key], day)
	}
	return meso, groups, nil
}

func (s *programService) ExportMesocycle(ctx context.Context, coachID, mesoID primitive.ObjectID) (*excelize.File, *domain.Mesocycle, error) {
	meso, groups, err := s.LoadBoard(ctx, coachID, mesoID)
	if err != nil {
		return nil, nil, err
	}
	catalog, err := s.exerciseRepo.GetByCoachID(ctx, coachID)
	if err != nil {
		return nil, nil, err
	}
	names := make(map[string]string, len(catalog))
	for _, ex := range catalog {
		names[ex.ID.Hex()] = ex.Name
	}
	f, err := export.Mesocycle(meso, board.New(groups), names)
	if err != nil {
		log.Printf("ERROR: Failed to export mesocycle %s: %v", mesoID.Hex(), err)
		return nil, nil, fmt.Errorf("export mesocycle: %w", err)
	}
	return f, meso, nil
}

// === Import ===

// ImportMacrocycle turns a generated program into stored mesocycles, weeks and days. Exercises
// whose id is not in the coach's catalog are skipped.
func (s *programService) ImportMacrocycle(ctx context.Context, coachID primitive.ObjectID, clientID *primitive.ObjectID, macro *aigen.Macrocycle, startDate *time.Time) ([]domain.Mesocycle, error) {
	if macro == nil || len(macro.Mesocycles) == 0 {
		return nil, ErrEmptyProgram
	}
	if clientID != nil {
		if err := s.checkClient(ctx, coachID, *clientID); err != nil {
			return nil, err
		}
	}
	catalog, err := s.exerciseRepo.GetByCoachID(ctx, coachID)
	if err != nil {
		return nil, err
	}
	known := make(map[primitive.ObjectID]bool, len(catalog))
	for _, e := range catalog {
		known[e.ID] = true
	}

	created := make([]domain.Mesocycle, 0, len(macro.Mesocycles))
	weekOffset := 0
	for _, gm := range macro.Mesocycles {
		in := MesocycleInput{
			Name:        gm.Name,
			Focus:       gm.Focus,
			Description: gm.Description,
			BlockNumber: gm.BlockNumber,
			ClientID:    clientID,
		}
		if startDate != nil {
			start := startDate.AddDate(0, 0, 7*weekOffset)
			in.StartDate = &start
		}
		for _, gw := range gm.Microcycles {
			in.Microcycles = append(in.Microcycles, domain.Microcycle{
				ID:             primitive.NewObjectID(),
				WeekNumber:     gw.WeekNumber,
				Name:           gw.Name,
				IntensityLevel: domain.IntensityLevel(gw.IntensityLevel),
				Notes:          gw.WeeklyNotes,
			})
		}
		weekOffset += len(gm.Microcycles)

		meso, err := s.CreateMesocycle(ctx, coachID, in)
		if err != nil {
			return created, fmt.Errorf("import block %d: %w", gm.BlockNumber, err)
		}
		for i, gw := range gm.Microcycles {
			for _, gd := range gw.TrainingDays {
				day := importDay(gd, known)
				day.MesocycleID = meso.ID
				day.MicrocycleID = meso.Microcycles[i].ID
				day.CoachID = coachID
				if _, err := s.dayRepo.Create(ctx, day); err != nil {
					return created, fmt.Errorf("import block %d week %d: %w", gm.BlockNumber, gw.WeekNumber, err)
				}
			}
		}
		created = append(created, *meso)
	}
	log.Printf("INFO: Imported %d mesocycles for coach %s", len(created), coachID.Hex())
	return created, nil
}

func importDay(gd aigen.TrainingDay, known map[primitive.ObjectID]bool) *domain.TrainingDay {
	notes := strings.TrimSpace(strings.Join([]string{gd.WarmupNotes, gd.CooldownNotes}, "\n"))
	day := &domain.TrainingDay{
		DayNumber: gd.DayNumber,
		Name:      gd.Name,
		Focus:     gd.Focus,
		RestDay:   gd.RestDay,
		Notes:     notes,
		Exercises: make([]domain.DayExercise, 0, len(gd.Exercises)),
	}
	for _, ge := range gd.Exercises {
		exerciseID, err := primitive.ObjectIDFromHex(ge.ExerciseID)
		if err != nil || !known[exerciseID] {
			log.Printf("WARN: Skipping generated exercise '%s' (%s): not in catalog", ge.ExerciseName, ge.ExerciseID)
			continue
		}
		effort := ge.EffortValue
		day.Exercises = append(day.Exercises, domain.DayExercise{
			ExerciseID: exerciseID,
			OrderIndex: ge.OrderIndex,
			Params: domain.ExerciseParams{
				Sets:        ge.Sets,
				RepsMin:     ge.RepsMin,
				RepsMax:     ge.RepsMax,
				RestSeconds: ge.RestSeconds,
				EffortType:  domain.EffortType(ge.EffortType),
				EffortValue: &effort,
				Tempo:       ge.Tempo,
				Notes:       ge.Notes,
			},
		})
	}
	return day
}

// --- Helpers ---

func (s *programService) checkClient(ctx context.Context, coachID, clientID primitive.ObjectID) error {
	client, err := s.userRepo.GetByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrClientNotFound
		}
		return err
	}
	if client.CoachID == nil || *client.CoachID != coachID {
		return ErrClientNotManaged
	}
	return nil
}

func (s *programService) ownedDay(ctx context.Context, coachID, dayID primitive.ObjectID) (*domain.TrainingDay, error) {
	day, err := s.dayRepo.GetByID(ctx, dayID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTrainingDayNotFound
		}
		return nil, err
	}
	if day.CoachID != coachID {
		return nil, ErrTrainingDayAccessDenied
	}
	return day, nil
}

func mapDayError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrDayExerciseNotFound
	case errors.Is(err, repository.ErrConflict):
		return fmt.Errorf("%w: %v", ErrOrderConflict, err)
	}
	return err
}
