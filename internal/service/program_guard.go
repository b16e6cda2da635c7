package service

import (
	"alcyxob/coach-app/internal/domain"
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type editorCommitKey struct{}

// WithEditorCommit marks ctx as carrying an editor's own commit. Such reorders and moves are
// written directly: the committing editor is the one whose pending work a guard would wait for.
func WithEditorCommit(ctx context.Context) context.Context {
	return context.WithValue(ctx, editorCommitKey{}, true)
}

func isEditorCommit(ctx context.Context) bool {
	marked, _ := ctx.Value(editorCommitKey{}).(bool)
	return marked
}

// editingPrograms sends every write to stored training days through EditorService.Guard, so an
// open board is refreshed after the write and never renumbered under a pending commit.
type editingPrograms struct {
	ProgramService
	editors EditorService
}

// NewEditingProgramService wraps programs for handlers that share storage with open editors.
// The editor service itself keeps using the unwrapped programs.
func NewEditingProgramService(programs ProgramService, editors EditorService) ProgramService {
	return &editingPrograms{ProgramService: programs, editors: editors}
}

func (p *editingPrograms) DeleteMesocycle(ctx context.Context, coachID, mesoID primitive.ObjectID) error {
	return p.editors.Guard(ctx, coachID, mesoID, func() error {
		return p.ProgramService.DeleteMesocycle(ctx, coachID, mesoID)
	})
}

func (p *editingPrograms) CreateTrainingDay(ctx context.Context, coachID, mesoID primitive.ObjectID, in TrainingDayInput) (*domain.TrainingDay, error) {
	var day *domain.TrainingDay
	err := p.editors.Guard(ctx, coachID, mesoID, func() error {
		var err error
		day, err = p.ProgramService.CreateTrainingDay(ctx, coachID, mesoID, in)
		return err
	})
	return day, err
}

func (p *editingPrograms) AddDayExercise(ctx context.Context, coachID, dayID, exerciseID primitive.ObjectID, params domain.ExerciseParams) (*domain.DayExercise, error) {
	var added *domain.DayExercise
	err := p.onDay(ctx, coachID, dayID, func() error {
		var err error
		added, err = p.ProgramService.AddDayExercise(ctx, coachID, dayID, exerciseID, params)
		return err
	})
	return added, err
}

func (p *editingPrograms) UpdateDayExercise(ctx context.Context, coachID, dayID, itemID primitive.ObjectID, params domain.ExerciseParams) error {
	return p.onDay(ctx, coachID, dayID, func() error {
		return p.ProgramService.UpdateDayExercise(ctx, coachID, dayID, itemID, params)
	})
}

func (p *editingPrograms) RemoveDayExercise(ctx context.Context, coachID, dayID, itemID primitive.ObjectID) error {
	return p.onDay(ctx, coachID, dayID, func() error {
		return p.ProgramService.RemoveDayExercise(ctx, coachID, dayID, itemID)
	})
}

func (p *editingPrograms) ReorderDayExercises(ctx context.Context, coachID, dayID primitive.ObjectID, orderedIDs []primitive.ObjectID) error {
	if isEditorCommit(ctx) {
		return p.ProgramService.ReorderDayExercises(ctx, coachID, dayID, orderedIDs)
	}
	return p.onDay(ctx, coachID, dayID, func() error {
		return p.ProgramService.ReorderDayExercises(ctx, coachID, dayID, orderedIDs)
	})
}

// MoveDayExercise is guarded by the source day's mesocycle; storage refuses moves across mesocycles.
func (p *editingPrograms) MoveDayExercise(ctx context.Context, coachID, itemID, fromDayID, toDayID primitive.ObjectID, index int) error {
	if isEditorCommit(ctx) {
		return p.ProgramService.MoveDayExercise(ctx, coachID, itemID, fromDayID, toDayID, index)
	}
	return p.onDay(ctx, coachID, fromDayID, func() error {
		return p.ProgramService.MoveDayExercise(ctx, coachID, itemID, fromDayID, toDayID, index)
	})
}

func (p *editingPrograms) onDay(ctx context.Context, coachID, dayID primitive.ObjectID, change func() error) error {
	day, err := p.ProgramService.GetTrainingDay(ctx, coachID, dayID)
	if err != nil {
		return err
	}
	return p.editors.Guard(ctx, coachID, day.MesocycleID, change)
}
