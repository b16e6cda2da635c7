package repository

import (
	"alcyxob/coach-app/internal/domain" // Import our defined domain models
	"context"                           // Standard for request-scoped deadlines, cancellation signals, etc.

	"go.mongodb.org/mongo-driver/bson/primitive" // For using ObjectIDs
)

// Error constants for repository layer
var (
	ErrNotFound     = RepositoryError("not found")
	ErrUpdateFailed = RepositoryError("update failed")
	ErrDeleteFailed = RepositoryError("delete failed")
	ErrDuplicate    = RepositoryError("already exists")
	ErrConflict     = RepositoryError("conflicting update") // Stored state no longer matches the request
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
	GetClientsByCoachID(ctx context.Context, coachID primitive.ObjectID) ([]domain.User, error)
	SetCoachForClient(ctx context.Context, clientID, coachID primitive.ObjectID) error
}

// ExerciseRepository defines the interface for interacting with the exercise catalog.
type ExerciseRepository interface {
	Create(ctx context.Context, exercise *domain.Exercise) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Exercise, error)
	GetByCoachID(ctx context.Context, coachID primitive.ObjectID) ([]domain.Exercise, error)
	Update(ctx context.Context, exercise *domain.Exercise) error
	SetVideoObjectKey(ctx context.Context, id, coachID primitive.ObjectID, objectKey string) error
	Delete(ctx context.Context, id primitive.ObjectID, coachID primitive.ObjectID) error // Ensure coach owns the exercise
}

// MesocycleRepository defines the interface for interacting with mesocycle data.
type MesocycleRepository interface {
	Create(ctx context.Context, meso *domain.Mesocycle) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Mesocycle, error)
	GetByCoachID(ctx context.Context, coachID primitive.ObjectID) ([]domain.Mesocycle, error)
	Delete(ctx context.Context, id primitive.ObjectID, coachID primitive.ObjectID) error
}

// TrainingDayRepository defines the interface for training days and the day exercises embedded in them.
type TrainingDayRepository interface {
	Create(ctx context.Context, day *domain.TrainingDay) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.TrainingDay, error)
	GetByMesocycleID(ctx context.Context, mesocycleID primitive.ObjectID) ([]domain.TrainingDay, error)
	DeleteByMesocycleID(ctx context.Context, mesocycleID primitive.ObjectID) error

	// Day exercise edits. Order indexes are renumbered 0..n-1 by every call.
	AddExercise(ctx context.Context, dayID primitive.ObjectID, exercise domain.DayExercise) (*domain.DayExercise, error)
	UpdateExerciseParams(ctx context.Context, dayID, itemID primitive.ObjectID, params domain.ExerciseParams) error
	RemoveExercise(ctx context.Context, dayID, itemID primitive.ObjectID) error

	// ReorderExercises stores a permutation of the day's exercises. Unknown or missing ids are ErrConflict.
	ReorderExercises(ctx context.Context, dayID primitive.ObjectID, orderedIDs []primitive.ObjectID) error
	// MoveExercise moves one exercise across days; both days are written or neither.
	MoveExercise(ctx context.Context, itemID, fromDayID, toDayID primitive.ObjectID, index int) error
}
