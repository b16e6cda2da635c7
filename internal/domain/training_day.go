// internal/domain/training_day.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EffortType is the scale used to prescribe effort for a day exercise.
type EffortType string

const (
	EffortRIR        EffortType = "RIR"
	EffortRPE        EffortType = "RPE"
	EffortPercentage EffortType = "percentage"
)

// TrainingDay is one session of a microcycle and the container of its day exercises.
type TrainingDay struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	MesocycleID  primitive.ObjectID `bson:"mesocycleId" json:"mesocycleId"`
	MicrocycleID primitive.ObjectID `bson:"microcycleId" json:"microcycleId"` // Parent week
	CoachID      primitive.ObjectID `bson:"coachId" json:"coachId"`           // Denormalized for ownership checks
	DayNumber    int                `bson:"dayNumber" json:"dayNumber"`
	Name         string             `bson:"name,omitempty" json:"name,omitempty"`
	Focus        string             `bson:"focus,omitempty" json:"focus,omitempty"`
	RestDay      bool               `bson:"restDay" json:"restDay"`
	Notes        string             `bson:"notes,omitempty" json:"notes,omitempty"`
	Exercises    []DayExercise      `bson:"exercises" json:"exercises"` // Stored order is not authoritative, OrderIndex is
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
	Version      int64              `bson:"version" json:"version"` // Bumped by every exercise write
}

// DayExercise places a catalog exercise into a training day.
type DayExercise struct {
	ID         primitive.ObjectID `bson:"_id" json:"id"`
	ExerciseID primitive.ObjectID `bson:"exerciseId" json:"exerciseId"` // Catalog entry, owned by the exercise library
	OrderIndex int                `bson:"orderIndex" json:"orderIndex"`
	Params     ExerciseParams     `bson:"params" json:"params"`
}

// ExerciseParams are the per-instance prescription values. The reorder code never reads them.
type ExerciseParams struct {
	Sets        int        `bson:"sets" json:"sets"`
	RepsMin     int        `bson:"repsMin" json:"repsMin"`
	RepsMax     int        `bson:"repsMax" json:"repsMax"`
	RestSeconds int        `bson:"restSeconds" json:"restSeconds"`
	EffortType  EffortType `bson:"effortType,omitempty" json:"effortType,omitempty"`
	EffortValue *float64   `bson:"effortValue,omitempty" json:"effortValue,omitempty"`
	Tempo       string     `bson:"tempo,omitempty" json:"tempo,omitempty"`
	Notes       string     `bson:"notes,omitempty" json:"notes,omitempty"`
}

// ItemID returns the stable identity used by the reordering code.
func (e DayExercise) ItemID() string { return e.ID.Hex() }

// Position returns the order index within the owning day.
func (e DayExercise) Position() int { return e.OrderIndex }

// WithPosition returns a copy placed at index i.
func (e DayExercise) WithPosition(i int) DayExercise {
	e.OrderIndex = i
	return e
}
