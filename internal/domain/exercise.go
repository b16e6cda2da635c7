// internal/domain/exercise.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Exercise is a catalog entry. Day exercises reference it by ID.
type Exercise struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CoachID     primitive.ObjectID `bson:"coachId" json:"coachId"` // Coach who owns this catalog entry
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`

	MuscleGroup string   `bson:"muscleGroup,omitempty" json:"muscleGroup,omitempty"` // e.g., "chest", "legs"
	Equipment   []string `bson:"equipment,omitempty" json:"equipment,omitempty"`     // e.g., "barbell", "bench"
	Difficulty  string   `bson:"difficulty,omitempty" json:"difficulty,omitempty"`   // "beginner", "intermediate", "advanced"
	Technique   string   `bson:"technique,omitempty" json:"technique,omitempty"`

	// Demo video stored in object storage; the key never leaves the server.
	VideoObjectKey string `bson:"videoObjectKey,omitempty" json:"-"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}
