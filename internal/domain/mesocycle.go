// internal/domain/mesocycle.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IntensityLevel describes the load of a microcycle (training week).
type IntensityLevel string

const (
	IntensityLow    IntensityLevel = "low"
	IntensityMedium IntensityLevel = "medium"
	IntensityHigh   IntensityLevel = "high"
	IntensityDeload IntensityLevel = "deload"
)

// Mesocycle is a training block built by a coach, either for a client or as a reusable template.
type Mesocycle struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	CoachID     primitive.ObjectID  `bson:"coachId" json:"coachId"`                       // Owner of the block
	ClientID    *primitive.ObjectID `bson:"clientId,omitempty" json:"clientId,omitempty"` // nil for templates
	Name        string              `bson:"name" json:"name"`                             // e.g., "Block 1: Accumulation"
	Focus       string              `bson:"focus,omitempty" json:"focus,omitempty"`
	Description string              `bson:"description,omitempty" json:"description,omitempty"`
	BlockNumber int                 `bson:"blockNumber" json:"blockNumber"`
	StartDate   *time.Time          `bson:"startDate,omitempty" json:"startDate,omitempty"`
	Microcycles []Microcycle        `bson:"microcycles" json:"microcycles"`
	CreatedAt   time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// Microcycle is one week of a mesocycle. Its training days live in their own collection.
type Microcycle struct {
	ID             primitive.ObjectID `bson:"_id" json:"id"`
	WeekNumber     int                `bson:"weekNumber" json:"weekNumber"`
	Name           string             `bson:"name" json:"name"`
	IntensityLevel IntensityLevel     `bson:"intensityLevel,omitempty" json:"intensityLevel,omitempty"`
	Notes          string             `bson:"notes,omitempty" json:"notes,omitempty"`
}

// IsTemplate reports whether the block is not bound to a client.
func (m *Mesocycle) IsTemplate() bool {
	return m.ClientID == nil || *m.ClientID == primitive.NilObjectID
}

// HasMicrocycle reports whether id names one of the block's weeks.
func (m *Mesocycle) HasMicrocycle(id primitive.ObjectID) bool {
	for _, mc := range m.Microcycles {
		if mc.ID == id {
			return true
		}
	}
	return false
}
