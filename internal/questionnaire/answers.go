// Package questionnaire keeps the state of the program generation questionnaire a coach fills in
// and turns its answers into a generation request.
package questionnaire

import (
	"reflect"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Answers holds what the coach entered. Nil means "not answered"; list-like free text
// (specific goals, injuries...) is kept comma separated as typed.
type Answers struct {
	// Profile
	FitnessLevel             *string  `json:"fitness_level,omitempty"`
	Age                      *int     `json:"age,omitempty"`
	Gender                   *string  `json:"gender,omitempty"`
	WeightKg                 *float64 `json:"weight_kg,omitempty"`
	HeightCm                 *float64 `json:"height_cm,omitempty"`
	TrainingExperienceMonths *int     `json:"training_experience_months,omitempty"`

	// Goals
	PrimaryGoal        *string  `json:"primary_goal,omitempty"`
	SpecificGoals      *string  `json:"specific_goals,omitempty"`
	TargetMuscleGroups []string `json:"target_muscle_groups,omitempty"`

	// Availability
	DaysPerWeek            *int  `json:"days_per_week,omitempty"`
	SessionDurationMinutes *int  `json:"session_duration_minutes,omitempty"`
	PreferredDays          []int `json:"preferred_days,omitempty"`

	// Equipment
	HasGymAccess       *bool    `json:"has_gym_access,omitempty"`
	AvailableEquipment []string `json:"available_equipment,omitempty"`
	EquipmentNotes     *string  `json:"equipment_notes,omitempty"`

	// Restrictions
	Injuries            *string `json:"injuries,omitempty"`
	ExcludedExercises   *string `json:"excluded_exercises,omitempty"`
	MedicalConditions   *string `json:"medical_conditions,omitempty"`
	MobilityLimitations *string `json:"mobility_limitations,omitempty"`

	// Preferences
	ExerciseVariety        *string `json:"exercise_variety,omitempty"`
	IncludeCardio          *bool   `json:"include_cardio,omitempty"`
	IncludeWarmup          *bool   `json:"include_warmup,omitempty"`
	PreferredTrainingStyle *string `json:"preferred_training_style,omitempty"`

	// Duration
	TotalWeeks     *int    `json:"total_weeks,omitempty"`
	MesocycleWeeks *int    `json:"mesocycle_weeks,omitempty"`
	IncludeDeload  *bool   `json:"include_deload,omitempty"`
	StartDate      *string `json:"start_date,omitempty"` // YYYY-MM-DD
}

// DefaultAnswers is the form a new questionnaire starts from.
func DefaultAnswers(today time.Time) Answers {
	return Answers{
		SpecificGoals:          ptr(""),
		TargetMuscleGroups:     []string{},
		DaysPerWeek:            ptr(4),
		SessionDurationMinutes: ptr(60),
		PreferredDays:          []int{},
		HasGymAccess:           ptr(true),
		AvailableEquipment:     []string{"bodyweight"},
		EquipmentNotes:         ptr(""),
		Injuries:               ptr(""),
		ExcludedExercises:      ptr(""),
		MedicalConditions:      ptr(""),
		MobilityLimitations:    ptr(""),
		ExerciseVariety:        ptr("medium"),
		IncludeCardio:          ptr(false),
		IncludeWarmup:          ptr(true),
		PreferredTrainingStyle: ptr(""),
		TotalWeeks:             ptr(8),
		MesocycleWeeks:         ptr(4),
		IncludeDeload:          ptr(true),
		StartDate:              ptr(today.Format(dateLayout)),
	}
}

// Merge copies every answered field of in over a. Empty but non-nil lists count as answered.
func (a *Answers) Merge(in Answers) {
	dst := reflect.ValueOf(a).Elem()
	src := reflect.ValueOf(in)
	for i := 0; i < src.NumField(); i++ {
		f := src.Field(i)
		if (f.Kind() == reflect.Pointer || f.Kind() == reflect.Slice) && !f.IsNil() {
			dst.Field(i).Set(f)
		}
	}
}

func ptr[T any](v T) *T { return &v }

func deref[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}

// splitList turns "a, b,,c" into [a b c].
func splitList(p *string) []string {
	var out []string
	for _, part := range strings.Split(deref(p), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
