// Package aigen talks to the program generation service that turns questionnaire answers into a
// macrocycle of mesocycles, microcycles and training days.
package aigen

type FitnessLevel string

const (
	Beginner     FitnessLevel = "beginner"
	Intermediate FitnessLevel = "intermediate"
	Advanced     FitnessLevel = "advanced"
)

type PrimaryGoal string

const (
	GoalHypertrophy    PrimaryGoal = "hypertrophy"
	GoalStrength       PrimaryGoal = "strength"
	GoalPower          PrimaryGoal = "power"
	GoalEndurance      PrimaryGoal = "endurance"
	GoalFatLoss        PrimaryGoal = "fat_loss"
	GoalGeneralFitness PrimaryGoal = "general_fitness"
)

type CreationMode string

const (
	ModeTemplate CreationMode = "template"
	ModeClient   CreationMode = "client"
)

type UserProfile struct {
	FitnessLevel             FitnessLevel `json:"fitness_level"`
	Age                      *int         `json:"age,omitempty"`
	WeightKg                 *float64     `json:"weight_kg,omitempty"`
	HeightCm                 *float64     `json:"height_cm,omitempty"`
	Gender                   string       `json:"gender,omitempty"`
	TrainingExperienceMonths *int         `json:"training_experience_months,omitempty"`
}

type Goals struct {
	PrimaryGoal        PrimaryGoal `json:"primary_goal"`
	SpecificGoals      []string    `json:"specific_goals,omitempty"`
	TargetMuscleGroups []string    `json:"target_muscle_groups,omitempty"`
}

type Availability struct {
	DaysPerWeek            int   `json:"days_per_week"`
	SessionDurationMinutes int   `json:"session_duration_minutes"`
	PreferredDays          []int `json:"preferred_days,omitempty"`
}

type Equipment struct {
	HasGymAccess       bool     `json:"has_gym_access"`
	AvailableEquipment []string `json:"available_equipment"`
	EquipmentNotes     string   `json:"equipment_notes,omitempty"`
}

type Restrictions struct {
	Injuries            []string `json:"injuries,omitempty"`
	ExcludedExercises   []string `json:"excluded_exercises,omitempty"`
	MedicalConditions   []string `json:"medical_conditions,omitempty"`
	MobilityLimitations string   `json:"mobility_limitations,omitempty"`
}

type Preferences struct {
	ExerciseVariety        string `json:"exercise_variety,omitempty"`
	IncludeCardio          *bool  `json:"include_cardio,omitempty"`
	IncludeWarmup          *bool  `json:"include_warmup,omitempty"`
	IncludeCooldown        bool   `json:"include_cooldown"`
	PreferredTrainingStyle string `json:"preferred_training_style,omitempty"`
}

type ProgramDuration struct {
	TotalWeeks     int    `json:"total_weeks"`
	MesocycleWeeks int    `json:"mesocycle_weeks"`
	IncludeDeload  bool   `json:"include_deload"`
	StartDate      string `json:"start_date"` // YYYY-MM-DD
}

// Request asks for a generated program.
type Request struct {
	UserProfile     UserProfile     `json:"user_profile"`
	Goals           Goals           `json:"goals"`
	Availability    Availability    `json:"availability"`
	Equipment       Equipment       `json:"equipment"`
	Restrictions    *Restrictions   `json:"restrictions,omitempty"`
	Preferences     *Preferences    `json:"preferences,omitempty"`
	ProgramDuration ProgramDuration `json:"program_duration"`

	CreationMode    CreationMode `json:"creation_mode"`
	ClientID        string       `json:"client_id,omitempty"`     // set in client mode
	TemplateName    string       `json:"template_name,omitempty"` // set in template mode
	AdditionalNotes string       `json:"additional_notes,omitempty"`
}

type DayExercise struct {
	ExerciseID   string  `json:"exercise_id"`
	ExerciseName string  `json:"exercise_name"`
	OrderIndex   int     `json:"order_index"`
	Sets         int     `json:"sets"`
	RepsMin      int     `json:"reps_min"`
	RepsMax      int     `json:"reps_max"`
	RestSeconds  int     `json:"rest_seconds"`
	EffortType   string  `json:"effort_type"`
	EffortValue  float64 `json:"effort_value"`
	Tempo        string  `json:"tempo,omitempty"`
	Notes        string  `json:"notes,omitempty"`
}

type TrainingDay struct {
	DayNumber     int           `json:"day_number"`
	Name          string        `json:"name"`
	Focus         string        `json:"focus"`
	RestDay       bool          `json:"rest_day"`
	Exercises     []DayExercise `json:"exercises"`
	WarmupNotes   string        `json:"warmup_notes,omitempty"`
	CooldownNotes string        `json:"cooldown_notes,omitempty"`
}

type Microcycle struct {
	WeekNumber     int           `json:"week_number"`
	Name           string        `json:"name"`
	IntensityLevel string        `json:"intensity_level"`
	TrainingDays   []TrainingDay `json:"training_days"`
	WeeklyNotes    string        `json:"weekly_notes,omitempty"`
}

type Mesocycle struct {
	BlockNumber int          `json:"block_number"`
	Name        string       `json:"name"`
	Focus       string       `json:"focus"`
	Description string       `json:"description,omitempty"`
	Microcycles []Microcycle `json:"microcycles"`
}

type Macrocycle struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Objective   string      `json:"objective"`
	Mesocycles  []Mesocycle `json:"mesocycles"`
}

type Explanation struct {
	Rationale           string   `json:"rationale"`
	ProgressionStrategy string   `json:"progression_strategy"`
	DeloadStrategy      string   `json:"deload_strategy,omitempty"`
	VolumeDistribution  string   `json:"volume_distribution"`
	Tips                []string `json:"tips"`
}

// Response is the outcome of a generation call. Success false carries Error.
type Response struct {
	Success     bool         `json:"success"`
	Macrocycle  *Macrocycle  `json:"macrocycle,omitempty"`
	Explanation *Explanation `json:"explanation,omitempty"`
	Warnings    []string     `json:"warnings"`
	Error       string       `json:"error,omitempty"`
}

// InterviewValidation tells whether a client's intake interview is complete enough to generate from.
type InterviewValidation struct {
	IsComplete    bool     `json:"is_complete"`
	MissingFields []string `json:"missing_fields"`
	HasInterview  bool     `json:"has_interview"`
	ClientName    string   `json:"client_name,omitempty"`
}

// InterviewData is a client's intake interview in request shape.
type InterviewData struct {
	ClientID     string        `json:"client_id"`
	ClientName   string        `json:"client_name"`
	UserProfile  UserProfile   `json:"user_profile"`
	Goals        Goals         `json:"goals"`
	Availability Availability  `json:"availability"`
	Equipment    Equipment     `json:"equipment"`
	Restrictions *Restrictions `json:"restrictions,omitempty"`
}
