package questionnaire

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"alcyxob/coach-app/internal/aigen"
)

// TotalSteps is the number of questionnaire pages.
const TotalSteps = 6

// Steps names the questionnaire pages in order.
var Steps = [TotalSteps]string{"profile", "goals", "availability", "equipment", "restrictions", "preferences"}

var ErrIncomplete = errors.New("questionnaire: required answers missing")

// Snapshot is the part of the state kept across sessions. Generated programs and errors are
// transient and never stored.
type Snapshot struct {
	Answers      Answers            `json:"answers"`
	Mode         aigen.CreationMode `json:"creation_mode,omitempty"`
	ClientID     string             `json:"selected_client_id,omitempty"`
	ClientName   string             `json:"selected_client_name,omitempty"`
	TemplateName string             `json:"template_name"`
	Step         int                `json:"current_step"`
}

// Snapshotter stores snapshots per owner (coach).
type Snapshotter interface {
	Save(ctx context.Context, owner string, s Snapshot) error
	// Load reports false when nothing is stored for owner.
	Load(ctx context.Context, owner string) (Snapshot, bool, error)
	Clear(ctx context.Context, owner string) error
}

// State is one coach's questionnaire. It is not safe for concurrent use.
type State struct {
	Mode         aigen.CreationMode         `json:"creation_mode,omitempty"` // empty until chosen
	ClientID     string                     `json:"selected_client_id,omitempty"`
	ClientName   string                     `json:"selected_client_name,omitempty"`
	TemplateName string                     `json:"template_name"`
	Step         int                        `json:"current_step"`
	Answers      Answers                    `json:"answers"`
	Generated    *aigen.Response            `json:"generated,omitempty"`
	Validation   *aigen.InterviewValidation `json:"interview_validation,omitempty"`
	Err          string                     `json:"error,omitempty"`
}

// New returns a blank questionnaire with default answers.
func New(today time.Time) *State {
	return &State{Answers: DefaultAnswers(today)}
}

func (s *State) Next() {
	if s.Step < TotalSteps-1 {
		s.Step++
	}
}

func (s *State) Prev() {
	if s.Step > 0 {
		s.Step--
	}
}

// GoTo jumps to step; out of range steps are ignored. It reports whether the step changed.
func (s *State) GoTo(step int) bool {
	if step < 0 || step >= TotalSteps {
		return false
	}
	s.Step = step
	return true
}

func (s *State) SetAnswers(a Answers) { s.Answers.Merge(a) }

func (s *State) SetMode(mode aigen.CreationMode) { s.Mode = mode }

func (s *State) SetTemplateName(name string) { s.TemplateName = name }

// SelectClient picks the client the program is for. A previous interview check no longer applies.
func (s *State) SelectClient(id, name string) {
	s.ClientID, s.ClientName = id, name
	s.Validation = nil
}

// Reset starts over with default answers.
func (s *State) Reset(today time.Time) {
	*s = State{Answers: DefaultAnswers(today)}
}

// ApplyInterview prefills answers from a client's intake interview and selects that client.
func (s *State) ApplyInterview(d aigen.InterviewData) {
	p := d.UserProfile
	a := Answers{
		FitnessLevel:             ptr(string(p.FitnessLevel)),
		Age:                      p.Age,
		WeightKg:                 p.WeightKg,
		HeightCm:                 p.HeightCm,
		TrainingExperienceMonths: p.TrainingExperienceMonths,
		PrimaryGoal:              ptr(string(d.Goals.PrimaryGoal)),
		SpecificGoals:            ptr(strings.Join(d.Goals.SpecificGoals, ", ")),
		TargetMuscleGroups:       d.Goals.TargetMuscleGroups,
		DaysPerWeek:              ptr(d.Availability.DaysPerWeek),
		SessionDurationMinutes:   ptr(d.Availability.SessionDurationMinutes),
		PreferredDays:            d.Availability.PreferredDays,
		HasGymAccess:             ptr(d.Equipment.HasGymAccess),
		AvailableEquipment:       d.Equipment.AvailableEquipment,
		EquipmentNotes:           ptr(d.Equipment.EquipmentNotes),
		Injuries:                 ptr(""),
		ExcludedExercises:        ptr(""),
		MedicalConditions:        ptr(""),
		MobilityLimitations:      ptr(""),
	}
	if p.Gender != "" {
		a.Gender = ptr(p.Gender)
	}
	if r := d.Restrictions; r != nil {
		a.Injuries = ptr(strings.Join(r.Injuries, ", "))
		a.ExcludedExercises = ptr(strings.Join(r.ExcludedExercises, ", "))
		a.MedicalConditions = ptr(strings.Join(r.MedicalConditions, ", "))
		a.MobilityLimitations = ptr(r.MobilityLimitations)
	}
	s.Answers.Merge(a)
	s.ClientID, s.ClientName = d.ClientID, d.ClientName
}

// EffectiveMode is the chosen mode, or client when a client is given, else template.
func (s *State) EffectiveMode(clientID string) aigen.CreationMode {
	switch {
	case s.Mode != "":
		return s.Mode
	case clientID != "":
		return aigen.ModeClient
	}
	return aigen.ModeTemplate
}

// BuildRequest converts the answers into a generation request. clientID overrides the selected
// client when not empty. Missing values fall back to the questionnaire defaults.
func (s *State) BuildRequest(clientID string, today time.Time) aigen.Request {
	if clientID == "" {
		clientID = s.ClientID
	}
	a := s.Answers
	mode := s.EffectiveMode(clientID)

	equipment := a.AvailableEquipment
	if equipment == nil {
		equipment = []string{"bodyweight"}
	}
	startDate := deref(a.StartDate)
	if startDate == "" {
		startDate = today.Format(dateLayout)
	}

	req := aigen.Request{
		UserProfile: aigen.UserProfile{
			FitnessLevel:             aigen.FitnessLevel(deref(a.FitnessLevel)),
			Age:                      a.Age,
			WeightKg:                 a.WeightKg,
			HeightCm:                 a.HeightCm,
			Gender:                   deref(a.Gender),
			TrainingExperienceMonths: a.TrainingExperienceMonths,
		},
		Goals: aigen.Goals{
			PrimaryGoal:        aigen.PrimaryGoal(deref(a.PrimaryGoal)),
			SpecificGoals:      splitList(a.SpecificGoals),
			TargetMuscleGroups: a.TargetMuscleGroups,
		},
		Availability: aigen.Availability{
			DaysPerWeek:            orDefault(deref(a.DaysPerWeek), 4),
			SessionDurationMinutes: orDefault(deref(a.SessionDurationMinutes), 60),
			PreferredDays:          a.PreferredDays,
		},
		Equipment: aigen.Equipment{
			HasGymAccess:       a.HasGymAccess == nil || *a.HasGymAccess,
			AvailableEquipment: equipment,
			EquipmentNotes:     deref(a.EquipmentNotes),
		},
		Restrictions: &aigen.Restrictions{
			Injuries:            splitList(a.Injuries),
			ExcludedExercises:   splitList(a.ExcludedExercises),
			MedicalConditions:   splitList(a.MedicalConditions),
			MobilityLimitations: deref(a.MobilityLimitations),
		},
		Preferences: &aigen.Preferences{
			ExerciseVariety:        deref(a.ExerciseVariety),
			IncludeCardio:          a.IncludeCardio,
			IncludeWarmup:          a.IncludeWarmup,
			PreferredTrainingStyle: deref(a.PreferredTrainingStyle),
		},
		ProgramDuration: aigen.ProgramDuration{
			TotalWeeks:     orDefault(deref(a.TotalWeeks), 8),
			MesocycleWeeks: orDefault(deref(a.MesocycleWeeks), 4),
			IncludeDeload:  a.IncludeDeload == nil || *a.IncludeDeload,
			StartDate:      startDate,
		},
		CreationMode: mode,
	}
	switch mode {
	case aigen.ModeClient:
		req.ClientID = clientID
	case aigen.ModeTemplate:
		req.TemplateName = s.TemplateName
	}
	return req
}

// Validate checks that req has what the generator needs.
func Validate(req aigen.Request) error {
	var missing []string
	if req.UserProfile.FitnessLevel == "" {
		missing = append(missing, "fitness_level")
	}
	if req.Goals.PrimaryGoal == "" {
		missing = append(missing, "primary_goal")
	}
	switch req.CreationMode {
	case aigen.ModeClient:
		if req.ClientID == "" {
			missing = append(missing, "client_id")
		}
	case aigen.ModeTemplate:
		if strings.TrimSpace(req.TemplateName) == "" {
			missing = append(missing, "template_name")
		}
	default:
		missing = append(missing, "creation_mode")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrIncomplete, strings.Join(missing, ", "))
	}
	return nil
}

// Snapshot returns the persistent part of the state.
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		Answers:      s.Answers,
		Mode:         s.Mode,
		ClientID:     s.ClientID,
		ClientName:   s.ClientName,
		TemplateName: s.TemplateName,
		Step:         s.Step,
	}
}

// Restore replaces the persistent part of the state. Transient fields are cleared.
func (s *State) Restore(snap Snapshot) {
	*s = State{
		Mode:         snap.Mode,
		ClientID:     snap.ClientID,
		ClientName:   snap.ClientName,
		TemplateName: snap.TemplateName,
		Step:         min(max(snap.Step, 0), TotalSteps-1),
		Answers:      snap.Answers,
	}
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
