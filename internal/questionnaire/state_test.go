package questionnaire

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"alcyxob/coach-app/internal/aigen"
)

var today = time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

func TestNavigationIsBounded(t *testing.T) {
	s := New(today)
	s.Prev()
	if s.Step != 0 {
		t.Fatalf("expected step 0, was: %d", s.Step)
	}
	for range 10 {
		s.Next()
	}
	if s.Step != TotalSteps-1 {
		t.Fatalf("expected last step, was: %d", s.Step)
	}
	if s.GoTo(TotalSteps) || s.GoTo(-1) {
		t.Errorf("expected out of range steps to be ignored")
	}
	if !s.GoTo(2) || s.Step != 2 {
		t.Errorf("expected step 2, was: %d", s.Step)
	}
}

func TestSetAnswersMergesAnsweredFields(t *testing.T) {
	s := New(today)
	s.SetAnswers(Answers{FitnessLevel: ptr("advanced"), AvailableEquipment: []string{}})
	s.SetAnswers(Answers{DaysPerWeek: ptr(5)})

	if deref(s.Answers.FitnessLevel) != "advanced" || deref(s.Answers.DaysPerWeek) != 5 {
		t.Errorf("merge lost answers: %+v", s.Answers)
	}
	if s.Answers.AvailableEquipment == nil || len(s.Answers.AvailableEquipment) != 0 {
		t.Errorf("expected cleared equipment list, was: %v", s.Answers.AvailableEquipment)
	}
	if deref(s.Answers.SessionDurationMinutes) != 60 {
		t.Errorf("expected default session length kept")
	}
}

func TestBuildRequestDefaultsAndLists(t *testing.T) {
	s := &State{TemplateName: "Hypertrophy base"}
	s.Answers = Answers{
		FitnessLevel:  ptr("intermediate"),
		PrimaryGoal:   ptr("hypertrophy"),
		SpecificGoals: ptr(" bigger arms, ,stronger squat "),
		Injuries:      ptr("knee"),
	}
	req := s.BuildRequest("", today)

	if req.CreationMode != aigen.ModeTemplate || req.TemplateName != "Hypertrophy base" || req.ClientID != "" {
		t.Errorf("unexpected mode fields %q %q %q", req.CreationMode, req.TemplateName, req.ClientID)
	}
	if !reflect.DeepEqual(req.Goals.SpecificGoals, []string{"bigger arms", "stronger squat"}) {
		t.Errorf("unexpected goals %v", req.Goals.SpecificGoals)
	}
	if !reflect.DeepEqual(req.Restrictions.Injuries, []string{"knee"}) {
		t.Errorf("unexpected injuries %v", req.Restrictions.Injuries)
	}
	if req.Availability.DaysPerWeek != 4 || req.Availability.SessionDurationMinutes != 60 {
		t.Errorf("unexpected availability %+v", req.Availability)
	}
	if !req.Equipment.HasGymAccess || !reflect.DeepEqual(req.Equipment.AvailableEquipment, []string{"bodyweight"}) {
		t.Errorf("unexpected equipment %+v", req.Equipment)
	}
	d := req.ProgramDuration
	if d.TotalWeeks != 8 || d.MesocycleWeeks != 4 || !d.IncludeDeload || d.StartDate != "2026-03-02" {
		t.Errorf("unexpected duration %+v", d)
	}
	if err := Validate(req); err != nil {
		t.Errorf("expected valid request, was: %v", err)
	}
}

func TestBuildRequestClientMode(t *testing.T) {
	s := New(today)
	s.SelectClient("c1", "Ana")
	s.TemplateName = "ignored"

	req := s.BuildRequest("", today)
	if req.CreationMode != aigen.ModeClient || req.ClientID != "c1" || req.TemplateName != "" {
		t.Errorf("unexpected client mode request %q %q %q", req.CreationMode, req.ClientID, req.TemplateName)
	}
	req = s.BuildRequest("c2", today)
	if req.ClientID != "c2" {
		t.Errorf("expected override client c2, was: %q", req.ClientID)
	}

	s.SetMode(aigen.ModeTemplate)
	req = s.BuildRequest("", today)
	if req.CreationMode != aigen.ModeTemplate || req.ClientID != "" {
		t.Errorf("expected explicit template mode to win, was: %q %q", req.CreationMode, req.ClientID)
	}
}

func TestValidateReportsMissing(t *testing.T) {
	err := Validate(New(today).BuildRequest("", today))
	if !errors.Is(err, ErrIncomplete) {
		t.Fatalf("expected ErrIncomplete, was: %v", err)
	}
	want := "questionnaire: required answers missing: fitness_level, primary_goal, template_name"
	if err.Error() != want {
		t.Errorf("expected %q, was: %q", want, err.Error())
	}
}

func TestSelectClientClearsValidation(t *testing.T) {
	s := New(today)
	s.Validation = &aigen.InterviewValidation{IsComplete: true}
	s.SelectClient("c1", "Ana")
	if s.Validation != nil {
		t.Errorf("expected validation cleared")
	}
}

func TestApplyInterview(t *testing.T) {
	s := New(today)
	age := 31
	s.ApplyInterview(aigen.InterviewData{
		ClientID:     "c9",
		ClientName:   "Luis",
		UserProfile:  aigen.UserProfile{FitnessLevel: aigen.Beginner, Age: &age},
		Goals:        aigen.Goals{PrimaryGoal: aigen.GoalFatLoss, SpecificGoals: []string{"lose 5kg", "run 5k"}},
		Availability: aigen.Availability{DaysPerWeek: 3, SessionDurationMinutes: 45},
		Equipment:    aigen.Equipment{HasGymAccess: false, AvailableEquipment: []string{"dumbbells"}},
		Restrictions: &aigen.Restrictions{Injuries: []string{"lower_back"}},
	})
	if s.ClientID != "c9" || s.ClientName != "Luis" {
		t.Errorf("expected client selected, was: %q %q", s.ClientID, s.ClientName)
	}
	if deref(s.Answers.SpecificGoals) != "lose 5kg, run 5k" || deref(s.Answers.Injuries) != "lower_back" {
		t.Errorf("unexpected list answers %+v", s.Answers)
	}
	req := s.BuildRequest("", today)
	if req.Equipment.HasGymAccess || req.Availability.DaysPerWeek != 3 || *req.UserProfile.Age != 31 {
		t.Errorf("interview values not carried into request: %+v", req)
	}
}

func TestSnapshotRestoreDropsTransientState(t *testing.T) {
	s := New(today)
	s.SetMode(aigen.ModeClient)
	s.SelectClient("c1", "Ana")
	s.GoTo(3)
	s.Generated = &aigen.Response{Success: true}
	s.Err = "boom"

	other := New(today)
	other.Generated = &aigen.Response{}
	other.Restore(s.Snapshot())

	if other.Step != 3 || other.ClientID != "c1" || other.Mode != aigen.ModeClient {
		t.Errorf("unexpected restore %+v", other)
	}
	if other.Generated != nil || other.Err != "" {
		t.Errorf("expected transient fields cleared")
	}
}
