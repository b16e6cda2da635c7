package export

import (
	"testing"
	"time"

	"alcyxob/coach-app/internal/board"
	"alcyxob/coach-app/internal/domain"

	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMesocycleWorkbook(t *testing.T) {
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	week1 := domain.Microcycle{ID: primitive.NewObjectID(), WeekNumber: 1, Name: "Accumulation", IntensityLevel: domain.IntensityMedium}
	week2 := domain.Microcycle{ID: primitive.NewObjectID(), WeekNumber: 2, IntensityLevel: domain.IntensityDeload}
	meso := &domain.Mesocycle{
		ID:          primitive.NewObjectID(),
		Name:        "Block 1: Base",
		BlockNumber: 1,
		StartDate:   &start,
		Microcycles: []domain.Microcycle{week1, week2},
	}
	squat, row := primitive.NewObjectID(), primitive.NewObjectID()
	rpe := 8.0
	day := domain.TrainingDay{
		ID: primitive.NewObjectID(), MicrocycleID: week1.ID, DayNumber: 3, Name: "Lower", Focus: "strength",
		Exercises: []domain.DayExercise{
			{ID: primitive.NewObjectID(), ExerciseID: row, OrderIndex: 1, Params: domain.ExerciseParams{Sets: 3, RepsMin: 10, RepsMax: 12}},
			{ID: primitive.NewObjectID(), ExerciseID: squat, OrderIndex: 0, Params: domain.ExerciseParams{Sets: 5, RepsMin: 5, RestSeconds: 180, EffortType: domain.EffortRPE, EffortValue: &rpe}},
		},
	}
	rest := domain.TrainingDay{ID: primitive.NewObjectID(), MicrocycleID: week2.ID, DayNumber: 1, RestDay: true}
	b := board.New(map[string][]domain.TrainingDay{
		week1.ID.Hex(): {day},
		week2.ID.Hex(): {rest},
	})

	f, err := Mesocycle(meso, b, map[string]string{squat.Hex(): "Back Squat"})
	if err != nil {
		t.Fatalf("Mesocycle: %v", err)
	}
	defer f.Close()

	if got := f.GetSheetList(); len(got) != 3 || got[0] != SheetOverview || got[1] != "Week 1" || got[2] != "Week 2" {
		t.Fatalf("sheets = %v", got)
	}
	if title, _ := f.GetCellValue(SheetOverview, "A1"); title != meso.Name {
		t.Errorf("title = %q", title)
	}

	rows, err := f.GetRows("Week 1")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header and two exercises, got %v", rows)
	}
	first := rows[1]
	if first[4] != "Back Squat" || first[5] != "5" || first[6] != "5" || first[7] != "180" || first[8] != "RPE 8" {
		t.Errorf("first exercise row = %v", first)
	}
	if first[2] != "Lower (strength)" {
		t.Errorf("session = %q", first[2])
	}
	// Unknown catalog entries fall back to the id.
	if rows[2][4] != row.Hex() || rows[2][6] != "10-12" {
		t.Errorf("second exercise row = %v", rows[2])
	}
	// Day 3 of week 1.
	if v, _ := f.GetCellValue("Week 1", "A2", excelize.Options{RawCellValue: true}); v == "" {
		t.Errorf("expected a date on dated mesocycles")
	}

	restRows, _ := f.GetRows("Week 2")
	if len(restRows) != 2 || restRows[1][len(restRows[1])-1] != "Rest" {
		t.Errorf("rest week rows = %v", restRows)
	}
}

func TestFileName(t *testing.T) {
	tests := map[string]string{
		"Block 1: Base": "Block_1_Base.xlsx",
		"":              "mesocycle.xlsx",
		"???":           "mesocycle.xlsx",
	}
	for in, want := range tests {
		if got := FileName(&domain.Mesocycle{Name: in}); got != want {
			t.Errorf("FileName(%q) = %q, want %q", in, got, want)
		}
	}
}
