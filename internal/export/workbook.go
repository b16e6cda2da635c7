// Package export writes mesocycles to spreadsheet workbooks.
package export

import (
	"fmt"
	"strings"
	"time"

	"alcyxob/coach-app/internal/board"
	"alcyxob/coach-app/internal/domain"

	"github.com/xuri/excelize/v2"
)

const (
	SheetOverview = "Overview"
	ContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var weekHeader = []any{"Date", "Day", "Session", "#", "Exercise", "Sets", "Reps", "Rest (s)", "Effort", "Tempo", "Notes"}

type styles struct {
	title, label, header, date int
}

// Mesocycle builds a workbook with an overview sheet and one sheet per week. Exercises are
// listed in board order; names maps catalog exercise ids (hex) to display names.
// The caller closes the returned file.
func Mesocycle(meso *domain.Mesocycle, b *board.Board, names map[string]string) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetOverview); err != nil {
		f.Close()
		return nil, err
	}
	st, err := newStyles(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create styles: %w", err)
	}
	if err := writeOverview(f, st, meso, b); err != nil {
		f.Close()
		return nil, fmt.Errorf("write overview: %w", err)
	}

	seen := make(map[string]bool, len(meso.Microcycles))
	for i, mc := range meso.Microcycles {
		seen[mc.ID.Hex()] = true
		sheet := fmt.Sprintf("Week %d", i+1)
		if err := writeWeek(f, st, sheet, meso.StartDate, i, b.Days(mc.ID.Hex()), names); err != nil {
			f.Close()
			return nil, fmt.Errorf("write %s: %w", sheet, err)
		}
	}
	other := 0
	for _, parentID := range b.Parents() {
		if seen[parentID] {
			continue
		}
		other++
		sheet := fmt.Sprintf("Other %d", other)
		if err := writeWeek(f, st, sheet, nil, 0, b.Days(parentID), names); err != nil {
			f.Close()
			return nil, fmt.Errorf("write %s: %w", sheet, err)
		}
	}

	f.SetActiveSheet(0)
	return f, nil
}

// FileName is a download name for the mesocycle's workbook.
func FileName(meso *domain.Mesocycle) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '_'
		}
		return -1
	}, meso.Name)
	if name == "" {
		name = "mesocycle"
	}
	return name + ".xlsx"
}

func newStyles(f *excelize.File) (styles, error) {
	var st styles
	var err error
	border := []excelize.Border{
		{Type: "left", Color: "BFBFBF", Style: 1},
		{Type: "right", Color: "BFBFBF", Style: 1},
		{Type: "top", Color: "BFBFBF", Style: 1},
		{Type: "bottom", Color: "BFBFBF", Style: 1},
	}
	if st.title, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 16, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"2E75B6"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	}); err != nil {
		return st, err
	}
	if st.label, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"E2EFDA"}, Pattern: 1},
	}); err != nil {
		return st, err
	}
	if st.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"2E75B6"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center", WrapText: true},
		Border:    border,
	}); err != nil {
		return st, err
	}
	st.date, err = f.NewStyle(&excelize.Style{NumFmt: 14, Border: border})
	return st, err
}

func writeOverview(f *excelize.File, st styles, meso *domain.Mesocycle, b *board.Board) error {
	sheet := SheetOverview
	if err := f.SetCellValue(sheet, "A1", meso.Name); err != nil {
		return err
	}
	if err := f.MergeCell(sheet, "A1", "D1"); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", "D1", st.title); err != nil {
		return err
	}
	if err := f.SetRowHeight(sheet, 1, 30); err != nil {
		return err
	}

	start := ""
	if meso.StartDate != nil {
		start = meso.StartDate.Format("2006-01-02")
	}
	info := [][]any{
		{"Block:", meso.BlockNumber},
		{"Focus:", meso.Focus},
		{"Start date:", start},
		{"Weeks:", len(meso.Microcycles)},
		{"Exercises:", b.Count()},
		{"Notes:", meso.Description},
	}
	for i, row := range info {
		cell := fmt.Sprintf("A%d", i+3)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, cell, cell, st.label); err != nil {
			return err
		}
	}

	row := len(info) + 4
	for i, mc := range meso.Microcycles {
		name := mc.Name
		if name == "" {
			name = fmt.Sprintf("Week %d", i+1)
		}
		values := []any{fmt.Sprintf("Week %d", i+1), name, string(mc.IntensityLevel), len(b.Days(mc.ID.Hex()))}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", row), &values); err != nil {
			return err
		}
		row++
	}

	if err := f.SetColWidth(sheet, "A", "A", 14); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "B", "D", 24)
}

func writeWeek(f *excelize.File, st styles, sheet string, start *time.Time, week int, days []domain.TrainingDay, names map[string]string) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, "A1", &weekHeader); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(weekHeader), 1)
	if err := f.SetCellStyle(sheet, "A1", last, st.header); err != nil {
		return err
	}
	if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}

	row := 2
	for _, day := range days {
		var date any
		if start != nil {
			date = start.AddDate(0, 0, week*7+day.DayNumber-1)
		}
		session := day.Name
		if day.Focus != "" {
			session = strings.TrimSpace(session + " (" + day.Focus + ")")
		}
		if day.RestDay || len(day.Exercises) == 0 {
			note := day.Notes
			if day.RestDay && note == "" {
				note = "Rest"
			}
			values := []any{date, day.DayNumber, session, nil, nil, nil, nil, nil, nil, nil, note}
			if err := writeRow(f, st, sheet, row, values, date != nil); err != nil {
				return err
			}
			row++
			continue
		}
		for i, ex := range day.Exercises {
			p := ex.Params
			values := []any{date, day.DayNumber, session, i + 1, exerciseName(ex, names), p.Sets, reps(p), p.RestSeconds, effort(p), p.Tempo, p.Notes}
			if err := writeRow(f, st, sheet, row, values, date != nil); err != nil {
				return err
			}
			row++
		}
	}

	if err := f.SetColWidth(sheet, "A", "B", 11); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "C", "C", 24); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "E", "E", 28); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "K", "K", 36)
}

func writeRow(f *excelize.File, st styles, sheet string, row int, values []any, dated bool) error {
	cell := fmt.Sprintf("A%d", row)
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return err
	}
	if dated {
		return f.SetCellStyle(sheet, cell, cell, st.date)
	}
	return nil
}

func exerciseName(ex domain.DayExercise, names map[string]string) string {
	if name, ok := names[ex.ExerciseID.Hex()]; ok {
		return name
	}
	return ex.ExerciseID.Hex()
}

func reps(p domain.ExerciseParams) string {
	switch {
	case p.RepsMin == 0 && p.RepsMax == 0:
		return ""
	case p.RepsMax == 0 || p.RepsMin == p.RepsMax:
		return fmt.Sprint(p.RepsMin)
	case p.RepsMin == 0:
		return fmt.Sprint(p.RepsMax)
	}
	return fmt.Sprintf("%d-%d", p.RepsMin, p.RepsMax)
}

func effort(p domain.ExerciseParams) string {
	if p.EffortValue == nil {
		return string(p.EffortType)
	}
	v := fmt.Sprintf("%g", *p.EffortValue)
	switch p.EffortType {
	case domain.EffortPercentage:
		return v + "%"
	case "":
		return v
	}
	return string(p.EffortType) + " " + v
}
