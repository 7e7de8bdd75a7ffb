package ingest

import (
	"errors"

	"github.com/noah-isme/dropout-watch-api/internal/models"
	"github.com/noah-isme/dropout-watch-api/internal/risk"
)

// ErrMissingInput indicates a merge was attempted without all three sheets.
var ErrMissingInput = errors.New("attendance, marks and fees sources are all required")

// Merge joins the three sheets on Student_ID, anchored on attendance. Students
// missing from marks or fees get zero values for that sheet. Output order
// follows the attendance rows; the first matching row wins when an id repeats.
func Merge(attendance, marks, fees *Table) ([]models.Student, error) {
	if attendance == nil || marks == nil || fees == nil {
		return nil, ErrMissingInput
	}

	marksByID := indexByStudentID(marks)
	feesByID := indexByStudentID(fees)

	merged := make([]models.Student, 0, len(attendance.Rows))
	for _, row := range attendance.Rows {
		id := row[risk.ColStudentID]
		joined := make(map[string]string, len(row)+10)
		for k, v := range row {
			joined[k] = v
		}
		for k, v := range marksByID[id] {
			joined[k] = v
		}
		for k, v := range feesByID[id] {
			joined[k] = v
		}
		joined[risk.ColStudentID] = id

		student := risk.NormalizeStrings(joined)
		risk.Apply(&student)
		merged = append(merged, student)
	}

	return merged, nil
}

func indexByStudentID(t *Table) map[string]map[string]string {
	index := make(map[string]map[string]string, len(t.Rows))
	for _, row := range t.Rows {
		id := row[risk.ColStudentID]
		if _, exists := index[id]; !exists {
			index[id] = row
		}
	}
	return index
}

// DropDuplicateIDs keeps the first record of each Student_ID, blank ids
// included, and returns how many later records were dropped. The store keys
// students by id, so a repeated id can never be confirmed.
func DropDuplicateIDs(students []models.Student) ([]models.Student, int) {
	seen := make(map[string]struct{}, len(students))
	out := make([]models.Student, 0, len(students))
	for _, s := range students {
		if _, ok := seen[s.StudentID]; ok {
			continue
		}
		seen[s.StudentID] = struct{}{}
		out = append(out, s)
	}
	return out, len(students) - len(out)
}

// CountIncomplete returns how many records lack identity fields.
func CountIncomplete(students []models.Student) int {
	n := 0
	for _, s := range students {
		if !s.HasIdentity() {
			n++
		}
	}
	return n
}

// FilterComplete drops records that lack identity fields.
func FilterComplete(students []models.Student) []models.Student {
	out := make([]models.Student, 0, len(students))
	for _, s := range students {
		if s.HasIdentity() {
			out = append(out, s)
		}
	}
	return out
}
