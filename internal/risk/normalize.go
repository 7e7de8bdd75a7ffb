package risk

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/noah-isme/dropout-watch-api/internal/models"
)

// Column names used by uploaded sheets and raw rows.
const (
	ColStudentID            = "Student_ID"
	ColName                 = "Name"
	ColRollNo               = "Roll_No"
	ColDepartment           = "Department"
	ColSemester             = "Semester"
	ColMentorID             = "Mentor_ID"
	ColAttendancePercentage = "Attendance_Percentage"
	ColMonthlyAttendance    = "Monthly_Attendance"
	ColAvgTestScore         = "Avg_Test_Score"
	ColLastTestScore        = "Last_Test_Score"
	ColSubjectsFailed       = "Subjects_Failed"
	ColAttemptsExhausted    = "Attempts_Exhausted"
	ColFeeTotal             = "Fee_Total"
	ColFeePaid              = "Fee_Paid"
	ColFeeDueDays           = "Fee_Due_Days"
	ColFeeStatus            = "Fee_Status"
)

// Normalize turns a raw row into a student record. Numeric fields that are
// absent, blank or unparsable become zero; it never fails. Derived fields are
// left untouched, call Apply afterwards.
func Normalize(row map[string]any) models.Student {
	return models.Student{
		StudentID:            text(row[ColStudentID]),
		Name:                 text(row[ColName]),
		RollNumber:           text(row[ColRollNo]),
		Department:           text(row[ColDepartment]),
		Semester:             integer(row[ColSemester]),
		MentorID:             text(row[ColMentorID]),
		AttendancePercentage: number(row[ColAttendancePercentage]),
		MonthlyAttendance:    number(row[ColMonthlyAttendance]),
		AvgTestScore:         number(row[ColAvgTestScore]),
		LastTestScore:        number(row[ColLastTestScore]),
		SubjectsFailed:       integer(row[ColSubjectsFailed]),
		AttemptsExhausted:    integer(row[ColAttemptsExhausted]),
		FeeTotal:             number(row[ColFeeTotal]),
		FeePaid:              number(row[ColFeePaid]),
		FeeDueDays:           integer(row[ColFeeDueDays]),
		FeeStatus:            normalizeFeeStatus(text(row[ColFeeStatus])),
	}
}

// NormalizeStrings is Normalize for rows read from a text sheet.
func NormalizeStrings(row map[string]string) models.Student {
	raw := make(map[string]any, len(row))
	for k, v := range row {
		raw[k] = v
	}
	return Normalize(raw)
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case fmt.Stringer:
		return strings.TrimSpace(t.String())
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func number(v any) float64 {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case uint:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0
		}
		f = parsed
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// maxCount bounds integer fields so the float conversion stays defined.
const maxCount = math.MaxInt32

// integer coerces count fields. Counts are never negative; fractions truncate.
func integer(v any) int {
	f := number(v)
	switch {
	case f <= 0:
		return 0
	case f >= maxCount:
		return maxCount
	default:
		return int(f)
	}
}

func normalizeFeeStatus(v string) string {
	switch strings.ToLower(v) {
	case "paid":
		return models.FeeStatusPaid
	case "partial":
		return models.FeeStatusPartial
	case "overdue":
		return models.FeeStatusOverdue
	default:
		return v
	}
}
