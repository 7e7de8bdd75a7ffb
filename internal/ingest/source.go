package ingest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/noah-isme/dropout-watch-api/internal/models"
	"github.com/noah-isme/dropout-watch-api/internal/risk"
)

// Kind identifies one of the three uploaded sheets.
type Kind string

const (
	KindAttendance Kind = "attendance"
	KindMarks      Kind = "marks"
	KindFees       Kind = "fees"
)

// Kinds lists every source in load order.
var Kinds = []Kind{KindAttendance, KindMarks, KindFees}

// ErrUnknownSource indicates a source name outside attendance, marks and fees.
var ErrUnknownSource = errors.New("unknown source")

// ParseKind validates a source name.
func ParseKind(v string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(v)))
	switch k {
	case KindAttendance, KindMarks, KindFees:
		return k, nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownSource, v)
	}
}

var requiredHeaders = map[Kind][]string{
	KindAttendance: {risk.ColStudentID, risk.ColName, risk.ColRollNo, risk.ColDepartment, risk.ColAttendancePercentage, risk.ColMonthlyAttendance},
	KindMarks:      {risk.ColStudentID, risk.ColAvgTestScore, risk.ColLastTestScore, risk.ColSubjectsFailed, risk.ColAttemptsExhausted},
	KindFees:       {risk.ColStudentID, risk.ColFeeTotal, risk.ColFeePaid, risk.ColFeeDueDays, risk.ColFeeStatus},
}

// RequiredHeaders returns the expected columns of a source, in template order.
func RequiredHeaders(k Kind) []string {
	return append([]string(nil), requiredHeaders[k]...)
}

// MissingHeaders lists the expected columns absent from a parsed table.
func MissingHeaders(k Kind, t Table) []string {
	var missing []string
	for _, h := range requiredHeaders[k] {
		if !contains(t.Headers, h) {
			missing = append(missing, h)
		}
	}
	return missing
}

var templateRows = map[Kind][][]string{
	KindAttendance: {
		{"S00001", "Ankita Mishra", "R000001", "CE", "72.2", "68.0"},
		{"S00003", "Siddharth Banerjee", "R000003", "CE", "75.6", "77.1"},
	},
	KindMarks: {
		{"S00001", "59.0", "61.5", "0", "0"},
		{"S00003", "64.8", "66.0", "0", "0"},
	},
	KindFees: {
		{"S00001", "50000", "50000", "0", models.FeeStatusPaid},
		{"S00003", "50000", "20000", "96", models.FeeStatusOverdue},
	},
}

// Template renders a downloadable sheet with the header row and sample rows.
func Template(k Kind) ([]byte, error) {
	headers, ok := requiredHeaders[k]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownSource, k)
	}

	var b strings.Builder
	b.WriteString(strings.Join(headers, ","))
	b.WriteString("\n")
	for _, row := range templateRows[k] {
		b.WriteString(strings.Join(row, ","))
		b.WriteString("\n")
	}
	return []byte(b.String()), nil
}

// TemplateFileName is the download name of a source template.
func TemplateFileName(k Kind) string {
	return string(k) + "_template.csv"
}
