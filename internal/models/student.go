package models

import "time"

// Fee status values accepted on uploaded fee sheets.
const (
	FeeStatusPaid    = "Paid"
	FeeStatusPartial = "Partial"
	FeeStatusOverdue = "Overdue"
)

// Student is one tracked student together with the risk fields derived from their metrics.
type Student struct {
	ID                   uint    `gorm:"primaryKey" json:"-"`
	StudentID            string  `gorm:"size:64;uniqueIndex;not null" json:"student_id"`
	Name                 string  `gorm:"size:255" json:"name"`
	RollNumber           string  `gorm:"size:64" json:"roll_number"`
	Department           string  `gorm:"size:64;index" json:"department"`
	Semester             int     `json:"semester"`
	MentorID             string  `gorm:"size:64;index" json:"mentor_id"`
	AttendancePercentage float64 `json:"attendance_percentage"`
	MonthlyAttendance    float64 `json:"monthly_attendance"`
	AvgTestScore         float64 `json:"avg_test_score"`
	LastTestScore        float64 `json:"last_test_score"`
	SubjectsFailed       int     `json:"subjects_failed"`
	AttemptsExhausted    int     `json:"attempts_exhausted"`
	FeeTotal             float64 `json:"fee_total"`
	FeePaid              float64 `json:"fee_paid"`
	FeeDueDays           int     `json:"fee_due_days"`
	FeeStatus            string  `gorm:"size:16" json:"fee_status,omitempty"`

	AttendanceFlag int `json:"attendance_flag"`
	ScoreFlag      int `json:"score_flag"`
	FeeFlag        int `json:"fee_flag"`
	TotalRiskFlags int `json:"total_risk_flags"`
	DropoutRisk    int `gorm:"index" json:"dropout_risk"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasIdentity reports whether the identity fields needed downstream are present.
func (s Student) HasIdentity() bool {
	return s.StudentID != "" && s.Name != "" && s.Department != ""
}
