package dto

import (
	"time"

	"github.com/noah-isme/dropout-watch-api/internal/models"
	"github.com/noah-isme/dropout-watch-api/internal/risk"
)

// StudentListQuery captures the optional listing filters. Risk accepts a tier
// number (0-2) or its name (low, medium, high).
type StudentListQuery struct {
	Department string `query:"department" validate:"omitempty,max=64"`
	Risk       string `query:"risk" validate:"omitempty,oneof=0 1 2 low medium high"`
	Mentor     string `query:"mentor" validate:"omitempty,max=64"`
}

// PriorityQuery bounds the priority list.
type PriorityQuery struct {
	Limit int `query:"limit" validate:"omitempty,min=1,max=100"`
}

// StudentResponse is the serialized student record with its derived risk fields.
type StudentResponse struct {
	StudentID            string    `json:"student_id"`
	Name                 string    `json:"name"`
	RollNumber           string    `json:"roll_number"`
	Department           string    `json:"department"`
	Semester             int       `json:"semester"`
	MentorID             string    `json:"mentor_id"`
	AttendancePercentage float64   `json:"attendance_percentage"`
	MonthlyAttendance    float64   `json:"monthly_attendance"`
	AvgTestScore         float64   `json:"avg_test_score"`
	LastTestScore        float64   `json:"last_test_score"`
	SubjectsFailed       int       `json:"subjects_failed"`
	AttemptsExhausted    int       `json:"attempts_exhausted"`
	FeeTotal             float64   `json:"fee_total"`
	FeePaid              float64   `json:"fee_paid"`
	FeeDueDays           int       `json:"fee_due_days"`
	FeeStatus            string    `json:"fee_status,omitempty"`
	AttendanceFlag       int       `json:"attendance_flag"`
	ScoreFlag            int       `json:"score_flag"`
	FeeFlag              int       `json:"fee_flag"`
	TotalRiskFlags       int       `json:"total_risk_flags"`
	DropoutRisk          int       `json:"dropout_risk"`
	RiskLevel            string    `json:"risk_level"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// NewStudentResponse converts a model into a DTO.
func NewStudentResponse(s models.Student) StudentResponse {
	tier, _ := risk.ParseTier(s.DropoutRisk)
	return StudentResponse{
		StudentID:            s.StudentID,
		Name:                 s.Name,
		RollNumber:           s.RollNumber,
		Department:           s.Department,
		Semester:             s.Semester,
		MentorID:             s.MentorID,
		AttendancePercentage: s.AttendancePercentage,
		MonthlyAttendance:    s.MonthlyAttendance,
		AvgTestScore:         s.AvgTestScore,
		LastTestScore:        s.LastTestScore,
		SubjectsFailed:       s.SubjectsFailed,
		AttemptsExhausted:    s.AttemptsExhausted,
		FeeTotal:             s.FeeTotal,
		FeePaid:              s.FeePaid,
		FeeDueDays:           s.FeeDueDays,
		FeeStatus:            s.FeeStatus,
		AttendanceFlag:       s.AttendanceFlag,
		ScoreFlag:            s.ScoreFlag,
		FeeFlag:              s.FeeFlag,
		TotalRiskFlags:       s.TotalRiskFlags,
		DropoutRisk:          s.DropoutRisk,
		RiskLevel:            tier.String(),
		UpdatedAt:            s.UpdatedAt,
	}
}

// NewStudentResponseSlice converts a slice of models into DTOs.
func NewStudentResponseSlice(students []models.Student) []StudentResponse {
	out := make([]StudentResponse, 0, len(students))
	for _, s := range students {
		out = append(out, NewStudentResponse(s))
	}
	return out
}

// MetricsUpdateRequest edits the raw metrics of a student. Omitted fields keep
// their stored value; derived flags are always recomputed.
type MetricsUpdateRequest struct {
	AttendancePercentage *float64 `json:"attendance_percentage" validate:"omitempty,min=0,max=100"`
	MonthlyAttendance    *float64 `json:"monthly_attendance" validate:"omitempty,min=0,max=100"`
	AvgTestScore         *float64 `json:"avg_test_score" validate:"omitempty,min=0,max=100"`
	LastTestScore        *float64 `json:"last_test_score" validate:"omitempty,min=0,max=100"`
	SubjectsFailed       *int     `json:"subjects_failed" validate:"omitempty,min=0"`
	AttemptsExhausted    *int     `json:"attempts_exhausted" validate:"omitempty,min=0"`
	FeeTotal             *float64 `json:"fee_total" validate:"omitempty,min=0"`
	FeePaid              *float64 `json:"fee_paid" validate:"omitempty,min=0"`
	FeeDueDays           *int     `json:"fee_due_days" validate:"omitempty,min=0"`
	FeeStatus            *string  `json:"fee_status" validate:"omitempty,oneof=Paid Partial Overdue"`
	MentorID             *string  `json:"mentor_id" validate:"omitempty,max=64"`
}

// Apply copies the provided fields onto s.
func (r MetricsUpdateRequest) Apply(s *models.Student) {
	setFloat(&s.AttendancePercentage, r.AttendancePercentage)
	setFloat(&s.MonthlyAttendance, r.MonthlyAttendance)
	setFloat(&s.AvgTestScore, r.AvgTestScore)
	setFloat(&s.LastTestScore, r.LastTestScore)
	setInt(&s.SubjectsFailed, r.SubjectsFailed)
	setInt(&s.AttemptsExhausted, r.AttemptsExhausted)
	setFloat(&s.FeeTotal, r.FeeTotal)
	setFloat(&s.FeePaid, r.FeePaid)
	setInt(&s.FeeDueDays, r.FeeDueDays)
	if r.FeeStatus != nil {
		s.FeeStatus = *r.FeeStatus
	}
	if r.MentorID != nil {
		s.MentorID = *r.MentorID
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

// PredictionDetail is the tier verdict of a prediction bundle.
type PredictionDetail struct {
	RiskLevel     string             `json:"risk_level"`
	RiskScore     int                `json:"risk_score"`
	Confidence    float64            `json:"confidence"`
	Probabilities risk.Probabilities `json:"probabilities"`
}

// KeyStats are the headline numbers shown next to a prediction.
type KeyStats struct {
	Attendance     float64 `json:"attendance"`
	AvgScore       float64 `json:"avg_score"`
	SubjectsFailed int     `json:"subjects_failed"`
	FeeDueDays     int     `json:"fee_due_days"`
}

// PredictionResponse bundles everything the student detail view needs.
type PredictionResponse struct {
	Student         StudentResponse       `json:"student"`
	Prediction      PredictionDetail      `json:"prediction"`
	Recommendations []risk.Recommendation `json:"recommendations"`
	Explanation     risk.Explanation      `json:"explanation"`
	KeyStats        KeyStats              `json:"key_stats"`
	TrendWarnings   []risk.TrendWarning   `json:"trend_warnings"`
}

// NewPredictionResponse derives the bundle for a student.
func NewPredictionResponse(s models.Student) PredictionResponse {
	flags := risk.ComputeFlags(s)
	trends := risk.DetectTrends(s)
	if trends == nil {
		trends = []risk.TrendWarning{}
	}

	return PredictionResponse{
		Student: NewStudentResponse(s),
		Prediction: PredictionDetail{
			RiskLevel:     flags.Tier.String(),
			RiskScore:     int(flags.Tier),
			Confidence:    risk.PlaceholderConfidence,
			Probabilities: risk.ProbabilitiesFor(flags.Tier),
		},
		Recommendations: risk.Recommend(s),
		Explanation:     risk.Explain(s),
		KeyStats: KeyStats{
			Attendance:     s.AttendancePercentage,
			AvgScore:       s.AvgTestScore,
			SubjectsFailed: s.SubjectsFailed,
			FeeDueDays:     s.FeeDueDays,
		},
		TrendWarnings: trends,
	}
}

// PriorityStudentResponse is a ranked student.
type PriorityStudentResponse struct {
	StudentResponse
	UrgencyScore float64 `json:"urgency_score"`
}

// NewPriorityResponseSlice converts ranked students into DTOs.
func NewPriorityResponseSlice(ranked []risk.Ranked) []PriorityStudentResponse {
	out := make([]PriorityStudentResponse, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, PriorityStudentResponse{
			StudentResponse: NewStudentResponse(r.Student),
			UrgencyScore:    r.UrgencyScore,
		})
	}
	return out
}
