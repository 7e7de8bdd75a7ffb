package risk

import (
	"fmt"
	"strings"

	"github.com/noah-isme/dropout-watch-api/internal/models"
)

// Recommendation categories and priorities.
const (
	CategoryAttendance = "Attendance"
	CategoryAcademic   = "Academic"
	CategoryFinancial  = "Financial"

	PriorityHigh   = "High"
	PriorityMedium = "Medium"
)

// Recommendation is one suggested action for a mentor.
type Recommendation struct {
	Category    string `json:"category"`
	Priority    string `json:"priority"`
	Action      string `json:"action"`
	Description string `json:"description"`
	Timeline    string `json:"timeline"`
}

// Recommend derives the suggested actions for s, always ordered Attendance,
// Academic, Financial and only including triggered categories.
func Recommend(s models.Student) []Recommendation {
	recs := make([]Recommendation, 0, 3)

	if s.AttendancePercentage < 60 {
		rec := Recommendation{
			Category:    CategoryAttendance,
			Priority:    PriorityMedium,
			Action:      "Send attendance warning",
			Description: fmt.Sprintf("Attendance at %.1f%% - Intervention needed", s.AttendancePercentage),
			Timeline:    "Within 1 week",
		}
		if s.AttendancePercentage < 50 {
			rec.Priority = PriorityHigh
			rec.Action = "Schedule immediate mentor meeting"
			rec.Timeline = "Within 24 hours"
		}
		recs = append(recs, rec)
	}

	if s.AvgTestScore < 50 {
		rec := Recommendation{
			Category:    CategoryAcademic,
			Priority:    PriorityMedium,
			Action:      "Provide study resources",
			Description: fmt.Sprintf("Average score %.1f%% - Academic support needed", s.AvgTestScore),
			Timeline:    "Start next week",
		}
		if s.AvgTestScore < 40 {
			rec.Priority = PriorityHigh
			rec.Action = "Enroll in remedial classes"
		}
		recs = append(recs, rec)
	}

	if s.FeeDueDays > 30 {
		rec := Recommendation{
			Category:    CategoryFinancial,
			Priority:    PriorityMedium,
			Action:      "Payment plan discussion",
			Description: fmt.Sprintf("Fees overdue by %d days", s.FeeDueDays),
			Timeline:    "Within 1 week",
		}
		if s.FeeDueDays > 60 {
			rec.Priority = PriorityHigh
			rec.Action = "Urgent financial counseling"
			rec.Timeline = "Immediate"
		}
		recs = append(recs, rec)
	}

	return recs
}

// Explanation lists the factors behind a student's tier.
type Explanation struct {
	MainFactors []string `json:"main_factors"`
	Summary     string   `json:"explanation"`
}

// Explain describes which metrics contributed to the student's risk.
func Explain(s models.Student) Explanation {
	factors := make([]string, 0, 4)
	if s.AttendancePercentage < AttendanceThreshold {
		factors = append(factors, fmt.Sprintf("Low attendance: %.1f%%", s.AttendancePercentage))
	}
	if s.AvgTestScore < ScoreThreshold {
		factors = append(factors, fmt.Sprintf("Poor academic performance: %.1f%%", s.AvgTestScore))
	}
	if s.SubjectsFailed > 0 {
		factors = append(factors, fmt.Sprintf("Failed subjects: %d", s.SubjectsFailed))
	}
	if s.FeeDueDays > 0 {
		factors = append(factors, fmt.Sprintf("Overdue fees: %d days", s.FeeDueDays))
	}

	tier := ComputeFlags(s).Tier
	summary := fmt.Sprintf("Student flagged as %s", tier)
	if len(factors) > 0 {
		summary += " due to: " + strings.Join(factors, ", ")
	}

	return Explanation{MainFactors: factors, Summary: summary}
}

// Probabilities are fixed per-tier placeholders standing in for model output.
type Probabilities struct {
	LowRisk    float64 `json:"low_risk"`
	MediumRisk float64 `json:"medium_risk"`
	HighRisk   float64 `json:"high_risk"`
}

// PlaceholderConfidence is reported for every prediction until a trained model
// replaces the rule table.
const PlaceholderConfidence = 0.85

var tierProbabilities = map[Tier]Probabilities{
	TierLow:    {LowRisk: 0.8, MediumRisk: 0.2, HighRisk: 0.1},
	TierMedium: {LowRisk: 0.3, MediumRisk: 0.6, HighRisk: 0.1},
	TierHigh:   {LowRisk: 0.1, MediumRisk: 0.2, HighRisk: 0.8},
}

// ProbabilitiesFor returns the placeholder distribution for a tier.
func ProbabilitiesFor(t Tier) Probabilities {
	return tierProbabilities[t]
}

// ReportRecommendations is the fixed action list printed on progress reports.
var ReportRecommendations = []string{
	"Continue regular mentor check-ins",
	"Monitor attendance weekly",
	"Review test performance after each assessment",
	"Keep parents informed of progress",
}
