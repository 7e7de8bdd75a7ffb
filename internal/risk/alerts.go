package risk

import (
	"fmt"

	"github.com/noah-isme/dropout-watch-api/internal/models"
)

// Alert types.
const (
	AlertAttendance  = "attendance"
	AlertPerformance = "performance"
	AlertFees        = "fees"
	AlertTrend       = "trend"
)

// AlertThresholds are the mentor-tunable limits of the alert rules.
type AlertThresholds struct {
	Attendance float64 `json:"attendance"`
	Marks      float64 `json:"marks"`
	FeeDays    int     `json:"fee_days"`
}

// DefaultAlertThresholds mirror the flag thresholds.
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		Attendance: AttendanceThreshold,
		Marks:      ScoreThreshold,
		FeeDays:    FeeDueDaysThreshold,
	}
}

// With returns th with every non-zero limit of override applied.
func (th AlertThresholds) With(override AlertThresholds) AlertThresholds {
	if override.Attendance > 0 {
		th.Attendance = override.Attendance
	}
	if override.Marks > 0 {
		th.Marks = override.Marks
	}
	if override.FeeDays > 0 {
		th.FeeDays = override.FeeDays
	}
	return th
}

// Alert is one violated threshold for one student.
type Alert struct {
	ID             string `json:"id"`
	Type           string `json:"type"`
	Priority       string `json:"priority"`
	StudentID      string `json:"student_id"`
	StudentName    string `json:"student_name"`
	Mentor         string `json:"mentor"`
	Department     string `json:"department"`
	Message        string `json:"message"`
	ActionRequired bool   `json:"action_required"`
}

// AlertID builds the stable identifier of an alert.
func AlertID(alertType, studentID string) string {
	prefix := map[string]string{
		AlertAttendance:  "att",
		AlertPerformance: "perf",
		AlertFees:        "fee",
		AlertTrend:       "trend",
	}[alertType]
	if prefix == "" {
		prefix = alertType
	}
	return prefix + "-" + studentID
}

// Alerts evaluates the alert rules against every student.
func Alerts(students []models.Student, th AlertThresholds) []Alert {
	alerts := make([]Alert, 0, len(students))
	for _, s := range students {
		alerts = append(alerts, StudentAlerts(s, th)...)
	}
	return alerts
}

// StudentAlerts evaluates the alert rules for a single student, in the order
// attendance, performance, fees, trend.
func StudentAlerts(s models.Student, th AlertThresholds) []Alert {
	var out []Alert
	base := func(alertType, priority, message string, actionRequired bool) Alert {
		return Alert{
			ID:             AlertID(alertType, s.StudentID),
			Type:           alertType,
			Priority:       priority,
			StudentID:      s.StudentID,
			StudentName:    s.Name,
			Mentor:         s.MentorID,
			Department:     s.Department,
			Message:        message,
			ActionRequired: actionRequired,
		}
	}

	if s.AttendancePercentage < th.Attendance {
		out = append(out, base(AlertAttendance, "high",
			fmt.Sprintf("%s has %.1f%% attendance (below %.0f%% threshold)", s.Name, s.AttendancePercentage, th.Attendance), true))
	}

	score := recentScore(s)
	if score < th.Marks {
		priority := "medium"
		if score < 40 {
			priority = "high"
		}
		out = append(out, base(AlertPerformance, priority,
			fmt.Sprintf("%s scored %.1f%% in recent test (below %.0f%% threshold)", s.Name, score, th.Marks), true))
	}

	if s.FeeDueDays > th.FeeDays {
		priority := "medium"
		if s.FeeDueDays > 60 {
			priority = "high"
		}
		out = append(out, base(AlertFees, priority,
			fmt.Sprintf("%s has pending fees for %d days", s.Name, s.FeeDueDays), true))
	}

	for _, w := range DetectTrends(s) {
		if w.Type == TrendAttendanceDecline {
			out = append(out, base(AlertTrend, "medium",
				fmt.Sprintf("%s shows declining attendance trend (%s)", s.Name, w.Message), false))
		}
	}

	return out
}

// recentScore prefers the latest test score and falls back to the average
// when no latest score was uploaded.
func recentScore(s models.Student) float64 {
	if s.LastTestScore > 0 {
		return s.LastTestScore
	}
	return s.AvgTestScore
}

// Trend warning types.
const (
	TrendAttendanceDecline  = "Attendance Decline"
	TrendPerformanceDecline = "Performance Decline"
)

// TrendWarning flags a recent metric that fell well below its long-run value.
type TrendWarning struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

// DetectTrends compares monthly attendance and the latest test score with the
// long-run averages. Missing recent values never raise a warning.
func DetectTrends(s models.Student) []TrendWarning {
	var warnings []TrendWarning
	if s.MonthlyAttendance > 0 && s.MonthlyAttendance < s.AttendancePercentage-10 {
		warnings = append(warnings, TrendWarning{
			Type:     TrendAttendanceDecline,
			Severity: PriorityMedium,
			Message: fmt.Sprintf("monthly attendance %.1f%% vs overall %.1f%%",
				s.MonthlyAttendance, s.AttendancePercentage),
		})
	}
	if s.LastTestScore > 0 && s.LastTestScore < s.AvgTestScore-15 {
		warnings = append(warnings, TrendWarning{
			Type:     TrendPerformanceDecline,
			Severity: PriorityHigh,
			Message: fmt.Sprintf("latest test score %.1f%% vs average %.1f%%",
				s.LastTestScore, s.AvgTestScore),
		})
	}
	return warnings
}
