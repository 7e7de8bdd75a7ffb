package risk

import "github.com/noah-isme/dropout-watch-api/internal/models"

// TierCounts counts students per tier.
type TierCounts struct {
	Low    int `json:"low"`
	Medium int `json:"medium"`
	High   int `json:"high"`
}

// Stats summarises a collection by tier and department.
type Stats struct {
	Total        int                   `json:"total_students"`
	LowRisk      int                   `json:"low_risk"`
	MediumRisk   int                   `json:"medium_risk"`
	HighRisk     int                   `json:"high_risk"`
	ByDepartment map[string]TierCounts `json:"by_department"`
}

// Aggregate counts students per tier overall and per department.
func Aggregate(students []models.Student) Stats {
	stats := Stats{
		Total:        len(students),
		ByDepartment: make(map[string]TierCounts),
	}

	for _, s := range students {
		dept := stats.ByDepartment[s.Department]
		switch ComputeFlags(s).Tier {
		case TierHigh:
			stats.HighRisk++
			dept.High++
		case TierMedium:
			stats.MediumRisk++
			dept.Medium++
		default:
			stats.LowRisk++
			dept.Low++
		}
		stats.ByDepartment[s.Department] = dept
	}

	return stats
}

// AttendanceStats summarises attendance across a collection.
type AttendanceStats struct {
	Average float64 `json:"average"`
	Below75 int     `json:"below_75"`
	Below60 int     `json:"below_60"`
}

// AcademicStats summarises test performance across a collection.
type AcademicStats struct {
	AverageScore    float64 `json:"average_score"`
	FailingStudents int     `json:"failing_students"`
	Below40         int     `json:"below_40"`
}

// DashboardAnalytics is the breakdown shown on the overview dashboard.
type DashboardAnalytics struct {
	TotalStudents          int             `json:"total_students"`
	DepartmentDistribution map[string]int  `json:"department_distribution"`
	RiskDistribution       TierCounts      `json:"risk_distribution"`
	Attendance             AttendanceStats `json:"attendance_stats"`
	Academic               AcademicStats   `json:"academic_stats"`
	FeeStatus              map[string]int  `json:"fee_stats"`
}

// Analytics builds the dashboard breakdown of a collection.
func Analytics(students []models.Student) DashboardAnalytics {
	out := DashboardAnalytics{
		TotalStudents:          len(students),
		DepartmentDistribution: make(map[string]int),
		FeeStatus:              make(map[string]int),
	}
	if len(students) == 0 {
		return out
	}

	var attendanceSum, scoreSum float64
	for _, s := range students {
		out.DepartmentDistribution[s.Department]++
		if s.FeeStatus != "" {
			out.FeeStatus[s.FeeStatus]++
		}

		switch ComputeFlags(s).Tier {
		case TierHigh:
			out.RiskDistribution.High++
		case TierMedium:
			out.RiskDistribution.Medium++
		default:
			out.RiskDistribution.Low++
		}

		attendanceSum += s.AttendancePercentage
		if s.AttendancePercentage < 75 {
			out.Attendance.Below75++
		}
		if s.AttendancePercentage < 60 {
			out.Attendance.Below60++
		}

		scoreSum += s.AvgTestScore
		if s.SubjectsFailed > 0 {
			out.Academic.FailingStudents++
		}
		if s.AvgTestScore < 40 {
			out.Academic.Below40++
		}
	}

	n := float64(len(students))
	out.Attendance.Average = attendanceSum / n
	out.Academic.AverageScore = scoreSum / n
	return out
}
