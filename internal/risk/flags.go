// Package risk holds the rule-based dropout risk engine. Every caller that needs
// flags, tiers, recommendations or rankings goes through this package so the
// thresholds live in one place.
package risk

import "github.com/noah-isme/dropout-watch-api/internal/models"

// Fixed thresholds of the flag rules.
const (
	AttendanceThreshold = 75.0
	ScoreThreshold      = 60.0
	FeeDueDaysThreshold = 30
)

// Tier is the dropout risk tier derived from the number of raised flags.
type Tier int

const (
	TierLow Tier = iota
	TierMedium
	TierHigh
)

var tierLabels = [...]string{"Low Risk", "Medium Risk", "High Risk"}

func (t Tier) String() string {
	if t < TierLow || t > TierHigh {
		return "Unknown"
	}
	return tierLabels[t]
}

// ParseTier converts a stored tier value, reporting whether it is in range.
func ParseTier(v int) (Tier, bool) {
	t := Tier(v)
	return t, t >= TierLow && t <= TierHigh
}

// Flags are the derived risk indicators of one student.
type Flags struct {
	Attendance int  `json:"attendance_flag"`
	Score      int  `json:"score_flag"`
	Fee        int  `json:"fee_flag"`
	Total      int  `json:"total_risk_flags"`
	Tier       Tier `json:"dropout_risk"`
}

// ComputeFlags evaluates the flag rules against a student's current metrics.
func ComputeFlags(s models.Student) Flags {
	f := Flags{
		Attendance: boolToInt(s.AttendancePercentage < AttendanceThreshold),
		Score:      boolToInt(s.AvgTestScore < ScoreThreshold),
		Fee:        boolToInt(s.FeeDueDays > FeeDueDaysThreshold),
	}
	f.Total = f.Attendance + f.Score + f.Fee
	f.Tier = tierFor(f.Total)
	return f
}

// Apply recomputes the derived fields of s in place.
func Apply(s *models.Student) {
	f := ComputeFlags(*s)
	s.AttendanceFlag = f.Attendance
	s.ScoreFlag = f.Score
	s.FeeFlag = f.Fee
	s.TotalRiskFlags = f.Total
	s.DropoutRisk = int(f.Tier)
}

// ApplyAll recomputes derived fields for every record of the slice.
func ApplyAll(students []models.Student) {
	for i := range students {
		Apply(&students[i])
	}
}

func tierFor(total int) Tier {
	switch {
	case total >= 2:
		return TierHigh
	case total == 1:
		return TierMedium
	default:
		return TierLow
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
