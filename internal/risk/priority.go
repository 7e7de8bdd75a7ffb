package risk

import (
	"sort"

	"github.com/noah-isme/dropout-watch-api/internal/models"
)

// DefaultPriorityLimit is used when a caller asks for a non-positive limit.
const DefaultPriorityLimit = 10

// Ranked pairs a student with the urgency score used to order them.
type Ranked struct {
	models.Student
	UrgencyScore float64 `json:"urgency_score"`
}

// UrgencyScore weighs the severity of a student's metrics. It is only used
// for ordering and is independent of the tier.
func UrgencyScore(s models.Student) float64 {
	score := 0.0
	if s.AttendancePercentage < 60 {
		score += 3
	}
	if s.AvgTestScore < 40 {
		score += 3
	}
	if s.SubjectsFailed >= 2 {
		score += 2
	}
	if s.FeeDueDays > 60 {
		score += 2
	}
	score += float64(ComputeFlags(s).Total) * 0.5
	return score
}

// RankPriority returns the top n students by urgency, highest first.
// Equal scores keep their input order.
func RankPriority(students []models.Student, n int) []Ranked {
	if n <= 0 {
		n = DefaultPriorityLimit
	}

	ranked := make([]Ranked, len(students))
	for i, s := range students {
		ranked[i] = Ranked{Student: s, UrgencyScore: UrgencyScore(s)}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].UrgencyScore > ranked[j].UrgencyScore
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
