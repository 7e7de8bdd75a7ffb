package risk

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dropout-watch-api/internal/models"
)

func TestUrgencyScore(t *testing.T) {
	s := models.Student{AttendancePercentage: 45.1, AvgTestScore: 35.2, SubjectsFailed: 2, FeeDueDays: 43}
	// 3 + 3 + 2 + 0 + 3 flags * 0.5
	require.InDelta(t, 9.5, UrgencyScore(s), 1e-9)

	calm := models.Student{AttendancePercentage: 88.7, AvgTestScore: 78.5}
	require.Zero(t, UrgencyScore(calm))
}

func TestRankPriorityOrdersByScoreDescending(t *testing.T) {
	students := []models.Student{
		{StudentID: "low", AttendancePercentage: 90, AvgTestScore: 90},
		{StudentID: "top", AttendancePercentage: 42.8, AvgTestScore: 28.3, SubjectsFailed: 3, FeeDueDays: 120},
		{StudentID: "mid", AttendancePercentage: 55.3, AvgTestScore: 42.1, SubjectsFailed: 1, FeeDueDays: 25},
	}

	ranked := RankPriority(students, 10)
	require.Len(t, ranked, 3)
	require.Equal(t, []string{"top", "mid", "low"}, []string{ranked[0].StudentID, ranked[1].StudentID, ranked[2].StudentID})

	for i := 1; i < len(ranked); i++ {
		require.GreaterOrEqual(t, ranked[i-1].UrgencyScore, ranked[i].UrgencyScore)
	}
}

func TestRankPriorityTiesKeepInputOrder(t *testing.T) {
	students := []models.Student{
		{StudentID: "a", AttendancePercentage: 80, AvgTestScore: 80},
		{StudentID: "b", AttendancePercentage: 80, AvgTestScore: 80},
		{StudentID: "c", AttendancePercentage: 80, AvgTestScore: 80},
	}

	ranked := RankPriority(students, 2)
	require.Len(t, ranked, 2)
	require.Equal(t, "a", ranked[0].StudentID)
	require.Equal(t, "b", ranked[1].StudentID)
}

func TestRankPriorityDefaultsLimit(t *testing.T) {
	students := make([]models.Student, 15)
	require.Len(t, RankPriority(students, 0), DefaultPriorityLimit)
	require.Empty(t, RankPriority(nil, 5))
}
