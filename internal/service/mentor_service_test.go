package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dropout-watch-api/internal/dto"
	"github.com/noah-isme/dropout-watch-api/internal/models"
	"github.com/noah-isme/dropout-watch-api/internal/repository"
)

func newMentorService(t *testing.T) (MentorService, *mentorService) {
	t.Helper()
	db := newServiceDB(t)
	svc := NewMentorService(
		seededStudents(t, db),
		repository.NewInterventionRepository(db),
		repository.NewMeetingRepository(db),
		testValidator(),
		testLogger(),
	)
	return svc, svc.(*mentorService)
}

func TestMentorServiceInterventionLifecycle(t *testing.T) {
	svc, _ := newMentorService(t)
	ctx := context.Background()

	created, err := svc.CreateIntervention(ctx, "", dto.InterventionCreateRequest{
		StudentID:    "S00007",
		Type:         models.InterventionTypeAcademic,
		Priority:     models.InterventionPriorityHigh,
		Notes:        "<b>Remedial</b> classes twice a week",
		FollowUpDate: "2026-11-02",
	})
	require.NoError(t, err)
	require.Equal(t, "Yash Chopra", created.StudentName)
	require.Equal(t, "M070", created.MentorID, "falls back to the assigned mentor")
	require.Equal(t, models.InterventionStatusPlanned, created.Status)
	require.Equal(t, "Remedial classes twice a week", created.Notes)
	require.Equal(t, "2026-11-02", created.FollowUpDate)

	completed, err := svc.CompleteIntervention(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, models.InterventionStatusCompleted, completed.Status)

	_, err = svc.CompleteIntervention(ctx, 999)
	require.ErrorIs(t, err, ErrInterventionNotFound)

	listed, err := svc.ListInterventions(ctx, "M070", dto.MentoringQuery{Status: models.InterventionStatusCompleted})
	require.NoError(t, err)
	require.Len(t, listed, 1)

	other, err := svc.ListInterventions(ctx, "M999", dto.MentoringQuery{})
	require.NoError(t, err)
	require.Empty(t, other)
}

func TestMentorServiceCreateInterventionValidation(t *testing.T) {
	svc, _ := newMentorService(t)
	ctx := context.Background()

	_, err := svc.CreateIntervention(ctx, "M001", dto.InterventionCreateRequest{
		StudentID: "S00404",
		Type:      models.InterventionTypeCounseling,
		Priority:  models.InterventionPriorityLow,
	})
	require.ErrorIs(t, err, ErrStudentNotFound)

	_, err = svc.CreateIntervention(ctx, "M001", dto.InterventionCreateRequest{
		StudentID: "S00001",
		Type:      "tutoring",
		Priority:  models.InterventionPriorityLow,
	})
	require.Error(t, err)

	created, err := svc.CreateIntervention(ctx, "M001", dto.InterventionCreateRequest{
		StudentID: "S00001",
		MentorID:  "M084",
		Type:      models.InterventionTypeFinancial,
		Priority:  models.InterventionPriorityMedium,
	})
	require.NoError(t, err)
	require.Equal(t, "M001", created.MentorID, "the authenticated mentor wins")
	require.Empty(t, created.FollowUpDate)
}

func TestMentorServiceMeetings(t *testing.T) {
	svc, _ := newMentorService(t)
	ctx := context.Background()

	later, err := svc.CreateMeeting(ctx, "", dto.MeetingCreateRequest{
		StudentID: "S00020", Date: "2026-11-10", Time: "14:00", Type: models.MeetingTypeParent, Agenda: "Fee plan",
	})
	require.NoError(t, err)
	require.Equal(t, models.MeetingStatusScheduled, later.Status)
	require.Equal(t, "2026-11-10", later.Date)

	_, err = svc.CreateMeeting(ctx, "", dto.MeetingCreateRequest{
		StudentID: "S00020", Date: "2026-11-03", Time: "09:30", Type: models.MeetingTypeIndividual,
	})
	require.NoError(t, err)

	_, err = svc.CreateMeeting(ctx, "", dto.MeetingCreateRequest{
		StudentID: "S00020", Date: "2026-11-03", Time: "9am", Type: models.MeetingTypeIndividual,
	})
	require.Error(t, err)

	meetings, err := svc.ListMeetings(ctx, "M088", dto.MentoringQuery{})
	require.NoError(t, err)
	require.Len(t, meetings, 2)
	require.Equal(t, "2026-11-03", meetings[0].Date)

	cancelled, err := svc.UpdateMeetingStatus(ctx, later.ID, dto.MeetingStatusRequest{Status: models.MeetingStatusCancelled})
	require.NoError(t, err)
	require.Equal(t, models.MeetingStatusCancelled, cancelled.Status)

	_, err = svc.UpdateMeetingStatus(ctx, 999, dto.MeetingStatusRequest{Status: models.MeetingStatusCompleted})
	require.ErrorIs(t, err, ErrMeetingNotFound)
}

func TestMentorServiceSummary(t *testing.T) {
	svc, impl := newMentorService(t)
	impl.now = func() time.Time { return time.Date(2026, 11, 5, 10, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	_, err := svc.CreateIntervention(ctx, "", dto.InterventionCreateRequest{
		StudentID: "S00020", Type: models.InterventionTypeAttendance, Priority: models.InterventionPriorityHigh,
	})
	require.NoError(t, err)
	_, err = svc.CreateMeeting(ctx, "", dto.MeetingCreateRequest{
		StudentID: "S00020", Date: "2026-11-05", Time: "08:00", Type: models.MeetingTypeIndividual,
	})
	require.NoError(t, err)
	_, err = svc.CreateMeeting(ctx, "", dto.MeetingCreateRequest{
		StudentID: "S00020", Date: "2026-11-01", Time: "08:00", Type: models.MeetingTypeIndividual,
	})
	require.NoError(t, err)

	summary, err := svc.Summary(ctx, "M088")
	require.NoError(t, err)
	require.Equal(t, 1, summary.AssignedStudents)
	require.Equal(t, 1, summary.HighRiskStudents)
	require.Equal(t, 1, summary.ActiveInterventions)
	require.Zero(t, summary.CompletedInterventions)
	require.Equal(t, 1, summary.UpcomingMeetings)
}
