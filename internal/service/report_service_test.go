package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dropout-watch-api/internal/models"
	"github.com/noah-isme/dropout-watch-api/internal/repository"
)

type storageStub struct {
	name     string
	uploaded bytes.Buffer
	err      error
}

func (s *storageStub) Upload(ctx context.Context, name string, reader io.Reader) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.name = name
	s.uploaded.Reset()
	if _, err := s.uploaded.ReadFrom(reader); err != nil {
		return "", err
	}
	return "https://cdn.example.com/" + name, nil
}

type reportFixture struct {
	interventions repository.InterventionRepository
	deliveries    repository.NotificationRepository
}

func newReportService(t *testing.T, storage FileStorage) (ReportService, reportFixture) {
	t.Helper()
	db := newServiceDB(t)
	fixture := reportFixture{
		interventions: repository.NewInterventionRepository(db),
		deliveries:    repository.NewNotificationRepository(db),
	}
	svc := NewReportService(seededStudents(t, db), fixture.interventions, repository.NewMeetingRepository(db), fixture.deliveries, storage, testLogger())
	svc.(*reportService).now = func() time.Time { return time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC) }
	return svc, fixture
}

func TestReportFileName(t *testing.T) {
	at := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	require.Equal(t, "Ankita Mishra_Progress_Report_2026-10-18.txt", ReportFileName("Ankita Mishra", at))
	require.Equal(t, "A-B_Progress_Report_2026-10-18.txt", ReportFileName("A/B", at))
	require.Equal(t, "Student_Progress_Report_2026-10-18.txt", ReportFileName(" ", at))
}

func TestReportServiceGenerate(t *testing.T) {
	svc, fixture := newReportService(t, nil)
	ctx := context.Background()

	report, err := svc.Generate(ctx, "S00015")
	require.NoError(t, err)
	require.Equal(t, "Rahul Kumar_Progress_Report_2026-10-18.txt", report.FileName)

	body := string(report.Body)
	require.True(t, strings.HasPrefix(body, "STUDENT PROGRESS REPORT\n"))
	require.Contains(t, body, "Risk Level: Low Risk")
	require.Contains(t, body, "Interventions (0)\n- None recorded")
	require.Contains(t, body, "Notifications (0)\n- None sent")
	require.Contains(t, body, "1. Continue regular mentor check-ins")

	require.NoError(t, fixture.interventions.Create(ctx, &models.Intervention{
		StudentID: "S00015", StudentName: "Rahul Kumar", MentorID: "M042",
		Type: models.InterventionTypeCounseling, Priority: models.InterventionPriorityLow,
		Status: models.InterventionStatusActive, Notes: "Career guidance",
	}))
	report, err = svc.Generate(ctx, "S00015")
	require.NoError(t, err)
	require.Contains(t, string(report.Body), "Interventions (1)")
	require.Contains(t, string(report.Body), "counseling [low] active: Career guidance")

	require.NoError(t, fixture.deliveries.Record(ctx, &models.NotificationDelivery{
		AlertID: "manual-S00015", StudentID: "S00015", Type: "manual",
		Channel: "app", Status: models.NotificationStatusSent,
	}))
	report, err = svc.Generate(ctx, "S00015")
	require.NoError(t, err)
	require.Contains(t, string(report.Body), "Notifications (1)")
	require.Contains(t, string(report.Body), "manual-S00015 sent (app)")

	_, err = svc.Generate(ctx, "S00404")
	require.ErrorIs(t, err, ErrStudentNotFound)
}

func TestReportServiceArchive(t *testing.T) {
	disabled, _ := newReportService(t, nil)
	_, err := disabled.Archive(context.Background(), "S00001")
	require.ErrorIs(t, err, ErrReportArchiveDisabled)

	storage := &storageStub{}
	svc, _ := newReportService(t, storage)
	archived, err := svc.Archive(context.Background(), "S00001")
	require.NoError(t, err)
	require.Equal(t, "Ankita Mishra_Progress_Report_2026-10-18.txt", archived.FileName)
	require.Equal(t, "https://cdn.example.com/"+archived.FileName, archived.URL)
	require.Contains(t, storage.uploaded.String(), "Name: Ankita Mishra")

	storage.err = errors.New("cdn down")
	_, err = svc.Archive(context.Background(), "S00001")
	require.EqualError(t, err, "cdn down")
}
