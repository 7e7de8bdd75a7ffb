package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/dropout-watch-api/internal/dto"
	"github.com/noah-isme/dropout-watch-api/internal/models"
	"github.com/noah-isme/dropout-watch-api/internal/repository"
	"github.com/noah-isme/dropout-watch-api/internal/risk"
)

const reportNotificationLimit = 20

// ErrReportArchiveDisabled indicates no archive storage is configured.
var ErrReportArchiveDisabled = errors.New("report archive storage is not configured")

// FileStorage abstracts archive destinations.
type FileStorage interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// Report is a rendered progress report.
type Report struct {
	FileName string
	Body     []byte
}

// ReportService renders and archives per-student progress reports.
type ReportService interface {
	Generate(ctx context.Context, studentID string) (Report, error)
	Archive(ctx context.Context, studentID string) (dto.ReportArchiveResponse, error)
}

type reportService struct {
	students      repository.StudentRepository
	interventions repository.InterventionRepository
	meetings      repository.MeetingRepository
	deliveries    repository.NotificationRepository
	storage       FileStorage
	logger        zerolog.Logger
	tracer        trace.Tracer
	now           func() time.Time
}

// NewReportService constructs the report service. storage may be nil, which
// disables archiving.
func NewReportService(students repository.StudentRepository, interventions repository.InterventionRepository, meetings repository.MeetingRepository, deliveries repository.NotificationRepository, storage FileStorage, logger zerolog.Logger) ReportService {
	return &reportService{
		students:      students,
		interventions: interventions,
		meetings:      meetings,
		deliveries:    deliveries,
		storage:       storage,
		logger:        logger.With().Str("component", "report_service").Logger(),
		tracer:        otel.Tracer("github.com/noah-isme/dropout-watch-api/internal/service/report"),
		now:           time.Now,
	}
}

func (s *reportService) Generate(ctx context.Context, studentID string) (Report, error) {
	student, err := s.students.GetByStudentID(ctx, strings.TrimSpace(studentID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Report{}, ErrStudentNotFound
		}
		return Report{}, err
	}

	filter := repository.MentoringFilter{StudentID: student.StudentID}
	interventions, err := s.interventions.List(ctx, filter)
	if err != nil {
		return Report{}, err
	}
	meetings, err := s.meetings.List(ctx, filter)
	if err != nil {
		return Report{}, err
	}

	deliveries, err := s.deliveries.ListByStudent(ctx, student.StudentID, reportNotificationLimit)
	if err != nil {
		return Report{}, err
	}

	generated := s.now()
	return Report{
		FileName: ReportFileName(student.Name, generated),
		Body:     RenderReport(student, interventions, meetings, deliveries, generated),
	}, nil
}

func (s *reportService) Archive(ctx context.Context, studentID string) (dto.ReportArchiveResponse, error) {
	if s.storage == nil {
		return dto.ReportArchiveResponse{}, ErrReportArchiveDisabled
	}

	ctx, span := s.tracer.Start(ctx, "reports.archive", trace.WithAttributes(attribute.String("student.id", studentID)))
	defer span.End()

	report, err := s.Generate(ctx, studentID)
	if err != nil {
		span.RecordError(err)
		return dto.ReportArchiveResponse{}, err
	}

	url, err := s.storage.Upload(ctx, report.FileName, bytes.NewReader(report.Body))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "storage failed")
		return dto.ReportArchiveResponse{}, err
	}

	s.logger.Info().Str("student_id", studentID).Str("file_name", report.FileName).Msg("progress report archived")

	return dto.ReportArchiveResponse{
		StudentID:  strings.TrimSpace(studentID),
		FileName:   report.FileName,
		URL:        url,
		ArchivedAt: s.now().UTC(),
	}, nil
}

// ReportFileName builds {studentName}_Progress_Report_{YYYY-MM-DD}.txt.
func ReportFileName(studentName string, at time.Time) string {
	name := strings.NewReplacer("/", "-", "\\", "-", "\"", "").Replace(strings.TrimSpace(studentName))
	if name == "" {
		name = "Student"
	}
	return fmt.Sprintf("%s_Progress_Report_%s.txt", name, at.Format("2006-01-02"))
}

// RenderReport writes the plain-text progress report of a student.
func RenderReport(student models.Student, interventions []models.Intervention, meetings []models.Meeting, deliveries []models.NotificationDelivery, generated time.Time) []byte {
	tier, _ := risk.ParseTier(student.DropoutRisk)

	var b strings.Builder
	b.WriteString("STUDENT PROGRESS REPORT\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", generated.Format("2006-01-02"))

	b.WriteString("Student Information\n")
	fmt.Fprintf(&b, "Name: %s\n", student.Name)
	fmt.Fprintf(&b, "Student ID: %s\n", student.StudentID)
	fmt.Fprintf(&b, "Roll Number: %s\n", student.RollNumber)
	fmt.Fprintf(&b, "Department: %s\n", student.Department)
	fmt.Fprintf(&b, "Semester: %d\n", student.Semester)
	fmt.Fprintf(&b, "Mentor: %s\n\n", student.MentorID)

	b.WriteString("Academic Metrics\n")
	fmt.Fprintf(&b, "Attendance: %.1f%%\n", student.AttendancePercentage)
	fmt.Fprintf(&b, "Average Test Score: %.1f%%\n", student.AvgTestScore)
	fmt.Fprintf(&b, "Subjects Failed: %d\n", student.SubjectsFailed)
	fmt.Fprintf(&b, "Attempts Exhausted: %d\n", student.AttemptsExhausted)
	fmt.Fprintf(&b, "Fee Due Days: %d\n\n", student.FeeDueDays)

	b.WriteString("Risk Assessment\n")
	fmt.Fprintf(&b, "Risk Level: %s\n", tier)
	fmt.Fprintf(&b, "Risk Flags: %d\n\n", student.TotalRiskFlags)

	fmt.Fprintf(&b, "Interventions (%d)\n", len(interventions))
	if len(interventions) == 0 {
		b.WriteString("- None recorded\n")
	}
	for _, item := range interventions {
		fmt.Fprintf(&b, "- %s %s [%s] %s", item.CreatedAt.Format("2006-01-02"), item.Type, item.Priority, item.Status)
		if item.Notes != "" {
			fmt.Fprintf(&b, ": %s", item.Notes)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "Meetings (%d)\n", len(meetings))
	if len(meetings) == 0 {
		b.WriteString("- None recorded\n")
	}
	for _, meeting := range meetings {
		fmt.Fprintf(&b, "- %s %s %s (%s)", time.Time(meeting.Date).Format("2006-01-02"), meeting.Time, meeting.Type, meeting.Status)
		if meeting.Agenda != "" {
			fmt.Fprintf(&b, ": %s", meeting.Agenda)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "Notifications (%d)\n", len(deliveries))
	if len(deliveries) == 0 {
		b.WriteString("- None sent\n")
	}
	for _, delivery := range deliveries {
		fmt.Fprintf(&b, "- %s %s %s (%s)\n", delivery.CreatedAt.Format("2006-01-02"), delivery.AlertID, delivery.Status, delivery.Channel)
	}
	b.WriteString("\n")

	b.WriteString("Recommendations\n")
	for i, rec := range risk.ReportRecommendations {
		fmt.Fprintf(&b, "%d. %s\n", i+1, rec)
	}

	return []byte(b.String())
}
