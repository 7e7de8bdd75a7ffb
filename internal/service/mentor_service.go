package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/dropout-watch-api/internal/dto"
	"github.com/noah-isme/dropout-watch-api/internal/models"
	"github.com/noah-isme/dropout-watch-api/internal/repository"
	"github.com/noah-isme/dropout-watch-api/internal/risk"
)

var (
	// ErrInterventionNotFound indicates the intervention id is unknown.
	ErrInterventionNotFound = errors.New("intervention not found")
	// ErrMeetingNotFound indicates the meeting id is unknown.
	ErrMeetingNotFound = errors.New("meeting not found")
	// ErrInvalidDate indicates a date or time field could not be parsed.
	ErrInvalidDate = errors.New("invalid date")
)

// MentorService manages interventions and meetings logged by mentors.
type MentorService interface {
	ListInterventions(ctx context.Context, mentorID string, query dto.MentoringQuery) ([]dto.InterventionResponse, error)
	CreateIntervention(ctx context.Context, mentorID string, req dto.InterventionCreateRequest) (dto.InterventionResponse, error)
	CompleteIntervention(ctx context.Context, id uint) (dto.InterventionResponse, error)
	ListMeetings(ctx context.Context, mentorID string, query dto.MentoringQuery) ([]dto.MeetingResponse, error)
	CreateMeeting(ctx context.Context, mentorID string, req dto.MeetingCreateRequest) (dto.MeetingResponse, error)
	UpdateMeetingStatus(ctx context.Context, id uint, req dto.MeetingStatusRequest) (dto.MeetingResponse, error)
	Summary(ctx context.Context, mentorID string) (dto.MentorSummaryResponse, error)
}

type mentorService struct {
	students      repository.StudentRepository
	interventions repository.InterventionRepository
	meetings      repository.MeetingRepository
	validator     *validator.Validate
	sanitizer     *bluemonday.Policy
	logger        zerolog.Logger
	now           func() time.Time
}

// NewMentorService constructs the mentor workflow service.
func NewMentorService(students repository.StudentRepository, interventions repository.InterventionRepository, meetings repository.MeetingRepository, validate *validator.Validate, logger zerolog.Logger) MentorService {
	return &mentorService{
		students:      students,
		interventions: interventions,
		meetings:      meetings,
		validator:     validate,
		sanitizer:     bluemonday.StrictPolicy(),
		logger:        logger.With().Str("component", "mentor_service").Logger(),
		now:           time.Now,
	}
}

func (s *mentorService) ListInterventions(ctx context.Context, mentorID string, query dto.MentoringQuery) ([]dto.InterventionResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, err
	}

	items, err := s.interventions.List(ctx, repository.MentoringFilter{
		MentorID:  strings.TrimSpace(mentorID),
		StudentID: strings.TrimSpace(query.StudentID),
		Status:    query.Status,
	})
	if err != nil {
		return nil, err
	}
	return dto.NewInterventionResponseSlice(items), nil
}

func (s *mentorService) CreateIntervention(ctx context.Context, mentorID string, req dto.InterventionCreateRequest) (dto.InterventionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.InterventionResponse{}, err
	}

	student, err := s.student(ctx, req.StudentID)
	if err != nil {
		return dto.InterventionResponse{}, err
	}

	followUp, err := dto.ParseDate(req.FollowUpDate)
	if err != nil {
		return dto.InterventionResponse{}, fmt.Errorf("%w: follow_up_date", ErrInvalidDate)
	}

	status := req.Status
	if status == "" {
		status = models.InterventionStatusPlanned
	}

	model := models.Intervention{
		StudentID:    student.StudentID,
		StudentName:  student.Name,
		MentorID:     firstNonEmpty(mentorID, req.MentorID, student.MentorID),
		Type:         req.Type,
		Priority:     req.Priority,
		Notes:        strings.TrimSpace(s.sanitizer.Sanitize(req.Notes)),
		Status:       status,
		FollowUpDate: datatypes.Date(followUp),
	}

	if err := s.interventions.Create(ctx, &model); err != nil {
		return dto.InterventionResponse{}, err
	}

	s.logger.Info().
		Uint("intervention_id", model.ID).
		Str("student_id", model.StudentID).
		Str("type", model.Type).
		Msg("intervention logged")

	return dto.NewInterventionResponse(model), nil
}

func (s *mentorService) CompleteIntervention(ctx context.Context, id uint) (dto.InterventionResponse, error) {
	item, err := s.interventions.UpdateStatus(ctx, id, models.InterventionStatusCompleted)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.InterventionResponse{}, ErrInterventionNotFound
		}
		return dto.InterventionResponse{}, err
	}
	return dto.NewInterventionResponse(item), nil
}

func (s *mentorService) ListMeetings(ctx context.Context, mentorID string, query dto.MentoringQuery) ([]dto.MeetingResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, err
	}

	items, err := s.meetings.List(ctx, repository.MentoringFilter{
		MentorID:  strings.TrimSpace(mentorID),
		StudentID: strings.TrimSpace(query.StudentID),
		Status:    query.Status,
	})
	if err != nil {
		return nil, err
	}
	return dto.NewMeetingResponseSlice(items), nil
}

func (s *mentorService) CreateMeeting(ctx context.Context, mentorID string, req dto.MeetingCreateRequest) (dto.MeetingResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.MeetingResponse{}, err
	}

	student, err := s.student(ctx, req.StudentID)
	if err != nil {
		return dto.MeetingResponse{}, err
	}

	date, err := dto.ParseDate(req.Date)
	if err != nil {
		return dto.MeetingResponse{}, fmt.Errorf("%w: date", ErrInvalidDate)
	}

	model := models.Meeting{
		StudentID:   student.StudentID,
		StudentName: student.Name,
		MentorID:    firstNonEmpty(mentorID, req.MentorID, student.MentorID),
		Date:        datatypes.Date(date),
		Time:        req.Time,
		Type:        req.Type,
		Agenda:      strings.TrimSpace(s.sanitizer.Sanitize(req.Agenda)),
		Status:      models.MeetingStatusScheduled,
	}

	if err := s.meetings.Create(ctx, &model); err != nil {
		return dto.MeetingResponse{}, err
	}

	s.logger.Info().
		Uint("meeting_id", model.ID).
		Str("student_id", model.StudentID).
		Str("date", req.Date).
		Msg("meeting scheduled")

	return dto.NewMeetingResponse(model), nil
}

func (s *mentorService) UpdateMeetingStatus(ctx context.Context, id uint, req dto.MeetingStatusRequest) (dto.MeetingResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.MeetingResponse{}, err
	}

	item, err := s.meetings.UpdateStatus(ctx, id, req.Status)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.MeetingResponse{}, ErrMeetingNotFound
		}
		return dto.MeetingResponse{}, err
	}
	return dto.NewMeetingResponse(item), nil
}

func (s *mentorService) Summary(ctx context.Context, mentorID string) (dto.MentorSummaryResponse, error) {
	mentorID = strings.TrimSpace(mentorID)
	filter := repository.MentoringFilter{MentorID: mentorID}

	students, err := s.students.List(ctx, repository.StudentFilter{MentorID: mentorID})
	if err != nil {
		return dto.MentorSummaryResponse{}, err
	}
	interventions, err := s.interventions.List(ctx, filter)
	if err != nil {
		return dto.MentorSummaryResponse{}, err
	}
	meetings, err := s.meetings.List(ctx, filter)
	if err != nil {
		return dto.MentorSummaryResponse{}, err
	}

	summary := dto.MentorSummaryResponse{
		MentorID:         mentorID,
		AssignedStudents: len(students),
		HighRiskStudents: risk.Aggregate(students).HighRisk,
	}
	for _, item := range interventions {
		if item.Status == models.InterventionStatusCompleted {
			summary.CompletedInterventions++
		} else {
			summary.ActiveInterventions++
		}
	}

	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	for _, meeting := range meetings {
		date := time.Time(meeting.Date)
		day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
		if meeting.Status == models.MeetingStatusScheduled && !day.Before(today) {
			summary.UpcomingMeetings++
		}
	}

	return summary, nil
}

func (s *mentorService) student(ctx context.Context, studentID string) (models.Student, error) {
	student, err := s.students.GetByStudentID(ctx, strings.TrimSpace(studentID))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Student{}, ErrStudentNotFound
		}
		return models.Student{}, err
	}
	return student, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
