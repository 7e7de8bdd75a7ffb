package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/dropout-watch-api/internal/models"
	"github.com/noah-isme/dropout-watch-api/internal/repository"
	"github.com/noah-isme/dropout-watch-api/internal/risk"
)

var (
	// ErrSeedDisabled indicates the seeding tools are disabled by configuration.
	ErrSeedDisabled = errors.New("seeding is disabled")
	// ErrSeedUnauthorized indicates the provided token is invalid.
	ErrSeedUnauthorized = errors.New("invalid seed token")
)

// SeedService loads the fixed demo cohort.
type SeedService interface {
	SeedStudents(ctx context.Context, token string) (int, error)
	SeedIfEmpty(ctx context.Context) (int, error)
}

type seedService struct {
	repo    repository.StudentRepository
	stats   StatsInvalidator
	enabled bool
	token   string
	logger  zerolog.Logger
}

// NewSeedService constructs a seeding service.
func NewSeedService(repo repository.StudentRepository, stats StatsInvalidator, enabled bool, token string, logger zerolog.Logger) SeedService {
	return &seedService{
		repo:    repo,
		stats:   stats,
		enabled: enabled,
		token:   token,
		logger:  logger.With().Str("component", "seed_service").Logger(),
	}
}

// SeedStudents replaces the stored collection with the demo cohort.
func (s *seedService) SeedStudents(ctx context.Context, token string) (int, error) {
	if !s.enabled {
		return 0, ErrSeedDisabled
	}
	if !s.validateToken(token) {
		return 0, ErrSeedUnauthorized
	}
	return s.seed(ctx)
}

// SeedIfEmpty loads the demo cohort on startup when nothing has been uploaded yet.
func (s *seedService) SeedIfEmpty(ctx context.Context) (int, error) {
	if !s.enabled {
		return 0, nil
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		return 0, err
	}
	if total > 0 {
		return 0, nil
	}
	return s.seed(ctx)
}

func (s *seedService) seed(ctx context.Context) (int, error) {
	students := FixedStudents()
	if err := s.repo.ReplaceAll(ctx, students); err != nil {
		return 0, err
	}
	if s.stats != nil {
		s.stats.InvalidateStats(ctx)
	}
	s.logger.Info().Int("students", len(students)).Msg("demo students seeded")
	return len(students), nil
}

func (s *seedService) validateToken(token string) bool {
	expected := strings.TrimSpace(s.token)
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.TrimSpace(token))) == 1
}

// FixedStudents returns the demo cohort with derived fields computed.
func FixedStudents() []models.Student {
	students := []models.Student{
		{StudentID: "S00001", Name: "Ankita Mishra", RollNumber: "R000001", Department: "CE", Semester: 1, MentorID: "M084",
			AttendancePercentage: 72.2, MonthlyAttendance: 70.5, AvgTestScore: 59.0, LastTestScore: 61.5,
			FeeTotal: 50000, FeePaid: 50000, FeeStatus: models.FeeStatusPaid},
		{StudentID: "S00003", Name: "Siddharth Banerjee", RollNumber: "R000003", Department: "CE", Semester: 5, MentorID: "M081",
			AttendancePercentage: 75.6, MonthlyAttendance: 77.1, AvgTestScore: 64.8, LastTestScore: 66.0,
			FeeTotal: 50000, FeePaid: 20000, FeeDueDays: 96, FeeStatus: models.FeeStatusOverdue},
		{StudentID: "S00007", Name: "Yash Chopra", RollNumber: "R000007", Department: "IT", Semester: 4, MentorID: "M070",
			AttendancePercentage: 45.1, MonthlyAttendance: 40.2, AvgTestScore: 35.2, LastTestScore: 31.0,
			SubjectsFailed: 2, AttemptsExhausted: 1,
			FeeTotal: 50000, FeePaid: 30000, FeeDueDays: 43, FeeStatus: models.FeeStatusOverdue},
		{StudentID: "S00010", Name: "Priya Sharma", RollNumber: "R000010", Department: "CSE", Semester: 6, MentorID: "M055",
			AttendancePercentage: 55.3, MonthlyAttendance: 58.0, AvgTestScore: 42.1, LastTestScore: 44.5,
			SubjectsFailed: 1,
			FeeTotal: 50000, FeePaid: 40000, FeeDueDays: 25, FeeStatus: models.FeeStatusPartial},
		{StudentID: "S00015", Name: "Rahul Kumar", RollNumber: "R000015", Department: "EEE", Semester: 3, MentorID: "M042",
			AttendancePercentage: 88.7, MonthlyAttendance: 90.0, AvgTestScore: 78.5, LastTestScore: 80.0,
			FeeTotal: 50000, FeePaid: 50000, FeeStatus: models.FeeStatusPaid},
		{StudentID: "S00020", Name: "Neha Patel", RollNumber: "R000020", Department: "IT", Semester: 7, MentorID: "M088",
			AttendancePercentage: 42.8, MonthlyAttendance: 30.0, AvgTestScore: 28.3, LastTestScore: 25.0,
			SubjectsFailed: 3, AttemptsExhausted: 2,
			FeeTotal: 50000, FeePaid: 10000, FeeDueDays: 120, FeeStatus: models.FeeStatusOverdue},
	}
	risk.ApplyAll(students)
	return students
}
