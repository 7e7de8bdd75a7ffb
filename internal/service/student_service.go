package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/dropout-watch-api/internal/dto"
	"github.com/noah-isme/dropout-watch-api/internal/models"
	"github.com/noah-isme/dropout-watch-api/internal/observability"
	"github.com/noah-isme/dropout-watch-api/internal/repository"
	"github.com/noah-isme/dropout-watch-api/internal/risk"
)

const riskStatsCacheKey = "stats:risk"

var (
	// ErrStudentNotFound indicates no record matches the requested student id.
	ErrStudentNotFound = errors.New("student not found")
	// ErrInvalidRiskFilter indicates the risk filter is not a known tier.
	ErrInvalidRiskFilter = errors.New("risk filter must be 0, 1, 2, low, medium or high")
)

// StudentService exposes the read side of the dashboard and metric edits.
type StudentService interface {
	List(ctx context.Context, query dto.StudentListQuery) ([]dto.StudentResponse, error)
	Get(ctx context.Context, studentID string) (dto.StudentResponse, error)
	Prediction(ctx context.Context, studentID string) (dto.PredictionResponse, error)
	UpdateMetrics(ctx context.Context, studentID string, req dto.MetricsUpdateRequest) (dto.StudentResponse, error)
	Priority(ctx context.Context, limit int) ([]dto.PriorityStudentResponse, error)
	RiskStats(ctx context.Context) (risk.Stats, error)
	Analytics(ctx context.Context) (risk.DashboardAnalytics, error)
	InvalidateStats(ctx context.Context)
}

type studentService struct {
	repo      repository.StudentRepository
	validator *validator.Validate
	cache     *redis.Client
	cacheTTL  time.Duration
	logger    zerolog.Logger
	tracer    trace.Tracer
}

// NewStudentService wires the student service. cache may be nil.
func NewStudentService(repo repository.StudentRepository, validate *validator.Validate, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) StudentService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &studentService{
		repo:      repo,
		validator: validate,
		cache:     cache,
		cacheTTL:  ttl,
		logger:    logger.With().Str("component", "student_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/dropout-watch-api/internal/service/student"),
	}
}

func (s *studentService) List(ctx context.Context, query dto.StudentListQuery) ([]dto.StudentResponse, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, err
	}

	filter := repository.StudentFilter{
		Department: strings.TrimSpace(query.Department),
		MentorID:   strings.TrimSpace(query.Mentor),
	}
	if query.Risk != "" {
		tier, err := parseRiskFilter(query.Risk)
		if err != nil {
			return nil, err
		}
		value := int(tier)
		filter.Risk = &value
	}

	students, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	return dto.NewStudentResponseSlice(students), nil
}

func (s *studentService) Get(ctx context.Context, studentID string) (dto.StudentResponse, error) {
	student, err := s.find(ctx, studentID)
	if err != nil {
		return dto.StudentResponse{}, err
	}
	return dto.NewStudentResponse(student), nil
}

func (s *studentService) Prediction(ctx context.Context, studentID string) (dto.PredictionResponse, error) {
	student, err := s.find(ctx, studentID)
	if err != nil {
		return dto.PredictionResponse{}, err
	}
	return dto.NewPredictionResponse(student), nil
}

func (s *studentService) UpdateMetrics(ctx context.Context, studentID string, req dto.MetricsUpdateRequest) (dto.StudentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.StudentResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "students.update_metrics", trace.WithAttributes(attribute.String("student.id", studentID)))
	defer span.End()

	student, err := s.find(ctx, studentID)
	if err != nil {
		span.RecordError(err)
		return dto.StudentResponse{}, err
	}

	previous := student.DropoutRisk
	req.Apply(&student)
	risk.Apply(&student)

	if err := s.repo.Save(ctx, &student); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		return dto.StudentResponse{}, err
	}

	s.InvalidateStats(ctx)
	s.logger.Info().
		Str("student_id", student.StudentID).
		Int("previous_tier", previous).
		Int("tier", student.DropoutRisk).
		Msg("student metrics updated")

	return dto.NewStudentResponse(student), nil
}

func (s *studentService) Priority(ctx context.Context, limit int) ([]dto.PriorityStudentResponse, error) {
	students, err := s.repo.List(ctx, repository.StudentFilter{})
	if err != nil {
		return nil, err
	}
	return dto.NewPriorityResponseSlice(risk.RankPriority(students, limit)), nil
}

func (s *studentService) RiskStats(ctx context.Context) (risk.Stats, error) {
	ctx, span := s.tracer.Start(ctx, "stats.risk")
	defer span.End()

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, riskStatsCacheKey).Result(); err == nil {
			var stats risk.Stats
			if unmarshalErr := json.Unmarshal([]byte(cached), &stats); unmarshalErr == nil {
				observability.StatsCacheLookups().WithLabelValues("hit").Inc()
				recordTierGauge(stats)
				span.SetAttributes(attribute.Bool("stats.cache_hit", true))
				return stats, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read risk stats cache")
		}
		observability.StatsCacheLookups().WithLabelValues("miss").Inc()
	}

	students, err := s.repo.List(ctx, repository.StudentFilter{})
	if err != nil {
		span.RecordError(err)
		return risk.Stats{}, err
	}

	stats := risk.Aggregate(students)
	recordTierGauge(stats)

	if s.cache != nil {
		if payload, err := json.Marshal(stats); err == nil {
			if err := s.cache.Set(ctx, riskStatsCacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store risk stats cache")
			}
		}
	}

	return stats, nil
}

func (s *studentService) Analytics(ctx context.Context) (risk.DashboardAnalytics, error) {
	students, err := s.repo.List(ctx, repository.StudentFilter{})
	if err != nil {
		return risk.DashboardAnalytics{}, err
	}
	return risk.Analytics(students), nil
}

func (s *studentService) InvalidateStats(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, riskStatsCacheKey).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate risk stats cache")
	}
}

func (s *studentService) find(ctx context.Context, studentID string) (models.Student, error) {
	studentID = strings.TrimSpace(studentID)
	if studentID == "" {
		return models.Student{}, ErrStudentNotFound
	}

	student, err := s.repo.GetByStudentID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Student{}, ErrStudentNotFound
		}
		return models.Student{}, err
	}
	return student, nil
}

func parseRiskFilter(value string) (risk.Tier, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "0", "low":
		return risk.TierLow, nil
	case "1", "medium":
		return risk.TierMedium, nil
	case "2", "high":
		return risk.TierHigh, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidRiskFilter, value)
	}
}

func recordTierGauge(stats risk.Stats) {
	observability.StudentsByTier().WithLabelValues(risk.TierLow.String()).Set(float64(stats.LowRisk))
	observability.StudentsByTier().WithLabelValues(risk.TierMedium.String()).Set(float64(stats.MediumRisk))
	observability.StudentsByTier().WithLabelValues(risk.TierHigh.String()).Set(float64(stats.HighRisk))
}
