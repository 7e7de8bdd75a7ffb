package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/dropout-watch-api/internal/dto"
	"github.com/noah-isme/dropout-watch-api/internal/ingest"
	"github.com/noah-isme/dropout-watch-api/internal/observability"
	"github.com/noah-isme/dropout-watch-api/internal/repository"
	"github.com/noah-isme/dropout-watch-api/internal/risk"
)

var (
	// ErrUploadSessionNotFound indicates the session id is unknown or expired.
	ErrUploadSessionNotFound = errors.New("upload session not found")
	// ErrUploadFileRequired indicates the multipart request carried no file.
	ErrUploadFileRequired = errors.New("file is required")
	// ErrUploadTooLarge indicates the payload exceeded the configured limit.
	ErrUploadTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrUploadTypeNotAllowed indicates the content is not a text sheet.
	ErrUploadTypeNotAllowed = errors.New("file must be a comma separated text sheet")
)

// StatsInvalidator drops cached aggregates after the collection changes.
type StatsInvalidator interface {
	InvalidateStats(ctx context.Context)
}

// UploadService drives the three-sheet upload flow.
type UploadService interface {
	CreateSession(ctx context.Context) dto.UploadSessionResponse
	GetSession(ctx context.Context, id string) (dto.UploadSessionResponse, error)
	LoadSource(ctx context.Context, id, kind string, file *multipart.FileHeader) (dto.SourceLoadResponse, error)
	Preview(ctx context.Context, id string) (dto.PreviewResponse, error)
	Confirm(ctx context.Context, id string, req dto.ConfirmUploadRequest) (dto.ConfirmUploadResponse, error)
	Template(kind string) (string, []byte, error)
}

type uploadSession struct {
	mu        sync.Mutex
	id        string
	flow      *ingest.Session
	createdAt time.Time
	expiresAt time.Time
}

type uploadService struct {
	repo       repository.StudentRepository
	stats      StatsInvalidator
	logger     zerolog.Logger
	tracer     trace.Tracer
	maxSize    int64
	sessionTTL time.Duration
	now        func() time.Time

	mu       sync.Mutex
	sessions map[string]*uploadSession
}

// NewUploadService constructs an upload service.
func NewUploadService(repo repository.StudentRepository, stats StatsInvalidator, maxSize int64, sessionTTL time.Duration, logger zerolog.Logger) UploadService {
	if maxSize <= 0 {
		maxSize = 5 * 1024 * 1024
	}
	if sessionTTL <= 0 {
		sessionTTL = time.Hour
	}
	return &uploadService{
		repo:       repo,
		stats:      stats,
		logger:     logger.With().Str("component", "upload_service").Logger(),
		tracer:     otel.Tracer("github.com/noah-isme/dropout-watch-api/internal/service/upload"),
		maxSize:    maxSize,
		sessionTTL: sessionTTL,
		now:        time.Now,
		sessions:   make(map[string]*uploadSession),
	}
}

func (s *uploadService) CreateSession(ctx context.Context) dto.UploadSessionResponse {
	now := s.now()
	session := &uploadSession{
		id:        uuid.NewString(),
		flow:      ingest.NewSession(),
		createdAt: now,
		expiresAt: now.Add(s.sessionTTL),
	}

	s.mu.Lock()
	s.pruneLocked(now)
	s.sessions[session.id] = session
	s.mu.Unlock()

	s.logger.Info().Str("session_id", session.id).Msg("upload session created")
	return session.response()
}

func (s *uploadService) GetSession(ctx context.Context, id string) (dto.UploadSessionResponse, error) {
	session, err := s.lookup(id)
	if err != nil {
		return dto.UploadSessionResponse{}, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()
	return session.response(), nil
}

func (s *uploadService) LoadSource(ctx context.Context, id, kind string, file *multipart.FileHeader) (dto.SourceLoadResponse, error) {
	ctx, span := s.tracer.Start(ctx, "upload.load_source", trace.WithAttributes(
		attribute.String("upload.session_id", id),
		attribute.String("upload.source", kind),
	))
	defer span.End()

	sourceKind, err := ingest.ParseKind(kind)
	if err != nil {
		span.RecordError(err)
		return dto.SourceLoadResponse{}, err
	}

	session, err := s.lookup(id)
	if err != nil {
		span.RecordError(err)
		return dto.SourceLoadResponse{}, err
	}

	payload, err := s.readSheet(file, sourceKind)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "rejected")
		return dto.SourceLoadResponse{}, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	result, err := session.flow.Load(sourceKind, strings.TrimSpace(file.Filename), bytes.NewReader(payload))
	if err != nil {
		observability.UploadRejections().WithLabelValues(string(sourceKind), "parse").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse failed")
		return dto.SourceLoadResponse{}, err
	}

	logEvent := s.logger.Info()
	if len(result.MissingColumns) > 0 {
		logEvent = s.logger.Warn().Strs("missing_columns", result.MissingColumns)
	}
	logEvent.
		Str("session_id", id).
		Str("source", string(sourceKind)).
		Int("records", result.Records).
		Msg("upload source loaded")

	return dto.SourceLoadResponse{Session: session.response(), Source: result}, nil
}

func (s *uploadService) Preview(ctx context.Context, id string) (dto.PreviewResponse, error) {
	_, span := s.tracer.Start(ctx, "upload.preview", trace.WithAttributes(attribute.String("upload.session_id", id)))
	defer span.End()

	session, err := s.lookup(id)
	if err != nil {
		span.RecordError(err)
		return dto.PreviewResponse{}, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	preview, err := session.flow.Preview()
	if err != nil {
		observability.Merges().WithLabelValues("blocked").Inc()
		span.RecordError(err)
		return dto.PreviewResponse{}, err
	}
	observability.Merges().WithLabelValues("previewed").Inc()
	span.SetAttributes(attribute.Int("upload.records", len(preview.Students)))
	if preview.Duplicates > 0 {
		s.logger.Warn().Str("session_id", id).Int("duplicates", preview.Duplicates).Msg("repeated student ids dropped from preview")
	}

	return dto.PreviewResponse{
		Session:           session.response(),
		TotalRecords:      len(preview.Students),
		IncompleteRecords: preview.Incomplete,
		DuplicateRecords:  preview.Duplicates,
		Stats:             risk.Aggregate(preview.Students),
		Students:          dto.NewStudentResponseSlice(preview.Students),
	}, nil
}

func (s *uploadService) Confirm(ctx context.Context, id string, req dto.ConfirmUploadRequest) (dto.ConfirmUploadResponse, error) {
	ctx, span := s.tracer.Start(ctx, "upload.confirm", trace.WithAttributes(
		attribute.String("upload.session_id", id),
		attribute.Bool("upload.exclude_incomplete", req.ExcludeIncomplete),
	))
	defer span.End()

	session, err := s.lookup(id)
	if err != nil {
		span.RecordError(err)
		return dto.ConfirmUploadResponse{}, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	confirmation, err := session.flow.ConfirmWith(req.ExcludeIncomplete, func(c ingest.Confirmation) error {
		return s.repo.ReplaceAll(ctx, c.Students)
	})
	if err != nil {
		outcome := "blocked"
		if !errors.Is(err, ingest.ErrInvalidTransition) {
			outcome = "failed"
			span.SetStatus(codes.Error, "persist failed")
		}
		observability.Merges().WithLabelValues(outcome).Inc()
		span.RecordError(err)
		return dto.ConfirmUploadResponse{}, err
	}

	if s.stats != nil {
		s.stats.InvalidateStats(ctx)
	}
	observability.Merges().WithLabelValues("confirmed").Inc()

	stats := risk.Aggregate(confirmation.Students)
	s.logger.Info().
		Str("session_id", id).
		Int("imported", len(confirmation.Students)).
		Int("excluded", confirmation.Excluded).
		Int("duplicates", confirmation.Duplicates).
		Int("high_risk", stats.HighRisk).
		Msg("upload confirmed")

	return dto.ConfirmUploadResponse{
		Session:  session.response(),
		Imported:   len(confirmation.Students),
		Excluded:   confirmation.Excluded,
		Duplicates: confirmation.Duplicates,
		Stats:      stats,
	}, nil
}

func (s *uploadService) Template(kind string) (string, []byte, error) {
	sourceKind, err := ingest.ParseKind(kind)
	if err != nil {
		return "", nil, err
	}
	body, err := ingest.Template(sourceKind)
	if err != nil {
		return "", nil, err
	}
	return ingest.TemplateFileName(sourceKind), body, nil
}

func (s *uploadService) readSheet(file *multipart.FileHeader, kind ingest.Kind) ([]byte, error) {
	if file == nil {
		return nil, ErrUploadFileRequired
	}
	if file.Size > s.maxSize {
		observability.UploadRejections().WithLabelValues(string(kind), "size").Inc()
		return nil, ErrUploadTooLarge
	}

	handle, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		return nil, err
	}
	if int64(buf.Len()) > s.maxSize {
		observability.UploadRejections().WithLabelValues(string(kind), "size").Inc()
		return nil, ErrUploadTooLarge
	}

	if !isTextSheet(mimetype.Detect(buf.Bytes()).String()) {
		observability.UploadRejections().WithLabelValues(string(kind), "type").Inc()
		return nil, ErrUploadTypeNotAllowed
	}

	return buf.Bytes(), nil
}

func (s *uploadService) lookup(id string) (*uploadSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[strings.TrimSpace(id)]
	if !ok {
		return nil, ErrUploadSessionNotFound
	}
	if s.now().After(session.expiresAt) {
		delete(s.sessions, session.id)
		return nil, ErrUploadSessionNotFound
	}
	return session, nil
}

func (s *uploadService) pruneLocked(now time.Time) {
	for id, session := range s.sessions {
		if now.After(session.expiresAt) {
			delete(s.sessions, id)
		}
	}
}

func (u *uploadSession) response() dto.UploadSessionResponse {
	loaded := u.flow.Loaded()
	missing := make([]ingest.Kind, 0, len(ingest.Kinds))
	for _, k := range ingest.Kinds {
		found := false
		for _, l := range loaded {
			if l == k {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, k)
		}
	}

	return dto.UploadSessionResponse{
		ID:        u.id,
		State:     u.flow.State(),
		Loaded:    loaded,
		Missing:   missing,
		CreatedAt: u.createdAt,
		ExpiresAt: u.expiresAt,
	}
}

func isTextSheet(mime string) bool {
	mime = strings.ToLower(strings.TrimSpace(strings.Split(mime, ";")[0]))
	switch mime {
	case "text/plain", "text/csv", "text/tab-separated-values":
		return true
	default:
		return false
	}
}

