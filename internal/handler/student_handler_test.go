package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dropout-watch-api/internal/dto"
	"github.com/noah-isme/dropout-watch-api/internal/handler"
	"github.com/noah-isme/dropout-watch-api/internal/risk"
	"github.com/noah-isme/dropout-watch-api/internal/service"
)

type stubStudentService struct {
	students  []dto.StudentResponse
	lastQuery dto.StudentListQuery
	lastLimit int
	err       error
	validate  *validator.Validate
}

func (s *stubStudentService) List(_ context.Context, query dto.StudentListQuery) ([]dto.StudentResponse, error) {
	s.lastQuery = query
	if err := s.validate.Struct(query); err != nil {
		return nil, err
	}
	return s.students, s.err
}

func (s *stubStudentService) Get(_ context.Context, id string) (dto.StudentResponse, error) {
	for _, student := range s.students {
		if student.StudentID == id {
			return student, nil
		}
	}
	return dto.StudentResponse{}, service.ErrStudentNotFound
}

func (s *stubStudentService) Prediction(ctx context.Context, id string) (dto.PredictionResponse, error) {
	student, err := s.Get(ctx, id)
	if err != nil {
		return dto.PredictionResponse{}, err
	}
	return dto.PredictionResponse{Student: student}, nil
}

func (s *stubStudentService) UpdateMetrics(ctx context.Context, id string, req dto.MetricsUpdateRequest) (dto.StudentResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return dto.StudentResponse{}, err
	}
	return s.Get(ctx, id)
}

func (s *stubStudentService) Priority(_ context.Context, limit int) ([]dto.PriorityStudentResponse, error) {
	s.lastLimit = limit
	return []dto.PriorityStudentResponse{}, nil
}

func (s *stubStudentService) RiskStats(context.Context) (risk.Stats, error) {
	return risk.Stats{Total: len(s.students)}, s.err
}

func (s *stubStudentService) Analytics(context.Context) (risk.DashboardAnalytics, error) {
	return risk.DashboardAnalytics{}, s.err
}

func (s *stubStudentService) InvalidateStats(context.Context) {}

type stubReportService struct {
	archiveErr error
}

func (s *stubReportService) Generate(_ context.Context, id string) (service.Report, error) {
	if id != "S00001" {
		return service.Report{}, service.ErrStudentNotFound
	}
	return service.Report{FileName: "Ankita Mishra_Progress_Report_2026-10-18.txt", Body: []byte("STUDENT PROGRESS REPORT\n")}, nil
}

func (s *stubReportService) Archive(_ context.Context, id string) (dto.ReportArchiveResponse, error) {
	if s.archiveErr != nil {
		return dto.ReportArchiveResponse{}, s.archiveErr
	}
	return dto.ReportArchiveResponse{StudentID: id, URL: "https://cdn.example.com/report.txt"}, nil
}

func newStudentApp(students *stubStudentService, reports *stubReportService) *fiber.App {
	validate := validator.New(validator.WithRequiredStructEnabled())
	students.validate = validate
	app := fiber.New()
	handler.NewStudentHandler(students, reports, validate, zerolog.New(io.Discard)).Register(app.Group("/api/v1/students"))
	handler.NewStatsHandler(students, zerolog.New(io.Discard)).Register(app.Group("/api/v1/stats"))
	return app
}

func TestStudentHandlerListPassesFilters(t *testing.T) {
	svc := &stubStudentService{students: []dto.StudentResponse{{StudentID: "S00001", Name: "Ankita Mishra"}}}
	app := newStudentApp(svc, &stubReportService{})

	resp, env := doJSON(t, app, http.MethodGet, "/api/v1/students?department=CE&risk=High&mentor=M084", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.True(t, env.Success)
	require.Equal(t, "CE", svc.lastQuery.Department)
	require.Equal(t, "high", svc.lastQuery.Risk)
	require.Equal(t, "M084", svc.lastQuery.Mentor)

	var meta struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Meta, &meta))
	require.Equal(t, 1, meta.Total)
}

func TestStudentHandlerInvalidRiskIsBadRequest(t *testing.T) {
	app := newStudentApp(&stubStudentService{}, &stubReportService{})

	resp, env := doJSON(t, app, http.MethodGet, "/api/v1/students?risk=critical", nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.False(t, env.Success)

	var details map[string]string
	require.NoError(t, json.Unmarshal(env.Details, &details))
	require.Equal(t, "oneof", details["Risk"])
}

func TestStudentHandlerNotFound(t *testing.T) {
	app := newStudentApp(&stubStudentService{}, &stubReportService{})

	resp, env := doJSON(t, app, http.MethodGet, "/api/v1/students/S404", nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	require.Equal(t, service.ErrStudentNotFound.Error(), env.Message)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/v1/students/S404/prediction", nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestStudentHandlerPriorityRouteIsNotAnID(t *testing.T) {
	svc := &stubStudentService{}
	app := newStudentApp(svc, &stubReportService{})

	resp, _ := doJSON(t, app, http.MethodGet, "/api/v1/students/priority?limit=5", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, 5, svc.lastLimit)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/v1/students/priority?limit=abc", nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/v1/students/priority?limit=500", nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestStudentHandlerUpdateMetricsValidation(t *testing.T) {
	svc := &stubStudentService{students: []dto.StudentResponse{{StudentID: "S00001"}}}
	app := newStudentApp(svc, &stubReportService{})

	resp, _ := doJSON(t, app, http.MethodPatch, "/api/v1/students/S00001/metrics", map[string]any{"attendance_percentage": 120})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp, env := doJSON(t, app, http.MethodPatch, "/api/v1/students/S00001/metrics", map[string]any{"attendance_percentage": 80})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.True(t, env.Success)
}

func TestStudentHandlerReportDownload(t *testing.T) {
	app := newStudentApp(&stubStudentService{}, &stubReportService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/students/S00001/report", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "Ankita Mishra_Progress_Report_2026-10-18.txt")
	require.Contains(t, resp.Header.Get(fiber.HeaderContentType), "text/plain")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "STUDENT PROGRESS REPORT\n", string(body))
}

func TestStudentHandlerArchiveReport(t *testing.T) {
	reports := &stubReportService{archiveErr: service.ErrReportArchiveDisabled}
	app := newStudentApp(&stubStudentService{}, reports)

	resp, _ := doJSON(t, app, http.MethodPost, "/api/v1/students/S00001/report/archive", nil)
	require.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	reports.archiveErr = nil
	resp, env := doJSON(t, app, http.MethodPost, "/api/v1/students/S00001/report/archive", nil)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	require.True(t, env.Success)
}

func TestStatsHandlerInternalError(t *testing.T) {
	svc := &stubStudentService{err: errors.New("database unavailable")}
	app := newStudentApp(svc, &stubReportService{})

	resp, env := doJSON(t, app, http.MethodGet, "/api/v1/stats/risk", nil)
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	require.Equal(t, "failed to compute risk stats", env.Message)
}
