package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cloo-solutions/jeeinsight/internal/api/handlers"
	"github.com/cloo-solutions/jeeinsight/internal/api/middleware"
	"github.com/cloo-solutions/jeeinsight/internal/dataset"
	"github.com/cloo-solutions/jeeinsight/internal/domain"
	"github.com/cloo-solutions/jeeinsight/internal/pagination"
	"github.com/cloo-solutions/jeeinsight/internal/service"
)

type stubAnalysis struct{}

func (stubAnalysis) Students(context.Context) ([]string, error) { return []string{"s1"}, nil }
func (stubAnalysis) Scores(_ context.Context, id string) (*dataset.ScoreReport, error) {
	return &dataset.ScoreReport{Students: 1}, nil
}
func (stubAnalysis) AnalyzeStudents(context.Context, []string) (*service.AnalysisResult, error) {
	return &service.AnalysisResult{Summary: "ok"}, nil
}
func (stubAnalysis) SummarizeCohort(context.Context, []string) (*service.AnalysisResult, error) {
	return &service.AnalysisResult{Summary: "ok"}, nil
}

type stubSummaries struct{}

func (stubSummaries) Submit(context.Context, service.SubmitSummaryInput) (*domain.SummaryJob, error) {
	return &domain.SummaryJob{ID: "job-1", Status: domain.SummaryJobStatusPending}, nil
}
func (stubSummaries) Get(_ context.Context, id string) (*domain.SummaryJob, error) {
	return &domain.SummaryJob{ID: id}, nil
}
func (stubSummaries) GetReport(_ context.Context, id string) (*domain.SummaryReport, error) {
	return &domain.SummaryReport{ID: id}, nil
}
func (stubSummaries) ListReports(context.Context, string, int) (*pagination.PageResult[*domain.SummaryReport], error) {
	return &pagination.PageResult[*domain.SummaryReport]{}, nil
}
func (stubSummaries) SearchReports(context.Context, string, int) ([]*domain.SummaryReport, error) {
	return nil, nil
}
func (stubSummaries) DownloadURL(_ context.Context, id string) (string, error) {
	return "https://example.test/" + id, nil
}

func newTestRouter(withSummaries bool) http.Handler {
	cfg := RouterConfig{
		AuthValidator:   middleware.StaticKey{Key: "secret"},
		AnalysisHandler: handlers.NewAnalysisHandler(stubAnalysis{}),
	}
	if withSummaries {
		cfg.SummaryHandler = handlers.NewSummaryHandler(stubSummaries{})
	}
	return NewRouter(cfg)
}

func serve(h http.Handler, method, path, body string, authed bool) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if authed {
		req.Header.Set("Authorization", "Bearer secret")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRouter_HealthIsPublic(t *testing.T) {
	w := serve(newTestRouter(true), http.MethodGet, "/health", "", false)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_HealthReportsDatabase(t *testing.T) {
	cfg := RouterConfig{
		AnalysisHandler: handlers.NewAnalysisHandler(stubAnalysis{}),
		HealthCheck: func(context.Context) error {
			return errors.New("connection refused")
		},
	}

	w := serve(NewRouter(cfg), http.MethodGet, "/health", "", false)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"UNAVAILABLE"`)
}

func TestRouter_RequiresAuth(t *testing.T) {
	w := serve(newTestRouter(true), http.MethodGet, "/students", "", false)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_Routes(t *testing.T) {
	router := newTestRouter(true)

	tests := []struct {
		method, path, body string
		status             int
	}{
		{http.MethodGet, "/students", "", http.StatusOK},
		{http.MethodGet, "/students/s1/scores", "", http.StatusOK},
		{http.MethodGet, "/scores", "", http.StatusOK},
		{http.MethodPost, "/analyze", `{"student_ids":["s1"]}`, http.StatusOK},
		{http.MethodPost, "/cohort", "", http.StatusOK},
		{http.MethodPost, "/summaries", `{"student_ids":["s1"]}`, http.StatusAccepted},
		{http.MethodGet, "/summaries/job-1", "", http.StatusOK},
		{http.MethodGet, "/reports", "", http.StatusOK},
		{http.MethodGet, "/reports/r1", "", http.StatusOK},
		{http.MethodPost, "/reports/search", `{"query":"optics"}`, http.StatusOK},
		{http.MethodGet, "/reports/r1/download", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := serve(router, tt.method, tt.path, tt.body, true)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestRouter_WithoutDatabaseHasNoSummaryRoutes(t *testing.T) {
	router := newTestRouter(false)

	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodGet, "/reports", "", true).Code)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/students", "", true).Code)
}

func TestRouter_NoAuthValidator(t *testing.T) {
	router := NewRouter(RouterConfig{AnalysisHandler: handlers.NewAnalysisHandler(stubAnalysis{})})

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/students", "", false).Code)
}

type slowAnalysis struct{ stubAnalysis }

func (slowAnalysis) AnalyzeStudents(ctx context.Context, _ []string) (*service.AnalysisResult, error) {
	<-ctx.Done()
	return nil, domain.ExternalServiceError("text generation failed", fmt.Errorf("groq: %w", ctx.Err()))
}

func TestRouter_AnalyzeDeadlineIsGatewayTimeout(t *testing.T) {
	h := NewRouter(RouterConfig{
		AnalysisHandler: handlers.NewAnalysisHandler(slowAnalysis{}),
		RequestTimeout:  20 * time.Millisecond,
	})

	w := serve(h, http.MethodPost, "/analyze", `{"student_ids":["s1"]}`, false)

	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"TIMEOUT"`)
}
