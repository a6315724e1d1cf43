package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/cloo-solutions/jeeinsight/internal/api"
	"github.com/cloo-solutions/jeeinsight/internal/api/handlers"
	"github.com/cloo-solutions/jeeinsight/internal/api/middleware"
	"github.com/cloo-solutions/jeeinsight/internal/logging"
)

type RouterConfig struct {
	// AuthValidator guards every route except /health. Nil disables auth.
	AuthValidator   middleware.AuthValidator
	AnalysisHandler *handlers.AnalysisHandler
	// SummaryHandler is nil when no database is configured.
	SummaryHandler *handlers.SummaryHandler
	// HealthCheck reports backing store reachability on /health. Nil means
	// there is nothing to check.
	HealthCheck func(ctx context.Context) error
	// RequestTimeout bounds synchronous analysis requests. Zero means none.
	RequestTimeout time.Duration
	Logger         *zap.Logger
}

const codeUnavailable = "UNAVAILABLE"

func NewRouter(cfg RouterConfig) http.Handler {
	cfg.Logger = logging.OrNop(cfg.Logger)
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Tracing)
	r.Use(middleware.AccessLog(cfg.Logger))
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if cfg.HealthCheck != nil {
			if err := cfg.HealthCheck(r.Context()); err != nil {
				cfg.Logger.Warn("health check failed", zap.Error(err))
				api.JSON(w, http.StatusServiceUnavailable, api.ErrorResponse{Error: "database unreachable", Code: codeUnavailable})
				return
			}
		}
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		if cfg.AuthValidator != nil {
			r.Use(middleware.APIKeyAuth(cfg.AuthValidator))
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(cfg.RequestTimeout))
			r.Get("/students", cfg.AnalysisHandler.ListStudents)
			r.Get("/students/{id}/scores", cfg.AnalysisHandler.StudentScores)
			r.Get("/scores", cfg.AnalysisHandler.CohortScores)
			r.Post("/analyze", cfg.AnalysisHandler.Analyze)
			r.Post("/cohort", cfg.AnalysisHandler.Cohort)
		})

		if cfg.SummaryHandler == nil {
			return
		}

		r.Route("/summaries", func(r chi.Router) {
			r.Post("/", cfg.SummaryHandler.Submit)
			r.Get("/{id}", cfg.SummaryHandler.Get)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/", cfg.SummaryHandler.ListReports)
			r.Post("/search", cfg.SummaryHandler.SearchReports)
			r.Get("/{id}", cfg.SummaryHandler.GetReport)
			r.Get("/{id}/download", cfg.SummaryHandler.DownloadURL)
		})
	})

	return r
}
