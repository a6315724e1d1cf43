package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/jeeinsight/internal/api"
	"github.com/cloo-solutions/jeeinsight/internal/domain"
	"github.com/cloo-solutions/jeeinsight/internal/pagination"
	"github.com/cloo-solutions/jeeinsight/internal/service"
)

type SummaryService interface {
	Submit(ctx context.Context, input service.SubmitSummaryInput) (*domain.SummaryJob, error)
	Get(ctx context.Context, id string) (*domain.SummaryJob, error)
	GetReport(ctx context.Context, id string) (*domain.SummaryReport, error)
	ListReports(ctx context.Context, cursor string, limit int) (*pagination.PageResult[*domain.SummaryReport], error)
	SearchReports(ctx context.Context, query string, limit int) ([]*domain.SummaryReport, error)
	DownloadURL(ctx context.Context, reportID string) (string, error)
}

type SummaryHandler struct {
	svc SummaryService
}

func NewSummaryHandler(svc SummaryService) *SummaryHandler {
	return &SummaryHandler{svc: svc}
}

type SubmitSummaryRequest struct {
	StudentIDs []string `json:"student_ids"`
	Mode       string   `json:"mode"`
}

type SearchReportsRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type SummaryJobResponse struct {
	ID          string   `json:"id"`
	StudentIDs  []string `json:"student_ids"`
	Mode        string   `json:"mode"`
	Status      string   `json:"status"`
	Retries     int32    `json:"retries"`
	Error       string   `json:"error,omitempty"`
	ReportID    string   `json:"report_id,omitempty"`
	CreatedAt   string   `json:"created_at"`
	ProcessedAt string   `json:"processed_at,omitempty"`
}

type SummaryReportResponse struct {
	ID         string   `json:"id"`
	JobID      string   `json:"job_id,omitempty"`
	StudentIDs []string `json:"student_ids"`
	Mode       string   `json:"mode"`
	Summary    string   `json:"summary"`
	NoData     bool     `json:"no_data"`
	Calls      int      `json:"calls"`
	Levels     int      `json:"levels"`
	Chunks     int      `json:"chunks"`
	Archived   bool     `json:"archived"`
	CreatedAt  string   `json:"created_at"`
}

type SummaryReportListResponse struct {
	Items   []*SummaryReportResponse `json:"items"`
	Cursor  string                   `json:"cursor,omitempty"`
	HasMore bool                     `json:"has_more"`
}

type DownloadResponse struct {
	URL string `json:"url"`
}

func jobToResponse(j *domain.SummaryJob) *SummaryJobResponse {
	resp := &SummaryJobResponse{
		ID:         j.ID,
		StudentIDs: j.StudentIDs,
		Mode:       string(j.Mode),
		Status:     string(j.Status),
		Retries:    j.Retries,
		Error:      j.Error,
		ReportID:   j.ReportID,
		CreatedAt:  j.CreatedAt.UTC().Format(time.RFC3339),
	}
	if j.ProcessedAt != nil {
		resp.ProcessedAt = j.ProcessedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func reportToResponse(r *domain.SummaryReport) *SummaryReportResponse {
	return &SummaryReportResponse{
		ID:         r.ID,
		JobID:      r.JobID,
		StudentIDs: r.StudentIDs,
		Mode:       string(r.Mode),
		Summary:    r.Summary,
		NoData:     r.NoData,
		Calls:      r.Calls,
		Levels:     r.Levels,
		Chunks:     r.Chunks,
		Archived:   r.ArchiveKey != "",
		CreatedAt:  r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func reportsToResponse(reports []*domain.SummaryReport) []*SummaryReportResponse {
	out := make([]*SummaryReportResponse, len(reports))
	for i, r := range reports {
		out[i] = reportToResponse(r)
	}
	return out
}

func (h *SummaryHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitSummaryRequest
	if err := api.DecodeJSON(r, &req, false); err != nil {
		api.HandleError(w, err)
		return
	}

	job, err := h.svc.Submit(r.Context(), service.SubmitSummaryInput{
		StudentIDs: req.StudentIDs,
		Mode:       domain.SummaryMode(req.Mode),
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	w.Header().Set("Location", "/summaries/"+job.ID)
	api.Success(w, http.StatusAccepted, jobToResponse(job))
}

func (h *SummaryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	job, err := h.svc.Get(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, jobToResponse(job))
}

func (h *SummaryHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	cursor := r.URL.Query().Get("cursor")
	limit := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 {
			api.Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	page, err := h.svc.ListReports(r.Context(), cursor, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, SummaryReportListResponse{
		Items:   reportsToResponse(page.Items),
		Cursor:  page.Cursor,
		HasMore: page.HasMore,
	})
}

func (h *SummaryHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	report, err := h.svc.GetReport(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, reportToResponse(report))
}

func (h *SummaryHandler) SearchReports(w http.ResponseWriter, r *http.Request) {
	var req SearchReportsRequest
	if err := api.DecodeJSON(r, &req, false); err != nil {
		api.HandleError(w, err)
		return
	}
	if req.Query == "" {
		api.Error(w, http.StatusBadRequest, "query is required")
		return
	}

	reports, err := h.svc.SearchReports(r.Context(), req.Query, req.Limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, reportsToResponse(reports))
}

func (h *SummaryHandler) DownloadURL(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	url, err := h.svc.DownloadURL(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, DownloadResponse{URL: url})
}
