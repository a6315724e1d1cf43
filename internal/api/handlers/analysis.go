package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/jeeinsight/internal/api"
	"github.com/cloo-solutions/jeeinsight/internal/dataset"
	"github.com/cloo-solutions/jeeinsight/internal/service"
)

type AnalysisService interface {
	Students(ctx context.Context) ([]string, error)
	Scores(ctx context.Context, id string) (*dataset.ScoreReport, error)
	AnalyzeStudents(ctx context.Context, ids []string) (*service.AnalysisResult, error)
	SummarizeCohort(ctx context.Context, ids []string) (*service.AnalysisResult, error)
}

type AnalysisHandler struct {
	svc AnalysisService
}

func NewAnalysisHandler(svc AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{svc: svc}
}

type StudentsRequest struct {
	StudentIDs []string `json:"student_ids"`
}

type StudentListResponse struct {
	Items []string `json:"items"`
	Count int      `json:"count"`
}

func (h *AnalysisHandler) ListStudents(w http.ResponseWriter, r *http.Request) {
	ids, err := h.svc.Students(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	api.Success(w, http.StatusOK, StudentListResponse{Items: ids, Count: len(ids)})
}

func (h *AnalysisHandler) StudentScores(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	report, err := h.svc.Scores(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, report)
}

func (h *AnalysisHandler) CohortScores(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Scores(r.Context(), "")
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, report)
}

// Analyze summarizes the requested students synchronously.
func (h *AnalysisHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	var req StudentsRequest
	if err := api.DecodeJSON(r, &req, false); err != nil {
		api.HandleError(w, err)
		return
	}
	if len(req.StudentIDs) == 0 {
		api.Error(w, http.StatusBadRequest, "student_ids is required")
		return
	}

	result, err := h.svc.AnalyzeStudents(r.Context(), req.StudentIDs)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, result)
}

// Cohort runs the batch-and-reduce pipeline synchronously. An empty body
// covers every student.
func (h *AnalysisHandler) Cohort(w http.ResponseWriter, r *http.Request) {
	var req StudentsRequest
	if err := api.DecodeJSON(r, &req, true); err != nil {
		api.HandleError(w, err)
		return
	}

	result, err := h.svc.SummarizeCohort(r.Context(), req.StudentIDs)
	if err != nil {
		api.HandleError(w, err)
		return
	}
	api.Success(w, http.StatusOK, result)
}
