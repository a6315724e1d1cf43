package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cloo-solutions/jeeinsight/internal/domain"
	"github.com/cloo-solutions/jeeinsight/internal/logging"
	"github.com/cloo-solutions/jeeinsight/internal/pagination"
	"github.com/cloo-solutions/jeeinsight/internal/telemetry"
)

const (
	defaultReportPageSize = 20
	maxReportPageSize     = 100
	defaultSearchLimit    = 5
)

// SummaryJobRepository persists summary jobs.
type SummaryJobRepository interface {
	Create(ctx context.Context, job *domain.SummaryJob) error
	GetByID(ctx context.Context, id string) (*domain.SummaryJob, error)
	Complete(ctx context.Context, id, reportID string) error
}

// SummaryReportRepository persists finished reports.
type SummaryReportRepository interface {
	Create(ctx context.Context, report *domain.SummaryReport) error
	GetByID(ctx context.Context, id string) (*domain.SummaryReport, error)
	List(ctx context.Context, cursor *pagination.Cursor, limit int) ([]*domain.SummaryReport, error)
	Search(ctx context.Context, embedding []float32, limit int) ([]*domain.SummaryReport, error)
}

// Analyzer produces summaries for a job.
type Analyzer interface {
	AnalyzeStudents(ctx context.Context, ids []string) (*AnalysisResult, error)
	SummarizeCohort(ctx context.Context, ids []string) (*AnalysisResult, error)
}

// ReportArchive stores report text outside the database.
type ReportArchive interface {
	PutReport(ctx context.Context, key string, body []byte) error
	DeleteReport(ctx context.Context, key string) error
	GenerateDownloadURL(ctx context.Context, key string) (string, error)
}

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// SubmitSummaryInput is a request for an asynchronous summary.
type SubmitSummaryInput struct {
	StudentIDs []string           `json:"student_ids"`
	Mode       domain.SummaryMode `json:"mode"`
}

// SummaryJobService queues summaries, runs them for the worker and serves
// the stored reports.
type SummaryJobService struct {
	jobs     SummaryJobRepository
	reports  SummaryReportRepository
	tx       TxRunner
	analyzer Analyzer
	archive  ReportArchive
	embedder EmbeddingClient
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
	onQueued func()
}

// NewSummaryJobService wires the service. archive and embedder may be nil.
func NewSummaryJobService(
	jobs SummaryJobRepository,
	reports SummaryReportRepository,
	tx TxRunner,
	analyzer Analyzer,
	archive ReportArchive,
	embedder EmbeddingClient,
	logger *zap.Logger,
) *SummaryJobService {
	return &SummaryJobService{
		jobs:     jobs,
		reports:  reports,
		tx:       tx,
		analyzer: analyzer,
		archive:  archive,
		embedder: embedder,
		logger:   logging.OrNop(logger),
		now:      func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
	}
}

// OnQueued registers fn to run after each job is stored, typically to wake
// the worker.
func (s *SummaryJobService) OnQueued(fn func()) {
	s.onQueued = fn
}

// Submit validates and queues a job.
func (s *SummaryJobService) Submit(ctx context.Context, input SubmitSummaryInput) (*domain.SummaryJob, error) {
	mode := input.Mode
	if mode == "" {
		mode = domain.SummaryModeDirect
	}
	if !domain.IsValidSummaryMode(mode) {
		return nil, domain.ErrInvalidJobMode
	}

	ids := cleanIDs(input.StudentIDs)
	if mode == domain.SummaryModeDirect && len(ids) == 0 {
		return nil, domain.ErrNoStudentsSelected
	}

	job := domain.NewSummaryJob(s.newID(), ids, mode, s.now())
	if err := domain.ValidateSummaryJob(job); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid summary job", err)
	}

	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create summary job: %w", err)
	}

	s.logger.Info("summary job queued",
		zap.String("job_id", job.ID),
		zap.String("mode", string(job.Mode)),
		zap.Int("students", len(job.StudentIDs)),
	)
	if s.onQueued != nil {
		s.onQueued()
	}
	return job, nil
}

func (s *SummaryJobService) Get(ctx context.Context, id string) (*domain.SummaryJob, error) {
	return s.jobs.GetByID(ctx, id)
}

// Process runs one claimed job and stores its report. The report is saved
// and the job completed in one transaction.
func (s *SummaryJobService) Process(ctx context.Context, job *domain.SummaryJob) error {
	ctx, span := telemetry.StartSpan(ctx, "summary_job.process", telemetry.SpanAttributes{
		JobID:     job.ID,
		Operation: string(job.Mode),
		Students:  len(job.StudentIDs),
	})
	defer span.End()

	var (
		result *AnalysisResult
		err    error
	)
	switch job.Mode {
	case domain.SummaryModeCohort:
		result, err = s.analyzer.SummarizeCohort(ctx, job.StudentIDs)
	default:
		result, err = s.analyzer.AnalyzeStudents(ctx, job.StudentIDs)
	}
	if err != nil {
		span.SetError(err)
		return err
	}

	report := &domain.SummaryReport{
		ID:         s.newID(),
		JobID:      job.ID,
		StudentIDs: result.StudentIDs,
		Mode:       result.Mode,
		Summary:    result.Summary,
		NoData:     result.NoData,
		Calls:      result.Calls,
		Levels:     result.Levels,
		Chunks:     result.Chunks,
		CreatedAt:  s.now(),
	}

	if s.archive != nil {
		key := reportKey(report.ID)
		if err := s.archive.PutReport(ctx, key, []byte(RenderReport(report))); err != nil {
			span.SetError(err)
			return fmt.Errorf("failed to archive report: %w", err)
		}
		report.ArchiveKey = key
	}

	if s.embedder != nil && !report.NoData {
		embedding, err := s.embedder.GenerateEmbedding(ctx, report.Summary)
		if err != nil {
			// The report is still useful without search.
			s.logger.Warn("failed to embed report", zap.String("job_id", job.ID), zap.Error(err))
		} else {
			report.Embedding = embedding
		}
	}

	err = s.tx.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.SummaryReports().Create(ctx, report); err != nil {
			return fmt.Errorf("failed to create report: %w", err)
		}
		if err := repos.SummaryJobs().Complete(ctx, job.ID, report.ID); err != nil {
			return fmt.Errorf("failed to complete job: %w", err)
		}
		return nil
	})
	if err != nil {
		span.SetError(err)
		s.discardArchive(ctx, report.ArchiveKey)
		return err
	}

	s.logger.Info("summary job completed",
		zap.String("job_id", job.ID),
		zap.String("report_id", report.ID),
		zap.Int("calls", report.Calls),
		zap.Int("levels", report.Levels),
	)
	return nil
}

// discardArchive removes an archived report whose row was never stored.
// The retry archives it again under a new id.
func (s *SummaryJobService) discardArchive(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.archive.DeleteReport(ctx, key); err != nil {
		s.logger.Warn("failed to discard archived report", zap.String("key", key), zap.Error(err))
	}
}

func (s *SummaryJobService) GetReport(ctx context.Context, id string) (*domain.SummaryReport, error) {
	return s.reports.GetByID(ctx, id)
}

// ListReports returns reports newest first.
func (s *SummaryJobService) ListReports(ctx context.Context, cursor string, limit int) (*pagination.PageResult[*domain.SummaryReport], error) {
	limit = pagination.Limit(limit, defaultReportPageSize, maxReportPageSize)

	decoded, err := pagination.DecodeCursor(cursor)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
	}

	// One extra row tells whether another page exists.
	items, err := s.reports.List(ctx, decoded, limit+1)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	return pagination.Page(items, limit, func(r *domain.SummaryReport) pagination.Cursor {
		return pagination.Cursor{ID: r.ID, CreatedAt: r.CreatedAt}
	}), nil
}

// SearchReports finds reports whose summary is closest to query.
func (s *SummaryJobService) SearchReports(ctx context.Context, query string, limit int) ([]*domain.SummaryReport, error) {
	if s.embedder == nil {
		return nil, ErrSearchNotConfigured
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "query is required")
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	embedding, err := s.embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, domain.ExternalServiceError("failed to embed query", err)
	}
	return s.reports.Search(ctx, embedding, limit)
}

// DownloadURL returns a presigned link to the archived report.
func (s *SummaryJobService) DownloadURL(ctx context.Context, reportID string) (string, error) {
	if s.archive == nil {
		return "", domain.ErrArchiveNotConfigured
	}
	report, err := s.reports.GetByID(ctx, reportID)
	if err != nil {
		return "", err
	}
	if report.ArchiveKey == "" {
		return "", domain.NewDomainError(domain.ErrCodeNotFound, "report was not archived")
	}
	url, err := s.archive.GenerateDownloadURL(ctx, report.ArchiveKey)
	if err != nil {
		return "", fmt.Errorf("failed to generate download URL: %w", err)
	}
	return url, nil
}

// ErrSearchNotConfigured is returned when no embedding client is set.
var ErrSearchNotConfigured = domain.NewDomainError(domain.ErrCodeValidation, "report search requires an embedding API key")

func reportKey(id string) string {
	return "reports/" + id + ".md"
}

// RenderReport formats a report as markdown for archiving and display.
func RenderReport(r *domain.SummaryReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Summary report %s\n\n", r.ID)
	if len(r.StudentIDs) > 0 {
		fmt.Fprintf(&b, "- Students: %s\n", strings.Join(r.StudentIDs, ", "))
	}
	fmt.Fprintf(&b, "- Mode: %s\n", r.Mode)
	fmt.Fprintf(&b, "- Model calls: %d, levels: %d, chunks: %d\n", r.Calls, r.Levels, r.Chunks)
	fmt.Fprintf(&b, "- Created: %s\n\n", r.CreatedAt.Format(time.RFC3339))
	b.WriteString(r.Summary)
	b.WriteString("\n")
	return b.String()
}
