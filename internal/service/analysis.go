package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cloo-solutions/jeeinsight/internal/config"
	"github.com/cloo-solutions/jeeinsight/internal/dataset"
	"github.com/cloo-solutions/jeeinsight/internal/domain"
	"github.com/cloo-solutions/jeeinsight/internal/llm"
	"github.com/cloo-solutions/jeeinsight/internal/logging"
	"github.com/cloo-solutions/jeeinsight/internal/prompts"
	"github.com/cloo-solutions/jeeinsight/internal/summarize"
	"github.com/cloo-solutions/jeeinsight/internal/telemetry"
)

// DatasetSource returns the current results sheet.
type DatasetSource interface {
	Get(ctx context.Context) (*dataset.Dataset, error)
}

// AnalysisOptions configures an AnalysisService.
type AnalysisOptions struct {
	Pipeline config.PipelineOptions
	// DirectLimit is the most students sent in one prompt before switching
	// to the pipeline. Zero or less means no limit.
	DirectLimit int
}

// AnalysisResult is a strengths-and-weaknesses summary with call statistics.
type AnalysisResult struct {
	StudentIDs []string           `json:"student_ids"`
	Missing    []string           `json:"missing,omitempty"`
	Mode       domain.SummaryMode `json:"mode"`
	Summary    string             `json:"summary"`
	NoData     bool               `json:"no_data"`
	Calls      int                `json:"calls"`
	Levels     int                `json:"levels"`
	Chunks     int                `json:"chunks"`
}

// AnalysisService answers summary and score requests over the dataset.
type AnalysisService struct {
	data      DatasetSource
	gen       llm.Generator
	templates summarize.Templates
	opts      AnalysisOptions
	logger    *zap.Logger
}

func NewAnalysisService(data DatasetSource, gen llm.Generator, templates summarize.Templates, opts AnalysisOptions, logger *zap.Logger) *AnalysisService {
	return &AnalysisService{
		data:      data,
		gen:       gen,
		templates: templates,
		opts:      opts,
		logger:    logging.OrNop(logger),
	}
}

// Students lists every student in the sheet.
func (s *AnalysisService) Students(ctx context.Context) ([]string, error) {
	ds, err := s.data.Get(ctx)
	if err != nil {
		return nil, err
	}
	return ds.StudentIDs(), nil
}

// Scores aggregates one student's marks, or the whole cohort when id is "".
func (s *AnalysisService) Scores(ctx context.Context, id string) (*dataset.ScoreReport, error) {
	ds, err := s.data.Get(ctx)
	if err != nil {
		return nil, err
	}

	records := ds.Records
	if id = strings.TrimSpace(id); id != "" {
		records, err = ds.ForStudent(id)
		if err != nil {
			return nil, err
		}
	}

	report := ds.Schema.Aggregate(records)
	return &report, nil
}

// AnalyzeStudents summarizes the given students. One student uses the
// single-student prompt; several share one prompt, or go through the
// pipeline when there are more than DirectLimit of them. Unknown students
// are reported in Missing rather than failing the request.
func (s *AnalysisService) AnalyzeStudents(ctx context.Context, ids []string) (*AnalysisResult, error) {
	ids = cleanIDs(ids)
	if len(ids) == 0 {
		return nil, domain.ErrNoStudentsSelected
	}

	ctx, span := telemetry.StartSpan(ctx, "analysis.students", telemetry.SpanAttributes{Operation: "direct", Students: len(ids)})
	defer span.End()

	ds, err := s.data.Get(ctx)
	if err != nil {
		return nil, err
	}

	if len(ids) == 1 {
		return s.analyzeOne(ctx, ds, ids[0])
	}

	records, found := ds.ForStudents(ids)
	result := &AnalysisResult{
		StudentIDs: found,
		Missing:    missing(ids, found),
		Mode:       domain.SummaryModeDirect,
	}
	if len(found) == 0 {
		result.NoData = true
		result.Summary = "No data found for the given students."
		return result, nil
	}

	if s.opts.DirectLimit > 0 && len(found) > s.opts.DirectLimit {
		s.logger.Info("too many students for one prompt, using pipeline",
			zap.Int("students", len(found)),
			zap.Int("direct_limit", s.opts.DirectLimit),
		)
		res, err := s.runPipeline(ctx, records)
		if err != nil {
			span.SetError(err)
			return nil, err
		}
		result.Mode = domain.SummaryModeCohort
		applyResult(result, res)
		return result, nil
	}

	summary, err := s.generate(ctx, prompts.MultipleStudents, records)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	result.Summary = summary
	result.Calls = 1
	result.Levels = 1
	result.Chunks = 1
	return result, nil
}

func (s *AnalysisService) analyzeOne(ctx context.Context, ds *dataset.Dataset, id string) (*AnalysisResult, error) {
	result := &AnalysisResult{Mode: domain.SummaryModeDirect}

	records, err := ds.ForStudent(id)
	if err != nil {
		if domain.IsCode(err, domain.ErrCodeNotFound) {
			result.Missing = []string{id}
			result.NoData = true
			result.Summary = fmt.Sprintf("No data found for student: %s", id)
			return result, nil
		}
		return nil, err
	}

	summary, err := s.generate(ctx, prompts.SingleStudent, records)
	if err != nil {
		return nil, err
	}
	result.StudentIDs = []string{id}
	result.Summary = summary
	result.Calls = 1
	result.Levels = 1
	result.Chunks = 1
	return result, nil
}

// SummarizeCohort runs the batch-and-reduce pipeline over the given
// students, or over everyone when ids is empty.
func (s *AnalysisService) SummarizeCohort(ctx context.Context, ids []string) (*AnalysisResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "analysis.cohort", telemetry.SpanAttributes{Operation: "cohort", Students: len(ids)})
	defer span.End()

	ds, err := s.data.Get(ctx)
	if err != nil {
		return nil, err
	}

	ids = cleanIDs(ids)
	result := &AnalysisResult{Mode: domain.SummaryModeCohort}

	records := ds.Records
	if len(ids) > 0 {
		var found []string
		records, found = ds.ForStudents(ids)
		result.StudentIDs = found
		result.Missing = missing(ids, found)
		if len(found) == 0 {
			result.NoData = true
			result.Summary = "No data found for the given students."
			return result, nil
		}
	} else {
		result.StudentIDs = ds.StudentIDs()
	}

	res, err := s.runPipeline(ctx, records)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	applyResult(result, res)
	return result, nil
}

func (s *AnalysisService) runPipeline(ctx context.Context, records []domain.Record) (summarize.Result, error) {
	opts := s.opts.Pipeline
	p, err := summarize.NewPipeline(s.gen, s.templates, dataset.Serialize, summarize.Options{
		BatchSize:   opts.BatchSize,
		GroupSize:   opts.GroupSize,
		Threshold:   opts.Threshold,
		Concurrency: opts.Concurrency,
		Logger:      s.logger,
	})
	if err != nil {
		return summarize.Result{}, err
	}
	return p.Run(ctx, dataset.Units(records, opts.Unit))
}

func (s *AnalysisService) generate(ctx context.Context, template string, records []domain.Record) (string, error) {
	prompt, err := s.templates.Render(template, dataset.Serialize(records))
	if err != nil {
		return "", err
	}
	summary, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to generate summary: %w", err)
	}
	return summary, nil
}

func applyResult(dst *AnalysisResult, res summarize.Result) {
	dst.Summary = res.Summary
	dst.NoData = res.NoData
	dst.Calls = res.Calls
	dst.Levels = res.Levels
	dst.Chunks = res.Chunks
}

// cleanIDs trims ids and drops blanks and repeats, keeping first-seen order.
func cleanIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func missing(requested, found []string) []string {
	ok := make(map[string]bool, len(found))
	for _, id := range found {
		ok[id] = true
	}
	var out []string
	for _, id := range requested {
		if !ok[id] {
			out = append(out, id)
		}
	}
	return out
}
