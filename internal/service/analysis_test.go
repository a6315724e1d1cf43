package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/jeeinsight/internal/config"
	"github.com/cloo-solutions/jeeinsight/internal/dataset"
	"github.com/cloo-solutions/jeeinsight/internal/domain"
	"github.com/cloo-solutions/jeeinsight/internal/prompts"
)

const resultsCSV = `user_id,Physics Chapters,Marks in Physics,Chemistry Chapters,Marks in Chemistry,Strength in Physics
s1,Kinematics,4,Atomic Structure,0,yes
s2,Optics,2,Thermodynamics,4,no
s1,Laws of Motion,4,Thermodynamics,NaN,yes
s3,Optics,0,Atomic Structure,4,no
s4,Kinematics,4,Atomic Structure,4,yes
`

// MockGenerator is a mock implementation of llm.Generator
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func hasPrefix(prefix string) interface{} {
	return mock.MatchedBy(func(p string) bool { return strings.HasPrefix(p, prefix) })
}

func testPrompts(t *testing.T) *prompts.Set {
	t.Helper()
	s := prompts.Default()
	require.NoError(t, s.Overlay([]byte(`
single_student: "SINGLE:{{.Context}}"
multiple_students: "MULTI:{{.Context}}"
chunk: "CHUNK:{{.Context}}"
merge: "MERGE:{{.Context}}"
final: "FINAL:{{.Context}}"
`)))
	return s
}

func newAnalysisService(t *testing.T, gen *MockGenerator, directLimit int) *AnalysisService {
	t.Helper()
	ds, err := dataset.Parse(strings.NewReader(resultsCSV))
	require.NoError(t, err)
	opts := AnalysisOptions{
		Pipeline: config.PipelineOptions{
			BatchSize: 2, GroupSize: 5, Threshold: 5, Unit: domain.ChunkUnitStudent, Concurrency: 1,
		},
		DirectLimit: directLimit,
	}
	return NewAnalysisService(dataset.Static(ds), gen, testPrompts(t), opts, nil)
}

func TestAnalysisService_AnalyzeStudents_Single(t *testing.T) {
	gen := new(MockGenerator)
	svc := newAnalysisService(t, gen, 5)

	gen.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.HasPrefix(p, "SINGLE:") &&
			strings.Contains(p, "Kinematics") &&
			strings.Contains(p, "Laws of Motion") &&
			!strings.Contains(p, "s2")
	})).Return("s1 is strong in mechanics", nil).Once()

	res, err := svc.AnalyzeStudents(context.Background(), []string{" s1 "})

	require.NoError(t, err)
	assert.Equal(t, "s1 is strong in mechanics", res.Summary)
	assert.Equal(t, []string{"s1"}, res.StudentIDs)
	assert.Equal(t, domain.SummaryModeDirect, res.Mode)
	assert.Equal(t, 1, res.Calls)
	gen.AssertExpectations(t)
}

func TestAnalysisService_AnalyzeStudents_SingleNotFound(t *testing.T) {
	gen := new(MockGenerator)
	svc := newAnalysisService(t, gen, 5)

	res, err := svc.AnalyzeStudents(context.Background(), []string{"ghost"})

	require.NoError(t, err)
	assert.True(t, res.NoData)
	assert.Equal(t, "No data found for student: ghost", res.Summary)
	assert.Equal(t, []string{"ghost"}, res.Missing)
	assert.Zero(t, res.Calls)
	gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestAnalysisService_AnalyzeStudents_Multiple(t *testing.T) {
	gen := new(MockGenerator)
	svc := newAnalysisService(t, gen, 5)

	gen.On("Generate", mock.Anything, hasPrefix("MULTI:")).Return("comparison", nil).Once()

	res, err := svc.AnalyzeStudents(context.Background(), []string{"s2", "ghost", "s1", "s2"})

	require.NoError(t, err)
	assert.Equal(t, "comparison", res.Summary)
	assert.Equal(t, []string{"s2", "s1"}, res.StudentIDs)
	assert.Equal(t, []string{"ghost"}, res.Missing)
	assert.Equal(t, domain.SummaryModeDirect, res.Mode)
	gen.AssertExpectations(t)

	prompt := gen.Calls[0].Arguments.String(1)
	assert.Less(t, strings.Index(prompt, "s2"), strings.Index(prompt, "s1"))
}

func TestAnalysisService_AnalyzeStudents_MultipleNoneFound(t *testing.T) {
	gen := new(MockGenerator)
	svc := newAnalysisService(t, gen, 5)

	res, err := svc.AnalyzeStudents(context.Background(), []string{"x", "y"})

	require.NoError(t, err)
	assert.True(t, res.NoData)
	assert.Equal(t, "No data found for the given students.", res.Summary)
	gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestAnalysisService_AnalyzeStudents_Empty(t *testing.T) {
	svc := newAnalysisService(t, new(MockGenerator), 5)

	_, err := svc.AnalyzeStudents(context.Background(), []string{" ", ""})

	assert.ErrorIs(t, err, domain.ErrNoStudentsSelected)
	assert.True(t, domain.IsCode(err, domain.ErrCodeValidation))
}

func TestAnalysisService_AnalyzeStudents_FallsBackToPipeline(t *testing.T) {
	gen := new(MockGenerator)
	svc := newAnalysisService(t, gen, 2)

	gen.On("Generate", mock.Anything, hasPrefix("CHUNK:")).Return("chunk summary", nil).Twice()
	gen.On("Generate", mock.Anything, hasPrefix("FINAL:")).Return("cohort report", nil).Once()

	res, err := svc.AnalyzeStudents(context.Background(), []string{"s1", "s2", "s3", "s4"})

	require.NoError(t, err)
	assert.Equal(t, domain.SummaryModeCohort, res.Mode)
	assert.Equal(t, "cohort report", res.Summary)
	assert.Equal(t, 2, res.Chunks)
	assert.Equal(t, 3, res.Calls)
	gen.AssertExpectations(t)
}

func TestAnalysisService_AnalyzeStudents_GeneratorError(t *testing.T) {
	gen := new(MockGenerator)
	svc := newAnalysisService(t, gen, 5)

	gen.On("Generate", mock.Anything, mock.Anything).
		Return("", domain.ExternalServiceError(domain.ErrGeneration.Message, errors.New("401")))

	_, err := svc.AnalyzeStudents(context.Background(), []string{"s1"})

	assert.ErrorIs(t, err, domain.ErrGeneration)
	assert.True(t, domain.IsCode(err, domain.ErrCodeExternalService))
}

func TestAnalysisService_SummarizeCohort_All(t *testing.T) {
	gen := new(MockGenerator)
	svc := newAnalysisService(t, gen, 5)

	// Four students, batch size 2: two chunks, then one final call.
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.HasPrefix(p, "CHUNK:") && strings.Contains(p, "s1") && strings.Contains(p, "s2")
	})).Return("first half", nil).Once()
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.HasPrefix(p, "CHUNK:") && strings.Contains(p, "s3") && strings.Contains(p, "s4")
	})).Return("second half", nil).Once()
	gen.On("Generate", mock.Anything, "FINAL:first half\n\nsecond half").Return("whole cohort", nil).Once()

	res, err := svc.SummarizeCohort(context.Background(), nil)

	require.NoError(t, err)
	assert.Equal(t, "whole cohort", res.Summary)
	assert.Equal(t, []string{"s1", "s2", "s3", "s4"}, res.StudentIDs)
	assert.Equal(t, 3, res.Calls)
	assert.Equal(t, 2, res.Chunks)
	assert.Equal(t, 1, res.Levels)
	gen.AssertExpectations(t)
}

func TestAnalysisService_SummarizeCohort_NoneFound(t *testing.T) {
	gen := new(MockGenerator)
	svc := newAnalysisService(t, gen, 5)

	res, err := svc.SummarizeCohort(context.Background(), []string{"nobody"})

	require.NoError(t, err)
	assert.True(t, res.NoData)
	assert.Equal(t, []string{"nobody"}, res.Missing)
	gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestAnalysisService_SummarizeCohort_EmptyDataset(t *testing.T) {
	gen := new(MockGenerator)
	ds, err := dataset.Parse(strings.NewReader("user_id,Marks in Physics\n"))
	require.NoError(t, err)
	svc := NewAnalysisService(dataset.Static(ds), gen, testPrompts(t), AnalysisOptions{
		Pipeline: config.PipelineOptions{BatchSize: 2, GroupSize: 5, Concurrency: 1},
	}, nil)

	res, err := svc.SummarizeCohort(context.Background(), nil)

	require.NoError(t, err)
	assert.True(t, res.NoData)
	assert.Equal(t, domain.NoDataMessage, res.Summary)
	assert.Zero(t, res.Calls)
}

func TestAnalysisService_SummarizeCohort_InvalidOptions(t *testing.T) {
	ds, err := dataset.Parse(strings.NewReader(resultsCSV))
	require.NoError(t, err)
	svc := NewAnalysisService(dataset.Static(ds), new(MockGenerator), testPrompts(t), AnalysisOptions{
		Pipeline: config.PipelineOptions{BatchSize: 0, GroupSize: 5},
	}, nil)

	_, err = svc.SummarizeCohort(context.Background(), nil)

	assert.ErrorIs(t, err, domain.ErrInvalidBatchSize)
}

func TestAnalysisService_Scores(t *testing.T) {
	svc := newAnalysisService(t, new(MockGenerator), 5)

	report, err := svc.Scores(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Students)
	require.NotEmpty(t, report.Subjects)
	assert.Equal(t, domain.SubjectPhysics, report.Subjects[0].Subject)
	assert.Equal(t, 8.0, report.Subjects[0].Total)

	cohort, err := svc.Scores(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 4, cohort.Students)

	_, err = svc.Scores(context.Background(), "ghost")
	assert.ErrorIs(t, err, domain.ErrStudentNotFound)
}

func TestAnalysisService_Students(t *testing.T) {
	svc := newAnalysisService(t, new(MockGenerator), 5)

	ids, err := svc.Students(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2", "s3", "s4"}, ids)
}
