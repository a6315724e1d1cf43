package telemetry

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/jeeinsight/internal/domain"
)

func TestInit_NoDSN(t *testing.T) {
	flush := Init(Config{}, nil)
	require.NotNil(t, flush)
	flush()
}

func TestInit_BadDSNIsIgnored(t *testing.T) {
	flush := Init(Config{DSN: "not a dsn"}, nil)
	require.NotNil(t, flush)
	flush()
}

func TestSampler(t *testing.T) {
	sample := sampler(0.25)

	root := &sentry.Span{Name: "GET /students/{id}/scores"}
	assert.Equal(t, 0.25, sample(sentry.SamplingContext{Span: root}))

	health := &sentry.Span{Name: "GET /health"}
	assert.Equal(t, 0.0, sample(sentry.SamplingContext{Span: health}))

	child := &sentry.Span{Name: "summarize.pipeline", ParentSpanID: sentry.SpanID{1}, Sampled: sentry.SampledTrue}
	assert.Equal(t, 1.0, sample(sentry.SamplingContext{Span: child}))

	child.Sampled = sentry.SampledFalse
	assert.Equal(t, 0.0, sample(sentry.SamplingContext{Span: child}))
}

func TestStartSpan_Nested(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "summary_job.process", SpanAttributes{JobID: "job-1", Operation: "cohort", Students: 12})
	require.NotNil(t, root)
	defer root.End()

	childCtx, child := StartSpan(ctx, "summarize.merge_level", SpanAttributes{Level: 2})
	child.SetData("groups", 3)
	child.RecordPipeline(4, 2, 7)
	child.SetError(errors.New("boom"))
	child.End()

	assert.NotNil(t, childCtx)
	assert.NotNil(t, root.Context())
}

func TestSpan_ZeroValue(t *testing.T) {
	var s Span
	s.End()
	s.SetData("k", 1)
	s.RecordPipeline(1, 0, 1)
	s.SetError(errors.New("x"))
	assert.Equal(t, context.Background(), s.Context())
}

func TestSpanStatus(t *testing.T) {
	tests := []struct {
		err  error
		want sentry.SpanStatus
	}{
		{domain.ErrInvalidBatchSize, sentry.SpanStatusInvalidArgument},
		{fmt.Errorf("load: %w", domain.ErrStudentNotFound), sentry.SpanStatusNotFound},
		{domain.ErrRateLimited, sentry.SpanStatusUnavailable},
		{fmt.Errorf("wait: %w", context.DeadlineExceeded), sentry.SpanStatusDeadlineExceeded},
		{domain.ExternalServiceError("groq", context.DeadlineExceeded), sentry.SpanStatusDeadlineExceeded},
		{fmt.Errorf("wait: %w", context.Canceled), sentry.SpanStatusCanceled},
		{errors.New("boom"), sentry.SpanStatusInternalError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, spanStatus(tt.err), tt.err.Error())
	}
}

func TestReportable(t *testing.T) {
	assert.False(t, reportable(domain.ErrNoStudentsSelected))
	assert.False(t, reportable(domain.ErrJobNotFound))
	assert.True(t, reportable(domain.ErrGeneration))
	assert.True(t, reportable(errors.New("boom")))
}

func TestCaptureHelpers_NoClient(t *testing.T) {
	ctx := context.Background()
	CaptureError(ctx, errors.New("x"))
	AddBreadcrumb(ctx, "summarize", "level done")
}
