package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/cloo-solutions/jeeinsight/internal/domain"
)

// SpanAttributes tags a span with the pipeline context it runs in.
type SpanAttributes struct {
	JobID     string
	Operation string
	// Students is the number of students in scope; zero is left unset.
	Students int
	// Level is the reduction level; zero is left unset.
	Level int
}

// Span wraps a sentry span. The zero value is usable and does nothing.
type Span struct {
	inner *sentry.Span
}

// StartSpan opens a child of the span in ctx, or a new transaction when
// ctx carries none.
func StartSpan(ctx context.Context, name string, attrs SpanAttributes) (context.Context, *Span) {
	var span *sentry.Span
	if parent := sentry.SpanFromContext(ctx); parent != nil {
		span = parent.StartChild(name)
	} else {
		span = sentry.StartSpan(ctx, name, sentry.WithTransactionName(name))
	}

	if attrs.JobID != "" {
		span.SetTag("job_id", attrs.JobID)
	}
	if attrs.Operation != "" {
		span.SetTag("operation", attrs.Operation)
	}
	if attrs.Students > 0 {
		span.SetData("students", attrs.Students)
	}
	if attrs.Level > 0 {
		span.SetData("reduce_level", attrs.Level)
	}
	return span.Context(), &Span{inner: span}
}

// End finishes the span.
func (s *Span) End() {
	if s.inner != nil {
		s.inner.Finish()
	}
}

// SetData attaches a value to the span.
func (s *Span) SetData(key string, value any) {
	if s.inner != nil {
		s.inner.SetData(key, value)
	}
}

// RecordPipeline attaches the counters of a finished summarize run.
func (s *Span) RecordPipeline(chunks, levels, calls int) {
	s.SetData("chunks", chunks)
	s.SetData("levels", levels)
	s.SetData("generator_calls", calls)
}

// SetError marks the span failed. Caller mistakes (validation, not found)
// only set the status; anything else is also captured as an event.
func (s *Span) SetError(err error) {
	if s.inner == nil || err == nil {
		return
	}
	s.inner.Status = spanStatus(err)
	if code := domain.ErrorCode(err); code != "" {
		s.inner.SetTag("error_code", code)
	}
	if reportable(err) {
		CaptureError(s.inner.Context(), err)
	}
}

// Context returns the context carrying the span.
func (s *Span) Context() context.Context {
	if s.inner != nil {
		return s.inner.Context()
	}
	return context.Background()
}

func spanStatus(err error) sentry.SpanStatus {
	if errors.Is(err, context.DeadlineExceeded) {
		return sentry.SpanStatusDeadlineExceeded
	}
	switch domain.ErrorCode(err) {
	case domain.ErrCodeValidation:
		return sentry.SpanStatusInvalidArgument
	case domain.ErrCodeNotFound:
		return sentry.SpanStatusNotFound
	case domain.ErrCodeExternalService:
		return sentry.SpanStatusUnavailable
	}
	if errors.Is(err, context.Canceled) {
		return sentry.SpanStatusCanceled
	}
	return sentry.SpanStatusInternalError
}

func reportable(err error) bool {
	switch domain.ErrorCode(err) {
	case domain.ErrCodeValidation, domain.ErrCodeNotFound:
		return false
	}
	return true
}

// CaptureError reports err on the hub in ctx, falling back to the global hub.
func CaptureError(ctx context.Context, err error) {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.CaptureException(err)
		return
	}
	sentry.CaptureException(err)
}

// AddBreadcrumb records a pipeline step on the current scope.
func AddBreadcrumb(ctx context.Context, category, message string) {
	crumb := &sentry.Breadcrumb{
		Category:  category,
		Message:   message,
		Level:     sentry.LevelInfo,
		Timestamp: time.Now(),
	}
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		hub.AddBreadcrumb(crumb, nil)
		return
	}
	sentry.AddBreadcrumb(crumb)
}
