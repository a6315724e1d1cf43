package jobs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cloo-solutions/jeeinsight/internal/domain"
	"github.com/cloo-solutions/jeeinsight/internal/logging"
)

const (
	// MaxRetries is the maximum number of retries for a failed job
	MaxRetries = 3

	// StaleClaimAfter is how long a job may sit in processing before it
	// is treated as abandoned and returned to the queue.
	StaleClaimAfter = 30 * time.Minute
)

// SummaryJobRepository defines the interface for summary job persistence
type SummaryJobRepository interface {
	// ClaimNextJob claims the oldest pending job, or returns nil when
	// there is none.
	ClaimNextJob(ctx context.Context) (*domain.SummaryJob, error)

	// ReleaseStale returns jobs claimed more than olderThan ago to pending.
	ReleaseStale(ctx context.Context, olderThan time.Duration) (int64, error)

	// UpdateJobStatus updates the status of a summary job
	UpdateJobStatus(ctx context.Context, jobID string, status domain.SummaryJobStatus, errMsg string) error

	// IncrementRetries increments the retry count for a job
	IncrementRetries(ctx context.Context, jobID string) error
}

// SummaryProcessor runs a claimed job to completion, including marking it
// completed.
type SummaryProcessor interface {
	Process(ctx context.Context, job *domain.SummaryJob) error
}

// SummaryWorker processes summary jobs
type SummaryWorker struct {
	repo       SummaryJobRepository
	processor  SummaryProcessor
	logger     *zap.Logger
	staleAfter time.Duration
}

// NewSummaryWorker creates a new SummaryWorker instance
func NewSummaryWorker(repo SummaryJobRepository, processor SummaryProcessor, logger *zap.Logger) *SummaryWorker {
	return &SummaryWorker{
		repo:       repo,
		processor:  processor,
		logger:     logging.OrNop(logger),
		staleAfter: StaleClaimAfter,
	}
}

// ProcessJobs implements the JobProcessor interface. It claims one job at
// a time until the queue is empty or ctx is done. A claimed job always
// runs to completion, even when ctx is cancelled mid-job.
func (w *SummaryWorker) ProcessJobs(ctx context.Context) error {
	released, err := w.repo.ReleaseStale(ctx, w.staleAfter)
	if err != nil {
		return fmt.Errorf("failed to release stale jobs: %w", err)
	}
	if released > 0 {
		w.logger.Warn("returned abandoned jobs to the queue", zap.Int64("count", released))
	}

	processed := 0
	for ctx.Err() == nil {
		job, err := w.repo.ClaimNextJob(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			return fmt.Errorf("failed to claim pending job: %w", err)
		}
		if job == nil {
			break
		}

		if err := w.processJob(context.WithoutCancel(ctx), job); err != nil {
			w.logger.Error("error processing job", zap.String("job_id", job.ID), zap.Error(err))
		}
		processed++
	}

	if processed > 0 {
		w.logger.Info("processed summary jobs", zap.Int("count", processed))
	}
	return nil
}

func (w *SummaryWorker) processJob(ctx context.Context, job *domain.SummaryJob) error {
	w.logger.Info("processing job",
		zap.String("job_id", job.ID),
		zap.String("mode", string(job.Mode)),
		zap.Int("students", len(job.StudentIDs)),
	)

	if err := w.processor.Process(ctx, job); err != nil {
		return w.handleJobFailure(ctx, job, err)
	}

	w.logger.Info("job completed successfully", zap.String("job_id", job.ID))
	return nil
}

// handleJobFailure handles a failed job with retry logic
func (w *SummaryWorker) handleJobFailure(ctx context.Context, job *domain.SummaryJob, jobErr error) error {
	w.logger.Warn("job failed", zap.String("job_id", job.ID), zap.Error(jobErr))

	if err := w.repo.IncrementRetries(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to increment retries: %w", err)
	}

	// Bad input fails the same way on every attempt.
	permanent := domain.IsCode(jobErr, domain.ErrCodeValidation) || domain.IsCode(jobErr, domain.ErrCodeNotFound)

	if permanent || job.Retries+1 >= MaxRetries {
		w.logger.Warn("marking job as failed",
			zap.String("job_id", job.ID),
			zap.Int32("retries", job.Retries+1),
			zap.Bool("permanent", permanent),
		)
		errMsg := fmt.Sprintf("max retries exceeded: %v", jobErr)
		if permanent {
			errMsg = jobErr.Error()
		}
		if err := w.repo.UpdateJobStatus(ctx, job.ID, domain.SummaryJobStatusFailed, errMsg); err != nil {
			return fmt.Errorf("failed to update job status to failed: %w", err)
		}
		return nil
	}

	w.logger.Info("job will be retried",
		zap.String("job_id", job.ID),
		zap.Int32("attempt", job.Retries+1),
		zap.Int("max_retries", MaxRetries),
	)
	errMsg := fmt.Sprintf("retry %d: %v", job.Retries+1, jobErr)
	if err := w.repo.UpdateJobStatus(ctx, job.ID, domain.SummaryJobStatusPending, errMsg); err != nil {
		return fmt.Errorf("failed to reset job status to pending: %w", err)
	}

	return nil
}
