package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/jeeinsight/internal/domain"
)

const summaryJobColumns = `id, student_ids, mode, status, retries, error, report_id, created_at, processed_at`

type SummaryJobRepository struct {
	db dbtx
}

func NewSummaryJobRepository(pool *pgxpool.Pool) *SummaryJobRepository {
	return &SummaryJobRepository{db: pool}
}

func NewSummaryJobRepositoryWithTx(tx pgx.Tx) *SummaryJobRepository {
	return &SummaryJobRepository{db: tx}
}

func (r *SummaryJobRepository) Create(ctx context.Context, job *domain.SummaryJob) error {
	studentIDs := job.StudentIDs
	if studentIDs == nil {
		studentIDs = []string{}
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO summary_jobs (id, student_ids, mode, status, retries, error, report_id, created_at, processed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		job.ID, studentIDs, job.Mode, job.Status, job.Retries, nullableString(job.Error),
		nullableString(job.ReportID), job.CreatedAt, job.ProcessedAt,
	)
	return err
}

func (r *SummaryJobRepository) GetByID(ctx context.Context, id string) (*domain.SummaryJob, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+summaryJobColumns+` FROM summary_jobs WHERE id = $1`,
		id,
	)
	job, err := scanSummaryJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, err
	}
	return job, nil
}

// ClaimPending moves up to limit pending jobs to processing and returns them.
// Concurrent workers never claim the same job.
func (r *SummaryJobRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.SummaryJob, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.Query(ctx,
		`WITH cte AS (
			 SELECT id
			 FROM summary_jobs
			 WHERE status = $1
			 ORDER BY created_at ASC
			 FOR UPDATE SKIP LOCKED
			 LIMIT $2
		 )
		 UPDATE summary_jobs
		 SET status = $3,
		     error = NULL,
		     processed_at = NULL,
		     claimed_at = NOW()
		 FROM cte
		 WHERE summary_jobs.id = cte.id
		 RETURNING summary_jobs.id, summary_jobs.student_ids, summary_jobs.mode, summary_jobs.status,
		           summary_jobs.retries, summary_jobs.error, summary_jobs.report_id,
		           summary_jobs.created_at, summary_jobs.processed_at`,
		domain.SummaryJobStatusPending, limit, domain.SummaryJobStatusProcessing,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSummaryJobRows(rows)
}

func (r *SummaryJobRepository) UpdateStatus(ctx context.Context, id string, status domain.SummaryJobStatus, errMsg string) error {
	var processedAt *time.Time
	if status == domain.SummaryJobStatusCompleted || status == domain.SummaryJobStatusFailed {
		now := time.Now().UTC()
		processedAt = &now
	}

	cmdTag, err := r.db.Exec(ctx,
		`UPDATE summary_jobs SET status = $1, error = $2, processed_at = $3 WHERE id = $4`,
		status, nullableString(errMsg), processedAt, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

// Complete marks the job done and links the report it produced.
func (r *SummaryJobRepository) Complete(ctx context.Context, id, reportID string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE summary_jobs
		 SET status = $1, report_id = $2, error = NULL, processed_at = $3
		 WHERE id = $4`,
		domain.SummaryJobStatusCompleted, reportID, time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

func (r *SummaryJobRepository) IncrementRetries(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE summary_jobs SET retries = retries + 1 WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

// ClaimNextJob claims the oldest pending job. It returns nil when the
// queue is empty.
func (r *SummaryJobRepository) ClaimNextJob(ctx context.Context) (*domain.SummaryJob, error) {
	jobs, err := r.ClaimPending(ctx, 1)
	if err != nil || len(jobs) == 0 {
		return nil, err
	}
	return jobs[0], nil
}

// ReleaseStale returns processing jobs claimed more than olderThan ago to
// pending, so work held by a crashed process is picked up again.
func (r *SummaryJobRepository) ReleaseStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE summary_jobs
		 SET status = $1, claimed_at = NULL
		 WHERE status = $2
		   AND (claimed_at IS NULL OR claimed_at < $3)`,
		domain.SummaryJobStatusPending, domain.SummaryJobStatusProcessing, time.Now().UTC().Add(-olderThan),
	)
	if err != nil {
		return 0, err
	}
	return cmdTag.RowsAffected(), nil
}

func (r *SummaryJobRepository) UpdateJobStatus(ctx context.Context, jobID string, status domain.SummaryJobStatus, errMsg string) error {
	return r.UpdateStatus(ctx, jobID, status, errMsg)
}

func scanSummaryJob(row pgx.Row) (*domain.SummaryJob, error) {
	var job domain.SummaryJob
	var errMsg, reportID pgtype.Text
	if err := row.Scan(&job.ID, &job.StudentIDs, &job.Mode, &job.Status, &job.Retries,
		&errMsg, &reportID, &job.CreatedAt, &job.ProcessedAt); err != nil {
		return nil, err
	}
	if errMsg.Valid {
		job.Error = errMsg.String
	}
	if reportID.Valid {
		job.ReportID = reportID.String
	}
	return &job, nil
}

func scanSummaryJobRows(rows pgx.Rows) ([]*domain.SummaryJob, error) {
	var jobs []*domain.SummaryJob
	for rows.Next() {
		job, err := scanSummaryJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}
