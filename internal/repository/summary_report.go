package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/cloo-solutions/jeeinsight/internal/domain"
	"github.com/cloo-solutions/jeeinsight/internal/pagination"
)

const summaryReportColumns = `id, job_id, student_ids, mode, summary, no_data, calls, levels, chunks, archive_key, created_at`

type SummaryReportRepository struct {
	db dbtx
}

func NewSummaryReportRepository(pool *pgxpool.Pool) *SummaryReportRepository {
	return &SummaryReportRepository{db: pool}
}

func NewSummaryReportRepositoryWithTx(tx pgx.Tx) *SummaryReportRepository {
	return &SummaryReportRepository{db: tx}
}

func (r *SummaryReportRepository) Create(ctx context.Context, report *domain.SummaryReport) error {
	var embedding *pgvector.Vector
	if len(report.Embedding) > 0 {
		vec := pgvector.NewVector(report.Embedding)
		embedding = &vec
	}
	studentIDs := report.StudentIDs
	if studentIDs == nil {
		studentIDs = []string{}
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO summary_reports (id, job_id, student_ids, mode, summary, no_data, calls, levels, chunks, archive_key, embedding, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		report.ID, nullableString(report.JobID), studentIDs, report.Mode, report.Summary, report.NoData,
		report.Calls, report.Levels, report.Chunks, nullableString(report.ArchiveKey), embedding, report.CreatedAt,
	)
	return err
}

func (r *SummaryReportRepository) GetByID(ctx context.Context, id string) (*domain.SummaryReport, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+summaryReportColumns+` FROM summary_reports WHERE id = $1`,
		id,
	)
	report, err := scanSummaryReport(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrReportNotFound
		}
		return nil, err
	}
	return report, nil
}

// List returns reports newest first, starting after cursor when it is set.
func (r *SummaryReportRepository) List(ctx context.Context, cursor *pagination.Cursor, limit int) ([]*domain.SummaryReport, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error
	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT `+summaryReportColumns+`
			 FROM summary_reports
			 WHERE (created_at, id) < ($1, $2)
			 ORDER BY created_at DESC, id DESC
			 LIMIT $3`,
			cursor.CreatedAt, cursor.ID, limit,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT `+summaryReportColumns+`
			 FROM summary_reports
			 ORDER BY created_at DESC, id DESC
			 LIMIT $1`,
			limit,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSummaryReportRows(rows)
}

// Search orders embedded reports by cosine distance to embedding.
func (r *SummaryReportRepository) Search(ctx context.Context, embedding []float32, limit int) ([]*domain.SummaryReport, error) {
	if limit <= 0 {
		limit = 5
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+summaryReportColumns+`
		 FROM summary_reports
		 WHERE embedding IS NOT NULL
		 ORDER BY embedding <=> $1
		 LIMIT $2`,
		pgvector.NewVector(embedding), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSummaryReportRows(rows)
}

func scanSummaryReport(row pgx.Row) (*domain.SummaryReport, error) {
	var report domain.SummaryReport
	var jobID, archiveKey pgtype.Text
	if err := row.Scan(&report.ID, &jobID, &report.StudentIDs, &report.Mode, &report.Summary, &report.NoData,
		&report.Calls, &report.Levels, &report.Chunks, &archiveKey, &report.CreatedAt); err != nil {
		return nil, err
	}
	if jobID.Valid {
		report.JobID = jobID.String
	}
	if archiveKey.Valid {
		report.ArchiveKey = archiveKey.String
	}
	return &report, nil
}

func scanSummaryReportRows(rows pgx.Rows) ([]*domain.SummaryReport, error) {
	var reports []*domain.SummaryReport
	for rows.Next() {
		report, err := scanSummaryReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}
