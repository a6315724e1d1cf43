package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/jeeinsight/internal/service"
)

// TxRunner hands out job and report repositories bound to one transaction.
type TxRunner struct {
	pool *pgxpool.Pool
	opts pgx.TxOptions
}

func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool, opts: pgx.TxOptions{IsoLevel: pgx.ReadCommitted}}
}

// WithTx commits when fn returns nil and rolls back otherwise, including
// when fn panics.
func (r *TxRunner) WithTx(ctx context.Context, fn func(repos service.TxRepositories) error) error {
	return pgx.BeginTxFunc(ctx, r.pool, r.opts, func(tx pgx.Tx) error {
		return fn(&txRepos{
			jobs:    NewSummaryJobRepositoryWithTx(tx),
			reports: NewSummaryReportRepositoryWithTx(tx),
		})
	})
}

type txRepos struct {
	jobs    *SummaryJobRepository
	reports *SummaryReportRepository
}

func (r *txRepos) SummaryJobs() service.SummaryJobRepository       { return r.jobs }
func (r *txRepos) SummaryReports() service.SummaryReportRepository { return r.reports }
