package service

import "context"

// TxRepositories are the repositories Process needs inside one
// transaction so a report is never stored without its job completing.
type TxRepositories interface {
	SummaryJobs() SummaryJobRepository
	SummaryReports() SummaryReportRepository
}

// TxRunner runs fn in a transaction, committing only when it returns nil.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(repos TxRepositories) error) error
}
