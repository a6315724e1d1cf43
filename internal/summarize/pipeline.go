package summarize

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cloo-solutions/jeeinsight/internal/domain"
	"github.com/cloo-solutions/jeeinsight/internal/llm"
	"github.com/cloo-solutions/jeeinsight/internal/logging"
	"github.com/cloo-solutions/jeeinsight/internal/telemetry"
)

// Options configures a Pipeline.
type Options struct {
	// BatchSize is the number of units per leaf chunk.
	BatchSize int
	// GroupSize is the number of summaries merged per call.
	GroupSize int
	// Threshold is the count at or below which the final prompt runs.
	// Zero means GroupSize.
	Threshold int
	// Concurrency bounds the calls in flight within one level.
	Concurrency int
	Logger      *zap.Logger
}

// DefaultOptions match the batch and group sizes of the original reports.
func DefaultOptions() Options {
	return Options{BatchSize: 2, GroupSize: 5, Concurrency: 1}
}

// Pipeline splits units into chunks, summarizes each chunk and reduces the
// summaries into one.
type Pipeline struct {
	leaf        *LeafSummarizer
	reducer     *Reducer
	batchSize   int
	concurrency int
	logger      *zap.Logger
}

func NewPipeline(gen llm.Generator, templates Templates, serialize Serializer, opts Options) (*Pipeline, error) {
	if opts.BatchSize <= 0 {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, domain.ErrInvalidBatchSize.Message, fmt.Errorf("got %d", opts.BatchSize))
	}
	logger := logging.OrNop(opts.Logger)
	reducer, err := NewReducer(gen, templates, opts.GroupSize, opts.Threshold, opts.Concurrency, logger)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		leaf:        NewLeafSummarizer(gen, templates, serialize),
		reducer:     reducer,
		batchSize:   opts.BatchSize,
		concurrency: opts.Concurrency,
		logger:      logger,
	}, nil
}

// Run summarizes units. A unit is a group of records that must stay in the
// same chunk. No units gives a no-data result without calling the model.
func (p *Pipeline) Run(ctx context.Context, units [][]domain.Record) (Result, error) {
	if len(units) == 0 {
		return noData(), nil
	}

	ctx, span := telemetry.StartSpan(ctx, "summarize.pipeline", telemetry.SpanAttributes{Operation: "run"})
	defer span.End()
	start := time.Now()

	chunks, err := Split(units, p.batchSize)
	if err != nil {
		return Result{}, err
	}
	span.SetData("chunks", len(chunks))

	summaries, err := mapOrdered(ctx, len(chunks), p.concurrency, func(ctx context.Context, i int) (string, error) {
		return p.leaf.Summarize(ctx, flatten(chunks[i]))
	})
	if err != nil {
		span.SetError(err)
		return Result{}, err
	}
	telemetry.AddBreadcrumb(ctx, "summarize", fmt.Sprintf("summarized %d chunks", len(chunks)))

	res, err := p.reducer.Reduce(ctx, summaries)
	if err != nil {
		span.SetError(err)
		return Result{}, err
	}
	res.Calls += len(chunks)
	res.Chunks = len(chunks)
	span.RecordPipeline(res.Chunks, res.Levels, res.Calls)

	p.logger.Info("pipeline finished",
		zap.Int("units", len(units)),
		zap.Int("chunks", res.Chunks),
		zap.Int("levels", res.Levels),
		zap.Int("calls", res.Calls),
		zap.Duration("duration", time.Since(start)),
	)
	return res, nil
}

func flatten(units [][]domain.Record) []domain.Record {
	var n int
	for _, u := range units {
		n += len(u)
	}
	out := make([]domain.Record, 0, n)
	for _, u := range units {
		out = append(out, u...)
	}
	return out
}
