package summarize

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cloo-solutions/jeeinsight/internal/domain"
	"github.com/cloo-solutions/jeeinsight/internal/llm"
	"github.com/cloo-solutions/jeeinsight/internal/logging"
	"github.com/cloo-solutions/jeeinsight/internal/prompts"
	"github.com/cloo-solutions/jeeinsight/internal/telemetry"
)

// separator joins summaries inside merge and final prompts.
const separator = "\n\n"

// Result is the outcome of a reduction or a full pipeline run.
type Result struct {
	Summary string `json:"summary"`
	NoData  bool   `json:"no_data"`
	Calls   int    `json:"calls"`
	Levels  int    `json:"levels"`
	Chunks  int    `json:"chunks"`
}

func noData() Result {
	return Result{Summary: domain.NoDataMessage, NoData: true}
}

// Reducer folds summaries in groups until one remains.
type Reducer struct {
	gen         llm.Generator
	templates   Templates
	groupSize   int
	threshold   int
	concurrency int
	logger      *zap.Logger
}

// NewReducer validates groupSize >= 2. A threshold of 0 means groupSize.
func NewReducer(gen llm.Generator, templates Templates, groupSize, threshold, concurrency int, logger *zap.Logger) (*Reducer, error) {
	if groupSize < 2 {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, domain.ErrInvalidGroupSize.Message, fmt.Errorf("got %d", groupSize))
	}
	if threshold < 0 {
		return nil, domain.ErrInvalidThreshold
	}
	if threshold == 0 {
		threshold = groupSize
	}
	return &Reducer{
		gen:         gen,
		templates:   templates,
		groupSize:   groupSize,
		threshold:   threshold,
		concurrency: concurrency,
		logger:      logging.OrNop(logger),
	}, nil
}

// Reduce merges summaries level by level. Input order is kept at every
// level. Any failed call fails the whole reduction.
func (r *Reducer) Reduce(ctx context.Context, summaries []string) (Result, error) {
	if len(summaries) == 0 {
		return noData(), nil
	}

	var res Result
	current := summaries
	for len(current) > r.threshold {
		res.Levels++
		next, err := r.mergeLevel(ctx, res.Levels, current)
		if err != nil {
			return Result{}, err
		}
		res.Calls += len(next)
		current = next
	}

	res.Levels++
	prompt, err := r.templates.Render(prompts.Final, strings.Join(current, separator))
	if err != nil {
		return Result{}, err
	}
	final, err := r.gen.Generate(ctx, prompt)
	if err != nil {
		return Result{}, fmt.Errorf("failed to produce final summary: %w", err)
	}
	res.Calls++
	res.Summary = final

	r.logger.Debug("reduction finished",
		zap.Int("inputs", len(summaries)),
		zap.Int("levels", res.Levels),
		zap.Int("calls", res.Calls),
	)
	return res, nil
}

func (r *Reducer) mergeLevel(ctx context.Context, level int, summaries []string) ([]string, error) {
	ctx, span := telemetry.StartSpan(ctx, "summarize.merge_level", telemetry.SpanAttributes{Level: level, Operation: "merge"})
	defer span.End()

	groups, err := Split(summaries, r.groupSize)
	if err != nil {
		return nil, err
	}
	span.SetData("groups", len(groups))

	merged, err := mapOrdered(ctx, len(groups), r.concurrency, func(ctx context.Context, i int) (string, error) {
		prompt, err := r.templates.Render(prompts.Merge, strings.Join(groups[i], separator))
		if err != nil {
			return "", err
		}
		out, err := r.gen.Generate(ctx, prompt)
		if err != nil {
			return "", fmt.Errorf("failed to merge group %d at level %d: %w", i+1, level, err)
		}
		return out, nil
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	r.logger.Debug("merge level done",
		zap.Int("level", level),
		zap.Int("inputs", len(summaries)),
		zap.Int("outputs", len(merged)),
	)
	return merged, nil
}
