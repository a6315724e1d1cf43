package summarize

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/jeeinsight/internal/domain"
	"github.com/cloo-solutions/jeeinsight/internal/llm"
	"github.com/cloo-solutions/jeeinsight/internal/prompts"
)

// Templates renders a named prompt around a context block.
type Templates interface {
	Render(name, context string) (string, error)
}

// Serializer turns records into the text placed in a prompt. It must be
// deterministic.
type Serializer func(records []domain.Record) string

// LeafSummarizer turns one chunk of records into one summary.
type LeafSummarizer struct {
	gen       llm.Generator
	templates Templates
	serialize Serializer
}

func NewLeafSummarizer(gen llm.Generator, templates Templates, serialize Serializer) *LeafSummarizer {
	return &LeafSummarizer{gen: gen, templates: templates, serialize: serialize}
}

// Summarize makes exactly one generator call.
func (s *LeafSummarizer) Summarize(ctx context.Context, chunk []domain.Record) (string, error) {
	if len(chunk) == 0 {
		return "", domain.ErrEmptyChunk
	}

	prompt, err := s.templates.Render(prompts.Chunk, s.serialize(chunk))
	if err != nil {
		return "", err
	}

	summary, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("failed to summarize chunk: %w", err)
	}
	return summary, nil
}
