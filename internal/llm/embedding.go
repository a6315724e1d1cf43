package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/cloo-solutions/jeeinsight/internal/domain"
)

const (
	DefaultEmbeddingModel = string(openai.SmallEmbedding3)
	// ReportEmbeddingDimensions matches the summary_reports.embedding column.
	ReportEmbeddingDimensions = 1536

	// maxEmbeddingRunes keeps long reports under the model's input limit.
	maxEmbeddingRunes = 24000
)

// ErrEmptyReport is returned when there is no summary text to embed.
var ErrEmptyReport = domain.NewDomainError(domain.ErrCodeValidation, "report summary is empty")

// EmbeddingAPI is the subset of the go-openai client used for embeddings.
type EmbeddingAPI interface {
	CreateEmbeddings(ctx context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

type EmbedderConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// ReportEmbedder turns report summaries into vectors for similarity search.
type ReportEmbedder struct {
	api     EmbeddingAPI
	model   openai.EmbeddingModel
	timeout time.Duration
}

func NewReportEmbedder(cfg EmbedderConfig) *ReportEmbedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return newReportEmbedder(openai.NewClientWithConfig(clientCfg), cfg)
}

func newReportEmbedder(api EmbeddingAPI, cfg EmbedderConfig) *ReportEmbedder {
	model := cfg.Model
	if model == "" {
		model = DefaultEmbeddingModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &ReportEmbedder{api: api, model: openai.EmbeddingModel(model), timeout: timeout}
}

// GenerateEmbedding embeds summary, truncated to the model's input limit.
func (e *ReportEmbedder) GenerateEmbedding(ctx context.Context, summary string) ([]float32, error) {
	input := truncateRunes(strings.TrimSpace(summary), maxEmbeddingRunes)
	if input == "" {
		return nil, ErrEmptyReport
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{input},
		Model:      e.model,
		Dimensions: ReportEmbeddingDimensions,
	})
	if err != nil {
		return nil, failure(ProviderOpenAI, statusOf(err), err)
	}
	if len(resp.Data) == 0 {
		return nil, malformed(ProviderOpenAI, "no embedding returned")
	}

	vec := resp.Data[0].Embedding
	if len(vec) != ReportEmbeddingDimensions {
		return nil, malformed(ProviderOpenAI,
			fmt.Sprintf("embedding has %d dimensions, want %d", len(vec), ReportEmbeddingDimensions))
	}
	return vec, nil
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
