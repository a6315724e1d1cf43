package cli

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cloo-solutions/jeeinsight/internal/config"
	"github.com/cloo-solutions/jeeinsight/internal/dataset"
	"github.com/cloo-solutions/jeeinsight/internal/llm"
	"github.com/cloo-solutions/jeeinsight/internal/prompts"
	"github.com/cloo-solutions/jeeinsight/internal/service"
)

// GeneratorFactory builds the text generator from config. Tests swap it for
// a fake.
var GeneratorFactory = llm.NewGenerator

// LLMConfig maps the JEE_LLM_* settings onto an llm.Config.
func LLMConfig(cfg *config.Config) llm.Config {
	return llm.Config{
		Provider:    cfg.LLMProvider,
		Model:       cfg.LLMModel,
		BaseURL:     cfg.LLMBaseURL,
		APIKey:      cfg.LLMAPIKey(),
		Temperature: cfg.LLMTemperature,
		Timeout:     cfg.LLMTimeout,
		MaxRetries:  cfg.LLMMaxRetries,
	}
}

// Analysis bundles the analysis service with the dataset cache behind it.
type Analysis struct {
	Service *service.AnalysisService
	Dataset *dataset.Cache
}

// NewAnalysis wires dataset loading, prompts and the generator into an
// AnalysisService. A missing LLM key is not fatal here: score and student
// listing still work and generation fails with llm.ErrNoAPIKey when used.
func NewAnalysis(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Analysis, error) {
	loader, err := dataset.NewLoader(cfg.DatasetEncoding, 0, logger)
	if err != nil {
		return nil, err
	}
	location := cfg.DatasetURL
	cache := dataset.NewCache(func(ctx context.Context) (*dataset.Dataset, error) {
		return loader.Load(ctx, location)
	}, cfg.DatasetTTL)

	templates, err := prompts.Load(cfg.PromptsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompts: %w", err)
	}

	gen, err := GeneratorFactory(ctx, LLMConfig(cfg), logger)
	if errors.Is(err, llm.ErrNoAPIKey) {
		logger.Debug("no LLM API key configured", zap.String("provider", cfg.LLMProvider))
		gen = llm.GeneratorFunc(func(context.Context, string) (string, error) {
			return "", llm.ErrNoAPIKey
		})
	} else if err != nil {
		return nil, fmt.Errorf("failed to create generator: %w", err)
	}

	svc := service.NewAnalysisService(cache, gen, templates, service.AnalysisOptions{
		Pipeline:    cfg.PipelineOptions(),
		DirectLimit: cfg.DirectLimit,
	}, logger)

	return &Analysis{Service: svc, Dataset: cache}, nil
}
