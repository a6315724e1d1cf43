package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cloo-solutions/jeeinsight/internal/domain"
)

// Generator sends a prompt and returns the model's text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Providers.
const (
	ProviderGroq   = "groq"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// GroqBaseURL is Groq's OpenAI-compatible endpoint.
const GroqBaseURL = "https://api.groq.com/openai/v1"

const defaultTimeout = 60 * time.Second

type Config struct {
	Provider    string
	Model       string
	BaseURL     string
	APIKey      string
	Temperature float32
	Timeout     time.Duration
	MaxRetries  int
}

// ErrNoAPIKey is returned when the configured provider has no key.
var ErrNoAPIKey = domain.NewDomainError(domain.ErrCodeValidation, "LLM API key not set")

// NewGenerator builds the Generator for cfg.Provider, wrapped in a
// RetryGenerator when cfg.MaxRetries > 0.
func NewGenerator(ctx context.Context, cfg Config, logger *zap.Logger) (Generator, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	var (
		gen Generator
		err error
	)
	switch strings.ToLower(cfg.Provider) {
	case ProviderGroq, "":
		if cfg.BaseURL == "" {
			cfg.BaseURL = GroqBaseURL
		}
		gen = NewOpenAIGenerator(cfg)
	case ProviderOpenAI:
		gen = NewOpenAIGenerator(cfg)
	case ProviderGemini:
		gen, err = NewGeminiGenerator(ctx, cfg)
		if err != nil {
			return nil, err
		}
	default:
		return nil, domain.NewDomainError(domain.ErrCodeValidation, fmt.Sprintf("unknown LLM provider: %s", cfg.Provider))
	}

	if cfg.MaxRetries > 0 {
		gen = NewRetryGenerator(gen, cfg.MaxRetries, logger)
	}
	return gen, nil
}

// StatusError records the HTTP status of a failed provider call. A zero
// StatusCode means the request never got a response.
type StatusError struct {
	StatusCode int
	Err        error
}

func (e *StatusError) Error() string {
	if e.StatusCode == 0 {
		return e.Err.Error()
	}
	return fmt.Sprintf("status %d: %v", e.StatusCode, e.Err)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// failure wraps a provider error as EXTERNAL_SERVICE_ERROR.
func failure(provider string, status int, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return domain.NewDomainErrorWithCause(domain.ErrCodeExternalService, domain.ErrGeneration.Message,
			fmt.Errorf("%s: %w", provider, err))
	}
	msg := domain.ErrGeneration.Message
	if status == http.StatusTooManyRequests {
		msg = domain.ErrRateLimited.Message
	}
	return domain.NewDomainErrorWithCause(domain.ErrCodeExternalService, msg,
		fmt.Errorf("%s: %w", provider, &StatusError{StatusCode: status, Err: err}))
}

func malformed(provider, reason string) error {
	return domain.NewDomainErrorWithCause(domain.ErrCodeExternalService, domain.ErrMalformedResponse.Message,
		fmt.Errorf("%s: %s", provider, reason))
}

// Retryable reports whether err is worth another attempt: rate limits,
// server errors and transport failures.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	return se.StatusCode == 0 || se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500
}
