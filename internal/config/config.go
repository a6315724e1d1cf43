package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/cloo-solutions/jeeinsight/internal/domain"
)

// DefaultDatasetURL is the published mock-test results sheet.
const DefaultDatasetURL = "https://raw.githubusercontent.com/forittik/updated_soca_tool/refs/heads/main/Dummy_questions.csv"

// LLM providers.
const (
	ProviderGroq   = "groq"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

type Config struct {
	Port           string        `envconfig:"PORT" default:"8080"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"5m"`
	Debug          bool          `envconfig:"DEBUG" default:"false"`

	DatasetURL      string        `envconfig:"DATASET_URL" default:"https://raw.githubusercontent.com/forittik/updated_soca_tool/refs/heads/main/Dummy_questions.csv"`
	DatasetEncoding string        `envconfig:"DATASET_ENCODING" default:"ISO-8859-1"`
	DatasetTTL      time.Duration `envconfig:"DATASET_TTL" default:"10m"`

	LLMProvider    string        `envconfig:"LLM_PROVIDER" default:"groq"`
	LLMModel       string        `envconfig:"LLM_MODEL" default:"llama3-70b-8192"`
	LLMBaseURL     string        `envconfig:"LLM_BASE_URL"`
	LLMTemperature float32       `envconfig:"LLM_TEMPERATURE" default:"0"`
	LLMTimeout     time.Duration `envconfig:"LLM_TIMEOUT" default:"60s"`
	LLMMaxRetries  int           `envconfig:"LLM_MAX_RETRIES" default:"0"`

	GroqAPIKey   string `envconfig:"GROQ_API_KEY"`
	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`
	GeminiAPIKey string `envconfig:"GEMINI_API_KEY"`

	EmbeddingModel string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`

	BatchSize       int    `envconfig:"BATCH_SIZE" default:"2"`
	GroupSize       int    `envconfig:"GROUP_SIZE" default:"5"`
	ReduceThreshold int    `envconfig:"REDUCE_THRESHOLD" default:"0"`
	ChunkUnit       string `envconfig:"CHUNK_UNIT" default:"student"`
	Concurrency     int    `envconfig:"CONCURRENCY" default:"1"`
	DirectLimit     int    `envconfig:"DIRECT_LIMIT" default:"5"`
	PromptsFile     string `envconfig:"PROMPTS_FILE"`

	DatabaseURL      string        `envconfig:"DATABASE_URL"`
	DatabaseMaxConns int32         `envconfig:"DATABASE_MAX_CONNS" default:"10"`
	DatabaseMinConns int32         `envconfig:"DATABASE_MIN_CONNS" default:"0"`
	MigrationsPath   string        `envconfig:"MIGRATIONS_PATH" default:"file://migrations"`
	WorkerInterval   time.Duration `envconfig:"WORKER_INTERVAL" default:"10s"`

	S3Endpoint  string        `envconfig:"S3_ENDPOINT"`
	S3AccessKey string        `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string        `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string        `envconfig:"S3_BUCKET" default:"jeeinsight-reports"`
	S3Region    string        `envconfig:"S3_REGION" default:"us-east-1"`
	S3URLExpiry time.Duration `envconfig:"S3_URL_EXPIRY" default:"1h"`

	// APIKey guards the daemon API. Empty disables auth.
	APIKey string `envconfig:"API_KEY"`

	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
}

// PipelineOptions holds the batch-and-reduce parameters.
type PipelineOptions struct {
	BatchSize   int
	GroupSize   int
	Threshold   int
	Unit        domain.ChunkUnit
	Concurrency int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("JEE", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.BatchSize <= 0 {
		return domain.ErrInvalidBatchSize
	}
	if c.GroupSize < 2 {
		return domain.ErrInvalidGroupSize
	}
	if c.ReduceThreshold < 0 {
		return domain.ErrInvalidThreshold
	}
	if _, err := domain.ParseChunkUnit(c.ChunkUnit); err != nil {
		return err
	}
	switch strings.ToLower(c.LLMProvider) {
	case ProviderGroq, ProviderOpenAI, ProviderGemini:
	default:
		return domain.NewDomainError(domain.ErrCodeValidation, fmt.Sprintf("unknown LLM provider: %s", c.LLMProvider))
	}
	return nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}

// HasEmbeddings reports whether report embeddings can be computed.
func (c *Config) HasEmbeddings() bool {
	return c.OpenAIAPIKey != ""
}

// LLMAPIKey returns the key for the configured provider.
func (c *Config) LLMAPIKey() string {
	switch strings.ToLower(c.LLMProvider) {
	case ProviderOpenAI:
		return c.OpenAIAPIKey
	case ProviderGemini:
		return c.GeminiAPIKey
	default:
		return c.GroqAPIKey
	}
}

func (c *Config) PipelineOptions() PipelineOptions {
	unit, err := domain.ParseChunkUnit(c.ChunkUnit)
	if err != nil {
		unit = domain.ChunkUnitStudent
	}
	threshold := c.ReduceThreshold
	if threshold == 0 {
		threshold = c.GroupSize
	}
	concurrency := c.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return PipelineOptions{
		BatchSize:   c.BatchSize,
		GroupSize:   c.GroupSize,
		Threshold:   threshold,
		Unit:        unit,
		Concurrency: concurrency,
	}
}
