//go:build e2e

package e2e

import (
	"context"
	"hash/fnv"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap/zaptest"

	"github.com/cloo-solutions/jeeinsight/internal/api/handlers"
	"github.com/cloo-solutions/jeeinsight/internal/api/middleware"
	"github.com/cloo-solutions/jeeinsight/internal/cli/client"
	"github.com/cloo-solutions/jeeinsight/internal/config"
	"github.com/cloo-solutions/jeeinsight/internal/database"
	"github.com/cloo-solutions/jeeinsight/internal/dataset"
	"github.com/cloo-solutions/jeeinsight/internal/domain"
	"github.com/cloo-solutions/jeeinsight/internal/jobs"
	"github.com/cloo-solutions/jeeinsight/internal/prompts"
	"github.com/cloo-solutions/jeeinsight/internal/repository"
	"github.com/cloo-solutions/jeeinsight/internal/server"
	"github.com/cloo-solutions/jeeinsight/internal/service"
	"github.com/cloo-solutions/jeeinsight/internal/storage"
	"github.com/cloo-solutions/jeeinsight/internal/testutil"
)

const apiKey = "e2e-secret"

const resultsCSV = `user_id,Physics Chapters,Questions from that Physics Chapter,Marks in Physics,Chemistry Chapters,Questions from that Chemistry Chapter,Marks in Chemistry,Strength in Physics,Strength in Chemistry
s1,Optics,Lenses,4,Atomic Structure,Bohr's Model,0,yes,no
s1,Optics,Mirrors,4,Atomic Structure,Quantum Numbers,,yes,no
s2,Kinematics,Projectile Motion,0,Thermodynamics,Entropy,4,no,yes
s3,Kinematics,Relative Velocity,NaN,Thermodynamics,Enthalpy,4,no,yes
`

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T         *testing.T
	Ctx       context.Context
	Pool      *pgxpool.Pool
	Archive   *storage.Archive
	ServerURL string
	API       *client.APIClient
	Worker    *jobs.SummaryWorker
	Generator *scriptedGenerator
}

// SetupE2EEnv starts Postgres and RustFS and serves the full API over them
// with a scripted generator and a bag-of-words embedder.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)

	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	reportArchive, err := storage.NewArchive(ctx, storage.ArchiveConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     s3C.AccessKey(),
		SecretAccessKey: s3C.SecretKey(),
		Bucket:          "test-reports",
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}
	if err := reportArchive.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	ds, err := dataset.Parse(strings.NewReader(resultsCSV))
	if err != nil {
		t.Fatalf("failed to parse dataset: %v", err)
	}

	gen := &scriptedGenerator{}
	analysis := service.NewAnalysisService(dataset.Static(ds), gen, prompts.Default(), service.AnalysisOptions{
		Pipeline: config.PipelineOptions{
			BatchSize:   1,
			GroupSize:   2,
			Threshold:   2,
			Unit:        domain.ChunkUnitStudent,
			Concurrency: 2,
		},
		DirectLimit: 5,
	}, logger)

	jobRepo := repository.NewSummaryJobRepository(pool)
	reportRepo := repository.NewSummaryReportRepository(pool)
	summarySvc := service.NewSummaryJobService(jobRepo, reportRepo, repository.NewTxRunner(pool),
		analysis, reportArchive, bagOfWords{}, logger)

	router := server.NewRouter(server.RouterConfig{
		AuthValidator:   middleware.StaticKey{Key: apiKey, Principal: "e2e"},
		AnalysisHandler: handlers.NewAnalysisHandler(analysis),
		SummaryHandler:  handlers.NewSummaryHandler(summarySvc),
		HealthCheck:     database.HealthCheck(pool),
		Logger:          logger,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &E2ETestEnv{
		T:         t,
		Ctx:       ctx,
		Pool:      pool,
		Archive:   reportArchive,
		ServerURL: srv.URL,
		API:       client.NewAPIClient(srv.URL, apiKey),
		Worker:    jobs.NewSummaryWorker(jobRepo, summarySvc, logger),
		Generator: gen,
	}
}

// RunWorker drains the job queue once.
func (e *E2ETestEnv) RunWorker() {
	e.T.Helper()
	if err := e.Worker.ProcessJobs(e.Ctx); err != nil {
		e.T.Fatalf("worker failed: %v", err)
	}
}

// scriptedGenerator answers by the chapters it sees in the prompt.
type scriptedGenerator struct {
	mu    sync.Mutex
	calls int
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()

	lower := strings.ToLower(prompt)
	var parts []string
	if strings.Contains(lower, "optics") {
		parts = append(parts, "Strong in optics and lenses.")
	}
	if strings.Contains(lower, "thermodynamics") {
		parts = append(parts, "Strong in thermodynamics and entropy.")
	}
	if len(parts) == 0 {
		parts = append(parts, "Balanced performance.")
	}
	return strings.Join(parts, " "), nil
}

func (g *scriptedGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// bagOfWords embeds text as hashed word counts sized for the reports table.
type bagOfWords struct{}

const embeddingDims = 1536

func (bagOfWords) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, embeddingDims)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,:;!?*#")
		if len(word) < 4 {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(word))
		vec[h.Sum32()%embeddingDims]++
	}
	// A zero vector has no cosine distance.
	vec[0] += 0.01
	return vec, nil
}
