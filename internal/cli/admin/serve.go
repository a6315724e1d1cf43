package admin

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cloo-solutions/jeeinsight/internal/api/handlers"
	"github.com/cloo-solutions/jeeinsight/internal/api/middleware"
	"github.com/cloo-solutions/jeeinsight/internal/cli"
	"github.com/cloo-solutions/jeeinsight/internal/config"
	"github.com/cloo-solutions/jeeinsight/internal/database"
	"github.com/cloo-solutions/jeeinsight/internal/jobs"
	"github.com/cloo-solutions/jeeinsight/internal/llm"
	"github.com/cloo-solutions/jeeinsight/internal/logging"
	"github.com/cloo-solutions/jeeinsight/internal/repository"
	"github.com/cloo-solutions/jeeinsight/internal/server"
	"github.com/cloo-solutions/jeeinsight/internal/service"
	"github.com/cloo-solutions/jeeinsight/internal/storage"
	"github.com/cloo-solutions/jeeinsight/internal/telemetry"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the jeeinsight API server.

Score and analysis routes are always served. Queued summary jobs and stored
reports need JEE_DATABASE_URL; archiving needs the JEE_S3_* settings and
report search needs JEE_OPENAI_API_KEY for embeddings.`,
		RunE: runServe,
	}

	cmd.Flags().StringP("port", "p", "", "Port to listen on (overrides JEE_PORT)")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Debug)
	if err != nil {
		return err
	}
	defer logger.Sync()

	tc := telemetryConfig(cfg)
	tc.Release = cmd.Root().Version
	defer telemetry.Init(tc, logger)()

	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.Port = port
	}
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")

	d, err := newDaemon(ctx, cfg, logger, !noMigrate)
	if err != nil {
		return err
	}
	defer d.Close()

	if d.worker != nil {
		// Cancelling ctx stops new claims; the job in flight still finishes.
		go d.worker.Start(ctx)
		logger.Info("summary worker started", zap.Duration("interval", cfg.WorkerInterval))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           d.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}
	logger.Info("shutting down")

	if d.worker != nil {
		d.worker.Stop()
	}
	if serveErr != nil {
		return fmt.Errorf("server failed: %w", serveErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exited")
	return nil
}

func telemetryConfig(cfg *config.Config) telemetry.Config {
	// 10% sampling in production, everything in development
	sampleRate := 0.1
	if cfg.Environment == "development" {
		sampleRate = 1.0
	}
	return telemetry.Config{
		DSN:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		TracesSampleRate: sampleRate,
		Debug:            cfg.Debug,
	}
}

// daemon is everything the server runs, built from config.
type daemon struct {
	handler http.Handler
	worker  *jobs.Worker
	health  func(context.Context) error
	closers []func()
}

func (d *daemon) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

func newDaemon(ctx context.Context, cfg *config.Config, logger *zap.Logger, migrate bool) (*daemon, error) {
	d := &daemon{}

	analysis, err := cli.NewAnalysis(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	routerCfg := server.RouterConfig{
		AnalysisHandler: handlers.NewAnalysisHandler(analysis.Service),
		RequestTimeout:  cfg.RequestTimeout,
		Logger:          logger,
	}
	if cfg.APIKey != "" {
		routerCfg.AuthValidator = middleware.StaticKey{Key: cfg.APIKey}
	} else {
		logger.Warn("JEE_API_KEY not set, API is unauthenticated")
	}

	if cfg.HasDatabase() {
		summarySvc, err := d.summaryService(ctx, cfg, logger, analysis.Service, migrate)
		if err != nil {
			d.Close()
			return nil, err
		}
		routerCfg.SummaryHandler = handlers.NewSummaryHandler(summarySvc)
		routerCfg.HealthCheck = d.health
	} else {
		logger.Info("JEE_DATABASE_URL not set, summary jobs disabled")
	}

	d.handler = server.NewRouter(routerCfg)
	return d, nil
}

// summaryService wires the job queue, report store, archive and embeddings,
// and prepares the worker that drains the queue.
func (d *daemon) summaryService(ctx context.Context, cfg *config.Config, logger *zap.Logger, analyzer service.Analyzer, migrate bool) (*service.SummaryJobService, error) {
	pool, err := database.NewPool(ctx, database.Config{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DatabaseMaxConns,
		MinConns: cfg.DatabaseMinConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	d.closers = append(d.closers, pool.Close)
	d.health = database.HealthCheck(pool)
	logger.Info("connected to database")

	if migrate {
		if err := database.Migrate(cfg.DatabaseURL, cfg.MigrationsPath, logger); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	jobRepo := repository.NewSummaryJobRepository(pool)
	reportRepo := repository.NewSummaryReportRepository(pool)

	var archive service.ReportArchive
	if cfg.HasS3() {
		s3Archive, err := storage.NewArchive(ctx, storage.ArchiveConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			URLExpiry:       cfg.S3URLExpiry,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Archive.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		logger.Info("S3 bucket ready", zap.String("bucket", cfg.S3Bucket))
		archive = s3Archive
	}

	var embedder service.EmbeddingClient
	if cfg.HasEmbeddings() {
		embedder = llm.NewReportEmbedder(llm.EmbedderConfig{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.EmbeddingModel,
			Timeout: cfg.LLMTimeout,
		})
	}

	svc := service.NewSummaryJobService(jobRepo, reportRepo, repository.NewTxRunner(pool), analyzer, archive, embedder, logger)

	processor := jobs.NewSummaryWorker(jobRepo, svc, logger)
	d.worker = jobs.NewWorker(processor, cfg.WorkerInterval, logger)
	svc.OnQueued(d.worker.Notify)

	return svc, nil
}
