// Package testutil starts the Postgres and S3 containers used by the
// integration and e2e suites.
package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap/zaptest"

	"github.com/cloo-solutions/jeeinsight/internal/database"
)

const (
	postgresImage = "pgvector/pgvector:0.8.1-pg18"
	rustfsImage   = "rustfs/rustfs:latest"

	dbName       = "jeeinsight"
	s3AccessKey  = "rustfsadmin"
	s3SecretKey  = "rustfsadmin"
	startTimeout = 90 * time.Second
)

const (
	postgresPort nat.Port = "5432/tcp"
	rustfsPort   nat.Port = "9000/tcp"
)

// PostgresContainer is a running pgvector-enabled Postgres.
type PostgresContainer struct {
	Container testcontainers.Container
	Host      string
	Port      string
}

// NewPostgresContainer starts Postgres and terminates it when t ends.
func NewPostgresContainer(ctx context.Context, t *testing.T) *PostgresContainer {
	t.Helper()
	c, host, port := start(ctx, t, testcontainers.ContainerRequest{
		Image:        postgresImage,
		ExposedPorts: []string{string(postgresPort)},
		Env: map[string]string{
			"POSTGRES_USER":     dbName,
			"POSTGRES_PASSWORD": dbName,
			"POSTGRES_DB":       dbName,
		},
		// Postgres logs readiness once for the init server and once for
		// the real one.
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort(postgresPort),
		).WithStartupTimeout(startTimeout),
	}, postgresPort)
	return &PostgresContainer{Container: c, Host: host, Port: port}
}

// ConnectionString is the DSN for JEE_DATABASE_URL.
func (pc *PostgresContainer) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", dbName, dbName, pc.Host, pc.Port, dbName)
}

// RustFSContainer is an S3-compatible store for the report archive.
type RustFSContainer struct {
	Container testcontainers.Container
	Host      string
	Port      string
}

// NewRustFSContainer starts RustFS and terminates it when t ends. The
// credentials are AccessKey and SecretKey.
func NewRustFSContainer(ctx context.Context, t *testing.T) *RustFSContainer {
	t.Helper()
	c, host, port := start(ctx, t, testcontainers.ContainerRequest{
		Image:        rustfsImage,
		ExposedPorts: []string{string(rustfsPort)},
		Env: map[string]string{
			"RUSTFS_ACCESS_KEY": s3AccessKey,
			"RUSTFS_SECRET_KEY": s3SecretKey,
		},
		WaitingFor: wait.ForListeningPort(rustfsPort).WithStartupTimeout(startTimeout),
	}, rustfsPort)
	return &RustFSContainer{Container: c, Host: host, Port: port}
}

// Endpoint is the S3 endpoint URL for JEE_S3_ENDPOINT.
func (rc *RustFSContainer) Endpoint() string {
	return fmt.Sprintf("http://%s:%s", rc.Host, rc.Port)
}

// AccessKey and SecretKey are the static RustFS credentials.
func (rc *RustFSContainer) AccessKey() string { return s3AccessKey }
func (rc *RustFSContainer) SecretKey() string { return s3SecretKey }

func start(ctx context.Context, t *testing.T, req testcontainers.ContainerRequest, port nat.Port) (testcontainers.Container, string, string) {
	t.Helper()
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if c != nil {
		t.Cleanup(func() {
			if err := testcontainers.TerminateContainer(c); err != nil {
				t.Logf("terminate %s: %v", req.Image, err)
			}
		})
	}
	if err != nil {
		t.Fatalf("start %s: %v", req.Image, err)
	}

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("%s host: %v", req.Image, err)
	}
	mapped, err := c.MappedPort(ctx, port)
	if err != nil {
		t.Fatalf("%s port %s: %v", req.Image, port, err)
	}
	return c, host, mapped.Port()
}

// MigrationsSource turns a directory relative to the calling test into a
// golang-migrate file source URL.
func MigrationsSource(t *testing.T, dir string) string {
	t.Helper()
	abs, err := filepath.Abs(dir)
	if err != nil {
		t.Fatalf("migrations dir: %v", err)
	}
	return "file://" + abs
}

// NewTestPool migrates the database with the same migrator the daemon uses
// and returns a pool that is closed when t ends.
func NewTestPool(ctx context.Context, t *testing.T, pc *PostgresContainer, migrationsDir string) *pgxpool.Pool {
	t.Helper()

	var pool *pgxpool.Pool
	connect := func() error {
		p, err := database.NewPool(ctx, database.Config{URL: pc.ConnectionString(), MaxConns: 4})
		if err != nil {
			return err
		}
		pool = p
		return nil
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 5), ctx)
	if err := backoff.Retry(connect, policy); err != nil {
		t.Fatalf("connect to postgres: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := database.Migrate(pc.ConnectionString(), MigrationsSource(t, migrationsDir), zaptest.NewLogger(t)); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return pool
}
