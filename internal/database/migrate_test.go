//go:build integration

package database_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cloo-solutions/jeeinsight/internal/database"
	"github.com/cloo-solutions/jeeinsight/internal/testutil"
)

func TestMigrator_UpDownVersion(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)

	m, err := database.NewMigrator(pc.ConnectionString(), testutil.MigrationsSource(t, "../../migrations"), zaptest.NewLogger(t))
	require.NoError(t, err)
	defer m.Close()

	_, _, ok, err := m.Version()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Up())
	version, dirty, ok, err := m.Version()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, dirty)
	assert.Equal(t, uint(2), version)

	// Applying again is a no-op.
	require.NoError(t, m.Up())

	require.NoError(t, m.Down(2))
	_, _, ok, err = m.Version()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewPool(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)

	pool, err := database.NewPool(ctx, database.Config{URL: pc.ConnectionString(), MaxConns: 4})
	require.NoError(t, err)

	assert.Equal(t, int32(4), pool.Config().MaxConns)

	check := database.HealthCheck(pool)
	assert.NoError(t, check(ctx))

	pool.Close()
	assert.ErrorContains(t, check(ctx), "database unreachable")
}
