package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloo-solutions/jeeinsight/internal/domain"
)

func TestNewArchive_RequiresBucket(t *testing.T) {
	_, err := NewArchive(context.Background(), ArchiveConfig{Region: "us-east-1"})
	assert.Error(t, err)
}

func TestNewArchive_DefaultsURLExpiry(t *testing.T) {
	a, err := NewArchive(context.Background(), ArchiveConfig{
		Endpoint:        "http://localhost:9000",
		Region:          "us-east-1",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		Bucket:          "reports",
	})
	require.NoError(t, err)
	assert.Equal(t, defaultURLExpiry, a.urlExpiry)
}

func TestGenerateDownloadURL_PathStyle(t *testing.T) {
	a, err := NewArchive(context.Background(), ArchiveConfig{
		Endpoint:        "http://localhost:9000",
		Region:          "us-east-1",
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
		Bucket:          "reports",
	})
	require.NoError(t, err)

	url, err := a.GenerateDownloadURL(context.Background(), "reports/r1.md")
	require.NoError(t, err)
	assert.Contains(t, url, "http://localhost:9000/reports/reports/r1.md?")
	assert.Contains(t, url, "X-Amz-Expires=3600")
}

func TestFailedKeepsBothCauses(t *testing.T) {
	cause := errors.New("connection reset")

	err := failed("put", "reports/r1.md", cause)

	assert.ErrorIs(t, err, domain.ErrStorageOperationFail)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, domain.ErrCodeInternalError, domain.ErrorCode(err))
	assert.Contains(t, err.Error(), "put reports/r1.md")
}
