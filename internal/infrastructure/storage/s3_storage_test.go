package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func testStorageConfig() *config.StorageConfig {
	return &config.StorageConfig{
		Bucket:       "ds160-exports",
		AccessKey:    "test-key",
		SecretKey:    "test-secret",
		Endpoint:     "http://localhost:9000",
		UsePathStyle: true,
	}
}

func TestNewS3Store_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *config.StorageConfig)
		wantErr string
	}{
		{name: "missing bucket", mutate: func(c *config.StorageConfig) { c.Bucket = "" }, wantErr: "bucket is required"},
		{name: "missing access key", mutate: func(c *config.StorageConfig) { c.AccessKey = "" }, wantErr: "access key is required"},
		{name: "missing secret key", mutate: func(c *config.StorageConfig) { c.SecretKey = "" }, wantErr: "secret key is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testStorageConfig()
			tt.mutate(cfg)
			_, err := NewS3Store(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("nil config", func(t *testing.T) {
		_, err := NewS3Store(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration is required")
	})
}

func TestResolveEndpoint(t *testing.T) {
	tests := []struct {
		endpoint string
		ssl      bool
		want     string
	}{
		{"", false, "http://localhost:9000"},
		{"minio:9000", false, "http://minio:9000"},
		{"minio:9000", true, "https://minio:9000"},
		{"https://s3.example.com", false, "https://s3.example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got, err := resolveEndpoint(tt.endpoint, tt.ssl)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewS3Store_PresignExpiry(t *testing.T) {
	t.Run("defaults to 15 minutes", func(t *testing.T) {
		s, err := NewS3Store(testStorageConfig())
		require.NoError(t, err)
		assert.Equal(t, 15*time.Minute, s.presignExpiry)
		assert.Equal(t, "ds160-exports", s.Bucket())
	})

	t.Run("taken from config", func(t *testing.T) {
		cfg := testStorageConfig()
		cfg.PresignExpiration = time.Hour
		s, err := NewS3Store(cfg, WithLogger(zaptest.NewLogger(t)))
		require.NoError(t, err)
		assert.Equal(t, time.Hour, s.presignExpiry)
	})
}

func TestIsMissing(t *testing.T) {
	assert.True(t, isMissing(&types.NotFound{}))
	assert.True(t, isMissing(&types.NoSuchBucket{}))
	assert.True(t, isMissing(errors.New("api error NoSuchKey: key does not exist")))
	assert.False(t, isMissing(errors.New("api error AccessDenied")))
}

func TestS3Store_GenerateDownloadURL(t *testing.T) {
	s, err := NewS3Store(testStorageConfig())
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("presigns a path-style URL", func(t *testing.T) {
		url, expiresAt, err := s.GenerateDownloadURL(ctx, "forms/ABCD1234.json", 0)
		require.NoError(t, err)
		assert.True(t, strings.Contains(url, "localhost:9000/ds160-exports/forms/ABCD1234.json"))
		assert.True(t, expiresAt.After(time.Now()))
	})

	t.Run("empty key", func(t *testing.T) {
		url, _, err := s.GenerateDownloadURL(ctx, "", time.Minute)
		require.ErrorIs(t, err, errEmptyKey)
		assert.Empty(t, url)
	})
}

func TestS3Store_EmptyKeyRejected(t *testing.T) {
	s, err := NewS3Store(testStorageConfig())
	require.NoError(t, err)
	ctx := context.Background()

	assert.ErrorIs(t, s.Upload(ctx, "", []byte("{}"), "application/json"), errEmptyKey)
	assert.ErrorIs(t, s.DeleteObject(ctx, ""), errEmptyKey)
	exists, err := s.ObjectExists(ctx, "")
	assert.ErrorIs(t, err, errEmptyKey)
	assert.False(t, exists)
}
