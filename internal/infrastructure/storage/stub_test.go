package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStubObjectStorage(t *testing.T) {
	s := NewStubObjectStorage()
	ctx := context.Background()
	assert.Equal(t, "https://storage.example.com", s.BaseURL)

	t.Run("upload then exists", func(t *testing.T) {
		require.NoError(t, s.Upload(ctx, "forms/A.json", []byte(`{"a":1}`), "application/json"))
		exists, err := s.ObjectExists(ctx, "forms/A.json")
		require.NoError(t, err)
		assert.True(t, exists)

		data, contentType, ok := s.Object("forms/A.json")
		require.True(t, ok)
		assert.JSONEq(t, `{"a":1}`, string(data))
		assert.Equal(t, "application/json", contentType)
	})

	t.Run("download URL", func(t *testing.T) {
		url, expiresAt, err := s.GenerateDownloadURL(ctx, "forms/A.json", time.Hour)
		require.NoError(t, err)
		assert.Contains(t, url, "https://storage.example.com/download/forms/A.json")
		assert.True(t, expiresAt.After(time.Now()))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.DeleteObject(ctx, "forms/A.json"))
		exists, err := s.ObjectExists(ctx, "forms/A.json")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("empty key", func(t *testing.T) {
		assert.Error(t, s.Upload(ctx, "", nil, ""))
		assert.Error(t, s.DeleteObject(ctx, ""))
		_, err := s.ObjectExists(ctx, "")
		assert.Error(t, err)
		_, _, err = s.GenerateDownloadURL(ctx, "", time.Minute)
		assert.Error(t, err)
	})
}
