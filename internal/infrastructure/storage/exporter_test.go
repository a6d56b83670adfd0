package storage

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/joserochalaredo-arch/8visas-sub000/internal/domain/form"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockObjectStorage struct {
	mock.Mock
}

func (m *MockObjectStorage) Upload(ctx context.Context, storageKey string, data []byte, contentType string) error {
	return m.Called(ctx, storageKey, data, contentType).Error(0)
}

func (m *MockObjectStorage) GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error) {
	args := m.Called(ctx, storageKey, expiresIn)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}

func (m *MockObjectStorage) DeleteObject(ctx context.Context, storageKey string) error {
	return m.Called(ctx, storageKey).Error(0)
}

func (m *MockObjectStorage) ObjectExists(ctx context.Context, storageKey string) (bool, error) {
	args := m.Called(ctx, storageKey)
	return args.Bool(0), args.Error(1)
}

func exportRecord(t *testing.T) *form.FormRecord {
	t.Helper()
	record, err := form.NewFormRecord("abcd1234", "Maria Lopez", "maria@example.com")
	require.NoError(t, err)
	record.MergeFields(map[string]any{"surnames": "Lopez"})
	record.MarkStepCompleted(1)
	due := decimal.NewFromInt(160)
	require.NoError(t, record.SetPaymentStatus(form.PaymentStatusPartial, &due, nil))
	return record
}

func TestRecordExporter_Export(t *testing.T) {
	ctx := context.Background()

	t.Run("writes document and presigns URL", func(t *testing.T) {
		store := NewStubObjectStorage()
		exporter := NewRecordExporter(store, "exports", time.Hour, nil)
		fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		exporter.now = func() time.Time { return fixed }

		key, url, err := exporter.Export(ctx, exportRecord(t))
		require.NoError(t, err)
		assert.Equal(t, "exports/ABCD1234.json", key)
		assert.Contains(t, url, "/download/exports/ABCD1234.json")

		data, contentType, ok := store.Object(key)
		require.True(t, ok)
		assert.Equal(t, "application/json", contentType)

		var doc ExportDocument
		require.NoError(t, json.Unmarshal(data, &doc))
		assert.Equal(t, "ABCD1234", doc.Token)
		assert.Equal(t, "in_progress", doc.Status)
		assert.Equal(t, 14, doc.Progress)
		assert.Equal(t, []int{1}, doc.CompletedSteps)
		assert.Equal(t, "160.00", doc.AmountDue)
		assert.Equal(t, "0.00", doc.AmountPaid)
		assert.Equal(t, "partial", doc.PaymentStatus)
		assert.Equal(t, fixed, doc.ExportedAt)
		assert.NotNil(t, doc.Comments)
	})

	t.Run("default prefix", func(t *testing.T) {
		exporter := NewRecordExporter(NewStubObjectStorage(), "", time.Hour, nil)
		assert.Equal(t, "forms/ABCD1234.json", exporter.KeyFor("ABCD1234"))
	})

	t.Run("upload failure", func(t *testing.T) {
		store := new(MockObjectStorage)
		store.On("Upload", ctx, "forms/ABCD1234.json", mock.Anything, "application/json").
			Return(errors.New("connection refused"))

		key, url, err := NewRecordExporter(store, "forms", time.Hour, nil).Export(ctx, exportRecord(t))
		require.Error(t, err)
		assert.Empty(t, key)
		assert.Empty(t, url)
		store.AssertNotCalled(t, "GenerateDownloadURL", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("presign failure keeps key", func(t *testing.T) {
		store := new(MockObjectStorage)
		store.On("Upload", ctx, "forms/ABCD1234.json", mock.Anything, "application/json").Return(nil)
		store.On("GenerateDownloadURL", ctx, "forms/ABCD1234.json", time.Hour).
			Return("", time.Time{}, errors.New("signer unavailable"))

		key, url, err := NewRecordExporter(store, "forms", time.Hour, nil).Export(ctx, exportRecord(t))
		require.NoError(t, err)
		assert.Equal(t, "forms/ABCD1234.json", key)
		assert.Empty(t, url)
	})

	t.Run("nil record", func(t *testing.T) {
		_, _, err := NewRecordExporter(NewStubObjectStorage(), "", time.Hour, nil).Export(ctx, nil)
		assert.Error(t, err)
	})
}

func TestRecordExporter_Remove(t *testing.T) {
	ctx := context.Background()
	store := NewStubObjectStorage()
	exporter := NewRecordExporter(store, "forms", time.Hour, nil)

	// nothing exported yet
	require.NoError(t, exporter.Remove(ctx, "ABCD1234"))

	_, _, err := exporter.Export(ctx, exportRecord(t))
	require.NoError(t, err)
	require.NoError(t, exporter.Remove(ctx, "ABCD1234"))

	_, _, ok := store.Object("forms/ABCD1234.json")
	assert.False(t, ok)
}
