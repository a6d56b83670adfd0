package form

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/domain/form"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/domain/shared"
	"github.com/stretchr/testify/mock"
)

// =============================================================================
// Mock Repositories
// =============================================================================

// MockFormRecordRepository is a mock implementation of FormRecordRepository
type MockFormRecordRepository struct {
	mock.Mock
}

func (m *MockFormRecordRepository) Upsert(ctx context.Context, record *form.FormRecord, patch form.Patch) (uuid.UUID, error) {
	args := m.Called(ctx, record, patch)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockFormRecordRepository) FindByToken(ctx context.Context, token string) (*form.FormRecord, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*form.FormRecord), args.Error(1)
}

func (m *MockFormRecordRepository) FindByID(ctx context.Context, id uuid.UUID) (*form.FormRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*form.FormRecord), args.Error(1)
}

func (m *MockFormRecordRepository) FindAll(ctx context.Context, filter shared.Filter) ([]form.FormRecord, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]form.FormRecord), args.Error(1)
}

func (m *MockFormRecordRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockFormRecordRepository) ExistsByToken(ctx context.Context, token string) (bool, error) {
	args := m.Called(ctx, token)
	return args.Bool(0), args.Error(1)
}

func (m *MockFormRecordRepository) DeleteByToken(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockFormRecordRepository) Stats(ctx context.Context) (*form.FormStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*form.FormStats), args.Error(1)
}

// MockActivityRepository is a mock implementation of ActivityRepository
type MockActivityRepository struct {
	mock.Mock
}

func (m *MockActivityRepository) AppendStepSnapshot(ctx context.Context, formID uuid.UUID, step int, payload map[string]any) error {
	args := m.Called(ctx, formID, step, payload)
	return args.Error(0)
}

func (m *MockActivityRepository) ListStepSnapshots(ctx context.Context, formID uuid.UUID) ([]form.StepSnapshot, error) {
	args := m.Called(ctx, formID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]form.StepSnapshot), args.Error(1)
}

func (m *MockActivityRepository) AppendAuditLog(ctx context.Context, formID uuid.UUID, action form.AuditAction, step int, payload map[string]any) error {
	args := m.Called(ctx, formID, action, step, payload)
	return args.Error(0)
}

func (m *MockActivityRepository) ListAuditLogs(ctx context.Context, formID uuid.UUID, limit int) ([]form.AuditLogEntry, error) {
	args := m.Called(ctx, formID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]form.AuditLogEntry), args.Error(1)
}

// =============================================================================
// Mock Collaborators
// =============================================================================

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// MockConfirmationCounter is a mock implementation of ConfirmationCounter
type MockConfirmationCounter struct {
	mock.Mock
}

func (m *MockConfirmationCounter) Incr(ctx context.Context, key string, window time.Duration) (int, time.Duration, error) {
	args := m.Called(ctx, key, window)
	return args.Int(0), args.Get(1).(time.Duration), args.Error(2)
}

func (m *MockConfirmationCounter) Reset(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// MockRecordExporter is a mock implementation of RecordExporter
type MockRecordExporter struct {
	mock.Mock
}

func (m *MockRecordExporter) Export(ctx context.Context, record *form.FormRecord) (string, string, error) {
	args := m.Called(ctx, record)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockRecordExporter) Remove(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

// =============================================================================
// Fixtures
// =============================================================================

const testToken = "ABCD1234"

func newStoredRecord(token string) *form.FormRecord {
	record, err := form.NewFormRecord(token, "Maria Lopez", "maria@example.com")
	if err != nil {
		panic(err)
	}
	record.ClearDomainEvents()
	return record
}

func stepOnePayload() map[string]any {
	return map[string]any{
		"surnames":       "Lopez",
		"given_names":    "Maria",
		"sex":            "F",
		"marital_status": "single",
		"birth_date":     "1990-04-12",
		"birth_city":     "Monterrey",
		"birth_country":  "MX",
		"nationality":    "MX",
	}
}
