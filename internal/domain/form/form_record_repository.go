package form

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Patch selects the column groups an upsert may overwrite on an existing row.
// An insert always writes every column.
type Patch uint8

const (
	// PatchNone inserts only; an existing row for the token is not touched
	PatchNone Patch = 0
)

const (
	// PatchProgress covers fields, current step, completed steps, final submit,
	// cached status/progress and last activity
	PatchProgress Patch = 1 << iota
	// PatchClient covers client name and email
	PatchClient
	// PatchPayment covers payment status and amounts
	PatchPayment
	// PatchComments covers the admin comment list
	PatchComments
	// PatchActivation covers the active flag
	PatchActivation
)

// Has reports whether p includes every group in other
func (p Patch) Has(other Patch) bool {
	return p&other == other
}

// FormRecordRepository is the persistence gateway for form records
type FormRecordRepository interface {
	// Upsert inserts the record or, when a row with the same token exists,
	// updates only the column groups selected by patch. It is a single atomic
	// statement and returns the id of the stored row.
	Upsert(ctx context.Context, record *FormRecord, patch Patch) (uuid.UUID, error)

	// FindByToken finds a record by its token; returns shared.ErrNotFound
	FindByToken(ctx context.Context, token string) (*FormRecord, error)

	// FindByID finds a record by id; returns shared.ErrNotFound
	FindByID(ctx context.Context, id uuid.UUID) (*FormRecord, error)

	// FindAll lists records ordered by created_at desc, token asc
	FindAll(ctx context.Context, filter shared.Filter) ([]FormRecord, error)

	// Count counts records matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// ExistsByToken checks whether a token is taken
	ExistsByToken(ctx context.Context, token string) (bool, error)

	// DeleteByToken physically removes the record and its activity
	DeleteByToken(ctx context.Context, token string) error

	// Stats aggregates counts and amounts over all records
	Stats(ctx context.Context) (*FormStats, error)
}

// FormStats summarizes the stored records for the admin dashboard
type FormStats struct {
	Total           int64                   `json:"total"`
	Active          int64                   `json:"active"`
	ByStatus        map[Status]int64        `json:"by_status"`
	ByPaymentStatus map[PaymentStatus]int64 `json:"by_payment_status"`
	AmountDue       decimal.Decimal         `json:"amount_due"`
	AmountPaid      decimal.Decimal         `json:"amount_paid"`
}

// StepSnapshot is the latest payload submitted for a step
type StepSnapshot struct {
	FormID      uuid.UUID      `json:"form_id"`
	StepNumber  int            `json:"step_number"`
	StepData    map[string]any `json:"step_data"`
	CompletedAt time.Time      `json:"completed_at"`
}

// AuditAction describes what happened to a record
type AuditAction string

const (
	AuditActionStepSubmitted AuditAction = "step_submitted"
	AuditActionDraftSaved    AuditAction = "draft_saved"
	AuditActionCompleted     AuditAction = "completed"
)

// AuditLogEntry is one audit trail row
type AuditLogEntry struct {
	ID         uuid.UUID      `json:"id"`
	FormID     uuid.UUID      `json:"form_id"`
	Action     AuditAction    `json:"action"`
	StepNumber int            `json:"step_number"`
	Payload    map[string]any `json:"payload,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// ActivityRepository stores supplementary step snapshots and audit logs.
// Writes here never decide the outcome of a save.
type ActivityRepository interface {
	// AppendStepSnapshot records the payload submitted for a step
	AppendStepSnapshot(ctx context.Context, formID uuid.UUID, step int, payload map[string]any) error

	// ListStepSnapshots returns the latest snapshot per step, ordered by step
	ListStepSnapshots(ctx context.Context, formID uuid.UUID) ([]StepSnapshot, error)

	// AppendAuditLog appends an audit entry
	AppendAuditLog(ctx context.Context, formID uuid.UUID, action AuditAction, step int, payload map[string]any) error

	// ListAuditLogs returns the newest entries first
	ListAuditLogs(ctx context.Context, formID uuid.UUID, limit int) ([]AuditLogEntry, error)
}
