package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/joserochalaredo-arch/8visas-sub000/internal/domain/form"
	"go.uber.org/zap"
)

// ObjectStorage is the subset of object storage operations the exporter needs
type ObjectStorage interface {
	Upload(ctx context.Context, storageKey string, data []byte, contentType string) error
	GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)
	DeleteObject(ctx context.Context, storageKey string) error
	ObjectExists(ctx context.Context, storageKey string) (bool, error)
}

// ExportDocument is the JSON document written for each exported form
type ExportDocument struct {
	Token            string              `json:"token"`
	ClientName       string              `json:"client_name"`
	ClientEmail      string              `json:"client_email"`
	Status           string              `json:"status"`
	Progress         int                 `json:"progress"`
	CurrentStep      int                 `json:"current_step"`
	CompletedSteps   []int               `json:"completed_steps"`
	Fields           map[string]any      `json:"fields"`
	FinalSubmittedAt *time.Time          `json:"final_submitted_at,omitempty"`
	PaymentStatus    string              `json:"payment_status"`
	AmountDue        string              `json:"amount_due"`
	AmountPaid       string              `json:"amount_paid"`
	Comments         []form.AdminComment `json:"admin_comments"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
	ExportedAt       time.Time           `json:"exported_at"`
}

// RecordExporter writes form records as JSON documents to object storage.
// Each token has a single key, so re-exporting replaces the previous document.
type RecordExporter struct {
	store     ObjectStorage
	keyPrefix string
	urlTTL    time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewRecordExporter creates a RecordExporter writing under keyPrefix
func NewRecordExporter(store ObjectStorage, keyPrefix string, urlTTL time.Duration, logger *zap.Logger) *RecordExporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if keyPrefix == "" {
		keyPrefix = "forms"
	}
	return &RecordExporter{
		store:     store,
		keyPrefix: keyPrefix,
		urlTTL:    urlTTL,
		logger:    logger,
		now:       time.Now,
	}
}

// KeyFor returns the storage key for a form token
func (e *RecordExporter) KeyFor(token string) string {
	return path.Join(e.keyPrefix, token+".json")
}

// Export uploads the record and returns its key and a download URL
func (e *RecordExporter) Export(ctx context.Context, record *form.FormRecord) (string, string, error) {
	if record == nil {
		return "", "", fmt.Errorf("export: record is required")
	}

	doc := NewExportDocument(record, e.now())
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("marshal export for %s: %w", record.Token, err)
	}

	key := e.KeyFor(record.Token)
	if err := e.store.Upload(ctx, key, data, "application/json"); err != nil {
		return "", "", err
	}

	url, _, err := e.store.GenerateDownloadURL(ctx, key, e.urlTTL)
	if err != nil {
		// the document is stored; callers can still fetch it by key
		e.logger.Warn("failed to presign export download",
			zap.String("form_token", record.Token),
			zap.String("key", key),
			zap.Error(err),
		)
		return key, "", nil
	}

	e.logger.Debug("form exported",
		zap.String("form_token", record.Token),
		zap.String("key", key),
		zap.Int("bytes", len(data)),
	)
	return key, url, nil
}

// Remove deletes the exported document for a token, if any
func (e *RecordExporter) Remove(ctx context.Context, token string) error {
	key := e.KeyFor(token)
	exists, err := e.store.ObjectExists(ctx, key)
	if err != nil || !exists {
		return err
	}
	return e.store.DeleteObject(ctx, key)
}

// NewExportDocument builds the export view of a record
func NewExportDocument(record *form.FormRecord, exportedAt time.Time) ExportDocument {
	steps := record.CompletedSteps
	if steps == nil {
		steps = []int{}
	}
	fields := record.Fields
	if fields == nil {
		fields = map[string]any{}
	}
	comments := record.AdminComments
	if comments == nil {
		comments = []form.AdminComment{}
	}
	return ExportDocument{
		Token:            record.Token,
		ClientName:       record.ClientName,
		ClientEmail:      record.ClientEmail,
		Status:           string(record.Status()),
		Progress:         record.Progress(),
		CurrentStep:      record.CurrentStep,
		CompletedSteps:   steps,
		Fields:           fields,
		FinalSubmittedAt: record.FinalSubmittedAt,
		PaymentStatus:    string(record.PaymentStatus),
		AmountDue:        record.AmountDue.StringFixed(2),
		AmountPaid:       record.AmountPaid.StringFixed(2),
		Comments:         comments,
		CreatedAt:        record.CreatedAt,
		UpdatedAt:        record.UpdatedAt,
		ExportedAt:       exportedAt.UTC(),
	}
}
