package form

import (
	"context"
	"time"

	"github.com/joserochalaredo-arch/8visas-sub000/internal/domain/form"
)

// ConfirmationCounter counts repeated delete clicks per key. The first Incr
// starts a fixed window; later clicks do not extend it.
type ConfirmationCounter interface {
	// Incr adds one click and returns the count and the time left in the window
	Incr(ctx context.Context, key string, window time.Duration) (int, time.Duration, error)
	// Reset clears the counter
	Reset(ctx context.Context, key string) error
}

// RecordExporter writes a record snapshot to external storage
type RecordExporter interface {
	// Export stores the record and returns its object key and a download URL
	Export(ctx context.Context, record *form.FormRecord) (key string, url string, err error)
	// Remove deletes the stored export for a token; a missing export is not an error
	Remove(ctx context.Context, token string) error
}

// WizardMetrics records wizard outcomes
type WizardMetrics interface {
	RecordSave(ctx context.Context, step int, draft bool, outcome string, elapsed time.Duration)
	RecordCompletion(ctx context.Context)
	RecordDelete(ctx context.Context)
}

// Save outcomes reported to WizardMetrics
const (
	OutcomeSaved      = "saved"
	OutcomeValidation = "validation_failed"
	OutcomeRejected   = "rejected"
	OutcomeFailed     = "failed"
)

type noopWizardMetrics struct{}

func (noopWizardMetrics) RecordSave(context.Context, int, bool, string, time.Duration) {}
func (noopWizardMetrics) RecordCompletion(context.Context)                             {}
func (noopWizardMetrics) RecordDelete(context.Context)                                 {}
