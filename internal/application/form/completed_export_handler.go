package form

import (
	"context"
	"fmt"

	"github.com/joserochalaredo-arch/8visas-sub000/internal/domain/form"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/domain/shared"
	"go.uber.org/zap"
)

// CompletedExportHandler handles FormCompletedEvent and exports the final
// record to object storage for the PDF and notification tooling
type CompletedExportHandler struct {
	records  form.FormRecordRepository
	exporter RecordExporter
	logger   *zap.Logger
}

// NewCompletedExportHandler creates a new handler for form completed events
func NewCompletedExportHandler(records form.FormRecordRepository, exporter RecordExporter, logger *zap.Logger) *CompletedExportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompletedExportHandler{
		records:  records,
		exporter: exporter,
		logger:   logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *CompletedExportHandler) EventTypes() []string {
	return []string{form.EventTypeFormCompleted}
}

// Handle processes a FormCompletedEvent
func (h *CompletedExportHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	completed, ok := event.(*form.FormCompletedEvent)
	if !ok {
		h.logger.Error("unexpected event type",
			zap.String("expected", form.EventTypeFormCompleted),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			form.EventTypeFormCompleted, event.EventType())
	}

	// the event is built before the write; read back what was stored
	record, err := h.records.FindByToken(ctx, completed.Token)
	if err != nil {
		return fmt.Errorf("load completed form %s: %w", completed.Token, err)
	}

	key, _, err := h.exporter.Export(ctx, record)
	if err != nil {
		h.logger.Error("failed to export completed form",
			zap.String("form_token", completed.Token),
			zap.Error(err),
		)
		return err
	}

	h.logger.Info("completed form exported",
		zap.String("form_token", completed.Token),
		zap.String("key", key),
	)
	return nil
}

// Ensure CompletedExportHandler implements EventHandler
var _ shared.EventHandler = (*CompletedExportHandler)(nil)
