package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/domain/form"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/infrastructure/persistence/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormActivityRepository stores step snapshots and the audit trail using GORM
type GormActivityRepository struct {
	db *gorm.DB
}

// NewGormActivityRepository creates a new GormActivityRepository
func NewGormActivityRepository(db *gorm.DB) *GormActivityRepository {
	return &GormActivityRepository{db: db}
}

// AppendStepSnapshot stores the payload submitted for a step, replacing any
// earlier snapshot of the same step
func (r *GormActivityRepository) AppendStepSnapshot(ctx context.Context, formID uuid.UUID, step int, payload map[string]any) error {
	model := &models.FormStepProgressModel{
		ID:          uuid.New(),
		FormID:      formID,
		StepNumber:  step,
		StepData:    toJSONMap(payload),
		CompletedAt: time.Now(),
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "form_id"}, {Name: "step_number"}},
			DoUpdates: clause.AssignmentColumns([]string{"step_data", "completed_at"}),
		}).
		Create(model).Error
	if err != nil {
		return fmt.Errorf("append step snapshot %d: %w", step, err)
	}
	return nil
}

// ListStepSnapshots returns the snapshots of a form ordered by step number
func (r *GormActivityRepository) ListStepSnapshots(ctx context.Context, formID uuid.UUID) ([]form.StepSnapshot, error) {
	var rows []models.FormStepProgressModel
	if err := r.db.WithContext(ctx).
		Where("form_id = ?", formID).
		Order("step_number ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	snapshots := make([]form.StepSnapshot, 0, len(rows))
	for i := range rows {
		snapshots = append(snapshots, rows[i].ToDomain())
	}
	return snapshots, nil
}

// AppendAuditLog appends an entry to the audit trail
func (r *GormActivityRepository) AppendAuditLog(ctx context.Context, formID uuid.UUID, action form.AuditAction, step int, payload map[string]any) error {
	model := &models.FormAuditLogModel{
		ID:         uuid.New(),
		FormID:     formID,
		Action:     string(action),
		StepNumber: step,
		Payload:    toJSONMap(payload),
		CreatedAt:  time.Now(),
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("append audit log %s: %w", action, err)
	}
	return nil
}

// ListAuditLogs returns the newest audit entries first. A non-positive limit
// returns every entry.
func (r *GormActivityRepository) ListAuditLogs(ctx context.Context, formID uuid.UUID, limit int) ([]form.AuditLogEntry, error) {
	query := r.db.WithContext(ctx).
		Where("form_id = ?", formID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []models.FormAuditLogModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	entries := make([]form.AuditLogEntry, 0, len(rows))
	for i := range rows {
		entries = append(entries, rows[i].ToDomain())
	}
	return entries, nil
}

func toJSONMap(payload map[string]any) datatypes.JSONMap {
	m := make(datatypes.JSONMap, len(payload))
	for k, v := range payload {
		m[k] = v
	}
	return m
}

// Ensure GormActivityRepository implements ActivityRepository
var _ form.ActivityRepository = (*GormActivityRepository)(nil)
