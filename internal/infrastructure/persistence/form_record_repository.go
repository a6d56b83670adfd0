package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/domain/form"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/domain/shared"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// patchColumns lists the columns each patch group may overwrite on conflict
var patchColumns = []struct {
	patch   form.Patch
	columns []string
}{
	{form.PatchProgress, []string{"fields", "current_step", "completed_steps", "final_submitted_at", "status", "progress_percent", "last_activity_at"}},
	{form.PatchClient, []string{"client_name", "client_email"}},
	{form.PatchPayment, []string{"payment_status", "amount_due", "amount_paid"}},
	{form.PatchComments, []string{"admin_comments"}},
	{form.PatchActivation, []string{"is_active"}},
}

// columnsForPatch returns the update set for an upsert. updated_at and version
// are always written.
func columnsForPatch(patch form.Patch) []string {
	cols := make([]string, 0, 16)
	for _, group := range patchColumns {
		if patch.Has(group.patch) {
			cols = append(cols, group.columns...)
		}
	}
	return append(cols, "updated_at", "version")
}

// formModels returns every model owned by the form gateway
func formModels() []any {
	return []any{
		&models.FormRecordModel{},
		&models.FormStepProgressModel{},
		&models.FormAuditLogModel{},
	}
}

// GormFormRecordRepository implements FormRecordRepository using GORM
type GormFormRecordRepository struct {
	db *gorm.DB
}

// NewGormFormRecordRepository creates a new GormFormRecordRepository
func NewGormFormRecordRepository(db *gorm.DB) *GormFormRecordRepository {
	return &GormFormRecordRepository{db: db}
}

// Upsert writes the record in a single INSERT ... ON CONFLICT (token) DO UPDATE
// statement and returns the id of the stored row, which differs from the
// record's id when another writer created the token first. With PatchNone the
// conflict action is DO NOTHING.
func (r *GormFormRecordRepository) Upsert(ctx context.Context, record *form.FormRecord, patch form.Patch) (uuid.UUID, error) {
	if record == nil {
		return uuid.Nil, shared.NewDomainError("INVALID_INPUT", "Form record is required")
	}

	model := models.FormRecordModelFromDomain(record)
	model.UpdatedAt = time.Now()
	if model.CreatedAt.IsZero() {
		model.CreatedAt = model.UpdatedAt
	}

	// PatchNone is insert-only: an existing row for the token is left as is
	onConflict := clause.OnConflict{Columns: []clause.Column{{Name: "token"}}}
	if patch == form.PatchNone {
		onConflict.DoNothing = true
	} else {
		onConflict.DoUpdates = clause.AssignmentColumns(columnsForPatch(patch))
	}

	err := r.db.WithContext(ctx).
		Clauses(onConflict).
		Create(model).Error
	if err != nil {
		return uuid.Nil, fmt.Errorf("upsert form record %s: %w", record.Token, err)
	}

	var stored models.FormRecordModel
	if err := r.db.WithContext(ctx).
		Select("id").
		Where("token = ?", record.Token).
		Take(&stored).Error; err != nil {
		return uuid.Nil, fmt.Errorf("resolve form record id %s: %w", record.Token, err)
	}
	return stored.ID, nil
}

// FindByToken finds a form record by its token
func (r *GormFormRecordRepository) FindByToken(ctx context.Context, token string) (*form.FormRecord, error) {
	var model models.FormRecordModel
	if err := r.db.WithContext(ctx).Where("token = ?", token).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByID finds a form record by its ID
func (r *GormFormRecordRepository) FindByID(ctx context.Context, id uuid.UUID) (*form.FormRecord, error) {
	var model models.FormRecordModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll finds all form records matching the filter
func (r *GormFormRecordRepository) FindAll(ctx context.Context, filter shared.Filter) ([]form.FormRecord, error) {
	var rows []models.FormRecordModel
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.FormRecordModel{}), filter)

	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	records := make([]form.FormRecord, 0, len(rows))
	for i := range rows {
		records = append(records, *rows[i].ToDomain())
	}
	return records, nil
}

// Count counts form records matching the filter
func (r *GormFormRecordRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(r.db.WithContext(ctx).Model(&models.FormRecordModel{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsByToken checks if a form record exists with the given token
func (r *GormFormRecordRepository) ExistsByToken(ctx context.Context, token string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.FormRecordModel{}).
		Where("token = ?", token).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// DeleteByToken removes the record together with its snapshots and audit logs
func (r *GormFormRecordRepository) DeleteByToken(ctx context.Context, token string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model models.FormRecordModel
		if err := tx.Select("id").Where("token = ?", token).Take(&model).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}
		if err := tx.Where("form_id = ?", model.ID).Delete(&models.FormStepProgressModel{}).Error; err != nil {
			return fmt.Errorf("delete step progress: %w", err)
		}
		if err := tx.Where("form_id = ?", model.ID).Delete(&models.FormAuditLogModel{}).Error; err != nil {
			return fmt.Errorf("delete audit logs: %w", err)
		}
		if err := tx.Where("id = ?", model.ID).Delete(&models.FormRecordModel{}).Error; err != nil {
			return fmt.Errorf("delete form record: %w", err)
		}
		return nil
	})
}

type groupCount struct {
	GroupKey string
	Total    int64
}

type amountTotals struct {
	Due  decimal.Decimal
	Paid decimal.Decimal
}

// Stats aggregates counts and amounts over all form records
func (r *GormFormRecordRepository) Stats(ctx context.Context) (*form.FormStats, error) {
	db := r.db.WithContext(ctx).Model(&models.FormRecordModel{})
	stats := &form.FormStats{
		ByStatus:        make(map[form.Status]int64),
		ByPaymentStatus: make(map[form.PaymentStatus]int64),
	}

	if err := db.Session(&gorm.Session{}).Count(&stats.Total).Error; err != nil {
		return nil, fmt.Errorf("count form records: %w", err)
	}
	if err := db.Session(&gorm.Session{}).Where("is_active = ?", true).Count(&stats.Active).Error; err != nil {
		return nil, fmt.Errorf("count active form records: %w", err)
	}

	var byStatus []groupCount
	if err := db.Session(&gorm.Session{}).
		Select("status AS group_key, COUNT(*) AS total").
		Group("status").
		Scan(&byStatus).Error; err != nil {
		return nil, fmt.Errorf("group form records by status: %w", err)
	}
	for _, g := range byStatus {
		stats.ByStatus[form.Status(g.GroupKey)] = g.Total
	}

	var byPayment []groupCount
	if err := db.Session(&gorm.Session{}).
		Select("payment_status AS group_key, COUNT(*) AS total").
		Group("payment_status").
		Scan(&byPayment).Error; err != nil {
		return nil, fmt.Errorf("group form records by payment status: %w", err)
	}
	for _, g := range byPayment {
		stats.ByPaymentStatus[form.PaymentStatus(g.GroupKey)] = g.Total
	}

	var totals amountTotals
	if err := db.Session(&gorm.Session{}).
		Select("COALESCE(SUM(amount_due), 0) AS due, COALESCE(SUM(amount_paid), 0) AS paid").
		Scan(&totals).Error; err != nil {
		return nil, fmt.Errorf("sum form record amounts: %w", err)
	}
	stats.AmountDue = totals.Due
	stats.AmountPaid = totals.Paid

	return stats, nil
}

// applyFilter applies filter options, ordering and pagination to the query
func (r *GormFormRecordRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	query = query.Offset((page - 1) * pageSize).Limit(pageSize)

	// token breaks ties so paging is stable for rows created in the same instant
	orderBy := ValidateSortField(filter.OrderBy, FormRecordSortFields, "created_at")
	query = query.Order(orderBy + " " + ValidateSortOrder(filter.OrderDir))
	if orderBy != "token" {
		query = query.Order("token ASC")
	}

	return query
}

// likeEscaper makes a search term match literally inside a LIKE pattern
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormFormRecordRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "LIKE"
		if r.db.Dialector.Name() == "postgres" {
			like = "ILIKE"
		}
		searchPattern := "%" + likeEscaper.Replace(search) + "%"
		query = query.Where(
			fmt.Sprintf("client_name %[1]s ? ESCAPE '!' OR client_email %[1]s ? ESCAPE '!' OR token %[1]s ? ESCAPE '!'", like),
			searchPattern, searchPattern, searchPattern)
	}

	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "payment_status":
			query = query.Where("payment_status = ?", value)
		case "is_active":
			query = query.Where("is_active = ?", value)
		case "current_step":
			query = query.Where("current_step = ?", value)
		}
	}

	return query
}

// Ensure GormFormRecordRepository implements FormRecordRepository
var _ form.FormRecordRepository = (*GormFormRecordRepository)(nil)
