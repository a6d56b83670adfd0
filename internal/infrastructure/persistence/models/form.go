package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/domain/form"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// FormRecordModel is the persistence model for the FormRecord aggregate.
// Status and ProgressPercent are a query cache; ToDomain never reads them.
type FormRecordModel struct {
	AggregateModel
	Token            string            `gorm:"type:varchar(8);not null;uniqueIndex"`
	ClientName       string            `gorm:"type:varchar(200);not null"`
	ClientEmail      string            `gorm:"type:varchar(200)"`
	Fields           datatypes.JSONMap `gorm:"type:jsonb;not null"`
	CurrentStep      int               `gorm:"not null"`
	CompletedSteps   datatypes.JSON    `gorm:"type:jsonb;not null"`
	Status           string            `gorm:"type:varchar(20);not null;index"`
	ProgressPercent  int               `gorm:"not null"`
	FinalSubmittedAt *time.Time
	PaymentStatus    string          `gorm:"type:varchar(20);not null;index"`
	AmountDue        decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	AmountPaid       decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	IsActive         bool            `gorm:"not null"`
	AdminComments    datatypes.JSON  `gorm:"type:jsonb;not null"`
	LastActivityAt   time.Time       `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (FormRecordModel) TableName() string {
	return "form_records"
}

// ToDomain converts the persistence model to a domain FormRecord.
// Derived values are recomputed from the completed steps.
func (m *FormRecordModel) ToDomain() *form.FormRecord {
	fields := make(map[string]any, len(m.Fields))
	for k, v := range m.Fields {
		fields[k] = v
	}
	var steps []int
	if len(m.CompletedSteps) > 0 {
		_ = json.Unmarshal(m.CompletedSteps, &steps)
	}

	record := form.RestoreFormRecord(m.AggregateModel.ToDomainAggregateRoot(), m.Token, fields, m.CurrentStep, steps)
	record.ClientName = m.ClientName
	record.ClientEmail = m.ClientEmail
	record.FinalSubmittedAt = m.FinalSubmittedAt
	record.PaymentStatus = form.PaymentStatus(m.PaymentStatus)
	record.AmountDue = m.AmountDue
	record.AmountPaid = m.AmountPaid
	record.IsActive = m.IsActive
	record.LastActivityAt = m.LastActivityAt

	if len(m.AdminComments) > 0 {
		var comments []form.AdminComment
		if err := json.Unmarshal(m.AdminComments, &comments); err == nil {
			record.AdminComments = comments
		}
	}
	return record
}

// FromDomain populates the persistence model from a domain FormRecord
func (m *FormRecordModel) FromDomain(r *form.FormRecord) {
	m.FromDomainAggregateRoot(r.BaseAggregateRoot)
	m.Token = r.Token
	m.ClientName = r.ClientName
	m.ClientEmail = r.ClientEmail
	m.Fields = datatypes.JSONMap(make(map[string]interface{}, len(r.Fields)))
	for k, v := range r.Fields {
		m.Fields[k] = v
	}
	m.CurrentStep = r.CurrentStep
	steps := r.CompletedSteps
	if steps == nil {
		steps = []int{}
	}
	rawSteps, _ := json.Marshal(steps)
	m.CompletedSteps = datatypes.JSON(rawSteps)
	m.Status = string(r.Status())
	m.ProgressPercent = r.Progress()
	m.FinalSubmittedAt = r.FinalSubmittedAt
	m.PaymentStatus = string(r.PaymentStatus)
	m.AmountDue = r.AmountDue
	m.AmountPaid = r.AmountPaid
	m.IsActive = r.IsActive
	m.LastActivityAt = r.LastActivityAt

	comments := r.AdminComments
	if comments == nil {
		comments = []form.AdminComment{}
	}
	raw, _ := json.Marshal(comments)
	m.AdminComments = datatypes.JSON(raw)
}

// FormRecordModelFromDomain creates a new persistence model from domain FormRecord
func FormRecordModelFromDomain(r *form.FormRecord) *FormRecordModel {
	m := &FormRecordModel{}
	m.FromDomain(r)
	return m
}

// FormStepProgressModel keeps the latest payload submitted for each step
type FormStepProgressModel struct {
	ID          uuid.UUID         `gorm:"type:uuid;primary_key"`
	FormID      uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex:idx_form_step_progress_form_step,priority:1"`
	StepNumber  int               `gorm:"not null;uniqueIndex:idx_form_step_progress_form_step,priority:2"`
	StepData    datatypes.JSONMap `gorm:"type:jsonb;not null"`
	CompletedAt time.Time         `gorm:"not null"`
}

// TableName returns the table name for GORM
func (FormStepProgressModel) TableName() string {
	return "form_step_progress"
}

// ToDomain converts the model to a domain StepSnapshot
func (m *FormStepProgressModel) ToDomain() form.StepSnapshot {
	data := make(map[string]any, len(m.StepData))
	for k, v := range m.StepData {
		data[k] = v
	}
	return form.StepSnapshot{
		FormID:      m.FormID,
		StepNumber:  m.StepNumber,
		StepData:    data,
		CompletedAt: m.CompletedAt,
	}
}

// FormAuditLogModel is one append-only audit row
type FormAuditLogModel struct {
	ID         uuid.UUID         `gorm:"type:uuid;primary_key"`
	FormID     uuid.UUID         `gorm:"type:uuid;not null;index"`
	Action     string            `gorm:"type:varchar(50);not null"`
	StepNumber int               `gorm:"not null"`
	Payload    datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt  time.Time         `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (FormAuditLogModel) TableName() string {
	return "form_audit_logs"
}

// ToDomain converts the model to a domain AuditLogEntry
func (m *FormAuditLogModel) ToDomain() form.AuditLogEntry {
	var payload map[string]any
	if len(m.Payload) > 0 {
		payload = make(map[string]any, len(m.Payload))
		for k, v := range m.Payload {
			payload[k] = v
		}
	}
	return form.AuditLogEntry{
		ID:         m.ID,
		FormID:     m.FormID,
		Action:     form.AuditAction(m.Action),
		StepNumber: m.StepNumber,
		Payload:    payload,
		CreatedAt:  m.CreatedAt,
	}
}
