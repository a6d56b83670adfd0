package form

import (
	"time"

	"github.com/google/uuid"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeFormRecord = "FormRecord"

// Event type constants
const (
	EventTypeFormRecordCreated        = "FormRecordCreated"
	EventTypeFormStepSubmitted        = "FormStepSubmitted"
	EventTypeFormDraftSaved           = "FormDraftSaved"
	EventTypeFormCompleted            = "FormCompleted"
	EventTypeFormPaymentStatusChanged = "FormPaymentStatusChanged"
	EventTypeFormActivationChanged    = "FormActivationChanged"
	EventTypeFormCommentAdded         = "FormCommentAdded"
	EventTypeFormRecordDeleted        = "FormRecordDeleted"
)

// FormRecordCreatedEvent is published when a token is issued
type FormRecordCreatedEvent struct {
	shared.BaseDomainEvent
	FormID      uuid.UUID `json:"form_id"`
	Token       string    `json:"token"`
	ClientName  string    `json:"client_name"`
	ClientEmail string    `json:"client_email,omitempty"`
}

// NewFormRecordCreatedEvent creates a new FormRecordCreatedEvent
func NewFormRecordCreatedEvent(r *FormRecord) *FormRecordCreatedEvent {
	return &FormRecordCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeFormRecordCreated, AggregateTypeFormRecord, r.ID, r.Token),
		FormID:          r.ID,
		Token:           r.Token,
		ClientName:      r.ClientName,
		ClientEmail:     r.ClientEmail,
	}
}

// FormStepSubmittedEvent is published when a step is submitted
type FormStepSubmittedEvent struct {
	shared.BaseDomainEvent
	FormID      uuid.UUID `json:"form_id"`
	Token       string    `json:"token"`
	Step        int       `json:"step"`
	NextStep    int       `json:"next_step"`
	Progress    int       `json:"progress"`
	FieldsCount int       `json:"fields_count"`
}

// NewFormStepSubmittedEvent creates a new FormStepSubmittedEvent
func NewFormStepSubmittedEvent(r *FormRecord, step int) *FormStepSubmittedEvent {
	return &FormStepSubmittedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeFormStepSubmitted, AggregateTypeFormRecord, r.ID, r.Token),
		FormID:          r.ID,
		Token:           r.Token,
		Step:            step,
		NextStep:        r.CurrentStep,
		Progress:        r.Progress(),
		FieldsCount:     len(r.Fields),
	}
}

// FormDraftSavedEvent is published when a draft is saved
type FormDraftSavedEvent struct {
	shared.BaseDomainEvent
	FormID uuid.UUID `json:"form_id"`
	Token  string    `json:"token"`
	Step   int       `json:"step"`
}

// NewFormDraftSavedEvent creates a new FormDraftSavedEvent
func NewFormDraftSavedEvent(r *FormRecord) *FormDraftSavedEvent {
	return &FormDraftSavedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeFormDraftSaved, AggregateTypeFormRecord, r.ID, r.Token),
		FormID:          r.ID,
		Token:           r.Token,
		Step:            r.CurrentStep,
	}
}

// FormCompletedEvent is published on the terminal submit.
// Downstream PDF and notification tooling listen for it.
type FormCompletedEvent struct {
	shared.BaseDomainEvent
	FormID      uuid.UUID `json:"form_id"`
	Token       string    `json:"token"`
	ClientName  string    `json:"client_name"`
	ClientEmail string    `json:"client_email,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// NewFormCompletedEvent creates a new FormCompletedEvent
func NewFormCompletedEvent(r *FormRecord) *FormCompletedEvent {
	completedAt := time.Now()
	if r.FinalSubmittedAt != nil {
		completedAt = *r.FinalSubmittedAt
	}
	return &FormCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeFormCompleted, AggregateTypeFormRecord, r.ID, r.Token),
		FormID:          r.ID,
		Token:           r.Token,
		ClientName:      r.ClientName,
		ClientEmail:     r.ClientEmail,
		CompletedAt:     completedAt,
	}
}

// FormPaymentStatusChangedEvent is published when an admin changes payment state
type FormPaymentStatusChangedEvent struct {
	shared.BaseDomainEvent
	FormID     uuid.UUID       `json:"form_id"`
	Token      string          `json:"token"`
	OldStatus  PaymentStatus   `json:"old_status"`
	NewStatus  PaymentStatus   `json:"new_status"`
	AmountDue  decimal.Decimal `json:"amount_due"`
	AmountPaid decimal.Decimal `json:"amount_paid"`
}

// NewFormPaymentStatusChangedEvent creates a new FormPaymentStatusChangedEvent
func NewFormPaymentStatusChangedEvent(r *FormRecord, oldStatus PaymentStatus) *FormPaymentStatusChangedEvent {
	return &FormPaymentStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeFormPaymentStatusChanged, AggregateTypeFormRecord, r.ID, r.Token),
		FormID:          r.ID,
		Token:           r.Token,
		OldStatus:       oldStatus,
		NewStatus:       r.PaymentStatus,
		AmountDue:       r.AmountDue,
		AmountPaid:      r.AmountPaid,
	}
}

// FormActivationChangedEvent is published when a client is activated or deactivated
type FormActivationChangedEvent struct {
	shared.BaseDomainEvent
	FormID   uuid.UUID `json:"form_id"`
	Token    string    `json:"token"`
	IsActive bool      `json:"is_active"`
}

// NewFormActivationChangedEvent creates a new FormActivationChangedEvent
func NewFormActivationChangedEvent(r *FormRecord) *FormActivationChangedEvent {
	return &FormActivationChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeFormActivationChanged, AggregateTypeFormRecord, r.ID, r.Token),
		FormID:          r.ID,
		Token:           r.Token,
		IsActive:        r.IsActive,
	}
}

// FormCommentAddedEvent is published when an admin comments on a client
type FormCommentAddedEvent struct {
	shared.BaseDomainEvent
	FormID  uuid.UUID    `json:"form_id"`
	Token   string       `json:"token"`
	Comment AdminComment `json:"comment"`
}

// NewFormCommentAddedEvent creates a new FormCommentAddedEvent
func NewFormCommentAddedEvent(r *FormRecord, comment AdminComment) *FormCommentAddedEvent {
	return &FormCommentAddedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeFormCommentAdded, AggregateTypeFormRecord, r.ID, r.Token),
		FormID:          r.ID,
		Token:           r.Token,
		Comment:         comment,
	}
}

// FormRecordDeletedEvent is published after a confirmed delete
type FormRecordDeletedEvent struct {
	shared.BaseDomainEvent
	FormID    uuid.UUID `json:"form_id"`
	Token     string    `json:"token"`
	DeletedBy string    `json:"deleted_by,omitempty"`
}

// NewFormRecordDeletedEvent creates a new FormRecordDeletedEvent
func NewFormRecordDeletedEvent(r *FormRecord, deletedBy string) *FormRecordDeletedEvent {
	return &FormRecordDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeFormRecordDeleted, AggregateTypeFormRecord, r.ID, r.Token),
		FormID:          r.ID,
		Token:           r.Token,
		DeletedBy:       deletedBy,
	}
}
