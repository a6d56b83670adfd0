package form

import (
	"math"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/joserochalaredo-arch/8visas-sub000/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Status represents the derived lifecycle status of a form record
type Status string

const (
	StatusDraft      Status = "draft"       // Nothing submitted yet
	StatusInProgress Status = "in_progress" // At least one step submitted
	StatusCompleted  Status = "completed"
)

// IsValid checks if the status is a known value
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// PaymentStatus represents the payment state of a client; only admins change it
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusPaid      PaymentStatus = "paid"
	PaymentStatusPartial   PaymentStatus = "partial"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// IsValid checks if the payment status is a known value
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusPartial, PaymentStatusCancelled:
		return true
	}
	return false
}

// AdminComment is a timestamped note left by an administrator
type AdminComment struct {
	Text      string    `json:"text"`
	Author    string    `json:"author,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// FormRecord is the canonical per-token record of one applicant's DS-160 form.
// It is the aggregate root of the form context.
type FormRecord struct {
	shared.BaseAggregateRoot
	Token            string
	ClientName       string
	ClientEmail      string
	Fields           map[string]any
	CurrentStep      int
	CompletedSteps   []int // sorted, no duplicates
	FinalSubmittedAt *time.Time
	PaymentStatus    PaymentStatus
	AmountDue        decimal.Decimal
	AmountPaid       decimal.Decimal
	IsActive         bool
	AdminComments    []AdminComment
	LastActivityAt   time.Time
}

// NewFormRecord creates a fresh record for a newly issued token
func NewFormRecord(token, clientName, clientEmail string) (*FormRecord, error) {
	token = NormalizeToken(token)
	if err := ValidateToken(token); err != nil {
		return nil, err
	}
	clientName = strings.TrimSpace(clientName)
	if err := validateClientName(clientName); err != nil {
		return nil, err
	}
	clientEmail = strings.TrimSpace(clientEmail)
	if err := validateClientEmail(clientEmail); err != nil {
		return nil, err
	}

	record := &FormRecord{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Token:             token,
		ClientName:        clientName,
		ClientEmail:       clientEmail,
		Fields:            make(map[string]any),
		CurrentStep:       FirstStep,
		CompletedSteps:    make([]int, 0, TotalSteps),
		PaymentStatus:     PaymentStatusPending,
		AmountDue:         decimal.Zero,
		AmountPaid:        decimal.Zero,
		IsActive:          true,
		AdminComments:     make([]AdminComment, 0),
	}
	record.LastActivityAt = record.CreatedAt

	record.AddDomainEvent(NewFormRecordCreatedEvent(record))

	return record, nil
}

// RestoreFormRecord rebuilds a record from persisted state without emitting events.
// Out-of-range steps are dropped and the current step is clamped to 1..7.
func RestoreFormRecord(base shared.BaseAggregateRoot, token string, fields map[string]any, currentStep int, completedSteps []int) *FormRecord {
	record := &FormRecord{
		BaseAggregateRoot: base,
		Token:             token,
		Fields:            fields,
		CurrentStep:       clampStep(currentStep),
		CompletedSteps:    make([]int, 0, TotalSteps),
		PaymentStatus:     PaymentStatusPending,
		AmountDue:         decimal.Zero,
		AmountPaid:        decimal.Zero,
		IsActive:          true,
		AdminComments:     make([]AdminComment, 0),
	}
	if record.Fields == nil {
		record.Fields = make(map[string]any)
	}
	for _, step := range completedSteps {
		record.addCompletedStep(step)
	}
	return record
}

// MergeFields merges payload into the accumulated fields. Keys present in the
// payload overwrite existing values, keys absent from it are left untouched.
// An explicitly empty value is stored as-is, which is how a field is cleared.
func (r *FormRecord) MergeFields(payload map[string]any) {
	if r.Fields == nil {
		r.Fields = make(map[string]any, len(payload))
	}
	for key, value := range payload {
		r.Fields[key] = value
	}
	r.Touch()
}

// MarkStepCompleted records step as completed. Marking an already completed
// step is a no-op apart from the activity touch.
func (r *FormRecord) MarkStepCompleted(step int) {
	r.addCompletedStep(step)
	r.Touch()
}

func (r *FormRecord) addCompletedStep(step int) {
	if !IsValidStep(step) {
		return
	}
	i := sort.SearchInts(r.CompletedSteps, step)
	if i < len(r.CompletedSteps) && r.CompletedSteps[i] == step {
		return
	}
	r.CompletedSteps = append(r.CompletedSteps, 0)
	copy(r.CompletedSteps[i+1:], r.CompletedSteps[i:])
	r.CompletedSteps[i] = step
}

// HasCompletedStep reports whether step has been submitted at least once
func (r *FormRecord) HasCompletedStep(step int) bool {
	i := sort.SearchInts(r.CompletedSteps, step)
	return i < len(r.CompletedSteps) && r.CompletedSteps[i] == step
}

// Progress returns round(100 * |completedSteps| / 7)
func (r *FormRecord) Progress() int {
	return int(math.Round(100 * float64(len(r.CompletedSteps)) / float64(TotalSteps)))
}

// IsComplete returns true when every step has been completed
func (r *FormRecord) IsComplete() bool {
	return r.Progress() == 100
}

// Status derives the lifecycle status from the completed steps and the
// terminal submit marker. It cannot be set directly.
func (r *FormRecord) Status() Status {
	if r.IsComplete() || r.FinalSubmittedAt != nil {
		return StatusCompleted
	}
	if len(r.CompletedSteps) == 0 {
		return StatusDraft
	}
	return StatusInProgress
}

// Touch marks activity on the record
func (r *FormRecord) Touch() {
	now := time.Now()
	r.LastActivityAt = now
	r.UpdatedAt = now
}

// UpdateClient sets the client contact details. Empty values keep the current ones.
func (r *FormRecord) UpdateClient(name, email string) error {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name != "" {
		if err := validateClientName(name); err != nil {
			return err
		}
		r.ClientName = name
	}
	if email != "" {
		if err := validateClientEmail(email); err != nil {
			return err
		}
		r.ClientEmail = email
	}
	return nil
}

// SetPaymentStatus changes the payment state. amountPaid is optional; when given
// it replaces the recorded amount.
func (r *FormRecord) SetPaymentStatus(status PaymentStatus, amountDue, amountPaid *decimal.Decimal) error {
	if !status.IsValid() {
		return shared.NewDomainError("INVALID_PAYMENT_STATUS", "Payment status must be one of pending, paid, partial, cancelled")
	}
	if amountDue != nil && amountDue.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Amount due cannot be negative")
	}
	if amountPaid != nil && amountPaid.IsNegative() {
		return shared.NewDomainError("INVALID_AMOUNT", "Amount paid cannot be negative")
	}

	oldStatus := r.PaymentStatus
	r.PaymentStatus = status
	if amountDue != nil {
		r.AmountDue = *amountDue
	}
	if amountPaid != nil {
		r.AmountPaid = *amountPaid
	}
	r.MarkModified(time.Now())

	r.AddDomainEvent(NewFormPaymentStatusChangedEvent(r, oldStatus))

	return nil
}

// OutstandingAmount returns what is still owed, never negative
func (r *FormRecord) OutstandingAmount() decimal.Decimal {
	outstanding := r.AmountDue.Sub(r.AmountPaid)
	if outstanding.IsNegative() {
		return decimal.Zero
	}
	return outstanding
}

// AddComment appends an admin comment
func (r *FormRecord) AddComment(author, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return shared.NewDomainError("INVALID_COMMENT", "Comment cannot be empty")
	}
	if len(text) > 2000 {
		return shared.NewDomainError("INVALID_COMMENT", "Comment cannot exceed 2000 characters")
	}

	comment := AdminComment{
		Text:      text,
		Author:    author,
		CreatedAt: time.Now(),
	}
	r.AdminComments = append(r.AdminComments, comment)
	r.MarkModified(comment.CreatedAt)

	r.AddDomainEvent(NewFormCommentAddedEvent(r, comment))

	return nil
}

// Activate re-enables the client's access to the wizard
func (r *FormRecord) Activate() error {
	if r.IsActive {
		return shared.NewDomainError("ALREADY_ACTIVE", "Client is already active")
	}
	r.IsActive = true
	r.MarkModified(time.Now())

	r.AddDomainEvent(NewFormActivationChangedEvent(r))

	return nil
}

// Deactivate blocks the client from further wizard writes
func (r *FormRecord) Deactivate() error {
	if !r.IsActive {
		return shared.NewDomainError("ALREADY_INACTIVE", "Client is already inactive")
	}
	r.IsActive = false
	r.MarkModified(time.Now())

	r.AddDomainEvent(NewFormActivationChangedEvent(r))

	return nil
}

// Clone returns a deep copy of the record. Pending domain events are not copied.
func (r *FormRecord) Clone() *FormRecord {
	clone := *r
	clone.ClearDomainEvents()

	clone.Fields = make(map[string]any, len(r.Fields))
	for k, v := range r.Fields {
		clone.Fields[k] = v
	}
	clone.CompletedSteps = append(make([]int, 0, TotalSteps), r.CompletedSteps...)
	clone.AdminComments = append(make([]AdminComment, 0, len(r.AdminComments)), r.AdminComments...)
	if r.FinalSubmittedAt != nil {
		t := *r.FinalSubmittedAt
		clone.FinalSubmittedAt = &t
	}
	return &clone
}

// DaysSinceActivity returns the number of whole days since the last activity
func (r *FormRecord) DaysSinceActivity(now time.Time) int {
	if r.LastActivityAt.IsZero() || now.Before(r.LastActivityAt) {
		return 0
	}
	return int(now.Sub(r.LastActivityAt).Hours() / 24)
}

// Validation functions

func validateClientName(name string) error {
	if name == "" {
		return shared.NewDomainError("INVALID_CLIENT_NAME", "Client name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewDomainError("INVALID_CLIENT_NAME", "Client name cannot exceed 200 characters")
	}
	return nil
}

func validateClientEmail(email string) error {
	if email == "" {
		return nil
	}
	if len(email) > 200 {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot exceed 200 characters")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}
	return nil
}
