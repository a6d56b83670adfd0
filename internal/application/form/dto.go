package form

import (
	"time"

	"github.com/google/uuid"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/domain/form"
	"github.com/shopspring/decimal"
)

// =============================================================================
// Wizard DTOs
// =============================================================================

// SaveStepRequest is the payload of a wizard save. The JSON names follow the
// browser client's wire format.
type SaveStepRequest struct {
	Token       string         `json:"formToken" binding:"omitempty,formtoken"`
	ClientName  string         `json:"clientName" binding:"max=200"`
	ClientEmail string         `json:"clientEmail" binding:"omitempty,email,max=200"`
	Step        int            `json:"currentStep" binding:"required,min=1,max=7"`
	StepData    map[string]any `json:"stepData"`
	FormData    map[string]any `json:"formData"` // client's full merged copy, merged before stepData
	IsDraft     bool           `json:"isDraft"`
}

// Payload returns the map merged into the record: formData overlaid by stepData
func (r SaveStepRequest) Payload() map[string]any {
	payload := make(map[string]any, len(r.FormData)+len(r.StepData))
	for k, v := range r.FormData {
		payload[k] = v
	}
	for k, v := range r.StepData {
		payload[k] = v
	}
	return payload
}

// SaveStepResponse is returned after a successful save
type SaveStepResponse struct {
	Success        bool      `json:"success"`
	FormID         uuid.UUID `json:"formId"`
	Progress       int       `json:"progress"`
	Status         string    `json:"status"`
	CurrentStep    int       `json:"currentStep"`
	CompletedSteps []int     `json:"completedSteps"`
}

// FormRecordResponse is the client-facing snapshot of a record
type FormRecordResponse struct {
	ID               uuid.UUID      `json:"id"`
	Token            string         `json:"token"`
	ClientName       string         `json:"client_name"`
	ClientEmail      string         `json:"client_email,omitempty"`
	Fields           map[string]any `json:"fields"`
	CurrentStep      int            `json:"current_step"`
	CompletedSteps   []int          `json:"completed_steps"`
	Progress         int            `json:"progress"`
	Status           string         `json:"status"`
	FinalSubmittedAt *time.Time     `json:"final_submitted_at,omitempty"`
	LastActivityAt   time.Time      `json:"last_activity_at"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// StepProgressResponse is one per-step snapshot
type StepProgressResponse struct {
	StepNumber  int            `json:"step_number"`
	StepData    map[string]any `json:"step_data"`
	CompletedAt time.Time      `json:"completed_at"`
}

// ResumeResponse hydrates the wizard for a returning client
type ResumeResponse struct {
	FormRecordResponse
	State        string                 `json:"state"`
	StepProgress []StepProgressResponse `json:"stepProgress"`
}

// StepDefinitionResponse describes one wizard step
type StepDefinitionResponse struct {
	Number         int      `json:"number"`
	Key            string   `json:"key"`
	Title          string   `json:"title"`
	RequiredFields []string `json:"required_fields"`
}

// =============================================================================
// Admin DTOs
// =============================================================================

// CreateClientRequest issues a new token for a client
type CreateClientRequest struct {
	ClientName  string           `json:"client_name" binding:"required,min=1,max=200"`
	ClientEmail string           `json:"client_email" binding:"omitempty,email,max=200"`
	AmountDue   *decimal.Decimal `json:"amount_due"`
}

// ListClientsFilter holds the admin list query parameters
type ListClientsFilter struct {
	Search        string `form:"search" binding:"max=100"`
	Status        string `form:"status" binding:"omitempty,oneof=draft in_progress completed"`
	PaymentStatus string `form:"payment_status" binding:"omitempty,oneof=pending paid partial cancelled"`
	IsActive      *bool  `form:"is_active"`
	Page          int    `form:"page" binding:"min=0"`
	PageSize      int    `form:"page_size" binding:"min=0,max=100"`
}

// SetPaymentStatusRequest changes a client's payment state
type SetPaymentStatusRequest struct {
	PaymentStatus string           `json:"payment_status" binding:"required,oneof=pending paid partial cancelled"`
	AmountDue     *decimal.Decimal `json:"amount_due"`
	AmountPaid    *decimal.Decimal `json:"amount_paid"`
}

// AddCommentRequest appends an admin comment
type AddCommentRequest struct {
	Text string `json:"text" binding:"required,min=1,max=2000"`
}

// SetActiveRequest toggles wizard access
type SetActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// ClientSummary is one row of the admin client list
type ClientSummary struct {
	ID                uuid.UUID       `json:"id"`
	Token             string          `json:"token"`
	ClientName        string          `json:"client_name"`
	ClientEmail       string          `json:"client_email,omitempty"`
	CurrentStep       int             `json:"current_step"`
	Progress          int             `json:"progress"`
	Status            string          `json:"status"`
	PaymentStatus     string          `json:"payment_status"`
	AmountDue         decimal.Decimal `json:"amount_due"`
	AmountPaid        decimal.Decimal `json:"amount_paid"`
	Outstanding       decimal.Decimal `json:"outstanding"`
	IsActive          bool            `json:"is_active"`
	CommentCount      int             `json:"comment_count"`
	LastActivityAt    time.Time       `json:"last_activity_at"`
	DaysSinceActivity int             `json:"days_since_activity"`
	CreatedAt         time.Time       `json:"created_at"`
}

// ClientDetailResponse is the full admin view of one client
type ClientDetailResponse struct {
	ClientSummary
	Fields           map[string]any         `json:"fields"`
	CompletedSteps   []int                  `json:"completed_steps"`
	FinalSubmittedAt *time.Time             `json:"final_submitted_at,omitempty"`
	Comments         []form.AdminComment    `json:"comments"`
	StepProgress     []StepProgressResponse `json:"step_progress"`
	AuditLog         []form.AuditLogEntry   `json:"audit_log"`
}

// DeleteConfirmation reports the state of a multi-click delete
type DeleteConfirmation struct {
	Token            string `json:"token"`
	Confirmations    int    `json:"confirmations"`
	Required         int    `json:"required"`
	Deleted          bool   `json:"deleted"`
	ExpiresInSeconds int    `json:"expires_in_seconds"`
}

// StatsResponse is the admin dashboard summary
type StatsResponse struct {
	Total           int64            `json:"total"`
	Active          int64            `json:"active"`
	Inactive        int64            `json:"inactive"`
	ByStatus        map[string]int64 `json:"by_status"`
	ByPaymentStatus map[string]int64 `json:"by_payment_status"`
	AmountDue       decimal.Decimal  `json:"amount_due"`
	AmountPaid      decimal.Decimal  `json:"amount_paid"`
	Outstanding     decimal.Decimal  `json:"outstanding"`
}

// ExportResponse points at an exported record
type ExportResponse struct {
	Token       string    `json:"token"`
	Key         string    `json:"key"`
	DownloadURL string    `json:"download_url,omitempty"`
	ExportedAt  time.Time `json:"exported_at"`
}

// =============================================================================
// Converters
// =============================================================================

// ToFormRecordResponse converts a record to its client-facing snapshot
func ToFormRecordResponse(r *form.FormRecord) FormRecordResponse {
	return FormRecordResponse{
		ID:               r.ID,
		Token:            r.Token,
		ClientName:       r.ClientName,
		ClientEmail:      r.ClientEmail,
		Fields:           r.Fields,
		CurrentStep:      r.CurrentStep,
		CompletedSteps:   completedSteps(r),
		Progress:         r.Progress(),
		Status:           string(r.Status()),
		FinalSubmittedAt: r.FinalSubmittedAt,
		LastActivityAt:   r.LastActivityAt,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

// ToSaveStepResponse builds the save response from the confirmed record
func ToSaveStepResponse(r *form.FormRecord) SaveStepResponse {
	return SaveStepResponse{
		Success:        true,
		FormID:         r.ID,
		Progress:       r.Progress(),
		Status:         string(r.Status()),
		CurrentStep:    r.CurrentStep,
		CompletedSteps: completedSteps(r),
	}
}

// ToStepProgressResponses converts step snapshots
func ToStepProgressResponses(snapshots []form.StepSnapshot) []StepProgressResponse {
	out := make([]StepProgressResponse, len(snapshots))
	for i, s := range snapshots {
		out[i] = StepProgressResponse{
			StepNumber:  s.StepNumber,
			StepData:    s.StepData,
			CompletedAt: s.CompletedAt,
		}
	}
	return out
}

// ToStepDefinitionResponses lists every wizard step
func ToStepDefinitionResponses() []StepDefinitionResponse {
	defs := form.StepDefinitions()
	out := make([]StepDefinitionResponse, len(defs))
	for i, d := range defs {
		out[i] = StepDefinitionResponse{
			Number:         d.Number,
			Key:            d.Key,
			Title:          d.Title,
			RequiredFields: d.RequiredFields,
		}
	}
	return out
}

// ToClientSummary converts a record to an admin list row
func ToClientSummary(r *form.FormRecord, now time.Time) ClientSummary {
	return ClientSummary{
		ID:                r.ID,
		Token:             r.Token,
		ClientName:        r.ClientName,
		ClientEmail:       r.ClientEmail,
		CurrentStep:       r.CurrentStep,
		Progress:          r.Progress(),
		Status:            string(r.Status()),
		PaymentStatus:     string(r.PaymentStatus),
		AmountDue:         r.AmountDue,
		AmountPaid:        r.AmountPaid,
		Outstanding:       r.OutstandingAmount(),
		IsActive:          r.IsActive,
		CommentCount:      len(r.AdminComments),
		LastActivityAt:    r.LastActivityAt,
		DaysSinceActivity: r.DaysSinceActivity(now),
		CreatedAt:         r.CreatedAt,
	}
}

// ToClientSummaries converts a page of records
func ToClientSummaries(records []form.FormRecord, now time.Time) []ClientSummary {
	out := make([]ClientSummary, len(records))
	for i := range records {
		out[i] = ToClientSummary(&records[i], now)
	}
	return out
}

// ToStatsResponse converts gateway stats for the dashboard
func ToStatsResponse(s *form.FormStats) StatsResponse {
	resp := StatsResponse{
		Total:           s.Total,
		Active:          s.Active,
		Inactive:        s.Total - s.Active,
		ByStatus:        make(map[string]int64, 3),
		ByPaymentStatus: make(map[string]int64, 4),
		AmountDue:       s.AmountDue,
		AmountPaid:      s.AmountPaid,
		Outstanding:     s.AmountDue.Sub(s.AmountPaid),
	}
	for _, st := range []form.Status{form.StatusDraft, form.StatusInProgress, form.StatusCompleted} {
		resp.ByStatus[string(st)] = s.ByStatus[st]
	}
	for _, ps := range []form.PaymentStatus{form.PaymentStatusPending, form.PaymentStatusPaid, form.PaymentStatusPartial, form.PaymentStatusCancelled} {
		resp.ByPaymentStatus[string(ps)] = s.ByPaymentStatus[ps]
	}
	if resp.Outstanding.IsNegative() {
		resp.Outstanding = decimal.Zero
	}
	return resp
}

func completedSteps(r *form.FormRecord) []int {
	if r.CompletedSteps == nil {
		return []int{}
	}
	return r.CompletedSteps
}
