package form

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/joserochalaredo-arch/8visas-sub000/internal/domain/form"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/domain/shared"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	maxTokenAttempts           = 5
	defaultDeleteConfirmations = 3
	defaultDeleteWindow        = 30 * time.Second
	defaultAuditLogLimit       = 50
)

// ErrTokenSpaceExhausted is returned when no free token was found
var ErrTokenSpaceExhausted = shared.NewDomainError("TOKEN_GENERATION_FAILED", "Could not issue a unique token, please retry")

// AdminService is the administrator's aggregate view over all form records
type AdminService struct {
	records             form.FormRecordRepository
	activity            form.ActivityRepository
	counter             ConfirmationCounter
	exporter            RecordExporter
	eventPublisher      shared.EventPublisher
	metrics             WizardMetrics
	logger              *zap.Logger
	deleteConfirmations int
	deleteWindow        time.Duration
	auditLogLimit       int
	now                 func() time.Time
}

// AdminServiceConfig holds the dependencies and policy of an AdminService
type AdminServiceConfig struct {
	Records             form.FormRecordRepository
	Activity            form.ActivityRepository
	Counter             ConfirmationCounter
	Exporter            RecordExporter        // optional, export is disabled without it
	EventPublisher      shared.EventPublisher // optional
	Metrics             WizardMetrics         // optional
	Logger              *zap.Logger           // optional
	DeleteConfirmations int                   // default 3
	DeleteWindow        time.Duration         // default 30s
	AuditLogLimit       int                   // default 50
}

// NewAdminService creates a new AdminService
func NewAdminService(cfg AdminServiceConfig) *AdminService {
	s := &AdminService{
		records:             cfg.Records,
		activity:            cfg.Activity,
		counter:             cfg.Counter,
		exporter:            cfg.Exporter,
		eventPublisher:      cfg.EventPublisher,
		metrics:             cfg.Metrics,
		logger:              cfg.Logger,
		deleteConfirmations: cfg.DeleteConfirmations,
		deleteWindow:        cfg.DeleteWindow,
		auditLogLimit:       cfg.AuditLogLimit,
		now:                 time.Now,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.metrics == nil {
		s.metrics = noopWizardMetrics{}
	}
	if s.deleteConfirmations <= 0 {
		s.deleteConfirmations = defaultDeleteConfirmations
	}
	if s.deleteWindow <= 0 {
		s.deleteWindow = defaultDeleteWindow
	}
	if s.auditLogLimit <= 0 {
		s.auditLogLimit = defaultAuditLogLimit
	}
	return s
}

// CreateClient issues a new token and stores an empty record for it. A token
// taken between the existence check and the insert is detected from the
// returned id and retried.
func (s *AdminService) CreateClient(ctx context.Context, req CreateClientRequest) (*ClientSummary, error) {
	name := normalizeClientName(req.ClientName)

	for attempt := 1; attempt <= maxTokenAttempts; attempt++ {
		token, err := s.freshToken(ctx)
		if err != nil {
			return nil, err
		}
		if token == "" {
			s.logger.Debug("Token collision, retrying", zap.Int("attempt", attempt))
			continue
		}

		record, err := form.NewFormRecord(token, name, req.ClientEmail)
		if err != nil {
			return nil, err
		}
		if req.AmountDue != nil {
			if err := record.SetPaymentStatus(form.PaymentStatusPending, req.AmountDue, nil); err != nil {
				return nil, err
			}
		}

		id, err := s.records.Upsert(ctx, record, form.PatchNone)
		if err != nil {
			return nil, fmt.Errorf("create client %s: %w", token, err)
		}
		if id != record.ID {
			s.logger.Debug("Token taken concurrently, retrying", zap.Int("attempt", attempt))
			continue
		}

		s.logger.Info("Client token issued",
			zap.String("form_token", token),
			zap.String("form_id", id.String()))
		s.publish(ctx, record)

		summary := ToClientSummary(record, s.now())
		return &summary, nil
	}
	return nil, ErrTokenSpaceExhausted
}

// normalizeClientName title-cases a client name and collapses its spacing.
// A Caser keeps state between calls, so each call gets its own.
func normalizeClientName(name string) string {
	return cases.Title(language.Und).String(strings.Join(strings.Fields(name), " "))
}

// freshToken returns a random token, or "" when it is already in use
func (s *AdminService) freshToken(ctx context.Context) (string, error) {
	token, err := form.GenerateToken()
	if err != nil {
		return "", err
	}
	exists, err := s.records.ExistsByToken(ctx, token)
	if err != nil {
		return "", err
	}
	if exists {
		return "", nil
	}
	return token, nil
}

// ListClients returns a page of client summaries, newest first
func (s *AdminService) ListClients(ctx context.Context, filter ListClientsFilter) ([]ClientSummary, int64, error) {
	f := shared.DefaultFilter()
	f.Search = strings.TrimSpace(filter.Search)
	if filter.Page > 0 {
		f.Page = filter.Page
	}
	if filter.PageSize > 0 {
		f.PageSize = filter.PageSize
	}
	if filter.Status != "" {
		f.Filters["status"] = filter.Status
	}
	if filter.PaymentStatus != "" {
		f.Filters["payment_status"] = filter.PaymentStatus
	}
	if filter.IsActive != nil {
		f.Filters["is_active"] = *filter.IsActive
	}

	records, err := s.records.FindAll(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.records.Count(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	return ToClientSummaries(records, s.now()), total, nil
}

// GetClient returns the full record with its step snapshots and recent audit log
func (s *AdminService) GetClient(ctx context.Context, token string) (*ClientDetailResponse, error) {
	record, err := s.findRecord(ctx, token)
	if err != nil {
		return nil, err
	}

	detail := &ClientDetailResponse{
		ClientSummary:    ToClientSummary(record, s.now()),
		Fields:           record.Fields,
		CompletedSteps:   completedSteps(record),
		FinalSubmittedAt: record.FinalSubmittedAt,
		Comments:         record.AdminComments,
		StepProgress:     []StepProgressResponse{},
		AuditLog:         []form.AuditLogEntry{},
	}
	if s.activity == nil {
		return detail, nil
	}

	if snapshots, err := s.activity.ListStepSnapshots(ctx, record.ID); err != nil {
		s.logger.Warn("Failed to load step snapshots", zap.String("form_token", record.Token), zap.Error(err))
	} else {
		detail.StepProgress = ToStepProgressResponses(snapshots)
	}
	if logs, err := s.activity.ListAuditLogs(ctx, record.ID, s.auditLogLimit); err != nil {
		s.logger.Warn("Failed to load audit log", zap.String("form_token", record.Token), zap.Error(err))
	} else if logs != nil {
		detail.AuditLog = logs
	}
	return detail, nil
}

// SetPaymentStatus changes the payment state and amounts of a client
func (s *AdminService) SetPaymentStatus(ctx context.Context, token string, req SetPaymentStatusRequest) (*ClientSummary, error) {
	return s.mutate(ctx, token, form.PatchPayment, func(r *form.FormRecord) error {
		return r.SetPaymentStatus(form.PaymentStatus(req.PaymentStatus), req.AmountDue, req.AmountPaid)
	})
}

// AddComment appends an admin comment to a client
func (s *AdminService) AddComment(ctx context.Context, token, author string, req AddCommentRequest) (*ClientSummary, error) {
	return s.mutate(ctx, token, form.PatchComments, func(r *form.FormRecord) error {
		return r.AddComment(author, req.Text)
	})
}

// SetActive enables or disables wizard access for a client
func (s *AdminService) SetActive(ctx context.Context, token string, active bool) (*ClientSummary, error) {
	return s.mutate(ctx, token, form.PatchActivation, func(r *form.FormRecord) error {
		if active {
			return r.Activate()
		}
		return r.Deactivate()
	})
}

// mutate loads a record, applies fn and writes back only the patch group
func (s *AdminService) mutate(ctx context.Context, token string, patch form.Patch, fn func(*form.FormRecord) error) (*ClientSummary, error) {
	record, err := s.findRecord(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := fn(record); err != nil {
		return nil, err
	}
	if _, err := s.records.Upsert(ctx, record, patch); err != nil {
		return nil, fmt.Errorf("update client %s: %w", record.Token, err)
	}
	s.publish(ctx, record)

	summary := ToClientSummary(record, s.now())
	return &summary, nil
}

// RequestDelete registers one delete click by actor. The record is removed on
// the click that reaches the required count inside the window; the window is
// fixed from the first click.
func (s *AdminService) RequestDelete(ctx context.Context, actor, token string) (*DeleteConfirmation, error) {
	record, err := s.findRecord(ctx, token)
	if err != nil {
		return nil, err
	}

	key := confirmationKey(actor, record.Token)
	count, ttl, err := s.counter.Incr(ctx, key, s.deleteWindow)
	if err != nil {
		return nil, fmt.Errorf("count delete confirmation: %w", err)
	}

	confirmation := &DeleteConfirmation{
		Token:            record.Token,
		Confirmations:    count,
		Required:         s.deleteConfirmations,
		ExpiresInSeconds: int(math.Ceil(ttl.Seconds())),
	}
	if count < s.deleteConfirmations {
		return confirmation, nil
	}

	if err := s.records.DeleteByToken(ctx, record.Token); err != nil {
		return nil, err
	}
	if err := s.counter.Reset(ctx, key); err != nil {
		s.logger.Warn("Failed to reset delete confirmation", zap.String("form_token", record.Token), zap.Error(err))
	}
	if s.exporter != nil {
		if err := s.exporter.Remove(ctx, record.Token); err != nil {
			s.logger.Warn("Failed to remove client export", zap.String("form_token", record.Token), zap.Error(err))
		}
	}

	s.logger.Info("Client deleted",
		zap.String("form_token", record.Token),
		zap.String("actor", actor))
	s.metrics.RecordDelete(ctx)
	record.AddDomainEvent(form.NewFormRecordDeletedEvent(record, actor))
	s.publish(ctx, record)

	confirmation.Deleted = true
	confirmation.ExpiresInSeconds = 0
	return confirmation, nil
}

// CancelDelete clears pending delete clicks by actor
func (s *AdminService) CancelDelete(ctx context.Context, actor, token string) error {
	token = form.NormalizeToken(token)
	if err := form.ValidateToken(token); err != nil {
		return err
	}
	return s.counter.Reset(ctx, confirmationKey(actor, token))
}

// Stats summarizes all records for the dashboard
func (s *AdminService) Stats(ctx context.Context) (*StatsResponse, error) {
	stats, err := s.records.Stats(ctx)
	if err != nil {
		return nil, err
	}
	resp := ToStatsResponse(stats)
	return &resp, nil
}

// ExportClient writes the record to object storage and returns its location
func (s *AdminService) ExportClient(ctx context.Context, token string) (*ExportResponse, error) {
	if s.exporter == nil {
		return nil, shared.NewDomainError("EXPORT_DISABLED", "Export storage is not configured")
	}
	record, err := s.findRecord(ctx, token)
	if err != nil {
		return nil, err
	}
	key, url, err := s.exporter.Export(ctx, record)
	if err != nil {
		return nil, fmt.Errorf("export client %s: %w", record.Token, err)
	}
	return &ExportResponse{
		Token:       record.Token,
		Key:         key,
		DownloadURL: url,
		ExportedAt:  s.now(),
	}, nil
}

func (s *AdminService) findRecord(ctx context.Context, token string) (*form.FormRecord, error) {
	token = form.NormalizeToken(token)
	if err := form.ValidateToken(token); err != nil {
		return nil, err
	}
	record, err := s.records.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("NOT_FOUND", fmt.Sprintf("Client %s not found", token))
		}
		return nil, err
	}
	return record, nil
}

func (s *AdminService) publish(ctx context.Context, record *form.FormRecord) {
	events := record.TakeDomainEvents()
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish admin events",
			zap.String("form_token", record.Token),
			zap.Error(err))
	}
}

func confirmationKey(actor, token string) string {
	return "delete:" + actor + ":" + token
}
