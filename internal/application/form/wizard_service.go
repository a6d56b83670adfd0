package form

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/domain/form"
	"github.com/joserochalaredo-arch/8visas-sub000/internal/domain/shared"
	"go.uber.org/zap"
)

// WizardService drives the client side of the form: resume, draft saves and
// step submits against the persistence gateway.
type WizardService struct {
	records        form.FormRecordRepository
	activity       form.ActivityRepository
	eventPublisher shared.EventPublisher
	metrics        WizardMetrics
	logger         *zap.Logger
}

// WizardServiceConfig holds the dependencies of a WizardService
type WizardServiceConfig struct {
	Records        form.FormRecordRepository
	Activity       form.ActivityRepository
	EventPublisher shared.EventPublisher // optional
	Metrics        WizardMetrics         // optional
	Logger         *zap.Logger           // optional
}

// NewWizardService creates a new WizardService
func NewWizardService(cfg WizardServiceConfig) *WizardService {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = noopWizardMetrics{}
	}
	return &WizardService{
		records:        cfg.Records,
		activity:       cfg.Activity,
		eventPublisher: cfg.EventPublisher,
		metrics:        metrics,
		logger:         logger,
	}
}

// Resume loads the stored record for token together with its step snapshots.
// shared.ErrNotFound means the client starts a fresh form.
func (s *WizardService) Resume(ctx context.Context, token string) (*ResumeResponse, error) {
	token = form.NormalizeToken(token)
	if err := form.ValidateToken(token); err != nil {
		return nil, err
	}

	record, err := s.records.FindByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	resp := &ResumeResponse{
		FormRecordResponse: ToFormRecordResponse(record),
		State:              form.StateOf(record),
		StepProgress:       []StepProgressResponse{},
	}
	if s.activity == nil {
		return resp, nil
	}

	snapshots, err := s.activity.ListStepSnapshots(ctx, record.ID)
	if err != nil {
		s.logger.Warn("Failed to load step snapshots",
			zap.String("form_token", token),
			zap.Error(err))
		return resp, nil
	}
	resp.StepProgress = ToStepProgressResponses(snapshots)
	return resp, nil
}

// SubmitStep validates and submits the request's step
func (s *WizardService) SubmitStep(ctx context.Context, req SaveStepRequest) (*SaveStepResponse, error) {
	return s.save(ctx, req, false)
}

// SaveDraft merges the request's data without completing the step
func (s *WizardService) SaveDraft(ctx context.Context, req SaveStepRequest) (*SaveStepResponse, error) {
	return s.save(ctx, req, true)
}

// Save dispatches on req.IsDraft
func (s *WizardService) Save(ctx context.Context, req SaveStepRequest) (*SaveStepResponse, error) {
	return s.save(ctx, req, req.IsDraft)
}

func (s *WizardService) save(ctx context.Context, req SaveStepRequest, draft bool) (*SaveStepResponse, error) {
	start := time.Now()
	outcome := OutcomeRejected
	defer func() {
		s.metrics.RecordSave(ctx, req.Step, draft, outcome, time.Since(start))
	}()

	token := form.NormalizeToken(req.Token)
	if err := form.ValidateToken(token); err != nil {
		return nil, err
	}
	if !form.IsValidStep(req.Step) {
		return nil, form.ErrInvalidStep
	}

	session, err := s.openSession(ctx, token, req)
	if err != nil {
		if isTransient(err) {
			outcome = OutcomeFailed
		}
		return nil, err
	}
	confirmed := session.Confirmed()
	if !confirmed.IsActive {
		return nil, form.ErrFormInactive
	}

	payload := req.Payload()
	if !draft {
		if err := form.ValidateStepFields(req.Step, confirmed.Fields, payload); err != nil {
			outcome = OutcomeValidation
			return nil, err
		}
	}

	pending := session.Begin()
	patch := form.PatchProgress
	if !session.IsFresh() && (req.ClientName != "" || req.ClientEmail != "") {
		if err := pending.UpdateClient(normalizeClientName(req.ClientName), req.ClientEmail); err != nil {
			session.Rollback()
			return nil, err
		}
		patch |= form.PatchClient
	}

	wizard := form.NewWizard(pending)
	if draft {
		err = wizard.SaveDraftStep(ctx, req.Step, payload)
	} else {
		err = wizard.SubmitStep(ctx, req.Step, payload)
	}
	if err != nil {
		session.Rollback()
		return nil, err
	}
	pending.Touch()

	formID, err := s.records.Upsert(ctx, pending, patch)
	if err != nil {
		session.Rollback()
		outcome = OutcomeFailed
		s.logger.Error("Failed to save form progress",
			zap.String("form_token", token),
			zap.Int("step", req.Step),
			zap.Bool("draft", draft),
			zap.Error(err))
		return nil, form.NewTransientSaveError(err)
	}

	events := pending.GetDomainEvents()
	remote, err := s.records.FindByID(ctx, formID)
	if err != nil {
		// the write went through; answer from the pending copy
		s.logger.Warn("Failed to re-read saved form record",
			zap.String("form_token", token),
			zap.Error(err))
		remote = pending
		remote.ID = formID
	}
	session.Commit(remote)
	outcome = OutcomeSaved

	s.recordActivity(ctx, formID, token, req, draft, events)
	s.publishEvents(ctx, token, events)

	resp := ToSaveStepResponse(session.Confirmed())
	return &resp, nil
}

// openSession loads the confirmed copy for token, or starts a fresh record
func (s *WizardService) openSession(ctx context.Context, token string, req SaveStepRequest) (*Session, error) {
	record, err := s.records.FindByToken(ctx, token)
	if err == nil {
		return NewSession(record), nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		s.logger.Error("Failed to load form record",
			zap.String("form_token", token),
			zap.Error(err))
		return nil, form.NewTransientSaveError(err)
	}

	fresh, err := form.NewFormRecord(token, normalizeClientName(req.ClientName), req.ClientEmail)
	if err != nil {
		return nil, err
	}
	return NewFreshSession(fresh), nil
}

// recordActivity writes the step snapshot and audit entry. Failures are logged
// and never change the outcome of the save.
func (s *WizardService) recordActivity(ctx context.Context, formID uuid.UUID, token string, req SaveStepRequest, draft bool, events []shared.DomainEvent) {
	if s.activity == nil {
		return
	}

	snapshot := req.StepData
	if len(snapshot) == 0 {
		snapshot = req.Payload()
	}

	action := form.AuditActionStepSubmitted
	switch {
	case draft:
		action = form.AuditActionDraftSaved
	case hasEvent(events, form.EventTypeFormCompleted):
		action = form.AuditActionCompleted
	}

	if !draft {
		if err := s.activity.AppendStepSnapshot(ctx, formID, req.Step, snapshot); err != nil {
			s.logger.Warn("Failed to record step snapshot",
				zap.String("form_token", token),
				zap.Int("step", req.Step),
				zap.Error(err))
		}
	}
	if err := s.activity.AppendAuditLog(ctx, formID, action, req.Step, snapshot); err != nil {
		s.logger.Warn("Failed to record audit log",
			zap.String("form_token", token),
			zap.String("action", string(action)),
			zap.Error(err))
	}
}

func (s *WizardService) publishEvents(ctx context.Context, token string, events []shared.DomainEvent) {
	if hasEvent(events, form.EventTypeFormCompleted) {
		s.metrics.RecordCompletion(ctx)
	}
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("Failed to publish form events",
			zap.String("form_token", token),
			zap.Int("event_count", len(events)),
			zap.Error(err))
	}
}

func hasEvent(events []shared.DomainEvent, eventType string) bool {
	for _, e := range events {
		if e.EventType() == eventType {
			return true
		}
	}
	return false
}

func isTransient(err error) bool {
	var transient *form.TransientSaveError
	return errors.As(err, &transient)
}
