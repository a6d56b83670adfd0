package form

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joserochalaredo-arch/8visas-sub000/internal/domain/shared"
	"github.com/looplab/fsm"
)

// Wizard states and events
const (
	StateCompleted = "completed"

	EventSubmit    = "submit"
	EventSaveDraft = "save_draft"
)

// ErrStepNotReachable is returned when a caller tries to act on a step beyond
// the furthest one the record has reached
var ErrStepNotReachable = shared.NewDomainError("STEP_NOT_REACHABLE", "This step cannot be opened yet")

// StepState returns the state name of a wizard step
func StepState(step int) string {
	return "step_" + strconv.Itoa(step)
}

// StateStep parses a step state name; completed maps to the last step
func StateStep(state string) (int, bool) {
	if state == StateCompleted {
		return TotalSteps, true
	}
	n, err := strconv.Atoi(strings.TrimPrefix(state, "step_"))
	if err != nil || !IsValidStep(n) {
		return 0, false
	}
	return n, true
}

// StateOf returns the wizard state a persisted record resumes into
func StateOf(r *FormRecord) string {
	if r.FinalSubmittedAt != nil {
		return StateCompleted
	}
	return StepState(r.CurrentStep)
}

// Wizard drives the fixed seven step sequence over one FormRecord.
// submit moves step_k to step_k+1 and step_7 to completed; save_draft loops on
// the current state. There is no backwards transition: going back is a pure
// navigation concern handled by MoveTo.
type Wizard struct {
	record  *FormRecord
	machine *fsm.FSM
}

// NewWizard hydrates a wizard from the record's persisted state. No
// transition is fired.
func NewWizard(record *FormRecord) *Wizard {
	w := &Wizard{record: record}
	w.machine = fsm.NewFSM(StateOf(record), wizardEvents(), fsm.Callbacks{
		"before_" + EventSubmit:    w.beforeSubmit,
		"before_" + EventSaveDraft: w.beforeSaveDraft,
		"after_" + EventSaveDraft:  w.afterSaveDraft,
		"enter_state":              w.enterState,
	})
	return w
}

func wizardEvents() fsm.Events {
	events := make(fsm.Events, 0, TotalSteps+1)
	drafts := make([]string, 0, TotalSteps+1)
	for step := FirstStep; step <= TotalSteps; step++ {
		dst := StateCompleted
		if step < TotalSteps {
			dst = StepState(step + 1)
		}
		events = append(events, fsm.EventDesc{Name: EventSubmit, Src: []string{StepState(step)}, Dst: dst})
		drafts = append(drafts, StepState(step))
	}
	drafts = append(drafts, StateCompleted)
	for _, state := range drafts {
		events = append(events, fsm.EventDesc{Name: EventSaveDraft, Src: []string{state}, Dst: state})
	}
	return events
}

// State returns the current wizard state
func (w *Wizard) State() string {
	return w.machine.Current()
}

// Record returns the record the wizard operates on
func (w *Wizard) Record() *FormRecord {
	return w.record
}

// MoveTo positions the wizard on step without touching record data. A caller
// may revisit any earlier step and open the step right after the furthest
// completed one, nothing beyond.
func (w *Wizard) MoveTo(step int) error {
	if !IsValidStep(step) {
		return ErrInvalidStep
	}
	if step > w.furthestReachable() {
		return ErrStepNotReachable
	}
	w.machine.SetState(StepState(step))
	return nil
}

func (w *Wizard) furthestReachable() int {
	furthest := w.record.CurrentStep
	if n := len(w.record.CompletedSteps); n > 0 {
		if next := w.record.CompletedSteps[n-1] + 1; next > furthest {
			furthest = next
		}
	}
	return clampStep(furthest)
}

// Submit merges payload, marks the current step completed and advances
func (w *Wizard) Submit(ctx context.Context, payload map[string]any) error {
	return w.fire(ctx, EventSubmit, payload)
}

// SaveDraft merges payload without advancing or marking the step
func (w *Wizard) SaveDraft(ctx context.Context, payload map[string]any) error {
	return w.fire(ctx, EventSaveDraft, payload)
}

// SubmitStep positions the wizard on step and submits payload there. An
// earlier step is merged and re-marked; a completed record stays completed.
func (w *Wizard) SubmitStep(ctx context.Context, step int, payload map[string]any) error {
	if err := w.MoveTo(step); err != nil {
		return err
	}
	return w.Submit(ctx, payload)
}

// SaveDraftStep checks that step is reachable and saves a draft on it
func (w *Wizard) SaveDraftStep(ctx context.Context, step int, payload map[string]any) error {
	if err := w.MoveTo(step); err != nil {
		return err
	}
	return w.SaveDraft(ctx, payload)
}

func (w *Wizard) fire(ctx context.Context, event string, payload map[string]any) error {
	err := w.machine.Event(ctx, event, payload)
	if err == nil {
		return nil
	}
	var noTransition fsm.NoTransitionError
	if errors.As(err, &noTransition) && noTransition.Err == nil {
		return nil
	}
	var invalid fsm.InvalidEventError
	if errors.As(err, &invalid) {
		return shared.NewDomainError("INVALID_TRANSITION", fmt.Sprintf("Cannot %s from %s", event, invalid.State))
	}
	return err
}

func (w *Wizard) beforeSubmit(_ context.Context, e *fsm.Event) {
	step, ok := StateStep(e.Src)
	if !ok {
		e.Cancel(ErrInvalidStep)
		return
	}
	w.record.MergeFields(payloadArg(e))
	w.record.MarkStepCompleted(step)
}

func (w *Wizard) beforeSaveDraft(_ context.Context, e *fsm.Event) {
	w.record.MergeFields(payloadArg(e))
}

func (w *Wizard) afterSaveDraft(_ context.Context, _ *fsm.Event) {
	w.record.IncrementVersion()
	w.record.AddDomainEvent(NewFormDraftSavedEvent(w.record))
}

func (w *Wizard) enterState(_ context.Context, e *fsm.Event) {
	from, _ := StateStep(e.Src)

	if e.Dst == StateCompleted {
		if w.record.FinalSubmittedAt == nil {
			now := time.Now()
			w.record.FinalSubmittedAt = &now
			w.record.AddDomainEvent(NewFormCompletedEvent(w.record))
		}
		w.record.CurrentStep = TotalSteps
	} else if next, ok := StateStep(e.Dst); ok && next > w.record.CurrentStep {
		// resubmitting an earlier step never moves the record backwards
		w.record.CurrentStep = next
	}
	w.record.IncrementVersion()
	w.record.AddDomainEvent(NewFormStepSubmittedEvent(w.record, from))
}

func payloadArg(e *fsm.Event) map[string]any {
	if len(e.Args) == 0 {
		return nil
	}
	payload, _ := e.Args[0].(map[string]any)
	return payload
}
