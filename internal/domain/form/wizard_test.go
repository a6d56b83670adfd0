package form

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWizard_Submit(t *testing.T) {
	ctx := context.Background()

	t.Run("advances one step and marks the step", func(t *testing.T) {
		record := newTestRecord(t)
		wizard := NewWizard(record)

		require.NoError(t, wizard.Submit(ctx, map[string]any{"name": "X"}))

		assert.Equal(t, "step_2", wizard.State())
		assert.Equal(t, 2, record.CurrentStep)
		assert.Equal(t, []int{1}, record.CompletedSteps)
		assert.Equal(t, 14, record.Progress())
		assert.Equal(t, StatusInProgress, record.Status())
	})

	t.Run("resubmitting an earlier step is an idempotent merge", func(t *testing.T) {
		record := newTestRecord(t)
		wizard := NewWizard(record)
		require.NoError(t, wizard.Submit(ctx, map[string]any{"name": "X"}))

		require.NoError(t, wizard.MoveTo(1))
		require.NoError(t, wizard.Submit(ctx, map[string]any{"name": "Y", "email": "a@b.com"}))

		assert.Equal(t, map[string]any{"name": "Y", "email": "a@b.com"}, record.Fields)
		assert.Equal(t, []int{1}, record.CompletedSteps)
		assert.Equal(t, 14, record.Progress())
		assert.Equal(t, 2, record.CurrentStep)
	})

	t.Run("seven submits complete the form", func(t *testing.T) {
		record := newTestRecord(t)
		wizard := NewWizard(record)

		for step := 1; step <= TotalSteps; step++ {
			require.NoError(t, wizard.Submit(ctx, map[string]any{StepState(step): step}))
		}

		assert.Equal(t, StateCompleted, wizard.State())
		assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7}, record.CompletedSteps)
		assert.Equal(t, 100, record.Progress())
		assert.Equal(t, StatusCompleted, record.Status())
		assert.Equal(t, TotalSteps, record.CurrentStep)
		require.NotNil(t, record.FinalSubmittedAt)

		completed := 0
		for _, event := range record.GetDomainEvents() {
			if event.EventType() == EventTypeFormCompleted {
				completed++
			}
		}
		assert.Equal(t, 1, completed)
	})

	t.Run("cannot submit from completed", func(t *testing.T) {
		record := newTestRecord(t)
		wizard := NewWizard(record)
		for step := 1; step <= TotalSteps; step++ {
			require.NoError(t, wizard.Submit(ctx, nil))
		}

		err := wizard.Submit(ctx, nil)
		assert.Error(t, err)
	})
}

func TestWizard_SaveDraft(t *testing.T) {
	ctx := context.Background()

	t.Run("merges without advancing or marking", func(t *testing.T) {
		record := newTestRecord(t)
		wizard := NewWizard(record)
		require.NoError(t, wizard.Submit(ctx, nil))
		require.NoError(t, wizard.Submit(ctx, nil))

		require.NoError(t, wizard.SaveDraft(ctx, map[string]any{"home_city": "Quito"}))

		assert.Equal(t, "step_3", wizard.State())
		assert.Equal(t, 3, record.CurrentStep)
		assert.Equal(t, []int{1, 2}, record.CompletedSteps)
		assert.False(t, record.HasCompletedStep(3))
		assert.Equal(t, "Quito", record.Fields["home_city"])
	})

	t.Run("allowed after completion", func(t *testing.T) {
		record := newTestRecord(t)
		wizard := NewWizard(record)
		for step := 1; step <= TotalSteps; step++ {
			require.NoError(t, wizard.Submit(ctx, nil))
		}

		require.NoError(t, wizard.SaveDraft(ctx, map[string]any{"note": "late"}))
		assert.Equal(t, StateCompleted, wizard.State())
		assert.Equal(t, "late", record.Fields["note"])
	})
}

func TestWizard_MoveTo(t *testing.T) {
	record := newTestRecord(t)
	wizard := NewWizard(record)

	assert.ErrorIs(t, wizard.MoveTo(0), ErrInvalidStep)
	assert.ErrorIs(t, wizard.MoveTo(3), ErrStepNotReachable)

	require.NoError(t, wizard.Submit(context.Background(), nil))
	require.NoError(t, wizard.MoveTo(2))
	require.NoError(t, wizard.MoveTo(1))
	assert.Equal(t, 2, record.CurrentStep, "navigation alone has no data effect")
}

func TestWizard_SubmitStep(t *testing.T) {
	ctx := context.Background()

	t.Run("earlier step keeps the furthest current step", func(t *testing.T) {
		record := newTestRecord(t)
		wizard := NewWizard(record)
		for step := 1; step <= 3; step++ {
			require.NoError(t, wizard.SubmitStep(ctx, step, nil))
		}
		require.Equal(t, 4, record.CurrentStep)

		require.NoError(t, wizard.SubmitStep(ctx, 1, map[string]any{"surnames": "Diaz"}))

		assert.Equal(t, 4, record.CurrentStep)
		assert.Equal(t, []int{1, 2, 3}, record.CompletedSteps)
		assert.Equal(t, "Diaz", record.Fields["surnames"])
	})

	t.Run("unreachable step is rejected before any merge", func(t *testing.T) {
		record := newTestRecord(t)
		wizard := NewWizard(record)

		err := wizard.SubmitStep(ctx, 5, map[string]any{"x": 1})
		assert.ErrorIs(t, err, ErrStepNotReachable)
		assert.Empty(t, record.Fields)
		assert.Empty(t, record.CompletedSteps)
	})

	t.Run("resubmitting step 7 after completion is idempotent", func(t *testing.T) {
		record := newTestRecord(t)
		wizard := NewWizard(record)
		for step := 1; step <= TotalSteps; step++ {
			require.NoError(t, wizard.SubmitStep(ctx, step, nil))
		}
		finalAt := *record.FinalSubmittedAt
		record.ClearDomainEvents()

		require.NoError(t, wizard.SubmitStep(ctx, TotalSteps, map[string]any{"security_declaration": true}))

		assert.Equal(t, StateCompleted, wizard.State())
		assert.Equal(t, TotalSteps, record.CurrentStep)
		assert.Equal(t, 100, record.Progress())
		assert.Equal(t, finalAt, *record.FinalSubmittedAt)
		for _, event := range record.GetDomainEvents() {
			assert.NotEqual(t, EventTypeFormCompleted, event.EventType())
		}
	})

	t.Run("draft on a reachable step leaves the current step", func(t *testing.T) {
		record := newTestRecord(t)
		wizard := NewWizard(record)
		require.NoError(t, wizard.SubmitStep(ctx, 1, nil))
		require.NoError(t, wizard.SubmitStep(ctx, 2, nil))

		require.NoError(t, wizard.SaveDraftStep(ctx, 3, map[string]any{"home_city": "Lima"}))
		assert.Equal(t, 3, record.CurrentStep)
		assert.False(t, record.HasCompletedStep(3))

		assert.ErrorIs(t, wizard.SaveDraftStep(ctx, 6, nil), ErrStepNotReachable)
	})
}

func TestNewWizard_Hydration(t *testing.T) {
	record := newTestRecord(t)
	record.CurrentStep = 4
	record.CompletedSteps = []int{1, 2, 3}
	record.ClearDomainEvents()

	wizard := NewWizard(record)

	assert.Equal(t, "step_4", wizard.State())
	assert.Empty(t, record.GetDomainEvents())
	assert.Equal(t, 4, record.CurrentStep)
}

func TestStateStep(t *testing.T) {
	step, ok := StateStep("step_5")
	assert.True(t, ok)
	assert.Equal(t, 5, step)

	step, ok = StateStep(StateCompleted)
	assert.True(t, ok)
	assert.Equal(t, TotalSteps, step)

	_, ok = StateStep("step_9")
	assert.False(t, ok)
}
