package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/joserochalaredo-arch/8visas-sub000/internal/domain/form"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type stubStats struct {
	stats *form.FormStats
	err   error
}

func (s stubStats) Stats(context.Context) (*form.FormStats, error) {
	return s.stats, s.err
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestNewWizardMetrics_NilMeter(t *testing.T) {
	m, err := NewWizardMetrics(WizardMetricsConfig{})
	assert.ErrorIs(t, err, ErrMeterNil)
	assert.Nil(t, m)
}

func TestWizardMetrics_NoopMeter(t *testing.T) {
	m, err := NewWizardMetrics(WizardMetricsConfig{Meter: noop.NewMeterProvider().Meter("test")})
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordSave(ctx, 1, false, "saved", time.Millisecond)
	m.RecordCompletion(ctx)
	m.RecordDelete(ctx)
	assert.NoError(t, m.Stop())
}

func TestWizardMetrics_Record(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := NewWizardMetrics(WizardMetricsConfig{Meter: provider.Meter("test")})
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordSave(ctx, 2, false, "saved", 20*time.Millisecond)
	m.RecordSave(ctx, 2, false, "saved", 30*time.Millisecond)
	m.RecordSave(ctx, 3, true, "failed", time.Second)
	m.RecordCompletion(ctx)
	m.RecordDelete(ctx)

	metrics := collect(t, reader)

	saves, ok := metrics["ds160.step.saves"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	var total int64
	for _, dp := range saves.DataPoints {
		total += dp.Value
		step, _ := dp.Attributes.Value(AttrStep)
		if step.AsString() == "2" {
			assert.Equal(t, int64(2), dp.Value)
		}
	}
	assert.Equal(t, int64(3), total)
	assert.Len(t, saves.DataPoints, 2)

	hist, ok := metrics["ds160.step.save.duration"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	assert.Len(t, hist.DataPoints, 2)

	completed, ok := metrics["ds160.forms.completed"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Equal(t, int64(1), completed.DataPoints[0].Value)

	deleted, ok := metrics["ds160.clients.deleted"].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	assert.Equal(t, int64(1), deleted.DataPoints[0].Value)
}

func TestWizardMetrics_ObservesStats(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	source := stubStats{stats: &form.FormStats{
		Total: 5,
		ByStatus: map[form.Status]int64{
			form.StatusDraft:      2,
			form.StatusInProgress: 2,
			form.StatusCompleted:  1,
		},
		ByPaymentStatus: map[form.PaymentStatus]int64{form.PaymentStatusPaid: 5},
	}}

	m, err := NewWizardMetrics(WizardMetricsConfig{Meter: provider.Meter("test"), Stats: source})
	require.NoError(t, err)
	defer func() { _ = m.Stop() }()

	metrics := collect(t, reader)
	gauge, ok := metrics["ds160.forms"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	assert.Len(t, gauge.DataPoints, 3)

	payment, ok := metrics["ds160.forms.payment"].Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, payment.DataPoints, 1)
	assert.Equal(t, int64(5), payment.DataPoints[0].Value)
}

func TestWizardMetrics_StatsErrorSkipsCycle(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	_, err := NewWizardMetrics(WizardMetricsConfig{
		Meter: provider.Meter("test"),
		Stats: stubStats{err: errors.New("db down")},
	})
	require.NoError(t, err)

	var rm metricdata.ResourceMetrics
	assert.NoError(t, reader.Collect(context.Background(), &rm))
}
