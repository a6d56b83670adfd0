package telemetry

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/joserochalaredo-arch/8visas-sub000/internal/domain/form"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when no meter is supplied
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// Attribute keys shared by wizard instruments
var (
	AttrStep          = attribute.Key("step")
	AttrDraft         = attribute.Key("draft")
	AttrOutcome       = attribute.Key("outcome")
	AttrStatus        = attribute.Key("status")
	AttrPaymentStatus = attribute.Key("payment_status")
)

// SaveDurationBuckets are histogram boundaries for step saves (seconds)
var SaveDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// StatsSource supplies the aggregate counts reported as gauges
type StatsSource interface {
	Stats(ctx context.Context) (*form.FormStats, error)
}

// WizardMetricsConfig holds dependencies for WizardMetrics
type WizardMetricsConfig struct {
	Meter  metric.Meter
	Stats  StatsSource // optional; enables the forms gauges
	Logger *zap.Logger
}

// WizardMetrics records step saves, completions and deletes, and observes
// the stored form population on each collection cycle.
type WizardMetrics struct {
	logger *zap.Logger

	saves        metric.Int64Counter
	saveDuration metric.Float64Histogram
	completions  metric.Int64Counter
	deletes      metric.Int64Counter

	registration metric.Registration
}

// NewWizardMetrics creates the wizard instruments on cfg.Meter
func NewWizardMetrics(cfg WizardMetricsConfig) (*WizardMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &WizardMetrics{logger: logger}
	var err error

	if m.saves, err = cfg.Meter.Int64Counter("ds160.step.saves",
		metric.WithDescription("Step save attempts by step, draft flag and outcome"),
		metric.WithUnit("{save}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create saves counter: %w", err)
	}
	if m.saveDuration, err = cfg.Meter.Float64Histogram("ds160.step.save.duration",
		metric.WithDescription("Time spent handling a step save"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(SaveDurationBuckets...),
	); err != nil {
		return nil, fmt.Errorf("failed to create save duration histogram: %w", err)
	}
	if m.completions, err = cfg.Meter.Int64Counter("ds160.forms.completed",
		metric.WithDescription("Forms that reached 100% progress"),
		metric.WithUnit("{form}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create completions counter: %w", err)
	}
	if m.deletes, err = cfg.Meter.Int64Counter("ds160.clients.deleted",
		metric.WithDescription("Client records deleted after confirmation"),
		metric.WithUnit("{client}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create deletes counter: %w", err)
	}

	if cfg.Stats != nil {
		if err := m.observeStats(cfg.Meter, cfg.Stats); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *WizardMetrics) observeStats(meter metric.Meter, source StatsSource) error {
	byStatus, err := meter.Int64ObservableGauge("ds160.forms",
		metric.WithDescription("Stored forms by derived status"),
		metric.WithUnit("{form}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create forms gauge: %w", err)
	}
	byPayment, err := meter.Int64ObservableGauge("ds160.forms.payment",
		metric.WithDescription("Stored forms by payment status"),
		metric.WithUnit("{form}"),
	)
	if err != nil {
		return fmt.Errorf("failed to create payment gauge: %w", err)
	}

	m.registration, err = meter.RegisterCallback(func(ctx context.Context, o metric.Observer) error {
		stats, err := source.Stats(ctx)
		if err != nil {
			// skip this cycle; the next collection retries
			m.logger.Warn("failed to collect form stats", zap.Error(err))
			return nil
		}
		for status, n := range stats.ByStatus {
			o.ObserveInt64(byStatus, n, metric.WithAttributes(AttrStatus.String(string(status))))
		}
		for status, n := range stats.ByPaymentStatus {
			o.ObserveInt64(byPayment, n, metric.WithAttributes(AttrPaymentStatus.String(string(status))))
		}
		return nil
	}, byStatus, byPayment)
	if err != nil {
		return fmt.Errorf("failed to register stats callback: %w", err)
	}
	return nil
}

// RecordSave counts one save and its latency
func (m *WizardMetrics) RecordSave(ctx context.Context, step int, draft bool, outcome string, elapsed time.Duration) {
	attrs := metric.WithAttributes(
		AttrStep.String(strconv.Itoa(step)),
		AttrDraft.Bool(draft),
		AttrOutcome.String(outcome),
	)
	m.saves.Add(ctx, 1, attrs)
	m.saveDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordCompletion counts a completed form
func (m *WizardMetrics) RecordCompletion(ctx context.Context) {
	m.completions.Add(ctx, 1)
}

// RecordDelete counts a confirmed delete
func (m *WizardMetrics) RecordDelete(ctx context.Context) {
	m.deletes.Add(ctx, 1)
}

// Stop unregisters the stats callback
func (m *WizardMetrics) Stop() error {
	if m.registration == nil {
		return nil
	}
	return m.registration.Unregister()
}
