package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/nivaasi/backend/internal/application/tenancy"
	"github.com/nivaasi/backend/internal/infrastructure/event"
	"go.opentelemetry.io/otel/metric"
)

// TenancyMetrics counts coordinator outcomes and event handler runs
type TenancyMetrics struct {
	conflicts       *Counter
	inconsistencies *Counter
	compensations   *Counter
	handled         *Counter
	handlerDuration *Histogram
}

// NewTenancyMetrics creates the instruments on meter
func NewTenancyMetrics(meter metric.Meter) (*TenancyMetrics, error) {
	if meter == nil {
		return nil, errors.New("NewTenancyMetrics: meter cannot be nil")
	}

	conflicts, err := NewCounter(meter, "tenancy_conflicts_total",
		"Operations rejected because of a conflicting bed or concurrent write", "{operation}")
	if err != nil {
		return nil, err
	}
	inconsistencies, err := NewCounter(meter, "tenancy_inconsistencies_total",
		"Bed and tenant references found out of step", "{inconsistency}")
	if err != nil {
		return nil, err
	}
	compensations, err := NewCounter(meter, "tenancy_compensations_total",
		"Bed changes undone after a failed tenant write", "{compensation}")
	if err != nil {
		return nil, err
	}
	handled, err := NewCounter(meter, "event_handler_invocations_total",
		"Event handler invocations by event type and outcome", "{invocation}")
	if err != nil {
		return nil, err
	}
	handlerDuration, err := NewHistogram(meter, HistogramOpts{
		Name:        "event_handler_duration_seconds",
		Description: "Time spent in event handlers",
		Unit:        "s",
		Boundaries:  HandlerDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	return &TenancyMetrics{
		conflicts:       conflicts,
		inconsistencies: inconsistencies,
		compensations:   compensations,
		handled:         handled,
		handlerDuration: handlerDuration,
	}, nil
}

func (m *TenancyMetrics) RecordConflict(ctx context.Context, operation string) {
	m.conflicts.Inc(ctx, AttrOperation.String(operation))
}

func (m *TenancyMetrics) RecordInconsistency(ctx context.Context, kind string) {
	m.inconsistencies.Inc(ctx, AttrKind.String(kind))
}

func (m *TenancyMetrics) RecordCompensation(ctx context.Context, operation string, succeeded bool) {
	m.compensations.Inc(ctx, AttrOperation.String(operation), AttrOutcome.String(outcome(succeeded)))
}

// RecordHandled implements event.DispatchObserver
func (m *TenancyMetrics) RecordHandled(ctx context.Context, eventType string, d time.Duration, err error) {
	m.handled.Inc(ctx, AttrEventType.String(eventType), AttrOutcome.String(outcome(err == nil)))
	m.handlerDuration.RecordDuration(ctx, d, AttrEventType.String(eventType))
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

var (
	_ tenancy.Metrics        = (*TenancyMetrics)(nil)
	_ event.DispatchObserver = (*TenancyMetrics)(nil)
)
