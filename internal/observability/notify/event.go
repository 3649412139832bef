// Package notify defines the operator notification contract for pipeline
// incidents: orphaned callbacks that expired unmatched, deliveries that
// keep failing, and reconciler passes that error out.
package notify

import (
	"context"
	"time"
)

// Severity constants recognised by downstream sinks.
const (
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Event kinds emitted by the pipeline.
const (
	KindOrphanExpired   = "orphan_expired"
	KindDeliveryStalled = "delivery_stalled"
	KindReconcileFailed = "reconcile_failed"
)

// EventPayload captures the canonical data we emit for pipeline incident
// notifications.
type EventPayload struct {
	Kind       string
	JobID      string
	TaskID     string
	ChatID     int64
	Error      string
	ErrorClass string
	Severity   string
	OccurredAt time.Time
	Metadata   map[string]string
}

// Sink describes a destination capable of consuming pipeline incident
// notifications.
type Sink interface {
	SendEvent(ctx context.Context, payload EventPayload) error
}

// SinkFunc adapts a function to the Sink interface (useful for tests).
type SinkFunc func(ctx context.Context, payload EventPayload) error

// SendEvent implements the Sink interface.
func (f SinkFunc) SendEvent(ctx context.Context, payload EventPayload) error {
	if f == nil {
		return nil
	}
	return f(ctx, payload)
}
