// Package opsnotifier fans pipeline incident events out to the configured
// operator notification sinks.
package opsnotifier

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/genrelay/genrelay/internal/observability/notify"
)

// SinkRegistration pairs a sink implementation with a human-readable name for logging.
type SinkRegistration struct {
	Name string
	Sink notify.Sink
}

// Options configures the ops notifier service.
type Options struct {
	Logger  *slog.Logger
	Sinks   []SinkRegistration
	Timeout time.Duration
}

// Service dispatches incident events to all registered sinks concurrently.
// Sink failures are logged and never propagate to the caller: notification
// is advisory and must not affect pipeline behaviour.
type Service struct {
	logger  *slog.Logger
	sinks   []SinkRegistration
	timeout time.Duration
}

// NewService constructs an ops notifier.
func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default().With("component", "ops_notifier")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var sinks []SinkRegistration
	for _, entry := range opts.Sinks {
		if entry.Sink == nil {
			continue
		}
		name := entry.Name
		if name == "" {
			name = "sink"
		}
		sinks = append(sinks, SinkRegistration{
			Name: name,
			Sink: entry.Sink,
		})
	}

	return &Service{
		logger:  logger,
		sinks:   sinks,
		timeout: timeout,
	}
}

// NotifyEvent fans the incident payload out to all sinks.
func (s *Service) NotifyEvent(ctx context.Context, payload notify.EventPayload) {
	if len(s.sinks) == 0 {
		return
	}

	if payload.Severity == "" {
		payload.Severity = notify.SeverityWarning
	}
	if payload.OccurredAt.IsZero() {
		payload.OccurredAt = time.Now().UTC()
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var wg sync.WaitGroup
	for _, entry := range s.sinks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := entry.Sink.SendEvent(sendCtx, payload); err != nil {
				s.logger.Error("ops notifier delivery error",
					"sink", entry.Name,
					"kind", payload.Kind,
					"task_id", payload.TaskID,
					"error", err,
				)
			}
		}()
	}
	wg.Wait()
}

// Enabled reports whether the notifier has any active sinks.
func (s *Service) Enabled() bool {
	return len(s.sinks) > 0
}
