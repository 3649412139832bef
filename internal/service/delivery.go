package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/genrelay/genrelay/internal/core"
	"github.com/genrelay/genrelay/internal/domain/model"
	"github.com/genrelay/genrelay/internal/observability/metrics"
	"github.com/genrelay/genrelay/internal/observability/statsd"
)

// DeliveryOptions groups dependencies for DeliveryService.
type DeliveryOptions struct {
	Jobs    core.JobRepository  // Required: job persistence
	Channel core.MessageChannel // Required: user-facing delivery channel
	Logger  *slog.Logger        // Optional: structured logger
	Metrics statsd.Sink         // Optional: metrics sink (StatsD-compatible)
}

// DeliveryService pushes finished results to users.
//
// Delivery is send-then-flag and best-effort at-most-once: the message
// goes out first and the delivered flag is flipped after a confirmed
// send. A crash between the two can resend on the next sweep; the flag
// never claims a send that did not happen. Channel failures are recorded,
// never raised; the job simply stays a retry candidate.
type DeliveryService struct {
	jobs    core.JobRepository
	channel core.MessageChannel
	logger  *slog.Logger
	metrics statsd.Sink
}

// NewDeliveryService constructs a new DeliveryService.
func NewDeliveryService(opts DeliveryOptions) (*DeliveryService, error) {
	if opts.Jobs == nil {
		return nil, errors.New("JobRepository is required")
	}
	if opts.Channel == nil {
		return nil, errors.New("MessageChannel is required")
	}

	logger := opts.Logger
	if logger != nil {
		logger = logger.With("component", "delivery_service")
	}

	return &DeliveryService{
		jobs:    opts.Jobs,
		channel: opts.Channel,
		logger:  logger,
		metrics: opts.Metrics,
	}, nil
}

// Deliver sends the job's results to its chat and marks the job delivered.
// It returns true only on a confirmed send followed by winning the
// delivered-flag update. Jobs that do not satisfy the delivery
// preconditions are skipped. Failures leave the job undelivered for the
// retry sweep and are never surfaced to the caller.
func (s *DeliveryService) Deliver(ctx context.Context, job *model.Job, source string) bool {
	start := time.Now()

	if !job.Deliverable() {
		s.emitDelivery(source, metrics.ResultNoop, time.Since(start), nil)
		return false
	}

	if err := s.channel.SendResult(ctx, job.ChatID, job.ResultURLs); err != nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "result delivery failed",
				"job_id", job.ID,
				"chat_id", job.ChatID,
				"source", source,
				"error", err,
			)
		}
		s.emitDelivery(source, metrics.ResultError, time.Since(start), err)
		return false
	}

	applied, err := s.jobs.MarkDelivered(ctx, job.ID)
	if err != nil {
		// The message went out but the flag update failed; the sweep
		// will retry and may resend. Log loudly, this is the one spot
		// where duplicates originate.
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "sent result but failed to mark delivered",
				"job_id", job.ID,
				"source", source,
				"error", err,
			)
		}
		s.emitDelivery(source, metrics.ResultError, time.Since(start), err)
		return false
	}
	if !applied && s.logger != nil {
		s.logger.WarnContext(ctx, "delivered flag already set by concurrent path",
			"job_id", job.ID,
			"source", source,
		)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "result delivered",
			"job_id", job.ID,
			"chat_id", job.ChatID,
			"urls", len(job.ResultURLs),
			"source", source,
		)
	}
	s.emitDelivery(source, metrics.ResultSuccess, time.Since(start), nil)
	return applied
}

// NotifyFailure sends a best-effort failure notice to the job's chat.
// Errors are logged and swallowed: the job is already terminal and a lost
// notice must not disturb the pipeline.
func (s *DeliveryService) NotifyFailure(ctx context.Context, job *model.Job, reason string) {
	if job == nil || job.ChatID == 0 {
		return
	}
	if err := s.channel.SendFailureNotice(ctx, job.ChatID, reason); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failure notice delivery failed",
			"job_id", job.ID,
			"chat_id", job.ChatID,
			"error", err,
		)
	}
}

func (s *DeliveryService) emitDelivery(source, result string, elapsed time.Duration, err error) {
	metrics.EmitDelivery(s.metrics, metrics.DeliveryMetric{
		Source:   source,
		Result:   result,
		Duration: elapsed,
		Err:      err,
	})
}
