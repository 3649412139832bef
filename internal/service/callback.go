package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/genrelay/genrelay/internal/core"
	"github.com/genrelay/genrelay/internal/domain/model"
	apperrors "github.com/genrelay/genrelay/internal/errors"
	"github.com/genrelay/genrelay/internal/observability/metrics"
	"github.com/genrelay/genrelay/internal/observability/statsd"
)

// Delivery outcome tags for callback metrics.
const (
	callbackOutcomeApplied   = "applied"
	callbackOutcomeDuplicate = "duplicate"
	callbackOutcomeOrphaned  = "orphaned"
	callbackOutcomeProgress  = "progress"
)

// Metric source tags identifying what triggered a delivery attempt.
const (
	DeliverySourceCallback = "callback"
	DeliverySourceSweep    = "sweep"
	DeliverySourceOrphan   = "orphan"
)

// resultDeliverer is the slice of DeliveryService the callback path needs.
type resultDeliverer interface {
	Deliver(ctx context.Context, job *model.Job, source string) bool
	NotifyFailure(ctx context.Context, job *model.Job, reason string)
}

// CallbackOptions groups dependencies for CallbackService.
type CallbackOptions struct {
	Jobs     core.JobRepository    // Required: job persistence
	Orphans  core.OrphanRepository // Required: orphan ledger
	Delivery resultDeliverer       // Required: result delivery
	Guard    core.CallbackGuard    // Optional: best-effort duplicate suppression
	Logger   *slog.Logger          // Optional: structured logger
	Metrics  statsd.Sink           // Optional: metrics sink (StatsD-compatible)
}

// CallbackService processes inbound provider notifications.
//
// Idempotency comes from the job store: terminal jobs absorb repeated
// callbacks as no-ops. Unknown task ids are parked in the orphan ledger
// rather than rejected, which makes out-of-order arrival (callback before
// the task id is bound) safe.
type CallbackService struct {
	jobs     core.JobRepository
	orphans  core.OrphanRepository
	delivery resultDeliverer
	guard    core.CallbackGuard
	logger   *slog.Logger
	metrics  statsd.Sink
}

// NewCallbackService constructs a new CallbackService.
func NewCallbackService(opts CallbackOptions) (*CallbackService, error) {
	if opts.Jobs == nil {
		return nil, errors.New("JobRepository is required")
	}
	if opts.Orphans == nil {
		return nil, errors.New("OrphanRepository is required")
	}
	if opts.Delivery == nil {
		return nil, errors.New("result deliverer is required")
	}

	guard := opts.Guard
	if guard == nil {
		guard = noopGuard{}
	}

	logger := opts.Logger
	if logger != nil {
		logger = logger.With("component", "callback_service")
	}

	return &CallbackService{
		jobs:     opts.Jobs,
		orphans:  opts.Orphans,
		delivery: opts.Delivery,
		guard:    guard,
		logger:   logger,
		metrics:  opts.Metrics,
	}, nil
}

type noopGuard struct{}

func (noopGuard) FirstSeen(context.Context, string, string) (bool, error) { return true, nil }

// Handle processes one provider notification. It is safe to call multiple
// times with the same payload.
func (s *CallbackService) Handle(ctx context.Context, cb *model.ProviderCallback) error {
	start := time.Now()

	if err := cb.Validate(); err != nil {
		s.emitCallback(cb, "invalid", time.Since(start), err)
		return apperrors.Validation(err.Error())
	}

	// Progress notifications are noisy and carry no results; the Redis
	// guard may short-circuit repeats. Terminal callbacks always reach
	// the database so a guard hiccup can never lose a result.
	if cb.Status == model.CallbackStatusRunning {
		first, err := s.guard.FirstSeen(ctx, cb.TaskID, string(cb.Status))
		if err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "callback guard unavailable", "task_id", cb.TaskID, "error", err)
		}
		if err == nil && !first {
			s.emitCallback(cb, callbackOutcomeDuplicate, time.Since(start), nil)
			return nil
		}
	}

	job, err := s.jobs.FindByTaskID(ctx, cb.TaskID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return s.storeOrphan(ctx, cb, start)
		}
		s.emitCallback(cb, "error", time.Since(start), err)
		return err
	}

	outcome, err := s.Apply(ctx, job, cb, DeliverySourceCallback)
	s.emitCallback(cb, outcome, time.Since(start), err)
	return err
}

// Apply transitions a known job per the callback and triggers delivery on
// success outcomes. It returns the handling outcome tag. The reconciler
// uses the same path when matching orphans, so both arrival orders share
// one transition implementation.
func (s *CallbackService) Apply(ctx context.Context, job *model.Job, cb *model.ProviderCallback, source string) (string, error) {
	var errMsg *string
	if cb.Error != "" {
		errMsg = &cb.Error
	}

	applied, err := s.jobs.ApplyCallback(ctx, core.ApplyCallbackParams{
		JobID:      job.ID,
		Status:     cb.JobStatus(),
		ResultURLs: cb.ResultURLs,
		ErrMsg:     errMsg,
	})
	if err != nil {
		return "error", err
	}
	if !applied {
		// Job already terminal: redelivered notification, nothing to do.
		if s.logger != nil {
			s.logger.InfoContext(ctx, "callback ignored for terminal job",
				"job_id", job.ID,
				"task_id", cb.TaskID,
				"status", cb.Status,
			)
		}
		return callbackOutcomeDuplicate, nil
	}

	switch cb.Status {
	case model.CallbackStatusSuccess:
		delivered := *job
		delivered.Status = model.JobStatusDone
		delivered.ResultURLs = cb.ResultURLs
		delivered.Delivered = false
		s.delivery.Deliver(ctx, &delivered, source)
	case model.CallbackStatusFail:
		reason := cb.Error
		if reason == "" {
			reason = "generation failed"
		}
		s.delivery.NotifyFailure(ctx, job, reason)
	case model.CallbackStatusRunning:
		return callbackOutcomeProgress, nil
	}

	return callbackOutcomeApplied, nil
}

func (s *CallbackService) storeOrphan(ctx context.Context, cb *model.ProviderCallback, start time.Time) error {
	payload, err := json.Marshal(cb)
	if err != nil {
		s.emitCallback(cb, "error", time.Since(start), err)
		return fmt.Errorf("encode orphan payload: %w", err)
	}

	orphan, err := s.orphans.Insert(ctx, cb.TaskID, payload)
	if err != nil {
		s.emitCallback(cb, "error", time.Since(start), err)
		return err
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "callback stored as orphan",
			"orphan_id", orphan.ID,
			"task_id", cb.TaskID,
			"status", cb.Status,
		)
	}
	s.emitCallback(cb, callbackOutcomeOrphaned, time.Since(start), nil)
	return nil
}

func (s *CallbackService) emitCallback(cb *model.ProviderCallback, outcome string, elapsed time.Duration, err error) {
	metrics.EmitCallback(s.metrics, metrics.CallbackMetric{
		Status:   string(cb.Status),
		Outcome:  outcome,
		Duration: elapsed,
		Err:      err,
	})
}
