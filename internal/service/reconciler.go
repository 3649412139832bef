package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/genrelay/genrelay/config"
	"github.com/genrelay/genrelay/internal/core"
	"github.com/genrelay/genrelay/internal/domain/model"
	apperrors "github.com/genrelay/genrelay/internal/errors"
	obserrors "github.com/genrelay/genrelay/internal/observability/errors"
	"github.com/genrelay/genrelay/internal/observability/metrics"
	"github.com/genrelay/genrelay/internal/observability/notify"
	"github.com/genrelay/genrelay/internal/observability/statsd"
	"github.com/genrelay/genrelay/internal/service/opsnotifier"
)

// leaseReconciler names the lease row that elects the active reconciler.
const leaseReconciler = "reconciler"

// callbackApplier is the slice of CallbackService the reconciler needs to
// replay matched orphan payloads through the shared transition path.
type callbackApplier interface {
	Apply(ctx context.Context, job *model.Job, cb *model.ProviderCallback, source string) (string, error)
}

// ReconcilerOptions groups dependencies for ReconcilerService.
type ReconcilerOptions struct {
	Jobs      core.JobRepository      // Required: job persistence
	Orphans   core.OrphanRepository   // Required: orphan ledger
	Leases    core.LeaseRepository    // Required: leadership lease
	Callbacks callbackApplier         // Required: shared callback transition path
	Delivery  resultDeliverer         // Required: result delivery
	Config    config.ReconcilerConfig // Required: reconciler configuration
	Notifier  *opsnotifier.Service    // Optional: operational event fan-out
	Logger    *slog.Logger            // Optional: structured logger
	Metrics   statsd.Sink             // Optional: metrics sink (StatsD-compatible)
	Now       func() time.Time        // Optional: clock override for tests
}

// ReconcilerService periodically repairs the pipeline:
//
// - Matching parked orphan callbacks against jobs whose task id arrived late.
// - Expiring orphans that never found a job within the configured window.
// - Retrying delivery of done jobs whose send never completed.
// - Purging delivered jobs and processed orphans past retention.
//
// Multiple instances may run; a database lease row elects one active
// reconciler per tick, so every pass is single-flight across the fleet.
type ReconcilerService struct {
	jobs      core.JobRepository
	orphans   core.OrphanRepository
	leases    core.LeaseRepository
	callbacks callbackApplier
	delivery  resultDeliverer
	config    config.ReconcilerConfig
	notifier  *opsnotifier.Service
	logger    *slog.Logger
	metrics   statsd.Sink
	now       func() time.Time
	owner     string
}

// NewReconcilerService constructs a new ReconcilerService.
func NewReconcilerService(opts ReconcilerOptions) (*ReconcilerService, error) {
	if opts.Jobs == nil {
		return nil, errors.New("JobRepository is required")
	}
	if opts.Orphans == nil {
		return nil, errors.New("OrphanRepository is required")
	}
	if opts.Leases == nil {
		return nil, errors.New("LeaseRepository is required")
	}
	if opts.Callbacks == nil {
		return nil, errors.New("callback applier is required")
	}
	if opts.Delivery == nil {
		return nil, errors.New("result deliverer is required")
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	owner := uuid.NewString()

	logger := opts.Logger
	if logger != nil {
		logger = logger.With("component", "reconciler_service", "owner", owner)
		logger.Debug("ReconcilerService initialized",
			"interval", opts.Config.Interval,
			"lease_ttl", opts.Config.LeaseTTL,
			"orphan_max_age", opts.Config.OrphanMaxAge,
			"retention_max_age", opts.Config.RetentionMaxAge,
		)
	}

	return &ReconcilerService{
		jobs:      opts.Jobs,
		orphans:   opts.Orphans,
		leases:    opts.Leases,
		callbacks: opts.Callbacks,
		delivery:  opts.Delivery,
		config:    opts.Config,
		notifier:  opts.Notifier,
		logger:    logger,
		metrics:   opts.Metrics,
		now:       now,
		owner:     owner,
	}, nil
}

// Run starts the reconcile loop and runs until the context is cancelled.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *ReconcilerService) Run(ctx context.Context) error {
	if s.logger != nil {
		s.logger.InfoContext(ctx, "starting reconciler service", "interval", s.config.Interval)
	}

	// Add jitter to prevent thundering herd if multiple instances start together
	s.waitWithJitter(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()
	defer s.releaseLease()

	// Run a pass immediately after jitter
	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			if s.logger != nil {
				s.logger.InfoContext(ctx, "reconciler service stopping", "reason", ctx.Err())
			}
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// waitWithJitter adds a random delay up to 10% of the interval to prevent thundering herd.
func (s *ReconcilerService) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.config.Interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// If crypto/rand fails, skip jitter rather than failing startup
		if s.logger != nil {
			s.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		}
		return
	}

	jitterNanos := binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter)
	jitter := time.Duration(int64(jitterNanos)) // #nosec G115 - bounded by maxJitter which is int64

	select {
	case <-time.After(jitter):
	case <-ctx.Done():
		// Graceful shutdown during jitter
	}
}

// tick acquires the lease and runs a single pass, logging rather than
// propagating errors so one bad pass never stops the loop.
func (s *ReconcilerService) tick(ctx context.Context) {
	acquired, err := s.leases.TryAcquire(ctx, leaseReconciler, s.owner, s.config.LeaseTTL)
	if err != nil {
		s.logPassError(ctx, fmt.Errorf("acquire lease: %w", err))
		s.emitTick("lease_error", 0, err)
		return
	}
	if !acquired {
		if s.logger != nil {
			s.logger.DebugContext(ctx, "lease held by another instance, skipping pass")
		}
		s.emitTick("standby", 0, nil)
		return
	}

	start := s.now()
	stats, err := s.Reconcile(ctx)
	elapsed := time.Since(start)

	if err != nil {
		s.logPassError(ctx, err)
		s.notifyOps(ctx, notify.EventPayload{
			Kind:       notify.KindReconcileFailed,
			Error:      err.Error(),
			ErrorClass: obserrors.Classify(err),
			Severity:   notify.SeverityCritical,
		})
		s.emitTick(metrics.ResultError, elapsed, err)
		return
	}

	if s.logger != nil && (stats.Matched > 0 || stats.Expired > 0 || stats.Redelivered > 0) {
		s.logger.InfoContext(ctx, "reconcile pass finished",
			"matched", stats.Matched,
			"expired", stats.Expired,
			"redelivered", stats.Redelivered,
			"elapsed", elapsed,
		)
	}

	result := metrics.ResultSuccess
	if stats.Matched == 0 && stats.Expired == 0 && stats.Redelivered == 0 {
		result = metrics.ResultNoop
	}
	s.emitTick(result, elapsed, nil)
}

// Reconcile runs one full pass: orphan matching, delivery retry, cleanup,
// and backlog gauges. Steps run in order; a failing step does not stop the
// later ones, and all step errors are joined into the return value.
func (s *ReconcilerService) Reconcile(ctx context.Context) (model.ReconcileStats, error) {
	var (
		stats model.ReconcileStats
		errs  []error
	)

	if err := s.processOrphans(ctx, &stats); err != nil {
		errs = append(errs, fmt.Errorf("process orphans: %w", err))
	}
	if err := s.sweepUndelivered(ctx, &stats); err != nil {
		errs = append(errs, fmt.Errorf("sweep undelivered: %w", err))
	}
	if err := s.cleanup(ctx); err != nil {
		errs = append(errs, fmt.Errorf("cleanup: %w", err))
	}
	s.emitBacklogGauges(ctx)

	return stats, errors.Join(errs...)
}

// processOrphans walks the unprocessed orphan ledger oldest-first. A parked
// callback whose task id now has a job is replayed through the shared
// callback path; one older than the expiry window is written off. A fresh
// orphan with no job yet is left for a later pass.
func (s *ReconcilerService) processOrphans(ctx context.Context, stats *model.ReconcileStats) error {
	orphans, err := s.orphans.ListUnprocessed(ctx, s.config.OrphanBatchSize)
	if err != nil {
		return err
	}

	cutoff := s.now().Add(-s.config.OrphanMaxAge)

	var errs []error
	for _, orphan := range orphans {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}

		matched, err := s.matchOrphan(ctx, orphan)
		if err != nil {
			errs = append(errs, fmt.Errorf("orphan %s: %w", orphan.ID, err))
			continue
		}
		if matched {
			stats.Matched++
			continue
		}

		if orphan.ReceivedAt.Before(cutoff) {
			if err := s.expireOrphan(ctx, orphan); err != nil {
				errs = append(errs, fmt.Errorf("orphan %s: %w", orphan.ID, err))
				continue
			}
			stats.Expired++
		}
	}

	return errors.Join(errs...)
}

// matchOrphan tries to pair one orphan with its job. It reports whether the
// orphan was consumed.
func (s *ReconcilerService) matchOrphan(ctx context.Context, orphan *model.OrphanCallback) (bool, error) {
	job, err := s.jobs.FindByTaskID(ctx, orphan.TaskID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}

	cb, err := orphan.Callback()
	if err != nil {
		// Undecodable payload can never match; write it off so it does
		// not clog the ledger forever.
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "orphan payload undecodable, expiring",
				"orphan_id", orphan.ID,
				"task_id", orphan.TaskID,
				"error", err,
			)
		}
		_, markErr := s.orphans.MarkProcessed(ctx, orphan.ID, model.OrphanOutcomeExpired)
		return false, markErr
	}

	if _, err := s.callbacks.Apply(ctx, job, cb, DeliverySourceOrphan); err != nil {
		return false, err
	}

	processed, err := s.orphans.MarkProcessed(ctx, orphan.ID, model.OrphanOutcomeMatched)
	if err != nil {
		return false, err
	}
	if !processed {
		// Raced with another pass that already consumed it.
		return true, nil
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "orphan callback matched",
			"orphan_id", orphan.ID,
			"task_id", orphan.TaskID,
			"job_id", job.ID,
		)
	}
	return true, nil
}

func (s *ReconcilerService) expireOrphan(ctx context.Context, orphan *model.OrphanCallback) error {
	processed, err := s.orphans.MarkProcessed(ctx, orphan.ID, model.OrphanOutcomeExpired)
	if err != nil {
		return err
	}
	if !processed {
		return nil
	}

	if s.logger != nil {
		s.logger.WarnContext(ctx, "orphan callback expired without a job",
			"orphan_id", orphan.ID,
			"task_id", orphan.TaskID,
			"received_at", orphan.ReceivedAt,
			"max_age", s.config.OrphanMaxAge,
		)
	}
	if s.metrics != nil {
		s.metrics.Count("reconciler.orphan_expired", 1, nil)
	}

	// An expired orphan has no job row, so there is no user to tell;
	// the flag gates the operator-facing alert instead.
	if s.config.NotifyUserOnExpiry {
		s.notifyOps(ctx, notify.EventPayload{
			Kind:     notify.KindOrphanExpired,
			TaskID:   orphan.TaskID,
			Severity: notify.SeverityWarning,
			Metadata: map[string]string{
				"orphan_id":   orphan.ID,
				"received_at": orphan.ReceivedAt.UTC().Format(time.RFC3339),
			},
		})
	}

	return nil
}

// sweepUndelivered retries delivery for done jobs whose send never
// completed. Attempts run concurrently, bounded by DeliveryConcurrency.
// A send that keeps failing is reported but never escalated to an error:
// the job simply stays a retry candidate.
func (s *ReconcilerService) sweepUndelivered(ctx context.Context, stats *model.ReconcileStats) error {
	jobs, err := s.jobs.ListUndelivered(ctx, s.config.DeliveryBatchSize)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		return nil
	}

	stalledCutoff := s.now().Add(-s.config.OrphanMaxAge)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.DeliveryConcurrency)

	delivered := make([]bool, len(jobs))
	for i, job := range jobs {
		g.Go(func() error {
			delivered[i] = s.delivery.Deliver(gctx, job, DeliverySourceSweep)
			if !delivered[i] && job.UpdatedAt.Before(stalledCutoff) {
				s.notifyOps(gctx, notify.EventPayload{
					Kind:       notify.KindDeliveryStalled,
					JobID:      job.ID,
					ChatID:     job.ChatID,
					Severity:   notify.SeverityWarning,
					Metadata:   map[string]string{"updated_at": job.UpdatedAt.UTC().Format(time.RFC3339)},
					Error:      "result delivery has not succeeded since job completion",
					ErrorClass: "delivery_stalled",
				})
			}
			return gctx.Err()
		})
	}

	err = g.Wait()
	for _, ok := range delivered {
		if ok {
			stats.Redelivered++
		}
	}
	return err
}

// cleanup purges delivered jobs and processed orphans past retention.
func (s *ReconcilerService) cleanup(ctx context.Context) error {
	cutoff := s.now().Add(-s.config.RetentionMaxAge)

	var errs []error

	deletedJobs, err := s.jobs.DeleteOldDelivered(ctx, cutoff, s.config.CleanupBatchSize)
	if err != nil {
		errs = append(errs, fmt.Errorf("delete delivered jobs: %w", err))
	}

	purgedOrphans, err := s.orphans.PurgeProcessed(ctx, cutoff, s.config.CleanupBatchSize)
	if err != nil {
		errs = append(errs, fmt.Errorf("purge processed orphans: %w", err))
	}

	if s.logger != nil && (deletedJobs > 0 || purgedOrphans > 0) {
		s.logger.InfoContext(ctx, "retention cleanup finished",
			"deleted_jobs", deletedJobs,
			"purged_orphans", purgedOrphans,
			"max_age", s.config.RetentionMaxAge,
		)
	}

	return errors.Join(errs...)
}

func (s *ReconcilerService) emitBacklogGauges(ctx context.Context) {
	if s.metrics == nil {
		return
	}

	if stats, err := s.jobs.Stats(ctx); err == nil {
		s.metrics.Gauge("jobs.pending", float64(stats.Pending), nil)
		s.metrics.Gauge("jobs.running", float64(stats.Running), nil)
		s.metrics.Gauge("jobs.undelivered", float64(stats.Undelivered), nil)
	} else if s.logger != nil {
		s.logger.WarnContext(ctx, "failed to read job stats", "error", err)
	}

	if count, err := s.orphans.CountUnprocessed(ctx); err == nil {
		s.metrics.Gauge("orphans.pending", float64(count), nil)
	} else if s.logger != nil {
		s.logger.WarnContext(ctx, "failed to count orphans", "error", err)
	}
}

func (s *ReconcilerService) emitTick(result string, elapsed time.Duration, err error) {
	if s.metrics == nil {
		return
	}

	tags := map[string]string{"result": result}
	if err != nil {
		if class := obserrors.Classify(err); class != "" {
			tags["error_class"] = class
		}
	}

	s.metrics.Count("reconciler.tick", 1, tags)
	if elapsed > 0 {
		s.metrics.Timing("reconciler.tick_duration", elapsed, metrics.CloneTags(tags))
	}
	if err == nil && result != "standby" {
		s.metrics.Gauge("reconciler.last_success_epoch", float64(time.Now().Unix()), nil)
	}
}

func (s *ReconcilerService) notifyOps(ctx context.Context, payload notify.EventPayload) {
	if s.notifier == nil || !s.notifier.Enabled() {
		return
	}
	s.notifier.NotifyEvent(ctx, payload)
}

func (s *ReconcilerService) logPassError(ctx context.Context, err error) {
	if err == nil || s.logger == nil {
		return
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		s.logger.DebugContext(ctx, "reconcile pass cancelled by context", "error", err)
		return
	}
	s.logger.ErrorContext(ctx, "reconcile pass failed", "error", err)
}

// releaseLease frees the leadership row on shutdown so the next instance
// does not have to wait out the TTL.
func (s *ReconcilerService) releaseLease() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.leases.Release(ctx, leaseReconciler, s.owner); err != nil && s.logger != nil {
		s.logger.Warn("failed to release reconciler lease", "error", err)
	}
}
