package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/genrelay/genrelay/internal/core"
	"github.com/genrelay/genrelay/internal/domain/model"
	apperrors "github.com/genrelay/genrelay/internal/errors"
	"github.com/genrelay/genrelay/internal/observability/statsd"
)

// SubmitterOptions groups dependencies for SubmitterService.
type SubmitterOptions struct {
	Jobs     core.JobRepository      // Required: job persistence
	Provider core.GenerationProvider // Required: upstream task creation
	Logger   *slog.Logger            // Optional: structured logger
	Metrics  statsd.Sink             // Optional: metrics sink (StatsD-compatible)
}

// SubmitterService accepts generation requests and forwards them upstream.
//
// The pending job row is committed before the provider is called, so a
// callback racing the submission response always has (or will shortly
// have) a row to land on; at worst it parks in the orphan ledger until
// the task id is bound.
type SubmitterService struct {
	jobs     core.JobRepository
	provider core.GenerationProvider
	logger   *slog.Logger
	metrics  statsd.Sink
}

// NewSubmitterService constructs a new SubmitterService.
func NewSubmitterService(opts SubmitterOptions) (*SubmitterService, error) {
	if opts.Jobs == nil {
		return nil, errors.New("JobRepository is required")
	}
	if opts.Provider == nil {
		return nil, errors.New("GenerationProvider is required")
	}

	logger := opts.Logger
	if logger != nil {
		logger = logger.With("component", "submitter_service")
	}

	return &SubmitterService{
		jobs:     opts.Jobs,
		provider: opts.Provider,
		logger:   logger,
		metrics:  opts.Metrics,
	}, nil
}

// Submit creates a pending job, submits the generation task upstream, and
// binds the returned task id to the job. A synchronous provider failure
// marks the job failed and surfaces an unavailable error.
func (s *SubmitterService) Submit(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error) {
	start := time.Now()

	job, err := s.jobs.Create(ctx, req)
	if err != nil {
		s.emit("error", time.Since(start))
		return nil, err
	}

	taskID, err := s.provider.CreateTask(ctx, req.Params)
	if err != nil {
		s.failJob(ctx, job.ID, fmt.Sprintf("task submission failed: %v", err))
		s.emit("provider_error", time.Since(start))
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "generation provider rejected the task")
	}

	if err := s.jobs.BindTask(ctx, job.ID, taskID); err != nil {
		// A bind conflict means the provider reused a task id that is
		// already attached to another job. The new job cannot receive
		// callbacks, so fail it rather than leave it pending forever.
		s.failJob(ctx, job.ID, fmt.Sprintf("task bind failed: %v", err))
		s.emit("bind_error", time.Since(start))
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to bind provider task to job")
	}

	job.TaskID = &taskID
	if s.logger != nil {
		s.logger.InfoContext(ctx, "job submitted",
			"job_id", job.ID,
			"task_id", taskID,
			"chat_id", job.ChatID,
		)
	}
	s.emit("success", time.Since(start))
	return job, nil
}

func (s *SubmitterService) failJob(ctx context.Context, jobID, reason string) {
	if err := s.jobs.MarkFailed(ctx, jobID, reason); err != nil && s.logger != nil {
		s.logger.ErrorContext(ctx, "failed to mark job failed after submission error",
			"job_id", jobID,
			"error", err,
		)
	}
}

func (s *SubmitterService) emit(result string, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	tags := map[string]string{"result": result}
	s.metrics.Count("job.submitted", 1, tags)
	s.metrics.Timing("job.submit_duration", elapsed, tags)
}
