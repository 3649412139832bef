// Package core defines the ports between the pipeline services and their
// adapters. Services depend on these interfaces; the data layer, the
// provider client, and the Telegram sender implement them.
package core

import (
	"context"
	"encoding/json"
	"time"

	"github.com/genrelay/genrelay/internal/domain/model"
)

// ApplyCallbackParams carries a provider-reported outcome into the job store.
type ApplyCallbackParams struct {
	JobID      string
	Status     model.JobStatus
	ResultURLs []string
	ErrMsg     *string
}

// JobRepository is the persistence port for generation jobs.
type JobRepository interface {
	// Create inserts a pending job and returns it with generated fields set.
	Create(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error)
	// GetByID returns the job or a not_found error.
	GetByID(ctx context.Context, id string) (*model.Job, error)
	// FindByTaskID returns the job bound to the provider task, or a not_found error.
	FindByTaskID(ctx context.Context, taskID string) (*model.Job, error)
	// BindTask stores the provider task id on a job that has none yet.
	// A conflict error means the task id is already bound elsewhere.
	BindTask(ctx context.Context, jobID, taskID string) error
	// ApplyCallback transitions a non-terminal job per the callback outcome.
	// It returns false without error when the job is already terminal.
	ApplyCallback(ctx context.Context, params ApplyCallbackParams) (bool, error)
	// MarkFailed force-fails a job regardless of current non-terminal state.
	MarkFailed(ctx context.Context, jobID, reason string) error
	// MarkDelivered flips the delivered flag on a done, undelivered job.
	// It returns false when the job was not in that state.
	MarkDelivered(ctx context.Context, jobID string) (bool, error)
	// ListUndelivered returns done, undelivered jobs oldest-first.
	ListUndelivered(ctx context.Context, limit int) ([]*model.Job, error)
	// DeleteOldDelivered removes delivered jobs older than cutoff, in batches.
	DeleteOldDelivered(ctx context.Context, cutoff time.Time, batchSize int) (int64, error)
	// Stats returns lifecycle and backlog counters.
	Stats(ctx context.Context) (*model.JobStats, error)
}

// OrphanRepository is the persistence port for callbacks that arrived
// before their job was visible.
type OrphanRepository interface {
	// Insert records an unmatched callback payload for later reconciliation.
	Insert(ctx context.Context, taskID string, payload json.RawMessage) (*model.OrphanCallback, error)
	// ListUnprocessed returns unprocessed orphans oldest-first.
	ListUnprocessed(ctx context.Context, limit int) ([]*model.OrphanCallback, error)
	// MarkProcessed stamps the orphan with its outcome. It returns false
	// without error when the orphan was already processed.
	MarkProcessed(ctx context.Context, id, outcome string) (bool, error)
	// CountUnprocessed returns the current orphan backlog size.
	CountUnprocessed(ctx context.Context) (int, error)
	// PurgeProcessed removes processed orphans older than cutoff, in batches.
	PurgeProcessed(ctx context.Context, cutoff time.Time, batchSize int) (int64, error)
}

// LeaseRepository coordinates singleton background loops across replicas
// through a persisted lease row.
type LeaseRepository interface {
	// TryAcquire takes or renews the named lease for owner. It returns
	// false when another owner holds an unexpired lease.
	TryAcquire(ctx context.Context, name, owner string, ttl time.Duration) (bool, error)
	// Release frees the lease if owner still holds it.
	Release(ctx context.Context, name, owner string) error
}

// GenerationProvider starts asynchronous generation tasks upstream.
type GenerationProvider interface {
	// CreateTask submits params and returns the provider's task id.
	CreateTask(ctx context.Context, params json.RawMessage) (string, error)
}

// MessageChannel delivers results and failure notices to the end user.
type MessageChannel interface {
	// SendResult pushes generated media URLs into the chat.
	SendResult(ctx context.Context, chatID int64, urls []string) error
	// SendFailureNotice tells the user their request will not complete.
	SendFailureNotice(ctx context.Context, chatID int64, reason string) error
}

// CallbackGuard is a best-effort duplicate-suppression check for inbound
// callbacks. Guard errors must never block callback processing.
type CallbackGuard interface {
	// FirstSeen returns true the first time a (task, status) pair is
	// observed within the guard window.
	FirstSeen(ctx context.Context, taskID string, status string) (bool, error)
}
