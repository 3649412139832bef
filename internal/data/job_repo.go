package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/genrelay/genrelay/internal/core"
	"github.com/genrelay/genrelay/internal/data/pgxutil"
	"github.com/genrelay/genrelay/internal/domain/model"
	apperrors "github.com/genrelay/genrelay/internal/errors"
)

// Advisory lock identifiers for single-flight batch maintenance. The major
// number namespaces this service; minors pick the operation.
const (
	lockMajorMaintenance = 7401

	lockMinorJobCleanup    = 1
	lockMinorOrphanCleanup = 2
)

const jobColumns = `id, task_id, user_id, chat_id, status, params, result_urls, delivered, last_error, created_at, updated_at`

// JobRepo provides Postgres-backed persistence for generation jobs.
type JobRepo struct {
	db           *sql.DB
	timeProvider TimeProvider
}

// NewJobRepo creates a JobRepo using the real system clock.
func NewJobRepo(db *sql.DB) *JobRepo {
	return &JobRepo{db: db, timeProvider: &RealTimeProvider{}}
}

// NewJobRepoWithTimeProvider creates a JobRepo with an injected clock for tests.
func NewJobRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *JobRepo {
	return &JobRepo{db: db, timeProvider: tp}
}

type jobRowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row jobRowScanner) (*model.Job, error) {
	var (
		job        model.Job
		taskID     sql.NullString
		lastError  sql.NullString
		paramsRaw  []byte
		resultsRaw []byte
	)
	if err := row.Scan(
		&job.ID,
		&taskID,
		&job.UserID,
		&job.ChatID,
		&job.Status,
		&paramsRaw,
		&resultsRaw,
		&job.Delivered,
		&lastError,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if taskID.Valid {
		v := taskID.String
		job.TaskID = &v
	}
	if lastError.Valid {
		v := lastError.String
		job.LastError = &v
	}
	job.Params = json.RawMessage(paramsRaw)
	if len(resultsRaw) > 0 {
		if err := json.Unmarshal(resultsRaw, &job.ResultURLs); err != nil {
			return nil, fmt.Errorf("decode result_urls: %w", err)
		}
	}
	return &job, nil
}

func encodeResultURLs(urls []string) ([]byte, error) {
	if urls == nil {
		urls = []string{}
	}
	encoded, err := json.Marshal(urls)
	if err != nil {
		return nil, fmt.Errorf("encode result_urls: %w", err)
	}
	return encoded, nil
}

// Create inserts a new pending job.
func (r *JobRepo) Create(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	now := r.timeProvider.Now().UTC()
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO jobs (user_id, chat_id, status, params, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		RETURNING `+jobColumns,
		req.UserID, req.ChatID, model.JobStatusPending, []byte(req.Params), now,
	)
	job, err := scanJob(row)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return job, nil
}

// GetByID fetches a job by its id.
func (r *JobRepo) GetByID(ctx context.Context, id string) (*model.Job, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFoundf("job %s not found", id)
		}
		return nil, apperrors.MapDBError(err)
	}
	return job, nil
}

// FindByTaskID fetches the job bound to a provider task id.
func (r *JobRepo) FindByTaskID(ctx context.Context, taskID string) (*model.Job, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE task_id = $1`, taskID)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFoundf("no job bound to task %s", taskID)
		}
		return nil, apperrors.MapDBError(err)
	}
	return job, nil
}

// BindTask stores the provider task id on a job that does not have one yet.
// The unique index on task_id surfaces duplicate bindings as conflicts.
func (r *JobRepo) BindTask(ctx context.Context, jobID, taskID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE jobs
		SET task_id = $2, updated_at = $3
		WHERE id = $1 AND task_id IS NULL`,
		jobID, taskID, r.timeProvider.Now().UTC(),
	)
	if err != nil {
		return apperrors.MapDBError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return apperrors.MapDBError(err)
	}
	if affected == 0 {
		return apperrors.Conflictf("job %s already has a task bound", jobID)
	}
	return nil
}

// ApplyCallback transitions a non-terminal job according to a provider
// callback outcome. Terminal jobs are left untouched and the call reports
// applied=false, which makes redelivered callbacks harmless.
func (r *JobRepo) ApplyCallback(ctx context.Context, params core.ApplyCallbackParams) (bool, error) {
	if !params.Status.Valid() {
		return false, apperrors.Validationf("invalid job status: %q", params.Status)
	}

	encoded, err := encodeResultURLs(params.ResultURLs)
	if err != nil {
		return false, apperrors.Internal(err.Error())
	}

	res, execErr := r.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = $2,
		    result_urls = $3,
		    last_error = $4,
		    updated_at = $5
		WHERE id = $1 AND status IN ($6, $7)`,
		params.JobID, params.Status, encoded, params.ErrMsg,
		r.timeProvider.Now().UTC(),
		model.JobStatusPending, model.JobStatusRunning,
	)
	if execErr != nil {
		return false, apperrors.MapDBError(execErr)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, apperrors.MapDBError(err)
	}
	return affected > 0, nil
}

// MarkFailed force-fails a non-terminal job, recording the reason.
func (r *JobRepo) MarkFailed(ctx context.Context, jobID, reason string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = $2, last_error = $3, updated_at = $4
		WHERE id = $1 AND status IN ($5, $6)`,
		jobID, model.JobStatusFailed, reason,
		r.timeProvider.Now().UTC(),
		model.JobStatusPending, model.JobStatusRunning,
	)
	if err != nil {
		return apperrors.MapDBError(err)
	}
	return nil
}

// MarkDelivered flips the delivered flag on a done, undelivered job.
// applied=false means another path delivered first or the job regressed,
// and the caller should not treat it as an error.
func (r *JobRepo) MarkDelivered(ctx context.Context, jobID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE jobs
		SET delivered = TRUE, updated_at = $2
		WHERE id = $1 AND status = $3 AND delivered = FALSE`,
		jobID, r.timeProvider.Now().UTC(), model.JobStatusDone,
	)
	if err != nil {
		return false, apperrors.MapDBError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, apperrors.MapDBError(err)
	}
	return affected > 0, nil
}

// ListUndelivered returns done, undelivered jobs oldest-first for the
// delivery retry sweep.
func (r *JobRepo) ListUndelivered(ctx context.Context, limit int) ([]*model.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+jobColumns+`
		FROM jobs
		WHERE status = $1 AND delivered = FALSE
		ORDER BY updated_at ASC
		LIMIT $2`,
		model.JobStatusDone, limit,
	)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	defer rows.Close()

	var jobs []*model.Job
	for rows.Next() {
		job, scanErr := scanJob(rows)
		if scanErr != nil {
			return nil, apperrors.MapDBError(scanErr)
		}
		jobs = append(jobs, job)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, apperrors.MapDBError(rowsErr)
	}
	return jobs, nil
}

// DeleteOldDelivered removes delivered jobs whose last update is older than
// cutoff. The advisory lock keeps concurrent replicas from running the same
// cleanup; a replica that loses the lock race deletes nothing.
func (r *JobRepo) DeleteOldDelivered(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = 500
	}

	var total int64
	err := pgxutil.WithPgxTx(ctx, r.db, func(tx pgx.Tx) error {
		var locked bool
		if lockErr := tx.QueryRow(ctx,
			`SELECT pg_try_advisory_xact_lock($1, $2)`,
			lockMajorMaintenance, lockMinorJobCleanup,
		).Scan(&locked); lockErr != nil {
			return lockErr
		}
		if !locked {
			return nil
		}

		for {
			tag, delErr := tx.Exec(ctx, `
				DELETE FROM jobs
				WHERE id IN (
					SELECT id FROM jobs
					WHERE delivered = TRUE AND updated_at < $1
					LIMIT $2
				)`,
				cutoff.UTC(), batchSize,
			)
			if delErr != nil {
				return delErr
			}
			total += tag.RowsAffected()
			if tag.RowsAffected() < int64(batchSize) {
				return nil
			}
		}
	})
	if err != nil {
		return total, apperrors.MapDBError(err)
	}
	return total, nil
}

// Stats returns lifecycle counters plus the undelivered and
// unprocessed-orphan backlog gauges.
func (r *JobRepo) Stats(ctx context.Context) (*model.JobStats, error) {
	var stats model.JobStats
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = $1),
			COUNT(*) FILTER (WHERE status = $2),
			COUNT(*) FILTER (WHERE status = $3),
			COUNT(*) FILTER (WHERE status = $4),
			COUNT(*) FILTER (WHERE status = $3 AND delivered = FALSE),
			(SELECT COUNT(*) FROM orphan_callbacks WHERE processed = FALSE)
		FROM jobs`,
		model.JobStatusPending, model.JobStatusRunning,
		model.JobStatusDone, model.JobStatusFailed,
	).Scan(
		&stats.Pending, &stats.Running, &stats.Done, &stats.Failed,
		&stats.Undelivered, &stats.OrphansPending,
	)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return &stats, nil
}
