package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/genrelay/genrelay/internal/data/pgxutil"
	"github.com/genrelay/genrelay/internal/domain/model"
	apperrors "github.com/genrelay/genrelay/internal/errors"
)

const orphanColumns = `id, task_id, payload, received_at, processed, outcome, processed_at`

// OrphanRepo provides Postgres-backed persistence for orphaned callbacks.
type OrphanRepo struct {
	db           *sql.DB
	timeProvider TimeProvider
}

// NewOrphanRepo creates an OrphanRepo using the real system clock.
func NewOrphanRepo(db *sql.DB) *OrphanRepo {
	return &OrphanRepo{db: db, timeProvider: &RealTimeProvider{}}
}

// NewOrphanRepoWithTimeProvider creates an OrphanRepo with an injected clock for tests.
func NewOrphanRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *OrphanRepo {
	return &OrphanRepo{db: db, timeProvider: tp}
}

func scanOrphan(row jobRowScanner) (*model.OrphanCallback, error) {
	var (
		orphan      model.OrphanCallback
		payload     []byte
		outcome     sql.NullString
		processedAt sql.NullTime
	)
	if err := row.Scan(
		&orphan.ID,
		&orphan.TaskID,
		&payload,
		&orphan.ReceivedAt,
		&orphan.Processed,
		&outcome,
		&processedAt,
	); err != nil {
		return nil, err
	}
	orphan.Payload = json.RawMessage(payload)
	if outcome.Valid {
		v := outcome.String
		orphan.Outcome = &v
	}
	if processedAt.Valid {
		v := processedAt.Time
		orphan.ProcessedAt = &v
	}
	return &orphan, nil
}

// Insert records an unmatched callback payload for later reconciliation.
func (r *OrphanRepo) Insert(ctx context.Context, taskID string, payload json.RawMessage) (*model.OrphanCallback, error) {
	if taskID == "" {
		return nil, apperrors.Validation("task id is required")
	}
	if len(payload) == 0 || !json.Valid(payload) {
		return nil, apperrors.Validation("payload must be valid JSON")
	}

	row := r.db.QueryRowContext(ctx, `
		INSERT INTO orphan_callbacks (task_id, payload, received_at)
		VALUES ($1, $2, $3)
		RETURNING `+orphanColumns,
		taskID, []byte(payload), r.timeProvider.Now().UTC(),
	)
	orphan, err := scanOrphan(row)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	return orphan, nil
}

// ListUnprocessed returns the orphan backlog oldest-first so the reconciler
// drains long-waiting callbacks before fresh ones.
func (r *OrphanRepo) ListUnprocessed(ctx context.Context, limit int) ([]*model.OrphanCallback, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+orphanColumns+`
		FROM orphan_callbacks
		WHERE processed = FALSE
		ORDER BY received_at ASC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, apperrors.MapDBError(err)
	}
	defer rows.Close()

	var orphans []*model.OrphanCallback
	for rows.Next() {
		orphan, scanErr := scanOrphan(rows)
		if scanErr != nil {
			return nil, apperrors.MapDBError(scanErr)
		}
		orphans = append(orphans, orphan)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, apperrors.MapDBError(rowsErr)
	}
	return orphans, nil
}

// MarkProcessed stamps the orphan with its outcome. The processed guard in
// the WHERE clause makes concurrent reconcilers idempotent: only one of
// them observes applied=true.
func (r *OrphanRepo) MarkProcessed(ctx context.Context, id, outcome string) (bool, error) {
	if outcome != model.OrphanOutcomeMatched && outcome != model.OrphanOutcomeExpired {
		return false, apperrors.Validationf("invalid orphan outcome: %q", outcome)
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE orphan_callbacks
		SET processed = TRUE, outcome = $2, processed_at = $3
		WHERE id = $1 AND processed = FALSE`,
		id, outcome, r.timeProvider.Now().UTC(),
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

// CountUnprocessed returns the current orphan backlog size.
func (r *OrphanRepo) CountUnprocessed(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orphan_callbacks WHERE processed = FALSE`,
	).Scan(&count)
	if err != nil {
		return 0, apperrors.MapDBError(err)
	}
	return count, nil
}

// PurgeProcessed removes processed orphans older than cutoff. Rows are kept
// for audit until then. The advisory lock keeps the purge single-flight
// across replicas.
func (r *OrphanRepo) PurgeProcessed(ctx context.Context, cutoff time.Time, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = 500
	}

	var total int64
	err := pgxutil.WithPgxTx(ctx, r.db, func(tx pgx.Tx) error {
		var locked bool
		if lockErr := tx.QueryRow(ctx,
			`SELECT pg_try_advisory_xact_lock($1, $2)`,
			lockMajorMaintenance, lockMinorOrphanCleanup,
		).Scan(&locked); lockErr != nil {
			return lockErr
		}
		if !locked {
			return nil
		}

		for {
			tag, delErr := tx.Exec(ctx, `
				DELETE FROM orphan_callbacks
				WHERE id IN (
					SELECT id FROM orphan_callbacks
					WHERE processed = TRUE AND processed_at < $1
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
