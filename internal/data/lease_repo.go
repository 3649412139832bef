package data

import (
	"context"
	"database/sql"
	"time"

	apperrors "github.com/genrelay/genrelay/internal/errors"
)

// LeaseRepo implements leadership leases on top of a Postgres row per lease
// name. Acquisition is a single upsert whose WHERE clause only lets the
// current owner renew or anyone take over an expired lease, so exactly one
// replica can hold a lease at a time without in-process state.
type LeaseRepo struct {
	db           *sql.DB
	timeProvider TimeProvider
}

// NewLeaseRepo creates a LeaseRepo using the real system clock.
func NewLeaseRepo(db *sql.DB) *LeaseRepo {
	return &LeaseRepo{db: db, timeProvider: &RealTimeProvider{}}
}

// NewLeaseRepoWithTimeProvider creates a LeaseRepo with an injected clock for tests.
func NewLeaseRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *LeaseRepo {
	return &LeaseRepo{db: db, timeProvider: tp}
}

// TryAcquire takes or renews the named lease for owner with the given ttl.
// It returns false when another owner holds an unexpired lease.
func (r *LeaseRepo) TryAcquire(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	if name == "" || owner == "" {
		return false, apperrors.Validation("lease name and owner are required")
	}
	if ttl <= 0 {
		return false, apperrors.Validation("lease ttl must be positive")
	}

	now := r.timeProvider.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO leader_leases (name, owner, expires_at, acquired_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE
		SET owner = EXCLUDED.owner,
		    expires_at = EXCLUDED.expires_at,
		    acquired_at = CASE
		        WHEN leader_leases.owner = EXCLUDED.owner THEN leader_leases.acquired_at
		        ELSE EXCLUDED.acquired_at
		    END
		WHERE leader_leases.owner = EXCLUDED.owner
		   OR leader_leases.expires_at <= $4`,
		name, owner, now.Add(ttl), now,
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

// Release frees the lease if owner still holds it. Releasing a lease the
// owner lost is a no-op.
func (r *LeaseRepo) Release(ctx context.Context, name, owner string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM leader_leases WHERE name = $1 AND owner = $2`,
		name, owner,
	)
	if err != nil {
		return apperrors.MapDBError(err)
	}
	return nil
}
