package data

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genrelay/genrelay/internal/domain/model"
	apperrors "github.com/genrelay/genrelay/internal/errors"
	"github.com/genrelay/genrelay/internal/testutil"
)

func TestOrphanRepo_Insert(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	repo := NewOrphanRepo(db)
	ctx := context.Background()

	t.Run("valid payload", func(t *testing.T) {
		orphan, err := repo.Insert(ctx, "task-abc", json.RawMessage(`{"task_id":"task-abc","status":"success","result_urls":["u"]}`))
		require.NoError(t, err)

		assert.NotEmpty(t, orphan.ID)
		assert.Equal(t, "task-abc", orphan.TaskID)
		assert.False(t, orphan.Processed)
		assert.Nil(t, orphan.Outcome)

		cb, err := orphan.Callback()
		require.NoError(t, err)
		assert.Equal(t, model.CallbackStatusSuccess, cb.Status)
	})

	t.Run("missing task id", func(t *testing.T) {
		_, err := repo.Insert(ctx, "", json.RawMessage(`{}`))
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("invalid payload", func(t *testing.T) {
		_, err := repo.Insert(ctx, "task-abc", json.RawMessage(`{not json`))
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestOrphanRepo_ListUnprocessed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	tp := NewFixedTimeProvider(time.Now().UTC().Add(-time.Hour))
	repo := NewOrphanRepoWithTimeProvider(db, tp)
	ctx := context.Background()

	older, err := repo.Insert(ctx, "task-1", json.RawMessage(`{"status":"running"}`))
	require.NoError(t, err)
	tp.AddTime(time.Minute)
	newer, err := repo.Insert(ctx, "task-2", json.RawMessage(`{"status":"running"}`))
	require.NoError(t, err)

	orphans, err := repo.ListUnprocessed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, orphans, 2)
	assert.Equal(t, older.ID, orphans[0].ID)
	assert.Equal(t, newer.ID, orphans[1].ID)

	t.Run("processed rows drop out", func(t *testing.T) {
		applied, markErr := repo.MarkProcessed(ctx, older.ID, model.OrphanOutcomeMatched)
		require.NoError(t, markErr)
		require.True(t, applied)

		remaining, listErr := repo.ListUnprocessed(ctx, 10)
		require.NoError(t, listErr)
		require.Len(t, remaining, 1)
		assert.Equal(t, newer.ID, remaining[0].ID)
	})
}

func TestOrphanRepo_MarkProcessed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	repo := NewOrphanRepo(db)
	ctx := context.Background()

	orphan, err := repo.Insert(ctx, "task-abc", json.RawMessage(`{"status":"running"}`))
	require.NoError(t, err)

	t.Run("first mark wins", func(t *testing.T) {
		applied, markErr := repo.MarkProcessed(ctx, orphan.ID, model.OrphanOutcomeExpired)
		require.NoError(t, markErr)
		assert.True(t, applied)
	})

	t.Run("second mark is a no-op", func(t *testing.T) {
		applied, markErr := repo.MarkProcessed(ctx, orphan.ID, model.OrphanOutcomeMatched)
		require.NoError(t, markErr)
		assert.False(t, applied)
	})

	t.Run("invalid outcome", func(t *testing.T) {
		_, markErr := repo.MarkProcessed(ctx, orphan.ID, "vanished")
		assert.True(t, apperrors.IsValidation(markErr))
	})
}

func TestOrphanRepo_CountUnprocessed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	repo := NewOrphanRepo(db)
	ctx := context.Background()

	count, err := repo.CountUnprocessed(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = repo.Insert(ctx, "task-1", json.RawMessage(`{"status":"running"}`))
	require.NoError(t, err)

	count, err = repo.CountUnprocessed(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestOrphanRepo_PurgeProcessed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	tp := NewFixedTimeProvider(time.Now().UTC().Add(-48 * time.Hour))
	repo := NewOrphanRepoWithTimeProvider(db, tp)
	ctx := context.Background()

	old, err := repo.Insert(ctx, "task-old", json.RawMessage(`{"status":"running"}`))
	require.NoError(t, err)
	_, err = repo.MarkProcessed(ctx, old.ID, model.OrphanOutcomeExpired)
	require.NoError(t, err)

	tp.SetTime(time.Now().UTC())
	fresh, err := repo.Insert(ctx, "task-fresh", json.RawMessage(`{"status":"running"}`))
	require.NoError(t, err)
	_, err = repo.MarkProcessed(ctx, fresh.ID, model.OrphanOutcomeMatched)
	require.NoError(t, err)
	unprocessed, err := repo.Insert(ctx, "task-open", json.RawMessage(`{"status":"running"}`))
	require.NoError(t, err)

	purged, err := repo.PurgeProcessed(ctx, time.Now().UTC().Add(-24*time.Hour), 100)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	remaining, err := repo.ListUnprocessed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, unprocessed.ID, remaining[0].ID)
}
