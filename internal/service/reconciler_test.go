package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/genrelay/genrelay/config"
	"github.com/genrelay/genrelay/internal/domain/model"
	apperrors "github.com/genrelay/genrelay/internal/errors"
	"github.com/genrelay/genrelay/internal/mocks"
)

type stubApplier struct {
	calls   []applyCall
	applyFn func(job *model.Job, cb *model.ProviderCallback, source string) (string, error)
}

type applyCall struct {
	job    *model.Job
	cb     *model.ProviderCallback
	source string
}

func (s *stubApplier) Apply(_ context.Context, job *model.Job, cb *model.ProviderCallback, source string) (string, error) {
	s.calls = append(s.calls, applyCall{job: job, cb: cb, source: source})
	if s.applyFn != nil {
		return s.applyFn(job, cb, source)
	}
	return "applied", nil
}

var _ callbackApplier = (*stubApplier)(nil)

type reconcilerFixture struct {
	svc       *ReconcilerService
	jobs      *mocks.MockJobRepository
	orphans   *mocks.MockOrphanRepository
	leases    *mocks.MockLeaseRepository
	applier   *stubApplier
	deliverer *stubDeliverer
	now       time.Time
}

func newReconcilerFixture(t *testing.T, ctrl *gomock.Controller) *reconcilerFixture {
	t.Helper()

	f := &reconcilerFixture{
		jobs:      mocks.NewMockJobRepository(ctrl),
		orphans:   mocks.NewMockOrphanRepository(ctrl),
		leases:    mocks.NewMockLeaseRepository(ctrl),
		applier:   &stubApplier{},
		deliverer: &stubDeliverer{},
		now:       time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}

	svc, err := NewReconcilerService(ReconcilerOptions{
		Jobs:      f.jobs,
		Orphans:   f.orphans,
		Leases:    f.leases,
		Callbacks: f.applier,
		Delivery:  f.deliverer,
		Config: config.ReconcilerConfig{
			Interval:            30 * time.Second,
			LeaseTTL:            2 * time.Minute,
			OrphanMaxAge:        time.Hour,
			NotifyUserOnExpiry:  true,
			OrphanBatchSize:     100,
			DeliveryBatchSize:   50,
			DeliveryConcurrency: 4,
			RetentionMaxAge:     720 * time.Hour,
			CleanupBatchSize:    500,
		},
		Now: func() time.Time { return f.now },
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

// The expectQuiet helpers stub the steps a test does not exercise to no-ops.
func (f *reconcilerFixture) expectQuietOrphans() {
	f.orphans.EXPECT().ListUnprocessed(gomock.Any(), 100).Return(nil, nil)
}

func (f *reconcilerFixture) expectQuietSweep() {
	f.jobs.EXPECT().ListUndelivered(gomock.Any(), 50).Return(nil, nil)
}

func (f *reconcilerFixture) expectQuietCleanup() {
	cutoff := f.now.Add(-720 * time.Hour)
	f.jobs.EXPECT().DeleteOldDelivered(gomock.Any(), cutoff, 500).Return(int64(0), nil)
	f.orphans.EXPECT().PurgeProcessed(gomock.Any(), cutoff, 500).Return(int64(0), nil)
}

func TestNewReconcilerService(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	jobs := mocks.NewMockJobRepository(ctrl)
	orphans := mocks.NewMockOrphanRepository(ctrl)
	leases := mocks.NewMockLeaseRepository(ctrl)

	t.Run("missing leases", func(t *testing.T) {
		_, err := NewReconcilerService(ReconcilerOptions{
			Jobs:      jobs,
			Orphans:   orphans,
			Callbacks: &stubApplier{},
			Delivery:  &stubDeliverer{},
		})
		assert.Error(t, err)
	})

	t.Run("missing callback applier", func(t *testing.T) {
		_, err := NewReconcilerService(ReconcilerOptions{
			Jobs:     jobs,
			Orphans:  orphans,
			Leases:   leases,
			Delivery: &stubDeliverer{},
		})
		assert.Error(t, err)
	})

	t.Run("distinct owners per instance", func(t *testing.T) {
		opts := ReconcilerOptions{
			Jobs:      jobs,
			Orphans:   orphans,
			Leases:    leases,
			Callbacks: &stubApplier{},
			Delivery:  &stubDeliverer{},
		}
		a, err := NewReconcilerService(opts)
		require.NoError(t, err)
		b, err := NewReconcilerService(opts)
		require.NoError(t, err)
		assert.NotEqual(t, a.owner, b.owner)
	})
}

func TestTickSkipsWhenLeaseHeldElsewhere(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newReconcilerFixture(t, ctrl)
	f.leases.EXPECT().
		TryAcquire(gomock.Any(), "reconciler", f.svc.owner, 2*time.Minute).
		Return(false, nil)

	// No repository work expected on a standby tick.
	f.svc.tick(context.Background())
}

func TestReconcileMatchesOrphan(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newReconcilerFixture(t, ctrl)

	payload, err := json.Marshal(&model.ProviderCallback{
		TaskID:     "task-abc",
		Status:     model.CallbackStatusSuccess,
		ResultURLs: []string{"https://cdn.example.com/a.png"},
	})
	require.NoError(t, err)

	orphan := &model.OrphanCallback{
		ID:         "orphan-1",
		TaskID:     "task-abc",
		Payload:    payload,
		ReceivedAt: f.now.Add(-5 * time.Minute),
	}
	job := &model.Job{ID: "job-1", ChatID: 42, Status: model.JobStatusPending}

	f.orphans.EXPECT().ListUnprocessed(gomock.Any(), 100).Return([]*model.OrphanCallback{orphan}, nil)
	f.jobs.EXPECT().FindByTaskID(gomock.Any(), "task-abc").Return(job, nil)
	f.orphans.EXPECT().MarkProcessed(gomock.Any(), "orphan-1", model.OrphanOutcomeMatched).Return(true, nil)
	f.expectQuietSweep()
	f.expectQuietCleanup()

	stats, err := f.svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Matched)

	require.Len(t, f.applier.calls, 1)
	call := f.applier.calls[0]
	assert.Equal(t, "job-1", call.job.ID)
	assert.Equal(t, model.CallbackStatusSuccess, call.cb.Status)
	assert.Equal(t, DeliverySourceOrphan, call.source)
}

func TestReconcileExpiresStaleOrphan(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newReconcilerFixture(t, ctrl)

	orphan := &model.OrphanCallback{
		ID:         "orphan-1",
		TaskID:     "task-gone",
		Payload:    json.RawMessage(`{"task_id":"task-gone","status":"success","result_urls":["u"]}`),
		ReceivedAt: f.now.Add(-2 * time.Hour),
	}

	f.orphans.EXPECT().ListUnprocessed(gomock.Any(), 100).Return([]*model.OrphanCallback{orphan}, nil)
	f.jobs.EXPECT().FindByTaskID(gomock.Any(), "task-gone").Return(nil, apperrors.NotFound("job not found"))
	f.orphans.EXPECT().MarkProcessed(gomock.Any(), "orphan-1", model.OrphanOutcomeExpired).Return(true, nil)
	f.expectQuietSweep()
	f.expectQuietCleanup()

	stats, err := f.svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Expired)
	assert.Empty(t, f.applier.calls)
}

func TestReconcileLeavesFreshUnmatchedOrphan(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newReconcilerFixture(t, ctrl)

	orphan := &model.OrphanCallback{
		ID:         "orphan-1",
		TaskID:     "task-soon",
		Payload:    json.RawMessage(`{"task_id":"task-soon","status":"running"}`),
		ReceivedAt: f.now.Add(-time.Minute),
	}

	f.orphans.EXPECT().ListUnprocessed(gomock.Any(), 100).Return([]*model.OrphanCallback{orphan}, nil)
	f.jobs.EXPECT().FindByTaskID(gomock.Any(), "task-soon").Return(nil, apperrors.NotFound("job not found"))
	// No MarkProcessed: the orphan waits for a later pass.
	f.expectQuietSweep()
	f.expectQuietCleanup()

	stats, err := f.svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Matched)
	assert.Zero(t, stats.Expired)
}

func TestReconcileExpiresUndecodableOrphan(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newReconcilerFixture(t, ctrl)

	orphan := &model.OrphanCallback{
		ID:         "orphan-1",
		TaskID:     "task-abc",
		Payload:    json.RawMessage(`{not json`),
		ReceivedAt: f.now.Add(-time.Minute),
	}
	job := &model.Job{ID: "job-1", Status: model.JobStatusPending}

	f.orphans.EXPECT().ListUnprocessed(gomock.Any(), 100).Return([]*model.OrphanCallback{orphan}, nil)
	f.jobs.EXPECT().FindByTaskID(gomock.Any(), "task-abc").Return(job, nil)
	f.orphans.EXPECT().MarkProcessed(gomock.Any(), "orphan-1", model.OrphanOutcomeExpired).Return(true, nil)
	f.expectQuietSweep()
	f.expectQuietCleanup()

	stats, err := f.svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Empty(t, f.applier.calls)
	assert.Zero(t, stats.Matched)
}

func TestReconcileSweepsUndelivered(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newReconcilerFixture(t, ctrl)

	jobs := []*model.Job{
		{ID: "job-1", ChatID: 1, Status: model.JobStatusDone, ResultURLs: []string{"a"}, UpdatedAt: f.now.Add(-time.Minute)},
		{ID: "job-2", ChatID: 2, Status: model.JobStatusDone, ResultURLs: []string{"b"}, UpdatedAt: f.now.Add(-time.Minute)},
	}
	f.deliverer.deliverFn = func(job *model.Job, _ string) bool {
		return job.ID == "job-1"
	}

	f.expectQuietOrphans()
	f.jobs.EXPECT().ListUndelivered(gomock.Any(), 50).Return(jobs, nil)
	f.expectQuietCleanup()

	stats, err := f.svc.Reconcile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Redelivered)
	assert.Len(t, f.deliverer.deliverCalls, 2)
	for _, call := range f.deliverer.deliverCalls {
		assert.Equal(t, DeliverySourceSweep, call.source)
	}
}

func TestReconcileCleanupUsesRetentionCutoff(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newReconcilerFixture(t, ctrl)

	cutoff := f.now.Add(-720 * time.Hour)
	f.expectQuietOrphans()
	f.expectQuietSweep()
	f.jobs.EXPECT().DeleteOldDelivered(gomock.Any(), cutoff, 500).Return(int64(3), nil)
	f.orphans.EXPECT().PurgeProcessed(gomock.Any(), cutoff, 500).Return(int64(1), nil)

	_, err := f.svc.Reconcile(context.Background())
	require.NoError(t, err)
}

func TestReconcileJoinsStepErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newReconcilerFixture(t, ctrl)

	f.orphans.EXPECT().ListUnprocessed(gomock.Any(), 100).Return(nil, errors.New("orphan query failed"))
	f.jobs.EXPECT().ListUndelivered(gomock.Any(), 50).Return(nil, errors.New("sweep query failed"))
	f.expectQuietCleanup()

	_, err := f.svc.Reconcile(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "process orphans")
	assert.Contains(t, err.Error(), "sweep undelivered")
}

func TestReconcileOneBadOrphanDoesNotStopTheRest(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newReconcilerFixture(t, ctrl)

	broken := &model.OrphanCallback{
		ID:         "orphan-1",
		TaskID:     "task-bad",
		Payload:    json.RawMessage(`{"task_id":"task-bad","status":"running"}`),
		ReceivedAt: f.now.Add(-time.Minute),
	}
	fine := &model.OrphanCallback{
		ID:         "orphan-2",
		TaskID:     "task-ok",
		Payload:    json.RawMessage(`{"task_id":"task-ok","status":"success","result_urls":["u"]}`),
		ReceivedAt: f.now.Add(-time.Minute),
	}
	job := &model.Job{ID: "job-2", Status: model.JobStatusPending}

	f.orphans.EXPECT().ListUnprocessed(gomock.Any(), 100).Return([]*model.OrphanCallback{broken, fine}, nil)
	f.jobs.EXPECT().FindByTaskID(gomock.Any(), "task-bad").Return(nil, errors.New("connection refused"))
	f.jobs.EXPECT().FindByTaskID(gomock.Any(), "task-ok").Return(job, nil)
	f.orphans.EXPECT().MarkProcessed(gomock.Any(), "orphan-2", model.OrphanOutcomeMatched).Return(true, nil)
	f.expectQuietSweep()
	f.expectQuietCleanup()

	stats, err := f.svc.Reconcile(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, stats.Matched)
}

func TestRunStopsOnCancelAndReleasesLease(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	f := newReconcilerFixture(t, ctrl)

	f.leases.EXPECT().
		TryAcquire(gomock.Any(), "reconciler", f.svc.owner, 2*time.Minute).
		Return(false, nil).
		AnyTimes()
	f.leases.EXPECT().Release(gomock.Any(), "reconciler", f.svc.owner).Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.svc.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("reconciler did not stop after cancel")
	}
}
