package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/genrelay/genrelay/internal/core"
	"github.com/genrelay/genrelay/internal/domain/model"
	apperrors "github.com/genrelay/genrelay/internal/errors"
	"github.com/genrelay/genrelay/internal/mocks"
)

type stubDeliverer struct {
	deliverCalls []deliverCall
	notifyCalls  []notifyCall
	deliverFn    func(job *model.Job, source string) bool
}

type deliverCall struct {
	job    *model.Job
	source string
}

type notifyCall struct {
	job    *model.Job
	reason string
}

func (s *stubDeliverer) Deliver(_ context.Context, job *model.Job, source string) bool {
	s.deliverCalls = append(s.deliverCalls, deliverCall{job: job, source: source})
	if s.deliverFn != nil {
		return s.deliverFn(job, source)
	}
	return true
}

func (s *stubDeliverer) NotifyFailure(_ context.Context, job *model.Job, reason string) {
	s.notifyCalls = append(s.notifyCalls, notifyCall{job: job, reason: reason})
}

var _ resultDeliverer = (*stubDeliverer)(nil)

func newTestCallbackService(t *testing.T, repo *mocks.MockJobRepository, orphans *mocks.MockOrphanRepository, guard core.CallbackGuard) (*CallbackService, *stubDeliverer) {
	t.Helper()
	deliverer := &stubDeliverer{}
	svc, err := NewCallbackService(CallbackOptions{
		Jobs:     repo,
		Orphans:  orphans,
		Delivery: deliverer,
		Guard:    guard,
	})
	require.NoError(t, err)
	return svc, deliverer
}

func successCallback() *model.ProviderCallback {
	return &model.ProviderCallback{
		TaskID:     "task-abc",
		Status:     model.CallbackStatusSuccess,
		ResultURLs: []string{"https://cdn.example.com/a.png"},
	}
}

func TestNewCallbackService(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockJobRepository(ctrl)
	orphans := mocks.NewMockOrphanRepository(ctrl)

	t.Run("missing job repository", func(t *testing.T) {
		_, err := NewCallbackService(CallbackOptions{Orphans: orphans, Delivery: &stubDeliverer{}})
		assert.Error(t, err)
	})

	t.Run("missing orphan repository", func(t *testing.T) {
		_, err := NewCallbackService(CallbackOptions{Jobs: repo, Delivery: &stubDeliverer{}})
		assert.Error(t, err)
	})

	t.Run("missing deliverer", func(t *testing.T) {
		_, err := NewCallbackService(CallbackOptions{Jobs: repo, Orphans: orphans})
		assert.Error(t, err)
	})

	t.Run("guard defaults to noop", func(t *testing.T) {
		svc, err := NewCallbackService(CallbackOptions{Jobs: repo, Orphans: orphans, Delivery: &stubDeliverer{}})
		require.NoError(t, err)
		assert.NotNil(t, svc.guard)
	})
}

func TestHandleRejectsInvalidPayload(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockJobRepository(ctrl)
	orphans := mocks.NewMockOrphanRepository(ctrl)
	svc, _ := newTestCallbackService(t, repo, orphans, nil)

	cases := map[string]*model.ProviderCallback{
		"missing task id":      {Status: model.CallbackStatusSuccess, ResultURLs: []string{"u"}},
		"unknown status":       {TaskID: "t", Status: "exploded"},
		"success without urls": {TaskID: "t", Status: model.CallbackStatusSuccess},
	}

	for name, cb := range cases {
		t.Run(name, func(t *testing.T) {
			err := svc.Handle(context.Background(), cb)
			assert.True(t, apperrors.IsValidation(err))
		})
	}
}

func TestHandleAppliesSuccessAndDelivers(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockJobRepository(ctrl)
	orphans := mocks.NewMockOrphanRepository(ctrl)
	svc, deliverer := newTestCallbackService(t, repo, orphans, nil)

	cb := successCallback()
	job := &model.Job{ID: "job-1", ChatID: 42, Status: model.JobStatusRunning}

	repo.EXPECT().FindByTaskID(gomock.Any(), cb.TaskID).Return(job, nil)
	repo.EXPECT().
		ApplyCallback(gomock.Any(), core.ApplyCallbackParams{
			JobID:      "job-1",
			Status:     model.JobStatusDone,
			ResultURLs: cb.ResultURLs,
		}).
		Return(true, nil)

	require.NoError(t, svc.Handle(context.Background(), cb))

	require.Len(t, deliverer.deliverCalls, 1)
	call := deliverer.deliverCalls[0]
	assert.Equal(t, DeliverySourceCallback, call.source)
	assert.Equal(t, model.JobStatusDone, call.job.Status)
	assert.Equal(t, cb.ResultURLs, call.job.ResultURLs)
	assert.False(t, call.job.Delivered)
}

func TestHandleRedeliveredCallbackIsAbsorbed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockJobRepository(ctrl)
	orphans := mocks.NewMockOrphanRepository(ctrl)
	svc, deliverer := newTestCallbackService(t, repo, orphans, nil)

	cb := successCallback()

	// First arrival transitions the job; the redelivered copy finds it
	// terminal and the conditional update reports not-applied.
	runningJob := &model.Job{ID: "job-1", ChatID: 42, Status: model.JobStatusRunning}
	doneJob := &model.Job{ID: "job-1", ChatID: 42, Status: model.JobStatusDone, ResultURLs: cb.ResultURLs}

	gomock.InOrder(
		repo.EXPECT().FindByTaskID(gomock.Any(), cb.TaskID).Return(runningJob, nil),
		repo.EXPECT().ApplyCallback(gomock.Any(), gomock.Any()).Return(true, nil),
		repo.EXPECT().FindByTaskID(gomock.Any(), cb.TaskID).Return(doneJob, nil),
		repo.EXPECT().ApplyCallback(gomock.Any(), gomock.Any()).Return(false, nil),
	)

	require.NoError(t, svc.Handle(context.Background(), cb))
	require.NoError(t, svc.Handle(context.Background(), cb))

	// Exactly one delivery attempt across both arrivals.
	assert.Len(t, deliverer.deliverCalls, 1)
}

func TestHandleFailureNotifiesUser(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockJobRepository(ctrl)
	orphans := mocks.NewMockOrphanRepository(ctrl)
	svc, deliverer := newTestCallbackService(t, repo, orphans, nil)

	job := &model.Job{ID: "job-1", ChatID: 42, Status: model.JobStatusRunning}

	t.Run("with provider reason", func(t *testing.T) {
		cb := &model.ProviderCallback{TaskID: "task-abc", Status: model.CallbackStatusFail, Error: "nsfw content detected"}
		repo.EXPECT().FindByTaskID(gomock.Any(), cb.TaskID).Return(job, nil)
		repo.EXPECT().ApplyCallback(gomock.Any(), gomock.Any()).Return(true, nil)

		require.NoError(t, svc.Handle(context.Background(), cb))
		require.Len(t, deliverer.notifyCalls, 1)
		assert.Equal(t, "nsfw content detected", deliverer.notifyCalls[0].reason)
	})

	t.Run("default reason", func(t *testing.T) {
		deliverer.notifyCalls = nil
		cb := &model.ProviderCallback{TaskID: "task-abc", Status: model.CallbackStatusFail}
		repo.EXPECT().FindByTaskID(gomock.Any(), cb.TaskID).Return(job, nil)
		repo.EXPECT().ApplyCallback(gomock.Any(), gomock.Any()).Return(true, nil)

		require.NoError(t, svc.Handle(context.Background(), cb))
		require.Len(t, deliverer.notifyCalls, 1)
		assert.Equal(t, "generation failed", deliverer.notifyCalls[0].reason)
	})
}

func TestHandleUnknownTaskParksOrphan(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockJobRepository(ctrl)
	orphans := mocks.NewMockOrphanRepository(ctrl)
	svc, deliverer := newTestCallbackService(t, repo, orphans, nil)

	cb := successCallback()
	repo.EXPECT().FindByTaskID(gomock.Any(), cb.TaskID).Return(nil, apperrors.NotFound("job not found"))
	orphans.EXPECT().
		Insert(gomock.Any(), cb.TaskID, gomock.Any()).
		Return(&model.OrphanCallback{ID: "orphan-1", TaskID: cb.TaskID}, nil)

	// Parking is a success from the provider's point of view.
	assert.NoError(t, svc.Handle(context.Background(), cb))
	assert.Empty(t, deliverer.deliverCalls)
}

func TestHandleLookupErrorPropagates(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockJobRepository(ctrl)
	orphans := mocks.NewMockOrphanRepository(ctrl)
	svc, _ := newTestCallbackService(t, repo, orphans, nil)

	cb := successCallback()
	repo.EXPECT().FindByTaskID(gomock.Any(), cb.TaskID).Return(nil, errors.New("connection refused"))

	assert.Error(t, svc.Handle(context.Background(), cb))
}

func TestHandleProgressDuplicateShortCircuits(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockJobRepository(ctrl)
	orphans := mocks.NewMockOrphanRepository(ctrl)
	guard := mocks.NewMockCallbackGuard(ctrl)
	svc, _ := newTestCallbackService(t, repo, orphans, guard)

	cb := &model.ProviderCallback{TaskID: "task-abc", Status: model.CallbackStatusRunning}
	guard.EXPECT().FirstSeen(gomock.Any(), "task-abc", "running").Return(false, nil)

	// No database work for a repeated progress ping.
	assert.NoError(t, svc.Handle(context.Background(), cb))
}

func TestHandleGuardFailureFallsThrough(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockJobRepository(ctrl)
	orphans := mocks.NewMockOrphanRepository(ctrl)
	guard := mocks.NewMockCallbackGuard(ctrl)
	svc, _ := newTestCallbackService(t, repo, orphans, guard)

	cb := &model.ProviderCallback{TaskID: "task-abc", Status: model.CallbackStatusRunning}
	guard.EXPECT().FirstSeen(gomock.Any(), "task-abc", "running").Return(false, errors.New("redis down"))
	repo.EXPECT().FindByTaskID(gomock.Any(), cb.TaskID).Return(&model.Job{ID: "job-1", Status: model.JobStatusPending}, nil)
	repo.EXPECT().ApplyCallback(gomock.Any(), gomock.Any()).Return(true, nil)

	assert.NoError(t, svc.Handle(context.Background(), cb))
}

func TestHandleTerminalCallbackSkipsGuard(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockJobRepository(ctrl)
	orphans := mocks.NewMockOrphanRepository(ctrl)
	guard := mocks.NewMockCallbackGuard(ctrl)
	svc, _ := newTestCallbackService(t, repo, orphans, guard)

	// No FirstSeen expectation: a success callback must always reach the
	// database so a guard hiccup can never lose a result.
	cb := successCallback()
	repo.EXPECT().FindByTaskID(gomock.Any(), cb.TaskID).Return(&model.Job{ID: "job-1", ChatID: 42, Status: model.JobStatusRunning}, nil)
	repo.EXPECT().ApplyCallback(gomock.Any(), gomock.Any()).Return(true, nil)

	assert.NoError(t, svc.Handle(context.Background(), cb))
}

func TestHandleOrphanInsertErrorPropagates(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockJobRepository(ctrl)
	orphans := mocks.NewMockOrphanRepository(ctrl)
	svc, _ := newTestCallbackService(t, repo, orphans, nil)

	cb := successCallback()
	repo.EXPECT().FindByTaskID(gomock.Any(), cb.TaskID).Return(nil, apperrors.NotFound("job not found"))
	orphans.EXPECT().Insert(gomock.Any(), cb.TaskID, gomock.Any()).Return(nil, errors.New("disk full"))

	assert.Error(t, svc.Handle(context.Background(), cb))
}

func TestApplyPassesErrorMessage(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockJobRepository(ctrl)
	orphans := mocks.NewMockOrphanRepository(ctrl)
	svc, _ := newTestCallbackService(t, repo, orphans, nil)

	job := &model.Job{ID: "job-1", ChatID: 42, Status: model.JobStatusRunning}
	cb := &model.ProviderCallback{TaskID: "task-abc", Status: model.CallbackStatusFail, Error: "timeout"}

	repo.EXPECT().
		ApplyCallback(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, params core.ApplyCallbackParams) (bool, error) {
			require.NotNil(t, params.ErrMsg)
			assert.Equal(t, "timeout", *params.ErrMsg)
			assert.Equal(t, model.JobStatusFailed, params.Status)
			return true, nil
		})

	outcome, err := svc.Apply(context.Background(), job, cb, DeliverySourceOrphan)
	require.NoError(t, err)
	assert.Equal(t, "applied", outcome)
}
