package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"trainingbot/internal/domain"
	"trainingbot/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newBroadcastWorker() (*BroadcastWorker, *testutil.MockBroadcastRepository, *testutil.MockUserRepository, *testutil.MockBroadcastSender) {
	broadcasts := new(testutil.MockBroadcastRepository)
	users := new(testutil.MockUserRepository)
	sender := new(testutil.MockBroadcastSender)
	w := NewBroadcastWorker(broadcasts, users, sender, time.Second, testutil.NewTestLogger())
	w.sendPause = 0
	return w, broadcasts, users, sender
}

func TestBroadcastWorker_EmptyQueueDoesNothing(t *testing.T) {
	w, broadcasts, users, sender := newBroadcastWorker()

	broadcasts.On("ClaimPending", mock.Anything).Return(nil, nil)

	err := w.ProcessOne(context.Background())

	require.NoError(t, err)
	users.AssertNotCalled(t, "BroadcastTargets", mock.Anything, mock.Anything, mock.Anything)
	sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestBroadcastWorker_DeliversAndCounts(t *testing.T) {
	w, broadcasts, users, sender := newBroadcastWorker()
	ctx := context.Background()

	job := &domain.Broadcast{ID: 7, Text: "Team meeting at 10", Status: domain.BroadcastInProgress}
	broadcasts.On("ClaimPending", ctx).Return(job, nil)
	users.On("BroadcastTargets", ctx, (*domain.Department)(nil), (*domain.Role)(nil)).
		Return([]int64{10, 20, 30}, nil)

	sender.On("Send", mock.Anything, int64(10), "Team meeting at 10").Return(nil)
	sender.On("Send", mock.Anything, int64(20), "Team meeting at 10").Return(errors.New("blocked by user"))
	sender.On("Send", mock.Anything, int64(30), "Team meeting at 10").Return(nil)

	broadcasts.On("UpdateCounters", mock.Anything, int64(7), 2, 1, 3).Return(nil)
	broadcasts.On("Finish", mock.Anything, int64(7), domain.BroadcastCompleted).Return(nil)

	err := w.ProcessOne(ctx)

	require.NoError(t, err)
	broadcasts.AssertExpectations(t)
	sender.AssertExpectations(t)
}

func TestBroadcastWorker_AllFailuresMarksFailed(t *testing.T) {
	w, broadcasts, users, sender := newBroadcastWorker()
	ctx := context.Background()

	job := &domain.Broadcast{ID: 8, Text: "hello", Status: domain.BroadcastInProgress}
	broadcasts.On("ClaimPending", ctx).Return(job, nil)
	users.On("BroadcastTargets", ctx, (*domain.Department)(nil), (*domain.Role)(nil)).
		Return([]int64{10, 20}, nil)
	sender.On("Send", mock.Anything, mock.Anything, "hello").Return(errors.New("unreachable"))
	broadcasts.On("UpdateCounters", mock.Anything, int64(8), 0, 2, 2).Return(nil)
	broadcasts.On("Finish", mock.Anything, int64(8), domain.BroadcastFailed).Return(nil)

	err := w.ProcessOne(ctx)

	require.NoError(t, err)
	broadcasts.AssertExpectations(t)
}

func TestBroadcastWorker_TargetLookupFailureFailsJob(t *testing.T) {
	w, broadcasts, users, _ := newBroadcastWorker()
	ctx := context.Background()

	job := &domain.Broadcast{ID: 9, Text: "hello", Status: domain.BroadcastInProgress}
	broadcasts.On("ClaimPending", ctx).Return(job, nil)
	users.On("BroadcastTargets", ctx, (*domain.Department)(nil), (*domain.Role)(nil)).
		Return(nil, errors.New("db down"))
	broadcasts.On("Finish", mock.Anything, int64(9), domain.BroadcastFailed).Return(nil)

	err := w.ProcessOne(ctx)

	assert.Error(t, err)
	broadcasts.AssertExpectations(t)
}

func TestBroadcastWorker_DepartmentFilterPassedThrough(t *testing.T) {
	w, broadcasts, users, sender := newBroadcastWorker()
	ctx := context.Background()

	dept := domain.DepartmentSales
	job := &domain.Broadcast{ID: 10, Text: "sales only", TargetDepartment: &dept}
	broadcasts.On("ClaimPending", ctx).Return(job, nil)
	users.On("BroadcastTargets", ctx, &dept, (*domain.Role)(nil)).Return([]int64{10}, nil)
	sender.On("Send", mock.Anything, int64(10), "sales only").Return(nil)
	broadcasts.On("UpdateCounters", mock.Anything, int64(10), 1, 0, 1).Return(nil)
	broadcasts.On("Finish", mock.Anything, int64(10), domain.BroadcastCompleted).Return(nil)

	err := w.ProcessOne(ctx)

	require.NoError(t, err)
	users.AssertExpectations(t)
}
