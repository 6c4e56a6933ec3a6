package replan_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pageza/fleet-replanner/internal/domain"
	"github.com/pageza/fleet-replanner/internal/replan"
	"github.com/pageza/fleet-replanner/internal/store"
)

func TestWriteApplierNoopOnEmptyBatch(t *testing.T) {
	s := &mockJobStore{}
	applier := replan.NewWriteApplier(s, 0, 0)

	err := applier.Apply(context.Background(), nil)

	assert.NoError(t, err)
	s.AssertNotCalled(t, "ApplyUpdates", mock.Anything, mock.Anything)
}

func TestWriteApplierDispatchesOnePerJob(t *testing.T) {
	s := &mockJobStore{}
	updates := []store.JobUpdate{
		store.NewQueuedUpdate(1, 10, time.Now()),
		store.NewQueuedUpdate(2, 11, time.Now()),
		store.NewPendingReviewUpdate(3),
	}
	for _, u := range updates {
		s.On("ApplyUpdates", mock.Anything, []store.JobUpdate{u}).Return(nil).Once()
	}

	applier := replan.NewWriteApplier(s, 0, 0)
	err := applier.Apply(context.Background(), updates)

	require.NoError(t, err)
	s.AssertExpectations(t)
}

func TestWriteApplierAggregatesPartialFailures(t *testing.T) {
	s := &mockJobStore{}
	okUpdate := store.NewPendingReviewUpdate(1)
	failUpdate := store.NewPendingReviewUpdate(2)

	s.On("ApplyUpdates", mock.Anything, []store.JobUpdate{okUpdate}).Return(nil)
	s.On("ApplyUpdates", mock.Anything, []store.JobUpdate{failUpdate}).Return(errors.New("db gone"))

	applier := replan.NewWriteApplier(s, 0, 0)
	err := applier.Apply(context.Background(), []store.JobUpdate{okUpdate, failUpdate})

	require.Error(t, err)
	var failure *replan.WriteFailure
	require.ErrorAs(t, err, &failure)
	require.Len(t, failure.FailedJobIDs, 1)
	assert.Equal(t, domain.JobID(2), failure.FailedJobIDs[0])
}
