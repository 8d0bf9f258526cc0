package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"expensetracker/internal/events"
	"expensetracker/internal/log"
	"expensetracker/internal/model"
)

func TestRetentionService_PurgeExpired(t *testing.T) {
	repo := new(MockExpenseRepository)
	publisher := new(MockPublisher)
	svc := NewRetentionService(repo, publisher, log.Discard(), 30)
	cutoff := fixedNow.AddDate(0, 0, -30)

	alice, bob := uuid.New(), uuid.New()
	expired := []model.Expense{
		{ID: uuid.New(), UserID: alice, IsDeleted: true},
		{ID: uuid.New(), UserID: bob, IsDeleted: true},
	}
	repo.On("PurgeTrashedBefore", mock.Anything, cutoff).Return(expired, nil).Once()
	for _, e := range expired {
		publisher.On("Publish", mock.Anything, eventOf(events.TypePurged, e.ID, e.UserID)).Return(nil).Once()
	}

	purged, err := svc.PurgeExpired(context.Background(), fixedNow)
	require.NoError(t, err)
	assert.Equal(t, int64(2), purged)
	assert.Equal(t, time.Date(2023, 12, 11, 9, 30, 0, 0, time.UTC), cutoff)
	repo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestRetentionService_PublishFailureDoesNotFailPurge(t *testing.T) {
	repo := new(MockExpenseRepository)
	publisher := new(MockPublisher)
	svc := NewRetentionService(repo, publisher, log.Discard(), 30)

	repo.On("PurgeTrashedBefore", mock.Anything, mock.Anything).Return([]model.Expense{{ID: uuid.New(), UserID: uuid.New()}}, nil)
	publisher.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	purged, err := svc.PurgeExpired(context.Background(), fixedNow)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
}

func TestRetentionService_NothingExpired(t *testing.T) {
	repo := new(MockExpenseRepository)
	publisher := new(MockPublisher)
	svc := NewRetentionService(repo, publisher, log.Discard(), 30)

	repo.On("PurgeTrashedBefore", mock.Anything, mock.Anything).Return([]model.Expense{}, nil)

	purged, err := svc.PurgeExpired(context.Background(), fixedNow)
	require.NoError(t, err)
	assert.Zero(t, purged)
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestRetentionService_Errors(t *testing.T) {
	repo := new(MockExpenseRepository)

	_, err := NewRetentionService(repo, events.NopPublisher{}, log.Discard(), 0).PurgeExpired(context.Background(), fixedNow)
	assert.ErrorContains(t, err, "at least one day")

	repo.On("PurgeTrashedBefore", mock.Anything, mock.Anything).Return(nil, errors.New("locked"))
	_, err = NewRetentionService(repo, events.NopPublisher{}, log.Discard(), 7).PurgeExpired(context.Background(), fixedNow)
	assert.ErrorContains(t, err, "locked")
}
