package notification

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	domain "github.com/carnegotiate/carnegotiate/internal/domain/notification"
	"github.com/carnegotiate/carnegotiate/internal/domain/notification/mocks"
)

func TestDispatcher_Dispatch(t *testing.T) {
	repo := &mocks.MockRepository{}
	hub := &mocks.MockSSEHub{}
	d := NewDispatcher(repo, hub, zerolog.Nop())

	row := domain.New(uuid.New(), uuid.New(), domain.KindNewOffer, "New offer received", "body", nil)

	repo.On("ListRetryable", mock.Anything, dispatchBatchSize).Return([]*domain.Notification{}, nil)
	repo.On("ListPending", mock.Anything, dispatchBatchSize).Return([]*domain.Notification{row}, nil)
	hub.On("BroadcastToUser", row.RecipientUserID.String(), mock.Anything).Return()
	repo.On("Update", mock.Anything, row).Return(nil)

	sent, err := d.Dispatch(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	assert.Equal(t, domain.StatusSent, row.Status)
	require.NotNil(t, row.SentAt)
	hub.AssertExpectations(t)
	repo.AssertExpectations(t)
}

func TestDispatcher_ResetsFailedForRetry(t *testing.T) {
	repo := &mocks.MockRepository{}
	hub := &mocks.MockSSEHub{}
	d := NewDispatcher(repo, hub, zerolog.Nop())

	failed := domain.New(uuid.New(), uuid.New(), domain.KindCounterOffer, "Counter-offer received", "body", nil)
	require.NoError(t, failed.MarkFailed("channel full"))

	repo.On("ListRetryable", mock.Anything, dispatchBatchSize).Return([]*domain.Notification{failed}, nil)
	repo.On("Update", mock.Anything, failed).Return(nil)
	repo.On("ListPending", mock.Anything, dispatchBatchSize).Return([]*domain.Notification{}, nil)

	_, err := d.Dispatch(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, failed.Status)
	assert.Equal(t, 1, failed.RetryCount)
	repo.AssertExpectations(t)
}
