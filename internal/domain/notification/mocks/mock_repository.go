package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/carnegotiate/carnegotiate/internal/domain/notification"
)

// MockRepository is a mock implementation of notification.Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, n *notification.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *MockRepository) FindByDedupeKey(ctx context.Context, dedupeKey string, since time.Time) (*notification.Notification, error) {
	args := m.Called(ctx, dedupeKey, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notification.Notification), args.Error(1)
}

func (m *MockRepository) ListPending(ctx context.Context, limit int) ([]*notification.Notification, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*notification.Notification), args.Error(1)
}

func (m *MockRepository) ListRetryable(ctx context.Context, limit int) ([]*notification.Notification, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*notification.Notification), args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, n *notification.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

// MockSSEHub is a mock implementation of notification.SSEHub
type MockSSEHub struct {
	mock.Mock
}

func (m *MockSSEHub) Register(client *notification.SSEClient) {
	m.Called(client)
}

func (m *MockSSEHub) Unregister(clientID string) {
	m.Called(clientID)
}

func (m *MockSSEHub) GetClientCount() int {
	args := m.Called()
	return args.Int(0)
}

func (m *MockSSEHub) BroadcastToAll(message *notification.SSEMessage) {
	m.Called(message)
}

func (m *MockSSEHub) BroadcastToUser(userID string, message *notification.SSEMessage) {
	m.Called(userID, message)
}

func (m *MockSSEHub) SendToClient(clientID string, message *notification.SSEMessage) error {
	args := m.Called(clientID, message)
	return args.Error(0)
}

func (m *MockSSEHub) Stop() {
	m.Called()
}
