package notification

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_repository.go -package=mocks . Repository,SSEHub

import (
	"context"
	"time"
)

// Repository defines the interface for outbox persistence
type Repository interface {
	Create(ctx context.Context, notification *Notification) error
	FindByDedupeKey(ctx context.Context, dedupeKey string, since time.Time) (*Notification, error)
	ListPending(ctx context.Context, limit int) ([]*Notification, error)
	ListRetryable(ctx context.Context, limit int) ([]*Notification, error)
	Update(ctx context.Context, notification *Notification) error
}

// SSEHub defines the interface for managing SSE connections
type SSEHub interface {
	Register(client *SSEClient)
	Unregister(clientID string)
	GetClientCount() int

	BroadcastToAll(message *SSEMessage)
	BroadcastToUser(userID string, message *SSEMessage)
	SendToClient(clientID string, message *SSEMessage) error

	Stop()
}
