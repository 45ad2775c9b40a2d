package notification

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status represents the delivery status of a notification
type Status string

const (
	StatusPending Status = "PENDING"
	StatusSent    Status = "SENT"
	StatusFailed  Status = "FAILED"
	StatusExpired Status = "EXPIRED"
)

// Kind identifies what negotiation event a notification announces
type Kind string

const (
	KindNewOffer             Kind = "new_offer"
	KindCounterOffer         Kind = "counter_offer"
	KindOfferAccepted        Kind = "offer_accepted"
	KindOfferRejected        Kind = "offer_rejected"
	KindNegotiationCancelled Kind = "negotiation_cancelled"
	KindNegotiationExpiring  Kind = "negotiation_expiring"
	KindNegotiationExpired   Kind = "negotiation_expired"
)

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrCannotRetry       = errors.New("cannot retry notification")
	ErrClientNotFound    = errors.New("SSE client not found")
	ErrChannelFull       = errors.New("SSE message channel full")
)

// Notification is one outbox row. Rows are written inside the negotiation
// transaction and drained by the dispatcher after commit, so delivery
// failures can never roll a negotiation back.
type Notification struct {
	ID              int64           `json:"id"`
	NotificationID  uuid.UUID       `json:"notificationId"`
	NegotiationID   uuid.UUID       `json:"negotiationId"`
	Kind            Kind            `json:"kind"`
	RecipientUserID uuid.UUID       `json:"recipientUserId"`
	Title           string          `json:"title"`
	Body            string          `json:"body"`
	Payload         json.RawMessage `json:"payload"`
	DedupeKey       *string         `json:"dedupeKey,omitempty"`
	Status          Status          `json:"status"`
	RetryCount      int             `json:"retryCount"`
	MaxRetries      int             `json:"maxRetries"`
	LastError       *string         `json:"lastError,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	SentAt          *time.Time      `json:"sentAt,omitempty"`
	FailedAt        *time.Time      `json:"failedAt,omitempty"`
}

// New creates a pending outbox notification
func New(negotiationID, recipientUserID uuid.UUID, kind Kind, title, body string, payload json.RawMessage) *Notification {
	return &Notification{
		NotificationID:  uuid.New(),
		NegotiationID:   negotiationID,
		Kind:            kind,
		RecipientUserID: recipientUserID,
		Title:           title,
		Body:            body,
		Payload:         payload,
		Status:          StatusPending,
		MaxRetries:      3,
		CreatedAt:       time.Now().UTC(),
	}
}

// SetDedupeKey marks the notification for once-per-window emission
func (n *Notification) SetDedupeKey(key string) {
	n.DedupeKey = &key
}

// CanTransitionTo checks if a transition to the target status is valid
func (n *Notification) CanTransitionTo(target Status) bool {
	transitions := map[Status][]Status{
		StatusPending: {StatusSent, StatusFailed, StatusExpired},
		StatusSent:    {},
		StatusFailed:  {StatusPending, StatusExpired}, // Retry or give up
		StatusExpired: {},
	}
	allowed, ok := transitions[n.Status]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

// MarkSent marks the notification as sent
func (n *Notification) MarkSent() error {
	if !n.CanTransitionTo(StatusSent) {
		return ErrInvalidTransition
	}
	n.Status = StatusSent
	now := time.Now().UTC()
	n.SentAt = &now
	return nil
}

// MarkFailed marks the notification as failed
func (n *Notification) MarkFailed(errMsg string) error {
	if !n.CanTransitionTo(StatusFailed) {
		return ErrInvalidTransition
	}
	n.Status = StatusFailed
	now := time.Now().UTC()
	n.FailedAt = &now
	n.LastError = &errMsg
	n.RetryCount++
	return nil
}

// CanRetry checks if the notification can be retried
func (n *Notification) CanRetry() bool {
	return n.Status == StatusFailed && n.RetryCount < n.MaxRetries
}

// ResetForRetry resets the notification for retry
func (n *Notification) ResetForRetry() error {
	if !n.CanRetry() {
		return ErrCannotRetry
	}
	n.Status = StatusPending
	n.FailedAt = nil
	return nil
}

// MarkExpired marks the notification as abandoned after retries ran out
func (n *Notification) MarkExpired() error {
	if !n.CanTransitionTo(StatusExpired) {
		return ErrInvalidTransition
	}
	n.Status = StatusExpired
	return nil
}

// SSEClient represents an active SSE connection
type SSEClient struct {
	ClientID    string
	UserID      *string
	ConnectedAt time.Time
	MessageChan chan *SSEMessage
}

// NewSSEClient creates a new SSE client
func NewSSEClient(clientID string, userID *string) *SSEClient {
	return &SSEClient{
		ClientID:    clientID,
		UserID:      userID,
		ConnectedAt: time.Now().UTC(),
		MessageChan: make(chan *SSEMessage, 100),
	}
}

// Close closes the client's message channel
func (c *SSEClient) Close() {
	close(c.MessageChan)
}

// SSEMessage represents a message to be sent via SSE
type SSEMessage struct {
	ID        string          `json:"id"`
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewSSEMessage creates a new SSE message
func NewSSEMessage(event string, data json.RawMessage) *SSEMessage {
	return &SSEMessage{
		ID:        uuid.New().String(),
		Event:     event,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}
