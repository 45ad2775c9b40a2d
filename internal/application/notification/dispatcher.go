package notification

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	domain "github.com/carnegotiate/carnegotiate/internal/domain/notification"
)

const dispatchBatchSize = 100

// Dispatcher drains the outbox and fans rows out over SSE. It runs outside
// any negotiation transaction; a delivery failure marks the row FAILED and a
// later pass retries it until retries run out.
type Dispatcher struct {
	repo   domain.Repository
	hub    domain.SSEHub
	logger zerolog.Logger
}

// NewDispatcher creates an outbox dispatcher.
func NewDispatcher(repo domain.Repository, hub domain.SSEHub, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		repo:   repo,
		hub:    hub,
		logger: logger.With().Str("service", "dispatcher").Logger(),
	}
}

// Dispatch delivers one batch of pending and retryable notifications.
// Returns how many were sent.
func (d *Dispatcher) Dispatch(ctx context.Context) (int, error) {
	retryable, err := d.repo.ListRetryable(ctx, dispatchBatchSize)
	if err != nil {
		return 0, err
	}
	for _, n := range retryable {
		if err := n.ResetForRetry(); err != nil {
			continue
		}
		if err := d.repo.Update(ctx, n); err != nil {
			d.logger.Warn().Err(err).Str("notification_id", n.NotificationID.String()).Msg("failed to reset notification for retry")
		}
	}

	pending, err := d.repo.ListPending(ctx, dispatchBatchSize)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, n := range pending {
		if err := d.deliver(n); err != nil {
			d.fail(ctx, n, err)
			continue
		}
		if err := n.MarkSent(); err != nil {
			d.logger.Warn().Err(err).Str("notification_id", n.NotificationID.String()).Msg("invalid notification transition")
			continue
		}
		if err := d.repo.Update(ctx, n); err != nil {
			d.logger.Warn().Err(err).Str("notification_id", n.NotificationID.String()).Msg("failed to mark notification sent")
			continue
		}
		sent++
	}
	return sent, nil
}

func (d *Dispatcher) deliver(n *domain.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	msg := domain.NewSSEMessage(string(n.Kind), data)
	d.hub.BroadcastToUser(n.RecipientUserID.String(), msg)
	return nil
}

func (d *Dispatcher) fail(ctx context.Context, n *domain.Notification, cause error) {
	if err := n.MarkFailed(cause.Error()); err != nil {
		return
	}
	if !n.CanRetry() {
		_ = n.MarkExpired()
	}
	if err := d.repo.Update(ctx, n); err != nil {
		d.logger.Warn().Err(err).Str("notification_id", n.NotificationID.String()).Msg("failed to record notification failure")
	}
}
