package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/carnegotiate/carnegotiate/internal/domain/notification"
)

const notificationColumns = `id, notification_id, negotiation_id, kind, recipient_user_id, title, body, payload, dedupe_key, status, retry_count, max_retries, last_error, created_at, sent_at, failed_at`

// NotificationRepository implements notification.Repository. Creates route
// through the context transaction, so outbox rows commit atomically with the
// negotiation change they announce.
type NotificationRepository struct {
	db *DB
}

func NewNotificationRepository(db *DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	return r.db.querier(ctx).QueryRow(ctx, `
		INSERT INTO notifications
		(notification_id, negotiation_id, kind, recipient_user_id, title, body, payload, dedupe_key, status, retry_count, max_retries, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING id
	`, n.NotificationID, n.NegotiationID, n.Kind, n.RecipientUserID, n.Title, n.Body, n.Payload, n.DedupeKey, n.Status, n.RetryCount, n.MaxRetries, n.CreatedAt).Scan(&n.ID)
}

func (r *NotificationRepository) FindByDedupeKey(ctx context.Context, dedupeKey string, since time.Time) (*notification.Notification, error) {
	row := r.db.querier(ctx).QueryRow(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE dedupe_key=$1 AND created_at >= $2
		ORDER BY created_at DESC LIMIT 1
	`, dedupeKey, since)
	return scanNotification(row)
}

func (r *NotificationRepository) ListPending(ctx context.Context, limit int) ([]*notification.Notification, error) {
	rows, err := r.db.querier(ctx).Query(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE status=$1 ORDER BY created_at ASC LIMIT $2
	`, notification.StatusPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectNotifications(rows)
}

func (r *NotificationRepository) ListRetryable(ctx context.Context, limit int) ([]*notification.Notification, error) {
	rows, err := r.db.querier(ctx).Query(ctx, `
		SELECT `+notificationColumns+` FROM notifications
		WHERE status=$1 AND retry_count < max_retries
		ORDER BY failed_at ASC LIMIT $2
	`, notification.StatusFailed, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectNotifications(rows)
}

func (r *NotificationRepository) Update(ctx context.Context, n *notification.Notification) error {
	tag, err := r.db.querier(ctx).Exec(ctx, `
		UPDATE notifications
		SET status=$2, retry_count=$3, last_error=$4, sent_at=$5, failed_at=$6
		WHERE notification_id=$1
	`, n.NotificationID, n.Status, n.RetryCount, n.LastError, n.SentAt, n.FailedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("notification not found: %s", n.NotificationID)
	}
	return nil
}

func collectNotifications(rows pgx.Rows) ([]*notification.Notification, error) {
	var out []*notification.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func scanNotification(row pgx.Row) (*notification.Notification, error) {
	var n notification.Notification
	if err := row.Scan(&n.ID, &n.NotificationID, &n.NegotiationID, &n.Kind, &n.RecipientUserID, &n.Title, &n.Body, &n.Payload, &n.DedupeKey, &n.Status, &n.RetryCount, &n.MaxRetries, &n.LastError, &n.CreatedAt, &n.SentAt, &n.FailedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &n, nil
}
