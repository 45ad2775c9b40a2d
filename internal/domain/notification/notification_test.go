package notification

import (
	"testing"

	"github.com/google/uuid"
)

func TestNotificationLifecycle(t *testing.T) {
	n := New(uuid.New(), uuid.New(), KindNewOffer, "New offer", "You received a new offer", nil)
	if n.Status != StatusPending {
		t.Fatalf("new notification should be PENDING, got %s", n.Status)
	}
	if err := n.MarkSent(); err != nil {
		t.Fatalf("MarkSent: %v", err)
	}
	if n.SentAt == nil {
		t.Fatal("SentAt should be stamped")
	}
	if err := n.MarkFailed("boom"); err != ErrInvalidTransition {
		t.Fatalf("sent notification cannot fail, got %v", err)
	}
}

func TestNotificationRetry(t *testing.T) {
	n := New(uuid.New(), uuid.New(), KindCounterOffer, "Counter offer", "", nil)
	for i := 0; i < n.MaxRetries; i++ {
		if err := n.MarkFailed("connection refused"); err != nil {
			t.Fatalf("MarkFailed #%d: %v", i+1, err)
		}
		if i < n.MaxRetries-1 {
			if !n.CanRetry() {
				t.Fatalf("expected retryable after %d failures", i+1)
			}
			if err := n.ResetForRetry(); err != nil {
				t.Fatalf("ResetForRetry: %v", err)
			}
		}
	}
	if n.CanRetry() {
		t.Fatal("retries exhausted, CanRetry must be false")
	}
	if err := n.ResetForRetry(); err != ErrCannotRetry {
		t.Fatalf("expected ErrCannotRetry, got %v", err)
	}
	if err := n.MarkExpired(); err != nil {
		t.Fatalf("MarkExpired: %v", err)
	}
}

func TestNotificationDedupeKey(t *testing.T) {
	n := New(uuid.New(), uuid.New(), KindNegotiationExpiring, "Expiring soon", "", nil)
	if n.DedupeKey != nil {
		t.Fatal("dedupe key unset by default")
	}
	n.SetDedupeKey("expiry-warning:abc")
	if n.DedupeKey == nil || *n.DedupeKey != "expiry-warning:abc" {
		t.Fatal("dedupe key not set")
	}
}
