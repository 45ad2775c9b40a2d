package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	negotiation "github.com/carnegotiate/carnegotiate/internal/domain/negotiation"
	domain "github.com/carnegotiate/carnegotiate/internal/domain/notification"
)

// expiryWarningDedupeWindow suppresses repeat warnings for the same
// negotiation within the window.
const expiryWarningDedupeWindow = 24 * time.Hour

// Service writes outbox notifications. It is called inside the negotiation
// transaction, so the rows commit atomically with the change they announce.
type Service struct {
	repo   domain.Repository
	logger zerolog.Logger
}

// NewService creates a notification service.
func NewService(repo domain.Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("service", "notification").Logger(),
	}
}

func (s *Service) NewOffer(ctx context.Context, n *negotiation.Negotiation, o *negotiation.Offer, recipientID uuid.UUID) error {
	return s.queue(ctx, n.NegotiationID, recipientID, domain.KindNewOffer,
		"New offer received",
		fmt.Sprintf("A buyer offered $%s on your vehicle", o.Amount.StringFixed(2)),
		offerPayload(n, o), nil)
}

func (s *Service) CounterOffer(ctx context.Context, n *negotiation.Negotiation, o *negotiation.Offer, recipientID uuid.UUID) error {
	return s.queue(ctx, n.NegotiationID, recipientID, domain.KindCounterOffer,
		"Counter-offer received",
		fmt.Sprintf("The %s countered with $%s", partyLabel(o.OfferedBy), o.Amount.StringFixed(2)),
		offerPayload(n, o), nil)
}

func (s *Service) OfferAccepted(ctx context.Context, n *negotiation.Negotiation, price decimal.Decimal, buyerID, dealerID uuid.UUID) error {
	payload, _ := json.Marshal(map[string]interface{}{
		"negotiationId": n.NegotiationID.String(),
		"vehicleId":     n.VehicleID.String(),
		"acceptedPrice": price.StringFixed(2),
	})
	body := fmt.Sprintf("The offer of $%s was accepted", price.StringFixed(2))
	for _, recipient := range []uuid.UUID{buyerID, dealerID} {
		if err := s.queue(ctx, n.NegotiationID, recipient, domain.KindOfferAccepted, "Offer accepted", body, payload, nil); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) OfferRejected(ctx context.Context, n *negotiation.Negotiation, buyerID uuid.UUID, reason string) error {
	body := "The dealer rejected your offer"
	if reason != "" {
		body = fmt.Sprintf("The dealer rejected your offer: %s", reason)
	}
	payload, _ := json.Marshal(map[string]interface{}{
		"negotiationId": n.NegotiationID.String(),
		"vehicleId":     n.VehicleID.String(),
		"status":        n.Status,
		"reason":        reason,
	})
	return s.queue(ctx, n.NegotiationID, buyerID, domain.KindOfferRejected,
		"Offer rejected", body, payload, nil)
}

func (s *Service) NegotiationCancelled(ctx context.Context, n *negotiation.Negotiation, recipientID uuid.UUID) error {
	return s.queue(ctx, n.NegotiationID, recipientID, domain.KindNegotiationCancelled,
		"Negotiation cancelled",
		"The negotiation is no longer active",
		negotiationPayload(n), nil)
}

// NegotiationExpiring warns both parties once per window, keyed per
// negotiation so sweeps every hour do not spam.
func (s *Service) NegotiationExpiring(ctx context.Context, n *negotiation.Negotiation, buyerID, dealerID uuid.UUID) error {
	key := "expiry-warning:" + n.NegotiationID.String()
	existing, err := s.repo.FindByDedupeKey(ctx, key, time.Now().UTC().Add(-expiryWarningDedupeWindow))
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	payload, _ := json.Marshal(map[string]interface{}{
		"negotiationId": n.NegotiationID.String(),
		"vehicleId":     n.VehicleID.String(),
		"expiresAt":     n.ExpiresAt.Format(time.RFC3339),
	})
	body := fmt.Sprintf("The negotiation expires at %s", n.ExpiresAt.Format(time.RFC3339))
	for _, recipient := range []uuid.UUID{buyerID, dealerID} {
		if err := s.queue(ctx, n.NegotiationID, recipient, domain.KindNegotiationExpiring, "Negotiation expiring soon", body, payload, &key); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) NegotiationExpired(ctx context.Context, n *negotiation.Negotiation, buyerID, dealerID uuid.UUID) error {
	for _, recipient := range []uuid.UUID{buyerID, dealerID} {
		if err := s.queue(ctx, n.NegotiationID, recipient, domain.KindNegotiationExpired,
			"Negotiation expired",
			"The negotiation expired without a resolution",
			negotiationPayload(n), nil); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) queue(ctx context.Context, negotiationID, recipientID uuid.UUID, kind domain.Kind, title, body string, payload json.RawMessage, dedupeKey *string) error {
	row := domain.New(negotiationID, recipientID, kind, title, body, payload)
	if dedupeKey != nil && *dedupeKey != "" {
		row.SetDedupeKey(*dedupeKey)
	}
	if err := s.repo.Create(ctx, row); err != nil {
		return err
	}
	s.logger.Debug().
		Str("notification_id", row.NotificationID.String()).
		Str("kind", string(kind)).
		Msg("notification queued")
	return nil
}

func offerPayload(n *negotiation.Negotiation, o *negotiation.Offer) json.RawMessage {
	payload, _ := json.Marshal(map[string]interface{}{
		"negotiationId": n.NegotiationID.String(),
		"vehicleId":     n.VehicleID.String(),
		"offerId":       o.OfferID.String(),
		"amount":        o.Amount.StringFixed(2),
		"offeredBy":     o.OfferedBy,
		"message":       o.Message,
	})
	return payload
}

func negotiationPayload(n *negotiation.Negotiation) json.RawMessage {
	payload, _ := json.Marshal(map[string]interface{}{
		"negotiationId": n.NegotiationID.String(),
		"vehicleId":     n.VehicleID.String(),
		"status":        n.Status,
	})
	return payload
}

func partyLabel(p negotiation.Party) string {
	if p == negotiation.PartyBuyer {
		return "buyer"
	}
	return "dealer"
}
