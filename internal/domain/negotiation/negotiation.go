package negotiation

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents negotiation status.
type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusAccepted  Status = "ACCEPTED"
	StatusRejected  Status = "REJECTED"
	StatusExpired   Status = "EXPIRED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
)

// Party identifies which side of a negotiation authored an offer or action.
type Party string

const (
	PartyBuyer  Party = "BUYER"
	PartyDealer Party = "DEALER"
)

// OfferStatus represents the resolution state of a single offer.
type OfferStatus string

const (
	OfferStatusPending   OfferStatus = "PENDING"
	OfferStatusAccepted  OfferStatus = "ACCEPTED"
	OfferStatusRejected  OfferStatus = "REJECTED"
	OfferStatusCountered OfferStatus = "COUNTERED"
	OfferStatusExpired   OfferStatus = "EXPIRED"
)

// MaxMessageLength caps the optional free-text message on an offer.
const MaxMessageLength = 500

var ErrMessageTooLong = errors.New("offer message exceeds 500 characters")

// Negotiation is one offer thread between a buyer and the dealer of a vehicle.
// It is the aggregate root; offers belong exclusively to it.
type Negotiation struct {
	ID            int64            `json:"id"`
	NegotiationID uuid.UUID        `json:"negotiationId"`
	VehicleID     uuid.UUID        `json:"vehicleId"`
	BuyerID       uuid.UUID        `json:"buyerId"`
	Status        Status           `json:"status"`
	AcceptedPrice *decimal.Decimal `json:"acceptedPrice,omitempty"`
	Version       int              `json:"version"`
	ExpiresAt     time.Time        `json:"expiresAt"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`

	// Offers is populated on detail reads, newest first.
	Offers []*Offer `json:"offers,omitempty"`
}

// Offer is one amount proposed by one side within a negotiation. Offers are
// append-only: once resolved they never change again.
type Offer struct {
	ID            int64           `json:"id"`
	OfferID       uuid.UUID       `json:"offerId"`
	NegotiationID uuid.UUID       `json:"negotiationId"`
	Amount        decimal.Decimal `json:"amount"`
	OfferedBy     Party           `json:"offeredBy"`
	Message       string          `json:"message,omitempty"`
	Status        OfferStatus     `json:"status"`
	RespondedAt   *time.Time      `json:"respondedAt,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// CanTransitionTo validates negotiation status transition.
func (n *Negotiation) CanTransitionTo(target Status) bool {
	transitions := map[Status][]Status{
		StatusActive:    {StatusAccepted, StatusRejected, StatusExpired, StatusCancelled},
		StatusAccepted:  {StatusCompleted},
		StatusRejected:  {},
		StatusExpired:   {},
		StatusCancelled: {},
		StatusCompleted: {},
	}
	allowed := transitions[n.Status]
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the negotiation can take no further transitions.
func (n *Negotiation) IsTerminal() bool {
	switch n.Status {
	case StatusRejected, StatusExpired, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// IsExpired reports whether the soft deadline has passed. Expiry is
// server-evaluated: nothing fires at the deadline, the next mutating call or
// sweeper tick discovers it.
func (n *Negotiation) IsExpired(now time.Time) bool {
	return now.After(n.ExpiresAt)
}

// Other returns the opposite party.
func (p Party) Other() Party {
	if p == PartyBuyer {
		return PartyDealer
	}
	return PartyBuyer
}

// ValidateMessage checks the optional offer message against the length cap.
func ValidateMessage(message string) error {
	if len([]rune(message)) > MaxMessageLength {
		return ErrMessageTooLong
	}
	return nil
}

// ValidateStatus rejects unknown status values.
func ValidateStatus(status Status) error {
	switch status {
	case StatusActive, StatusAccepted, StatusRejected, StatusExpired, StatusCancelled, StatusCompleted:
		return nil
	default:
		return errors.New("invalid negotiation status")
	}
}

// ValidateParty rejects unknown party values.
func ValidateParty(party Party) error {
	switch party {
	case PartyBuyer, PartyDealer:
		return nil
	default:
		return errors.New("invalid party")
	}
}
