package negotiation

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_repository.go -package=mocks . Repository,UnitOfWork

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UnitOfWork runs fn inside a single database transaction. Repository calls
// made with the ctx passed to fn join that transaction.
type UnitOfWork interface {
	Within(ctx context.Context, fn func(ctx context.Context) error) error
}

// Filter narrows negotiation listings.
type Filter struct {
	Status *Status
	Role   *Party
}

// Repository defines persistence for negotiations and their offers.
type Repository interface {
	Create(ctx context.Context, n *Negotiation) error
	GetByID(ctx context.Context, negotiationID uuid.UUID) (*Negotiation, error)
	// GetByIDForUpdate reads the negotiation under an exclusive row lock.
	// Must be called inside a UnitOfWork transaction.
	GetByIDForUpdate(ctx context.Context, negotiationID uuid.UUID) (*Negotiation, error)
	// UpdateStatus moves the negotiation from one status to another and
	// reports whether a row matched, so lost races surface instead of
	// clobbering a concurrent resolution.
	UpdateStatus(ctx context.Context, negotiationID uuid.UUID, from, to Status) (bool, error)
	// RenewExpiry resets the soft deadline after a counter-offer.
	RenewExpiry(ctx context.Context, negotiationID uuid.UUID, expiresAt time.Time) error
	// AcceptCAS performs the optimistic accept: the update applies only if
	// the row still carries the given version and ACTIVE status, and
	// increments the version exactly once. Reports whether a row matched.
	AcceptCAS(ctx context.Context, negotiationID uuid.UUID, version int, acceptedPrice decimal.Decimal) (bool, error)
	HasActive(ctx context.Context, vehicleID, buyerID uuid.UUID) (bool, error)
	ListForUser(ctx context.Context, userID uuid.UUID, filter Filter, limit, offset int) ([]*Negotiation, error)
	// CancelOtherActive cancels every other ACTIVE negotiation on the
	// vehicle and returns their ids.
	CancelOtherActive(ctx context.Context, vehicleID, exceptNegotiationID uuid.UUID) ([]uuid.UUID, error)
	// ExpireDue bulk-expires ACTIVE negotiations past their deadline along
	// with their pending offers, returning the expired negotiation ids.
	ExpireDue(ctx context.Context, now time.Time) ([]uuid.UUID, error)
	// ListExpiringBetween returns ACTIVE negotiations whose deadline falls
	// in (from, until], for expiry warnings.
	ListExpiringBetween(ctx context.Context, from, until time.Time) ([]*Negotiation, error)

	CreateOffer(ctx context.Context, o *Offer) error
	// PendingOffer returns the unique PENDING offer, or nil. More than one
	// is reported as ErrPendingOfferConflict.
	PendingOffer(ctx context.Context, negotiationID uuid.UUID) (*Offer, error)
	// CloseOffer resolves an offer; resolved offers never change again.
	// Reports whether a PENDING row matched, so callers not holding the
	// negotiation lock can detect that the offer was resolved underneath
	// them.
	CloseOffer(ctx context.Context, offerID uuid.UUID, status OfferStatus, respondedAt time.Time) (bool, error)
	// ExpirePendingOffers expires the pending offers of the given
	// negotiations, stamping respondedAt.
	ExpirePendingOffers(ctx context.Context, negotiationIDs []uuid.UUID, respondedAt time.Time) (int64, error)
	ListOffers(ctx context.Context, negotiationID uuid.UUID) ([]*Offer, error)
}
