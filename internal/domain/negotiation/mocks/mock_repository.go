package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/carnegotiate/carnegotiate/internal/domain/negotiation"
)

// MockRepository is a mock implementation of negotiation.Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, n *negotiation.Negotiation) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, negotiationID uuid.UUID) (*negotiation.Negotiation, error) {
	args := m.Called(ctx, negotiationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*negotiation.Negotiation), args.Error(1)
}

func (m *MockRepository) GetByIDForUpdate(ctx context.Context, negotiationID uuid.UUID) (*negotiation.Negotiation, error) {
	args := m.Called(ctx, negotiationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*negotiation.Negotiation), args.Error(1)
}

func (m *MockRepository) UpdateStatus(ctx context.Context, negotiationID uuid.UUID, from, to negotiation.Status) (bool, error) {
	args := m.Called(ctx, negotiationID, from, to)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) RenewExpiry(ctx context.Context, negotiationID uuid.UUID, expiresAt time.Time) error {
	args := m.Called(ctx, negotiationID, expiresAt)
	return args.Error(0)
}

func (m *MockRepository) AcceptCAS(ctx context.Context, negotiationID uuid.UUID, version int, acceptedPrice decimal.Decimal) (bool, error) {
	args := m.Called(ctx, negotiationID, version, acceptedPrice)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) HasActive(ctx context.Context, vehicleID, buyerID uuid.UUID) (bool, error) {
	args := m.Called(ctx, vehicleID, buyerID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) ListForUser(ctx context.Context, userID uuid.UUID, filter negotiation.Filter, limit, offset int) ([]*negotiation.Negotiation, error) {
	args := m.Called(ctx, userID, filter, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*negotiation.Negotiation), args.Error(1)
}

func (m *MockRepository) CancelOtherActive(ctx context.Context, vehicleID, exceptNegotiationID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, vehicleID, exceptNegotiationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockRepository) ExpireDue(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockRepository) ListExpiringBetween(ctx context.Context, from, until time.Time) ([]*negotiation.Negotiation, error) {
	args := m.Called(ctx, from, until)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*negotiation.Negotiation), args.Error(1)
}

func (m *MockRepository) CreateOffer(ctx context.Context, o *negotiation.Offer) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockRepository) PendingOffer(ctx context.Context, negotiationID uuid.UUID) (*negotiation.Offer, error) {
	args := m.Called(ctx, negotiationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*negotiation.Offer), args.Error(1)
}

func (m *MockRepository) CloseOffer(ctx context.Context, offerID uuid.UUID, status negotiation.OfferStatus, respondedAt time.Time) (bool, error) {
	args := m.Called(ctx, offerID, status, respondedAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) ExpirePendingOffers(ctx context.Context, negotiationIDs []uuid.UUID, respondedAt time.Time) (int64, error) {
	args := m.Called(ctx, negotiationIDs, respondedAt)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) ListOffers(ctx context.Context, negotiationID uuid.UUID) ([]*negotiation.Offer, error) {
	args := m.Called(ctx, negotiationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*negotiation.Offer), args.Error(1)
}

// MockUnitOfWork is a mock implementation of negotiation.UnitOfWork that
// simply runs the callback with the given context.
type MockUnitOfWork struct {
	mock.Mock
}

func (m *MockUnitOfWork) Within(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(ctx)
}
