package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	negotiation "github.com/carnegotiate/carnegotiate/internal/domain/negotiation"
)

// MockNotifier is a mock implementation of negotiation.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NewOffer(ctx context.Context, n *negotiation.Negotiation, o *negotiation.Offer, recipientID uuid.UUID) error {
	args := m.Called(ctx, n, o, recipientID)
	return args.Error(0)
}

func (m *MockNotifier) CounterOffer(ctx context.Context, n *negotiation.Negotiation, o *negotiation.Offer, recipientID uuid.UUID) error {
	args := m.Called(ctx, n, o, recipientID)
	return args.Error(0)
}

func (m *MockNotifier) OfferAccepted(ctx context.Context, n *negotiation.Negotiation, price decimal.Decimal, buyerID, dealerID uuid.UUID) error {
	args := m.Called(ctx, n, price, buyerID, dealerID)
	return args.Error(0)
}

func (m *MockNotifier) OfferRejected(ctx context.Context, n *negotiation.Negotiation, buyerID uuid.UUID, reason string) error {
	args := m.Called(ctx, n, buyerID, reason)
	return args.Error(0)
}

func (m *MockNotifier) NegotiationCancelled(ctx context.Context, n *negotiation.Negotiation, recipientID uuid.UUID) error {
	args := m.Called(ctx, n, recipientID)
	return args.Error(0)
}

func (m *MockNotifier) NegotiationExpiring(ctx context.Context, n *negotiation.Negotiation, buyerID, dealerID uuid.UUID) error {
	args := m.Called(ctx, n, buyerID, dealerID)
	return args.Error(0)
}

func (m *MockNotifier) NegotiationExpired(ctx context.Context, n *negotiation.Negotiation, buyerID, dealerID uuid.UUID) error {
	args := m.Called(ctx, n, buyerID, dealerID)
	return args.Error(0)
}
