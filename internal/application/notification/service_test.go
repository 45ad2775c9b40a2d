package notification

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	negotiation "github.com/carnegotiate/carnegotiate/internal/domain/negotiation"
	domain "github.com/carnegotiate/carnegotiate/internal/domain/notification"
	"github.com/carnegotiate/carnegotiate/internal/domain/notification/mocks"
)

func testNegotiation() *negotiation.Negotiation {
	return &negotiation.Negotiation{
		NegotiationID: uuid.New(),
		VehicleID:     uuid.New(),
		BuyerID:       uuid.New(),
		Status:        negotiation.StatusActive,
		ExpiresAt:     time.Now().UTC().Add(12 * time.Hour),
	}
}

func TestService_OfferAccepted_NotifiesBothParties(t *testing.T) {
	repo := &mocks.MockRepository{}
	svc := NewService(repo, zerolog.Nop())
	n := testNegotiation()
	dealerID := uuid.New()

	var kinds []domain.Kind
	var recipients []uuid.UUID
	repo.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		row := args.Get(1).(*domain.Notification)
		kinds = append(kinds, row.Kind)
		recipients = append(recipients, row.RecipientUserID)
	}).Return(nil)

	err := svc.OfferAccepted(context.Background(), n, decimal.NewFromInt(25000), n.BuyerID, dealerID)

	require.NoError(t, err)
	require.Len(t, kinds, 2)
	assert.Equal(t, domain.KindOfferAccepted, kinds[0])
	assert.Equal(t, []uuid.UUID{n.BuyerID, dealerID}, recipients)
}

func TestService_NegotiationExpiring_Dedupes(t *testing.T) {
	repo := &mocks.MockRepository{}
	svc := NewService(repo, zerolog.Nop())
	n := testNegotiation()
	dealerID := uuid.New()
	key := "expiry-warning:" + n.NegotiationID.String()

	repo.On("FindByDedupeKey", mock.Anything, key, mock.Anything).Return(nil, nil).Once()
	repo.On("Create", mock.Anything, mock.Anything).Return(nil).Twice()

	require.NoError(t, svc.NegotiationExpiring(context.Background(), n, n.BuyerID, dealerID))
	repo.AssertExpectations(t)

	// A warning already exists inside the window: nothing new is queued.
	existing := domain.New(n.NegotiationID, n.BuyerID, domain.KindNegotiationExpiring, "", "", nil)
	repo.On("FindByDedupeKey", mock.Anything, key, mock.Anything).Return(existing, nil).Once()

	require.NoError(t, svc.NegotiationExpiring(context.Background(), n, n.BuyerID, dealerID))
	repo.AssertNumberOfCalls(t, "Create", 2)
}

func TestService_OfferRejected_CarriesReason(t *testing.T) {
	repo := &mocks.MockRepository{}
	svc := NewService(repo, zerolog.Nop())
	n := testNegotiation()

	var row *domain.Notification
	repo.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		row = args.Get(1).(*domain.Notification)
	}).Return(nil)

	require.NoError(t, svc.OfferRejected(context.Background(), n, n.BuyerID, "already sold locally"))
	require.NotNil(t, row)
	assert.Equal(t, domain.KindOfferRejected, row.Kind)
	assert.Contains(t, row.Body, "already sold locally")
	assert.Contains(t, string(row.Payload), "already sold locally")

	// Without a reason the body stays generic.
	require.NoError(t, svc.OfferRejected(context.Background(), n, n.BuyerID, ""))
	assert.Equal(t, "The dealer rejected your offer", row.Body)
}

func TestService_NewOffer_CarriesOfferPayload(t *testing.T) {
	repo := &mocks.MockRepository{}
	svc := NewService(repo, zerolog.Nop())
	n := testNegotiation()
	dealerID := uuid.New()
	o := &negotiation.Offer{
		OfferID:       uuid.New(),
		NegotiationID: n.NegotiationID,
		Amount:        decimal.NewFromInt(20000),
		OfferedBy:     negotiation.PartyBuyer,
		Status:        negotiation.OfferStatusPending,
	}

	var row *domain.Notification
	repo.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		row = args.Get(1).(*domain.Notification)
	}).Return(nil)

	require.NoError(t, svc.NewOffer(context.Background(), n, o, dealerID))
	require.NotNil(t, row)
	assert.Equal(t, domain.KindNewOffer, row.Kind)
	assert.Equal(t, dealerID, row.RecipientUserID)
	assert.Equal(t, domain.StatusPending, row.Status)
	assert.Contains(t, string(row.Payload), o.OfferID.String())
}
