package negotiation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	notifierMocks "github.com/carnegotiate/carnegotiate/internal/application/negotiation/mocks"
	domain "github.com/carnegotiate/carnegotiate/internal/domain/negotiation"
	negMocks "github.com/carnegotiate/carnegotiate/internal/domain/negotiation/mocks"
	"github.com/carnegotiate/carnegotiate/internal/domain/vehicle"
	vehicleMocks "github.com/carnegotiate/carnegotiate/internal/domain/vehicle/mocks"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc      *Service
	uow      *negMocks.MockUnitOfWork
	repo     *negMocks.MockRepository
	catalog  *vehicleMocks.MockCatalog
	notifier *notifierMocks.MockNotifier

	dealerID uuid.UUID
	buyerID  uuid.UUID
	v        *vehicle.Vehicle
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	uow := &negMocks.MockUnitOfWork{}
	repo := &negMocks.MockRepository{}
	catalog := &vehicleMocks.MockCatalog{}
	notifier := &notifierMocks.MockNotifier{}
	floor, err := NewOfferFloor(DefaultFloorExpr)
	require.NoError(t, err)

	svc := NewService(uow, repo, catalog, notifier, floor, 72*time.Hour, zerolog.Nop())
	svc.now = func() time.Time { return testNow }

	dealerID := uuid.New()
	return &fixture{
		svc:      svc,
		uow:      uow,
		repo:     repo,
		catalog:  catalog,
		notifier: notifier,
		dealerID: dealerID,
		buyerID:  uuid.New(),
		v: &vehicle.Vehicle{
			VehicleID:    uuid.New(),
			DealerUserID: dealerID,
			AskingPrice:  decimal.NewFromInt(30000),
			Status:       vehicle.StatusActive,
		},
	}
}

func (f *fixture) activeNegotiation() *domain.Negotiation {
	return &domain.Negotiation{
		NegotiationID: uuid.New(),
		VehicleID:     f.v.VehicleID,
		BuyerID:       f.buyerID,
		Status:        domain.StatusActive,
		Version:       1,
		ExpiresAt:     testNow.Add(24 * time.Hour),
		CreatedAt:     testNow.Add(-time.Hour),
	}
}

func pendingFrom(n *domain.Negotiation, by domain.Party, amount int64) *domain.Offer {
	return &domain.Offer{
		OfferID:       uuid.New(),
		NegotiationID: n.NegotiationID,
		Amount:        decimal.NewFromInt(amount),
		OfferedBy:     by,
		Status:        domain.OfferStatusPending,
		CreatedAt:     testNow.Add(-time.Minute),
	}
}

func TestService_Start(t *testing.T) {
	t.Run("opens negotiation with first offer", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		f.uow.On("Within", mock.Anything, mock.Anything).Return(nil)
		f.catalog.On("GetVehicle", mock.Anything, f.v.VehicleID).Return(f.v, nil)
		f.repo.On("HasActive", mock.Anything, f.v.VehicleID, f.buyerID).Return(false, nil)
		f.repo.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.repo.On("CreateOffer", mock.Anything, mock.Anything).Return(nil)
		f.notifier.On("NewOffer", mock.Anything, mock.Anything, mock.Anything, f.dealerID).Return(nil)

		n, err := f.svc.Start(ctx, f.v.VehicleID, f.buyerID, decimal.NewFromInt(20000), "interested")

		require.NoError(t, err)
		require.NotNil(t, n)
		assert.Equal(t, domain.StatusActive, n.Status)
		assert.Equal(t, 1, n.Version)
		assert.Equal(t, testNow.Add(72*time.Hour), n.ExpiresAt)
		require.Len(t, n.Offers, 1)
		assert.Equal(t, domain.PartyBuyer, n.Offers[0].OfferedBy)
		assert.Equal(t, domain.OfferStatusPending, n.Offers[0].Status)
		f.repo.AssertExpectations(t)
		f.notifier.AssertExpectations(t)
	})

	t.Run("rejects offer below floor", func(t *testing.T) {
		f := newFixture(t)

		f.uow.On("Within", mock.Anything, mock.Anything).Return(nil)
		f.catalog.On("GetVehicle", mock.Anything, f.v.VehicleID).Return(f.v, nil)

		_, err := f.svc.Start(context.Background(), f.v.VehicleID, f.buyerID, decimal.RequireFromString("14999.99"), "")

		var invalidAmount *domain.InvalidOfferAmountError
		require.ErrorAs(t, err, &invalidAmount)
		assert.Equal(t, "15000.00", invalidAmount.MinAllowed.StringFixed(2))
		f.repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("rejects duplicate active negotiation", func(t *testing.T) {
		f := newFixture(t)

		f.uow.On("Within", mock.Anything, mock.Anything).Return(nil)
		f.catalog.On("GetVehicle", mock.Anything, f.v.VehicleID).Return(f.v, nil)
		f.repo.On("HasActive", mock.Anything, f.v.VehicleID, f.buyerID).Return(true, nil)

		_, err := f.svc.Start(context.Background(), f.v.VehicleID, f.buyerID, decimal.NewFromInt(20000), "")

		var exists *domain.ActiveNegotiationExistsError
		require.ErrorAs(t, err, &exists)
	})

	t.Run("lost start race surfaces as duplicate", func(t *testing.T) {
		f := newFixture(t)

		// Both racers pass HasActive; the loser hits the partial unique
		// index on insert.
		f.uow.On("Within", mock.Anything, mock.Anything).Return(nil)
		f.catalog.On("GetVehicle", mock.Anything, f.v.VehicleID).Return(f.v, nil)
		f.repo.On("HasActive", mock.Anything, f.v.VehicleID, f.buyerID).Return(false, nil)
		f.repo.On("Create", mock.Anything, mock.Anything).Return(&pgconn.PgError{Code: "23505"})

		_, err := f.svc.Start(context.Background(), f.v.VehicleID, f.buyerID, decimal.NewFromInt(20000), "")

		var exists *domain.ActiveNegotiationExistsError
		require.ErrorAs(t, err, &exists)
		assert.Equal(t, f.v.VehicleID, exists.VehicleID)
	})

	t.Run("rejects dealer negotiating own vehicle", func(t *testing.T) {
		f := newFixture(t)

		f.uow.On("Within", mock.Anything, mock.Anything).Return(nil)
		f.catalog.On("GetVehicle", mock.Anything, f.v.VehicleID).Return(f.v, nil)

		_, err := f.svc.Start(context.Background(), f.v.VehicleID, f.dealerID, decimal.NewFromInt(20000), "")

		var notAuthorized *domain.NotAuthorizedForActionError
		require.ErrorAs(t, err, &notAuthorized)
	})

	t.Run("rejects unavailable vehicle", func(t *testing.T) {
		f := newFixture(t)
		f.v.Status = vehicle.StatusPendingSale

		f.uow.On("Within", mock.Anything, mock.Anything).Return(nil)
		f.catalog.On("GetVehicle", mock.Anything, f.v.VehicleID).Return(f.v, nil)

		_, err := f.svc.Start(context.Background(), f.v.VehicleID, f.buyerID, decimal.NewFromInt(20000), "")

		var notAvailable *domain.VehicleNotAvailableError
		require.ErrorAs(t, err, &notAvailable)
		assert.Equal(t, string(vehicle.StatusPendingSale), notAvailable.VehicleStatus)
	})

	t.Run("rejects overlong message", func(t *testing.T) {
		f := newFixture(t)
		long := make([]rune, domain.MaxMessageLength+1)
		for i := range long {
			long[i] = 'x'
		}

		_, err := f.svc.Start(context.Background(), f.v.VehicleID, f.buyerID, decimal.NewFromInt(20000), string(long))

		require.ErrorIs(t, err, domain.ErrMessageTooLong)
	})
}

func TestService_SubmitCounterOffer(t *testing.T) {
	t.Run("dealer counters buyer offer", func(t *testing.T) {
		f := newFixture(t)
		n := f.activeNegotiation()
		pending := pendingFrom(n, domain.PartyBuyer, 20000)

		f.uow.On("Within", mock.Anything, mock.Anything).Return(nil)
		f.repo.On("GetByIDForUpdate", mock.Anything, n.NegotiationID).Return(n, nil)
		f.catalog.On("GetVehicle", mock.Anything, f.v.VehicleID).Return(f.v, nil)
		f.repo.On("PendingOffer", mock.Anything, n.NegotiationID).Return(pending, nil)
		f.repo.On("CloseOffer", mock.Anything, pending.OfferID, domain.OfferStatusCountered, testNow).Return(true, nil)
		f.repo.On("CreateOffer", mock.Anything, mock.Anything).Return(nil)
		f.repo.On("RenewExpiry", mock.Anything, n.NegotiationID, testNow.Add(72*time.Hour)).Return(nil)
		f.notifier.On("CounterOffer", mock.Anything, n, mock.Anything, f.buyerID).Return(nil)

		o, err := f.svc.SubmitCounterOffer(context.Background(), n.NegotiationID, f.dealerID, decimal.NewFromInt(25000), "best I can do")

		require.NoError(t, err)
		assert.Equal(t, domain.PartyDealer, o.OfferedBy)
		assert.Equal(t, domain.OfferStatusPending, o.Status)
		f.repo.AssertExpectations(t)
		f.notifier.AssertExpectations(t)
	})

	t.Run("rejects actor offering out of turn", func(t *testing.T) {
		f := newFixture(t)
		n := f.activeNegotiation()
		pending := pendingFrom(n, domain.PartyBuyer, 20000)

		f.uow.On("Within", mock.Anything, mock.Anything).Return(nil)
		f.repo.On("GetByIDForUpdate", mock.Anything, n.NegotiationID).Return(n, nil)
		f.catalog.On("GetVehicle", mock.Anything, f.v.VehicleID).Return(f.v, nil)
		f.repo.On("PendingOffer", mock.Anything, n.NegotiationID).Return(pending, nil)

		_, err := f.svc.SubmitCounterOffer(context.Background(), n.NegotiationID, f.buyerID, decimal.NewFromInt(21000), "")

		var notYourTurn *domain.NotYourTurnError
		require.ErrorAs(t, err, &notYourTurn)
		assert.Equal(t, domain.PartyDealer, notYourTurn.WaitingFor)
		f.repo.AssertNotCalled(t, "CreateOffer", mock.Anything, mock.Anything)
	})

	t.Run("rejects stranger", func(t *testing.T) {
		f := newFixture(t)
		n := f.activeNegotiation()
		pending := pendingFrom(n, domain.PartyBuyer, 20000)

		f.uow.On("Within", mock.Anything, mock.Anything).Return(nil)
		f.repo.On("GetByIDForUpdate", mock.Anything, n.NegotiationID).Return(n, nil)
		f.catalog.On("GetVehicle", mock.Anything, f.v.VehicleID).Return(f.v, nil)
		f.repo.On("PendingOffer", mock.Anything, n.NegotiationID).Return(pending, nil)

		_, err := f.svc.SubmitCounterOffer(context.Background(), n.NegotiationID, uuid.New(), decimal.NewFromInt(21000), "")

		var notParticipant *domain.NotParticipantError
		require.ErrorAs(t, err, &notParticipant)
	})

	t.Run("expires overdue negotiation before the turn check", func(t *testing.T) {
		f := newFixture(t)
		n := f.activeNegotiation()
		n.ExpiresAt = testNow.Add(-time.Minute)
		pending := pendingFrom(n, domain.PartyBuyer, 20000)

		f.uow.On("Within", mock.Anything, mock.Anything).Return(nil)
		f.repo.On("GetByIDForUpdate", mock.Anything, n.NegotiationID).Return(n, nil)
		f.catalog.On("GetVehicle", mock.Anything, f.v.VehicleID).Return(f.v, nil)
		f.repo.On("PendingOffer", mock.Anything, n.NegotiationID).Return(pending, nil)
		f.repo.On("UpdateStatus", mock.Anything, n.NegotiationID, domain.StatusActive, domain.StatusExpired).Return(true, nil)
		f.repo.On("CloseOffer", mock.Anything, pending.OfferID, domain.OfferStatusExpired, testNow).Return(true, nil)
		f.notifier.On("NegotiationExpired", mock.Anything, n, f.buyerID, f.dealerID).Return(nil)

		// The buyer is out of turn here too; expiry must win.
		_, err := f.svc.SubmitCounterOffer(context.Background(), n.NegotiationID, f.buyerID, decimal.NewFromInt(21000), "")

		var expired *domain.NegotiationExpiredError
		require.ErrorAs(t, err, &expired)
		f.repo.AssertExpectations(t)
		f.notifier.AssertExpectations(t)
	})

	t.Run("rejects resolved negotiation", func(t *testing.T) {
		f := newFixture(t)
		n := f.activeNegotiation()
		n.Status = domain.StatusRejected

		f.uow.On("Within", mock.Anything, mock.Anything).Return(nil)
		f.repo.On("GetByIDForUpdate", mock.Anything, n.NegotiationID).Return(n, nil)
		f.catalog.On("GetVehicle", mock.Anything, f.v.VehicleID).Return(f.v, nil)
		f.repo.On("PendingOffer", mock.Anything, n.NegotiationID).Return(nil, nil)

		_, err := f.svc.SubmitCounterOffer(context.Background(), n.NegotiationID, f.dealerID, decimal.NewFromInt(25000), "")

		var notActive *domain.NegotiationNotActiveError
		require.ErrorAs(t, err, &notActive)
		assert.Equal(t, domain.StatusRejected, notActive.Status)
	})
}

func TestService_Accept(t *testing.T) {
	t.Run("buyer accepts dealer counter", func(t *testing.T) {
		f := newFixture(t)
		n := f.activeNegotiation()
		pending := pendingFrom(n, domain.PartyDealer, 25000)
		sibling := f.activeNegotiation()
		sibling.BuyerID = uuid.New()

		f.uow.On("Within", mock.Anything, mock.Anything).Return(nil)
		f.repo.On("GetByID", mock.Anything, n.NegotiationID).Return(n, nil)
		f.catalog.On("GetVehicle", mock.Anything, f.v.VehicleID).Return(f.v, nil)
		f.repo.On("PendingOffer", mock.Anything, n.NegotiationID).Return(pending, nil)
		f.repo.On("AcceptCAS", mock.Anything, n.NegotiationID, 1, pending.Amount).Return(true, nil)
		f.repo.On("CloseOffer", mock.Anything, pending.OfferID, domain.OfferStatusAccepted, testNow).Return(true, nil)
		f.repo.On("CancelOtherActive", mock.Anything, f.v.VehicleID, n.NegotiationID).Return([]uuid.UUID{sibling.NegotiationID}, nil)
		f.repo.On("ExpirePendingOffers", mock.Anything, []uuid.UUID{sibling.NegotiationID}, testNow).Return(int64(1), nil)
		f.catalog.On("SetVehicleStatus", mock.Anything, f.v.VehicleID, vehicle.StatusPendingSale).Return(nil)
		f.notifier.On("OfferAccepted", mock.Anything, n, pending.Amount, f.buyerID, f.dealerID).Return(nil)
		f.repo.On("GetByID", mock.Anything, sibling.NegotiationID).Return(sibling, nil)
		f.notifier.On("NegotiationCancelled", mock.Anything, sibling, sibling.BuyerID).Return(nil)

		result, err := f.svc.Accept(context.Background(), n.NegotiationID, f.buyerID)

		require.NoError(t, err)
		assert.Equal(t, domain.StatusAccepted, result.Status)
		require.NotNil(t, result.AcceptedPrice)
		assert.True(t, result.AcceptedPrice.Equal(pending.Amount))
		assert.Equal(t, 2, result.Version)
		f.repo.AssertExpectations(t)
		f.catalog.AssertExpectations(t)
		f.notifier.AssertExpectations(t)
	})

	t.Run("lost version race returns concurrency error", func(t *testing.T) {
		f := newFixture(t)
		n := f.activeNegotiation()
		pending := pendingFrom(n, domain.PartyDealer, 25000)

		f.uow.On("Within", mock.Anything, mock.Anything).Return(nil)
		f.repo.On("GetByID", mock.Anything, n.NegotiationID).Return(n, nil)
		f.catalog.On("GetVehicle", mock.Anything, f.v.VehicleID).Return(f.v, nil)
		f.repo.On("PendingOffer", mock.Anything, n.NegotiationID).Return(pending, nil)
		f.repo.On("AcceptCAS", mock.Anything, n.NegotiationID, 1, pending.Amount).Return(false, nil)

		_, err := f.svc.Accept(context.Background(), n.NegotiationID, f.buyerID)

		var concurrency *domain.ConcurrencyError
		require.ErrorAs(t, err, &concurrency)
		f.repo.AssertNotCalled(t, "CloseOffer", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("counter resolving the offer mid-accept returns concurrency error", func(t *testing.T) {
		f := newFixture(t)
		n := f.activeNegotiation()
		pending := pendingFrom(n, domain.PartyDealer, 25000)

		// The CAS passes but the offer was countered in between, so the
		// close finds no PENDING row.
		f.uow.On("Within", mock.Anything, mock.Anything).Return(nil)
		f.repo.On("GetByID", mock.Anything, n.NegotiationID).Return(n, nil)
		f.catalog.On("GetVehicle", mock.Anything, f.v.VehicleID).Return(f.v, nil)
		f.repo.On("PendingOffer", mock.Anything, n.NegotiationID).Return(pending, nil)
		f.repo.On("AcceptCAS", mock.Anything, n.NegotiationID, 1, pending.Amount).Return(true, nil)
		f.repo.On("CloseOffer", mock.Anything, pending.OfferID, domain.OfferStatusAccepted, testNow).Return(false, nil)

		_, err := f.svc.Accept(context.Background(), n.NegotiationID, f.buyerID)

		var concurrency *domain.ConcurrencyError
		require.ErrorAs(t, err, &concurrency)
		f.repo.AssertNotCalled(t, "CancelOtherActive", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("cannot accept own offer", func(t *testing.T) {
		f := newFixture(t)
		n := f.activeNegotiation()
		pending := pendingFrom(n, domain.PartyBuyer, 20000)

		f.uow.On("Within", mock.Anything, mock.Anything).Return(nil)
		f.repo.On("GetByID", mock.Anything, n.NegotiationID).Return(n, nil)
		f.catalog.On("GetVehicle", mock.Anything, f.v.VehicleID).Return(f.v, nil)
		f.repo.On("PendingOffer", mock.Anything, n.NegotiationID).Return(pending, nil)

		_, err := f.svc.Accept(context.Background(), n.NegotiationID, f.buyerID)

		var ownOffer *domain.CannotAcceptOwnOfferError
		require.ErrorAs(t, err, &ownOffer)
	})
}

func TestService_RejectAndCancel(t *testing.T) {
	t.Run("only dealer may reject", func(t *testing.T) {
		f := newFixture(t)
		n := f.activeNegotiation()
		pending := pendingFrom(n, domain.PartyBuyer, 20000)

		f.uow.On("Within", mock.Anything, mock.Anything).Return(nil)
		f.repo.On("GetByIDForUpdate", mock.Anything, n.NegotiationID).Return(n, nil)
		f.catalog.On("GetVehicle", mock.Anything, f.v.VehicleID).Return(f.v, nil)
		f.repo.On("PendingOffer", mock.Anything, n.NegotiationID).Return(pending, nil)

		_, err := f.svc.Reject(context.Background(), n.NegotiationID, f.buyerID, "")

		var notAuthorized *domain.NotAuthorizedForActionError
		require.ErrorAs(t, err, &notAuthorized)
		assert.Equal(t, domain.PartyDealer, notAuthorized.RequiredParty)
	})

	t.Run("dealer rejects pending buyer offer with reason", func(t *testing.T) {
		f := newFixture(t)
		n := f.activeNegotiation()
		pending := pendingFrom(n, domain.PartyBuyer, 20000)

		f.uow.On("Within", mock.Anything, mock.Anything).Return(nil)
		f.repo.On("GetByIDForUpdate", mock.Anything, n.NegotiationID).Return(n, nil)
		f.catalog.On("GetVehicle", mock.Anything, f.v.VehicleID).Return(f.v, nil)
		f.repo.On("PendingOffer", mock.Anything, n.NegotiationID).Return(pending, nil)
		f.repo.On("UpdateStatus", mock.Anything, n.NegotiationID, domain.StatusActive, domain.StatusRejected).Return(true, nil)
		f.repo.On("CloseOffer", mock.Anything, pending.OfferID, domain.OfferStatusRejected, testNow).Return(true, nil)
		f.notifier.On("OfferRejected", mock.Anything, n, f.buyerID, "too far below asking").Return(nil)

		result, err := f.svc.Reject(context.Background(), n.NegotiationID, f.dealerID, "too far below asking")

		require.NoError(t, err)
		assert.Equal(t, domain.StatusRejected, result.Status)
		f.repo.AssertExpectations(t)
		f.notifier.AssertExpectations(t)
	})

	t.Run("dealer rejects while own counter is pending", func(t *testing.T) {
		f := newFixture(t)
		n := f.activeNegotiation()
		pending := pendingFrom(n, domain.PartyDealer, 25000)

		f.uow.On("Within", mock.Anything, mock.Anything).Return(nil)
		f.repo.On("GetByIDForUpdate", mock.Anything, n.NegotiationID).Return(n, nil)
		f.catalog.On("GetVehicle", mock.Anything, f.v.VehicleID).Return(f.v, nil)
		f.repo.On("PendingOffer", mock.Anything, n.NegotiationID).Return(pending, nil)
		f.repo.On("UpdateStatus", mock.Anything, n.NegotiationID, domain.StatusActive, domain.StatusRejected).Return(true, nil)
		f.repo.On("CloseOffer", mock.Anything, pending.OfferID, domain.OfferStatusRejected, testNow).Return(true, nil)
		f.notifier.On("OfferRejected", mock.Anything, n, f.buyerID, "").Return(nil)

		// Walking away is not turn-gated: the dealer may retract their own
		// counter by rejecting the whole negotiation.
		result, err := f.svc.Reject(context.Background(), n.NegotiationID, f.dealerID, "")

		require.NoError(t, err)
		assert.Equal(t, domain.StatusRejected, result.Status)
		f.repo.AssertExpectations(t)
	})

	t.Run("rejects overlong reason", func(t *testing.T) {
		f := newFixture(t)
		n := f.activeNegotiation()
		long := make([]rune, domain.MaxMessageLength+1)
		for i := range long {
			long[i] = 'x'
		}

		_, err := f.svc.Reject(context.Background(), n.NegotiationID, f.dealerID, string(long))

		require.ErrorIs(t, err, domain.ErrMessageTooLong)
	})

	t.Run("only buyer may cancel", func(t *testing.T) {
		f := newFixture(t)
		n := f.activeNegotiation()
		pending := pendingFrom(n, domain.PartyBuyer, 20000)

		f.uow.On("Within", mock.Anything, mock.Anything).Return(nil)
		f.repo.On("GetByIDForUpdate", mock.Anything, n.NegotiationID).Return(n, nil)
		f.catalog.On("GetVehicle", mock.Anything, f.v.VehicleID).Return(f.v, nil)
		f.repo.On("PendingOffer", mock.Anything, n.NegotiationID).Return(pending, nil)

		_, err := f.svc.Cancel(context.Background(), n.NegotiationID, f.dealerID)

		var notAuthorized *domain.NotAuthorizedForActionError
		require.ErrorAs(t, err, &notAuthorized)
		assert.Equal(t, domain.PartyBuyer, notAuthorized.RequiredParty)
	})

	t.Run("buyer cancels while waiting on dealer", func(t *testing.T) {
		f := newFixture(t)
		n := f.activeNegotiation()
		pending := pendingFrom(n, domain.PartyBuyer, 20000)

		f.uow.On("Within", mock.Anything, mock.Anything).Return(nil)
		f.repo.On("GetByIDForUpdate", mock.Anything, n.NegotiationID).Return(n, nil)
		f.catalog.On("GetVehicle", mock.Anything, f.v.VehicleID).Return(f.v, nil)
		f.repo.On("PendingOffer", mock.Anything, n.NegotiationID).Return(pending, nil)
		f.repo.On("UpdateStatus", mock.Anything, n.NegotiationID, domain.StatusActive, domain.StatusCancelled).Return(true, nil)
		f.repo.On("CloseOffer", mock.Anything, pending.OfferID, domain.OfferStatusExpired, testNow).Return(true, nil)
		f.notifier.On("NegotiationCancelled", mock.Anything, n, f.dealerID).Return(nil)

		result, err := f.svc.Cancel(context.Background(), n.NegotiationID, f.buyerID)

		require.NoError(t, err)
		assert.Equal(t, domain.StatusCancelled, result.Status)
		f.repo.AssertExpectations(t)
	})
}

func TestService_ExpireAllDue(t *testing.T) {
	t.Run("expires and notifies each party", func(t *testing.T) {
		f := newFixture(t)
		n := f.activeNegotiation()
		n.ExpiresAt = testNow.Add(-time.Hour)

		f.uow.On("Within", mock.Anything, mock.Anything).Return(nil)
		f.repo.On("ExpireDue", mock.Anything, testNow).Return([]uuid.UUID{n.NegotiationID}, nil)
		f.repo.On("GetByID", mock.Anything, n.NegotiationID).Return(n, nil)
		f.catalog.On("GetVehicle", mock.Anything, f.v.VehicleID).Return(f.v, nil)
		f.notifier.On("NegotiationExpired", mock.Anything, n, f.buyerID, f.dealerID).Return(nil)

		count, err := f.svc.ExpireAllDue(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 1, count)
		f.notifier.AssertExpectations(t)
	})

	t.Run("second sweep finds nothing", func(t *testing.T) {
		f := newFixture(t)

		f.uow.On("Within", mock.Anything, mock.Anything).Return(nil)
		f.repo.On("ExpireDue", mock.Anything, testNow).Return([]uuid.UUID{}, nil)

		count, err := f.svc.ExpireAllDue(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 0, count)
		f.notifier.AssertNotCalled(t, "NegotiationExpired", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestService_AvailableActions(t *testing.T) {
	t.Run("dealer facing a buyer offer", func(t *testing.T) {
		f := newFixture(t)
		n := f.activeNegotiation()
		pending := pendingFrom(n, domain.PartyBuyer, 20000)

		f.repo.On("GetByID", mock.Anything, n.NegotiationID).Return(n, nil)
		f.catalog.On("GetVehicle", mock.Anything, f.v.VehicleID).Return(f.v, nil)
		f.repo.On("PendingOffer", mock.Anything, n.NegotiationID).Return(pending, nil)

		actions, err := f.svc.AvailableActions(context.Background(), n.NegotiationID, f.dealerID)

		require.NoError(t, err)
		assert.Equal(t, []domain.Action{domain.ActionAccept, domain.ActionCounterOffer, domain.ActionReject}, actions)
	})

	t.Run("stranger is refused", func(t *testing.T) {
		f := newFixture(t)
		n := f.activeNegotiation()

		f.repo.On("GetByID", mock.Anything, n.NegotiationID).Return(n, nil)
		f.catalog.On("GetVehicle", mock.Anything, f.v.VehicleID).Return(f.v, nil)

		_, err := f.svc.AvailableActions(context.Background(), n.NegotiationID, uuid.New())

		var notParticipant *domain.NotParticipantError
		require.ErrorAs(t, err, &notParticipant)
	})
}

func TestService_Get(t *testing.T) {
	t.Run("participant sees offer history", func(t *testing.T) {
		f := newFixture(t)
		n := f.activeNegotiation()
		offers := []*domain.Offer{pendingFrom(n, domain.PartyDealer, 25000)}

		f.repo.On("GetByID", mock.Anything, n.NegotiationID).Return(n, nil)
		f.catalog.On("GetVehicle", mock.Anything, f.v.VehicleID).Return(f.v, nil)
		f.repo.On("ListOffers", mock.Anything, n.NegotiationID).Return(offers, nil)

		result, err := f.svc.Get(context.Background(), n.NegotiationID, f.buyerID)

		require.NoError(t, err)
		assert.Len(t, result.Offers, 1)
	})

	t.Run("stranger is refused", func(t *testing.T) {
		f := newFixture(t)
		n := f.activeNegotiation()

		f.repo.On("GetByID", mock.Anything, n.NegotiationID).Return(n, nil)
		f.catalog.On("GetVehicle", mock.Anything, f.v.VehicleID).Return(f.v, nil)

		_, err := f.svc.Get(context.Background(), n.NegotiationID, uuid.New())

		var notParticipant *domain.NotParticipantError
		require.ErrorAs(t, err, &notParticipant)
	})
}
