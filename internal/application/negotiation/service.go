package negotiation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	domain "github.com/carnegotiate/carnegotiate/internal/domain/negotiation"
	"github.com/carnegotiate/carnegotiate/internal/domain/vehicle"
)

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_notifier.go -package=mocks . Notifier

// Notifier queues outbound notifications. Implementations write outbox rows
// inside the caller's transaction; actual delivery happens after commit.
type Notifier interface {
	NewOffer(ctx context.Context, n *domain.Negotiation, o *domain.Offer, recipientID uuid.UUID) error
	CounterOffer(ctx context.Context, n *domain.Negotiation, o *domain.Offer, recipientID uuid.UUID) error
	OfferAccepted(ctx context.Context, n *domain.Negotiation, price decimal.Decimal, buyerID, dealerID uuid.UUID) error
	OfferRejected(ctx context.Context, n *domain.Negotiation, buyerID uuid.UUID, reason string) error
	NegotiationCancelled(ctx context.Context, n *domain.Negotiation, recipientID uuid.UUID) error
	NegotiationExpiring(ctx context.Context, n *domain.Negotiation, buyerID, dealerID uuid.UUID) error
	NegotiationExpired(ctx context.Context, n *domain.Negotiation, buyerID, dealerID uuid.UUID) error
}

// Service handles price negotiations between buyers and dealers.
type Service struct {
	uow          domain.UnitOfWork
	repo         domain.Repository
	catalog      vehicle.Catalog
	notifier     Notifier
	floor        *OfferFloor
	expiryWindow time.Duration
	now          func() time.Time
	logger       zerolog.Logger
}

// NewService creates a negotiation service.
func NewService(
	uow domain.UnitOfWork,
	repo domain.Repository,
	catalog vehicle.Catalog,
	notifier Notifier,
	floor *OfferFloor,
	expiryWindow time.Duration,
	logger zerolog.Logger,
) *Service {
	return &Service{
		uow:          uow,
		repo:         repo,
		catalog:      catalog,
		notifier:     notifier,
		floor:        floor,
		expiryWindow: expiryWindow,
		now:          func() time.Time { return time.Now().UTC() },
		logger:       logger.With().Str("service", "negotiation").Logger(),
	}
}

// Start opens a negotiation on a vehicle with the buyer's first offer.
func (s *Service) Start(ctx context.Context, vehicleID, buyerID uuid.UUID, amount decimal.Decimal, message string) (*domain.Negotiation, error) {
	if err := domain.ValidateMessage(message); err != nil {
		return nil, err
	}
	var created *domain.Negotiation
	err := s.uow.Within(ctx, func(ctx context.Context) error {
		v, err := s.catalog.GetVehicle(ctx, vehicleID)
		if err != nil {
			return err
		}
		if buyerID == v.DealerUserID {
			return &domain.NotAuthorizedForActionError{Action: domain.ActionMakeOffer, RequiredParty: domain.PartyBuyer}
		}
		if !v.IsAvailable() {
			return &domain.VehicleNotAvailableError{VehicleID: vehicleID, VehicleStatus: string(v.Status)}
		}
		if err := s.floor.Validate(v, amount); err != nil {
			return err
		}
		exists, err := s.repo.HasActive(ctx, vehicleID, buyerID)
		if err != nil {
			return err
		}
		if exists {
			return &domain.ActiveNegotiationExistsError{VehicleID: vehicleID}
		}

		now := s.now()
		n := &domain.Negotiation{
			NegotiationID: uuid.New(),
			VehicleID:     vehicleID,
			BuyerID:       buyerID,
			Status:        domain.StatusActive,
			Version:       1,
			ExpiresAt:     now.Add(s.expiryWindow),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.repo.Create(ctx, n); err != nil {
			// The partial unique index on active negotiations backstops the
			// HasActive pre-check when two starts race.
			if isUniqueViolation(err) {
				return &domain.ActiveNegotiationExistsError{VehicleID: vehicleID}
			}
			return err
		}
		o := newOffer(n.NegotiationID, amount, domain.PartyBuyer, message, now)
		if err := s.repo.CreateOffer(ctx, o); err != nil {
			return err
		}
		n.Offers = []*domain.Offer{o}
		if err := s.notifier.NewOffer(ctx, n, o, v.DealerUserID); err != nil {
			s.logger.Warn().Err(err).Str("negotiation_id", n.NegotiationID.String()).Msg("failed to queue new offer notification")
		}
		created = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("negotiation_id", created.NegotiationID.String()).
		Str("vehicle_id", vehicleID.String()).
		Msg("negotiation started")
	return created, nil
}

// SubmitCounterOffer places a new offer from the actor, resolving the pending
// one as countered. The deadline restarts from now.
func (s *Service) SubmitCounterOffer(ctx context.Context, negotiationID, actorID uuid.UUID, amount decimal.Decimal, message string) (*domain.Offer, error) {
	if err := domain.ValidateMessage(message); err != nil {
		return nil, err
	}
	var offer *domain.Offer
	err := s.uow.Within(ctx, func(ctx context.Context) error {
		n, v, pending, err := s.load(ctx, negotiationID, true)
		if err != nil {
			return err
		}
		party, ok := domain.ResolveParty(n, v.DealerUserID, actorID)
		if !ok {
			return &domain.NotParticipantError{}
		}
		if !domain.IsTurnValid(pending, party) {
			return &domain.NotYourTurnError{WaitingFor: domain.WaitingOn(pending)}
		}
		if err := s.floor.Validate(v, amount); err != nil {
			return err
		}

		now := s.now()
		if pending != nil {
			if _, err := s.repo.CloseOffer(ctx, pending.OfferID, domain.OfferStatusCountered, now); err != nil {
				return err
			}
		}
		o := newOffer(n.NegotiationID, amount, party, message, now)
		if err := s.repo.CreateOffer(ctx, o); err != nil {
			return err
		}
		if err := s.repo.RenewExpiry(ctx, n.NegotiationID, now.Add(s.expiryWindow)); err != nil {
			return err
		}

		recipient := n.BuyerID
		if party == domain.PartyBuyer {
			recipient = v.DealerUserID
		}
		var notifyErr error
		if pending == nil {
			notifyErr = s.notifier.NewOffer(ctx, n, o, recipient)
		} else {
			notifyErr = s.notifier.CounterOffer(ctx, n, o, recipient)
		}
		if notifyErr != nil {
			s.logger.Warn().Err(notifyErr).Str("negotiation_id", n.NegotiationID.String()).Msg("failed to queue counter offer notification")
		}
		offer = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return offer, nil
}

// Accept accepts the other side's pending offer. The write is guarded by a
// version compare-and-set rather than a row lock: a lost race returns
// ConcurrencyError and nothing is retried on the caller's behalf. On success
// every other active negotiation on the vehicle is cancelled and the vehicle
// is moved to PENDING_SALE, all in the same transaction.
func (s *Service) Accept(ctx context.Context, negotiationID, actorID uuid.UUID) (*domain.Negotiation, error) {
	var accepted *domain.Negotiation
	err := s.uow.Within(ctx, func(ctx context.Context) error {
		n, v, pending, err := s.load(ctx, negotiationID, false)
		if err != nil {
			return err
		}
		party, ok := domain.ResolveParty(n, v.DealerUserID, actorID)
		if !ok {
			return &domain.NotParticipantError{}
		}
		if pending == nil {
			return &domain.NotYourTurnError{WaitingFor: domain.WaitingOn(nil)}
		}
		if pending.OfferedBy == party {
			return &domain.CannotAcceptOwnOfferError{}
		}

		matched, err := s.repo.AcceptCAS(ctx, n.NegotiationID, n.Version, pending.Amount)
		if err != nil {
			return err
		}
		if !matched {
			return &domain.ConcurrencyError{}
		}

		now := s.now()
		// The CAS does not see offers: a counter that committed between the
		// pending read and the CAS resolves the offer without bumping the
		// version. A miss here is that race.
		closed, err := s.repo.CloseOffer(ctx, pending.OfferID, domain.OfferStatusAccepted, now)
		if err != nil {
			return err
		}
		if !closed {
			return &domain.ConcurrencyError{}
		}
		siblings, err := s.repo.CancelOtherActive(ctx, n.VehicleID, n.NegotiationID)
		if err != nil {
			return err
		}
		if _, err := s.repo.ExpirePendingOffers(ctx, siblings, now); err != nil {
			return err
		}
		if err := s.catalog.SetVehicleStatus(ctx, n.VehicleID, vehicle.StatusPendingSale); err != nil {
			return err
		}

		n.Status = domain.StatusAccepted
		n.AcceptedPrice = &pending.Amount
		n.Version++
		if err := s.notifier.OfferAccepted(ctx, n, pending.Amount, n.BuyerID, v.DealerUserID); err != nil {
			s.logger.Warn().Err(err).Str("negotiation_id", n.NegotiationID.String()).Msg("failed to queue accept notification")
		}
		for _, sib := range siblings {
			sn, err := s.repo.GetByID(ctx, sib)
			if err != nil || sn == nil {
				s.logger.Warn().Err(err).Str("negotiation_id", sib.String()).Msg("failed to load cancelled sibling")
				continue
			}
			if err := s.notifier.NegotiationCancelled(ctx, sn, sn.BuyerID); err != nil {
				s.logger.Warn().Err(err).Str("negotiation_id", sib.String()).Msg("failed to queue sibling cancellation notification")
			}
		}
		accepted = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("negotiation_id", accepted.NegotiationID.String()).
		Str("accepted_price", accepted.AcceptedPrice.StringFixed(2)).
		Msg("offer accepted")
	return accepted, nil
}

// Reject resolves the negotiation as rejected. Only the dealer may reject,
// and they may do so regardless of whose offer is pending: walking away from
// the table is not a turn. The optional reason is relayed to the buyer.
func (s *Service) Reject(ctx context.Context, negotiationID, actorID uuid.UUID, reason string) (*domain.Negotiation, error) {
	if err := domain.ValidateMessage(reason); err != nil {
		return nil, err
	}
	var rejected *domain.Negotiation
	err := s.uow.Within(ctx, func(ctx context.Context) error {
		n, v, pending, err := s.load(ctx, negotiationID, true)
		if err != nil {
			return err
		}
		party, ok := domain.ResolveParty(n, v.DealerUserID, actorID)
		if !ok {
			return &domain.NotParticipantError{}
		}
		if party != domain.PartyDealer {
			return &domain.NotAuthorizedForActionError{Action: domain.ActionReject, RequiredParty: domain.PartyDealer}
		}

		matched, err := s.repo.UpdateStatus(ctx, n.NegotiationID, domain.StatusActive, domain.StatusRejected)
		if err != nil {
			return err
		}
		if !matched {
			return &domain.ConcurrencyError{}
		}
		if pending != nil {
			if _, err := s.repo.CloseOffer(ctx, pending.OfferID, domain.OfferStatusRejected, s.now()); err != nil {
				return err
			}
		}
		n.Status = domain.StatusRejected
		if err := s.notifier.OfferRejected(ctx, n, n.BuyerID, reason); err != nil {
			s.logger.Warn().Err(err).Str("negotiation_id", n.NegotiationID.String()).Msg("failed to queue reject notification")
		}
		rejected = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rejected, nil
}

// Cancel withdraws the negotiation. Only the buyer may cancel; the dealer's
// exit is rejecting.
func (s *Service) Cancel(ctx context.Context, negotiationID, actorID uuid.UUID) (*domain.Negotiation, error) {
	var cancelled *domain.Negotiation
	err := s.uow.Within(ctx, func(ctx context.Context) error {
		n, v, pending, err := s.load(ctx, negotiationID, true)
		if err != nil {
			return err
		}
		party, ok := domain.ResolveParty(n, v.DealerUserID, actorID)
		if !ok {
			return &domain.NotParticipantError{}
		}
		if party != domain.PartyBuyer {
			return &domain.NotAuthorizedForActionError{Action: domain.ActionCancel, RequiredParty: domain.PartyBuyer}
		}

		matched, err := s.repo.UpdateStatus(ctx, n.NegotiationID, domain.StatusActive, domain.StatusCancelled)
		if err != nil {
			return err
		}
		if !matched {
			return &domain.ConcurrencyError{}
		}
		if pending != nil {
			if _, err := s.repo.CloseOffer(ctx, pending.OfferID, domain.OfferStatusExpired, s.now()); err != nil {
				return err
			}
		}
		n.Status = domain.StatusCancelled
		if err := s.notifier.NegotiationCancelled(ctx, n, v.DealerUserID); err != nil {
			s.logger.Warn().Err(err).Str("negotiation_id", n.NegotiationID.String()).Msg("failed to queue cancel notification")
		}
		cancelled = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

// ExpireAllDue expires every active negotiation past its deadline, in bulk.
// Idempotent: a second sweep over the same set expires nothing.
func (s *Service) ExpireAllDue(ctx context.Context) (int, error) {
	now := s.now()
	var ids []uuid.UUID
	err := s.uow.Within(ctx, func(ctx context.Context) error {
		var err error
		ids, err = s.repo.ExpireDue(ctx, now)
		if err != nil {
			return err
		}
		for _, id := range ids {
			n, err := s.repo.GetByID(ctx, id)
			if err != nil || n == nil {
				s.logger.Warn().Err(err).Str("negotiation_id", id.String()).Msg("failed to load expired negotiation")
				continue
			}
			v, err := s.catalog.GetVehicle(ctx, n.VehicleID)
			if err != nil {
				s.logger.Warn().Err(err).Str("negotiation_id", id.String()).Msg("failed to load vehicle for expired negotiation")
				continue
			}
			if err := s.notifier.NegotiationExpired(ctx, n, n.BuyerID, v.DealerUserID); err != nil {
				s.logger.Warn().Err(err).Str("negotiation_id", id.String()).Msg("failed to queue expiry notification")
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(ids) > 0 {
		s.logger.Info().Int("count", len(ids)).Msg("expired negotiations")
	}
	return len(ids), nil
}

// SweepExpiryWarnings notifies both parties of negotiations approaching
// their deadline. Dedupe against repeat warnings happens in the notifier.
func (s *Service) SweepExpiryWarnings(ctx context.Context, leadTime time.Duration) (int, error) {
	now := s.now()
	list, err := s.repo.ListExpiringBetween(ctx, now, now.Add(leadTime))
	if err != nil {
		return 0, err
	}
	count := 0
	for _, n := range list {
		v, err := s.catalog.GetVehicle(ctx, n.VehicleID)
		if err != nil {
			s.logger.Warn().Err(err).Str("negotiation_id", n.NegotiationID.String()).Msg("failed to load vehicle for expiry warning")
			continue
		}
		if err := s.notifier.NegotiationExpiring(ctx, n, n.BuyerID, v.DealerUserID); err != nil {
			s.logger.Warn().Err(err).Str("negotiation_id", n.NegotiationID.String()).Msg("failed to queue expiry warning")
			continue
		}
		count++
	}
	return count, nil
}

// AvailableActions returns the moves the actor can make right now. A read:
// an overdue negotiation reports no actions but is not expired here.
func (s *Service) AvailableActions(ctx context.Context, negotiationID, actorID uuid.UUID) ([]domain.Action, error) {
	n, err := s.repo.GetByID(ctx, negotiationID)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, domain.ErrNotFound
	}
	v, err := s.catalog.GetVehicle(ctx, n.VehicleID)
	if err != nil {
		return nil, err
	}
	party, ok := domain.ResolveParty(n, v.DealerUserID, actorID)
	if !ok {
		return nil, &domain.NotParticipantError{}
	}
	pending, err := s.repo.PendingOffer(ctx, n.NegotiationID)
	if err != nil {
		return nil, err
	}
	return domain.AvailableActions(n, pending, party, s.now()), nil
}

// Get returns the negotiation with its full offer history, newest first.
// Participants only.
func (s *Service) Get(ctx context.Context, negotiationID, actorID uuid.UUID) (*domain.Negotiation, error) {
	n, err := s.repo.GetByID(ctx, negotiationID)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, domain.ErrNotFound
	}
	v, err := s.catalog.GetVehicle(ctx, n.VehicleID)
	if err != nil {
		return nil, err
	}
	if _, ok := domain.ResolveParty(n, v.DealerUserID, actorID); !ok {
		return nil, &domain.NotParticipantError{}
	}
	offers, err := s.repo.ListOffers(ctx, n.NegotiationID)
	if err != nil {
		return nil, err
	}
	n.Offers = offers
	return n, nil
}

// List returns the user's negotiations, optionally narrowed by status or by
// which side of the table they sit on.
func (s *Service) List(ctx context.Context, userID uuid.UUID, filter domain.Filter, limit, offset int) ([]*domain.Negotiation, error) {
	return s.repo.ListForUser(ctx, userID, filter, limit, offset)
}

// load reads the negotiation, its vehicle and its pending offer, expiring
// the negotiation on the spot when the deadline has passed. Expiry is checked
// before anything else, so a late actor hears "expired", not "not your turn".
func (s *Service) load(ctx context.Context, negotiationID uuid.UUID, lock bool) (*domain.Negotiation, *vehicle.Vehicle, *domain.Offer, error) {
	var (
		n   *domain.Negotiation
		err error
	)
	if lock {
		n, err = s.repo.GetByIDForUpdate(ctx, negotiationID)
	} else {
		n, err = s.repo.GetByID(ctx, negotiationID)
	}
	if err != nil {
		return nil, nil, nil, err
	}
	if n == nil {
		return nil, nil, nil, domain.ErrNotFound
	}
	v, err := s.catalog.GetVehicle(ctx, n.VehicleID)
	if err != nil {
		return nil, nil, nil, err
	}
	pending, err := s.repo.PendingOffer(ctx, n.NegotiationID)
	if err != nil {
		return nil, nil, nil, err
	}
	if n.Status == domain.StatusExpired {
		return nil, nil, nil, &domain.NegotiationExpiredError{}
	}
	if n.Status != domain.StatusActive {
		return nil, nil, nil, &domain.NegotiationNotActiveError{Status: n.Status}
	}
	if n.IsExpired(s.now()) {
		if err := s.expireNow(ctx, n, v, pending); err != nil {
			return nil, nil, nil, err
		}
		return nil, nil, nil, &domain.NegotiationExpiredError{}
	}
	return n, v, pending, nil
}

func (s *Service) expireNow(ctx context.Context, n *domain.Negotiation, v *vehicle.Vehicle, pending *domain.Offer) error {
	now := s.now()
	if _, err := s.repo.UpdateStatus(ctx, n.NegotiationID, domain.StatusActive, domain.StatusExpired); err != nil {
		return err
	}
	if pending != nil {
		if _, err := s.repo.CloseOffer(ctx, pending.OfferID, domain.OfferStatusExpired, now); err != nil {
			return err
		}
	}
	n.Status = domain.StatusExpired
	if err := s.notifier.NegotiationExpired(ctx, n, n.BuyerID, v.DealerUserID); err != nil {
		s.logger.Warn().Err(err).Str("negotiation_id", n.NegotiationID.String()).Msg("failed to queue expiry notification")
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func newOffer(negotiationID uuid.UUID, amount decimal.Decimal, by domain.Party, message string, now time.Time) *domain.Offer {
	return &domain.Offer{
		OfferID:       uuid.New(),
		NegotiationID: negotiationID,
		Amount:        amount,
		OfferedBy:     by,
		Message:       message,
		Status:        domain.OfferStatusPending,
		CreatedAt:     now,
	}
}
