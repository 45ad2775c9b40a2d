package negotiation

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Business errors are expected, user-facing outcomes and are returned as
// values, never panicked. Callers match them with errors.As / errors.Is.
// Retrying any of them with the same input fails again, except
// ConcurrencyError, whose remedy is re-read and re-decide.

// ErrNotFound indicates the negotiation does not exist.
var ErrNotFound = errors.New("negotiation not found")

// ErrPendingOfferConflict flags a data-corruption state: more than one
// pending offer in a negotiation. It is an invariant violation, not a valid
// business outcome.
var ErrPendingOfferConflict = errors.New("multiple pending offers in negotiation")

// VehicleNotAvailableError is returned when the vehicle is not open for
// negotiation.
type VehicleNotAvailableError struct {
	VehicleID     uuid.UUID
	VehicleStatus string
}

func (e *VehicleNotAvailableError) Error() string {
	return fmt.Sprintf("vehicle %s is not available (status: %s)", e.VehicleID, e.VehicleStatus)
}

// ActiveNegotiationExistsError is returned when the buyer already has an
// active negotiation on the vehicle.
type ActiveNegotiationExistsError struct {
	VehicleID uuid.UUID
}

func (e *ActiveNegotiationExistsError) Error() string {
	return fmt.Sprintf("an active negotiation already exists on vehicle %s", e.VehicleID)
}

// InvalidOfferAmountError is returned when an offer is below the platform
// floor. MinAllowed carries the lowest acceptable amount for the caller.
type InvalidOfferAmountError struct {
	MinAllowed decimal.Decimal
}

func (e *InvalidOfferAmountError) Error() string {
	return fmt.Sprintf("offer must be at least $%s (50%% of asking price)", e.MinAllowed.StringFixed(2))
}

// NotYourTurnError is returned when an actor offers out of turn. WaitingFor
// names the party whose response is pending.
type NotYourTurnError struct {
	WaitingFor Party
}

func (e *NotYourTurnError) Error() string {
	return fmt.Sprintf("not your turn: waiting for %s response", e.WaitingFor)
}

// CannotAcceptOwnOfferError is returned when the author of the pending offer
// tries to accept it.
type CannotAcceptOwnOfferError struct{}

func (e *CannotAcceptOwnOfferError) Error() string {
	return "cannot accept your own offer"
}

// NotAuthorizedForActionError is returned when an action is reserved for the
// other side (only dealers reject, only buyers cancel).
type NotAuthorizedForActionError struct {
	Action        Action
	RequiredParty Party
}

func (e *NotAuthorizedForActionError) Error() string {
	return fmt.Sprintf("only the %s may %s this negotiation", e.RequiredParty, e.Action)
}

// NegotiationNotActiveError is returned for actions on a resolved
// negotiation.
type NegotiationNotActiveError struct {
	Status Status
}

func (e *NegotiationNotActiveError) Error() string {
	return fmt.Sprintf("negotiation is no longer active (status: %s)", e.Status)
}

// NegotiationExpiredError is returned when the deadline passed before the
// action. Distinct from NegotiationNotActiveError so clients can tell a
// timeout from a resolution by the other side.
type NegotiationExpiredError struct{}

func (e *NegotiationExpiredError) Error() string {
	return "negotiation has expired"
}

// ConcurrencyError is returned when the optimistic version check on accept
// matches zero rows. The caller should re-read current state and decide
// again; the service never retries silently.
type ConcurrencyError struct{}

func (e *ConcurrencyError) Error() string {
	return "negotiation was modified by another process, refresh and retry"
}

// NotParticipantError is returned when the actor is neither the buyer nor
// the dealer side of the negotiation.
type NotParticipantError struct{}

func (e *NotParticipantError) Error() string {
	return "not a participant in this negotiation"
}
