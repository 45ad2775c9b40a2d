package negotiation

import (
	"time"

	"github.com/google/uuid"
)

// Action is one protocol-level move a participant can make.
type Action string

const (
	ActionMakeOffer    Action = "make_offer"
	ActionCounterOffer Action = "counter_offer"
	ActionAccept       Action = "accept"
	ActionReject       Action = "reject"
	ActionCancel       Action = "cancel"
)

// CanTransition is the table-driven transition check, usable without an
// instance in hand.
func CanTransition(from, to Status) bool {
	n := Negotiation{Status: from}
	return n.CanTransitionTo(to)
}

// ResolveParty determines which side of the negotiation the actor is on.
// An actor who is simultaneously the buyer and the vehicle's dealer user is
// ambiguous and resolves to no party: denied everything, never granted both.
func ResolveParty(n *Negotiation, dealerUserID, actorID uuid.UUID) (Party, bool) {
	isBuyer := actorID == n.BuyerID
	isDealer := actorID == dealerUserID
	switch {
	case isBuyer && isDealer:
		return "", false
	case isBuyer:
		return PartyBuyer, true
	case isDealer:
		return PartyDealer, true
	default:
		return "", false
	}
}

// WaitingOn names the party whose response the negotiation is waiting for.
// With no pending offer the buyer opens, so the buyer is awaited.
func WaitingOn(pending *Offer) Party {
	if pending == nil {
		return PartyBuyer
	}
	return pending.OfferedBy.Other()
}

// IsTurnValid enforces strict alternation: the buyer always opens, and after
// that each side may only respond to the other's pending offer.
func IsTurnValid(pending *Offer, party Party) bool {
	return WaitingOn(pending) == party
}

// AvailableActions derives the action set for one party from negotiation
// state, turn validity and pending-offer ownership. A side can never accept
// its own pending offer. Returns nil for resolved or expired negotiations.
func AvailableActions(n *Negotiation, pending *Offer, party Party, now time.Time) []Action {
	if n.Status != StatusActive || n.IsExpired(now) {
		return nil
	}
	if err := ValidateParty(party); err != nil {
		return nil
	}
	if pending == nil {
		if party == PartyBuyer {
			return []Action{ActionMakeOffer}
		}
		return nil
	}
	if pending.OfferedBy == party {
		// Own offer on the table: nothing to do but wait.
		return nil
	}
	if party == PartyDealer {
		return []Action{ActionAccept, ActionCounterOffer, ActionReject}
	}
	return []Action{ActionAccept, ActionCounterOffer, ActionCancel}
}
