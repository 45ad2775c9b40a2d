package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/carnegotiate/carnegotiate/internal/domain/negotiation"
	"github.com/carnegotiate/carnegotiate/internal/domain/vehicle"
)

// Data types for requests

type negotiationCreateRequest struct {
	VehicleID string          `json:"vehicle_id"`
	Amount    decimal.Decimal `json:"amount"`
	Message   string          `json:"message,omitempty"`
}

type offerCreateRequest struct {
	Amount  decimal.Decimal `json:"amount"`
	Message string          `json:"message,omitempty"`
}

type rejectRequest struct {
	Reason string `json:"reason,omitempty"`
}

func (s *Server) createNegotiation(w http.ResponseWriter, r *http.Request) {
	var req negotiationCreateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	vehicleID, err := uuid.Parse(req.VehicleID)
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid vehicle_id")
		return
	}
	if !req.Amount.IsPositive() {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "amount must be positive")
		return
	}

	buyerID := userFromContext(r.Context())
	n, err := s.negotiationSvc.Start(r.Context(), vehicleID, buyerID, req.Amount, req.Message)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, n)
}

func (s *Server) listNegotiations(w http.ResponseWriter, r *http.Request) {
	filter := negotiation.Filter{}
	if v := r.URL.Query().Get("status"); v != "" {
		status := negotiation.Status(strings.ToUpper(v))
		if err := negotiation.ValidateStatus(status); err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid status filter")
			return
		}
		filter.Status = &status
	}
	if v := r.URL.Query().Get("role"); v != "" {
		role := negotiation.Party(strings.ToUpper(v))
		if err := negotiation.ValidateParty(role); err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid role filter")
			return
		}
		filter.Role = &role
	}
	limit, offset := parseLimitOffset(r, 50, 200)

	userID := userFromContext(r.Context())
	list, err := s.negotiationSvc.List(r.Context(), userID, filter, limit, offset)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"negotiations": list})
}

func (s *Server) getNegotiation(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "negotiationId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid negotiationId")
		return
	}
	n, err := s.negotiationSvc.Get(r.Context(), id, userFromContext(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, n)
}

func (s *Server) getNegotiationActions(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "negotiationId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid negotiationId")
		return
	}
	actions, err := s.negotiationSvc.AvailableActions(r.Context(), id, userFromContext(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if actions == nil {
		actions = []negotiation.Action{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"actions": actions})
}

func (s *Server) createOffer(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "negotiationId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid negotiationId")
		return
	}
	var req offerCreateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	if !req.Amount.IsPositive() {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "amount must be positive")
		return
	}

	o, err := s.negotiationSvc.SubmitCounterOffer(r.Context(), id, userFromContext(r.Context()), req.Amount, req.Message)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, o)
}

func (s *Server) acceptOffer(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "negotiationId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid negotiationId")
		return
	}
	n, err := s.negotiationSvc.Accept(r.Context(), id, userFromContext(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, n)
}

func (s *Server) rejectNegotiation(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "negotiationId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid negotiationId")
		return
	}
	// The body is optional; rejecting without a reason is fine.
	var req rejectRequest
	if err := decodeBody(r, &req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	n, err := s.negotiationSvc.Reject(r.Context(), id, userFromContext(r.Context()), req.Reason)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, n)
}

func (s *Server) cancelNegotiation(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "negotiationId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid negotiationId")
		return
	}
	n, err := s.negotiationSvc.Cancel(r.Context(), id, userFromContext(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, n)
}

// respondServiceError maps business errors onto HTTP statuses. Unrecognized
// errors are treated as internal.
func respondServiceError(w http.ResponseWriter, err error) {
	var (
		notAvailable   *negotiation.VehicleNotAvailableError
		activeExists   *negotiation.ActiveNegotiationExistsError
		invalidAmount  *negotiation.InvalidOfferAmountError
		notYourTurn    *negotiation.NotYourTurnError
		ownOffer       *negotiation.CannotAcceptOwnOfferError
		notAuthorized  *negotiation.NotAuthorizedForActionError
		notActive      *negotiation.NegotiationNotActiveError
		expired        *negotiation.NegotiationExpiredError
		concurrency    *negotiation.ConcurrencyError
		notParticipant *negotiation.NotParticipantError
	)
	switch {
	case errors.Is(err, negotiation.ErrNotFound), errors.Is(err, vehicle.ErrNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.As(err, &activeExists):
		respondError(w, http.StatusConflict, "ACTIVE_NEGOTIATION_EXISTS", err.Error())
	case errors.As(err, &concurrency):
		respondError(w, http.StatusConflict, "CONCURRENT_MODIFICATION", err.Error())
	case errors.As(err, &notAuthorized):
		respondError(w, http.StatusForbidden, "NOT_AUTHORIZED_FOR_ACTION", err.Error())
	case errors.As(err, &notParticipant):
		respondError(w, http.StatusForbidden, "NOT_PARTICIPANT", err.Error())
	case errors.As(err, &notAvailable):
		respondError(w, http.StatusBadRequest, "VEHICLE_NOT_AVAILABLE", err.Error())
	case errors.As(err, &invalidAmount):
		respondError(w, http.StatusBadRequest, "INVALID_OFFER_AMOUNT", err.Error())
	case errors.As(err, &notYourTurn):
		respondError(w, http.StatusBadRequest, "NOT_YOUR_TURN", err.Error())
	case errors.As(err, &ownOffer):
		respondError(w, http.StatusBadRequest, "CANNOT_ACCEPT_OWN_OFFER", err.Error())
	case errors.As(err, &expired):
		respondError(w, http.StatusBadRequest, "NEGOTIATION_EXPIRED", err.Error())
	case errors.As(err, &notActive):
		respondError(w, http.StatusBadRequest, "NEGOTIATION_NOT_ACTIVE", err.Error())
	case errors.Is(err, negotiation.ErrMessageTooLong):
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}
