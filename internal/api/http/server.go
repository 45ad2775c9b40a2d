package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	appNegotiation "github.com/carnegotiate/carnegotiate/internal/application/negotiation"
	"github.com/carnegotiate/carnegotiate/internal/infrastructure/sse"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	negotiationSvc *appNegotiation.Service
	sseHub         *sse.Hub
}

func NewServer(negotiationSvc *appNegotiation.Service, sseHub *sse.Hub) *Server {
	return &Server{
		negotiationSvc: negotiationSvc,
		sseHub:         sseHub,
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(s.requireIdentity)

			r.Route("/negotiations", func(r chi.Router) {
				r.Post("/", s.createNegotiation)
				r.Get("/", s.listNegotiations)
				r.Get("/{negotiationId}", s.getNegotiation)
				r.Get("/{negotiationId}/actions", s.getNegotiationActions)
				r.Post("/{negotiationId}/offers", s.createOffer)
				r.Post("/{negotiationId}/accept", s.acceptOffer)
				r.Post("/{negotiationId}/reject", s.rejectNegotiation)
				r.Post("/{negotiationId}/cancel", s.cancelNegotiation)
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/sse", s.sseEndpoint)
			})
		})
	})

	return r
}

// Helpers
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}

func parseUUIDParam(r *http.Request, key string) (uuid.UUID, error) {
	val := chi.URLParam(r, key)
	return uuid.Parse(val)
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func parseLimitOffset(r *http.Request, defaultLimit, maxLimit int) (int, int) {
	limit := defaultLimit
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil {
			limit = l
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if o, err := strconv.Atoi(v); err == nil {
			offset = o
		}
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
