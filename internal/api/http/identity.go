package httpapi

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type identityKey struct{}

// requireIdentity resolves the caller from the X-User-Id header. Identity is
// established upstream (gateway, session layer); this service only needs a
// trustworthy user id to decide which side of a negotiation is acting.
func (s *Server) requireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("X-User-Id")
		if raw == "" {
			respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "X-User-Id header required")
			return
		}
		userID, err := uuid.Parse(raw)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid X-User-Id header")
			return
		}
		ctx := context.WithValue(r.Context(), identityKey{}, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userFromContext(ctx context.Context) uuid.UUID {
	id, _ := ctx.Value(identityKey{}).(uuid.UUID)
	return id
}
