package daemon

import (
	"net/http"
	"strings"
)

// requireAuth wraps a handler with bearer token validation. Requests must
// include "Authorization: Bearer <token>"; anything else is rejected before
// the handler runs.
func (s *apiServer) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != s.token {
			s.writeError(w, http.StatusUnauthorized, "unauthorized", "")
			return
		}
		next(w, r)
	}
}
