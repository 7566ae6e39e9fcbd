package server

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// requireStaff protects the ops console endpoints with a bearer token taken
// from server configuration. With no token configured, staff endpoints are
// disabled entirely.
func (s *Server) requireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := s.config.AdminToken
		if token == "" {
			s.log.Warn("Staff API accessed but no admin token configured")
			s.respondError(w, http.StatusForbidden, "Staff API is disabled. Configure an admin token to enable.")
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			s.respondError(w, http.StatusUnauthorized, "Missing Authorization header")
			return
		}

		presented := strings.TrimPrefix(authHeader, "Bearer ")
		if presented == authHeader || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			s.log.Warn("Invalid staff token attempt", "remote_addr", r.RemoteAddr)
			s.respondError(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		next.ServeHTTP(w, r)
	})
}
