package server

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strings"
)

// NewHTTPHandler returns an http.Handler with all routes registered. When
// adminToken is non-empty, /v1/admin routes require a valid
// Authorization: Bearer <token> header.
func (s *Server) NewHTTPHandler(adminToken string) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/auth/challenge", s.handleGetChallenge)
	mux.HandleFunc("POST /nostr/session", s.handleCreateSession)
	mux.HandleFunc("DELETE /nostr/session", s.handleDeleteSession)

	mux.HandleFunc("GET /v1/cards", s.handleListCards)
	mux.HandleFunc("GET /v1/health", s.handleHealth)
	mux.HandleFunc("GET /v1/events/stream", s.handleEventStream)

	admin := http.NewServeMux()
	admin.HandleFunc("POST /v1/admin/cards/{id}/publish", s.handlePublishCard)
	admin.HandleFunc("POST /v1/admin/cards/publish", s.handlePublishCards)
	admin.HandleFunc("POST /v1/admin/index/rebuild", s.handleRebuildIndex)
	admin.HandleFunc("GET /v1/admin/index", s.handleIndexState)
	mux.Handle("/v1/admin/", AdminMiddleware(adminToken, admin))

	return mux
}

// AdminMiddleware checks the Authorization header for a valid bearer token.
// When token is empty, admin routes are disabled entirely rather than left
// open.
func AdminMiddleware(token string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token == "" {
			writeError(w, http.StatusForbidden, "admin api disabled")
			return
		}

		auth := r.Header.Get("Authorization")
		if auth == "" {
			writeError(w, http.StatusUnauthorized, "missing authorization header")
			return
		}
		if !strings.HasPrefix(auth, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "invalid authorization scheme")
			return
		}
		provided := strings.TrimPrefix(auth, "Bearer ")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(token)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
