// Package server exposes the session and admin publishing API over HTTP/JSON.
// Login challenges are minted here, held in memory, and consumed exactly once;
// signature verification happens on the submitted auth event before any
// session state is created.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Razue/sammelkarten-sub002/internal/events"
	"github.com/Razue/sammelkarten-sub002/internal/idgen"
	"github.com/Razue/sammelkarten-sub002/internal/model"
	"github.com/Razue/sammelkarten-sub002/internal/publish"
	"github.com/Razue/sammelkarten-sub002/internal/store"
)

// challengeTTL is how long an issued challenge stays redeemable.
const challengeTTL = 5 * time.Minute

// challengeGrant is the server-side record of one issued challenge.
type challengeGrant struct {
	csrfToken string
	relayURL  string
	expiresAt time.Time
	used      bool
}

// Server handles the session handshake and the admin publishing surface.
type Server struct {
	store    store.Store
	workflow *publish.Workflow
	bus      events.Publisher
	hub      *streamHub
	relayURL string
	logger   *slog.Logger
	clock    func() time.Time

	challengeMu sync.Mutex
	challenges  map[string]*challengeGrant
}

// New returns a server. relayURL is advertised with every challenge and may
// be empty; bus may be a NoopPublisher.
func New(s store.Store, w *publish.Workflow, bus events.Publisher, relayURL string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:      s,
		workflow:   w,
		bus:        bus,
		hub:        newStreamHub(),
		relayURL:   relayURL,
		logger:     logger,
		clock:      time.Now,
		challenges: make(map[string]*challengeGrant),
	}
}

// handleGetChallenge handles GET /v1/auth/challenge.
func (s *Server) handleGetChallenge(w http.ResponseWriter, _ *http.Request) {
	nonce := idgen.Challenge()
	grant := &challengeGrant{
		csrfToken: idgen.Generate(),
		relayURL:  s.relayURL,
		expiresAt: s.clock().Add(challengeTTL),
	}

	s.challengeMu.Lock()
	s.pruneChallengesLocked()
	s.challenges[nonce] = grant
	s.challengeMu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{
		"challenge":  nonce,
		"relay_url":  grant.relayURL,
		"csrf_token": grant.csrfToken,
	})
}

// pruneChallengesLocked drops expired grants. Caller holds challengeMu.
func (s *Server) pruneChallengesLocked() {
	now := s.clock()
	for nonce, grant := range s.challenges {
		if grant.used || now.After(grant.expiresAt) {
			delete(s.challenges, nonce)
		}
	}
}

// consumeChallenge redeems a challenge once. A second redemption of the same
// nonce fails even inside the TTL.
func (s *Server) consumeChallenge(nonce, csrfToken string) (ok bool, csrfMismatch bool) {
	s.challengeMu.Lock()
	defer s.challengeMu.Unlock()

	grant, found := s.challenges[nonce]
	if !found || grant.used || s.clock().After(grant.expiresAt) {
		return false, false
	}
	if subtle.ConstantTimeCompare([]byte(grant.csrfToken), []byte(csrfToken)) != 1 {
		return false, true
	}
	grant.used = true
	return true, false
}

type createSessionRequest struct {
	User      json.RawMessage `json:"user"`
	Challenge string          `json:"challenge"`
}

// handleCreateSession handles POST /nostr/session.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	csrfToken := r.Header.Get("X-CSRF-Token")
	if csrfToken == "" {
		writeError(w, http.StatusForbidden, "missing csrf token")
		return
	}

	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Challenge == "" {
		writeError(w, http.StatusBadRequest, "challenge is required")
		return
	}
	if !model.ValidateEventShape(req.User) {
		writeError(w, http.StatusBadRequest, "malformed auth event")
		return
	}

	var ev model.Event
	if err := json.Unmarshal(req.User, &ev); err != nil {
		writeError(w, http.StatusBadRequest, "malformed auth event")
		return
	}
	if ev.Kind != model.KindAuth {
		writeError(w, http.StatusBadRequest, "unexpected event kind")
		return
	}
	if ev.TagValue("challenge") != req.Challenge {
		writeError(w, http.StatusBadRequest, "challenge tag does not match submitted challenge")
		return
	}

	redeemed, csrfMismatch := s.consumeChallenge(req.Challenge, csrfToken)
	if csrfMismatch {
		writeError(w, http.StatusForbidden, "csrf token mismatch")
		return
	}
	if !redeemed {
		writeError(w, http.StatusUnauthorized, "unknown or expired challenge")
		return
	}

	if ok, err := ev.CheckSignature(); err != nil || !ok {
		writeError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	sess := &model.ServerSession{
		Token:     idgen.Generate(),
		Pubkey:    ev.PubKey,
		CSRFToken: idgen.Generate(),
		CreatedAt: s.clock().UTC(),
	}
	if err := s.store.CreateSession(r.Context(), sess); err != nil {
		s.logger.Error("failed to create session", "pubkey", ev.PubKey, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	s.logger.Info("session created", "pubkey", ev.PubKey)
	writeJSON(w, http.StatusCreated, map[string]any{
		"token":      sess.Token,
		"pubkey":     sess.Pubkey,
		"csrf_token": sess.CSRFToken,
		"created_at": sess.CreatedAt,
	})
}

// handleDeleteSession handles DELETE /nostr/session. Deleting a session that
// is already gone succeeds.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	csrfToken := r.Header.Get("X-CSRF-Token")
	if csrfToken == "" {
		writeError(w, http.StatusForbidden, "missing csrf token")
		return
	}
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing session token")
		return
	}

	sess, err := s.store.GetSession(r.Context(), token)
	if err != nil {
		if err == store.ErrNotFound {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		s.logger.Error("failed to load session", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}
	if subtle.ConstantTimeCompare([]byte(sess.CSRFToken), []byte(csrfToken)) != 1 {
		writeError(w, http.StatusForbidden, "csrf token mismatch")
		return
	}

	if err := s.store.DeleteSession(r.Context(), token); err != nil {
		s.logger.Error("failed to delete session", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete session")
		return
	}

	s.broadcast(r.Context(), events.TopicLoggedOut, events.LoggedOut{Pubkey: sess.Pubkey})
	w.WriteHeader(http.StatusNoContent)
}

// handleListCards handles GET /v1/cards.
func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := s.store.ListCards(r.Context())
	if err != nil {
		s.logger.Error("failed to list cards", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list cards")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cards": cards})
}

// handleHealth handles GET /v1/health.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// broadcast publishes to the bus and fans out to SSE subscribers.
func (s *Server) broadcast(ctx context.Context, topic string, payload any) {
	if err := s.bus.Publish(ctx, topic, payload); err != nil {
		s.logger.Warn("failed to publish event", "topic", topic, "error", err)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Warn("failed to marshal event for stream", "topic", topic, "error", err)
		return
	}
	s.hub.broadcast(topic, data)
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(auth, "Bearer ")
}
