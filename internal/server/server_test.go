package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nbd-wtf/go-nostr"

	"github.com/Razue/sammelkarten-sub002/internal/events"
	"github.com/Razue/sammelkarten-sub002/internal/indexer"
	"github.com/Razue/sammelkarten-sub002/internal/model"
	"github.com/Razue/sammelkarten-sub002/internal/publish"
	"github.com/Razue/sammelkarten-sub002/internal/schema"
	"github.com/Razue/sammelkarten-sub002/internal/signer"
	"github.com/Razue/sammelkarten-sub002/internal/store/storetest"
)

const testAdminToken = "test-admin-token"

type testEnv struct {
	server  *Server
	handler http.Handler
	store   *storetest.Memory

	userKey    string
	userPubkey string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mem := storetest.New()
	adminKey := nostr.GeneratePrivateKey()
	adminLocal, err := signer.NewLocal(adminKey)
	if err != nil {
		t.Fatalf("NewLocal(admin): %v", err)
	}

	ix := indexer.New(mem)
	workflow := publish.New(mem, signer.NewAdapter(adminLocal), schema.New(nil), ix, &events.NoopPublisher{}, nil)
	srv := New(mem, workflow, &events.NoopPublisher{}, "wss://relay.example", nil)

	userKey := nostr.GeneratePrivateKey()
	userPubkey, err := nostr.GetPublicKey(userKey)
	if err != nil {
		t.Fatalf("GetPublicKey: %v", err)
	}

	return &testEnv{
		server:     srv,
		handler:    srv.NewHTTPHandler(testAdminToken),
		store:      mem,
		userKey:    userKey,
		userPubkey: userPubkey,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, headers map[string]string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// getChallenge fetches and decodes a fresh challenge.
func (e *testEnv) getChallenge(t *testing.T) (challenge, csrf string) {
	t.Helper()
	rec := e.do(t, http.MethodGet, "/v1/auth/challenge", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("challenge status = %d: %s", rec.Code, rec.Body)
	}
	var resp struct {
		Challenge string `json:"challenge"`
		RelayURL  string `json:"relay_url"`
		CSRFToken string `json:"csrf_token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode challenge: %v", err)
	}
	if resp.Challenge == "" || resp.CSRFToken == "" {
		t.Fatalf("incomplete challenge response: %+v", resp)
	}
	return resp.Challenge, resp.CSRFToken
}

// signedAuthEvent builds and signs an auth event for the challenge.
func (e *testEnv) signedAuthEvent(t *testing.T, challenge string) *model.Event {
	t.Helper()
	local, err := signer.NewLocal(e.userKey)
	if err != nil {
		t.Fatalf("NewLocal(user): %v", err)
	}
	ev := schema.New(nil).BuildAuthEvent(e.userPubkey, challenge, "")
	signed, err := local.SignEvent(context.Background(), ev)
	if err != nil {
		t.Fatalf("SignEvent: %v", err)
	}
	return signed
}

func sessionBody(ev *model.Event, challenge string) map[string]any {
	return map[string]any{"user": ev, "challenge": challenge}
}

func TestChallengeIssuance(t *testing.T) {
	env := newTestEnv(t)
	c1, _ := env.getChallenge(t)
	c2, _ := env.getChallenge(t)
	if c1 == c2 {
		t.Errorf("two challenges are identical: %q", c1)
	}
}

func TestCreateSession_FullHandshake(t *testing.T) {
	env := newTestEnv(t)
	challenge, csrf := env.getChallenge(t)
	ev := env.signedAuthEvent(t, challenge)

	rec := env.do(t, http.MethodPost, "/nostr/session", map[string]string{"X-CSRF-Token": csrf}, sessionBody(ev, challenge))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}

	var resp struct {
		Token     string `json:"token"`
		Pubkey    string `json:"pubkey"`
		CSRFToken string `json:"csrf_token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Pubkey != env.userPubkey {
		t.Errorf("pubkey = %q, want %q", resp.Pubkey, env.userPubkey)
	}
	if resp.Token == "" || resp.CSRFToken == "" {
		t.Errorf("incomplete session: %+v", resp)
	}
	if env.store.SessionCount() != 1 {
		t.Errorf("session count = %d, want 1", env.store.SessionCount())
	}
}

func TestCreateSession_ChallengeSingleUse(t *testing.T) {
	env := newTestEnv(t)
	challenge, csrf := env.getChallenge(t)
	ev := env.signedAuthEvent(t, challenge)
	body := sessionBody(ev, challenge)
	headers := map[string]string{"X-CSRF-Token": csrf}

	if rec := env.do(t, http.MethodPost, "/nostr/session", headers, body); rec.Code != http.StatusCreated {
		t.Fatalf("first redemption status = %d", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/nostr/session", headers, body); rec.Code != http.StatusUnauthorized {
		t.Errorf("replayed challenge status = %d, want 401", rec.Code)
	}
}

func TestCreateSession_ExpiredChallenge(t *testing.T) {
	env := newTestEnv(t)
	challenge, csrf := env.getChallenge(t)
	ev := env.signedAuthEvent(t, challenge)

	env.server.clock = func() time.Time { return time.Now().Add(challengeTTL + time.Minute) }

	rec := env.do(t, http.MethodPost, "/nostr/session", map[string]string{"X-CSRF-Token": csrf}, sessionBody(ev, challenge))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expired challenge status = %d, want 401", rec.Code)
	}
}

func TestCreateSession_CSRF(t *testing.T) {
	env := newTestEnv(t)
	challenge, _ := env.getChallenge(t)
	ev := env.signedAuthEvent(t, challenge)
	body := sessionBody(ev, challenge)

	if rec := env.do(t, http.MethodPost, "/nostr/session", nil, body); rec.Code != http.StatusForbidden {
		t.Errorf("missing csrf status = %d, want 403", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/nostr/session", map[string]string{"X-CSRF-Token": "wrong"}, body); rec.Code != http.StatusForbidden {
		t.Errorf("wrong csrf status = %d, want 403", rec.Code)
	}
}

func TestCreateSession_Validation(t *testing.T) {
	env := newTestEnv(t)

	t.Run("malformed event", func(t *testing.T) {
		challenge, csrf := env.getChallenge(t)
		body := map[string]any{"user": map[string]any{"kind": 22242}, "challenge": challenge}
		rec := env.do(t, http.MethodPost, "/nostr/session", map[string]string{"X-CSRF-Token": csrf}, body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("wrong kind", func(t *testing.T) {
		challenge, csrf := env.getChallenge(t)
		ev := env.signedAuthEvent(t, challenge)
		ev.Kind = 1
		rec := env.do(t, http.MethodPost, "/nostr/session", map[string]string{"X-CSRF-Token": csrf}, sessionBody(ev, challenge))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("challenge tag mismatch", func(t *testing.T) {
		challenge, csrf := env.getChallenge(t)
		ev := env.signedAuthEvent(t, "some-other-challenge")
		rec := env.do(t, http.MethodPost, "/nostr/session", map[string]string{"X-CSRF-Token": csrf}, sessionBody(ev, challenge))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("invalid signature", func(t *testing.T) {
		challenge, csrf := env.getChallenge(t)
		ev := env.signedAuthEvent(t, challenge)
		ev.Sig = "deadbeef" + ev.Sig[8:]
		rec := env.do(t, http.MethodPost, "/nostr/session", map[string]string{"X-CSRF-Token": csrf}, sessionBody(ev, challenge))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})
}

func TestDeleteSession_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	challenge, csrf := env.getChallenge(t)
	ev := env.signedAuthEvent(t, challenge)

	rec := env.do(t, http.MethodPost, "/nostr/session", map[string]string{"X-CSRF-Token": csrf}, sessionBody(ev, challenge))
	var sess struct {
		Token     string `json:"token"`
		CSRFToken string `json:"csrf_token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &sess); err != nil {
		t.Fatalf("decode session: %v", err)
	}

	headers := map[string]string{
		"X-CSRF-Token":  sess.CSRFToken,
		"Authorization": "Bearer " + sess.Token,
	}
	if rec := env.do(t, http.MethodDelete, "/nostr/session", headers, nil); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d: %s", rec.Code, rec.Body)
	}
	if env.store.SessionCount() != 0 {
		t.Errorf("session count = %d after delete", env.store.SessionCount())
	}
	// Deleting again succeeds.
	if rec := env.do(t, http.MethodDelete, "/nostr/session", headers, nil); rec.Code != http.StatusNoContent {
		t.Errorf("second delete status = %d, want 204", rec.Code)
	}
}

func TestDeleteSession_WrongCSRF(t *testing.T) {
	env := newTestEnv(t)
	challenge, csrf := env.getChallenge(t)
	ev := env.signedAuthEvent(t, challenge)
	rec := env.do(t, http.MethodPost, "/nostr/session", map[string]string{"X-CSRF-Token": csrf}, sessionBody(ev, challenge))
	var sess struct {
		Token string `json:"token"`
	}
	json.Unmarshal(rec.Body.Bytes(), &sess)

	headers := map[string]string{
		"X-CSRF-Token":  "wrong",
		"Authorization": "Bearer " + sess.Token,
	}
	if rec := env.do(t, http.MethodDelete, "/nostr/session", headers, nil); rec.Code != http.StatusForbidden {
		t.Errorf("delete with wrong csrf status = %d, want 403", rec.Code)
	}
}

func TestAdminAuth(t *testing.T) {
	env := newTestEnv(t)

	if rec := env.do(t, http.MethodPost, "/v1/admin/index/rebuild", nil, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("no token status = %d, want 401", rec.Code)
	}
	headers := map[string]string{"Authorization": "Bearer wrong"}
	if rec := env.do(t, http.MethodPost, "/v1/admin/index/rebuild", headers, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong token status = %d, want 401", rec.Code)
	}
}

func adminHeaders() map[string]string {
	return map[string]string{"Authorization": "Bearer " + testAdminToken}
}

func TestAdminPublishCard(t *testing.T) {
	env := newTestEnv(t)
	env.store.AddCard(&model.Card{ID: "c1", Name: "Satoshi", Slug: "satoshi", Rarity: "legendary", PriceSats: 21000})

	rec := env.do(t, http.MethodPost, "/v1/admin/cards/c1/publish", adminHeaders(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var ev model.Event
	if err := json.Unmarshal(rec.Body.Bytes(), &ev); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if ev.Kind != model.KindCardDefinition || ev.DTag() != "card_c1" {
		t.Errorf("event kind=%d d=%q", ev.Kind, ev.DTag())
	}
}

func TestAdminPublishCard_NotFound(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/v1/admin/cards/nope/publish", adminHeaders(), nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestAdminPublishCards_Batch(t *testing.T) {
	env := newTestEnv(t)
	env.store.AddCard(&model.Card{ID: "c1", Name: "A", Slug: "a", Rarity: "common", PriceSats: 100})
	env.store.AddCard(&model.Card{ID: "c3", Name: "C", Slug: "c", Rarity: "rare", PriceSats: 300})

	rec := env.do(t, http.MethodPost, "/v1/admin/cards/publish", adminHeaders(), map[string]any{"card_ids": []string{"c1", "c2", "c3"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var result publish.BatchResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if len(result.Succeeded) != 2 || len(result.Failed) != 1 {
		t.Errorf("result = %d/%d, want 2 succeeded, 1 failed", len(result.Succeeded), len(result.Failed))
	}
}

func TestAdminIndex(t *testing.T) {
	env := newTestEnv(t)
	env.store.AddCard(&model.Card{ID: "c1", Name: "A", Slug: "a", Rarity: "common", PriceSats: 100})
	env.do(t, http.MethodPost, "/v1/admin/cards/c1/publish", adminHeaders(), nil)

	rec := env.do(t, http.MethodPost, "/v1/admin/index/rebuild", adminHeaders(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("rebuild status = %d: %s", rec.Code, rec.Body)
	}

	rec = env.do(t, http.MethodGet, "/v1/admin/index", adminHeaders(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("index state status = %d", rec.Code)
	}
	var snap indexer.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if !snap.Available || snap.Addresses != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestListCardsAndHealth(t *testing.T) {
	env := newTestEnv(t)
	env.store.AddCard(&model.Card{ID: "c1", Name: "A", Slug: "a", Rarity: "common", PriceSats: 100})

	rec := env.do(t, http.MethodGet, "/v1/cards", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("cards status = %d", rec.Code)
	}
	var resp struct {
		Cards []*model.Card `json:"cards"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode cards: %v", err)
	}
	if len(resp.Cards) != 1 {
		t.Errorf("cards = %d, want 1", len(resp.Cards))
	}

	if rec := env.do(t, http.MethodGet, "/v1/health", nil, nil); rec.Code != http.StatusOK {
		t.Errorf("health status = %d", rec.Code)
	}
}
