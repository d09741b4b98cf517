// Package client provides the HTTP/JSON client for the sammelkarten session
// and publishing API. It distinguishes server rejections (APIError, the server
// answered with a non-2xx status) from transport faults (any other error), so
// callers can map the two onto different failure reasons.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Razue/sammelkarten-sub002/internal/model"
)

// Challenge is an issued login challenge. The CSRF token is bound to the
// challenge and must accompany the session-creation request.
type Challenge struct {
	Challenge string `json:"challenge"`
	RelayURL  string `json:"relay_url,omitempty"`
	CSRFToken string `json:"csrf_token"`
}

// Session is an established server session. The CSRF token here is
// session-bound and authorizes later state-changing requests (logout).
type Session struct {
	Token     string    `json:"token"`
	Pubkey    string    `json:"pubkey"`
	CSRFToken string    `json:"csrf_token"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateSessionRequest is the body of POST /nostr/session.
type CreateSessionRequest struct {
	User      *model.Event `json:"user"`
	Challenge string       `json:"challenge"`
}

// BatchPublishRequest is the body of POST /v1/admin/cards/publish.
type BatchPublishRequest struct {
	CardIDs []string `json:"card_ids"`
}

// BatchPublishResponse mirrors the server's batch publish result.
type BatchPublishResponse struct {
	Succeeded []*model.Event `json:"succeeded"`
	Failed    []struct {
		CardID string `json:"card_id"`
		Reason string `json:"reason"`
	} `json:"failed,omitempty"`
}

// Client talks to a sammelkarten server. When adminToken is non-empty it is
// sent as a bearer token on admin requests.
type Client struct {
	baseURL    string
	adminToken string
	httpClient *http.Client
}

// New creates a client targeting the given base URL
// (e.g. "http://localhost:8080").
func New(baseURL, adminToken string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		adminToken: adminToken,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// GetChallenge fetches a fresh login challenge.
func (c *Client) GetChallenge(ctx context.Context) (*Challenge, error) {
	var ch Challenge
	if err := c.doJSON(ctx, http.MethodGet, "/v1/auth/challenge", nil, nil, &ch); err != nil {
		return nil, err
	}
	return &ch, nil
}

// CreateSession submits a signed auth event plus the original challenge. The
// csrfToken must be the one issued alongside the challenge.
func (c *Client) CreateSession(ctx context.Context, ev *model.Event, challenge, csrfToken string) (*Session, error) {
	req := &CreateSessionRequest{User: ev, Challenge: challenge}
	var sess Session
	if err := c.doJSON(ctx, http.MethodPost, "/nostr/session", csrfHeader(csrfToken), req, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// DeleteSession tears down the session identified by token. Deleting a
// session that no longer exists is not an error.
func (c *Client) DeleteSession(ctx context.Context, token, csrfToken string) error {
	headers := csrfHeader(csrfToken)
	headers.Set("Authorization", "Bearer "+token)
	return c.doJSON(ctx, http.MethodDelete, "/nostr/session", headers, nil, nil)
}

// ListCards fetches the public card catalog.
func (c *Client) ListCards(ctx context.Context) ([]*model.Card, error) {
	var resp struct {
		Cards []*model.Card `json:"cards"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/cards", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Cards, nil
}

// PublishCard asks the server to publish the definition event for one card.
func (c *Client) PublishCard(ctx context.Context, cardID string) (*model.Event, error) {
	var ev model.Event
	if err := c.doJSON(ctx, http.MethodPost, "/v1/admin/cards/"+url.PathEscape(cardID)+"/publish", c.adminHeader(), nil, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// PublishCards asks the server to publish a batch of cards best-effort.
func (c *Client) PublishCards(ctx context.Context, cardIDs []string) (*BatchPublishResponse, error) {
	var resp BatchPublishResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/admin/cards/publish", c.adminHeader(), &BatchPublishRequest{CardIDs: cardIDs}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RebuildIndex triggers a full index rebuild.
func (c *Client) RebuildIndex(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodPost, "/v1/admin/index/rebuild", c.adminHeader(), nil, nil)
}

// IndexState fetches the index diagnostic snapshot.
func (c *Client) IndexState(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, "/v1/admin/index", c.adminHeader(), nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// Health checks server liveness.
func (c *Client) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/health", nil, nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

func (c *Client) adminHeader() http.Header {
	h := http.Header{}
	if c.adminToken != "" {
		h.Set("Authorization", "Bearer "+c.adminToken)
	}
	return h
}

func csrfHeader(token string) http.Header {
	h := http.Header{}
	h.Set("X-CSRF-Token", token)
	return h
}

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// doJSON performs an HTTP request with optional extra headers and JSON body,
// then decodes the JSON response into result when non-nil.
func (c *Client) doJSON(ctx context.Context, method, path string, headers http.Header, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: errResp.Error}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
