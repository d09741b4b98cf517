// Package auth implements the login handshake controller: a per-attempt state
// machine that drives signer detection, challenge-event construction, signing
// and session establishment, and reports every outcome to its host through
// the signal bus. The controller never retries on its own; a retry is a new
// caller-initiated attempt.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Razue/sammelkarten-sub002/internal/client"
	"github.com/Razue/sammelkarten-sub002/internal/events"
	"github.com/Razue/sammelkarten-sub002/internal/idgen"
	"github.com/Razue/sammelkarten-sub002/internal/model"
	"github.com/Razue/sammelkarten-sub002/internal/schema"
	"github.com/Razue/sammelkarten-sub002/internal/session"
	"github.com/Razue/sammelkarten-sub002/internal/signer"
)

// State is the handshake position of the current attempt.
type State int

const (
	Idle State = iota
	DetectingSigner
	AwaitingIdentity
	BuildingChallengeEvent
	AwaitingSignature
	SubmittingSession
	Authenticated
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case DetectingSigner:
		return "detecting_signer"
	case AwaitingIdentity:
		return "awaiting_identity"
	case BuildingChallengeEvent:
		return "building_challenge_event"
	case AwaitingSignature:
		return "awaiting_signature"
	case SubmittingSession:
		return "submitting_session"
	case Authenticated:
		return "authenticated"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// FailureReason classifies terminal handshake failures.
type FailureReason int

const (
	NoSigner FailureReason = iota
	IdentityUnavailable
	SigningRejected
	SessionRejected
	NetworkFault
)

func (r FailureReason) String() string {
	switch r {
	case NoSigner:
		return "no_signer"
	case IdentityUnavailable:
		return "identity_unavailable"
	case SigningRejected:
		return "signing_rejected"
	case SessionRejected:
		return "session_rejected"
	case NetworkFault:
		return "network_fault"
	default:
		return "unknown"
	}
}

// Failure is a terminal handshake outcome. HTTPStatus is set only for
// SessionRejected.
type Failure struct {
	Reason     FailureReason
	Detail     string
	HTTPStatus int
}

func (f *Failure) Error() string {
	if f.HTTPStatus != 0 {
		return fmt.Sprintf("login failed: %s (%d): %s", f.Reason, f.HTTPStatus, f.Detail)
	}
	return fmt.Sprintf("login failed: %s: %s", f.Reason, f.Detail)
}

// ErrSuperseded is returned by an attempt whose result arrived after a newer
// attempt had started. Its side effects are discarded.
var ErrSuperseded = errors.New("login attempt superseded")

// SessionAPI is the slice of the server API the controller needs. Implemented
// by *client.Client.
type SessionAPI interface {
	GetChallenge(ctx context.Context) (*client.Challenge, error)
	CreateSession(ctx context.Context, ev *model.Event, challenge, csrfToken string) (*client.Session, error)
	DeleteSession(ctx context.Context, token, csrfToken string) error
}

// Controller drives the handshake. One controller serves one host; Login
// attempts are serialized per controller by supersession, while the signing,
// profile, trade and encryption flows run independently of the login machine.
type Controller struct {
	signer *signer.Adapter
	api    SessionAPI
	cache  *session.Store
	bus    events.Publisher
	build  *schema.Builder
	logger *slog.Logger

	mu        sync.Mutex
	state     State
	attemptID string
	failure   *Failure
}

// New assembles a controller in the Idle state. bus may be nil for hosts that
// only inspect State and return values; logger nil defaults to slog.Default().
func New(adapter *signer.Adapter, api SessionAPI, cache *session.Store, bus events.Publisher, build *schema.Builder, logger *slog.Logger) *Controller {
	if bus == nil {
		bus = &events.NoopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if build == nil {
		build = schema.New(nil)
	}
	return &Controller{
		signer: adapter,
		api:    api,
		cache:  cache,
		bus:    bus,
		build:  build,
		logger: logger,
		state:  Idle,
	}
}

// State reports the current handshake state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastFailure returns the terminal failure of the most recent attempt, or nil.
func (c *Controller) LastFailure() *Failure {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failure
}

// Start probes the signer and reports support status. With no signer present
// the controller lands in a terminal Failed state immediately so the host is
// never left without an answer.
func (c *Controller) Start(ctx context.Context) signer.Detection {
	c.mu.Lock()
	c.state = DetectingSigner
	c.mu.Unlock()

	det := c.signer.Detect(ctx)
	c.emit(ctx, events.TopicSupportStatus, events.SupportStatus{Detection: det})

	c.mu.Lock()
	if det.Present {
		c.state = Idle
		c.failure = nil
	} else {
		c.state = Failed
		c.failure = &Failure{Reason: NoSigner, Detail: "no signing capability present"}
	}
	c.mu.Unlock()

	if !det.Present {
		c.emit(ctx, events.TopicError, events.ErrorSignal{Error: NoSigner.String(), Details: "no signing capability present"})
	}
	return det
}

// Login runs the handshake for one challenge. It returns nil once the session
// is established and cached, a *Failure for every terminal failure, or
// ErrSuperseded when a newer attempt started underneath this one.
func (c *Controller) Login(ctx context.Context, challenge, relayURL, csrfToken string) error {
	attempt := idgen.Attempt()

	c.mu.Lock()
	c.attemptID = attempt
	c.failure = nil
	c.state = AwaitingIdentity
	c.mu.Unlock()

	if !c.signer.Detect(ctx).Present {
		return c.fail(ctx, attempt, &Failure{Reason: NoSigner, Detail: "no signing capability present"})
	}

	pubkey, err := c.signer.GetPublicKey(ctx)
	if err != nil {
		return c.fail(ctx, attempt, signerFailure(err, IdentityUnavailable))
	}
	if !c.advance(attempt, BuildingChallengeEvent) {
		return ErrSuperseded
	}
	c.emit(ctx, events.TopicPubkeyReceived, events.PubkeyReceived{Pubkey: pubkey})

	unsigned := c.build.BuildAuthEvent(pubkey, challenge, relayURL)
	if !c.advance(attempt, AwaitingSignature) {
		return ErrSuperseded
	}

	signed, err := c.signer.SignEvent(ctx, unsigned)
	if err != nil {
		return c.fail(ctx, attempt, signerFailure(err, SigningRejected))
	}
	if !c.advance(attempt, SubmittingSession) {
		return ErrSuperseded
	}
	c.emit(ctx, events.TopicAuthSigned, events.AuthSigned{EventID: signed.ID, Challenge: challenge})

	sess, err := c.api.CreateSession(ctx, signed, challenge, csrfToken)
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			return c.fail(ctx, attempt, &Failure{Reason: SessionRejected, Detail: apiErr.Message, HTTPStatus: apiErr.StatusCode})
		}
		return c.fail(ctx, attempt, &Failure{Reason: NetworkFault, Detail: err.Error()})
	}

	// The cache write lands before the state flips to Authenticated, so a
	// host reacting to the terminal state always sees the cached session.
	data := model.SessionData{
		Pubkey:    sess.Pubkey,
		Token:     sess.Token,
		CSRFToken: sess.CSRFToken,
		CreatedAt: sess.CreatedAt,
	}
	if err := c.cache.Store(data); err != nil {
		c.logger.Warn("failed to cache session", "error", err)
	}

	if !c.advance(attempt, Authenticated) {
		return ErrSuperseded
	}
	return nil
}

// BeginLogin fetches a fresh challenge from the server and runs Login with it.
func (c *Controller) BeginLogin(ctx context.Context) error {
	ch, err := c.api.GetChallenge(ctx)
	if err != nil {
		attempt := idgen.Attempt()
		c.mu.Lock()
		c.attemptID = attempt
		c.mu.Unlock()
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			return c.fail(ctx, attempt, &Failure{Reason: SessionRejected, Detail: apiErr.Message, HTTPStatus: apiErr.StatusCode})
		}
		return c.fail(ctx, attempt, &Failure{Reason: NetworkFault, Detail: err.Error()})
	}
	return c.Login(ctx, ch.Challenge, ch.RelayURL, ch.CSRFToken)
}

// Logout tears down the server session best-effort and always clears the
// local cache before signaling completion.
func (c *Controller) Logout(ctx context.Context) error {
	data, ok := c.cache.Get()
	if ok && data.Token != "" {
		if err := c.api.DeleteSession(ctx, data.Token, data.CSRFToken); err != nil {
			c.logger.Warn("session delete failed, clearing cache anyway", "error", err)
		}
	}
	if err := c.cache.Clear(); err != nil {
		return fmt.Errorf("clearing session cache: %w", err)
	}

	c.mu.Lock()
	c.state = Idle
	c.failure = nil
	c.attemptID = ""
	c.mu.Unlock()

	c.emit(ctx, events.TopicLoggedOut, events.LoggedOut{Pubkey: data.Pubkey})
	return nil
}

// SignEvent signs an arbitrary event and emits it under the caller's label.
// It does not touch the login state machine.
func (c *Controller) SignEvent(ctx context.Context, ev *model.Event, label string) (*model.Event, error) {
	if label == "" {
		label = "event_signed"
	}
	signed, err := c.signer.SignEvent(ctx, ev)
	if err != nil {
		f := signerFailure(err, SigningRejected)
		c.emit(ctx, events.TopicError, events.ErrorSignal{Error: f.Reason.String(), Details: f.Detail})
		return nil, f
	}
	c.emit(ctx, events.TopicEventSigned, events.EventSigned{Label: label, Event: signed})
	return signed, nil
}

// EncryptMessage encrypts plaintext for peerPubkey via the signer's optional
// encryption capability.
func (c *Controller) EncryptMessage(ctx context.Context, peerPubkey, plaintext string) (string, error) {
	ciphertext, err := c.signer.Encrypt(ctx, peerPubkey, plaintext)
	if err != nil {
		f := signerFailure(err, SigningRejected)
		c.emit(ctx, events.TopicError, events.ErrorSignal{Error: f.Reason.String(), Details: f.Detail})
		return "", f
	}
	c.emit(ctx, events.TopicMessageEncrypted, events.MessageEncrypted{PeerPubkey: peerPubkey, Ciphertext: ciphertext})
	return ciphertext, nil
}

// DecryptMessage decrypts ciphertext from peerPubkey.
func (c *Controller) DecryptMessage(ctx context.Context, peerPubkey, ciphertext string) (string, error) {
	plaintext, err := c.signer.Decrypt(ctx, peerPubkey, ciphertext)
	if err != nil {
		f := signerFailure(err, SigningRejected)
		c.emit(ctx, events.TopicError, events.ErrorSignal{Error: f.Reason.String(), Details: f.Detail})
		return "", f
	}
	c.emit(ctx, events.TopicMessageDecrypted, events.MessageDecrypted{PeerPubkey: peerPubkey, Plaintext: plaintext})
	return plaintext, nil
}

// UpdateProfile signs a kind-0 profile metadata event for the signer's
// identity and announces it as a profile_updated signal.
func (c *Controller) UpdateProfile(ctx context.Context, profile map[string]any) (*model.Event, error) {
	signed, err := c.signIdentityEvent(ctx, func(pubkey string) (*model.Event, error) {
		return c.build.BuildProfileEvent(pubkey, profile)
	})
	if err != nil {
		return nil, err
	}
	c.emit(ctx, events.TopicProfileUpdated, events.ProfileUpdated{Pubkey: signed.PubKey, Event: signed})
	return signed, nil
}

// RequestProfile announces that the host wants pubkey's profile metadata
// fetched. The bridge only relays the request; whatever sits on the relay
// side of the bus resolves it.
func (c *Controller) RequestProfile(ctx context.Context, pubkey string) {
	c.emit(ctx, events.TopicProfileRequested, events.ProfileRequested{Pubkey: pubkey})
}

// CreateTradeOffer signs a kind-32122 offer event for the signer's identity
// and announces it as a trade_offer_created signal.
func (c *Controller) CreateTradeOffer(ctx context.Context, offer model.OfferData) (*model.Event, error) {
	signed, err := c.signIdentityEvent(ctx, func(pubkey string) (*model.Event, error) {
		return c.build.BuildTradeOfferEvent(pubkey, offer)
	})
	if err != nil {
		return nil, err
	}
	c.emit(ctx, events.TopicTradeOffer, events.TradeOfferCreated{Offer: offer, Event: signed})
	return signed, nil
}

// AcceptTrade signs a kind-32123 execution event for the signer's identity
// and announces it as a trade_accepted signal.
func (c *Controller) AcceptTrade(ctx context.Context, trade model.TradeData) (*model.Event, error) {
	signed, err := c.signIdentityEvent(ctx, func(pubkey string) (*model.Event, error) {
		return c.build.BuildTradeAcceptEvent(pubkey, trade)
	})
	if err != nil {
		return nil, err
	}
	c.emit(ctx, events.TopicTradeAccepted, events.TradeAccepted{Trade: trade, Event: signed})
	return signed, nil
}

// signIdentityEvent resolves the signer identity, builds an event for it and
// signs the result, collapsing failures into the handshake taxonomy. The
// login state machine is not involved.
func (c *Controller) signIdentityEvent(ctx context.Context, build func(pubkey string) (*model.Event, error)) (*model.Event, error) {
	pubkey, err := c.signer.GetPublicKey(ctx)
	if err != nil {
		f := signerFailure(err, IdentityUnavailable)
		c.emit(ctx, events.TopicError, events.ErrorSignal{Error: f.Reason.String(), Details: f.Detail})
		return nil, f
	}
	unsigned, err := build(pubkey)
	if err != nil {
		return nil, err
	}
	signed, err := c.signer.SignEvent(ctx, unsigned)
	if err != nil {
		f := signerFailure(err, SigningRejected)
		c.emit(ctx, events.TopicError, events.ErrorSignal{Error: f.Reason.String(), Details: f.Detail})
		return nil, f
	}
	return signed, nil
}

// advance moves the machine to next if attempt is still the current one.
func (c *Controller) advance(attempt string, next State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.attemptID != attempt {
		return false
	}
	c.state = next
	return true
}

// fail records a terminal failure for attempt, unless a newer attempt has
// taken over, in which case the failure is discarded silently.
func (c *Controller) fail(ctx context.Context, attempt string, f *Failure) error {
	c.mu.Lock()
	if c.attemptID != attempt {
		c.mu.Unlock()
		return ErrSuperseded
	}
	c.state = Failed
	c.failure = f
	c.mu.Unlock()

	c.logger.Warn("login attempt failed", "reason", f.Reason.String(), "detail", f.Detail)
	c.emit(ctx, events.TopicError, events.ErrorSignal{Error: f.Reason.String(), Details: f.Detail})
	return f
}

func (c *Controller) emit(ctx context.Context, topic string, payload any) {
	if err := c.bus.Publish(ctx, topic, payload); err != nil {
		c.logger.Warn("failed to publish signal", "topic", topic, "error", err)
	}
}

// signerFailure maps an adapter error onto the handshake taxonomy, preserving
// the signer's own detail text.
func signerFailure(err error, fallback FailureReason) *Failure {
	kind := signer.ErrSigningRejected
	if fallback == IdentityUnavailable {
		kind = signer.ErrIdentityUnavailable
	}
	serr := signer.AsError(err, kind)
	reason := fallback
	switch serr.Kind {
	case signer.ErrSignerUnavailable:
		reason = NoSigner
	case signer.ErrIdentityUnavailable:
		reason = IdentityUnavailable
	case signer.ErrSigningRejected:
		reason = SigningRejected
	case signer.ErrCapabilityMissing:
		reason = fallback
	}
	return &Failure{Reason: reason, Detail: serr.Detail}
}
