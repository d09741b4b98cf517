// Package signer adapts an external signing capability behind a uniform
// interface and error shape. The capability is opaque: it can produce a
// public identity and signatures (optionally encrypt/decrypt), it can be
// absent, and any call into it can be declined by its owner. Adapter methods
// collapse all of those outcomes into a tagged *Error; raw faults never
// escape to callers.
package signer

import (
	"context"
	"errors"
	"fmt"

	"github.com/Razue/sammelkarten-sub002/internal/model"
)

// ErrorKind classifies adapter failures.
type ErrorKind int

const (
	// ErrSignerUnavailable means no signing capability is present at all.
	ErrSignerUnavailable ErrorKind = iota
	// ErrIdentityUnavailable means the capability declined to reveal a pubkey.
	ErrIdentityUnavailable
	// ErrSigningRejected means the owner declined the signature or the
	// capability faulted mid-sign.
	ErrSigningRejected
	// ErrCapabilityMissing means an optional sub-capability (encrypt/decrypt)
	// is not advertised by this signer.
	ErrCapabilityMissing
)

func (k ErrorKind) String() string {
	switch k {
	case ErrSignerUnavailable:
		return "signer_unavailable"
	case ErrIdentityUnavailable:
		return "identity_unavailable"
	case ErrSigningRejected:
		return "signing_rejected"
	case ErrCapabilityMissing:
		return "capability_missing"
	default:
		return "unknown"
	}
}

// Error is the uniform failure value for every adapter call.
type Error struct {
	Kind   ErrorKind
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("signer: %s: %s", e.Kind, e.Detail)
}

// AsError extracts a *Error from err, or wraps err as the given kind when the
// failure did not originate in this package.
func AsError(err error, fallback ErrorKind) *Error {
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	return &Error{Kind: fallback, Detail: err.Error()}
}

// Capability is the raw external signing capability: identity plus event
// signatures. Implementations may block awaiting their owner's approval, so
// every call takes a context.
type Capability interface {
	GetPublicKey(ctx context.Context) (string, error)
	// SignEvent returns a new signed event carrying id and sig; it must not
	// mutate its input.
	SignEvent(ctx context.Context, ev *model.Event) (*model.Event, error)
}

// Encryptor is the optional encrypt/decrypt sub-capability (NIP-04 style
// shared-secret messaging with a peer pubkey).
type Encryptor interface {
	Encrypt(ctx context.Context, peerPubkey, plaintext string) (string, error)
	Decrypt(ctx context.Context, peerPubkey, ciphertext string) (string, error)
}

// Detection describes what, if anything, the adapter found.
type Detection struct {
	Present      bool     `json:"present"`
	Label        string   `json:"label,omitempty"`
	Capabilities []string `json:"capabilities,omitempty"`
}

// Adapter wraps a Capability and exposes the bridge's view of it. A nil
// capability is a valid state meaning "no signer installed".
type Adapter struct {
	cap Capability
}

// NewAdapter wraps the given capability. cap may be nil.
func NewAdapter(cap Capability) *Adapter {
	return &Adapter{cap: cap}
}

// Detect reports presence and fingerprints the capability. It never fails:
// an unrecognized capability degrades to the generic label with whatever
// sub-capabilities could be probed.
func (a *Adapter) Detect(ctx context.Context) Detection {
	if a == nil || a.cap == nil {
		return Detection{Present: false}
	}
	d := Detection{
		Present:      true,
		Label:        fingerprintLabel(a.cap),
		Capabilities: []string{"get_public_key", "sign_event"},
	}
	if _, ok := a.cap.(Encryptor); ok {
		d.Capabilities = append(d.Capabilities, "nip04_encrypt", "nip04_decrypt")
	}
	return d
}

// GetPublicKey asks the capability for its identity.
func (a *Adapter) GetPublicKey(ctx context.Context) (string, error) {
	if a == nil || a.cap == nil {
		return "", &Error{Kind: ErrSignerUnavailable, Detail: "no signing capability present"}
	}
	pk, err := a.cap.GetPublicKey(ctx)
	if err != nil {
		return "", AsError(err, ErrIdentityUnavailable)
	}
	return pk, nil
}

// SignEvent asks the capability to sign ev. The caller's event is left
// untouched; the returned value is a new event carrying id and sig.
func (a *Adapter) SignEvent(ctx context.Context, ev *model.Event) (*model.Event, error) {
	if a == nil || a.cap == nil {
		return nil, &Error{Kind: ErrSignerUnavailable, Detail: "no signing capability present"}
	}
	signed, err := a.cap.SignEvent(ctx, ev)
	if err != nil {
		return nil, AsError(err, ErrSigningRejected)
	}
	if !signed.Signed() {
		return nil, &Error{Kind: ErrSigningRejected, Detail: "capability returned an unsigned event"}
	}
	return signed, nil
}

// Encrypt encrypts plaintext to the peer. A signer without the encrypt
// sub-capability surfaces ErrCapabilityMissing, never an ambiguous failure.
func (a *Adapter) Encrypt(ctx context.Context, peerPubkey, plaintext string) (string, error) {
	enc, err := a.encryptor()
	if err != nil {
		return "", err
	}
	out, err := enc.Encrypt(ctx, peerPubkey, plaintext)
	if err != nil {
		return "", AsError(err, ErrSigningRejected)
	}
	return out, nil
}

// Decrypt decrypts ciphertext from the peer.
func (a *Adapter) Decrypt(ctx context.Context, peerPubkey, ciphertext string) (string, error) {
	enc, err := a.encryptor()
	if err != nil {
		return "", err
	}
	out, err := enc.Decrypt(ctx, peerPubkey, ciphertext)
	if err != nil {
		return "", AsError(err, ErrSigningRejected)
	}
	return out, nil
}

func (a *Adapter) encryptor() (Encryptor, error) {
	if a == nil || a.cap == nil {
		return nil, &Error{Kind: ErrSignerUnavailable, Detail: "no signing capability present"}
	}
	enc, ok := a.cap.(Encryptor)
	if !ok {
		return nil, &Error{Kind: ErrCapabilityMissing, Detail: "signer does not support nip04 encryption"}
	}
	return enc, nil
}
