package signer

import (
	"context"
	"fmt"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip04"

	"github.com/Razue/sammelkarten-sub002/internal/model"
)

// Local is an in-process Capability holding a secp256k1 secret key. The admin
// publishing workflow uses it with the server-held identity; skctl uses it
// with a user-supplied key. It supports the full capability surface including
// NIP-04 encryption.
type Local struct {
	secretKey string
	pubkey    string
}

var _ Capability = (*Local)(nil)
var _ Encryptor = (*Local)(nil)
var _ Labeler = (*Local)(nil)

// NewLocal creates a local signer from a hex-encoded secret key.
func NewLocal(secretKeyHex string) (*Local, error) {
	pk, err := nostr.GetPublicKey(secretKeyHex)
	if err != nil {
		return nil, fmt.Errorf("deriving public key: %w", err)
	}
	return &Local{secretKey: secretKeyHex, pubkey: pk}, nil
}

// Label identifies this integration in detection output.
func (l *Local) Label() string { return "local-key" }

func (l *Local) GetPublicKey(_ context.Context) (string, error) {
	return l.pubkey, nil
}

// SignEvent signs a copy of ev with the local key. The signed event's pubkey
// is forced to the local identity; the input is never modified.
func (l *Local) SignEvent(_ context.Context, ev *model.Event) (*model.Event, error) {
	signed := &model.Event{Event: nostr.Event{
		PubKey:    l.pubkey,
		CreatedAt: ev.CreatedAt,
		Kind:      ev.Kind,
		Tags:      append(nostr.Tags{}, ev.Tags...),
		Content:   ev.Content,
	}}
	if err := signed.Sign(l.secretKey); err != nil {
		return nil, &Error{Kind: ErrSigningRejected, Detail: err.Error()}
	}
	return signed, nil
}

func (l *Local) Encrypt(_ context.Context, peerPubkey, plaintext string) (string, error) {
	shared, err := nip04.ComputeSharedSecret(peerPubkey, l.secretKey)
	if err != nil {
		return "", fmt.Errorf("computing shared secret: %w", err)
	}
	out, err := nip04.Encrypt(plaintext, shared)
	if err != nil {
		return "", fmt.Errorf("encrypting: %w", err)
	}
	return out, nil
}

func (l *Local) Decrypt(_ context.Context, peerPubkey, ciphertext string) (string, error) {
	shared, err := nip04.ComputeSharedSecret(peerPubkey, l.secretKey)
	if err != nil {
		return "", fmt.Errorf("computing shared secret: %w", err)
	}
	out, err := nip04.Decrypt(ciphertext, shared)
	if err != nil {
		return "", fmt.Errorf("decrypting: %w", err)
	}
	return out, nil
}
