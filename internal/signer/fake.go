package signer

import (
	"context"
	"errors"

	"github.com/nbd-wtf/go-nostr"

	"github.com/Razue/sammelkarten-sub002/internal/model"
)

// Fake is a deterministic Capability for tests. Zero value signs everything
// as Pubkey with a fixed placeholder signature; the Reject* fields script
// declines.
type Fake struct {
	Pubkey string

	RejectIdentity error // returned by GetPublicKey when non-nil
	RejectSign     error // returned by SignEvent when non-nil
	NoEncrypt      bool  // when true the Fake does not advertise nip04

	SignCalls     int
	IdentityCalls int
}

var _ Capability = (*Fake)(nil)

func (f *Fake) GetPublicKey(_ context.Context) (string, error) {
	f.IdentityCalls++
	if f.RejectIdentity != nil {
		return "", f.RejectIdentity
	}
	return f.Pubkey, nil
}

func (f *Fake) SignEvent(_ context.Context, ev *model.Event) (*model.Event, error) {
	f.SignCalls++
	if f.RejectSign != nil {
		return nil, f.RejectSign
	}
	signed := &model.Event{Event: nostr.Event{
		PubKey:    f.Pubkey,
		CreatedAt: ev.CreatedAt,
		Kind:      ev.Kind,
		Tags:      append(nostr.Tags{}, ev.Tags...),
		Content:   ev.Content,
	}}
	signed.ID = signed.GetID()
	signed.Sig = "fakesig"
	return signed, nil
}

// fakeEncryptor wraps a Fake to advertise the nip04 sub-capability.
type fakeEncryptor struct{ *Fake }

func (f fakeEncryptor) Encrypt(_ context.Context, peerPubkey, plaintext string) (string, error) {
	return "enc:" + peerPubkey + ":" + plaintext, nil
}

func (f fakeEncryptor) Decrypt(_ context.Context, peerPubkey, ciphertext string) (string, error) {
	prefix := "enc:" + peerPubkey + ":"
	if len(ciphertext) < len(prefix) || ciphertext[:len(prefix)] != prefix {
		return "", errors.New("malformed ciphertext")
	}
	return ciphertext[len(prefix):], nil
}

// NewFakeCapability returns f, wrapped with a fake nip04 layer unless
// f.NoEncrypt is set.
func NewFakeCapability(f *Fake) Capability {
	if f.NoEncrypt {
		return f
	}
	return fakeEncryptor{f}
}
