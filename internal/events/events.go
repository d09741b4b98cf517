package events

import (
	"context"

	"github.com/Razue/sammelkarten-sub002/internal/model"
	"github.com/Razue/sammelkarten-sub002/internal/signer"
)

// Signal topics. Client-side signals (the bridge's outbound channel to its
// host UI) live under sk.nostr.*, sk.profile.* and sk.trade.*; server-side
// publishing topics under sk.cards.* and sk.index.*.
const (
	TopicSupportStatus    = "sk.nostr.support_status"
	TopicPubkeyReceived   = "sk.nostr.pubkey_received"
	TopicAuthSigned       = "sk.nostr.auth_signed"
	TopicError            = "sk.nostr.error"
	TopicEventSigned      = "sk.nostr.event_signed"
	TopicMessageEncrypted = "sk.nostr.message_encrypted"
	TopicMessageDecrypted = "sk.nostr.message_decrypted"
	TopicLoggedOut        = "sk.nostr.logged_out"

	TopicProfileUpdated   = "sk.profile.updated"
	TopicProfileRequested = "sk.profile.requested"
	TopicTradeOffer       = "sk.trade.offer_created"
	TopicTradeAccepted    = "sk.trade.accepted"

	TopicCardPublished = "sk.cards.definition_published"
	TopicIndexRebuilt  = "sk.index.rebuilt"
)

// Signal payloads. Every payload marshals to JSON for the NATS bus; the
// in-process registry delivers the typed values directly.

type SupportStatus struct {
	Detection signer.Detection `json:"detection"`
}

type PubkeyReceived struct {
	Pubkey string `json:"pubkey"`
}

type AuthSigned struct {
	EventID   string `json:"event_id"`
	Challenge string `json:"challenge"`
}

// ErrorSignal carries a short label plus free-text detail; it is the only
// error shape that crosses into the host UI.
type ErrorSignal struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

type EventSigned struct {
	Label string       `json:"label"` // caller-supplied, defaults to "event_signed"
	Event *model.Event `json:"event"`
}

type MessageEncrypted struct {
	PeerPubkey string `json:"peer_pubkey"`
	Ciphertext string `json:"ciphertext"`
}

type MessageDecrypted struct {
	PeerPubkey string `json:"peer_pubkey"`
	Plaintext  string `json:"plaintext"`
}

type LoggedOut struct {
	Pubkey string `json:"pubkey,omitempty"`
}

type ProfileUpdated struct {
	Pubkey string       `json:"pubkey"`
	Event  *model.Event `json:"event"`
}

type ProfileRequested struct {
	Pubkey string `json:"pubkey"`
}

type TradeOfferCreated struct {
	Offer model.OfferData `json:"offer"`
	Event *model.Event    `json:"event"`
}

type TradeAccepted struct {
	Trade model.TradeData `json:"trade"`
	Event *model.Event    `json:"event"`
}

type CardPublished struct {
	CardID string       `json:"card_id"`
	Event  *model.Event `json:"event"`
}

type IndexRebuilt struct {
	Addresses int `json:"addresses"`
}

// Publisher is the interface for emitting signals.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}
