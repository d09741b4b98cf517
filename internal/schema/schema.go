// Package schema constructs canonical event payloads for the bridge: auth
// challenge responses, profile metadata, trade offers, trade executions, and
// admin card definitions. Builders are pure given their inputs and the
// injected clock; they perform no I/O and never sign anything.
package schema

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/nbd-wtf/go-nostr"

	"github.com/Razue/sammelkarten-sub002/internal/model"
)

// Clock supplies the current time. Builders take it as a dependency so event
// timestamps stay deterministic under test.
type Clock func() time.Time

// Builder constructs unsigned events. The zero value is not usable; use New.
type Builder struct {
	now Clock
}

// New returns a Builder using the given clock. A nil clock defaults to
// time.Now.
func New(now Clock) *Builder {
	if now == nil {
		now = time.Now
	}
	return &Builder{now: now}
}

// newEvent assembles the shared envelope. Tags is never nil so that every
// built event is structurally complete.
func (b *Builder) newEvent(pubkey string, kind int, tags nostr.Tags, content string) *model.Event {
	if tags == nil {
		tags = nostr.Tags{}
	}
	return &model.Event{Event: nostr.Event{
		PubKey:    pubkey,
		CreatedAt: nostr.Timestamp(b.now().Unix()),
		Kind:      kind,
		Tags:      tags,
		Content:   content,
	}}
}

// BuildAuthEvent returns a kind-22242 challenge response. The relay tag is
// appended only when relayURL is non-empty; an empty relay hint must not
// produce an empty-string tag.
func (b *Builder) BuildAuthEvent(pubkey, challenge, relayURL string) *model.Event {
	tags := nostr.Tags{{"challenge", challenge}}
	if relayURL != "" {
		tags = append(tags, nostr.Tag{"relay", relayURL})
	}
	return b.newEvent(pubkey, model.KindAuth, tags, "")
}

// BuildProfileEvent returns a kind-0 profile metadata event. The profile map
// is encoded verbatim; no fields are filtered or rewritten.
func (b *Builder) BuildProfileEvent(pubkey string, profile map[string]any) (*model.Event, error) {
	content, err := json.Marshal(profile)
	if err != nil {
		return nil, fmt.Errorf("encoding profile: %w", err)
	}
	return b.newEvent(pubkey, model.KindProfileMetadata, nostr.Tags{}, string(content)), nil
}

// BuildTradeOfferEvent returns a kind-32122 trade offer. The d tag embeds the
// creation epoch in milliseconds, so two offers for the same card built at
// different instants never collide. Numeric fields are stringified in tags
// (tags are string-only) and duplicated as JSON in the content.
func (b *Builder) BuildTradeOfferEvent(pubkey string, offer model.OfferData) (*model.Event, error) {
	content, err := json.Marshal(offer)
	if err != nil {
		return nil, fmt.Errorf("encoding offer: %w", err)
	}
	d := fmt.Sprintf("trade_%s_%d", offer.CardID, b.now().UnixMilli())
	tags := nostr.Tags{
		{"d", d},
		{"card", offer.CardID},
		{"type", offer.OfferType},
		{"price", strconv.FormatInt(offer.PriceSats, 10)},
		{"expires", strconv.FormatInt(offer.ExpiresAt, 10)},
	}
	return b.newEvent(pubkey, model.KindTradeOffer, tags, string(content)), nil
}

// BuildTradeAcceptEvent returns a kind-32123 trade execution event keyed by
// the trade ID.
func (b *Builder) BuildTradeAcceptEvent(pubkey string, trade model.TradeData) (*model.Event, error) {
	content, err := json.Marshal(trade)
	if err != nil {
		return nil, fmt.Errorf("encoding trade: %w", err)
	}
	tags := nostr.Tags{
		{"d", "execution_" + trade.TradeID},
		{"trade", trade.TradeID},
		{"buyer", trade.BuyerPubkey},
		{"seller", trade.SellerPubkey},
		{"card", trade.CardID},
	}
	return b.newEvent(pubkey, model.KindTradeAcceptance, tags, string(content)), nil
}

// BuildCardDefinitionEvent returns a kind-30452 card definition for the admin
// publishing path. One definition exists per card, so the d tag is derived
// from the card ID alone and republishing replaces the previous definition.
func (b *Builder) BuildCardDefinitionEvent(pubkey string, card *model.Card) (*model.Event, error) {
	content, err := json.Marshal(card)
	if err != nil {
		return nil, fmt.Errorf("encoding card: %w", err)
	}
	tags := nostr.Tags{
		{"d", "card_" + card.ID},
		{"name", card.Name},
		{"slug", card.Slug},
		{"rarity", card.Rarity},
		{"price", strconv.FormatInt(card.PriceSats, 10)},
	}
	return b.newEvent(pubkey, model.KindCardDefinition, tags, string(content)), nil
}
