package schema

import (
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/Razue/sammelkarten-sub002/internal/model"
)

// fixedClock returns a Clock pinned to the given unix-millisecond instant.
func fixedClock(unixMilli int64) Clock {
	return func() time.Time { return time.UnixMilli(unixMilli).UTC() }
}

func TestBuildAuthEvent(t *testing.T) {
	b := New(fixedClock(1700000000000))

	ev := b.BuildAuthEvent("abc123", "chal1", "")
	if ev.Kind != model.KindAuth {
		t.Errorf("Kind = %d, want %d", ev.Kind, model.KindAuth)
	}
	if ev.PubKey != "abc123" {
		t.Errorf("PubKey = %q", ev.PubKey)
	}
	if int64(ev.CreatedAt) != 1700000000 {
		t.Errorf("CreatedAt = %d, want 1700000000", ev.CreatedAt)
	}
	if ev.Content != "" {
		t.Errorf("Content = %q, want empty", ev.Content)
	}
	if len(ev.Tags) != 1 || ev.Tags[0][0] != "challenge" || ev.Tags[0][1] != "chal1" {
		t.Errorf("Tags = %v, want [[challenge chal1]]", ev.Tags)
	}
	if ev.Signed() {
		t.Error("builder output must be unsigned")
	}
}

func TestBuildAuthEvent_RelayTag(t *testing.T) {
	b := New(fixedClock(1700000000000))

	ev := b.BuildAuthEvent("abc123", "chal1", "wss://relay.example.com")
	if len(ev.Tags) != 2 {
		t.Fatalf("Tags = %v, want challenge + relay", ev.Tags)
	}
	if ev.Tags[1][0] != "relay" || ev.Tags[1][1] != "wss://relay.example.com" {
		t.Errorf("relay tag = %v", ev.Tags[1])
	}

	// An empty relay hint must not leave an empty-string tag behind.
	ev = b.BuildAuthEvent("abc123", "chal1", "")
	for _, tag := range ev.Tags {
		if tag[0] == "relay" {
			t.Errorf("unexpected relay tag %v for empty relay URL", tag)
		}
	}
}

func TestBuildProfileEvent_VerbatimContent(t *testing.T) {
	b := New(fixedClock(1700000000000))

	profile := map[string]any{
		"name":    "satoshi",
		"about":   "card collector",
		"website": "https://example.com",
		"custom":  float64(42), // unknown fields pass through unfiltered
	}
	ev, err := b.BuildProfileEvent("abc123", profile)
	if err != nil {
		t.Fatalf("BuildProfileEvent: %v", err)
	}
	if ev.Kind != model.KindProfileMetadata {
		t.Errorf("Kind = %d, want %d", ev.Kind, model.KindProfileMetadata)
	}
	if len(ev.Tags) != 0 {
		t.Errorf("Tags = %v, want empty", ev.Tags)
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(ev.Content), &decoded); err != nil {
		t.Fatalf("content is not valid JSON: %v", err)
	}
	for k, want := range profile {
		if got := decoded[k]; got != want {
			t.Errorf("content[%q] = %v, want %v", k, got, want)
		}
	}
}

func TestBuildTradeOfferEvent_DTagUniqueAcrossEpochs(t *testing.T) {
	offer := model.OfferData{CardID: "card1", OfferType: "sell", PriceSats: 2100, ExpiresAt: 1700003600}

	first, err := New(fixedClock(1700000000000)).BuildTradeOfferEvent("abc123", offer)
	if err != nil {
		t.Fatalf("BuildTradeOfferEvent: %v", err)
	}
	second, err := New(fixedClock(1700000000001)).BuildTradeOfferEvent("abc123", offer)
	if err != nil {
		t.Fatalf("BuildTradeOfferEvent: %v", err)
	}

	if first.DTag() == second.DTag() {
		t.Errorf("d tags collide across epochs: %q", first.DTag())
	}
	if want := "trade_card1_1700000000000"; first.DTag() != want {
		t.Errorf("DTag = %q, want %q", first.DTag(), want)
	}
}

func TestBuildTradeOfferEvent_TagsAgreeWithContent(t *testing.T) {
	offer := model.OfferData{CardID: "card1", OfferType: "buy", PriceSats: 5000, ExpiresAt: 1700007200}

	ev, err := New(fixedClock(1700000000000)).BuildTradeOfferEvent("abc123", offer)
	if err != nil {
		t.Fatalf("BuildTradeOfferEvent: %v", err)
	}

	var decoded model.OfferData
	if err := json.Unmarshal([]byte(ev.Content), &decoded); err != nil {
		t.Fatalf("content is not valid JSON: %v", err)
	}
	if decoded != offer {
		t.Errorf("content = %+v, want %+v", decoded, offer)
	}

	if got := ev.TagValue("card"); got != decoded.CardID {
		t.Errorf("card tag %q != content card_id %q", got, decoded.CardID)
	}
	if got := ev.TagValue("type"); got != decoded.OfferType {
		t.Errorf("type tag %q != content offer_type %q", got, decoded.OfferType)
	}
	price, err := strconv.ParseInt(ev.TagValue("price"), 10, 64)
	if err != nil || price != decoded.PriceSats {
		t.Errorf("price tag %q != content price %d", ev.TagValue("price"), decoded.PriceSats)
	}
	expires, err := strconv.ParseInt(ev.TagValue("expires"), 10, 64)
	if err != nil || expires != decoded.ExpiresAt {
		t.Errorf("expires tag %q != content expires_at %d", ev.TagValue("expires"), decoded.ExpiresAt)
	}
}

func TestBuildTradeAcceptEvent(t *testing.T) {
	trade := model.TradeData{
		TradeID:      "t42",
		CardID:       "card1",
		BuyerPubkey:  "buyerpk",
		SellerPubkey: "sellerpk",
		PriceSats:    2100,
	}

	ev, err := New(fixedClock(1700000000000)).BuildTradeAcceptEvent("abc123", trade)
	if err != nil {
		t.Fatalf("BuildTradeAcceptEvent: %v", err)
	}
	if ev.Kind != model.KindTradeAcceptance {
		t.Errorf("Kind = %d, want %d", ev.Kind, model.KindTradeAcceptance)
	}
	if want := "execution_t42"; ev.DTag() != want {
		t.Errorf("DTag = %q, want %q", ev.DTag(), want)
	}
	if got := ev.TagValue("buyer"); got != "buyerpk" {
		t.Errorf("buyer tag = %q", got)
	}
	if got := ev.TagValue("seller"); got != "sellerpk" {
		t.Errorf("seller tag = %q", got)
	}
	if got := ev.TagValue("trade"); got != "t42" {
		t.Errorf("trade tag = %q", got)
	}
	if got := ev.TagValue("card"); got != "card1" {
		t.Errorf("card tag = %q", got)
	}

	var decoded model.TradeData
	if err := json.Unmarshal([]byte(ev.Content), &decoded); err != nil {
		t.Fatalf("content is not valid JSON: %v", err)
	}
	if decoded != trade {
		t.Errorf("content = %+v, want %+v", decoded, trade)
	}
}

func TestBuildCardDefinitionEvent(t *testing.T) {
	card := &model.Card{ID: "card1", Name: "Genesis", Slug: "genesis", Rarity: "legendary", PriceSats: 100000}

	ev, err := New(fixedClock(1700000000000)).BuildCardDefinitionEvent("adminpk", card)
	if err != nil {
		t.Fatalf("BuildCardDefinitionEvent: %v", err)
	}
	if ev.Kind != model.KindCardDefinition {
		t.Errorf("Kind = %d, want %d", ev.Kind, model.KindCardDefinition)
	}
	if want := "card_card1"; ev.DTag() != want {
		t.Errorf("DTag = %q, want %q", ev.DTag(), want)
	}
	if got := ev.TagValue("price"); got != "100000" {
		t.Errorf("price tag = %q, want stringified 100000", got)
	}
}

func TestBuilderOutputsPassShapeValidation(t *testing.T) {
	b := New(fixedClock(1700000000000))

	profile, err := b.BuildProfileEvent("abc123", map[string]any{"name": "n"})
	if err != nil {
		t.Fatalf("BuildProfileEvent: %v", err)
	}
	offer, err := b.BuildTradeOfferEvent("abc123", model.OfferData{CardID: "c", OfferType: "buy"})
	if err != nil {
		t.Fatalf("BuildTradeOfferEvent: %v", err)
	}
	accept, err := b.BuildTradeAcceptEvent("abc123", model.TradeData{TradeID: "t"})
	if err != nil {
		t.Fatalf("BuildTradeAcceptEvent: %v", err)
	}

	for _, ev := range []*model.Event{
		b.BuildAuthEvent("abc123", "chal1", ""),
		profile,
		offer,
		accept,
	} {
		raw, err := json.Marshal(ev)
		if err != nil {
			t.Fatalf("marshal kind %d: %v", ev.Kind, err)
		}
		if !model.ValidateEventShape(raw) {
			t.Errorf("builder output for kind %d failed shape validation: %s", ev.Kind, raw)
		}
	}
}
