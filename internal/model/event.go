package model

import (
	"encoding/json"
	"fmt"

	"github.com/nbd-wtf/go-nostr"
)

// Event kinds published by the bridge. The values are part of the wire
// contract and must not change.
const (
	KindProfileMetadata = 0
	KindAuth            = 22242
	KindCardDefinition  = 30452
	KindTradeOffer      = 32122
	KindTradeAcceptance = 32123
)

// Event is a kind-tagged, optionally signed Nostr event. ID and Sig are
// produced by a signer and passed through untouched; an event with an empty
// Sig has not been signed and must not be presented to the server as signed.
type Event struct {
	nostr.Event
}

// Signed reports whether the event carries a signature.
func (e *Event) Signed() bool {
	return e != nil && e.Sig != ""
}

// TagValue returns the second element of the first tag whose first element
// equals name, or "" when no such tag exists.
func (e *Event) TagValue(name string) string {
	for _, tag := range e.Tags {
		if len(tag) >= 2 && tag[0] == name {
			return tag[1]
		}
	}
	return ""
}

// DTag returns the event's "d" identifier tag, or "" when absent.
func (e *Event) DTag() string {
	return e.TagValue("d")
}

// Address returns the replaceable-event address "kind:pubkey:d" used as the
// index key for published events.
func (e *Event) Address() string {
	return fmt.Sprintf("%d:%s:%s", e.Kind, e.PubKey, e.DTag())
}

// requiredEventFields are the keys a serialized event must carry to be
// considered structurally complete. This is a shape check only; it says
// nothing about the signature.
var requiredEventFields = []string{"kind", "pubkey", "created_at", "tags", "content"}

// ValidateEventShape reports whether raw decodes to a JSON object carrying
// all five required event fields. id and sig are deliberately not required:
// unsigned events produced by the schema builders must also pass.
func ValidateEventShape(raw []byte) bool {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return false
	}
	for _, field := range requiredEventFields {
		if _, ok := obj[field]; !ok {
			return false
		}
	}
	return true
}
