package events

import (
	"context"
	"sync/atomic"
	"testing"
)

func TestRegistry_ExactTopic(t *testing.T) {
	r := NewRegistry()
	var got []string
	r.Subscribe(TopicAuthSigned, func(topic string, payload any) {
		got = append(got, topic)
		if _, ok := payload.(AuthSigned); !ok {
			t.Errorf("payload type %T, want AuthSigned", payload)
		}
	})

	if err := r.Publish(context.Background(), TopicAuthSigned, AuthSigned{EventID: "e1"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := r.Publish(context.Background(), TopicLoggedOut, LoggedOut{}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("handler ran %d times, want 1", len(got))
	}
}

func TestRegistry_Wildcards(t *testing.T) {
	tests := []struct {
		pattern string
		topic   string
		want    bool
	}{
		{"sk.nostr.*", TopicAuthSigned, true},
		{"sk.nostr.*", TopicTradeOffer, false},
		{"sk.>", TopicCardPublished, true},
		{"sk.>", "other.topic", false},
		{"sk.*.auth_signed", TopicAuthSigned, true},
		{"sk.nostr.auth_signed.extra", TopicAuthSigned, false},
		{"sk.nostr", TopicAuthSigned, false},
	}
	for _, tt := range tests {
		if got := matchTopic(tt.pattern, tt.topic); got != tt.want {
			t.Errorf("matchTopic(%q, %q) = %v, want %v", tt.pattern, tt.topic, got, tt.want)
		}
	}
}

func TestRegistry_Unsubscribe(t *testing.T) {
	r := NewRegistry()
	var calls atomic.Int32
	cancel := r.Subscribe("sk.>", func(string, any) { calls.Add(1) })

	r.Publish(context.Background(), TopicError, ErrorSignal{Error: "x"})
	cancel()
	r.Publish(context.Background(), TopicError, ErrorSignal{Error: "y"})

	if n := calls.Load(); n != 1 {
		t.Errorf("handler ran %d times after unsubscribe, want 1", n)
	}
}

func TestRegistry_MultipleHandlers(t *testing.T) {
	r := NewRegistry()
	var a, b atomic.Int32
	r.Subscribe(TopicError, func(string, any) { a.Add(1) })
	r.Subscribe("sk.nostr.*", func(string, any) { b.Add(1) })

	r.Publish(context.Background(), TopicError, ErrorSignal{Error: "boom", Details: "detail"})

	if a.Load() != 1 || b.Load() != 1 {
		t.Errorf("handlers ran %d/%d times, want 1/1", a.Load(), b.Load())
	}
}
