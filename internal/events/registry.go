package events

import (
	"context"
	"sync"
)

// Handler receives one dispatched signal.
type Handler func(topic string, payload any)

// Registry is an in-process Publisher that dispatches signals synchronously
// to registered handlers. It is the host-notification channel for code
// embedding the handshake controller directly (skctl, tests); topic patterns
// use the same NATS-style wildcards as the bus.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string][]Handler)}
}

// Subscribe registers h for every topic matching pattern ("sk.nostr.*",
// "sk.>", or an exact topic). Returns an unsubscribe func.
func (r *Registry) Subscribe(pattern string, h Handler) func() {
	r.mu.Lock()
	r.handlers[pattern] = append(r.handlers[pattern], h)
	idx := len(r.handlers[pattern]) - 1
	r.mu.Unlock()
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		hs := r.handlers[pattern]
		if idx < len(hs) {
			hs[idx] = nil
		}
	}
}

// Publish dispatches payload to every handler whose pattern matches topic.
// Dispatch is synchronous: when Publish returns, all handlers have run.
func (r *Registry) Publish(_ context.Context, topic string, payload any) error {
	r.mu.RLock()
	var matched []Handler
	for pattern, hs := range r.handlers {
		if !matchTopic(pattern, topic) {
			continue
		}
		for _, h := range hs {
			if h != nil {
				matched = append(matched, h)
			}
		}
	}
	r.mu.RUnlock()

	for _, h := range matched {
		h(topic, payload)
	}
	return nil
}

func (r *Registry) Close() error { return nil }

// MatchTopic matches a dot-separated topic against a pattern with "*" as a
// single-segment wildcard and ">" as a trailing multi-segment wildcard.
func MatchTopic(pattern, topic string) bool {
	return matchTopic(pattern, topic)
}

func matchTopic(pattern, topic string) bool {
	if pattern == topic {
		return true
	}
	pi, ti := 0, 0
	for pi < len(pattern) {
		pseg, pnext := nextSegment(pattern, pi)
		if pseg == ">" {
			return ti < len(topic)
		}
		if ti >= len(topic) {
			return false
		}
		tseg, tnext := nextSegment(topic, ti)
		if pseg != "*" && pseg != tseg {
			return false
		}
		pi, ti = pnext, tnext
	}
	return ti >= len(topic)
}

func nextSegment(s string, start int) (string, int) {
	for i := start; i < len(s); i++ {
		if s[i] == '.' {
			return s[start:i], i + 1
		}
	}
	return s[start:], len(s) + 1
}
