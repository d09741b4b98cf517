package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Razue/sammelkarten-sub002/internal/events"
)

const (
	// streamBacklogSize is how many recent events are kept for
	// Last-Event-ID reconnection.
	streamBacklogSize = 256

	// streamKeepaliveInterval is how often keepalive comments are sent.
	streamKeepaliveInterval = 15 * time.Second
)

// streamEvent is one broadcast entry.
type streamEvent struct {
	seq   uint64
	topic string
	data  []byte
}

// streamClient is one connected SSE consumer with optional topic filters.
type streamClient struct {
	patterns []string
	ch       chan streamEvent
}

func (c *streamClient) wants(topic string) bool {
	if len(c.patterns) == 0 {
		return true
	}
	for _, p := range c.patterns {
		if events.MatchTopic(p, topic) {
			return true
		}
	}
	return false
}

// streamHub fans published events out to SSE clients, keeping a bounded
// backlog for reconnects.
type streamHub struct {
	mu      sync.Mutex
	clients map[*streamClient]struct{}
	backlog []streamEvent
	nextSeq uint64
}

func newStreamHub() *streamHub {
	return &streamHub{clients: make(map[*streamClient]struct{})}
}

// broadcast appends to the backlog and delivers to every matching client.
// Slow clients are skipped rather than blocking the publisher.
func (h *streamHub) broadcast(topic string, data []byte) {
	h.mu.Lock()
	h.nextSeq++
	ev := streamEvent{seq: h.nextSeq, topic: topic, data: data}
	h.backlog = append(h.backlog, ev)
	if len(h.backlog) > streamBacklogSize {
		h.backlog = h.backlog[len(h.backlog)-streamBacklogSize:]
	}
	for c := range h.clients {
		if !c.wants(topic) {
			continue
		}
		select {
		case c.ch <- ev:
		default:
		}
	}
	h.mu.Unlock()
}

func (h *streamHub) subscribe(patterns []string) *streamClient {
	c := &streamClient{patterns: patterns, ch: make(chan streamEvent, 64)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *streamHub) unsubscribe(c *streamClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// since returns backlog entries with seq > lastSeq, oldest first.
func (h *streamHub) since(lastSeq uint64) []streamEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []streamEvent
	for _, ev := range h.backlog {
		if ev.seq > lastSeq {
			out = append(out, ev)
		}
	}
	return out
}

// handleEventStream handles GET /v1/events/stream. Clients may filter with
// ?topics=sk.cards.*,sk.index.* and resume with Last-Event-ID.
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	var patterns []string
	for _, p := range strings.Split(r.URL.Query().Get("topics"), ",") {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}

	client := s.hub.subscribe(patterns)
	defer s.hub.unsubscribe(client)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	if lastStr := r.Header.Get("Last-Event-ID"); lastStr != "" {
		if last, err := strconv.ParseUint(lastStr, 10, 64); err == nil {
			for _, ev := range s.hub.since(last) {
				if client.wants(ev.topic) {
					writeStreamEvent(w, ev)
				}
			}
			flusher.Flush()
		}
	}

	keepalive := time.NewTicker(streamKeepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-client.ch:
			writeStreamEvent(w, ev)
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprint(w, ":keepalive\n\n")
			flusher.Flush()
		}
	}
}

func writeStreamEvent(w http.ResponseWriter, ev streamEvent) {
	fmt.Fprintf(w, "id:%d\nevent:%s\ndata:%s\n\n", ev.seq, ev.topic, ev.data)
}
