package server

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestStreamHub_Broadcast(t *testing.T) {
	hub := newStreamHub()
	c := hub.subscribe(nil)
	defer hub.unsubscribe(c)

	hub.broadcast("sk.cards.definition_published", []byte(`{"card_id":"c1"}`))

	select {
	case ev := <-c.ch:
		if ev.topic != "sk.cards.definition_published" || ev.seq != 1 {
			t.Errorf("event = %+v", ev)
		}
	default:
		t.Fatal("no event delivered")
	}
}

func TestStreamHub_TopicFilter(t *testing.T) {
	hub := newStreamHub()
	c := hub.subscribe([]string{"sk.index.*"})
	defer hub.unsubscribe(c)

	hub.broadcast("sk.cards.definition_published", []byte(`{}`))
	hub.broadcast("sk.index.rebuilt", []byte(`{}`))

	select {
	case ev := <-c.ch:
		if ev.topic != "sk.index.rebuilt" {
			t.Errorf("delivered topic = %q", ev.topic)
		}
	default:
		t.Fatal("no event delivered")
	}
	select {
	case ev := <-c.ch:
		t.Errorf("unexpected second event %+v", ev)
	default:
	}
}

func TestStreamHub_Since(t *testing.T) {
	hub := newStreamHub()
	hub.broadcast("a.one", []byte(`1`))
	hub.broadcast("a.two", []byte(`2`))
	hub.broadcast("a.three", []byte(`3`))

	got := hub.since(1)
	if len(got) != 2 {
		t.Fatalf("since(1) = %d events, want 2", len(got))
	}
	if got[0].topic != "a.two" || got[1].topic != "a.three" {
		t.Errorf("since order = %q, %q", got[0].topic, got[1].topic)
	}
}

func TestStreamHub_BacklogBounded(t *testing.T) {
	hub := newStreamHub()
	for range streamBacklogSize + 10 {
		hub.broadcast("a.b", []byte(`{}`))
	}
	if got := len(hub.since(0)); got != streamBacklogSize {
		t.Errorf("backlog = %d, want %d", got, streamBacklogSize)
	}
}

func TestEventStream_Replay(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	env.server.hub.broadcast("sk.cards.definition_published", []byte(`{"card_id":"c1"}`))
	env.server.hub.broadcast("sk.index.rebuilt", []byte(`{"addresses":1}`))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/events/stream?topics=sk.index.*", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Last-Event-ID", "0")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}

	// The filtered replay delivers only the index event.
	scanner := bufio.NewScanner(resp.Body)
	var lines []string
	for scanner.Scan() {
		line := scanner.Text()
		lines = append(lines, line)
		if strings.HasPrefix(line, "data:") {
			break
		}
	}
	joined := strings.Join(lines, "\n")
	if !strings.Contains(joined, "event:sk.index.rebuilt") {
		t.Errorf("replay missing index event:\n%s", joined)
	}
	if strings.Contains(joined, "definition_published") {
		t.Errorf("filter leaked cards event:\n%s", joined)
	}
	cancel()
}
