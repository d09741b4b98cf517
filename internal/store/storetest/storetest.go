// Package storetest provides an in-memory store.Store for tests.
package storetest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Razue/sammelkarten-sub002/internal/model"
	"github.com/Razue/sammelkarten-sub002/internal/store"
)

// Memory implements store.Store with in-process maps. Failure injection
// fields let tests script specific error paths.
type Memory struct {
	mu       sync.Mutex
	nextID   int64
	events   []*model.PublishedEvent
	sessions map[string]*model.ServerSession
	cards    map[string]*model.Card

	FailSaveEvent  error // returned by SaveEvent when non-nil
	FailListEvents error // returned by ListEvents when non-nil
}

var _ store.Store = (*Memory)(nil)

// New returns an empty in-memory store.
func New() *Memory {
	return &Memory{
		sessions: make(map[string]*model.ServerSession),
		cards:    make(map[string]*model.Card),
	}
}

// AddCard seeds the card catalog.
func (m *Memory) AddCard(card *model.Card) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cards[card.ID] = card
}

func (m *Memory) SaveEvent(_ context.Context, ev *model.Event) (*model.PublishedEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSaveEvent != nil {
		return nil, m.FailSaveEvent
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	m.nextID++
	pe := &model.PublishedEvent{
		ID:          m.nextID,
		EventID:     ev.ID,
		Pubkey:      ev.PubKey,
		Kind:        ev.Kind,
		DTag:        ev.DTag(),
		CreatedAt:   int64(ev.CreatedAt),
		Raw:         raw,
		PublishedAt: time.Now().UTC(),
	}
	m.events = append(m.events, pe)
	return pe, nil
}

func (m *Memory) GetEventByAddress(_ context.Context, kind int, pubkey, dTag string) (*model.PublishedEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	addr := fmt.Sprintf("%d:%s:%s", kind, pubkey, dTag)
	var best *model.PublishedEvent
	for _, pe := range m.events {
		if fmt.Sprintf("%d:%s:%s", pe.Kind, pe.Pubkey, pe.DTag) != addr {
			continue
		}
		if best == nil || pe.CreatedAt > best.CreatedAt {
			best = pe
		}
	}
	if best == nil {
		return nil, store.ErrNotFound
	}
	return best, nil
}

func (m *Memory) ListEventsByKind(_ context.Context, kind int) ([]*model.PublishedEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.PublishedEvent
	for _, pe := range m.events {
		if pe.Kind == kind {
			out = append(out, pe)
		}
	}
	return out, nil
}

func (m *Memory) ListEvents(_ context.Context) ([]*model.PublishedEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailListEvents != nil {
		return nil, m.FailListEvents
	}
	return append([]*model.PublishedEvent(nil), m.events...), nil
}

func (m *Memory) CreateSession(_ context.Context, sess *model.ServerSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[sess.Token]; exists {
		return nil
	}
	cp := *sess
	m.sessions[sess.Token] = &cp
	return nil
}

func (m *Memory) GetSession(_ context.Context, token string) (*model.ServerSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[token]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *sess
	return &cp, nil
}

func (m *Memory) DeleteSession(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
	return nil
}

func (m *Memory) GetCard(_ context.Context, id string) (*model.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	card, ok := m.cards[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *card
	return &cp, nil
}

func (m *Memory) ListCards(_ context.Context) ([]*model.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Card, 0, len(m.cards))
	for _, card := range m.cards {
		cp := *card
		out = append(out, &cp)
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }

// SessionCount reports how many sessions are live (test assertions).
func (m *Memory) SessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// ErrInjected is a convenience sentinel for failure injection in tests.
var ErrInjected = errors.New("injected failure")
