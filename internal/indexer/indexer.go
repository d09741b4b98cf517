// Package indexer maintains the derived address index over published events:
// for every replaceable address "kind:pubkey:d" it tracks the current event.
// The index is a rebuildable view — the store holds the authoritative copy —
// so it can always be reconstructed from persisted events.
package indexer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/Razue/sammelkarten-sub002/internal/model"
	"github.com/Razue/sammelkarten-sub002/internal/store"
)

// entry is the indexed view of one address.
type entry struct {
	eventID   string
	kind      int
	createdAt int64
}

// Indexer is safe for concurrent use. Individual Apply calls and reads may
// run concurrently; Rebuild takes the write lock for its swap so it excludes
// concurrent Apply mutations, while readers see the previous index until the
// swap completes.
type Indexer struct {
	store store.Store

	mu          sync.RWMutex
	started     bool
	entries     map[string]entry
	lastRebuild time.Time
}

// Snapshot is a read-only diagnostic view of the index.
type Snapshot struct {
	Available   bool        `json:"available"`
	Addresses   int         `json:"addresses"`
	ByKind      map[int]int `json:"by_kind,omitempty"`
	LastRebuild time.Time   `json:"last_rebuild,omitzero"`
}

// New returns an indexer over the given store. The index is unavailable
// until the first Rebuild.
func New(s store.Store) *Indexer {
	return &Indexer{store: s}
}

// Apply folds a single published event into the index. For a contested
// address the newest created_at wins; on a timestamp tie the lexicographically
// smaller event id wins, so replay order never changes the outcome.
func (ix *Indexer) Apply(ev *model.Event) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.entries == nil {
		ix.entries = make(map[string]entry)
	}
	ix.started = true
	applyEntry(ix.entries, ev.Address(), entry{
		eventID:   ev.ID,
		kind:      ev.Kind,
		createdAt: int64(ev.CreatedAt),
	})
}

func applyEntry(entries map[string]entry, addr string, e entry) {
	cur, ok := entries[addr]
	if !ok || e.createdAt > cur.createdAt ||
		(e.createdAt == cur.createdAt && e.eventID < cur.eventID) {
		entries[addr] = e
	}
}

// Rebuild reconstructs the whole index from persisted events. It is
// idempotent: two consecutive rebuilds with no intervening publishes yield
// equal snapshots (apart from the rebuild timestamp).
func (ix *Indexer) Rebuild(ctx context.Context) error {
	events, err := ix.store.ListEvents(ctx)
	if err != nil {
		return fmt.Errorf("listing published events: %w", err)
	}

	fresh := make(map[string]entry, len(events))
	for _, pe := range events {
		var ev model.Event
		if err := json.Unmarshal(pe.Raw, &ev); err != nil {
			// A row that no longer parses cannot poison the rebuild.
			continue
		}
		applyEntry(fresh, ev.Address(), entry{
			eventID:   ev.ID,
			kind:      ev.Kind,
			createdAt: int64(ev.CreatedAt),
		})
	}

	ix.mu.Lock()
	ix.entries = fresh
	ix.started = true
	ix.lastRebuild = time.Now().UTC()
	ix.mu.Unlock()
	return nil
}

// Current returns the event id currently indexed at the given address.
func (ix *Indexer) Current(kind int, pubkey, dTag string) (string, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	e, ok := ix.entries[fmt.Sprintf("%d:%s:%s", kind, pubkey, dTag)]
	if !ok {
		return "", false
	}
	return e.eventID, true
}

// State returns a diagnostic snapshot. Before the indexer has been started
// it reports Available=false rather than failing.
func (ix *Indexer) State() Snapshot {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	if !ix.started {
		return Snapshot{Available: false}
	}
	snap := Snapshot{
		Available:   true,
		Addresses:   len(ix.entries),
		ByKind:      make(map[int]int),
		LastRebuild: ix.lastRebuild,
	}
	for _, e := range ix.entries {
		snap.ByKind[e.kind]++
	}
	return snap
}
