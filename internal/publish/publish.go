// Package publish implements the admin publishing workflow: mapping card
// records to kind-30452 definition events, signing them with the server-held
// identity, persisting them, and folding them into the index. The admin path
// signs server-side; it never touches a user's signer.
package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Razue/sammelkarten-sub002/internal/events"
	"github.com/Razue/sammelkarten-sub002/internal/indexer"
	"github.com/Razue/sammelkarten-sub002/internal/model"
	"github.com/Razue/sammelkarten-sub002/internal/schema"
	"github.com/Razue/sammelkarten-sub002/internal/signer"
	"github.com/Razue/sammelkarten-sub002/internal/store"
)

// ErrorKind classifies publish failures.
type ErrorKind int

const (
	// NotFound means the referenced card record does not exist.
	NotFound ErrorKind = iota
	// SigningFailed means the server identity could not sign the event.
	SigningFailed
	// StorageFailed means the signed event could not be persisted.
	StorageFailed
)

func (k ErrorKind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case SigningFailed:
		return "signing_failed"
	case StorageFailed:
		return "storage_failed"
	default:
		return "unknown"
	}
}

// Error is a tagged publish failure for one card.
type Error struct {
	Kind   ErrorKind
	CardID string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("publish %s: %s: %v", e.CardID, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// BatchFailure records one failed record in a best-effort batch.
type BatchFailure struct {
	CardID string `json:"card_id"`
	Reason string `json:"reason"`
}

// BatchResult aggregates a best-effort batch publish. A failure on one
// record never aborts the remainder.
type BatchResult struct {
	Succeeded []*model.Event `json:"succeeded"`
	Failed    []BatchFailure `json:"failed,omitempty"`
}

// Workflow orchestrates admin publishing.
type Workflow struct {
	store   store.Store
	signer  *signer.Adapter
	builder *schema.Builder
	index   *indexer.Indexer
	bus     events.Publisher
	logger  *slog.Logger
}

// New assembles a workflow. bus may be a NoopPublisher; logger nil defaults
// to slog.Default().
func New(s store.Store, adapter *signer.Adapter, builder *schema.Builder, ix *indexer.Indexer, bus events.Publisher, logger *slog.Logger) *Workflow {
	if logger == nil {
		logger = slog.Default()
	}
	return &Workflow{store: s, signer: adapter, builder: builder, index: ix, bus: bus, logger: logger}
}

// PublishCardDefinition publishes the definition event for one card. The
// returned event is the signed, persisted value; errors are tagged with a
// publish kind the caller can map onto a response.
func (w *Workflow) PublishCardDefinition(ctx context.Context, cardID string) (*model.Event, error) {
	card, err := w.store.GetCard(ctx, cardID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, &Error{Kind: NotFound, CardID: cardID, Err: err}
		}
		return nil, &Error{Kind: StorageFailed, CardID: cardID, Err: err}
	}

	pubkey, err := w.signer.GetPublicKey(ctx)
	if err != nil {
		return nil, &Error{Kind: SigningFailed, CardID: cardID, Err: err}
	}

	unsigned, err := w.builder.BuildCardDefinitionEvent(pubkey, card)
	if err != nil {
		return nil, &Error{Kind: SigningFailed, CardID: cardID, Err: err}
	}

	signed, err := w.signer.SignEvent(ctx, unsigned)
	if err != nil {
		return nil, &Error{Kind: SigningFailed, CardID: cardID, Err: err}
	}

	if _, err := w.store.SaveEvent(ctx, signed); err != nil {
		return nil, &Error{Kind: StorageFailed, CardID: cardID, Err: err}
	}

	w.index.Apply(signed)

	// Broadcasting is best-effort: the event is already persisted and indexed.
	if err := w.bus.Publish(ctx, events.TopicCardPublished, events.CardPublished{CardID: cardID, Event: signed}); err != nil {
		w.logger.Warn("failed to broadcast card publish", "card_id", cardID, "error", err)
	}

	return signed, nil
}

// PublishCardDefinitions publishes a batch of cards best-effort: records are
// processed independently and per-record failures are aggregated rather than
// aborting the batch.
func (w *Workflow) PublishCardDefinitions(ctx context.Context, cardIDs []string) *BatchResult {
	result := &BatchResult{}
	for _, id := range cardIDs {
		ev, err := w.PublishCardDefinition(ctx, id)
		if err != nil {
			w.logger.Warn("batch publish record failed", "card_id", id, "error", err)
			result.Failed = append(result.Failed, BatchFailure{CardID: id, Reason: err.Error()})
			continue
		}
		result.Succeeded = append(result.Succeeded, ev)
	}
	return result
}

// RebuildIndex rebuilds the derived index from persisted events.
func (w *Workflow) RebuildIndex(ctx context.Context) error {
	if err := w.index.Rebuild(ctx); err != nil {
		return err
	}
	snap := w.index.State()
	if err := w.bus.Publish(ctx, events.TopicIndexRebuilt, events.IndexRebuilt{Addresses: snap.Addresses}); err != nil {
		w.logger.Warn("failed to broadcast index rebuild", "error", err)
	}
	return nil
}

// IndexerState returns the diagnostic snapshot of the index.
func (w *Workflow) IndexerState() indexer.Snapshot {
	return w.index.State()
}
