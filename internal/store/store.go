package store

import (
	"context"
	"errors"

	"github.com/Razue/sammelkarten-sub002/internal/model"
)

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the persistence contract the bridge depends on: published
// signed events, server sessions, and the read-side card catalog. The
// storage engine behind it is a collaborator, not part of the protocol.
type Store interface {
	// Published events
	SaveEvent(ctx context.Context, ev *model.Event) (*model.PublishedEvent, error)
	GetEventByAddress(ctx context.Context, kind int, pubkey, dTag string) (*model.PublishedEvent, error)
	ListEventsByKind(ctx context.Context, kind int) ([]*model.PublishedEvent, error)
	ListEvents(ctx context.Context) ([]*model.PublishedEvent, error)

	// Sessions
	CreateSession(ctx context.Context, sess *model.ServerSession) error
	GetSession(ctx context.Context, token string) (*model.ServerSession, error)
	// DeleteSession is idempotent; deleting an absent session is not an error.
	DeleteSession(ctx context.Context, token string) error

	// Cards (read-only; card CRUD and price simulation live elsewhere)
	GetCard(ctx context.Context, id string) (*model.Card, error)
	ListCards(ctx context.Context) ([]*model.Card, error)

	// Lifecycle
	Close() error
}
