package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Razue/sammelkarten-sub002/internal/model"
	"github.com/Razue/sammelkarten-sub002/internal/store"
)

// eventColumns is the column list used for SELECT statements on the
// published_events table.
const eventColumns = `id, event_id, pubkey, kind, d_tag, created_at, raw, published_at`

// executor is the interface satisfied by both *sql.DB and *sql.Tx.
type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func querySaveEvent(ctx context.Context, db executor, ev *model.Event) (*model.PublishedEvent, error) {
	raw, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}

	pe := &model.PublishedEvent{
		EventID:   ev.ID,
		Pubkey:    ev.PubKey,
		Kind:      ev.Kind,
		DTag:      ev.DTag(),
		CreatedAt: int64(ev.CreatedAt),
		Raw:       raw,
	}

	// Upsert on event_id: redelivering the same signed event is a no-op
	// apart from refreshing published_at.
	row := db.QueryRowContext(ctx, `
		INSERT INTO published_events (event_id, pubkey, kind, d_tag, created_at, raw, published_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (event_id) DO UPDATE SET published_at = EXCLUDED.published_at
		RETURNING id, published_at`,
		pe.EventID, pe.Pubkey, pe.Kind, pe.DTag, pe.CreatedAt, pe.Raw, time.Now().UTC(),
	)
	if err := row.Scan(&pe.ID, &pe.PublishedAt); err != nil {
		return nil, fmt.Errorf("insert published event: %w", err)
	}
	return pe, nil
}

func queryGetEventByAddress(ctx context.Context, db executor, kind int, pubkey, dTag string) (*model.PublishedEvent, error) {
	row := db.QueryRowContext(ctx, `
		SELECT `+eventColumns+` FROM published_events
		WHERE kind = $1 AND pubkey = $2 AND d_tag = $3
		ORDER BY created_at DESC, event_id ASC
		LIMIT 1`,
		kind, pubkey, dTag,
	)
	pe, err := scanPublishedEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return pe, err
}

func queryListEvents(ctx context.Context, db executor, kind *int) ([]*model.PublishedEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM published_events`
	var args []any
	if kind != nil {
		query += ` WHERE kind = $1`
		args = append(args, *kind)
	}
	query += ` ORDER BY created_at ASC, id ASC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.PublishedEvent
	for rows.Next() {
		pe, err := scanPublishedEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, pe)
	}
	return out, rows.Err()
}

func queryCreateSession(ctx context.Context, db executor, sess *model.ServerSession) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO sessions (token, pubkey, csrf_token, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (token) DO NOTHING`,
		sess.Token, sess.Pubkey, sess.CSRFToken, sess.CreatedAt,
	)
	return err
}

func queryGetSession(ctx context.Context, db executor, token string) (*model.ServerSession, error) {
	row := db.QueryRowContext(ctx, `
		SELECT token, pubkey, csrf_token, created_at FROM sessions WHERE token = $1`,
		token,
	)
	var sess model.ServerSession
	err := row.Scan(&sess.Token, &sess.Pubkey, &sess.CSRFToken, &sess.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func queryDeleteSession(ctx context.Context, db executor, token string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM sessions WHERE token = $1`, token)
	return err
}

func queryGetCard(ctx context.Context, db executor, id string) (*model.Card, error) {
	row := db.QueryRowContext(ctx, `
		SELECT id, name, slug, rarity, image_url, price_sats, updated_at
		FROM cards WHERE id = $1`,
		id,
	)
	card, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return card, err
}

func queryListCards(ctx context.Context, db executor) ([]*model.Card, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, name, slug, rarity, image_url, price_sats, updated_at
		FROM cards ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Card
	for rows.Next() {
		card, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, card)
	}
	return out, rows.Err()
}
