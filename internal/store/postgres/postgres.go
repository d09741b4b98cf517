// Package postgres implements the store.Store interface backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/Razue/sammelkarten-sub002/internal/model"
	"github.com/Razue/sammelkarten-sub002/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements store.Store backed by a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// Compile-time check that PostgresStore implements store.Store.
var _ store.Store = (*PostgresStore)(nil)

// New opens a connection to the PostgreSQL database at the given URL,
// configures the connection pool, and runs any pending migrations.
func New(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) SaveEvent(ctx context.Context, ev *model.Event) (*model.PublishedEvent, error) {
	return querySaveEvent(ctx, s.db, ev)
}

func (s *PostgresStore) GetEventByAddress(ctx context.Context, kind int, pubkey, dTag string) (*model.PublishedEvent, error) {
	return queryGetEventByAddress(ctx, s.db, kind, pubkey, dTag)
}

func (s *PostgresStore) ListEventsByKind(ctx context.Context, kind int) ([]*model.PublishedEvent, error) {
	return queryListEvents(ctx, s.db, &kind)
}

func (s *PostgresStore) ListEvents(ctx context.Context) ([]*model.PublishedEvent, error) {
	return queryListEvents(ctx, s.db, nil)
}

func (s *PostgresStore) CreateSession(ctx context.Context, sess *model.ServerSession) error {
	return queryCreateSession(ctx, s.db, sess)
}

func (s *PostgresStore) GetSession(ctx context.Context, token string) (*model.ServerSession, error) {
	return queryGetSession(ctx, s.db, token)
}

func (s *PostgresStore) DeleteSession(ctx context.Context, token string) error {
	return queryDeleteSession(ctx, s.db, token)
}

func (s *PostgresStore) GetCard(ctx context.Context, id string) (*model.Card, error) {
	return queryGetCard(ctx, s.db, id)
}

func (s *PostgresStore) ListCards(ctx context.Context) ([]*model.Card, error) {
	return queryListCards(ctx, s.db)
}
