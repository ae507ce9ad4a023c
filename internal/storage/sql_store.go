package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"goodthings/internal/database"
)

const credentialsSchema = `
	CREATE TABLE IF NOT EXISTS credentials (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`

// SQLStore keeps credentials in a single key/value table.
type SQLStore struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db, now: time.Now}
}

// OpenSQLStore connects, creates the credentials table and returns the store.
func OpenSQLStore(ctx context.Context, driver, dsn string, logger *slog.Logger) (*SQLStore, error) {
	db, err := database.Connect(ctx, driver, dsn, logger)
	if err != nil {
		return nil, err
	}

	if err := db.RunMigrations(ctx, credentialsSchema); err != nil {
		db.CloseDB()
		return nil, fmt.Errorf("create credentials table: %w", err)
	}

	return NewSQLStore(db.DB), nil
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, error) {
	query := s.db.Rebind(`SELECT value FROM credentials WHERE key = ?`)

	var value string
	err := s.db.GetContext(ctx, &value, query, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get credential %q: %w", key, err)
	}

	return value, nil
}

func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	query := s.db.Rebind(`
		INSERT INTO credentials (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`)

	_, err := s.db.ExecContext(ctx, query, key, value, s.now().UTC())
	if err != nil {
		return fmt.Errorf("set credential %q: %w", key, err)
	}

	return nil
}

func (s *SQLStore) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	query, args, err := sqlx.In(`DELETE FROM credentials WHERE key IN (?)`, keys)
	if err != nil {
		return fmt.Errorf("build credential delete: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("remove credentials: %w", err)
	}

	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
