package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id         UUID PRIMARY KEY,
	run_id     UUID NOT NULL,
	day        DATE NOT NULL,
	position   INT NOT NULL,
	info       TEXT NOT NULL,
	ext_id     TEXT NOT NULL DEFAULT '',
	risk_score INT,
	flagged    BOOLEAN NOT NULL DEFAULT false,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS conversations_day_idx ON conversations (day);

CREATE TABLE IF NOT EXISTS conversation_messages (
	conversation_id UUID NOT NULL REFERENCES conversations (id) ON DELETE CASCADE,
	position        INT NOT NULL,
	sent_time       TEXT NOT NULL,
	sender          TEXT NOT NULL,
	content         TEXT NOT NULL,
	kind            TEXT NOT NULL,
	PRIMARY KEY (conversation_id, position)
);`

// EnsureSchema creates the mirror tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}
