package storage

import (
	"context"
	"fmt"
)

// EnsureSchema creates the tables the store needs. It is idempotent.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS identities (
    id          UUID PRIMARY KEY,
    digital_id  TEXT NOT NULL UNIQUE,
    name        TEXT NOT NULL,
    email       TEXT NOT NULL DEFAULT '',
    phone       TEXT NOT NULL DEFAULT '',
    event       TEXT NOT NULL DEFAULT '',
    template    TEXT NOT NULL DEFAULT '',
    photo_key   TEXT NOT NULL DEFAULT '',
    enrolled_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_identities_enrolled_at ON identities(enrolled_at);
CREATE INDEX IF NOT EXISTS idx_identities_event ON identities(event);

CREATE TABLE IF NOT EXISTS attendance_logs (
    id          UUID PRIMARY KEY,
    identity_id TEXT NOT NULL,
    event       TEXT NOT NULL,
    venue       TEXT NOT NULL DEFAULT '',
    confidence  DOUBLE PRECISION NOT NULL,
    occurred_at TIMESTAMPTZ NOT NULL,
    title       TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_attendance_logs_dedup ON attendance_logs(identity_id, event, occurred_at);
CREATE INDEX IF NOT EXISTS idx_attendance_logs_occurred_at ON attendance_logs(occurred_at);
`
