package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema holds the tables the harvester owns. Statements are idempotent
// so Migrate can run unconditionally at startup.
const schema = `
CREATE TABLE IF NOT EXISTS frontiers (
	channel_id         BIGINT PRIMARY KEY,
	cursor_id          BIGINT,
	previous_scan_time BIGINT NOT NULL DEFAULT 0,
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS messages (
	message_id       BIGINT PRIMARY KEY,
	channel_id       BIGINT NOT NULL,
	channel_kind     TEXT NOT NULL,
	message_kind     TEXT NOT NULL,
	author_id        BIGINT NOT NULL,
	timestamp        TIMESTAMPTZ NOT NULL,
	edited_timestamp TIMESTAMPTZ,
	edited_content   TEXT,
	attachments      JSONB NOT NULL DEFAULT '[]',
	embeds           JSONB NOT NULL DEFAULT '[]',
	reply_to         JSONB,
	thread           JSONB,
	content          TEXT NOT NULL DEFAULT '',
	processed        BOOLEAN NOT NULL DEFAULT FALSE,
	replies          BIGINT[] NOT NULL DEFAULT '{}',
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_messages_channel_id ON messages (channel_id);
CREATE INDEX IF NOT EXISTS idx_messages_timestamp ON messages (timestamp);
`

// Migrate creates the harvester's tables and indexes if they do not exist.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
