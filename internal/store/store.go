// Package store defines the persistence contract for harvested messages
// and per-channel frontiers, plus an in-memory implementation used in
// tests and local development. The durable PostgreSQL implementation
// lives in internal/database.
package store

import (
	"context"

	"github.com/chanhound/chanhound/internal/domain"
)

// Store is the persistence contract consumed by the frontier manager
// and the harvest driver. Implementations must be safe for concurrent
// use: the steady-state loop, the catch-up pass and the live
// passthrough may all call into the store at once, and the idempotent
// message upsert is what prevents duplication when two paths observe
// the same message.
type Store interface {
	// GetFrontier returns the frontier for a channel, or the zero
	// frontier (nil cursor, previous scan time 0) if none exists yet.
	GetFrontier(ctx context.Context, channelID int64) (domain.Frontier, error)

	// GetFrontiers returns all known frontiers keyed by channel id.
	GetFrontiers(ctx context.Context) (map[int64]domain.Frontier, error)

	// SetFrontier fully replaces the frontier for a channel.
	SetFrontier(ctx context.Context, channelID int64, frontier domain.Frontier) error

	// AdvanceCursor updates only the cursor of a channel's frontier,
	// creating the frontier if it does not exist.
	AdvanceCursor(ctx context.Context, channelID, messageID int64) error

	// SaveRecord idempotently upserts a single record.
	SaveRecord(ctx context.Context, rec domain.Record) error

	// SaveRecords idempotently upserts a batch of records. Records
	// naming a reply parent additionally annotate the parent with a
	// back-reference; that annotation is best-effort and never fails
	// the primary save.
	SaveRecords(ctx context.Context, recs []domain.Record) error

	// RecordExists reports whether a record with the given message id
	// has been stored.
	RecordExists(ctx context.Context, messageID int64) (bool, error)
}
