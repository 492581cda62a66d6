package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/chanhound/chanhound/internal/domain"
)

// frontierSelectColumns lists columns for SELECT queries on frontiers.
const frontierSelectColumns = `cursor_id, previous_scan_time`

// FrontierRepository handles database operations for per-channel frontiers.
type FrontierRepository struct {
	db *sqlx.DB
}

// NewFrontierRepository creates a new frontier repository.
func NewFrontierRepository(db *sqlx.DB) *FrontierRepository {
	return &FrontierRepository{db: db}
}

// GetFrontier returns the frontier for a channel. A channel that has
// never been scanned yields the zero frontier: nil cursor, previous
// scan time 0.
func (r *FrontierRepository) GetFrontier(ctx context.Context, channelID int64) (domain.Frontier, error) {
	query := `SELECT ` + frontierSelectColumns + ` FROM frontiers WHERE channel_id = $1`

	var frontier domain.Frontier
	err := r.db.GetContext(ctx, &frontier, query, channelID)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Frontier{}, nil
	}
	if err != nil {
		return domain.Frontier{}, fmt.Errorf("failed to get frontier: %w", err)
	}

	return frontier, nil
}

// GetFrontiers returns all frontiers keyed by channel id.
func (r *FrontierRepository) GetFrontiers(ctx context.Context) (map[int64]domain.Frontier, error) {
	query := `SELECT channel_id, ` + frontierSelectColumns + ` FROM frontiers`

	var rows []struct {
		ChannelID int64 `db:"channel_id"`
		domain.Frontier
	}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("failed to list frontiers: %w", err)
	}

	frontiers := make(map[int64]domain.Frontier, len(rows))
	for i := range rows {
		frontiers[rows[i].ChannelID] = rows[i].Frontier
	}

	return frontiers, nil
}

// SetFrontier fully replaces the frontier for a channel, creating the
// row if it does not exist.
func (r *FrontierRepository) SetFrontier(ctx context.Context, channelID int64, frontier domain.Frontier) error {
	query := `
		INSERT INTO frontiers (channel_id, cursor_id, previous_scan_time)
		VALUES ($1, $2, $3)
		ON CONFLICT (channel_id) DO UPDATE SET
			cursor_id = EXCLUDED.cursor_id,
			previous_scan_time = EXCLUDED.previous_scan_time,
			updated_at = NOW()
	`

	if _, err := r.db.ExecContext(ctx, query, channelID, frontier.Cursor, frontier.PreviousScanTime); err != nil {
		return fmt.Errorf("failed to set frontier: %w", err)
	}

	return nil
}

// AdvanceCursor updates only the cursor of a channel's frontier,
// creating the row if it does not exist. Last writer wins; the cursor
// is not compared against the stored value.
func (r *FrontierRepository) AdvanceCursor(ctx context.Context, channelID, messageID int64) error {
	query := `
		INSERT INTO frontiers (channel_id, cursor_id)
		VALUES ($1, $2)
		ON CONFLICT (channel_id) DO UPDATE SET
			cursor_id = EXCLUDED.cursor_id,
			updated_at = NOW()
	`

	if _, err := r.db.ExecContext(ctx, query, channelID, messageID); err != nil {
		return fmt.Errorf("failed to advance cursor: %w", err)
	}

	return nil
}
