package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/chanhound/chanhound/internal/domain"
)

// messageUpsertQuery inserts a record or, on conflict with an existing
// message id, refreshes the always-set columns. content and processed
// are deliberately absent from the update list: they are set only on
// first insert.
const messageUpsertQuery = `
	INSERT INTO messages (
		message_id, channel_id, channel_kind, message_kind, author_id,
		timestamp, edited_timestamp, edited_content, attachments, embeds,
		reply_to, thread, content, processed
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	ON CONFLICT (message_id) DO UPDATE SET
		channel_id = EXCLUDED.channel_id,
		channel_kind = EXCLUDED.channel_kind,
		message_kind = EXCLUDED.message_kind,
		author_id = EXCLUDED.author_id,
		timestamp = EXCLUDED.timestamp,
		edited_timestamp = EXCLUDED.edited_timestamp,
		edited_content = EXCLUDED.edited_content,
		attachments = EXCLUDED.attachments,
		embeds = EXCLUDED.embeds,
		reply_to = EXCLUDED.reply_to,
		thread = EXCLUDED.thread,
		updated_at = NOW()
`

// replyBackrefQuery appends a reply back-reference to a parent message.
// A missing parent or an already-recorded reference affects zero rows.
const replyBackrefQuery = `
	UPDATE messages
	SET replies = array_append(replies, $2), updated_at = NOW()
	WHERE message_id = $1 AND NOT ($2 = ANY(replies))
`

// MessageRepository handles database operations for stored messages.
type MessageRepository struct {
	db *sqlx.DB
}

// NewMessageRepository creates a new message repository.
func NewMessageRepository(db *sqlx.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// SaveRecord idempotently upserts a single record.
func (r *MessageRepository) SaveRecord(ctx context.Context, rec domain.Record) error {
	return r.SaveRecords(ctx, []domain.Record{rec})
}

// SaveRecords idempotently upserts a batch of records in one
// transaction, then annotates reply parents with back-references.
// The back-reference pass is best-effort: unknown parents are a no-op
// and failures never undo the committed upserts.
func (r *MessageRepository) SaveRecords(ctx context.Context, recs []domain.Record) error {
	if len(recs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin save transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	for i := range recs {
		if upsertErr := upsertRecord(ctx, tx, &recs[i]); upsertErr != nil {
			return upsertErr
		}
	}

	if commitErr := tx.Commit(); commitErr != nil {
		return fmt.Errorf("failed to commit save transaction: %w", commitErr)
	}

	r.annotateReplyParents(ctx, recs)

	return nil
}

// upsertRecord writes one record within the save transaction.
func upsertRecord(ctx context.Context, tx *sqlx.Tx, rec *domain.Record) error {
	var replyTo, thread any
	if rec.ReplyTo != nil {
		replyTo = domain.JSONB{V: rec.ReplyTo}
	}
	if rec.Thread != nil {
		thread = domain.JSONB{V: rec.Thread}
	}

	attachments := rec.Attachments
	if attachments == nil {
		attachments = []domain.Attachment{}
	}
	embeds := rec.Embeds
	if embeds == nil {
		embeds = []domain.Embed{}
	}

	_, err := tx.ExecContext(
		ctx, messageUpsertQuery,
		rec.MessageID, rec.ChannelID, rec.ChannelKind, rec.MessageKind, rec.AuthorID,
		rec.Timestamp, rec.EditedTimestamp, rec.EditedContent,
		domain.JSONB{V: attachments}, domain.JSONB{V: embeds},
		replyTo, thread, rec.Content, rec.Processed,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert message %d: %w", rec.MessageID, err)
	}

	return nil
}

// annotateReplyParents records reply back-references after the primary
// save has committed. Errors are swallowed: the annotation is a
// non-owning convenience relation for downstream reporting.
func (r *MessageRepository) annotateReplyParents(ctx context.Context, recs []domain.Record) {
	for i := range recs {
		ref := recs[i].ReplyTo
		if ref == nil {
			continue
		}
		_, _ = r.db.ExecContext(ctx, replyBackrefQuery, ref.MessageID, recs[i].MessageID)
	}
}

// RecordExists reports whether a message with the given id is stored.
func (r *MessageRepository) RecordExists(ctx context.Context, messageID int64) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM messages WHERE message_id = $1)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, messageID); err != nil {
		return false, fmt.Errorf("failed to check message existence: %w", err)
	}

	return exists, nil
}
