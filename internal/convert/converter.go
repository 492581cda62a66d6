// Package convert turns raw messages into storable records, expanding
// embedded threads recursively and separating insert-only fields from
// always-set fields so the store can apply insert-only semantics.
package convert

import (
	"errors"
	"fmt"

	"github.com/chanhound/chanhound/internal/domain"
)

// ErrMalformed marks a message that cannot be converted. Callers drop
// the affected message from its batch; the rest of the batch proceeds.
var ErrMalformed = errors.New("malformed message")

// Converter turns a message, plus an optional thread hanging off it,
// into a storable record.
type Converter interface {
	Convert(msg domain.Message, thread *domain.Thread) (domain.Record, error)
}

// RecordConverter is the standard Converter implementation. It is
// stateless and safe for concurrent use.
type RecordConverter struct{}

// NewRecordConverter creates a new record converter.
func NewRecordConverter() *RecordConverter {
	return &RecordConverter{}
}

var _ Converter = (*RecordConverter)(nil)

// Convert builds a record from a message. The thread, when present, is
// embedded in full: every thread message is recursively converted and
// captured as of now, not tracked incrementally. A thread message that
// itself fails conversion is dropped from the embedded list.
func (c *RecordConverter) Convert(msg domain.Message, thread *domain.Thread) (domain.Record, error) {
	if msg.ID == 0 || msg.ChannelID == 0 {
		return domain.Record{}, fmt.Errorf("%w: missing message or channel id", ErrMalformed)
	}

	rec := domain.Record{
		ChannelID:       msg.ChannelID,
		ChannelKind:     msg.ChannelKind,
		MessageID:       msg.ID,
		MessageKind:     msg.Kind,
		AuthorID:        msg.AuthorID,
		Timestamp:       msg.Timestamp,
		EditedTimestamp: msg.EditedTimestamp,
		Attachments:     msg.Attachments,
		Embeds:          msg.Embeds,
		ReplyTo:         msg.Reference,
		Content:         msg.Content,
		Processed:       false,
	}

	if msg.EditedTimestamp != nil {
		edited := msg.Content
		rec.EditedContent = &edited
	}

	if thread != nil {
		rec.Thread = c.convertThread(thread)
	}

	return rec, nil
}

// convertThread recursively converts a thread's messages. Nested
// threads, already materialized by the source, are followed; in
// practice nesting is shallow.
func (c *RecordConverter) convertThread(thread *domain.Thread) *domain.ThreadRecord {
	tr := &domain.ThreadRecord{
		ID:               thread.ID,
		Name:             thread.Name,
		CreatedTimestamp: thread.CreatedTimestamp,
		MessageCount:     thread.MessageCount,
		OwnerID:          thread.OwnerID,
		Messages:         make([]domain.Record, 0, len(thread.Messages)),
	}

	for i := range thread.Messages {
		sub, err := c.Convert(thread.Messages[i], thread.Messages[i].Thread)
		if err != nil {
			continue
		}
		tr.Messages = append(tr.Messages, sub)
	}

	return tr
}
