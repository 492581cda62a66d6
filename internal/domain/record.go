package domain

import "time"

// Record is the storable form of a message, keyed by the message id.
// Insertion is idempotent: saving the same id twice updates the
// always-set fields and leaves the insert-only fields untouched.
//
// Content and Processed are insert-only: Content preserves the text as
// first observed even if the message is later edited (the edited text
// lands in EditedContent), and Processed marks downstream consumption,
// which a re-save must not reset.
type Record struct {
	ChannelID       int64         `json:"channel_id"`
	ChannelKind     string        `json:"channel_kind"`
	MessageID       int64         `json:"message_id"`
	MessageKind     string        `json:"message_kind"`
	AuthorID        int64         `json:"author_id"`
	Timestamp       time.Time     `json:"timestamp"`
	EditedTimestamp *time.Time    `json:"edited_timestamp,omitempty"`
	EditedContent   *string       `json:"edited_content,omitempty"`
	Attachments     []Attachment  `json:"attachments"`
	Embeds          []Embed       `json:"embeds"`
	ReplyTo         *Reference    `json:"reply_to,omitempty"`
	Thread          *ThreadRecord `json:"thread,omitempty"`

	// Insert-only fields.
	Content   string `json:"content"`
	Processed bool   `json:"processed"`
}

// ThreadRecord embeds an entire thread inside its parent's record,
// captured at conversion time. Thread contents are not tracked
// incrementally; a later pass over the parent re-captures them.
type ThreadRecord struct {
	ID               int64      `json:"id"`
	Name             string     `json:"name"`
	CreatedTimestamp *time.Time `json:"created_timestamp,omitempty"`
	MessageCount     int        `json:"message_count"`
	OwnerID          int64      `json:"owner_id"`
	Messages         []Record   `json:"messages"`
}
