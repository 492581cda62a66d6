// Package domain defines the core types shared across the harvester.
package domain

import "time"

// Message kind constants. ThreadCreated is a structural marker emitted by
// the gateway when a thread is opened; it carries no independent content.
const (
	MessageKindDefault       = "default"
	MessageKindReply         = "reply"
	MessageKindThreadCreated = "thread_created"
)

// Channel kind constants.
const (
	ChannelKindText         = "text"
	ChannelKindAnnouncement = "announcement"
	ChannelKindThread       = "thread"
)

// Message is one unit produced by a channel. IDs are snowflake-style:
// monotonically increasing per channel and embedding the creation time.
type Message struct {
	ChannelID       int64        `json:"channel_id"`
	ChannelKind     string       `json:"channel_kind"`
	ID              int64        `json:"id"`
	Kind            string       `json:"kind"`
	Content         string       `json:"content"`
	Timestamp       time.Time    `json:"timestamp"`
	EditedTimestamp *time.Time   `json:"edited_timestamp,omitempty"`
	Attachments     []Attachment `json:"attachments,omitempty"`
	Embeds          []Embed      `json:"embeds,omitempty"`
	AuthorID        int64        `json:"author_id"`
	Reference       *Reference   `json:"reference,omitempty"`

	// HasThread signals that a thread hangs off this message. Thread is
	// populated once the thread has been expanded by the source; a nil
	// Thread with HasThread set means expansion is still pending.
	HasThread bool    `json:"has_thread,omitempty"`
	Thread    *Thread `json:"thread,omitempty"`
}

// IsStructural reports whether the message is a structural marker that
// must not be converted or stored.
func (m Message) IsStructural() bool {
	return m.Kind == MessageKindThreadCreated
}

// Reference points at the message a reply responds to.
type Reference struct {
	ChannelID int64 `json:"channel_id"`
	MessageID int64 `json:"message_id"`
}

// Attachment is a file attached to a message.
type Attachment struct {
	ID          int64  `json:"id"`
	Filename    string `json:"filename"`
	URL         string `json:"url"`
	ContentType string `json:"content_type,omitempty"`
	Size        int    `json:"size"`
}

// Embed is rich embedded content rendered inline with a message.
type Embed struct {
	Kind        string `json:"kind,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
}

// Thread is a bounded nested message sequence attached to one parent
// message. Threads are read eagerly and in full when expanded.
type Thread struct {
	ID               int64      `json:"id"`
	Name             string     `json:"name"`
	CreatedTimestamp *time.Time `json:"created_timestamp,omitempty"`
	MessageCount     int        `json:"message_count"`
	OwnerID          int64      `json:"owner_id"`
	Messages         []Message  `json:"messages"`
}
