package store

import (
	"context"
	"slices"
	"sync"

	"github.com/chanhound/chanhound/internal/domain"
)

// MemoryStore is a map-backed Store. It mirrors the PostgreSQL
// implementation's semantics: idempotent upsert with insert-only
// fields, best-effort reply back-references, lazily created frontiers.
type MemoryStore struct {
	mu        sync.Mutex
	records   map[int64]domain.Record
	replies   map[int64][]int64
	frontiers map[int64]domain.Frontier
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:   make(map[int64]domain.Record),
		replies:   make(map[int64][]int64),
		frontiers: make(map[int64]domain.Frontier),
	}
}

var _ Store = (*MemoryStore)(nil)

// GetFrontier returns the frontier for a channel, defaulting to the
// zero frontier when absent.
func (s *MemoryStore) GetFrontier(_ context.Context, channelID int64) (domain.Frontier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.frontiers[channelID], nil
}

// GetFrontiers returns a copy of all known frontiers.
func (s *MemoryStore) GetFrontiers(_ context.Context) (map[int64]domain.Frontier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[int64]domain.Frontier, len(s.frontiers))
	for id, f := range s.frontiers {
		out[id] = f
	}
	return out, nil
}

// SetFrontier fully replaces the frontier for a channel.
func (s *MemoryStore) SetFrontier(_ context.Context, channelID int64, frontier domain.Frontier) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.frontiers[channelID] = frontier
	return nil
}

// AdvanceCursor updates only the cursor of a channel's frontier.
func (s *MemoryStore) AdvanceCursor(_ context.Context, channelID, messageID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.frontiers[channelID]
	f.Cursor = &messageID
	s.frontiers[channelID] = f
	return nil
}

// SaveRecord idempotently upserts a single record.
func (s *MemoryStore) SaveRecord(ctx context.Context, rec domain.Record) error {
	return s.SaveRecords(ctx, []domain.Record{rec})
}

// SaveRecords idempotently upserts a batch of records and maintains
// reply back-references on known parents.
func (s *MemoryStore) SaveRecords(_ context.Context, recs []domain.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range recs {
		if existing, ok := s.records[rec.MessageID]; ok {
			// Insert-only fields survive a re-save.
			rec.Content = existing.Content
			rec.Processed = existing.Processed
		}
		s.records[rec.MessageID] = rec
	}

	for _, rec := range recs {
		if rec.ReplyTo == nil {
			continue
		}
		parentID := rec.ReplyTo.MessageID
		if _, known := s.records[parentID]; !known {
			continue
		}
		if !slices.Contains(s.replies[parentID], rec.MessageID) {
			s.replies[parentID] = append(s.replies[parentID], rec.MessageID)
		}
	}

	return nil
}

// RecordExists reports whether a record with the given message id is stored.
func (s *MemoryStore) RecordExists(_ context.Context, messageID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.records[messageID]
	return ok, nil
}

// Record returns a stored record and whether it exists. Test helper.
func (s *MemoryStore) Record(messageID int64) (domain.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[messageID]
	return rec, ok
}

// SetRecord overwrites a record unconditionally, bypassing the
// insert-only rules. Test helper.
func (s *MemoryStore) SetRecord(rec domain.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[rec.MessageID] = rec
}

// Replies returns the reply back-references recorded for a parent. Test helper.
func (s *MemoryStore) Replies(parentID int64) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.replies[parentID])
}

// Len returns the number of stored records. Test helper.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.records)
}
