package convert

import (
	"slices"
	"sync"

	"github.com/chanhound/chanhound/internal/domain"
)

// AuthorSet accumulates the distinct author ids observed across saved
// records, for external reporting. It is a separate aggregation step,
// not part of conversion or persistence correctness.
type AuthorSet struct {
	mu  sync.Mutex
	ids map[int64]struct{}
}

// NewAuthorSet creates an empty author set.
func NewAuthorSet() *AuthorSet {
	return &AuthorSet{ids: make(map[int64]struct{})}
}

// Observe records the authors of a record, including authors of
// embedded thread messages.
func (s *AuthorSet) Observe(rec domain.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.observeLocked(rec)
}

func (s *AuthorSet) observeLocked(rec domain.Record) {
	s.ids[rec.AuthorID] = struct{}{}
	if rec.Thread == nil {
		return
	}
	for i := range rec.Thread.Messages {
		s.observeLocked(rec.Thread.Messages[i])
	}
}

// Count returns the number of distinct authors observed.
func (s *AuthorSet) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.ids)
}

// IDs returns the observed author ids in ascending order.
func (s *AuthorSet) IDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]int64, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
