package database

import (
	"github.com/jmoiron/sqlx"

	"github.com/chanhound/chanhound/internal/store"
)

// Store combines the frontier and message repositories into the full
// persistence contract the harvester consumes.
type Store struct {
	*FrontierRepository
	*MessageRepository
}

var _ store.Store = (*Store)(nil)

// NewStore creates the PostgreSQL-backed store.
func NewStore(db *sqlx.DB) *Store {
	return &Store{
		FrontierRepository: NewFrontierRepository(db),
		MessageRepository:  NewMessageRepository(db),
	}
}
