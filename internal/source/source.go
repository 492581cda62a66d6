// Package source defines the contract the harvester consumes from the
// chat gateway. The gateway owns connection management and reconnects;
// the harvester only sees ordered history queries, thread expansion,
// and the connected/resumed/live lifecycle notifications delivered by
// the embedding process.
package source

import (
	"context"
	"errors"

	"github.com/chanhound/chanhound/internal/domain"
)

// ErrTransient marks a fetch failure caused by connectivity. The
// harvest loops retry the same pagination step on a transient error
// instead of advancing; reconnection itself is the gateway's job and
// surfaces back to the harvester as a resumed event.
var ErrTransient = errors.New("transient source error")

// Transient wraps err so it matches ErrTransient under errors.Is.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return errors.Join(ErrTransient, err)
}

// Session is a connected gateway session the harvester queries.
type Session interface {
	// FetchHistory returns up to limit messages from a channel. When
	// after is non-nil only messages with ids strictly greater than it
	// are returned. oldestFirst selects delivery order; the harvester
	// relies on ascending order for cursor advancement and on
	// descending order for the catch-up pass.
	FetchHistory(ctx context.Context, channelID int64, limit int, after *int64, oldestFirst bool) ([]domain.Message, error)

	// Thread eagerly reads the full thread hanging off a parent
	// message, including nested expansions. Returns nil when the
	// parent has no thread.
	Thread(ctx context.Context, channelID, parentID int64) (*domain.Thread, error)
}
