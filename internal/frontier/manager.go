// Package frontier owns per-channel harvest progress: the scan-due
// decision, the active target set, and the conversion/save
// orchestration that feeds the store.
package frontier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chanhound/chanhound/internal/convert"
	"github.com/chanhound/chanhound/internal/domain"
	"github.com/chanhound/chanhound/internal/logger"
	"github.com/chanhound/chanhound/internal/store"
)

// DefaultRescanInterval is how long after a completed pass a channel
// becomes due for a full rescan, unless overridden per channel.
const DefaultRescanInterval = 60 * time.Second

// ThreadExpander eagerly reads the full thread hanging off a parent
// message. Mirrors source.Session's Thread method so this package does
// not depend on the source package.
type ThreadExpander interface {
	Thread(ctx context.Context, channelID, parentID int64) (*domain.Thread, error)
}

// Manager tracks the configured channels and their frontiers.
type Manager struct {
	channels []int64
	rescan   map[int64]time.Duration
	store    store.Store
	conv     convert.Converter
	threads  ThreadExpander
	authors  *convert.AuthorSet
	log      logger.Interface
	now      func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock overrides the manager's time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// WithAuthorSet attaches an author aggregation step: every saved
// record's authors are observed into the set.
func WithAuthorSet(authors *convert.AuthorSet) Option {
	return func(m *Manager) {
		m.authors = authors
	}
}

// WithRescanInterval overrides the rescan interval for one channel.
func WithRescanInterval(channelID int64, interval time.Duration) Option {
	return func(m *Manager) {
		m.rescan[channelID] = interval
	}
}

// NewManager creates a manager for a fixed set of target channels.
// rescanInterval applies to every channel unless overridden via
// WithRescanInterval.
func NewManager(
	channels []int64,
	rescanInterval time.Duration,
	st store.Store,
	conv convert.Converter,
	threads ThreadExpander,
	log logger.Interface,
	opts ...Option,
) *Manager {
	if rescanInterval <= 0 {
		rescanInterval = DefaultRescanInterval
	}

	m := &Manager{
		channels: append([]int64(nil), channels...),
		rescan:   make(map[int64]time.Duration, len(channels)),
		store:    st,
		conv:     conv,
		threads:  threads,
		log:      log,
		now:      time.Now,
	}
	for _, ch := range channels {
		m.rescan[ch] = rescanInterval
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Channels returns the configured target channels.
func (m *Manager) Channels() []int64 {
	return append([]int64(nil), m.channels...)
}

// Tracks reports whether a channel is one of the configured targets.
func (m *Manager) Tracks(channelID int64) bool {
	_, ok := m.rescan[channelID]
	return ok
}

// Cursor returns the channel's in-progress cursor, or nil when the
// channel is between passes.
func (m *Manager) Cursor(ctx context.Context, channelID int64) (*int64, error) {
	frontier, err := m.store.GetFrontier(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("get frontier: %w", err)
	}
	return frontier.Cursor, nil
}

// IsScanDue reports whether a full rescan is due for the channel:
// at least the channel's rescan interval has elapsed since the last
// completed pass.
func (m *Manager) IsScanDue(ctx context.Context, channelID int64) (bool, error) {
	frontier, err := m.store.GetFrontier(ctx, channelID)
	if err != nil {
		return false, fmt.Errorf("get frontier: %w", err)
	}

	interval, ok := m.rescan[channelID]
	if !ok {
		interval = DefaultRescanInterval
	}

	elapsed := m.now().Unix() - frontier.PreviousScanTime
	return elapsed >= int64(interval/time.Second), nil
}

// ActiveTargets returns the channels that currently need paging work:
// those mid-pass (non-nil cursor) or scan-due. The set is recomputed
// on every call, never cached.
func (m *Manager) ActiveTargets(ctx context.Context) ([]int64, error) {
	var targets []int64
	for _, ch := range m.channels {
		frontier, err := m.store.GetFrontier(ctx, ch)
		if err != nil {
			return nil, fmt.Errorf("get frontier: %w", err)
		}
		if frontier.MidPass() {
			targets = append(targets, ch)
			continue
		}

		due, err := m.IsScanDue(ctx, ch)
		if err != nil {
			return nil, err
		}
		if due {
			targets = append(targets, ch)
		}
	}
	return targets, nil
}

// SaveMessage converts and saves one message, expanding its thread if
// it has one. Structural markers are skipped entirely: not converted,
// not saved. When advance is set the channel's cursor moves to the
// message id regardless, so a marker inside a pass still makes
// progress.
func (m *Manager) SaveMessage(ctx context.Context, msg domain.Message, advance bool) error {
	if !msg.IsStructural() {
		rec, err := m.convertMessage(ctx, msg)
		switch {
		case errors.Is(err, convert.ErrMalformed):
			m.log.Warn("dropping malformed message",
				"channel_id", msg.ChannelID,
				"message_id", msg.ID,
				"error", err,
			)
		case err != nil:
			return err
		default:
			if saveErr := m.store.SaveRecord(ctx, rec); saveErr != nil {
				return fmt.Errorf("save record: %w", saveErr)
			}
			m.observe(rec)
		}
	}

	if advance {
		if err := m.store.AdvanceCursor(ctx, msg.ChannelID, msg.ID); err != nil {
			return fmt.Errorf("advance cursor: %w", err)
		}
	}

	return nil
}

// SaveMessages converts and bulk-saves a batch. Structural markers are
// filtered out before conversion and individually malformed messages
// are dropped with a log line; neither aborts the batch. When advance
// is set the cursor moves to the id of the last message of the input
// batch, so callers must pass messages in ascending channel order.
func (m *Manager) SaveMessages(ctx context.Context, msgs []domain.Message, advance bool) error {
	if len(msgs) == 0 {
		return nil
	}

	recs := make([]domain.Record, 0, len(msgs))
	for i := range msgs {
		if msgs[i].IsStructural() {
			continue
		}
		rec, err := m.convertMessage(ctx, msgs[i])
		if err != nil {
			m.log.Warn("dropping malformed message",
				"channel_id", msgs[i].ChannelID,
				"message_id", msgs[i].ID,
				"error", err,
			)
			continue
		}
		recs = append(recs, rec)
	}

	if len(recs) > 0 {
		if err := m.store.SaveRecords(ctx, recs); err != nil {
			return fmt.Errorf("save records: %w", err)
		}
		for i := range recs {
			m.observe(recs[i])
		}
	}

	if advance {
		last := msgs[len(msgs)-1]
		if err := m.store.AdvanceCursor(ctx, last.ChannelID, last.ID); err != nil {
			return fmt.Errorf("advance cursor: %w", err)
		}
	}

	return nil
}

// FinishPass marks a full pass over the channel as complete: the
// cursor resets to nil and the previous scan time becomes now.
func (m *Manager) FinishPass(ctx context.Context, channelID int64) error {
	frontier, err := m.store.GetFrontier(ctx, channelID)
	if err != nil {
		return fmt.Errorf("get frontier: %w", err)
	}

	frontier.Cursor = nil
	frontier.PreviousScanTime = m.now().Unix()

	if err := m.store.SetFrontier(ctx, channelID, frontier); err != nil {
		return fmt.Errorf("set frontier: %w", err)
	}

	return nil
}

// MessageExists reports whether the store already holds the message.
// The catch-up pass uses this as its termination condition.
func (m *Manager) MessageExists(ctx context.Context, messageID int64) (bool, error) {
	return m.store.RecordExists(ctx, messageID)
}

// convertMessage expands the message's thread when it signals one and
// runs the converter. A thread that cannot be expanded degrades to
// converting the message without it; the next full pass re-captures.
func (m *Manager) convertMessage(ctx context.Context, msg domain.Message) (domain.Record, error) {
	thread := msg.Thread
	if thread == nil && msg.HasThread && m.threads != nil {
		expanded, err := m.threads.Thread(ctx, msg.ChannelID, msg.ID)
		if err != nil {
			m.log.Warn("thread expansion failed, saving without thread",
				"channel_id", msg.ChannelID,
				"message_id", msg.ID,
				"error", err,
			)
		} else {
			thread = expanded
		}
	}

	rec, err := m.conv.Convert(msg, thread)
	if err != nil {
		return domain.Record{}, fmt.Errorf("convert message %d: %w", msg.ID, err)
	}
	return rec, nil
}

// observe feeds the optional author aggregation.
func (m *Manager) observe(rec domain.Record) {
	if m.authors != nil {
		m.authors.Observe(rec)
	}
}
