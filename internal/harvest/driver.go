// Package harvest implements the harvesting driver: the steady-state
// pagination loop over all due channels, the reconnect catch-up pass,
// and the live message passthrough.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/chanhound/chanhound/internal/domain"
	"github.com/chanhound/chanhound/internal/frontier"
	"github.com/chanhound/chanhound/internal/logger"
	"github.com/chanhound/chanhound/internal/source"
)

// DefaultFetchLimit is the page size for history fetches when the
// configuration does not override it.
const DefaultFetchLimit = 500

// runIDLength truncates the uuid used to correlate a run's log lines.
const runIDLength = 8

// Driver coordinates the harvest paths against a gateway session.
//
// The three paths (steady-state, catch-up, live) are not mutually
// exclusive; they share the store and the frontier manager. Concurrent
// saves of the same message are deduplicated by the store's idempotent
// upsert. Concurrent frontier writes are last-writer-wins: a stale
// cursor write can in principle regress the cursor, which the design
// accepts instead of introducing a cross-component lock.
type Driver struct {
	session source.Session
	mgr     *frontier.Manager
	limit   int
	delay   DelayFunc
	log     logger.Interface
	runID   string
}

// NewDriver creates a harvest driver. limit caps every history fetch;
// delay decides how long the steady loop sleeps between passes.
func NewDriver(
	session source.Session,
	mgr *frontier.Manager,
	limit int,
	delay DelayFunc,
	log logger.Interface,
) *Driver {
	if limit <= 0 {
		limit = DefaultFetchLimit
	}
	if delay == nil {
		delay = AlignedDelay(PeriodMonth)
	}

	return &Driver{
		session: session,
		mgr:     mgr,
		limit:   limit,
		delay:   delay,
		log:     log,
		runID:   uuid.New().String()[:runIDLength],
	}
}

// Run is the connected-lifecycle entry point: one catch-up pass to
// backfill whatever arrived while offline, then the steady loop of
// full passes separated by the configured delay. It returns when ctx
// is cancelled or when the store becomes unusable.
func (d *Driver) Run(ctx context.Context) error {
	d.log.Info("gateway connected, starting harvest",
		"run_id", d.runID,
		"channels", len(d.mgr.Channels()),
		"fetch_limit", d.limit,
	)

	if err := d.HarvestUnseen(ctx); err != nil {
		return err
	}

	for {
		if err := d.HarvestAll(ctx); err != nil {
			return err
		}

		wait := d.delay()
		d.log.Info("harvest pass complete, sleeping",
			"run_id", d.runID,
			"wake_in", wait,
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// HandleResumed runs one catch-up pass. The embedding gateway calls it
// after a dropped connection is re-established.
func (d *Driver) HandleResumed(ctx context.Context) error {
	return d.HarvestUnseen(ctx)
}

// HandleLive persists a freshly pushed message. Messages on untracked
// channels are ignored. The frontier is deliberately left alone: live
// messages are re-observed by the next steady-state pass, which is
// what owns cursor correctness.
func (d *Driver) HandleLive(ctx context.Context, msg domain.Message) error {
	if !d.mgr.Tracks(msg.ChannelID) {
		return nil
	}

	d.log.Debug("live message", "channel_id", msg.ChannelID, "message_id", msg.ID)
	return d.mgr.SaveMessage(ctx, msg, false)
}

// HarvestAll runs one steady-state pass: round-robin over the active
// targets, paging each channel forward from its cursor until every
// channel is exhausted.
//
// A transient fetch failure keeps the channel in the working set so the
// same page is retried on the next round without advancing; it never
// stalls the other channels. A store write failure abandons the
// channel's pass with its frontier untouched, so the next cycle
// resumes from the same cursor.
func (d *Driver) HarvestAll(ctx context.Context) error {
	targets, err := d.mgr.ActiveTargets(ctx)
	if err != nil {
		return fmt.Errorf("list active targets: %w", err)
	}

	d.log.Info("starting harvest pass", "run_id", d.runID, "targets", len(targets))

	i := 0
	for len(targets) > 0 {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		i %= len(targets)
		ch := targets[i]

		exhausted, pageErr := d.harvestPage(ctx, ch)
		switch {
		case errors.Is(pageErr, source.ErrTransient):
			d.log.Warn("channel fetch failed, will retry",
				"run_id", d.runID,
				"channel_id", ch,
				"error", pageErr,
			)
			i++
		case pageErr != nil:
			d.log.Error("abandoning channel pass, frontier unchanged",
				"run_id", d.runID,
				"channel_id", ch,
				"error", pageErr,
			)
			targets = remove(targets, i)
		case exhausted:
			if finishErr := d.mgr.FinishPass(ctx, ch); finishErr != nil {
				d.log.Error("failed to finish pass",
					"run_id", d.runID,
					"channel_id", ch,
					"error", finishErr,
				)
			}
			targets = remove(targets, i)
		default:
			i++
		}
	}

	return nil
}

// harvestPage fetches and saves one page for a channel, advancing the
// cursor. It reports whether the channel is exhausted for this pass: an
// empty page or one shorter than the fetch limit ends the pass.
func (d *Driver) harvestPage(ctx context.Context, channelID int64) (bool, error) {
	cursor, err := d.mgr.Cursor(ctx, channelID)
	if err != nil {
		return false, err
	}

	batch, err := d.session.FetchHistory(ctx, channelID, d.limit, cursor, true)
	if err != nil {
		return false, fmt.Errorf("fetch history: %w", err)
	}

	if len(batch) > 0 {
		if saveErr := d.mgr.SaveMessages(ctx, batch, true); saveErr != nil {
			return false, saveErr
		}
	}

	d.log.Info("harvested page",
		"run_id", d.runID,
		"channel_id", channelID,
		"count", len(batch),
	)

	return len(batch) == 0 || len(batch) != d.limit, nil
}

// HarvestUnseen runs the catch-up pass: for every channel that is not
// about to be fully rescanned anyway, walk recent history newest-first
// until a known message appears and save the unseen prefix. The
// frontier is left untouched. If more than one fetch limit of messages
// arrived while offline, or this pass is interrupted, the remainder is
// permanently skipped: there is no resumable cursor on this path.
func (d *Driver) HarvestUnseen(ctx context.Context) error {
	d.log.Info("collecting unseen messages", "run_id", d.runID)

	for _, ch := range d.mgr.Channels() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		due, err := d.mgr.IsScanDue(ctx, ch)
		if err != nil {
			return fmt.Errorf("scan-due check: %w", err)
		}
		if due {
			continue
		}

		if catchErr := d.catchUp(ctx, ch); catchErr != nil {
			d.log.Error("catch-up failed",
				"run_id", d.runID,
				"channel_id", ch,
				"error", catchErr,
			)
		}
	}

	d.log.Info("finished collecting unseen messages", "run_id", d.runID)
	return nil
}

// catchUp backfills one channel: the messages strictly newer than the
// first already-stored message, bounded by the fetch limit, saved
// without advancing the frontier.
func (d *Driver) catchUp(ctx context.Context, channelID int64) error {
	batch, err := d.session.FetchHistory(ctx, channelID, d.limit, nil, false)
	if err != nil {
		return fmt.Errorf("fetch history: %w", err)
	}

	var unseen []domain.Message
	for i := range batch {
		exists, existsErr := d.mgr.MessageExists(ctx, batch[i].ID)
		if existsErr != nil {
			return fmt.Errorf("existence check: %w", existsErr)
		}
		if exists {
			break
		}
		unseen = append(unseen, batch[i])
	}

	if len(unseen) == 0 {
		return nil
	}

	if saveErr := d.mgr.SaveMessages(ctx, unseen, false); saveErr != nil {
		return saveErr
	}

	d.log.Info("backfilled unseen messages",
		"run_id", d.runID,
		"channel_id", channelID,
		"count", len(unseen),
	)
	return nil
}

// remove drops the element at index i, preserving order.
func remove(targets []int64, i int) []int64 {
	return append(targets[:i], targets[i+1:]...)
}
