package domain

// Frontier tracks harvest progress for a single channel. Cursor is the
// id of the last message fully processed in the pass currently underway,
// or nil strictly between passes. PreviousScanTime is the unix time the
// last full pass over the channel completed.
//
// Within a sequential pass the cursor only moves forward. The steady
// loop, the catch-up pass and the live passthrough are not mutually
// exclusive, so concurrent frontier writes are last-writer-wins; the
// store's idempotent message upsert is what keeps data intact if a
// stale cursor is ever replayed.
type Frontier struct {
	Cursor           *int64 `db:"cursor_id"          json:"cursor"`
	PreviousScanTime int64  `db:"previous_scan_time" json:"previous_scan_time"`
}

// MidPass reports whether a pass over the channel is currently underway.
func (f Frontier) MidPass() bool {
	return f.Cursor != nil
}
