package frontier_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chanhound/chanhound/internal/convert"
	"github.com/chanhound/chanhound/internal/domain"
	"github.com/chanhound/chanhound/internal/frontier"
	"github.com/chanhound/chanhound/internal/logger"
	"github.com/chanhound/chanhound/internal/store"
)

var testNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

// fakeExpander serves canned threads keyed by parent message id.
type fakeExpander struct {
	threads map[int64]*domain.Thread
	err     error
	calls   int
}

func (e *fakeExpander) Thread(_ context.Context, _, parentID int64) (*domain.Thread, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return e.threads[parentID], nil
}

func newManager(st store.Store, expander frontier.ThreadExpander, opts ...frontier.Option) *frontier.Manager {
	opts = append([]frontier.Option{
		frontier.WithClock(func() time.Time { return testNow }),
	}, opts...)

	return frontier.NewManager(
		[]int64{1, 2},
		time.Minute,
		st,
		convert.NewRecordConverter(),
		expander,
		logger.NewNoOp(),
		opts...,
	)
}

func message(channelID, id int64) domain.Message {
	return domain.Message{
		ChannelID:   channelID,
		ChannelKind: domain.ChannelKindText,
		ID:          id,
		Kind:        domain.MessageKindDefault,
		Content:     "hello",
		Timestamp:   testNow.Add(-time.Hour),
		AuthorID:    7,
	}
}

func TestTracks(t *testing.T) {
	t.Parallel()

	mgr := newManager(store.NewMemoryStore(), nil)

	if !mgr.Tracks(1) {
		t.Error("expected channel 1 to be tracked")
	}
	if mgr.Tracks(99) {
		t.Error("expected channel 99 to be untracked")
	}
}

func TestIsScanDue(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	tests := []struct {
		name             string
		previousScanTime int64
		interval         time.Duration
		want             bool
	}{
		{
			name:             "never scanned",
			previousScanTime: 0,
			interval:         time.Minute,
			want:             true,
		},
		{
			name:             "just finished",
			previousScanTime: testNow.Unix(),
			interval:         time.Minute,
			want:             false,
		},
		{
			name:             "interval exactly elapsed",
			previousScanTime: testNow.Add(-time.Minute).Unix(),
			interval:         time.Minute,
			want:             true,
		},
		{
			name:             "one second short",
			previousScanTime: testNow.Add(-59 * time.Second).Unix(),
			interval:         time.Minute,
			want:             false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			st := store.NewMemoryStore()
			if err := st.SetFrontier(ctx, 1, domain.Frontier{PreviousScanTime: tt.previousScanTime}); err != nil {
				t.Fatalf("SetFrontier() error = %v", err)
			}

			mgr := newManager(st, nil, frontier.WithRescanInterval(1, tt.interval))

			due, err := mgr.IsScanDue(ctx, 1)
			if err != nil {
				t.Fatalf("IsScanDue() error = %v", err)
			}
			if due != tt.want {
				t.Errorf("IsScanDue() = %v, want %v", due, tt.want)
			}
		})
	}
}

func TestActiveTargets(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := store.NewMemoryStore()

	// Channel 1 is mid-pass and recently scanned; channel 2 finished a
	// pass recently and is not due.
	cursor := int64(42)
	if err := st.SetFrontier(ctx, 1, domain.Frontier{Cursor: &cursor, PreviousScanTime: testNow.Unix()}); err != nil {
		t.Fatalf("SetFrontier() error = %v", err)
	}
	if err := st.SetFrontier(ctx, 2, domain.Frontier{PreviousScanTime: testNow.Unix()}); err != nil {
		t.Fatalf("SetFrontier() error = %v", err)
	}

	mgr := newManager(st, nil)

	targets, err := mgr.ActiveTargets(ctx)
	if err != nil {
		t.Fatalf("ActiveTargets() error = %v", err)
	}
	if len(targets) != 1 || targets[0] != 1 {
		t.Errorf("ActiveTargets() = %v, want [1]", targets)
	}

	// Finishing channel 1's pass empties the active set.
	if err := mgr.FinishPass(ctx, 1); err != nil {
		t.Fatalf("FinishPass() error = %v", err)
	}

	targets, err = mgr.ActiveTargets(ctx)
	if err != nil {
		t.Fatalf("ActiveTargets() error = %v", err)
	}
	if len(targets) != 0 {
		t.Errorf("ActiveTargets() = %v, want empty", targets)
	}
}

func TestSaveMessage_AdvancesCursor(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := store.NewMemoryStore()
	mgr := newManager(st, nil)

	if err := mgr.SaveMessage(ctx, message(1, 10), true); err != nil {
		t.Fatalf("SaveMessage() error = %v", err)
	}

	if _, ok := st.Record(10); !ok {
		t.Error("expected record 10 to be stored")
	}

	cursor, err := mgr.Cursor(ctx, 1)
	if err != nil {
		t.Fatalf("Cursor() error = %v", err)
	}
	if cursor == nil || *cursor != 10 {
		t.Errorf("expected cursor 10, got %v", cursor)
	}
}

func TestSaveMessage_NoAdvanceLeavesFrontierAlone(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := store.NewMemoryStore()
	mgr := newManager(st, nil)

	if err := mgr.SaveMessage(ctx, message(1, 10), false); err != nil {
		t.Fatalf("SaveMessage() error = %v", err)
	}

	cursor, err := mgr.Cursor(ctx, 1)
	if err != nil {
		t.Fatalf("Cursor() error = %v", err)
	}
	if cursor != nil {
		t.Errorf("expected nil cursor, got %d", *cursor)
	}
}

func TestSaveMessage_StructuralMarkerSkippedButAdvances(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := store.NewMemoryStore()
	mgr := newManager(st, nil)

	marker := message(1, 10)
	marker.Kind = domain.MessageKindThreadCreated

	if err := mgr.SaveMessage(ctx, marker, true); err != nil {
		t.Fatalf("SaveMessage() error = %v", err)
	}

	if st.Len() != 0 {
		t.Error("structural marker must not be stored")
	}

	cursor, err := mgr.Cursor(ctx, 1)
	if err != nil {
		t.Fatalf("Cursor() error = %v", err)
	}
	if cursor == nil || *cursor != 10 {
		t.Errorf("expected cursor 10 past the marker, got %v", cursor)
	}
}

func TestSaveMessages_FiltersMarkersAndAdvancesToLast(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := store.NewMemoryStore()
	mgr := newManager(st, nil)

	marker := message(1, 12)
	marker.Kind = domain.MessageKindThreadCreated
	batch := []domain.Message{message(1, 10), message(1, 11), marker}

	if err := mgr.SaveMessages(ctx, batch, true); err != nil {
		t.Fatalf("SaveMessages() error = %v", err)
	}

	if st.Len() != 2 {
		t.Errorf("expected 2 records, got %d", st.Len())
	}
	if _, ok := st.Record(12); ok {
		t.Error("structural marker must not be stored")
	}

	// The cursor follows the batch, marker included.
	cursor, err := mgr.Cursor(ctx, 1)
	if err != nil {
		t.Fatalf("Cursor() error = %v", err)
	}
	if cursor == nil || *cursor != 12 {
		t.Errorf("expected cursor 12, got %v", cursor)
	}
}

func TestSaveMessages_DropsMalformedKeepsRest(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := store.NewMemoryStore()
	mgr := newManager(st, nil)

	bad := message(1, 11)
	bad.ID = 0
	batch := []domain.Message{message(1, 10), bad, message(1, 12)}

	if err := mgr.SaveMessages(ctx, batch, true); err != nil {
		t.Fatalf("SaveMessages() error = %v", err)
	}

	if _, ok := st.Record(10); !ok {
		t.Error("expected record 10 to survive the malformed neighbor")
	}
	if _, ok := st.Record(12); !ok {
		t.Error("expected record 12 to survive the malformed neighbor")
	}
	if st.Len() != 2 {
		t.Errorf("expected 2 records, got %d", st.Len())
	}
}

func TestSaveMessages_EmptyBatchIsNoOp(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := store.NewMemoryStore()
	mgr := newManager(st, nil)

	if err := mgr.SaveMessages(ctx, nil, true); err != nil {
		t.Fatalf("SaveMessages() error = %v", err)
	}

	cursor, err := mgr.Cursor(ctx, 1)
	if err != nil {
		t.Fatalf("Cursor() error = %v", err)
	}
	if cursor != nil {
		t.Errorf("expected nil cursor, got %d", *cursor)
	}
}

func TestSaveMessage_ExpandsThread(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := store.NewMemoryStore()

	expander := &fakeExpander{threads: map[int64]*domain.Thread{
		10: {
			ID:       10,
			Name:     "discussion",
			OwnerID:  7,
			Messages: []domain.Message{message(10, 100), message(10, 101)},
		},
	}}
	mgr := newManager(st, expander)

	parent := message(1, 10)
	parent.HasThread = true

	if err := mgr.SaveMessage(ctx, parent, true); err != nil {
		t.Fatalf("SaveMessage() error = %v", err)
	}

	rec, ok := st.Record(10)
	if !ok {
		t.Fatal("expected record 10 to be stored")
	}
	if rec.Thread == nil {
		t.Fatal("expected thread to be embedded")
	}
	if len(rec.Thread.Messages) != 2 {
		t.Errorf("expected 2 thread messages, got %d", len(rec.Thread.Messages))
	}
	if expander.calls != 1 {
		t.Errorf("expected 1 expansion call, got %d", expander.calls)
	}
}

func TestSaveMessage_ThreadExpansionFailureDegrades(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := store.NewMemoryStore()

	expander := &fakeExpander{err: errors.New("thread gone")}
	mgr := newManager(st, expander)

	parent := message(1, 10)
	parent.HasThread = true

	if err := mgr.SaveMessage(ctx, parent, true); err != nil {
		t.Fatalf("SaveMessage() error = %v", err)
	}

	rec, ok := st.Record(10)
	if !ok {
		t.Fatal("expected record 10 to be stored despite expansion failure")
	}
	if rec.Thread != nil {
		t.Error("expected record without thread")
	}
}

func TestSaveMessage_PreexpandedThreadSkipsExpander(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := store.NewMemoryStore()

	expander := &fakeExpander{}
	mgr := newManager(st, expander)

	parent := message(1, 10)
	parent.HasThread = true
	parent.Thread = &domain.Thread{ID: 10, Name: "already here"}

	if err := mgr.SaveMessage(ctx, parent, true); err != nil {
		t.Fatalf("SaveMessage() error = %v", err)
	}

	if expander.calls != 0 {
		t.Errorf("expected no expansion calls, got %d", expander.calls)
	}

	rec, _ := st.Record(10)
	if rec.Thread == nil || rec.Thread.Name != "already here" {
		t.Error("expected the pre-expanded thread to be embedded")
	}
}

func TestFinishPass(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := store.NewMemoryStore()
	mgr := newManager(st, nil)

	if err := mgr.SaveMessage(ctx, message(1, 10), true); err != nil {
		t.Fatalf("SaveMessage() error = %v", err)
	}
	if err := mgr.FinishPass(ctx, 1); err != nil {
		t.Fatalf("FinishPass() error = %v", err)
	}

	f, err := st.GetFrontier(ctx, 1)
	if err != nil {
		t.Fatalf("GetFrontier() error = %v", err)
	}
	if f.Cursor != nil {
		t.Errorf("expected nil cursor, got %d", *f.Cursor)
	}
	if f.PreviousScanTime != testNow.Unix() {
		t.Errorf("expected previous_scan_time=%d, got %d", testNow.Unix(), f.PreviousScanTime)
	}

	due, err := mgr.IsScanDue(ctx, 1)
	if err != nil {
		t.Fatalf("IsScanDue() error = %v", err)
	}
	if due {
		t.Error("channel must not be scan-due immediately after a finished pass")
	}
}

func TestSaveMessages_ObservesAuthors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := store.NewMemoryStore()
	authors := convert.NewAuthorSet()
	mgr := newManager(st, nil, frontier.WithAuthorSet(authors))

	a := message(1, 10)
	a.AuthorID = 100
	b := message(1, 11)
	b.AuthorID = 200
	c := message(1, 12)
	c.AuthorID = 100

	if err := mgr.SaveMessages(ctx, []domain.Message{a, b, c}, true); err != nil {
		t.Fatalf("SaveMessages() error = %v", err)
	}

	if got := authors.Count(); got != 2 {
		t.Errorf("expected 2 distinct authors, got %d", got)
	}
}
