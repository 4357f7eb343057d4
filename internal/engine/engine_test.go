package engine

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avdeyk/tgexport/internal/export"
	"github.com/avdeyk/tgexport/internal/telegram"
)

// scriptedClient plays back canned batches and thread items.
type scriptedClient struct {
	entity     telegram.Entity
	resolveErr error

	batches    [][]telegram.RawMessage
	searchErrs map[int]error // by request index
	loop       bool          // replay batches[0] forever
	requests   []telegram.SearchRequest

	anchor    telegram.RawMessage
	anchorErr error

	thread    []telegram.RawMessage
	threadErr error // returned after the thread drains, instead of io.EOF
}

func (c *scriptedClient) Me(_ context.Context) (telegram.Entity, error) {
	return c.entity, nil
}

func (c *scriptedClient) ResolveEntity(_ context.Context, peerID int64) (telegram.Entity, error) {
	if c.resolveErr != nil {
		return telegram.Entity{}, c.resolveErr
	}
	if c.entity.ID == 0 {
		c.entity = telegram.Entity{ID: peerID, Kind: "channel", Title: "scripted"}
	}
	return c.entity, nil
}

func (c *scriptedClient) SearchMessages(_ context.Context, req telegram.SearchRequest) ([]telegram.RawMessage, error) {
	idx := len(c.requests)
	c.requests = append(c.requests, req)
	if err, ok := c.searchErrs[idx]; ok {
		return nil, err
	}
	if c.loop {
		return c.batches[0], nil
	}
	if idx < len(c.batches) {
		return c.batches[idx], nil
	}
	return nil, nil
}

func (c *scriptedClient) GetMessage(_ context.Context, _ telegram.Entity, id int64) (telegram.RawMessage, error) {
	if c.anchorErr != nil {
		return telegram.RawMessage{}, c.anchorErr
	}
	if c.anchor.ID == 0 {
		c.anchor.ID = id
	}
	return c.anchor, nil
}

func (c *scriptedClient) IterateThread(_ context.Context, _ telegram.Entity, _ int64) (telegram.ThreadIterator, error) {
	return &scriptedIter{items: c.thread, finalErr: c.threadErr}, nil
}

func (c *scriptedClient) Close() error { return nil }

type scriptedIter struct {
	items    []telegram.RawMessage
	finalErr error
	pos      int
}

func (it *scriptedIter) Next(_ context.Context) (telegram.RawMessage, error) {
	if it.pos >= len(it.items) {
		if it.finalErr != nil {
			return telegram.RawMessage{}, it.finalErr
		}
		return telegram.RawMessage{}, io.EOF
	}
	item := it.items[it.pos]
	it.pos++
	return item, nil
}

// memSink collects records in memory.
type memSink struct {
	records []export.Record
	closed  bool
}

func (s *memSink) Accept(rec export.Record) error {
	s.records = append(s.records, rec)
	return nil
}

func (s *memSink) Close() error {
	s.closed = true
	return nil
}

func msgAt(id int64, ts int64) telegram.RawMessage {
	return telegram.RawMessage{
		ID:    id,
		Date:  time.Unix(ts, 0).UTC(),
		Attrs: map[string]any{"message": "m"},
	}
}

func TestHistoryWindowFilter(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{
		batches: [][]telegram.RawMessage{
			// Deliberately unordered; the engine must not assume order.
			{msgAt(4, 40), msgAt(1, 10), msgAt(3, 30), msgAt(2, 20)},
		},
	}
	sink := &memSink{}
	crawler := NewHistory(client, sink, nil, HistoryConfig{
		PeerID:    -100,
		From:      time.Unix(20, 0).UTC(),
		To:        time.Unix(40, 0).UTC(),
		BatchSize: 100,
	}, nil)

	res, err := crawler.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(2), res.Records)
	assert.Equal(t, int64(2), res.Dropped)
	require.Len(t, sink.records, 2)

	var kept []int64
	for _, rec := range sink.records {
		id, ok := rec.Value("id")
		require.True(t, ok)
		kept = append(kept, id.Int)
	}
	assert.ElementsMatch(t, []int64{2, 3}, kept)
}

func TestHistoryPaginatesBackwardAndStops(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")
	sink, err := export.NewCSVSink(path, nil)
	require.NoError(t, err)

	client := &scriptedClient{
		batches: [][]telegram.RawMessage{
			{msgAt(7, 25), msgAt(6, 24), msgAt(5, 23)},
			// Second request yields zero raw items: end of history.
		},
	}
	crawler := NewHistory(client, sink, nil, HistoryConfig{
		PeerID:    -100,
		From:      time.Unix(20, 0).UTC(),
		To:        time.Unix(40, 0).UTC(),
		BatchSize: 100,
	}, nil)

	res, err := crawler.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	assert.Equal(t, int64(3), res.Records)
	assert.Equal(t, 2, res.Requests)
	assert.False(t, res.RateLimited)

	require.Len(t, client.requests, 2)
	assert.Equal(t, int64(0), client.requests[0].OffsetID)
	assert.Equal(t, int64(5), client.requests[1].OffsetID, "next offset is the batch minimum id")

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 4, "header plus three records")
}

func TestHistoryContinuesPastFullyFilteredBatch(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{
		batches: [][]telegram.RawMessage{
			// Every item is newer than the window; nothing is kept but
			// the batch is non-empty, so the walk must go on.
			{msgAt(9, 50), msgAt(8, 45)},
			{msgAt(3, 30), msgAt(2, 25)},
			// Third request yields zero raw items: end of history.
		},
	}
	sink := &memSink{}
	crawler := NewHistory(client, sink, nil, HistoryConfig{
		PeerID:    -100,
		From:      time.Unix(20, 0).UTC(),
		To:        time.Unix(40, 0).UTC(),
		BatchSize: 100,
	}, nil)

	res, err := crawler.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, res.Requests)
	assert.Equal(t, int64(2), res.Records)
	assert.Equal(t, int64(2), res.Dropped)

	// The offset advances over the raw minimum even when the whole
	// batch was filtered out.
	require.Len(t, client.requests, 3)
	assert.Equal(t, int64(8), client.requests[1].OffsetID)
	assert.Equal(t, int64(2), client.requests[2].OffsetID)

	var kept []int64
	for _, rec := range sink.records {
		id, ok := rec.Value("id")
		require.True(t, ok)
		kept = append(kept, id.Int)
	}
	assert.ElementsMatch(t, []int64{2, 3}, kept)
}

func TestHistoryEmptyWindow(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.csv")
	sink, err := export.NewCSVSink(path, nil)
	require.NoError(t, err)

	client := &scriptedClient{}
	crawler := NewHistory(client, sink, nil, HistoryConfig{
		PeerID:    -100,
		From:      time.Unix(20, 0).UTC(),
		To:        time.Unix(40, 0).UTC(),
		BatchSize: 100,
	}, nil)

	res, err := crawler.Run(context.Background())
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	assert.Zero(t, res.Records)
	assert.Equal(t, 1, res.Requests)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestHistoryRateLimitStopsRun(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.csv")
	sink, err := export.NewCSVSink(path, nil)
	require.NoError(t, err)

	client := &scriptedClient{
		batches: [][]telegram.RawMessage{
			{msgAt(7, 25), msgAt(6, 24), msgAt(5, 23)},
		},
		searchErrs: map[int]error{
			1: &telegram.RateLimitedError{Wait: 30 * time.Second},
		},
	}
	crawler := NewHistory(client, sink, nil, HistoryConfig{
		PeerID:    -100,
		From:      time.Unix(20, 0).UTC(),
		To:        time.Unix(40, 0).UTC(),
		BatchSize: 100,
	}, nil)

	res, err := crawler.Run(context.Background())
	require.NoError(t, err, "rate limiting is a terminal outcome, not an error")
	require.NoError(t, sink.Close())

	assert.True(t, res.RateLimited)
	assert.Equal(t, 30, res.WaitSeconds)
	assert.Equal(t, int64(3), res.Records)

	// Previously sunk records remain on disk.
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

func TestHistoryStalledOffsetStops(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{
		batches: [][]telegram.RawMessage{
			{msgAt(7, 25), msgAt(6, 24), msgAt(5, 23)},
		},
		loop: true,
	}
	sink := &memSink{}
	crawler := NewHistory(client, sink, nil, HistoryConfig{
		PeerID:    -100,
		From:      time.Unix(20, 0).UTC(),
		To:        time.Unix(40, 0).UTC(),
		BatchSize: 100,
	}, nil)

	res, err := crawler.Run(context.Background())
	require.NoError(t, err)

	// The second batch's minimum id (5) does not advance past the
	// cursor, so the run stops instead of looping forever.
	assert.Equal(t, 2, res.Requests)
	assert.Equal(t, int64(6), res.Records)
}

func TestHistoryResolveFailure(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{
		resolveErr: &telegram.NotFoundError{Kind: "peer", ID: -100},
	}
	crawler := NewHistory(client, &memSink{}, nil, HistoryConfig{
		PeerID: -100,
		From:   time.Unix(20, 0).UTC(),
		To:     time.Unix(40, 0).UTC(),
	}, nil)

	_, err := crawler.Run(context.Background())
	var nf *telegram.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestThreadExportsAllReplies(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{
		anchor: telegram.RawMessage{
			ID:    158404,
			Date:  time.Unix(100, 0).UTC(),
			Attrs: map[string]any{"message": "anchor post"},
		},
		thread: []telegram.RawMessage{
			msgAt(10, 110),
			msgAt(11, 111),
			msgAt(12, 112),
		},
	}
	sink := &memSink{}
	crawler := NewThread(client, sink, nil, ThreadConfig{PeerID: -100, PostID: 158404}, nil)

	res, err := crawler.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(3), res.Records)
	require.Len(t, sink.records, 3)
	assert.Equal(t, export.ModeComments.Fields(), sink.records[0].Fields())
}

func TestThreadRateLimitMidIteration(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{
		anchor: telegram.RawMessage{ID: 158404, Date: time.Unix(100, 0).UTC()},
		thread: []telegram.RawMessage{
			msgAt(10, 110),
			msgAt(11, 111),
		},
		threadErr: &telegram.RateLimitedError{Wait: 45 * time.Second},
	}
	sink := &memSink{}
	crawler := NewThread(client, sink, nil, ThreadConfig{PeerID: -100, PostID: 158404}, nil)

	res, err := crawler.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, res.RateLimited)
	assert.Equal(t, 45, res.WaitSeconds)
	assert.Equal(t, int64(2), res.Records)
}

func TestThreadMissingAnchorFails(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{
		anchorErr: &telegram.NotFoundError{Kind: "message", ID: 1},
	}
	crawler := NewThread(client, &memSink{}, nil, ThreadConfig{PeerID: -100, PostID: 1}, nil)

	_, err := crawler.Run(context.Background())
	var nf *telegram.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestCursorWindow(t *testing.T) {
	t.Parallel()

	c := NewCursor(time.Unix(20, 0), time.Unix(40, 0), 100)
	assert.False(t, c.InWindow(10))
	assert.True(t, c.InWindow(20))
	assert.True(t, c.InWindow(30))
	assert.True(t, c.InWindow(39))
	assert.False(t, c.InWindow(40), "window is half-open")
}
