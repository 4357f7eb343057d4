// Package engine drives the two traversals over remote chat history:
// backward date-windowed pagination over a whole chat, and forward
// iteration over the reply thread of one post. Each run is strictly
// sequential: the next request is computed from the previous batch, so
// there is never more than one request in flight.
package engine

import (
	"context"
	"time"
)

// Cursor describes where in history the next pagination request should
// resume. Created once per run from the configured window, mutated only
// by the engine: OffsetID strictly decreases across successful batches.
type Cursor struct {
	OffsetID  int64
	MinTS     int64
	MaxTS     int64
	BatchSize int
}

// NewCursor builds the initial cursor for a half-open window [from, to).
// OffsetID zero means "start at the newest message".
func NewCursor(from, to time.Time, batchSize int) Cursor {
	return Cursor{
		MinTS:     from.Unix(),
		MaxTS:     to.Unix(),
		BatchSize: batchSize,
	}
}

// InWindow reports whether an item timestamp falls inside the cursor's
// half-open window [MinTS, MaxTS). The engine applies this check itself
// rather than trusting the remote filter's edge behavior.
func (c Cursor) InWindow(ts int64) bool {
	return ts >= c.MinTS && ts < c.MaxTS
}

// Result summarizes a finished run. RateLimited is a terminal outcome,
// not an error: the run stopped cleanly after flushing everything sunk
// so far, and WaitSeconds carries the server-advertised flood wait for
// the operator.
type Result struct {
	Records     int64
	Requests    int
	Dropped     int64
	RateLimited bool
	WaitSeconds int
}

// Pacer spaces requests out client-side. Implemented by
// policy/ratelimit; nil disables pacing.
type Pacer interface {
	Wait(ctx context.Context, peer string) error
}
