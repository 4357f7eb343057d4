package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/avdeyk/tgexport/internal/export"
	"github.com/avdeyk/tgexport/internal/telegram"
	"github.com/avdeyk/tgexport/internal/telemetry"
)

// HistoryConfig parameterizes one whole-chat export run.
type HistoryConfig struct {
	PeerID    int64
	From      time.Time // inclusive
	To        time.Time // exclusive
	BatchSize int
	Query     string // keyword filter, empty for full history
}

// History walks a chat's history backward in id-space, one date-windowed
// page at a time, projecting every in-window item into the sink.
type History struct {
	client telegram.Client
	sink   export.Sink
	pacer  Pacer
	cfg    HistoryConfig
	logger *zap.Logger
}

// NewHistory constructs a history crawler. pacer may be nil.
func NewHistory(client telegram.Client, sink export.Sink, pacer Pacer, cfg HistoryConfig, logger *zap.Logger) *History {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &History{
		client: client,
		sink:   sink,
		pacer:  pacer,
		cfg:    cfg,
		logger: logger,
	}
}

// Run executes the crawl until end of history, a rate limit, or a fatal
// error. Records already accepted by the sink stay there regardless of
// how the run ends; closing the sink is the caller's responsibility.
func (h *History) Run(ctx context.Context) (Result, error) {
	var res Result

	entity, err := h.client.ResolveEntity(ctx, h.cfg.PeerID)
	if err != nil {
		return res, fmt.Errorf("resolve peer %d: %w", h.cfg.PeerID, err)
	}
	// Normalized once per run; every record shares this value.
	peer := export.Normalize(entity.Descriptor())
	peerKey := strconv.FormatInt(h.cfg.PeerID, 10)

	cursor := NewCursor(h.cfg.From, h.cfg.To, h.cfg.BatchSize)
	h.logger.Info("starting history export",
		zap.String("chat", entity.DisplayName(h.cfg.PeerID)),
		zap.Int64("min_ts", cursor.MinTS),
		zap.Int64("max_ts", cursor.MaxTS),
		zap.Int("batch_size", cursor.BatchSize),
	)

	for {
		if h.pacer != nil {
			if err := h.pacer.Wait(ctx, peerKey); err != nil {
				return res, fmt.Errorf("pace request: %w", err)
			}
		}

		batch, err := h.client.SearchMessages(ctx, telegram.SearchRequest{
			Entity:   entity,
			Query:    h.cfg.Query,
			OffsetID: cursor.OffsetID,
			MinDate:  cursor.MinTS,
			MaxDate:  cursor.MaxTS,
			Limit:    cursor.BatchSize,
		})
		res.Requests++
		telemetry.RequestsTotal.WithLabelValues(string(export.ModeHistory)).Inc()
		if err != nil {
			var rl *telegram.RateLimitedError
			if errors.As(err, &rl) {
				telemetry.RateLimitHitsTotal.Inc()
				res.RateLimited = true
				res.WaitSeconds = rl.Seconds()
				h.logger.Warn("rate limited, stopping run",
					zap.Int("wait_seconds", res.WaitSeconds),
					zap.Int64("records", res.Records),
				)
				return res, nil
			}
			return res, fmt.Errorf("search messages: %w", err)
		}

		// A raw empty batch is the end-of-history sentinel. An empty
		// filtered result alone does not stop the walk; the server-side
		// date filter exhausts naturally.
		if len(batch) == 0 {
			break
		}

		minID, err := h.consumeBatch(batch, cursor, peer, &res)
		if err != nil {
			return res, err
		}

		if cursor.OffsetID != 0 && minID >= cursor.OffsetID {
			// The next offset must strictly decrease or we would loop
			// forever on the same page.
			h.logger.Warn("pagination offset stalled, stopping",
				zap.Int64("offset_id", cursor.OffsetID),
				zap.Int64("min_id", minID),
			)
			break
		}
		cursor.OffsetID = minID
	}

	return res, nil
}

// consumeBatch projects every in-window item of one batch into the sink
// and returns the minimum id observed across all raw items.
func (h *History) consumeBatch(batch []telegram.RawMessage, cursor Cursor, peer export.Value, res *Result) (int64, error) {
	var minID int64
	for _, item := range batch {
		if minID == 0 || item.ID < minID {
			minID = item.ID
		}
		if !item.HasDate() {
			// Empty/deleted placeholders carry no timestamp.
			continue
		}
		if !cursor.InWindow(item.Date.Unix()) {
			res.Dropped++
			telemetry.DroppedOutOfWindowTotal.Inc()
			continue
		}

		rec := export.ProjectMessage(item, peer)
		if err := h.sink.Accept(rec); err != nil {
			return minID, fmt.Errorf("sink message %d: %w", item.ID, err)
		}
		res.Records++
		telemetry.RecordsTotal.WithLabelValues(string(export.ModeHistory)).Inc()
		if res.Records%500 == 0 {
			h.logger.Info("collected", zap.Int64("records", res.Records))
		}
	}
	return minID, nil
}
