package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"go.uber.org/zap"

	"github.com/avdeyk/tgexport/internal/export"
	"github.com/avdeyk/tgexport/internal/telegram"
	"github.com/avdeyk/tgexport/internal/telemetry"
)

// ThreadConfig parameterizes one comment-thread export run.
type ThreadConfig struct {
	PeerID int64
	PostID int64
}

// Thread exports every reply anchored at one channel post. The remote
// client's own thread primitive drives the walk; the engine only
// converts items and counts progress.
type Thread struct {
	client telegram.Client
	sink   export.Sink
	pacer  Pacer
	cfg    ThreadConfig
	logger *zap.Logger
}

// NewThread constructs a thread crawler. pacer may be nil.
func NewThread(client telegram.Client, sink export.Sink, pacer Pacer, cfg ThreadConfig, logger *zap.Logger) *Thread {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Thread{
		client: client,
		sink:   sink,
		pacer:  pacer,
		cfg:    cfg,
		logger: logger,
	}
}

// Run iterates the thread to its end, a rate limit, or a fatal error.
func (t *Thread) Run(ctx context.Context) (Result, error) {
	var res Result

	entity, err := t.client.ResolveEntity(ctx, t.cfg.PeerID)
	if err != nil {
		return res, fmt.Errorf("resolve peer %d: %w", t.cfg.PeerID, err)
	}
	if entity.Kind != "channel" {
		t.logger.Warn("peer is not a channel; thread iteration may fail",
			zap.Int64("peer_id", t.cfg.PeerID),
			zap.String("kind", entity.Kind),
		)
	}
	peerKey := strconv.FormatInt(t.cfg.PeerID, 10)

	if t.pacer != nil {
		if err := t.pacer.Wait(ctx, peerKey); err != nil {
			return res, fmt.Errorf("pace request: %w", err)
		}
	}

	// Confirm the anchor post exists before walking its replies.
	anchor, err := t.client.GetMessage(ctx, entity, t.cfg.PostID)
	res.Requests++
	telemetry.RequestsTotal.WithLabelValues(string(export.ModeComments)).Inc()
	if err != nil {
		return res, fmt.Errorf("load anchor post %d: %w", t.cfg.PostID, err)
	}
	t.logger.Info("anchor post loaded",
		zap.Int64("post_id", anchor.ID),
		zap.String("preview", postPreview(anchor)),
	)

	iter, err := t.client.IterateThread(ctx, entity, t.cfg.PostID)
	if err != nil {
		if terminal := t.noteRateLimit(err, &res); terminal {
			return res, nil
		}
		return res, fmt.Errorf("open thread %d: %w", t.cfg.PostID, err)
	}

	for {
		item, err := iter.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if terminal := t.noteRateLimit(err, &res); terminal {
				return res, nil
			}
			return res, fmt.Errorf("iterate thread %d: %w", t.cfg.PostID, err)
		}

		rec := export.ProjectComment(item)
		if err := t.sink.Accept(rec); err != nil {
			return res, fmt.Errorf("sink comment %d: %w", item.ID, err)
		}
		res.Records++
		telemetry.RecordsTotal.WithLabelValues(string(export.ModeComments)).Inc()
		if res.Records%20 == 0 {
			t.logger.Info("collected comments", zap.Int64("records", res.Records))
		}
	}

	return res, nil
}

// noteRateLimit converts a flood-wait error into the terminal
// rate-limited outcome. Reports whether the error was one.
func (t *Thread) noteRateLimit(err error, res *Result) bool {
	var rl *telegram.RateLimitedError
	if !errors.As(err, &rl) {
		return false
	}
	telemetry.RateLimitHitsTotal.Inc()
	res.RateLimited = true
	res.WaitSeconds = rl.Seconds()
	t.logger.Warn("rate limited, stopping run",
		zap.Int("wait_seconds", res.WaitSeconds),
		zap.Int64("records", res.Records),
	)
	return true
}

func postPreview(msg telegram.RawMessage) string {
	raw, ok := msg.Attr("message")
	if !ok {
		return ""
	}
	text, ok := raw.(string)
	if !ok {
		return ""
	}
	runes := []rune(text)
	if len(runes) > 80 {
		return string(runes[:80])
	}
	return text
}
