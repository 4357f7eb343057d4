package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/avdeyk/tgexport/internal/engine"
	"github.com/avdeyk/tgexport/internal/export"
	"github.com/avdeyk/tgexport/internal/queue"
	"github.com/avdeyk/tgexport/internal/storage/postgres"
)

// parseDate accepts a plain date or a full RFC 3339 timestamp.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD or RFC 3339)", s)
	}
	return t.UTC(), nil
}

// buildSink assembles the CSV sink for a run, mirrored into Postgres
// when a record store is configured.
func buildSink(ctx context.Context, a App, path, runID string, mode export.Mode, peerID int64) (export.Sink, error) {
	csvSink, err := export.NewCSVSink(path, a.Logger())
	if err != nil {
		return nil, fmt.Errorf("open output file: %w", err)
	}
	if rs := a.Records(); rs != nil {
		return export.NewMultiSink(csvSink, rs.Sink(ctx, postgres.RunInfo{
			RunID:  runID,
			Mode:   mode,
			PeerID: peerID,
		})), nil
	}
	return csvSink, nil
}

// enginePacer adapts the app's optional limiter to the engine interface
// without wrapping a nil pointer in a non-nil interface value.
func enginePacer(a App) engine.Pacer {
	if p := a.Pacer(); p != nil {
		return p
	}
	return nil
}

// completeRun archives the finished file, announces the run, and prints
// the operator-facing outcome. Archival and announcement are best
// effort; the exported file on disk is the primary result.
func completeRun(cmd *cobra.Command, a App, event queue.RunEvent, path, objectName string) {
	ctx := cmd.Context()

	uri, err := a.Artifacts().Upload(ctx, path, objectName)
	if err != nil {
		a.Logger().Warn("artifact upload failed", zap.String("path", path), zap.Error(err))
	} else if uri != "" {
		event.ArtifactURI = uri
		a.Logger().Info("artifact archived", zap.String("uri", uri))
	}

	event.CompletedAt = time.Now().UTC()
	if err := a.Events().Publish(ctx, event); err != nil {
		a.Logger().Warn("run event publish failed", zap.Error(err))
	}

	switch {
	case event.RateLimited:
		cmd.Printf("Rate limited by Telegram. Try again in %d seconds. Exported %d records before stopping.\n",
			event.WaitSeconds, event.Records)
	case event.Records == 0:
		cmd.Println("No messages in the given interval.")
	default:
		cmd.Printf("Exported %d records to %s\n", event.Records, path)
	}
}
