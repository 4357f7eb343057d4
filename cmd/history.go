package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/avdeyk/tgexport/internal/engine"
	"github.com/avdeyk/tgexport/internal/export"
	"github.com/avdeyk/tgexport/internal/queue"
)

// newHistoryCmd creates the 'history' subcommand, which exports a
// chat's messages inside a date window into one CSV file.
func newHistoryCmd() *cobra.Command {
	var (
		peerID   int64
		fromStr  string
		toStr    string
		query    string
		noLimits bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Export a chat's message history to CSV",
		Long: `Walks the chat's history backward from the newest message, keeping
only messages whose timestamp falls inside [--from, --to), and writes
one CSV row per message.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			from, err := parseDate(fromStr)
			if err != nil {
				return err
			}
			to, err := parseDate(toStr)
			if err != nil {
				return err
			}
			if !from.Before(to) {
				return fmt.Errorf("--from (%s) must be before --to (%s)", fromStr, toStr)
			}

			client, err := a.Sessions().Authenticate(ctx)
			if err != nil {
				return fmt.Errorf("authenticate: %w", err)
			}
			defer func() {
				if cerr := client.Close(); cerr != nil {
					a.Logger().Warn("close telegram client", zap.Error(cerr))
				}
			}()

			runID, err := a.NewRunID()
			if err != nil {
				return fmt.Errorf("generate run id: %w", err)
			}

			relPath := filepath.Join("chats", fmt.Sprintf("%d_chat_messages.csv", peerID))
			outPath := filepath.Join(a.Config().Export.OutputDir, relPath)

			sink, err := buildSink(ctx, a, outPath, runID, export.ModeHistory, peerID)
			if err != nil {
				return err
			}

			var pacer engine.Pacer
			if !noLimits {
				pacer = enginePacer(a)
			}
			crawler := engine.NewHistory(client, sink, pacer, engine.HistoryConfig{
				PeerID:    peerID,
				From:      from,
				To:        to,
				BatchSize: a.Config().Export.BatchSize,
				Query:     query,
			}, a.Logger())

			res, runErr := crawler.Run(ctx)
			if cerr := sink.Close(); cerr != nil && runErr == nil {
				runErr = fmt.Errorf("close sink: %w", cerr)
			}
			if runErr != nil {
				return runErr
			}

			completeRun(cmd, a, queue.RunEvent{
				RunID:       runID,
				Mode:        string(export.ModeHistory),
				PeerID:      peerID,
				Records:     res.Records,
				Requests:    res.Requests,
				Dropped:     res.Dropped,
				RateLimited: res.RateLimited,
				WaitSeconds: res.WaitSeconds,
				OutputPath:  outPath,
			}, outPath, filepath.ToSlash(relPath))
			return nil
		},
	}

	cmd.Flags().Int64Var(&peerID, "peer", 0, "numeric peer id of the chat (required)")
	cmd.Flags().StringVar(&fromStr, "from", "", "window start, inclusive (required)")
	cmd.Flags().StringVar(&toStr, "to", "", "window end, exclusive (required)")
	cmd.Flags().StringVar(&query, "query", "", "optional server-side keyword filter")
	cmd.Flags().BoolVar(&noLimits, "no-pacing", false, "disable client-side request pacing")
	_ = cmd.MarkFlagRequired("peer")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}
