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

// newCommentsCmd creates the 'comments' subcommand, which exports the
// full reply thread of one channel post into one CSV file.
func newCommentsCmd() *cobra.Command {
	var (
		peerID int64
		postID int64
	)

	cmd := &cobra.Command{
		Use:   "comments",
		Short: "Export a channel post's comment thread to CSV",
		Long: `Iterates every reply in the discussion thread anchored at the given
post and writes one CSV row per comment.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			ctx := cmd.Context()

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

			relPath := filepath.Join("comments", fmt.Sprintf("%d_%d_comments.csv", peerID, postID))
			outPath := filepath.Join(a.Config().Export.OutputDir, relPath)

			sink, err := buildSink(ctx, a, outPath, runID, export.ModeComments, peerID)
			if err != nil {
				return err
			}

			crawler := engine.NewThread(client, sink, enginePacer(a), engine.ThreadConfig{
				PeerID: peerID,
				PostID: postID,
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
				Mode:        string(export.ModeComments),
				PeerID:      peerID,
				PostID:      postID,
				Records:     res.Records,
				Requests:    res.Requests,
				RateLimited: res.RateLimited,
				WaitSeconds: res.WaitSeconds,
				OutputPath:  outPath,
			}, outPath, filepath.ToSlash(relPath))
			return nil
		},
	}

	cmd.Flags().Int64Var(&peerID, "peer", 0, "numeric peer id of the channel (required)")
	cmd.Flags().Int64Var(&postID, "post", 0, "message id of the anchor post (required)")
	_ = cmd.MarkFlagRequired("peer")
	_ = cmd.MarkFlagRequired("post")

	return cmd
}
