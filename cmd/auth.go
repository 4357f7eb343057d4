package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/avdeyk/tgexport/internal/telegram"
)

// newAuthCmd creates the 'auth' subcommand, which establishes and
// verifies a session without exporting anything.
func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Establish and verify a Telegram session",
		Long: `Authenticates against the configured provider and reports the account
the session belongs to. Run this once before the export commands.`,

		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			client, err := a.Sessions().Authenticate(ctx)
			if err != nil {
				if errors.Is(err, telegram.ErrNotAuthorized) {
					return fmt.Errorf("session is not authorized; check telegram.api_id and telegram.api_hash: %w", err)
				}
				return fmt.Errorf("authenticate: %w", err)
			}
			defer func() {
				if cerr := client.Close(); cerr != nil {
					a.Logger().Warn("close telegram client", zap.Error(cerr))
				}
			}()

			me, err := client.Me(ctx)
			if err != nil {
				return fmt.Errorf("load own account: %w", err)
			}

			cmd.Printf("Authorized as %s\n", me.DisplayName(me.ID))
			return nil
		},
	}
	return cmd
}
