// Package cmd defines and implements the CLI commands for the tgexport
// executable.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/avdeyk/tgexport/internal/app"
	"github.com/avdeyk/tgexport/internal/config"
	"github.com/avdeyk/tgexport/internal/policy/ratelimit"
	"github.com/avdeyk/tgexport/internal/queue"
	"github.com/avdeyk/tgexport/internal/storage"
	"github.com/avdeyk/tgexport/internal/storage/postgres"
	"github.com/avdeyk/tgexport/internal/telegram"
)

var cfgFile string

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// App defines the application interface that commands use. This allows
// injecting a mock app during tests.
type App interface {
	Close()
	Config() config.Config
	Logger() *zap.Logger
	Sessions() telegram.SessionProvider
	Records() *postgres.RecordStore
	Artifacts() storage.ArtifactStore
	Events() queue.Provider
	Pacer() *ratelimit.Limiter
	NewRunID() (string, error)
}

// newApp is the application factory. It is a variable so tests can
// replace it with a mock factory.
var newApp = func(ctx context.Context) (App, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return app.New(ctx, cfg)
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tgexport",
		Short: "Exports Telegram chat history and comment threads to CSV.",
		Long: `tgexport walks a chat's history backward through a date window, or a
channel post's reply thread front to back, and streams every message
into a CSV file with a fixed column set. Records can additionally be
mirrored into Postgres, archived to GCS, and announced over Pub/Sub.`,

		// Runs after flags are parsed but before the subcommand's RunE,
		// so every subcommand finds an initialized app in its context.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cmd.Context())
			if err != nil {
				return fmt.Errorf("initialize application services: %w", err)
			}
			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			cmd.SetContext(ctx)
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(App); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default reads TGEXPORT_* environment)")

	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newCommentsCmd())
	cmd.AddCommand(newAuthCmd())

	return cmd
}

func resolveApp(ctx context.Context) (App, error) {
	appInstance, ok := ctx.Value(appKey).(App)
	if !ok || appInstance == nil {
		return nil, fmt.Errorf("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
