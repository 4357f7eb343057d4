// Package app initializes and holds long-lived application services,
// acting as a dependency injection container.
package app

import (
	"context"
	"fmt"

	gstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/avdeyk/tgexport/internal/config"
	"github.com/avdeyk/tgexport/internal/id/uuid"
	"github.com/avdeyk/tgexport/internal/logging"
	"github.com/avdeyk/tgexport/internal/policy/ratelimit"
	"github.com/avdeyk/tgexport/internal/queue"
	"github.com/avdeyk/tgexport/internal/storage"
	"github.com/avdeyk/tgexport/internal/storage/gcs"
	"github.com/avdeyk/tgexport/internal/storage/postgres"
	"github.com/avdeyk/tgexport/internal/telegram"
	"github.com/avdeyk/tgexport/internal/telemetry"
)

// App holds the shared, long-lived services for the exporter. It is
// initialized once at startup from the loaded configuration and passed
// to the commands that need it.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	sessions  telegram.SessionProvider
	records   *postgres.RecordStore
	artifacts storage.ArtifactStore
	events    queue.Provider
	pacer     *ratelimit.Limiter
	ids       *uuid.Generator
}

// Config returns the configuration the app was built from.
func (a *App) Config() config.Config { return a.cfg }

// Logger returns the shared zap logger instance.
func (a *App) Logger() *zap.Logger { return a.logger }

// Sessions exposes the configured Telegram session provider.
func (a *App) Sessions() telegram.SessionProvider { return a.sessions }

// Records returns the relational record store, or nil when the db
// provider is noop.
func (a *App) Records() *postgres.RecordStore { return a.records }

// Artifacts exposes the configured artifact store.
func (a *App) Artifacts() storage.ArtifactStore { return a.artifacts }

// Events returns the provider used to announce finished runs.
func (a *App) Events() queue.Provider { return a.events }

// Pacer returns the client-side request pacer, or nil when pacing is
// disabled.
func (a *App) Pacer() *ratelimit.Limiter { return a.pacer }

// NewRunID generates a fresh run identifier.
func (a *App) NewRunID() (string, error) { return a.ids.NewID() }

// New creates and initializes an App from configuration. It is the
// central point for service initialization and fails fast if any
// configured service cannot be built.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	var sessions telegram.SessionProvider
	switch cfg.Telegram.Provider {
	case "noop":
		logger.Info("using no-op telegram provider; runs will export nothing")
		sessions = &telegram.NoOpSessionProvider{}
	default:
		return nil, fmt.Errorf("unknown telegram provider: %s", cfg.Telegram.Provider)
	}

	var records *postgres.RecordStore
	switch cfg.DB.Provider {
	case "postgres":
		logger.Info("connecting to postgres", zap.String("table", cfg.DB.Table))
		records, err = postgres.NewRecordStore(ctx, postgres.RecordStoreConfig{
			DSN:   cfg.DB.DSN,
			Table: cfg.DB.Table,
		})
		if err != nil {
			return nil, fmt.Errorf("initialize record store: %w", err)
		}
	case "noop":
		logger.Info("using no-op db provider; records stay on disk only")
	default:
		return nil, fmt.Errorf("unknown db provider: %s", cfg.DB.Provider)
	}

	var artifacts storage.ArtifactStore
	switch cfg.Artifacts.Provider {
	case "gcs":
		logger.Info("using gcs artifact store", zap.String("bucket", cfg.Artifacts.Bucket))
		client, err := gstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create gcs client: %w", err)
		}
		artifacts, err = gcs.New(client, gcs.Config{
			Bucket: cfg.Artifacts.Bucket,
			Prefix: cfg.Artifacts.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("initialize artifact store: %w", err)
		}
	case "noop":
		artifacts = &storage.NoOpStore{}
	default:
		return nil, fmt.Errorf("unknown artifacts provider: %s", cfg.Artifacts.Provider)
	}

	var events queue.Provider
	switch cfg.Events.Provider {
	case "pubsub":
		logger.Info("connecting to pub/sub", zap.String("topic", cfg.Events.TopicID))
		events, err = queue.NewPubSubProvider(ctx, cfg.Events.ProjectID, cfg.Events.TopicID, logger)
		if err != nil {
			return nil, fmt.Errorf("initialize events: %w", err)
		}
	case "noop":
		events = &queue.NoOpProvider{}
	default:
		return nil, fmt.Errorf("unknown events provider: %s", cfg.Events.Provider)
	}

	var pacer *ratelimit.Limiter
	if cfg.RateLimit.RPS > 0 {
		pacer = ratelimit.New(ratelimit.Config{
			DefaultRPS:   cfg.RateLimit.RPS,
			DefaultBurst: cfg.RateLimit.Burst,
		})
	}

	if cfg.Metrics.Enabled {
		telemetry.Serve(cfg.Metrics.Addr, logger)
	}

	return &App{
		cfg:       cfg,
		logger:    logger,
		sessions:  sessions,
		records:   records,
		artifacts: artifacts,
		events:    events,
		pacer:     pacer,
		ids:       uuid.New(),
	}, nil
}

// Close gracefully shuts down all services in the App container. It is
// called by a Cobra hook after the command finishes execution.
func (a *App) Close() {
	if a.records != nil {
		a.records.Close()
	}
	if err := a.events.Close(); err != nil {
		a.logger.Warn("error closing events client", zap.Error(err))
	}
	// Flush any buffered log entries. Best effort; stderr may not be
	// syncable on every platform.
	_ = a.logger.Sync()
}
