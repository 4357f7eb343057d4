// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avdeyk/tgexport/internal/export"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// RecordStoreConfig controls the Postgres connection pool used for
// exported message rows.
type RecordStoreConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type execCloser interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Close()
}

// RecordStore writes exported records into Postgres, one row per
// message, with the full record as a JSONB payload.
type RecordStore struct {
	pool  execCloser
	table string
}

// NewRecordStore creates a Postgres-backed RecordStore using the provided config.
func NewRecordStore(ctx context.Context, cfg RecordStoreConfig) (*RecordStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "export_records"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &RecordStore{
		pool:  pool,
		table: table,
	}, nil
}

// NewRecordStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewRecordStoreWithPool(pool execCloser, table string) (*RecordStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "export_records"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &RecordStore{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *RecordStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// RunInfo identifies the export run a row belongs to.
type RunInfo struct {
	RunID  string
	Mode   export.Mode
	PeerID int64
}

// Sink binds the store to one run and returns a sink whose Accept
// inserts a row per record. Closing the sink does not close the pool;
// a store outlives the runs it serves.
func (s *RecordStore) Sink(ctx context.Context, run RunInfo) export.Sink {
	return &recordSink{store: s, ctx: ctx, run: run}
}

type recordSink struct {
	store *RecordStore
	ctx   context.Context
	run   RunInfo
}

func (rs *recordSink) Accept(rec export.Record) error {
	s := rs.store
	if s == nil || s.pool == nil {
		return fmt.Errorf("record store is not configured")
	}
	if rs.run.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	var messageID int64
	if v, ok := rec.Value("id"); ok {
		messageID = v.Int
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	run_id,
	mode,
	peer_id,
	message_id,
	payload,
	exported_at
) VALUES (
	$1,$2,$3,$4,$5,$6
)`, s.table)

	args := []any{
		rs.run.RunID,
		string(rs.run.Mode),
		rs.run.PeerID,
		messageID,
		[]byte(rec.JSONText()),
		time.Now().UTC(),
	}
	if _, err := s.pool.Exec(rs.ctx, query, args...); err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

func (rs *recordSink) Close() error { return nil }
