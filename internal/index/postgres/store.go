// Package postgres implements the indexing gateway on Postgres, one row
// per chunk. A downstream embedding job reads the table; this side only
// keeps it consistent with the corpus.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/standards-sync/internal/corpus"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for chunk rows.
type Config struct {
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

// Store writes chunk rows into Postgres.
type Store struct {
	pool  execCloser
	table string
}

// New creates a Postgres-backed Store using the provided config.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("index.postgres.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "chunks"
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
	return &Store{pool: pool, table: table}, nil
}

// NewWithPool constructs a Store from an existing pool (primarily for testing).
func NewWithPool(pool execCloser, table string) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "chunks"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Store{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Add replaces the stored chunks for a document: stale rows for the same
// filename are deleted first, then the new batch is inserted. All chunks
// in one batch belong to the same file and arrive in ascending page order.
func (s *Store) Add(ctx context.Context, chunks []corpus.Chunk) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("chunk store is not configured")
	}
	if len(chunks) == 0 {
		return nil
	}

	filename := chunks[0].Metadata.Filename
	deleteStale := fmt.Sprintf(`DELETE FROM %s WHERE filename = $1`, s.table)
	if _, err := s.pool.Exec(ctx, deleteStale, filename); err != nil {
		return fmt.Errorf("delete stale chunks for %s: %w", filename, err)
	}

	insert := fmt.Sprintf(`
INSERT INTO %s (
	id,
	filename,
	source,
	page_range,
	rs_number,
	start_page,
	end_page,
	content
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8
)`, s.table)

	for _, chunk := range chunks {
		if chunk.ID == "" {
			return fmt.Errorf("chunk id is required")
		}
		args := []any{
			chunk.ID,
			chunk.Metadata.Filename,
			chunk.Metadata.Source,
			chunk.Metadata.PageRange,
			chunk.Metadata.RSNumber,
			chunk.StartPage,
			chunk.EndPage,
			chunk.Text,
		}
		if _, err := s.pool.Exec(ctx, insert, args...); err != nil {
			return fmt.Errorf("insert chunk %s: %w", chunk.ID, err)
		}
	}
	return nil
}
