// Package sqlite persists consolidated evidence into a single SQLite case
// database.
package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/aretw0/introspection"

	"github.com/aretw0/strata/pkg/core"
)

const schema = `
CREATE TABLE IF NOT EXISTS evidence (
	id         TEXT PRIMARY KEY,
	kind       TEXT NOT NULL,
	attributes TEXT NOT NULL,
	winner     INTEGER NOT NULL DEFAULT 0,
	written_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS evidence_kind ON evidence (kind);
CREATE TABLE IF NOT EXISTS sources (
	evidence_id TEXT NOT NULL REFERENCES evidence (id) ON DELETE CASCADE,
	ordinal     INTEGER NOT NULL,
	path        TEXT NOT NULL,
	deleted     INTEGER NOT NULL,
	size        INTEGER NOT NULL,
	mod_time    TEXT,
	PRIMARY KEY (evidence_id, ordinal)
);
`

// Config holds the configuration for the SQLite sink.
type Config struct {
	// Path is the database file. Its parent directory is created.
	Path     string
	PoolSize int
	ReadOnly bool
	Logger   *slog.Logger
}

// Sink implements core.Sink over a pooled SQLite database.
type Sink struct {
	config Config
	pool   *sqlitex.Pool
	log    *slog.Logger

	mu        sync.RWMutex
	written   int
	lastWrite *time.Time
}

// Open opens (or creates) the database. In read-only mode the file must
// already exist.
func Open(config Config) (*Sink, error) {
	if config.Path == "" {
		return nil, errors.New("sqlite sink: path cannot be empty")
	}
	if config.PoolSize <= 0 {
		config.PoolSize = 2
	}
	log := config.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	if config.ReadOnly {
		if _, err := os.Stat(config.Path); err != nil {
			return nil, fmt.Errorf("sqlite sink: %w", err)
		}
	} else if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err != nil {
		return nil, fmt.Errorf("sqlite sink: %w", err)
	}

	pool, err := sqlitex.NewPool(config.Path, sqlitex.PoolOptions{
		PoolSize:    config.PoolSize,
		PrepareConn: prepareConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite sink: opening %s: %w", config.Path, err)
	}
	log.Debug("sqlite sink opened", "path", config.Path, "pool_size", config.PoolSize)
	return &Sink{config: config, pool: pool, log: log}, nil
}

func prepareConnection(conn *sqlite.Conn) error {
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return nil
}

// Initialize creates the schema.
func (s *Sink) Initialize(ctx context.Context) error {
	if s.config.ReadOnly {
		return nil
	}
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("sqlite sink: take: %w", err)
	}
	defer s.pool.Put(conn)

	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("sqlite sink: create schema: %w", err)
	}
	return nil
}

// Write implements core.Sink. The batch is written in one transaction and
// records with an existing id are replaced along with their sources.
func (s *Sink) Write(ctx context.Context, evidence []core.Evidence) (err error) {
	if s.config.ReadOnly {
		return core.ErrReadOnly
	}
	if len(evidence) == 0 {
		return nil
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("sqlite sink: take: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("sqlite sink: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	now := time.Now()
	for _, e := range evidence {
		if err = ctx.Err(); err != nil {
			return err
		}
		if err = insert(conn, e, now); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.written += len(evidence)
	s.lastWrite = &now
	s.mu.Unlock()

	s.log.Info("evidence written", "path", s.config.Path, "count", len(evidence))
	return nil
}

func insert(conn *sqlite.Conn, e core.Evidence, now time.Time) error {
	attrs, err := json.Marshal(e.Attributes.Native())
	if err != nil {
		return fmt.Errorf("sqlite sink: marshal attributes of %s: %w", e.ID, err)
	}

	err = sqlitex.Execute(conn, `INSERT INTO evidence (id, kind, attributes, winner, written_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			kind = excluded.kind,
			attributes = excluded.attributes,
			winner = excluded.winner,
			written_at = excluded.written_at`, &sqlitex.ExecOptions{
		Args: []any{e.ID, string(e.Kind), string(attrs), e.Winner, now.Unix()},
	})
	if err != nil {
		return fmt.Errorf("sqlite sink: insert %s: %w", e.ID, err)
	}

	err = sqlitex.Execute(conn, `DELETE FROM sources WHERE evidence_id = ?`, &sqlitex.ExecOptions{
		Args: []any{e.ID},
	})
	if err != nil {
		return fmt.Errorf("sqlite sink: clear sources of %s: %w", e.ID, err)
	}

	for i, src := range e.Sources {
		var modTime any
		if !src.ModTime.IsZero() {
			modTime = src.ModTime.UTC().Format(time.RFC3339Nano)
		}
		err = sqlitex.Execute(conn, `INSERT INTO sources (evidence_id, ordinal, path, deleted, size, mod_time)
			VALUES (?, ?, ?, ?, ?, ?)`, &sqlitex.ExecOptions{
			Args: []any{e.ID, i, src.Path, src.Deleted, src.Size, modTime},
		})
		if err != nil {
			return fmt.Errorf("sqlite sink: insert source of %s: %w", e.ID, err)
		}
	}
	return nil
}

// Count returns the number of stored records of kind, or of all kinds when
// kind is empty.
func (s *Sink) Count(ctx context.Context, kind core.EvidenceKind) (int, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("sqlite sink: take: %w", err)
	}
	defer s.pool.Put(conn)

	var n int
	err = sqlitex.Execute(conn, `SELECT COUNT(*) FROM evidence WHERE ? = '' OR kind = ?`, &sqlitex.ExecOptions{
		Args: []any{string(kind), string(kind)},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			n = stmt.ColumnInt(0)
			return nil
		},
	})
	if err != nil {
		return 0, fmt.Errorf("sqlite sink: count: %w", err)
	}
	return n, nil
}

// Sources returns the stored provenance of one record in order.
func (s *Sink) Sources(ctx context.Context, id string) ([]core.Source, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlite sink: take: %w", err)
	}
	defer s.pool.Put(conn)

	var out []core.Source
	err = sqlitex.Execute(conn, `SELECT path, deleted, size, mod_time FROM sources
		WHERE evidence_id = ? ORDER BY ordinal`, &sqlitex.ExecOptions{
		Args: []any{id},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			src := core.Source{
				Path:    stmt.ColumnText(0),
				Deleted: stmt.ColumnBool(1),
				Size:    stmt.ColumnInt64(2),
			}
			if raw := stmt.ColumnText(3); raw != "" {
				t, err := time.Parse(time.RFC3339Nano, raw)
				if err != nil {
					return err
				}
				src.ModTime = t
			}
			out = append(out, src)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite sink: sources of %s: %w", id, err)
	}
	return out, nil
}

// Winner returns the ordinal of the source whose data a record carries.
func (s *Sink) Winner(ctx context.Context, id string) (int, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("sqlite sink: take: %w", err)
	}
	defer s.pool.Put(conn)

	winner, found := 0, false
	err = sqlitex.Execute(conn, `SELECT winner FROM evidence WHERE id = ?`, &sqlitex.ExecOptions{
		Args: []any{id},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			winner = stmt.ColumnInt(0)
			found = true
			return nil
		},
	})
	if err != nil {
		return 0, fmt.Errorf("sqlite sink: winner of %s: %w", id, err)
	}
	if !found {
		return 0, fmt.Errorf("sqlite sink: no evidence %s", id)
	}
	return winner, nil
}

// Attributes returns the stored attributes of one record as decoded JSON.
func (s *Sink) Attributes(ctx context.Context, id string) (map[string]any, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlite sink: take: %w", err)
	}
	defer s.pool.Put(conn)

	var raw string
	found := false
	err = sqlitex.Execute(conn, `SELECT attributes FROM evidence WHERE id = ?`, &sqlitex.ExecOptions{
		Args: []any{id},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			raw = stmt.ColumnText(0)
			found = true
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite sink: attributes of %s: %w", id, err)
	}
	if !found {
		return nil, fmt.Errorf("sqlite sink: no evidence %s", id)
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("sqlite sink: decode attributes of %s: %w", id, err)
	}
	return out, nil
}

// Close implements core.Sink.
func (s *Sink) Close() error {
	if err := s.pool.Close(); err != nil {
		return fmt.Errorf("sqlite sink: closing %s: %w", s.config.Path, err)
	}
	return nil
}

// SinkState exposes internal state for observability.
type SinkState struct {
	Path      string     `json:"path"`
	ReadOnly  bool       `json:"read_only"`
	PoolSize  int        `json:"pool_size"`
	Written   int        `json:"written"`
	LastWrite *time.Time `json:"last_write,omitempty"`
}

// State implements introspection.Introspectable.
func (s *Sink) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SinkState{
		Path:      s.config.Path,
		ReadOnly:  s.config.ReadOnly,
		PoolSize:  s.config.PoolSize,
		Written:   s.written,
		LastWrite: s.lastWrite,
	}
}

// ComponentType implements introspection.Component.
func (s *Sink) ComponentType() string {
	return "sqlite-sink"
}

var _ core.Sink = (*Sink)(nil)
var _ introspection.Introspectable = (*Sink)(nil)
var _ introspection.Component = (*Sink)(nil)
