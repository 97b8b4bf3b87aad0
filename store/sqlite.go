package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	// Registers the "sqlite3" database/sql driver.
	_ "github.com/mattn/go-sqlite3"

	"github.com/hupe1980/agentforge/core"
	"github.com/hupe1980/agentforge/logging"
)

// Conversation is the per-key view of the shared backing file. Append is
// append-only and atomic across the turns of one call: either every turn is
// persisted or none is. Read returns turns most-recent-first bounded to
// window (window <= 0 returns all).
type Conversation interface {
	Key() string
	Append(ctx context.Context, turns ...core.Turn) error
	Read(ctx context.Context, window int) ([]core.Turn, error)
}

// Options configure the SQLite store.
type Options struct {
	Logger logging.Logger
}

// Store manages the shared SQLite backing file. It hands out per-key Handles;
// handle creation for the same key returns the same Handle so the per-key
// write lock is a true single-writer discipline.
type Store struct {
	db      *sql.DB
	path    string
	logger  logging.Logger
	mu      sync.Mutex
	handles map[string]*Handle
	tables  map[string]string // sanitized table name -> owning store key
}

// Open opens (or creates) the shared backing file and probes writability.
// An unwritable file yields a StorageUnavailableError; callers must not
// proceed to construct a dependent agent.
func Open(path string, optFns ...func(o *Options)) (*Store, error) {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &core.StorageUnavailableError{Path: path, Err: err}
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, &core.StorageUnavailableError{Path: path, Err: err}
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			opts.Logger.Debug("pragma failed", "pragma", pragma, "error", err)
		}
	}

	// Probe writability up front so misconfiguration surfaces at assembly
	// time, not on the first append.
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS store_meta (key TEXT PRIMARY KEY, value TEXT)`); err != nil {
		db.Close()
		return nil, &core.StorageUnavailableError{Path: path, Err: err}
	}

	opts.Logger.Debug("conversation store opened", "path", path)

	return &Store{
		db:      db,
		path:    path,
		logger:  opts.Logger,
		handles: make(map[string]*Handle),
		tables:  make(map[string]string),
	}, nil
}

// Path returns the backing file location.
func (s *Store) Path() string { return s.path }

// Close releases the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

// Handle returns the Conversation for a store key, creating its table on
// first use. Handles are cached per key.
func (s *Store) Handle(storeKey string) (*Handle, error) {
	if storeKey == "" {
		return nil, &core.ConfigurationError{Setting: "store_key", Reason: "must be non-empty"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if h, ok := s.handles[storeKey]; ok {
		return h, nil
	}

	table := tableName(storeKey)
	// Sanitization folds non-alphanumerics to '_', so distinct keys can map
	// to the same table. That would silently merge histories; refuse it.
	if owner, taken := s.tables[table]; taken && owner != storeKey {
		return nil, &core.ConfigurationError{
			Setting: "store_key",
			Value:   storeKey,
			Reason:  fmt.Sprintf("collides with key %q after sanitization", owner),
		}
	}

	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`, table)
	if _, err := s.db.Exec(schema); err != nil {
		return nil, &core.StorageUnavailableError{Path: s.path, Err: err}
	}

	h := &Handle{db: s.db, key: storeKey, table: table, logger: s.logger}
	s.handles[storeKey] = h
	s.tables[table] = storeKey
	return h, nil
}

// Handle is the SQLite-backed Conversation for one store key. Appends are
// serialized by a per-handle mutex; reads may proceed concurrently with
// unrelated writes.
type Handle struct {
	db     *sql.DB
	key    string
	table  string
	logger logging.Logger
	mu     sync.Mutex
}

// Key returns the store key this handle is bound to.
func (h *Handle) Key() string { return h.key }

// Append persists one turn at the end of the conversation. The assigned
// sequence number is written back into turn ordering on subsequent reads.
func (h *Handle) Append(ctx context.Context, turns ...core.Turn) error {
	if len(turns) == 0 {
		return nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append turns to %s: %w", h.key, err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`INSERT INTO %s (id, role, content, created_at) VALUES (?, ?, ?, ?)`, h.table)
	for _, turn := range turns {
		ts := turn.Timestamp
		if ts.IsZero() {
			ts = time.Now().UTC()
		}
		if _, err := tx.ExecContext(ctx, query, turn.ID, turn.Role, turn.Content, ts); err != nil {
			return fmt.Errorf("append turn to %s: %w", h.key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append turns to %s: %w", h.key, err)
	}
	h.logger.Debug("turns appended", "store_key", h.key, "count", len(turns))
	return nil
}

// Read returns up to window turns, most recent first. window <= 0 returns the
// full history.
func (h *Handle) Read(ctx context.Context, window int) ([]core.Turn, error) {
	query := fmt.Sprintf(`SELECT seq, id, role, content, created_at FROM %s ORDER BY seq DESC`, h.table)
	args := []any{}
	if window > 0 {
		query += " LIMIT ?"
		args = append(args, window)
	}

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("read turns from %s: %w", h.key, err)
	}
	defer rows.Close()

	var turns []core.Turn
	for rows.Next() {
		var t core.Turn
		if err := rows.Scan(&t.Seq, &t.ID, &t.Role, &t.Content, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("scan turn from %s: %w", h.key, err)
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// tableName derives a safe per-key table name. Store keys are short
// identifiers by convention; anything outside [a-zA-Z0-9_] is folded to '_'.
func tableName(storeKey string) string {
	var b strings.Builder
	b.WriteString("conv_")
	for _, r := range storeKey {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
