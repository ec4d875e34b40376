package trash

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/gyaneshwarpardhi/dlgedit/internal/container"
	"github.com/gyaneshwarpardhi/dlgedit/internal/dialog"
)

// Migration is one schema step, applied once and recorded in
// schema_migrations.
type Migration struct {
	Version     int
	Description string
	SQL         string
}

// Migrations is the ordered schema history of the trash database.
var Migrations = []Migration{
	{
		Version:     1,
		Description: "trash_entries",
		SQL: `CREATE TABLE IF NOT EXISTS trash_entries (
			id         TEXT PRIMARY KEY,
			file_path  TEXT NOT NULL,
			hint       TEXT NOT NULL DEFAULT '',
			kind       INTEGER NOT NULL,
			node       TEXT NOT NULL,
			deleted_at INTEGER NOT NULL
		)`,
	},
	{
		Version:     2,
		Description: "index trash_entries by file",
		SQL:         `CREATE INDEX IF NOT EXISTS idx_trash_file ON trash_entries (file_path, deleted_at)`,
	},
}

// SQLiteStore is a Store backed by an embedded SQLite database.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// OpenSQLite opens (or creates) the database at dbPath, applies PRAGMAs and
// runs pending migrations.
func OpenSQLite(dbPath string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("trash: open db %q: %w", dbPath, err)
	}
	conn.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			conn.Close()
			return nil, fmt.Errorf("trash: set pragma %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("trash: migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	const createMigTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
		version     INTEGER PRIMARY KEY,
		applied_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
		description TEXT
	)`
	if _, err := s.db.Exec(createMigTable); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}
	for _, m := range Migrations {
		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", m.Version).Scan(&exists); err != nil {
			return fmt.Errorf("check migration v%d: %w", m.Version, err)
		}
		if exists > 0 {
			continue
		}
		if _, err := s.db.Exec(m.SQL); err != nil {
			return fmt.Errorf("apply migration v%d (%s): %w", m.Version, m.Description, err)
		}
		if _, err := s.db.Exec(
			"INSERT INTO schema_migrations (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			return fmt.Errorf("record migration v%d: %w", m.Version, err)
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// Store implements Store.
func (s *SQLiteStore) Store(ctx context.Context, kind dialog.Kind, rec container.NodeRecord, filePath, hint string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, err := json.Marshal(stripEdges(rec))
	if err != nil {
		return "", fmt.Errorf("trash: marshal node: %w", err)
	}
	id := uuid.New().String()
	const q = `INSERT INTO trash_entries (id, file_path, hint, kind, node, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q, id, filePath, hint, int(kind), string(node), time.Now().UnixNano()); err != nil {
		return "", fmt.Errorf("trash: store node: %w", err)
	}
	return id, nil
}

// Put implements Store.
func (s *SQLiteStore) Put(ctx context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, err := json.Marshal(stripEdges(e.Node))
	if err != nil {
		return fmt.Errorf("trash: marshal node: %w", err)
	}
	const q = `INSERT OR REPLACE INTO trash_entries (id, file_path, hint, kind, node, deleted_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, q, e.ID, e.FilePath, e.Hint, int(e.Kind), string(node), e.DeletedAt.UnixNano()); err != nil {
		return fmt.Errorf("trash: put %q: %w", e.ID, err)
	}
	return nil
}

const selectEntry = `SELECT id, file_path, hint, kind, node, deleted_at FROM trash_entries`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		e       Entry
		kind    int
		node    string
		deleted int64
	)
	if err := row.Scan(&e.ID, &e.FilePath, &e.Hint, &kind, &node, &deleted); err != nil {
		return Entry{}, err
	}
	if err := json.Unmarshal([]byte(node), &e.Node); err != nil {
		return Entry{}, fmt.Errorf("unmarshal entry %q: %w", e.ID, err)
	}
	e.Kind = dialog.Kind(kind)
	e.DeletedAt = time.Unix(0, deleted)
	return e, nil
}

// Retrieve implements Store.
func (s *SQLiteStore) Retrieve(ctx context.Context, id string) (Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, err := scanEntry(s.db.QueryRowContext(ctx, selectEntry+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("trash: retrieve %q: %w", id, err)
	}
	return e, true, nil
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context, filePath string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := selectEntry
	var args []any
	if filePath != "" {
		q += " WHERE file_path = ?"
		args = append(args, filePath)
	}
	q += " ORDER BY deleted_at DESC, rowid DESC"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("trash: list: %w", err)
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("trash: list: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Remove implements Store.
func (s *SQLiteStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, "DELETE FROM trash_entries WHERE id = ?", id); err != nil {
		return fmt.Errorf("trash: remove %q: %w", id, err)
	}
	return nil
}
