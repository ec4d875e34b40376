// Package tlk stores the localized string table that dialog text refers to
// by StrRef.
//
// The table lives in an embedded BadgerDB. Keys are "tlk/" followed by the
// reference as a big-endian uint64, so iteration runs in reference order.
package tlk

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
)

var keyPrefix = []byte("tlk/")

// Config holds configuration for a Table.
type Config struct {
	// Path is the directory for BadgerDB files. Ignored when InMemory is true.
	Path string

	// InMemory keeps the table in RAM only. Useful for tests.
	InMemory bool

	// SyncWrites fsyncs every write.
	SyncWrites bool

	// Logger receives BadgerDB's own logging. Nil disables it.
	Logger *slog.Logger
}

// DefaultConfig returns the settings used for an on-disk table.
func DefaultConfig(path string) Config {
	return Config{Path: path, SyncWrites: true}
}

// InMemoryConfig returns the settings used in tests.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Table is a persistent StrRef -> text mapping. It implements
// dialog.TextResolver and is safe for concurrent use.
type Table struct {
	db     *badger.DB
	logger *slog.Logger
}

// Open opens (or creates) the table described by cfg.
func Open(cfg Config) (*Table, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("tlk: path is required for a persistent table")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0750); err != nil {
			return nil, fmt.Errorf("tlk: create directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("tlk: open badger: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Table{db: db, logger: logger}, nil
}

// Close releases the underlying database.
func (t *Table) Close() error {
	return t.db.Close()
}

func key(ref int64) []byte {
	k := make([]byte, len(keyPrefix)+8)
	copy(k, keyPrefix)
	binary.BigEndian.PutUint64(k[len(keyPrefix):], uint64(ref))
	return k
}

// Put stores text under ref, replacing any previous entry.
func (t *Table) Put(ref int64, text string) error {
	if ref < 0 {
		return fmt.Errorf("tlk: invalid strref %d", ref)
	}
	err := t.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(ref), []byte(text))
	})
	if err != nil {
		return fmt.Errorf("tlk: put %d: %w", ref, err)
	}
	return nil
}

// Import bulk-loads entries and returns how many were written.
func (t *Table) Import(entries map[int64]string) (int, error) {
	wb := t.db.NewWriteBatch()
	n := 0
	for ref, text := range entries {
		if ref < 0 {
			continue
		}
		if err := wb.Set(key(ref), []byte(text)); err != nil {
			wb.Cancel()
			return 0, fmt.Errorf("tlk: import %d: %w", ref, err)
		}
		n++
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("tlk: import flush: %w", err)
	}
	return n, nil
}

// Get returns the text stored under ref. A missing entry is not an error.
func (t *Table) Get(ref int64) (string, bool, error) {
	if ref < 0 {
		return "", false, nil
	}
	var text string
	err := t.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(ref))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			text = string(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("tlk: get %d: %w", ref, err)
	}
	return text, true, nil
}

// Resolve implements dialog.TextResolver. Storage errors are logged and
// reported as a miss, so the caller falls back to a placeholder.
func (t *Table) Resolve(ref int64) (string, bool) {
	text, ok, err := t.Get(ref)
	if err != nil {
		t.logger.Warn("strref lookup failed", "strref", ref, "err", err)
		return "", false
	}
	return text, ok
}

// Len counts the stored entries.
func (t *Table) Len() (int, error) {
	n := 0
	err := t.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = keyPrefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("tlk: count: %w", err)
	}
	return n, nil
}

// Map is an in-memory resolver for callers without a table.
type Map map[int64]string

// Resolve implements dialog.TextResolver.
func (m Map) Resolve(ref int64) (string, bool) {
	s, ok := m[ref]
	return s, ok
}
