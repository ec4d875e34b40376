// Package trash keeps value-only copies of deleted dialog nodes so they can
// be restored later.
package trash

import (
	"context"
	"fmt"
	"time"

	"github.com/gyaneshwarpardhi/dlgedit/internal/container"
	"github.com/gyaneshwarpardhi/dlgedit/internal/dialog"
)

// Entry is one trashed node. Node carries values only; edges are never kept.
type Entry struct {
	ID        string               `json:"id"`
	FilePath  string               `json:"file_path"`
	Hint      string               `json:"hint,omitempty"` // where the node used to hang
	Kind      dialog.Kind          `json:"kind"`
	Node      container.NodeRecord `json:"node"`
	DeletedAt time.Time            `json:"deleted_at"`
}

// Store is the trash/recovery collaborator.
type Store interface {
	// Store saves a node copy and returns its entry id.
	Store(ctx context.Context, kind dialog.Kind, rec container.NodeRecord, filePath, hint string) (string, error)
	// Retrieve returns the entry with the given id; ok is false when absent.
	Retrieve(ctx context.Context, id string) (e Entry, ok bool, err error)
	// List returns entries newest first, restricted to filePath unless empty.
	List(ctx context.Context, filePath string) ([]Entry, error)
	// Put stores e under its own id, replacing any entry with that id. Undo
	// uses it to bring back entries it took out.
	Put(ctx context.Context, e Entry) error
	// Remove deletes an entry. Removing an unknown id is not an error.
	Remove(ctx context.Context, id string) error
	Close() error
}

// stripEdges returns rec without edges.
func stripEdges(rec container.NodeRecord) container.NodeRecord {
	rec.Edges = nil
	return rec
}

// Open returns the Store for driver: "sqlite" opens path, "memory" ignores it.
func Open(driver, path string) (Store, error) {
	switch driver {
	case "sqlite":
		s, err := OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "memory", "":
		return NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("trash: unknown driver %q", driver)
}
