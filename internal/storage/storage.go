// Package storage persists config snapshots and the resolution audit log.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pendergraft/deployconf/internal/config"
)

// SnapshotStore handles config snapshot operations
type SnapshotStore interface {
	// RecordSnapshot stores s unless a snapshot with the same content hash
	// exists, and returns whichever row is stored.
	RecordSnapshot(ctx context.Context, s *Snapshot) (*Snapshot, error)
	GetSnapshot(ctx context.Context, id string) (*Snapshot, error)
	ListSnapshots(ctx context.Context, limit int) ([]Snapshot, error)
}

// ResolutionStore handles the resolution audit log
type ResolutionStore interface {
	RecordResolution(ctx context.Context, r *Resolution) error
	ListResolutions(ctx context.Context, filter ResolutionFilter) ([]Resolution, error)
}

// Store combines all storage interfaces with lifecycle methods.
type Store interface {
	SnapshotStore
	ResolutionStore

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}

// Snapshot records one distinct config source the server has loaded
type Snapshot struct {
	ID              string
	ContentHash     string
	CompilerVersion string
	Networks        []string
	Source          string
	CreatedAt       string
}

// Resolution records one successful network resolution served over HTTP
type Resolution struct {
	ID         string
	SnapshotID string
	Network    string
	ClientIP   string
	RequestID  string
	CreatedAt  string
}

// ResolutionFilter contains filter options for listing resolutions
type ResolutionFilter struct {
	Network    string
	SnapshotID string
	Limit      int
}

// New creates a new store based on configuration
func New(cfg config.StorageConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Type {
	case "sqlite":
		return NewSQLiteStore(cfg.SQLite.Path, logger)
	case "postgres":
		return NewPostgresStore(cfg.Postgres.URL, logger)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
