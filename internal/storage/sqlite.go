package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// sqliteTimeFormat is fixed width so text ordering matches time ordering
const sqliteTimeFormat = "2006-01-02T15:04:05.000000Z"

// SQLiteStore implements Store using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(path string, logger *slog.Logger) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	return &SQLiteStore{db: db, logger: logger}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate runs database migrations
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	schema := `
	-- Config snapshots, one per distinct source content
	CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		content_hash TEXT NOT NULL UNIQUE,
		compiler_version TEXT NOT NULL,
		networks TEXT NOT NULL,
		source TEXT,
		created_at TEXT NOT NULL
	);

	-- Resolution audit log
	CREATE TABLE IF NOT EXISTS resolutions (
		id TEXT PRIMARY KEY,
		snapshot_id TEXT REFERENCES snapshots(id),
		network TEXT NOT NULL,
		client_ip TEXT,
		request_id TEXT,
		created_at TEXT NOT NULL
	);

	-- Indexes
	CREATE INDEX IF NOT EXISTS idx_resolutions_network ON resolutions(network);
	CREATE INDEX IF NOT EXISTS idx_resolutions_created ON resolutions(created_at);
	`

	_, err := s.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	s.logger.Debug("migrations completed")
	return nil
}

// RecordSnapshot stores a snapshot, deduplicated by content hash
func (s *SQLiteStore) RecordSnapshot(ctx context.Context, snap *Snapshot) (*Snapshot, error) {
	networks, err := encodeNetworks(snap.Networks)
	if err != nil {
		return nil, err
	}

	id := snap.ID
	if id == "" {
		id = generateID()
	}
	now := time.Now().UTC().Format(sqliteTimeFormat)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (id, content_hash, compiler_version, networks, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(content_hash) DO NOTHING`,
		id, snap.ContentHash, snap.CompilerVersion, networks, snap.Source, now,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting snapshot: %w", err)
	}

	return s.getSnapshot(ctx, "content_hash", snap.ContentHash)
}

// GetSnapshot retrieves a snapshot by ID
func (s *SQLiteStore) GetSnapshot(ctx context.Context, id string) (*Snapshot, error) {
	return s.getSnapshot(ctx, "id", id)
}

func (s *SQLiteStore) getSnapshot(ctx context.Context, column, value string) (*Snapshot, error) {
	query := `SELECT id, content_hash, compiler_version, networks, source, created_at FROM snapshots WHERE ` + column + ` = ?`

	var snap Snapshot
	var networks []byte
	var source sql.NullString
	err := s.db.QueryRowContext(ctx, query, value).Scan(
		&snap.ID, &snap.ContentHash, &snap.CompilerVersion, &networks, &source, &snap.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	snap.Source = source.String
	snap.Networks, err = decodeNetworks(networks)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// ListSnapshots lists snapshots, newest first
func (s *SQLiteStore) ListSnapshots(ctx context.Context, limit int) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content_hash, compiler_version, networks, source, created_at FROM snapshots ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		clampLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		var snap Snapshot
		var networks []byte
		var source sql.NullString
		if err := rows.Scan(&snap.ID, &snap.ContentHash, &snap.CompilerVersion, &networks, &source, &snap.CreatedAt); err != nil {
			return nil, err
		}
		snap.Source = source.String
		if snap.Networks, err = decodeNetworks(networks); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, rows.Err()
}

// RecordResolution appends to the resolution log
func (s *SQLiteStore) RecordResolution(ctx context.Context, r *Resolution) error {
	if r.ID == "" {
		r.ID = generateID()
	}
	r.CreatedAt = time.Now().UTC().Format(sqliteTimeFormat)

	var snapshotID any
	if r.SnapshotID != "" {
		snapshotID = r.SnapshotID
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO resolutions (id, snapshot_id, network, client_ip, request_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, snapshotID, r.Network, r.ClientIP, r.RequestID, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting resolution: %w", err)
	}
	return nil
}

// ListResolutions lists resolutions, newest first
func (s *SQLiteStore) ListResolutions(ctx context.Context, filter ResolutionFilter) ([]Resolution, error) {
	var conditions []string
	var args []any

	if filter.Network != "" {
		conditions = append(conditions, "network = ?")
		args = append(args, filter.Network)
	}
	if filter.SnapshotID != "" {
		conditions = append(conditions, "snapshot_id = ?")
		args = append(args, filter.SnapshotID)
	}

	query := `SELECT id, snapshot_id, network, client_ip, request_id, created_at FROM resolutions`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC LIMIT ?"
	args = append(args, clampLimit(filter.Limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var resolutions []Resolution
	for rows.Next() {
		var r Resolution
		var snapshotID, clientIP, requestID sql.NullString
		if err := rows.Scan(&r.ID, &snapshotID, &r.Network, &clientIP, &requestID, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.SnapshotID = snapshotID.String
		r.ClientIP = clientIP.String
		r.RequestID = requestID.String
		resolutions = append(resolutions, r)
	}
	return resolutions, rows.Err()
}
