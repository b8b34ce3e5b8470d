package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PostgresStore implements Store using PostgreSQL
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresStore creates a new Postgres store
func NewPostgresStore(url string, logger *slog.Logger) (*PostgresStore, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &PostgresStore{db: db, logger: logger}, nil
}

// Close closes the database connection
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Migrate runs database migrations
func (s *PostgresStore) Migrate(ctx context.Context) error {
	schema := `
	-- Config snapshots, one per distinct source content
	CREATE TABLE IF NOT EXISTS snapshots (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		content_hash TEXT NOT NULL UNIQUE,
		compiler_version TEXT NOT NULL,
		networks JSONB NOT NULL,
		source TEXT,
		created_at TIMESTAMPTZ DEFAULT NOW()
	);

	-- Resolution audit log
	CREATE TABLE IF NOT EXISTS resolutions (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		snapshot_id UUID REFERENCES snapshots(id),
		network TEXT NOT NULL,
		client_ip TEXT,
		request_id TEXT,
		created_at TIMESTAMPTZ DEFAULT NOW()
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
func (s *PostgresStore) RecordSnapshot(ctx context.Context, snap *Snapshot) (*Snapshot, error) {
	networks, err := encodeNetworks(snap.Networks)
	if err != nil {
		return nil, err
	}

	id := snap.ID
	if id == "" {
		id = generateID()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO snapshots (id, content_hash, compiler_version, networks, source)
		VALUES ($1, $2, $3, $4::jsonb, $5)
		ON CONFLICT (content_hash) DO NOTHING`,
		id, snap.ContentHash, snap.CompilerVersion, networks, snap.Source,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting snapshot: %w", err)
	}

	return s.getSnapshot(ctx, "content_hash", snap.ContentHash)
}

// GetSnapshot retrieves a snapshot by ID
func (s *PostgresStore) GetSnapshot(ctx context.Context, id string) (*Snapshot, error) {
	return s.getSnapshot(ctx, "id::text", id)
}

func (s *PostgresStore) getSnapshot(ctx context.Context, column, value string) (*Snapshot, error) {
	query := `SELECT id, content_hash, compiler_version, networks, source, created_at FROM snapshots WHERE ` + column + ` = $1`

	var snap Snapshot
	var networks []byte
	var source sql.NullString
	var createdAt time.Time
	err := s.db.QueryRowContext(ctx, query, value).Scan(
		&snap.ID, &snap.ContentHash, &snap.CompilerVersion, &networks, &source, &createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	snap.Source = source.String
	snap.CreatedAt = createdAt.UTC().Format(time.RFC3339)
	snap.Networks, err = decodeNetworks(networks)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// ListSnapshots lists snapshots, newest first
func (s *PostgresStore) ListSnapshots(ctx context.Context, limit int) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content_hash, compiler_version, networks, source, created_at FROM snapshots ORDER BY created_at DESC LIMIT $1`,
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
		var createdAt time.Time
		if err := rows.Scan(&snap.ID, &snap.ContentHash, &snap.CompilerVersion, &networks, &source, &createdAt); err != nil {
			return nil, err
		}
		snap.Source = source.String
		snap.CreatedAt = createdAt.UTC().Format(time.RFC3339)
		if snap.Networks, err = decodeNetworks(networks); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snap)
	}
	return snapshots, rows.Err()
}

// RecordResolution appends to the resolution log
func (s *PostgresStore) RecordResolution(ctx context.Context, r *Resolution) error {
	if r.ID == "" {
		r.ID = generateID()
	}

	var snapshotID any
	if r.SnapshotID != "" {
		snapshotID = r.SnapshotID
	}

	var createdAt time.Time
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO resolutions (id, snapshot_id, network, client_ip, request_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		r.ID, snapshotID, r.Network, r.ClientIP, r.RequestID,
	).Scan(&createdAt)
	if err != nil {
		return fmt.Errorf("inserting resolution: %w", err)
	}
	r.CreatedAt = createdAt.UTC().Format(time.RFC3339)
	return nil
}

// ListResolutions lists resolutions, newest first
func (s *PostgresStore) ListResolutions(ctx context.Context, filter ResolutionFilter) ([]Resolution, error) {
	var conditions []string
	var args []any

	if filter.Network != "" {
		args = append(args, filter.Network)
		conditions = append(conditions, fmt.Sprintf("network = $%d", len(args)))
	}
	if filter.SnapshotID != "" {
		args = append(args, filter.SnapshotID)
		conditions = append(conditions, fmt.Sprintf("snapshot_id::text = $%d", len(args)))
	}

	query := `SELECT id, snapshot_id, network, client_ip, request_id, created_at FROM resolutions`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, clampLimit(filter.Limit))
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var resolutions []Resolution
	for rows.Next() {
		var r Resolution
		var snapshotID, clientIP, requestID sql.NullString
		var createdAt time.Time
		if err := rows.Scan(&r.ID, &snapshotID, &r.Network, &clientIP, &requestID, &createdAt); err != nil {
			return nil, err
		}
		r.SnapshotID = snapshotID.String
		r.ClientIP = clientIP.String
		r.RequestID = requestID.String
		r.CreatedAt = createdAt.UTC().Format(time.RFC3339)
		resolutions = append(resolutions, r)
	}
	return resolutions, rows.Err()
}
