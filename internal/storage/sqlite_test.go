package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"log/slog"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	store, err := NewSQLiteStore(dbPath, logger)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return store
}

func TestSQLiteStore(t *testing.T) {
	testStore(t, newTestSQLiteStore(t))
}

func TestSQLiteStore_MigrateIsIdempotent(t *testing.T) {
	store := newTestSQLiteStore(t)
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

func TestNewSQLiteStore_UnopenablePath(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	// A directory cannot be opened as a database file.
	store, err := NewSQLiteStore(t.TempDir(), logger)
	if err == nil {
		store.Close()
		t.Fatal("NewSQLiteStore() on a directory succeeded, want error")
	}
	if store != nil {
		t.Errorf("NewSQLiteStore() store = %v, want nil", store)
	}
}
