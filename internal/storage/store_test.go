package storage

import (
	"context"
	"errors"
	"testing"
)

// testStore runs the shared behavioural checks against any Store implementation.
func testStore(t *testing.T, store Store) {
	ctx := context.Background()

	var first *Snapshot

	t.Run("RecordSnapshot", func(t *testing.T) {
		snap, err := store.RecordSnapshot(ctx, &Snapshot{
			ContentHash:     ContentHash([]byte("v1")),
			CompilerVersion: "0.8.19",
			Networks:        []string{"mainnet", "testnet"},
			Source:          "deployconf.toml",
		})
		if err != nil {
			t.Fatalf("RecordSnapshot() error = %v", err)
		}
		if snap.ID == "" {
			t.Error("RecordSnapshot() returned empty ID")
		}
		if snap.CompilerVersion != "0.8.19" {
			t.Errorf("CompilerVersion = %q, want 0.8.19", snap.CompilerVersion)
		}
		if len(snap.Networks) != 2 || snap.Networks[0] != "mainnet" {
			t.Errorf("Networks = %v, want [mainnet testnet]", snap.Networks)
		}
		if snap.CreatedAt == "" {
			t.Error("CreatedAt not set")
		}
		first = snap
	})

	t.Run("RecordSnapshotDeduplicates", func(t *testing.T) {
		again, err := store.RecordSnapshot(ctx, &Snapshot{
			ContentHash:     ContentHash([]byte("v1")),
			CompilerVersion: "0.8.19",
			Networks:        []string{"mainnet", "testnet"},
			Source:          "elsewhere.toml",
		})
		if err != nil {
			t.Fatalf("RecordSnapshot() error = %v", err)
		}
		if again.ID != first.ID {
			t.Errorf("RecordSnapshot() ID = %s, want existing %s", again.ID, first.ID)
		}
		if again.Source != "deployconf.toml" {
			t.Errorf("Source = %q, want the original", again.Source)
		}
	})

	t.Run("GetSnapshot", func(t *testing.T) {
		got, err := store.GetSnapshot(ctx, first.ID)
		if err != nil {
			t.Fatalf("GetSnapshot() error = %v", err)
		}
		if got.ContentHash != first.ContentHash {
			t.Errorf("ContentHash = %s, want %s", got.ContentHash, first.ContentHash)
		}

		_, err = store.GetSnapshot(ctx, generateID())
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("GetSnapshot(unknown) error = %v, want ErrNotFound", err)
		}
	})

	t.Run("ListSnapshots", func(t *testing.T) {
		if _, err := store.RecordSnapshot(ctx, &Snapshot{
			ContentHash:     ContentHash([]byte("v2")),
			CompilerVersion: "0.8.20",
		}); err != nil {
			t.Fatalf("RecordSnapshot() error = %v", err)
		}

		snapshots, err := store.ListSnapshots(ctx, 10)
		if err != nil {
			t.Fatalf("ListSnapshots() error = %v", err)
		}
		if len(snapshots) != 2 {
			t.Fatalf("ListSnapshots() returned %d, want 2", len(snapshots))
		}
		if snapshots[0].CompilerVersion != "0.8.20" {
			t.Errorf("ListSnapshots()[0].CompilerVersion = %s, want newest first", snapshots[0].CompilerVersion)
		}
		if len(snapshots[0].Networks) != 0 {
			t.Errorf("ListSnapshots()[0].Networks = %v, want empty", snapshots[0].Networks)
		}

		limited, err := store.ListSnapshots(ctx, 1)
		if err != nil {
			t.Fatalf("ListSnapshots(1) error = %v", err)
		}
		if len(limited) != 1 {
			t.Errorf("ListSnapshots(1) returned %d", len(limited))
		}
	})

	t.Run("Resolutions", func(t *testing.T) {
		for _, network := range []string{"testnet", "testnet", "mainnet"} {
			r := &Resolution{
				SnapshotID: first.ID,
				Network:    network,
				ClientIP:   "192.0.2.1",
				RequestID:  "req-" + network,
			}
			if err := store.RecordResolution(ctx, r); err != nil {
				t.Fatalf("RecordResolution() error = %v", err)
			}
			if r.ID == "" || r.CreatedAt == "" {
				t.Errorf("RecordResolution() did not fill ID/CreatedAt: %+v", r)
			}
		}

		// Resolutions without a snapshot are allowed
		if err := store.RecordResolution(ctx, &Resolution{Network: "local"}); err != nil {
			t.Fatalf("RecordResolution(no snapshot) error = %v", err)
		}

		all, err := store.ListResolutions(ctx, ResolutionFilter{})
		if err != nil {
			t.Fatalf("ListResolutions() error = %v", err)
		}
		if len(all) != 4 {
			t.Errorf("ListResolutions() returned %d, want 4", len(all))
		}

		testnet, err := store.ListResolutions(ctx, ResolutionFilter{Network: "testnet"})
		if err != nil {
			t.Fatalf("ListResolutions(testnet) error = %v", err)
		}
		if len(testnet) != 2 {
			t.Errorf("ListResolutions(testnet) returned %d, want 2", len(testnet))
		}
		for _, r := range testnet {
			if r.ClientIP != "192.0.2.1" || r.SnapshotID != first.ID {
				t.Errorf("unexpected resolution %+v", r)
			}
		}

		bySnapshot, err := store.ListResolutions(ctx, ResolutionFilter{SnapshotID: first.ID, Limit: 2})
		if err != nil {
			t.Fatalf("ListResolutions(snapshot) error = %v", err)
		}
		if len(bySnapshot) != 2 {
			t.Errorf("ListResolutions(snapshot, limit 2) returned %d, want 2", len(bySnapshot))
		}
	})
}
