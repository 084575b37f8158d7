package usecase

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestMarketSnapshotPersistAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bench", "snapshot.json")

	m := NewMarketData(nil, nil, path, nil)
	m.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	if err := m.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("snapshot file not written: %v", err)
	}

	reloaded := NewMarketData(nil, nil, path, nil)
	if err := reloaded.Load(); err != nil {
		t.Fatal(err)
	}
	snap := reloaded.Snapshot()
	if !snap.AsOf.Equal(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("as_of = %v", snap.AsOf)
	}
}

func TestMarketLoadToleratesMissingAndCorruptFile(t *testing.T) {
	dir := t.TempDir()

	missing := NewMarketData(nil, nil, filepath.Join(dir, "nope.json"), nil)
	if err := missing.Load(); err != nil {
		t.Fatalf("missing file must not error: %v", err)
	}

	path := filepath.Join(dir, "corrupt.json")
	if err := os.WriteFile(path, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	corrupt := NewMarketData(nil, nil, path, nil)
	if err := corrupt.Load(); err != nil {
		t.Fatalf("corrupt file must not error: %v", err)
	}
	if snap := corrupt.Snapshot(); len(snap.Items) != 0 {
		t.Fatalf("corrupt snapshot produced items: %+v", snap.Items)
	}
}
