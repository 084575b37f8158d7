package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"FundPulse/internal/domain/models"
	"FundPulse/pkg/logger"
)

func quoteFixture(symbol string, price float64, day string) *models.Quote {
	ret := 1.2345
	return &models.Quote{
		Symbol:         symbol,
		Price:          price,
		DailyReturnPct: &ret,
		ValidForDay:    day,
		Source:         models.SourceTefasHTML,
		FetchedAt:      time.Date(2024, 5, 1, 19, 0, 0, 0, time.UTC),
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	fs := NewFileStore(path)

	q := quoteFixture("AFT", 12.345678, "2024-05-01")
	snap := Snapshot{
		AsOf:   time.Date(2024, 5, 1, 19, 0, 0, 0, time.UTC),
		Quotes: map[string]*models.Quote{"AFT": q},
	}
	if err := fs.Save(snap); err != nil {
		t.Fatalf("save: %v", err)
	}

	loaded, err := fs.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	got, ok := loaded.Quotes["AFT"]
	if !ok {
		t.Fatal("AFT missing after reload")
	}
	if got.Price != q.Price {
		t.Fatalf("price changed across round trip: %v != %v", got.Price, q.Price)
	}
	if got.ValidForDay != q.ValidForDay {
		t.Fatalf("valid_for_day changed: %q != %q", got.ValidForDay, q.ValidForDay)
	}
	if got.Source != q.Source {
		t.Fatalf("source changed: %q != %q", got.Source, q.Source)
	}
	if got.DailyReturnPct == nil || *got.DailyReturnPct != *q.DailyReturnPct {
		t.Fatalf("daily return changed: %v", got.DailyReturnPct)
	}
}

func TestFileStoreMissingFile(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "nope.json"))
	snap, err := fs.Load()
	if err != nil {
		t.Fatalf("missing file should yield empty snapshot, got %v", err)
	}
	if len(snap.Quotes) != 0 {
		t.Fatalf("expected empty snapshot, got %d quotes", len(snap.Quotes))
	}
}

func TestFileStoreLegacyLastUpdateFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	legacy := map[string]any{
		"as_of": "2024-05-01T19:00:00Z",
		"data": map[string]any{
			"AFT": map[string]any{
				"price":       10.5,
				"source":      "tefas_html",
				"last_update": "2024-05-01 18:45:03",
			},
		},
	}
	b, _ := json.Marshal(legacy)
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatal(err)
	}

	snap, err := NewFileStore(path).Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	q := snap.Quotes["AFT"]
	if q == nil {
		t.Fatal("legacy record dropped")
	}
	if q.ValidForDay != "2024-05-01" {
		t.Fatalf("expected day derived from last_update, got %q", q.ValidForDay)
	}
}

func TestStorePutAndGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")
	s := New(NewFileStore(path), nil, logger.Nop(), nil)

	q := quoteFixture("AFT", 12.34, "2024-05-01")
	if err := s.Put(context.Background(), q); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, ok := s.Get("AFT")
	if !ok {
		t.Fatal("expected memory hit")
	}
	if got.Price != 12.34 {
		t.Fatalf("price %v", got.Price)
	}
	if !s.IsFresh(&got, "2024-05-01") {
		t.Fatal("quote should be fresh for its own day")
	}
	if s.IsFresh(&got, "2024-05-02") {
		t.Fatal("quote must be stale for a later day")
	}

	// Mutating the returned copy must not leak into the store.
	got.Price = 99
	again, _ := s.Get("AFT")
	if again.Price != 12.34 {
		t.Fatal("Get must return a copy")
	}
}

func TestStoreRejectsInvalidQuote(t *testing.T) {
	s := New(NewFileStore(filepath.Join(t.TempDir(), "s.json")), nil, logger.Nop(), nil)
	ctx := context.Background()
	if err := s.Put(ctx, &models.Quote{Symbol: "AFT", Price: 0, ValidForDay: "2024-05-01"}); err == nil {
		t.Fatal("zero price must be rejected")
	}
	if err := s.Put(ctx, &models.Quote{Symbol: "AFT", Price: 10}); err == nil {
		t.Fatal("missing day must be rejected")
	}
}

func TestStoreLoadAllRehydrates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")

	first := New(NewFileStore(path), nil, logger.Nop(), nil)
	ctx := context.Background()
	if err := first.Put(ctx, quoteFixture("AFT", 12.34, "2024-05-01")); err != nil {
		t.Fatal(err)
	}
	if err := first.Put(ctx, quoteFixture("TGE", 45.6, "2024-05-01")); err != nil {
		t.Fatal(err)
	}

	second := New(NewFileStore(path), nil, logger.Nop(), nil)
	if err := second.LoadAll(); err != nil {
		t.Fatalf("loadall: %v", err)
	}
	if _, ok := second.Get("AFT"); !ok {
		t.Fatal("AFT lost across restart")
	}
	if _, ok := second.Get("TGE"); !ok {
		t.Fatal("TGE lost across restart")
	}
	if len(second.Symbols()) != 2 {
		t.Fatalf("symbols: %v", second.Symbols())
	}
}

type recordingDurable struct {
	mu    sync.Mutex
	saves []Snapshot
}

func (d *recordingDurable) Save(snap Snapshot) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.saves = append(d.saves, snap)
	return nil
}

func (d *recordingDurable) Load() (Snapshot, error) {
	return Snapshot{Quotes: map[string]*models.Quote{}}, nil
}

func TestConcurrentPutsKeepNewestSnapshotOnDisk(t *testing.T) {
	durable := &recordingDurable{}
	st := New(durable, nil, logger.Nop(), nil)
	ctx := context.Background()

	const writers = 24
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			q := quoteFixture(fmt.Sprintf("SYM%02d", i), float64(i+1), "2024-05-01")
			if err := st.Put(ctx, q); err != nil {
				t.Errorf("put: %v", err)
			}
		}(i)
	}
	wg.Wait()

	durable.mu.Lock()
	defer durable.mu.Unlock()
	if len(durable.saves) != writers {
		t.Fatalf("saves = %d, want %d", len(durable.saves), writers)
	}
	last := durable.saves[len(durable.saves)-1]
	if len(last.Quotes) != writers {
		t.Fatalf("final snapshot holds %d symbols, want %d", len(last.Quotes), writers)
	}
	for i := 0; i < len(durable.saves)-1; i++ {
		if len(durable.saves[i].Quotes) > len(durable.saves[i+1].Quotes) {
			t.Fatalf("save %d shrank: %d -> %d symbols",
				i+1, len(durable.saves[i].Quotes), len(durable.saves[i+1].Quotes))
		}
	}
}
