package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"FundPulse/internal/domain/models"
)

// fileRecord is the on-disk shape of one symbol's quote. LastUpdate is only
// read, never written: legacy snapshots carried a "2006-01-02 15:04:05"
// timestamp instead of valid_for_day.
type fileRecord struct {
	Price          float64   `json:"price"`
	DailyReturnPct *float64  `json:"daily_return_pct"`
	ValidForDay    string    `json:"valid_for_day,omitempty"`
	Source         string    `json:"source,omitempty"`
	FetchedAt      time.Time `json:"fetched_at,omitempty"`
	LastUpdate     string    `json:"last_update,omitempty"`
}

type fileSnapshot struct {
	AsOf time.Time             `json:"as_of"`
	Data map[string]fileRecord `json:"data"`
}

// FileStore keeps the snapshot in a single JSON file written atomically, so
// a crash mid-write never leaves a half-written record.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed durable tier.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Save(snap Snapshot) error {
	out := fileSnapshot{AsOf: snap.AsOf, Data: make(map[string]fileRecord, len(snap.Quotes))}
	for sym, q := range snap.Quotes {
		out.Data[sym] = fileRecord{
			Price:          q.Price,
			DailyReturnPct: q.DailyReturnPct,
			ValidForDay:    q.ValidForDay,
			Source:         string(q.Source),
			FetchedAt:      q.FetchedAt,
		}
	}
	return AtomicWriteJSON(f.path, out)
}

func (f *FileStore) Load() (Snapshot, error) {
	b, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Snapshot{Quotes: map[string]*models.Quote{}}, nil
		}
		return Snapshot{}, err
	}

	var raw fileSnapshot
	if err := json.Unmarshal(b, &raw); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot: %w", err)
	}

	snap := Snapshot{AsOf: raw.AsOf, Quotes: make(map[string]*models.Quote, len(raw.Data))}
	for sym, rec := range raw.Data {
		day := rec.ValidForDay
		if day == "" && rec.LastUpdate != "" {
			// legacy record: valid day is the date prefix of last_update
			day = strings.SplitN(rec.LastUpdate, " ", 2)[0]
		}
		snap.Quotes[sym] = &models.Quote{
			Symbol:         sym,
			Price:          rec.Price,
			DailyReturnPct: rec.DailyReturnPct,
			ValidForDay:    day,
			Source:         models.Source(rec.Source),
			FetchedAt:      rec.FetchedAt,
		}
	}
	return snap, nil
}

// AtomicWriteJSON writes obj to path via a temp file and rename.
func AtomicWriteJSON(path string, obj any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
