package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"sync"
	"time"

	"FundPulse/internal/domain/models"
	"FundPulse/internal/source"
	"FundPulse/internal/store"
	"FundPulse/pkg/config"
	applogger "FundPulse/pkg/logger"
)

// MarketData keeps the latest benchmark snapshot (index levels, FX) in
// memory and mirrors it to a small JSON file so restarts start warm.
type MarketData struct {
	mu         sync.RWMutex
	snap       models.BenchmarkSnapshot
	yahoo      *source.YahooFetcher
	benchmarks []config.Benchmark
	path       string
	log        *applogger.Logger
	now        func() time.Time
}

// NewMarketData creates the benchmark snapshot holder. path may be empty to
// disable persistence.
func NewMarketData(yahoo *source.YahooFetcher, benchmarks []config.Benchmark, path string, log *applogger.Logger) *MarketData {
	if log == nil {
		log = applogger.Nop()
	}
	return &MarketData{
		yahoo:      yahoo,
		benchmarks: benchmarks,
		path:       path,
		log:        log,
		now:        time.Now,
	}
}

// Load rehydrates the snapshot from disk; a missing file is not an error.
func (m *MarketData) Load() error {
	if m.path == "" {
		return nil
	}
	b, err := os.ReadFile(m.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	var snap models.BenchmarkSnapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		m.log.Warn("corrupt benchmark snapshot, ignoring", applogger.Error(err))
		return nil
	}
	m.mu.Lock()
	m.snap = snap
	m.mu.Unlock()
	return nil
}

// Refresh pulls every configured benchmark. Items that fail keep their
// previous reading so one flaky ticker does not blank the snapshot.
func (m *MarketData) Refresh(ctx context.Context) error {
	m.mu.RLock()
	prev := m.snap
	m.mu.RUnlock()

	items := make([]models.BenchmarkItem, 0, len(m.benchmarks))
	var lastErr error
	for _, b := range m.benchmarks {
		item, err := m.yahoo.Benchmark(ctx, b.Code, b.Ticker)
		if err != nil {
			lastErr = err
			m.log.Warn("benchmark fetch failed",
				applogger.String("code", b.Code), applogger.Error(err))
			if kept, ok := findItem(prev.Items, b.Code); ok {
				items = append(items, kept)
			}
			continue
		}
		items = append(items, item)
	}

	if len(items) == 0 && lastErr != nil {
		return lastErr
	}

	snap := models.BenchmarkSnapshot{AsOf: m.now(), Items: items}
	m.mu.Lock()
	m.snap = snap
	m.mu.Unlock()

	if m.path != "" {
		if err := m.persist(snap); err != nil {
			m.log.Warn("benchmark snapshot write failed", applogger.Error(err))
		}
	}

	m.log.Info("benchmarks refreshed", applogger.Int("items", len(items)))
	return nil
}

// Snapshot returns the current benchmark readings.
func (m *MarketData) Snapshot() models.BenchmarkSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap
}

func (m *MarketData) persist(snap models.BenchmarkSnapshot) error {
	return store.AtomicWriteJSON(m.path, snap)
}

func findItem(items []models.BenchmarkItem, code string) (models.BenchmarkItem, bool) {
	for _, it := range items {
		if it.Code == code {
			return it, true
		}
	}
	return models.BenchmarkItem{}, false
}
