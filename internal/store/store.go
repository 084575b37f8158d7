// Package store is the staleness-aware quote store: an in-memory tier for
// lock-cheap reads backed by a durable snapshot that survives restarts.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"FundPulse/internal/domain/models"
	"FundPulse/pkg/logger"
)

// Durable persists the whole snapshot; it is the source of truth at startup.
type Durable interface {
	Save(snap Snapshot) error
	Load() (Snapshot, error)
}

// Mirror receives best-effort write-through copies of stored quotes, e.g. a
// shared Redis instance when running more than one process.
type Mirror interface {
	Put(ctx context.Context, q *models.Quote) error
}

// Metrics records store-level counters. Implemented by pkg/metrics.
type Metrics interface {
	RecordCacheHit()
	RecordCacheMiss()
	RecordLastPrice(symbol string, price float64)
	RecordDurableWriteFailure()
}

type nopMetrics struct{}

func (nopMetrics) RecordCacheHit()                  {}
func (nopMetrics) RecordCacheMiss()                 {}
func (nopMetrics) RecordLastPrice(string, float64)  {}
func (nopMetrics) RecordDurableWriteFailure()       {}

// Snapshot is the durable representation: every symbol's last known quote
// plus a top-level as-of timestamp.
type Snapshot struct {
	AsOf   time.Time
	Quotes map[string]*models.Quote
}

// Store owns all quote lifetime. Readers go through Get; writers through Put.
type Store struct {
	mu      sync.RWMutex
	saveMu  sync.Mutex
	mem     map[string]*models.Quote
	durable Durable
	mirror  Mirror
	log     *logger.Logger
	metrics Metrics
}

// New creates a store. durable is required; mirror may be nil.
func New(durable Durable, mirror Mirror, log *logger.Logger, metrics Metrics) *Store {
	if log == nil {
		log = logger.Nop()
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Store{
		mem:     make(map[string]*models.Quote),
		durable: durable,
		mirror:  mirror,
		log:     log,
		metrics: metrics,
	}
}

// Get reads the memory tier only. It never blocks on I/O.
func (s *Store) Get(symbol string) (models.Quote, bool) {
	s.mu.RLock()
	q, ok := s.mem[symbol]
	s.mu.RUnlock()
	if !ok {
		s.metrics.RecordCacheMiss()
		return models.Quote{}, false
	}
	s.metrics.RecordCacheHit()
	return *q, true
}

// IsFresh reports whether q is valid for the effective day.
func (s *Store) IsFresh(q *models.Quote, day string) bool {
	return q != nil && q.ValidForDay == day
}

// Put writes the memory tier and then the durable tier. A durable write
// failure is logged, not returned: the memory tier stays authoritative until
// the next successful write.
func (s *Store) Put(ctx context.Context, q *models.Quote) error {
	if !q.Valid() {
		return fmt.Errorf("store: refusing invalid quote %+v", q)
	}

	cp := *q

	// saveMu keeps snapshot-take and snapshot-save as one ordered step, so
	// a concurrent Put can never land an older snapshot on disk last.
	s.saveMu.Lock()
	s.mu.Lock()
	s.mem[cp.Symbol] = &cp
	snap := s.snapshotLocked()
	s.mu.Unlock()
	saveErr := s.durable.Save(snap)
	s.saveMu.Unlock()

	s.metrics.RecordLastPrice(cp.Symbol, cp.Price)

	if saveErr != nil {
		s.metrics.RecordDurableWriteFailure()
		s.log.Error("durable write failed, memory tier stays authoritative",
			logger.String("symbol", cp.Symbol), logger.Error(saveErr))
	}

	if s.mirror != nil {
		if err := s.mirror.Put(ctx, &cp); err != nil {
			s.log.Warn("mirror write failed",
				logger.String("symbol", cp.Symbol), logger.Error(err))
		}
	}
	return nil
}

// LoadAll rehydrates the memory tier from the durable tier at startup.
func (s *Store) LoadAll() error {
	snap, err := s.durable.Load()
	if err != nil {
		return fmt.Errorf("store: load snapshot: %w", err)
	}

	s.mu.Lock()
	for sym, q := range snap.Quotes {
		if q.Valid() {
			cp := *q
			s.mem[sym] = &cp
		}
	}
	n := len(s.mem)
	s.mu.Unlock()

	s.log.Info("store rehydrated", logger.Int("symbols", n))
	return nil
}

// Symbols returns every symbol currently held in the memory tier.
func (s *Store) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.mem))
	for sym := range s.mem {
		out = append(out, sym)
	}
	return out
}

func (s *Store) snapshotLocked() Snapshot {
	quotes := make(map[string]*models.Quote, len(s.mem))
	for sym, q := range s.mem {
		cp := *q
		quotes[sym] = &cp
	}
	return Snapshot{AsOf: time.Now(), Quotes: quotes}
}
