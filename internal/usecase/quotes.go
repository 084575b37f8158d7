// Package usecase wires the domain pieces into the operations the API and
// scheduler call: staleness-aware quote reads, the benchmark snapshot, the
// prediction blend and the once-per-day refresh.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"FundPulse/internal/domain/models"
	"FundPulse/internal/marketday"
	"FundPulse/internal/repository"
	"FundPulse/internal/service/ratelimit"
	"FundPulse/internal/store"
	"FundPulse/internal/universe"
	applogger "FundPulse/pkg/logger"
)

// ErrNoData means no source produced a quote and no last-known-good exists.
var ErrNoData = errors.New("no data available for symbol")

// QuoteChain is the ordered source chain for one instrument kind.
type QuoteChain interface {
	Fetch(ctx context.Context, symbol string) models.FetchOutcome
}

// QuoteResult is a quote plus whether it is fresh for the effective day.
type QuoteResult struct {
	Quote models.Quote
	Fresh bool
}

// QuoteService is the staleness-aware read path. Concurrent misses on the
// same symbol coalesce into a single upstream fetch.
type QuoteService struct {
	store       *store.Store
	fundChain   QuoteChain
	equityChain QuoteChain
	resolver    *marketday.Resolver
	universe    *universe.Loader
	history     repository.HistorySink
	log         *applogger.Logger
	now         func() time.Time

	mu       sync.Mutex
	inflight map[string]*sync.Mutex
}

// NewQuoteService creates the quote read path. history may be nil.
func NewQuoteService(
	st *store.Store,
	fundChain, equityChain QuoteChain,
	resolver *marketday.Resolver,
	uni *universe.Loader,
	history repository.HistorySink,
	log *applogger.Logger,
) *QuoteService {
	if log == nil {
		log = applogger.Nop()
	}
	return &QuoteService{
		store:       st,
		fundChain:   fundChain,
		equityChain: equityChain,
		resolver:    resolver,
		universe:    uni,
		history:     history,
		log:         log,
		now:         time.Now,
		inflight:    make(map[string]*sync.Mutex),
	}
}

// symbolLock returns the per-symbol mutex. Entries are never removed; the
// universe is small and bounded.
func (s *QuoteService) symbolLock(symbol string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.inflight[symbol]
	if !ok {
		m = &sync.Mutex{}
		s.inflight[symbol] = m
	}
	return m
}

func (s *QuoteService) chainFor(symbol string) QuoteChain {
	if in, ok := s.universe.Lookup(symbol); ok && in.Class == models.ClassEquity {
		return s.equityChain
	}
	switch strings.ToUpper(symbol) {
	case "BIST100", "BIST30", "USDTRY":
		return s.equityChain
	}
	return s.fundChain
}

// GetOrFetch returns a quote fresh for the effective day, fetching on a
// miss. When every source fails it falls back to the last known quote,
// marked stale; ErrNoData only when nothing was ever stored.
func (s *QuoteService) GetOrFetch(ctx context.Context, symbol string) (QuoteResult, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return QuoteResult{}, fmt.Errorf("symbol required")
	}

	day := s.resolver.Resolve(s.now())

	if q, ok := s.store.Get(symbol); ok && s.store.IsFresh(&q, day) {
		return QuoteResult{Quote: q, Fresh: true}, nil
	}

	lock := s.symbolLock(symbol)
	lock.Lock()
	defer lock.Unlock()

	// another goroutine may have completed the fetch while we waited
	if q, ok := s.store.Get(symbol); ok && s.store.IsFresh(&q, day) {
		return QuoteResult{Quote: q, Fresh: true}, nil
	}

	out := s.chainFor(symbol).Fetch(ctx, symbol)
	if out.Status == models.OutcomeSuccess {
		q := out.Quote
		q.ValidForDay = day
		if err := s.store.Put(ctx, q); err != nil {
			return QuoteResult{}, err
		}
		if s.history != nil {
			if err := s.history.Append(ctx, q); err != nil {
				s.log.Warn("history append failed", applogger.String("symbol", symbol), applogger.Error(err))
			}
		}
		return QuoteResult{Quote: *q, Fresh: true}, nil
	}

	if q, ok := s.store.Get(symbol); ok {
		s.log.Warn("all sources failed, serving stale quote",
			applogger.String("symbol", symbol),
			applogger.String("valid_for_day", q.ValidForDay),
			applogger.String("effective_day", day))
		return QuoteResult{Quote: q, Fresh: false}, nil
	}
	return QuoteResult{}, fmt.Errorf("%w: %s", ErrNoData, symbol)
}

// Get reads the cached quote without triggering a fetch.
func (s *QuoteService) Get(symbol string) (QuoteResult, bool) {
	q, ok := s.store.Get(strings.ToUpper(symbol))
	if !ok {
		return QuoteResult{}, false
	}
	day := s.resolver.Resolve(s.now())
	return QuoteResult{Quote: q, Fresh: s.store.IsFresh(&q, day)}, true
}

// RefreshStats summarizes one batch refresh.
type RefreshStats struct {
	Total   int `json:"total"`
	Fetched int `json:"fetched"`
	Stale   int `json:"stale"`
	Failed  int `json:"failed"`
}

// RefreshAll fetches every universe symbol, throttled by limiter. It keeps
// going past individual failures; the stats say how the batch went.
func (s *QuoteService) RefreshAll(ctx context.Context, limiter *ratelimit.Limiter, burst, refillPerSec float64) (RefreshStats, error) {
	instruments, err := s.universe.Instruments()
	if err != nil {
		return RefreshStats{}, fmt.Errorf("refresh: %w", err)
	}

	stats := RefreshStats{Total: len(instruments)}
	for _, in := range instruments {
		if limiter != nil {
			if err := limiter.Wait(ctx, "daily_refresh", burst, refillPerSec); err != nil {
				return stats, err
			}
		}
		res, err := s.GetOrFetch(ctx, in.Symbol)
		switch {
		case err != nil:
			stats.Failed++
			s.log.Warn("refresh failed", applogger.String("symbol", in.Symbol), applogger.Error(err))
		case res.Fresh:
			stats.Fetched++
		default:
			stats.Stale++
		}
	}

	s.log.Info("universe refresh finished",
		applogger.Int("total", stats.Total),
		applogger.Int("fetched", stats.Fetched),
		applogger.Int("stale", stats.Stale),
		applogger.Int("failed", stats.Failed))
	return stats, nil
}

// EffectiveDay exposes the resolved day for status endpoints.
func (s *QuoteService) EffectiveDay() string {
	return s.resolver.Resolve(s.now())
}
