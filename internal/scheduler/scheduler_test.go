package scheduler

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"FundPulse/internal/joblock"
	"FundPulse/internal/marketday"
	"FundPulse/internal/store"
	"FundPulse/internal/universe"
	"FundPulse/internal/usecase"
	"FundPulse/pkg/logger"
)

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Istanbul")
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()

	st := store.New(store.NewFileStore(filepath.Join(dir, "snap.json")), nil, logger.Nop(), nil)
	uni := universe.New(filepath.Join(dir, "missing.json"), time.Hour, nil)
	resolver := marketday.New(loc, 18, 30)
	quotes := usecase.NewQuoteService(st, nil, nil, resolver, uni, nil, logger.Nop())
	market := usecase.NewMarketData(nil, nil, "", nil)
	lock := joblock.NewFileLock(
		filepath.Join(dir, "state.json"), filepath.Join(dir, "lock"),
		30*time.Minute, logger.Nop())
	job := usecase.NewDailyJob(quotes, market, lock, resolver, nil, 5, 10, logger.Nop(), nil)

	return New(loc, job, market, time.Hour, time.Hour, logger.Nop())
}

func TestStartTwiceFails(t *testing.T) {
	s := newTestScheduler(t)
	if err := s.Start(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Stop(ctx)
	})

	if err := s.Start(); err == nil {
		t.Fatal("second Start must fail")
	}
}

func TestStopWithoutStart(t *testing.T) {
	s := newTestScheduler(t)
	if err := s.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}
}
