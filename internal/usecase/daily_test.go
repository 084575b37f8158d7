package usecase

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"FundPulse/internal/domain/models"
	"FundPulse/internal/joblock"
	"FundPulse/internal/marketday"
	"FundPulse/pkg/logger"
)

func TestDailyJobRunsOncePerDay(t *testing.T) {
	chain := successChain(10)
	svc := newTestService(t, chain, chain)

	loc, _ := time.LoadLocation("Europe/Istanbul")
	dir := t.TempDir()
	lock := joblock.NewFileLock(
		filepath.Join(dir, "state.json"),
		filepath.Join(dir, "lock"),
		30*time.Minute,
		logger.Nop(),
	)

	job := NewDailyJob(
		svc,
		NewMarketData(nil, nil, "", nil),
		lock,
		marketday.New(loc, 18, 30),
		nil, 5, 10,
		logger.Nop(),
		nil,
	)
	job.now = svc.now

	out, err := job.TriggerIfDue(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if out != models.JobStarted {
		t.Fatalf("first trigger: %v", out)
	}
	if got := chain.calls.Load(); got != 2 {
		t.Fatalf("expected both universe symbols fetched, got %d calls", got)
	}

	out, err = job.TriggerIfDue(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if out != models.JobSkippedAlreadyDone {
		t.Fatalf("second trigger: %v", out)
	}
	if got := chain.calls.Load(); got != 2 {
		t.Fatalf("skipped trigger still fetched: %d calls", got)
	}
}
