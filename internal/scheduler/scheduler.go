// Package scheduler drives the periodic work: benchmark refreshes, the
// once-per-day universe refresh and the startup catch-up.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"FundPulse/internal/usecase"
	applogger "FundPulse/pkg/logger"
)

// Scheduler owns the cron instance. Start is idempotent-hostile on purpose:
// a second Start is a wiring bug and returns an error instead of silently
// doubling every job.
type Scheduler struct {
	cron         *cron.Cron
	job          *usecase.DailyJob
	market       *usecase.MarketData
	refreshEvery time.Duration
	catchupDelay time.Duration
	log          *applogger.Logger

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
}

// New creates the scheduler in the given market timezone.
func New(
	loc *time.Location,
	job *usecase.DailyJob,
	market *usecase.MarketData,
	refreshEvery, catchupDelay time.Duration,
	log *applogger.Logger,
) *Scheduler {
	if log == nil {
		log = applogger.Nop()
	}
	return &Scheduler{
		cron:         cron.New(cron.WithLocation(loc)),
		job:          job,
		market:       market,
		refreshEvery: refreshEvery,
		catchupDelay: catchupDelay,
		log:          log,
	}
}

// Start registers the jobs and begins ticking. It also schedules a one-shot
// catch-up shortly after boot so a service restarted mid-day still runs the
// daily job it missed.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("scheduler already started")
	}
	s.started = true

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	if _, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.refreshEvery), func() {
		if err := s.market.Refresh(ctx); err != nil {
			s.log.Warn("scheduled benchmark refresh failed", applogger.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("schedule benchmark refresh: %w", err)
	}

	if _, err := s.cron.AddFunc("@every 1m", func() {
		if _, err := s.job.TriggerIfDue(ctx); err != nil {
			s.log.Warn("scheduled daily trigger failed", applogger.Error(err))
		}
	}); err != nil {
		return fmt.Errorf("schedule daily trigger: %w", err)
	}

	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.catchupDelay):
		}
		s.log.Info("running startup catch-up")
		if err := s.market.Refresh(ctx); err != nil {
			s.log.Warn("catch-up benchmark refresh failed", applogger.Error(err))
		}
		if _, err := s.job.TriggerIfDue(ctx); err != nil {
			s.log.Warn("catch-up daily trigger failed", applogger.Error(err))
		}
	}()

	s.cron.Start()
	s.log.Info("scheduler started",
		applogger.Duration("benchmark_refresh", s.refreshEvery),
		applogger.Duration("catchup_delay", s.catchupDelay))
	return nil
}

// Stop halts the cron loop and waits for running jobs up to ctx's deadline.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return nil
	}
	if s.cancel != nil {
		s.cancel()
	}

	done := s.cron.Stop().Done()
	select {
	case <-done:
		s.log.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
