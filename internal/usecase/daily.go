package usecase

import (
	"context"
	"time"

	"FundPulse/internal/domain/models"
	"FundPulse/internal/marketday"
	"FundPulse/internal/service/ratelimit"
	applogger "FundPulse/pkg/logger"
)

// JobLock is the once-per-day guard; implemented by joblock.FileLock and
// joblock.RedisLock.
type JobLock interface {
	TryAcquireAndRun(ctx context.Context, day string, fn func(context.Context) error) (models.JobOutcome, error)
}

// JobMetrics records daily job outcomes. Implemented by pkg/metrics.
type JobMetrics interface {
	RecordDailyJob(outcome string, duration time.Duration)
}

type nopJobMetrics struct{}

func (nopJobMetrics) RecordDailyJob(string, time.Duration) {}

// DailyJob runs the full refresh (benchmarks, then every universe symbol)
// at most once per effective day.
type DailyJob struct {
	quotes   *QuoteService
	market   *MarketData
	lock     JobLock
	resolver *marketday.Resolver
	limiter  *ratelimit.Limiter
	burst    float64
	refill   float64
	log      *applogger.Logger
	metrics  JobMetrics
	now      func() time.Time
}

// NewDailyJob creates the daily refresh job. metrics may be nil.
func NewDailyJob(
	quotes *QuoteService,
	market *MarketData,
	lock JobLock,
	resolver *marketday.Resolver,
	limiter *ratelimit.Limiter,
	burst, refill float64,
	log *applogger.Logger,
	metrics JobMetrics,
) *DailyJob {
	if log == nil {
		log = applogger.Nop()
	}
	if metrics == nil {
		metrics = nopJobMetrics{}
	}
	return &DailyJob{
		quotes:   quotes,
		market:   market,
		lock:     lock,
		resolver: resolver,
		limiter:  limiter,
		burst:    burst,
		refill:   refill,
		log:      log,
		metrics:  metrics,
		now:      time.Now,
	}
}

// TriggerIfDue runs the refresh for the current effective day unless it
// already ran or is running elsewhere. Safe to call repeatedly; callers
// include the scheduler tick, the startup catch-up and the manual API.
func (j *DailyJob) TriggerIfDue(ctx context.Context) (models.JobOutcome, error) {
	day := j.resolver.Resolve(j.now())
	start := j.now()

	outcome, err := j.lock.TryAcquireAndRun(ctx, day, j.run)

	elapsed := j.now().Sub(start)
	if err != nil {
		j.metrics.RecordDailyJob("failed", elapsed)
		j.log.Error("daily job failed",
			applogger.String("day", day), applogger.Error(err))
		return outcome, err
	}
	j.metrics.RecordDailyJob(string(outcome), elapsed)

	switch outcome {
	case models.JobStarted, models.JobTookOver:
		j.log.Info("daily job finished",
			applogger.String("day", day),
			applogger.String("outcome", string(outcome)),
			applogger.Duration("elapsed", elapsed))
	default:
		j.log.Debug("daily job not due",
			applogger.String("day", day),
			applogger.String("outcome", string(outcome)))
	}
	return outcome, nil
}

func (j *DailyJob) run(ctx context.Context) error {
	if err := j.market.Refresh(ctx); err != nil {
		// stale benchmarks degrade predictions, they do not block quotes
		j.log.Warn("benchmark refresh failed, continuing with stale snapshot",
			applogger.Error(err))
	}
	_, err := j.quotes.RefreshAll(ctx, j.limiter, j.burst, j.refill)
	return err
}
