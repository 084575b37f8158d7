package joblock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"FundPulse/internal/domain/models"
	"FundPulse/pkg/logger"
)

// releaseScript deletes the lock key only while it still holds our token.
// Without the compare, a job that outlives the lock TTL would delete the
// lock a sibling has since acquired.
var releaseScript = redis.NewScript(
	`if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) end return 0`)

func newLockToken() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%d-%d", os.Getpid(), time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}

// RedisLock is the cross-host variant: SET NX with a TTL is the lock, a
// plain key holds the per-day state. The TTL doubles as the stale-holder
// timeout, so a crashed holder is taken over automatically on expiry.
type RedisLock struct {
	client     *redis.Client
	prefix     string
	staleAfter time.Duration
	log        *logger.Logger
	now        func() time.Time
}

// NewRedisLock creates a Redis-based daily job lock.
func NewRedisLock(client *redis.Client, prefix string, staleAfter time.Duration, log *logger.Logger) *RedisLock {
	if prefix == "" {
		prefix = "fundpulse"
	}
	if log == nil {
		log = logger.Nop()
	}
	return &RedisLock{
		client:     client,
		prefix:     prefix,
		staleAfter: staleAfter,
		log:        log,
		now:        time.Now,
	}
}

func (l *RedisLock) stateKey() string { return l.prefix + ":job:state" }
func (l *RedisLock) lockKey() string  { return l.prefix + ":job:lock" }

// TryAcquireAndRun mirrors FileLock semantics over Redis.
func (l *RedisLock) TryAcquireAndRun(ctx context.Context, day string, fn func(context.Context) error) (models.JobOutcome, error) {
	state, err := l.readState(ctx)
	if err != nil {
		return "", fmt.Errorf("joblock: read state: %w", err)
	}
	if state.Day == day && state.Status == models.JobDone {
		return models.JobSkippedAlreadyDone, nil
	}

	tookOver := state.Day == day && state.Status == models.JobRunning &&
		state.StartedAt != nil && l.now().Sub(*state.StartedAt) >= l.staleAfter

	token := newLockToken()
	ok, err := l.client.SetNX(ctx, l.lockKey(), token, l.staleAfter).Result()
	if err != nil {
		return "", fmt.Errorf("joblock: setnx: %w", err)
	}
	if !ok {
		return models.JobSkippedAlreadyRunning, nil
	}
	defer func() {
		rctx := context.WithoutCancel(ctx)
		if err := releaseScript.Run(rctx, l.client, []string{l.lockKey()}, token).Err(); err != nil {
			l.log.Warn("redis lock release failed", logger.Error(err))
		}
	}()

	state, err = l.readState(ctx)
	if err != nil {
		return "", fmt.Errorf("joblock: re-read state: %w", err)
	}
	if state.Day == day && state.Status == models.JobDone {
		return models.JobSkippedAlreadyDone, nil
	}

	started := l.now()
	if err := l.writeState(ctx, models.DailyJobState{
		Day:       day,
		Status:    models.JobRunning,
		StartedAt: &started,
	}); err != nil {
		return "", fmt.Errorf("joblock: mark running: %w", err)
	}

	runErr := fn(ctx)

	finished := l.now()
	final := models.DailyJobState{Day: day, StartedAt: &started}
	if runErr != nil {
		final.Status = models.JobIdle
	} else {
		final.Status = models.JobDone
		final.FinishedAt = &finished
	}
	if err := l.writeState(context.WithoutCancel(ctx), final); err != nil {
		l.log.Error("daily job state write failed", logger.Error(err))
	}

	if runErr != nil {
		return "", fmt.Errorf("joblock: job failed: %w", runErr)
	}
	if tookOver {
		return models.JobTookOver, nil
	}
	return models.JobStarted, nil
}

// State returns the persisted job state for status reporting.
func (l *RedisLock) State(ctx context.Context) (models.DailyJobState, error) {
	return l.readState(ctx)
}

func (l *RedisLock) readState(ctx context.Context) (models.DailyJobState, error) {
	b, err := l.client.Get(ctx, l.stateKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.DailyJobState{Status: models.JobIdle}, nil
		}
		return models.DailyJobState{}, err
	}
	var s models.DailyJobState
	if err := json.Unmarshal(b, &s); err != nil {
		l.log.Warn("corrupt job state key, resetting", logger.Error(err))
		return models.DailyJobState{Status: models.JobIdle}, nil
	}
	return s, nil
}

func (l *RedisLock) writeState(ctx context.Context, s models.DailyJobState) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return l.client.Set(ctx, l.stateKey(), b, 0).Err()
}
