// Package joblock guarantees the daily refresh runs at most once per
// effective day, across restarts and across processes sharing a filesystem.
package joblock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"FundPulse/internal/domain/models"
	"FundPulse/pkg/logger"
)

// FileLock coordinates through two files: a state file recording the last
// run per day, and an exclusively-created lock file serializing writers.
// A crashed holder is taken over once its run is older than staleAfter.
type FileLock struct {
	statePath  string
	lockPath   string
	staleAfter time.Duration
	log        *logger.Logger
	now        func() time.Time
}

// NewFileLock creates a file-based daily job lock.
func NewFileLock(statePath, lockPath string, staleAfter time.Duration, log *logger.Logger) *FileLock {
	if log == nil {
		log = logger.Nop()
	}
	return &FileLock{
		statePath:  statePath,
		lockPath:   lockPath,
		staleAfter: staleAfter,
		log:        log,
		now:        time.Now,
	}
}

// TryAcquireAndRun runs fn for the given day unless it already ran or is
// currently running elsewhere. The returned outcome says what was decided;
// err is non-nil only when fn itself failed or state I/O broke.
func (l *FileLock) TryAcquireAndRun(ctx context.Context, day string, fn func(context.Context) error) (models.JobOutcome, error) {
	state, err := l.readState()
	if err != nil {
		return "", fmt.Errorf("joblock: read state: %w", err)
	}

	tookOver := false
	if state.Day == day {
		switch state.Status {
		case models.JobDone:
			return models.JobSkippedAlreadyDone, nil
		case models.JobRunning:
			if state.StartedAt != nil && l.now().Sub(*state.StartedAt) < l.staleAfter {
				return models.JobSkippedAlreadyRunning, nil
			}
			// holder looks dead, take over
			tookOver = true
		}
	}

	acquired, err := l.acquireLockFile()
	if err != nil {
		return "", fmt.Errorf("joblock: acquire: %w", err)
	}
	if !acquired {
		return models.JobSkippedAlreadyRunning, nil
	}
	defer l.releaseLockFile()

	// Re-check under the lock: another process may have finished between
	// the first read and acquisition.
	state, err = l.readState()
	if err != nil {
		return "", fmt.Errorf("joblock: re-read state: %w", err)
	}
	if state.Day == day && state.Status == models.JobDone {
		return models.JobSkippedAlreadyDone, nil
	}
	if state.Day == day && state.Status == models.JobRunning && !tookOver {
		if state.StartedAt != nil && l.now().Sub(*state.StartedAt) < l.staleAfter {
			return models.JobSkippedAlreadyRunning, nil
		}
		tookOver = true
	}

	started := l.now()
	if err := l.writeState(models.DailyJobState{
		Day:       day,
		Status:    models.JobRunning,
		StartedAt: &started,
	}); err != nil {
		return "", fmt.Errorf("joblock: mark running: %w", err)
	}

	if tookOver {
		l.log.Warn("taking over stale daily job", logger.String("day", day))
	}

	runErr := fn(ctx)

	finished := l.now()
	final := models.DailyJobState{Day: day, StartedAt: &started}
	if runErr != nil {
		// leave the day re-runnable
		final.Status = models.JobIdle
	} else {
		final.Status = models.JobDone
		final.FinishedAt = &finished
	}
	if err := l.writeState(final); err != nil {
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
func (l *FileLock) State() (models.DailyJobState, error) {
	return l.readState()
}

func (l *FileLock) readState() (models.DailyJobState, error) {
	b, err := os.ReadFile(l.statePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.DailyJobState{Status: models.JobIdle}, nil
		}
		return models.DailyJobState{}, err
	}
	var s models.DailyJobState
	if err := json.Unmarshal(b, &s); err != nil {
		// a corrupt state file must not wedge the job forever
		l.log.Warn("corrupt job state file, resetting", logger.Error(err))
		return models.DailyJobState{Status: models.JobIdle}, nil
	}
	return s, nil
}

func (l *FileLock) writeState(s models.DailyJobState) error {
	if err := os.MkdirAll(filepath.Dir(l.statePath), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	tmp := l.statePath + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, l.statePath); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// acquireLockFile creates the lock file exclusively. A leftover lock older
// than staleAfter is removed once and the create is retried.
func (l *FileLock) acquireLockFile() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.lockPath), 0o755); err != nil {
		return false, err
	}
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(l.lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintf(f, "%d %s\n", os.Getpid(), l.now().Format(time.RFC3339))
			f.Close()
			return true, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return false, err
		}
		info, statErr := os.Stat(l.lockPath)
		if statErr != nil || l.now().Sub(info.ModTime()) < l.staleAfter {
			return false, nil
		}
		l.log.Warn("removing stale lock file", logger.String("path", l.lockPath))
		_ = os.Remove(l.lockPath)
	}
	return false, nil
}

func (l *FileLock) releaseLockFile() {
	if err := os.Remove(l.lockPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		l.log.Warn("lock file release failed", logger.Error(err))
	}
}
