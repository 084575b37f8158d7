// Package source implements the upstream fetchers and the priority chain
// that tries them in order until one produces a usable quote.
package source

import (
	"context"
	"fmt"
	"time"

	"FundPulse/internal/domain/models"
	"FundPulse/pkg/logger"
)

// Fetcher is one upstream source attempt. Implementations must return a
// tagged outcome and never panic past Fetch; the chain still guards against
// panics as a last line of defense.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, symbol string) models.FetchOutcome
}

// Metrics records per-attempt counters. Implemented by pkg/metrics.
type Metrics interface {
	RecordFetch(source, outcome string)
}

type nopMetrics struct{}

func (nopMetrics) RecordFetch(string, string) {}

// Chain tries an ordered list of fetchers. First Success wins; Empty and
// TransientError advance to the next source. When every source fails the
// chain returns Empty so callers fall back to last-known-good data.
type Chain struct {
	fetchers []Fetcher
	timeout  time.Duration
	log      *logger.Logger
	metrics  Metrics
}

// NewChain creates a chain with a per-source attempt timeout.
func NewChain(timeout time.Duration, log *logger.Logger, metrics Metrics, fetchers ...Fetcher) *Chain {
	if log == nil {
		log = logger.Nop()
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Chain{fetchers: fetchers, timeout: timeout, log: log, metrics: metrics}
}

// Fetch runs the chain for one symbol.
func (c *Chain) Fetch(ctx context.Context, symbol string) models.FetchOutcome {
	for _, f := range c.fetchers {
		out := c.attempt(ctx, f, symbol)
		c.metrics.RecordFetch(f.Name(), out.Status.String())

		switch out.Status {
		case models.OutcomeSuccess:
			c.log.Debug("source hit",
				logger.String("symbol", symbol),
				logger.String("source", f.Name()))
			return out
		case models.OutcomeTransientError:
			c.log.Warn("source failed, trying next",
				logger.String("symbol", symbol),
				logger.String("source", f.Name()),
				logger.Error(out.Err))
		case models.OutcomeEmpty:
			c.log.Debug("source empty, trying next",
				logger.String("symbol", symbol),
				logger.String("source", f.Name()))
		}
	}
	return models.Empty()
}

// attempt isolates one fetcher call: its own deadline, and any panic is
// converted to a TransientError instead of propagating.
func (c *Chain) attempt(ctx context.Context, f Fetcher, symbol string) (out models.FetchOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out = models.TransientError(fmt.Errorf("source %s: panic: %v", f.Name(), r))
		}
	}()

	actx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return f.Fetch(actx, symbol)
}
