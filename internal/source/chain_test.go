package source

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"FundPulse/internal/domain/models"
)

type stubFetcher struct {
	name    string
	calls   atomic.Int64
	outcome func(ctx context.Context) models.FetchOutcome
}

func (s *stubFetcher) Name() string { return s.name }

func (s *stubFetcher) Fetch(ctx context.Context, _ string) models.FetchOutcome {
	s.calls.Add(1)
	return s.outcome(ctx)
}

func successOutcome(price float64) func(context.Context) models.FetchOutcome {
	return func(context.Context) models.FetchOutcome {
		return models.Success(&models.Quote{Symbol: "ABC", Price: price, Source: "stub", FetchedAt: time.Now()})
	}
}

func TestChainFirstSuccessShortCircuits(t *testing.T) {
	first := &stubFetcher{name: "first", outcome: successOutcome(10)}
	second := &stubFetcher{name: "second", outcome: successOutcome(99)}

	c := NewChain(time.Second, nil, nil, first, second)
	out := c.Fetch(context.Background(), "ABC")

	if out.Status != models.OutcomeSuccess || out.Quote.Price != 10 {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if second.calls.Load() != 0 {
		t.Fatal("second source must not be called after first success")
	}
}

func TestChainAdvancesOnFailure(t *testing.T) {
	failing := &stubFetcher{name: "failing", outcome: func(context.Context) models.FetchOutcome {
		return models.TransientError(context.DeadlineExceeded)
	}}
	empty := &stubFetcher{name: "empty", outcome: func(context.Context) models.FetchOutcome {
		return models.Empty()
	}}
	good := &stubFetcher{name: "good", outcome: successOutcome(10)}

	c := NewChain(time.Second, nil, nil, failing, empty, good)
	out := c.Fetch(context.Background(), "ABC")

	if out.Status != models.OutcomeSuccess {
		t.Fatalf("expected success from last source, got %v", out.Status)
	}
	if failing.calls.Load() != 1 || empty.calls.Load() != 1 {
		t.Fatal("every earlier source should be tried exactly once")
	}
}

func TestChainAllFailReturnsEmpty(t *testing.T) {
	f := &stubFetcher{name: "f", outcome: func(context.Context) models.FetchOutcome {
		return models.TransientError(context.DeadlineExceeded)
	}}
	c := NewChain(time.Second, nil, nil, f)
	if out := c.Fetch(context.Background(), "ABC"); out.Status != models.OutcomeEmpty {
		t.Fatalf("expected empty, got %v", out.Status)
	}
}

func TestChainIsolatesPanic(t *testing.T) {
	panicking := &stubFetcher{name: "panicking", outcome: func(context.Context) models.FetchOutcome {
		panic("boom")
	}}
	good := &stubFetcher{name: "good", outcome: successOutcome(10)}

	c := NewChain(time.Second, nil, nil, panicking, good)
	out := c.Fetch(context.Background(), "ABC")

	if out.Status != models.OutcomeSuccess {
		t.Fatalf("panic must not abort the chain, got %v", out.Status)
	}
}

func TestChainAppliesPerSourceTimeout(t *testing.T) {
	slow := &stubFetcher{name: "slow", outcome: func(ctx context.Context) models.FetchOutcome {
		select {
		case <-ctx.Done():
			return models.TransientError(ctx.Err())
		case <-time.After(5 * time.Second):
			return models.Empty()
		}
	}}
	good := &stubFetcher{name: "good", outcome: successOutcome(10)}

	c := NewChain(20*time.Millisecond, nil, nil, slow, good)
	start := time.Now()
	out := c.Fetch(context.Background(), "ABC")

	if out.Status != models.OutcomeSuccess {
		t.Fatalf("expected fallback success, got %v", out.Status)
	}
	if time.Since(start) > time.Second {
		t.Fatal("per-source timeout not enforced")
	}
}
