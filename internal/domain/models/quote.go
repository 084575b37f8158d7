// Package models holds the domain types shared across the service: quotes,
// benchmark readings, predictions and the daily job state.
package models

import "time"

// Source identifies which upstream produced a quote.
type Source string

const (
	SourceTefasHTML Source = "tefas_html"
	SourceTefasAPI  Source = "tefas_api"
	SourceYahoo     Source = "yahoo"
)

// Quote is the last known price for one symbol, tagged with the effective
// business day it is valid for. DailyReturnPct is nil when the source could
// not provide it; a missing return is never faked as zero.
type Quote struct {
	Symbol         string    `json:"symbol"`
	Price          float64   `json:"price"`
	DailyReturnPct *float64  `json:"daily_return_pct"`
	ValidForDay    string    `json:"valid_for_day"`
	Source         Source    `json:"source"`
	FetchedAt      time.Time `json:"fetched_at"`
}

// Valid reports whether the quote can be stored: a positive price and a
// resolved effective day.
func (q *Quote) Valid() bool {
	return q != nil && q.Price > 0 && q.ValidForDay != ""
}

// DailyReturn returns the published daily return, or 0 with ok=false when
// the source did not provide one.
func (q *Quote) DailyReturn() (float64, bool) {
	if q.DailyReturnPct == nil {
		return 0, false
	}
	return *q.DailyReturnPct, true
}

// OutcomeStatus tags a single source attempt.
type OutcomeStatus int

const (
	OutcomeSuccess OutcomeStatus = iota
	OutcomeEmpty
	OutcomeTransientError
)

func (s OutcomeStatus) String() string {
	switch s {
	case OutcomeSuccess:
		return "success"
	case OutcomeEmpty:
		return "empty"
	case OutcomeTransientError:
		return "transient_error"
	default:
		return "unknown"
	}
}

// FetchOutcome is the tagged result of one source attempt. Quote is set only
// on Success; Err only on TransientError.
type FetchOutcome struct {
	Status OutcomeStatus
	Quote  *Quote
	Err    error
}

func Success(q *Quote) FetchOutcome {
	return FetchOutcome{Status: OutcomeSuccess, Quote: q}
}

func Empty() FetchOutcome {
	return FetchOutcome{Status: OutcomeEmpty}
}

func TransientError(err error) FetchOutcome {
	return FetchOutcome{Status: OutcomeTransientError, Err: err}
}

// BenchmarkItem is one benchmark reading: an index level or an FX rate with
// its day-over-day change.
type BenchmarkItem struct {
	Code      string  `json:"code"`
	Value     float64 `json:"value"`
	ChangePct float64 `json:"change_pct"`
}

// BenchmarkSnapshot is the latest set of benchmark readings.
type BenchmarkSnapshot struct {
	AsOf  time.Time       `json:"as_of"`
	Items []BenchmarkItem `json:"items"`
}

// ChangePct returns the change for one benchmark code, 0 when absent.
func (s *BenchmarkSnapshot) ChangePct(code string) float64 {
	for _, it := range s.Items {
		if it.Code == code {
			return it.ChangePct
		}
	}
	return 0
}

// Age returns how old the snapshot is at the given instant.
func (s *BenchmarkSnapshot) Age(now time.Time) time.Duration {
	if s.AsOf.IsZero() {
		return time.Duration(1<<62 - 1)
	}
	return now.Sub(s.AsOf)
}
