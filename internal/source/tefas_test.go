package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"FundPulse/internal/domain/models"
)

func TestParseTurkishFloat(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"12,34", 12.34, true},
		{"%1,52", 1.52, true},
		{"1.234,56", 1234.56, true},
		{"−0,42", -0.42, true}, // unicode minus
		{"-0,42", -0.42, true},
		{"abc", 0, false},
		{"", 0, false},
	}
	for _, tc := range tests {
		got, ok := ParseTurkishFloat(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ParseTurkishFloat(%q) = %v, %v; want %v, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestTefasPageFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("FonKod") != "AFT" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `<div>Son Fiyat</div><span>12,3456</span>
<div>Günlük Getiri</div><span>%1,52</span>`)
	}))
	defer srv.Close()

	f := NewTefasPageFetcher(srv.Client(), srv.URL)
	out := f.Fetch(context.Background(), "aft")

	if out.Status != models.OutcomeSuccess {
		t.Fatalf("expected success, got %v (%v)", out.Status, out.Err)
	}
	if out.Quote.Symbol != "AFT" || out.Quote.Price != 12.3456 {
		t.Fatalf("unexpected quote: %+v", out.Quote)
	}
	if out.Quote.DailyReturnPct == nil || *out.Quote.DailyReturnPct != 1.52 {
		t.Fatalf("daily return not parsed: %+v", out.Quote.DailyReturnPct)
	}
	if out.Quote.Source != models.SourceTefasHTML {
		t.Fatalf("wrong source: %s", out.Quote.Source)
	}
}

func TestTefasPageFetcherEmptyOnMissingPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html>maintenance</html>`)
	}))
	defer srv.Close()

	f := NewTefasPageFetcher(srv.Client(), srv.URL)
	if out := f.Fetch(context.Background(), "AFT"); out.Status != models.OutcomeEmpty {
		t.Fatalf("expected empty, got %v", out.Status)
	}
}

func TestTefasAPIFetcherLeavesDailyReturnUnknown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method", http.StatusMethodNotAllowed)
			return
		}
		fmt.Fprint(w, `{"data":[
			{"TARIH":"02.05.2024","FIYAT":"12,30"},
			{"TARIH":"03.05.2024","FIYAT":"12,45"}
		]}`)
	}))
	defer srv.Close()

	f := NewTefasAPIFetcher(srv.Client(), srv.URL)
	out := f.Fetch(context.Background(), "AFT")

	if out.Status != models.OutcomeSuccess {
		t.Fatalf("expected success, got %v (%v)", out.Status, out.Err)
	}
	if out.Quote.Price != 12.45 {
		t.Fatalf("expected latest price 12.45, got %v", out.Quote.Price)
	}
	if out.Quote.DailyReturnPct != nil {
		t.Fatal("api fetcher must not fabricate a daily return")
	}
}

func TestTefasAPIFetcherTransientOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	f := NewTefasAPIFetcher(srv.Client(), srv.URL)
	if out := f.Fetch(context.Background(), "AFT"); out.Status != models.OutcomeTransientError {
		t.Fatalf("expected transient error, got %v", out.Status)
	}
}

func TestYahooFetcherDailyReturn(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":[{"meta":{"regularMarketPrice":102.0,"previousClose":100.0}}]}}`)
	}))
	defer srv.Close()

	f := NewYahooFetcher(srv.Client(), srv.URL)
	out := f.Fetch(context.Background(), "GARAN.IS")

	if out.Status != models.OutcomeSuccess {
		t.Fatalf("expected success, got %v (%v)", out.Status, out.Err)
	}
	if out.Quote.DailyReturnPct == nil || *out.Quote.DailyReturnPct != 2.0 {
		t.Fatalf("daily return = %v, want 2.0", out.Quote.DailyReturnPct)
	}
}
