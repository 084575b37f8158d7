package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"FundPulse/internal/domain/models"
)

const chartBody = `{"chart":{"result":[{"meta":{"regularMarketPrice":105.5,"previousClose":100.0}}],"error":null}}`

func newChartServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(chartBody))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestYahooBenchmarkExplicitTicker(t *testing.T) {
	srv := newChartServer(t)
	f := NewYahooFetcher(srv.Client(), srv.URL)

	item, err := f.Benchmark(context.Background(), "bist100", "XU100.IS")
	if err != nil {
		t.Fatal(err)
	}
	if item.Code != "BIST100" || item.Value != 105.5 {
		t.Fatalf("item = %+v", item)
	}
}

// The fetcher is shared between the benchmark refresher and the equity
// chain, so Benchmark and Fetch run in parallel from independent goroutines.
func TestYahooConcurrentBenchmarkAndFetch(t *testing.T) {
	srv := newChartServer(t)
	f := NewYahooFetcher(srv.Client(), srv.URL)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := f.Benchmark(ctx, "BIST100", "XU100.IS"); err != nil {
				t.Errorf("benchmark: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			if out := f.Fetch(ctx, "BIST100"); out.Status != models.OutcomeSuccess {
				t.Errorf("fetch status = %v", out.Status)
			}
		}()
	}
	wg.Wait()
}
