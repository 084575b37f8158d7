package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"FundPulse/internal/domain/models"
)

// YahooFetcher serves equity symbols and benchmark tickers from the Yahoo
// chart API. symbolMap translates internal codes to Yahoo tickers; it is
// never written after construction, the fetcher is shared across goroutines.
type YahooFetcher struct {
	client    *http.Client
	chartURL  string
	symbolMap map[string]string
}

// NewYahooFetcher creates a Yahoo chart API fetcher.
func NewYahooFetcher(client *http.Client, chartURL string) *YahooFetcher {
	return &YahooFetcher{
		client:   client,
		chartURL: chartURL,
		symbolMap: map[string]string{
			"BIST100": "XU100.IS",
			"BIST30":  "XU030.IS",
			"USDTRY":  "USDTRY=X",
		},
	}
}

func (f *YahooFetcher) Name() string { return string(models.SourceYahoo) }

func (f *YahooFetcher) ticker(symbol string) string {
	if mapped, ok := f.symbolMap[strings.ToUpper(symbol)]; ok {
		return mapped
	}
	return symbol
}

// yahooChart is the response structure from the Yahoo chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				PreviousClose      float64 `json:"previousClose"`
				ChartPreviousClose float64 `json:"chartPreviousClose"`
			} `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (f *YahooFetcher) quote(ctx context.Context, ticker string) (last, prev float64, err error) {
	u := fmt.Sprintf("%s/%s?interval=1d&range=5d", f.chartURL, url.PathEscape(ticker))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, 0, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, 0, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("yahoo: status %d", resp.StatusCode)
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return 0, 0, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return 0, 0, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return 0, 0, nil
	}

	meta := chart.Chart.Result[0].Meta
	prev = meta.PreviousClose
	if prev == 0 {
		prev = meta.ChartPreviousClose
	}
	return meta.RegularMarketPrice, prev, nil
}

func (f *YahooFetcher) Fetch(ctx context.Context, symbol string) models.FetchOutcome {
	last, prev, err := f.quote(ctx, f.ticker(symbol))
	if err != nil {
		return models.TransientError(err)
	}
	if last <= 0 {
		return models.Empty()
	}

	q := &models.Quote{
		Symbol:    strings.ToUpper(symbol),
		Price:     last,
		Source:    models.SourceYahoo,
		FetchedAt: time.Now(),
	}
	if prev > 0 {
		pct := (last - prev) / prev * 100
		q.DailyReturnPct = &pct
	}
	return models.Success(q)
}

// Benchmark fetches one benchmark reading (index level or FX rate). An
// explicit ticker overrides the built-in code mapping for this call only.
func (f *YahooFetcher) Benchmark(ctx context.Context, code, ticker string) (models.BenchmarkItem, error) {
	if ticker == "" {
		ticker = f.ticker(code)
	}
	last, prev, err := f.quote(ctx, ticker)
	if err != nil {
		return models.BenchmarkItem{}, err
	}
	if last <= 0 {
		return models.BenchmarkItem{}, fmt.Errorf("yahoo: no data for %s", code)
	}
	item := models.BenchmarkItem{Code: strings.ToUpper(code), Value: last}
	if prev > 0 {
		item.ChangePct = (last - prev) / prev * 100
	}
	return item, nil
}
