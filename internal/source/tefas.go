package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"FundPulse/internal/domain/models"
)

var (
	rePagePrice = regexp.MustCompile(`(?s)Son Fiyat.*?<span>([\d.,]+)</span>`)
	rePageDaily = regexp.MustCompile(`(?s)Günlük Getiri.*?<span>(.*?)</span>`)
)

// TefasPageFetcher scrapes the fund analysis page. It is the richest source:
// the page carries both the latest price and the published daily return.
type TefasPageFetcher struct {
	client  *http.Client
	pageURL string
}

// NewTefasPageFetcher creates the HTML scrape fetcher.
func NewTefasPageFetcher(client *http.Client, pageURL string) *TefasPageFetcher {
	return &TefasPageFetcher{client: client, pageURL: pageURL}
}

func (f *TefasPageFetcher) Name() string { return string(models.SourceTefasHTML) }

func (f *TefasPageFetcher) Fetch(ctx context.Context, symbol string) models.FetchOutcome {
	u := fmt.Sprintf("%s?FonKod=%s", f.pageURL, url.QueryEscape(strings.ToUpper(symbol)))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return models.TransientError(fmt.Errorf("tefas page request: %w", err))
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Connection", "close")

	resp, err := f.client.Do(req)
	if err != nil {
		return models.TransientError(fmt.Errorf("tefas page fetch: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.TransientError(fmt.Errorf("tefas page: status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.TransientError(fmt.Errorf("tefas page read: %w", err))
	}

	html := string(body)
	pm := rePagePrice.FindStringSubmatch(html)
	if pm == nil {
		return models.Empty()
	}
	price, ok := ParseTurkishFloat(pm[1])
	if !ok || price <= 0 {
		return models.Empty()
	}

	q := &models.Quote{
		Symbol:    strings.ToUpper(symbol),
		Price:     price,
		Source:    models.SourceTefasHTML,
		FetchedAt: time.Now(),
	}
	if dm := rePageDaily.FindStringSubmatch(html); dm != nil {
		if daily, ok := ParseTurkishFloat(dm[1]); ok {
			q.DailyReturnPct = &daily
		}
	}
	return models.Success(q)
}

// TefasAPIFetcher uses the history endpoint as a lower-effort fallback. The
// endpoint only returns closing prices, so the daily return stays unknown
// rather than being faked as zero.
type TefasAPIFetcher struct {
	client *http.Client
	apiURL string
	now    func() time.Time
}

// NewTefasAPIFetcher creates the history API fetcher.
func NewTefasAPIFetcher(client *http.Client, apiURL string) *TefasAPIFetcher {
	return &TefasAPIFetcher{client: client, apiURL: apiURL, now: time.Now}
}

func (f *TefasAPIFetcher) Name() string { return string(models.SourceTefasAPI) }

type tefasHistoryRow struct {
	Date  string `json:"TARIH"`
	Price string `json:"FIYAT"`
}

type tefasHistoryResponse struct {
	Data []tefasHistoryRow `json:"data"`
}

func (f *TefasAPIFetcher) Fetch(ctx context.Context, symbol string) models.FetchOutcome {
	end := f.now()
	start := end.AddDate(0, 0, -5)

	form := url.Values{}
	form.Set("fontip", "YAT")
	form.Set("fonkod", strings.ToUpper(symbol))
	form.Set("bastarih", start.Format("02.01.2006"))
	form.Set("bittarih", end.Format("02.01.2006"))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return models.TransientError(fmt.Errorf("tefas api request: %w", err))
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := f.client.Do(req)
	if err != nil {
		return models.TransientError(fmt.Errorf("tefas api fetch: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.TransientError(fmt.Errorf("tefas api: status %d", resp.StatusCode))
	}

	var hist tefasHistoryResponse
	if err := json.NewDecoder(resp.Body).Decode(&hist); err != nil {
		return models.TransientError(fmt.Errorf("tefas api decode: %w", err))
	}
	if len(hist.Data) == 0 {
		return models.Empty()
	}

	rows := hist.Data
	sort.Slice(rows, func(i, j int) bool {
		ti, _ := time.Parse("02.01.2006", rows[i].Date)
		tj, _ := time.Parse("02.01.2006", rows[j].Date)
		return ti.Before(tj)
	})

	price, ok := ParseTurkishFloat(rows[len(rows)-1].Price)
	if !ok || price <= 0 {
		return models.Empty()
	}

	return models.Success(&models.Quote{
		Symbol:    strings.ToUpper(symbol),
		Price:     price,
		Source:    models.SourceTefasAPI,
		FetchedAt: time.Now(),
	})
}
