package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"FundPulse/internal/domain/models"
	"FundPulse/internal/joblock"
	"FundPulse/internal/marketday"
	"FundPulse/internal/predictor"
	"FundPulse/internal/store"
	"FundPulse/internal/universe"
	"FundPulse/internal/usecase"
	"FundPulse/pkg/config"
	"FundPulse/pkg/logger"
)

type stubChain struct {
	outcome models.FetchOutcome
}

func (c *stubChain) Fetch(context.Context, string) models.FetchOutcome {
	return c.outcome
}

func newTestHandler(t *testing.T, chain usecase.QuoteChain) (*Handler, *echo.Echo) {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Istanbul")
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()

	uniPath := filepath.Join(dir, "universe.json")
	if err := os.WriteFile(uniPath, []byte(`[{"symbol":"AFT","name":"Hisse Fonu"}]`), 0o644); err != nil {
		t.Fatal(err)
	}

	st := store.New(store.NewFileStore(filepath.Join(dir, "snap.json")), nil, logger.Nop(), nil)
	uni := universe.New(uniPath, time.Hour, nil)
	resolver := marketday.New(loc, 18, 30)
	session := marketday.NewSession(loc, 9, 40, 18, 10)
	quotes := usecase.NewQuoteService(st, chain, chain, resolver, uni, nil, logger.Nop())
	market := usecase.NewMarketData(nil, nil, "", nil)
	blender := predictor.New(predictor.Options{
		HysteresisThreshold: 0.25,
		Classes:             map[string]config.ClassSpec{"OTHER": {AnchorWeight: 1, VolCap: 3}},
	}, session, nil)
	preds := usecase.NewPredictionService(quotes, market, blender, uni, "BIST100", "USDTRY", logger.Nop())
	lock := joblock.NewFileLock(
		filepath.Join(dir, "state.json"), filepath.Join(dir, "lock"),
		30*time.Minute, logger.Nop())
	job := usecase.NewDailyJob(quotes, market, lock, resolver, nil, 5, 10, logger.Nop(), nil)

	h := NewHandler(logger.Nop(), quotes, preds, market, job,
		func(context.Context) (models.DailyJobState, error) { return lock.State() },
		nil, session)

	e := echo.New()
	h.RegisterRoutes(e)
	return h, e
}

func doRequest(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	_, e := newTestHandler(t, &stubChain{outcome: models.Empty()})
	rec := doRequest(e, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestGetQuoteSuccess(t *testing.T) {
	ret := 1.5
	chain := &stubChain{outcome: models.Success(&models.Quote{
		Symbol: "AFT", Price: 12.34, DailyReturnPct: &ret,
		Source: models.SourceTefasHTML, FetchedAt: time.Now(),
	})}
	_, e := newTestHandler(t, chain)

	rec := doRequest(e, http.MethodGet, "/api/quotes/AFT", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Status int `json:"status"`
		Data   struct {
			Symbol string  `json:"symbol"`
			Price  float64 `json:"price"`
			Fresh  bool    `json:"fresh"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Data.Symbol != "AFT" || resp.Data.Price != 12.34 || !resp.Data.Fresh {
		t.Fatalf("unexpected payload: %+v", resp.Data)
	}
}

func TestGetQuoteNotFound(t *testing.T) {
	_, e := newTestHandler(t, &stubChain{outcome: models.Empty()})

	rec := doRequest(e, http.MethodGet, "/api/quotes/NOPE", "")
	var resp struct {
		Status int `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != http.StatusNotFound {
		t.Fatalf("envelope status %d, want 404", resp.Status)
	}
}

func TestQueryPredictionsValidation(t *testing.T) {
	_, e := newTestHandler(t, &stubChain{outcome: models.Empty()})

	rec := doRequest(e, http.MethodPost, "/api/predictions/query", `{}`)
	var resp struct {
		Status int `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != http.StatusBadRequest {
		t.Fatalf("envelope status %d, want 400", resp.Status)
	}
}

func TestDailyJobTriggerAndState(t *testing.T) {
	ret := 1.5
	chain := &stubChain{outcome: models.Success(&models.Quote{
		Symbol: "AFT", Price: 10, DailyReturnPct: &ret,
		Source: models.SourceTefasHTML, FetchedAt: time.Now(),
	})}
	_, e := newTestHandler(t, chain)

	rec := doRequest(e, http.MethodPost, "/api/jobs/daily", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("trigger status %d body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "started") {
		t.Fatalf("first trigger body: %s", rec.Body.String())
	}

	rec = doRequest(e, http.MethodPost, "/api/jobs/daily", "")
	if !strings.Contains(rec.Body.String(), "skipped_already_done") {
		t.Fatalf("second trigger body: %s", rec.Body.String())
	}

	rec = doRequest(e, http.MethodGet, "/api/jobs/daily", "")
	if !strings.Contains(rec.Body.String(), `"done"`) {
		t.Fatalf("state body: %s", rec.Body.String())
	}
}
