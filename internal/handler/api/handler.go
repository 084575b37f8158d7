// Package api exposes the HTTP surface: quotes, predictions, benchmark
// snapshot and daily job control.
package api

import (
	"context"
	"errors"
	"time"

	"github.com/labstack/echo/v4"

	"FundPulse/internal/domain/models"
	"FundPulse/internal/marketday"
	"FundPulse/internal/repository"
	"FundPulse/internal/usecase"
	xhttp "FundPulse/pkg/http"
	xlogger "FundPulse/pkg/logger"
)

// JobStateFn reads the persisted daily job state.
type JobStateFn func(ctx context.Context) (models.DailyJobState, error)

// Handler implements the Echo routes.
type Handler struct {
	logger   *xlogger.Logger
	quotes   *usecase.QuoteService
	preds    *usecase.PredictionService
	market   *usecase.MarketData
	job      *usecase.DailyJob
	jobState JobStateFn
	history  *repository.CHQuoteHistory
	session  *marketday.Session
}

// NewHandler creates the API handler. history may be nil.
func NewHandler(
	logger *xlogger.Logger,
	quotes *usecase.QuoteService,
	preds *usecase.PredictionService,
	market *usecase.MarketData,
	job *usecase.DailyJob,
	jobState JobStateFn,
	history *repository.CHQuoteHistory,
	session *marketday.Session,
) *Handler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &Handler{
		logger:   logger,
		quotes:   quotes,
		preds:    preds,
		market:   market,
		job:      job,
		jobState: jobState,
		history:  history,
		session:  session,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	g := e.Group("/api")
	g.GET("/quotes/:symbol", h.GetQuote)
	g.GET("/predictions/summary", h.PredictionsSummary)
	g.GET("/predictions/:symbol", h.GetPrediction)
	g.POST("/predictions/query", h.QueryPredictions)
	g.GET("/market", h.Market)
	g.POST("/jobs/daily", h.TriggerDailyJob)
	g.GET("/jobs/daily", h.DailyJobState)
	if h.history != nil {
		g.GET("/history/:symbol", h.History)
	}
}

func (h *Handler) Health(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"status":        "ok",
		"effective_day": h.quotes.EffectiveDay(),
		"market_open":   h.session.IsOpen(time.Now()),
	})
}

type quoteResponse struct {
	models.Quote
	Fresh bool `json:"fresh"`
}

func (h *Handler) GetQuote(c echo.Context) error {
	symbol := c.Param("symbol")

	res, err := h.quotes.GetOrFetch(c.Request().Context(), symbol)
	if err != nil {
		if errors.Is(err, usecase.ErrNoData) {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no data for %s", symbol))
		}
		h.logger.Error("quote lookup failed", xlogger.String("symbol", symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, quoteResponse{Quote: res.Quote, Fresh: res.Fresh})
}

func (h *Handler) GetPrediction(c echo.Context) error {
	symbol := c.Param("symbol")

	pred, err := h.preds.Get(c.Request().Context(), symbol)
	if err != nil {
		if errors.Is(err, usecase.ErrNoData) {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("no data for %s", symbol))
		}
		h.logger.Error("prediction failed", xlogger.String("symbol", symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, pred)
}

type predictionsQueryRequest struct {
	Symbols []string `json:"symbols" validate:"required,min=1,max=100,dive,required"`
	Limit   int      `json:"limit" default:"50" validate:"min=1,max=100"`
}

func (h *Handler) QueryPredictions(c echo.Context) error {
	req := &predictionsQueryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	ctx := c.Request().Context()
	out := make([]models.Prediction, 0, len(req.Symbols))
	for _, symbol := range req.Symbols {
		if len(out) >= req.Limit {
			break
		}
		pred, err := h.preds.Get(ctx, symbol)
		if err != nil {
			if errors.Is(err, usecase.ErrNoData) {
				continue
			}
			h.logger.Error("prediction failed", xlogger.String("symbol", symbol), xlogger.Error(err))
			return xhttp.AppErrorResponse(c, err)
		}
		out = append(out, pred)
	}
	return xhttp.SuccessResponse(c, out)
}

func (h *Handler) PredictionsSummary(c echo.Context) error {
	sum, err := h.preds.Summarize(c.Request().Context())
	if err != nil {
		h.logger.Error("summary failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, sum)
}

func (h *Handler) Market(c echo.Context) error {
	snap := h.market.Snapshot()
	now := time.Now()
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"as_of":         snap.AsOf,
		"items":         snap.Items,
		"age_seconds":   int(snap.Age(now).Seconds()),
		"market_open":   h.session.IsOpen(now),
		"effective_day": h.quotes.EffectiveDay(),
	})
}

func (h *Handler) TriggerDailyJob(c echo.Context) error {
	outcome, err := h.job.TriggerIfDue(c.Request().Context())
	if err != nil {
		h.logger.Error("manual daily trigger failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("daily job failed").WithError(err))
	}
	return xhttp.AcceptedResponse(c, map[string]string{"outcome": string(outcome)})
}

func (h *Handler) DailyJobState(c echo.Context) error {
	state, err := h.jobState(c.Request().Context())
	if err != nil {
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, state)
}

func (h *Handler) History(c echo.Context) error {
	symbol := c.Param("symbol")
	n := parseIntDefault(c.QueryParam("n"), 30)
	if n < 1 {
		n = 1
	}
	if n > 500 {
		n = 500
	}

	rows, err := h.history.Recent(c.Request().Context(), symbol, n)
	if err != nil {
		h.logger.Error("history query failed", xlogger.String("symbol", symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, rows)
}
