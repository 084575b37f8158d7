package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"FundPulse/internal/domain/models"
	"FundPulse/internal/predictor"
	"FundPulse/internal/universe"
	applogger "FundPulse/pkg/logger"
)

// PredictionService assembles blend inputs for one symbol and delegates to
// the blender.
type PredictionService struct {
	quotes    *QuoteService
	market    *MarketData
	blender   *predictor.Blender
	universe  *universe.Loader
	indexCode string
	fxCode    string
	log       *applogger.Logger
}

// NewPredictionService creates the prediction read path.
func NewPredictionService(
	quotes *QuoteService,
	market *MarketData,
	blender *predictor.Blender,
	uni *universe.Loader,
	indexCode, fxCode string,
	log *applogger.Logger,
) *PredictionService {
	if log == nil {
		log = applogger.Nop()
	}
	return &PredictionService{
		quotes:    quotes,
		market:    market,
		blender:   blender,
		universe:  uni,
		indexCode: indexCode,
		fxCode:    fxCode,
		log:       log,
	}
}

func (p *PredictionService) classOf(symbol string) models.InstrumentClass {
	if in, ok := p.universe.Lookup(symbol); ok {
		return in.Class
	}
	return models.ClassOther
}

// Get returns the current prediction for one symbol, fetching its quote
// first when stale.
func (p *PredictionService) Get(ctx context.Context, symbol string) (models.Prediction, error) {
	res, err := p.quotes.GetOrFetch(ctx, symbol)
	if err != nil {
		return models.Prediction{}, err
	}
	return p.blend(res.Quote), nil
}

func (p *PredictionService) blend(q models.Quote) models.Prediction {
	anchor, _ := q.DailyReturn()
	bench := p.market.Snapshot()
	return p.blender.Predict(predictor.Inputs{
		Symbol:    q.Symbol,
		Class:     p.classOf(q.Symbol),
		AnchorPct: anchor,
		IndexPct:  bench.ChangePct(p.indexCode),
		FXPct:     bench.ChangePct(p.fxCode),
	})
}

// Summary aggregates predictions over the whole universe.
type Summary struct {
	AsOf          time.Time           `json:"as_of"`
	Total         int                 `json:"total"`
	Positive      int                 `json:"positive"`
	Negative      int                 `json:"negative"`
	Neutral       int                 `json:"neutral"`
	AvgConfidence float64             `json:"avg_confidence"`
	ClassAverages map[string]float64  `json:"class_averages"`
	TopGainers    []models.Prediction `json:"top_gainers"`
	TopLosers     []models.Prediction `json:"top_losers"`
}

// topListMinConfidence keeps barely-confident estimates out of the
// gainer/loser rankings.
const topListMinConfidence = 60

// Summarize blends every universe symbol that has a cached quote. It never
// triggers upstream fetches; the daily job is responsible for warming the
// cache.
func (p *PredictionService) Summarize(ctx context.Context) (Summary, error) {
	instruments, err := p.universe.Instruments()
	if err != nil {
		return Summary{}, fmt.Errorf("summary: %w", err)
	}

	preds := make([]models.Prediction, 0, len(instruments))
	classTotals := make(map[string]float64)
	classCounts := make(map[string]int)
	for _, in := range instruments {
		res, ok := p.quotes.Get(in.Symbol)
		if !ok {
			continue
		}
		pr := p.blend(res.Quote)
		preds = append(preds, pr)
		classTotals[string(in.Class)] += pr.PredictedReturnPct
		classCounts[string(in.Class)]++
	}

	sum := Summary{AsOf: time.Now(), Total: len(preds), ClassAverages: make(map[string]float64, len(classTotals))}
	for class, total := range classTotals {
		sum.ClassAverages[class] = total / float64(classCounts[class])
	}

	var confTotal int
	for _, pr := range preds {
		confTotal += pr.Confidence
		switch pr.Direction {
		case models.DirectionPositive:
			sum.Positive++
		case models.DirectionNegative:
			sum.Negative++
		default:
			sum.Neutral++
		}
	}
	if len(preds) > 0 {
		sum.AvgConfidence = float64(confTotal) / float64(len(preds))
	}

	ranked := make([]models.Prediction, 0, len(preds))
	for _, pr := range preds {
		if pr.Confidence >= topListMinConfidence {
			ranked = append(ranked, pr)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].PredictedReturnPct > ranked[j].PredictedReturnPct
	})
	sum.TopGainers = topN(ranked, 5, false)
	sum.TopLosers = topN(ranked, 5, true)
	return sum, nil
}

func topN(sorted []models.Prediction, n int, fromTail bool) []models.Prediction {
	if len(sorted) < n {
		n = len(sorted)
	}
	out := make([]models.Prediction, 0, n)
	if fromTail {
		for i := len(sorted) - 1; i >= len(sorted)-n; i-- {
			out = append(out, sorted[i])
		}
		return out
	}
	out = append(out, sorted[:n]...)
	return out
}
