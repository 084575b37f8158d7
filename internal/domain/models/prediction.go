package models

import "time"

// Direction is the sign bucket a predicted return falls into.
type Direction string

const (
	DirectionPositive Direction = "positive"
	DirectionNegative Direction = "negative"
	DirectionNeutral  Direction = "neutral"
)

// DirectionOf buckets a predicted return percentage.
func DirectionOf(pct float64) Direction {
	switch {
	case pct > 0.05:
		return DirectionPositive
	case pct < -0.05:
		return DirectionNegative
	default:
		return DirectionNeutral
	}
}

// InstrumentClass groups instruments by the blend profile they use.
type InstrumentClass string

const (
	ClassEquity InstrumentClass = "EQUITY"
	ClassMixed  InstrumentClass = "MIXED"
	ClassBond   InstrumentClass = "BOND"
	ClassGold   InstrumentClass = "GOLD"
	ClassFX     InstrumentClass = "FX"
	ClassOther  InstrumentClass = "OTHER"
)

// Prediction is the blended intraday estimate for one symbol. Frozen marks
// values pinned at the last in-session estimate after the close.
type Prediction struct {
	Symbol             string    `json:"symbol"`
	PredictedReturnPct float64   `json:"predicted_return_pct"`
	Direction          Direction `json:"direction"`
	Confidence         int       `json:"confidence"`
	Frozen             bool      `json:"frozen"`
	ComputedAt         time.Time `json:"computed_at"`
}

// Instrument is one entry of the tradable universe.
type Instrument struct {
	Symbol string          `json:"symbol"`
	Name   string          `json:"name"`
	Class  InstrumentClass `json:"class"`
}
