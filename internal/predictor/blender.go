// Package predictor blends the anchored daily return with benchmark moves
// into an intraday return estimate per symbol.
package predictor

import (
	"math"
	"sync"
	"time"

	"FundPulse/internal/domain/models"
	"FundPulse/internal/marketday"
	"FundPulse/pkg/config"
	"FundPulse/pkg/logger"
)

// Inputs are the per-symbol signals entering one blend.
type Inputs struct {
	Symbol    string
	Class     models.InstrumentClass
	AnchorPct float64 // published daily return of the instrument
	IndexPct  float64 // benchmark index day change
	FXPct     float64 // FX benchmark day change
}

// Options tunes the blender. Classes maps class name to its weights; an
// entry named "OTHER" is the fallback for unknown classes.
type Options struct {
	HysteresisThreshold float64
	JitterAmplitude     float64
	OpenTTL             time.Duration
	Classes             map[string]config.ClassSpec
}

type symbolState struct {
	last          models.Prediction
	lastAt        time.Time
	lastDirection models.Direction
	frozen        *models.Prediction
}

// Blender computes predictions with per-symbol direction hysteresis and a
// freeze after the session close: once the market closes the last estimate
// is pinned until the next open.
type Blender struct {
	mu      sync.Mutex
	state   map[string]*symbolState
	session *marketday.Session
	opts    Options
	log     *logger.Logger
	now     func() time.Time
}

// New creates a blender bound to the given trading session.
func New(opts Options, session *marketday.Session, log *logger.Logger) *Blender {
	if log == nil {
		log = logger.Nop()
	}
	return &Blender{
		state:   make(map[string]*symbolState),
		session: session,
		opts:    opts,
		log:     log,
		now:     time.Now,
	}
}

func (b *Blender) spec(class models.InstrumentClass) config.ClassSpec {
	if s, ok := b.opts.Classes[string(class)]; ok {
		return s
	}
	if s, ok := b.opts.Classes[string(models.ClassOther)]; ok {
		return s
	}
	return config.ClassSpec{AnchorWeight: 0.55, IndexWeight: 0.25, FXWeight: 0.10, DriftWeight: 0.05, VolCap: 3}
}

// Predict returns the current estimate for one symbol. While the session is
// open results are cached briefly; after the close the last value is frozen
// and returned unchanged until the next open.
func (b *Blender) Predict(in Inputs) models.Prediction {
	now := b.now()
	open := b.session.IsOpen(now)

	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.state[in.Symbol]
	if !ok {
		st = &symbolState{}
		b.state[in.Symbol] = st
	}

	if open {
		st.frozen = nil
		if !st.lastAt.IsZero() && now.Sub(st.lastAt) < b.opts.OpenTTL {
			return st.last
		}
	} else {
		if st.frozen != nil {
			return *st.frozen
		}
	}

	p := b.compute(in, st, now, open)

	st.last = p
	st.lastAt = now
	st.lastDirection = p.Direction
	if !open {
		frozen := p
		st.frozen = &frozen
	}
	return p
}

func (b *Blender) compute(in Inputs, st *symbolState, now time.Time, open bool) models.Prediction {
	spec := b.spec(in.Class)

	raw := in.AnchorPct*spec.AnchorWeight +
		in.IndexPct*spec.IndexWeight +
		in.FXPct*spec.FXWeight +
		spec.DriftWeight*(1-b.session.Ratio(now))

	if open {
		raw += math.Sin(float64(now.Unix())/60) * b.opts.JitterAmplitude
	}

	if raw > spec.VolCap {
		raw = spec.VolCap
	}
	if raw < -spec.VolCap {
		raw = -spec.VolCap
	}

	dir := models.DirectionOf(raw)
	if st.lastDirection != "" && dir != st.lastDirection &&
		math.Abs(raw) < b.opts.HysteresisThreshold {
		dir = st.lastDirection
	}

	conf := 55 + int(math.Abs(raw)*10)
	if conf > 95 {
		conf = 95
	}
	if conf < 10 {
		conf = 10
	}

	return models.Prediction{
		Symbol:             in.Symbol,
		PredictedReturnPct: round4(raw),
		Direction:          dir,
		Confidence:         conf,
		Frozen:             !open,
		ComputedAt:         now,
	}
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
