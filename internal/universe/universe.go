// Package universe loads the master list of tracked instruments from a JSON
// file, caching it with a TTL so edits are picked up without a restart.
package universe

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"FundPulse/internal/domain/models"
	"FundPulse/pkg/logger"
)

type fileEntry struct {
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
	Class  string `json:"class,omitempty"`
}

// Loader reads the universe file lazily and keeps it cached for ttl. When a
// reload fails the previous list is served so a transient file error never
// empties the universe.
type Loader struct {
	mu       sync.Mutex
	path     string
	ttl      time.Duration
	log      *logger.Logger
	now      func() time.Time
	cached   []models.Instrument
	loadedAt time.Time
}

// New creates a universe loader.
func New(path string, ttl time.Duration, log *logger.Logger) *Loader {
	if log == nil {
		log = logger.Nop()
	}
	return &Loader{path: path, ttl: ttl, log: log, now: time.Now}
}

// Instruments returns the current universe, reloading when the cache expired.
func (l *Loader) Instruments() ([]models.Instrument, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if l.cached != nil && now.Sub(l.loadedAt) < l.ttl {
		return l.cached, nil
	}

	list, err := l.load()
	if err != nil {
		if l.cached != nil {
			l.log.Warn("universe reload failed, serving cached list", logger.Error(err))
			return l.cached, nil
		}
		return nil, err
	}

	l.cached = list
	l.loadedAt = now
	return list, nil
}

// Lookup finds one instrument by symbol.
func (l *Loader) Lookup(symbol string) (models.Instrument, bool) {
	list, err := l.Instruments()
	if err != nil {
		return models.Instrument{}, false
	}
	symbol = strings.ToUpper(symbol)
	for _, in := range list {
		if in.Symbol == symbol {
			return in, true
		}
	}
	return models.Instrument{}, false
}

func (l *Loader) load() ([]models.Instrument, error) {
	b, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("universe: read %s: %w", l.path, err)
	}

	var entries []fileEntry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("universe: decode: %w", err)
	}

	out := make([]models.Instrument, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		sym := strings.ToUpper(strings.TrimSpace(e.Symbol))
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true

		class := models.InstrumentClass(strings.ToUpper(e.Class))
		if class == "" {
			class = InferClass(e.Name)
		}
		out = append(out, models.Instrument{Symbol: sym, Name: e.Name, Class: class})
	}

	l.log.Info("universe loaded", logger.Int("instruments", len(out)))
	return out, nil
}

// InferClass guesses the instrument class from Turkish fund naming
// conventions when the master list does not state one.
func InferClass(name string) models.InstrumentClass {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "hisse") || strings.Contains(n, "endeks"):
		return models.ClassEquity
	case strings.Contains(n, "altın") || strings.Contains(n, "kıymetli maden"):
		return models.ClassGold
	case strings.Contains(n, "borçlanma") || strings.Contains(n, "tahvil") || strings.Contains(n, "bono"):
		return models.ClassBond
	case strings.Contains(n, "döviz") || strings.Contains(n, "eurobond"):
		return models.ClassFX
	case strings.Contains(n, "karma") || strings.Contains(n, "değişken"):
		return models.ClassMixed
	default:
		return models.ClassOther
	}
}
