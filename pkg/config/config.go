package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ClassSpec holds the blend weights and volatility cap for one instrument
// class. Weights apply to the anchor return, the index benchmark delta, the
// FX benchmark delta, and the intraday drift term.
type ClassSpec struct {
	AnchorWeight float64 `yaml:"anchor_weight"`
	IndexWeight  float64 `yaml:"index_weight"`
	FXWeight     float64 `yaml:"fx_weight"`
	DriftWeight  float64 `yaml:"drift_weight"`
	VolCap       float64 `yaml:"vol_cap"` // max abs predicted return %
}

// Benchmark maps an internal benchmark code to its upstream ticker.
type Benchmark struct {
	Code   string `yaml:"code"`
	Ticker string `yaml:"ticker"`
}

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Store struct {
		SnapshotPath string `yaml:"snapshot_path"`
		Redis        struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"store"`
	Market struct {
		Location        string        `yaml:"location"`      // e.g. Europe/Istanbul
		NavCutoff       string        `yaml:"nav_cutoff"`    // "18:30"
		SessionOpen     string        `yaml:"session_open"`  // "09:40"
		SessionClose    string        `yaml:"session_close"` // "18:10"
		IndexCode       string        `yaml:"index_code"`
		FXCode          string        `yaml:"fx_code"`
		Benchmarks      []Benchmark   `yaml:"benchmarks"`
		RefreshInterval time.Duration `yaml:"refresh_interval"`
		SnapshotPath    string        `yaml:"snapshot_path"`
	} `yaml:"market"`
	Sources struct {
		FundOrder   []string      `yaml:"fund_order"`   // priority order, first wins
		EquityOrder []string      `yaml:"equity_order"`
		Timeout     time.Duration `yaml:"timeout"` // per source attempt
		TefasPage   string        `yaml:"tefas_page"`
		TefasAPI    string        `yaml:"tefas_api"`
		YahooChart  string        `yaml:"yahoo_chart"`
		RateLimit   struct {
			Burst        float64 `yaml:"burst"`
			RefillPerSec float64 `yaml:"refill_per_sec"`
		} `yaml:"rate_limit"`
	} `yaml:"sources"`
	Prediction struct {
		HysteresisThreshold float64              `yaml:"hysteresis_threshold"`
		JitterAmplitude     float64              `yaml:"jitter_amplitude"`
		OpenTTL             time.Duration        `yaml:"open_ttl"`
		Classes             map[string]ClassSpec `yaml:"classes"`
	} `yaml:"prediction"`
	DailyJob struct {
		StatePath    string        `yaml:"state_path"`
		LockPath     string        `yaml:"lock_path"`
		StaleAfter   time.Duration `yaml:"stale_after"`
		CatchupDelay time.Duration `yaml:"catchup_delay"`
		UniversePath string        `yaml:"universe_path"`
		UniverseTTL  time.Duration `yaml:"universe_ttl"`
	} `yaml:"daily_job"`
	History struct {
		Enabled    bool   `yaml:"enabled"`
		Table      string `yaml:"table"`
		ClickHouse struct {
			Host         string        `yaml:"host"`
			Port         int           `yaml:"port"`
			Database     string        `yaml:"database"`
			User         string        `yaml:"user"`
			Password     string        `yaml:"password"`
			DialTimeout  time.Duration `yaml:"dial_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
		} `yaml:"clickhouse"`
	} `yaml:"history"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Store.Redis.Enabled = true
		c.Store.Redis.Addr = v
	}
	if v := os.Getenv("SNAPSHOT_PATH"); v != "" {
		c.Store.SnapshotPath = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.History.Enabled = true
		c.History.ClickHouse.Host = v
	}
	if v := os.Getenv("FUND_SOURCES"); v != "" {
		c.Sources.FundOrder = strings.Split(v, ",")
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 10 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 10 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
	if c.Market.Location == "" {
		c.Market.Location = "Europe/Istanbul"
	}
	if c.Market.NavCutoff == "" {
		c.Market.NavCutoff = "18:30"
	}
	if c.Market.SessionOpen == "" {
		c.Market.SessionOpen = "09:40"
	}
	if c.Market.SessionClose == "" {
		c.Market.SessionClose = "18:10"
	}
	if c.Market.RefreshInterval == 0 {
		c.Market.RefreshInterval = 15 * time.Minute
	}
	if c.Sources.Timeout == 0 {
		c.Sources.Timeout = 5 * time.Second
	}
	if c.Sources.TefasPage == "" {
		c.Sources.TefasPage = "https://www.tefas.gov.tr/FonAnaliz.aspx"
	}
	if c.Sources.TefasAPI == "" {
		c.Sources.TefasAPI = "https://www.tefas.gov.tr/api/DB/BindHistoryInfo"
	}
	if c.Sources.YahooChart == "" {
		c.Sources.YahooChart = "https://query1.finance.yahoo.com/v8/finance/chart"
	}
	if len(c.Sources.EquityOrder) == 0 {
		c.Sources.EquityOrder = []string{"yahoo"}
	}
	if c.Market.IndexCode == "" {
		c.Market.IndexCode = "BIST100"
	}
	if c.Market.FXCode == "" {
		c.Market.FXCode = "USDTRY"
	}
	if c.Sources.RateLimit.Burst == 0 {
		c.Sources.RateLimit.Burst = 5
	}
	if c.Sources.RateLimit.RefillPerSec == 0 {
		c.Sources.RateLimit.RefillPerSec = 10
	}
	if c.Prediction.HysteresisThreshold == 0 {
		c.Prediction.HysteresisThreshold = 0.25
	}
	if c.Prediction.JitterAmplitude == 0 {
		c.Prediction.JitterAmplitude = 0.03
	}
	if c.Prediction.OpenTTL == 0 {
		c.Prediction.OpenTTL = 5 * time.Second
	}
	if c.DailyJob.StaleAfter == 0 {
		c.DailyJob.StaleAfter = 30 * time.Minute
	}
	if c.DailyJob.CatchupDelay == 0 {
		c.DailyJob.CatchupDelay = 15 * time.Second
	}
	if c.DailyJob.UniverseTTL == 0 {
		c.DailyJob.UniverseTTL = time.Hour
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Store.SnapshotPath == "" {
		return fmt.Errorf("store.snapshot_path is required")
	}
	if len(c.Sources.FundOrder) == 0 {
		return fmt.Errorf("sources.fund_order cannot be empty")
	}
	if c.DailyJob.StatePath == "" || c.DailyJob.LockPath == "" {
		return fmt.Errorf("daily_job.state_path and daily_job.lock_path are required")
	}
	if _, _, err := ParseClock(c.Market.NavCutoff); err != nil {
		return fmt.Errorf("market.nav_cutoff: %w", err)
	}
	if _, _, err := ParseClock(c.Market.SessionOpen); err != nil {
		return fmt.Errorf("market.session_open: %w", err)
	}
	if _, _, err := ParseClock(c.Market.SessionClose); err != nil {
		return fmt.Errorf("market.session_close: %w", err)
	}
	for name, spec := range c.Prediction.Classes {
		if spec.VolCap <= 0 {
			return fmt.Errorf("prediction.classes.%s.vol_cap must be > 0", name)
		}
	}
	return nil
}

// ParseClock parses "HH:MM" into hour and minute.
func ParseClock(s string) (int, int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid clock time %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h, m, nil
}
