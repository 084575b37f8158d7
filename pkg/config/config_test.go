package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sample = `
environment: test
server:
  port: 8080
store:
  snapshot_path: /tmp/fundpulse/quotes.json
sources:
  fund_order: [tefas_html, tefas_api]
  timeout: 4s
daily_job:
  state_path: /tmp/fundpulse/daily_state.json
  lock_path: /tmp/fundpulse/daily.lock
prediction:
  classes:
    EQUITY:
      anchor_weight: 0.55
      index_weight: 0.65
      fx_weight: 0.10
      drift_weight: 0.15
      vol_cap: 1.2
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load(writeConfig(t, sample))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Market.NavCutoff != "18:30" {
		t.Errorf("nav_cutoff default = %s", c.Market.NavCutoff)
	}
	if c.Market.RefreshInterval != 15*time.Minute {
		t.Errorf("refresh_interval default = %v", c.Market.RefreshInterval)
	}
	if c.Sources.Timeout != 4*time.Second {
		t.Errorf("timeout = %v", c.Sources.Timeout)
	}
	if c.Prediction.HysteresisThreshold != 0.25 {
		t.Errorf("hysteresis default = %v", c.Prediction.HysteresisThreshold)
	}
	if c.DailyJob.StaleAfter != 30*time.Minute {
		t.Errorf("stale_after default = %v", c.DailyJob.StaleAfter)
	}
}

func TestLoadRejectsMissingSources(t *testing.T) {
	body := `
environment: test
store:
  snapshot_path: /tmp/q.json
daily_job:
  state_path: /tmp/s.json
  lock_path: /tmp/l.lock
`
	if _, err := Load(writeConfig(t, body)); err == nil {
		t.Fatal("expected validation error for empty fund_order")
	}
}

func TestLoadRejectsBadCutoff(t *testing.T) {
	body := sample + "\nmarket:\n  nav_cutoff: \"25:99\"\n"
	if _, err := Load(writeConfig(t, body)); err == nil {
		t.Fatal("expected validation error for bad cutoff")
	}
}

func TestParseClock(t *testing.T) {
	h, m, err := ParseClock("18:30")
	if err != nil || h != 18 || m != 30 {
		t.Fatalf("ParseClock = %d:%d, %v", h, m, err)
	}
	if _, _, err := ParseClock("1830"); err == nil {
		t.Fatal("expected error for missing colon")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("FUND_SOURCES", "tefas_api")

	c, err := LoadWithEnv(writeConfig(t, sample))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !c.Store.Redis.Enabled || c.Store.Redis.Addr != "redis:6379" {
		t.Errorf("redis override not applied: %+v", c.Store.Redis)
	}
	if len(c.Sources.FundOrder) != 1 || c.Sources.FundOrder[0] != "tefas_api" {
		t.Errorf("fund_order override not applied: %v", c.Sources.FundOrder)
	}
}
