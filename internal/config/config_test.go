package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/LavaaC/ArbiSport/internal/domain"
	"github.com/LavaaC/ArbiSport/internal/oddsapi"
)

func validConfig() Config {
	cfg := Defaults()
	cfg.OddsAPI.APIKey = "test-key"
	return cfg
}

func TestDefaultBaseURLIsVersioned(t *testing.T) {
	cfg := Defaults()
	if cfg.OddsAPI.BaseURL != oddsapi.DefaultBaseURL {
		t.Errorf("base_url = %q, want %q", cfg.OddsAPI.BaseURL, oddsapi.DefaultBaseURL)
	}
	if !strings.HasSuffix(cfg.OddsAPI.BaseURL, "/v4") {
		t.Errorf("base_url = %q, must carry the provider's version segment", cfg.OddsAPI.BaseURL)
	}
}

func TestDefaultsValidateWithAPIKey(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateMissingAPIKey(t *testing.T) {
	cfg := Defaults()
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for missing api key")
	}
	if !strings.Contains(err.Error(), "oddsapi: api_key") {
		t.Errorf("error = %v, want oddsapi api_key complaint", err)
	}
}

func TestValidateServeModeSkipsAPIKey(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "serve"
	cfg.Scans = nil
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateScanProblems(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ScanConfig)
		want   string
	}{
		{"bad mode", func(s *ScanConfig) { s.Mode = "turbo" }, `unknown mode "turbo"`},
		{"no sports", func(s *ScanConfig) { s.Sports = nil }, "sports must not be empty"},
		{"no markets", func(s *ScanConfig) { s.Markets = nil }, "markets must not be empty"},
		{"zero bankroll", func(s *ScanConfig) { s.Bankroll = 0 }, "bankroll must be > 0"},
		{"zero rounding", func(s *ScanConfig) { s.StakeRounding = 0 }, "stake_rounding must be > 0"},
		{"zero interval", func(s *ScanConfig) { s.Interval = duration{} }, "interval must be > 0"},
		{"burst missing window", func(s *ScanConfig) {
			s.Mode = "burst"
			s.BurstWindow = duration{}
		}, "burst_window must be > 0"},
		{"bad window preset", func(s *ScanConfig) { s.Window = "next3h" }, `unknown window "next3h"`},
		{"no window at all", func(s *ScanConfig) { s.WindowAhead = duration{} }, "window_ahead or a window preset"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg.Scans[0])
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want substring %q", err, tt.want)
			}
		})
	}
}

func TestValidateDuplicateScanNames(t *testing.T) {
	cfg := validConfig()
	cfg.Scans = append(cfg.Scans, cfg.Scans[0])
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "duplicate name") {
		t.Errorf("error = %v, want duplicate name complaint", err)
	}
}

func TestValidateArchiveNeedsS3(t *testing.T) {
	cfg := validConfig()
	cfg.Archive.Enabled = true
	cfg.S3.Enabled = false
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "s3 must be enabled") {
		t.Errorf("error = %v, want archive/s3 complaint", err)
	}
}

func TestToSpec(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sc := ScanConfig{
		Name:          "nba",
		Mode:          "Burst",
		Sports:        []string{"basketball_nba"},
		Markets:       []string{"h2h"},
		WindowAhead:   duration{48 * time.Hour},
		WindowBehind:  duration{2 * time.Hour},
		Interval:      duration{time.Minute},
		BurstInterval: duration{10 * time.Second},
		BurstWindow:   duration{30 * time.Minute},
		MinEdge:       0.02,
		Bankroll:      1500,
		StakeRounding: 5,
		MinBookCount:  2,
		TopK:          4,
	}

	spec := sc.ToSpec(now)
	if spec.Mode != domain.ScanModeBurst {
		t.Errorf("Mode = %q", spec.Mode)
	}
	if !spec.Window.Start.Equal(now.Add(-2 * time.Hour)) {
		t.Errorf("Window.Start = %v", spec.Window.Start)
	}
	if !spec.Window.End.Equal(now.Add(48 * time.Hour)) {
		t.Errorf("Window.End = %v", spec.Window.End)
	}
	if spec.Bankroll.MinEdge.String() != "0.02" {
		t.Errorf("MinEdge = %s", spec.Bankroll.MinEdge)
	}
	if spec.Bankroll.Total.String() != "1500" {
		t.Errorf("Total = %s", spec.Bankroll.Total)
	}
	if spec.Interval != time.Minute || spec.BurstInterval != 10*time.Second {
		t.Errorf("intervals = %v, %v", spec.Interval, spec.BurstInterval)
	}
	if spec.TopK != 4 {
		t.Errorf("TopK = %d", spec.TopK)
	}
}

func TestToSpecWindowPreset(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	sc := ScanConfig{Window: "Next6h"}
	spec := sc.ToSpec(now)
	if !spec.Window.End.Equal(now.Add(6 * time.Hour)) {
		t.Errorf("preset Window.End = %v", spec.Window.End)
	}

	// An explicit window_ahead takes precedence over the preset.
	sc.WindowAhead = duration{time.Hour}
	spec = sc.ToSpec(now)
	if !spec.Window.End.Equal(now.Add(time.Hour)) {
		t.Errorf("explicit Window.End = %v", spec.Window.End)
	}
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
mode = "scan"
log_level = "debug"

[oddsapi]
api_key = "from-file"

[[scan]]
name = "nba"
mode = "continuous"
sports = ["basketball_nba"]
markets = ["h2h"]
window_ahead = "72h"
interval = "45s"
min_edge = 0.015
bankroll = 2000.0
stake_rounding = 1.0
min_book_count = 2
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ARBISPORT_ODDSAPI_API_KEY", "from-env")
	t.Setenv("ARBISPORT_POSTGRES_PASSWORD", "hunter2")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mode != "scan" || cfg.LogLevel != "debug" {
		t.Errorf("mode/log_level = %q/%q", cfg.Mode, cfg.LogLevel)
	}
	if cfg.OddsAPI.APIKey != "from-env" {
		t.Errorf("api key = %q, env should win over file", cfg.OddsAPI.APIKey)
	}
	if cfg.Postgres.Password != "hunter2" {
		t.Errorf("postgres password = %q", cfg.Postgres.Password)
	}
	if len(cfg.Scans) != 1 {
		t.Fatalf("scans = %d, want the file's block to replace the default", len(cfg.Scans))
	}
	sc := cfg.Scans[0]
	if sc.Interval.Duration != 45*time.Second {
		t.Errorf("interval = %v", sc.Interval.Duration)
	}
	if sc.WindowAhead.Duration != 72*time.Hour {
		t.Errorf("window_ahead = %v", sc.WindowAhead.Duration)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate after Load: %v", err)
	}
}

func TestRedactedConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Postgres.Password = "secret"
	cfg.Notify.TelegramToken = "123:abc"

	red := RedactedConfig(&cfg)
	if red.OddsAPI.APIKey != "***" || red.Postgres.Password != "***" || red.Notify.TelegramToken != "***" {
		t.Errorf("secrets not redacted: %+v", red)
	}
	if cfg.OddsAPI.APIKey != "test-key" {
		t.Errorf("original mutated: %q", cfg.OddsAPI.APIKey)
	}

	red.Scans[0].Sports[0] = "mutated"
	if cfg.Scans[0].Sports[0] == "mutated" {
		t.Error("redacted copy shares slice backing with original")
	}
}
