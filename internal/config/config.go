// Package config defines the top-level configuration for the arbitrage
// scanner and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/LavaaC/ArbiSport/internal/domain"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ARBISPORT_* environment variables.
type Config struct {
	OddsAPI  OddsAPIConfig  `toml:"oddsapi"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Archive  ArchiveConfig  `toml:"archive"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Scans    []ScanConfig   `toml:"scan"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// OddsAPIConfig holds the odds provider credentials and client tuning.
type OddsAPIConfig struct {
	APIKey            string   `toml:"api_key"`
	BaseURL           string   `toml:"base_url"`
	Timeout           duration `toml:"timeout"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters. When disabled, the quote
// cache, signal bus, and WebSocket streaming are skipped.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for cold archives.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ArchiveConfig controls the retention pass that ages arbitrage history out
// of PostgreSQL into object storage.
type ArchiveConfig struct {
	Enabled       bool     `toml:"enabled"`
	RetentionDays int      `toml:"retention_days"`
	Interval      duration `toml:"interval"`
	Prefix        string   `toml:"prefix"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
	RateLimit   int      `toml:"rate_limit"` // requests per minute per client; 0 disables
}

// NotifyConfig holds notification channel credentials. AlertEdge is the
// minimum realized edge an opportunity needs to be itemized in alerts.
type NotifyConfig struct {
	TelegramToken     string  `toml:"telegram_token"`
	TelegramChatID    string  `toml:"telegram_chat_id"`
	DiscordWebhookURL string  `toml:"discord_webhook_url"`
	AlertEdge         float64 `toml:"alert_edge"`
}

// ScanConfig describes one named scan. Each entry becomes a scheduler loop.
type ScanConfig struct {
	Name          string              `toml:"name"`
	Mode          string              `toml:"mode"` // snapshot, continuous, burst
	Sports        []string            `toml:"sports"`
	Regions       []string            `toml:"regions"`
	Bookmakers    []string            `toml:"bookmakers"`
	Markets       []string            `toml:"markets"`
	DeepMarkets   []string            `toml:"deep_markets"`
	DeepMarketMap map[string][]string `toml:"deep_market_map"`

	// Window is an optional preset (next2h, next6h, next24h) that sets the
	// look-ahead bound; an explicit window_ahead takes precedence.
	Window string `toml:"window"`

	// WindowAhead/WindowBehind bound event commence times relative to the
	// cycle start.
	WindowAhead  duration `toml:"window_ahead"`
	WindowBehind duration `toml:"window_behind"`

	Interval      duration `toml:"interval"`
	BurstInterval duration `toml:"burst_interval"`
	BurstWindow   duration `toml:"burst_window"`

	MinEdge         float64 `toml:"min_edge"`
	Bankroll        float64 `toml:"bankroll"`
	StakeRounding   float64 `toml:"stake_rounding"`
	MaxStakePerBook float64 `toml:"max_stake_per_book"`
	MinBookCount    int     `toml:"min_book_count"`
	TopK            int     `toml:"top_k"`
}

// ToSpec converts the scan configuration to an immutable spec, anchoring the
// event window at now.
func (s ScanConfig) ToSpec(now time.Time) domain.ScanSpec {
	return domain.ScanSpec{
		Name:          s.Name,
		Sports:        append([]string(nil), s.Sports...),
		Regions:       append([]string(nil), s.Regions...),
		Bookmakers:    append([]string(nil), s.Bookmakers...),
		Markets:       append([]string(nil), s.Markets...),
		DeepMarkets:   append([]string(nil), s.DeepMarkets...),
		DeepMarketMap: copyMarketMap(s.DeepMarketMap),
		Window: domain.TimeWindow{
			Start: now.Add(-s.WindowBehind.Duration),
			End:   now.Add(s.windowAhead()),
		},
		Bankroll: domain.Bankroll{
			MinEdge:         decimal.NewFromFloat(s.MinEdge),
			Total:           decimal.NewFromFloat(s.Bankroll),
			Rounding:        decimal.NewFromFloat(s.StakeRounding),
			MaxStakePerBook: decimal.NewFromFloat(s.MaxStakePerBook),
			MinBookCount:    s.MinBookCount,
		},
		Mode:          domain.ScanMode(strings.ToLower(s.Mode)),
		Interval:      s.Interval.Duration,
		BurstInterval: s.BurstInterval.Duration,
		BurstWindow:   s.BurstWindow.Duration,
		TopK:          s.TopK,
	}
}

// windowPresets maps the named look-ahead windows to durations.
var windowPresets = map[string]time.Duration{
	"next2h":  2 * time.Hour,
	"next6h":  6 * time.Hour,
	"next24h": 24 * time.Hour,
}

// windowAhead resolves the look-ahead bound: explicit window_ahead wins, then
// the named preset.
func (s ScanConfig) windowAhead() time.Duration {
	if s.WindowAhead.Duration > 0 {
		return s.WindowAhead.Duration
	}
	if d, ok := windowPresets[strings.ToLower(s.Window)]; ok {
		return d
	}
	return 0
}

func copyMarketMap(in map[string][]string) map[string][]string {
	if in == nil {
		return nil
	}
	out := make(map[string][]string, len(in))
	for k, v := range in {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		OddsAPI: OddsAPIConfig{
			BaseURL:           "https://api.the-odds-api.com/v4",
			Timeout:           duration{30 * time.Second},
			RequestsPerSecond: 2,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "arbisport",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    true,
			Addr:       "localhost:6379",
			PoolSize:   20,
			MaxRetries: 3,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "arbisport-archive",
			ForcePathStyle: true,
		},
		Archive: ArchiveConfig{
			Enabled:       false,
			RetentionDays: 30,
			Interval:      duration{24 * time.Hour},
			Prefix:        "archive/arbitrage",
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:   120,
		},
		Notify: NotifyConfig{
			AlertEdge: 0.01,
		},
		Scans: []ScanConfig{
			{
				Name:          "default",
				Mode:          "continuous",
				Sports:        []string{"basketball_nba"},
				Regions:       []string{"us"},
				Markets:       []string{"h2h"},
				WindowAhead:   duration{72 * time.Hour},
				Interval:      duration{60 * time.Second},
				BurstInterval: duration{15 * time.Second},
				BurstWindow:   duration{30 * time.Minute},
				MinEdge:       0.01,
				Bankroll:      1000,
				StakeRounding: 1,
				MinBookCount:  2,
			},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"scan":  true,
	"serve": true,
	"full":  true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validScanModes enumerates the accepted values for ScanConfig.Mode.
var validScanModes = map[string]bool{
	string(domain.ScanModeSnapshot):   true,
	string(domain.ScanModeContinuous): true,
	string(domain.ScanModeBurst):      true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: scan, serve, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	needsScanning := c.Mode == "scan" || c.Mode == "full"
	if needsScanning && c.OddsAPI.APIKey == "" {
		errs = append(errs, "oddsapi: api_key is required for mode "+c.Mode)
	}
	if c.OddsAPI.RequestsPerSecond < 0 {
		errs = append(errs, "oddsapi: requests_per_second must be >= 0")
	}

	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty when enabled")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	if c.S3.Enabled {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
	}
	if c.Archive.Enabled {
		if !c.S3.Enabled {
			errs = append(errs, "archive: s3 must be enabled when archiving is enabled")
		}
		if c.Archive.RetentionDays < 1 {
			errs = append(errs, "archive: retention_days must be >= 1")
		}
	}

	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit < 0 {
			errs = append(errs, "server: rate_limit must be >= 0")
		}
	}

	if needsScanning && len(c.Scans) == 0 {
		errs = append(errs, "scan: at least one [[scan]] block is required for mode "+c.Mode)
	}
	seen := make(map[string]bool, len(c.Scans))
	for i, sc := range c.Scans {
		prefix := fmt.Sprintf("scan[%d]", i)
		if sc.Name == "" {
			errs = append(errs, prefix+": name must not be empty")
		} else {
			prefix = fmt.Sprintf("scan %q", sc.Name)
			if seen[sc.Name] {
				errs = append(errs, prefix+": duplicate name")
			}
			seen[sc.Name] = true
		}
		if !validScanModes[strings.ToLower(sc.Mode)] {
			errs = append(errs, fmt.Sprintf("%s: unknown mode %q (valid: snapshot, continuous, burst)", prefix, sc.Mode))
		}
		if len(sc.Sports) == 0 {
			errs = append(errs, prefix+": sports must not be empty")
		}
		if len(sc.Markets) == 0 {
			errs = append(errs, prefix+": markets must not be empty")
		}
		if sc.Window != "" {
			if _, ok := windowPresets[strings.ToLower(sc.Window)]; !ok {
				errs = append(errs, fmt.Sprintf("%s: unknown window %q (valid: next2h, next6h, next24h)", prefix, sc.Window))
			}
		}
		if sc.windowAhead() <= 0 {
			errs = append(errs, prefix+": window_ahead or a window preset is required")
		}
		if sc.MinEdge < 0 {
			errs = append(errs, prefix+": min_edge must be >= 0")
		}
		if sc.Bankroll <= 0 {
			errs = append(errs, prefix+": bankroll must be > 0")
		}
		if sc.StakeRounding <= 0 {
			errs = append(errs, prefix+": stake_rounding must be > 0")
		}
		if sc.MinBookCount < 1 {
			errs = append(errs, prefix+": min_book_count must be >= 1")
		}
		if strings.ToLower(sc.Mode) != string(domain.ScanModeSnapshot) && sc.Interval.Duration <= 0 {
			errs = append(errs, prefix+": interval must be > 0 for mode "+sc.Mode)
		}
		if strings.ToLower(sc.Mode) == string(domain.ScanModeBurst) {
			if sc.BurstInterval.Duration <= 0 {
				errs = append(errs, prefix+": burst_interval must be > 0 for burst mode")
			}
			if sc.BurstWindow.Duration <= 0 {
				errs = append(errs, prefix+": burst_window must be > 0 for burst mode")
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
