package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ARBISPORT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known ARBISPORT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.OddsAPI.APIKey, "ARBISPORT_ODDSAPI_API_KEY")
	setStr(&cfg.OddsAPI.BaseURL, "ARBISPORT_ODDSAPI_BASE_URL")
	setDuration(&cfg.OddsAPI.Timeout, "ARBISPORT_ODDSAPI_TIMEOUT")
	setFloat64(&cfg.OddsAPI.RequestsPerSecond, "ARBISPORT_ODDSAPI_REQUESTS_PER_SECOND")

	setStr(&cfg.Postgres.DSN, "ARBISPORT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "ARBISPORT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "ARBISPORT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "ARBISPORT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "ARBISPORT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "ARBISPORT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "ARBISPORT_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "ARBISPORT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "ARBISPORT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "ARBISPORT_POSTGRES_RUN_MIGRATIONS")

	setBool(&cfg.Redis.Enabled, "ARBISPORT_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "ARBISPORT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ARBISPORT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ARBISPORT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "ARBISPORT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "ARBISPORT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "ARBISPORT_REDIS_TLS_ENABLED")

	setBool(&cfg.S3.Enabled, "ARBISPORT_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "ARBISPORT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "ARBISPORT_S3_REGION")
	setStr(&cfg.S3.Bucket, "ARBISPORT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "ARBISPORT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "ARBISPORT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "ARBISPORT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "ARBISPORT_S3_FORCE_PATH_STYLE")

	setBool(&cfg.Archive.Enabled, "ARBISPORT_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.RetentionDays, "ARBISPORT_ARCHIVE_RETENTION_DAYS")
	setDuration(&cfg.Archive.Interval, "ARBISPORT_ARCHIVE_INTERVAL")
	setStr(&cfg.Archive.Prefix, "ARBISPORT_ARCHIVE_PREFIX")

	setBool(&cfg.Server.Enabled, "ARBISPORT_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "ARBISPORT_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "ARBISPORT_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "ARBISPORT_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "ARBISPORT_SERVER_RATE_LIMIT")

	setStr(&cfg.Notify.TelegramToken, "ARBISPORT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "ARBISPORT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "ARBISPORT_NOTIFY_DISCORD_WEBHOOK_URL")
	setFloat64(&cfg.Notify.AlertEdge, "ARBISPORT_NOTIFY_ALERT_EDGE")

	setStr(&cfg.Mode, "ARBISPORT_MODE")
	setStr(&cfg.LogLevel, "ARBISPORT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
