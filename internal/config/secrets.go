package config

// RedactedConfig returns a copy of cfg with sensitive fields replaced by the
// redaction placeholder "***". Use this when logging or printing the active
// configuration so secrets are never accidentally exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg // shallow copy of the top-level struct

	redact(&out.OddsAPI.APIKey)

	redact(&out.Postgres.DSN)
	redact(&out.Postgres.Password)

	redact(&out.Redis.Password)

	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)

	redact(&out.Server.APIKey)

	redact(&out.Notify.TelegramToken)
	redact(&out.Notify.DiscordWebhookURL)

	// Copy slices so callers cannot mutate the original through the redacted
	// copy.
	if cfg.Server.CORSOrigins != nil {
		out.Server.CORSOrigins = append([]string(nil), cfg.Server.CORSOrigins...)
	}
	if cfg.Scans != nil {
		out.Scans = make([]ScanConfig, len(cfg.Scans))
		for i, sc := range cfg.Scans {
			sc.Sports = append([]string(nil), sc.Sports...)
			sc.Regions = append([]string(nil), sc.Regions...)
			sc.Bookmakers = append([]string(nil), sc.Bookmakers...)
			sc.Markets = append([]string(nil), sc.Markets...)
			sc.DeepMarkets = append([]string(nil), sc.DeepMarkets...)
			sc.DeepMarketMap = copyMarketMap(sc.DeepMarketMap)
			out.Scans[i] = sc
		}
	}

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}
