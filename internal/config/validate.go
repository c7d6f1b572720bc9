package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
// Provider keys are optional here; features that need one report NOT_CONFIGURED when used.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if c.RateLimit.WindowMS <= 0 {
		return errors.New("rate_limit.window_ms must be positive")
	}
	if c.RateLimit.Max <= 0 {
		return errors.New("rate_limit.max must be positive")
	}
	if t := c.Transcripts.MatchThreshold; t <= 0 || t >= 1 {
		return fmt.Errorf("transcripts.match_threshold must be between 0 and 1 (exclusive), got %v", t)
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateOpenAI(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.SessionTTLHours <= 0 {
		return errors.New("server.session_ttl_hours must be positive")
	}
	if c.Database.MaxOpenConns < 0 || c.Database.MaxIdleConns < 0 {
		return errors.New("database connection limits must not be negative")
	}
	return nil
}

func (c *Config) validateCache() error {
	switch c.Cache.Backend {
	case "sqlite":
		return nil
	case "postgrest":
		if strings.TrimSpace(c.Cache.PostgRESTURL) == "" {
			return errors.New("cache.postgrest_url must be set when cache.backend is postgrest (or set POSTGREST_URL)")
		}
		if strings.TrimSpace(c.Cache.Table) == "" {
			return errors.New("cache.table must be set when cache.backend is postgrest")
		}
		return nil
	default:
		return fmt.Errorf("cache.backend must be sqlite or postgrest, got %q", c.Cache.Backend)
	}
}

func (c *Config) validateOpenAI() error {
	if c.OpenAI.MaxUploadBytes <= 0 {
		return errors.New("openai.max_upload_bytes must be positive")
	}
	if c.OpenAI.ChunkSeconds <= 0 {
		return errors.New("openai.chunk_seconds must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be json or text, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic":
	default:
		return fmt.Errorf("logging.level %q is not a known level", c.Logging.Level)
	}
	return nil
}
