package config

import (
	"fmt"
	"strconv"
	"strings"
)

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overrides secrets and deploy knobs from the environment.
// Empty values are ignored so an exported-but-blank variable does not wipe a file setting.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) error {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	str("ADMIN_PASSWORD", &c.Server.AdminPassword)
	str("YOUTUBE_API_KEY", &c.YouTube.APIKey)
	str("OPENROUTER_API_KEY", &c.OpenRouter.APIKey)
	str("XAI_API_KEY", &c.XAI.APIKey)
	str("OPENAI_API_KEY", &c.OpenAI.APIKey)
	str("DISPATCH_SITE_URL", &c.Site.URL)
	str("POSTGREST_URL", &c.Cache.PostgRESTURL)
	str("POSTGREST_KEY", &c.Cache.PostgRESTKey)

	if err := num("RATE_LIMIT_WINDOW_MS", &c.RateLimit.WindowMS); err != nil {
		return err
	}
	return num("RATE_LIMIT_MAX", &c.RateLimit.Max)
}
