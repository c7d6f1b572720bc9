package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ADMIN_PASSWORD", "YOUTUBE_API_KEY", "OPENROUTER_API_KEY", "XAI_API_KEY", "OPENAI_API_KEY",
		"DISPATCH_SITE_URL", "RATE_LIMIT_WINDOW_MS", "RATE_LIMIT_MAX", "POSTGREST_URL", "POSTGREST_KEY",
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(body), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func TestLoad_DefaultWhenMissing(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Transcripts.MatchThreshold != 0.85 {
		t.Fatalf("MatchThreshold = %v, want 0.85", cfg.Transcripts.MatchThreshold)
	}
	if cfg.Transcripts.Dir != filepath.Join(tmpDir, "transcripts") {
		t.Fatalf("Transcripts.Dir = %q", cfg.Transcripts.Dir)
	}
	if cfg.RateLimit.WindowMS != 60000 || cfg.RateLimit.Max != 30 {
		t.Fatalf("RateLimit = %+v, want 60000/30", cfg.RateLimit)
	}
	if cfg.Server.SessionTTLHours != 8 {
		t.Fatalf("SessionTTLHours = %d, want 8", cfg.Server.SessionTTLHours)
	}
	if cfg.Cache.Backend != "sqlite" {
		t.Fatalf("Cache.Backend = %q, want sqlite", cfg.Cache.Backend)
	}
	if cfg.OpenRouter.Referer != cfg.Site.URL {
		t.Fatalf("OpenRouter.Referer = %q, want site url %q", cfg.OpenRouter.Referer, cfg.Site.URL)
	}
}

func TestLoad_OverridesFromFile(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()
	transcripts := filepath.Join(tmpDir, "files")

	writeConfig(t, tmpDir, `
[site]
name = "Field Notes"
url = "https://example.com/"

[transcripts]
dir = "`+filepath.ToSlash(transcripts)+`"
match_threshold = 0.9

[xai]
handle = "@reporter"

[mcp]
disabled_tools = ["transcript_sync", " transcript_sync ", ""]
`)

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Site.Name != "Field Notes" {
		t.Errorf("Site.Name = %q", cfg.Site.Name)
	}
	if cfg.Site.URL != "https://example.com" {
		t.Errorf("Site.URL = %q, want trailing slash trimmed", cfg.Site.URL)
	}
	if cfg.Transcripts.MatchThreshold != 0.9 {
		t.Errorf("MatchThreshold = %v, want 0.9", cfg.Transcripts.MatchThreshold)
	}
	if cfg.Transcripts.Dir != transcripts {
		t.Errorf("Transcripts.Dir = %q, want %q", cfg.Transcripts.Dir, transcripts)
	}
	if cfg.XAI.Handle != "reporter" {
		t.Errorf("XAI.Handle = %q, want reporter", cfg.XAI.Handle)
	}
	if len(cfg.MCP.DisabledTools) != 1 || cfg.MCP.DisabledTools[0] != "transcript_sync" {
		t.Errorf("DisabledTools = %v, want [transcript_sync]", cfg.MCP.DisabledTools)
	}
	if cfg.OpenRouter.Title != "Field Notes" {
		t.Errorf("OpenRouter.Title = %q, want site name", cfg.OpenRouter.Title)
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, `[site`)

	if _, err := Load(tmpDir); err == nil {
		t.Fatalf("Load() expected error, got nil")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, `
[server]
admin_password = "from-file"
`)
	t.Setenv("ADMIN_PASSWORD", "from-env")
	t.Setenv("RATE_LIMIT_MAX", "5")
	t.Setenv("RATE_LIMIT_WINDOW_MS", "1000")
	t.Setenv("YOUTUBE_API_KEY", "yt-key")
	t.Setenv("DISPATCH_SITE_URL", "https://news.example.org")

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.AdminPassword != "from-env" {
		t.Errorf("AdminPassword = %q, want from-env", cfg.Server.AdminPassword)
	}
	if cfg.RateLimit.Max != 5 || cfg.RateLimit.WindowMS != 1000 {
		t.Errorf("RateLimit = %+v, want 1000/5", cfg.RateLimit)
	}
	if cfg.YouTube.APIKey != "yt-key" {
		t.Errorf("YouTube.APIKey = %q", cfg.YouTube.APIKey)
	}
	if cfg.Site.URL != "https://news.example.org" {
		t.Errorf("Site.URL = %q", cfg.Site.URL)
	}
}

func TestLoad_EnvBlankKeepsFileValue(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, `
[server]
admin_password = "from-file"
`)

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.AdminPassword != "from-file" {
		t.Errorf("AdminPassword = %q, want from-file", cfg.Server.AdminPassword)
	}
}

func TestLoad_EnvBadNumber(t *testing.T) {
	clearEnv(t)
	t.Setenv("RATE_LIMIT_MAX", "lots")

	if _, err := Load(t.TempDir()); err == nil {
		t.Fatal("Load() expected error for non-numeric RATE_LIMIT_MAX")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"threshold zero", func(c *Config) { c.Transcripts.MatchThreshold = 0 }, true},
		{"threshold one", func(c *Config) { c.Transcripts.MatchThreshold = 1 }, true},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, true},
		{"bad backend", func(c *Config) { c.Cache.Backend = "redis" }, true},
		{"postgrest without url", func(c *Config) { c.Cache.Backend = "postgrest" }, true},
		{"postgrest with url", func(c *Config) {
			c.Cache.Backend = "postgrest"
			c.Cache.PostgRESTURL = "https://db.example.com"
		}, false},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, true},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, true},
		{"zero rate max", func(c *Config) { c.RateLimit.Max = 0 }, true},
		{"zero chunk seconds", func(c *Config) { c.OpenAI.ChunkSeconds = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBaseDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DISPATCH_HOME", dir)

	got, err := BaseDir()
	if err != nil {
		t.Fatalf("BaseDir() error = %v", err)
	}
	if got != dir {
		t.Errorf("BaseDir() = %q, want %q", got, dir)
	}

	home := t.TempDir()
	t.Setenv("DISPATCH_HOME", "")
	t.Setenv("HOME", home)
	got, err = BaseDir()
	if err != nil {
		t.Fatalf("BaseDir() error = %v", err)
	}
	if got != filepath.Join(home, ".dispatch") {
		t.Errorf("BaseDir() = %q, want %q", got, filepath.Join(home, ".dispatch"))
	}
}

func TestAddr(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.Bind = "0.0.0.0"
	cfg.Server.Port = 9000
	if cfg.Addr() != "0.0.0.0:9000" {
		t.Errorf("Addr() = %q", cfg.Addr())
	}
}
