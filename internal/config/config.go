package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// FileName is the config file looked up inside the base directory.
const FileName = "config.toml"

// Site describes the public site.
type Site struct {
	Name   string `toml:"name"`
	URL    string `toml:"url"`
	Author string `toml:"author"` // default author for new articles
}

// Server contains HTTP listener and session settings.
type Server struct {
	Bind            string `toml:"bind"`
	Port            int    `toml:"port"`
	AdminPassword   string `toml:"admin_password"`
	SessionTTLHours int    `toml:"session_ttl_hours"`
	CookieSecure    bool   `toml:"cookie_secure"`
}

// RateLimit configures the fixed-window limiter on admin and article-write routes.
type RateLimit struct {
	WindowMS int `toml:"window_ms"`
	Max      int `toml:"max"`
}

// Transcripts configures local transcript files and title matching.
type Transcripts struct {
	// Dir holds hand-maintained "<video title>.txt" files in the [Speaker] convention.
	Dir string `toml:"dir"`

	// Extension is stripped from filenames before matching.
	Extension string `toml:"extension"`

	// MatchThreshold is the similarity a fuzzy match must strictly exceed.
	MatchThreshold float64 `toml:"match_threshold"`
}

// Database contains SQLite pool limits. 0 means use sql.DB default.
type Database struct {
	MaxOpenConns int `toml:"max_open_conns"`
	MaxIdleConns int `toml:"max_idle_conns"`
}

// Cache selects where resolved transcripts are cached.
type Cache struct {
	// Backend is "sqlite" (default) or "postgrest".
	Backend      string `toml:"backend"`
	PostgRESTURL string `toml:"postgrest_url"`
	PostgRESTKey string `toml:"postgrest_key"`
	Table        string `toml:"table"`
}

// YouTube contains YouTube Data API settings.
type YouTube struct {
	APIKey        string `toml:"api_key"`
	BaseURL       string `toml:"base_url"`
	ChannelHandle string `toml:"channel_handle"`
	RefreshLimit  int    `toml:"refresh_limit"`
}

// OpenRouter contains chat-completions settings used for video summaries.
type OpenRouter struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxTokens      int    `toml:"max_tokens"`
}

// XAI contains settings for X search through the xAI responses API.
type XAI struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Handle         string `toml:"handle"`       // X account whose posts are cached, without "@"
	SubjectName    string `toml:"subject_name"` // display name used in search prompts
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// OpenAI contains speech-to-text fallback settings.
type OpenAI struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	DiarizeModel   string `toml:"diarize_model"`
	ChunkModel     string `toml:"chunk_model"`
	MaxUploadBytes int64  `toml:"max_upload_bytes"`
	ChunkSeconds   int    `toml:"chunk_seconds"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	YtDlpPath      string `toml:"ytdlp_path"`
	FFmpegPath     string `toml:"ffmpeg_path"`
	FFprobePath    string `toml:"ffprobe_path"`
}

// Logging contains log output settings.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "text"
}

// MCP contains MCP server settings.
type MCP struct {
	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `toml:"disabled_tools"`
}

// Config holds application configuration.
//
// Sections:
//   - Site: public name, url and default author
//   - Server: listener, admin password and session cookie
//   - RateLimit: admin/article-write limiter
//   - Transcripts: local transcript directory and matching threshold
//   - Database, Cache: SQLite pool and transcript cache backend
//   - YouTube, OpenRouter, XAI, OpenAI: upstream providers
//   - Logging, MCP
type Config struct {
	Site        Site        `toml:"site"`
	Server      Server      `toml:"server"`
	RateLimit   RateLimit   `toml:"rate_limit"`
	Transcripts Transcripts `toml:"transcripts"`
	Database    Database    `toml:"database"`
	Cache       Cache       `toml:"cache"`
	YouTube     YouTube     `toml:"youtube"`
	OpenRouter  OpenRouter  `toml:"openrouter"`
	XAI         XAI         `toml:"xai"`
	OpenAI      OpenAI      `toml:"openai"`
	Logging     Logging     `toml:"logging"`
	MCP         MCP         `toml:"mcp"`
}

// BaseDir returns $DISPATCH_HOME, or ~/.dispatch when unset.
func BaseDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv("DISPATCH_HOME")); dir != "" {
		return expandPath(dir)
	}
	return expandPath("~/.dispatch")
}

// Load loads configuration from baseDir/config.toml on top of DefaultConfig,
// then applies environment overrides and validates the result.
// A missing file is not an error.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.dispatch.
func Load(baseDir string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.Transcripts.Dir = filepath.Join(baseDir, "transcripts")

	if err := decodeFile(filepath.Join(baseDir, FileName), cfg); err != nil {
		return nil, err
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := toml.NewDecoder(file)
	if err := decoder.Decode(cfg); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func (c *Config) normalize() error {
	var err error
	if c.Transcripts.Dir, err = expandPath(c.Transcripts.Dir); err != nil {
		return fmt.Errorf("transcripts.dir: %w", err)
	}
	c.Site.URL = strings.TrimRight(strings.TrimSpace(c.Site.URL), "/")
	c.Cache.Backend = strings.ToLower(strings.TrimSpace(c.Cache.Backend))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.XAI.Handle = strings.TrimPrefix(strings.TrimSpace(c.XAI.Handle), "@")
	c.MCP.DisabledTools = dedupe(c.MCP.DisabledTools)
	if c.OpenRouter.Referer == "" {
		c.OpenRouter.Referer = c.Site.URL
	}
	if c.OpenRouter.Title == "" {
		c.OpenRouter.Title = c.Site.Name
	}
	return nil
}

// Addr returns the host:port the web server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// dedupe trims whitespace and removes empty and duplicate entries.
func dedupe(values []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(values))
	for _, s := range values {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules (~ and relative paths) for the CLI.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
