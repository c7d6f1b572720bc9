package config

const (
	defaultSiteName             = "Dispatch"
	defaultSiteURL              = "http://localhost:8080"
	defaultAuthor               = "Staff"
	defaultBind                 = "127.0.0.1"
	defaultPort                 = 8080
	defaultSessionTTLHours      = 8
	defaultRateLimitWindowMS    = 60000
	defaultRateLimitMax         = 30
	defaultTranscriptExtension  = ".txt"
	defaultMatchThreshold       = 0.85
	defaultCacheBackend         = "sqlite"
	defaultCacheTable           = "youtube_transcripts"
	defaultYouTubeBaseURL       = "https://www.googleapis.com/youtube/v3"
	defaultYouTubeRefreshLimit  = 5
	defaultOpenRouterBaseURL    = "https://openrouter.ai/api/v1/chat/completions"
	defaultOpenRouterModel      = "google/gemini-3-flash-preview"
	defaultOpenRouterTimeout    = 120
	defaultOpenRouterMaxTokens  = 4000
	defaultXAIBaseURL           = "https://api.x.ai/v1"
	defaultXAIModel             = "grok-4-1-fast"
	defaultXAITimeout           = 120
	defaultOpenAIBaseURL        = "https://api.openai.com/v1"
	defaultOpenAIDiarizeModel   = "gpt-4o-transcribe-diarize"
	defaultOpenAIChunkModel     = "gpt-4o-transcribe"
	defaultOpenAIMaxUploadBytes = 24 * 1024 * 1024
	defaultOpenAIChunkSeconds   = 600
	defaultOpenAITimeout        = 300
	defaultYtDlpPath            = "yt-dlp"
	defaultFFmpegPath           = "ffmpeg"
	defaultFFprobePath          = "ffprobe"
	defaultLogLevel             = "info"
	defaultLogFormat            = "json"
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Site: Site{
			Name:   defaultSiteName,
			URL:    defaultSiteURL,
			Author: defaultAuthor,
		},
		Server: Server{
			Bind:            defaultBind,
			Port:            defaultPort,
			SessionTTLHours: defaultSessionTTLHours,
			CookieSecure:    true,
		},
		RateLimit: RateLimit{
			WindowMS: defaultRateLimitWindowMS,
			Max:      defaultRateLimitMax,
		},
		Transcripts: Transcripts{
			Extension:      defaultTranscriptExtension,
			MatchThreshold: defaultMatchThreshold,
		},
		Cache: Cache{
			Backend: defaultCacheBackend,
			Table:   defaultCacheTable,
		},
		YouTube: YouTube{
			BaseURL:      defaultYouTubeBaseURL,
			RefreshLimit: defaultYouTubeRefreshLimit,
		},
		OpenRouter: OpenRouter{
			BaseURL:        defaultOpenRouterBaseURL,
			Model:          defaultOpenRouterModel,
			TimeoutSeconds: defaultOpenRouterTimeout,
			MaxTokens:      defaultOpenRouterMaxTokens,
		},
		XAI: XAI{
			BaseURL:        defaultXAIBaseURL,
			Model:          defaultXAIModel,
			TimeoutSeconds: defaultXAITimeout,
		},
		OpenAI: OpenAI{
			BaseURL:        defaultOpenAIBaseURL,
			DiarizeModel:   defaultOpenAIDiarizeModel,
			ChunkModel:     defaultOpenAIChunkModel,
			MaxUploadBytes: defaultOpenAIMaxUploadBytes,
			ChunkSeconds:   defaultOpenAIChunkSeconds,
			TimeoutSeconds: defaultOpenAITimeout,
			YtDlpPath:      defaultYtDlpPath,
			FFmpegPath:     defaultFFmpegPath,
			FFprobePath:    defaultFFprobePath,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
