package main

import (
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/fieldpress/dispatch/internal/config"
	"github.com/fieldpress/dispatch/internal/db"
	"github.com/fieldpress/dispatch/internal/llm"
	"github.com/fieldpress/dispatch/internal/ops"
	"github.com/fieldpress/dispatch/internal/remote"
	"github.com/fieldpress/dispatch/internal/stt"
	"github.com/fieldpress/dispatch/internal/transcript"
	"github.com/fieldpress/dispatch/internal/xai"
	"github.com/fieldpress/dispatch/internal/youtube"
)

// buildServices wires the transcript cache and upstream providers from cfg.
// Providers without an API key are left nil and report NOT_CONFIGURED when used.
func buildServices(database *sql.DB, cfg *config.Config, log logrus.FieldLogger) (*ops.Services, error) {
	svc := &ops.Services{
		Resolver: transcript.NewResolver(cfg.Transcripts.MatchThreshold),
		Log:      log,
	}

	switch cfg.Cache.Backend {
	case "postgrest":
		cache, err := remote.NewTranscriptCache(cfg.Cache.PostgRESTURL, cfg.Cache.PostgRESTKey, cfg.Cache.Table)
		if err != nil {
			return nil, fmt.Errorf("transcript cache: %w", err)
		}
		svc.Cache = cache
	default:
		svc.Cache = db.NewTranscriptCache(database)
	}

	if cfg.YouTube.APIKey != "" {
		svc.YouTube = youtube.NewClient(youtube.Config{
			APIKey:        cfg.YouTube.APIKey,
			BaseURL:       cfg.YouTube.BaseURL,
			ChannelHandle: cfg.YouTube.ChannelHandle,
		})
	}

	if cfg.OpenRouter.APIKey != "" {
		svc.Summarizer = llm.NewClient(llm.Config{
			APIKey:         cfg.OpenRouter.APIKey,
			BaseURL:        cfg.OpenRouter.BaseURL,
			Model:          cfg.OpenRouter.Model,
			Referer:        cfg.OpenRouter.Referer,
			Title:          cfg.OpenRouter.Title,
			TimeoutSeconds: cfg.OpenRouter.TimeoutSeconds,
			MaxTokens:      cfg.OpenRouter.MaxTokens,
		})
	}

	if cfg.XAI.APIKey != "" {
		svc.XSearch = xai.NewClient(xai.Config{
			APIKey:         cfg.XAI.APIKey,
			BaseURL:        cfg.XAI.BaseURL,
			Model:          cfg.XAI.Model,
			Handle:         cfg.XAI.Handle,
			SubjectName:    cfg.XAI.SubjectName,
			TimeoutSeconds: cfg.XAI.TimeoutSeconds,
		})
	}

	if cfg.OpenAI.APIKey != "" {
		svc.Transcriber = stt.NewOpenAI(stt.Config{
			APIKey:         cfg.OpenAI.APIKey,
			BaseURL:        cfg.OpenAI.BaseURL,
			DiarizeModel:   cfg.OpenAI.DiarizeModel,
			ChunkModel:     cfg.OpenAI.ChunkModel,
			MaxUploadBytes: cfg.OpenAI.MaxUploadBytes,
			ChunkSeconds:   cfg.OpenAI.ChunkSeconds,
			TimeoutSeconds: cfg.OpenAI.TimeoutSeconds,
			YtDlpPath:      cfg.OpenAI.YtDlpPath,
			FFmpegPath:     cfg.OpenAI.FFmpegPath,
			FFprobePath:    cfg.OpenAI.FFprobePath,
		}, log)
	}

	return svc, nil
}
