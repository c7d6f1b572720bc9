package ops

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fieldpress/dispatch/internal/content"
	"github.com/fieldpress/dispatch/internal/logging"
	"github.com/fieldpress/dispatch/internal/stt"
	"github.com/fieldpress/dispatch/internal/transcript"
	"github.com/fieldpress/dispatch/internal/xai"
)

// List limits
const (
	DefaultArticleLimit  = 10
	DefaultFeaturedLimit = 5
	DefaultFeedLimit     = 20
	DefaultVideoLimit    = 20
	MaxListLimit         = 100
)

// summaryPause separates consecutive summary requests during a bulk refresh.
const summaryPause = time.Second

// TranscriptCache stores resolved transcripts by video id.
// Get returns a NOT_FOUND DispatchError on a miss.
type TranscriptCache interface {
	Get(ctx context.Context, videoID string) (*content.CachedTranscript, error)
	Put(ctx context.Context, videoID string, res transcript.Resolved, source content.TranscriptSource) error
	Delete(ctx context.Context, videoID string) error
}

// VideoSource lists the channel's most recent regular uploads.
type VideoSource interface {
	RecentVideos(ctx context.Context, limit int) ([]content.Video, error)
}

// Summarizer turns a transcript into a short summary.
type Summarizer interface {
	Summarize(ctx context.Context, title, transcript string) (string, error)
}

// XSearcher queries X for posts, mentions and news coverage.
type XSearcher interface {
	RecentPosts(ctx context.Context) ([]content.Post, error)
	TrendingMentions(ctx context.Context) ([]content.Post, error)
	SearchNews(ctx context.Context) (xai.NewsResult, error)
}

// Services bundles the collaborators used by transcript and refresh operations.
// Nil provider fields mean the feature is not configured.
type Services struct {
	Cache       TranscriptCache
	Resolver    *transcript.Resolver
	Transcriber stt.Transcriber
	YouTube     VideoSource
	Summarizer  Summarizer
	XSearch     XSearcher
	Log         logrus.FieldLogger

	// Sleep pauses between rate-limited upstream calls. Nil uses a context-aware time.Sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

func (s *Services) logger() logrus.FieldLogger {
	if s.Log == nil {
		return logging.Discard()
	}
	return s.Log
}

func (s *Services) resolver() *transcript.Resolver {
	if s.Resolver == nil {
		return transcript.NewResolver(transcript.DefaultThreshold)
	}
	return s.Resolver
}

func (s *Services) sleep(ctx context.Context, d time.Duration) error {
	if s.Sleep != nil {
		return s.Sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// clampLimit applies a default and the MaxListLimit bound.
func clampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

func unixRFC3339(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(time.RFC3339)
}
