package ops

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fieldpress/dispatch/internal/config"
	"github.com/fieldpress/dispatch/internal/content"
	"github.com/fieldpress/dispatch/internal/db"
	"github.com/fieldpress/dispatch/internal/stt"
	"github.com/fieldpress/dispatch/internal/transcript"
	"github.com/fieldpress/dispatch/internal/xai"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.Init(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

// testConfig returns defaults with an empty transcripts dir under t.TempDir().
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Transcripts.Dir = filepath.Join(t.TempDir(), "transcripts")
	require.NoError(t, os.MkdirAll(cfg.Transcripts.Dir, 0700))
	return cfg
}

func writeTranscript(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0600))
}

func seedVideo(t *testing.T, database *sql.DB, id, title string, publishedAt int64) {
	t.Helper()
	require.NoError(t, db.UpsertVideo(database, &content.Video{
		VideoID:     id,
		Title:       title,
		PublishedAt: publishedAt,
		Duration:    "PT10M",
	}))
}

func testServices(database *sql.DB) *Services {
	return &Services{
		Cache:    db.NewTranscriptCache(database),
		Resolver: transcript.NewResolver(transcript.DefaultThreshold),
		Sleep:    func(context.Context, time.Duration) error { return nil },
	}
}

type fakeTranscriber struct {
	mu     sync.Mutex
	calls  []string
	result stt.Result
	err    error
}

func (f *fakeTranscriber) Transcribe(_ context.Context, videoID string) (stt.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, videoID)
	return f.result, f.err
}

type fakeVideoSource struct {
	videos []content.Video
	err    error
	limit  int
}

func (f *fakeVideoSource) RecentVideos(_ context.Context, limit int) ([]content.Video, error) {
	f.limit = limit
	return f.videos, f.err
}

type fakeSummarizer struct {
	calls []string
	fail  map[string]bool
}

func (f *fakeSummarizer) Summarize(_ context.Context, title, text string) (string, error) {
	f.calls = append(f.calls, title)
	if f.fail[title] {
		return "", fmt.Errorf("upstream down")
	}
	return "summary of " + title + ": " + text, nil
}

type fakeXSearch struct {
	posts    []content.Post
	mentions []content.Post
	news     xai.NewsResult
	err      error
}

func (f *fakeXSearch) RecentPosts(context.Context) ([]content.Post, error) {
	return f.posts, f.err
}

func (f *fakeXSearch) TrendingMentions(context.Context) ([]content.Post, error) {
	return f.mentions, f.err
}

func (f *fakeXSearch) SearchNews(context.Context) (xai.NewsResult, error) {
	return f.news, f.err
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		limit, def, want int
	}{
		{0, 10, 10},
		{-3, 5, 5},
		{7, 10, 7},
		{MaxListLimit + 1, 10, MaxListLimit},
	}
	for _, tc := range tests {
		if got := clampLimit(tc.limit, tc.def); got != tc.want {
			t.Errorf("clampLimit(%d, %d) = %d, want %d", tc.limit, tc.def, got, tc.want)
		}
	}
}

func TestServicesSleep_Cancelled(t *testing.T) {
	svc := &Services{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := svc.sleep(ctx, time.Hour); err == nil {
		t.Fatal("expected cancelled sleep to return an error")
	}
}
