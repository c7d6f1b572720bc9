package ops

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldpress/dispatch/internal/config"
	"github.com/fieldpress/dispatch/internal/content"
	"github.com/fieldpress/dispatch/internal/db"
	"github.com/fieldpress/dispatch/internal/errors"
	"github.com/fieldpress/dispatch/internal/transcript"
	"github.com/fieldpress/dispatch/internal/xai"
)

func TestRefreshVideos(t *testing.T) {
	ctx := context.Background()
	database := setupTestDB(t)
	cfg := config.DefaultConfig()
	cfg.YouTube.RefreshLimit = 3
	svc := testServices(database)

	seedVideo(t, database, "a", "Old title", 1)
	require.NoError(t, db.SetVideoSummary(database, "a", "kept"))

	source := &fakeVideoSource{videos: []content.Video{
		{VideoID: "a", Title: "New title", PublishedAt: 2},
		{VideoID: "b", Title: "Second", PublishedAt: 3},
	}}
	svc.YouTube = source

	out, err := RefreshVideos(ctx, database, cfg, svc)
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, 2, out.Count)
	assert.Equal(t, "Refreshed 2 videos", out.Message)
	assert.Equal(t, 3, source.limit)

	v, err := db.GetVideo(database, "a")
	require.NoError(t, err)
	assert.Equal(t, "New title", v.Title)
	require.NotNil(t, v.Summary)
	assert.Equal(t, "kept", *v.Summary)
}

func TestRefreshVideos_EmptyAndUnconfigured(t *testing.T) {
	database := setupTestDB(t)
	svc := testServices(database)

	_, err := RefreshVideos(context.Background(), database, nil, svc)
	assert.True(t, errors.Is(err, errors.ErrNotConfigured))

	svc.YouTube = &fakeVideoSource{}
	out, err := RefreshVideos(context.Background(), database, nil, svc)
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, "No videos returned from YouTube API", out.Message)

	svc.YouTube = &fakeVideoSource{err: errors.NewUpstream("youtube", nil)}
	_, err = RefreshVideos(context.Background(), database, nil, svc)
	assert.True(t, errors.Is(err, errors.ErrUpstream))
}

func TestRefreshPostsAndMentions(t *testing.T) {
	ctx := context.Background()
	database := setupTestDB(t)
	svc := testServices(database)
	x := &fakeXSearch{
		posts: []content.Post{
			{PostID: "1", Content: "hello", AuthorUsername: "desk", PostedAt: 10},
			{PostID: "", Content: "dropped"},
		},
	}
	svc.XSearch = x

	out, err := RefreshPosts(ctx, database, svc)
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, "Refreshed 1 posts", out.Message)

	posts, err := db.ListPosts(database, content.KindPosts, 10)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "hello", posts[0].Content)

	mentions, err := RefreshMentions(ctx, database, svc)
	require.NoError(t, err)
	assert.True(t, mentions.Success)
	assert.Equal(t, "No trending mentions found", mentions.Message)

	x.posts = nil
	empty, err := RefreshPosts(ctx, database, svc)
	require.NoError(t, err)
	assert.False(t, empty.Success)
	assert.Equal(t, "No posts returned from xAI", empty.Message)

	x.mentions = []content.Post{{PostID: "m1", Content: "about desk", AuthorUsername: "fan"}}
	mentions, err = RefreshMentions(ctx, database, svc)
	require.NoError(t, err)
	assert.Equal(t, 1, mentions.Count)

	stored, err := db.ListPosts(database, content.KindMentions, 10)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestRefreshNews(t *testing.T) {
	ctx := context.Background()
	database := setupTestDB(t)
	svc := testServices(database)
	svc.XSearch = &fakeXSearch{news: xai.NewsResult{
		Summary: "Coverage this week.",
		Articles: []xai.NewsItem{
			{Title: "Story", URL: "https://news.example/story", Source: "Example", PublishedAt: "2025-03-09"},
			{Title: "No link", Source: "Wire"},
		},
		Citations: []string{"https://news.example/story"},
	}}

	out, err := RefreshNews(ctx, database, svc)
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, 2, out.Count)

	feed, err := ListNews(database, 0)
	require.NoError(t, err)
	assert.Len(t, feed.Articles, 2)
	assert.Equal(t, "Coverage this week.", feed.Summary)
	assert.Equal(t, []string{"https://news.example/story"}, feed.Citations)
	assert.NotNil(t, feed.LastFetchedAt)

	svc.XSearch = &fakeXSearch{}
	empty, err := RefreshNews(ctx, database, svc)
	require.NoError(t, err)
	assert.False(t, empty.Success)
}

func TestSearchNews_DoesNotStore(t *testing.T) {
	database := setupTestDB(t)
	svc := testServices(database)
	svc.XSearch = &fakeXSearch{news: xai.NewsResult{Summary: "s", Articles: []xai.NewsItem{{Title: "t", Source: "s"}}}}

	out, err := SearchNews(context.Background(), svc)
	require.NoError(t, err)
	assert.Equal(t, "Found 1 news articles", out.Message)
	assert.Equal(t, []string{}, out.Citations)

	feed, err := ListNews(database, 0)
	require.NoError(t, err)
	assert.Empty(t, feed.Articles)
	assert.Nil(t, feed.LastFetchedAt)
}

func TestRefreshSummaries(t *testing.T) {
	ctx := context.Background()
	database := setupTestDB(t)
	svc := testServices(database)

	var slept []time.Duration
	svc.Sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	summarizer := &fakeSummarizer{fail: map[string]bool{"Broken": true}}
	svc.Summarizer = summarizer

	seedVideo(t, database, "a", "First", 3)
	seedVideo(t, database, "b", "Broken", 2)
	seedVideo(t, database, "c", "No transcript", 1)
	require.NoError(t, svc.Cache.Put(ctx, "a", transcript.Parse("alpha"), content.SourceFile))
	require.NoError(t, svc.Cache.Put(ctx, "b", transcript.Parse("beta"), content.SourceFile))

	out, err := RefreshSummaries(ctx, database, svc)
	require.NoError(t, err)
	assert.True(t, out.Success)
	assert.Equal(t, 1, out.Processed)
	assert.Equal(t, 1, out.Failed)
	assert.Equal(t, []string{"Broken"}, out.Errors)
	assert.Equal(t, "Generated 1 summaries, 1 failed", out.Message)
	assert.Equal(t, []string{"First", "Broken"}, summarizer.calls)
	assert.Equal(t, []time.Duration{time.Second}, slept)

	v, err := db.GetVideo(database, "a")
	require.NoError(t, err)
	require.NotNil(t, v.Summary)
	assert.Equal(t, "summary of First: [Speaker]: alpha", *v.Summary)
}

func TestRefreshSummaries_NoTranscripts(t *testing.T) {
	database := setupTestDB(t)
	svc := testServices(database)
	svc.Summarizer = &fakeSummarizer{}
	seedVideo(t, database, "a", "First", 1)

	out, err := RefreshSummaries(context.Background(), database, svc)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Processed)
	assert.Equal(t, "No videos with transcripts found", out.Message)

	_, err = RefreshSummaries(context.Background(), database, &Services{Cache: svc.Cache})
	assert.True(t, errors.Is(err, errors.ErrNotConfigured))
}

func TestSummarize(t *testing.T) {
	svc := &Services{Summarizer: &fakeSummarizer{}}

	out, err := Summarize(context.Background(), svc, SummarizeInput{Transcript: "words", VideoTitle: "T"})
	require.NoError(t, err)
	assert.Equal(t, "summary of T: words", out.Summary)

	_, err = Summarize(context.Background(), svc, SummarizeInput{})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = Summarize(context.Background(), &Services{}, SummarizeInput{Transcript: "x"})
	assert.True(t, errors.Is(err, errors.ErrNotConfigured))
}
