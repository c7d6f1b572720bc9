package ops

import (
	"testing"
	"time"

	"github.com/fieldpress/dispatch/internal/content"
	"github.com/fieldpress/dispatch/internal/db"
)

func TestListVideos_LastFetchedAt(t *testing.T) {
	database := setupTestDB(t)

	feed, err := ListVideos(database, 0)
	if err != nil {
		t.Fatalf("ListVideos failed: %v", err)
	}
	if len(feed.Videos) != 0 || feed.LastFetchedAt != nil {
		t.Fatalf("empty feed = %+v, want no videos and nil lastFetchedAt", feed)
	}

	fetched := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC).Unix()
	for i, id := range []string{"a", "b", "c"} {
		v := &content.Video{VideoID: id, Title: id, PublishedAt: int64(i), FetchedAt: fetched}
		if err := db.UpsertVideo(database, v); err != nil {
			t.Fatalf("UpsertVideo failed: %v", err)
		}
	}

	feed, err = ListVideos(database, 2)
	if err != nil {
		t.Fatalf("ListVideos failed: %v", err)
	}
	if len(feed.Videos) != 2 {
		t.Fatalf("len(Videos) = %d, want 2", len(feed.Videos))
	}
	if feed.Videos[0].VideoID != "c" {
		t.Errorf("first video = %q, want newest %q", feed.Videos[0].VideoID, "c")
	}
	if !feed.Cached {
		t.Error("Cached = false, want true")
	}
	if feed.LastFetchedAt == nil || *feed.LastFetchedAt != "2025-03-10T12:00:00Z" {
		t.Errorf("LastFetchedAt = %v, want 2025-03-10T12:00:00Z", feed.LastFetchedAt)
	}
}

func TestListPosts_KindsAndLimit(t *testing.T) {
	database := setupTestDB(t)

	for i := 0; i < 3; i++ {
		p := &content.Post{PostID: string(rune('a' + i)), Content: "post", AuthorUsername: "desk", PostedAt: int64(i)}
		if err := db.UpsertPost(database, content.KindPosts, p); err != nil {
			t.Fatalf("UpsertPost failed: %v", err)
		}
	}

	posts, err := ListPosts(database, content.KindPosts, 2)
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if len(posts.Posts) != 2 {
		t.Errorf("len(Posts) = %d, want 2", len(posts.Posts))
	}
	if posts.LastFetchedAt == nil {
		t.Error("LastFetchedAt = nil, want a timestamp")
	}

	mentions, err := ListPosts(database, content.KindMentions, 0)
	if err != nil {
		t.Fatalf("ListPosts(mentions) failed: %v", err)
	}
	if len(mentions.Posts) != 0 || mentions.LastFetchedAt != nil {
		t.Errorf("mentions feed = %+v, want empty", mentions)
	}
}

func TestListNews_BeforeFirstRefresh(t *testing.T) {
	database := setupTestDB(t)

	feed, err := ListNews(database, 0)
	if err != nil {
		t.Fatalf("ListNews failed: %v", err)
	}
	if feed.Summary != "" || len(feed.Citations) != 0 || feed.Citations == nil {
		t.Errorf("feed = %+v, want empty summary and empty non-nil citations", feed)
	}
}
