package ops

import (
	"database/sql"

	"github.com/fieldpress/dispatch/internal/content"
	"github.com/fieldpress/dispatch/internal/db"
	"github.com/fieldpress/dispatch/internal/errors"
)

// Feeds are served from the cache only; they change when an admin refreshes them.

// VideoFeed contains the result of the ListVideos operation.
type VideoFeed struct {
	Videos        []content.Video `json:"videos"`
	Cached        bool            `json:"cached"`
	LastFetchedAt *string         `json:"lastFetchedAt"`
}

// ListVideos returns cached videos, most recently published first. Limit 0 means all.
func ListVideos(database *sql.DB, limit int) (*VideoFeed, error) {
	if limit < 0 {
		limit = 0
	}
	videos, err := db.ListVideos(database, limit)
	if err != nil {
		return nil, err
	}
	last, err := lastFetched(database, db.TableVideos)
	if err != nil {
		return nil, err
	}
	return &VideoFeed{Videos: videos, Cached: true, LastFetchedAt: last}, nil
}

// PostFeed contains the result of the ListPosts operation.
type PostFeed struct {
	Posts         []content.Post `json:"posts"`
	Cached        bool           `json:"cached"`
	LastFetchedAt *string        `json:"lastFetchedAt"`
}

// ListPosts returns cached X posts or mentions, newest first.
func ListPosts(database *sql.DB, kind content.PostKind, limit int) (*PostFeed, error) {
	table := db.TablePosts
	if kind == content.KindMentions {
		table = db.TableMentions
	}

	posts, err := db.ListPosts(database, kind, clampLimit(limit, DefaultFeedLimit))
	if err != nil {
		return nil, err
	}
	last, err := lastFetched(database, table)
	if err != nil {
		return nil, err
	}
	return &PostFeed{Posts: posts, Cached: true, LastFetchedAt: last}, nil
}

// NewsFeed contains the result of the ListNews operation.
type NewsFeed struct {
	Articles      []content.NewsArticle `json:"articles"`
	Summary       string                `json:"summary"`
	Citations     []string              `json:"citations"`
	Cached        bool                  `json:"cached"`
	LastFetchedAt *string               `json:"lastFetchedAt"`
}

// ListNews returns cached news articles with the latest digest.
// Before the first refresh the summary is empty.
func ListNews(database *sql.DB, limit int) (*NewsFeed, error) {
	articles, err := db.ListNewsArticles(database, clampLimit(limit, DefaultFeedLimit))
	if err != nil {
		return nil, err
	}

	feed := &NewsFeed{Articles: articles, Citations: []string{}, Cached: true}

	digest, err := db.GetNewsDigest(database)
	switch {
	case err == nil:
		feed.Summary = digest.Summary
		if digest.Citations != nil {
			feed.Citations = digest.Citations
		}
	case errors.Is(err, errors.ErrNotFound):
	default:
		return nil, err
	}

	if feed.LastFetchedAt, err = lastFetched(database, db.TableNews); err != nil {
		return nil, err
	}
	return feed, nil
}

func lastFetched(database *sql.DB, table string) (*string, error) {
	ts, err := db.LastFetchedAt(database, table)
	if err != nil || ts == nil {
		return nil, err
	}
	s := unixRFC3339(*ts)
	return &s, nil
}
