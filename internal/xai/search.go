package xai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fieldpress/dispatch/internal/content"
	"github.com/fieldpress/dispatch/internal/errors"
)

const newsWindow = 5 * 24 * time.Hour

const postShape = `[
  {
    "post_id": "the post id",
    "content": "the full post text",
    "author_username": "%s",
    "author_name": "%s",
    "likes_count": 0,
    "retweets_count": 0,
    "replies_count": 0,
    "posted_at": "2024-01-01T00:00:00Z"
  }
]`

// RecentPosts returns the configured account's latest posts (up to 10).
func (c *Client) RecentPosts(ctx context.Context) ([]content.Post, error) {
	prompt := fmt.Sprintf(`Search X for the 10 most recent posts from @%s.

Return the results as a JSON array with this exact structure (no other text, just the JSON):
%s

If no posts are found, return an empty array [].`,
		c.cfg.Handle, fmt.Sprintf(postShape, c.cfg.Handle, c.cfg.SubjectName))
	return c.posts(ctx, prompt)
}

// TrendingMentions returns popular posts by other accounts about the configured account.
func (c *Client) TrendingMentions(ctx context.Context) ([]content.Post, error) {
	prompt := fmt.Sprintf(`Search X for posts that are currently trending about %s (@%s).

Requirements:
- Exclude posts authored by @%s
- Only include posts with 100+ likes
- Find up to 10 of the most engaging posts mentioning the account

Return the results as a JSON array with this exact structure (no other text, just the JSON):
%s

If no trending mentions are found, return an empty array [].`,
		c.cfg.SubjectName, c.cfg.Handle, c.cfg.Handle, fmt.Sprintf(postShape, "username", "Display Name"))
	return c.posts(ctx, prompt)
}

// SearchNews asks for news coverage from the past five days.
func (c *Client) SearchNews(ctx context.Context) (NewsResult, error) {
	today := c.now().UTC()
	from := today.Add(-newsWindow)
	prompt := fmt.Sprintf(`Today's date is %s.

Search X and the web for news articles about %s (@%s) from %s to %s.

Return a single JSON object with this exact structure (no other text, just the JSON):
{
  "summary": "a short neutral summary of the coverage",
  "articles": [
    {"title": "headline", "url": "https://...", "source": "publication", "summary": "one or two sentences", "published_at": "2024-01-01T00:00:00Z"}
  ],
  "citations": ["https://..."]
}`,
		today.Format(time.DateOnly), c.cfg.SubjectName, c.cfg.Handle,
		from.Format(time.DateOnly), today.Format(time.DateOnly))

	r, err := c.search(ctx, prompt)
	if err != nil {
		return NewsResult{}, err
	}
	result, err := ParseNews(r.Text)
	if err != nil {
		return NewsResult{}, errors.NewUpstream(provider, err)
	}
	result.Citations = mergeCitations(result.Citations, r.Citations)
	return result, nil
}

func (c *Client) posts(ctx context.Context, prompt string) ([]content.Post, error) {
	r, err := c.search(ctx, prompt)
	if err != nil {
		return nil, err
	}
	parsed, err := ParsePosts(r.Text)
	if err != nil {
		return nil, errors.NewUpstream(provider, err)
	}
	fetchedAt := c.now().Unix()
	posts := make([]content.Post, 0, len(parsed))
	for _, p := range parsed {
		posts = append(posts, p.toContent(fetchedAt))
	}
	return posts, nil
}

func (p Post) toContent(fetchedAt int64) content.Post {
	out := content.Post{
		PostID:         strings.TrimSpace(string(p.PostID)),
		Content:        p.Content,
		AuthorUsername: strings.TrimPrefix(p.AuthorUsername, "@"),
		LikesCount:     int64(p.LikesCount),
		RetweetsCount:  int64(p.RetweetsCount),
		RepliesCount:   int64(p.RepliesCount),
		MediaURLs:      []string{},
		PostedAt:       ParseTime(p.PostedAt, fetchedAt),
		FetchedAt:      fetchedAt,
	}
	if name := strings.TrimSpace(p.AuthorName); name != "" {
		out.AuthorName = &name
	}
	return out
}

// Article converts a news item into a storable record.
func (n NewsItem) Article(fetchedAt int64) content.NewsArticle {
	a := content.NewsArticle{
		ArticleURL: n.Key(),
		Title:      n.Title,
		Summary:    n.Summary,
		Source:     n.Source,
		FetchedAt:  fetchedAt,
	}
	if ts := ParseTime(n.PublishedAt, 0); ts != 0 {
		a.PublishedAt = &ts
	}
	return a
}

// ParseTime reads RFC 3339 or plain dates, returning fallback when neither parses.
func ParseTime(value string, fallback int64) int64 {
	value = strings.TrimSpace(value)
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Unix()
		}
	}
	return fallback
}

func mergeCitations(lists ...[]string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, list := range lists {
		for _, c := range list {
			c = strings.TrimSpace(c)
			if c == "" || seen[c] {
				continue
			}
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}
