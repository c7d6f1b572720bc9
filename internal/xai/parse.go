package xai

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

var (
	arrayPattern  = regexp.MustCompile(`\[[\s\S]*\]`)
	objectPattern = regexp.MustCompile(`\{[\s\S]*\}`)
)

// flexString accepts JSON strings and numbers; models emit ids both ways.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*f = flexString(n.String())
	return nil
}

// flexInt accepts numbers, numeric strings and null.
type flexInt int64

func (f *flexInt) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if raw == "" || raw == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil {
		return fmt.Errorf("expected count, got %s", data)
	}
	*f = flexInt(n)
	return nil
}

// Post is one X post as reported by the model.
type Post struct {
	PostID         flexString `json:"post_id"`
	Content        string     `json:"content"`
	AuthorUsername string     `json:"author_username"`
	AuthorName     string     `json:"author_name"`
	LikesCount     flexInt    `json:"likes_count"`
	RetweetsCount  flexInt    `json:"retweets_count"`
	RepliesCount   flexInt    `json:"replies_count"`
	PostedAt       string     `json:"posted_at"`
}

// NewsItem is one article found by a news search.
type NewsItem struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Source      string `json:"source"`
	Summary     string `json:"summary"`
	PublishedAt string `json:"published_at"`
}

// Key is the item's unique storage key: its URL, or a generated one built
// from source and title when the model gave none.
func (n NewsItem) Key() string {
	if strings.TrimSpace(n.URL) != "" {
		return n.URL
	}
	title := strings.ReplaceAll(url.QueryEscape(n.Title), "+", "%20")
	return "generated://" + n.Source + "/" + title
}

// NewsResult is the parsed reply of a news search.
type NewsResult struct {
	Summary   string     `json:"summary"`
	Articles  []NewsItem `json:"articles"`
	Citations []string   `json:"citations"`
}

// ParsePosts decodes the first JSON array in text. Text with no array yields
// no posts; a malformed array is an error.
func ParsePosts(text string) ([]Post, error) {
	match := arrayPattern.FindString(text)
	if match == "" {
		return []Post{}, nil
	}
	var posts []Post
	if err := json.Unmarshal([]byte(match), &posts); err != nil {
		return nil, fmt.Errorf("parse posts: %w", err)
	}
	out := posts[:0]
	for _, p := range posts {
		if strings.TrimSpace(string(p.PostID)) == "" {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// ParseNews decodes the first JSON object in text. When the reply carries no
// object, the whole text becomes the summary.
func ParseNews(text string) (NewsResult, error) {
	result := NewsResult{Articles: []NewsItem{}, Citations: []string{}}
	match := objectPattern.FindString(text)
	if match == "" {
		result.Summary = strings.TrimSpace(text)
		return result, nil
	}
	if err := json.Unmarshal([]byte(match), &result); err != nil {
		return NewsResult{}, fmt.Errorf("parse news: %w", err)
	}
	if result.Articles == nil {
		result.Articles = []NewsItem{}
	}
	if result.Citations == nil {
		result.Citations = []string{}
	}
	return result, nil
}
