// Package youtube reads a channel's recent uploads from the YouTube Data API v3.
package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fieldpress/dispatch/internal/content"
	"github.com/fieldpress/dispatch/internal/errors"
)

const (
	provider           = "youtube"
	defaultBaseURL     = "https://www.googleapis.com/youtube/v3"
	defaultHTTPTimeout = 30 * time.Second
	maxSearchResults   = 50
)

// Config captures the settings needed to query one channel.
type Config struct {
	APIKey        string
	BaseURL       string
	ChannelHandle string // without "@"
}

// Client wraps the three Data API endpoints used for a refresh.
type Client struct {
	cfg        Config
	httpClient *http.Client
	now        func() time.Time
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithClock overrides the time source used for FetchedAt.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient constructs a Data API client.
func NewClient(cfg Config, opts ...Option) *Client {
	c := &Client{
		cfg: Config{
			APIKey:        strings.TrimSpace(cfg.APIKey),
			BaseURL:       strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			ChannelHandle: strings.TrimPrefix(strings.TrimSpace(cfg.ChannelHandle), "@"),
		},
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		now:        time.Now,
	}
	if c.cfg.BaseURL == "" {
		c.cfg.BaseURL = defaultBaseURL
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type thumbnail struct {
	URL string `json:"url"`
}

type snippet struct {
	Title                string `json:"title"`
	Description          string `json:"description"`
	PublishedAt          string `json:"publishedAt"`
	LiveBroadcastContent string `json:"liveBroadcastContent"`
	Thumbnails           struct {
		High    *thumbnail `json:"high"`
		Medium  *thumbnail `json:"medium"`
		Default *thumbnail `json:"default"`
	} `json:"thumbnails"`
}

func (s snippet) isLive() bool {
	return s.LiveBroadcastContent == "live" || s.LiveBroadcastContent == "upcoming"
}

func (s snippet) thumbnailURL() string {
	for _, t := range []*thumbnail{s.Thumbnails.High, s.Thumbnails.Medium, s.Thumbnails.Default} {
		if t != nil && t.URL != "" {
			return t.URL
		}
	}
	return ""
}

type channelsResponse struct {
	Items []struct {
		ID string `json:"id"`
	} `json:"items"`
}

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet snippet `json:"snippet"`
	} `json:"items"`
}

type videoItem struct {
	ID         string  `json:"id"`
	Snippet    snippet `json:"snippet"`
	Statistics struct {
		ViewCount string `json:"viewCount"`
		LikeCount string `json:"likeCount"`
	} `json:"statistics"`
	ContentDetails struct {
		Duration string `json:"duration"`
	} `json:"contentDetails"`
	LiveStreamingDetails json.RawMessage `json:"liveStreamingDetails"`
}

type videosResponse struct {
	Items []videoItem `json:"items"`
}

// ChannelID resolves the configured handle to a channel id.
func (c *Client) ChannelID(ctx context.Context) (string, error) {
	if err := c.checkConfig(); err != nil {
		return "", err
	}
	params := url.Values{}
	params.Set("part", "id")
	params.Set("forHandle", "@"+c.cfg.ChannelHandle)

	var resp channelsResponse
	if err := c.get(ctx, "channels", params, &resp); err != nil {
		return "", err
	}
	if len(resp.Items) == 0 || resp.Items[0].ID == "" {
		return "", errors.NewNotFound("channel", "@"+c.cfg.ChannelHandle)
	}
	return resp.Items[0].ID, nil
}

// RecentVideos returns up to limit of the channel's newest regular uploads.
// Live and upcoming broadcasts, livestream replays and Shorts are skipped, so
// the search over-fetches before filtering.
func (c *Client) RecentVideos(ctx context.Context, limit int) ([]content.Video, error) {
	if limit <= 0 {
		return []content.Video{}, nil
	}
	channelID, err := c.ChannelID(ctx)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("channelId", channelID)
	params.Set("order", "date")
	params.Set("type", "video")
	params.Set("maxResults", strconv.Itoa(searchSize(limit)))

	var search searchResponse
	if err := c.get(ctx, "search", params, &search); err != nil {
		return nil, err
	}

	var ids []string
	for _, item := range search.Items {
		if item.Snippet.isLive() || item.ID.VideoID == "" {
			continue
		}
		ids = append(ids, item.ID.VideoID)
	}
	if len(ids) == 0 {
		return []content.Video{}, nil
	}

	params = url.Values{}
	params.Set("part", "snippet,statistics,contentDetails,liveStreamingDetails")
	params.Set("id", strings.Join(ids, ","))

	var details videosResponse
	if err := c.get(ctx, "videos", params, &details); err != nil {
		return nil, err
	}

	fetchedAt := c.now().Unix()
	videos := make([]content.Video, 0, len(details.Items))
	for _, item := range details.Items {
		if !keep(item) {
			continue
		}
		videos = append(videos, toVideo(item, fetchedAt))
	}
	sort.SliceStable(videos, func(i, j int) bool {
		return videos[i].PublishedAt > videos[j].PublishedAt
	})
	if len(videos) > limit {
		videos = videos[:limit]
	}
	return videos, nil
}

func searchSize(limit int) int {
	n := limit * 10
	if n < limit {
		n = limit
	}
	if n > maxSearchResults {
		n = maxSearchResults
	}
	return n
}

func keep(item videoItem) bool {
	if IsShort(DurationSeconds(item.ContentDetails.Duration)) {
		return false
	}
	if item.Snippet.isLive() {
		return false
	}
	raw := strings.TrimSpace(string(item.LiveStreamingDetails))
	return raw == "" || raw == "null"
}

func toVideo(item videoItem, fetchedAt int64) content.Video {
	var published int64
	if t, err := time.Parse(time.RFC3339, item.Snippet.PublishedAt); err == nil {
		published = t.Unix()
	}
	return content.Video{
		VideoID:      item.ID,
		Title:        item.Snippet.Title,
		Description:  item.Snippet.Description,
		ThumbnailURL: item.Snippet.thumbnailURL(),
		PublishedAt:  published,
		ViewCount:    parseCount(item.Statistics.ViewCount),
		LikeCount:    parseCount(item.Statistics.LikeCount),
		Duration:     FormatDuration(item.ContentDetails.Duration),
		FetchedAt:    fetchedAt,
	}
}

func parseCount(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func (c *Client) checkConfig() error {
	if c.cfg.APIKey == "" {
		return errors.NewNotConfigured("youtube.api_key")
	}
	if c.cfg.ChannelHandle == "" {
		return errors.NewNotConfigured("youtube.channel_handle")
	}
	return nil
}

func (c *Client) get(ctx context.Context, resource string, params url.Values, out any) error {
	params.Set("key", c.cfg.APIKey)
	endpoint := c.cfg.BaseURL + "/" + resource + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return errors.NewInternal(err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return errors.NewCancelled(ctx.Err())
		}
		return errors.NewUpstream(provider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.NewUpstream(provider, err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return errors.NewUpstream(provider, fmt.Errorf("%s: http %d: %s", resource, resp.StatusCode, strings.TrimSpace(string(body))))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.NewUpstream(provider, fmt.Errorf("%s: decode response: %w", resource, err))
	}
	return nil
}
