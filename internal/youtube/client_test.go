package youtube

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldpress/dispatch/internal/errors"
)

const detailsJSON = `{"items":[
 {"id":"old","snippet":{"title":"Older Report","description":"d1","publishedAt":"2025-01-01T00:00:00Z","liveBroadcastContent":"none",
   "thumbnails":{"medium":{"url":"https://img/old-m.jpg"},"default":{"url":"https://img/old-d.jpg"}}},
  "statistics":{"viewCount":"100","likeCount":"7"},"contentDetails":{"duration":"PT12M3S"}},
 {"id":"new","snippet":{"title":"Newest Report","description":"d2","publishedAt":"2025-02-01T00:00:00Z","liveBroadcastContent":"none",
   "thumbnails":{"high":{"url":"https://img/new-h.jpg"}}},
  "statistics":{"viewCount":"2500"},"contentDetails":{"duration":"PT1H2M3S"}},
 {"id":"short","snippet":{"title":"A Short","publishedAt":"2025-03-01T00:00:00Z","thumbnails":{}},
  "statistics":{},"contentDetails":{"duration":"PT45S"}},
 {"id":"replay","snippet":{"title":"Stream Replay","publishedAt":"2025-03-02T00:00:00Z","thumbnails":{}},
  "statistics":{},"contentDetails":{"duration":"PT3H"},"liveStreamingDetails":{"actualStartTime":"2025-03-02T00:00:00Z"}}
]}`

type fakeAPI struct {
	requests []*http.Request
	failOn   string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.requests = append(f.requests, r)
	resource := strings.TrimPrefix(r.URL.Path, "/")
	if resource == f.failOn {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"message":"quotaExceeded"}}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	switch resource {
	case "channels":
		_, _ = w.Write([]byte(`{"items":[{"id":"UC123"}]}`))
	case "search":
		_, _ = w.Write([]byte(`{"items":[
			{"id":{"videoId":"old"},"snippet":{"liveBroadcastContent":"none"}},
			{"id":{"videoId":"live"},"snippet":{"liveBroadcastContent":"live"}},
			{"id":{"videoId":"new"},"snippet":{"liveBroadcastContent":"none"}},
			{"id":{"videoId":"short"},"snippet":{}},
			{"id":{"videoId":"replay"},"snippet":{}}
		]}`))
	case "videos":
		_, _ = w.Write([]byte(detailsJSON))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestClient(t *testing.T, api *fakeAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	fixed := time.Unix(1700000000, 0)
	return NewClient(Config{APIKey: "k", BaseURL: srv.URL, ChannelHandle: "@reporter"},
		WithHTTPClient(srv.Client()),
		WithClock(func() time.Time { return fixed }),
	)
}

func TestRecentVideos_FiltersAndSorts(t *testing.T) {
	api := &fakeAPI{}
	client := newTestClient(t, api)

	videos, err := client.RecentVideos(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, videos, 2)

	assert.Equal(t, "new", videos[0].VideoID)
	assert.Equal(t, "1:02:03", videos[0].Duration)
	assert.Equal(t, "https://img/new-h.jpg", videos[0].ThumbnailURL)
	assert.Equal(t, int64(2500), videos[0].ViewCount)
	assert.Equal(t, int64(0), videos[0].LikeCount)
	assert.Equal(t, int64(1700000000), videos[0].FetchedAt)

	assert.Equal(t, "old", videos[1].VideoID)
	assert.Equal(t, "12:03", videos[1].Duration)
	assert.Equal(t, "https://img/old-m.jpg", videos[1].ThumbnailURL)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Unix(), videos[1].PublishedAt)

	require.Len(t, api.requests, 3)
	assert.Equal(t, "@reporter", api.requests[0].URL.Query().Get("forHandle"))
	assert.Equal(t, "k", api.requests[0].URL.Query().Get("key"))
	assert.Equal(t, "UC123", api.requests[1].URL.Query().Get("channelId"))
	assert.Equal(t, "50", api.requests[1].URL.Query().Get("maxResults"))
	assert.Equal(t, "old,new,short,replay", api.requests[2].URL.Query().Get("id"))
}

func TestRecentVideos_Limit(t *testing.T) {
	api := &fakeAPI{}
	client := newTestClient(t, api)

	videos, err := client.RecentVideos(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, videos, 1)
	assert.Equal(t, "new", videos[0].VideoID)
	assert.Equal(t, "10", api.requests[1].URL.Query().Get("maxResults"))
}

func TestSearchSize(t *testing.T) {
	for limit, want := range map[int]int{1: 10, 5: 50, 6: 50, 100: 50} {
		assert.Equal(t, want, searchSize(limit), fmt.Sprintf("limit %d", limit))
	}
}

func TestRecentVideos_NotConfigured(t *testing.T) {
	client := NewClient(Config{ChannelHandle: "reporter"})
	_, err := client.RecentVideos(context.Background(), 5)
	assert.True(t, errors.Is(err, errors.ErrNotConfigured))

	client = NewClient(Config{APIKey: "k"})
	_, err = client.RecentVideos(context.Background(), 5)
	assert.True(t, errors.Is(err, errors.ErrNotConfigured))
}

func TestRecentVideos_UpstreamError(t *testing.T) {
	api := &fakeAPI{failOn: "search"}
	client := newTestClient(t, api)

	_, err := client.RecentVideos(context.Background(), 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUpstream))
	assert.Contains(t, err.Error(), "http 403")
}

func TestChannelID_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":[]}`))
	}))
	defer srv.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: srv.URL, ChannelHandle: "nobody"})
	_, err := client.ChannelID(context.Background())
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}
