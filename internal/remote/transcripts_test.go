package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldpress/dispatch/internal/content"
	"github.com/fieldpress/dispatch/internal/errors"
	"github.com/fieldpress/dispatch/internal/transcript"
)

// fakePostgREST serves a single table the way PostgREST does for the
// handful of requests the cache makes.
type fakePostgREST struct {
	mu      sync.Mutex
	rows    map[string]transcriptRow
	apiKeys []string
	prefer  []string
	fail    bool
}

func newFakePostgREST(t *testing.T) (*fakePostgREST, *httptest.Server) {
	t.Helper()
	f := &fakePostgREST{rows: map[string]transcriptRow{}}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakePostgREST) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.apiKeys = append(f.apiKeys, r.Header.Get("apikey"))
	f.prefer = append(f.prefer, r.Header.Get("Prefer"))
	w.Header().Set("Content-Type", "application/json")

	if f.fail {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"code":"XX000","message":"boom"}`))
		return
	}
	if r.URL.Path != "/youtube_transcripts" {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":"42P01","message":"relation does not exist"}`))
		return
	}

	videoID := strings.TrimPrefix(r.URL.Query().Get("video_id"), "eq.")
	out := []transcriptRow{}

	switch r.Method {
	case http.MethodGet:
		if row, ok := f.rows[videoID]; ok {
			out = append(out, row)
		}
	case http.MethodPost:
		var row transcriptRow
		if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"code":"PGRST102","message":"bad body"}`))
			return
		}
		if prev, ok := f.rows[row.VideoID]; ok {
			row.CreatedAt = prev.CreatedAt
		} else {
			row.CreatedAt = row.UpdatedAt
		}
		f.rows[row.VideoID] = row
		out = append(out, row)
		w.WriteHeader(http.StatusCreated)
	case http.MethodDelete:
		if row, ok := f.rows[videoID]; ok {
			out = append(out, row)
			delete(f.rows, videoID)
		}
	}
	_ = json.NewEncoder(w).Encode(out)
}

func TestNewTranscriptCache_RequiresURL(t *testing.T) {
	_, err := NewTranscriptCache("", "key", "youtube_transcripts")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotConfigured))
}

func TestTranscriptCache_PutGetDelete(t *testing.T) {
	fake, srv := newFakePostgREST(t)
	cache, err := NewTranscriptCache(srv.URL, "secret", "youtube_transcripts")
	require.NoError(t, err)
	ctx := context.Background()

	_, err = cache.Get(ctx, "vid1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	res := transcript.NewResolved([]transcript.Segment{
		{Speaker: "Host", Text: "Hello there."},
		{Speaker: "Guest", Text: "Hi."},
	}, 42)
	require.NoError(t, cache.Put(ctx, "vid1", res, content.SourceFile))

	got, err := cache.Get(ctx, "vid1")
	require.NoError(t, err)
	assert.Equal(t, "vid1", got.VideoID)
	assert.Equal(t, res.FullText, got.FullText)
	assert.Equal(t, res.Segments, got.Segments)
	assert.Equal(t, 42.0, got.DurationSeconds)
	assert.Equal(t, content.SourceFile, got.Source)
	assert.NotZero(t, got.CreatedAt)

	require.NoError(t, cache.Delete(ctx, "vid1"))
	err = cache.Delete(ctx, "vid1")
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	for _, key := range fake.apiKeys {
		assert.Equal(t, "secret", key)
	}
	assert.Contains(t, fake.prefer, "resolution=merge-duplicates,return=representation")
}

func TestTranscriptCache_PutOverwrites(t *testing.T) {
	_, srv := newFakePostgREST(t)
	cache, err := NewTranscriptCache(srv.URL, "", "youtube_transcripts")
	require.NoError(t, err)
	ctx := context.Background()

	first := transcript.NewResolved([]transcript.Segment{{Speaker: "A", Text: "one"}}, 0)
	second := transcript.NewResolved([]transcript.Segment{{Speaker: "B", Text: "two"}}, 0)
	require.NoError(t, cache.Put(ctx, "vid1", first, content.SourceFile))
	require.NoError(t, cache.Put(ctx, "vid1", second, content.SourceSTT))

	got, err := cache.Get(ctx, "vid1")
	require.NoError(t, err)
	assert.Equal(t, "[B]: two", got.FullText)
	assert.Equal(t, content.SourceSTT, got.Source)
}

func TestTranscriptCache_UpstreamError(t *testing.T) {
	fake, srv := newFakePostgREST(t)
	fake.fail = true
	cache, err := NewTranscriptCache(srv.URL, "", "youtube_transcripts")
	require.NoError(t, err)

	_, err = cache.Get(context.Background(), "vid1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUpstream))
	assert.Contains(t, err.Error(), "boom")
}

func TestTranscriptCache_CancelledContext(t *testing.T) {
	_, srv := newFakePostgREST(t)
	cache, err := NewTranscriptCache(srv.URL, "", "youtube_transcripts")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = cache.Get(ctx, "vid1")
	assert.True(t, errors.Is(err, errors.ErrCancelled))
	assert.True(t, errors.Is(cache.Put(ctx, "vid1", transcript.Resolved{}, content.SourceFile), errors.ErrCancelled))
	assert.True(t, errors.Is(cache.Delete(ctx, "vid1"), errors.ErrCancelled))
}

func TestTranscriptCache_GetZonelessTimestamps(t *testing.T) {
	fake, srv := newFakePostgREST(t)
	fake.rows["v1"] = transcriptRow{
		VideoID:   "v1",
		FullText:  "[Host]: hello",
		Segments:  json.RawMessage(`[{"speaker":"Host","text":"hello"}]`),
		Source:    string(content.SourceFile),
		CreatedAt: "2025-01-02T03:04:05.123456",
		UpdatedAt: "2025-01-02 03:04:05+00",
	}
	cache, err := NewTranscriptCache(srv.URL, "", "youtube_transcripts")
	require.NoError(t, err)

	got, err := cache.Get(context.Background(), "v1")
	require.NoError(t, err)
	want := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC).Unix()
	assert.Equal(t, want, got.CreatedAt)
	assert.Equal(t, want, got.UpdatedAt)
	assert.Equal(t, "[Host]: hello", got.FullText)
}

func TestParseTimestamp(t *testing.T) {
	base := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC).Unix()
	tests := []struct {
		in   string
		want int64
	}{
		{"", 0},
		{"garbage", 0},
		{"2025-01-02T03:04:05Z", base},
		{"2025-01-02T05:04:05.5+02:00", base},
		{"2025-01-02T03:04:05", base},
		{"2025-01-02T03:04:05.123456", base},
		{"2025-01-02 03:04:05", base},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseTimestamp(tt.in), tt.in)
	}
}
