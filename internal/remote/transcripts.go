// Package remote stores resolved transcripts in a hosted Postgres table
// reached through PostgREST, as an alternative to the local SQLite cache.
package remote

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fieldpress/dispatch/internal/content"
	"github.com/fieldpress/dispatch/internal/errors"
	"github.com/fieldpress/dispatch/internal/transcript"
	"github.com/supabase-community/postgrest-go"
)

const provider = "postgrest"

// transcriptRow mirrors the youtube_transcripts table on the remote side.
type transcriptRow struct {
	VideoID         string          `json:"video_id"`
	FullText        string          `json:"full_text"`
	Segments        json.RawMessage `json:"segments"`
	DurationSeconds float64         `json:"duration_seconds"`
	Source          string          `json:"source"`
	CreatedAt       string          `json:"created_at,omitempty"`
	UpdatedAt       string          `json:"updated_at,omitempty"`
}

// timestampLayouts covers timestamptz columns and plain timestamp columns,
// which PostgREST returns without a zone. Zoneless values are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02 15:04:05.999999999",
}

// parseTimestamp returns the unix seconds of a PostgREST timestamp, or 0 when
// the value is empty or in no known layout.
func parseTimestamp(value string) int64 {
	if value == "" {
		return 0
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Unix()
		}
	}
	return 0
}

// TranscriptCache implements the transcript cache against a PostgREST endpoint.
type TranscriptCache struct {
	client *postgrest.Client
	table  string
}

// NewTranscriptCache connects to the PostgREST instance at url using key as
// both the apikey and bearer token.
func NewTranscriptCache(url, key, table string) (*TranscriptCache, error) {
	if url == "" {
		return nil, errors.NewNotConfigured("cache.postgrest_url")
	}
	headers := map[string]string{}
	if key != "" {
		headers["apikey"] = key
		headers["Authorization"] = "Bearer " + key
	}
	client := postgrest.NewClient(url, "", headers)
	if client.ClientError != nil {
		return nil, errors.NewUpstream(provider, client.ClientError)
	}
	return &TranscriptCache{client: client, table: table}, nil
}

// Get returns the cached transcript for videoID, or NOT_FOUND.
func (c *TranscriptCache) Get(ctx context.Context, videoID string) (*content.CachedTranscript, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewCancelled(err)
	}

	var rows []transcriptRow
	_, err := c.client.From(c.table).
		Select("*", "", false).
		Eq("video_id", videoID).
		Limit(1, "").
		ExecuteTo(&rows)
	if err != nil {
		return nil, errors.NewUpstream(provider, err)
	}
	if len(rows) == 0 {
		return nil, errors.NewNotFound("transcript", videoID)
	}
	return rows[0].cached()
}

// Put upserts the transcript for videoID on the video_id conflict key.
func (c *TranscriptCache) Put(ctx context.Context, videoID string, res transcript.Resolved, source content.TranscriptSource) error {
	if err := ctx.Err(); err != nil {
		return errors.NewCancelled(err)
	}

	segments := res.Segments
	if segments == nil {
		segments = []transcript.Segment{}
	}
	data, err := json.Marshal(segments)
	if err != nil {
		return errors.NewInternal(err)
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	row := transcriptRow{
		VideoID:         videoID,
		FullText:        res.FullText,
		Segments:        data,
		DurationSeconds: res.DurationSeconds,
		Source:          string(source),
		UpdatedAt:       now,
	}

	var rows []transcriptRow
	if _, err := c.client.From(c.table).
		Insert(row, true, "video_id", "representation", "").
		ExecuteTo(&rows); err != nil {
		return errors.NewUpstream(provider, err)
	}
	return nil
}

// Delete removes the cached transcript for videoID. NOT_FOUND when nothing was cached.
func (c *TranscriptCache) Delete(ctx context.Context, videoID string) error {
	if err := ctx.Err(); err != nil {
		return errors.NewCancelled(err)
	}

	var rows []transcriptRow
	if _, err := c.client.From(c.table).
		Delete("representation", "").
		Eq("video_id", videoID).
		ExecuteTo(&rows); err != nil {
		return errors.NewUpstream(provider, err)
	}
	if len(rows) == 0 {
		return errors.NewNotFound("transcript", videoID)
	}
	return nil
}

func (r transcriptRow) cached() (*content.CachedTranscript, error) {
	t := &content.CachedTranscript{
		VideoID: r.VideoID,
		Source:  content.TranscriptSource(r.Source),
	}
	t.FullText = r.FullText
	t.DurationSeconds = r.DurationSeconds
	t.Segments = []transcript.Segment{}
	if len(r.Segments) > 0 && string(r.Segments) != "null" {
		if err := json.Unmarshal(r.Segments, &t.Segments); err != nil {
			return nil, errors.NewInternal(err)
		}
	}
	t.CreatedAt = parseTimestamp(r.CreatedAt)
	t.UpdatedAt = parseTimestamp(r.UpdatedAt)
	return t, nil
}
