package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/fieldpress/dispatch/internal/content"
	"github.com/fieldpress/dispatch/internal/errors"
	"github.com/fieldpress/dispatch/internal/transcript"
)

// TranscriptCache stores resolved transcripts in the youtube_transcripts table.
type TranscriptCache struct {
	db *sql.DB
}

// NewTranscriptCache wraps an initialized database.
func NewTranscriptCache(db *sql.DB) *TranscriptCache {
	return &TranscriptCache{db: db}
}

// Get returns the cached transcript for videoID, or NOT_FOUND.
func (c *TranscriptCache) Get(ctx context.Context, videoID string) (*content.CachedTranscript, error) {
	query := `
		SELECT video_id, full_text, segments_json, duration_seconds, source, created_at, updated_at
		FROM youtube_transcripts
		WHERE video_id = ?
	`

	var (
		t            content.CachedTranscript
		segmentsJSON string
		source       string
	)
	err := c.db.QueryRowContext(ctx, query, videoID).Scan(
		&t.VideoID, &t.FullText, &segmentsJSON, &t.DurationSeconds, &source, &t.CreatedAt, &t.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("transcript", videoID)
	}
	if err != nil {
		return nil, errors.From(err)
	}

	if err := json.Unmarshal([]byte(segmentsJSON), &t.Segments); err != nil {
		return nil, errors.NewInternal(err)
	}
	if t.Segments == nil {
		t.Segments = []transcript.Segment{}
	}
	t.Source = content.TranscriptSource(source)
	return &t, nil
}

// Put upserts the transcript for videoID. Last write wins; created_at survives overwrites.
func (c *TranscriptCache) Put(ctx context.Context, videoID string, res transcript.Resolved, source content.TranscriptSource) error {
	segments := res.Segments
	if segments == nil {
		segments = []transcript.Segment{}
	}
	data, err := json.Marshal(segments)
	if err != nil {
		return errors.NewInternal(err)
	}

	now := time.Now().Unix()
	query := `
		INSERT INTO youtube_transcripts (
			video_id, full_text, segments_json, duration_seconds, source, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(video_id) DO UPDATE SET
			full_text = excluded.full_text,
			segments_json = excluded.segments_json,
			duration_seconds = excluded.duration_seconds,
			source = excluded.source,
			updated_at = excluded.updated_at
	`
	if _, err := c.db.ExecContext(ctx, query,
		videoID, res.FullText, string(data), res.DurationSeconds, string(source), now, now,
	); err != nil {
		return errors.From(err)
	}
	return nil
}

// Delete removes the cached transcript for videoID. NOT_FOUND when nothing was cached.
func (c *TranscriptCache) Delete(ctx context.Context, videoID string) error {
	result, err := c.db.ExecContext(ctx, `DELETE FROM youtube_transcripts WHERE video_id = ?`, videoID)
	if err != nil {
		return errors.From(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if n == 0 {
		return errors.NewNotFound("transcript", videoID)
	}
	return nil
}
