package db

import (
	"database/sql"
	"time"

	"github.com/fieldpress/dispatch/internal/content"
	"github.com/fieldpress/dispatch/internal/errors"
)

const videoColumns = `video_id, title, description, thumbnail_url, published_at,
	view_count, like_count, duration, summary, fetched_at`

// UpsertVideo inserts or refreshes a cached video. An existing summary is kept.
func UpsertVideo(db *sql.DB, v *content.Video) error {
	if v.FetchedAt == 0 {
		v.FetchedAt = time.Now().Unix()
	}

	query := `
		INSERT INTO youtube_videos (
			video_id, title, description, thumbnail_url, published_at,
			view_count, like_count, duration, fetched_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(video_id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			thumbnail_url = excluded.thumbnail_url,
			published_at = excluded.published_at,
			view_count = excluded.view_count,
			like_count = excluded.like_count,
			duration = excluded.duration,
			fetched_at = excluded.fetched_at
	`

	_, err := db.Exec(query,
		v.VideoID, v.Title, v.Description, v.ThumbnailURL, v.PublishedAt,
		v.ViewCount, v.LikeCount, v.Duration, v.FetchedAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetVideo retrieves a cached video by its YouTube id.
func GetVideo(db *sql.DB, videoID string) (*content.Video, error) {
	row := db.QueryRow(`SELECT `+videoColumns+` FROM youtube_videos WHERE video_id = ?`, videoID)
	v, err := scanVideo(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("video", videoID)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return v, nil
}

// ListVideos returns cached videos, most recently published first. Limit 0 means all.
func ListVideos(db *sql.DB, limit int) ([]content.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM youtube_videos ORDER BY published_at DESC, video_id`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	videos := []content.Video{}
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		videos = append(videos, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return videos, nil
}

// SetVideoSummary stores the LLM summary for a video.
func SetVideoSummary(db *sql.DB, videoID, summary string) error {
	result, err := db.Exec(`UPDATE youtube_videos SET summary = ? WHERE video_id = ?`, summary, videoID)
	if err != nil {
		return errors.NewInternal(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if n == 0 {
		return errors.NewNotFound("video", videoID)
	}
	return nil
}

func scanVideo(row scanner) (*content.Video, error) {
	var (
		v       content.Video
		summary sql.NullString
	)
	err := row.Scan(
		&v.VideoID, &v.Title, &v.Description, &v.ThumbnailURL, &v.PublishedAt,
		&v.ViewCount, &v.LikeCount, &v.Duration, &summary, &v.FetchedAt,
	)
	if err != nil {
		return nil, err
	}
	v.Summary = fromNullString(summary)
	return &v, nil
}

// Feed tables whose freshness is reported to readers.
const (
	TableVideos   = "youtube_videos"
	TablePosts    = "x_posts"
	TableMentions = "x_mentions"
	TableNews     = "news_articles"
)

// LastFetchedAt returns the newest fetched_at in a feed table, or nil when it is empty.
func LastFetchedAt(db *sql.DB, table string) (*int64, error) {
	switch table {
	case TableVideos, TablePosts, TableMentions, TableNews:
	default:
		return nil, errors.NewInvalidRequest("unknown feed table: " + table)
	}

	var last sql.NullInt64
	if err := db.QueryRow(`SELECT MAX(fetched_at) FROM ` + table).Scan(&last); err != nil {
		return nil, errors.NewInternal(err)
	}
	return fromNullInt64(last), nil
}
