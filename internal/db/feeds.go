package db

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/fieldpress/dispatch/internal/content"
	"github.com/fieldpress/dispatch/internal/errors"
)

func postTable(kind content.PostKind) (string, error) {
	switch kind {
	case content.KindPosts:
		return TablePosts, nil
	case content.KindMentions:
		return TableMentions, nil
	default:
		return "", errors.NewInvalidRequest("unknown post kind: " + string(kind))
	}
}

// UpsertPost inserts a post or refreshes its text and counts.
// Author fields and posted_at of an existing post are not changed.
func UpsertPost(db *sql.DB, kind content.PostKind, p *content.Post) error {
	table, err := postTable(kind)
	if err != nil {
		return err
	}
	if p.FetchedAt == 0 {
		p.FetchedAt = time.Now().Unix()
	}

	var mediaJSON sql.NullString
	if len(p.MediaURLs) > 0 {
		data, err := json.Marshal(p.MediaURLs)
		if err != nil {
			return errors.NewInternal(err)
		}
		mediaJSON = sql.NullString{String: string(data), Valid: true}
	}

	query := `
		INSERT INTO ` + table + ` (
			post_id, content, author_username, author_name, author_avatar,
			likes_count, retweets_count, replies_count, media_urls_json, posted_at, fetched_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(post_id) DO UPDATE SET
			content = excluded.content,
			likes_count = excluded.likes_count,
			retweets_count = excluded.retweets_count,
			replies_count = excluded.replies_count,
			fetched_at = excluded.fetched_at
	`
	_, err = db.Exec(query,
		p.PostID, p.Content, p.AuthorUsername, toNullString(p.AuthorName), toNullString(p.AuthorAvatar),
		p.LikesCount, p.RetweetsCount, p.RepliesCount, mediaJSON, p.PostedAt, p.FetchedAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// ListPosts returns cached posts of a kind, newest first.
func ListPosts(db *sql.DB, kind content.PostKind, limit int) ([]content.Post, error) {
	table, err := postTable(kind)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.Query(`
		SELECT post_id, content, author_username, author_name, author_avatar,
			likes_count, retweets_count, replies_count, media_urls_json, posted_at, fetched_at
		FROM `+table+`
		ORDER BY posted_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	posts := []content.Post{}
	for rows.Next() {
		var (
			p          content.Post
			authorName sql.NullString
			avatar     sql.NullString
			mediaJSON  sql.NullString
		)
		if err := rows.Scan(
			&p.PostID, &p.Content, &p.AuthorUsername, &authorName, &avatar,
			&p.LikesCount, &p.RetweetsCount, &p.RepliesCount, &mediaJSON, &p.PostedAt, &p.FetchedAt,
		); err != nil {
			return nil, errors.NewInternal(err)
		}
		p.AuthorName = fromNullString(authorName)
		p.AuthorAvatar = fromNullString(avatar)
		if mediaJSON.Valid && mediaJSON.String != "" {
			if err := json.Unmarshal([]byte(mediaJSON.String), &p.MediaURLs); err != nil {
				return nil, errors.NewInternal(err)
			}
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return posts, nil
}
