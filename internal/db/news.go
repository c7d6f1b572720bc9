package db

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/fieldpress/dispatch/internal/content"
	"github.com/fieldpress/dispatch/internal/errors"
)

// UpsertNewsArticle inserts or refreshes a news article keyed by its url.
func UpsertNewsArticle(db *sql.DB, n *content.NewsArticle) error {
	if n.FetchedAt == 0 {
		n.FetchedAt = time.Now().Unix()
	}
	_, err := db.Exec(`
		INSERT INTO news_articles (article_url, title, summary, source, published_at, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(article_url) DO UPDATE SET
			title = excluded.title,
			summary = excluded.summary,
			source = excluded.source,
			published_at = excluded.published_at,
			fetched_at = excluded.fetched_at
	`, n.ArticleURL, n.Title, n.Summary, n.Source, toNullInt64(n.PublishedAt), n.FetchedAt)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// ListNewsArticles returns cached news, newest publication first; undated articles last.
func ListNewsArticles(db *sql.DB, limit int) ([]content.NewsArticle, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(`
		SELECT article_url, title, summary, source, published_at, fetched_at
		FROM news_articles
		ORDER BY published_at IS NULL, published_at DESC, fetched_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	articles := []content.NewsArticle{}
	for rows.Next() {
		var (
			n         content.NewsArticle
			published sql.NullInt64
		)
		if err := rows.Scan(&n.ArticleURL, &n.Title, &n.Summary, &n.Source, &published, &n.FetchedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		n.PublishedAt = fromNullInt64(published)
		articles = append(articles, n)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return articles, nil
}

// PutNewsDigest replaces the single stored news digest.
func PutNewsDigest(db *sql.DB, d *content.NewsDigest) error {
	if d.FetchedAt == 0 {
		d.FetchedAt = time.Now().Unix()
	}
	citations := d.Citations
	if citations == nil {
		citations = []string{}
	}
	data, err := json.Marshal(citations)
	if err != nil {
		return errors.NewInternal(err)
	}

	_, err = db.Exec(`
		INSERT INTO news_search_metadata (id, summary, citations_json, fetched_at)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			summary = excluded.summary,
			citations_json = excluded.citations_json,
			fetched_at = excluded.fetched_at
	`, d.Summary, string(data), d.FetchedAt)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetNewsDigest returns the stored digest, or NOT_FOUND before the first search.
func GetNewsDigest(db *sql.DB) (*content.NewsDigest, error) {
	var (
		d             content.NewsDigest
		citationsJSON string
	)
	err := db.QueryRow(`SELECT summary, citations_json, fetched_at FROM news_search_metadata WHERE id = 1`).
		Scan(&d.Summary, &citationsJSON, &d.FetchedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("news digest", "latest")
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := json.Unmarshal([]byte(citationsJSON), &d.Citations); err != nil {
		return nil, errors.NewInternal(err)
	}
	return &d, nil
}
