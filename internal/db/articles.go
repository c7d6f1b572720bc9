package db

import (
	"database/sql"
	"strconv"
	"time"

	"github.com/fieldpress/dispatch/internal/content"
	"github.com/fieldpress/dispatch/internal/errors"
)

const articleColumns = `id, title, slug, excerpt, content, featured_image, category, author,
	source_type, source_url, published, featured, created_at, updated_at`

// ArticleFilter narrows ListArticles. Limit 0 means no limit.
type ArticleFilter struct {
	PublishedOnly bool
	FeaturedOnly  bool
	Limit         int
}

// InsertArticle stores a new article and sets a.ID.
// Timestamps left at zero are set to now.
func InsertArticle(db *sql.DB, a *content.Article) error {
	now := time.Now().Unix()
	if a.CreatedAt == 0 {
		a.CreatedAt = now
	}
	if a.UpdatedAt == 0 {
		a.UpdatedAt = a.CreatedAt
	}

	query := `
		INSERT INTO articles (
			title, slug, excerpt, content, featured_image, category, author,
			source_type, source_url, published, featured, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := db.Exec(query,
		a.Title, a.Slug, toNullString(a.Excerpt), a.Content, toNullString(a.FeaturedImage),
		a.Category, a.Author, toNullString(a.SourceType), toNullString(a.SourceURL),
		a.Published, a.Featured, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return errors.NewInternal(err)
	}
	a.ID = id
	return nil
}

// UpsertArticleBySlug inserts an article or replaces the one with the same slug.
// The existing created_at is kept unless keepCreatedAt is false and a.CreatedAt is set.
func UpsertArticleBySlug(db *sql.DB, a *content.Article, keepCreatedAt bool) error {
	now := time.Now().Unix()
	if a.CreatedAt == 0 {
		a.CreatedAt = now
		keepCreatedAt = true
	}
	if a.UpdatedAt == 0 {
		a.UpdatedAt = now
	}

	query := `
		INSERT INTO articles (
			title, slug, excerpt, content, featured_image, category, author,
			source_type, source_url, published, featured, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET
			title = excluded.title,
			excerpt = excluded.excerpt,
			content = excluded.content,
			featured_image = excluded.featured_image,
			category = excluded.category,
			author = excluded.author,
			source_type = excluded.source_type,
			source_url = excluded.source_url,
			published = excluded.published,
			featured = excluded.featured,
			created_at = CASE WHEN ? THEN articles.created_at ELSE excluded.created_at END,
			updated_at = excluded.updated_at
	`

	_, err := db.Exec(query,
		a.Title, a.Slug, toNullString(a.Excerpt), a.Content, toNullString(a.FeaturedImage),
		a.Category, a.Author, toNullString(a.SourceType), toNullString(a.SourceURL),
		a.Published, a.Featured, a.CreatedAt, a.UpdatedAt,
		keepCreatedAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// GetArticleByID retrieves an article by id regardless of published state.
func GetArticleByID(db *sql.DB, id int64) (*content.Article, error) {
	row := db.QueryRow(`SELECT `+articleColumns+` FROM articles WHERE id = ?`, id)
	a, err := scanArticle(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("article", strconv.FormatInt(id, 10))
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return a, nil
}

// GetArticleBySlug retrieves an article by slug.
// If publishedOnly is true, drafts are reported as not found.
func GetArticleBySlug(db *sql.DB, slug string, publishedOnly bool) (*content.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles WHERE slug = ?`
	if publishedOnly {
		query += " AND published = 1"
	}

	a, err := scanArticle(db.QueryRow(query, slug))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("article", slug)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return a, nil
}

// ListArticles returns articles newest first.
func ListArticles(db *sql.DB, filter ArticleFilter) ([]content.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles WHERE 1 = 1`
	if filter.PublishedOnly {
		query += " AND published = 1"
	}
	if filter.FeaturedOnly {
		query += " AND featured = 1"
	}
	query += " ORDER BY created_at DESC, id DESC"

	args := []any{}
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	articles := []content.Article{}
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		articles = append(articles, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return articles, nil
}

// UpdateArticle writes every mutable field of an existing article.
// Sets updated_at to the current timestamp.
func UpdateArticle(db *sql.DB, a *content.Article) error {
	now := time.Now().Unix()

	query := `
		UPDATE articles
		SET title = ?, slug = ?, excerpt = ?, content = ?, featured_image = ?, category = ?,
			author = ?, source_type = ?, source_url = ?, published = ?, featured = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := db.Exec(query,
		a.Title, a.Slug, toNullString(a.Excerpt), a.Content, toNullString(a.FeaturedImage),
		a.Category, a.Author, toNullString(a.SourceType), toNullString(a.SourceURL),
		a.Published, a.Featured, now,
		a.ID,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrUniqueConstraint
		}
		return errors.NewInternal(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound("article", strconv.FormatInt(a.ID, 10))
	}

	a.UpdatedAt = now
	return nil
}

// DeleteArticle permanently deletes an article.
func DeleteArticle(db *sql.DB, id int64) error {
	result, err := db.Exec(`DELETE FROM articles WHERE id = ?`, id)
	if err != nil {
		return errors.NewInternal(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound("article", strconv.FormatInt(id, 10))
	}
	return nil
}

// DeleteAllArticles removes every article and returns how many were deleted.
func DeleteAllArticles(db *sql.DB) (int, error) {
	result, err := db.Exec(`DELETE FROM articles`)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return int(n), nil
}

func scanArticle(row scanner) (*content.Article, error) {
	var (
		a             content.Article
		excerpt       sql.NullString
		featuredImage sql.NullString
		sourceType    sql.NullString
		sourceURL     sql.NullString
	)

	err := row.Scan(
		&a.ID, &a.Title, &a.Slug, &excerpt, &a.Content, &featuredImage, &a.Category, &a.Author,
		&sourceType, &sourceURL, &a.Published, &a.Featured, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.Excerpt = fromNullString(excerpt)
	a.FeaturedImage = fromNullString(featuredImage)
	a.SourceType = fromNullString(sourceType)
	a.SourceURL = fromNullString(sourceURL)
	return &a, nil
}
