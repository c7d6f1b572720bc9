package ops

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/fieldpress/dispatch/internal/config"
	"github.com/fieldpress/dispatch/internal/content"
	"github.com/fieldpress/dispatch/internal/db"
	"github.com/fieldpress/dispatch/internal/errors"
)

var validate = validator.New()

// CreateArticleInput contains parameters for the CreateArticle operation.
type CreateArticleInput struct {
	Title         string  `json:"title" validate:"required,max=500"`
	Slug          string  `json:"slug" validate:"required,max=200"`
	Content       string  `json:"content" validate:"required"`
	Excerpt       *string `json:"excerpt"`
	FeaturedImage *string `json:"featured_image"`
	Category      string  `json:"category" validate:"max=50"`
	Author        string  `json:"author" validate:"max=200"`
	SourceType    *string `json:"source_type"`
	SourceURL     *string `json:"source_url"`
	Published     bool    `json:"published"`
	Featured      bool    `json:"featured"`
}

// ArticleOutput wraps a single article.
type ArticleOutput struct {
	Article *content.Article `json:"article"`
}

// CreateArticle validates and stores a new article.
// Category defaults to "update", author to the site's configured author.
func CreateArticle(database *sql.DB, cfg *config.Config, input CreateArticleInput) (*ArticleOutput, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Slug = strings.TrimSpace(input.Slug)
	input.Category = strings.TrimSpace(input.Category)
	input.Author = strings.TrimSpace(input.Author)

	if err := validateStruct(input); err != nil {
		return nil, err
	}

	if input.Category == "" {
		input.Category = content.DefaultCategory
	}
	if input.Author == "" && cfg != nil {
		input.Author = cfg.Site.Author
	}

	a := &content.Article{
		Title:         input.Title,
		Slug:          input.Slug,
		Excerpt:       blankToNil(input.Excerpt),
		Content:       input.Content,
		FeaturedImage: blankToNil(input.FeaturedImage),
		Category:      input.Category,
		Author:        input.Author,
		SourceType:    blankToNil(input.SourceType),
		SourceURL:     blankToNil(input.SourceURL),
		Published:     input.Published,
		Featured:      input.Featured,
	}

	if err := db.InsertArticle(database, a); err != nil {
		if err == db.ErrUniqueConstraint {
			return nil, errors.NewSlugAlreadyExists(a.Slug)
		}
		return nil, err
	}
	return &ArticleOutput{Article: a}, nil
}

// UpdateArticleInput contains parameters for the UpdateArticle operation.
// Nil fields are left untouched.
type UpdateArticleInput struct {
	ID            int64   `json:"-"`
	Title         *string `json:"title"`
	Slug          *string `json:"slug"`
	Content       *string `json:"content"`
	Excerpt       *string `json:"excerpt"`
	FeaturedImage *string `json:"featured_image"`
	Category      *string `json:"category"`
	Author        *string `json:"author"`
	SourceType    *string `json:"source_type"`
	SourceURL     *string `json:"source_url"`
	Published     *bool   `json:"published"`
	Featured      *bool   `json:"featured"`
}

// UpdateArticle applies a partial update to an existing article.
func UpdateArticle(database *sql.DB, input UpdateArticleInput) (*ArticleOutput, error) {
	if input.ID <= 0 {
		return nil, errors.NewInvalidRequest("invalid article id")
	}

	a, err := db.GetArticleByID(database, input.ID)
	if err != nil {
		return nil, err
	}

	required := []struct {
		name  string
		value *string
	}{{"title", input.Title}, {"slug", input.Slug}, {"content", input.Content}}
	for _, field := range required {
		if field.value != nil && strings.TrimSpace(*field.value) == "" {
			return nil, errors.NewInvalidRequest(field.name + " must not be empty")
		}
	}

	if input.Title != nil {
		a.Title = strings.TrimSpace(*input.Title)
	}
	if input.Slug != nil {
		a.Slug = strings.TrimSpace(*input.Slug)
	}
	if input.Content != nil {
		a.Content = *input.Content
	}
	if input.Excerpt != nil {
		a.Excerpt = blankToNil(input.Excerpt)
	}
	if input.FeaturedImage != nil {
		a.FeaturedImage = blankToNil(input.FeaturedImage)
	}
	if input.Category != nil {
		a.Category = strings.TrimSpace(*input.Category)
		if a.Category == "" {
			a.Category = content.DefaultCategory
		}
	}
	if input.Author != nil {
		a.Author = strings.TrimSpace(*input.Author)
	}
	if input.SourceType != nil {
		a.SourceType = blankToNil(input.SourceType)
	}
	if input.SourceURL != nil {
		a.SourceURL = blankToNil(input.SourceURL)
	}
	if input.Published != nil {
		a.Published = *input.Published
	}
	if input.Featured != nil {
		a.Featured = *input.Featured
	}

	if err := db.UpdateArticle(database, a); err != nil {
		if err == db.ErrUniqueConstraint {
			return nil, errors.NewSlugAlreadyExists(a.Slug)
		}
		return nil, err
	}
	return &ArticleOutput{Article: a}, nil
}

// DeleteArticleOutput contains the result of the DeleteArticle operation.
type DeleteArticleOutput struct {
	Deleted bool  `json:"deleted"`
	ID      int64 `json:"id"`
}

// DeleteArticle permanently deletes an article by id.
func DeleteArticle(database *sql.DB, id int64) (*DeleteArticleOutput, error) {
	if id <= 0 {
		return nil, errors.NewInvalidRequest("invalid article id")
	}
	if err := db.DeleteArticle(database, id); err != nil {
		return nil, err
	}
	return &DeleteArticleOutput{Deleted: true, ID: id}, nil
}

// ArticleScope selects which articles ListArticles returns.
type ArticleScope string

const (
	ScopeAll       ArticleScope = "all"       // drafts included, admin only
	ScopePublished ArticleScope = "published" // default
	ScopeFeatured  ArticleScope = "featured"  // published and featured
)

// ListArticlesInput contains parameters for the ListArticles operation.
type ListArticlesInput struct {
	Scope ArticleScope
	Limit int // published default 10, featured default 5, all default unlimited; max 100 unless all
}

// ListArticlesOutput contains the result of the ListArticles operation.
type ListArticlesOutput struct {
	Articles []content.Article `json:"articles"`
}

// ListArticles returns articles newest first.
func ListArticles(database *sql.DB, input ListArticlesInput) (*ListArticlesOutput, error) {
	filter := db.ArticleFilter{}

	switch input.Scope {
	case ScopeAll:
		if input.Limit > 0 {
			filter.Limit = input.Limit
		}
	case ScopeFeatured:
		filter.PublishedOnly = true
		filter.FeaturedOnly = true
		filter.Limit = clampLimit(input.Limit, DefaultFeaturedLimit)
	case ScopePublished, "":
		filter.PublishedOnly = true
		filter.Limit = clampLimit(input.Limit, DefaultArticleLimit)
	default:
		return nil, errors.NewInvalidRequest(fmt.Sprintf("unknown article scope %q", input.Scope))
	}

	articles, err := db.ListArticles(database, filter)
	if err != nil {
		return nil, err
	}
	return &ListArticlesOutput{Articles: articles}, nil
}

// GetArticleInput addresses one article by id or by slug.
type GetArticleInput struct {
	ID            int64
	Slug          string
	PublishedOnly bool // only honored for slug lookups
}

// GetArticle fetches a single article.
func GetArticle(database *sql.DB, input GetArticleInput) (*ArticleOutput, error) {
	slug := strings.TrimSpace(input.Slug)
	hasID := input.ID != 0

	if hasID && slug != "" {
		return nil, errors.NewInvalidRequest("specify either id or slug, not both")
	}
	if !hasID && slug == "" {
		return nil, errors.NewInvalidRequest("must specify either id or slug")
	}

	var (
		a   *content.Article
		err error
	)
	if hasID {
		if input.ID < 0 {
			return nil, errors.NewInvalidRequest("invalid article id")
		}
		a, err = db.GetArticleByID(database, input.ID)
	} else {
		a, err = db.GetArticleBySlug(database, slug, input.PublishedOnly)
	}
	if err != nil {
		return nil, err
	}
	return &ArticleOutput{Article: a}, nil
}

// validateStruct runs struct tag validation and converts failures into INVALID_REQUEST.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !asValidationErrors(err, &verrs) {
		return errors.NewInvalidRequest(err.Error())
	}

	missing := false
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			missing = true
			continue
		}
		msg := fmt.Sprintf("field '%s' failed on the '%s' tag", strings.ToLower(fe.Field()), fe.Tag())
		if fe.Param() != "" {
			msg = fmt.Sprintf("%s (value: %s)", msg, fe.Param())
		}
		msgs = append(msgs, msg)
	}
	if missing {
		return errors.NewInvalidRequest("title, slug, and content are required")
	}
	return errors.NewInvalidRequest(strings.Join(msgs, "; "))
}

func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	verrs, ok := err.(validator.ValidationErrors)
	if ok {
		*target = verrs
	}
	return ok
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
