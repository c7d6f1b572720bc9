package ops

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldpress/dispatch/internal/config"
	"github.com/fieldpress/dispatch/internal/errors"
)

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func TestCreateArticle_Defaults(t *testing.T) {
	database := setupTestDB(t)
	cfg := config.DefaultConfig()
	cfg.Site.Author = "Desk"

	out, err := CreateArticle(database, cfg, CreateArticleInput{
		Title:   "  Field Notes  ",
		Slug:    "field-notes",
		Content: "Body",
		Excerpt: strPtr("   "),
	})
	require.NoError(t, err)

	a := out.Article
	assert.NotZero(t, a.ID)
	assert.Equal(t, "Field Notes", a.Title)
	assert.Equal(t, "update", a.Category)
	assert.Equal(t, "Desk", a.Author)
	assert.Nil(t, a.Excerpt)
	assert.False(t, a.Published)
	assert.False(t, a.Featured)
	assert.NotZero(t, a.CreatedAt)
}

func TestCreateArticle_MissingFields(t *testing.T) {
	database := setupTestDB(t)

	inputs := []CreateArticleInput{
		{Slug: "s", Content: "c"},
		{Title: "t", Content: "c"},
		{Title: "t", Slug: "s"},
		{Title: "   ", Slug: "s", Content: "c"},
	}
	for _, in := range inputs {
		_, err := CreateArticle(database, config.DefaultConfig(), in)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrInvalidRequest), "got %v", err)
		assert.Contains(t, err.Error(), "title, slug, and content are required")
	}
}

func TestCreateArticle_TooLong(t *testing.T) {
	database := setupTestDB(t)

	long := make([]byte, 201)
	for i := range long {
		long[i] = 'a'
	}
	_, err := CreateArticle(database, nil, CreateArticleInput{Title: "t", Slug: string(long), Content: "c"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
	assert.Contains(t, err.Error(), "field 'slug' failed on the 'max' tag")
}

func TestCreateArticle_DuplicateSlug(t *testing.T) {
	database := setupTestDB(t)
	in := CreateArticleInput{Title: "A", Slug: "dup", Content: "x"}

	_, err := CreateArticle(database, nil, in)
	require.NoError(t, err)

	_, err = CreateArticle(database, nil, in)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrSlugAlreadyExists), "got %v", err)
}

func TestUpdateArticle_Partial(t *testing.T) {
	database := setupTestDB(t)
	created, err := CreateArticle(database, nil, CreateArticleInput{
		Title: "Draft", Slug: "draft", Content: "first", Category: "report", SourceURL: strPtr("https://example.com"),
	})
	require.NoError(t, err)

	out, err := UpdateArticle(database, UpdateArticleInput{
		ID:        created.Article.ID,
		Title:     strPtr("Final"),
		Published: boolPtr(true),
		SourceURL: strPtr(""),
	})
	require.NoError(t, err)

	a := out.Article
	assert.Equal(t, "Final", a.Title)
	assert.Equal(t, "draft", a.Slug)
	assert.Equal(t, "first", a.Content)
	assert.Equal(t, "report", a.Category)
	assert.True(t, a.Published)
	assert.Nil(t, a.SourceURL)
}

func TestUpdateArticle_Errors(t *testing.T) {
	database := setupTestDB(t)
	a, err := CreateArticle(database, nil, CreateArticleInput{Title: "A", Slug: "a", Content: "x"})
	require.NoError(t, err)
	_, err = CreateArticle(database, nil, CreateArticleInput{Title: "B", Slug: "b", Content: "x"})
	require.NoError(t, err)

	_, err = UpdateArticle(database, UpdateArticleInput{ID: 0})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = UpdateArticle(database, UpdateArticleInput{ID: 9999, Title: strPtr("x")})
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	_, err = UpdateArticle(database, UpdateArticleInput{ID: a.Article.ID, Content: strPtr("  ")})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = UpdateArticle(database, UpdateArticleInput{ID: a.Article.ID, Slug: strPtr("b")})
	assert.True(t, errors.Is(err, errors.ErrSlugAlreadyExists))
}

func TestDeleteArticle(t *testing.T) {
	database := setupTestDB(t)
	a, err := CreateArticle(database, nil, CreateArticleInput{Title: "A", Slug: "a", Content: "x"})
	require.NoError(t, err)

	out, err := DeleteArticle(database, a.Article.ID)
	require.NoError(t, err)
	assert.True(t, out.Deleted)

	_, err = DeleteArticle(database, a.Article.ID)
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	_, err = DeleteArticle(database, -1)
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestListArticles_Scopes(t *testing.T) {
	database := setupTestDB(t)
	for _, in := range []CreateArticleInput{
		{Title: "Draft", Slug: "draft", Content: "x"},
		{Title: "Pub", Slug: "pub", Content: "x", Published: true},
		{Title: "Feat", Slug: "feat", Content: "x", Published: true, Featured: true},
		{Title: "Hidden feature", Slug: "hidden", Content: "x", Featured: true},
	} {
		_, err := CreateArticle(database, nil, in)
		require.NoError(t, err)
	}

	all, err := ListArticles(database, ListArticlesInput{Scope: ScopeAll})
	require.NoError(t, err)
	assert.Len(t, all.Articles, 4)

	published, err := ListArticles(database, ListArticlesInput{})
	require.NoError(t, err)
	assert.Len(t, published.Articles, 2)

	featured, err := ListArticles(database, ListArticlesInput{Scope: ScopeFeatured})
	require.NoError(t, err)
	require.Len(t, featured.Articles, 1)
	assert.Equal(t, "feat", featured.Articles[0].Slug)

	limited, err := ListArticles(database, ListArticlesInput{Scope: ScopePublished, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited.Articles, 1)

	_, err = ListArticles(database, ListArticlesInput{Scope: "bogus"})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func TestGetArticle(t *testing.T) {
	database := setupTestDB(t)
	draft, err := CreateArticle(database, nil, CreateArticleInput{Title: "Draft", Slug: "draft", Content: "x"})
	require.NoError(t, err)

	byID, err := GetArticle(database, GetArticleInput{ID: draft.Article.ID})
	require.NoError(t, err)
	assert.Equal(t, "draft", byID.Article.Slug)

	bySlug, err := GetArticle(database, GetArticleInput{Slug: "draft"})
	require.NoError(t, err)
	assert.Equal(t, draft.Article.ID, bySlug.Article.ID)

	_, err = GetArticle(database, GetArticleInput{Slug: "draft", PublishedOnly: true})
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	_, err = GetArticle(database, GetArticleInput{})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = GetArticle(database, GetArticleInput{ID: 1, Slug: "draft"})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}
