package web

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/fieldpress/dispatch/internal/auth"
	"github.com/fieldpress/dispatch/internal/config"
	"github.com/fieldpress/dispatch/internal/content"
	"github.com/fieldpress/dispatch/internal/errors"
	"github.com/fieldpress/dispatch/internal/ops"
)

const homeVideoLimit = 6

// Handlers contains HTTP route handlers for the site and its JSON API.
type Handlers struct {
	db       *sql.DB
	cfg      *config.Config
	svc      *ops.Services
	renderer *Renderer
	guard    *auth.Guard
	limiter  *auth.Limiter
	log      logrus.FieldLogger

	// lockDir holds the transcript sync lock shared with the CLI
	lockDir string
}

// HandleHome handles GET /: featured and latest articles with recent videos.
func (h *Handlers) HandleHome(w http.ResponseWriter, r *http.Request) {
	featured, err := ops.ListArticles(h.db, ops.ListArticlesInput{Scope: ops.ScopeFeatured})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	latest, err := ops.ListArticles(h.db, ops.ListArticlesInput{Scope: ops.ScopePublished})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	videos, err := ops.ListVideos(h.db, homeVideoLimit)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, "home", HomePageData{
		PageData: h.renderer.page(h.cfg.Site.Name, "home"),
		Featured: featured.Articles,
		Latest:   latest.Articles,
		Videos:   videos.Videos,
	})
}

// HandleArticles handles GET /articles: published articles, newest first.
func (h *Handlers) HandleArticles(w http.ResponseWriter, r *http.Request) {
	result, err := ops.ListArticles(h.db, ops.ListArticlesInput{
		Scope: ops.ScopePublished,
		Limit: parseIntParam(r, "limit", ops.MaxListLimit),
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, "articles", ArticlesPageData{
		PageData: h.renderer.page("Articles", "articles"),
		Articles: result.Articles,
	})
}

// HandleArticle handles GET /articles/{slug}. Drafts are not served.
func (h *Handlers) HandleArticle(w http.ResponseWriter, r *http.Request) {
	result, err := ops.GetArticle(h.db, ops.GetArticleInput{
		Slug:          r.PathValue("slug"),
		PublishedOnly: true,
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, "article", ArticlePageData{
		PageData:     h.renderer.page(result.Article.Title, "articles"),
		Article:      result.Article,
		RenderedHTML: renderMarkdown(result.Article.Content),
	})
}

// HandleVideos handles GET /videos: the cached upload archive.
func (h *Handlers) HandleVideos(w http.ResponseWriter, r *http.Request) {
	feed, err := ops.ListVideos(h.db, 0)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, "videos", VideosPageData{
		PageData:      h.renderer.page("Videos", "videos"),
		Videos:        feed.Videos,
		LastFetchedAt: feed.LastFetchedAt,
	})
}

// HandleLiveFeed handles GET /live-feed: cached X posts and mentions.
func (h *Handlers) HandleLiveFeed(w http.ResponseWriter, r *http.Request) {
	posts, err := ops.ListPosts(h.db, content.KindPosts, ops.DefaultFeedLimit)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	mentions, err := ops.ListPosts(h.db, content.KindMentions, ops.DefaultFeedLimit)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, "live-feed", LiveFeedPageData{
		PageData:      h.renderer.page("Live Feed", "live-feed"),
		Posts:         posts.Posts,
		Mentions:      mentions.Posts,
		LastFetchedAt: posts.LastFetchedAt,
	})
}

// HandleNews handles GET /in-the-news: stored press coverage and its digest.
func (h *Handlers) HandleNews(w http.ResponseWriter, r *http.Request) {
	feed, err := ops.ListNews(h.db, ops.DefaultFeedLimit)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, "news", NewsPageData{
		PageData: h.renderer.page("In the News", "news"),
		Feed:     feed,
	})
}

// HandleAdmin handles GET /admin. Without a session it shows the login form.
func (h *Handlers) HandleAdmin(w http.ResponseWriter, r *http.Request) {
	data := AdminPageData{
		PageData:   h.renderer.page("Admin", "admin"),
		Configured: h.guard.Configured(),
		Authorized: h.guard.Authorized(r),
	}

	if data.Authorized {
		result, err := ops.ListArticles(h.db, ops.ListArticlesInput{Scope: ops.ScopeAll})
		if err != nil {
			h.renderer.renderError(w, r, err)
			return
		}
		data.Articles = result.Articles
	}

	h.renderer.renderPage(w, "admin", data)
}

// HandleNotFound renders the 404 page for unknown paths.
func (h *Handlers) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	h.renderer.renderError(w, r, errors.NewNotFound("page", r.URL.Path))
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// parseBoolParam parses a boolean query parameter.
func parseBoolParam(r *http.Request, name string) bool {
	s := r.URL.Query().Get(name)
	return s == "true" || s == "1"
}
