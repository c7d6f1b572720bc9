package web

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/fieldpress/dispatch/internal/content"
	"github.com/fieldpress/dispatch/internal/errors"
	"github.com/fieldpress/dispatch/internal/ops"
)

const missingArticleFields = "Title, slug, and content are required"

// HandleAPIArticles handles GET /api/articles?featured=true&limit=N.
func (h *Handlers) HandleAPIArticles(w http.ResponseWriter, r *http.Request) {
	scope := ops.ScopePublished
	if r.URL.Query().Get("featured") == "true" {
		scope = ops.ScopeFeatured
	}

	result, err := ops.ListArticles(h.db, ops.ListArticlesInput{
		Scope: scope,
		Limit: parseIntParam(r, "limit", ops.DefaultArticleLimit),
	})
	if err != nil {
		h.apiError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// publicArticleRequest is the body of POST /api/articles, which uses camelCase field names.
type publicArticleRequest struct {
	Title         string `json:"title"`
	Slug          string `json:"slug"`
	Excerpt       string `json:"excerpt"`
	Content       string `json:"content"`
	FeaturedImage string `json:"featuredImage"`
	Category      string `json:"category"`
	SourceType    string `json:"sourceType"`
	SourceURL     string `json:"sourceUrl"`
	Published     bool   `json:"published"`
	Featured      bool   `json:"featured"`
}

// HandleAPICreateArticle handles POST /api/articles.
func (h *Handlers) HandleAPICreateArticle(w http.ResponseWriter, r *http.Request) {
	var req publicArticleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if blank(req.Title) || blank(req.Slug) || blank(req.Content) {
		h.apiError(w, errors.NewInvalidRequest(missingArticleFields))
		return
	}

	result, err := ops.CreateArticle(h.db, h.cfg, ops.CreateArticleInput{
		Title:         req.Title,
		Slug:          req.Slug,
		Excerpt:       &req.Excerpt,
		Content:       req.Content,
		FeaturedImage: &req.FeaturedImage,
		Category:      req.Category,
		SourceType:    &req.SourceType,
		SourceURL:     &req.SourceURL,
		Published:     req.Published,
		Featured:      req.Featured,
	})
	if err != nil {
		h.apiError(w, err)
		return
	}
	renderJSON(w, http.StatusCreated, result)
}

// HandleAPIVideos handles GET /api/youtube/videos.
func (h *Handlers) HandleAPIVideos(w http.ResponseWriter, r *http.Request) {
	feed, err := ops.ListVideos(h.db, 0)
	if err != nil {
		h.apiError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, feed)
}

// HandleAPITranscript handles GET /api/youtube/transcript?videoId=ID.
// Transcription can take minutes when the speech-to-text fallback runs.
func (h *Handlers) HandleAPITranscript(w http.ResponseWriter, r *http.Request) {
	videoID := strings.TrimSpace(r.URL.Query().Get("videoId"))
	if videoID == "" {
		h.apiError(w, errors.NewInvalidRequest("videoId parameter is required"))
		return
	}

	out, err := ops.GetTranscript(r.Context(), h.db, h.cfg, h.svc, ops.TranscriptInput{VideoID: videoID})
	if err != nil {
		h.apiError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleAPISummary handles POST /api/youtube/summary.
func (h *Handlers) HandleAPISummary(w http.ResponseWriter, r *http.Request) {
	var input ops.SummarizeInput
	if !decodeJSON(w, r, &input) {
		return
	}

	out, err := ops.Summarize(r.Context(), h.svc, input)
	if err != nil {
		h.apiError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

// HandleAPIPosts handles GET /api/x/posts.
func (h *Handlers) HandleAPIPosts(w http.ResponseWriter, r *http.Request) {
	h.servePosts(w, content.KindPosts)
}

// HandleAPIMentions handles GET /api/x/mentions.
func (h *Handlers) HandleAPIMentions(w http.ResponseWriter, r *http.Request) {
	h.servePosts(w, content.KindMentions)
}

func (h *Handlers) servePosts(w http.ResponseWriter, kind content.PostKind) {
	feed, err := ops.ListPosts(h.db, kind, ops.DefaultFeedLimit)
	if err != nil {
		h.apiError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, feed)
}

// HandleAPINews handles GET /api/news/articles.
func (h *Handlers) HandleAPINews(w http.ResponseWriter, r *http.Request) {
	feed, err := ops.ListNews(h.db, parseIntParam(r, "limit", ops.DefaultFeedLimit))
	if err != nil {
		h.apiError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, feed)
}

// apiError renders err as JSON and logs server-side failures.
func (h *Handlers) apiError(w http.ResponseWriter, err error) {
	dErr := errors.From(err)
	if dErr.Status >= http.StatusInternalServerError {
		h.log.WithError(err).WithField("code", dErr.Code).Error("api request failed")
	}
	renderAPIError(w, dErr)
}

// maxBodyBytes caps JSON request bodies, including article imports.
const maxBodyBytes = 10 << 20

// decodeJSON decodes the request body into v. On failure it writes a 400 and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		renderAPIError(w, errors.NewInvalidRequest("Invalid JSON"))
		return false
	}
	return true
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
