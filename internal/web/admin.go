package web

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/fieldpress/dispatch/internal/auth"
	"github.com/fieldpress/dispatch/internal/errors"
	"github.com/fieldpress/dispatch/internal/ops"
)

// HandleLogin handles POST /api/admin/login and sets the session cookie.
func (h *Handlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.guard.Configured() {
		h.apiError(w, errors.NewNotConfigured("ADMIN_PASSWORD"))
		return
	}

	var body struct {
		Password any `json:"password"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	provided := ""
	switch p := body.Password.(type) {
	case nil:
	case string:
		provided = p
	default:
		provided = fmt.Sprint(p)
	}
	if provided == "" {
		h.apiError(w, errors.NewInvalidRequest("Password is required"))
		return
	}

	if !h.guard.CheckPassword(provided) {
		h.log.WithField("client_ip", auth.ClientIP(r)).Warn("admin login rejected")
		h.apiError(w, errors.NewUnauthorized("Invalid password"))
		return
	}

	http.SetCookie(w, h.guard.SessionCookie())
	renderJSON(w, http.StatusOK, map[string]any{"success": true})
}

// HandleAdminListArticles handles GET /api/admin/articles: drafts included.
func (h *Handlers) HandleAdminListArticles(w http.ResponseWriter, r *http.Request) {
	result, err := ops.ListArticles(h.db, ops.ListArticlesInput{Scope: ops.ScopeAll})
	if err != nil {
		h.apiError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"articles": result.Articles,
		"count":    len(result.Articles),
	})
}

// HandleAdminCreateArticle handles POST /api/admin/articles.
func (h *Handlers) HandleAdminCreateArticle(w http.ResponseWriter, r *http.Request) {
	var input ops.CreateArticleInput
	if !decodeJSON(w, r, &input) {
		return
	}
	if blank(input.Title) || blank(input.Slug) || blank(input.Content) {
		h.apiError(w, errors.NewInvalidRequest(missingArticleFields))
		return
	}

	result, err := ops.CreateArticle(h.db, h.cfg, input)
	if err != nil {
		h.apiError(w, err)
		return
	}
	renderJSON(w, http.StatusCreated, map[string]any{"success": true, "article": result.Article})
}

// HandleAdminGetArticle handles GET /api/admin/articles/{id}.
func (h *Handlers) HandleAdminGetArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := articleID(w, r)
	if !ok {
		return
	}

	result, err := ops.GetArticle(h.db, ops.GetArticleInput{ID: id})
	if err != nil {
		h.articleError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"success": true, "article": result.Article})
}

// HandleAdminUpdateArticle handles PUT /api/admin/articles/{id}. Absent fields are left unchanged.
func (h *Handlers) HandleAdminUpdateArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := articleID(w, r)
	if !ok {
		return
	}

	var input ops.UpdateArticleInput
	if !decodeJSON(w, r, &input) {
		return
	}
	input.ID = id

	result, err := ops.UpdateArticle(h.db, input)
	if err != nil {
		h.articleError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"success": true, "article": result.Article})
}

// HandleAdminDeleteArticle handles DELETE /api/admin/articles/{id}.
func (h *Handlers) HandleAdminDeleteArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := articleID(w, r)
	if !ok {
		return
	}

	if _, err := ops.DeleteArticle(h.db, id); err != nil {
		h.articleError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Article deleted successfully",
	})
}

// HandleAdminImport handles POST /api/admin/articles/import.
// The body is a JSON array of articles or {"articles": [...]}.
func (h *Handlers) HandleAdminImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.importError(w, errors.NewInvalidRequest("request body too large"))
		return
	}

	result, err := ops.ImportArticles(h.db, h.cfg, h.log, ops.ImportInput{Data: data, Format: ops.FormatJSON})
	if err != nil {
		h.importError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// importError reports a payload that could not be imported at all, in the import result shape.
func (h *Handlers) importError(w http.ResponseWriter, err error) {
	dErr := errors.From(err)
	if dErr.Status >= http.StatusInternalServerError {
		h.log.WithError(err).Error("article import failed")
	}
	renderJSON(w, dErr.Status, map[string]any{
		"success":   false,
		"error":     dErr.Message,
		"processed": 0,
		"skipped":   0,
		"errors":    []string{dErr.Message},
	})
}

// HandleAdminExport handles GET /api/admin/articles/export.
func (h *Handlers) HandleAdminExport(w http.ResponseWriter, r *http.Request) {
	result, err := ops.ExportArticles(h.db)
	if err != nil {
		h.apiError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleAdminPurge handles POST /api/admin/articles/purge: deletes every article.
func (h *Handlers) HandleAdminPurge(w http.ResponseWriter, r *http.Request) {
	result, err := ops.PurgeArticles(h.db)
	if err != nil {
		h.apiError(w, err)
		return
	}
	h.log.WithField("purged", result.Purged).Warn("all articles purged")
	renderJSON(w, http.StatusOK, result)
}

// syncResponse is the refresh/transcripts result.
type syncResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	*ops.SyncOutput
}

// HandleAdminRefresh handles POST /api/admin/refresh/{target}.
func (h *Handlers) HandleAdminRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	target := r.PathValue("target")

	var (
		result any
		err    error
	)
	switch target {
	case "youtube-videos":
		result, err = ops.RefreshVideos(ctx, h.db, h.cfg, h.svc)
	case "x-posts":
		result, err = ops.RefreshPosts(ctx, h.db, h.svc)
	case "x-mentions":
		result, err = ops.RefreshMentions(ctx, h.db, h.svc)
	case "news-articles":
		result, err = ops.RefreshNews(ctx, h.db, h.svc)
	case "video-summaries":
		result, err = ops.RefreshSummaries(ctx, h.db, h.svc)
	case "transcripts":
		var out *ops.SyncOutput
		out, err = ops.SyncTranscripts(ctx, h.db, h.cfg, h.svc, ops.SyncInput{LockDir: h.lockDir})
		if err == nil {
			result = syncResponse{
				Success:    true,
				Message:    fmt.Sprintf("Synced %d transcripts, %d unchanged, %d unmatched", out.Synced, out.Skipped, len(out.Unmatched)),
				SyncOutput: out,
			}
		}
	default:
		h.apiError(w, errors.NewNotFound("refresh target", target))
		return
	}

	if err != nil {
		h.apiError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleAdminNewsSearch handles POST /api/admin/news-search. Nothing is stored.
func (h *Handlers) HandleAdminNewsSearch(w http.ResponseWriter, r *http.Request) {
	result, err := ops.SearchNews(r.Context(), h.svc)
	if err != nil {
		h.apiError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// articleID parses the {id} path value. On failure it writes a 400 and returns false.
func articleID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		renderAPIError(w, errors.NewInvalidRequest("Invalid article ID"))
		return 0, false
	}
	return id, true
}

// articleError renders a missing article as "Article not found".
func (h *Handlers) articleError(w http.ResponseWriter, err error) {
	if errors.Is(err, errors.ErrNotFound) {
		renderAPIError(w, &errors.DispatchError{
			Code:    errors.ErrNotFound,
			Status:  http.StatusNotFound,
			Message: "Article not found",
		})
		return
	}
	h.apiError(w, err)
}
