package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/fieldpress/dispatch/internal/content"
	"github.com/fieldpress/dispatch/internal/errors"
	"github.com/fieldpress/dispatch/internal/ops"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title    string
	SiteName string
	Version  string
	Nav      string // active nav item: "home", "articles", "videos", "live-feed", "news", "admin"
}

// HomePageData is the template data for the landing page.
type HomePageData struct {
	PageData
	Featured []content.Article
	Latest   []content.Article
	Videos   []content.Video
}

// ArticlesPageData is the template data for the article index.
type ArticlesPageData struct {
	PageData
	Articles []content.Article
}

// ArticlePageData is the template data for a single article.
type ArticlePageData struct {
	PageData
	Article      *content.Article
	RenderedHTML template.HTML
}

// VideosPageData is the template data for the video archive.
type VideosPageData struct {
	PageData
	Videos        []content.Video
	LastFetchedAt *string
}

// LiveFeedPageData is the template data for the X feed page.
type LiveFeedPageData struct {
	PageData
	Posts         []content.Post
	Mentions      []content.Post
	LastFetchedAt *string
}

// NewsPageData is the template data for the press coverage page.
type NewsPageData struct {
	PageData
	Feed *ops.NewsFeed
}

// AdminPageData is the template data for the admin page.
type AdminPageData struct {
	PageData
	Authorized bool
	Configured bool
	Articles   []content.Article
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	siteName  string
	version   string
	log       logrus.FieldLogger
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
func NewRenderer(templateFS fs.FS, siteName, version string, log logrus.FieldLogger) *Renderer {
	funcMap := template.FuncMap{
		"formatTime":  formatTime,
		"formatDate":  formatDate,
		"formatCount": formatCount,
		"deref":       deref,
		"hasValue":    hasValue,
		"hasPrefix":   strings.HasPrefix,
	}

	layoutTmpl := template.Must(template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html"))

	pages := map[string]string{
		"home":      "home.html",
		"articles":  "articles.html",
		"article":   "article.html",
		"videos":    "videos.html",
		"live-feed": "live_feed.html",
		"news":      "news.html",
		"admin":     "admin.html",
		"error":     "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t := template.Must(layoutTmpl.Clone())
		template.Must(t.ParseFS(templateFS, file))
		templates[name] = t
	}

	return &Renderer{
		templates: templates,
		siteName:  siteName,
		version:   version,
		log:       log,
	}
}

// page returns the common page fields for a page titled title.
func (r *Renderer) page(title, nav string) PageData {
	return PageData{Title: title, SiteName: r.siteName, Version: r.version, Nav: nav}
}

// renderPage renders a named page template with the given data and HTTP 200 status.
func (r *Renderer) renderPage(w http.ResponseWriter, name string, data any) {
	r.renderPageStatus(w, http.StatusOK, name, data)
}

// renderPageStatus renders a named page template with the given data and HTTP status code.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, status int, name string, data any) {
	t, ok := r.templates[name]
	if !ok {
		r.log.WithField("template", name).Error("template not found")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		r.log.WithError(err).WithField("template", name).Error("template execution failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError renders an error page, or JSON when the client asked for it.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	dErr := errors.From(err)
	if dErr.Code == errors.ErrInternal {
		r.log.WithError(err).Error("page request failed")
	}

	if strings.Contains(req.Header.Get("Accept"), "application/json") {
		renderAPIError(w, dErr)
		return
	}

	r.renderPageStatus(w, dErr.Status, "error", ErrorPageData{
		PageData:   r.page(fmt.Sprintf("Error %d", dErr.Status), ""),
		StatusCode: dErr.Status,
		Message:    dErr.Message,
	})
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// renderAPIError writes {"success": false, "error": message, "code": code} with the error's status.
func renderAPIError(w http.ResponseWriter, err *errors.DispatchError) {
	body := map[string]any{
		"success": false,
		"error":   err.Message,
		"code":    string(err.Code),
	}
	if retry, ok := err.Details["retry_after_seconds"]; ok {
		body["retry_after_seconds"] = retry
	}
	renderJSON(w, err.Status, body)
}

// markdown renders article bodies. Bodies written in the admin editor are HTML
// and pass through untouched.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithUnsafe()),
)

// renderMarkdown converts article text to HTML.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

// formatTime formats a Unix timestamp as "2006-01-02 15:04" UTC.
func formatTime(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("2006-01-02 15:04")
}

// formatDate formats a Unix timestamp as "January 2, 2006".
func formatDate(unix int64) string {
	return time.Unix(unix, 0).UTC().Format("January 2, 2006")
}

// formatCount formats view and like counts compactly: 950, 12.3K, 4.1M.
func formatCount(n int64) string {
	switch {
	case n >= 1_000_000:
		return trimZero(fmt.Sprintf("%.1f", float64(n)/1_000_000)) + "M"
	case n >= 1_000:
		return trimZero(fmt.Sprintf("%.1f", float64(n)/1_000)) + "K"
	default:
		return fmt.Sprintf("%d", n)
	}
}

func trimZero(s string) string {
	return strings.TrimSuffix(s, ".0")
}

// deref dereferences a pointer, returning the zero value if nil.
// Supports *string and *int64 (the pointer types used in templates).
func deref(v any) any {
	if v == nil {
		return ""
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return reflect.Zero(rv.Type().Elem()).Interface()
		}
		return rv.Elem().Interface()
	}
	return v
}

// hasValue checks if a pointer value is non-nil.
func hasValue(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		return !rv.IsNil()
	}
	return true
}
