package web

import (
	"context"
	"database/sql"
	"embed"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fieldpress/dispatch/internal/auth"
	"github.com/fieldpress/dispatch/internal/config"
	"github.com/fieldpress/dispatch/internal/logging"
	"github.com/fieldpress/dispatch/internal/ops"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Options configures NewServer.
type Options struct {
	Version string

	// LockDir is where the transcript sync lock lives; normally the base dir
	LockDir string

	Log logrus.FieldLogger
}

// NewServer creates and configures the HTTP server for the site and its API.
func NewServer(database *sql.DB, cfg *config.Config, svc *ops.Services, opts Options) *http.Server {
	h := newHandlers(database, cfg, svc, opts)
	return &http.Server{
		Addr:              cfg.Addr(),
		Handler:           h.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func newHandlers(database *sql.DB, cfg *config.Config, svc *ops.Services, opts Options) *Handlers {
	log := opts.Log
	if log == nil {
		log = logging.Discard()
	}

	// Create sub-FS for templates (strip "templates/" prefix)
	templateSub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		log.Fatalf("failed to create template sub-FS: %v", err)
	}

	return &Handlers{
		db:       database,
		cfg:      cfg,
		svc:      svc,
		renderer: NewRenderer(templateSub, cfg.Site.Name, opts.Version, log),
		guard: auth.NewGuard(
			cfg.Server.AdminPassword,
			time.Duration(cfg.Server.SessionTTLHours)*time.Hour,
			cfg.Server.CookieSecure,
		),
		limiter: auth.NewLimiter(time.Duration(cfg.RateLimit.WindowMS)*time.Millisecond, cfg.RateLimit.Max),
		log:     log,
		lockDir: opts.LockDir,
	}
}

func (h *Handlers) routes() http.Handler {
	// Create sub-FS for static files (strip "static/" prefix)
	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		h.log.Fatalf("failed to create static sub-FS: %v", err)
	}

	mux := http.NewServeMux()

	// Pages
	mux.HandleFunc("GET /{$}", h.HandleHome)
	mux.HandleFunc("GET /articles", h.HandleArticles)
	mux.HandleFunc("GET /articles/{slug}", h.HandleArticle)
	mux.HandleFunc("GET /videos", h.HandleVideos)
	mux.HandleFunc("GET /live-feed", h.HandleLiveFeed)
	mux.HandleFunc("GET /in-the-news", h.HandleNews)
	mux.HandleFunc("GET /admin", h.HandleAdmin)
	mux.HandleFunc("GET /", h.HandleNotFound)

	// Public API
	mux.HandleFunc("GET /api/articles", h.HandleAPIArticles)
	mux.HandleFunc("POST /api/articles", h.protect(scopeArticles, true, h.HandleAPICreateArticle))
	mux.HandleFunc("GET /api/youtube/videos", h.HandleAPIVideos)
	mux.HandleFunc("GET /api/youtube/transcript", h.HandleAPITranscript)
	mux.HandleFunc("POST /api/youtube/summary", h.HandleAPISummary)
	mux.HandleFunc("GET /api/x/posts", h.HandleAPIPosts)
	mux.HandleFunc("GET /api/x/mentions", h.HandleAPIMentions)
	mux.HandleFunc("GET /api/news/articles", h.HandleAPINews)

	// Admin API; login is rate limited but reachable without a session
	admin := func(next http.HandlerFunc) http.HandlerFunc { return h.protect(scopeAdmin, true, next) }
	mux.HandleFunc("POST /api/admin/login", h.protect(scopeAdmin, false, h.HandleLogin))
	mux.HandleFunc("GET /api/admin/articles", admin(h.HandleAdminListArticles))
	mux.HandleFunc("POST /api/admin/articles", admin(h.HandleAdminCreateArticle))
	mux.HandleFunc("GET /api/admin/articles/export", admin(h.HandleAdminExport))
	mux.HandleFunc("POST /api/admin/articles/import", admin(h.HandleAdminImport))
	mux.HandleFunc("POST /api/admin/articles/purge", admin(h.HandleAdminPurge))
	mux.HandleFunc("GET /api/admin/articles/{id}", admin(h.HandleAdminGetArticle))
	mux.HandleFunc("PUT /api/admin/articles/{id}", admin(h.HandleAdminUpdateArticle))
	mux.HandleFunc("DELETE /api/admin/articles/{id}", admin(h.HandleAdminDeleteArticle))
	mux.HandleFunc("POST /api/admin/refresh/{target}", admin(h.HandleAdminRefresh))
	mux.HandleFunc("POST /api/admin/news-search", admin(h.HandleAdminNewsSearch))

	// Static file server
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticSub)))

	return requestLogger(h.log, securityHeaders(mux))
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server, log logrus.FieldLogger) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.WithField("addr", srv.Addr).Info("dispatch running")

	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		log.Warn("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		log.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
