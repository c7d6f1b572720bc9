package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/fieldpress/dispatch/internal/auth"
	"github.com/fieldpress/dispatch/internal/errors"
)

// Rate limit scopes.
const (
	scopeAdmin    = "admin"
	scopeArticles = "articles"
)

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// requestLogger logs one entry per request with a fresh request id.
// Server errors log at error level, client errors at warn.
func requestLogger(log logrus.FieldLogger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()

		w.Header().Set("X-Request-ID", requestID)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		entry := log.WithFields(logrus.Fields{
			"request_id":  requestID,
			"http_method": r.Method,
			"uri":         r.URL.RequestURI(),
			"status_code": rec.status,
			"latency_ms":  time.Since(start).Milliseconds(),
			"client_ip":   auth.ClientIP(r),
			"user_agent":  r.UserAgent(),
		})
		switch {
		case rec.status >= 500:
			entry.Error("request completed with server error")
		case rec.status >= 400:
			entry.Warn("request completed with client error")
		default:
			entry.Info("request completed")
		}
	})
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; img-src 'self' https: data:; script-src 'self'; style-src 'self'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// protect rate-limits a handler per client under scope and, when requireAuth is set,
// rejects requests without a valid admin session. Without an admin password
// configured, protected routes answer NOT_CONFIGURED.
func (h *Handlers) protect(scope string, requireAuth bool, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ok, retryAfter := h.limiter.Allow(auth.ClientIP(r) + ":" + scope)
		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			renderJSON(w, http.StatusTooManyRequests, map[string]any{
				"error":               "Too many requests",
				"retry_after_seconds": retryAfter,
			})
			return
		}

		if requireAuth {
			if !h.guard.Configured() {
				h.apiError(w, errors.NewNotConfigured("ADMIN_PASSWORD"))
				return
			}
			if !h.guard.Authorized(r) {
				renderJSON(w, http.StatusUnauthorized, map[string]any{"error": "Unauthorized"})
				return
			}
		}

		next(w, r)
	}
}
