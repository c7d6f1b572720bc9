package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fieldpress/dispatch/internal/errors"
)

func completionHandler(t *testing.T, content string, check func(r *http.Request, req chatCompletionRequest)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if check != nil {
			check(r, req)
		}
		payload := map[string]any{
			"choices": []any{
				map[string]any{"message": map[string]any{"content": content}},
			},
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}
}

func TestClientSummarize(t *testing.T) {
	server := httptest.NewServer(completionHandler(t, "  A summary.  ", func(r *http.Request, req chatCompletionRequest) {
		if got := r.Header.Get("Authorization"); got != "Bearer test" {
			t.Errorf("Authorization = %q", got)
		}
		if got := r.Header.Get("HTTP-Referer"); got != "https://example.com" {
			t.Errorf("HTTP-Referer = %q", got)
		}
		if got := r.Header.Get("X-Title"); got != "Dispatch" {
			t.Errorf("X-Title = %q", got)
		}
		if req.Model != "demo-model" || req.MaxTokens != 4000 {
			t.Errorf("model/max_tokens = %s/%d", req.Model, req.MaxTokens)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Role != "user" {
			t.Fatalf("messages = %+v", req.Messages)
		}
		if !strings.Contains(req.Messages[1].Content, `"Border Town"`) || !strings.Contains(req.Messages[1].Content, "hello world") {
			t.Errorf("user prompt = %q", req.Messages[1].Content)
		}
	}))
	defer server.Close()

	client := NewClient(Config{
		APIKey:  "test",
		BaseURL: server.URL,
		Model:   "demo-model",
		Referer: "https://example.com",
		Title:   "Dispatch",
	})
	summary, err := client.Summarize(context.Background(), "Border Town", "hello world")
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if summary != "A summary." {
		t.Errorf("summary = %q, want %q", summary, "A summary.")
	}
}

func TestClientSummarizeEmptyContent(t *testing.T) {
	server := httptest.NewServer(completionHandler(t, "", nil))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL})
	summary, err := client.Summarize(context.Background(), "", "text")
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if summary != FallbackSummary {
		t.Errorf("summary = %q, want fallback", summary)
	}
}

func TestClientNotConfigured(t *testing.T) {
	client := NewClient(Config{})
	_, err := client.Summarize(context.Background(), "t", "text")
	if !errors.Is(err, errors.ErrNotConfigured) {
		t.Fatalf("error = %v, want NOT_CONFIGURED", err)
	}
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls int32
	ok := completionHandler(t, "done", nil)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("busy"))
			return
		}
		ok(w, r)
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(Config{APIKey: "test", BaseURL: server.URL},
		WithRetryBackoff(time.Second, 10*time.Second),
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
	)
	got, err := client.Complete(context.Background(), "sys", "user", 0)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "done" {
		t.Errorf("content = %q", got)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if len(slept) != 2 || slept[0] != time.Second || slept[1] != 2*time.Second {
		t.Errorf("sleeps = %v, want [1s 2s]", slept)
	}
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"bad key"}`))
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL}, WithSleeper(func(time.Duration) {}))
	_, err := client.Complete(context.Background(), "sys", "user", 0)
	if !errors.Is(err, errors.ErrUpstream) {
		t.Fatalf("error = %v, want UPSTREAM", err)
	}
	if !strings.Contains(err.Error(), "http 401") {
		t.Errorf("error = %v, want http 401", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestClientRetryAfterIsCapped(t *testing.T) {
	client := NewClient(Config{APIKey: "k"}, WithRetryBackoff(time.Second, 5*time.Second))
	err := &httpStatusError{StatusCode: http.StatusTooManyRequests, RetryAfter: time.Minute}
	delay, retry := client.retryDelay(context.Background(), err, 1, 3)
	if !retry || delay != 5*time.Second {
		t.Errorf("retryDelay = %v, %v; want 5s, true", delay, retry)
	}
	if _, retry := client.retryDelay(context.Background(), err, 3, 3); retry {
		t.Error("retry after last attempt")
	}
}

func TestTruncateTranscript(t *testing.T) {
	short := "short"
	if got := TruncateTranscript(short); got != short {
		t.Errorf("TruncateTranscript(short) = %q", got)
	}
	long := strings.Repeat("a", MaxTranscriptChars+10)
	got := TruncateTranscript(long)
	if len(got) != MaxTranscriptChars+3 || !strings.HasSuffix(got, "...") {
		t.Errorf("len = %d, suffix ok = %v", len(got), strings.HasSuffix(got, "..."))
	}
}

func TestParseRetryAfter(t *testing.T) {
	if d, ok := parseRetryAfter("3"); !ok || d != 3*time.Second {
		t.Errorf("parseRetryAfter(3) = %v, %v", d, ok)
	}
	if _, ok := parseRetryAfter(""); ok {
		t.Error("empty header parsed")
	}
	if _, ok := parseRetryAfter("-1"); ok {
		t.Error("negative header parsed")
	}
}
