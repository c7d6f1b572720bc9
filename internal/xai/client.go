// Package xai searches X through the xAI responses API and its x_search tool.
package xai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fieldpress/dispatch/internal/errors"
)

const (
	provider           = "xai"
	defaultBaseURL     = "https://api.x.ai/v1"
	defaultModel       = "grok-4-1-fast"
	defaultHTTPTimeout = 120 * time.Second
)

// Config captures the settings needed to search X.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Handle         string // account whose posts are cached, without "@"
	SubjectName    string // display name used in prompts
	TimeoutSeconds int
}

// Client issues x_search requests.
type Client struct {
	cfg        Config
	httpClient *http.Client
	now        func() time.Time
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithClock overrides the time source used for prompts and fetch times.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient constructs an xAI client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	c := &Client{
		cfg: Config{
			APIKey:      strings.TrimSpace(cfg.APIKey),
			BaseURL:     strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Model:       strings.TrimSpace(cfg.Model),
			Handle:      strings.TrimPrefix(strings.TrimSpace(cfg.Handle), "@"),
			SubjectName: strings.TrimSpace(cfg.SubjectName),
		},
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
	if c.cfg.BaseURL == "" {
		c.cfg.BaseURL = defaultBaseURL
	}
	if c.cfg.Model == "" {
		c.cfg.Model = defaultModel
	}
	if c.cfg.SubjectName == "" {
		c.cfg.SubjectName = "@" + c.cfg.Handle
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type responsesRequest struct {
	Model string              `json:"model"`
	Input []inputMessage      `json:"input"`
	Tools []map[string]string `json:"tools"`
}

type inputMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type responseOutput struct {
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content"`
	Text    string          `json:"text"`
}

type responsesResponse struct {
	ID        string           `json:"id"`
	Output    []responseOutput `json:"output"`
	Citations []string         `json:"citations"`
}

// reply is the text of a responses call plus any citations the API attached.
type reply struct {
	Text      string
	Citations []string
}

func (c *Client) checkConfig() error {
	if c.cfg.APIKey == "" {
		return errors.NewNotConfigured("xai.api_key")
	}
	if c.cfg.Handle == "" {
		return errors.NewNotConfigured("xai.handle")
	}
	return nil
}

// search sends prompt with the x_search tool enabled.
func (c *Client) search(ctx context.Context, prompt string) (reply, error) {
	if err := c.checkConfig(); err != nil {
		return reply{}, err
	}
	payload := responsesRequest{
		Model: c.cfg.Model,
		Input: []inputMessage{{Role: "user", Content: prompt}},
		Tools: []map[string]string{{"type": "x_search"}},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return reply{}, errors.NewInternal(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/responses", bytes.NewReader(encoded))
	if err != nil {
		return reply{}, errors.NewInternal(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return reply{}, errors.NewCancelled(ctx.Err())
		}
		return reply{}, errors.NewUpstream(provider, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return reply{}, errors.NewUpstream(provider, err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return reply{}, errors.NewUpstream(provider, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	var decoded responsesResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return reply{}, errors.NewUpstream(provider, fmt.Errorf("decode response: %w", err))
	}
	return reply{Text: ExtractText(decoded.Output), Citations: decoded.Citations}, nil
}

// ExtractText returns the assistant text of a responses payload: the first
// message output whose content is a string or a list of text blocks, or the
// first output carrying a bare text field.
func ExtractText(outputs []responseOutput) string {
	for _, out := range outputs {
		if out.Type == "message" && len(out.Content) > 0 {
			var s string
			if err := json.Unmarshal(out.Content, &s); err == nil && s != "" {
				return s
			}
			var blocks []contentBlock
			if err := json.Unmarshal(out.Content, &blocks); err == nil {
				var sb strings.Builder
				for _, b := range blocks {
					if b.Type == "text" {
						sb.WriteString(b.Text)
					}
				}
				if sb.Len() > 0 {
					return sb.String()
				}
			}
		}
		if out.Text != "" {
			return out.Text
		}
	}
	return ""
}
