package mcp

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/fieldpress/dispatch/internal/config"
	"github.com/fieldpress/dispatch/internal/errors"
	"github.com/fieldpress/dispatch/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	db      *sql.DB
	cfg     *config.Config
	svc     *ops.Services
	lockDir string
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(db *sql.DB, cfg *config.Config, svc *ops.Services, lockDir string) *Handlers {
	return &Handlers{db: db, cfg: cfg, svc: svc, lockDir: lockDir}
}

// Request types for each tool

// TranscriptResolveRequest represents the arguments for transcript_resolve.
type TranscriptResolveRequest struct {
	Title string `json:"title"`
	Dir   string `json:"dir,omitempty"`
}

// TranscriptGetRequest represents the arguments for transcript_get.
type TranscriptGetRequest struct {
	VideoID string `json:"video_id"`
}

// TranscriptSyncRequest represents the arguments for transcript_sync.
type TranscriptSyncRequest struct {
	Dir   string `json:"dir,omitempty"`
	Force bool   `json:"force,omitempty"`
}

// ArticleListRequest represents the arguments for article_list.
type ArticleListRequest struct {
	Scope string `json:"scope,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// ArticleGetRequest represents the arguments for article_get.
type ArticleGetRequest struct {
	ID            int64  `json:"id,omitempty"`
	Slug          string `json:"slug,omitempty"`
	IncludeDrafts bool   `json:"include_drafts,omitempty"`
}

// VideoListRequest represents the arguments for video_list.
type VideoListRequest struct {
	Limit int `json:"limit,omitempty"`
}

// HandleTranscriptResolve handles the transcript_resolve tool call.
func (h *Handlers) HandleTranscriptResolve(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TranscriptResolveRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.ResolveTitle(h.cfg, h.svc, ops.ResolveInput{
		Title: input.Title,
		Dir:   input.Dir,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleTranscriptGet handles the transcript_get tool call.
func (h *Handlers) HandleTranscriptGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TranscriptGetRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.GetTranscript(ctx, h.db, h.cfg, h.svc, ops.TranscriptInput{VideoID: input.VideoID})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleTranscriptSync handles the transcript_sync tool call.
func (h *Handlers) HandleTranscriptSync(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TranscriptSyncRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.SyncTranscripts(ctx, h.db, h.cfg, h.svc, ops.SyncInput{
		Dir:     input.Dir,
		LockDir: h.lockDir,
		Force:   input.Force,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleArticleList handles the article_list tool call.
func (h *Handlers) HandleArticleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ArticleListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Limit < 0 {
		return errorResult(errors.NewInvalidRequest("limit must not be negative")), nil
	}

	result, err := ops.ListArticles(h.db, ops.ListArticlesInput{
		Scope: ops.ArticleScope(input.Scope),
		Limit: input.Limit,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleArticleGet handles the article_get tool call.
func (h *Handlers) HandleArticleGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ArticleGetRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.GetArticle(h.db, ops.GetArticleInput{
		ID:            input.ID,
		Slug:          input.Slug,
		PublishedOnly: !input.IncludeDrafts,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleVideoList handles the video_list tool call.
func (h *Handlers) HandleVideoList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[VideoListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	limit := input.Limit
	switch {
	case limit < 0:
		return errorResult(errors.NewInvalidRequest("limit must not be negative")), nil
	case limit == 0:
		limit = ops.DefaultVideoLimit
	case limit > ops.MaxListLimit:
		limit = ops.MaxListLimit
	}

	result, err := ops.ListVideos(h.db, limit)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// INTERNAL errors carry a generic message and no details.
func errorResult(err error) *mcp.CallToolResult {
	dErr := errors.From(err)

	errorObj := map[string]any{
		"code":    dErr.Code,
		"message": dErr.Message,
		"status":  dErr.Status,
	}
	if dErr.Code == errors.ErrInternal {
		errorObj["message"] = "an internal error occurred"
	} else if dErr.Details != nil {
		errorObj["details"] = dErr.Details
	}

	content, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
