package mcp

import (
	"database/sql"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/fieldpress/dispatch/internal/config"
	"github.com/fieldpress/dispatch/internal/ops"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"transcript_resolve": {
		def:     transcriptResolveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTranscriptResolve },
	},
	"transcript_get": {
		def:     transcriptGetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTranscriptGet },
	},
	"transcript_sync": {
		def:     transcriptSyncToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTranscriptSync },
	},
	"article_list": {
		def:     articleListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleArticleList },
	},
	"article_get": {
		def:     articleGetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleArticleGet },
	},
	"video_list": {
		def:     videoListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleVideoList },
	},
}

// AllToolNames returns all valid tool names, sorted.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// Options configures NewServer.
type Options struct {
	Version string

	// LockDir is where transcript_sync takes its lock; normally the base dir.
	LockDir string
}

// NewServer creates a new MCP server with the Dispatch tools registered.
// Tools listed in cfg.MCP.DisabledTools are excluded from registration.
func NewServer(db *sql.DB, cfg *config.Config, svc *ops.Services, opts Options) *server.MCPServer {
	s := server.NewMCPServer(
		"dispatch",
		opts.Version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(db, cfg, svc, opts.LockDir)

	disabled := make(map[string]bool, len(cfg.MCP.DisabledTools))
	for _, name := range cfg.MCP.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(db *sql.DB, cfg *config.Config, svc *ops.Services, opts Options) error {
	return server.ServeStdio(NewServer(db, cfg, svc, opts))
}
