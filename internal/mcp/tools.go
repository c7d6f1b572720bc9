package mcp

import "github.com/mark3labs/mcp-go/mcp"

var transcriptResolveToolDef = mcp.NewTool("transcript_resolve",
	mcp.WithDescription(`Resolve a video title against the local transcript files without touching the cache.

Returns whether a file matched, the file name, the similarity score and which phase matched
(exact, fuzzy or substring). Useful for checking why a video has no transcript.`),
	mcp.WithString("title",
		mcp.Required(),
		mcp.Description("Video title to resolve"),
	),
	mcp.WithString("dir",
		mcp.Description("Transcript directory (default: configured transcripts dir)"),
	),
)

var transcriptGetToolDef = mcp.NewTool("transcript_get",
	mcp.WithDescription(`Get the transcript for a video.

Tries the transcript cache, then a local transcript file matching the video's title, then
speech-to-text when configured. Speech-to-text can take several minutes for long videos.`),
	mcp.WithString("video_id",
		mcp.Required(),
		mcp.Description("YouTube video id"),
	),
)

var transcriptSyncToolDef = mcp.NewTool("transcript_sync",
	mcp.WithDescription(`Match every transcript file in the directory to a cached video and write matches to the cache.

Files whose content and match are unchanged since the last sync are skipped unless force is set.
Only one sync runs at a time; a concurrent sync fails with CONFLICT.`),
	mcp.WithString("dir",
		mcp.Description("Transcript directory (default: configured transcripts dir)"),
	),
	mcp.WithBoolean("force",
		mcp.Description("Re-import unchanged files"),
	),
)

var articleListToolDef = mcp.NewTool("article_list",
	mcp.WithDescription("List articles, newest first."),
	mcp.WithString("scope",
		mcp.Description("published (default), featured, or all (drafts included)"),
		mcp.Enum("published", "featured", "all"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Max articles to return (default 10, featured 5, max 100)"),
	),
)

var articleGetToolDef = mcp.NewTool("article_get",
	mcp.WithDescription("Get one article by id or slug. Specify exactly one."),
	mcp.WithNumber("id",
		mcp.Description("Article id"),
	),
	mcp.WithString("slug",
		mcp.Description("Article slug"),
	),
	mcp.WithBoolean("include_drafts",
		mcp.Description("Allow unpublished articles in slug lookups"),
	),
)

var videoListToolDef = mcp.NewTool("video_list",
	mcp.WithDescription("List cached channel videos, most recently published first, with summaries when available."),
	mcp.WithNumber("limit",
		mcp.Description("Max videos to return (default 20, max 100)"),
	),
)
