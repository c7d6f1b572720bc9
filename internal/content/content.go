// Package content defines the records Dispatch stores and serves:
// articles, cached YouTube videos and transcripts, X posts and news digests.
package content

import "github.com/fieldpress/dispatch/internal/transcript"

// DefaultCategory is assigned to articles created without a category.
const DefaultCategory = "update"

// Article is a published (or draft) piece of writing.
type Article struct {
	// ID is the autoincrement row id
	ID int64 `json:"id"`

	Title string `json:"title"`

	// Slug is unique across all articles and addresses the public page
	Slug string `json:"slug"`

	Excerpt       *string `json:"excerpt"`
	Content       string  `json:"content"`
	FeaturedImage *string `json:"featured_image"`
	Category      string  `json:"category"`
	Author        string  `json:"author"`

	// SourceType and SourceURL point at the original post when the article mirrors one
	SourceType *string `json:"source_type"`
	SourceURL  *string `json:"source_url"`

	Published bool `json:"published"`
	Featured  bool `json:"featured"`

	// CreatedAt and UpdatedAt are Unix timestamps
	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

// Video is a YouTube upload cached from the Data API.
type Video struct {
	VideoID      string `json:"video_id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	ThumbnailURL string `json:"thumbnail_url"`
	PublishedAt  int64  `json:"published_at"`
	ViewCount    int64  `json:"view_count"`
	LikeCount    int64  `json:"like_count"`

	// Duration is display formatted ("1:02:03", "4:05")
	Duration string `json:"duration"`

	// Summary is the LLM summary of the transcript, nil until generated
	Summary *string `json:"summary"`

	FetchedAt int64 `json:"fetched_at"`
}

// TranscriptSource records how a cached transcript was produced.
type TranscriptSource string

const (
	SourceFile TranscriptSource = "file" // matched local transcript file
	SourceSTT  TranscriptSource = "stt"  // speech-to-text fallback
)

// CachedTranscript is a resolved transcript stored under its video id.
type CachedTranscript struct {
	VideoID string `json:"video_id"`
	transcript.Resolved
	Source    TranscriptSource `json:"source"`
	CreatedAt int64            `json:"created_at"`
	UpdatedAt int64            `json:"updated_at"`
}

// TranscriptFile tracks the last sync of one local transcript file.
type TranscriptFile struct {
	Filename    string  `json:"filename"`
	ContentHash string  `json:"content_hash"`
	VideoID     string  `json:"video_id"`
	Similarity  float64 `json:"similarity"`
	SyncedAt    int64   `json:"synced_at"`
}

// PostKind selects between the subject's own posts and posts about them.
type PostKind string

const (
	KindPosts    PostKind = "posts"
	KindMentions PostKind = "mentions"
)

// Post is a cached X post.
type Post struct {
	PostID         string   `json:"post_id"`
	Content        string   `json:"content"`
	AuthorUsername string   `json:"author_username"`
	AuthorName     *string  `json:"author_name"`
	AuthorAvatar   *string  `json:"author_avatar"`
	LikesCount     int64    `json:"likes_count"`
	RetweetsCount  int64    `json:"retweets_count"`
	RepliesCount   int64    `json:"replies_count"`
	MediaURLs      []string `json:"media_urls"`
	PostedAt       int64    `json:"posted_at"`
	FetchedAt      int64    `json:"fetched_at"`
}

// NewsArticle is an external article found by the news search.
type NewsArticle struct {
	// ArticleURL is unique; searches that return no url get a generated:// key
	ArticleURL  string `json:"article_url"`
	Title       string `json:"title"`
	Summary     string `json:"summary"`
	Source      string `json:"source"`
	PublishedAt *int64 `json:"published_at"`
	FetchedAt   int64  `json:"fetched_at"`
}

// NewsDigest is the single stored summary of the latest news search.
type NewsDigest struct {
	Summary   string   `json:"summary"`
	Citations []string `json:"citations"`
	FetchedAt int64    `json:"fetched_at"`
}
