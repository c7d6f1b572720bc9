package ops

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fieldpress/dispatch/internal/config"
	"github.com/fieldpress/dispatch/internal/content"
	"github.com/fieldpress/dispatch/internal/db"
	"github.com/fieldpress/dispatch/internal/errors"
	"github.com/fieldpress/dispatch/internal/xai"
)

// RefreshOutput reports a manual cache refresh.
// Success is false when the upstream returned nothing to store.
type RefreshOutput struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// RefreshVideos fetches the channel's latest uploads and upserts them.
// Stored summaries survive the refresh.
func RefreshVideos(ctx context.Context, database *sql.DB, cfg *config.Config, svc *Services) (*RefreshOutput, error) {
	if svc == nil || svc.YouTube == nil {
		return nil, errors.NewNotConfigured("youtube.api_key")
	}
	limit := 0
	if cfg != nil {
		limit = cfg.YouTube.RefreshLimit
	}
	if limit <= 0 {
		limit = 5
	}

	log := svc.logger().WithField("feed", db.TableVideos)
	log.Info("refreshing videos")

	videos, err := svc.YouTube.RecentVideos(ctx, limit)
	if err != nil {
		return nil, err
	}
	if len(videos) == 0 {
		return &RefreshOutput{Success: false, Message: "No videos returned from YouTube API"}, nil
	}

	for i := range videos {
		if err := db.UpsertVideo(database, &videos[i]); err != nil {
			return nil, err
		}
	}

	log.WithField("count", len(videos)).Info("videos refreshed")
	return &RefreshOutput{
		Success: true,
		Message: fmt.Sprintf("Refreshed %d videos", len(videos)),
		Count:   len(videos),
	}, nil
}

// RefreshPosts caches the account's latest X posts.
func RefreshPosts(ctx context.Context, database *sql.DB, svc *Services) (*RefreshOutput, error) {
	if svc == nil || svc.XSearch == nil {
		return nil, errors.NewNotConfigured("xai.api_key")
	}
	log := svc.logger().WithField("feed", db.TablePosts)
	log.Info("refreshing X posts")

	posts, err := svc.XSearch.RecentPosts(ctx)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return &RefreshOutput{Success: false, Message: "No posts returned from xAI"}, nil
	}

	stored, err := storePosts(database, content.KindPosts, posts)
	if err != nil {
		return nil, err
	}

	log.WithField("count", stored).Info("X posts refreshed")
	return &RefreshOutput{
		Success: true,
		Message: fmt.Sprintf("Refreshed %d posts", stored),
		Count:   stored,
	}, nil
}

// RefreshMentions caches trending posts about the account. Finding none is not a failure.
func RefreshMentions(ctx context.Context, database *sql.DB, svc *Services) (*RefreshOutput, error) {
	if svc == nil || svc.XSearch == nil {
		return nil, errors.NewNotConfigured("xai.api_key")
	}
	log := svc.logger().WithField("feed", db.TableMentions)
	log.Info("refreshing X mentions")

	posts, err := svc.XSearch.TrendingMentions(ctx)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return &RefreshOutput{Success: true, Message: "No trending mentions found"}, nil
	}

	stored, err := storePosts(database, content.KindMentions, posts)
	if err != nil {
		return nil, err
	}

	log.WithField("count", stored).Info("X mentions refreshed")
	return &RefreshOutput{
		Success: true,
		Message: fmt.Sprintf("Refreshed %d mentions", stored),
		Count:   stored,
	}, nil
}

// storePosts upserts posts that carry an id and returns how many were stored.
func storePosts(database *sql.DB, kind content.PostKind, posts []content.Post) (int, error) {
	stored := 0
	for i := range posts {
		if posts[i].PostID == "" {
			continue
		}
		if err := db.UpsertPost(database, kind, &posts[i]); err != nil {
			return stored, err
		}
		stored++
	}
	return stored, nil
}

// RefreshNews searches for recent coverage and stores the articles and the digest.
func RefreshNews(ctx context.Context, database *sql.DB, svc *Services) (*RefreshOutput, error) {
	if svc == nil || svc.XSearch == nil {
		return nil, errors.NewNotConfigured("xai.api_key")
	}
	log := svc.logger().WithField("feed", db.TableNews)
	log.Info("refreshing news articles")

	result, err := svc.XSearch.SearchNews(ctx)
	if err != nil {
		return nil, err
	}
	if len(result.Articles) == 0 {
		return &RefreshOutput{Success: false, Message: "No news articles returned from xAI"}, nil
	}

	fetchedAt := time.Now().Unix()
	for _, item := range result.Articles {
		a := item.Article(fetchedAt)
		if err := db.UpsertNewsArticle(database, &a); err != nil {
			return nil, err
		}
	}

	digest := &content.NewsDigest{Summary: result.Summary, Citations: result.Citations, FetchedAt: fetchedAt}
	if err := db.PutNewsDigest(database, digest); err != nil {
		return nil, err
	}

	log.WithField("count", len(result.Articles)).Info("news articles refreshed")
	return &RefreshOutput{
		Success: true,
		Message: fmt.Sprintf("Refreshed %d news articles", len(result.Articles)),
		Count:   len(result.Articles),
	}, nil
}

// NewsSearchOutput is a news search that was not stored.
type NewsSearchOutput struct {
	Success   bool           `json:"success"`
	Message   string         `json:"message"`
	Summary   string         `json:"summary"`
	Articles  []xai.NewsItem `json:"articles"`
	Citations []string       `json:"citations"`
}

// SearchNews runs a news search without touching the cache.
func SearchNews(ctx context.Context, svc *Services) (*NewsSearchOutput, error) {
	if svc == nil || svc.XSearch == nil {
		return nil, errors.NewNotConfigured("xai.api_key")
	}

	result, err := svc.XSearch.SearchNews(ctx)
	if err != nil {
		return nil, err
	}
	svc.logger().WithField("count", len(result.Articles)).Info("news search finished")

	out := &NewsSearchOutput{
		Success:   true,
		Message:   fmt.Sprintf("Found %d news articles", len(result.Articles)),
		Summary:   result.Summary,
		Articles:  result.Articles,
		Citations: result.Citations,
	}
	if out.Articles == nil {
		out.Articles = []xai.NewsItem{}
	}
	if out.Citations == nil {
		out.Citations = []string{}
	}
	return out, nil
}

// SummariesOutput reports a bulk summary refresh.
type SummariesOutput struct {
	Success   bool     `json:"success"`
	Message   string   `json:"message"`
	Processed int      `json:"processed"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

// RefreshSummaries regenerates the summary of every cached video that has a cached
// transcript, newest first. A failure for one video is recorded and the loop continues.
func RefreshSummaries(ctx context.Context, database *sql.DB, svc *Services) (*SummariesOutput, error) {
	if svc == nil || svc.Summarizer == nil {
		return nil, errors.NewNotConfigured("openrouter.api_key")
	}
	if svc.Cache == nil {
		return nil, errors.NewNotConfigured("transcript cache")
	}
	log := svc.logger()

	videos, err := db.ListVideos(database, 0)
	if err != nil {
		return nil, err
	}

	out := &SummariesOutput{Success: true}
	attempted := 0
	for _, v := range videos {
		if err := ctx.Err(); err != nil {
			return nil, errors.NewCancelled(err)
		}

		cached, err := svc.Cache.Get(ctx, v.VideoID)
		if errors.Is(err, errors.ErrNotFound) {
			continue
		}

		if attempted > 0 {
			if err := svc.sleep(ctx, summaryPause); err != nil {
				return nil, errors.NewCancelled(err)
			}
		}
		attempted++

		entry := log.WithFields(logrus.Fields{"video_id": v.VideoID, "title": v.Title})
		if err != nil {
			entry.WithError(err).Warn("failed to load transcript for summary")
			out.Failed++
			out.Errors = append(out.Errors, v.Title)
			continue
		}

		summary, err := svc.Summarizer.Summarize(ctx, v.Title, cached.FullText)
		if err == nil {
			err = db.SetVideoSummary(database, v.VideoID, summary)
		}
		if err != nil {
			entry.WithError(err).Warn("failed to generate summary")
			out.Failed++
			out.Errors = append(out.Errors, v.Title)
			continue
		}
		entry.Info("summary generated")
		out.Processed++
	}

	if attempted == 0 {
		out.Message = "No videos with transcripts found"
		return out, nil
	}
	out.Message = fmt.Sprintf("Generated %d summaries", out.Processed)
	if out.Failed > 0 {
		out.Message += fmt.Sprintf(", %d failed", out.Failed)
	}
	return out, nil
}

// SummarizeInput contains parameters for the Summarize operation.
type SummarizeInput struct {
	Transcript string `json:"transcript"`
	VideoTitle string `json:"videoTitle"`
}

// SummarizeOutput is a generated summary.
type SummarizeOutput struct {
	Summary string `json:"summary"`
}

// Summarize generates a summary for an arbitrary transcript without storing it.
func Summarize(ctx context.Context, svc *Services, input SummarizeInput) (*SummarizeOutput, error) {
	if strings.TrimSpace(input.Transcript) == "" {
		return nil, errors.NewInvalidRequest("transcript is required")
	}
	if svc == nil || svc.Summarizer == nil {
		return nil, errors.NewNotConfigured("openrouter.api_key")
	}

	summary, err := svc.Summarizer.Summarize(ctx, input.VideoTitle, input.Transcript)
	if err != nil {
		return nil, err
	}
	return &SummarizeOutput{Summary: summary}, nil
}
