package ops

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"lukechampine.com/blake3"

	"github.com/fieldpress/dispatch/internal/config"
	"github.com/fieldpress/dispatch/internal/content"
	"github.com/fieldpress/dispatch/internal/db"
	"github.com/fieldpress/dispatch/internal/errors"
	"github.com/fieldpress/dispatch/internal/transcript"
)

// TranscriptInput contains parameters for the GetTranscript operation.
type TranscriptInput struct {
	VideoID string
}

// TranscriptOutput is a resolved transcript and how it was obtained.
type TranscriptOutput struct {
	VideoID  string                   `json:"videoId"`
	Title    string                   `json:"title,omitempty"`
	FullText string                   `json:"fullText"`
	Segments []transcript.Segment     `json:"segments"`
	Duration float64                  `json:"duration"`
	Source   content.TranscriptSource `json:"source,omitempty"`
	Cached   bool                     `json:"cached"`
	Chunked  bool                     `json:"chunked,omitempty"`
}

// GetTranscript returns the transcript for a video.
//
// Order of attempts: the cache, then a local transcript file whose name matches the
// video's stored title, then speech-to-text when a transcriber is configured.
// Anything resolved after a cache miss is written back to the cache.
func GetTranscript(ctx context.Context, database *sql.DB, cfg *config.Config, svc *Services, input TranscriptInput) (*TranscriptOutput, error) {
	videoID := strings.TrimSpace(input.VideoID)
	if videoID == "" {
		return nil, errors.NewInvalidRequest("videoId is required")
	}
	if svc == nil || svc.Cache == nil {
		return nil, errors.NewNotConfigured("transcript cache")
	}
	log := svc.logger().WithField("video_id", videoID)

	cached, err := svc.Cache.Get(ctx, videoID)
	if err == nil {
		log.Debug("transcript cache hit")
		return &TranscriptOutput{
			VideoID:  videoID,
			FullText: cached.FullText,
			Segments: cached.Segments,
			Duration: cached.DurationSeconds,
			Source:   cached.Source,
			Cached:   true,
		}, nil
	}
	if !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}

	out, err := resolveLocal(database, cfg, svc, videoID)
	if err != nil {
		return nil, err
	}
	if out != nil {
		log.WithField("title", out.Title).Info("transcript resolved from local file")
		cacheResolved(ctx, svc, log, out)
		return out, nil
	}

	if svc.Transcriber == nil {
		return nil, errors.NewNotFound("transcript", videoID)
	}

	log.Info("no local transcript, falling back to speech-to-text")
	res, err := svc.Transcriber.Transcribe(ctx, videoID)
	if err != nil {
		return nil, err
	}
	out = &TranscriptOutput{
		VideoID:  videoID,
		Title:    res.Title,
		FullText: res.FullText,
		Segments: res.Segments,
		Duration: res.DurationSeconds,
		Source:   content.SourceSTT,
		Chunked:  res.Chunked,
	}
	cacheResolved(ctx, svc, log, out)
	return out, nil
}

// cacheResolved writes a fresh transcript back. A failed write is logged, not returned:
// the caller still gets the transcript and the next request resolves it again.
func cacheResolved(ctx context.Context, svc *Services, log logrus.FieldLogger, out *TranscriptOutput) {
	res := transcript.Resolved{
		FullText:        out.FullText,
		Segments:        out.Segments,
		DurationSeconds: out.Duration,
	}
	if err := svc.Cache.Put(ctx, out.VideoID, res, out.Source); err != nil {
		log.WithError(err).Warn("failed to cache transcript")
	}
}

// resolveLocal matches the video's title against transcript filenames.
// Returns nil, nil when the video is unknown or no file matches.
func resolveLocal(database *sql.DB, cfg *config.Config, svc *Services, videoID string) (*TranscriptOutput, error) {
	if cfg == nil || cfg.Transcripts.Dir == "" {
		return nil, nil
	}

	video, err := db.GetVideo(database, videoID)
	if errors.Is(err, errors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	files, err := listTranscriptFiles(cfg.Transcripts.Dir, cfg.Transcripts.Extension)
	if errors.Is(err, errors.ErrFileNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	match, ok := svc.resolver().Resolve(video.Title, fileCandidates(files, cfg.Transcripts.Extension))
	if !ok {
		return nil, nil
	}

	raw, err := os.ReadFile(filepath.Join(cfg.Transcripts.Dir, match.Candidate.ID))
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("read transcript file: %w", err))
	}

	res := transcript.Parse(string(raw))
	return &TranscriptOutput{
		VideoID:  videoID,
		Title:    video.Title,
		FullText: res.FullText,
		Segments: res.Segments,
		Duration: res.DurationSeconds,
		Source:   content.SourceFile,
	}, nil
}

// DeleteTranscriptOutput contains the result of the DeleteTranscript operation.
type DeleteTranscriptOutput struct {
	Deleted bool   `json:"deleted"`
	VideoID string `json:"video_id"`
}

// DeleteTranscript drops a cached transcript and the sync records that produced it,
// so the next sync or request resolves it from scratch. Deleted is false when
// the cache held nothing for videoID.
func DeleteTranscript(ctx context.Context, database *sql.DB, svc *Services, videoID string) (*DeleteTranscriptOutput, error) {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return nil, errors.NewInvalidRequest("video id is required")
	}
	if svc == nil || svc.Cache == nil {
		return nil, errors.NewNotConfigured("transcript cache")
	}

	deleted := true
	if err := svc.Cache.Delete(ctx, videoID); err != nil {
		if !errors.Is(err, errors.ErrNotFound) {
			return nil, err
		}
		deleted = false
	}
	// Sync records are cleared even when the cache had no row.
	if err := db.DeleteTranscriptFilesForVideo(database, videoID); err != nil {
		return nil, err
	}
	return &DeleteTranscriptOutput{Deleted: deleted, VideoID: videoID}, nil
}

// ResolveInput contains parameters for the ResolveTitle operation.
type ResolveInput struct {
	Title string
	Dir   string // default: configured transcripts dir
}

// ResolveOutput reports which transcript file, if any, a title resolves to.
type ResolveOutput struct {
	Matched    bool             `json:"matched"`
	File       string           `json:"file,omitempty"`
	Label      string           `json:"label,omitempty"`
	Similarity float64          `json:"similarity,omitempty"`
	Phase      transcript.Phase `json:"phase,omitempty"`
	Threshold  float64          `json:"threshold"`
	Candidates int              `json:"candidates"`
}

// ResolveTitle runs the resolver for a title against the transcript directory without
// touching the cache.
func ResolveTitle(cfg *config.Config, svc *Services, input ResolveInput) (*ResolveOutput, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, errors.NewInvalidRequest("title is required")
	}

	dir, ext := input.Dir, ""
	if cfg != nil {
		if dir == "" {
			dir = cfg.Transcripts.Dir
		}
		ext = cfg.Transcripts.Extension
	}
	if dir == "" {
		return nil, errors.NewNotConfigured("transcripts.dir")
	}

	files, err := listTranscriptFiles(dir, ext)
	if err != nil {
		return nil, err
	}

	resolver := svc.resolver()
	out := &ResolveOutput{Threshold: resolver.Threshold(), Candidates: len(files)}

	match, ok := resolver.Resolve(title, fileCandidates(files, ext))
	if !ok {
		return out, nil
	}
	out.Matched = true
	out.File = match.Candidate.ID
	out.Label = match.Candidate.Label
	out.Similarity = match.Similarity
	out.Phase = match.Phase
	return out, nil
}

// listTranscriptFiles returns the names of regular files in dir ending in ext, sorted.
func listTranscriptFiles(dir, ext string) ([]string, error) {
	if ext == "" {
		ext = ".txt"
	}

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, errors.NewFileNotFound(dir)
	}
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("read transcripts dir: %w", err))
	}

	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), ext) {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

func fileCandidates(files []string, ext string) []transcript.Candidate {
	if ext == "" {
		ext = ".txt"
	}
	candidates := make([]transcript.Candidate, len(files))
	for i, name := range files {
		candidates[i] = transcript.Candidate{ID: name, Label: transcript.LabelFromFilename(name, ext)}
	}
	return candidates
}

// hashFile returns the hex BLAKE3-256 digest of a file.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := blake3.New(32, nil)
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", filepath.Base(path), err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
