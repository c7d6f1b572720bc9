package ops

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"

	"github.com/fieldpress/dispatch/internal/config"
	"github.com/fieldpress/dispatch/internal/content"
	"github.com/fieldpress/dispatch/internal/db"
	"github.com/fieldpress/dispatch/internal/errors"
	"github.com/fieldpress/dispatch/internal/transcript"
)

// LockFileName is created in the lock directory while a sync runs.
const LockFileName = "sync.lock"

// SyncInput contains parameters for the SyncTranscripts operation.
type SyncInput struct {
	Dir     string // default: configured transcripts dir
	LockDir string // default: Dir
	Force   bool   // re-import files whose content and match are unchanged
}

// SyncMatch describes one transcript file that was written to the cache.
type SyncMatch struct {
	File       string           `json:"file"`
	VideoID    string           `json:"video_id"`
	VideoTitle string           `json:"video_title"`
	Similarity float64          `json:"similarity"`
	Phase      transcript.Phase `json:"phase"`
}

// UnmatchedFile is a transcript file with no video whose title resolves to it.
type UnmatchedFile struct {
	File         string `json:"file"`
	DisplayTitle string `json:"display_title"`
}

// SyncOutput contains the result of the SyncTranscripts operation.
type SyncOutput struct {
	RunID     string          `json:"run_id"`
	Files     int             `json:"files"`
	Videos    int             `json:"videos"`
	Synced    int             `json:"synced"`
	Skipped   int             `json:"skipped"`
	Matches   []SyncMatch     `json:"matches"`
	Unmatched []UnmatchedFile `json:"unmatched"`
}

// SyncTranscripts imports every transcript file whose name resolves to a cached video.
//
// Only one sync runs at a time across processes; a second caller gets CONFLICT.
// Files whose BLAKE3 hash and matched video are unchanged since the last sync are
// skipped unless Force is set.
func SyncTranscripts(ctx context.Context, database *sql.DB, cfg *config.Config, svc *Services, input SyncInput) (*SyncOutput, error) {
	if svc == nil || svc.Cache == nil {
		return nil, errors.NewNotConfigured("transcript cache")
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

	lockDir := input.LockDir
	if lockDir == "" {
		lockDir = dir
	}
	if err := os.MkdirAll(lockDir, 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("create lock dir: %w", err))
	}
	lock := flock.New(filepath.Join(lockDir, LockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("acquire sync lock: %w", err))
	}
	if !locked {
		return nil, errors.NewConflict("a transcript sync is already running")
	}
	defer lock.Unlock()

	videos, err := db.ListVideos(database, 0)
	if err != nil {
		return nil, err
	}
	candidates := make([]transcript.Candidate, len(videos))
	for i, v := range videos {
		candidates[i] = transcript.Candidate{ID: v.VideoID, Label: v.Title}
	}

	runID := ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(rand.Reader, 0)).String()
	log := svc.logger().WithField("run_id", runID)
	log.WithFields(logrus.Fields{"files": len(files), "videos": len(videos)}).Info("transcript sync started")

	out := &SyncOutput{
		RunID:     runID,
		Files:     len(files),
		Videos:    len(videos),
		Matches:   []SyncMatch{},
		Unmatched: []UnmatchedFile{},
	}

	resolver := svc.resolver()
	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return nil, errors.NewCancelled(err)
		}

		label := transcript.LabelFromFilename(name, ext)
		match, ok := resolver.Resolve(label, candidates)
		if !ok {
			log.WithField("file", name).Info("no matching video for transcript")
			out.Unmatched = append(out.Unmatched, UnmatchedFile{File: name, DisplayTitle: transcript.DisplayTitle(label)})
			continue
		}

		path := filepath.Join(dir, name)
		hash, err := hashFile(path)
		if err != nil {
			return nil, errors.NewInternal(err)
		}

		videoID := match.Candidate.ID
		if !input.Force {
			prev, err := db.GetTranscriptFile(database, name)
			if err != nil && !errors.Is(err, errors.ErrNotFound) {
				return nil, err
			}
			if prev != nil && prev.ContentHash == hash && prev.VideoID == videoID {
				out.Skipped++
				continue
			}
		}

		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.NewInternal(fmt.Errorf("read transcript file: %w", err))
		}
		if err := svc.Cache.Put(ctx, videoID, transcript.Parse(string(raw)), content.SourceFile); err != nil {
			return nil, err
		}

		record := &content.TranscriptFile{
			Filename:    name,
			ContentHash: hash,
			VideoID:     videoID,
			Similarity:  match.Similarity,
			SyncedAt:    time.Now().Unix(),
		}
		if err := db.UpsertTranscriptFile(database, record); err != nil {
			return nil, err
		}

		log.WithFields(logrus.Fields{
			"file":       name,
			"video_id":   videoID,
			"phase":      match.Phase,
			"similarity": match.Similarity,
		}).Info("synced transcript")

		out.Synced++
		out.Matches = append(out.Matches, SyncMatch{
			File:       name,
			VideoID:    videoID,
			VideoTitle: match.Candidate.Label,
			Similarity: match.Similarity,
			Phase:      match.Phase,
		})
	}

	log.WithFields(logrus.Fields{
		"synced":    out.Synced,
		"skipped":   out.Skipped,
		"unmatched": len(out.Unmatched),
	}).Info("transcript sync finished")
	return out, nil
}
