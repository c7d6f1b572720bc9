package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fieldpress/dispatch/internal/errors"
)

// videoInfo is the subset of yt-dlp's JSON dump we read.
type videoInfo struct {
	Title    string          `json:"title"`
	Duration decimal.Decimal `json:"duration"`
}

func watchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// download fetches the audio track into dir and returns its path and the video metadata.
func (o *OpenAI) download(ctx context.Context, videoID, dir string) (string, videoInfo, error) {
	args := []string{
		"--no-playlist",
		"--no-simulate",
		"--dump-json",
		"-f", "bestaudio[ext=m4a]/bestaudio",
		"-o", filepath.Join(dir, "audio.%(ext)s"),
		watchURL(videoID),
	}
	out, err := o.runner.Run(ctx, o.cfg.YtDlpPath, args...)
	if err != nil {
		if ctx.Err() != nil {
			return "", videoInfo{}, errors.NewCancelled(ctx.Err())
		}
		if strings.Contains(err.Error(), "Video unavailable") || strings.Contains(err.Error(), "Private video") {
			return "", videoInfo{}, errors.NewNotFound("video", videoID)
		}
		return "", videoInfo{}, errors.NewUpstream("yt-dlp", err)
	}

	var info videoInfo
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "{") {
			if err := json.Unmarshal([]byte(line), &info); err != nil {
				return "", videoInfo{}, errors.NewUpstream("yt-dlp", fmt.Errorf("decode metadata: %w", err))
			}
		}
	}

	matches, err := filepath.Glob(filepath.Join(dir, "audio.*"))
	if err != nil || len(matches) == 0 {
		return "", videoInfo{}, errors.NewUpstream("yt-dlp", fmt.Errorf("no audio file written for %s", videoID))
	}
	return matches[0], info, nil
}

// probeDuration asks ffprobe for the container duration in seconds.
func (o *OpenAI) probeDuration(ctx context.Context, path string) (decimal.Decimal, error) {
	out, err := o.runner.Run(ctx, o.cfg.FFprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return decimal.Zero, errors.NewUpstream("ffprobe", err)
	}
	d, err := decimal.NewFromString(strings.TrimSpace(string(out)))
	if err != nil {
		return decimal.Zero, errors.NewUpstream("ffprobe", fmt.Errorf("parse duration %q: %w", strings.TrimSpace(string(out)), err))
	}
	return d, nil
}

// chunkSpan is one slice of the audio, in whole seconds.
type chunkSpan struct {
	Index  int
	Start  int64
	Length decimal.Decimal
}

// planChunks splits duration into consecutive spans of at most chunkSeconds.
func planChunks(duration decimal.Decimal, chunkSeconds int64) []chunkSpan {
	if chunkSeconds <= 0 || !duration.IsPositive() {
		return nil
	}
	size := decimal.NewFromInt(chunkSeconds)
	n := duration.Div(size).Ceil().IntPart()
	spans := make([]chunkSpan, 0, n)
	for i := int64(0); i < n; i++ {
		start := decimal.NewFromInt(i * chunkSeconds)
		length := decimal.Min(size, duration.Sub(start))
		spans = append(spans, chunkSpan{Index: int(i), Start: i * chunkSeconds, Length: length})
	}
	return spans
}

// cut writes one span of src to a new file next to it, copying the audio stream.
func (o *OpenAI) cut(ctx context.Context, src string, span chunkSpan) (string, error) {
	dst := filepath.Join(filepath.Dir(src), fmt.Sprintf("chunk_%d%s", span.Index, filepath.Ext(src)))
	_, err := o.runner.Run(ctx, o.cfg.FFmpegPath,
		"-y",
		"-ss", decimal.NewFromInt(span.Start).String(),
		"-t", span.Length.String(),
		"-i", src,
		"-vn",
		"-acodec", "copy",
		dst,
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", errors.NewCancelled(ctx.Err())
		}
		return "", errors.NewUpstream("ffmpeg", err)
	}
	return dst, nil
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return info.Size(), nil
}
