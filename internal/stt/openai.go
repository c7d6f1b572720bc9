package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/fieldpress/dispatch/internal/errors"
	"github.com/fieldpress/dispatch/internal/transcript"
)

const provider = "openai"

// Config captures the OpenAI transcription and media tool settings.
type Config struct {
	APIKey         string
	BaseURL        string
	DiarizeModel   string
	ChunkModel     string
	MaxUploadBytes int64
	ChunkSeconds   int
	TimeoutSeconds int
	YtDlpPath      string
	FFmpegPath     string
	FFprobePath    string

	// TempDir is the parent for per-request work directories; empty means os.TempDir.
	TempDir string
}

// OpenAI transcribes YouTube audio with the OpenAI audio transcription API.
// Audio at or under MaxUploadBytes goes up in one diarized request; larger
// files are cut into ChunkSeconds pieces transcribed with ChunkModel.
type OpenAI struct {
	cfg        Config
	httpClient *http.Client
	runner     Runner
	log        logrus.FieldLogger
}

var _ Transcriber = (*OpenAI)(nil)

// Option customizes the transcriber.
type Option func(*OpenAI)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(o *OpenAI) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// WithRunner overrides how yt-dlp, ffmpeg and ffprobe are executed.
func WithRunner(r Runner) Option {
	return func(o *OpenAI) {
		if r != nil {
			o.runner = r
		}
	}
}

// NewOpenAI constructs the transcriber.
func NewOpenAI(cfg Config, log logrus.FieldLogger, opts ...Option) *OpenAI {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.YtDlpPath == "" {
		cfg.YtDlpPath = "yt-dlp"
	}
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = "ffprobe"
	}
	timeout := 5 * time.Minute
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	o := &OpenAI{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		runner:     ExecRunner{},
		log:        log,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Configured reports whether an API key is present.
func (o *OpenAI) Configured() bool {
	return o != nil && o.cfg.APIKey != ""
}

// Transcribe implements Transcriber. The work directory is removed on every path.
func (o *OpenAI) Transcribe(ctx context.Context, videoID string) (Result, error) {
	if !o.Configured() {
		return Result{}, errors.NewNotConfigured("openai.api_key")
	}
	if strings.TrimSpace(videoID) == "" {
		return Result{}, errors.NewInvalidRequest("video id is required")
	}

	dir, err := os.MkdirTemp(o.cfg.TempDir, "transcript_"+videoID+"_")
	if err != nil {
		return Result{}, errors.NewInternal(err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			o.log.WithError(err).WithField("dir", dir).Warn("failed to remove transcription work dir")
		}
	}()

	log := o.log.WithField("video_id", videoID)

	audio, info, err := o.download(ctx, videoID, dir)
	if err != nil {
		return Result{}, err
	}
	duration := info.Duration
	if !duration.IsPositive() {
		if duration, err = o.probeDuration(ctx, audio); err != nil {
			return Result{}, err
		}
	}
	size, err := fileSize(audio)
	if err != nil {
		return Result{}, err
	}
	log.WithFields(logrus.Fields{
		"title":    info.Title,
		"duration": duration.String(),
		"bytes":    size,
	}).Info("audio downloaded")

	result := Result{Title: info.Title}
	var segments []transcript.Segment

	if size <= o.cfg.MaxUploadBytes {
		segments, err = o.transcribeFile(ctx, audio, o.cfg.DiarizeModel, true)
		if err != nil {
			return Result{}, err
		}
	} else {
		result.Chunked = true
		spans := planChunks(duration, int64(o.cfg.ChunkSeconds))
		log.WithField("chunks", len(spans)).Info("audio exceeds upload limit, splitting")

		chunks := make([]transcript.Chunk, 0, len(spans))
		for _, span := range spans {
			path, err := o.cut(ctx, audio, span)
			if err != nil {
				return Result{}, err
			}
			segs, err := o.transcribeFile(ctx, path, o.cfg.ChunkModel, false)
			_ = os.Remove(path)
			if err != nil {
				return Result{}, err
			}
			log.WithFields(logrus.Fields{"chunk": span.Index + 1, "offset": span.Start}).Debug("chunk transcribed")
			chunks = append(chunks, transcript.Chunk{Offset: float64(span.Start), Segments: segs})
		}
		segments = transcript.MergeChunks(chunks)
	}

	seconds, _ := duration.Float64()
	result.Resolved = transcript.NewResolved(segments, seconds)
	return result, nil
}

type verboseSegment struct {
	Speaker string          `json:"speaker"`
	Text    string          `json:"text"`
	Start   decimal.Decimal `json:"start"`
	End     decimal.Decimal `json:"end"`
}

type verboseTranscription struct {
	Text     string           `json:"text"`
	Segments []verboseSegment `json:"segments"`
}

// transcribeFile uploads one audio file and returns its segments with
// timings rounded to milliseconds.
func (o *OpenAI) transcribeFile(ctx context.Context, path, model string, diarize bool) ([]transcript.Segment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer f.Close()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, errors.NewInternal(err)
	}
	fields := map[string]string{
		"model":           model,
		"response_format": "verbose_json",
	}
	if diarize {
		fields["chunking_strategy"] = "auto"
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, errors.NewInternal(err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, errors.NewInternal(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.BaseURL+"/audio/transcriptions", &body)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	req.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := o.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.NewCancelled(ctx.Err())
		}
		return nil, errors.NewUpstream(provider, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewUpstream(provider, err)
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errors.NewRateLimited(0)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, errors.NewUpstream(provider, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw))))
	}

	var decoded verboseTranscription
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, errors.NewUpstream(provider, fmt.Errorf("decode response: %w", err))
	}
	return toSegments(decoded), nil
}

func toSegments(v verboseTranscription) []transcript.Segment {
	if len(v.Segments) == 0 && strings.TrimSpace(v.Text) != "" {
		return []transcript.Segment{{Speaker: transcript.DefaultSpeaker, Text: strings.TrimSpace(v.Text)}}
	}
	out := make([]transcript.Segment, 0, len(v.Segments))
	for _, s := range v.Segments {
		speaker := strings.TrimSpace(s.Speaker)
		if speaker == "" {
			speaker = transcript.DefaultSpeaker
		}
		start, _ := s.Start.Round(3).Float64()
		end, _ := s.End.Round(3).Float64()
		out = append(out, transcript.Segment{
			Speaker: speaker,
			Text:    strings.TrimSpace(s.Text),
			Start:   start,
			End:     end,
		})
	}
	return out
}
