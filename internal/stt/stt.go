// Package stt produces transcripts for videos that have no local transcript
// file, by downloading the audio and sending it to a speech-to-text API.
package stt

import (
	"context"

	"github.com/fieldpress/dispatch/internal/transcript"
)

// Transcriber turns a video into a resolved transcript.
type Transcriber interface {
	Transcribe(ctx context.Context, videoID string) (Result, error)
}

// Result is a transcription plus facts about how it was produced.
type Result struct {
	transcript.Resolved
	Title   string `json:"title"`
	Chunked bool   `json:"chunked"` // audio exceeded the upload limit and was split
}
