package transcript

import (
	"sort"
	"strings"
)

// DefaultSpeaker labels text that appears before any speaker marker,
// and segments from providers that do not report a speaker.
const DefaultSpeaker = "Speaker"

// Segment is one speaker turn. Start and End are seconds from the beginning of
// the video; both are 0 for sources without timing.
type Segment struct {
	Speaker string  `json:"speaker"`
	Text    string  `json:"text"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}

// Resolved is a transcript ready to cache and serve.
type Resolved struct {
	FullText        string    `json:"full_text"`
	Segments        []Segment `json:"segments"`
	DurationSeconds float64   `json:"duration_seconds"`
}

// NewResolved builds a Resolved transcript, deriving FullText from segments.
func NewResolved(segments []Segment, durationSeconds float64) Resolved {
	if segments == nil {
		segments = []Segment{}
	}
	return Resolved{
		FullText:        FullText(segments),
		Segments:        segments,
		DurationSeconds: durationSeconds,
	}
}

// FullText renders segments as "[speaker]: text" blocks separated by blank lines.
func FullText(segments []Segment) string {
	parts := make([]string, len(segments))
	for i, s := range segments {
		parts[i] = "[" + s.Speaker + "]: " + s.Text
	}
	return strings.Join(parts, "\n\n")
}

// Chunk is the output of transcribing one slice of a longer recording.
// Segment timings are relative to the chunk; Offset is the chunk start in seconds.
type Chunk struct {
	Offset   float64
	Segments []Segment
}

// MergeChunks shifts every chunk's segments by the chunk offset and returns them
// ordered by Start. Segments with equal Start keep their chunk order.
func MergeChunks(chunks []Chunk) []Segment {
	total := 0
	for _, c := range chunks {
		total += len(c.Segments)
	}
	merged := make([]Segment, 0, total)
	for _, c := range chunks {
		for _, s := range c.Segments {
			s.Start += c.Offset
			s.End += c.Offset
			merged = append(merged, s)
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Start < merged[j].Start
	})
	return merged
}
