package llm

import (
	"context"
	"fmt"
	"strings"
)

// MaxTranscriptChars caps how much transcript text is sent in one request.
const MaxTranscriptChars = 150000

// FallbackSummary is stored when the model returns no content.
const FallbackSummary = "Unable to generate summary."

const summaryTemperature = 0.5

const summarySystemPrompt = `You summarise videos by an independent journalist.

Summarise only what is said in the video. Do not add opinions or outside context.

Format the summary as:
1. A 2-3 sentence overview of what the video covers
2. Key topics and points discussed (bullet points)
3. Notable interviews, locations or events featured (if any)`

// Summarize returns a summary of a video transcript.
func (c *Client) Summarize(ctx context.Context, title, transcript string) (string, error) {
	if strings.TrimSpace(title) == "" {
		title = "Untitled"
	}
	prompt := fmt.Sprintf("Summarize this video titled %q:\n\nTranscript:\n%s", title, TruncateTranscript(transcript))

	summary, err := c.Complete(ctx, summarySystemPrompt, prompt, summaryTemperature)
	if err != nil {
		return "", err
	}
	if summary == "" {
		return FallbackSummary, nil
	}
	return summary, nil
}

// TruncateTranscript cuts text to MaxTranscriptChars characters, marking the cut with "...".
func TruncateTranscript(text string) string {
	runes := []rune(text)
	if len(runes) <= MaxTranscriptChars {
		return text
	}
	return string(runes[:MaxTranscriptChars]) + "..."
}
