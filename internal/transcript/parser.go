package transcript

import (
	"regexp"
	"strings"
)

// speakerPattern matches a whole trimmed line of the form "[Name]".
var speakerPattern = regexp.MustCompile(`^\[(.*?)\]$`)

// ParseSpeakerText splits a speaker-tagged text blob into segments.
//
// A line that is exactly "[Name]" (after trimming) switches the current speaker.
// Every other non-blank line is appended, space separated, to the current speaker's
// text. Brackets anywhere else are ordinary text. Segments carry no timing.
func ParseSpeakerText(raw string) []Segment {
	segments := []Segment{}
	speaker := DefaultSpeaker
	var text strings.Builder

	flush := func() {
		if text.Len() == 0 {
			return
		}
		segments = append(segments, Segment{
			Speaker: speaker,
			Text:    strings.TrimSpace(text.String()),
		})
		text.Reset()
	}

	for _, line := range strings.Split(raw, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if m := speakerPattern.FindStringSubmatch(trimmed); m != nil {
			flush()
			speaker = m[1]
			continue
		}
		text.WriteByte(' ')
		text.WriteString(trimmed)
	}
	flush()

	return segments
}

// Parse converts a speaker-tagged text blob into a Resolved transcript with unknown duration.
func Parse(raw string) Resolved {
	return NewResolved(ParseSpeakerText(raw), 0)
}
