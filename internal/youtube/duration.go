package youtube

import (
	"fmt"
	"regexp"
	"strconv"
)

var durationPattern = regexp.MustCompile(`PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?`)

// ShortMaxSeconds is the longest duration treated as a Short.
const ShortMaxSeconds = 60

// DurationSeconds parses an ISO-8601 video duration such as "PT1H2M3S".
// Anything without a "PT" time part parses as 0.
func DurationSeconds(iso string) int {
	h, m, s, ok := durationParts(iso)
	if !ok {
		return 0
	}
	return h*3600 + m*60 + s
}

// FormatDuration renders an ISO-8601 duration for display: "1:02:03" or "4:05".
func FormatDuration(iso string) string {
	h, m, s, ok := durationParts(iso)
	if !ok {
		return "0:00"
	}
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// IsShort reports whether a video of the given length is a Short.
// Unknown (zero) durations are not Shorts.
func IsShort(seconds int) bool {
	return seconds > 0 && seconds <= ShortMaxSeconds
}

func durationParts(iso string) (h, m, s int, ok bool) {
	match := durationPattern.FindStringSubmatch(iso)
	if match == nil {
		return 0, 0, 0, false
	}
	return atoi(match[1]), atoi(match[2]), atoi(match[3]), true
}

func atoi(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
