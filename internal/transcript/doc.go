// Package transcript matches locally stored transcript files to videos and parses them.
//
// Titles and labels are compared by their normalized key (ASCII letters and digits,
// lowercased). The Resolver tries an exact key match first and falls back to
// Levenshtein similarity above a threshold. ParseSpeakerText reads the "[Speaker]"
// line convention used by hand-maintained transcript files.
package transcript
