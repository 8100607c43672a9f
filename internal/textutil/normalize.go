package textutil

import (
	"net/url"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

var titleCaser = cases.Title(language.English, cases.NoLower)

// NormalizeTitle applies Unicode NFC normalization and collapses internal
// whitespace. Titles arrive from external metadata and frequently carry
// decomposed accents or doubled spaces.
func NormalizeTitle(title string) string {
	title = norm.NFC.String(title)
	fields := strings.Fields(title)
	return strings.Join(fields, " ")
}

// FallbackTitle derives a human-readable title from a video URL for use when
// metadata extraction yields nothing. The last path segment is decoded and
// title-cased; a blank result falls back to the raw reference.
func FallbackTitle(reference string) string {
	parsed, err := url.Parse(reference)
	if err != nil || parsed.Host == "" {
		return strings.TrimSpace(reference)
	}
	if v := parsed.Query().Get("v"); v != "" {
		return v
	}
	segment := strings.Trim(parsed.Path, "/")
	if idx := strings.LastIndex(segment, "/"); idx >= 0 {
		segment = segment[idx+1:]
	}
	segment = strings.NewReplacer("-", " ", "_", " ").Replace(segment)
	segment = strings.TrimSpace(segment)
	if segment == "" {
		return strings.TrimSpace(reference)
	}
	return titleCaser.String(segment)
}

// CharCount returns the number of Unicode code points in the trimmed text.
// Byte length overcounts for any transcript containing non-ASCII characters.
func CharCount(text string) int {
	return len([]rune(strings.TrimSpace(text)))
}

// CollapseTranscript trims the transcript and collapses runs of blank lines
// left behind by segment concatenation.
func CollapseTranscript(text string) string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		trimmed := strings.TrimRight(line, " \t")
		if strings.TrimSpace(trimmed) == "" {
			if blank {
				continue
			}
			blank = true
			out = append(out, "")
			continue
		}
		blank = false
		out = append(out, trimmed)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
