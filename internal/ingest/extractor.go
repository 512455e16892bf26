// Package ingest turns raw text sources (link files, clipboard captures)
// into classified links, tracking per-file batches so nothing is ingested
// twice and halted runs can resume.
package ingest

import (
	"regexp"
	"strings"
)

// urlPattern matches http(s) URLs inside free text. Characters that commonly
// delimit a URL in prose or markup end the match.
var urlPattern = regexp.MustCompile("https?://[^\\s<>\"{}|\\\\^`\\[\\]]+")

// trailingPunctuation is stripped from matches: a sentence-final dot or comma
// belongs to the text, not the URL.
const trailingPunctuation = ".,;:!?"

// ExtractURLs pulls URLs out of text in order of appearance.
func ExtractURLs(text string) []string {
	matches := urlPattern.FindAllString(text, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		m = strings.TrimRight(m, trailingPunctuation)
		if m != "" {
			out = append(out, m)
		}
	}
	return out
}
