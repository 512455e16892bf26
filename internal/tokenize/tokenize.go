// Package tokenize turns raw URLs into the ordered comparison-token
// sequences consumed by filter rules.
package tokenize

import (
	"net/url"
	"strings"
)

// TrailingClosers are the characters optionally stripped from the end of a
// raw URL before tokenization, for sources that wrap links in brackets or
// quotes.
const TrailingClosers = `)]}'"`

// TrimTrailingClosers strips closing brackets and quotes from the end of raw.
func TrimTrailingClosers(raw string) string {
	return strings.TrimRight(raw, TrailingClosers)
}

// Tokenize splits a raw URL into its ordered comparison tokens: host labels
// split on ".", then non-empty path segments, then the query component, then
// the fragment, each emitted only when present. The scheme is never a token.
// Pure and deterministic; the same URL always yields the same sequence.
func Tokenize(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		// Not parseable as a URL: fall back to the whole string as one token
		// so positional rules still have something to bite on.
		return []string{raw}
	}

	var tokens []string
	if host := parsed.Hostname(); host != "" {
		for _, part := range strings.Split(host, ".") {
			if part != "" {
				tokens = append(tokens, part)
			}
		}
	}

	for _, seg := range strings.Split(parsed.EscapedPath(), "/") {
		if seg != "" {
			tokens = append(tokens, seg)
		}
	}

	if parsed.RawQuery != "" {
		tokens = append(tokens, parsed.RawQuery)
	}
	if frag := parsed.EscapedFragment(); frag != "" {
		tokens = append(tokens, frag)
	}

	return tokens
}
