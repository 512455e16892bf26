package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractURLs(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "two urls in prose",
			text: "check https://example.com/a and also http://other.net/b today",
			want: []string{"https://example.com/a", "http://other.net/b"},
		},
		{
			name: "trailing sentence punctuation stripped",
			text: "read this: https://example.com/post.",
			want: []string{"https://example.com/post"},
		},
		{
			name: "comma and question mark stripped",
			text: "https://example.com/a, then https://example.com/b?",
			want: []string{"https://example.com/a", "https://example.com/b"},
		},
		{
			name: "parenthesis is kept for the tokenizer to trim",
			text: "(see https://example.com/wiki_(band))",
			want: []string{"https://example.com/wiki_(band))"},
		},
		{
			name: "quotes delimit urls in markup",
			text: `<a href="https://example.com/linked">click</a>`,
			want: []string{"https://example.com/linked"},
		},
		{
			name: "angle brackets delimit",
			text: "<https://example.com/wrapped>",
			want: []string{"https://example.com/wrapped"},
		},
		{
			name: "no scheme no match",
			text: "www.example.com and ftp://example.com/f",
			want: []string{},
		},
		{
			name: "query and fragment survive",
			text: "https://example.com/p?tags=cat&page=2#top done",
			want: []string{"https://example.com/p?tags=cat&page=2#top"},
		},
		{
			name: "empty text",
			text: "",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractURLs(tt.text))
		})
	}
}

func TestExtractURLs_OrderPreserved(t *testing.T) {
	text := "https://z.example.com first https://a.example.com second https://m.example.com third"
	got := ExtractURLs(text)
	assert.Equal(t, []string{
		"https://z.example.com",
		"https://a.example.com",
		"https://m.example.com",
	}, got)
}
