package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	htmlTagPattern    = regexp.MustCompile(`<[^>]+>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
	utf8BOM           = []byte{0xEF, 0xBB, 0xBF}
)

// ReadFileText loads a source file and normalises it to plain text ready for
// URL extraction. JSON files are re-rendered so URLs inside values surface;
// HTML files have their tags stripped; everything else is treated as text.
func ReadFileText(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return readJSONFile(path)
	case ".html", ".htm":
		return readHTMLFile(path)
	default:
		return readTextFile(path)
	}
}

func readTextFile(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return decodeText(raw), nil
}

func readJSONFile(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	var data interface{}
	if err := json.Unmarshal(bytes.TrimPrefix(raw, utf8BOM), &data); err != nil {
		return "", fmt.Errorf("parse json %s: %w", path, err)
	}
	rendered, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("render json %s: %w", path, err)
	}
	return string(rendered), nil
}

func readHTMLFile(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	text := htmlTagPattern.ReplaceAllString(decodeText(raw), " ")
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " ")), nil
}

// decodeText strips a UTF-8 BOM and falls back to a latin-1 reading for
// files that are not valid UTF-8, so legacy link dumps still ingest.
func decodeText(raw []byte) string {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if utf8.Valid(raw) {
		return string(raw)
	}
	runes := make([]rune, len(raw))
	for i, b := range raw {
		runes[i] = rune(b)
	}
	return string(runes)
}
