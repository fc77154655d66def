package extract

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

var textExtensions = []string{".txt", ".text", ".csv", ".tsv", ".log", ".json", ".xml", ".rst"}

// TextStrategy reads plain text files verbatim. Files with no extension
// are accepted too.
type TextStrategy struct{}

// NewTextStrategy creates the plain text strategy.
func NewTextStrategy() *TextStrategy { return &TextStrategy{} }

func (s *TextStrategy) Name() string { return "text" }

func (s *TextStrategy) Accepts(filename string) bool {
	return filepath.Ext(filename) == "" || hasExtension(filename, textExtensions...)
}

func (s *TextStrategy) Extract(_ context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return strings.ToValidUTF8(string(data), ""), nil
	}
	return string(data), nil
}
