package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/markusmobius/go-trafilatura"
)

// HTMLStrategy pulls the main readable content out of saved web pages.
type HTMLStrategy struct{}

// NewHTMLStrategy creates the HTML strategy.
func NewHTMLStrategy() *HTMLStrategy { return &HTMLStrategy{} }

func (s *HTMLStrategy) Name() string { return "html" }

func (s *HTMLStrategy) Accepts(filename string) bool {
	return hasExtension(filename, ".html", ".htm")
}

func (s *HTMLStrategy) Extract(_ context.Context, path string) (string, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return guard(s.Name(), func() (string, error) {
		result, err := trafilatura.Extract(bytes.NewReader(body), trafilatura.Options{})
		if err != nil {
			return "", fmt.Errorf("failed to extract content: %w", err)
		}
		if result == nil || result.ContentText == "" {
			return "", ErrNoText
		}
		return result.ContentText, nil
	})
}
