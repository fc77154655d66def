package extract

import (
	"context"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownStrategy renders Markdown to plain text, dropping markup but
// keeping one block per paragraph.
type MarkdownStrategy struct {
	md goldmark.Markdown
}

// NewMarkdownStrategy creates the Markdown strategy.
func NewMarkdownStrategy() *MarkdownStrategy {
	return &MarkdownStrategy{md: goldmark.New()}
}

func (s *MarkdownStrategy) Name() string { return "markdown" }

func (s *MarkdownStrategy) Accepts(filename string) bool {
	return hasExtension(filename, ".md", ".markdown")
}

func (s *MarkdownStrategy) Extract(_ context.Context, path string) (string, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	doc := s.md.Parser().Parse(text.NewReader(src))

	var sb strings.Builder
	err = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				sb.Write(node.Segment.Value(src))
				if node.SoftLineBreak() || node.HardLineBreak() {
					sb.WriteByte('\n')
				}
			}
			return ast.WalkContinue, nil
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			if entering {
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					sb.Write(seg.Value(src))
				}
			}
		}
		if !entering && n.Type() == ast.TypeBlock && n.Kind() != ast.KindDocument {
			sb.WriteString("\n\n")
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}
