package extract

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

var pdfExtensions = []string{".pdf"}

// PDFLayoutStrategy reads each page row by row, preserving the visual line order.
// It fails on the first unreadable page.
type PDFLayoutStrategy struct{}

// NewPDFLayoutStrategy creates the row-ordered PDF strategy.
func NewPDFLayoutStrategy() *PDFLayoutStrategy { return &PDFLayoutStrategy{} }

func (s *PDFLayoutStrategy) Name() string { return "pdf-layout" }

func (s *PDFLayoutStrategy) Accepts(filename string) bool {
	return hasExtension(filename, pdfExtensions...)
}

func (s *PDFLayoutStrategy) Extract(ctx context.Context, path string) (string, error) {
	return guard(s.Name(), func() (string, error) {
		f, r, err := pdf.Open(path)
		if err != nil {
			return "", fmt.Errorf("failed to open PDF: %w", err)
		}
		defer f.Close()

		var sb strings.Builder
		for i := 1; i <= r.NumPage(); i++ {
			if err := ctx.Err(); err != nil {
				return "", err
			}
			page := r.Page(i)
			if page.V.IsNull() {
				continue
			}
			rows, err := page.GetTextByRow()
			if err != nil {
				return "", fmt.Errorf("page %d: %w", i, err)
			}
			for _, row := range rows {
				for _, word := range row.Content {
					sb.WriteString(word.S)
				}
				sb.WriteByte('\n')
			}
			sb.WriteString("\n\n")
		}
		return sb.String(), nil
	})
}

// PDFPlainStrategy reads the whole document's plain text in one pass.
type PDFPlainStrategy struct{}

// NewPDFPlainStrategy creates the whole-document PDF strategy.
func NewPDFPlainStrategy() *PDFPlainStrategy { return &PDFPlainStrategy{} }

func (s *PDFPlainStrategy) Name() string { return "pdf-plain" }

func (s *PDFPlainStrategy) Accepts(filename string) bool {
	return hasExtension(filename, pdfExtensions...)
}

func (s *PDFPlainStrategy) Extract(ctx context.Context, path string) (string, error) {
	return guard(s.Name(), func() (string, error) {
		f, r, err := pdf.Open(path)
		if err != nil {
			return "", fmt.Errorf("failed to open PDF: %w", err)
		}
		defer f.Close()

		reader, err := r.GetPlainText()
		if err != nil {
			return "", err
		}
		data, err := io.ReadAll(reader)
		if err != nil {
			return "", err
		}
		return string(data), nil
	})
}

// PDFPagesStrategy is the minimal reader: pages that fail to decode are skipped.
type PDFPagesStrategy struct{}

// NewPDFPagesStrategy creates the page-tolerant PDF strategy.
func NewPDFPagesStrategy() *PDFPagesStrategy { return &PDFPagesStrategy{} }

func (s *PDFPagesStrategy) Name() string { return "pdf-pages" }

func (s *PDFPagesStrategy) Accepts(filename string) bool {
	return hasExtension(filename, pdfExtensions...)
}

func (s *PDFPagesStrategy) Extract(ctx context.Context, path string) (string, error) {
	return guard(s.Name(), func() (string, error) {
		f, r, err := pdf.Open(path)
		if err != nil {
			return "", fmt.Errorf("failed to open PDF: %w", err)
		}
		defer f.Close()

		var sb strings.Builder
		for i := 1; i <= r.NumPage(); i++ {
			if err := ctx.Err(); err != nil {
				return "", err
			}
			text, ok := pageText(r.Page(i))
			if !ok {
				continue
			}
			sb.WriteString(text)
			sb.WriteString("\n\n")
		}
		return sb.String(), nil
	})
}

// pageText returns the plain text of one page, false if it cannot be read.
func pageText(page pdf.Page) (text string, ok bool) {
	defer func() {
		if recover() != nil {
			text, ok = "", false
		}
	}()
	if page.V.IsNull() {
		return "", false
	}
	text, err := page.GetPlainText(nil)
	if err != nil {
		return "", false
	}
	return text, true
}
