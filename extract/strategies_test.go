package extract

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestTextStrategy(t *testing.T) {
	s := NewTextStrategy()
	assert.True(t, s.Accepts("notes.txt"))
	assert.True(t, s.Accepts("data.CSV"))
	assert.True(t, s.Accepts("README"))
	assert.False(t, s.Accepts("brochure.pdf"))

	path := writeFile(t, "fees.txt", "Tuition is due in August.\n")
	text, err := s.Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Tuition is due in August.\n", text)
}

func TestTextStrategy_InvalidUTF8(t *testing.T) {
	path := writeFile(t, "mixed.txt", "caf\xff\xfee")
	text, err := NewTextStrategy().Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "cafe", text)
}

func TestMarkdownStrategy(t *testing.T) {
	src := "# Admissions\n\nApply **before** the\ndeadline.\n\n- Transcript\n- ID proof\n\n```\nfee = 500\n```\n"
	path := writeFile(t, "guide.md", src)

	s := NewMarkdownStrategy()
	assert.True(t, s.Accepts("guide.md"))

	text, err := s.Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Contains(t, text, "Admissions")
	assert.Contains(t, text, "Apply before the\ndeadline.")
	assert.Contains(t, text, "Transcript")
	assert.Contains(t, text, "ID proof")
	assert.Contains(t, text, "fee = 500")
	assert.NotContains(t, text, "**")
	assert.NotContains(t, text, "#")
}

func TestDocxStrategy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>
<w:p><w:r><w:t>Hostel </w:t></w:r><w:r><w:t>rules</w:t></w:r></w:p>
<w:p><w:r><w:t>Curfew</w:t><w:tab/><w:t>10 PM</w:t></w:r></w:p>
</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	text, err := NewDocxStrategy().Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "Hostel rules\nCurfew\t10 PM\n", text)
}

func TestDocxStrategy_NotAZip(t *testing.T) {
	path := writeFile(t, "fake.docx", "plain text")
	_, err := NewDocxStrategy().Extract(context.Background(), path)
	assert.Error(t, err)
}

func TestXLSXStrategy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fees.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "Course"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "Fee"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "B.Tech"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", 85000))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	text, err := NewXLSXStrategy().Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Contains(t, text, "Sheet1\n")
	assert.Contains(t, text, "Course\tFee\n")
	assert.Contains(t, text, "B.Tech\t85000\n")
}

func TestHTMLStrategy(t *testing.T) {
	para := strings.Repeat("The library opens at eight in the morning and closes at ten at night on weekdays. ", 8)
	page := "<html><head><title>Library</title></head><body><nav><a href=\"/\">Home</a></nav>" +
		"<article><h1>Library hours</h1><p>" + para + "</p><p>" + para + "</p></article>" +
		"<footer>Copyright</footer></body></html>"
	path := writeFile(t, "library.html", page)

	s := NewHTMLStrategy()
	assert.True(t, s.Accepts("library.HTM"))

	text, err := s.Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Contains(t, text, "The library opens at eight")
}

func TestPDFStrategies_Accept(t *testing.T) {
	for _, s := range []Strategy{NewPDFLayoutStrategy(), NewPDFPlainStrategy(), NewPDFPagesStrategy()} {
		assert.True(t, s.Accepts("Prospectus.PDF"), s.Name())
		assert.False(t, s.Accepts("prospectus.docx"), s.Name())
	}
}
