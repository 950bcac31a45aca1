package extract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectFormat(t *testing.T) {
	cases := map[string]Format{
		"%PDF-1.7 ...":              FormatPDF,
		"PK\x03\x04rest":            FormatDOCX,
		"\xD0\xCF\x11\xE0rest":      FormatDOC,
		"\xFF\xD8\xFF\xE0":          FormatJPEG,
		"\x89PNG\r\n":               FormatPNG,
		"GIF89a":                    FormatGIF,
		"II*\x00":                   FormatTIFF,
		"MM\x00*":                   FormatTIFF,
		"BM....":                    FormatBMP,
		"  <!DOCTYPE html><p>x</p>": FormatHTML,
		"plain contract text":       FormatText,
		"\xff\xfe\xfd":              FormatUnknown,
		"":                          FormatUnknown,
	}
	for in, want := range cases {
		assert.Equal(t, want, DetectFormat([]byte(in)), "%q", in)
	}
}

func TestDeclaredFormat(t *testing.T) {
	assert.Equal(t, FormatPDF, DeclaredFormat("x.bin", "application/pdf"))
	assert.Equal(t, FormatText, DeclaredFormat("x", "text/markdown; charset=utf-8"))
	assert.Equal(t, FormatDOCX, DeclaredFormat("brief.DOCX", "application/octet-stream"))
	assert.Equal(t, FormatUnknown, DeclaredFormat("noext", ""))
}

func TestValidateMismatchIsWarningOnly(t *testing.T) {
	r := Validate([]byte("%PDF-1.4 body"), "scan.png", "image/png")
	assert.Equal(t, FormatPDF, r.DetectedFormat)
	assert.Equal(t, FormatPNG, r.DeclaredFormat)
	assert.True(t, r.Valid)
	require.Len(t, r.Warnings, 1)
	assert.Contains(t, r.Warnings[0], "does not match")
}

func TestValidateOversizeWarns(t *testing.T) {
	data := []byte(strings.Repeat("a", 5*mb+1))
	r := Validate(data, "big.txt", "text/plain")
	assert.True(t, r.Valid)
	require.Len(t, r.Warnings, 1)
	assert.Contains(t, r.Warnings[0], "exceeds")
}

func newTestExtractor(run runFunc) *Extractor {
	e := New("pdftotext", "tesseract", "eng")
	e.lookPath = func(s string) (string, error) { return "/usr/bin/" + s, nil }
	e.run = run
	return e
}

func TestExtractPlainText(t *testing.T) {
	e := New("", "", "")
	res := e.Extract(context.Background(), []byte("Acme Corp  signed\r\n\r\n\r\n\r\nthe deal."), "a.txt", "text/plain")
	assert.Equal(t, MethodText, res.Method)
	assert.Equal(t, "Acme Corp. signed\n\nthe deal.", res.Text)
}

func TestExtractHTMLSkipsScripts(t *testing.T) {
	e := New("", "", "")
	page := `<html><head><title>t</title><style>p{}</style></head><body><p>Hello</p><script>alert(1)</script><p>World</p></body></html>`
	res := e.Extract(context.Background(), []byte(page), "a.html", "text/html")
	assert.Equal(t, MethodHTML, res.Method)
	assert.Equal(t, "Hello\nWorld", res.Text)
}

func TestExtractPDFUsesPdftotext(t *testing.T) {
	var called []string
	e := newTestExtractor(func(_ context.Context, name string, args ...string) ([]byte, error) {
		called = append(called, name)
		return []byte("Smith v . Jones, 42 U. S. C. §1983"), nil
	})
	res := e.Extract(context.Background(), []byte("%PDF-1.4"), "brief.pdf", "application/pdf")
	assert.Equal(t, MethodPDFToText, res.Method)
	assert.Equal(t, []string{"pdftotext"}, called)
	assert.Equal(t, "Smith v. Jones, 42 U.S.C. § 1983", res.Text)
}

func TestExtractPDFFallsBackToPlaceholder(t *testing.T) {
	e := newTestExtractor(func(context.Context, string, ...string) ([]byte, error) {
		return nil, errors.New("exit status 1")
	})
	res := e.Extract(context.Background(), []byte("%PDF-1.4 not really a pdf"), "scan.pdf", "application/pdf")
	assert.Equal(t, MethodPlaceholder, res.Method)
	assert.Contains(t, res.Text, "scan.pdf")
}

func TestExtractImageOCR(t *testing.T) {
	e := newTestExtractor(func(_ context.Context, name string, args ...string) ([]byte, error) {
		require.Equal(t, "tesseract", name)
		require.Equal(t, []string{"stdout", "-l", "eng"}, args[1:])
		return []byte("Tbe c0urt ruled"), nil
	})
	res := e.Extract(context.Background(), []byte("\x89PNG\r\n\x1a\n"), "page.png", "image/png")
	assert.Equal(t, MethodOCR, res.Method)
	assert.Equal(t, "The court ruled", res.Text)
}

func TestExtractWordIsPlaceholder(t *testing.T) {
	res := New("", "", "").Extract(context.Background(), []byte("PK\x03\x04..."), "memo.docx", "")
	assert.Equal(t, MethodPlaceholder, res.Method)
	assert.Contains(t, res.Text, "memo.docx")
}

func TestExtractNeverPanics(t *testing.T) {
	e := newTestExtractor(func(context.Context, string, ...string) ([]byte, error) {
		panic("boom")
	})
	res := e.Extract(context.Background(), []byte("%PDF-1.4"), "x.pdf", "")
	assert.Contains(t, res.Text, "[Error extracting x.pdf: boom]")
}

func TestExtractUnknownFormat(t *testing.T) {
	res := New("", "", "").Extract(context.Background(), []byte("\xff\xfe\xfd"), "blob.bin", "")
	assert.False(t, res.Report.Valid)
	assert.Contains(t, res.Text, "[Error extracting blob.bin: unsupported format unknown]")
}

func TestCleanStripsRepeatedHeadersAndPageNumbers(t *testing.T) {
	in := strings.Join([]string{
		"CONFIDENTIAL", "First paragraph.", "Page 1 of 3",
		"CONFIDENTIAL", "Second paragraph.", "- 2 -",
		"CONFIDENTIAL", "Third paragraph.", "3",
	}, "\n")
	assert.Equal(t, "First paragraph.\nSecond paragraph.\nThird paragraph.", Clean(in))
}

func TestCleanAbbreviationsAndCitations(t *testing.T) {
	assert.Equal(t, "Acme Inc. and Beta LLC, case No. 12", Clean("Acme Inc and Beta L.L.C., case no 12"))
	assert.Equal(t, "see 123 F.3d 456", Clean("see 123 F. 3d 456"))
	assert.Equal(t, "I agree", Clean("| agree"))
}
