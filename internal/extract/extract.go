package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"
)

const (
	MethodText        = "text"
	MethodHTML        = "html"
	MethodPDFToText   = "pdftotext"
	MethodPDFLibrary  = "pdf-library"
	MethodOCR         = "ocr"
	MethodPlaceholder = "placeholder"
	MethodNone        = "none"
)

type Result struct {
	Text   string `json:"text"`
	Method string `json:"method"`
	Report Report `json:"report"`
}

// runFunc executes an external command and returns its stdout.
type runFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

// Extractor shells out to pdftotext and tesseract when they are installed.
type Extractor struct {
	PDFToText   string
	OCR         string
	OCRLanguage string
	Timeout     time.Duration

	run      runFunc
	lookPath func(string) (string, error)
}

func New(pdfToText, ocr, ocrLanguage string) *Extractor {
	return &Extractor{
		PDFToText:   pdfToText,
		OCR:         ocr,
		OCRLanguage: ocrLanguage,
		Timeout:     60 * time.Second,
		run:         runCommand,
		lookPath:    exec.LookPath,
	}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", name, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// Extract returns best-effort text for data. It never returns an error;
// failures are appended to the text as "[Error extracting NAME: msg]".
func (e *Extractor) Extract(ctx context.Context, data []byte, filename, mimeType string) (res Result) {
	name := filepath.Base(filename)
	res.Report = Validate(data, filename, mimeType)
	res.Method = MethodNone

	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "text extraction panicked", "file", name, "panic", r)
			res.Text = appendError(res.Text, name, fmt.Errorf("%v", r))
		}
	}()

	var (
		text string
		err  error
	)
	switch f := res.Report.DetectedFormat; {
	case f == FormatText:
		text, res.Method = decodeText(data), MethodText
	case f == FormatHTML:
		text, err = htmlText(data)
		res.Method = MethodHTML
	case f == FormatPDF:
		text, res.Method = e.pdfText(ctx, data, name)
	case f.IsImage():
		text, res.Method = e.ocrText(ctx, data, name, f)
	case f == FormatDOC || f == FormatDOCX:
		return Result{
			Text:   fmt.Sprintf("[Word document %s: text extraction is not available for this format]", name),
			Method: MethodPlaceholder,
			Report: res.Report,
		}
	default:
		err = fmt.Errorf("unsupported format %s", f)
	}

	if res.Method != MethodPlaceholder {
		text = Clean(text)
	}
	res.Text = text
	if err != nil {
		slog.WarnContext(ctx, "text extraction failed", "file", name, "error", err)
		res.Text = appendError(res.Text, name, err)
	}
	return res
}

func appendError(text, name string, err error) string {
	marker := fmt.Sprintf("[Error extracting %s: %s]", name, err)
	if text == "" {
		return marker
	}
	return text + "\n" + marker
}

func decodeText(data []byte) string {
	return string(bytes.TrimPrefix(data, utf8BOM))
}

// pdfText tries pdftotext, then the pure-Go reader, then a placeholder.
func (e *Extractor) pdfText(ctx context.Context, data []byte, name string) (string, string) {
	if text, err := e.runOnTempFile(ctx, e.PDFToText, data, ".pdf", func(path string) []string {
		return []string{"-layout", "-enc", "UTF-8", path, "-"}
	}); err == nil && strings.TrimSpace(text) != "" {
		return text, MethodPDFToText
	} else if err != nil {
		slog.DebugContext(ctx, "pdftotext unavailable", "file", name, "error", err)
	}

	if text, err := pdfLibraryText(data); err == nil && strings.TrimSpace(text) != "" {
		return text, MethodPDFLibrary
	} else if err != nil {
		slog.DebugContext(ctx, "pdf library failed", "file", name, "error", err)
	}

	return fmt.Sprintf("[PDF %s: no extractable text (scanned document or text extraction unavailable)]", name), MethodPlaceholder
}

func pdfLibraryText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader: %v", r)
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(pageText)
		b.WriteString("\n\n")
	}
	return b.String(), nil
}

func (e *Extractor) ocrText(ctx context.Context, data []byte, name string, f Format) (string, string) {
	lang := e.OCRLanguage
	if lang == "" {
		lang = "eng"
	}
	text, err := e.runOnTempFile(ctx, e.OCR, data, "."+string(f), func(path string) []string {
		return []string{path, "stdout", "-l", lang}
	})
	if err == nil && strings.TrimSpace(text) != "" {
		return text, MethodOCR
	}
	if err != nil {
		slog.DebugContext(ctx, "ocr unavailable", "file", name, "error", err)
	}
	return fmt.Sprintf("[Image %s: OCR is not available or found no text]", name), MethodPlaceholder
}

var errToolMissing = errors.New("tool not installed")

// runOnTempFile writes data to a temp file and runs tool on it.
func (e *Extractor) runOnTempFile(ctx context.Context, tool string, data []byte, ext string, args func(path string) []string) (string, error) {
	if tool == "" {
		return "", errToolMissing
	}
	if _, err := e.lookPath(tool); err != nil {
		return "", fmt.Errorf("%s: %w", tool, errToolMissing)
	}

	f, err := os.CreateTemp("", "lawdesk-extract-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := e.run(ctx, tool, args(f.Name())...)
	if err != nil {
		return "", err
	}
	return strings.ToValidUTF8(string(out), ""), nil
}

func htmlText(data []byte) (string, error) {
	doc, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "head", "noscript":
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode {
			switch n.Data {
			case "p", "div", "br", "li", "tr", "h1", "h2", "h3", "h4", "h5", "h6":
				b.WriteString("\n")
			}
		}
	}
	walk(doc)
	return b.String(), nil
}
