// Package extract turns uploaded bytes into plain text. It sniffs the real
// format, compares it with what the client declared, dispatches to a
// format-specific extractor and cleans the result. It never fails: problems
// end up as warnings or inline error markers in the text.
package extract

import (
	"bytes"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

type Format string

const (
	FormatPDF     Format = "pdf"
	FormatDOCX    Format = "docx"
	FormatDOC     Format = "doc"
	FormatJPEG    Format = "jpeg"
	FormatPNG     Format = "png"
	FormatGIF     Format = "gif"
	FormatTIFF    Format = "tiff"
	FormatBMP     Format = "bmp"
	FormatHTML    Format = "html"
	FormatText    Format = "text"
	FormatUnknown Format = "unknown"
)

func (f Format) IsImage() bool {
	switch f {
	case FormatJPEG, FormatPNG, FormatGIF, FormatTIFF, FormatBMP:
		return true
	}
	return false
}

const mb = 1 << 20

// MaxSize is the recommended upper bound per format. Larger files only
// produce a warning.
var MaxSize = map[Format]int64{
	FormatPDF:  50 * mb,
	FormatDOCX: 25 * mb,
	FormatDOC:  25 * mb,
	FormatJPEG: 10 * mb,
	FormatPNG:  10 * mb,
	FormatGIF:  10 * mb,
	FormatTIFF: 10 * mb,
	FormatBMP:  10 * mb,
	FormatText: 5 * mb,
	FormatHTML: 5 * mb,
}

var signatures = []struct {
	magic  []byte
	format Format
}{
	{[]byte("%PDF"), FormatPDF},
	{[]byte("PK\x03\x04"), FormatDOCX},
	{[]byte("\xD0\xCF\x11\xE0"), FormatDOC},
	{[]byte("\xFF\xD8\xFF"), FormatJPEG},
	{[]byte("\x89PNG"), FormatPNG},
	{[]byte("GIF8"), FormatGIF},
	{[]byte("II*\x00"), FormatTIFF},
	{[]byte("MM\x00*"), FormatTIFF},
	{[]byte("BM"), FormatBMP},
}

var utf8BOM = []byte("\xEF\xBB\xBF")

// DetectFormat identifies data by its leading bytes.
func DetectFormat(data []byte) Format {
	for _, sig := range signatures {
		if bytes.HasPrefix(data, sig.magic) {
			return sig.format
		}
	}
	if len(data) == 0 || !utf8.Valid(data) {
		return FormatUnknown
	}
	head := bytes.TrimSpace(bytes.TrimPrefix(data, utf8BOM))
	if len(head) > 512 {
		head = head[:512]
	}
	lower := bytes.ToLower(head)
	if bytes.HasPrefix(lower, []byte("<!doctype html")) || bytes.HasPrefix(lower, []byte("<html")) {
		return FormatHTML
	}
	return FormatText
}

var mimeFormats = map[string]Format{
	"application/pdf":    FormatPDF,
	"application/msword": FormatDOC,
	"image/jpeg":         FormatJPEG,
	"image/jpg":          FormatJPEG,
	"image/png":          FormatPNG,
	"image/gif":          FormatGIF,
	"image/tiff":         FormatTIFF,
	"image/bmp":          FormatBMP,
	"text/html":          FormatHTML,
	"text/plain":         FormatText,

	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": FormatDOCX,
}

var extFormats = map[string]Format{
	".pdf":  FormatPDF,
	".doc":  FormatDOC,
	".docx": FormatDOCX,
	".jpg":  FormatJPEG,
	".jpeg": FormatJPEG,
	".png":  FormatPNG,
	".gif":  FormatGIF,
	".tif":  FormatTIFF,
	".tiff": FormatTIFF,
	".bmp":  FormatBMP,
	".htm":  FormatHTML,
	".html": FormatHTML,
	".txt":  FormatText,
	".md":   FormatText,
	".csv":  FormatText,
	".rtf":  FormatText,
}

// DeclaredFormat derives the claimed format from the MIME type, then from
// the filename extension.
func DeclaredFormat(filename, mimeType string) Format {
	if mt, _, err := mime.ParseMediaType(mimeType); err == nil {
		if f, ok := mimeFormats[mt]; ok {
			return f
		}
		if strings.HasPrefix(mt, "text/") {
			return FormatText
		}
	}
	if f, ok := extFormats[strings.ToLower(filepath.Ext(filename))]; ok {
		return f
	}
	return FormatUnknown
}

type Report struct {
	DetectedFormat Format   `json:"detected_format"`
	DeclaredFormat Format   `json:"declared_format"`
	Size           int64    `json:"size"`
	Valid          bool     `json:"valid"`
	Warnings       []string `json:"warnings"`
}

// Validate inspects data. A mismatch or an oversized file is a warning,
// never a rejection.
func Validate(data []byte, filename, mimeType string) Report {
	r := Report{
		DetectedFormat: DetectFormat(data),
		DeclaredFormat: DeclaredFormat(filename, mimeType),
		Size:           int64(len(data)),
		Warnings:       []string{},
	}
	r.Valid = r.DetectedFormat != FormatUnknown

	if len(data) == 0 {
		r.Warnings = append(r.Warnings, "file is empty")
	}
	if r.DeclaredFormat != FormatUnknown && r.DetectedFormat != FormatUnknown && r.DeclaredFormat != r.DetectedFormat {
		r.Warnings = append(r.Warnings, fmt.Sprintf(
			"declared format %s does not match detected format %s", r.DeclaredFormat, r.DetectedFormat))
	}
	if r.DetectedFormat == FormatUnknown && len(data) > 0 {
		r.Warnings = append(r.Warnings, "could not determine file format")
	}
	if limit, ok := MaxSize[r.DetectedFormat]; ok && r.Size > limit {
		r.Warnings = append(r.Warnings, fmt.Sprintf(
			"file size %.1f MB exceeds the recommended maximum of %d MB for %s",
			float64(r.Size)/mb, limit/mb, r.DetectedFormat))
	}
	return r
}
