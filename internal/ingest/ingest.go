// Package ingest extracts plain text from uploaded documents.
package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"golang.org/x/text/unicode/norm"

	"github.com/ahrav/go-precis/internal/domain"
)

// ErrUnsupportedFormat indicates a file extension other than .txt or .pdf.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ErrTooLarge indicates the upload exceeded the configured size limit.
var ErrTooLarge = errors.New("file too large")

// Format is a supported upload format.
type Format string

// Supported formats.
const (
	FormatText Format = "txt"
	FormatPDF  Format = "pdf"
)

const utf8BOM = "\ufeff"

// FormatFor picks the format from a file name's extension, case-insensitively.
func FormatFor(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt":
		return FormatText, nil
	case ".pdf":
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("%w: %q (expected .txt or .pdf)", ErrUnsupportedFormat, filename)
	}
}

// Extract reads at most limit bytes from r and returns the document text.
// A non-positive limit means no limit.
func Extract(filename string, r io.Reader, limit int64) (string, error) {
	format, err := FormatFor(filename)
	if err != nil {
		return "", err
	}

	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", filename, err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return "", fmt.Errorf("%w: %s exceeds %d bytes: %w", ErrTooLarge, filename, limit, domain.ErrInvalidInput)
	}

	switch format {
	case FormatPDF:
		return ExtractPDF(data)
	default:
		return ExtractText(data)
	}
}

// ExtractText decodes a UTF-8 text file. A leading byte order mark is
// dropped and the result is normalized to NFC.
func ExtractText(data []byte) (string, error) {
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: text file is not valid UTF-8", domain.ErrInvalidInput)
	}
	text := strings.TrimPrefix(string(data), utf8BOM)
	return nonBlank(norm.NFC.String(text))
}

// ExtractPDF returns the plain text of every page, one page per line group.
// Pages without a text layer contribute nothing.
func ExtractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse PDF: %w: %w", domain.ErrInvalidInput, err)
	}

	var text strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil || content == "" {
			continue
		}
		text.WriteString(content)
		text.WriteString("\n")
	}
	return nonBlank(norm.NFC.String(text.String()))
}

func nonBlank(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("document contains no text: %w", domain.ErrEmptyValue)
	}
	return text, nil
}
