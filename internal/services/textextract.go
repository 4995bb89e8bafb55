package services

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	pdf "github.com/ledongthuc/pdf"
)

// ExtractText sniffs the uploaded bytes and extracts plain text. Supported:
// PDF, plain text / markdown. The sniff goes by magic bytes first; the
// filename extension is only a fallback signal.
func ExtractText(originalName string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty file: name=%s", originalName)
	}

	if isPDF(data) {
		return extractPDF(data)
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	if isProbablyText(data) || ext == ".txt" || ext == ".md" || ext == ".markdown" {
		return collapseWhitespace(string(data)), nil
	}

	if ext == ".pdf" {
		return "", fmt.Errorf("file claims pdf but is missing the %%PDF header: name=%s", originalName)
	}
	return "", fmt.Errorf("unsupported file type: name=%s ext=%s", originalName, ext)
}

func isPDF(b []byte) bool {
	return len(b) >= 5 && string(b[:5]) == "%PDF-"
}

func isProbablyText(b []byte) bool {
	sample := b
	if len(sample) > 4096 {
		sample = sample[:4096]
	}
	good := 0
	for _, c := range sample {
		if c == 0x00 {
			return false
		}
		if c == '\n' || c == '\r' || c == '\t' || (c >= 0x20 && c <= 0x7E) || c >= 0x80 {
			good++
		}
	}
	return float64(good)/float64(len(sample)) > 0.9
}

func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdf reader: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf plaintext: %w", err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("pdf read: %w", err)
	}
	return collapseWhitespace(string(b)), nil
}

var multiSpace = regexp.MustCompile(`[ \t]{2,}`)

func collapseWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = multiSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
