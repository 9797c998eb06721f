// Package extractor turns uploaded document bytes into normalized plain text.
// The real format is sniffed from the byte signature; the content type a
// caller declares is never trusted on its own.
package extractor

import (
	"archive/zip"
	"bytes"
	"errors"
	"strings"
)

type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

var (
	// ErrUnsupportedFormat means the byte signature matches no known document container.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrTypeMismatch means the sniffed format disagrees with the declared content type.
	ErrTypeMismatch = errors.New("file content does not match declared type")
	// ErrExtractionFailed means the container has the right signature but the payload is corrupt or empty.
	ErrExtractionFailed = errors.New("failed to extract text")
)

var pdfSignature = []byte("%PDF")
var zipSignature = []byte("PK\x03\x04")

// Sniff identifies the document format from the byte prefix. A ZIP container
// only counts as DOCX when it carries the word/ package path that office
// documents have, which separates it from every other ZIP-based format.
func Sniff(data []byte) (Format, error) {
	if bytes.HasPrefix(data, pdfSignature) {
		return FormatPDF, nil
	}
	if bytes.HasPrefix(data, zipSignature) {
		r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return "", ErrUnsupportedFormat
		}
		for _, f := range r.File {
			if strings.HasPrefix(f.Name, "word/") {
				return FormatDOCX, nil
			}
		}
	}
	return "", ErrUnsupportedFormat
}

// Extract sniffs the real format, rejects a declared/sniffed mismatch and
// returns the document's plain text.
func Extract(data []byte, declared Format) (string, error) {
	sniffed, err := Sniff(data)
	if err != nil {
		return "", err
	}
	if sniffed != declared {
		return "", ErrTypeMismatch
	}

	switch sniffed {
	case FormatPDF:
		return extractPDF(data)
	case FormatDOCX:
		return extractDOCX(data)
	}
	return "", ErrUnsupportedFormat
}
