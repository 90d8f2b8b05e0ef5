package document

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

var (
	ErrUnsupportedType = errors.New("unsupported document type")
	ErrInvalidText     = errors.New("document is not valid UTF-8 text")
)

// Kind classifies an upload by extension first, then by content type.
func Kind(name, contentType string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md", ".text":
		return "text"
	case ".pdf":
		return "pdf"
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	switch {
	case mediaType == "application/pdf":
		return "pdf"
	case strings.HasPrefix(mediaType, "text/"):
		return "text"
	}
	return ""
}

// Extract returns the plain text of an uploaded document.
// PDF pages are extracted one by one and joined with newlines.
func Extract(name, contentType string, data []byte) (string, error) {
	switch Kind(name, contentType) {
	case "text":
		if !utf8.Valid(data) {
			return "", ErrInvalidText
		}
		return string(data), nil
	case "pdf":
		return extractPDF(data)
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, name)
	}
}

func extractPDF(data []byte) (text string, err error) {
	// The pdf reader panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("failed to read pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	leaves := pageLeaves(reader.Trailer().Key("Root").Key("Pages"))
	pages := make([]string, 0, len(leaves))
	for i, page := range leaves {
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("failed to read pdf page %d: %w", i+1, err)
		}
		pages = append(pages, pageText)
	}

	return strings.TrimSpace(strings.Join(pages, "\n")), nil
}

const (
	maxPageTreeDepth = 32
	maxPageTreeNodes = 10000
)

// pageLeaves walks the page tree in document order. Reader.Page trusts the
// /Count entries and never returns when they overstate the tree, so the walk
// follows /Kids instead. Dangling references are skipped.
func pageLeaves(root pdf.Value) []pdf.Page {
	var (
		pages   []pdf.Page
		visited int
	)

	var walk func(node pdf.Value, depth int)
	walk = func(node pdf.Value, depth int) {
		if depth > maxPageTreeDepth {
			return
		}
		kids := node.Key("Kids")
		for i := 0; i < kids.Len(); i++ {
			visited++
			if visited > maxPageTreeNodes {
				return
			}

			kid := kids.Index(i)
			if kid.IsNull() {
				continue
			}
			switch kid.Key("Type").Name() {
			case "Pages":
				walk(kid, depth+1)
			case "Page":
				pages = append(pages, pdf.Page{V: kid})
			}
		}
	}
	walk(root, 0)

	return pages
}
