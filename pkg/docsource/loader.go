package docsource

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/expirywatch/expiry-engine/pkg/apperrors"
)

// Loader reads document content as plain text.
type Loader struct {
	logger *zap.Logger
}

// NewLoader creates a content loader.
func NewLoader(logger *zap.Logger) *Loader {
	return &Loader{logger: logger.Named("docsource")}
}

// Load extracts text content from a file based on its type.
// Binary formats without an extractor (pdf, docx) yield empty content with
// a warning; the document is still indexed by its metadata. Unknown types
// return ErrUnsupportedFormat.
func (l *Loader) Load(file FileInfo) (string, error) {
	switch file.FileType {
	case "txt", "md":
		data, err := os.ReadFile(file.Path)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", file.Path, err)
		}
		return string(data), nil

	case "html", "htm":
		data, err := os.ReadFile(file.Path)
		if err != nil {
			return "", fmt.Errorf("failed to read %s: %w", file.Path, err)
		}
		return extractHTMLText(string(data))

	case "pdf", "docx":
		l.logger.Warn("no text extractor for format, indexing metadata only",
			zap.String("path", file.Path),
			zap.String("file_type", file.FileType))
		return "", nil

	default:
		return "", fmt.Errorf("%s: %w", file.FileType, apperrors.ErrUnsupportedFormat)
	}
}

// extractHTMLText strips tags and returns the visible text of an HTML
// document, skipping script and style bodies.
func extractHTMLText(content string) (string, error) {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if sb.Len() > 0 {
					sb.WriteByte('\n')
				}
				sb.WriteString(text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return sb.String(), nil
}
