// Package docsource discovers and loads documents for analysis.
package docsource

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// mimeTypes maps supported extensions to their MIME types.
var mimeTypes = map[string]string{
	"pdf":  "application/pdf",
	"docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"txt":  "text/plain",
	"md":   "text/markdown",
	"html": "text/html",
	"htm":  "text/html",
}

// FileInfo describes one discovered candidate document.
type FileInfo struct {
	Path     string
	Filename string
	FileType string // extension without dot, lowercased
	MimeType string
	Size     int64
	ModTime  int64 // unix seconds
}

// Discoverer walks directories for analyzable documents.
type Discoverer struct {
	maxFileSize int64 // bytes
	logger      *zap.Logger
}

// NewDiscoverer creates a discoverer with the given size cap in megabytes.
func NewDiscoverer(maxFileSizeMB int, logger *zap.Logger) *Discoverer {
	return &Discoverer{
		maxFileSize: int64(maxFileSizeMB) * 1024 * 1024,
		logger:      logger.Named("docsource"),
	}
}

// Discover walks root and returns supported files matching the extension
// filter. Oversized files and unsupported types are skipped with a log
// line, never an error. Results are sorted by path for deterministic
// batch composition.
func (d *Discoverer) Discover(root string, recursive bool, extensions []string) ([]FileInfo, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("cannot access %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", root)
	}

	allowed := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		allowed[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}

	var files []FileInfo
	walkFn := func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			d.logger.Warn("skipping unreadable path", zap.String("path", path), zap.Error(err))
			if entry != nil && entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if entry.IsDir() {
			if !recursive && path != root {
				return fs.SkipDir
			}
			return nil
		}

		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
		if _, supported := mimeTypes[ext]; !supported {
			return nil
		}
		if len(allowed) > 0 && !allowed[ext] {
			return nil
		}

		fi, err := entry.Info()
		if err != nil {
			d.logger.Warn("skipping file without info", zap.String("path", path), zap.Error(err))
			return nil
		}
		if fi.Size() > d.maxFileSize {
			d.logger.Warn("skipping oversized file",
				zap.String("path", path),
				zap.Int64("size", fi.Size()),
				zap.Int64("max", d.maxFileSize))
			return nil
		}

		files = append(files, FileInfo{
			Path:     path,
			Filename: filepath.Base(path),
			FileType: ext,
			MimeType: mimeTypes[ext],
			Size:     fi.Size(),
			ModTime:  fi.ModTime().Unix(),
		})
		return nil
	}

	if err := filepath.WalkDir(root, walkFn); err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	d.logger.Info("discovery complete",
		zap.String("root", root),
		zap.Bool("recursive", recursive),
		zap.Int("files", len(files)))
	return files, nil
}

// SupportedExtensions returns all extensions the loader understands.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(mimeTypes))
	for ext := range mimeTypes {
		exts = append(exts, ext)
	}
	return exts
}
