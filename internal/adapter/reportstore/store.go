// Package reportstore writes finished assessment reports to disk and renders them as HTML.
package reportstore

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/fairyhunter13/ai-interview-assessor/internal/domain"
)

const fileTimeLayout = "20060102_150405"

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileStore keeps one markdown file per report under Dir.
type FileStore struct {
	Dir string
}

// NewFileStore returns a store rooted at dir. The directory is created on first save.
func NewFileStore(dir string) *FileStore { return &FileStore{Dir: dir} }

// FileName returns report_ai_<candidate>_<YYYYMMDD_HHMMSS>.md.
func FileName(candidateID string, at time.Time) string {
	id := unsafeName.ReplaceAllString(candidateID, "_")
	if id == "" {
		id = "unknown"
	}
	return fmt.Sprintf("report_ai_%s_%s.md", id, at.Format(fileTimeLayout))
}

// Save writes report and returns the file path.
func (s *FileStore) Save(_ domain.Context, candidateID, report string, at time.Time) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("op=reportstore.save: %w", err)
	}
	path := filepath.Join(s.Dir, FileName(candidateID, at))
	if err := os.WriteFile(path, []byte(report), 0o644); err != nil {
		return "", fmt.Errorf("op=reportstore.save: %w", err)
	}
	return path, nil
}

// Load reads a report previously written by Save. Paths outside Dir are rejected.
func (s *FileStore) Load(_ domain.Context, path string) (string, error) {
	if !withinDir(path, s.Dir) {
		return "", fmt.Errorf("op=reportstore.load: %q outside report dir: %w", path, domain.ErrInvalidArgument)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("op=reportstore.load: %w", domain.ErrNotFound)
		}
		return "", fmt.Errorf("op=reportstore.load: %w", err)
	}
	return string(b), nil
}

func withinDir(path, dir string) bool {
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(os.PathSeparator)) && !filepath.IsAbs(rel)
}

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// RenderHTML converts a markdown report to an HTML fragment. Raw HTML in the
// report is not passed through.
func RenderHTML(report string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(report), &buf); err != nil {
		return "", fmt.Errorf("op=reportstore.render: %w", err)
	}
	return buf.String(), nil
}
