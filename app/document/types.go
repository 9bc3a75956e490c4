// Package document assembles the run's entries into one deliverable file.
package document

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Entry is one article in the digest. Body is an HTML fragment.
type Entry struct {
	Title string
	Body  string
}

// Artifact is a generated file ready for delivery.
type Artifact struct {
	Title       string
	Path        string
	ContentType string
}

func (a *Artifact) FileName() string {
	return filepath.Base(a.Path)
}

type Assembler interface {
	Assemble(ctx context.Context, title string, entries []Entry) (*Artifact, error)
}

const (
	FormatEPUB     = "epub"
	FormatMarkdown = "markdown"
	FormatRSS      = "rss"
)

// NewAssembler returns the assembler for format writing into outputDir.
func NewAssembler(format, outputDir, author string) (Assembler, error) {
	switch format {
	case FormatEPUB:
		return NewEPUBWriter(outputDir, author), nil
	case FormatMarkdown:
		return NewMarkdownWriter(outputDir), nil
	case FormatRSS:
		return NewRSSWriter(outputDir, author), nil
	default:
		return nil, fmt.Errorf("unknown document format '%s'", format)
	}
}

var unsafeFileChars = strings.NewReplacer("/", "-", "\\", "-", ":", "-", "\x00", "")

// outputPath builds the artifact path, creating the directory on demand.
func outputPath(dir, title, ext string) (string, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	return filepath.Join(dir, unsafeFileChars.Replace(title)+ext), nil
}

// writeFile writes data next to path and renames it into place.
func writeFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to move document into place: %w", err)
	}
	return nil
}
