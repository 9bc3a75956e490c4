package watermark

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// FileStore keeps the marks as a flat JSON object.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Load(_ context.Context) Marks {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug("Watermark file not found, starting without cutoffs", "path", s.path)
		return Marks{}
	}
	if err != nil {
		slog.Warn("Failed to read watermark file, starting without cutoffs", "path", s.path, "error", err)
		return Marks{}
	}

	var marks Marks
	if err := json.Unmarshal(data, &marks); err != nil {
		slog.Warn("Corrupt watermark file, starting without cutoffs", "path", s.path, "error", err)
		return Marks{}
	}

	return marks.Clone()
}

// Save writes to a temporary file in the same directory and renames it over
// the old one, so a crash mid-write leaves the previous marks intact.
func (s *FileStore) Save(_ context.Context, marks Marks) error {
	data, err := json.MarshalIndent(marks.Clone(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode watermarks: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create watermark directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary watermark file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write watermarks: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync watermarks: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close watermark file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("failed to replace watermark file: %w", err)
	}

	return nil
}

func (s *FileStore) Close() error {
	return nil
}
