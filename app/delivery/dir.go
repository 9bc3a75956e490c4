package delivery

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lysyi3m/rss-digest/app/document"
)

// DirSink copies artifacts into a directory, such as a mounted e-reader or a
// synced cloud folder.
type DirSink struct {
	dir string
}

func NewDirSink(dir string) *DirSink {
	return &DirSink{dir: dir}
}

func (s *DirSink) Deliver(ctx context.Context, artifact *document.Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.dir == "" {
		return fmt.Errorf("sink directory is not configured")
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create sink directory: %w", err)
	}

	src, err := os.Open(artifact.Path)
	if err != nil {
		return fmt.Errorf("failed to open artifact: %w", err)
	}
	defer src.Close()

	target := filepath.Join(s.dir, artifact.FileName())

	tmp, err := os.CreateTemp(s.dir, ".delivery-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to copy artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to sync artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close artifact: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set artifact permissions: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move artifact into place: %w", err)
	}

	slog.Info("Artifact delivered", "sink", KindDir, "path", target)

	return nil
}
