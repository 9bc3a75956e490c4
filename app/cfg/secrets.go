package cfg

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// Secrets resolves named credentials from the process environment first
// and then from the dotenv file.
type Secrets struct {
	file map[string]string
}

// LoadSecrets reads the dotenv file. A missing file is not an error.
func LoadSecrets(path string) (*Secrets, error) {
	if path == "" {
		return &Secrets{file: map[string]string{}}, nil
	}

	values, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Debug("Secrets file not found", "path", path)
		return &Secrets{file: map[string]string{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read secrets file: %w", err)
	}

	slog.Debug("Secrets file loaded", "path", path, "count", len(values))

	return &Secrets{file: values}, nil
}

func (s *Secrets) Secret(name string) (string, bool) {
	if value, ok := os.LookupEnv(name); ok {
		return value, true
	}
	value, ok := s.file[name]
	return value, ok
}

// Lookup returns the secret or an empty string, for use with os.Expand.
func (s *Secrets) Lookup(name string) string {
	value, _ := s.Secret(name)
	return value
}
