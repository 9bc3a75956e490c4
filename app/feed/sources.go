package feed

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

type sourcesFile struct {
	Feeds []Source `yaml:"feeds"`
}

var validFilterFields = map[string]bool{
	"title":       true,
	"description": true,
	"content":     true,
	"author":      true,
	"link":        true,
}

// LoadSources reads the ordered source list. ${VAR} references in feed URLs
// are expanded through lookup (the environment when nil) so private feed URLs
// stay out of the file. Disabled sources are dropped; list order is the
// delivery order.
func LoadSources(path string, lookup func(string) string) ([]Source, error) {
	if lookup == nil {
		lookup = os.Getenv
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var file sourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	seen := make(map[string]bool, len(file.Feeds))
	sources := make([]Source, 0, len(file.Feeds))
	for i, source := range file.Feeds {
		source.URL = os.Expand(source.URL, lookup)

		if err := validateSource(source); err != nil {
			return nil, fmt.Errorf("invalid feed at index %d: %w", i, err)
		}
		if seen[source.Name] {
			return nil, fmt.Errorf("duplicate feed name '%s'", source.Name)
		}
		seen[source.Name] = true

		if !source.IsEnabled() {
			slog.Debug("Feed disabled, skipping", "source", source.Name)
			continue
		}

		sources = append(sources, source)
	}

	return sources, nil
}

func validateSource(source Source) error {
	if source.Name == "" {
		return fmt.Errorf("feed name is required")
	}
	if source.URL == "" {
		return fmt.Errorf("feed URL is required for '%s'", source.Name)
	}

	for i, filter := range source.Filters {
		if !validFilterFields[filter.Field] {
			return fmt.Errorf("invalid filter field at index %d: %s", i, filter.Field)
		}
		if len(filter.Includes) == 0 && len(filter.Excludes) == 0 {
			return fmt.Errorf("filter at index %d must have at least one include or exclude rule", i)
		}
	}

	return nil
}
