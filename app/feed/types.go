package feed

import (
	"time"
)

// Feed processing types

type Item struct {
	GUID        string // provider id, falls back to the link
	Title       string
	Link        string
	Description string
	Content     string // content:encoded when the feed carries it
	Author      string
	PublishedAt *time.Time
}

// Body returns the richest body the feed carried for the item.
func (i *Item) Body() string {
	switch {
	case i.Content != "":
		return i.Content
	default:
		return i.Description
	}
}

// Configuration types

type Source struct {
	Name       string         `yaml:"name"`
	URL        string         `yaml:"url"`
	Rule       string         `yaml:"rule"`
	Secrets    []string       `yaml:"secrets"`
	SortByDate bool           `yaml:"sort_by_date"`
	Enabled    *bool          `yaml:"enabled"`
	Filters    []SourceFilter `yaml:"filters"`
}

func (s Source) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

type SourceFilter struct {
	Field    string   `yaml:"field"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}
