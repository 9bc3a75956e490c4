// Package watermark persists, per source, the identifier of the newest item
// seen by the last successful run.
package watermark

import (
	"context"
	"maps"
)

// Marks maps a source name to the last seen item GUID.
type Marks map[string]string

func (m Marks) Clone() Marks {
	if m == nil {
		return Marks{}
	}
	return maps.Clone(m)
}

// Store loads the marks at the start of a run and overwrites them at the end
// of a successful one. Load never fails: a missing or unreadable store means
// no cutoff for any source.
type Store interface {
	Load(ctx context.Context) Marks
	Save(ctx context.Context, marks Marks) error
	Close() error
}
