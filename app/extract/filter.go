package extract

import (
	"context"
	"log/slog"

	"github.com/lysyi3m/rss-digest/app/feed"
)

// FilterRule elides items matched by a source's configured filters before
// handing the rest to the wrapped rule.
type FilterRule struct {
	Source   string
	Filters  []feed.SourceFilter
	Filterer *feed.Filterer
	Next     Rule
}

func (r FilterRule) Extract(ctx context.Context, item *feed.Item) (Result, error) {
	if excluded, reason := r.Filterer.Run(item, r.Filters); excluded {
		slog.Debug("Item elided by filter", "source", r.Source, "guid", item.GUID, "reason", reason)
		return Elide(), nil
	}
	return r.Next.Extract(ctx, item)
}
