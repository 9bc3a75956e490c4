package extract

import (
	"context"
	"strings"

	"github.com/lysyi3m/rss-digest/app/feed"
)

// DefaultRule renders title, author and the feed's own body verbatim.
type DefaultRule struct{}

func (DefaultRule) Extract(_ context.Context, item *feed.Item) (Result, error) {
	return Rendered(renderArticle(item.Title, item.Author, item.Body())), nil
}

// AuthorRule replaces an unreliable or missing feed author.
type AuthorRule struct {
	Author string
}

func (r AuthorRule) Extract(ctx context.Context, item *feed.Item) (Result, error) {
	item.Author = r.Author
	return DefaultRule{}.Extract(ctx, item)
}

// TruncateRule cuts the body at the first boilerplate marker, such as a
// subscription upsell section.
type TruncateRule struct {
	Marker string
}

func (r TruncateRule) Extract(ctx context.Context, item *feed.Item) (Result, error) {
	item.Content = truncateAt(item.Body(), r.Marker)
	return DefaultRule{}.Extract(ctx, item)
}

func truncateAt(body, marker string) string {
	if marker == "" {
		return body
	}
	if idx := strings.Index(body, marker); idx > -1 {
		return body[:idx]
	}
	return body
}
