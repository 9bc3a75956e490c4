package extract

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/go-shiori/go-readability"
	"github.com/lysyi3m/rss-digest/app/feed"
)

// ReadabilityRule fetches the item's page and keeps what readability
// considers the article. Used for truncated feeds without a known layout.
type ReadabilityRule struct {
	Pages *PageFetcher
}

func (r ReadabilityRule) Extract(ctx context.Context, item *feed.Item) (Result, error) {
	data, err := r.Pages.Fetch(ctx, item.Link, item.Link)
	if err != nil {
		return Result{}, err
	}

	article, err := extractReadable(data, item.Link)
	if err != nil {
		return Result{}, err
	}

	return Rendered(renderArticle(item.Title, cmp.Or(item.Author, article.Byline), article.Content)), nil
}

func extractReadable(data []byte, pageURL string) (readability.Article, error) {
	if len(data) == 0 {
		return readability.Article{}, fmt.Errorf("HTML data is empty")
	}

	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return readability.Article{}, fmt.Errorf("invalid page URL: %w", err)
	}

	article, err := readability.FromReader(bytes.NewReader(data), parsedURL)
	if err != nil {
		return readability.Article{}, fmt.Errorf("failed to extract content: %w", err)
	}

	if article.Content == "" {
		return readability.Article{}, fmt.Errorf("no content extracted from HTML data")
	}

	slog.Debug("Content extracted successfully",
		"title", article.Title,
		"content_length", len(article.Content))

	return article, nil
}
