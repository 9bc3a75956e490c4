package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"
)

// Fetcher downloads a source's feed and parses it into items.
type Fetcher struct {
	httpClient *http.Client
	parser     *Parser
	userAgent  string
	timeout    time.Duration
}

func NewFetcher(httpClient *http.Client, parser *Parser, userAgent string, timeout time.Duration) *Fetcher {
	return &Fetcher{
		httpClient: httpClient,
		parser:     parser,
		userAgent:  userAgent,
		timeout:    timeout,
	}
}

// Fetch returns the source's items in upstream order, or sorted newest first
// when the source does not guarantee ordering.
func (f *Fetcher) Fetch(ctx context.Context, source Source) ([]Item, error) {
	data, err := f.fetchFeed(ctx, source.URL)
	if err != nil {
		return nil, err
	}

	items, err := f.parser.Run(data)
	if err != nil {
		return nil, err
	}

	if source.SortByDate {
		SortNewestFirst(items)
	}

	return items, nil
}

func (f *Fetcher) fetchFeed(ctx context.Context, url string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

// SortNewestFirst orders items by publication date, newest first. Undated
// items keep their relative order after the dated ones.
func SortNewestFirst(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].PublishedAt, items[j].PublishedAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
}
