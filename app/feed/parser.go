package feed

import (
	"bytes"
	"cmp"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
)

type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

// Run parses RSS, Atom or JSON feed data. Items keep the upstream order.
func (p *Parser) Run(data []byte) ([]Item, error) {
	feed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	items := make([]Item, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		items = append(items, p.normalizeItem(item))
	}

	return items, nil
}

func (p *Parser) normalizeItem(item *gofeed.Item) Item {
	normalized := Item{
		GUID:        strings.TrimSpace(cmp.Or(item.GUID, item.Link)),
		Title:       item.Title,
		Link:        item.Link,
		Description: item.Description,
		Content:     item.Content,
		Author:      p.extractAuthor(item),
	}

	if item.PublishedParsed != nil {
		normalized.PublishedAt = item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		normalized.PublishedAt = item.UpdatedParsed
	}

	return normalized
}

// extractAuthor prefers the item author and falls back to the first of the
// listed authors. gofeed maps dc:creator onto the item author for RSS.
func (p *Parser) extractAuthor(item *gofeed.Item) string {
	if item.Author != nil {
		if name := p.formatAuthor(item.Author); name != "" {
			return name
		}
	}

	for _, author := range item.Authors {
		if name := p.formatAuthor(author); name != "" {
			return name
		}
	}

	return ""
}

func (p *Parser) formatAuthor(author *gofeed.Person) string {
	if author == nil {
		return ""
	}
	return strings.TrimSpace(cmp.Or(author.Name, author.Email))
}
