package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

func parseDocument(data []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}
	return doc, nil
}

func stripNodes(sel *goquery.Selection, selectors []string) {
	for _, selector := range selectors {
		sel.Find(selector).Remove()
	}
}

// cleanFragment removes noise nodes from an HTML fragment and returns the
// remaining markup.
func cleanFragment(fragment string, selectors []string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return "", fmt.Errorf("failed to parse body: %w", err)
	}

	stripNodes(doc.Selection, selectors)

	body, err := doc.Find("body").Html()
	if err != nil {
		return "", fmt.Errorf("failed to render body: %w", err)
	}
	return body, nil
}
