package extract

import (
	"context"
	"strings"

	"github.com/lysyi3m/rss-digest/app/feed"
)

// Substack markup carries heading anchors, webp <source> elements that break
// e-readers, and image expand links.
var substackNoise = []string{
	".header-anchor-widget",
	"source",
	"div.image-link-expand",
}

// SubstackRule cleans newsletter bodies and drops open threads.
type SubstackRule struct{}

func (SubstackRule) Extract(_ context.Context, item *feed.Item) (Result, error) {
	if strings.Contains(strings.ToLower(item.Title), "open thread") {
		return Elide(), nil
	}

	body, err := cleanFragment(item.Body(), substackNoise)
	if err != nil {
		return Result{}, err
	}

	return Rendered(renderArticle(item.Title, item.Author, body)), nil
}

// SlowBoringRule reads the paywalled post with the subscriber session cookie.
// Comment threads and audio-only teasers are dropped.
type SlowBoringRule struct {
	Page PageRule
}

func NewSlowBoringRule(pages *PageFetcher, secrets SecretSource) SlowBoringRule {
	return SlowBoringRule{
		Page: PageRule{
			Pages:    pages,
			Secrets:  secrets,
			Site:     "https://www.slowboring.com",
			Cookie:   &Cookie{Name: "connect.sid", Secret: "SLOW_BORING_COOKIE"},
			Selector: ".markup",
			Strip:    substackNoise,
		},
	}
}

func (r SlowBoringRule) Extract(ctx context.Context, item *feed.Item) (Result, error) {
	if strings.Contains(item.Link, "-thread-") {
		return Elide(), nil
	}

	body := item.Body()
	if body == "" || strings.Contains(body, "Listen to more mind-expanding audio") {
		return Elide(), nil
	}

	return r.Page.Extract(ctx, item)
}

func (r SlowBoringRule) RequiredSecrets() []string {
	return r.Page.RequiredSecrets()
}
