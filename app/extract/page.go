package extract

import (
	"cmp"
	"context"
	"fmt"
	"net/http"

	"github.com/PuerkitoBio/goquery"
	"github.com/lysyi3m/rss-digest/app/feed"
)

// Cookie is sent with page fetches. The value is either literal or read from
// a named secret when the rule runs.
type Cookie struct {
	Name   string
	Value  string
	Secret string
}

// PageRule fetches the item's canonical page and renders the node matched by
// Selector, for feeds whose bodies are truncated or paywalled.
type PageRule struct {
	Pages    *PageFetcher
	Secrets  SecretSource
	Site     string // origin the cookie is scoped to
	Cookie   *Cookie
	Selector string
	Strip    []string // noise nodes removed before rendering
	Author   string   // overrides the feed author when set
	Fallback bool     // use readability when Selector matches nothing
}

func (r PageRule) Extract(ctx context.Context, item *feed.Item) (Result, error) {
	cookies, err := r.cookies()
	if err != nil {
		return Result{}, err
	}

	data, err := r.Pages.Fetch(ctx, item.Link, cmp.Or(r.Site, item.Link), cookies...)
	if err != nil {
		return Result{}, err
	}

	doc, err := parseDocument(data)
	if err != nil {
		return Result{}, err
	}

	stripNodes(doc.Selection, r.Strip)

	author := cmp.Or(r.Author, item.Author)

	content := doc.Find(r.Selector).First()
	if content.Length() == 0 {
		if !r.Fallback {
			return Result{}, fmt.Errorf("selector '%s' matched nothing on %s", r.Selector, item.Link)
		}

		article, err := extractReadable(data, item.Link)
		if err != nil {
			return Result{}, err
		}
		return Rendered(renderArticle(item.Title, cmp.Or(author, article.Byline), article.Content)), nil
	}

	body, err := goquery.OuterHtml(content)
	if err != nil {
		return Result{}, fmt.Errorf("failed to render content: %w", err)
	}

	return Rendered(renderArticle(item.Title, author, body)), nil
}

func (r PageRule) cookies() ([]*http.Cookie, error) {
	if r.Cookie == nil {
		return nil, nil
	}

	value := r.Cookie.Value
	if r.Cookie.Secret != "" {
		if r.Secrets == nil {
			return nil, fmt.Errorf("secret '%s' required but no secret source configured", r.Cookie.Secret)
		}
		secret, ok := r.Secrets.Secret(r.Cookie.Secret)
		if !ok || secret == "" {
			return nil, fmt.Errorf("secret '%s' is not set", r.Cookie.Secret)
		}
		value = secret
	}

	return []*http.Cookie{{Name: r.Cookie.Name, Value: value, Path: "/"}}, nil
}

func (r PageRule) RequiredSecrets() []string {
	if r.Cookie == nil || r.Cookie.Secret == "" {
		return nil
	}
	return []string{r.Cookie.Secret}
}
