// Package extract turns raw feed items into readable article bodies using
// rules chosen per source.
package extract

import (
	"context"

	"github.com/lysyi3m/rss-digest/app/feed"
)

// Result is either a rendered HTML fragment or an elision.
type Result struct {
	Body   string
	Elided bool
}

func Rendered(body string) Result {
	return Result{Body: body}
}

func Elide() Result {
	return Result{Elided: true}
}

// Rule extracts one item. Rules may change the item they are handed but must
// not touch anything shared between runs.
type Rule interface {
	Extract(ctx context.Context, item *feed.Item) (Result, error)
}

// RuleFunc adapts a plain function to a Rule.
type RuleFunc func(ctx context.Context, item *feed.Item) (Result, error)

func (f RuleFunc) Extract(ctx context.Context, item *feed.Item) (Result, error) {
	return f(ctx, item)
}

// SecretSource resolves named credentials at the moment a rule needs them.
type SecretSource interface {
	Secret(name string) (string, bool)
}
