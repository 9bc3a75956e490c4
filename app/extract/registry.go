package extract

import (
	"fmt"
	"slices"
	"strings"

	"github.com/lysyi3m/rss-digest/app/feed"
)

// Registry maps source names to their extraction rules. Sources without an
// entry get the fallback rule.
type Registry struct {
	rules    map[string]Rule
	fallback Rule
}

func NewRegistry() *Registry {
	return &Registry{
		rules:    make(map[string]Rule),
		fallback: DefaultRule{},
	}
}

func (r *Registry) Register(sourceName string, rule Rule) {
	r.rules[sourceName] = rule
}

func (r *Registry) Resolve(sourceName string) Rule {
	if rule, ok := r.rules[sourceName]; ok {
		return rule
	}
	return r.fallback
}

// Deps carries what rules need at invocation time.
type Deps struct {
	Pages   *PageFetcher
	Secrets SecretSource
}

// builtinBindings binds well-known sources to their rule kind when the
// source configuration does not name one.
var builtinBindings = map[string]string{
	"Yglesias - Slow Boring": "slowboring",
	"Astral Codex Ten":       "substack",
	"Zeynep - Insight":       "substack",
	"Paul Graham - Essays":   "paulgraham",
	"Rachel By The Bay":      "author:Rachel Kroll",
	"Stratechery":            "truncate:Subscription Information",
	"Irrational Exuberance":  "author:Will Larson",
	"Matt Rickard":           "author:Matt Rickard",
	"Quanta":                 "quanta",
}

// NewRule builds a rule from its kind. Parameterised kinds use "kind:arg".
func NewRule(kind string, deps Deps) (Rule, error) {
	name, arg, _ := strings.Cut(kind, ":")
	arg = strings.TrimSpace(arg)

	switch strings.TrimSpace(name) {
	case "default":
		return DefaultRule{}, nil
	case "substack":
		return SubstackRule{}, nil
	case "slowboring":
		return NewSlowBoringRule(deps.Pages, deps.Secrets), nil
	case "quanta":
		return PageRule{
			Pages:    deps.Pages,
			Site:     "https://www.quantamagazine.org",
			Cookie:   &Cookie{Name: "acceptedPolicy", Value: "true"},
			Selector: ".post__content__section",
		}, nil
	case "paulgraham":
		return PageRule{
			Pages:    deps.Pages,
			Selector: `table font[size="2"]`,
			Author:   "Paul Graham",
			Fallback: true,
		}, nil
	case "readability":
		return ReadabilityRule{Pages: deps.Pages}, nil
	case "author":
		if arg == "" {
			return nil, fmt.Errorf("rule '%s' needs an author name", kind)
		}
		return AuthorRule{Author: arg}, nil
	case "truncate":
		if arg == "" {
			return nil, fmt.Errorf("rule '%s' needs a marker", kind)
		}
		return TruncateRule{Marker: arg}, nil
	default:
		return nil, fmt.Errorf("unknown rule kind '%s'", kind)
	}
}

// BuildRegistry registers a rule for every source that names one or has a
// built-in binding, wrapping it with the source's filters.
func BuildRegistry(sources []feed.Source, deps Deps) (*Registry, error) {
	registry := NewRegistry()
	filterer := feed.NewFilterer()

	for _, source := range sources {
		kind := source.Rule
		if kind == "" {
			kind = builtinBindings[source.Name]
		}

		var rule Rule = DefaultRule{}
		if kind != "" {
			built, err := NewRule(kind, deps)
			if err != nil {
				return nil, fmt.Errorf("source '%s': %w", source.Name, err)
			}
			rule = built
		}

		if len(source.Filters) > 0 {
			rule = FilterRule{
				Source:   source.Name,
				Filters:  source.Filters,
				Filterer: filterer,
				Next:     rule,
			}
		}

		if kind != "" || len(source.Filters) > 0 {
			registry.Register(source.Name, rule)
		}
	}

	return registry, nil
}

// SecretUser is implemented by rules that read named secrets.
type SecretUser interface {
	RequiredSecrets() []string
}

// MissingSecrets lists, per source, the secrets its rule or configuration
// requires that the secret source cannot provide.
func (r *Registry) MissingSecrets(sources []feed.Source, secrets SecretSource) map[string][]string {
	missing := make(map[string][]string)

	for _, source := range sources {
		required := append([]string(nil), source.Secrets...)
		if user, ok := unwrapRule(r.Resolve(source.Name)).(SecretUser); ok {
			required = append(required, user.RequiredSecrets()...)
		}

		slices.Sort(required)
		for _, name := range slices.Compact(required) {
			if value, ok := secrets.Secret(name); !ok || value == "" {
				missing[source.Name] = append(missing[source.Name], name)
			}
		}
	}

	return missing
}

func unwrapRule(rule Rule) Rule {
	if filtered, ok := rule.(FilterRule); ok {
		return unwrapRule(filtered.Next)
	}
	return rule
}
