// Package ingest runs the digest: it walks every source, keeps only items
// newer than the source's watermark, extracts them and hands the merged list
// to the document and delivery stages.
package ingest

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/lysyi3m/rss-digest/app/document"
	"github.com/lysyi3m/rss-digest/app/extract"
	"github.com/lysyi3m/rss-digest/app/feed"
	"github.com/lysyi3m/rss-digest/app/metrics"
	"github.com/lysyi3m/rss-digest/app/watermark"
)

const DefaultPerFeedCap = 5

type Entry = document.Entry

type FeedFetcher interface {
	Fetch(ctx context.Context, source feed.Source) ([]feed.Item, error)
}

type RuleResolver interface {
	Resolve(sourceName string) extract.Rule
}

// Coordinator turns sources into entries. It holds no state between calls.
type Coordinator struct {
	fetcher    FeedFetcher
	rules      RuleResolver
	perFeedCap int
}

func NewCoordinator(fetcher FeedFetcher, rules RuleResolver, perFeedCap int) *Coordinator {
	if perFeedCap <= 0 {
		perFeedCap = DefaultPerFeedCap
	}
	return &Coordinator{
		fetcher:    fetcher,
		rules:      rules,
		perFeedCap: perFeedCap,
	}
}

// Result is the outcome of one ingestion pass. Marks holds the watermarks to
// persist once the entries have been delivered.
type Result struct {
	Entries []Entry
	Marks   watermark.Marks
	Reports []SourceReport
}

// Ingest processes sources in order. Failures stay contained in the source
// (fetch) or item (extraction) they happen in; only cancellation aborts.
func (c *Coordinator) Ingest(ctx context.Context, sources []feed.Source, prior watermark.Marks) (*Result, error) {
	result := &Result{
		Marks:   prior.Clone(),
		Reports: make([]SourceReport, 0, len(sources)),
	}

	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entries, report, err := c.ingestSource(ctx, source, prior, result.Marks)
		if err != nil {
			return nil, err
		}

		result.Entries = append(result.Entries, entries...)
		result.Reports = append(result.Reports, report)
	}

	return result, nil
}

func (c *Coordinator) ingestSource(ctx context.Context, source feed.Source, prior, marks watermark.Marks) ([]Entry, SourceReport, error) {
	run := newSourceRun(source.Name)

	items, err := c.fetcher.Fetch(ctx, source)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, SourceReport{}, ctxErr
		}

		fetchErr := &FeedFetchError{Source: source.Name, Err: err}
		slog.Warn("Failed to fetch feed", "source", source.Name, "error", fetchErr)
		metrics.FeedFetchFailures.WithLabelValues(source.Name).Inc()
		run.fail(fetchErr)

		return nil, run.finish(), nil
	}

	for i := range items {
		items[i].GUID = cmp.Or(strings.TrimSpace(items[i].GUID), strings.TrimSpace(items[i].Link))
	}
	run.report.Total = len(items)

	run.transition(StateCutting)
	candidates := c.cut(items, prior, source.Name)
	run.report.Scanned = len(candidates)

	run.transition(StateExtracting)
	rule := c.rules.Resolve(source.Name)
	entries := make([]Entry, 0, c.perFeedCap)

	for i, item := range candidates {
		if len(entries) == c.perFeedCap {
			run.transition(StateCapped)
			metrics.Items.WithLabelValues(source.Name, metrics.OutcomeCapped).Add(float64(len(candidates) - i))
			break
		}

		entry, elided, err := c.extractItem(ctx, source.Name, rule, item)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, SourceReport{}, ctxErr
			}

			extractErr := &ExtractionError{Source: source.Name, GUID: item.GUID, Err: err}
			slog.Warn("Failed to extract item", "source", source.Name, "guid", item.GUID, "error", extractErr)
			metrics.Items.WithLabelValues(source.Name, metrics.OutcomeFailed).Inc()
			run.report.Failed++
			entries = append(entries, placeholderEntry(source.Name, item, err))
			continue
		}

		if elided {
			metrics.Items.WithLabelValues(source.Name, metrics.OutcomeElided).Inc()
			run.report.Elided++
			continue
		}

		metrics.Items.WithLabelValues(source.Name, metrics.OutcomeContributed).Inc()
		run.report.Extracted++
		entries = append(entries, entry)
	}

	if len(items) > 0 && items[0].GUID != "" {
		marks[source.Name] = items[0].GUID
	}

	run.report.Contributed = len(entries)
	report := run.finish()

	slog.Info("Source completed",
		"source", source.Name,
		"duration", report.Duration,
		"total", report.Total,
		"scanned", report.Scanned,
		"extracted", report.Extracted,
		"elided", report.Elided,
		"failed", report.Failed,
		"contributed", report.Contributed)

	return entries, report, nil
}

// cut returns the items newer than the source's watermark, looking at no
// more than twice the cap.
func (c *Coordinator) cut(items []feed.Item, prior watermark.Marks, source string) []feed.Item {
	last, hasMark := prior[source]
	limit := min(len(items), 2*c.perFeedCap)

	for i := 0; i < limit; i++ {
		if hasMark && items[i].GUID == last {
			return items[:i]
		}
	}

	return items[:limit]
}

func (c *Coordinator) extractItem(ctx context.Context, source string, rule extract.Rule, item feed.Item) (Entry, bool, error) {
	res, err := rule.Extract(ctx, &item)
	if err != nil {
		return Entry{}, false, err
	}
	if res.Elided {
		return Entry{}, true, nil
	}
	if res.Body == "" {
		return Entry{}, false, errors.New("rule produced an empty body")
	}

	return Entry{Title: entryTitle(source, item), Body: res.Body}, false, nil
}

func entryTitle(source string, item feed.Item) string {
	return fmt.Sprintf("%s: %s", source, item.Title)
}

// placeholderEntry stands in for an item whose extraction failed so the
// reader still sees that it exists.
func placeholderEntry(source string, item feed.Item, err error) Entry {
	body := fmt.Sprintf("\n<h1>%s</h1>\n<p>Error formatting: %s</p>\n",
		html.EscapeString(item.Title), html.EscapeString(err.Error()))
	if item.Link != "" {
		body += fmt.Sprintf("<p><a href=\"%s\">%s</a></p>\n", html.EscapeString(item.Link), html.EscapeString(item.Link))
	}

	return Entry{Title: entryTitle(source, item), Body: body}
}
