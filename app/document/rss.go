package document

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"
)

// RSSWriter renders the digest as a single-channel RSS 2.0 file, one item
// per entry with the body in content:encoded.
type RSSWriter struct {
	outputDir string
	author    string
	now       func() time.Time
}

func NewRSSWriter(outputDir, author string) *RSSWriter {
	return &RSSWriter{
		outputDir: outputDir,
		author:    author,
		now:       time.Now,
	}
}

func (w *RSSWriter) Assemble(ctx context.Context, title string, entries []Entry) (*Artifact, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("no entries to assemble")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, err := outputPath(w.outputDir, title, ".xml")
	if err != nil {
		return nil, err
	}
	if err := writeFile(path, []byte(w.render(title, entries))); err != nil {
		return nil, err
	}

	return &Artifact{Title: title, Path: path, ContentType: "application/rss+xml"}, nil
}

func (w *RSSWriter) render(title string, entries []Entry) string {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/">`)
	buf.WriteString("\n  <channel>\n")

	writeElement(&buf, "title", title, 4)
	writeElement(&buf, "description", fmt.Sprintf("%d posts", len(entries)), 4)
	writeElement(&buf, "lastBuildDate", w.now().Format(time.RFC1123Z), 4)
	writeElement(&buf, "generator", w.author, 4)

	for _, entry := range entries {
		buf.WriteString("    <item>\n")
		writeElement(&buf, "title", entry.Title, 6)
		if w.author != "" {
			writeElement(&buf, "author", w.author, 6)
		}
		buf.WriteString("      <content:encoded><![CDATA[")
		buf.WriteString(escapeCDATA(entry.Body))
		buf.WriteString("]]></content:encoded>\n")
		buf.WriteString("    </item>\n")
	}

	buf.WriteString("  </channel>\n</rss>\n")

	return buf.String()
}

// escapeCDATA splits any "]]>" so the body cannot close its section early.
func escapeCDATA(s string) string {
	return strings.ReplaceAll(s, "]]>", "]]]]><![CDATA[>")
}
