package document

import (
	"context"
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
)

// MarkdownWriter converts every entry to GitHub flavoured markdown and joins
// them under the digest title.
type MarkdownWriter struct {
	outputDir string
	converter *md.Converter
}

func NewMarkdownWriter(outputDir string) *MarkdownWriter {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())

	return &MarkdownWriter{
		outputDir: outputDir,
		converter: converter,
	}
}

func (w *MarkdownWriter) Assemble(ctx context.Context, title string, entries []Entry) (*Artifact, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("no entries to assemble")
	}

	var sb strings.Builder
	sb.WriteString("# ")
	sb.WriteString(title)
	sb.WriteString("\n")

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		body, err := w.converter.ConvertString(entry.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to convert entry %q: %w", entry.Title, err)
		}

		sb.WriteString("\n---\n\n")
		sb.WriteString(strings.TrimSpace(body))
		sb.WriteString("\n")
	}

	path, err := outputPath(w.outputDir, title, ".md")
	if err != nil {
		return nil, err
	}
	if err := writeFile(path, []byte(sb.String())); err != nil {
		return nil, err
	}

	return &Artifact{Title: title, Path: path, ContentType: "text/markdown; charset=utf-8"}, nil
}
