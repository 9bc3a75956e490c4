package document

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var testEntries = []Entry{
	{
		Title: "Matt Rickard: On Queues",
		Body:  "\n<h1>On Queues</h1>\n<div style=\"color:grey\">by Matt Rickard</div><br/>\n<p>First &amp; foremost<br>line two</p><script>alert(1)</script>",
	},
	{
		Title: "Quanta: Primes <again>",
		Body:  "\n<h1>Primes</h1>\n<div style=\"color:grey\">by Quanta</div><br/>\n<p>Contains ]]> marker</p>",
	},
}

func readZip(t *testing.T, path string) (*zip.Reader, map[string]string) {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read artifact: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("Artifact is not a zip archive: %v", err)
	}

	files := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("Failed to open %s: %v", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("Failed to read %s: %v", f.Name, err)
		}
		files[f.Name] = string(content)
	}

	return zr, files
}

func assertWellFormed(t *testing.T, name, content string) {
	t.Helper()

	decoder := xml.NewDecoder(strings.NewReader(content))
	for {
		_, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			t.Fatalf("Expected %s to be well-formed XML, got %v", name, err)
		}
	}
}

func TestEPUBWriter(t *testing.T) {
	dir := t.TempDir()
	writer := NewEPUBWriter(dir, "rss-digest")
	writer.now = func() time.Time { return time.Date(2024, 3, 5, 7, 0, 0, 0, time.UTC) }

	artifact, err := writer.Assemble(context.Background(), "24-03-05 RSS Feeds", testEntries)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	if artifact.ContentType != "application/epub+zip" {
		t.Errorf("Expected epub content type, got %s", artifact.ContentType)
	}
	if artifact.FileName() != "24-03-05 RSS Feeds.epub" {
		t.Errorf("Expected file name '24-03-05 RSS Feeds.epub', got %s", artifact.FileName())
	}
	if filepath.Dir(artifact.Path) != dir {
		t.Errorf("Expected artifact in %s, got %s", dir, artifact.Path)
	}

	zr, files := readZip(t, artifact.Path)

	first := zr.File[0]
	if first.Name != "mimetype" || first.Method != zip.Store {
		t.Errorf("Expected stored mimetype as first entry, got %s (method %d)", first.Name, first.Method)
	}
	if files["mimetype"] != "application/epub+zip" {
		t.Errorf("Expected mimetype content, got %q", files["mimetype"])
	}

	for _, name := range []string{"META-INF/container.xml", "OEBPS/content.opf", "OEBPS/toc.ncx", "OEBPS/nav.xhtml", "OEBPS/chapter-1.xhtml", "OEBPS/chapter-2.xhtml"} {
		content, ok := files[name]
		if !ok {
			t.Fatalf("Expected %s in archive", name)
		}
		assertWellFormed(t, name, content)
	}

	opf := files["OEBPS/content.opf"]
	if !strings.Contains(opf, "<dc:title>24-03-05 RSS Feeds</dc:title>") {
		t.Error("Expected package title")
	}
	if !strings.Contains(opf, "<dc:creator>rss-digest</dc:creator>") {
		t.Error("Expected package author")
	}
	if !strings.Contains(opf, "2024-03-05T07:00:00Z") {
		t.Error("Expected modified timestamp")
	}
	if strings.Index(opf, `idref="chapter-1"`) > strings.Index(opf, `idref="chapter-2"`) {
		t.Error("Expected spine to keep entry order")
	}

	nav := files["OEBPS/nav.xhtml"]
	if !strings.Contains(nav, "<h1>Posts</h1>") {
		t.Error("Expected table of contents titled Posts")
	}
	if !strings.Contains(nav, "Quanta: Primes &lt;again&gt;") {
		t.Error("Expected escaped entry title in table of contents")
	}

	chapter := files["OEBPS/chapter-1.xhtml"]
	if strings.Contains(chapter, "<script") {
		t.Error("Expected scripts to be removed from chapters")
	}
	if !strings.Contains(chapter, "<br/>") {
		t.Error("Expected void elements to be closed")
	}
	if !strings.Contains(chapter, "by Matt Rickard") {
		t.Error("Expected chapter body to be kept")
	}
}

func TestToXHTMLDropsNonXML(t *testing.T) {
	tests := []struct {
		name     string
		fragment string
		keep     string
		drop     string
	}{
		{
			name:     "comment with double hyphen",
			fragment: "<p>x</p><!-- a -- b -->",
			keep:     "<p>x</p>",
			drop:     "<!--",
		},
		{
			name:     "nested comment",
			fragment: "<div><p>kept<!-- gone --></p></div>",
			keep:     "<p>kept</p>",
			drop:     "gone",
		},
		{
			name:     "framework attribute",
			fragment: `<div @click="go" class="post">body</div>`,
			keep:     `class="post"`,
			drop:     "@click",
		},
		{
			name:     "undeclared prefix",
			fragment: `<p v-bind:title="t" xml:lang="en">body</p>`,
			keep:     `xml:lang="en"`,
			drop:     "v-bind",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := toXHTML(tt.fragment)
			if err != nil {
				t.Fatalf("toXHTML failed: %v", err)
			}

			if !strings.Contains(body, tt.keep) {
				t.Errorf("Expected %q in %q", tt.keep, body)
			}
			if strings.Contains(body, tt.drop) {
				t.Errorf("Expected %q to be dropped from %q", tt.drop, body)
			}
			assertWellFormed(t, tt.name, chapterDocument("Chapter", body))
		})
	}
}

func TestEPUBWriterNoEntries(t *testing.T) {
	writer := NewEPUBWriter(t.TempDir(), "rss-digest")

	if _, err := writer.Assemble(context.Background(), "empty", nil); err == nil {
		t.Error("Expected error for empty entry list")
	}
}

func TestEPUBWriterCancelled(t *testing.T) {
	dir := t.TempDir()
	writer := NewEPUBWriter(dir, "rss-digest")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := writer.Assemble(ctx, "cancelled", testEntries); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("Expected no files written, got %d", len(entries))
	}
}

func TestRSSWriter(t *testing.T) {
	writer := NewRSSWriter(t.TempDir(), "rss-digest")
	writer.now = func() time.Time { return time.Date(2024, 3, 5, 7, 0, 0, 0, time.UTC) }

	artifact, err := writer.Assemble(context.Background(), "24-03-05 RSS Feeds", testEntries)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	if artifact.ContentType != "application/rss+xml" {
		t.Errorf("Expected rss content type, got %s", artifact.ContentType)
	}

	data, err := os.ReadFile(artifact.Path)
	if err != nil {
		t.Fatalf("Failed to read artifact: %v", err)
	}
	content := string(data)

	assertWellFormed(t, "rss", content)

	if strings.Count(content, "<item>") != 2 {
		t.Errorf("Expected 2 items, got %d", strings.Count(content, "<item>"))
	}
	if !strings.Contains(content, "<title>Quanta: Primes &lt;again&gt;</title>") {
		t.Error("Expected escaped item title")
	}
	if !strings.Contains(content, "Contains ]]]]><![CDATA[> marker") {
		t.Error("Expected CDATA terminator to be split")
	}
	if !strings.Contains(content, "<lastBuildDate>Tue, 05 Mar 2024 07:00:00 +0000</lastBuildDate>") {
		t.Error("Expected build date")
	}
}

func TestMarkdownWriter(t *testing.T) {
	writer := NewMarkdownWriter(t.TempDir())

	artifact, err := writer.Assemble(context.Background(), "24-03-05 RSS Feeds", testEntries)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	if filepath.Ext(artifact.Path) != ".md" {
		t.Errorf("Expected .md file, got %s", artifact.Path)
	}

	data, err := os.ReadFile(artifact.Path)
	if err != nil {
		t.Fatalf("Failed to read artifact: %v", err)
	}
	content := string(data)

	if !strings.HasPrefix(content, "# 24-03-05 RSS Feeds\n") {
		t.Errorf("Expected document heading, got %q", content[:min(len(content), 40)])
	}
	if !strings.Contains(content, "# On Queues") || !strings.Contains(content, "# Primes") {
		t.Error("Expected entry headings")
	}
	if strings.Index(content, "On Queues") > strings.Index(content, "Primes") {
		t.Error("Expected entries in order")
	}
}

func TestNewAssembler(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{FormatEPUB, false},
		{FormatMarkdown, false},
		{FormatRSS, false},
		{"pdf", true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			assembler, err := NewAssembler(tt.format, t.TempDir(), "rss-digest")
			if tt.wantErr {
				if err == nil {
					t.Error("Expected error for unknown format")
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if assembler == nil {
				t.Error("Expected assembler")
			}
		})
	}
}

func TestOutputPathSanitisesTitle(t *testing.T) {
	dir := t.TempDir()

	path, err := outputPath(filepath.Join(dir, "nested"), "a/b:c", ".epub")
	if err != nil {
		t.Fatalf("outputPath failed: %v", err)
	}

	if filepath.Base(path) != "a-b-c.epub" {
		t.Errorf("Expected sanitised name, got %s", filepath.Base(path))
	}
	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		t.Errorf("Expected output directory to be created: %v", err)
	}
}
