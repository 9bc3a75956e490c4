package document

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"golang.org/x/net/html"
)

const (
	epubTOCTitle = "Posts"
	epubLanguage = "en"
)

// EPUBWriter packs entries into an EPUB 3 book with an EPUB 2 NCX for older
// readers. Each entry becomes one chapter.
type EPUBWriter struct {
	outputDir string
	author    string
	now       func() time.Time
}

func NewEPUBWriter(outputDir, author string) *EPUBWriter {
	return &EPUBWriter{
		outputDir: outputDir,
		author:    author,
		now:       time.Now,
	}
}

func (w *EPUBWriter) Assemble(ctx context.Context, title string, entries []Entry) (*Artifact, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("no entries to assemble")
	}

	chapters := make([]string, len(entries))
	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		body, err := toXHTML(entry.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to convert entry %q: %w", entry.Title, err)
		}
		chapters[i] = body
	}

	var buf bytes.Buffer
	if err := w.write(&buf, title, entries, chapters); err != nil {
		return nil, err
	}

	path, err := outputPath(w.outputDir, title, ".epub")
	if err != nil {
		return nil, err
	}
	if err := writeFile(path, buf.Bytes()); err != nil {
		return nil, err
	}

	return &Artifact{Title: title, Path: path, ContentType: "application/epub+zip"}, nil
}

func (w *EPUBWriter) write(buf *bytes.Buffer, title string, entries []Entry, chapters []string) error {
	zw := zip.NewWriter(buf)

	// The mimetype entry must come first and be stored uncompressed.
	mimetype, err := zw.CreateHeader(&zip.FileHeader{Name: "mimetype", Method: zip.Store})
	if err != nil {
		return fmt.Errorf("failed to create mimetype entry: %w", err)
	}
	if _, err := mimetype.Write([]byte("application/epub+zip")); err != nil {
		return fmt.Errorf("failed to write mimetype entry: %w", err)
	}

	bookID := "urn:uuid:" + uuid.NewString()

	files := []struct {
		name    string
		content string
	}{
		{"META-INF/container.xml", containerXML},
		{"OEBPS/content.opf", w.packageDocument(bookID, title, len(entries))},
		{"OEBPS/toc.ncx", w.ncx(bookID, title, entries)},
		{"OEBPS/nav.xhtml", w.nav(entries)},
	}
	for i, entry := range entries {
		files = append(files, struct {
			name    string
			content string
		}{"OEBPS/" + chapterFile(i), chapterDocument(entry.Title, chapters[i])})
	}

	for _, file := range files {
		fw, err := zw.Create(file.name)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", file.name, err)
		}
		if _, err := fw.Write([]byte(file.content)); err != nil {
			return fmt.Errorf("failed to write %s: %w", file.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish epub: %w", err)
	}

	return nil
}

const containerXML = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>
`

func (w *EPUBWriter) packageDocument(bookID, title string, chapterCount int) string {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="bookid">`)
	buf.WriteString("\n  <metadata xmlns:dc=\"http://purl.org/dc/elements/1.1/\">\n")
	buf.WriteString("    <dc:identifier id=\"bookid\">")
	escape(&buf, bookID)
	buf.WriteString("</dc:identifier>\n")
	writeElement(&buf, "dc:title", title, 4)
	writeElement(&buf, "dc:creator", w.author, 4)
	writeElement(&buf, "dc:language", epubLanguage, 4)
	buf.WriteString("    <meta property=\"dcterms:modified\">")
	buf.WriteString(w.now().UTC().Format("2006-01-02T15:04:05Z"))
	buf.WriteString("</meta>\n")
	buf.WriteString("  </metadata>\n  <manifest>\n")
	buf.WriteString("    <item id=\"nav\" href=\"nav.xhtml\" media-type=\"application/xhtml+xml\" properties=\"nav\"/>\n")
	buf.WriteString("    <item id=\"ncx\" href=\"toc.ncx\" media-type=\"application/x-dtbncx+xml\"/>\n")
	for i := 0; i < chapterCount; i++ {
		fmt.Fprintf(&buf, "    <item id=\"%s\" href=\"%s\" media-type=\"application/xhtml+xml\"/>\n", chapterID(i), chapterFile(i))
	}
	buf.WriteString("  </manifest>\n  <spine toc=\"ncx\">\n")
	for i := 0; i < chapterCount; i++ {
		fmt.Fprintf(&buf, "    <itemref idref=\"%s\"/>\n", chapterID(i))
	}
	buf.WriteString("  </spine>\n</package>\n")

	return buf.String()
}

func (w *EPUBWriter) ncx(bookID, title string, entries []Entry) string {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<ncx xmlns="http://www.daisy.org/z3986/2005/ncx/" version="2005-1">`)
	buf.WriteString("\n  <head>\n    <meta name=\"dtb:uid\" content=\"")
	escape(&buf, bookID)
	buf.WriteString("\"/>\n  </head>\n  <docTitle>\n")
	writeElement(&buf, "text", title, 4)
	buf.WriteString("  </docTitle>\n  <navMap>\n")
	for i, entry := range entries {
		fmt.Fprintf(&buf, "    <navPoint id=\"nav-%d\" playOrder=\"%d\">\n", i+1, i+1)
		buf.WriteString("      <navLabel>\n")
		writeElement(&buf, "text", entry.Title, 8)
		buf.WriteString("      </navLabel>\n")
		fmt.Fprintf(&buf, "      <content src=\"%s\"/>\n", chapterFile(i))
		buf.WriteString("    </navPoint>\n")
	}
	buf.WriteString("  </navMap>\n</ncx>\n")

	return buf.String()
}

func (w *EPUBWriter) nav(entries []Entry) string {
	var buf bytes.Buffer

	buf.WriteString(xhtmlHeader(epubTOCTitle))
	buf.WriteString("  <nav epub:type=\"toc\" id=\"toc\">\n")
	writeElement(&buf, "h1", epubTOCTitle, 4)
	buf.WriteString("    <ol>\n")
	for i, entry := range entries {
		fmt.Fprintf(&buf, "      <li><a href=\"%s\">", chapterFile(i))
		escape(&buf, entry.Title)
		buf.WriteString("</a></li>\n")
	}
	buf.WriteString("    </ol>\n  </nav>\n")
	buf.WriteString(xhtmlFooter)

	return buf.String()
}

func chapterDocument(title, body string) string {
	return xhtmlHeader(title) + body + "\n" + xhtmlFooter
}

func xhtmlHeader(title string) string {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n<!DOCTYPE html>\n")
	buf.WriteString(`<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">`)
	buf.WriteString("\n<head>\n  <meta charset=\"utf-8\"/>\n")
	writeElement(&buf, "title", title, 2)
	buf.WriteString("</head>\n<body>\n")

	return buf.String()
}

const xhtmlFooter = "</body>\n</html>\n"

func chapterID(i int) string {
	return fmt.Sprintf("chapter-%d", i+1)
}

func chapterFile(i int) string {
	return chapterID(i) + ".xhtml"
}

// Nodes readers cannot run or display.
var epubUnsupported = "script, noscript, iframe, style, form"

// toXHTML reparses an HTML fragment and serialises it with closed void
// elements and escaped text so it is well-formed inside an XHTML chapter.
func toXHTML(fragment string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return "", fmt.Errorf("failed to parse body: %w", err)
	}

	doc.Find(epubUnsupported).Remove()

	var buf bytes.Buffer
	for _, body := range doc.Find("body").Nodes {
		stripNonXML(body)
		for child := body.FirstChild; child != nil; child = child.NextSibling {
			if err := html.Render(&buf, child); err != nil {
				return "", fmt.Errorf("failed to render body: %w", err)
			}
		}
	}
	return buf.String(), nil
}

// stripNonXML drops comments and attributes whose names are not XML names,
// both of which html.Render passes through as written.
func stripNonXML(n *html.Node) {
	for child := n.FirstChild; child != nil; {
		next := child.NextSibling
		if child.Type == html.CommentNode {
			n.RemoveChild(child)
		} else {
			stripNonXML(child)
		}
		child = next
	}

	if n.Type != html.ElementNode {
		return
	}
	attrs := n.Attr[:0]
	for _, attr := range n.Attr {
		if attr.Namespace == "" && isXMLName(attr.Key) {
			attrs = append(attrs, attr)
		}
	}
	n.Attr = attrs
}

// isXMLName reports whether name is a valid unprefixed XML name. The only
// prefix allowed is xml:, the one chapters never need to declare.
func isXMLName(name string) bool {
	name = strings.TrimPrefix(name, "xml:")
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case i > 0 && (r == '-' || r == '.' || unicode.IsDigit(r)):
		default:
			return false
		}
	}
	return true
}

func writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	escape(buf, content)
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func escape(buf *bytes.Buffer, s string) {
	xml.EscapeText(buf, []byte(s))
}
