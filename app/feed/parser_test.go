package feed

import (
	"testing"
)

func TestParseRSS2(t *testing.T) {
	rssData := `<?xml version="1.0"?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/" xmlns:dc="http://purl.org/dc/elements/1.1/">
  <channel>
    <title>Test Feed</title>
    <link>https://example.com</link>
    <description>Test Description</description>
    <item>
      <title>Test Item 1</title>
      <link>https://example.com/item1</link>
      <description>Test Item 1 Description</description>
      <content:encoded><![CDATA[<p>Full body 1</p>]]></content:encoded>
      <dc:creator>Jane Writer</dc:creator>
      <guid>item-1</guid>
      <pubDate>Mon, 03 Jul 2023 11:00:00 GMT</pubDate>
    </item>
    <item>
      <title>Test Item 2</title>
      <link>https://example.com/item2</link>
      <description>Test Item 2 Description</description>
      <pubDate>Mon, 03 Jul 2023 10:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

	parser := NewParser()
	items, err := parser.Run([]byte(rssData))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(items) != 2 {
		t.Fatalf("Expected 2 items, got: %d", len(items))
	}

	item1 := items[0]
	if item1.GUID != "item-1" {
		t.Errorf("Expected GUID 'item-1', got: %s", item1.GUID)
	}
	if item1.Content != "<p>Full body 1</p>" {
		t.Errorf("Expected content:encoded body, got: %s", item1.Content)
	}
	if item1.Author != "Jane Writer" {
		t.Errorf("Expected author 'Jane Writer', got: %s", item1.Author)
	}
	if item1.PublishedAt == nil {
		t.Error("Expected published date to be parsed")
	}

	// No guid: falls back to the link
	item2 := items[1]
	if item2.GUID != "https://example.com/item2" {
		t.Errorf("Expected GUID to fall back to link, got: %s", item2.GUID)
	}
	if item2.Body() != "Test Item 2 Description" {
		t.Errorf("Expected body to fall back to description, got: %s", item2.Body())
	}
}

func TestParseAtom(t *testing.T) {
	atomData := `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Test Atom Feed</title>
  <link href="https://example.com"/>
  <updated>2023-07-03T12:00:00Z</updated>
  <id>urn:uuid:1234567890</id>
  <entry>
    <title>Test Entry</title>
    <link href="https://example.com/entry1"/>
    <id>urn:uuid:entry-1</id>
    <updated>2023-07-03T12:00:00Z</updated>
    <author>
      <name>Atom Author</name>
    </author>
    <content type="html">&lt;p&gt;Atom body&lt;/p&gt;</content>
  </entry>
</feed>`

	parser := NewParser()
	items, err := parser.Run([]byte(atomData))
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got: %d", len(items))
	}
	if items[0].GUID != "urn:uuid:entry-1" {
		t.Errorf("Expected GUID 'urn:uuid:entry-1', got: %s", items[0].GUID)
	}
	if items[0].Author != "Atom Author" {
		t.Errorf("Expected author 'Atom Author', got: %s", items[0].Author)
	}
	if items[0].PublishedAt == nil {
		t.Error("Expected updated date to stand in for published date")
	}
}

func TestParseInvalidFeed(t *testing.T) {
	parser := NewParser()
	_, err := parser.Run([]byte("not a feed"))
	if err == nil {
		t.Error("Expected error for invalid feed data")
	}
}
