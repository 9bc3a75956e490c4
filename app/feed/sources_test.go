package feed

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSources(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "feeds.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadSources_PreservesOrder(t *testing.T) {
	path := writeSources(t, `
feeds:
  - name: "Stratechery"
    url: "https://example.com/stratechery"
  - name: "Rachel By The Bay"
    url: "http://rachelbythebay.com/w/atom.xml"
  - name: "Astral Codex Ten"
    url: "https://astralcodexten.substack.com/feed"
    rule: substack
    sort_by_date: true
`)

	sources, err := LoadSources(path, nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(sources) != 3 {
		t.Fatalf("Expected 3 sources, got %d", len(sources))
	}

	expected := []string{"Stratechery", "Rachel By The Bay", "Astral Codex Ten"}
	for i, name := range expected {
		if sources[i].Name != name {
			t.Errorf("Expected source %d to be %q, got %q", i, name, sources[i].Name)
		}
	}

	if sources[2].Rule != "substack" {
		t.Errorf("Expected rule 'substack', got %q", sources[2].Rule)
	}
	if !sources[2].SortByDate {
		t.Error("Expected sort_by_date to be set")
	}
}

func TestLoadSources_ExpandsEnvironment(t *testing.T) {
	t.Setenv("STRATECHERY_FEED", "https://example.com/private/feed")

	path := writeSources(t, `
feeds:
  - name: "Stratechery"
    url: "${STRATECHERY_FEED}"
`)

	sources, err := LoadSources(path, nil)
	if err != nil {
		t.Fatal(err)
	}

	if sources[0].URL != "https://example.com/private/feed" {
		t.Errorf("Expected expanded URL, got %q", sources[0].URL)
	}
}

func TestLoadSources_MissingURLFromUnsetVariable(t *testing.T) {
	path := writeSources(t, `
feeds:
  - name: "Stratechery"
    url: "${RSS_DIGEST_UNSET_FEED_VARIABLE}"
`)

	if _, err := LoadSources(path, nil); err == nil {
		t.Error("Expected error for empty feed URL")
	}
}

func TestLoadSources_SkipsDisabled(t *testing.T) {
	path := writeSources(t, `
feeds:
  - name: "A"
    url: "https://example.com/a"
    enabled: false
  - name: "B"
    url: "https://example.com/b"
`)

	sources, err := LoadSources(path, nil)
	if err != nil {
		t.Fatal(err)
	}

	if len(sources) != 1 || sources[0].Name != "B" {
		t.Errorf("Expected only source B, got %+v", sources)
	}
}

func TestLoadSources_Invalid(t *testing.T) {
	tests := map[string]string{
		"missing name": `
feeds:
  - url: "https://example.com/a"
`,
		"duplicate name": `
feeds:
  - name: "A"
    url: "https://example.com/a"
  - name: "A"
    url: "https://example.com/b"
`,
		"bad filter field": `
feeds:
  - name: "A"
    url: "https://example.com/a"
    filters:
      - field: "categories"
        excludes: ["x"]
`,
		"empty filter": `
feeds:
  - name: "A"
    url: "https://example.com/a"
    filters:
      - field: "title"
`,
		"malformed yaml": `feeds: [`,
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadSources(writeSources(t, content), nil); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestLoadSources_MissingFile(t *testing.T) {
	if _, err := LoadSources(filepath.Join(t.TempDir(), "missing.yml"), nil); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestLoadSources_CustomLookup(t *testing.T) {
	path := writeSources(t, `
feeds:
  - name: "Stratechery"
    url: "${STRATECHERY_FEED}"
`)

	lookup := func(name string) string {
		if name == "STRATECHERY_FEED" {
			return "https://example.com/from-dotenv"
		}
		return ""
	}

	sources, err := LoadSources(path, lookup)
	if err != nil {
		t.Fatal(err)
	}

	if sources[0].URL != "https://example.com/from-dotenv" {
		t.Errorf("Expected URL from lookup, got '%s'", sources[0].URL)
	}
}
