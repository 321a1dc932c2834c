package catalog

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func catalogDoc(t *testing.T) map[string]any {
	t.Helper()
	raw := `{
		"llm": [
			{
				"name": "OpenAI",
				"visual_tag": {"icon": "openai", "color": "#10a37f"},
				"config": {"type": "object", "properties": {"model": {"type": "string", "default": "gpt-4"}}}
			},
			{
				"name": "Anthropic",
				"config": {"type": "object"}
			}
		],
		"python": [
			{"name": "Script", "input": {"type": "object"}, "output": {"type": "object"}}
		]
	}`
	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("decoding fixture: %v", err)
	}
	return doc
}

func TestParseCatalog(t *testing.T) {
	cat, err := Parse(catalogDoc(t), discardLogger())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	categories := cat.Categories()
	if len(categories) != 2 || categories[0] != "llm" || categories[1] != "python" {
		t.Fatalf("Categories() = %v", categories)
	}
	if cat.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", cat.Len())
	}

	entries := cat.Entries("llm")
	if len(entries) != 2 {
		t.Fatalf("Entries(llm) = %v", entries)
	}
	if entries[0].Name != "OpenAI" || entries[1].Name != "Anthropic" {
		t.Fatalf("entry order not preserved: %v", entries)
	}
	if entries[0].VisualTag == nil || entries[0].VisualTag.Icon != "openai" {
		t.Fatalf("visual_tag not parsed: %+v", entries[0].VisualTag)
	}

	entry, ok := cat.Lookup("python", "Script")
	if !ok || entry.Input == nil || entry.Output == nil {
		t.Fatalf("Lookup(python, Script) = %+v, %v", entry, ok)
	}
	if _, ok := cat.Lookup("python", "missing"); ok {
		t.Fatal("Lookup() found a nonexistent entry")
	}
	if !cat.Has("Anthropic") || cat.Has("missing") {
		t.Fatal("Has() wrong")
	}
}

func TestParseSkipsMalformedEntries(t *testing.T) {
	doc := map[string]any{
		"llm": []any{
			map[string]any{"name": "Good", "config": map[string]any{"type": "object"}},
			"not an entry",
			map[string]any{"name": 42},
			map[string]any{"name": "AlsoGood", "visual_tag": "nope"},
		},
	}

	cat, err := Parse(doc, discardLogger())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	entries := cat.Entries("llm")
	if len(entries) != 1 || entries[0].Name != "Good" {
		t.Fatalf("Entries(llm) = %v, want only the well-formed entry", entries)
	}
}

func TestParseIgnoresNonCategoryArrays(t *testing.T) {
	doc := map[string]any{
		"llm":    []any{map[string]any{"name": "OpenAI"}},
		"levels": []any{"debug", "info", "warn"},
	}

	cat, err := Parse(doc, discardLogger())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := cat.Categories(); len(got) != 1 || got[0] != "llm" {
		t.Fatalf("Categories() = %v, scalar arrays must not become categories", got)
	}
}

func TestParseRejectsEmptyCatalog(t *testing.T) {
	if _, err := Parse(map[string]any{"title": "nothing here"}, discardLogger()); err == nil {
		t.Fatal("Parse() on a category-free document should error")
	}
	if _, err := Parse(nil, discardLogger()); err == nil {
		t.Fatal("Parse(nil) should error")
	}
}

func TestCatalogModelIntegration(t *testing.T) {
	cat, err := Parse(catalogDoc(t), discardLogger())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	model := cat.Model()
	if got := model.PropertyDefault("llm.0.config.model"); got != "gpt-4" {
		t.Fatalf("PropertyDefault(llm.0.config.model) = %v, want gpt-4", got)
	}
}

func TestLoadBytesYAML(t *testing.T) {
	yamlDoc := "llm:\n  - name: OpenAI\n    config:\n      type: object\n"
	cat, err := LoadBytes([]byte(yamlDoc), "catalog.yaml", discardLogger())
	if err != nil {
		t.Fatalf("LoadBytes() error = %v", err)
	}
	if _, ok := cat.Lookup("llm", "OpenAI"); !ok {
		t.Fatalf("YAML catalog missing entry: %v", cat.Entries("llm"))
	}
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"llm": [{"name": "OpenAI"}]}`))
	}))
	defer srv.Close()

	cat, err := Fetch(context.Background(), srv.Client(), srv.URL, discardLogger())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if !cat.Has("OpenAI") {
		t.Fatal("fetched catalog missing entry")
	}
}

func TestFetchNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := Fetch(context.Background(), srv.Client(), srv.URL, discardLogger()); err == nil {
		t.Fatal("Fetch() on 404 should error")
	}
}
