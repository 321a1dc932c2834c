package schema

import (
	"reflect"
	"testing"
)

func TestExtractMetadataAnyOfFlattening(t *testing.T) {
	// Optional/nullable fields collapse to their non-null variant while
	// parent descriptive fields survive.
	doc := mustDoc(t, `{
		"type": "object",
		"properties": {
			"greeting": {
				"title": "X",
				"anyOf": [{"type": "null"}, {"type": "string", "default": "hi"}]
			}
		}
	}`)
	model := NewModel(doc, WithLogger(discardLogger()))

	got := model.PropertyMetadata("greeting")
	want := map[string]any{"title": "X", "type": "string", "default": "hi"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("PropertyMetadata(greeting) = %v, want %v", got, want)
	}
}

func TestExtractMetadataVariantWinsOverParent(t *testing.T) {
	doc := mustDoc(t, `{
		"type": "object",
		"properties": {
			"field": {
				"title": "parent title",
				"description": "kept from parent",
				"anyOf": [{"type": "string", "title": "variant title"}]
			}
		}
	}`)
	model := NewModel(doc, WithLogger(discardLogger()))

	got := model.PropertyMetadata("field")
	if got["title"] != "variant title" {
		t.Fatalf("variant title should win, got %v", got["title"])
	}
	if got["description"] != "kept from parent" {
		t.Fatalf("parent description should survive, got %v", got["description"])
	}
}

func TestExtractMetadataCatalogMode(t *testing.T) {
	doc := mustDoc(t, `{
		"llm": [
			{
				"name": "single_llm",
				"visual_tag": {"acronym": "SL", "color": "#38B2AC"},
				"config": {
					"type": "object",
					"properties": {
						"model": {"type": "string", "default": "gpt-4o"}
					}
				}
			},
			{
				"name": "router_llm",
				"visual_tag": {"acronym": "RL", "color": "#ED8936"}
			}
		],
		"python": [
			{
				"name": "python_func",
				"visual_tag": {"acronym": "PF", "color": "#805AD5"},
				"input": {"type": "object", "properties": {"code": {"type": "string"}}}
			}
		]
	}`)
	model := NewModel(doc, WithLogger(discardLogger()))

	tree := model.AllMetadata()

	llm, _ := tree["llm"].([]any)
	if len(llm) != 2 {
		t.Fatalf("llm category has %d entries, want 2", len(llm))
	}
	python, _ := tree["python"].([]any)
	if len(python) != 1 {
		t.Fatalf("python category has %d entries, want 1", len(python))
	}

	first, _ := llm[0].(map[string]any)
	if first["name"] != "single_llm" {
		t.Fatalf("entry name = %v", first["name"])
	}
	if _, ok := first["visual_tag"].(map[string]any); !ok {
		t.Fatalf("entry visual_tag missing: %v", first)
	}

	got := model.PropertyMetadata("llm.0.config.model")
	if got == nil || got["default"] != "gpt-4o" {
		t.Fatalf("PropertyMetadata(llm.0.config.model) = %v", got)
	}
	if model.PropertyType("python.0.input.code") != "string" {
		t.Fatal("expected python input property metadata")
	}
}

func TestExtractMetadataLocalDefsElided(t *testing.T) {
	// A config-local definition surfaces under its name only; the literal
	// $defs segment never appears in a path.
	doc := mustDoc(t, `{
		"llm": [{
			"name": "n",
			"visual_tag": {"acronym": "N", "color": "#000"},
			"config": {
				"type": "object",
				"$defs": {"ModelInfo": {"type": "object", "title": "Model info", "properties": {"temperature": {"type": "number", "default": 0.7}}}},
				"properties": {"model": {"$ref": "#/$defs/ModelInfo"}}
			}
		}]
	}`)
	model := NewModel(doc, WithLogger(discardLogger()))

	if got := model.PropertyMetadata("llm.0.config.ModelInfo"); got == nil {
		t.Fatal("definition should surface at llm.0.config.ModelInfo")
	}
	if got := model.PropertyMetadata("llm.0.config.ModelInfo.temperature"); got == nil || got["default"] != float64(0.7) {
		t.Fatalf("definition properties should surface, got %v", got)
	}
	// The referencing field inlines the definition at its own path.
	if got := model.PropertyMetadata("llm.0.config.model"); got == nil || got["title"] != "Model info" {
		t.Fatalf("ref site should inline definition metadata, got %v", got)
	}
	if got := model.PropertyMetadata("llm.0.config.$defs.ModelInfo"); got != nil {
		t.Fatal("$defs must be elided from metadata paths")
	}
}

func TestPropertyPathRoundTrip(t *testing.T) {
	doc := mustDoc(t, `{
		"type": "object",
		"properties": {
			"outer": {
				"type": "object",
				"properties": {
					"inner": {"type": "integer", "minimum": 1, "title": "Inner"}
				}
			},
			"list": {"type": "array", "items": {"type": "string", "maxLength": 8}}
		}
	}`)
	model := NewModel(doc, WithLogger(discardLogger()))

	tests := []struct {
		path string
		key  string
		want any
	}{
		{path: "outer.inner", key: "title", want: "Inner"},
		{path: "outer.inner", key: "minimum", want: float64(1)},
		{path: "list.items", key: "maxLength", want: float64(8)},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := model.PropertyMetadata(tt.path)
			if got == nil || got[tt.key] != tt.want {
				t.Fatalf("PropertyMetadata(%q)[%q] = %v, want %v", tt.path, tt.key, got[tt.key], tt.want)
			}
		})
	}

	if model.PropertyMetadata("outer.missing") != nil {
		t.Fatal("missing path must return nil")
	}
	if model.PropertyMetadata("") != nil {
		t.Fatal("empty path must return nil")
	}
}

func TestIsPropertyRequired(t *testing.T) {
	doc := mustDoc(t, `{
		"type": "object",
		"required": ["name"],
		"properties": {
			"name": {"type": "string"},
			"count": {"type": "integer"},
			"nested": {
				"type": "object",
				"required": ["id"],
				"properties": {"id": {"type": "string"}, "label": {"type": "string"}}
			}
		}
	}`)
	model := NewModel(doc, WithLogger(discardLogger()))

	tests := []struct {
		path string
		want bool
	}{
		{path: "name", want: true},
		{path: "count", want: false},
		{path: "nested.id", want: true},
		{path: "nested.label", want: false},
		{path: "missing", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := model.IsPropertyRequired(tt.path); got != tt.want {
				t.Fatalf("IsPropertyRequired(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestExtractMetadataEnumCapturedNotCategorized(t *testing.T) {
	// Scalar keyword arrays must never be mistaken for catalog categories.
	doc := mustDoc(t, `{
		"type": "object",
		"properties": {
			"mode": {"type": "string", "enum": ["fast", "slow"], "default": "fast"}
		}
	}`)
	model := NewModel(doc, WithLogger(discardLogger()))

	got := model.PropertyEnum("mode")
	if !reflect.DeepEqual(got, []any{"fast", "slow"}) {
		t.Fatalf("PropertyEnum(mode) = %v", got)
	}
	if model.PropertyDefault("mode") != "fast" {
		t.Fatalf("PropertyDefault(mode) = %v", model.PropertyDefault("mode"))
	}
}

func TestExtractMetadataMalformedCatalogEntrySkipped(t *testing.T) {
	doc := mustDoc(t, `{
		"llm": [
			{"name": "ok", "visual_tag": {"acronym": "OK", "color": "#fff"}},
			"not an entry",
			{"name": "also_ok"}
		]
	}`)
	model := NewModel(doc, WithLogger(discardLogger()))

	llm, _ := model.AllMetadata()["llm"].([]any)
	if len(llm) != 3 {
		t.Fatalf("llm entries = %d, want 3", len(llm))
	}
	last, _ := llm[2].(map[string]any)
	if last["name"] != "also_ok" {
		t.Fatalf("entries after a malformed one must still extract, got %v", last)
	}
	skipped, _ := llm[1].(map[string]any)
	if _, ok := skipped["name"]; ok {
		t.Fatal("malformed entry must not gain identity fields")
	}
}
