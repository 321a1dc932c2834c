package schema

import (
	"io"
	"log/slog"
	"reflect"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestModelMemoization(t *testing.T) {
	doc := mustDoc(t, `{
		"type": "object",
		"properties": {
			"name": {"type": "string", "default": "untitled", "minLength": 1}
		}
	}`)
	model := NewModel(doc, WithLogger(discardLogger()))

	firstDefaults := model.ObjectFromSchema()
	firstMetadata := model.AllMetadata()
	firstConstraints := model.AllConstraints()

	for i := 0; i < 3; i++ {
		if got := model.ObjectFromSchema(); !reflect.DeepEqual(got, firstDefaults) {
			t.Fatalf("ObjectFromSchema() call %d = %v, want %v", i+2, got, firstDefaults)
		}
		if got := model.AllMetadata(); !reflect.DeepEqual(got, firstMetadata) {
			t.Fatalf("AllMetadata() call %d diverged", i+2)
		}
		if got := model.AllConstraints(); !reflect.DeepEqual(got, firstConstraints) {
			t.Fatalf("AllConstraints() call %d diverged", i+2)
		}
	}
}

func TestModelConcurrentAccess(t *testing.T) {
	doc := mustDoc(t, `{
		"type": "object",
		"properties": {"x": {"type": "integer", "default": 3}}
	}`)
	model := NewModel(doc, WithLogger(discardLogger()))

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			_ = model.ObjectFromSchema()
			_ = model.AllMetadata()
			_ = model.AllConstraints()
			_ = model.PropertyMetadata("x")
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	if model.PropertyDefault("x") != float64(3) {
		t.Fatalf("PropertyDefault(x) = %v", model.PropertyDefault("x"))
	}
}

func TestParseModel(t *testing.T) {
	model, err := ParseModel([]byte(`{"type":"object","properties":{"a":{"type":"string"}}}`), WithLogger(discardLogger()))
	if err != nil {
		t.Fatalf("ParseModel() error = %v", err)
	}
	if model.PropertyType("a") != "string" {
		t.Fatalf("PropertyType(a) = %q", model.PropertyType("a"))
	}

	if _, err := ParseModel([]byte(`{not json`)); err == nil {
		t.Fatal("ParseModel() on invalid JSON should error")
	}
}

func TestModelDoesNotMutateDocument(t *testing.T) {
	raw := `{
		"type": "object",
		"$defs": {"D": {"type": "string", "default": "d"}},
		"properties": {"field": {"$ref": "#/$defs/D"}}
	}`
	doc := mustDoc(t, raw)
	snapshot := mustDoc(t, raw)

	model := NewModel(doc, WithLogger(discardLogger()))
	_ = model.ObjectFromSchema()
	_ = model.AllMetadata()
	_ = model.AllConstraints()

	if !reflect.DeepEqual(doc, snapshot) {
		t.Fatalf("input document mutated:\n got %v\nwant %v", doc, snapshot)
	}
}
