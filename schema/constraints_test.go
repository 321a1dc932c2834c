package schema

import (
	"reflect"
	"testing"
)

func TestExtractConstraintsBasic(t *testing.T) {
	doc := mustDoc(t, `{
		"type": "object",
		"properties": {
			"name": {"type": "string", "minLength": 1, "maxLength": 64},
			"count": {"type": "integer", "minimum": 0, "maximum": 10},
			"tags": {"type": "array", "minItems": 1, "items": {"type": "string", "pattern": "^[a-z]+$"}}
		}
	}`)
	model := NewModel(doc, WithLogger(discardLogger()))

	got := model.AllConstraints()

	want := Constraints{
		"name":       {"type": "string", "minLength": float64(1), "maxLength": float64(64)},
		"count":      {"type": "integer", "minimum": float64(0), "maximum": float64(10)},
		"tags":       {"type": "array", "minItems": float64(1)},
		"tags.items": {"type": "string", "pattern": "^[a-z]+$"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("AllConstraints() = %v, want %v", got, want)
	}
}

func TestExtractConstraintsRefTransparent(t *testing.T) {
	// A $ref adds no path segment: the referenced definition's constraints
	// land on the referencing field's path.
	doc := mustDoc(t, `{
		"$defs": {"Port": {"type": "integer", "minimum": 1, "maximum": 65535}},
		"type": "object",
		"properties": {"port": {"$ref": "#/$defs/Port"}}
	}`)
	model := NewModel(doc, WithLogger(discardLogger()))

	got := model.AllConstraints().Get("port")
	if got == nil {
		t.Fatal("expected constraints at path \"port\"")
	}
	if got["minimum"] != float64(1) || got["maximum"] != float64(65535) {
		t.Fatalf("constraints through $ref = %v", got)
	}
}

func TestExtractConstraintsVariantsMergeSamePath(t *testing.T) {
	// anyOf variants merge into the same path, last writer wins in
	// document order.
	doc := mustDoc(t, `{
		"type": "object",
		"properties": {
			"value": {
				"anyOf": [
					{"type": "string", "minLength": 2},
					{"type": "integer", "minimum": 5}
				]
			}
		}
	}`)
	model := NewModel(doc, WithLogger(discardLogger()))

	got := model.AllConstraints().Get("value")
	want := map[string]any{"type": "integer", "minLength": float64(2), "minimum": float64(5)}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("merged variant constraints = %v, want %v", got, want)
	}
}

func TestExtractConstraintsUnresolvableRefSkipsBranch(t *testing.T) {
	doc := mustDoc(t, `{
		"type": "object",
		"properties": {
			"good": {"type": "string", "minLength": 1},
			"bad": {"$ref": "#/$defs/Missing"}
		}
	}`)
	model := NewModel(doc, WithLogger(discardLogger()))

	got := model.AllConstraints()
	if got.Get("good") == nil {
		t.Fatal("sibling of an unresolvable ref must still be extracted")
	}
	if got.Get("bad") != nil {
		t.Fatalf("unresolvable ref produced constraints: %v", got.Get("bad"))
	}
}

func TestExtractConstraintsCyclicRefTerminates(t *testing.T) {
	doc := mustDoc(t, `{
		"$defs": {"Node": {"properties": {"next": {"$ref": "#/$defs/Node"}}, "minProperties": 1}},
		"type": "object",
		"properties": {"root": {"$ref": "#/$defs/Node"}}
	}`)
	model := NewModel(doc, WithLogger(discardLogger()))

	// Must terminate rather than exhaust the stack.
	got := model.AllConstraints()
	if got.Get("root") == nil {
		t.Fatal("expected constraints for the first traversal of the cycle")
	}
}
