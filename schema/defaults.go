package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// strippedKeywords are removed recursively from generated default objects.
// The pass also guards against schemas whose default value itself happens
// to look like a schema fragment.
var strippedKeywords = []string{
	"$defs", "$ref",
	"properties", "items", "additionalProperties",
	"anyOf", "oneOf", "allOf",
}

// buildDefaults produces the default-valued object tree for the document,
// or nil when the document is a single schema that fails to compile.
func (m *Model) buildDefaults() map[string]any {
	if m.isCatalog() {
		return m.buildCatalogDefaults()
	}
	obj, ok := m.buildSchemaDefaults(m.doc, scopeChain{m.doc})
	if !ok {
		return nil
	}
	return obj
}

// buildSchemaDefaults compiles one schema, populates an object with its
// declared defaults, validates it, and strips schema keywords. Compilation
// failure is non-fatal at this granularity: it logs and reports !ok so
// catalog mode can fall back per entry.
func (m *Model) buildSchemaDefaults(sub map[string]any, scope scopeChain) (map[string]any, bool) {
	compiled, err := compileSchema(sub)
	if err != nil {
		m.logger.Warn("schema compilation failed, skipping defaults", "error", err)
		return nil, false
	}

	guard := newRefGuard(m.logger)
	value, _ := m.applyDefaults(sub, scope, guard)
	obj, _ := value.(map[string]any)
	if obj == nil {
		obj = map[string]any{}
	}

	if err := compiled.Validate(obj); err != nil {
		// Defaults that do not satisfy the schema (e.g. required fields
		// without declared defaults) still render as partial form state.
		m.logger.Debug("default object does not validate against its schema", "error", err)
	}

	stripped, _ := stripSchemaKeywords(deepCopyValue(obj)).(map[string]any)
	return stripped, true
}

// buildCatalogDefaults applies buildSchemaDefaults independently to every
// input/output/config sub-schema of every catalog entry. One malformed
// sub-schema falls back to its raw form without failing the catalog.
func (m *Model) buildCatalogDefaults() map[string]any {
	out := make(map[string]any)
	for key, raw := range m.doc {
		entries, ok := raw.([]any)
		if !ok || schemaKeywords[key] || !looksLikeCategory(entries) {
			out[key] = deepCopyValue(raw)
			continue
		}

		built := make([]any, 0, len(entries))
		for _, entryRaw := range entries {
			entry, ok := entryRaw.(map[string]any)
			if !ok {
				continue
			}
			slot := make(map[string]any)
			if name, ok := entry["name"]; ok {
				slot["name"] = name
			}
			if tag, ok := entry["visual_tag"]; ok {
				slot["visual_tag"] = deepCopyValue(tag)
			}
			for _, subKey := range entrySubSchemas {
				sub, ok := entry[subKey].(map[string]any)
				if !ok {
					continue
				}
				defaults, ok := m.buildSchemaDefaults(sub, scopeChain{m.doc, entry, sub})
				if !ok {
					// Raw fallback: the UI renders this entry without
					// pre-filled values rather than dropping it.
					slot[subKey] = deepCopyValue(sub)
					continue
				}
				merged := shallowMerge(deepCopyValue(sub).(map[string]any), defaults)
				slot[subKey] = stripSchemaKeywords(merged)
			}
			built = append(built, slot)
		}
		out[key] = built
	}
	return out
}

// applyDefaults walks the schema collecting declared defaults into a value
// tree. Returns the value and whether the branch produced one.
func (m *Model) applyDefaults(node map[string]any, scope scopeChain, guard *refGuard) (any, bool) {
	if node == nil {
		return nil, false
	}

	for _, keyword := range []string{"anyOf", "oneOf"} {
		variants, ok := node[keyword].([]any)
		if !ok {
			continue
		}
		variant := firstNonNullVariant(variants)
		if variant == nil {
			continue
		}
		merged := shallowMerge(node, variant)
		delete(merged, "anyOf")
		delete(merged, "oneOf")
		return m.applyDefaults(merged, scope, guard)
	}

	if ref, ok := node["$ref"].(string); ok {
		resolved := resolveRef(ref, scope)
		if resolved == nil {
			m.logger.Warn("unresolvable schema reference, skipping defaults branch", "ref", ref)
			return nil, false
		}
		if !guard.enter(ref, resolved) {
			return nil, false
		}
		defer guard.leave(resolved)
		return m.applyDefaults(resolved, scope.push(resolved), guard)
	}

	// Declared defaults are copied defensively: the produced object is
	// mutated by the keyword-stripping pass and must never alias the
	// caller's document.
	if def, ok := node["default"]; ok {
		return deepCopyValue(def), true
	}

	if variants, ok := node["allOf"].([]any); ok {
		combined := make(map[string]any)
		produced := false
		for _, raw := range variants {
			variant, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			if value, ok := m.applyDefaults(variant, scope.push(node), guard); ok {
				if obj, ok := value.(map[string]any); ok {
					combined = deepMerge(combined, obj)
					produced = true
				}
			}
		}
		if produced {
			return combined, true
		}
	}

	props, hasProps := node["properties"].(map[string]any)
	nodeType, _ := node["type"].(string)
	if hasProps || nodeType == "object" {
		obj := make(map[string]any)
		for name, raw := range props {
			child, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			if value, ok := m.applyDefaults(child, scope.push(node), guard); ok {
				obj[name] = value
			}
		}
		return obj, true
	}

	return nil, false
}

// stripSchemaKeywords removes structural schema keywords from every level
// of a value tree. The input must already be a defensive copy.
func stripSchemaKeywords(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for _, keyword := range strippedKeywords {
			delete(val, keyword)
		}
		for k, item := range val {
			val[k] = stripSchemaKeywords(item)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = stripSchemaKeywords(item)
		}
		return val
	default:
		return v
	}
}

// compileSchema compiles a decoded schema document with the JSON-Schema
// validation engine. Malformed schemas surface here as errors.
func compileSchema(doc map[string]any) (*jsonschema.Schema, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("adding schema resource: %w", err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compiling schema: %w", err)
	}
	return compiled, nil
}

// isCatalog reports whether the document is a node-type catalog, i.e. any
// non-keyword top-level key holds an array of entry objects.
func (m *Model) isCatalog() bool {
	for key, raw := range m.doc {
		entries, ok := raw.([]any)
		if !ok || schemaKeywords[key] {
			continue
		}
		if looksLikeCategory(entries) {
			return true
		}
	}
	return false
}
