package schema

import (
	"strconv"
	"strings"
)

// metadataKeys is the set of descriptive and validation keywords captured
// into the metadata tree for each field.
var metadataKeys = []string{
	"type", "title", "description", "default",
	"minimum", "maximum",
	"minItems", "maxItems",
	"minLength", "maxLength",
	"pattern", "enum", "required", "additionalProperties",
	"name", "visual_tag",
}

// schemaKeywords are structural JSON-Schema keywords. They never name a
// node-type category and are stripped from generated default objects.
var schemaKeywords = map[string]bool{
	"$defs":                true,
	"$ref":                 true,
	"properties":           true,
	"items":                true,
	"additionalProperties": true,
	"anyOf":                true,
	"oneOf":                true,
	"allOf":                true,
	"enum":                 true,
	"required":             true,
	"type":                 true,
}

// entrySubSchemas are the per-entry sub-schema keys of a node-type catalog.
var entrySubSchemas = []string{"input", "output", "config"}

// extractMetadata walks the schema depth-first, mirroring its property
// nesting into the metadata tree. Wrapper keywords (properties, $defs) are
// elided from paths; references and anyOf/oneOf variants are flattened in
// place so callers see referenced definitions as if they were inlined.
func (m *Model) extractMetadata(node map[string]any, path []string, scope scopeChain, guard *refGuard, tree map[string]any) {
	if node == nil {
		return
	}

	// anyOf/oneOf collapse to the first non-null variant. Parent keys are
	// spread first so titles and descriptions survive unless the variant
	// redefines them.
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
		m.extractMetadata(merged, path, scope, guard, tree)
		return
	}

	if record := collectKeys(node, metadataKeys); len(record) > 0 {
		m.mergeAt(tree, path, record)
	}

	m.extractCatalogEntries(node, path, scope, guard, tree)

	if ref, ok := node["$ref"].(string); ok {
		resolved := resolveRef(ref, scope)
		if resolved == nil {
			m.logger.Warn("unresolvable schema reference, skipping branch", "ref", ref, "path", strings.Join(path, "."))
			return
		}
		// A resolved definition is re-extracted at the current path so its
		// metadata appears inlined at the point of reference.
		if !guard.enter(ref, resolved) {
			return
		}
		m.extractMetadata(resolved, path, scope.push(resolved), guard, tree)
		guard.leave(resolved)
		return
	}

	if props, ok := node["properties"].(map[string]any); ok {
		for name, raw := range props {
			child, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			m.extractMetadata(child, appendPath(path, name), scope.push(node), guard, tree)
		}
	}
	if items, ok := node["items"].(map[string]any); ok {
		m.extractMetadata(items, appendPath(path, "items"), scope.push(node), guard, tree)
	}
	if extra, ok := node["additionalProperties"].(map[string]any); ok {
		m.extractMetadata(extra, appendPath(path, "additionalProperties"), scope.push(node), guard, tree)
	}
}

// extractCatalogEntries handles catalog-mode recursion: any non-keyword
// key holding an array of objects is treated as a node-type category. The
// entry shape is validated explicitly; malformed entries are skipped with
// a diagnostic rather than assumed.
func (m *Model) extractCatalogEntries(node map[string]any, path []string, scope scopeChain, guard *refGuard, tree map[string]any) {
	for key, raw := range node {
		entries, ok := raw.([]any)
		if !ok || schemaKeywords[key] {
			continue
		}
		if !looksLikeCategory(entries) {
			continue
		}

		parent := m.ensureNode(tree, path)
		if parent == nil {
			continue
		}
		slots, _ := parent[key].([]any)
		for len(slots) < len(entries) {
			slots = append(slots, map[string]any{
				"input":  map[string]any{},
				"output": map[string]any{},
				"config": map[string]any{},
			})
		}
		parent[key] = slots

		for i, entryRaw := range entries {
			entry, ok := entryRaw.(map[string]any)
			if !ok {
				m.logger.Warn("skipping malformed catalog entry", "category", key, "index", i)
				continue
			}
			slot, _ := slots[i].(map[string]any)
			if slot == nil {
				continue
			}
			// Identity fields may be re-seeded, but previously populated
			// sub-trees must not be clobbered.
			if name, ok := entry["name"]; ok {
				slot["name"] = name
			}
			if tag, ok := entry["visual_tag"]; ok {
				slot["visual_tag"] = tag
			}

			entryPath := appendPath(appendPath(path, key), strconv.Itoa(i))
			for _, subKey := range entrySubSchemas {
				sub, ok := entry[subKey].(map[string]any)
				if !ok {
					continue
				}
				subPath := appendPath(entryPath, subKey)
				m.extractMetadata(sub, subPath, scope.push(node).push(entry), guard, tree)

				// Locally scoped definitions surface under the defined
				// name; the literal $defs segment is elided from paths.
				if defs, ok := sub["$defs"].(map[string]any); ok {
					for defName, defRaw := range defs {
						def, ok := defRaw.(map[string]any)
						if !ok {
							continue
						}
						m.extractMetadata(def, appendPath(subPath, defName), scope.push(node).push(entry).push(sub), guard, tree)
					}
				}
			}
		}
	}
}

// firstNonNullVariant returns the first variant whose type is not "null".
// This is how optional/nullable fields collapse to their non-null shape.
func firstNonNullVariant(variants []any) map[string]any {
	for _, raw := range variants {
		variant, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if t, _ := variant["type"].(string); t == "null" {
			continue
		}
		return variant
	}
	return nil
}

// looksLikeCategory reports whether an array plausibly holds node-type
// entries: at least one element is an object. Keyword arrays like enum or
// required hold scalars and never qualify; individual malformed entries in
// an otherwise valid category are skipped at extraction time.
func looksLikeCategory(entries []any) bool {
	for _, e := range entries {
		if _, ok := e.(map[string]any); ok {
			return true
		}
	}
	return false
}

// mergeAt deep-merges record into the tree node at path, creating
// intermediate maps as needed. Later writes add keys without discarding
// earlier ones at the same path.
func (m *Model) mergeAt(tree map[string]any, path []string, record map[string]any) {
	target := m.ensureNode(tree, path)
	if target == nil {
		return
	}
	deepMerge(target, record)
}

// ensureNode walks tree along path, creating missing map levels. Array
// levels (catalog entry slots) must already exist; a failed array lookup
// aborts with nil.
func (m *Model) ensureNode(tree map[string]any, path []string) map[string]any {
	cur := any(tree)
	for _, seg := range path {
		switch v := cur.(type) {
		case map[string]any:
			next, ok := v[seg]
			if !ok {
				created := map[string]any{}
				v[seg] = created
				cur = created
				continue
			}
			cur = next
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(v) {
				return nil
			}
			cur = v[idx]
		default:
			return nil
		}
	}
	node, _ := cur.(map[string]any)
	return node
}

// appendPath copies path with seg appended, so sibling branches of the
// walk never share a backing array.
func appendPath(path []string, seg string) []string {
	next := make([]string, len(path), len(path)+1)
	copy(next, path)
	return append(next, seg)
}
