package schema

import "strings"

// constraintKeys is the set of validation keywords captured into the
// constraints map. Descriptive keywords (title, description, default) are
// deliberately excluded; those belong to the metadata tree.
var constraintKeys = []string{
	"minimum", "maximum",
	"exclusiveMinimum", "exclusiveMaximum",
	"minItems", "maxItems",
	"minLength", "maxLength",
	"minProperties", "maxProperties",
	"pattern", "type", "enum",
}

// Constraints maps a dotted property path to the validation keywords
// declared for that property.
type Constraints map[string]map[string]any

// Get returns the constraint record for a dotted path, or nil.
func (c Constraints) Get(path string) map[string]any {
	return c[path]
}

// extractConstraints walks the schema depth-first and emits the flat
// constraints map. References are transparent (they do not add a path
// segment), anyOf/oneOf/allOf variants merge into the same path in
// document order with last writer winning, and array item schemas are
// filed under the literal segment "items".
func (m *Model) extractConstraints(node map[string]any, path []string, scope scopeChain, guard *refGuard, out Constraints) {
	if node == nil {
		return
	}

	if record := collectKeys(node, constraintKeys); len(record) > 0 && len(path) > 0 {
		key := strings.Join(path, ".")
		if existing, ok := out[key]; ok {
			for k, v := range record {
				existing[k] = v
			}
		} else {
			out[key] = record
		}
	}

	switch {
	case node["$ref"] != nil:
		ref, _ := node["$ref"].(string)
		resolved := resolveRef(ref, scope)
		if resolved == nil {
			m.logger.Warn("unresolvable schema reference, skipping branch", "ref", ref, "path", strings.Join(path, "."))
			return
		}
		if !guard.enter(ref, resolved) {
			return
		}
		m.extractConstraints(resolved, path, scope.push(resolved), guard, out)
		guard.leave(resolved)
		return

	case node["properties"] != nil:
		props, _ := node["properties"].(map[string]any)
		for name, raw := range props {
			child, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			m.extractConstraints(child, appendPath(path, name), scope.push(node), guard, out)
		}

	default:
		for _, keyword := range []string{"anyOf", "oneOf", "allOf"} {
			variants, ok := node[keyword].([]any)
			if !ok {
				continue
			}
			for _, raw := range variants {
				variant, ok := raw.(map[string]any)
				if !ok {
					continue
				}
				m.extractConstraints(variant, path, scope.push(node), guard, out)
			}
		}
	}

	if items, ok := node["items"].(map[string]any); ok {
		m.extractConstraints(items, appendPath(path, "items"), scope.push(node), guard, out)
	}
}

// collectKeys copies the listed keys present on node into a fresh record.
func collectKeys(node map[string]any, keys []string) map[string]any {
	var record map[string]any
	for _, key := range keys {
		if value, ok := node[key]; ok {
			if record == nil {
				record = make(map[string]any)
			}
			record[key] = value
		}
	}
	return record
}
