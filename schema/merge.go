package schema

// deepMerge merges override into base and returns the result. Precedence:
// override values win on key collision, keys absent from the override are
// preserved from the base. When both sides hold a map the merge recurses;
// any other collision replaces the base value wholesale.
//
// base is mutated and returned; pass a copy when the original must survive.
func deepMerge(base, override map[string]any) map[string]any {
	if base == nil {
		base = make(map[string]any, len(override))
	}
	for key, value := range override {
		existing, ok := base[key]
		if !ok {
			base[key] = value
			continue
		}
		existingMap, okBase := existing.(map[string]any)
		valueMap, okOver := value.(map[string]any)
		if okBase && okOver {
			base[key] = deepMerge(existingMap, valueMap)
			continue
		}
		base[key] = value
	}
	return base
}

// shallowMerge copies base and overwrites with override's keys.
// Used for anyOf/oneOf variant flattening where parent descriptive fields
// survive unless the variant redefines them.
func shallowMerge(base, override map[string]any) map[string]any {
	merged := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}
	return merged
}

// deepCopyValue clones a decoded JSON value tree. Maps and slices are
// copied recursively; scalars are returned as-is.
func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = deepCopyValue(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = deepCopyValue(item)
		}
		return out
	default:
		return v
	}
}
