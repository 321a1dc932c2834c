// Package catalog provides a typed view over a node-type catalog document.
// It maps category names to node-type entries (ports, config schema, visual
// tags) used by the builder canvas, the server API, and the CLI.
package catalog

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/flowcanvas/flowcanvas/schema"
)

// VisualTag carries the rendering hints a canvas shows for a node type.
type VisualTag struct {
	Icon  string `json:"icon,omitempty"`
	Color string `json:"color,omitempty"`
}

// Entry describes one node type within a catalog category. Input, Output
// and Config hold the entry's raw JSON sub-schemas.
type Entry struct {
	Name      string         `json:"name"`
	VisualTag *VisualTag     `json:"visual_tag,omitempty"`
	Input     map[string]any `json:"input,omitempty"`
	Output    map[string]any `json:"output,omitempty"`
	Config    map[string]any `json:"config,omitempty"`
}

// Catalog holds all known node types grouped by category, preserving the
// order entries appear in within each category.
type Catalog struct {
	doc        map[string]any
	categories []string
	entries    map[string][]Entry
	model      *schema.Model
}

// Parse builds a Catalog from a decoded catalog document. Every array-valued
// top-level key whose elements are objects is treated as a category; entries
// that fail shape validation are logged and skipped rather than guessed at.
// Categories are ordered by name since a decoded JSON object carries no
// document order.
func Parse(doc map[string]any, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if doc == nil {
		return nil, fmt.Errorf("catalog document is nil")
	}

	c := &Catalog{
		doc:     doc,
		entries: make(map[string][]Entry),
	}

	for key, value := range doc {
		raw, ok := value.([]any)
		if !ok {
			continue
		}
		entries := parseCategory(key, raw, logger)
		if entries == nil {
			continue
		}
		c.categories = append(c.categories, key)
		c.entries[key] = entries
	}
	sort.Strings(c.categories)

	if len(c.categories) == 0 {
		return nil, fmt.Errorf("catalog document has no categories")
	}
	c.model = schema.NewModel(doc, schema.WithLogger(logger))
	return c, nil
}

// parseCategory converts one category array into entries. Returns nil when
// the array holds no object elements, which means the key is not a category
// at all (e.g. an enum list inside a plain schema document).
func parseCategory(category string, raw []any, logger *slog.Logger) []Entry {
	sawObject := false
	var entries []Entry
	for i, element := range raw {
		obj, ok := element.(map[string]any)
		if !ok {
			logger.Warn("skipping malformed catalog entry",
				"category", category, "index", i, "reason", "not an object")
			continue
		}
		sawObject = true

		entry, err := parseEntry(obj)
		if err != nil {
			logger.Warn("skipping malformed catalog entry",
				"category", category, "index", i, "error", err)
			continue
		}
		entries = append(entries, entry)
	}
	if !sawObject {
		return nil
	}
	return entries
}

// parseEntry validates the shape of one entry object explicitly: name must
// be a string when present, visual_tag an object, and the three sub-schema
// slots objects. Anything else is a malformed entry, not a different shape
// to be inferred.
func parseEntry(obj map[string]any) (Entry, error) {
	var entry Entry

	if raw, ok := obj["name"]; ok {
		name, ok := raw.(string)
		if !ok {
			return Entry{}, fmt.Errorf("name is %T, want string", raw)
		}
		entry.Name = name
	}

	if raw, ok := obj["visual_tag"]; ok {
		tagObj, ok := raw.(map[string]any)
		if !ok {
			return Entry{}, fmt.Errorf("visual_tag is %T, want object", raw)
		}
		tag := &VisualTag{}
		if icon, ok := tagObj["icon"].(string); ok {
			tag.Icon = icon
		}
		if color, ok := tagObj["color"].(string); ok {
			tag.Color = color
		}
		entry.VisualTag = tag
	}

	for _, slot := range []string{"input", "output", "config"} {
		raw, ok := obj[slot]
		if !ok {
			continue
		}
		sub, ok := raw.(map[string]any)
		if !ok {
			return Entry{}, fmt.Errorf("%s is %T, want object", slot, raw)
		}
		switch slot {
		case "input":
			entry.Input = sub
		case "output":
			entry.Output = sub
		case "config":
			entry.Config = sub
		}
	}
	return entry, nil
}

// Categories returns the category names in sorted order.
func (c *Catalog) Categories() []string {
	out := make([]string, len(c.categories))
	copy(out, c.categories)
	return out
}

// Entries returns the entries of one category in document order, or nil if
// the category does not exist.
func (c *Catalog) Entries(category string) []Entry {
	return c.entries[category]
}

// Lookup finds an entry by category and name.
func (c *Catalog) Lookup(category, name string) (Entry, bool) {
	for _, entry := range c.entries[category] {
		if entry.Name == name {
			return entry, true
		}
	}
	return Entry{}, false
}

// Has returns true if any category contains an entry with the given name.
func (c *Catalog) Has(name string) bool {
	for _, category := range c.categories {
		for _, entry := range c.entries[category] {
			if entry.Name == name {
				return true
			}
		}
	}
	return false
}

// Len returns the total number of entries across all categories.
func (c *Catalog) Len() int {
	total := 0
	for _, entries := range c.entries {
		total += len(entries)
	}
	return total
}

// Document returns the raw catalog document the Catalog was parsed from.
func (c *Catalog) Document() map[string]any {
	return c.doc
}

// Model returns the schema model over the raw document, giving access to
// extracted metadata, constraints and default objects for every entry.
func (c *Catalog) Model() *schema.Model {
	return c.model
}
