package schema

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Model is the facade over a raw schema document or node-type catalog.
// Construction does no eager work; each derived view is computed on first
// access and memoized for the life of the instance. A new document
// requires a new Model. Safe for concurrent readers.
type Model struct {
	doc    map[string]any
	logger *slog.Logger

	defaultsOnce sync.Once
	defaults     map[string]any

	metadataOnce sync.Once
	metadata     map[string]any

	constraintsOnce sync.Once
	constraints     Constraints
}

// Option configures a Model.
type Option func(*Model)

// WithLogger sets the logger used for extraction diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewModel wraps a decoded schema document. The document is treated as
// immutable; the model never mutates it.
func NewModel(doc map[string]any, opts ...Option) *Model {
	m := &Model{
		doc:    doc,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ParseModel decodes a JSON document and wraps it in a Model.
func ParseModel(data []byte, opts ...Option) (*Model, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing schema document: %w", err)
	}
	return NewModel(doc, opts...), nil
}

// Document returns the raw input document.
func (m *Model) Document() map[string]any {
	return m.doc
}

// ObjectFromSchema returns the default-valued object tree described by the
// document, with all schema keywords stripped. Returns nil when a single
// schema fails to compile; in catalog mode only the offending entry falls
// back to its raw sub-schema.
func (m *Model) ObjectFromSchema() map[string]any {
	m.defaultsOnce.Do(func() {
		m.defaults = m.buildDefaults()
	})
	return m.defaults
}

// AllMetadata returns the metadata tree mirroring the document's property
// structure, with wrapper keywords elided from paths.
func (m *Model) AllMetadata() map[string]any {
	m.metadataOnce.Do(func() {
		tree := make(map[string]any)
		m.extractMetadata(m.doc, nil, scopeChain{m.doc}, newRefGuard(m.logger), tree)
		m.metadata = tree
	})
	return m.metadata
}

// AllConstraints returns the flat dotted-path constraints map.
func (m *Model) AllConstraints() Constraints {
	m.constraintsOnce.Do(func() {
		out := make(Constraints)
		m.extractConstraints(m.doc, nil, scopeChain{m.doc}, newRefGuard(m.logger), out)
		m.constraints = out
	})
	return m.constraints
}

// PropertyMetadata returns the metadata record stored at a dotted path,
// or nil when any segment is missing.
func (m *Model) PropertyMetadata(path string) map[string]any {
	if path == "" {
		return nil
	}
	node := traverse(m.AllMetadata(), strings.Split(path, "."))
	record, _ := node.(map[string]any)
	return record
}

// PropertyDefault returns the declared default for a dotted path, or nil.
func (m *Model) PropertyDefault(path string) any {
	record := m.PropertyMetadata(path)
	if record == nil {
		return nil
	}
	return record["default"]
}

// PropertyType returns the declared type for a dotted path, or "".
func (m *Model) PropertyType(path string) string {
	record := m.PropertyMetadata(path)
	if record == nil {
		return ""
	}
	t, _ := record["type"].(string)
	return t
}

// PropertyConstraints returns the validation-keyword subset of the
// metadata record at a dotted path, or nil when none are declared.
func (m *Model) PropertyConstraints(path string) map[string]any {
	record := m.PropertyMetadata(path)
	if record == nil {
		return nil
	}
	return collectKeys(record, constraintKeys)
}

// PropertyEnum returns the declared enum values for a dotted path, or nil.
func (m *Model) PropertyEnum(path string) []any {
	record := m.PropertyMetadata(path)
	if record == nil {
		return nil
	}
	values, _ := record["enum"].([]any)
	return values
}

// IsPropertyRequired reports whether the field named by the last path
// segment appears in its parent's required list. Absent required lists
// default to not required.
func (m *Model) IsPropertyRequired(path string) bool {
	if path == "" {
		return false
	}
	segs := strings.Split(path, ".")
	field := segs[len(segs)-1]

	parent := any(m.AllMetadata())
	if len(segs) > 1 {
		parent = traverse(m.AllMetadata(), segs[:len(segs)-1])
	}
	record, _ := parent.(map[string]any)
	if record == nil {
		return false
	}
	required, _ := record["required"].([]any)
	for _, name := range required {
		if s, _ := name.(string); s == field {
			return true
		}
	}
	return false
}
