package schema

import (
	"log/slog"
	"reflect"
	"strconv"
	"strings"
)

// refPrefixDefs marks a reference into a $defs map. Such references are
// resolved against the nearest enclosing schema node that declares the
// named definition, not against the document root. Code generators emit
// both shapes and resolving them identically silently drops defaults.
const refPrefixDefs = "$defs"

// scopeChain is the chain of schema nodes from the document root down to
// the node currently being walked. Index 0 is the root document. It is the
// ownership path used to resolve locally scoped $defs references.
type scopeChain []map[string]any

// root returns the document root of the chain, or nil for an empty chain.
func (s scopeChain) root() map[string]any {
	if len(s) == 0 {
		return nil
	}
	return s[0]
}

// push returns a new chain extended with node. The backing array is copied
// so sibling branches of a walk never see each other's scopes.
func (s scopeChain) push(node map[string]any) scopeChain {
	next := make(scopeChain, len(s), len(s)+1)
	copy(next, s)
	return append(next, node)
}

// resolveRef resolves a "#/..." reference pointer against the scope chain.
//
// A pointer whose first segment is "$defs" is locally scoped: the chain is
// walked from the innermost node outward until a node declaring a $defs map
// containing the named definition is found (the root document acts as the
// final fallback). Any other pointer is traversed from the document root,
// one property or array-index lookup per segment.
//
// Returns nil when the pointer cannot be resolved; callers treat nil as
// "unresolvable, skip this branch".
func resolveRef(ref string, scope scopeChain) map[string]any {
	segs := splitRef(ref)
	if len(segs) == 0 {
		return nil
	}

	if segs[0] == refPrefixDefs {
		if len(segs) < 2 {
			return nil
		}
		for i := len(scope) - 1; i >= 0; i-- {
			defs, ok := scope[i][refPrefixDefs].(map[string]any)
			if !ok {
				continue
			}
			if _, ok := defs[segs[1]]; !ok {
				continue
			}
			return asSchemaNode(traverse(defs, segs[1:]))
		}
		return nil
	}

	return asSchemaNode(traverse(scope.root(), segs))
}

// splitRef splits a reference pointer into path segments, discarding the
// leading "#" fragment marker.
func splitRef(ref string) []string {
	parts := strings.Split(ref, "/")
	segs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" || p == "#" {
			continue
		}
		segs = append(segs, p)
	}
	return segs
}

// traverse follows path segments through nested maps and arrays.
// Returns nil as soon as any lookup fails.
func traverse(node any, segs []string) any {
	cur := node
	for _, seg := range segs {
		switch v := cur.(type) {
		case map[string]any:
			next, ok := v[seg]
			if !ok {
				return nil
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
	return cur
}

// asSchemaNode narrows a traversal result to a schema node.
func asSchemaNode(v any) map[string]any {
	node, _ := v.(map[string]any)
	return node
}

// refGuard breaks cycles while following $ref chains during a tree walk.
// Schema nodes are identified by map header pointer; a node revisited while
// still on the current walk stack signals a cyclic reference graph. The
// reference behavior on such schemas was stack exhaustion; here the cycle
// is diagnosed and the branch skipped, matching the unresolvable-ref
// taxonomy.
type refGuard struct {
	active map[uintptr]bool
	logger *slog.Logger
}

func newRefGuard(logger *slog.Logger) *refGuard {
	return &refGuard{active: make(map[uintptr]bool), logger: logger}
}

// enter marks node as being walked. Returns false when the node is already
// on the walk stack, i.e. the reference graph is cyclic.
func (g *refGuard) enter(ref string, node map[string]any) bool {
	id := nodeIdentity(node)
	if g.active[id] {
		g.logger.Warn("cyclic schema reference, skipping branch", "ref", ref)
		return false
	}
	g.active[id] = true
	return true
}

// leave unmarks node after its subtree walk completes.
func (g *refGuard) leave(node map[string]any) {
	delete(g.active, nodeIdentity(node))
}

// nodeIdentity returns a stable identity for a schema node within one
// decoded document.
func nodeIdentity(node map[string]any) uintptr {
	return reflect.ValueOf(node).Pointer()
}
