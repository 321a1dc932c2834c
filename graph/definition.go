// Package graph defines the serializable canvas graph a workflow builder
// edits: typed nodes with positions and measured sizes, directed edges
// with port handles, and the structural validation the frontend runs
// before saving or laying out a graph.
package graph

import (
	"fmt"

	"github.com/flowcanvas/flowcanvas/layout"
)

// Diagnostic represents a validation error or warning produced by canvas
// graph validation.
type Diagnostic struct {
	Code     string `json:"code"`           // e.g. "CV-001"
	Severity string `json:"severity"`       // "error" or "warning"
	Message  string `json:"message"`        // human-readable description
	Path     string `json:"path,omitempty"` // JSON path to offending field
}

const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// HasErrors returns true if any diagnostic has error severity.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Errors returns only the error-severity diagnostics.
func Errors(diags []Diagnostic) []Diagnostic {
	var errs []Diagnostic
	for _, d := range diags {
		if d.Severity == SeverityError {
			errs = append(errs, d)
		}
	}
	return errs
}

// Warnings returns only the warning-severity diagnostics.
func Warnings(diags []Diagnostic) []Diagnostic {
	var warns []Diagnostic
	for _, d := range diags {
		if d.Severity == SeverityWarning {
			warns = append(warns, d)
		}
	}
	return warns
}

// Definition is the serializable canvas state: what the builder UI edits
// and what the layout engine consumes a snapshot of.
type Definition struct {
	ID       string            `json:"id"`
	Version  string            `json:"version,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Nodes    []Node            `json:"nodes"`
	Edges    []Edge            `json:"edges"`
}

// Node is a canvas node instance of a cataloged node type.
type Node struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Position layout.Point   `json:"position"`
	Measured *layout.Size   `json:"measured,omitempty"`
	Config   map[string]any `json:"config,omitempty"`
}

// Edge is a directed connection between two canvas nodes.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	Target       string `json:"target"`
	TargetHandle string `json:"targetHandle,omitempty"`
}

// Validate checks structural integrity of the canvas graph:
//   - CV-001: duplicate node IDs
//   - CV-002: edge source/target reference existing nodes
//   - CV-003: node type is present
//   - CV-004: self-loop edges
//   - CV-005: orphan nodes (warning)
//   - CV-006: cycle detection (auto-layout cannot run on a cyclic graph)
func (d *Definition) Validate() []Diagnostic {
	var diags []Diagnostic

	nodeIDs := make(map[string]bool, len(d.Nodes))
	for i, node := range d.Nodes {
		if nodeIDs[node.ID] {
			diags = append(diags, Diagnostic{
				Code:     "CV-001",
				Severity: SeverityError,
				Message:  fmt.Sprintf("Duplicate node ID %q", node.ID),
				Path:     fmt.Sprintf("nodes[%d].id", i),
			})
		}
		nodeIDs[node.ID] = true

		if node.Type == "" {
			diags = append(diags, Diagnostic{
				Code:     "CV-003",
				Severity: SeverityError,
				Message:  fmt.Sprintf("Node %q has no type", node.ID),
				Path:     fmt.Sprintf("nodes[%d].type", i),
			})
		}
	}

	edgeRefsOK := true
	for i, edge := range d.Edges {
		if !nodeIDs[edge.Source] {
			edgeRefsOK = false
			diags = append(diags, Diagnostic{
				Code:     "CV-002",
				Severity: SeverityError,
				Message:  fmt.Sprintf("Edge source %q references unknown node", edge.Source),
				Path:     fmt.Sprintf("edges[%d].source", i),
			})
		}
		if !nodeIDs[edge.Target] {
			edgeRefsOK = false
			diags = append(diags, Diagnostic{
				Code:     "CV-002",
				Severity: SeverityError,
				Message:  fmt.Sprintf("Edge target %q references unknown node", edge.Target),
				Path:     fmt.Sprintf("edges[%d].target", i),
			})
		}
		if edge.Source == edge.Target && edge.Source != "" {
			diags = append(diags, Diagnostic{
				Code:     "CV-004",
				Severity: SeverityError,
				Message:  fmt.Sprintf("Edge %q connects node %q to itself", edge.ID, edge.Source),
				Path:     fmt.Sprintf("edges[%d]", i),
			})
		}
	}

	// CV-005: orphan nodes — nodes with no inbound and no outbound edges.
	if len(d.Nodes) > 1 {
		hasInbound := make(map[string]bool)
		hasOutbound := make(map[string]bool)
		for _, edge := range d.Edges {
			hasOutbound[edge.Source] = true
			hasInbound[edge.Target] = true
		}
		for i, node := range d.Nodes {
			if !hasInbound[node.ID] && !hasOutbound[node.ID] {
				diags = append(diags, Diagnostic{
					Code:     "CV-005",
					Severity: SeverityWarning,
					Message:  fmt.Sprintf("Node %q has no inbound or outbound edges", node.ID),
					Path:     fmt.Sprintf("nodes[%d]", i),
				})
			}
		}
	}

	// CV-006: cycle detection via Kahn's algorithm. Only run when edges
	// reference valid nodes to avoid confusing double reports.
	if edgeRefsOK {
		if cycle := d.detectCycle(); cycle != "" {
			diags = append(diags, Diagnostic{
				Code:     "CV-006",
				Severity: SeverityError,
				Message:  fmt.Sprintf("Graph contains a cycle: %s", cycle),
			})
		}
	}

	return diags
}

// detectCycle uses Kahn's algorithm to find cycles. Returns a description
// of the cycle if found, or empty string if the graph is acyclic.
func (d *Definition) detectCycle() string {
	inDegree := make(map[string]int)
	successors := make(map[string][]string)
	for _, node := range d.Nodes {
		inDegree[node.ID] = 0
	}
	for _, edge := range d.Edges {
		successors[edge.Source] = append(successors[edge.Source], edge.Target)
		inDegree[edge.Target]++
	}

	queue := make([]string, 0)
	for _, node := range d.Nodes {
		if inDegree[node.ID] == 0 {
			queue = append(queue, node.ID)
		}
	}

	visited := 0
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		visited++
		for _, succ := range successors[current] {
			inDegree[succ]--
			if inDegree[succ] == 0 {
				queue = append(queue, succ)
			}
		}
	}

	if visited < len(d.Nodes) {
		var cycleNodes []string
		for _, node := range d.Nodes {
			if inDegree[node.ID] > 0 {
				cycleNodes = append(cycleNodes, node.ID)
			}
		}
		return fmt.Sprintf("nodes involved: %v", cycleNodes)
	}
	return ""
}

// LayoutNodes converts canvas nodes to layout engine inputs.
func (d *Definition) LayoutNodes() []layout.Node {
	nodes := make([]layout.Node, len(d.Nodes))
	for i, n := range d.Nodes {
		nodes[i] = layout.Node{ID: n.ID, Position: n.Position, Measured: n.Measured}
	}
	return nodes
}

// LayoutEdges converts canvas edges to layout engine inputs.
func (d *Definition) LayoutEdges() []layout.Edge {
	edges := make([]layout.Edge, len(d.Edges))
	for i, e := range d.Edges {
		edges[i] = layout.Edge{ID: e.ID, Source: e.Source, Target: e.Target}
	}
	return edges
}

// ApplyPositions copies computed positions back onto the definition's
// nodes by ID. Unknown IDs are ignored.
func (d *Definition) ApplyPositions(laid []layout.Node) {
	positions := make(map[string]layout.Point, len(laid))
	for _, n := range laid {
		positions[n.ID] = n.Position
	}
	for i := range d.Nodes {
		if pos, ok := positions[d.Nodes[i].ID]; ok {
			d.Nodes[i].Position = pos
		}
	}
}
