// Package layout computes canvas positions for workflow graphs. It
// topologically sorts the node graph, propagates edge weights from root
// nodes outward to keep early-in-pipeline chains visually prioritized, and
// places nodes with a layered algorithm honoring those weights.
package layout

import (
	"errors"
	"fmt"
)

// ErrCycle is returned when the measured subgraph is cyclic. A cyclic
// graph is a caller-input invariant violation: the whole layout call fails
// and no partial positions are produced.
var ErrCycle = errors.New("cycle detected in graph")

// Direction selects the primary flow axis of the layout.
type Direction string

const (
	DirectionLR Direction = "LR"
	DirectionRL Direction = "RL"
	DirectionTB Direction = "TB"
	DirectionBT Direction = "BT"
)

// Point is a canvas coordinate. Node positions are top-left anchored.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a rendered node's measured dimensions.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Node is a canvas node as the layout engine sees it. Nodes without a
// measured size have not been rendered yet; they are skipped and returned
// with their positions unchanged.
type Node struct {
	ID       string `json:"id"`
	Position Point  `json:"position"`
	Measured *Size  `json:"measured,omitempty"`
}

// Edge is a directed connection between two nodes.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// Root nodes seed the weight propagation; their outgoing edges start at
// half the root weight and every hop downstream doubles.
const (
	rootNodeWeight    = 1024
	rootEdgeWeight    = 512
	orphanNodeWeight  = 2
	defaultEdgeWeight = 1
	minEdgeLength     = 1
)

// Engine computes layouts.
type Engine struct {
	rankSep float64
	nodeSep float64
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithRankSep sets the separation between ranks along the flow axis.
func WithRankSep(sep float64) EngineOption {
	return func(e *Engine) { e.rankSep = sep }
}

// WithNodeSep sets the separation between nodes within a rank.
func WithNodeSep(sep float64) EngineOption {
	return func(e *Engine) { e.nodeSep = sep }
}

// NewEngine creates a layout engine with canvas-tuned defaults.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		rankSep: 120,
		nodeSep: 60,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Layout returns the nodes with positions replaced by computed placement.
// Only nodes with a measured size participate; the edge set restricted to
// measured nodes must be acyclic or ErrCycle is returned and no positions
// change.
func (e *Engine) Layout(nodes []Node, edges []Edge, dir Direction) ([]Node, error) {
	switch dir {
	case DirectionLR, DirectionRL, DirectionTB, DirectionBT:
	case "":
		dir = DirectionLR
	default:
		return nil, fmt.Errorf("unsupported layout direction %q", dir)
	}

	g := newFlowGraph(nodes, edges)
	if err := g.propagate(); err != nil {
		return nil, err
	}

	centers := e.place(g, dir)

	// Convert computed centers to top-left positions; nodes the placement
	// never saw are returned unchanged.
	out := make([]Node, len(nodes))
	copy(out, nodes)
	for i := range out {
		center, ok := centers[out[i].ID]
		if !ok {
			continue
		}
		size := out[i].Measured
		out[i].Position = Point{
			X: center.X - size.Width/2,
			Y: center.Y - size.Height/2,
		}
	}
	return out, nil
}

// NodeWeights exposes the propagated node weights of the measured
// subgraph. Intended for diagnostics.
func (e *Engine) NodeWeights(nodes []Node, edges []Edge) (map[string]float64, error) {
	g := newFlowGraph(nodes, edges)
	if err := g.propagate(); err != nil {
		return nil, err
	}
	return g.nodeWeight, nil
}

// flowGraph is the measured subgraph with per-node and per-edge weights.
type flowGraph struct {
	order      []string         // measured node IDs in input order
	measured   map[string]*Size // id -> size
	live       []Edge           // edges with both endpoints measured
	successors map[string][]int // id -> outgoing indices into live
	incoming   map[string][]int // id -> incoming indices into live
	sorted     []string         // topological order, sources first
	nodeWeight map[string]float64
	edgeWeight []float64
}

// newFlowGraph restricts the input to the measured subgraph and seeds root
// weights: every zero-in-degree node gets the root weight and its outgoing
// edges the root edge weight.
func newFlowGraph(nodes []Node, edges []Edge) *flowGraph {
	g := &flowGraph{
		measured:   make(map[string]*Size, len(nodes)),
		successors: make(map[string][]int),
		incoming:   make(map[string][]int),
		nodeWeight: make(map[string]float64),
	}
	for _, n := range nodes {
		if n.Measured == nil {
			continue
		}
		g.measured[n.ID] = n.Measured
		g.order = append(g.order, n.ID)
	}
	for _, edge := range edges {
		if g.measured[edge.Source] == nil || g.measured[edge.Target] == nil {
			continue
		}
		idx := len(g.live)
		g.live = append(g.live, edge)
		g.successors[edge.Source] = append(g.successors[edge.Source], idx)
		g.incoming[edge.Target] = append(g.incoming[edge.Target], idx)
	}

	g.edgeWeight = make([]float64, len(g.live))
	for _, id := range g.order {
		if len(g.incoming[id]) == 0 {
			g.nodeWeight[id] = rootNodeWeight
			for _, idx := range g.successors[id] {
				g.edgeWeight[idx] = rootEdgeWeight
			}
		}
	}
	return g
}

// propagate topologically sorts the subgraph and pushes weights from the
// roots outward: a node takes its heaviest incoming edge (isolated
// non-roots fall back to a token weight), and each unassigned outgoing
// edge takes double the node's weight.
func (g *flowGraph) propagate() error {
	sorted, err := topoSort(g.order, g.live, g.successors)
	if err != nil {
		return err
	}
	g.sorted = sorted

	for _, id := range sorted {
		if in := g.incoming[id]; len(in) > 0 {
			heaviest := 0.0
			for _, idx := range in {
				if g.edgeWeight[idx] > heaviest {
					heaviest = g.edgeWeight[idx]
				}
			}
			g.nodeWeight[id] = heaviest
		} else if g.nodeWeight[id] == 0 {
			g.nodeWeight[id] = orphanNodeWeight
		}
		for _, idx := range g.successors[id] {
			if g.edgeWeight[idx] == 0 {
				g.edgeWeight[idx] = g.nodeWeight[id] * 2
			}
		}
	}
	for i := range g.edgeWeight {
		if g.edgeWeight[i] == 0 {
			g.edgeWeight[i] = defaultEdgeWeight
		}
	}
	return nil
}
