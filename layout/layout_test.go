package layout

import (
	"errors"
	"testing"
)

func sized(id string, w, h float64) Node {
	return Node{ID: id, Measured: &Size{Width: w, Height: h}}
}

func edge(id, source, target string) Edge {
	return Edge{ID: id, Source: source, Target: target}
}

func TestNodeWeightPropagation(t *testing.T) {
	nodes := []Node{sized("A", 100, 40), sized("B", 100, 40), sized("C", 100, 40)}
	edges := []Edge{edge("e1", "A", "B"), edge("e2", "B", "C")}

	weights, err := NewEngine().NodeWeights(nodes, edges)
	if err != nil {
		t.Fatalf("NodeWeights() error = %v", err)
	}

	// Root seeds 1024, its outgoing edge carries 512, and every hop after
	// that doubles: B takes 512, B's out-edge carries 1024, C takes 1024.
	want := map[string]float64{"A": 1024, "B": 512, "C": 1024}
	for id, w := range want {
		if weights[id] != w {
			t.Fatalf("weight[%s] = %v, want %v (all: %v)", id, weights[id], w, weights)
		}
	}
}

func TestNodeWeightDiamondTakesHeaviestIncoming(t *testing.T) {
	nodes := []Node{sized("A", 100, 40), sized("B", 100, 40), sized("C", 100, 40), sized("D", 100, 40)}
	edges := []Edge{
		edge("e1", "A", "B"),
		edge("e2", "A", "C"),
		edge("e3", "B", "D"),
		edge("e4", "C", "D"),
	}

	weights, err := NewEngine().NodeWeights(nodes, edges)
	if err != nil {
		t.Fatalf("NodeWeights() error = %v", err)
	}
	if weights["D"] != 1024 {
		t.Fatalf("weight[D] = %v, want max incoming 1024 (all: %v)", weights["D"], weights)
	}
}

func TestLayoutCycleIsFatal(t *testing.T) {
	nodes := []Node{sized("A", 100, 40), sized("B", 100, 40)}
	edges := []Edge{edge("e1", "A", "B"), edge("e2", "B", "A")}

	if _, err := NewEngine().Layout(nodes, edges, DirectionLR); !errors.Is(err, ErrCycle) {
		t.Fatalf("Layout() on cyclic graph error = %v, want ErrCycle", err)
	}
}

func TestLayoutDeterministic(t *testing.T) {
	nodes := []Node{sized("A", 100, 40), sized("B", 100, 40), sized("C", 100, 40)}
	edges := []Edge{edge("e1", "A", "B"), edge("e2", "A", "C")}

	engine := NewEngine()
	first, err := engine.Layout(nodes, edges, DirectionLR)
	if err != nil {
		t.Fatalf("Layout() error = %v", err)
	}
	second, err := engine.Layout(nodes, edges, DirectionLR)
	if err != nil {
		t.Fatalf("Layout() error = %v", err)
	}
	for i := range first {
		if first[i].Position != second[i].Position {
			t.Fatalf("layout not deterministic: %v vs %v", first[i], second[i])
		}
	}
}

func TestLayoutDirections(t *testing.T) {
	nodes := []Node{sized("A", 100, 40), sized("B", 100, 40)}
	edges := []Edge{edge("e1", "A", "B")}
	engine := NewEngine()

	pos := func(dir Direction) (a, b Point) {
		t.Helper()
		out, err := engine.Layout(nodes, edges, dir)
		if err != nil {
			t.Fatalf("Layout(%s) error = %v", dir, err)
		}
		return out[0].Position, out[1].Position
	}

	if a, b := pos(DirectionLR); a.X >= b.X {
		t.Fatalf("LR: A.X %v should be left of B.X %v", a.X, b.X)
	}
	if a, b := pos(DirectionRL); a.X <= b.X {
		t.Fatalf("RL: A.X %v should be right of B.X %v", a.X, b.X)
	}
	if a, b := pos(DirectionTB); a.Y >= b.Y {
		t.Fatalf("TB: A.Y %v should be above B.Y %v", a.Y, b.Y)
	}
	if a, b := pos(DirectionBT); a.Y <= b.Y {
		t.Fatalf("BT: A.Y %v should be below B.Y %v", a.Y, b.Y)
	}

	if _, err := engine.Layout(nodes, edges, Direction("diagonal")); err == nil {
		t.Fatal("unsupported direction should error")
	}
}

func TestLayoutUnmeasuredNodesUnchanged(t *testing.T) {
	unmeasured := Node{ID: "ghost", Position: Point{X: 42, Y: 7}}
	nodes := []Node{sized("A", 100, 40), unmeasured, sized("B", 100, 40)}
	edges := []Edge{
		edge("e1", "A", "B"),
		// Edges touching unmeasured nodes are excluded from the layout
		// graph entirely, including cycle detection.
		edge("e2", "B", "ghost"),
		edge("e3", "ghost", "A"),
	}

	out, err := NewEngine().Layout(nodes, edges, DirectionLR)
	if err != nil {
		t.Fatalf("Layout() error = %v", err)
	}
	if out[1].Position != (Point{X: 42, Y: 7}) {
		t.Fatalf("unmeasured node moved: %v", out[1].Position)
	}
	if out[0].Position == out[2].Position {
		t.Fatal("measured nodes should receive distinct positions")
	}
}

func TestLayoutCenterToTopLeft(t *testing.T) {
	nodes := []Node{sized("solo", 200, 80)}

	out, err := NewEngine().Layout(nodes, nil, DirectionLR)
	if err != nil {
		t.Fatalf("Layout() error = %v", err)
	}
	// A single node is centered at (width/2 on the flow axis, 0 on the
	// cross axis); top-left anchoring subtracts half the measured size.
	got := out[0].Position
	if got.X != 0 || got.Y != -40 {
		t.Fatalf("top-left position = %v, want {0 -40}", got)
	}
}

func TestTopoSortOrder(t *testing.T) {
	nodes := []Node{sized("C", 10, 10), sized("A", 10, 10), sized("B", 10, 10)}
	edges := []Edge{edge("e1", "A", "B"), edge("e2", "B", "C")}

	g := newFlowGraph(nodes, edges)
	sorted, err := topoSort(g.order, g.live, g.successors)
	if err != nil {
		t.Fatalf("topoSort() error = %v", err)
	}

	index := make(map[string]int, len(sorted))
	for i, id := range sorted {
		index[id] = i
	}
	if !(index["A"] < index["B"] && index["B"] < index["C"]) {
		t.Fatalf("topological order violated: %v", sorted)
	}
}
