package layout

import "sort"

// Pseudo-dimensions reserved along every edge for its label, mirroring
// what the canvas renders for edge condition badges.
const (
	edgeLabelWidth  = 80.0
	edgeLabelHeight = 24.0
)

// place assigns a center position to every measured node using a layered
// (rank-based) placement: longest-path ranking, weighted barycenter
// ordering within ranks, then coordinate assignment along the flow axis.
// Heavier edges pull their endpoints toward aligned orders, keeping
// high-fan-in early-pipeline chains straighter than leaf branches.
func (e *Engine) place(g *flowGraph, dir Direction) map[string]Point {
	if len(g.sorted) == 0 {
		return nil
	}
	horizontal := dir == DirectionLR || dir == DirectionRL

	// Longest-path ranking: every edge spans at least minEdgeLength ranks.
	rank := make(map[string]int, len(g.sorted))
	maxRank := 0
	for _, id := range g.sorted {
		for _, idx := range g.successors[id] {
			target := g.live[idx].Target
			if r := rank[id] + minEdgeLength; r > rank[target] {
				rank[target] = r
			}
		}
	}
	for _, r := range rank {
		if r > maxRank {
			maxRank = r
		}
	}

	layers := make([][]string, maxRank+1)
	for _, id := range g.sorted {
		layers[rank[id]] = append(layers[rank[id]], id)
	}

	order := make(map[string]float64, len(g.sorted))
	for _, layer := range layers {
		for i, id := range layer {
			order[id] = float64(i)
		}
	}

	// Weighted barycenter sweeps: two downward passes over predecessor
	// orders, one upward pass over successor orders.
	for pass := 0; pass < 3; pass++ {
		if pass < 2 {
			for r := 1; r <= maxRank; r++ {
				e.reorder(layers[r], order, g, true)
			}
		} else {
			for r := maxRank - 1; r >= 0; r-- {
				e.reorder(layers[r], order, g, false)
			}
		}
	}

	// Rank-axis size of each layer and cumulative center positions, with
	// room for edge labels between ranks.
	labelExtent := edgeLabelHeight
	if horizontal {
		labelExtent = edgeLabelWidth
	}
	axisSize := make([]float64, len(layers))
	for r, layer := range layers {
		for _, id := range layer {
			size := g.measured[id]
			extent := size.Height
			if horizontal {
				extent = size.Width
			}
			if extent > axisSize[r] {
				axisSize[r] = extent
			}
		}
	}
	axisCenter := make([]float64, len(layers))
	axisCenter[0] = axisSize[0] / 2
	for r := 1; r < len(layers); r++ {
		axisCenter[r] = axisCenter[r-1] + axisSize[r-1]/2 + e.rankSep + labelExtent + axisSize[r]/2
	}

	// Cross-axis: stack each layer centered on the flow axis.
	centers := make(map[string]Point, len(g.sorted))
	for r, layer := range layers {
		total := 0.0
		for i, id := range layer {
			size := g.measured[id]
			if horizontal {
				total += size.Height
			} else {
				total += size.Width
			}
			if i > 0 {
				total += e.nodeSep
			}
		}
		cursor := -total / 2
		for _, id := range layer {
			size := g.measured[id]
			crossExtent := size.Width
			if horizontal {
				crossExtent = size.Height
			}
			crossCenter := cursor + crossExtent/2
			cursor += crossExtent + e.nodeSep

			axis := axisCenter[r]
			if dir == DirectionRL || dir == DirectionBT {
				axis = -axis
			}
			if horizontal {
				centers[id] = Point{X: axis, Y: crossCenter}
			} else {
				centers[id] = Point{X: crossCenter, Y: axis}
			}
		}
	}
	return centers
}

// reorder sorts one layer by the weighted mean order of its neighbors in
// the adjacent rank. Nodes without neighbors keep their current order.
func (e *Engine) reorder(layer []string, order map[string]float64, g *flowGraph, usePredecessors bool) {
	if len(layer) < 2 {
		return
	}
	bary := make(map[string]float64, len(layer))
	for _, id := range layer {
		var indices []int
		if usePredecessors {
			indices = g.incoming[id]
		} else {
			indices = g.successors[id]
		}
		if len(indices) == 0 {
			bary[id] = order[id]
			continue
		}
		sum, weightSum := 0.0, 0.0
		for _, idx := range indices {
			neighbor := g.live[idx].Source
			if !usePredecessors {
				neighbor = g.live[idx].Target
			}
			w := g.edgeWeight[idx]
			sum += order[neighbor] * w
			weightSum += w
		}
		bary[id] = sum / weightSum
	}

	sort.SliceStable(layer, func(i, j int) bool {
		return bary[layer[i]] < bary[layer[j]]
	})
	for i, id := range layer {
		order[id] = float64(i)
	}
}
