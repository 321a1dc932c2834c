package layout

import "fmt"

// visit colors for the DFS.
const (
	unvisited = iota
	visiting
	done
)

// topoSort orders node IDs sources-first via DFS postorder. Finding a node
// already on the current DFS stack means the edge set is cyclic, which is
// fatal for the whole sort.
func topoSort(ids []string, edges []Edge, successors map[string][]int) ([]string, error) {
	state := make(map[string]int, len(ids))
	postorder := make([]string, 0, len(ids))

	var visit func(id string) error
	visit = func(id string) error {
		switch state[id] {
		case visiting:
			return fmt.Errorf("%w: involving node %q", ErrCycle, id)
		case done:
			return nil
		}
		state[id] = visiting
		for _, idx := range successors[id] {
			if err := visit(edges[idx].Target); err != nil {
				return err
			}
		}
		state[id] = done
		postorder = append(postorder, id)
		return nil
	}

	for _, id := range ids {
		if err := visit(id); err != nil {
			return nil, err
		}
	}

	// Reverse postorder puts sources before targets.
	for i, j := 0, len(postorder)-1; i < j; i, j = i+1, j-1 {
		postorder[i], postorder[j] = postorder[j], postorder[i]
	}
	return postorder, nil
}
