package aggregates

import (
	"prefill/domain/core/entities"
	"prefill/domain/core/valueobjects"
)

// Edge is a directed execution-order edge. Parallel edges are allowed.
type Edge struct {
	Source valueobjects.NodeID `json:"source"`
	Target valueobjects.NodeID `json:"target"`
}

// PredecessorMap computes, for every node, the ancestors reachable by walking edges
// backwards. Each list is in breadth-first discovery order, has no duplicates and never
// contains the node itself, even when a cycle leads back to it.
func PredecessorMap(nodeIDs []valueobjects.NodeID, edges []Edge) map[valueobjects.NodeID][]valueobjects.NodeID {
	incoming := make(map[valueobjects.NodeID][]valueobjects.NodeID)
	for _, e := range edges {
		incoming[e.Target] = append(incoming[e.Target], e.Source)
	}

	result := make(map[valueobjects.NodeID][]valueobjects.NodeID, len(nodeIDs))
	for _, id := range nodeIDs {
		result[id] = ancestorsOf(id, incoming)
	}
	return result
}

func ancestorsOf(id valueobjects.NodeID, incoming map[valueobjects.NodeID][]valueobjects.NodeID) []valueobjects.NodeID {
	// The start node counts as visited so cycles cannot add it.
	visited := map[valueobjects.NodeID]bool{id: true}
	queue := append([]valueobjects.NodeID(nil), incoming[id]...)
	ancestors := []valueobjects.NodeID{}

	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]

		if visited[parent] {
			continue
		}
		visited[parent] = true
		ancestors = append(ancestors, parent)
		queue = append(queue, incoming[parent]...)
	}

	return ancestors
}

// ResolvePredecessors returns copies of nodes enriched with their predecessor ids
func ResolvePredecessors(nodes []*entities.GraphNode, edges []Edge) []*entities.GraphNode {
	ids := make([]valueobjects.NodeID, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID()
	}

	preds := PredecessorMap(ids, edges)

	enriched := make([]*entities.GraphNode, len(nodes))
	for i, n := range nodes {
		enriched[i] = n.WithPredecessors(preds[n.ID()])
	}
	return enriched
}
