package aggregates

import (
	"fmt"

	"prefill/domain/config"
	"prefill/domain/core/entities"
	"prefill/domain/core/valueobjects"
)

// HandleSide is the side of a canvas node an edge attaches to
type HandleSide string

const (
	HandleLeft  HandleSide = "left"
	HandleRight HandleSide = "right"
)

// Canvas holds the two view collections handed to the rendering layer
type Canvas struct {
	Nodes []CanvasNode `json:"nodes"`
	Edges []CanvasEdge `json:"edges"`
}

// CanvasNode is a renderable node record
type CanvasNode struct {
	ID             string                `json:"id"`
	Position       valueobjects.Position `json:"position"`
	Data           CanvasNodeData        `json:"data"`
	SourcePosition HandleSide            `json:"sourcePosition"`
	TargetPosition HandleSide            `json:"targetPosition"`
}

// CanvasNodeData is the payload drawn inside a canvas node
type CanvasNodeData struct {
	Label string `json:"label"`
}

// CanvasEdge is a renderable edge record. ID is used as a rendering key and is not
// unique when the graph has parallel edges.
type CanvasEdge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// CanvasNodes projects the nodes that carry a position; the rest (global nodes in
// particular) are left out.
func CanvasNodes(nodes []*entities.GraphNode) []CanvasNode {
	out := make([]CanvasNode, 0, len(nodes))
	for _, n := range nodes {
		pos, ok := n.Position()
		if !ok {
			continue
		}
		out = append(out, CanvasNode{
			ID:             n.ID().String(),
			Position:       pos,
			Data:           CanvasNodeData{Label: n.Title()},
			SourcePosition: HandleRight,
			TargetPosition: HandleLeft,
		})
	}
	return out
}

// CanvasEdges projects every edge to one canvas edge with id "source-target".
// With DisambiguateParallelEdges set, repeated pairs get a "#n" suffix.
func CanvasEdges(edges []Edge, cfg *config.DomainConfig) []CanvasEdge {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	seen := make(map[string]int)
	out := make([]CanvasEdge, 0, len(edges))
	for _, e := range edges {
		id := e.Source.String() + cfg.EdgeIDSeparator + e.Target.String()
		if cfg.DisambiguateParallelEdges {
			seen[id]++
			if n := seen[id]; n > 1 {
				id = fmt.Sprintf("%s#%d", id, n)
			}
		}
		out = append(out, CanvasEdge{
			ID:     id,
			Source: e.Source.String(),
			Target: e.Target.String(),
		})
	}
	return out
}
