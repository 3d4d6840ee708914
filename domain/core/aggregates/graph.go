package aggregates

import (
	"errors"
	"fmt"
	"time"

	"prefill/domain/config"
	"prefill/domain/core/entities"
	"prefill/domain/core/valueobjects"
)

// GraphKey identifies the blueprint a graph snapshot was loaded from
type GraphKey struct {
	TenantID    string
	BlueprintID string
}

// String returns the string representation
func (k GraphKey) String() string {
	return k.TenantID + "/" + k.BlueprintID
}

// NodeIndex maps node ids to nodes. It is built once per graph load and is
// read-only afterwards. Iteration follows insertion order.
type NodeIndex struct {
	order []valueobjects.NodeID
	nodes map[valueobjects.NodeID]*entities.GraphNode
}

// NewNodeIndex indexes the given nodes. A later node replaces an earlier one with
// the same id but keeps the earlier position in iteration order.
func NewNodeIndex(nodes ...*entities.GraphNode) *NodeIndex {
	idx := &NodeIndex{
		order: make([]valueobjects.NodeID, 0, len(nodes)),
		nodes: make(map[valueobjects.NodeID]*entities.GraphNode, len(nodes)),
	}
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if _, exists := idx.nodes[n.ID()]; !exists {
			idx.order = append(idx.order, n.ID())
		}
		idx.nodes[n.ID()] = n
	}
	return idx
}

// Get returns the node with the given id
func (idx *NodeIndex) Get(id valueobjects.NodeID) (*entities.GraphNode, bool) {
	if idx == nil {
		return nil, false
	}
	n, ok := idx.nodes[id]
	return n, ok
}

// Len returns the number of indexed nodes
func (idx *NodeIndex) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.order)
}

// Nodes returns all nodes in iteration order
func (idx *NodeIndex) Nodes() []*entities.GraphNode {
	if idx == nil {
		return nil
	}
	nodes := make([]*entities.GraphNode, 0, len(idx.order))
	for _, id := range idx.order {
		nodes = append(nodes, idx.nodes[id])
	}
	return nodes
}

// GlobalNodes returns the global nodes in iteration order
func (idx *NodeIndex) GlobalNodes() []*entities.GraphNode {
	var globals []*entities.GraphNode
	for _, n := range idx.Nodes() {
		if n.IsGlobal() {
			globals = append(globals, n)
		}
	}
	return globals
}

// Graph is the aggregate root for one loaded blueprint graph.
// It is immutable; a reload produces a new Graph.
type Graph struct {
	key      GraphKey
	name     string
	nodes    []*entities.GraphNode
	edges    []Edge
	index    *NodeIndex
	canvas   Canvas
	loadedAt time.Time
}

// NewGraph assembles a graph snapshot from enriched blueprint nodes, the raw edge
// list and the global nodes, then projects its canvas.
func NewGraph(key GraphKey, name string, nodes []*entities.GraphNode, edges []Edge, globals []*entities.GraphNode, cfg *config.DomainConfig) (*Graph, error) {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	if key.TenantID == "" || key.BlueprintID == "" {
		return nil, errors.New("tenant and blueprint ids are required")
	}
	if len(nodes)+len(globals) > cfg.MaxNodesPerGraph {
		return nil, fmt.Errorf("graph has %d nodes, maximum is %d", len(nodes)+len(globals), cfg.MaxNodesPerGraph)
	}
	if len(edges) > cfg.MaxEdgesPerGraph {
		return nil, fmt.Errorf("graph has %d edges, maximum is %d", len(edges), cfg.MaxEdgesPerGraph)
	}

	all := make([]*entities.GraphNode, 0, len(nodes)+len(globals))
	all = append(all, nodes...)
	all = append(all, globals...)
	index := NewNodeIndex(all...)

	g := &Graph{
		key:      key,
		name:     name,
		nodes:    append([]*entities.GraphNode(nil), nodes...),
		edges:    append([]Edge(nil), edges...),
		index:    index,
		loadedAt: time.Now(),
	}
	g.canvas = Canvas{
		Nodes: CanvasNodes(index.Nodes()),
		Edges: CanvasEdges(edges, cfg),
	}

	return g, nil
}

// FromBlueprint builds a graph snapshot from an upstream blueprint and global nodes
func FromBlueprint(key GraphKey, blueprint *BlueprintGraph, globals []*entities.GraphNode, cfg *config.DomainConfig) (*Graph, error) {
	if blueprint == nil {
		return nil, errors.New("blueprint cannot be nil")
	}
	nodes, err := blueprint.SelectGraphNodes()
	if err != nil {
		return nil, err
	}
	return NewGraph(key, blueprint.Name, nodes, blueprint.EdgeList(), globals, cfg)
}

// Key returns the blueprint the graph was loaded from
func (g *Graph) Key() GraphKey {
	return g.key
}

// Name returns the blueprint name
func (g *Graph) Name() string {
	return g.name
}

// Index returns the node index (ordinary and global nodes)
func (g *Graph) Index() *NodeIndex {
	return g.index
}

// Nodes returns the ordinary blueprint nodes in upstream order
func (g *Graph) Nodes() []*entities.GraphNode {
	return append([]*entities.GraphNode(nil), g.nodes...)
}

// Edges returns the raw edge list, duplicates included
func (g *Graph) Edges() []Edge {
	return append([]Edge(nil), g.edges...)
}

// Canvas returns the projected view collections
func (g *Graph) Canvas() Canvas {
	return g.canvas
}

// LoadedAt returns when the snapshot was built
func (g *Graph) LoadedAt() time.Time {
	return g.loadedAt
}

// NodeCount returns the number of ordinary nodes
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}
