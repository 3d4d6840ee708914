package entities

import (
	"prefill/domain/core/valueobjects"
	pkgerrors "prefill/pkg/errors"
)

// GraphNode is a process step (or a global field source) of a loaded blueprint graph.
// A GraphNode is immutable once built; a reload replaces every node of the graph.
type GraphNode struct {
	// Private fields ensure encapsulation
	id             valueobjects.NodeID
	title          string
	fields         []string
	fieldSet       map[string]struct{}
	isGlobal       bool
	predecessorIDs []valueobjects.NodeID
	position       *valueobjects.Position
}

// NewGraphNode creates an ordinary blueprint node.
// Duplicate field keys are dropped, keeping the first occurrence.
func NewGraphNode(id valueobjects.NodeID, title string, fields []string, position *valueobjects.Position) (*GraphNode, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("node id cannot be empty")
	}

	node := &GraphNode{
		id:       id,
		title:    title,
		isGlobal: false,
	}
	node.setFields(fields)
	if position != nil {
		p := *position
		node.position = &p
	}

	return node, nil
}

// NewGlobalNode creates a global node: a field source that is always offered as a
// mapping target and is never drawn on the canvas.
func NewGlobalNode(id valueobjects.NodeID, title string, fields []string) (*GraphNode, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("global node id cannot be empty")
	}

	node := &GraphNode{
		id:       id,
		title:    title,
		isGlobal: true,
	}
	node.setFields(fields)

	return node, nil
}

// WithPredecessors returns a copy of the node carrying the given ancestor ids
func (n *GraphNode) WithPredecessors(ids []valueobjects.NodeID) *GraphNode {
	clone := *n
	clone.predecessorIDs = make([]valueobjects.NodeID, len(ids))
	copy(clone.predecessorIDs, ids)
	return &clone
}

// ID returns the node's identifier
func (n *GraphNode) ID() valueobjects.NodeID {
	return n.id
}

// Title returns the human readable title
func (n *GraphNode) Title() string {
	return n.title
}

// Fields returns the ordered field keys
func (n *GraphNode) Fields() []string {
	fields := make([]string, len(n.fields))
	copy(fields, n.fields)
	return fields
}

// HasField reports whether the node exposes the given field key
func (n *GraphNode) HasField(fieldKey string) bool {
	_, ok := n.fieldSet[fieldKey]
	return ok
}

// IsGlobal reports whether the node is a global field source
func (n *GraphNode) IsGlobal() bool {
	return n.isGlobal
}

// PredecessorIDs returns the transitive ancestors of the node
func (n *GraphNode) PredecessorIDs() []valueobjects.NodeID {
	ids := make([]valueobjects.NodeID, len(n.predecessorIDs))
	copy(ids, n.predecessorIDs)
	return ids
}

// Position returns the canvas placement, if any
func (n *GraphNode) Position() (valueobjects.Position, bool) {
	if n.position == nil {
		return valueobjects.Position{}, false
	}
	return *n.position, true
}

// HasPosition reports whether the node is drawn on the canvas
func (n *GraphNode) HasPosition() bool {
	return n.position != nil
}

func (n *GraphNode) setFields(fields []string) {
	n.fields = make([]string, 0, len(fields))
	n.fieldSet = make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if f == "" {
			continue
		}
		if _, dup := n.fieldSet[f]; dup {
			continue
		}
		n.fieldSet[f] = struct{}{}
		n.fields = append(n.fields, f)
	}
}
