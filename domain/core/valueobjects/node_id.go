package valueobjects

import (
	"errors"
	"strings"
)

// NodeID is a value object identifying a node in a blueprint graph.
// Ids come from the upstream blueprint server and are opaque strings.
type NodeID string

// NewNodeID creates a NodeID from an existing string
func NewNodeID(id string) (NodeID, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.New("node ID cannot be empty")
	}
	return NodeID(id), nil
}

// String returns the string representation of the NodeID
func (id NodeID) String() string {
	return string(id)
}

// Equals checks if two NodeIDs are equal
func (id NodeID) Equals(other NodeID) bool {
	return id == other
}

// IsZero checks if the NodeID is the zero value
func (id NodeID) IsZero() bool {
	return id == ""
}
