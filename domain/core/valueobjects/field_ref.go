package valueobjects

import (
	"encoding/json"
	"errors"
	"strings"
)

// DefaultFieldKeySeparator joins the field key and node id of a canonical key.
const DefaultFieldKeySeparator = "-"

// FieldRef identifies one field slot on one node.
// Two FieldRefs are equal iff both components are equal, so == is safe.
type FieldRef struct {
	nodeID   NodeID
	fieldKey string
}

// NewFieldRef creates a FieldRef without validation
func NewFieldRef(nodeID NodeID, fieldKey string) FieldRef {
	return FieldRef{nodeID: nodeID, fieldKey: fieldKey}
}

// ParseFieldRef creates a FieldRef from raw strings, rejecting empty parts
func ParseFieldRef(nodeID, fieldKey string) (FieldRef, error) {
	id, err := NewNodeID(nodeID)
	if err != nil {
		return FieldRef{}, err
	}
	fieldKey = strings.TrimSpace(fieldKey)
	if fieldKey == "" {
		return FieldRef{}, errors.New("field key cannot be empty")
	}
	return FieldRef{nodeID: id, fieldKey: fieldKey}, nil
}

// NodeID returns the node owning the field
func (f FieldRef) NodeID() NodeID {
	return f.nodeID
}

// FieldKey returns the key of the field within its node
func (f FieldRef) FieldKey() string {
	return f.fieldKey
}

// Equals checks if two FieldRefs are equal
func (f FieldRef) Equals(other FieldRef) bool {
	return f == other
}

// IsZero checks if the FieldRef is the zero value
func (f FieldRef) IsZero() bool {
	return f.nodeID.IsZero() && f.fieldKey == ""
}

// Key returns the canonical lookup key: fieldKey + "-" + nodeId
func (f FieldRef) Key() string {
	return f.KeyWith(DefaultFieldKeySeparator)
}

// KeyWith returns the canonical lookup key using a custom separator
func (f FieldRef) KeyWith(sep string) string {
	return f.fieldKey + sep + f.nodeID.String()
}

// String returns a human readable form
func (f FieldRef) String() string {
	return f.nodeID.String() + "." + f.fieldKey
}

type fieldRefJSON struct {
	NodeID   string `json:"node_id"`
	FieldKey string `json:"field_key"`
}

// MarshalJSON implements json.Marshaler
func (f FieldRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(fieldRefJSON{NodeID: f.nodeID.String(), FieldKey: f.fieldKey})
}

// UnmarshalJSON implements json.Unmarshaler
func (f *FieldRef) UnmarshalJSON(data []byte) error {
	var raw fieldRefJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	f.nodeID = NodeID(raw.NodeID)
	f.fieldKey = raw.FieldKey
	return nil
}
